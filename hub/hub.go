// Package hub fans messages out to the websocket connections watching a room.
package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active connections and broadcasts messages to the
// connections.
type Hub struct {
	// Registered connections.
	connections map[sonar.RoomID][]*connection

	// Messages to send to everyone in a room.
	broadcast chan *broadcastMsg

	// Messages to send to a single player in a room.
	player chan *playerMsg

	// Register requests from the connections.
	register chan *connection

	// Unregister requests from connections.
	unregister chan *connection

	// count asks how many connections a room has, for tests and logging.
	count chan countReq

	nextID atomic.Int64
}

// New creates a new Hub and starts it in a background Go routine.
func New() *Hub {
	h := &Hub{
		broadcast:   make(chan *broadcastMsg),
		player:      make(chan *playerMsg),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		count:       make(chan countReq),
		connections: make(map[sonar.RoomID][]*connection),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			conns := h.connections[c.roomID]
			h.connections[c.roomID] = append(conns, c)
			log.Debug().Str("room", string(c.roomID)).Str("player", string(c.playerID)).Msg("websocket registered")
		case c := <-h.unregister:
			h.deleteConn(c)
		case m := <-h.broadcast:
			for _, c := range h.snapshot(m.roomID) {
				h.send(c, m.msg)
			}
		case m := <-h.player:
			for _, c := range h.snapshot(m.roomID) {
				if c.playerID == m.playerID {
					h.send(c, m.msg)
				}
			}
		case req := <-h.count:
			req.resp <- len(h.connections[req.roomID])
		}
	}
}

// snapshot copies a room's connections, so they can be removed while we loop.
func (h *Hub) snapshot(rID sonar.RoomID) []*connection {
	return append([]*connection(nil), h.connections[rID]...)
}

func (h *Hub) send(c *connection, msg []byte) {
	select {
	case c.send <- msg:
	default:
		// They aren't keeping up, drop them.
		h.deleteConn(c)
	}
}

func (h *Hub) deleteConn(c *connection) {
	rconns := h.connections[c.roomID]
	for i, rconn := range rconns {
		if rconn.id == c.id {
			close(c.send)
			// Remove the connection.
			copy(rconns[i:], rconns[i+1:])
			rconns[len(rconns)-1] = nil
			rconns = rconns[:len(rconns)-1]
			if len(rconns) == 0 {
				delete(h.connections, c.roomID)
			} else {
				h.connections[c.roomID] = rconns
			}
			return
		}
	}
}

type broadcastMsg struct {
	roomID sonar.RoomID
	msg    []byte
}

// ToRoom sends a message to everyone watching a room.
func (h *Hub) ToRoom(rID sonar.RoomID, msg interface{}) error {
	dat, err := encode(msg)
	if err != nil {
		return err
	}

	h.broadcast <- &broadcastMsg{
		roomID: rID,
		msg:    dat,
	}

	return nil
}

type playerMsg struct {
	roomID   sonar.RoomID
	playerID sonar.PlayerID
	msg      []byte
}

// ToPlayer sends a message to a single player's connections to a room.
func (h *Hub) ToPlayer(rID sonar.RoomID, pID sonar.PlayerID, msg interface{}) error {
	dat, err := encode(msg)
	if err != nil {
		return err
	}

	h.player <- &playerMsg{
		roomID:   rID,
		playerID: pID,
		msg:      dat,
	}

	return nil
}

func encode(msg interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}

type countReq struct {
	roomID sonar.RoomID
	resp   chan int
}

// Connections returns how many connections are watching a room.
func (h *Hub) Connections(rID sonar.RoomID) int {
	req := countReq{roomID: rID, resp: make(chan int, 1)}
	h.count <- req
	return <-req.resp
}

// Register associates a connection with the hub and a given room, and starts
// pumping messages to it.
func (h *Hub) Register(ws *websocket.Conn, rID sonar.RoomID, pID sonar.PlayerID) {
	conn := &connection{
		id:       fmt.Sprintf("%s-%d", rID, h.nextID.Add(1)),
		h:        h,
		roomID:   rID,
		playerID: pID,
		send:     make(chan []byte, 256),
		ws:       ws,
	}
	h.register <- conn
	go conn.writePump()
	go conn.readPump()
}
