package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/web"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSHooks are called, one at a time, as updates about a room come in. Nil
// hooks are skipped.
type WSHooks struct {
	OnConnect      func()
	OnPlayerJoined func(*web.PlayerJoined)
	OnSettings     func(*web.SettingsChanged)
	OnStart        func(*web.GameStart)
	OnGuess        func(*web.GuessMade)
	OnSkip         func(*web.TurnSkipped)
	OnEnd          func(*web.GameEnd)
}

type wsClient struct {
	conn  *websocket.Conn
	msgs  chan []byte
	done  chan struct{}
	hooks WSHooks
}

// ListenForUpdates connects to the room's websocket and calls hooks until the
// connection closes or ctx is cancelled.
func (c *Client) ListenForUpdates(ctx context.Context, rID sonar.RoomID, hooks WSHooks) error {
	scheme := "ws"
	if c.scheme == "https" {
		scheme = "wss"
	}

	addr := scheme + "://" + c.addr + roomPath(rID, "/ws")

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
		Jar:              c.http.Jar,
	}
	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	if hooks.OnConnect != nil {
		go hooks.OnConnect()
	}

	wsc := &wsClient{
		conn: conn,
		done: make(chan struct{}),
		// We buffer it in case messages come in while we're waiting on user input.
		// We don't want to process messages concurrently, because that seems
		// likely to cause tricky problems.
		msgs:  make(chan []byte, 100),
		hooks: hooks,
	}

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-wsc.done:
		}
	}()
	go wsc.handleMessages()

	err = wsc.read()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (ws *wsClient) read() error {
	defer close(ws.done)
	defer close(ws.msgs)
	for {
		messageType, message, err := ws.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ReadMessage: %w", err)
		}

		if messageType != websocket.TextMessage {
			continue
		}

		ws.msgs <- message
	}
}

func (ws *wsClient) handleMessages() {
	for msg := range ws.msgs {
		var justAction struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(msg, &justAction); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal action from server")
			continue
		}

		var err error
		switch justAction.Action {
		case "PLAYER_JOINED":
			err = handle(msg, ws.hooks.OnPlayerJoined)
		case "SETTINGS_CHANGED":
			err = handle(msg, ws.hooks.OnSettings)
		case "GAME_START":
			err = handle(msg, ws.hooks.OnStart)
		case "GUESS_MADE":
			err = handle(msg, ws.hooks.OnGuess)
		case "TURN_SKIPPED":
			err = handle(msg, ws.hooks.OnSkip)
		case "GAME_END":
			err = handle(msg, ws.hooks.OnEnd)
		default:
			log.Warn().Str("action", justAction.Action).Msg("unknown message action")
		}
		if err != nil {
			log.Error().Err(err).Str("action", justAction.Action).Msg("failed to handle message")
		}
	}
}

func handle[T any](dat []byte, hook func(*T)) error {
	if hook == nil {
		return nil
	}
	var msg T
	if err := json.Unmarshal(dat, &msg); err != nil {
		return err
	}
	hook(&msg)
	return nil
}
