// Package web serves the JSON API for playing in rooms, and pushes room
// updates out over websockets.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/bcspragu/Sonar/game"
	"github.com/bcspragu/Sonar/httperr"
	"github.com/bcspragu/Sonar/hub"
	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const defaultMatchLimit = 20

// DB is where players and live rooms are kept, see memdb.DB.
type DB interface {
	NewPlayer(name string) (sonar.PlayerID, error)
	Player(sonar.PlayerID) (*sonar.Player, error)
	NewRoom(host sonar.PlayerID) (*room.Room, error)
	Room(sonar.RoomID) (*room.Room, error)
	WaitingRooms() ([]sonar.RoomID, error)
}

type Srv struct {
	sc      *securecookie.SecureCookie
	h       *hub.Hub
	mux     *mux.Router
	db      DB
	history sonar.MatchLog
	up      websocket.Upgrader

	rmu sync.Mutex
	r   *rand.Rand
}

// New returns an initialized server. Each room gets its own random source,
// seeded from r.
func New(db DB, history sonar.MatchLog, r *rand.Rand, sc *securecookie.SecureCookie) *Srv {
	s := &Srv{
		sc:      sc,
		h:       hub.New(),
		db:      db,
		history: history,
		r:       r,
	}
	s.mux = s.initMux()
	return s
}

func (s *Srv) initMux() *mux.Router {
	m := mux.NewRouter()
	// New player.
	m.HandleFunc("/api/player", s.handleError(s.serveCreatePlayer)).Methods("POST")
	// Load player.
	m.HandleFunc("/api/player", s.handleError(s.servePlayer)).Methods("GET")
	// New room.
	m.HandleFunc("/api/room", s.handleError(s.serveCreateRoom)).Methods("POST")
	// Rooms waiting for players.
	m.HandleFunc("/api/rooms", s.handleError(s.serveWaitingRooms)).Methods("GET")
	// Get room.
	m.HandleFunc("/api/room/{id}", s.handleError(s.requireRoom(s.serveRoom))).Methods("GET")
	// Join room.
	m.HandleFunc("/api/room/{id}/join", s.handleError(s.requireRoom(s.serveJoin))).Methods("POST")
	// Change the room's language, category and bots.
	m.HandleFunc("/api/room/{id}/settings", s.handleError(s.requireRoom(s.serveSettings))).Methods("POST")
	// Start the game.
	m.HandleFunc("/api/room/{id}/start", s.handleError(s.requireRoom(s.serveStart))).Methods("POST")
	// Guess a word.
	m.HandleFunc("/api/room/{id}/guess", s.handleError(s.requireRoom(s.serveGuess))).Methods("POST")
	// Give up a turn.
	m.HandleFunc("/api/room/{id}/skip", s.handleError(s.requireRoom(s.serveSkip))).Methods("POST")
	// Finished matches.
	m.HandleFunc("/api/matches", s.handleError(s.serveMatches)).Methods("GET")

	// WebSocket handler for rooms.
	m.HandleFunc("/api/room/{id}/ws", s.handleError(s.serveData)).Methods("GET")

	return m
}

func (s *Srv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Srv) handleError(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		code, userMsg := httperr.Extract(err)
		l := log.Warn()
		if code >= http.StatusInternalServerError {
			l = log.Error()
		}
		l.Err(err).Str("path", r.URL.Path).Int("code", code).Msg("request failed")
		http.Error(w, userMsg, code)
	}
}

// roomHandlerFunc is a handler for a request from a logged in player about a
// specific room.
type roomHandlerFunc func(w http.ResponseWriter, r *http.Request, rm *room.Room, p *sonar.Player) error

func (s *Srv) requireRoom(h roomHandlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		p, err := s.requirePlayer(r)
		if err != nil {
			return err
		}

		id := sonar.RoomID(mux.Vars(r)["id"])
		rm, err := s.db.Room(id)
		if err != nil {
			return roomErr(err)
		}
		return h(w, r, rm, p)
	}
}

func (s *Srv) serveCreatePlayer(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httperr.BadRequest("failed to decode player: %w", err).WithMessage("malformed request")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return httperr.BadRequest("no name given").WithMessage("No name given")
	}

	id, err := s.db.NewPlayer(name)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	encoded, err := s.sc.Encode("auth", id)
	if err != nil {
		return fmt.Errorf("failed to encode auth cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "Authorization",
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
	})

	jsonResp(w, &sonar.Player{ID: id, Name: name})
	return nil
}

func (s *Srv) servePlayer(w http.ResponseWriter, r *http.Request) error {
	p, err := s.requirePlayer(r)
	if err != nil {
		return err
	}
	jsonResp(w, p)
	return nil
}

func (s *Srv) serveCreateRoom(w http.ResponseWriter, r *http.Request) error {
	p, err := s.requirePlayer(r)
	if err != nil {
		return err
	}

	rm, err := s.db.NewRoom(p.ID)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	jsonResp(w, struct {
		ID sonar.RoomID `json:"id"`
	}{rm.ID})
	return nil
}

func (s *Srv) serveWaitingRooms(w http.ResponseWriter, r *http.Request) error {
	rIDs, err := s.db.WaitingRooms()
	if err != nil {
		return fmt.Errorf("failed to load waiting rooms: %w", err)
	}
	jsonResp(w, rIDs)
	return nil
}

func (s *Srv) serveRoom(w http.ResponseWriter, r *http.Request, rm *room.Room, p *sonar.Player) error {
	jsonResp(w, rm.State())
	return nil
}

func (s *Srv) serveJoin(w http.ResponseWriter, r *http.Request, rm *room.Room, p *sonar.Player) error {
	if err := rm.Join(p.ID, p.Name); err != nil {
		return roomErr(err)
	}

	st := rm.State()
	s.toRoom(rm.ID, &PlayerJoined{Player: p, State: st})
	jsonResp(w, st)
	return nil
}

func (s *Srv) serveSettings(w http.ResponseWriter, r *http.Request, rm *room.Room, p *sonar.Player) error {
	var req room.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httperr.BadRequest("failed to decode settings: %w", err).WithMessage("malformed request")
	}
	if err := rm.UpdateSettings(p.ID, req); err != nil {
		return roomErr(err)
	}

	st := rm.State()
	s.toRoom(rm.ID, &SettingsChanged{State: st})
	jsonResp(w, st)
	return nil
}

func (s *Srv) serveStart(w http.ResponseWriter, r *http.Request, rm *room.Room, p *sonar.Player) error {
	if err := rm.Start(p.ID, s.newRand()); err != nil {
		return roomErr(err)
	}

	s.toRoom(rm.ID, &GameStart{State: rm.State()})
	if err := s.playBots(rm); err != nil {
		return err
	}
	jsonResp(w, rm.State())
	return nil
}

func (s *Srv) serveGuess(w http.ResponseWriter, r *http.Request, rm *room.Room, p *sonar.Player) error {
	var req struct {
		Word string `json:"word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return httperr.BadRequest("failed to decode guess: %w", err).WithMessage("malformed request")
	}

	rec, err := rm.Guess(p.ID, req.Word)
	if err != nil {
		return roomErr(err)
	}

	entry := rm.Entry(rec)
	if !rec.Valid {
		// Only the guesser needs to hear about typos.
		jsonResp(w, entry)
		return nil
	}

	s.announce(rm, rec)
	if err := s.playBots(rm); err != nil {
		return err
	}
	jsonResp(w, entry)
	return nil
}

func (s *Srv) serveSkip(w http.ResponseWriter, r *http.Request, rm *room.Room, p *sonar.Player) error {
	if err := rm.Skip(p.ID); err != nil {
		return roomErr(err)
	}

	st := rm.State()
	s.toRoom(rm.ID, &TurnSkipped{Player: p, State: st})
	if err := s.playBots(rm); err != nil {
		return err
	}
	jsonResp(w, rm.State())
	return nil
}

func (s *Srv) serveMatches(w http.ResponseWriter, r *http.Request) error {
	limit := defaultMatchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			return httperr.BadRequest("bad limit %q", l).WithMessage("limit must be a positive number")
		}
		limit = n
	}

	ms, err := s.history.RecentMatches(limit)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}
	jsonResp(w, ms)
	return nil
}

func (s *Srv) serveData(w http.ResponseWriter, r *http.Request) error {
	id := sonar.RoomID(mux.Vars(r)["id"])
	if _, err := s.db.Room(id); err != nil {
		return roomErr(err)
	}

	// Spectators are allowed, they just don't get any messages meant for a
	// specific player.
	var pID sonar.PlayerID
	p, err := s.loadPlayer(r)
	if err != nil {
		return err
	}
	if p != nil {
		pID = p.ID
	}

	ws, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an error response.
		log.Warn().Err(err).Str("room", string(id)).Msg("failed to upgrade websocket")
		return nil
	}
	s.h.Register(ws, id, pID)
	return nil
}

// playBots runs any bot turns that are up, broadcasting each guess.
func (s *Srv) playBots(rm *room.Room) error {
	recs, err := rm.PlayBots()
	for _, rec := range recs {
		s.announce(rm, rec)
	}
	if err != nil {
		return fmt.Errorf("failed to play bot turns: %w", err)
	}
	return nil
}

func (s *Srv) announce(rm *room.Room, rec *game.GuessRecord) {
	s.toRoom(rm.ID, &GuessMade{Guess: rm.Entry(rec)})
	if !rec.Valid || rm.Status() != sonar.Finished {
		return
	}
	res, _ := rm.Result()
	s.toRoom(rm.ID, &GameEnd{Result: res, State: rm.State()})
}

func (s *Srv) toRoom(id sonar.RoomID, msg interface{}) {
	if err := s.h.ToRoom(id, msg); err != nil {
		log.Error().Err(err).Str("room", string(id)).Msg("failed to broadcast")
	}
}

func (s *Srv) newRand() *rand.Rand {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return rand.New(rand.NewSource(s.r.Int63()))
}

func jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

// loadPlayer returns the player from the request's auth cookie, or nil if
// they aren't logged in.
func (s *Srv) loadPlayer(r *http.Request) (*sonar.Player, error) {
	c, err := r.Cookie("Authorization")
	if err == http.ErrNoCookie {
		return nil, nil
	}
	if err != nil {
		return nil, httperr.BadRequest("failed to read auth cookie: %w", err)
	}

	var pID sonar.PlayerID
	if err := s.sc.Decode("auth", c.Value, &pID); err != nil {
		// If we can't parse it, assume it's an old auth cookie and treat them as
		// not logged in.
		return nil, nil
	}

	p, err := s.db.Player(pID)
	if errors.Is(err, sonar.ErrPlayerNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load player: %w", err)
	}
	return p, nil
}

func (s *Srv) requirePlayer(r *http.Request) (*sonar.Player, error) {
	p, err := s.loadPlayer(r)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, httperr.Unauthorized("no player for request").WithMessage("Not logged in")
	}
	return p, nil
}

// roomErr maps errors from rooms and games to HTTP errors.
func roomErr(err error) error {
	switch {
	case errors.Is(err, sonar.ErrRoomNotFound):
		return httperr.NotFound("%w", err).WithMessage("room not found")
	case errors.Is(err, sonar.ErrPlayerNotFound):
		return httperr.Forbidden("%w", err).WithMessage("you aren't in this room")
	case errors.Is(err, room.ErrNotHost):
		return httperr.Forbidden("%w", err).WithMessage("only the host can do that")
	case errors.Is(err, sonar.ErrNotYourTurn):
		return httperr.Conflict("%w", err).WithMessage("it isn't your turn")
	case errors.Is(err, sonar.ErrRoomFull):
		return httperr.Conflict("%w", err).WithMessage("the room is full")
	case errors.Is(err, sonar.ErrRoomStarted):
		return httperr.Conflict("%w", err).WithMessage("the game has already started")
	case errors.Is(err, sonar.ErrRoomNotStarted):
		return httperr.Conflict("%w", err).WithMessage("the game hasn't started")
	case errors.Is(err, game.ErrGameOver):
		return httperr.Conflict("%w", err).WithMessage("the game is over")
	case errors.Is(err, room.ErrBadDifficulty):
		return httperr.BadRequest("%w", err).WithMessage("unknown bot difficulty")
	case errors.Is(err, room.ErrBadSettings):
		return httperr.BadRequest("%w", err).WithMessage("unsupported language or category")
	default:
		return fmt.Errorf("room error: %w", err)
	}
}
