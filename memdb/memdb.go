// Package memdb keeps players, rooms and match history in memory. Live games
// only ever live here, nothing about a room survives a restart.
package memdb

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
)

type idNamespace string

const (
	playerID = idNamespace("player")
)

var _ sonar.MatchLog = (*DB)(nil)

type DB struct {
	env *room.Env
	r   *rand.Rand

	mu      sync.Mutex
	ids     map[idNamespace]int
	players map[sonar.PlayerID]*sonar.Player
	rooms   map[sonar.RoomID]*room.Room
	matches []*sonar.MatchResult
}

// New returns an empty DB. Rooms it creates share env, and draw their IDs
// from r.
func New(env *room.Env, r *rand.Rand) *DB {
	return &DB{
		env:     env,
		r:       r,
		ids:     make(map[idNamespace]int),
		players: make(map[sonar.PlayerID]*sonar.Player),
		rooms:   make(map[sonar.RoomID]*room.Room),
	}
}

func (db *DB) NewPlayer(name string) (sonar.PlayerID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id := sonar.PlayerID(db.newID(playerID))
	db.players[id] = &sonar.Player{ID: id, Name: name}
	return id, nil
}

func (db *DB) Player(id sonar.PlayerID) (*sonar.Player, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.players[id]
	if !ok {
		return nil, sonar.ErrPlayerNotFound
	}
	pc := *p
	return &pc, nil
}

// NewRoom opens a room hosted by the given player.
func (db *DB) NewRoom(host sonar.PlayerID) (*room.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.players[host]
	if !ok {
		return nil, sonar.ErrPlayerNotFound
	}

	id := sonar.RandomRoomID(db.r)
	for i := 0; db.rooms[id] != nil; i++ {
		if i == 10 {
			return nil, fmt.Errorf("failed to find an unused room ID after %d tries", i)
		}
		id = sonar.RandomRoomID(db.r)
	}

	rm := room.New(id, host, p.Name, db.env)
	db.rooms[id] = rm
	return rm, nil
}

func (db *DB) Room(id sonar.RoomID) (*room.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rm, ok := db.rooms[id]
	if !ok {
		return nil, sonar.ErrRoomNotFound
	}
	return rm, nil
}

// WaitingRooms lists the rooms that can still be joined.
func (db *DB) WaitingRooms() ([]sonar.RoomID, error) {
	db.mu.Lock()
	rooms := make([]*room.Room, 0, len(db.rooms))
	for _, rm := range db.rooms {
		rooms = append(rooms, rm)
	}
	db.mu.Unlock()

	waiting := []sonar.RoomID{}
	for _, rm := range rooms {
		if rm.Status() == sonar.Waiting {
			waiting = append(waiting, rm.ID)
		}
	}
	sort.Slice(waiting, func(i, j int) bool { return waiting[i] < waiting[j] })
	return waiting, nil
}

// RemoveRoom forgets about a room, usually once it's over.
func (db *DB) RemoveRoom(id sonar.RoomID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[id]; !ok {
		return sonar.ErrRoomNotFound
	}
	delete(db.rooms, id)
	return nil
}

// RemoveFinished forgets rooms whose games ended before the given time, and
// returns how many it removed.
func (db *DB) RemoveFinished(before time.Time) int {
	// Rooms call RecordMatch with their own lock held, so don't hold ours while
	// taking theirs.
	db.mu.Lock()
	rooms := make([]*room.Room, 0, len(db.rooms))
	for _, rm := range db.rooms {
		rooms = append(rooms, rm)
	}
	db.mu.Unlock()

	var done []sonar.RoomID
	for _, rm := range rooms {
		if res, ok := rm.Result(); ok && res.EndedAt.Before(before) {
			done = append(done, rm.ID)
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range done {
		delete(db.rooms, id)
	}
	return len(done)
}

func (db *DB) RecordMatch(m *sonar.MatchResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	mc := *m
	mc.Scores = append([]sonar.PlayerScore(nil), m.Scores...)
	db.matches = append(db.matches, &mc)
	return nil
}

// RecentMatches returns up to limit matches, newest first.
func (db *DB) RecentMatches(limit int) ([]*sonar.MatchResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := []*sonar.MatchResult{}
	for i := len(db.matches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, db.matches[i])
	}
	return out, nil
}

func (db *DB) newID(ns idNamespace) string {
	id := db.ids[ns]
	db.ids[ns]++
	return strings.Join([]string{string(ns), fmt.Sprint(id)}, "_")
}
