package room

import (
	"github.com/bcspragu/Sonar/game"
	"github.com/bcspragu/Sonar/sonar"
)

// State is a snapshot of a room that's safe to show every player. The goal
// word is left out until the game is over.
type State struct {
	ID       sonar.RoomID     `json:"id"`
	Host     sonar.PlayerID   `json:"host"`
	Status   sonar.GameStatus `json:"status"`
	Settings Settings         `json:"settings"`
	Players  []*PlayerState   `json:"players"`
	// Turn is the player whose turn it is, while the game is active.
	Turn     sonar.PlayerID `json:"turn,omitempty"`
	Board    []*BoardEntry  `json:"board"`
	GoalWord string         `json:"goal_word,omitempty"`
	Winner   string         `json:"winner,omitempty"`
}

// PlayerName returns the name of the seated player, or their ID if they
// aren't seated.
func (st *State) PlayerName(id sonar.PlayerID) string {
	for _, p := range st.Players {
		if p.ID == id {
			return p.Name
		}
	}
	return string(id)
}

type PlayerState struct {
	ID             sonar.PlayerID   `json:"id"`
	Name           string           `json:"name"`
	Bot            sonar.Difficulty `json:"bot,omitempty"`
	Score          float64          `json:"score"`
	BestSimilarity float64          `json:"best_similarity"`
}

type BoardEntry struct {
	Player string `json:"player"`
	*game.GuessRecord
	Notes string `json:"notes,omitempty"`
}

func (rm *Room) State() *State {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	st := &State{
		ID:       rm.ID,
		Host:     rm.Host,
		Status:   rm.status,
		Settings: rm.settings,
		Board:    []*BoardEntry{},
	}

	for i, s := range rm.seats {
		ps := &PlayerState{ID: s.ID, Name: s.Name, Bot: s.Bot, BestSimilarity: -1}
		if rm.session != nil {
			p := rm.session.Players()[i]
			ps.Score, ps.BestSimilarity = p.Score, p.BestSimilarity
		}
		st.Players = append(st.Players, ps)
	}

	if rm.session == nil {
		return st
	}

	for _, rec := range rm.session.Board() {
		st.Board = append(st.Board, rm.entry(rec))
	}
	switch rm.status {
	case sonar.Active:
		st.Turn = rm.seats[rm.turn].ID
	case sonar.Finished:
		st.GoalWord = rm.session.GoalWord()
		if w, ok := rm.session.Winner(); ok {
			st.Winner = w.Name
		}
	}
	return st
}

// Entry labels a guess with the name of the player who made it.
func (rm *Room) Entry(rec *game.GuessRecord) *BoardEntry {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.entry(rec)
}

func (rm *Room) entry(rec *game.GuessRecord) *BoardEntry {
	e := &BoardEntry{GuessRecord: rec, Notes: rec.Notes()}
	if rec.Player >= 0 && rec.Player < len(rm.seats) {
		e.Player = rm.seats[rec.Player].Name
	}
	return e
}

// Turn returns whose turn it is.
func (rm *Room) Turn() (sonar.PlayerID, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.status != sonar.Active {
		return "", false
	}
	return rm.seats[rm.turn].ID, true
}
