package sonar

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

var (
	ErrRoomNotFound   = errors.New("sonar: room not found")
	ErrPlayerNotFound = errors.New("sonar: player not found")
	ErrRoomFull       = errors.New("sonar: room is full")
	ErrRoomStarted    = errors.New("sonar: room has already started")
	ErrRoomNotStarted = errors.New("sonar: room has not started")
	ErrNotYourTurn    = errors.New("sonar: not this player's turn")
)

// MaxSeats is the number of human and bot seats combined in one room.
const MaxSeats = 4

type PlayerID string
type RoomID string

// Player is someone who has signed up to play, human players only.
type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

// Language is a two-letter language code, e.g. "en".
type Language string

const (
	English Language = "en"
	French  Language = "fr"
	Arabic  Language = "ar"

	// DefaultLanguage is used when a language has no data or model of its own.
	DefaultLanguage = English
)

// Languages are the languages we ship word lists for.
var Languages = []Language{English, French, Arabic}

// ParseLanguage validates a language code.
func ParseLanguage(in string) (Language, error) {
	lang := Language(Normalize(in))
	for _, l := range Languages {
		if l == lang {
			return lang, nil
		}
	}
	return "", fmt.Errorf("unknown language %q", in)
}

// Category names a themed word pack. The empty category and Mixed both mean
// "draw from everything".
type Category string

const (
	Mixed           Category = "mixed"
	Sports          Category = "sports"
	History         Category = "history"
	Science         Category = "science"
	ComputerScience Category = "computer_science"
)

// Themed reports whether c names an actual theme, as opposed to the mixed
// pool.
func (c Category) Themed() bool {
	return c != "" && c != Mixed
}

// ParseCategory validates a category name, an empty name is Mixed.
func ParseCategory(in string) (Category, error) {
	switch c := Category(Normalize(in)); c {
	case "", Mixed:
		return Mixed, nil
	case Sports, History, Science, ComputerScience:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q", in)
	}
}

// Difficulty is the kind of bot occupying a seat. Humans have NoDifficulty.
type Difficulty string

const (
	NoDifficulty = Difficulty("")
	Noob         = Difficulty("noob")
	Pro          = Difficulty("pro")
	Hacker       = Difficulty("hacker")
)

// ParseDifficulty validates a bot difficulty.
func ParseDifficulty(in string) (Difficulty, error) {
	switch d := Difficulty(Normalize(in)); d {
	case Noob, Pro, Hacker:
		return d, nil
	default:
		return NoDifficulty, fmt.Errorf("unknown bot difficulty %q", in)
	}
}

type GameStatus string

const (
	// NoStatus is an error case.
	NoStatus = GameStatus("")
	// Room is accepting players and settings.
	Waiting = GameStatus("WAITING")
	// A goal word has been drawn and guesses are being scored.
	Active = GameStatus("ACTIVE")
	// Someone found the goal word.
	Finished = GameStatus("FINISHED")
)

// Normalize puts a raw word into the form every word list and index uses.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// PlayerScore is one line of a finished match's final standings.
type PlayerScore struct {
	Name  string     `json:"name"`
	Bot   Difficulty `json:"bot,omitempty"`
	Score float64    `json:"score"`
}

// MatchResult summarizes a finished match. It's the only thing about a game
// that outlives the process.
type MatchResult struct {
	RoomID   RoomID        `json:"room_id"`
	Language Language      `json:"language"`
	Category Category      `json:"category"`
	GoalWord string        `json:"goal_word"`
	Winner   string        `json:"winner"`
	Guesses  int           `json:"guesses"`
	Scores   []PlayerScore `json:"scores"`
	EndedAt  time.Time     `json:"ended_at"`
}

// MatchLog records finished matches.
type MatchLog interface {
	RecordMatch(*MatchResult) error
	RecentMatches(limit int) ([]*MatchResult, error)
}

var words = []string{
	"anchor", "beacon", "canyon", "delta", "ember", "falcon", "glacier",
	"harbor", "island", "jungle", "kernel", "lagoon", "meadow", "nebula",
	"orbit", "prism", "quartz", "reef", "signal", "tundra", "vortex", "willow",
}

func RandomRoomID(r *rand.Rand) RoomID {
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		buf.WriteString(randomWord(r))
	}
	return RoomID(buf.String())
}

var letters = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func RandomPlayerID(r *rand.Rand) PlayerID {
	b := make([]byte, 32)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return PlayerID(b)
}

func randomWord(r *rand.Rand) string {
	w := words[r.Intn(len(words))]
	return strings.ToUpper(w[:1]) + w[1:]
}
