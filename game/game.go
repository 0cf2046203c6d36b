// Package game scores guesses against a hidden goal word. A Session is the
// ground truth that human and bot guesses are both played against.
//
// A Session isn't safe for concurrent use. Scoring is order dependent, so
// callers must submit one guess at a time per session.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/bcspragu/Sonar/sonar"
)

var (
	ErrGameOver      = errors.New("game: the goal word has already been found")
	ErrNoGoalWord    = errors.New("game: no goal word given and the target pool is empty")
	ErrUnknownPlayer = errors.New("game: no player at that index")
)

// Bonus names a scoring rule that paid out on a guess.
type Bonus string

const (
	CorrectWord    = Bonus("CORRECT WORD")
	BestOnBoard    = Bonus("BEST ON BOARD")
	DifferentAngle = Bonus("DIFFERENT ANGLE")
)

// Points is what the bonus is worth.
func (b Bonus) Points() float64 {
	switch b {
	case CorrectWord:
		return 200
	case BestOnBoard:
		return 50
	case DifferentAngle:
		return 80
	default:
		return 0
	}
}

// differentAngleMin is both how close to the goal a guess must be to earn the
// different angle bonus, and how far from each of the player's earlier
// guesses it has to be.
const differentAngleMin = 0.5

// Oracle is the similarity measure guesses are scored with, see w2v.Oracle.
type Oracle interface {
	ComputeSimilarity(a, b string, lang sonar.Language) float64
	SimilarityToGoal(guess, goal string, lang sonar.Language) float64
}

// Vocabulary is the set of acceptable guesses, see wordlist.Set.
type Vocabulary interface {
	Contains(word string) bool
}

// GuessRecord is the outcome of one submitted guess. Records are never
// modified after they're returned.
type GuessRecord struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
	ScoreGain  float64 `json:"score_gain"`
	Bonuses    []Bonus `json:"bonuses,omitempty"`
	TotalScore float64 `json:"total_score"`
	Valid      bool    `json:"valid"`
	// Player is the index of the player who made the guess.
	Player int `json:"player"`
}

// Notes renders the bonuses the way they're shown to players, e.g.
// "CORRECT WORD (+200), DIFFERENT ANGLE (+80)".
func (g *GuessRecord) Notes() string {
	notes := make([]string, len(g.Bonuses))
	for i, b := range g.Bonuses {
		notes[i] = fmt.Sprintf("%s (+%d)", b, int(b.Points()))
	}
	return strings.Join(notes, ", ")
}

func (g *GuessRecord) has(b Bonus) bool {
	for _, gb := range g.Bonuses {
		if gb == b {
			return true
		}
	}
	return false
}

type Player struct {
	Name    string
	Score   float64
	Guesses []*GuessRecord
	// BestSimilarity is -1 until the player makes a valid guess.
	BestSimilarity float64
	// Bot is the player's difficulty, or sonar.NoDifficulty for humans.
	Bot sonar.Difficulty
}

type Config struct {
	Language   sonar.Language
	Category   sonar.Category
	Vocabulary Vocabulary
	// TargetPool is where the goal word is drawn from when GoalWord is empty.
	TargetPool []string
	GoalWord   string

	Oracle Oracle
	Rand   *rand.Rand
}

// Session is a single match. It's created active, and finishes as soon as
// someone guesses the goal word.
type Session struct {
	cfg *Config

	goal       string
	players    []*Player
	board      []*GuessRecord
	globalBest float64
	winner     int
	status     sonar.GameStatus
}

// New draws a goal word, if one wasn't given, and starts a session.
func New(cfg *Config) (*Session, error) {
	goal := sonar.Normalize(cfg.GoalWord)
	if goal == "" {
		if len(cfg.TargetPool) == 0 {
			return nil, ErrNoGoalWord
		}
		goal = sonar.Normalize(cfg.TargetPool[cfg.Rand.Intn(len(cfg.TargetPool))])
	}

	return &Session{
		cfg:    cfg,
		goal:   goal,
		winner: -1,
		status: sonar.Active,
	}, nil
}

// AddPlayer seats a player and returns their index.
func (s *Session) AddPlayer(name string, bot sonar.Difficulty) int {
	s.players = append(s.players, &Player{
		Name:           name,
		BestSimilarity: -1,
		Bot:            bot,
	})
	return len(s.players) - 1
}

func (s *Session) Language() sonar.Language { return s.cfg.Language }
func (s *Session) Category() sonar.Category { return s.cfg.Category }
func (s *Session) GoalWord() string         { return s.goal }
func (s *Session) Status() sonar.GameStatus { return s.status }
func (s *Session) Finished() bool           { return s.status == sonar.Finished }

// GlobalBest is the highest similarity any non-winning guess has reached.
func (s *Session) GlobalBest() float64 { return s.globalBest }

// Winner returns the player who found the goal word, if anyone has.
func (s *Session) Winner() (*Player, bool) {
	if s.winner < 0 {
		return nil, false
	}
	return s.players[s.winner], true
}

// Valid reports whether word would be accepted as a guess. The goal word
// is always valid, even if it's missing from the vocabulary.
func (s *Session) Valid(word string) bool {
	word = sonar.Normalize(word)
	if word == "" {
		return false
	}
	return word == s.goal || s.cfg.Vocabulary.Contains(word)
}

// SubmitGuess scores a guess for the player at idx. A word outside the
// vocabulary comes back as an invalid record and changes nothing.
func (s *Session) SubmitGuess(idx int, raw string) (*GuessRecord, error) {
	if idx < 0 || idx >= len(s.players) {
		return nil, ErrUnknownPlayer
	}
	if s.Finished() {
		return nil, ErrGameOver
	}

	p := s.players[idx]
	word := sonar.Normalize(raw)
	if !s.Valid(word) {
		return &GuessRecord{
			Word:       word,
			TotalScore: p.Score,
			Player:     idx,
		}, nil
	}

	rec := s.score(p, word)
	rec.Player = idx

	if rec.has(CorrectWord) {
		s.winner = idx
		s.status = sonar.Finished
	}
	p.Score += rec.ScoreGain
	rec.TotalScore = p.Score
	if rec.Similarity > p.BestSimilarity {
		p.BestSimilarity = rec.Similarity
	}
	p.Guesses = append(p.Guesses, rec)
	s.board = append(s.board, rec)

	return rec, nil
}

// score applies every scoring rule to a valid guess. The rules are evaluated
// independently, and their points stack. It updates the global best, but
// leaves the player for the caller.
func (s *Session) score(p *Player, word string) *GuessRecord {
	lang := s.cfg.Language
	sim := s.cfg.Oracle.SimilarityToGoal(word, s.goal, lang)
	rec := &GuessRecord{
		Word:       word,
		Similarity: sim,
		Valid:      true,
	}
	correct := word == s.goal

	if correct {
		rec.award(CorrectWord)
	} else if sim > 0 {
		rec.ScoreGain += sim * 100
	}

	if sim > s.globalBest && !correct {
		rec.award(BestOnBoard)
		s.globalBest = sim
	}

	if sim > differentAngleMin && len(p.Guesses) > 0 && s.differentAngle(p, word) {
		rec.award(DifferentAngle)
	}

	return rec
}

func (s *Session) differentAngle(p *Player, word string) bool {
	for _, prev := range p.Guesses {
		if prev.Word == word {
			return false
		}
		if s.cfg.Oracle.ComputeSimilarity(word, prev.Word, s.cfg.Language) >= differentAngleMin {
			return false
		}
	}
	return true
}

func (g *GuessRecord) award(b Bonus) {
	g.ScoreGain += b.Points()
	g.Bonuses = append(g.Bonuses, b)
}

// Player returns the player at idx.
func (s *Session) Player(idx int) (*Player, error) {
	if idx < 0 || idx >= len(s.players) {
		return nil, ErrUnknownPlayer
	}
	return s.players[idx], nil
}

func (s *Session) Players() []*Player { return s.players }

// Board returns every valid guess in the order it was made. The returned
// slice must not be modified.
func (s *Session) Board() []*GuessRecord { return s.board }

// Scoreboard returns each player's score, in seating order.
func (s *Session) Scoreboard() []float64 {
	out := make([]float64, len(s.players))
	for i, p := range s.players {
		out[i] = p.Score
	}
	return out
}

// Leaderboard returns the players from highest to lowest score. Ties keep
// seating order.
func (s *Session) Leaderboard() []*Player {
	out := make([]*Player, len(s.players))
	copy(out, s.players)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Standings converts the leaderboard for a match result.
func (s *Session) Standings() []sonar.PlayerScore {
	lb := s.Leaderboard()
	out := make([]sonar.PlayerScore, len(lb))
	for i, p := range lb {
		out[i] = sonar.PlayerScore{Name: p.Name, Bot: p.Bot, Score: p.Score}
	}
	return out
}
