// Package bot implements the automated opponents. Each difficulty is a
// policy that looks at the guesses made so far and picks the next word by
// searching the embedding index around an estimate of where the goal is.
//
// Bots never see the goal word or the similarity oracle. Everything they
// know comes from the similarities on the board and the index's vectors.
package bot

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/bcspragu/Sonar/game"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"gonum.org/v1/gonum/floats"
)

// Index is the search space bots play in, see vecdb.DB.
type Index interface {
	Vector(word string, lang sonar.Language) (vecdb.Vector, bool)
	NearestWords(vec vecdb.Vector, lang sonar.Language, k int) []string
	WordList(lang sonar.Language) []string
	PackWords(pack string, lang sonar.Language) []string
}

// Guess is a word on the board and its similarity to the goal, scaled to
// 0-100.
type Guess struct {
	Word       string
	Similarity float64
}

// FromRecords converts the engine's guesses to what bots read, dropping
// anything invalid.
func FromRecords(recs []*game.GuessRecord) []Guess {
	out := make([]Guess, 0, len(recs))
	for _, r := range recs {
		if !r.Valid {
			continue
		}
		out = append(out, Guess{Word: r.Word, Similarity: r.Similarity * 100})
	}
	return out
}

// Scoreboard is every player's current score.
type Scoreboard map[sonar.PlayerID]float64

// Agent picks a bot's next guess. Implementations hold no state between
// calls beyond their language and index, so one agent can serve any number
// of games in its language.
type Agent interface {
	Decide(history []Guess, scores Scoreboard, cat sonar.Category, self sonar.PlayerID) string
	Difficulty() sonar.Difficulty
}

// New returns the agent for a difficulty. The agent draws all of its
// randomness from r, which it doesn't synchronize access to.
func New(d sonar.Difficulty, lang sonar.Language, idx Index, r *rand.Rand) (Agent, error) {
	b := base{lang: lang, idx: idx, r: r}
	switch d {
	case sonar.Noob:
		return &Noob{base: b}, nil
	case sonar.Pro:
		return &Pro{base: b}, nil
	case sonar.Hacker:
		return &Hacker{base: b}, nil
	default:
		return nil, fmt.Errorf("unknown bot difficulty %q", d)
	}
}

// radius is the bounds of an expanding nearest-neighbor search.
type radius struct {
	initial, max int
	// reachMax keeps the search widening until it has asked for at least max
	// words, rather than stopping before it would ask for more than max.
	reachMax bool
}

// widen reports whether a search that just asked for k words should try again
// with twice as many.
func (r radius) widen(k int) bool {
	if r.reachMax {
		return k < r.max
	}
	return k*2 <= r.max
}

// base holds what every policy shares: its binding to an index, and the
// searches built on it.
type base struct {
	lang sonar.Language
	idx  Index
	r    *rand.Rand
}

// random returns a uniformly random indexed word, or nothing if the index is
// empty.
func (b *base) random() string {
	words := b.idx.WordList(b.lang)
	if len(words) == 0 {
		return ""
	}
	return words[b.r.Intn(len(words))]
}

func (b *base) vector(word string) (vecdb.Vector, bool) {
	return b.idx.Vector(word, b.lang)
}

// search looks for words near target that pass accept. It asks the index for
// the nearest rad.initial words, doubling the count until some pass, the
// radius won't widen any further, or the index has nothing more to give. It
// returns every passing word from the first query that had any, nearest first.
func (b *base) search(target vecdb.Vector, rad radius, accept func(string) bool) []string {
	for k := rad.initial; ; k *= 2 {
		words := b.idx.NearestWords(target, b.lang, k)
		if len(words) == 0 {
			return nil
		}

		var out []string
		for _, w := range words {
			if accept(w) {
				out = append(out, w)
			}
		}
		if len(out) > 0 {
			return out
		}
		if len(words) < k || !rad.widen(k) {
			// Either we've seen the whole index, or we've looked far enough.
			return nil
		}
	}
}

// nearestUnguessed returns the closest word to target that hasn't been
// guessed, or a random word if the search comes up empty.
func (b *base) nearestUnguessed(target vecdb.Vector, rad radius, guessed map[string]bool) string {
	cands := b.search(target, rad, unguessed(guessed))
	if len(cands) == 0 {
		return b.random()
	}
	return cands[0]
}

func unguessed(guessed map[string]bool) func(string) bool {
	return func(w string) bool { return !guessed[sonar.Normalize(w)] }
}

func guessedSet(history []Guess) map[string]bool {
	out := make(map[string]bool, len(history))
	for _, g := range history {
		out[sonar.Normalize(g.Word)] = true
	}
	return out
}

// byBest returns a copy of the history ordered from most to least similar.
// Equal similarities keep board order.
func byBest(history []Guess) []Guess {
	out := make([]Guess, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

// unit scales v to length one in place, reporting false if it has no
// direction.
func unit(v vecdb.Vector) bool {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) {
		return false
	}
	floats.Scale(1/n, v)
	return true
}

// step returns from + alpha*dir, normalized.
func step(from, dir vecdb.Vector, alpha float64) (vecdb.Vector, bool) {
	out := make(vecdb.Vector, len(from))
	floats.AddScaledTo(out, from, alpha, dir)
	return out, unit(out)
}

// weightedTarget estimates the goal's direction from every guess with a
// vector, weighting each by (similarity/100)^3, then steps from the best guess
// toward it. The closer the best guess is, the smaller the step.
func (b *base) weightedTarget(history []Guess) (vecdb.Vector, bool) {
	var (
		est  vecdb.Vector
		seen int
	)
	for _, g := range history {
		v, ok := b.vector(g.Word)
		if !ok {
			continue
		}
		if est == nil {
			est = make(vecdb.Vector, len(v))
		}
		w := g.Similarity / 100
		floats.AddScaled(est, w*w*w, v)
		seen++
	}
	if seen < 2 || !unit(est) {
		return nil, false
	}

	best := byBest(history)[0]
	vBest, ok := b.vector(best.Word)
	if !ok {
		return nil, false
	}

	dir := make(vecdb.Vector, len(est))
	floats.SubTo(dir, est, vBest)
	return step(vBest, dir, (100-best.Similarity)/100)
}
