package bot

import (
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"gonum.org/v1/gonum/floats"
)

var (
	hackerRadius      = radius{initial: 5, max: 1000}
	angleRadius       = radius{initial: 100, max: 2000, reachMax: true}
	playAroundRadius  = radius{initial: 10, max: 2000, reachMax: true}
	themeAnchorRadius = radius{initial: 5, max: 1000}
)

const (
	// A candidate is a different angle if its similarity to every high
	// scoring guess is below angleMaxSimilarity.
	angleMaxSimilarity = 0.6
	highScore          = 50

	// Hacker is stuck when, after stuckMinGuesses, its last stuckWindow
	// guesses beat the earlier best by no more than stuckMinGain, and that
	// best is still below stuckBelow.
	stuckMinGuesses = 5
	stuckWindow     = 3
	stuckMinGain    = 0.5
	stuckBelow      = 40
)

type mode int

const (
	normal mode = iota
	// aggressive is for when someone else is winning.
	aggressive
)

// Hacker plays like a Pro with tricks: it opens with words from the
// category's theme, changes tack when it's stuck, and hunts for different
// angle bonuses when it's behind.
type Hacker struct {
	base
}

func (h *Hacker) Difficulty() sonar.Difficulty { return sonar.Hacker }

func (h *Hacker) Decide(history []Guess, scores Scoreboard, cat sonar.Category, self sonar.PlayerID) string {
	m := chooseMode(scores, self)
	guessed := guessedSet(history)

	if len(history) < 2 {
		return h.themed(cat, guessed)
	}

	if isStuck(history) {
		if w, ok := h.differentAngle(history, guessed); ok {
			return w
		}
		if cat.Themed() {
			return h.themed(cat, guessed)
		}
		return h.random()
	}

	if m == aggressive {
		if w, ok := h.differentAngle(history, guessed); ok {
			return w
		}
		if w, ok := h.playAround(history, guessed); ok {
			return w
		}
	}

	target, ok := h.weightedTarget(history)
	if !ok {
		return h.random()
	}
	return h.nearestUnguessed(target, hackerRadius, guessed)
}

func chooseMode(scores Scoreboard, self sonar.PlayerID) mode {
	var max float64
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if scores[self] < max {
		return aggressive
	}
	return normal
}

// isStuck reports whether the last few guesses failed to improve on a best
// that's still far from the goal.
func isStuck(history []Guess) bool {
	if len(history) < stuckMinGuesses {
		return false
	}
	split := len(history) - stuckWindow
	recent := bestSimilarity(history[split:])
	earlier := bestSimilarity(history[:split])
	return recent <= earlier+stuckMinGain && earlier < stuckBelow
}

func bestSimilarity(gs []Guess) float64 {
	var best float64
	for i, g := range gs {
		if i == 0 || g.Similarity > best {
			best = g.Similarity
		}
	}
	return best
}

// differentAngle searches around the best guess for an unguessed word that
// isn't much like any of the high scoring guesses.
func (h *Hacker) differentAngle(history []Guess, guessed map[string]bool) (string, bool) {
	var highs []vecdb.Vector
	for _, g := range history {
		if g.Similarity < highScore {
			continue
		}
		if v, ok := h.vector(g.Word); ok {
			highs = append(highs, v)
		}
	}
	if len(highs) == 0 {
		return "", false
	}

	vBest, ok := h.vector(byBest(history)[0].Word)
	if !ok {
		return "", false
	}

	cands := h.search(vBest, angleRadius, func(w string) bool {
		if guessed[sonar.Normalize(w)] {
			return false
		}
		v, ok := h.vector(w)
		if !ok {
			return false
		}
		for _, hv := range highs {
			if floats.Dot(v, hv) >= angleMaxSimilarity {
				return false
			}
		}
		return true
	})
	if len(cands) == 0 {
		return "", false
	}
	return cands[0], true
}

// playAround tries the closest unguessed word to the best guess.
func (h *Hacker) playAround(history []Guess, guessed map[string]bool) (string, bool) {
	vBest, ok := h.vector(byBest(history)[0].Word)
	if !ok {
		return "", false
	}
	cands := h.search(vBest, playAroundRadius, unguessed(guessed))
	if len(cands) == 0 {
		return "", false
	}
	return cands[0], true
}

// themed picks an unguessed word from the category's pack. Without a pack it
// searches near the theme's anchor, and without a theme it guesses at random.
func (h *Hacker) themed(cat sonar.Category, guessed map[string]bool) string {
	if !cat.Themed() {
		return h.random()
	}

	var cands []string
	for _, w := range h.idx.PackWords(string(cat), h.lang) {
		if !guessed[sonar.Normalize(w)] {
			cands = append(cands, w)
		}
	}
	if len(cands) > 0 {
		return cands[h.r.Intn(len(cands))]
	}

	anchor, ok := themeAnchor(h.idx, h.lang, cat)
	if !ok {
		return h.random()
	}
	return h.nearestUnguessed(anchor, themeAnchorRadius, guessed)
}
