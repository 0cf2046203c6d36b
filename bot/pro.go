package bot

import (
	"math"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"gonum.org/v1/gonum/floats"
)

var proRadius = radius{initial: 5, max: 1000}

const (
	// Below exploreBelow, Pro mostly wanders. Below climbBelow it hill
	// climbs, and above that it extrapolates toward the goal.
	exploreBelow = 20
	climbBelow   = 60

	// exploreRandomChance is how often an exploring Pro guesses at random
	// instead of searching near its best guess.
	exploreRandomChance = 0.3
	exploreNoise        = 0.5

	// extrapolateFrom is how many runner-up guesses make up the centroid
	// Pro extrapolates away from.
	extrapolateFrom = 5
)

// Pro picks a strategy based on how close its best guess is.
type Pro struct {
	base
}

func (p *Pro) Difficulty() sonar.Difficulty { return sonar.Pro }

func (p *Pro) Decide(history []Guess, _ Scoreboard, _ sonar.Category, _ sonar.PlayerID) string {
	if len(history) < 2 {
		return p.random()
	}

	withVec := 0
	for _, g := range history {
		if _, ok := p.vector(g.Word); ok {
			withVec++
		}
	}
	if withVec < 2 {
		return p.random()
	}

	sorted := byBest(history)
	best := sorted[0]
	vBest, ok := p.vector(best.Word)
	if !ok {
		return p.random()
	}
	guessed := guessedSet(history)

	switch s := best.Similarity; {
	case s < exploreBelow:
		return p.explore(vBest, guessed)
	case s < climbBelow:
		return p.climb(history, sorted, vBest, guessed)
	default:
		return p.extrapolate(sorted, vBest, guessed)
	}
}

// explore jumps to a random word, or somewhere noisy around the best guess.
func (p *Pro) explore(vBest vecdb.Vector, guessed map[string]bool) string {
	if p.r.Float64() < exploreRandomChance {
		return p.random()
	}
	target := make(vecdb.Vector, len(vBest))
	for i, x := range vBest {
		target[i] = x + p.r.NormFloat64()*exploreNoise
	}
	if !unit(target) {
		return p.random()
	}
	return p.nearestUnguessed(target, proRadius, guessed)
}

// climb searches the best guess's neighborhood if it was the latest guess,
// otherwise it steps past the best guess, away from the runner up.
func (p *Pro) climb(history, sorted []Guess, vBest vecdb.Vector, guessed map[string]bool) string {
	if history[len(history)-1].Word == sorted[0].Word {
		return p.nearestUnguessed(vBest, proRadius, guessed)
	}

	vSecond, ok := p.vector(sorted[1].Word)
	if !ok {
		return p.nearestUnguessed(vBest, proRadius, guessed)
	}
	dir := make(vecdb.Vector, len(vBest))
	floats.SubTo(dir, vBest, vSecond)
	target, ok := step(vBest, dir, 0.5)
	if !ok {
		return p.nearestUnguessed(vBest, proRadius, guessed)
	}
	return p.nearestUnguessed(target, proRadius, guessed)
}

// extrapolate steps from the best guess directly away from the weighted
// centroid of the next few best. The step shrinks as the best guess gets
// closer to the goal.
func (p *Pro) extrapolate(sorted []Guess, vBest vecdb.Vector, guessed map[string]bool) string {
	rest := sorted[1:]
	if len(rest) > extrapolateFrom {
		rest = rest[:extrapolateFrom]
	}

	center := make(vecdb.Vector, len(vBest))
	var total float64
	for _, g := range rest {
		v, ok := p.vector(g.Word)
		if !ok {
			continue
		}
		w := g.Similarity / 100
		floats.AddScaled(center, w*w, v)
		total += w * w
	}
	if total == 0 {
		return p.nearestUnguessed(vBest, proRadius, guessed)
	}
	floats.Scale(1/total, center)

	dir := make(vecdb.Vector, len(vBest))
	floats.SubTo(dir, vBest, center)
	unit(dir)

	size := math.Min(0.5, math.Max(0.2, 0.5*(100-sorted[0].Similarity)/100))
	target, ok := step(vBest, dir, size)
	if !ok {
		return p.random()
	}
	return p.nearestUnguessed(target, proRadius, guessed)
}
