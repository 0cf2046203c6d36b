package bot

import (
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"gonum.org/v1/gonum/floats"
)

var noobRadius = radius{initial: 50, max: 4000}

// noobSloppiness is how many of the nearest candidates a Noob picks between.
const noobSloppiness = 10

// Noob extrapolates along the line from its second best guess through its
// best, then picks loosely among the words near that point.
type Noob struct {
	base
}

func (n *Noob) Difficulty() sonar.Difficulty { return sonar.Noob }

func (n *Noob) Decide(history []Guess, _ Scoreboard, _ sonar.Category, _ sonar.PlayerID) string {
	if len(history) < 2 {
		return n.random()
	}

	sorted := byBest(history)
	vBest, ok := n.vector(sorted[0].Word)
	if !ok {
		return n.random()
	}
	vSecond, ok := n.vector(sorted[1].Word)
	if !ok {
		return n.random()
	}

	dir := make(vecdb.Vector, len(vBest))
	floats.SubTo(dir, vBest, vSecond)
	target, ok := step(vBest, dir, 0.5)
	if !ok {
		return n.random()
	}

	cands := n.search(target, noobRadius, unguessed(guessedSet(history)))
	if len(cands) == 0 {
		return n.random()
	}
	if len(cands) > noobSloppiness {
		cands = cands[:noobSloppiness]
	}
	return cands[n.r.Intn(len(cands))]
}
