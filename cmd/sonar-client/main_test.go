package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bcspragu/Sonar/game"
	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/web"
)

func TestHooks(t *testing.T) {
	var (
		buf            bytes.Buffer
		started, ended int
	)
	h := hooks(&buf, func() { started++ }, func() { ended++ })

	st := &room.State{
		Turn: "p0",
		Players: []*room.PlayerState{
			{ID: "p0", Name: "Alice", Score: 75, BestSimilarity: 0.25},
			{ID: "p1", Name: "Bob", Score: 200, BestSimilarity: 1},
		},
	}
	h.OnStart(&web.GameStart{State: st})
	h.OnGuess(&web.GuessMade{Guess: &room.BoardEntry{
		Player:      "Bob",
		GuessRecord: &game.GuessRecord{Word: "dog", Similarity: 1, ScoreGain: 200, TotalScore: 200, Valid: true},
	}})
	h.OnEnd(&web.GameEnd{
		Result: &sonar.MatchResult{Winner: "Bob", GoalWord: "dog"},
		State:  st,
	})

	if started != 1 || ended != 1 {
		t.Errorf("onStart called %d times, onEnd %d times, want 1 each", started, ended)
	}
	out := buf.String()
	for _, want := range []string{"Alice goes first", `Bob guessed "dog"`, "Bob WON THE GAME", "The word was: dog", "LEADERBOARD"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}
