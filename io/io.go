// Package io plays Sonar on a terminal: reading guesses from a person and
// printing the board and standings.
package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bcspragu/Sonar/room"
	"github.com/olekukonko/tablewriter"
)

// Quit is what a player types to end the game early.
const Quit = "quit"

// ErrTimeout is returned when a player doesn't guess in time.
var ErrTimeout = errors.New("io: ran out of time to guess")

// Player asks the user on the terminal to enter a guess.
type Player struct {
	// In is a reader where the user's guesses are read from.
	In io.Reader
	// Out is where the prompts should be written out to.
	Out io.Writer

	once  sync.Once
	lines chan line
}

type line struct {
	text string
	err  error
}

// read feeds lines from In to p.lines, so a prompt can give up waiting
// without losing the line to the next prompt.
func (p *Player) read() {
	sc := bufio.NewScanner(p.In)
	for sc.Scan() {
		p.lines <- line{text: sc.Text()}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	} else {
		err = fmt.Errorf("scanner error: %w", err)
	}
	p.lines <- line{err: err}
	close(p.lines)
}

// Guess prompts the named player for a word, waiting at most timeout for one
// if timeout is positive. Blank lines are asked again, and io.EOF is returned
// once there's no more input.
func (p *Player) Guess(name string, timeout time.Duration) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan line)
		go p.read()
	})

	var expired <-chan time.Time
	if timeout > 0 {
		fmt.Fprintf(p.Out, "%s, you have %s to enter a guess: ", name, timeout)
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	} else {
		fmt.Fprintf(p.Out, "%s, enter a guess (or %q): ", name, Quit)
	}

	for {
		select {
		case l, ok := <-p.lines:
			if !ok {
				return "", io.EOF
			}
			if l.err != nil {
				return "", l.err
			}
			if word := strings.TrimSpace(l.text); word != "" {
				return word, nil
			}
		case <-expired:
			fmt.Fprintln(p.Out)
			return "", ErrTimeout
		}
	}
}

// PrintGuess writes out a single guess, and what it scored.
func PrintGuess(w io.Writer, e *room.BoardEntry) {
	if !e.Valid {
		fmt.Fprintf(w, "%s: %q isn't a word we know, try again\n", e.Player, e.Word)
		return
	}
	fmt.Fprintf(w, "%s guessed %q: similarity %.2f, +%.1f (total %.1f)", e.Player, e.Word, e.Similarity*100, e.ScoreGain, e.TotalScore)
	if e.Notes != "" {
		fmt.Fprintf(w, " %s", e.Notes)
	}
	fmt.Fprintln(w)
}

// PrintBoard renders the top guesses so far, closest first.
func PrintBoard(w io.Writer, board []*room.BoardEntry, top int) {
	sorted := append([]*room.BoardEntry(nil), board...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Word", "Similarity", "Player"})
	for i, e := range sorted {
		table.Rich([]string{
			fmt.Sprint(i + 1),
			e.Word,
			fmt.Sprintf("%.2f", e.Similarity*100),
			e.Player,
		}, []tablewriter.Colors{{}, {}, similarityColor(e.Similarity), {}})
	}
	table.Render()
}

func similarityColor(sim float64) tablewriter.Colors {
	switch {
	case sim >= 1:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiGreenColor}
	case sim >= 0.5:
		return tablewriter.Colors{tablewriter.FgGreenColor}
	case sim >= 0.2:
		return tablewriter.Colors{tablewriter.FgYellowColor}
	default:
		return tablewriter.Colors{tablewriter.FgRedColor}
	}
}

// PrintLeaderboard renders the players by score, highest first.
func PrintLeaderboard(w io.Writer, players []*room.PlayerState) {
	sorted := append([]*room.PlayerState(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Player", "Score", "Best"})
	for i, p := range sorted {
		name := p.Name
		if p.Bot != "" {
			name += fmt.Sprintf(" (%s)", p.Bot)
		}
		best := "-"
		if p.BestSimilarity >= 0 {
			best = fmt.Sprintf("%.2f", p.BestSimilarity*100)
		}
		table.Append([]string{fmt.Sprint(i + 1), name, fmt.Sprintf("%.1f", p.Score), best})
	}
	table.Render()
}
