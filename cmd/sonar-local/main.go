// Command sonar-local plays a game of Sonar on one terminal, with people
// taking turns at the keyboard against any number of bots.
package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/bcspragu/Sonar/cryptorand"
	sio "github.com/bcspragu/Sonar/io"
	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"github.com/bcspragu/Sonar/w2v"
	"github.com/bcspragu/Sonar/wordlist"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const host = sonar.PlayerID("player_0")

func main() {
	var (
		langFlag    = flag.String("language", string(sonar.DefaultLanguage), "Language to play in: en, fr or ar")
		catFlag     = flag.String("category", "mixed", "Category to draw the goal word from: mixed, sports, history, science or computer_science")
		playersFlag = flag.String("players", "Player 1", "Comma-separated names of the people playing")
		botsFlag    = flag.String("bots", "", "Comma-separated difficulties of the bots playing, e.g. noob,hacker")
		dataDir     = flag.String("data_dir", "data", "Directory containing word lists and embedding tables, one subdirectory per language")
		modelDir    = flag.String("model_dir", "models", "Directory containing word2vec models, named <lang>.bin")
		turnTime    = flag.Duration("turn_timeout", 15*time.Second, "How long each person gets to guess when more than one is playing, 0 for no limit")
		showTop     = flag.Int("show_top", 10, "How many of the closest guesses to show after each round")
		seed        = flag.Int64("seed", 0, "Seed for the random number generator, 0 for a random game")
		logLevel    = flag.String("log_level", "warn", "Minimum level to log at")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	settings, err := room.ParseSettings(*langFlag, *catFlag, *botsFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad game settings")
	}
	names := parseNames(*playersFlag)
	if len(names) == 0 {
		log.Fatal().Msg("at least one person has to play")
	}

	r := cryptorand.New()
	if *seed != 0 {
		r = rand.New(rand.NewSource(*seed))
	}

	words := wordlist.New(os.DirFS(*dataDir))
	rm := room.New("local", host, names[0], &room.Env{
		Words:  words,
		Index:  vecdb.New(words),
		Oracle: w2v.New(w2v.FileLoader(*modelDir), sonar.DefaultLanguage),
	})
	for i, name := range names[1:] {
		if err := rm.Join(sonar.PlayerID(fmt.Sprintf("player_%d", i+1)), name); err != nil {
			log.Fatal().Err(err).Str("player", name).Msg("failed to seat player")
		}
	}
	if err := rm.UpdateSettings(host, settings); err != nil {
		log.Fatal().Err(err).Msg("failed to apply settings")
	}

	fmt.Printf("Starting a game in %s (category: %s)...\n", settings.Language, settings.Category)
	if err := rm.Start(host, r); err != nil {
		log.Fatal().Err(err).Msg("failed to start game")
	}

	timeout := *turnTime
	if len(names) == 1 {
		// No timer for single player mode.
		timeout = 0
	}

	if err := play(rm, &sio.Player{In: os.Stdin, Out: os.Stdout}, os.Stdout, timeout, *showTop); err != nil {
		log.Fatal().Err(err).Msg("game failed")
	}
}

func play(rm *room.Room, p *sio.Player, out io.Writer, timeout time.Duration, showTop int) error {
	for {
		recs, err := rm.PlayBots()
		if err != nil {
			return fmt.Errorf("failed to play bot turns: %w", err)
		}
		for _, rec := range recs {
			sio.PrintGuess(out, rm.Entry(rec))
		}
		if rm.Status() == sonar.Finished {
			break
		}

		id, ok := rm.Turn()
		if !ok {
			break
		}
		name := rm.State().PlayerName(id)

		word, err := p.Guess(name, timeout)
		switch {
		case errors.Is(err, sio.ErrTimeout):
			fmt.Fprintln(out, "Out of time! Turn skipped.")
			if err := rm.Skip(id); err != nil {
				return fmt.Errorf("failed to skip turn: %w", err)
			}
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out, "\nGame aborted.")
			return finish(rm, out)
		case err != nil:
			return err
		}
		if strings.EqualFold(word, sio.Quit) {
			fmt.Fprintln(out, "Game aborted.")
			return finish(rm, out)
		}

		rec, err := rm.Guess(id, word)
		if err != nil {
			return fmt.Errorf("failed to guess: %w", err)
		}
		sio.PrintGuess(out, rm.Entry(rec))
		if rec.Valid && rm.Status() != sonar.Finished {
			sio.PrintBoard(out, rm.State().Board, showTop)
		}
	}
	return finish(rm, out)
}

func finish(rm *room.Room, out io.Writer) error {
	st := rm.State()
	if st.Status == sonar.Finished {
		fmt.Fprintf(out, "\n!!! %s WON THE GAME !!!\nThe word was: %s\n", st.Winner, st.GoalWord)
	}
	fmt.Fprintln(out, "\n--- LEADERBOARD ---")
	sio.PrintLeaderboard(out, st.Players)
	return nil
}

func parseNames(in string) []string {
	var out []string
	for _, n := range strings.Split(in, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
