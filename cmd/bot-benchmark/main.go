// Command bot-benchmark has each bot difficulty play solo games against a set
// of goal words, and reports how many guesses each one needed.
package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/bcspragu/Sonar/bot"
	"github.com/bcspragu/Sonar/game"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"github.com/bcspragu/Sonar/w2v"
	"github.com/bcspragu/Sonar/wordlist"
	"github.com/namsral/flag"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var difficulties = []sonar.Difficulty{sonar.Noob, sonar.Pro, sonar.Hacker}

func main() {
	var (
		goals    = flag.String("goals", "", "Comma-separated goal words to use instead of the built-in scenarios")
		langFlag = flag.String("language", string(sonar.DefaultLanguage), "Language of the --goals")
		catFlag  = flag.String("category", "mixed", "Category the bots are told the --goals are from")
		maxTurns = flag.Int("max_turns", 100, "Guesses a bot gets before the game counts as a miss")
		dataDir  = flag.String("data_dir", "data", "Directory containing word lists and embedding tables, one subdirectory per language")
		modelDir = flag.String("model_dir", "models", "Directory containing word2vec models, named <lang>.bin")
		seed     = flag.Int64("seed", 1, "Seed for the random number generator")
		logLevel = flag.String("log_level", "warn", "Minimum level to log at")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	scenarios := Scenarios
	if *goals != "" {
		lang, err := sonar.ParseLanguage(*langFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("bad --language")
		}
		cat, err := sonar.ParseCategory(*catFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("bad --category")
		}
		scenarios = nil
		for _, g := range strings.Split(*goals, ",") {
			if g = sonar.Normalize(g); g != "" {
				scenarios = append(scenarios, Scenario{Language: lang, Category: cat, Goal: g})
			}
		}
	}

	words := wordlist.New(os.DirFS(*dataDir))
	b := &bench{
		words:    words,
		idx:      vecdb.New(words),
		oracle:   w2v.New(w2v.FileLoader(*modelDir), sonar.DefaultLanguage),
		r:        rand.New(rand.NewSource(*seed)),
		maxTurns: *maxTurns,
	}

	results, err := b.runAll(scenarios)
	if err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
	render(os.Stdout, scenarios, results)
}

type bench struct {
	words    *wordlist.Store
	idx      bot.Index
	oracle   game.Oracle
	r        *rand.Rand
	maxTurns int
}

// runAll returns results[scenario][difficulty].
func (b *bench) runAll(scenarios []Scenario) ([][]Result, error) {
	out := make([][]Result, len(scenarios))
	for i, sc := range scenarios {
		for _, d := range difficulties {
			res, err := b.run(sc, d)
			if err != nil {
				return nil, fmt.Errorf("%s on %q: %w", d, sc.Goal, err)
			}
			log.Info().Str("bot", string(d)).Str("word", sc.Goal).Int("turns", res.Turns).Bool("won", res.Won).Msg("scenario done")
			out[i] = append(out[i], res)
		}
	}
	return out, nil
}

// run plays a solo game for one bot.
func (b *bench) run(sc Scenario, d sonar.Difficulty) (Result, error) {
	agent, err := bot.New(d, sc.Language, b.idx, b.r)
	if err != nil {
		return Result{}, err
	}

	var vocab game.Vocabulary = b.words.Vocabulary(sc.Language)
	if len(b.words.Vocabulary(sc.Language)) == 0 {
		vocab = indexVocab(b.idx.WordList(sc.Language))
	}

	sess, err := game.New(&game.Config{
		Language:   sc.Language,
		Category:   sc.Category,
		Vocabulary: vocab,
		GoalWord:   sc.Goal,
		Oracle:     b.oracle,
		Rand:       b.r,
	})
	if err != nil {
		return Result{}, err
	}
	p := sess.AddPlayer(string(d), d)
	self := sonar.PlayerID(d)

	res := Result{Best: -1}
	for res.Turns < b.maxTurns && !sess.Finished() {
		res.Turns++
		pl, err := sess.Player(p)
		if err != nil {
			return Result{}, err
		}
		word := agent.Decide(bot.FromRecords(sess.Board()), bot.Scoreboard{self: pl.Score}, sc.Category, self)
		rec, err := sess.SubmitGuess(p, word)
		if err != nil {
			return Result{}, err
		}
		if !rec.Valid {
			res.Invalid++
			continue
		}
		if s := rec.Similarity * 100; s > res.Best {
			res.Best = s
		}
	}
	res.Won = sess.Finished()
	return res, nil
}

type indexVocab []string

func (v indexVocab) Contains(word string) bool {
	for _, w := range v {
		if w == word {
			return true
		}
	}
	return false
}

func render(w io.Writer, scenarios []Scenario, results [][]Result) {
	table := tablewriter.NewWriter(w)
	header := []string{"Goal", "Category"}
	for _, d := range difficulties {
		header = append(header, string(d))
	}
	table.SetHeader(header)

	wins := make([]int, len(difficulties))
	turns := make([]int, len(difficulties))
	for i, sc := range scenarios {
		row := []string{sc.Goal, string(sc.Category)}
		for j, res := range results[i] {
			if res.Won {
				wins[j]++
				turns[j] += res.Turns
				row = append(row, fmt.Sprint(res.Turns))
				continue
			}
			row = append(row, fmt.Sprintf("miss (best %.1f)", res.Best))
		}
		table.Append(row)
	}

	footer := []string{"Solved", ""}
	for j := range difficulties {
		cell := fmt.Sprintf("%d/%d", wins[j], len(scenarios))
		if wins[j] > 0 {
			cell += fmt.Sprintf(", avg %.1f", float64(turns[j])/float64(wins[j]))
		}
		footer = append(footer, cell)
	}
	table.SetFooter(footer)
	table.Render()
}
