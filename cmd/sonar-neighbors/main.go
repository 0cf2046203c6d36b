// Command sonar-neighbors prints the words in an embedding table closest to a
// word, or to combinations of words. It's handy for checking what the bots
// will reach for.
package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"github.com/bcspragu/Sonar/wordlist"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

func main() {
	var (
		langFlag = flag.String("language", string(sonar.DefaultLanguage), "Language of the embedding table to search")
		dataDir  = flag.String("data_dir", "data", "Directory containing word lists and embedding tables, one subdirectory per language")

		word     = flag.String("word", "", "A single word to find neighbors for.")
		wordList = flag.String("words", "", "Comma-separated list of words. Use --word_file to pass a file of words instead.")
		wordFile = flag.String("word_file", "", "File with list of words (one word per line). Use --words to pass a list in manually instead.")

		inputN = flag.Int("input_n", 1, "The number of words to combine into each query.")
		topN   = flag.Int("top_n", 10, "The number of closest words to output.")

		omitSubstringMatch = flag.Bool("omit_substring_match", false, "Whether to omit neighbors where one word is a fully contained substring of the other.")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lang, err := sonar.ParseLanguage(*langFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad --language")
	}

	var words []string
	switch {
	case *word != "":
		words, *inputN = []string{*word}, 1
	case *wordList != "":
		words = strings.Split(*wordList, ",")
	case *wordFile != "":
		f, err := os.Open(*wordFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", *wordFile).Msg("failed to open word file")
		}
		words, err = wordlist.ReadList(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("path", *wordFile).Msg("failed to read word file")
		}
	default:
		log.Fatal().Msg("pass in a --word, --words or --word_file")
	}
	for i, w := range words {
		words[i] = sonar.Normalize(w)
	}

	idx := vecdb.New(wordlist.New(os.DirFS(*dataDir)))
	if idx.Len(lang) == 0 {
		log.Fatal().Str("language", string(lang)).Msg("no embeddings to search")
	}

	for _, combo := range combinations(len(words), *inputN) {
		query := make([]string, len(combo))
		for i, c := range combo {
			query[i] = words[c]
		}

		var buffer bytes.Buffer
		buffer.WriteString(strings.Join(query, " "))
		buffer.WriteString(" -> ")

		matches, err := neighbors(idx, lang, query, *topN, *omitSubstringMatch)
		if err != nil {
			buffer.WriteString(err.Error())
		}
		for _, m := range matches {
			buffer.WriteString(m.Word)
			buffer.WriteString(" (")
			buffer.WriteString(strconv.FormatFloat(m.Score, 'f', 3, 64))
			buffer.WriteString(") ")
		}
		fmt.Println(buffer.String())
	}
}

type match struct {
	Word  string
	Score float64
}

// neighbors returns the topN indexed words closest to the mean of the query
// words, leaving out the query words themselves.
func neighbors(idx *vecdb.DB, lang sonar.Language, query []string, topN int, omitSubstrings bool) ([]match, error) {
	var sum vecdb.Vector
	for _, w := range query {
		v, ok := idx.Vector(w, lang)
		if !ok {
			return nil, fmt.Errorf("%q isn't in the index", w)
		}
		if sum == nil {
			sum = make(vecdb.Vector, len(v))
		}
		floats.Add(sum, v)
	}
	target := sum.Normalized()
	if target == nil {
		return nil, fmt.Errorf("query %q has no direction", query)
	}

	valid := func(cand string) bool {
		for _, w := range query {
			if cand == w {
				return false
			}
			if omitSubstrings && (strings.Contains(w, cand) || strings.Contains(cand, w)) {
				return false
			}
		}
		return true
	}

	// Keep asking for more until we've got enough that survive the filter, or
	// there's nothing left to ask for.
	for n := topN + len(query); ; n *= 2 {
		cands := idx.NearestWords(target, lang, n)
		var out []match
		for _, c := range cands {
			if !valid(c) {
				continue
			}
			v, _ := idx.Vector(c, lang)
			out = append(out, match{Word: c, Score: floats.Dot(target, v)})
			if len(out) == topN {
				return out, nil
			}
		}
		if len(cands) < n {
			return out, nil
		}
	}
}
