package main

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"github.com/bcspragu/Sonar/wordlist"
	"github.com/google/go-cmp/cmp"
)

// indexOracle scores guesses by their distance in the embedding table.
type indexOracle struct {
	idx *vecdb.DB
}

func (o indexOracle) ComputeSimilarity(a, b string, lang sonar.Language) float64 {
	sim, _ := o.idx.Similarity(a, b, lang)
	return sim
}

func (o indexOracle) SimilarityToGoal(guess, goal string, lang sonar.Language) float64 {
	return o.ComputeSimilarity(guess, goal, lang)
}

func newBench(embeddings string) *bench {
	words := wordlist.New(fstest.MapFS{
		"en/embeddings.csv": {Data: []byte(embeddings)},
	})
	idx := vecdb.New(words)
	return &bench{
		words:    words,
		idx:      idx,
		oracle:   indexOracle{idx: idx},
		r:        rand.New(rand.NewSource(0)),
		maxTurns: 5,
	}
}

func TestRun(t *testing.T) {
	sc := Scenario{Language: sonar.English, Category: sonar.Mixed, Goal: "dog"}

	tests := []struct {
		desc       string
		embeddings string
		want       Result
	}{
		{
			desc:       "only word is the goal",
			embeddings: "dog,1,0\n",
			want:       Result{Turns: 1, Won: true, Best: 100},
		},
		{
			desc:       "nothing to guess",
			embeddings: "",
			want:       Result{Turns: 5, Invalid: 5, Best: -1},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			b := newBench(test.embeddings)
			for _, d := range difficulties {
				got, err := b.run(sc, d)
				if err != nil {
					t.Fatalf("run(%s): %v", d, err)
				}
				if diff := cmp.Diff(test.want, got); diff != "" {
					t.Errorf("unexpected %s result (-want +got)\n%s", d, diff)
				}
			}
		})
	}
}

func TestRunAll_Bounded(t *testing.T) {
	b := newBench("cat,1,0,0\ndog,0.8,0.6,0\ncar,0,1,0\ncow,0,0,1\n")
	results, err := b.runAll([]Scenario{{Language: sonar.English, Goal: "cow"}})
	if err != nil {
		t.Fatalf("runAll: %v", err)
	}
	if len(results) != 1 || len(results[0]) != len(difficulties) {
		t.Fatalf("got results shaped %d x ?, want 1 x %d", len(results), len(difficulties))
	}
	for i, res := range results[0] {
		if res.Turns < 1 || res.Turns > b.maxTurns {
			t.Errorf("%s took %d turns, want between 1 and %d", difficulties[i], res.Turns, b.maxTurns)
		}
		if res.Won && res.Best != 100 {
			t.Errorf("%s won with a best of %.1f", difficulties[i], res.Best)
		}
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, []Scenario{{Category: sonar.Sports, Goal: "football"}}, [][]Result{{
		{Turns: 12, Won: true, Best: 100},
		{Turns: 7, Won: true, Best: 100},
		{Turns: 100, Best: 81.3},
	}})

	out := buf.String()
	for _, want := range []string{"football", "12", "miss (best 81.3)", "1/1", "7.0", "0/1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}
