package bot

import (
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/bcspragu/Sonar/game"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"github.com/google/go-cmp/cmp"
)

type memSource struct {
	table string
	packs map[string][]string
}

func (m *memSource) OpenEmbeddings(lang sonar.Language) (io.ReadCloser, error) {
	if lang != sonar.English || m.table == "" {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(m.table)), nil
}

func (m *memSource) Pack(_ sonar.Language, name string) []string {
	return m.packs[name]
}

// circleTable puts each word on the unit circle at the given angle, in
// degrees. The gaps between the angles are all different, so there are no
// ties among nearest neighbors.
func circleTable(angles map[string]float64) string {
	var sb strings.Builder
	for _, w := range []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "sports", "game", "tennis", "cooking"} {
		deg, ok := angles[w]
		if !ok {
			continue
		}
		rad := deg * math.Pi / 180
		fmt.Fprintf(&sb, "%s,%.12f,%.12f\n", w, math.Cos(rad), math.Sin(rad))
	}
	return sb.String()
}

var circle = map[string]float64{
	"a0": 0, "a1": 7, "a2": 15, "a3": 24, "a4": 34,
	"a5": 45, "a6": 57, "a7": 70, "a8": 84, "a9": 99,
}

func newIndex(angles map[string]float64, packs map[string][]string) *vecdb.DB {
	return vecdb.New(&memSource{table: circleTable(angles), packs: packs})
}

func newAgent(t *testing.T, d sonar.Difficulty, idx Index) Agent {
	t.Helper()
	a, err := New(d, sonar.English, idx, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("New(%q): %v", d, err)
	}
	return a
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func TestNew(t *testing.T) {
	idx := newIndex(circle, nil)
	for _, d := range []sonar.Difficulty{sonar.Noob, sonar.Pro, sonar.Hacker} {
		if got := newAgent(t, d, idx).Difficulty(); got != d {
			t.Errorf("New(%q).Difficulty() = %q", d, got)
		}
	}
	if _, err := New("grandmaster", sonar.English, idx, rand.New(rand.NewSource(0))); err == nil {
		t.Error("New with an unknown difficulty should fail")
	}
}

func TestFromRecords(t *testing.T) {
	recs := []*game.GuessRecord{
		{Word: "cat", Similarity: 0.3, Valid: true},
		{Word: "zzz"},
		{Word: "car", Similarity: 0.75, Valid: true},
	}
	want := []Guess{{Word: "cat", Similarity: 30}, {Word: "car", Similarity: 75}}
	got := FromRecords(recs)
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })); diff != "" {
		t.Errorf("unexpected guesses (-want +got)\n%s", diff)
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		desc    string
		bot     sonar.Difficulty
		history []Guess
		scores  Scoreboard
		cat     sonar.Category
		want    string
	}{
		{
			desc:    "pro searches around its best guess when it was the last guess",
			bot:     sonar.Pro,
			history: []Guess{{"a0", 25}, {"a3", 40}},
			want:    "a2",
		},
		{
			desc:    "pro steps past its best guess, away from the runner up",
			bot:     sonar.Pro,
			history: []Guess{{"a3", 40}, {"a2", 30}, {"a0", 10}},
			want:    "a4",
		},
		{
			desc:    "pro extrapolates away from the runners up",
			bot:     sonar.Pro,
			history: []Guess{{"a3", 40}, {"a2", 30}, {"a5", 70}},
			want:    "a6",
		},
		{
			desc:    "hacker looks for a different angle when it's behind",
			bot:     sonar.Hacker,
			history: []Guess{{"a4", 55}, {"a5", 70}},
			scores:  Scoreboard{"me": 0, "them": 100},
			want:    "a9",
		},
		{
			desc:    "hacker plays around its best guess when there's no different angle",
			bot:     sonar.Hacker,
			history: []Guess{{"a6", 65}, {"a5", 70}},
			scores:  Scoreboard{"me": 0, "them": 100},
			want:    "a4",
		},
		{
			desc:    "hacker uses the weighted estimate when it's ahead",
			bot:     sonar.Hacker,
			history: []Guess{{"a3", 40}, {"a5", 50}},
			scores:  Scoreboard{"me": 100, "them": 10},
			want:    "a4",
		},
		{
			desc:    "hacker opens with a word from the category's pack",
			bot:     sonar.Hacker,
			history: []Guess{{"a7", 10}},
			cat:     sonar.Sports,
			want:    "a8",
		},
	}

	idx := newIndex(circle, map[string][]string{"sports": {"a7", "a8"}})
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			a := newAgent(t, test.bot, idx)
			got := a.Decide(test.history, test.scores, test.cat, "me")
			if got != test.want {
				t.Errorf("Decide = %q, want %q", got, test.want)
			}
		})
	}
}

func TestHacker_Stuck(t *testing.T) {
	// The last three guesses don't beat 35 by more than half a point, and 35
	// is still a long way off. None of them score high enough to look for a
	// different angle from.
	history := []Guess{{"a0", 30}, {"a1", 35}, {"a2", 20}, {"a3", 25}, {"a4", 35.2}}
	if !isStuck(history) {
		t.Fatal("history should count as stuck")
	}
	idx := newIndex(circle, map[string][]string{"sports": {"a1", "a7"}})

	t.Run("themed category draws from the pack", func(t *testing.T) {
		a := newAgent(t, sonar.Hacker, idx)
		for i := 0; i < 5; i++ {
			if got := a.Decide(history, nil, sonar.Sports, "me"); got != "a7" {
				t.Fatalf("Decide = %q, want the only unguessed pack word a7", got)
			}
		}
	})

	t.Run("mixed category guesses at random", func(t *testing.T) {
		a := newAgent(t, sonar.Hacker, idx)
		words := idx.WordList(sonar.English)
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			got := a.Decide(history, nil, sonar.Mixed, "me")
			if !contains(words, got) {
				t.Fatalf("Decide returned %q, which isn't indexed", got)
			}
			seen[got] = true
		}
		// The weighted estimate would land on the same word every time.
		if len(seen) < 2 {
			t.Errorf("Decide returned only %v over 20 turns, want random words", seen)
		}
	})
}

func TestHacker_ThemeAnchor(t *testing.T) {
	idx := newIndex(map[string]float64{
		"sports": 0, "tennis": 12, "game": 20, "a6": 57, "cooking": 80,
	}, nil)
	a := newAgent(t, sonar.Hacker, idx)

	// No sports pack, so the bot searches near the mean of the sports
	// keywords it can find in the index.
	got := a.Decide(nil, nil, sonar.Sports, "me")
	if got != "tennis" {
		t.Errorf("Decide = %q, want tennis", got)
	}
}

func TestNoob(t *testing.T) {
	idx := newIndex(circle, nil)
	words := idx.WordList(sonar.English)
	a := newAgent(t, sonar.Noob, idx)

	history := []Guess{{"a3", 40}, {"a4", 50}}
	for i := 0; i < 20; i++ {
		got := a.Decide(history, nil, "", "me")
		if got == "a3" || got == "a4" {
			t.Fatalf("Decide returned already guessed word %q", got)
		}
		if !contains(words, got) {
			t.Fatalf("Decide returned %q, which isn't indexed", got)
		}
	}
}

func TestRandomOpening(t *testing.T) {
	idx := newIndex(circle, nil)
	words := idx.WordList(sonar.English)

	for _, d := range []sonar.Difficulty{sonar.Noob, sonar.Pro, sonar.Hacker} {
		a := newAgent(t, d, idx)
		for _, history := range [][]Guess{nil, {{"a1", 5}}} {
			if got := a.Decide(history, nil, sonar.Mixed, "me"); !contains(words, got) {
				t.Errorf("%s opened with %q, which isn't indexed", d, got)
			}
		}
	}
}

func TestProExplore(t *testing.T) {
	idx := newIndex(circle, nil)
	words := idx.WordList(sonar.English)
	a := newAgent(t, sonar.Pro, idx)

	history := []Guess{{"a0", 5}, {"a9", 12}}
	for i := 0; i < 20; i++ {
		if got := a.Decide(history, nil, "", "me"); !contains(words, got) {
			t.Fatalf("Decide returned %q, which isn't indexed", got)
		}
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := vecdb.New(&memSource{})
	history := []Guess{{"a0", 5}, {"a9", 12}, {"a4", 70}}
	for _, d := range []sonar.Difficulty{sonar.Noob, sonar.Pro, sonar.Hacker} {
		a := newAgent(t, d, idx)
		if got := a.Decide(history, Scoreboard{"me": 0, "them": 1}, sonar.Sports, "me"); got != "" {
			t.Errorf("%s decided %q on an empty index, want nothing", d, got)
		}
	}
}

// saturatedIndex always has k neighbors to offer, and they're always the same
// few words.
type saturatedIndex struct {
	words []string
	ks    []int
}

func (s *saturatedIndex) Vector(word string, _ sonar.Language) (vecdb.Vector, bool) {
	i := 0
	for ; i < len(s.words); i++ {
		if s.words[i] == word {
			break
		}
	}
	if i == len(s.words) {
		return nil, false
	}
	rad := float64(i) * 0.3
	return vecdb.Vector{math.Cos(rad), math.Sin(rad)}, true
}

func (s *saturatedIndex) NearestWords(_ vecdb.Vector, _ sonar.Language, k int) []string {
	s.ks = append(s.ks, k)
	out := make([]string, k)
	for i := range out {
		out[i] = s.words[i%len(s.words)]
	}
	return out
}

func (s *saturatedIndex) WordList(sonar.Language) []string         { return s.words }
func (s *saturatedIndex) PackWords(string, sonar.Language) []string { return nil }

func TestSearch_AllCandidatesGuessed(t *testing.T) {
	tests := []struct {
		bot     sonar.Difficulty
		history []Guess
		widest  int
	}{
		{
			bot:     sonar.Noob,
			history: []Guess{{"x", 10}, {"y", 30}, {"z", 20}},
			widest:  3200,
		},
		{
			bot:     sonar.Pro,
			history: []Guess{{"x", 10}, {"z", 20}, {"y", 30}},
			widest:  640,
		},
		{
			// Behind, so it plays around its best guess before falling back
			// to the weighted estimate.
			bot:     sonar.Hacker,
			history: []Guess{{"x", 10}, {"z", 20}, {"y", 30}},
			widest:  2560,
		},
	}

	for _, test := range tests {
		t.Run(string(test.bot), func(t *testing.T) {
			idx := &saturatedIndex{words: []string{"x", "y", "z"}}
			a := newAgent(t, test.bot, idx)

			got := a.Decide(test.history, Scoreboard{"me": 0, "them": 50}, "", "me")
			if !contains(idx.words, got) {
				t.Errorf("Decide = %q, want a random indexed word", got)
			}
			if len(idx.ks) == 0 {
				t.Fatal("the index was never searched")
			}
			widest := 0
			for _, k := range idx.ks {
				if k > widest {
					widest = k
				}
			}
			if widest != test.widest {
				t.Errorf("widest search asked for %d words, want %d", widest, test.widest)
			}
			if n := len(idx.ks); n > 30 {
				t.Errorf("searched %d times, want the radius to double up to its cap", n)
			}
		})
	}
}

func TestRadius(t *testing.T) {
	tests := []struct {
		desc string
		rad  radius
		want []int
	}{
		{
			desc: "stops before passing the cap",
			rad:  proRadius,
			want: []int{5, 10, 20, 40, 80, 160, 320, 640},
		},
		{
			desc: "stops at the cap exactly",
			rad:  radius{initial: 250, max: 1000},
			want: []int{250, 500, 1000},
		},
		{
			desc: "different angle reaches the cap",
			rad:  angleRadius,
			want: []int{100, 200, 400, 800, 1600, 3200},
		},
		{
			desc: "play around reaches the cap",
			rad:  playAroundRadius,
			want: []int{10, 20, 40, 80, 160, 320, 640, 1280, 2560},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			idx := &saturatedIndex{words: []string{"x"}}
			b := &base{lang: sonar.English, idx: idx, r: rand.New(rand.NewSource(0))}
			if got := b.search(vecdb.Vector{1, 0}, test.rad, func(string) bool { return false }); got != nil {
				t.Errorf("search = %v, want nothing", got)
			}
			if diff := cmp.Diff(test.want, idx.ks); diff != "" {
				t.Errorf("unexpected search sizes (-want +got)\n%s", diff)
			}
		})
	}
}

func TestIsStuck(t *testing.T) {
	sims := func(ss ...float64) []Guess {
		out := make([]Guess, len(ss))
		for i, s := range ss {
			out[i] = Guess{Word: fmt.Sprintf("w%d", i), Similarity: s}
		}
		return out
	}

	tests := []struct {
		desc    string
		history []Guess
		want    bool
	}{
		{
			desc:    "too few guesses",
			history: sims(10, 10, 10, 10),
			want:    false,
		},
		{
			desc:    "no recent improvement",
			history: sims(30, 10, 20, 25, 30.5),
			want:    true,
		},
		{
			desc:    "recent improvement",
			history: sims(30, 10, 20, 25, 31),
			want:    false,
		},
		{
			desc:    "no improvement but already close",
			history: sims(45, 10, 20, 25, 30),
			want:    false,
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			if got := isStuck(test.history); got != test.want {
				t.Errorf("isStuck = %t, want %t", got, test.want)
			}
		})
	}
}

func TestChooseMode(t *testing.T) {
	tests := []struct {
		desc   string
		scores Scoreboard
		want   mode
	}{
		{desc: "no scores", want: normal},
		{desc: "leading", scores: Scoreboard{"me": 50, "them": 10}, want: normal},
		{desc: "tied", scores: Scoreboard{"me": 50, "them": 50}, want: normal},
		{desc: "behind", scores: Scoreboard{"me": 10, "them": 50}, want: aggressive},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			if got := chooseMode(test.scores, "me"); got != test.want {
				t.Errorf("chooseMode = %d, want %d", got, test.want)
			}
		})
	}
}
