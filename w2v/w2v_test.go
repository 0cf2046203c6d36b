package w2v

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"code.sajari.com/word2vec"
	"github.com/bcspragu/Sonar/sonar"
)

// fakeModel embeds expressions as the weighted sum of its word vectors.
type fakeModel map[string][]float32

func (f fakeModel) embed(e word2vec.Expr) ([]float32, error) {
	var out []float32
	for w, weight := range e {
		v, ok := f[w]
		if !ok {
			return nil, fmt.Errorf("word %q not found in dictionary", w)
		}
		if out == nil {
			out = make([]float32, len(v))
		}
		for i := range v {
			out[i] += weight * v[i]
		}
	}
	return out, nil
}

func (f fakeModel) Cos(a, b word2vec.Expr) (float32, error) {
	va, err := f.embed(a)
	if err != nil {
		return 0, err
	}
	vb, err := f.embed(b)
	if err != nil {
		return 0, err
	}
	var dot, na, nb float64
	for i := range va {
		dot += float64(va[i] * vb[i])
		na += float64(va[i] * va[i])
		nb += float64(vb[i] * vb[i])
	}
	return float32(dot / math.Sqrt(na*nb)), nil
}

var testModel = fakeModel{
	"cat":   {1, 0},
	"dog":   {0.8, 0.6},
	"car":   {0, 1},
	"hot":   {1, 1},
	"dog's": {1, 0},
}

type countingLoader struct {
	mu     sync.Mutex
	models map[sonar.Language]Model
	calls  map[sonar.Language]int
}

func (c *countingLoader) load(lang sonar.Language) (Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[sonar.Language]int)
	}
	c.calls[lang]++
	m, ok := c.models[lang]
	if !ok {
		return nil, errors.New("no such model")
	}
	return m, nil
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeSimilarity(t *testing.T) {
	cl := &countingLoader{models: map[sonar.Language]Model{sonar.English: testModel}}
	o := New(cl.load, sonar.English)

	tests := []struct {
		desc string
		a, b string
		want float64
	}{
		{
			desc: "identical words",
			a:    "cat",
			b:    "cat",
			want: 1,
		},
		{
			desc: "related words",
			a:    "cat",
			b:    "dog",
			want: 0.8,
		},
		{
			desc: "orthogonal words",
			a:    "cat",
			b:    "car",
			want: 0,
		},
		{
			desc: "case is folded",
			a:    "CAT",
			b:    "Dog",
			want: 0.8,
		},
		{
			desc: "phrases are summed",
			a:    "cat car",
			b:    "hot",
			want: 1,
		},
		{
			desc: "unknown word",
			a:    "cat",
			b:    "zebra",
			want: 0,
		},
		{
			desc: "empty string",
			a:    "   ",
			b:    "cat",
			want: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got := o.ComputeSimilarity(test.a, test.b, sonar.English)
			if !approx(got, test.want) {
				t.Errorf("ComputeSimilarity(%q, %q) = %v, want %v", test.a, test.b, got, test.want)
			}
		})
	}

	if n := cl.calls[sonar.English]; n != 1 {
		t.Errorf("English model loaded %d times, want 1", n)
	}
}

func TestComputeSimilarity_Symmetric(t *testing.T) {
	o := New(func(sonar.Language) (Model, error) { return testModel, nil }, sonar.English)

	words := []string{"cat", "dog", "car", "hot"}
	for _, a := range words {
		for _, b := range words {
			ab := o.ComputeSimilarity(a, b, sonar.English)
			ba := o.ComputeSimilarity(b, a, sonar.English)
			if !approx(ab, ba) {
				t.Errorf("sim(%q, %q) = %v but sim(%q, %q) = %v", a, b, ab, b, a, ba)
			}
			if ab < -1-1e-6 || ab > 1+1e-6 {
				t.Errorf("sim(%q, %q) = %v, out of range", a, b, ab)
			}
		}
	}
}

func TestLoadModel_Fallback(t *testing.T) {
	cl := &countingLoader{models: map[sonar.Language]Model{sonar.English: testModel}}
	o := New(cl.load, sonar.English)

	if !o.LoadModel(sonar.French) {
		t.Fatal("LoadModel(fr) should fall back to the English model")
	}
	if !o.LoadModel(sonar.French) {
		t.Fatal("second LoadModel(fr) should still report a usable model")
	}
	if got := o.ComputeSimilarity("cat", "dog", sonar.French); !approx(got, 0.8) {
		t.Errorf("French similarity through fallback = %v, want 0.8", got)
	}
	if got := o.SimilarityToGoal("cat", "dog", sonar.English); !approx(got, 0.8) {
		t.Errorf("SimilarityToGoal = %v, want 0.8", got)
	}

	if n := cl.calls[sonar.French]; n != 1 {
		t.Errorf("French model loaded %d times, want 1", n)
	}
	if n := cl.calls[sonar.English]; n != 1 {
		t.Errorf("English model loaded %d times, want 1", n)
	}
}

func TestLoadModel_Unavailable(t *testing.T) {
	cl := &countingLoader{}
	o := New(cl.load, sonar.English)

	if o.LoadModel(sonar.Arabic) {
		t.Error("LoadModel(ar) with no models should report unavailable")
	}
	if got := o.ComputeSimilarity("cat", "cat", sonar.Arabic); got != 0 {
		t.Errorf("similarity without a model = %v, want 0", got)
	}
	o.ComputeSimilarity("cat", "dog", sonar.Arabic)
	if n := cl.calls[sonar.Arabic]; n != 1 {
		t.Errorf("failed model load attempted %d times, want 1", n)
	}
}

func TestFileLoader_Missing(t *testing.T) {
	load := FileLoader(t.TempDir())
	if _, err := load(sonar.English); err == nil {
		t.Error("loading a model that doesn't exist should fail")
	}
}

func TestConcurrentUse(t *testing.T) {
	cl := &countingLoader{models: map[sonar.Language]Model{sonar.English: testModel}}
	o := New(cl.load, sonar.English)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.ComputeSimilarity("cat", "dog", sonar.English)
		}()
	}
	wg.Wait()

	if n := cl.calls[sonar.English]; n != 1 {
		t.Errorf("model loaded %d times under concurrent use, want 1", n)
	}
}
