// Package vecdb holds the precomputed word embeddings for each language and
// answers nearest-neighbor queries over them with a linear scan.
package vecdb

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// normTolerance is how far from 1 a query vector's norm can be before it gets
// rescaled.
const normTolerance = 1e-6

// Vector is a word embedding.
type Vector []float64

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// Normalized returns a unit-length copy of v, or nil if v has no length.
func (v Vector) Normalized() Vector {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	floats.Scale(1/n, out)
	return out
}

// Source supplies the raw data for an index, see wordlist.Store.
type Source interface {
	OpenEmbeddings(sonar.Language) (io.ReadCloser, error)
	Pack(lang sonar.Language, name string) []string
}

// table is the loaded index for one language. words[i] is row i of matrix,
// and vectors[words[i]] aliases that row.
type table struct {
	words   []string
	vectors map[string]Vector
	matrix  *mat.Dense
	dim     int
}

// DB is a registry of per-language embedding tables. Each language is loaded
// at most once, on first use. It's safe for concurrent use.
type DB struct {
	src Source

	mu     sync.Mutex
	tables map[sonar.Language]*table
}

func New(src Source) *DB {
	return &DB{
		src:    src,
		tables: make(map[sonar.Language]*table),
	}
}

// LoadData loads the embedding table for the language if it isn't loaded
// already. A missing or unreadable table loads as an empty index.
func (db *DB) LoadData(lang sonar.Language) {
	db.table(lang)
}

func (db *DB) table(lang sonar.Language) *table {
	db.mu.Lock()
	defer db.mu.Unlock()

	if t, ok := db.tables[lang]; ok {
		return t
	}

	t := &table{vectors: make(map[string]Vector)}
	rc, err := db.src.OpenEmbeddings(lang)
	if err != nil {
		log.Warn().Err(err).Str("language", string(lang)).Msg("no embedding table, index will be empty")
	} else {
		t, err = readTable(rc)
		rc.Close()
		if err != nil {
			log.Warn().Err(err).Str("language", string(lang)).Msg("embedding table was only partially read")
		}
	}
	db.tables[lang] = t

	log.Info().
		Str("language", string(lang)).
		Int("words", len(t.words)).
		Int("dim", t.dim).
		Msg("loaded embeddings")
	return t
}

// readTable parses rows of "word,v1,...,vn", skipping rows that are malformed,
// repeated, of the wrong dimension, or all zeros. Every kept vector is
// normalized to unit length.
func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var (
		words []string
		data  []float64
		dim   int
		seen  = make(map[string]struct{})
		rerr  error
	)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			rerr = err
			break
		}

		if len(row) < 2 {
			continue
		}
		word := sonar.Normalize(row[0])
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		if dim != 0 && len(row)-1 != dim {
			continue
		}

		vec, ok := parseVector(row[1:])
		if !ok {
			continue
		}
		vec = vec.Normalized()
		if vec == nil {
			continue
		}

		dim = len(vec)
		seen[word] = struct{}{}
		words = append(words, word)
		data = append(data, vec...)
	}

	t := &table{
		words:   words,
		vectors: make(map[string]Vector, len(words)),
		dim:     dim,
	}
	if len(words) == 0 {
		return t, rerr
	}

	t.matrix = mat.NewDense(len(words), dim, data)
	for i, w := range words {
		t.vectors[w] = Vector(data[i*dim : (i+1)*dim : (i+1)*dim])
	}
	return t, rerr
}

func parseVector(fields []string) (Vector, bool) {
	vec := make(Vector, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		vec[i] = v
	}
	return vec, true
}

// Vector returns a copy of the unit-length embedding for word.
func (db *DB) Vector(word string, lang sonar.Language) (Vector, bool) {
	v, ok := db.table(lang).vectors[sonar.Normalize(word)]
	if !ok {
		return nil, false
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out, true
}

// WordList returns every indexed word for the language, in load order. The
// returned slice must not be modified.
func (db *DB) WordList(lang sonar.Language) []string {
	return db.table(lang).words
}

// Len returns the number of indexed words for the language.
func (db *DB) Len(lang sonar.Language) int {
	return len(db.table(lang).words)
}

// Dim returns the dimension of the language's embeddings, or zero for an
// empty index.
func (db *DB) Dim(lang sonar.Language) int {
	return db.table(lang).dim
}

// Similarity returns the cosine similarity of two indexed words.
func (db *DB) Similarity(a, b string, lang sonar.Language) (float64, bool) {
	t := db.table(lang)
	va, ok := t.vectors[sonar.Normalize(a)]
	if !ok {
		return 0, false
	}
	vb, ok := t.vectors[sonar.Normalize(b)]
	if !ok {
		return 0, false
	}
	return floats.Dot(va, vb), true
}

// NearestWords returns up to k indexed words ordered by descending cosine
// similarity to vec. The order among exactly equal scores is unspecified.
func (db *DB) NearestWords(vec Vector, lang sonar.Language, k int) []string {
	t := db.table(lang)
	if k <= 0 || t.matrix == nil || len(vec) != t.dim {
		return nil
	}

	n := vec.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	q := vec
	if math.Abs(n-1) > normTolerance {
		if q = vec.Normalized(); q == nil {
			return nil
		}
	}

	var scores mat.VecDense
	scores.MulVec(t.matrix, mat.NewVecDense(len(q), q))

	sims := make([]float64, len(t.words))
	copy(sims, scores.RawVector().Data)
	inds := make([]int, len(sims))
	floats.Argsort(sims, inds)

	if k > len(inds) {
		k = len(inds)
	}
	out := make([]string, 0, k)
	for i := len(inds) - 1; i >= len(inds)-k; i-- {
		out = append(out, t.words[inds[i]])
	}
	return out
}

// PackWords returns the themed word list with the given name.
func (db *DB) PackWords(pack string, lang sonar.Language) []string {
	return db.src.Pack(lang, pack)
}
