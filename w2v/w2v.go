// Package w2v scores how semantically close two strings are using a
// pretrained word2vec model per language. It's the ground truth guesses are
// scored against.
package w2v

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"code.sajari.com/word2vec"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/rs/zerolog/log"
)

// Model is the part of *word2vec.Model the oracle needs.
type Model interface {
	Cos(a, b word2vec.Expr) (float32, error)
}

// Loader returns the model for a language.
type Loader func(sonar.Language) (Model, error)

// FileLoader loads binary word2vec models named <lang>.bin out of dir.
func FileLoader(dir string) Loader {
	return func(lang sonar.Language) (Model, error) {
		fn := filepath.Join(dir, string(lang)+".bin")
		f, err := os.Open(fn)
		if err != nil {
			return nil, fmt.Errorf("failed to open model file %q: %w", fn, err)
		}
		defer f.Close()

		model, err := word2vec.FromReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse model file %q: %w", fn, err)
		}
		return model, nil
	}
}

// Oracle computes similarities with one model per language, loading each at
// most once. A language whose model won't load borrows the fallback
// language's model, and if that fails too, every similarity in that language
// is zero. It's safe for concurrent use.
type Oracle struct {
	load     Loader
	fallback sonar.Language

	mu     sync.Mutex
	models map[sonar.Language]Model
}

func New(load Loader, fallback sonar.Language) *Oracle {
	return &Oracle{
		load:     load,
		fallback: fallback,
		models:   make(map[sonar.Language]Model),
	}
}

// LoadModel binds a model to the language if one isn't bound already. It
// reports whether the language has a usable model.
func (o *Oracle) LoadModel(lang sonar.Language) bool {
	return o.model(lang) != nil
}

func (o *Oracle) model(lang sonar.Language) Model {
	o.mu.Lock()
	defer o.mu.Unlock()

	if m, ok := o.models[lang]; ok {
		return m
	}

	logger := log.With().Str("language", string(lang)).Logger()
	logger.Info().Msg("loading similarity model")
	m, err := o.load(lang)
	if err != nil && lang != o.fallback {
		logger.Warn().Err(err).Str("fallback", string(o.fallback)).Msg("no model for language, using fallback")
		if fm, ok := o.models[o.fallback]; ok {
			m, err = fm, nil
		} else {
			m, err = o.load(o.fallback)
			if err == nil {
				o.models[o.fallback] = m
			}
		}
	}
	if err != nil {
		// Remember the failure so we don't retry on every guess.
		logger.Error().Err(err).Msg("similarity model unavailable, all similarities will be zero")
		m = nil
	}
	o.models[lang] = m
	return m
}

// ComputeSimilarity returns the cosine similarity of the two strings' embeddings.
// A multi-word string is embedded as the sum of its words. If the language
// has no model, or either string has a word the model doesn't know, the
// similarity is zero.
func (o *Oracle) ComputeSimilarity(a, b string, lang sonar.Language) float64 {
	m := o.model(lang)
	if m == nil {
		return 0
	}

	ea, eb := expr(a), expr(b)
	if len(ea) == 0 || len(eb) == 0 {
		return 0
	}

	s, err := m.Cos(ea, eb)
	if err != nil {
		log.Debug().Err(err).Str("a", a).Str("b", b).Msg("failed to determine similarity")
		return 0
	}
	return float64(s)
}

// SimilarityToGoal is how close guess is to the goal word.
func (o *Oracle) SimilarityToGoal(guess, goal string, lang sonar.Language) float64 {
	return o.ComputeSimilarity(guess, goal, lang)
}

func expr(s string) word2vec.Expr {
	e := word2vec.Expr{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		e.Add(1, w)
	}
	return e
}
