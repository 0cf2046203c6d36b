// Package wordlist reads the prepared word data for each language: the
// vocabulary of acceptable guesses, the themed packs goal words are drawn
// from, and the precomputed embedding table.
//
// Data for a language lives under a directory named after its code:
//
//	en/vocabulary.txt
//	en/embeddings.csv
//	en/packs/mixed.txt
//	en/packs/sports.txt
//
// Missing files read as empty lists.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sync"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/rs/zerolog/log"
)

// Set is a lookup set of normalized words.
type Set map[string]struct{}

// Contains reports whether word, once normalized, is in the set.
func (s Set) Contains(word string) bool {
	_, ok := s[sonar.Normalize(word)]
	return ok
}

type vocab struct {
	words []string
	set   Set
}

// Store serves word lists out of a filesystem, caching vocabularies per
// language. It's safe for concurrent use.
type Store struct {
	fsys fs.FS

	mu     sync.Mutex
	vocabs map[sonar.Language]*vocab
}

// New returns a Store reading from fsys, usually os.DirFS(dataDir).
func New(fsys fs.FS) *Store {
	return &Store{
		fsys:   fsys,
		vocabs: make(map[sonar.Language]*vocab),
	}
}

// Vocabulary returns the set of valid guesses for the language.
func (s *Store) Vocabulary(lang sonar.Language) Set {
	return s.vocab(lang).set
}

// Words returns the vocabulary in file order.
func (s *Store) Words(lang sonar.Language) []string {
	return s.vocab(lang).words
}

func (s *Store) vocab(lang sonar.Language) *vocab {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.vocabs[lang]; ok {
		return v
	}

	words := s.readList(path.Join(string(lang), "vocabulary.txt"))
	v := &vocab{words: words, set: make(Set, len(words))}
	for _, w := range words {
		v.set[w] = struct{}{}
	}
	s.vocabs[lang] = v
	log.Info().Str("language", string(lang)).Int("words", len(words)).Msg("loaded vocabulary")
	return v
}

// Pool returns the candidate goal words for a category. An empty or unknown
// category falls back to the mixed pack, and an empty mixed pack falls back to
// the whole vocabulary.
func (s *Store) Pool(lang sonar.Language, cat sonar.Category) []string {
	if cat.Themed() {
		if words := s.Pack(lang, string(cat)); len(words) > 0 {
			return words
		}
		log.Warn().Str("language", string(lang)).Str("category", string(cat)).Msg("empty category pool, using mixed")
	}

	if words := s.Pack(lang, string(sonar.Mixed)); len(words) > 0 {
		return words
	}
	return s.Words(lang)
}

// Pack returns the words of a themed pack, or nothing if there's no such
// pack.
func (s *Store) Pack(lang sonar.Language, name string) []string {
	if name == "" {
		return nil
	}
	return s.readList(path.Join(string(lang), "packs", name+".txt"))
}

// OpenEmbeddings opens the language's embedding table, a CSV file with a word
// followed by one value per dimension on each row.
func (s *Store) OpenEmbeddings(lang sonar.Language) (io.ReadCloser, error) {
	f, err := s.fsys.Open(path.Join(string(lang), "embeddings.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to open embeddings for %q: %w", lang, err)
	}
	return f, nil
}

// readList reads a newline-separated list, normalizing each word and dropping
// blanks and repeats.
func (s *Store) readList(name string) []string {
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", name).Msg("word list doesn't exist, treating as empty")
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Str("path", name).Msg("failed to open word list")
		return nil
	}
	defer f.Close()

	words, err := ReadList(f)
	if err != nil {
		log.Warn().Err(err).Str("path", name).Msg("failed to read word list")
	}
	return words
}

// ReadList parses a newline-separated word list. On a read error it returns
// the words read so far along with the error.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := sonar.Normalize(sc.Text())
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("failed to read word list: %w", err)
	}
	return out, nil
}
