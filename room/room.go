// Package room manages a match from the lobby to the final standings: who's
// seated, whose turn it is, and when the bots play. It's the only thing that
// calls into a game.Session, and it serializes those calls.
package room

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/bcspragu/Sonar/bot"
	"github.com/bcspragu/Sonar/game"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/wordlist"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoHumans      = errors.New("room: a room needs at least one human player")
	ErrNotHost       = errors.New("room: only the host can do that")
	ErrBadSettings   = errors.New("room: invalid settings")
	ErrBadDifficulty = fmt.Errorf("%w: unknown bot difficulty", ErrBadSettings)
)

// maxBotRetries is how many random words a bot gets to try after its agent
// comes up with an invalid guess, before its turn is skipped.
const maxBotRetries = 3

// Words is where a room gets its vocabulary and goal words, see
// wordlist.Store.
type Words interface {
	Vocabulary(sonar.Language) wordlist.Set
	Words(sonar.Language) []string
	Pool(sonar.Language, sonar.Category) []string
}

// Env is everything rooms share.
type Env struct {
	Words  Words
	Index  bot.Index
	Oracle game.Oracle
	// History, if set, is told about every finished match.
	History sonar.MatchLog
	// Now is used for match timestamps, defaults to time.Now.
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

type Settings struct {
	Language sonar.Language     `json:"language"`
	Category sonar.Category     `json:"category"`
	Bots     []sonar.Difficulty `json:"bots"`
}

// ParseSettings builds settings from their text forms, as given on a command
// line. bots is a comma-separated list of difficulties.
func ParseSettings(lang, cat, bots string) (Settings, error) {
	l, err := sonar.ParseLanguage(lang)
	if err != nil {
		return Settings{}, err
	}
	c, err := sonar.ParseCategory(cat)
	if err != nil {
		return Settings{}, err
	}

	var ds []sonar.Difficulty
	for _, b := range strings.Split(bots, ",") {
		if strings.TrimSpace(b) == "" {
			continue
		}
		d, err := sonar.ParseDifficulty(b)
		if err != nil {
			return Settings{}, err
		}
		ds = append(ds, d)
	}
	return Settings{Language: l, Category: c, Bots: ds}, nil
}

// validate checks settings that came from a client, and puts them in the form
// word lists and indexes expect. An empty language is the default one, an
// empty category is Mixed.
func (s *Settings) validate(humans int) error {
	if s.Language == "" {
		s.Language = sonar.DefaultLanguage
	}
	l, err := sonar.ParseLanguage(string(s.Language))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSettings, err)
	}
	c, err := sonar.ParseCategory(string(s.Category))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSettings, err)
	}
	var bots []sonar.Difficulty
	for _, b := range s.Bots {
		d, err := sonar.ParseDifficulty(string(b))
		if err != nil {
			return fmt.Errorf("%w %q", ErrBadDifficulty, b)
		}
		bots = append(bots, d)
	}
	if humans+len(bots) > sonar.MaxSeats {
		return sonar.ErrRoomFull
	}
	s.Language, s.Category, s.Bots = l, c, bots
	return nil
}

// Seat is a player in the room. Humans take seats as they join, bots are
// seated after them when the game starts.
type Seat struct {
	ID   sonar.PlayerID
	Name string
	Bot  sonar.Difficulty

	agent bot.Agent
}

type Room struct {
	ID   sonar.RoomID
	Host sonar.PlayerID

	env *Env
	log zerolog.Logger

	mu       sync.Mutex
	settings Settings
	seats    []*Seat
	status   sonar.GameStatus
	turn     int
	session  *game.Session
	words    []string
	r        *rand.Rand
	result   *sonar.MatchResult
}

// New opens a room with its host already seated.
func New(id sonar.RoomID, host sonar.PlayerID, hostName string, env *Env) *Room {
	return &Room{
		ID:     id,
		Host:   host,
		env:    env,
		log:    log.With().Str("room", string(id)).Logger(),
		seats:  []*Seat{{ID: host, Name: hostName}},
		status: sonar.Waiting,
		settings: Settings{
			Language: sonar.DefaultLanguage,
			Category: sonar.Mixed,
		},
	}
}

func (rm *Room) Status() sonar.GameStatus {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.status
}

// Join seats a human. Joining a room you're already in is a no-op.
func (rm *Room) Join(id sonar.PlayerID, name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.status != sonar.Waiting {
		return sonar.ErrRoomStarted
	}
	if rm.seatIndex(id) >= 0 {
		return nil
	}
	if len(rm.seats)+len(rm.settings.Bots) >= sonar.MaxSeats {
		return sonar.ErrRoomFull
	}

	rm.seats = append(rm.seats, &Seat{ID: id, Name: name})
	rm.log.Info().Str("player", name).Int("seats", len(rm.seats)).Msg("player joined")
	return nil
}

// UpdateSettings replaces the room's settings. Only the host can change them,
// and only before the game starts.
func (rm *Room) UpdateSettings(by sonar.PlayerID, s Settings) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if by != rm.Host {
		return ErrNotHost
	}
	if rm.status != sonar.Waiting {
		return sonar.ErrRoomStarted
	}
	if err := s.validate(len(rm.seats)); err != nil {
		return err
	}
	rm.settings = s
	return nil
}

// Start seats the bots, draws a goal word and hands the first turn to the
// host. It doesn't play any bot turns, see PlayBots.
func (rm *Room) Start(by sonar.PlayerID, r *rand.Rand) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if by != rm.Host {
		return ErrNotHost
	}
	if rm.status != sonar.Waiting {
		return sonar.ErrRoomStarted
	}
	if len(rm.seats) == 0 {
		return ErrNoHumans
	}

	lang, cat := rm.settings.Language, rm.settings.Category
	vocab, words := rm.env.Words.Vocabulary(lang), rm.env.Words.Words(lang)
	if len(vocab) == 0 {
		rm.log.Warn().Str("language", string(lang)).Msg("empty vocabulary, accepting every indexed word")
		words = rm.env.Index.WordList(lang)
		vocab = make(wordlist.Set, len(words))
		for _, w := range words {
			vocab[w] = struct{}{}
		}
	}

	sess, err := game.New(&game.Config{
		Language:   lang,
		Category:   cat,
		Vocabulary: vocab,
		TargetPool: rm.env.Words.Pool(lang, cat),
		Oracle:     rm.env.Oracle,
		Rand:       r,
	})
	if err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	seats := rm.seats
	for i, d := range rm.settings.Bots {
		agent, err := bot.New(d, lang, rm.env.Index, r)
		if err != nil {
			return fmt.Errorf("failed to create bot: %w", err)
		}
		seats = append(seats, &Seat{
			ID:    sonar.RandomPlayerID(r),
			Name:  fmt.Sprintf("%s bot %d", d, i+1),
			Bot:   d,
			agent: agent,
		})
	}
	for _, s := range seats {
		sess.AddPlayer(s.Name, s.Bot)
	}

	rm.seats = seats
	rm.session = sess
	rm.words = words
	rm.r = r
	rm.turn = 0
	rm.status = sonar.Active

	rm.log.Info().
		Str("language", string(lang)).
		Str("category", string(cat)).
		Int("players", len(seats)).
		Msg("game started")
	return nil
}

// Guess submits a word for the player whose turn it is. An invalid word is
// reported back and the player keeps their turn.
func (rm *Room) Guess(id sonar.PlayerID, word string) (*game.GuessRecord, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err := rm.checkTurn(id); err != nil {
		return nil, err
	}
	return rm.submit(word)
}

// Skip passes the current player's turn, e.g. when their turn timer runs out.
func (rm *Room) Skip(id sonar.PlayerID) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err := rm.checkTurn(id); err != nil {
		return err
	}
	rm.advance()
	return nil
}

// PlayBots plays bot turns until it's a human's turn or the game ends, and
// returns the valid guesses the bots made.
func (rm *Room) PlayBots() ([]*game.GuessRecord, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.status == sonar.Waiting {
		return nil, sonar.ErrRoomNotStarted
	}

	var out []*game.GuessRecord
	for rm.status == sonar.Active && rm.seats[rm.turn].agent != nil {
		rec, err := rm.playBot(rm.seats[rm.turn])
		if err != nil {
			return out, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (rm *Room) playBot(s *Seat) (*game.GuessRecord, error) {
	history := bot.FromRecords(rm.session.Board())
	scores := make(bot.Scoreboard, len(rm.seats))
	for i, p := range rm.session.Players() {
		scores[rm.seats[i].ID] = p.Score
	}

	word := s.agent.Decide(history, scores, rm.settings.Category, s.ID)
	for try := 0; ; try++ {
		rec, err := rm.submit(word)
		if err != nil {
			return nil, err
		}
		if rec.Valid {
			return rec, nil
		}
		if try == maxBotRetries || len(rm.words) == 0 {
			rm.log.Warn().Str("player", s.Name).Str("word", word).Msg("bot couldn't find a valid guess, skipping its turn")
			rm.advance()
			return nil, nil
		}
		rm.log.Debug().Str("player", s.Name).Str("word", word).Msg("bot guessed an invalid word, retrying")
		word = rm.words[rm.r.Intn(len(rm.words))]
	}
}

func (rm *Room) checkTurn(id sonar.PlayerID) error {
	switch rm.status {
	case sonar.Waiting:
		return sonar.ErrRoomNotStarted
	case sonar.Finished:
		return game.ErrGameOver
	}
	idx := rm.seatIndex(id)
	if idx < 0 {
		return sonar.ErrPlayerNotFound
	}
	if idx != rm.turn {
		return sonar.ErrNotYourTurn
	}
	return nil
}

// submit scores a word for the current seat, moving the turn along if it
// was valid.
func (rm *Room) submit(word string) (*game.GuessRecord, error) {
	rec, err := rm.session.SubmitGuess(rm.turn, word)
	if err != nil {
		return nil, err
	}
	if !rec.Valid {
		return rec, nil
	}

	if rm.session.Finished() {
		rm.finish()
	} else {
		rm.advance()
	}
	return rec, nil
}

func (rm *Room) advance() {
	rm.turn = (rm.turn + 1) % len(rm.seats)
}

func (rm *Room) finish() {
	rm.status = sonar.Finished

	var winner string
	if w, ok := rm.session.Winner(); ok {
		winner = w.Name
	}
	rm.result = &sonar.MatchResult{
		RoomID:   rm.ID,
		Language: rm.settings.Language,
		Category: rm.settings.Category,
		GoalWord: rm.session.GoalWord(),
		Winner:   winner,
		Guesses:  len(rm.session.Board()),
		Scores:   rm.session.Standings(),
		EndedAt:  rm.env.now(),
	}
	rm.log.Info().Str("winner", winner).Str("goal", rm.result.GoalWord).Int("guesses", rm.result.Guesses).Msg("game over")

	if rm.env.History == nil {
		return
	}
	if err := rm.env.History.RecordMatch(rm.result); err != nil {
		rm.log.Error().Err(err).Msg("failed to record match")
	}
}

// Result returns the final standings, once there are some.
func (rm *Room) Result() (*sonar.MatchResult, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.result, rm.result != nil
}

func (rm *Room) seatIndex(id sonar.PlayerID) int {
	for i, s := range rm.seats {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Has reports whether the player is seated in the room.
func (rm *Room) Has(id sonar.PlayerID) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.seatIndex(id) >= 0
}
