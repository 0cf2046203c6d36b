package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bcspragu/Sonar/cryptorand"
	"github.com/bcspragu/Sonar/memdb"
	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/sqldb"
	"github.com/bcspragu/Sonar/vecdb"
	"github.com/bcspragu/Sonar/w2v"
	"github.com/bcspragu/Sonar/web"
	"github.com/bcspragu/Sonar/wordlist"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Finished rooms stick around this long, so players can look at the final
// board.
const finishedRoomTTL = 30 * time.Minute

func main() {
	// A missing .env is fine, everything can come from flags or the
	// environment.
	_ = godotenv.Load()

	var (
		addr        = flag.String("addr", ":8080", "HTTP service address")
		dataDir     = flag.String("data_dir", "data", "Directory containing word lists and embedding tables, one subdirectory per language")
		modelDir    = flag.String("model_dir", "models", "Directory containing word2vec models, named <lang>.bin")
		dbPath      = flag.String("db_path", "sonar.db", "Path to the SQLite DB file for match history")
		defaultLang = flag.String("default_language", string(sonar.DefaultLanguage), "Language whose model is used when a language has none of its own")
		logLevel    = flag.String("log_level", "info", "Minimum level to log at")
	)
	flag.Parse()

	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	hist, err := sqldb.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dbPath).Msg("failed to initialize match history")
	}

	words := wordlist.New(os.DirFS(*dataDir))
	idx := vecdb.New(words)
	oracle := w2v.New(w2v.FileLoader(*modelDir), sonar.Language(*defaultLang))
	for _, lang := range sonar.Languages {
		idx.LoadData(lang)
		oracle.LoadModel(lang)
	}

	r := cryptorand.New()
	db := memdb.New(&room.Env{
		Words:   words,
		Index:   idx,
		Oracle:  oracle,
		History: hist,
	}, r)

	sc, err := loadKeys()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load cookie keys")
	}

	go reapRooms(db)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		if err := hist.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close match history")
		}
		os.Exit(1)
	}()

	log.Info().Str("addr", *addr).Msg("server is running")
	if err := http.ListenAndServe(*addr, web.New(db, hist, r, sc)); err != nil {
		log.Fatal().Err(err).Msg("ListenAndServe")
	}
}

func reapRooms(db *memdb.DB) {
	t := time.NewTicker(finishedRoomTTL / 2)
	defer t.Stop()
	for range t.C {
		if n := db.RemoveFinished(time.Now().Add(-finishedRoomTTL)); n > 0 {
			log.Info().Int("rooms", n).Msg("removed finished rooms")
		}
	}
}

func loadKeys() (*securecookie.SecureCookie, error) {
	hashKey, err := loadOrGenKey("hashKey")
	if err != nil {
		return nil, err
	}

	blockKey, err := loadOrGenKey("blockKey")
	if err != nil {
		return nil, err
	}

	return securecookie.New(hashKey, blockKey), nil
}

func loadOrGenKey(name string) ([]byte, error) {
	f, err := os.ReadFile(name)
	if err == nil {
		return f, nil
	}

	dat := securecookie.GenerateRandomKey(32)
	if dat == nil {
		return nil, errors.New("failed to generate key")
	}

	if err := os.WriteFile(name, dat, 0600); err != nil {
		return nil, errors.New("error writing key file")
	}
	return dat, nil
}
