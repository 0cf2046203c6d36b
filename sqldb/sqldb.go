// Package sqldb records finished matches in a SQLite database. It's the
// durable half of sonar.MatchLog; rooms and games in progress are never
// written here.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bcspragu/Sonar/sonar"
	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id   TEXT NOT NULL,
	language  TEXT NOT NULL,
	category  TEXT NOT NULL,
	goal_word TEXT NOT NULL,
	winner    TEXT NOT NULL,
	guesses   INTEGER NOT NULL,
	ended_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS match_scores (
	match_id INTEGER NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	bot      TEXT NOT NULL,
	score    REAL NOT NULL,
	PRIMARY KEY (match_id, position)
);`

var errClosed = errors.New("sqldb: database is closed")

var _ sonar.MatchLog = (*DB)(nil)

// DB implements sonar.MatchLog, backed by a SQLite database.
// NOTE: Since the database doesn't support concurrent writers, we don't
// actually hold the *sql.DB in this struct, we force all callers to get a
// handle via channels.
type DB struct {
	dbChan   chan func(*sql.DB)
	doneChan chan struct{}
}

// New opens, and if needed creates, the database stored on disk at the given
// filename.
func New(fn string) (*DB, error) {
	sdb, err := sql.Open("sqlite3", fn+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := sdb.Exec(schema); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	db := &DB{
		dbChan:   make(chan func(*sql.DB)),
		doneChan: make(chan struct{}),
	}
	go db.run(sdb)
	return db, nil
}

// run handles all database calls, and ensures that only one thing is happening
// against the database at a time.
func (s *DB) run(sdb *sql.DB) {
	for {
		select {
		case dbFn := <-s.dbChan:
			dbFn(sdb)
		case <-s.doneChan:
			if err := sdb.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close database")
			}
			return
		}
	}
}

// do runs fn on the database goroutine and waits for it to finish.
func (s *DB) do(fn func(*sql.DB) error) error {
	select {
	case <-s.doneChan:
		return errClosed
	default:
	}

	errC := make(chan error, 1)
	select {
	case s.dbChan <- func(sdb *sql.DB) { errC <- fn(sdb) }:
	case <-s.doneChan:
		return errClosed
	}
	return <-errC
}

func (s *DB) Close() error {
	close(s.doneChan)
	return nil
}

func (s *DB) RecordMatch(m *sonar.MatchResult) error {
	return s.do(func(sdb *sql.DB) error {
		tx, err := sdb.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.Exec(`INSERT INTO matches (room_id, language, category, goal_word, winner, guesses, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(m.RoomID), string(m.Language), string(m.Category), m.GoalWord, m.Winner, m.Guesses, m.EndedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get match ID: %w", err)
		}

		for i, ps := range m.Scores {
			if _, err := tx.Exec(`INSERT INTO match_scores (match_id, position, name, bot, score) VALUES (?, ?, ?, ?, ?)`,
				id, i, ps.Name, string(ps.Bot), ps.Score); err != nil {
				return fmt.Errorf("failed to insert score for %q: %w", ps.Name, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit match: %w", err)
		}
		return nil
	})
}

// RecentMatches returns up to limit matches, newest first.
func (s *DB) RecentMatches(limit int) ([]*sonar.MatchResult, error) {
	var out []*sonar.MatchResult
	err := s.do(func(sdb *sql.DB) error {
		rows, err := sdb.Query(`SELECT id, room_id, language, category, goal_word, winner, guesses, ended_at
			FROM matches ORDER BY id DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("failed to query matches: %w", err)
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			var (
				id                int64
				roomID, lang, cat string
				m                 sonar.MatchResult
				endedAt           time.Time
			)
			if err := rows.Scan(&id, &roomID, &lang, &cat, &m.GoalWord, &m.Winner, &m.Guesses, &endedAt); err != nil {
				return fmt.Errorf("failed to scan match: %w", err)
			}
			m.RoomID, m.Language, m.Category = sonar.RoomID(roomID), sonar.Language(lang), sonar.Category(cat)
			m.EndedAt = endedAt.UTC()
			ids = append(ids, id)
			out = append(out, &m)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read matches: %w", err)
		}

		for i, id := range ids {
			scores, err := matchScores(sdb, id)
			if err != nil {
				return err
			}
			out[i].Scores = scores
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchScores(sdb *sql.DB, id int64) ([]sonar.PlayerScore, error) {
	rows, err := sdb.Query(`SELECT name, bot, score FROM match_scores WHERE match_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores for match %d: %w", id, err)
	}
	defer rows.Close()

	var out []sonar.PlayerScore
	for rows.Next() {
		var (
			ps  sonar.PlayerScore
			bot string
		)
		if err := rows.Scan(&ps.Name, &bot, &ps.Score); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		ps.Bot = sonar.Difficulty(bot)
		out = append(out, ps)
	}
	return out, rows.Err()
}
