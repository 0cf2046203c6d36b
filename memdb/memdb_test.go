package memdb

import (
	"errors"
	"math/rand"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"github.com/bcspragu/Sonar/wordlist"
	"github.com/google/go-cmp/cmp"
)

func TestPlayers(t *testing.T) {
	db := New(&room.Env{}, rand.New(rand.NewSource(0)))

	for _, name := range []string{"Alice", "Bob"} {
		if _, err := db.NewPlayer(name); err != nil {
			t.Fatalf("NewPlayer(%q): %v", name, err)
		}
	}

	got, err := db.Player("player_1")
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	want := &sonar.Player{ID: "player_1", Name: "Bob"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected player (-want +got)\n%s", diff)
	}

	if _, err := db.Player("player_7"); !errors.Is(err, sonar.ErrPlayerNotFound) {
		t.Errorf("Player(player_7) returned %v, want ErrPlayerNotFound", err)
	}
}

func TestRooms(t *testing.T) {
	db := New(&room.Env{}, rand.New(rand.NewSource(0)))
	host, _ := db.NewPlayer("Alice")

	if _, err := db.NewRoom("nobody"); !errors.Is(err, sonar.ErrPlayerNotFound) {
		t.Errorf("NewRoom for an unknown host returned %v, want ErrPlayerNotFound", err)
	}

	var ids []sonar.RoomID
	for i := 0; i < 3; i++ {
		rm, err := db.NewRoom(host)
		if err != nil {
			t.Fatalf("NewRoom: %v", err)
		}
		if !rm.Has(host) {
			t.Error("the host should be seated in their new room")
		}
		ids = append(ids, rm.ID)
	}

	rm, err := db.Room(ids[1])
	if err != nil {
		t.Fatalf("Room(%q): %v", ids[1], err)
	}
	if rm.ID != ids[1] {
		t.Errorf("Room(%q) returned room %q", ids[1], rm.ID)
	}

	if err := db.RemoveRoom(ids[0]); err != nil {
		t.Fatalf("RemoveRoom: %v", err)
	}
	if _, err := db.Room(ids[0]); !errors.Is(err, sonar.ErrRoomNotFound) {
		t.Errorf("Room after removal returned %v, want ErrRoomNotFound", err)
	}

	waiting, err := db.WaitingRooms()
	if err != nil {
		t.Fatalf("WaitingRooms: %v", err)
	}
	if len(waiting) != 2 {
		t.Errorf("got %d waiting rooms, want 2", len(waiting))
	}
}

func TestMatches(t *testing.T) {
	db := New(&room.Env{}, rand.New(rand.NewSource(0)))

	for i, goal := range []string{"dog", "cat", "car"} {
		err := db.RecordMatch(&sonar.MatchResult{
			RoomID:   "Room",
			Language: sonar.English,
			GoalWord: goal,
			Winner:   "Alice",
			Guesses:  i + 1,
			Scores:   []sonar.PlayerScore{{Name: "Alice", Score: 200}},
			EndedAt:  time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("RecordMatch: %v", err)
		}
	}

	got, err := db.RecentMatches(2)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	var goals []string
	for _, m := range got {
		goals = append(goals, m.GoalWord)
	}
	if diff := cmp.Diff([]string{"car", "cat"}, goals); diff != "" {
		t.Errorf("unexpected recent matches (-want +got)\n%s", diff)
	}
}

type exactOracle struct{}

func (exactOracle) SimilarityToGoal(guess, goal string, _ sonar.Language) float64 {
	if guess == goal {
		return 1
	}
	return 0
}

func (exactOracle) ComputeSimilarity(a, b string, _ sonar.Language) float64 {
	if a == b {
		return 1
	}
	return 0
}

func TestRemoveFinished(t *testing.T) {
	words := wordlist.New(fstest.MapFS{
		"en/vocabulary.txt":  {Data: []byte("dog\ncat\n")},
		"en/packs/mixed.txt": {Data: []byte("dog\n")},
	})
	ended := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	env := &room.Env{
		Words:  words,
		Index:  vecdb.New(words),
		Oracle: exactOracle{},
		Now:    func() time.Time { return ended },
	}
	db := New(env, rand.New(rand.NewSource(0)))
	host, _ := db.NewPlayer("Alice")

	done, err := db.NewRoom(host)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	if err := done.Start(host, rand.New(rand.NewSource(0))); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := done.Guess(host, "dog"); err != nil {
		t.Fatalf("Guess: %v", err)
	}
	waiting, err := db.NewRoom(host)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}

	if n := db.RemoveFinished(ended); n != 0 {
		t.Errorf("removed %d rooms that ended exactly at the cutoff, want 0", n)
	}
	if n := db.RemoveFinished(ended.Add(time.Minute)); n != 1 {
		t.Errorf("removed %d rooms, want 1", n)
	}
	if _, err := db.Room(done.ID); !errors.Is(err, sonar.ErrRoomNotFound) {
		t.Errorf("finished room is still around, Room returned %v", err)
	}
	if _, err := db.Room(waiting.ID); err != nil {
		t.Errorf("waiting room was removed: %v", err)
	}
}
