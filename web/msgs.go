package web

import (
	"encoding/json"
	"fmt"

	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
)

type PlayerJoined struct {
	Player *sonar.Player `json:"player"`
	State  *room.State   `json:"state"`
}

func (pj *PlayerJoined) MarshalJSON() ([]byte, error) {
	type msg PlayerJoined
	return withAction("PLAYER_JOINED", (*msg)(pj))
}

type SettingsChanged struct {
	State *room.State `json:"state"`
}

func (sc *SettingsChanged) MarshalJSON() ([]byte, error) {
	type msg SettingsChanged
	return withAction("SETTINGS_CHANGED", (*msg)(sc))
}

type GameStart struct {
	State *room.State `json:"state"`
}

func (gs *GameStart) MarshalJSON() ([]byte, error) {
	type msg GameStart
	return withAction("GAME_START", (*msg)(gs))
}

type GuessMade struct {
	Guess *room.BoardEntry `json:"guess"`
}

func (gm *GuessMade) MarshalJSON() ([]byte, error) {
	type msg GuessMade
	return withAction("GUESS_MADE", (*msg)(gm))
}

type TurnSkipped struct {
	Player *sonar.Player `json:"player"`
	State  *room.State   `json:"state"`
}

func (ts *TurnSkipped) MarshalJSON() ([]byte, error) {
	type msg TurnSkipped
	return withAction("TURN_SKIPPED", (*msg)(ts))
}

type GameEnd struct {
	Result *sonar.MatchResult `json:"result"`
	State  *room.State        `json:"state"`
}

func (ge *GameEnd) MarshalJSON() ([]byte, error) {
	type msg GameEnd
	return withAction("GAME_END", (*msg)(ge))
}

// withAction marshals msg, which must encode as a JSON object, and adds an
// "action" field to it.
func withAction(action string, msg interface{}) ([]byte, error) {
	dat, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(dat, &fields); err != nil {
		return nil, fmt.Errorf("%s message isn't an object: %w", action, err)
	}

	act, err := json.Marshal(action)
	if err != nil {
		return nil, err
	}
	fields["action"] = act

	return json.Marshal(fields)
}
