// Package client talks to a Sonar server's JSON API on behalf of one player.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
)

// Client remembers the player it signed up as in a cookie jar, so every
// request after CreatePlayer is made as that player.
type Client struct {
	scheme string
	addr   string
	http   *http.Client
}

func New(scheme, addr string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		scheme: scheme,
		addr:   addr,
		http:   &http.Client{Jar: jar},
	}, nil
}

func (c *Client) CreatePlayer(name string) (*sonar.Player, error) {
	body := struct {
		Name string `json:"name"`
	}{name}

	var p sonar.Player
	if err := c.post("/api/player", body, &p); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return &p, nil
}

func (c *Client) Player() (*sonar.Player, error) {
	var p sonar.Player
	if err := c.get("/api/player", &p); err != nil {
		return nil, fmt.Errorf("failed to load player: %w", err)
	}
	return &p, nil
}

func (c *Client) CreateRoom() (sonar.RoomID, error) {
	var resp struct {
		ID sonar.RoomID `json:"id"`
	}
	if err := c.post("/api/room", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) WaitingRooms() ([]sonar.RoomID, error) {
	var resp []sonar.RoomID
	if err := c.get("/api/rooms", &resp); err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	return resp, nil
}

func (c *Client) Room(rID sonar.RoomID) (*room.State, error) {
	var st room.State
	if err := c.get(roomPath(rID, ""), &st); err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	return &st, nil
}

func (c *Client) JoinRoom(rID sonar.RoomID) error {
	if err := c.post(roomPath(rID, "/join"), nil, nil); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}
	return nil
}

func (c *Client) UpdateSettings(rID sonar.RoomID, s room.Settings) error {
	if err := c.post(roomPath(rID, "/settings"), s, nil); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

func (c *Client) StartGame(rID sonar.RoomID) error {
	if err := c.post(roomPath(rID, "/start"), nil, nil); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}
	return nil
}

// Guess submits a word, and returns how it scored. Invalid words come back
// with Valid unset, they aren't errors.
func (c *Client) Guess(rID sonar.RoomID, word string) (*room.BoardEntry, error) {
	body := struct {
		Word string `json:"word"`
	}{word}

	var e room.BoardEntry
	if err := c.post(roomPath(rID, "/guess"), body, &e); err != nil {
		return nil, fmt.Errorf("failed to guess: %w", err)
	}
	return &e, nil
}

func (c *Client) Skip(rID sonar.RoomID) error {
	if err := c.post(roomPath(rID, "/skip"), nil, nil); err != nil {
		return fmt.Errorf("failed to skip turn: %w", err)
	}
	return nil
}

func (c *Client) Matches(limit int) ([]*sonar.MatchResult, error) {
	var resp []*sonar.MatchResult
	if err := c.get("/api/matches?limit="+strconv.Itoa(limit), &resp); err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	return resp, nil
}

func roomPath(rID sonar.RoomID, suffix string) string {
	return "/api/room/" + url.PathEscape(string(rID)) + suffix
}

func (c *Client) get(path string, resp interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.scheme+"://"+c.addr+path, nil)
	if err != nil {
		return fmt.Errorf("failed to form request: %w", err)
	}
	return c.do(req, resp)
}

func (c *Client) post(path string, body, resp interface{}) error {
	var rb io.Reader
	if body != nil {
		rb = toBody(body)
	}
	req, err := http.NewRequest(http.MethodPost, c.scheme+"://"+c.addr+path, rb)
	if err != nil {
		return fmt.Errorf("failed to form request: %w", err)
	}
	return c.do(req, resp)
}

func (c *Client) do(req *http.Request, resp interface{}) error {
	httpResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return handleError(httpResp)
	}

	if resp != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	return nil
}

type httpError struct {
	statusCode int
	body       string
	err        error
}

func (h *httpError) Error() string {
	if h.err != nil {
		return fmt.Sprintf("[%d] failed to handle error: %v", h.statusCode, h.err)
	}
	return fmt.Sprintf("[%d] error from server: %s", h.statusCode, h.body)
}

// StatusCode returns the HTTP status the server failed a request with, or
// zero if err didn't come from the server.
func StatusCode(err error) int {
	var herr *httpError
	if errors.As(err, &herr) {
		return herr.statusCode
	}
	return 0
}

func handleError(resp *http.Response) error {
	dat, err := io.ReadAll(resp.Body)
	if err != nil {
		return &httpError{
			statusCode: resp.StatusCode,
			err:        fmt.Errorf("failed to read error response body: %w", err),
		}
	}

	return &httpError{
		statusCode: resp.StatusCode,
		body:       string(bytes.TrimSpace(dat)),
	}
}

func toBody(req interface{}) io.Reader {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return &errReader{err: err}
	}
	return &buf
}

type errReader struct {
	err error
}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, e.err
}
