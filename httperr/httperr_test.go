package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestExtract(t *testing.T) {
	base := errors.New("disk on fire")

	tests := []struct {
		desc     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			desc:     "plain error",
			err:      base,
			wantCode: http.StatusInternalServerError,
			wantMsg:  "Internal Server Error",
		},
		{
			desc:     "default message",
			err:      NotFound("room %q not found", "abc"),
			wantCode: http.StatusNotFound,
			wantMsg:  "Not Found",
		},
		{
			desc:     "custom message",
			err:      Unauthorized("no auth cookie").WithMessage("not logged in"),
			wantCode: http.StatusUnauthorized,
			wantMsg:  "not logged in",
		},
		{
			desc:     "wrapped",
			err:      fmt.Errorf("serveGuess: %w", Conflict("not your turn").WithMessage("wait your turn")),
			wantCode: http.StatusConflict,
			wantMsg:  "wait your turn",
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			code, msg := Extract(test.err)
			if code != test.wantCode {
				t.Errorf("code = %d, want %d", code, test.wantCode)
			}
			if msg != test.wantMsg {
				t.Errorf("msg = %q, want %q", msg, test.wantMsg)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := BadRequest("bad body: %w", base)
	if !errors.Is(err, base) {
		t.Error("errors.Is couldn't find the wrapped error")
	}
	if got, want := err.Error(), "bad body: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
