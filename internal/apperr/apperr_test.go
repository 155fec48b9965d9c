package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{ErrInvalidWager, http.StatusBadRequest},
		{ErrLobbyFull, http.StatusConflict},
		{ErrAlreadyQueued, http.StatusConflict},
		{InsufficientBalance("x"), http.StatusPaymentRequired},
		{ErrGameNotFound, http.StatusNotFound},
		{Transient("backend down", nil), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.err.Code, got, tc.status)
		}
	}
}

func TestAsUnwrapsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("settle game 7: %w", ErrAlreadySettled)
	e := As(wrapped)
	if e == nil {
		t.Fatal("As failed to unwrap")
	}
	if e.Code != "already_settled" {
		t.Errorf("code = %q, want already_settled", e.Code)
	}
	if !IsKind(wrapped, KindConflict) {
		t.Error("IsKind should see the conflict through wrapping")
	}
}

func TestAsRejectsPlainErrors(t *testing.T) {
	if As(errors.New("plain")) != nil {
		t.Error("plain errors must not coerce to *Error")
	}
}

func TestTransientCarriesCause(t *testing.T) {
	cause := errors.New("connection refused")
	e := Transient("db unavailable", cause)
	if !errors.Is(e, cause) {
		t.Error("Unwrap should expose the cause")
	}
}
