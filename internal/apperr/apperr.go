package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so handlers and clients can react appropriately:
// a ConflictError ("someone already joined") is a different client experience
// from a TransientError (retry) or a ValidationError (fix the request).
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindInsufficientBalance
	KindNotFound
	KindTransient
)

// Error is the typed error surfaced by the lobby, matchmaking, ledger and
// settlement packages. Code is a stable machine-readable string.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindInsufficientBalance:
		return http.StatusPaymentRequired
	case KindNotFound:
		return http.StatusNotFound
	case KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Msg: msg}
}

func InsufficientBalance(msg string) *Error {
	return &Error{Kind: KindInsufficientBalance, Code: "insufficient_balance", Msg: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Msg: msg}
}

func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Code: "transient", Msg: msg, Err: err}
}

// As unwraps err into an *Error, or nil if it is not one.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	if e := As(err); e != nil {
		return e.Kind == k
	}
	return false
}

// Well-known operation errors.
var (
	ErrInvalidWager        = Validation("invalid_wager", "wager outside allowed range")
	ErrAlreadyInLobby      = Conflict("already_in_lobby", "player already has an open lobby")
	ErrAlreadyInActiveGame = Conflict("already_in_active_game", "player already has an active game")
	ErrAlreadyQueued       = Conflict("already_queued", "player already has a queue entry")
	ErrLobbyNotFound       = NotFound("lobby_not_found", "no open lobby with that code")
	ErrLobbyFull           = Conflict("lobby_full", "someone already joined this lobby")
	ErrSelfJoin            = Validation("self_join", "cannot join your own lobby")
	ErrAlreadyMatched      = Conflict("already_matched", "entry was matched before it could be cancelled")
	ErrGameNotFound        = NotFound("game_not_found", "no such game")
	ErrNotParticipant      = Conflict("not_participant", "caller is not a participant of this game")
	ErrAlreadySettled      = Conflict("already_settled", "game is already settled")
	ErrNotReady            = Conflict("not_ready", "both players must be ready to start")
)
