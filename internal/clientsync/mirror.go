package clientsync

import (
	"fmt"
	"sync"
)

// Mirror is the client-side session cache: a local reflection of balance,
// game phase and queue outlook. It is a UI latency hide, never the system of
// record. Reconciliation policy: optimistic apply → authoritative overwrite →
// deduplicated push merge. A settlement's effect on the local balance is
// applied at most once per game id no matter how many times the push fires.
type Mirror struct {
	mu sync.RWMutex

	playerID int
	balance  int64
	phase    Phase
	gameID   int

	// version increments on every authoritative refetch; pushes observed
	// with an older version stamp cannot regress the mirror.
	version uint64

	// applied tracks game ids whose settlement delta has already been folded
	// into the local balance (optimistically or via push).
	applied map[int]bool
}

// Phase is the client's coarse lifecycle position.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSearching Phase = "searching"
	PhaseInGame    Phase = "in_game"
	PhaseFinished  Phase = "finished"
)

// legal phase moves; Reset returns to idle from anywhere.
var phaseNext = map[Phase]map[Phase]bool{
	PhaseIdle:      {PhaseSearching: true, PhaseInGame: true},
	PhaseSearching: {PhaseInGame: true, PhaseIdle: true},
	PhaseInGame:    {PhaseFinished: true},
	PhaseFinished:  {PhaseIdle: true},
}

func NewMirror(playerID int, balance int64) *Mirror {
	return &Mirror{
		playerID: playerID,
		balance:  balance,
		phase:    PhaseIdle,
		applied:  make(map[int]bool),
	}
}

// Balance returns the mirrored balance.
func (m *Mirror) Balance() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}

// Phase returns the mirrored phase.
func (m *Mirror) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// GameID returns the game the mirror currently tracks (0 when idle).
func (m *Mirror) GameID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gameID
}

// Version returns the authoritative refetch counter.
func (m *Mirror) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Advance moves the phase along the lifecycle. gameID is recorded when
// entering in_game.
func (m *Mirror) Advance(next Phase, gameID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !phaseNext[m.phase][next] {
		return fmt.Errorf("illegal phase move %s -> %s", m.phase, next)
	}
	m.phase = next
	if next == PhaseInGame {
		m.gameID = gameID
	}
	if next == PhaseIdle {
		m.gameID = 0
	}
	return nil
}

// Reset returns the mirror to idle (navigate-home, error boundary recovery).
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseIdle
	m.gameID = 0
}

// ApplyOptimistic folds a known settlement outcome into the local balance
// immediately, before the network round-trip completes. Deduplicated by game
// id: a second call for the same game is a no-op.
func (m *Mirror) ApplyOptimistic(gameID int, delta int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.applied[gameID] {
		return false
	}
	m.applied[gameID] = true
	m.balance += delta
	return true
}

// Reconcile overwrites the mirror with an authoritative refetch. The fetched
// balance already includes every settlement the server has recorded, so the
// listed settled game ids are marked applied: a late push replay for any of
// them becomes a no-op instead of a double-count.
func (m *Mirror) Reconcile(balance int64, settledGameIDs ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balance = balance
	m.version++
	for _, id := range settledGameIDs {
		m.applied[id] = true
	}
}

// ApplyPush merges a realtime settlement push. sourceVersion is the mirror
// version the push was observed under; a push that raced with a newer
// authoritative refetch is dropped so it cannot regress the UI. Returns
// whether the push changed the mirror.
func (m *Mirror) ApplyPush(gameID int, delta int64, sourceVersion uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sourceVersion < m.version {
		return false
	}
	if m.applied[gameID] {
		return false
	}
	m.applied[gameID] = true
	m.balance += delta
	return true
}

// SettlementApplied reports whether a game's settlement has been folded in.
func (m *Mirror) SettlementApplied(gameID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.applied[gameID]
}
