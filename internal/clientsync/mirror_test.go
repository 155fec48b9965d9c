package clientsync

import "testing"

func TestOptimisticAppliesOnce(t *testing.T) {
	m := NewMirror(1, 1000)

	if !m.ApplyOptimistic(42, 190) {
		t.Fatal("first optimistic apply should succeed")
	}
	if m.Balance() != 1190 {
		t.Errorf("balance = %d, want 1190", m.Balance())
	}

	// Retried apply for the same game is a no-op.
	if m.ApplyOptimistic(42, 190) {
		t.Error("second optimistic apply should be a no-op")
	}
	if m.Balance() != 1190 {
		t.Errorf("balance = %d after duplicate apply, want 1190", m.Balance())
	}
}

func TestReconcileOverwritesOptimistic(t *testing.T) {
	m := NewMirror(1, 1000)
	m.ApplyOptimistic(42, 190)

	// The authoritative value wins even when it disagrees with the
	// optimistic delta (e.g. a concurrent deposit).
	m.Reconcile(1250, 42)
	if m.Balance() != 1250 {
		t.Errorf("balance = %d, want authoritative 1250", m.Balance())
	}
}

func TestPushAfterReconcileCannotRegress(t *testing.T) {
	m := NewMirror(1, 1000)

	// Push observed under version 0, then an authoritative refetch lands.
	stale := m.Version()
	m.Reconcile(1190, 42)

	// The replayed push for the already-reconciled settlement must not
	// change the balance.
	if m.ApplyPush(42, 190, stale) {
		t.Error("stale push should be dropped")
	}
	if m.Balance() != 1190 {
		t.Errorf("balance = %d, want 1190", m.Balance())
	}
}

func TestPushReplayDeduplicated(t *testing.T) {
	m := NewMirror(1, 1000)

	v := m.Version()
	if !m.ApplyPush(7, 95, v) {
		t.Fatal("first push should apply")
	}
	// Reconnect replay fires the same push again.
	if m.ApplyPush(7, 95, v) {
		t.Error("replayed push should be a no-op")
	}
	if m.Balance() != 1095 {
		t.Errorf("balance = %d, want 1095", m.Balance())
	}
}

func TestPushThenReconcileMarksApplied(t *testing.T) {
	m := NewMirror(1, 1000)

	v := m.Version()
	m.ApplyPush(9, 190, v)
	m.Reconcile(1190, 9)

	// Late replay after the refetch.
	if m.ApplyPush(9, 190, m.Version()) {
		t.Error("settlement already folded in; replay must not double-count")
	}
	if m.Balance() != 1190 {
		t.Errorf("balance = %d, want 1190", m.Balance())
	}
}

func TestPhaseLifecycle(t *testing.T) {
	m := NewMirror(1, 0)

	if m.Phase() != PhaseIdle {
		t.Fatalf("new mirror phase = %s, want idle", m.Phase())
	}
	if err := m.Advance(PhaseSearching, 0); err != nil {
		t.Fatalf("idle -> searching: %v", err)
	}
	if err := m.Advance(PhaseInGame, 5); err != nil {
		t.Fatalf("searching -> in_game: %v", err)
	}
	if m.GameID() != 5 {
		t.Errorf("game id = %d, want 5", m.GameID())
	}
	if err := m.Advance(PhaseFinished, 0); err != nil {
		t.Fatalf("in_game -> finished: %v", err)
	}

	// Finished cannot jump straight back to a game.
	if err := m.Advance(PhaseInGame, 6); err == nil {
		t.Error("finished -> in_game should be rejected")
	}
	if err := m.Advance(PhaseIdle, 0); err != nil {
		t.Fatalf("finished -> idle: %v", err)
	}
	if m.GameID() != 0 {
		t.Errorf("game id = %d after idle, want 0", m.GameID())
	}
}

func TestDirectLobbyStartSkipsSearching(t *testing.T) {
	// Private lobbies go idle -> in_game without a searching phase.
	m := NewMirror(1, 0)
	if err := m.Advance(PhaseInGame, 11); err != nil {
		t.Fatalf("idle -> in_game: %v", err)
	}
}

func TestResetFromAnyPhase(t *testing.T) {
	m := NewMirror(1, 0)
	m.Advance(PhaseSearching, 0)
	m.Advance(PhaseInGame, 3)
	m.Reset()
	if m.Phase() != PhaseIdle || m.GameID() != 0 {
		t.Errorf("after reset: phase=%s game=%d, want idle/0", m.Phase(), m.GameID())
	}
}
