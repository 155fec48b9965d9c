package models

import "testing"

func TestGameHasPlayer(t *testing.T) {
	g := &Game{WhitePlayerID: 3, BlackPlayerID: 7}

	if !g.HasPlayer(3) || !g.HasPlayer(7) {
		t.Error("both participants should be recognized")
	}
	if g.HasPlayer(5) {
		t.Error("non-participant recognized as player")
	}
	if g.HasPlayer(0) {
		t.Error("zero id recognized as player")
	}
}

func TestGameOpponent(t *testing.T) {
	g := &Game{WhitePlayerID: 3, BlackPlayerID: 7}

	if other, ok := g.Opponent(3); !ok || other != 7 {
		t.Errorf("Opponent(3) = %d, %v; want 7, true", other, ok)
	}
	if other, ok := g.Opponent(7); !ok || other != 3 {
		t.Errorf("Opponent(7) = %d, %v; want 3, true", other, ok)
	}
	if _, ok := g.Opponent(5); ok {
		t.Error("Opponent should reject a non-participant")
	}
}
