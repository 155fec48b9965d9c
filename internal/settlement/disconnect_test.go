package settlement

import (
	"testing"

	"github.com/skilledgame/backend/internal/models"
)

func activeGame() *models.Game {
	return &models.Game{ID: 1, WhitePlayerID: 3, BlackPlayerID: 7, Wager: 100, Status: models.GameStatusActive}
}

func TestForfeitOutcomeAwardsRemainingPlayer(t *testing.T) {
	winnerID, reason, act := forfeitOutcome(activeGame(), 3, false)
	if !act {
		t.Fatal("expired deadline on an active game must settle")
	}
	if reason != models.ReasonDisconnectForfeit {
		t.Errorf("reason = %q, want disconnect_forfeit", reason)
	}
	if winnerID == nil || *winnerID != 7 {
		t.Errorf("winner = %v, want the remaining player 7", winnerID)
	}
}

func TestForfeitOutcomeBothGoneAbandons(t *testing.T) {
	winnerID, reason, act := forfeitOutcome(activeGame(), 7, true)
	if !act {
		t.Fatal("expired deadline on an active game must settle")
	}
	if reason != models.ReasonAbandoned {
		t.Errorf("reason = %q, want abandoned", reason)
	}
	if winnerID != nil {
		t.Errorf("winner = %d, want none for an abandoned game", *winnerID)
	}
}

func TestForfeitOutcomeSkipsSettledGame(t *testing.T) {
	g := activeGame()
	g.Status = models.GameStatusFinished
	if _, _, act := forfeitOutcome(g, 3, false); act {
		t.Error("a finished game needs no forfeit settlement")
	}
}

func TestForfeitOutcomeSkipsNonParticipant(t *testing.T) {
	if _, _, act := forfeitOutcome(activeGame(), 99, false); act {
		t.Error("a deadline for a non-participant must not settle the game")
	}
}

func TestParseMember(t *testing.T) {
	gameID, playerID, ok := parseMember("42:7")
	if !ok || gameID != 42 || playerID != 7 {
		t.Errorf("parseMember(42:7) = %d, %d, %v", gameID, playerID, ok)
	}
	for _, bad := range []string{"", "42", "x:y", ":7"} {
		if _, _, ok := parseMember(bad); ok {
			t.Errorf("parseMember(%q) accepted malformed member", bad)
		}
	}
}
