package settlement

import (
	"database/sql"
	"testing"

	"github.com/skilledgame/backend/internal/models"
)

func TestWinnerPayoutDefaultFee(t *testing.T) {
	// 10% platform fee: a 100-coin wager pays the winner 190.
	if got := WinnerPayout(100, 10); got != 190 {
		t.Errorf("WinnerPayout(100, 10) = %d, want 190", got)
	}
}

func TestWinnerPayoutFloors(t *testing.T) {
	// 33 * 1.9 = 62.7 -> 62
	if got := WinnerPayout(33, 10); got != 62 {
		t.Errorf("WinnerPayout(33, 10) = %d, want 62", got)
	}
	// Fee 5%: 100 * 1.95 = 195
	if got := WinnerPayout(100, 5); got != 195 {
		t.Errorf("WinnerPayout(100, 5) = %d, want 195", got)
	}
}

func TestWinnerPayoutNeverExceedsPot(t *testing.T) {
	for _, wager := range []int64{1, 7, 50, 100, 999, 100000} {
		for _, fee := range []int{0, 5, 10, 25} {
			payout := WinnerPayout(wager, fee)
			if payout > 2*wager {
				t.Errorf("payout %d exceeds pot %d (wager=%d fee=%d)", payout, 2*wager, wager, fee)
			}
			if payout < wager {
				t.Errorf("payout %d below stake %d (wager=%d fee=%d)", payout, wager, wager, fee)
			}
		}
	}
}

func TestDrawRefund(t *testing.T) {
	// 10% fee: each side of a 100-coin wager gets 95 back.
	if got := DrawRefund(100, 10); got != 95 {
		t.Errorf("DrawRefund(100, 10) = %d, want 95", got)
	}
	// Zero fee refunds the full stake.
	if got := DrawRefund(100, 0); got != 100 {
		t.Errorf("DrawRefund(100, 0) = %d, want 100", got)
	}
}

func TestDrawRefundsNeverExceedPot(t *testing.T) {
	for _, wager := range []int64{1, 3, 99, 500, 12345} {
		for _, fee := range []int{0, 10, 50} {
			refund := DrawRefund(wager, fee)
			if 2*refund > 2*wager {
				t.Errorf("two refunds of %d exceed pot %d (wager=%d fee=%d)", refund, 2*wager, wager, fee)
			}
		}
	}
}

func TestHouseFeeBalances(t *testing.T) {
	// Normal win: both staked 100, winner paid 190, house keeps 10.
	if got := HouseFee(200, 190); got != 10 {
		t.Errorf("HouseFee(200, 190) = %d, want 10", got)
	}
	// Exempt opponent: only 100 staked but winner still paid 190, so the
	// house covers the difference.
	if got := HouseFee(100, 190); got != -90 {
		t.Errorf("HouseFee(100, 190) = %d, want -90", got)
	}
	// Draw: 200 staked, 95 refunded each.
	if got := HouseFee(200, 190); got != 10 {
		t.Errorf("HouseFee draw = %d, want 10", got)
	}
}

func TestRecordedAmountsMatchFirstSettlement(t *testing.T) {
	// A retried settle call must see the same figures the first caller got.
	won := &models.Game{WinnerID: sql.NullInt64{Int64: 3, Valid: true}}
	payout, refund := recordedAmounts(won, 100, 10)
	if payout != WinnerPayout(100, 10) || refund != 0 {
		t.Errorf("recordedAmounts(won) = %d, %d; want %d, 0", payout, refund, WinnerPayout(100, 10))
	}

	drawn := &models.Game{}
	payout, refund = recordedAmounts(drawn, 100, 10)
	if payout != 0 || refund != DrawRefund(100, 10) {
		t.Errorf("recordedAmounts(drawn) = %d, %d; want 0, %d", payout, refund, DrawRefund(100, 10))
	}
}

func TestSettlementConserves(t *testing.T) {
	// Player credits plus the house fee must always equal what was staked.
	for _, wager := range []int64{50, 100, 777, 100000} {
		fee := 10
		staked := 2 * wager

		payout := WinnerPayout(wager, fee)
		if payout+HouseFee(staked, payout) != staked {
			t.Errorf("win settlement does not conserve for wager %d", wager)
		}

		refunds := 2 * DrawRefund(wager, fee)
		if refunds+HouseFee(staked, refunds) != staked {
			t.Errorf("draw settlement does not conserve for wager %d", wager)
		}
	}
}
