package settlement

import "github.com/skilledgame/backend/internal/models"

// Payout math in integer Skilled Coins. The pot for a game is twice the
// wager; the house keeps feePercent of the pot.

// WinnerPayout returns what the winner receives: wager * (2 - fee), floored.
// With the default 10% fee a 100-coin wager pays 190.
func WinnerPayout(wager int64, feePercent int) int64 {
	return wager * int64(200-feePercent) / 100
}

// DrawRefund returns what each player receives on a draw: half of the
// after-fee pot, floored. With the default 10% fee a 100-coin wager refunds
// 95 to each player.
func DrawRefund(wager int64, feePercent int) int64 {
	return wager * int64(200-feePercent) / 200
}

// HouseFee returns the house remainder after paying out. paidOut is the sum
// of all player credits; stakedTotal is the sum of all stakes actually
// debited at lock time. The result can be negative when the house covered a
// fee-exempt stake.
func HouseFee(stakedTotal, paidOut int64) int64 {
	return stakedTotal - paidOut
}

// recordedAmounts recovers the figures a finished game paid out, given its
// locked stake. A recorded winner received the winner payout; finished
// without a winner means the pot was split as draw refunds.
func recordedAmounts(game *models.Game, wager int64, feePercent int) (winnerPayout, drawRefund int64) {
	if game.WinnerID.Valid {
		return WinnerPayout(wager, feePercent), 0
	}
	return 0, DrawRefund(wager, feePercent)
}
