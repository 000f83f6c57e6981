// Package settlement holds the pure outcome algorithms for lottery rounds,
// duels, coinflips and grants. Nothing here touches shared state; callers
// apply the returned deltas under the ledger lock.
package settlement

import (
	"math/bits"

	"ZucchiniBot/internal/model"
)

const (
	MinNumber   = 1
	MaxNumber   = 10
	HistorySize = 5
)

// DrawResult is the outcome of one lottery draw.
type DrawResult struct {
	WinningNumber int
	TotalPot      int64
	TotalWinning  int64
	Payouts       map[model.UserID]int64 // credit per bettor; losers are present with 0
	Refunded      bool
}

// DrawNumber picks the winning number uniformly from [MinNumber, MaxNumber].
func DrawNumber(src Source) int {
	return roll(src, MaxNumber-MinNumber+1) + MinNumber - 1
}

// ComputePayouts settles bets against a known winning number.
//
// Winners split the whole pot in proportion to their stake, each share
// floored: floor(pot * amount / winningTotal). The floor remainder is not
// redistributed. With no winning stake every bettor gets their own stake back.
func ComputePayouts(bets map[model.UserID]model.Bet, winning int) DrawResult {
	res := DrawResult{
		WinningNumber: winning,
		Payouts:       make(map[model.UserID]int64, len(bets)),
	}
	for _, b := range bets {
		res.TotalPot += b.Amount
		if b.Number == winning {
			res.TotalWinning += b.Amount
		}
	}

	if res.TotalWinning == 0 {
		res.Refunded = true
		for id, b := range bets {
			res.Payouts[id] = b.Amount
		}
		return res
	}

	for id, b := range bets {
		if b.Number != winning {
			res.Payouts[id] = 0
			continue
		}
		res.Payouts[id] = share(res.TotalPot, b.Amount, res.TotalWinning)
	}
	return res
}

// share returns floor(pot * amount / total) without overflowing the
// intermediate product. It requires 0 <= amount <= total, so the quotient
// never exceeds pot.
func share(pot, amount, total int64) int64 {
	hi, lo := bits.Mul64(uint64(pot), uint64(amount))
	q, _ := bits.Div64(hi, lo, uint64(total))
	return int64(q)
}

// DrawLottery draws a number and computes the payouts for it.
func DrawLottery(src Source, bets map[model.UserID]model.Bet) DrawResult {
	return ComputePayouts(bets, DrawNumber(src))
}

// AppendHistory appends n and keeps only the newest HistorySize entries.
// The input slice is never modified.
func AppendHistory(history []int, n int) []int {
	out := make([]int, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, n)
	if len(out) > HistorySize {
		out = out[len(out)-HistorySize:]
	}
	return out
}

// ValidNumber reports whether n can be bet on.
func ValidNumber(n int) bool {
	return n >= MinNumber && n <= MaxNumber
}
