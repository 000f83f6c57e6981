package model

import "time"

// RoundStatus is where a lottery round sits in its cycle.
type RoundStatus string

const (
	RoundOpen    RoundStatus = "OPEN"
	RoundLocked  RoundStatus = "LOCKED"
	RoundSettled RoundStatus = "SETTLED"
)

// RoundSettlement is what the scheduler reports once a round's credits are applied.
type RoundSettlement struct {
	Status        RoundStatus
	WinningNumber int
	TotalPot      int64
	Bets          map[UserID]Bet
	Deltas        map[UserID]int64 // credit applied per bettor, 0 for losers
	Refunded      bool
	History       []int
	NextDrawAt    time.Time
	SettledAt     time.Time
}

// Winners returns the ids that received a non-refund payout.
func (r *RoundSettlement) Winners() []UserID {
	if r.Refunded {
		return nil
	}
	var ids []UserID
	for id, d := range r.Deltas {
		if d > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Paid sums every credit applied by the settlement.
func (r *RoundSettlement) Paid() int64 {
	var total int64
	for _, d := range r.Deltas {
		total += d
	}
	return total
}
