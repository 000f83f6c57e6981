package ledger

import (
	"time"

	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/recorder"
	"ZucchiniBot/internal/settlement"
)

// ClosedRound is the bet snapshot taken when a round locks.
type ClosedRound struct {
	Bets       map[model.UserID]model.Bet
	ClosedAt   time.Time
	NextDrawAt time.Time
}

// Empty reports whether nobody bet in the round.
func (c *ClosedRound) Empty() bool {
	return len(c.Bets) == 0
}

// CloseRoundIfDue locks the current round when now has reached its end time:
// the bets are moved into the persisted locked snapshot, the live round is
// cleared and the next end time is set. It returns false when the round is
// still open or a previously locked round has not been settled yet.
// An empty round only advances the end time and is not kept as locked.
func (l *Ledger) CloseRoundIfDue(now time.Time) (*ClosedRound, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Lottery.Locked != nil || now.Before(l.state.Lottery.EndTime) {
		return nil, false
	}

	closed := &ClosedRound{
		Bets:       l.state.Lottery.Bets,
		ClosedAt:   now,
		NextDrawAt: now.Add(l.roundInterval),
	}
	if !closed.Empty() {
		l.state.Lottery.Locked = &model.LockedRound{Bets: copyBets(closed.Bets), ClosedAt: now}
	}
	l.state.Lottery.Bets = make(map[model.UserID]model.Bet)
	l.state.Lottery.EndTime = closed.NextDrawAt
	l.saveLocked()
	return closed, true
}

// LockedRound returns the round that was closed but not yet settled, for
// example one left behind by a restart between close and settlement.
func (l *Ledger) LockedRound() (*ClosedRound, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lr := l.state.Lottery.Locked
	if lr == nil {
		return nil, false
	}
	return &ClosedRound{
		Bets:       copyBets(lr.Bets),
		ClosedAt:   lr.ClosedAt,
		NextDrawAt: l.state.Lottery.EndTime,
	}, true
}

// ApplySettlement credits a drawn round's payouts and appends the winning
// number to the history. It must be called once per closed round.
func (l *Ledger) ApplySettlement(closed *ClosedRound, res settlement.DrawResult) model.RoundSettlement {
	out := l.applySettlement(closed, res)

	l.record("round", func() error {
		return l.rec.RecordRound(&recorder.RoundEvent{
			WinningNumber: out.WinningNumber,
			TotalPot:      out.TotalPot,
			Paid:          out.Paid(),
			Bettors:       len(out.Bets),
			Winners:       len(out.Winners()),
			Refunded:      out.Refunded,
		})
	})
	return out
}

func (l *Ledger) applySettlement(closed *ClosedRound, res settlement.DrawResult) model.RoundSettlement {
	l.mu.Lock()
	defer l.mu.Unlock()

	deltas := make(map[model.UserID]int64, len(closed.Bets))
	for id := range closed.Bets {
		pay := res.Payouts[id]
		a, _ := l.accountLocked(id)
		a.Balance += pay
		deltas[id] = pay
		if res.Refunded {
			continue
		}
		if pay > 0 {
			a.Stats.Won++
		} else {
			a.Stats.Lost++
		}
	}
	l.state.Lottery.History = settlement.AppendHistory(l.state.Lottery.History, res.WinningNumber)
	l.state.Lottery.Locked = nil
	l.saveLocked()

	return model.RoundSettlement{
		Status:        model.RoundSettled,
		WinningNumber: res.WinningNumber,
		TotalPot:      res.TotalPot,
		Bets:          closed.Bets,
		Deltas:        deltas,
		Refunded:      res.Refunded,
		History:       append([]int(nil), l.state.Lottery.History...),
		NextDrawAt:    l.state.Lottery.EndTime,
		SettledAt:     l.now(),
	}
}

// LotteryBet returns the user's bet in the current round.
func (l *Ledger) LotteryBet(id model.UserID) (model.Bet, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.state.Lottery.Bets[id]
	return b, ok
}

// LotteryStatus summarizes the current round. Status is RoundLocked while
// the previous round awaits its draw; LockedPot is that round's stake.
type LotteryStatus struct {
	Status    model.RoundStatus
	LockedPot int64
	EndTime   time.Time
	Bettors   int
	Pot       int64
	History   []int
}

func (l *Ledger) LotteryStatus() LotteryStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := LotteryStatus{
		Status:  model.RoundOpen,
		EndTime: l.state.Lottery.EndTime,
		Bettors: len(l.state.Lottery.Bets),
		History: append([]int(nil), l.state.Lottery.History...),
	}
	for _, b := range l.state.Lottery.Bets {
		st.Pot += b.Amount
	}
	if lr := l.state.Lottery.Locked; lr != nil {
		st.Status = model.RoundLocked
		for _, b := range lr.Bets {
			st.LockedPot += b.Amount
		}
	}
	return st
}
