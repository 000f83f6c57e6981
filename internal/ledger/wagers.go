package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/recorder"
	"ZucchiniBot/internal/settlement"
)

// PlaceLotteryBet stakes amount on number in the current round and returns
// the user's cumulative stake. A second bet must repeat the same number
// (top-up); a different number fails with ConflictingNumber.
func (l *Ledger) PlaceLotteryBet(id model.UserID, number int, amount int64) (int64, error) {
	if !settlement.ValidNumber(number) {
		return 0, newError(CodeInvalidChoice, fmt.Sprintf("number must be between %d and %d", settlement.MinNumber, settlement.MaxNumber))
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bet, exists := l.state.Lottery.Bets[id]
	if exists && bet.Number != number {
		return bet.Amount, newError(CodeConflictingNumber, fmt.Sprintf("already bet on %d this round", bet.Number))
	}
	if _, err := l.debitLocked(id, amount); err != nil {
		return bet.Amount, err
	}

	bet.Number = number
	bet.Amount += amount
	l.state.Lottery.Bets[id] = bet
	l.state.Accounts[id].Stats.TotalWagered += amount
	l.saveLocked()
	return bet.Amount, nil
}

// OpenDuel escrows the challenger's stake and returns the open duel.
func (l *Ledger) OpenDuel(challenger model.UserID, stake int64) (model.DuelEscrow, error) {
	if stake <= 0 {
		return model.DuelEscrow{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.debitLocked(challenger, stake); err != nil {
		return model.DuelEscrow{}, err
	}
	d := &model.DuelEscrow{
		ID:           uuid.NewString(),
		ChallengerID: challenger,
		Stake:        stake,
		Status:       model.EscrowOpen,
		CreatedAt:    l.now(),
	}
	l.state.Duels[d.ID] = d
	l.state.Accounts[challenger].Stats.TotalWagered += stake
	l.saveLocked()
	return *d, nil
}

// DuelResult is a settled duel.
type DuelResult struct {
	Duel              model.DuelEscrow
	DefenderID        model.UserID
	Outcome           settlement.DuelOutcome
	ChallengerBalance int64
	DefenderBalance   int64
}

// AcceptDuel matches the challenger's stake, rolls the duel and pays the
// whole pot to the winner. A tie returns each stake.
func (l *Ledger) AcceptDuel(escrowID string, defender model.UserID) (DuelResult, error) {
	l.mu.Lock()
	d, ok := l.state.Duels[escrowID]
	if !ok {
		l.mu.Unlock()
		return DuelResult{}, ErrEscrowNotFound
	}
	if d.Status != model.EscrowOpen {
		l.mu.Unlock()
		return DuelResult{}, ErrAlreadyResolved
	}
	if d.ChallengerID == defender {
		l.mu.Unlock()
		return DuelResult{}, ErrSelfAcceptance
	}
	if _, err := l.debitLocked(defender, d.Stake); err != nil {
		l.mu.Unlock()
		return DuelResult{}, err
	}

	out := settlement.ResolveDuel(l.src)
	cPay, dPay := settlement.DuelPayout(d.Stake, out.Winner)
	res := DuelResult{
		DefenderID:        defender,
		Outcome:           out,
		ChallengerBalance: l.creditLocked(d.ChallengerID, cPay),
		DefenderBalance:   l.creditLocked(defender, dPay),
	}

	challenger := l.state.Accounts[d.ChallengerID]
	def := l.state.Accounts[defender]
	def.Stats.TotalWagered += d.Stake
	switch out.Winner {
	case settlement.Challenger:
		challenger.Stats.Won++
		def.Stats.Lost++
	case settlement.Defender:
		def.Stats.Won++
		challenger.Stats.Lost++
	}

	d.Status = model.EscrowResolved
	res.Duel = *d
	delete(l.state.Duels, escrowID)
	l.saveLocked()
	l.mu.Unlock()

	l.record("duel", func() error {
		return l.rec.RecordDuel(&recorder.DuelEvent{
			EscrowID:       escrowID,
			ChallengerID:   d.ChallengerID,
			DefenderID:     defender,
			Stake:          d.Stake,
			ChallengerRoll: out.ChallengerRoll,
			DefenderRoll:   out.DefenderRoll,
			Winner:         string(out.Winner),
		})
	})
	return res, nil
}

// OpenCoinflip escrows a stake on heads or tails against the house.
func (l *Ledger) OpenCoinflip(owner model.UserID, stake int64, choice model.CoinSide) (model.CoinflipEscrow, error) {
	if choice != model.Heads && choice != model.Tails {
		return model.CoinflipEscrow{}, newError(CodeInvalidChoice, "choose heads or tails")
	}
	if stake <= 0 {
		return model.CoinflipEscrow{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.debitLocked(owner, stake); err != nil {
		return model.CoinflipEscrow{}, err
	}
	c := &model.CoinflipEscrow{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Stake:     stake,
		Choice:    choice,
		Status:    model.EscrowOpen,
		CreatedAt: l.now(),
	}
	l.state.Coinflips[c.ID] = c
	l.state.Accounts[owner].Stats.TotalWagered += stake
	l.saveLocked()
	return *c, nil
}

// CoinflipResult is a settled coinflip.
type CoinflipResult struct {
	Coinflip model.CoinflipEscrow
	Outcome  settlement.CoinflipOutcome
	Payout   int64
	Balance  int64
}

// ResolveCoinflip flips the house coin for an open coinflip escrow.
func (l *Ledger) ResolveCoinflip(escrowID string) (CoinflipResult, error) {
	l.mu.Lock()
	c, ok := l.state.Coinflips[escrowID]
	if !ok {
		l.mu.Unlock()
		return CoinflipResult{}, ErrEscrowNotFound
	}
	if c.Status != model.EscrowOpen {
		l.mu.Unlock()
		return CoinflipResult{}, ErrAlreadyResolved
	}

	out := settlement.ResolveCoinflip(l.src, c.Choice)
	payout := settlement.CoinflipPayout(c.Stake, out.Won)
	a, _ := l.accountLocked(c.OwnerID)
	a.Balance += payout
	if out.Won {
		a.Stats.Won++
	} else {
		a.Stats.Lost++
	}

	c.Status = model.EscrowResolved
	res := CoinflipResult{Coinflip: *c, Outcome: out, Payout: payout, Balance: a.Balance}
	delete(l.state.Coinflips, escrowID)
	l.saveLocked()
	l.mu.Unlock()

	l.record("coinflip", func() error {
		return l.rec.RecordCoinflip(&recorder.CoinflipEvent{
			EscrowID: escrowID,
			OwnerID:  c.OwnerID,
			Stake:    c.Stake,
			Choice:   c.Choice,
			Result:   out.Result,
			Won:      out.Won,
		})
	})
	return res, nil
}

// EscrowKind distinguishes duel and coinflip escrows.
type EscrowKind string

const (
	KindDuel     EscrowKind = "DUEL"
	KindCoinflip EscrowKind = "COINFLIP"
)

// Refund describes an escrow returned to its owner unresolved.
type Refund struct {
	EscrowID string
	Kind     EscrowKind
	OwnerID  model.UserID
	Stake    int64
	Balance  int64
}

// EscrowOwner reports who staked an open escrow.
func (l *Ledger) EscrowOwner(escrowID string) (model.UserID, EscrowKind, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if d, ok := l.state.Duels[escrowID]; ok && d.Status == model.EscrowOpen {
		return d.ChallengerID, KindDuel, true
	}
	if c, ok := l.state.Coinflips[escrowID]; ok && c.Status == model.EscrowOpen {
		return c.OwnerID, KindCoinflip, true
	}
	return 0, "", false
}

// Cancel returns an open escrow's stake to its owner and removes it.
func (l *Ledger) Cancel(escrowID string) (Refund, error) {
	l.mu.Lock()
	r, err := l.cancelLocked(escrowID)
	if err == nil {
		l.saveLocked()
	}
	l.mu.Unlock()

	if err != nil {
		return Refund{}, err
	}
	l.recordRefund(r, "CANCELLED")
	return r, nil
}

func (l *Ledger) cancelLocked(escrowID string) (Refund, error) {
	if d, ok := l.state.Duels[escrowID]; ok {
		if d.Status != model.EscrowOpen {
			return Refund{}, ErrAlreadyResolved
		}
		delete(l.state.Duels, escrowID)
		return Refund{
			EscrowID: escrowID,
			Kind:     KindDuel,
			OwnerID:  d.ChallengerID,
			Stake:    d.Stake,
			Balance:  l.creditLocked(d.ChallengerID, d.Stake),
		}, nil
	}
	if c, ok := l.state.Coinflips[escrowID]; ok {
		if c.Status != model.EscrowOpen {
			return Refund{}, ErrAlreadyResolved
		}
		delete(l.state.Coinflips, escrowID)
		return Refund{
			EscrowID: escrowID,
			Kind:     KindCoinflip,
			OwnerID:  c.OwnerID,
			Stake:    c.Stake,
			Balance:  l.creditLocked(c.OwnerID, c.Stake),
		}, nil
	}
	return Refund{}, ErrEscrowNotFound
}

// ExpireEscrows refunds every open escrow created before cutoff.
func (l *Ledger) ExpireEscrows(cutoff time.Time) []Refund {
	l.mu.Lock()
	var ids []string
	for id, d := range l.state.Duels {
		if d.Status == model.EscrowOpen && d.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	for id, c := range l.state.Coinflips {
		if c.Status == model.EscrowOpen && c.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	var refunds []Refund
	for _, id := range ids {
		if r, err := l.cancelLocked(id); err == nil {
			refunds = append(refunds, r)
		}
	}
	if len(refunds) > 0 {
		l.saveLocked()
	}
	l.mu.Unlock()

	for _, r := range refunds {
		l.recordRefund(r, "EXPIRED")
	}
	return refunds
}

func (l *Ledger) recordRefund(r Refund, reason string) {
	l.record("escrow return", func() error {
		return l.rec.RecordEscrowReturn(&recorder.EscrowEvent{
			EscrowID: r.EscrowID,
			Kind:     string(r.Kind),
			OwnerID:  r.OwnerID,
			Stake:    r.Stake,
			Reason:   reason,
		})
	})
}
