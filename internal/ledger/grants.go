package ledger

import (
	"time"

	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/recorder"
	"ZucchiniBot/internal/settlement"
)

// Grant is the result of a successful grant claim. Amount may be 0 for a
// probabilistic grant whose draw was refused; the cooldown is still spent.
type Grant struct {
	Kind    model.GrantKind
	Amount  int64
	Balance int64
	NextAt  time.Time
}

// TryClaimGrant credits a grant of the given kind when now is at least one
// period past the user's last claim of that kind. Otherwise it fails with
// StillOnCooldown carrying the remaining wait.
func (l *Ledger) TryClaimGrant(id model.UserID, kind model.GrantKind, now time.Time) (Grant, error) {
	cfg, ok := l.grants[kind]
	if !ok {
		return Grant{}, newError(CodeInvalidChoice, "unknown grant kind "+string(kind))
	}

	l.mu.Lock()
	a, _ := l.accountLocked(id)
	if last, claimed := a.Cooldowns[kind]; claimed {
		if elapsed := now.Sub(last); elapsed < cfg.Period {
			l.mu.Unlock()
			return Grant{}, cooldownError(cfg.Period - elapsed)
		}
	}

	amount := settlement.GrantDraw(l.src, cfg.Rule)
	a.Cooldowns[kind] = now
	a.Balance += amount
	a.Stats.GrantsClaimed[kind]++
	g := Grant{Kind: kind, Amount: amount, Balance: a.Balance, NextAt: now.Add(cfg.Period)}
	l.saveLocked()
	l.mu.Unlock()

	l.record("grant", func() error {
		return l.rec.RecordGrant(&recorder.GrantEvent{UserID: id, Kind: kind, Amount: amount})
	})
	return g, nil
}

// TransferResult is the outcome of a donation.
type TransferResult struct {
	Amount      int64
	FromBalance int64
	ToBalance   int64
}

// Transfer moves amount from one account to another in a single critical section.
func (l *Ledger) Transfer(from, to model.UserID, amount int64) (TransferResult, error) {
	if from == to {
		return TransferResult{}, ErrSelfTransfer
	}
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	fromBal, err := l.debitLocked(from, amount)
	if err != nil {
		l.mu.Unlock()
		return TransferResult{}, err
	}
	toBal := l.creditLocked(to, amount)
	l.saveLocked()
	l.mu.Unlock()

	l.record("transfer", func() error {
		return l.rec.RecordTransfer(&recorder.TransferEvent{FromID: from, ToID: to, Amount: amount})
	})
	return TransferResult{Amount: amount, FromBalance: fromBal, ToBalance: toBal}, nil
}
