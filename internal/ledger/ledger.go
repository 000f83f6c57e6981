// Package ledger owns the shared currency state: account balances, open
// lottery bets and duel/coinflip escrows. A single mutex serializes every
// operation, so each check-then-mutate sequence is one critical section.
package ledger

import (
	"log"
	"sort"
	"sync"
	"time"

	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/recorder"
	"ZucchiniBot/internal/settlement"
)

// GrantConfig is the cooldown and payout rule for one grant kind.
type GrantConfig struct {
	Period time.Duration
	Rule   settlement.GrantRule
}

// Options configures a Ledger. Zero fields fall back to defaults.
type Options struct {
	StartingBalance int64
	Grants          map[model.GrantKind]GrantConfig
	RoundInterval   time.Duration
	Now             func() time.Time
	Source          settlement.Source
	Recorder        recorder.Recorder
}

const defaultRoundInterval = 6 * time.Hour

// Ledger is the process-wide wager ledger.
type Ledger struct {
	mu         sync.Mutex
	state      *model.LedgerState
	store      Persister
	persistErr error

	startingBalance int64
	grants          map[model.GrantKind]GrantConfig
	roundInterval   time.Duration
	now             func() time.Time
	src             settlement.Source
	rec             recorder.Recorder
}

// New creates a Ledger, loading state from store and opening a lottery
// round if none is scheduled.
func New(store Persister, opts Options) (*Ledger, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	state.Normalize()

	l := &Ledger{
		state:           state,
		store:           store,
		startingBalance: opts.StartingBalance,
		grants:          opts.Grants,
		roundInterval:   opts.RoundInterval,
		now:             opts.Now,
		src:             opts.Source,
		rec:             opts.Recorder,
	}
	if l.grants == nil {
		l.grants = make(map[model.GrantKind]GrantConfig)
	}
	if l.roundInterval <= 0 {
		l.roundInterval = defaultRoundInterval
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.src == nil {
		l.src = settlement.NewSource(time.Now().UnixNano())
	}
	if l.rec == nil {
		l.rec = recorder.NewNoopRecorder()
	}

	// Fresh state: the first round ends one interval from now.
	if state.Lottery.EndTime.IsZero() {
		state.Lottery.EndTime = l.now().Add(l.roundInterval)
	}

	if err := store.Save(state); err != nil {
		return nil, persistError(err)
	}
	return l, nil
}

// Now returns the ledger's clock reading.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// RoundInterval is the configured lottery round length.
func (l *Ledger) RoundInterval() time.Duration {
	return l.roundInterval
}

// PersistError returns the last save failure, or nil once a save succeeds again.
func (l *Ledger) PersistError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persistErr
}

// saveLocked persists the state. A failure is logged and remembered but
// never undoes the in-memory mutation. Caller must hold l.mu.
func (l *Ledger) saveLocked() {
	if err := l.store.Save(l.state); err != nil {
		l.persistErr = persistError(err)
		log.Printf("[WARN] failed to save ledger state: %v", err)
		return
	}
	l.persistErr = nil
}

// accountLocked returns the user's account, creating it on first use.
func (l *Ledger) accountLocked(id model.UserID) (*model.Account, bool) {
	if a, ok := l.state.Accounts[id]; ok {
		return a, false
	}
	a := model.NewAccount(l.startingBalance)
	l.state.Accounts[id] = a
	return a, true
}

func (l *Ledger) creditLocked(id model.UserID, amount int64) int64 {
	a, _ := l.accountLocked(id)
	a.Balance += amount
	return a.Balance
}

// debitLocked rejects the debit without touching the balance when funds are short.
func (l *Ledger) debitLocked(id model.UserID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	a, _ := l.accountLocked(id)
	if amount > a.Balance {
		return a.Balance, newError(CodeInsufficientFunds, "insufficient funds")
	}
	a.Balance -= amount
	return a.Balance, nil
}

// GetOrCreate returns a copy of the user's account, creating it with the
// starting balance on first interaction.
func (l *Ledger) GetOrCreate(id model.UserID) model.Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, created := l.accountLocked(id)
	if created {
		l.saveLocked()
	}
	return a.Clone()
}

// Account looks up an account without creating it.
func (l *Ledger) Account(id model.UserID) (model.Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.state.Accounts[id]
	if !ok {
		return model.Account{}, false
	}
	return a.Clone(), true
}

// Credit adds amount to the user's balance and returns the new balance.
func (l *Ledger) Credit(id model.UserID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.creditLocked(id, amount)
	l.saveLocked()
	return bal, nil
}

// Debit subtracts amount from the user's balance. It fails with
// InsufficientFunds, leaving the balance untouched, when amount exceeds it.
func (l *Ledger) Debit(id model.UserID, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, err := l.debitLocked(id, amount)
	if err != nil {
		return bal, err
	}
	l.saveLocked()
	return bal, nil
}

// Standing is one leaderboard row.
type Standing struct {
	UserID  model.UserID
	Balance int64
}

// Leaderboard returns the top n accounts by balance, ties broken by user id.
func (l *Ledger) Leaderboard(n int) []Standing {
	l.mu.Lock()
	rows := make([]Standing, 0, len(l.state.Accounts))
	for id, a := range l.state.Accounts {
		rows = append(rows, Standing{UserID: id, Balance: a.Balance})
	}
	l.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Balance != rows[j].Balance {
			return rows[i].Balance > rows[j].Balance
		}
		return rows[i].UserID < rows[j].UserID
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// Snapshot returns a deep copy of the whole ledger state.
func (l *Ledger) Snapshot() model.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := model.LedgerState{
		Accounts:  make(map[model.UserID]*model.Account, len(l.state.Accounts)),
		Duels:     make(map[string]*model.DuelEscrow, len(l.state.Duels)),
		Coinflips: make(map[string]*model.CoinflipEscrow, len(l.state.Coinflips)),
		Lottery: model.LotteryRound{
			Bets:    copyBets(l.state.Lottery.Bets),
			History: append([]int(nil), l.state.Lottery.History...),
			EndTime: l.state.Lottery.EndTime,
		},
		UpdatedAt: l.state.UpdatedAt,
	}
	if lr := l.state.Lottery.Locked; lr != nil {
		s.Lottery.Locked = &model.LockedRound{Bets: copyBets(lr.Bets), ClosedAt: lr.ClosedAt}
	}
	for id, a := range l.state.Accounts {
		c := a.Clone()
		s.Accounts[id] = &c
	}
	for id, d := range l.state.Duels {
		c := *d
		s.Duels[id] = &c
	}
	for id, cf := range l.state.Coinflips {
		c := *cf
		s.Coinflips[id] = &c
	}
	return s
}

func copyBets(bets map[model.UserID]model.Bet) map[model.UserID]model.Bet {
	out := make(map[model.UserID]model.Bet, len(bets))
	for id, b := range bets {
		out[id] = b
	}
	return out
}

func (l *Ledger) record(what string, fn func() error) {
	if err := fn(); err != nil {
		log.Printf("[WARN] record %s failed: %v", what, err)
	}
}
