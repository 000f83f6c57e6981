package model

import "time"

// UserID identifies a chat user. It is the Telegram user id.
type UserID int64

// GrantKind names a periodic free grant.
type GrantKind string

const (
	GrantDaily  GrantKind = "daily"
	GrantHourly GrantKind = "hourly"
	GrantBread  GrantKind = "bread"
)

// GrantKinds lists every known grant kind in display order.
var GrantKinds = []GrantKind{GrantDaily, GrantHourly, GrantBread}

// Stats are observational counters. Engine logic never reads them.
type Stats struct {
	GrantsClaimed map[GrantKind]int `json:"grants_claimed"`
	Won           int               `json:"won"`
	Lost          int               `json:"lost"`
	TotalWagered  int64             `json:"bet_total"`
}

// Account holds one user's balance, grant cooldowns and stats.
type Account struct {
	Balance   int64                   `json:"length"`
	Cooldowns map[GrantKind]time.Time `json:"cooldowns"`
	Stats     Stats                   `json:"stats"`
}

// NewAccount returns an account with the given balance and zeroed cooldowns/stats.
func NewAccount(balance int64) *Account {
	return &Account{
		Balance:   balance,
		Cooldowns: make(map[GrantKind]time.Time),
		Stats:     Stats{GrantsClaimed: make(map[GrantKind]int)},
	}
}

// Clone returns a deep copy safe to hand out after the ledger lock is released.
func (a *Account) Clone() Account {
	c := Account{
		Balance:   a.Balance,
		Cooldowns: make(map[GrantKind]time.Time, len(a.Cooldowns)),
		Stats:     a.Stats,
	}
	for k, v := range a.Cooldowns {
		c.Cooldowns[k] = v
	}
	c.Stats.GrantsClaimed = make(map[GrantKind]int, len(a.Stats.GrantsClaimed))
	for k, v := range a.Stats.GrantsClaimed {
		c.Stats.GrantsClaimed[k] = v
	}
	return c
}

// Bet is one user's stake on a lottery number.
type Bet struct {
	Number int   `json:"number"`
	Amount int64 `json:"amount"`
}

// LotteryRound is the currently open lottery cycle. Locked holds the
// previous round's bets from close until its settlement is applied.
type LotteryRound struct {
	Bets    map[UserID]Bet `json:"bets"`
	History []int          `json:"history"`
	EndTime time.Time      `json:"end_time"`
	Locked  *LockedRound   `json:"locked,omitempty"`
}

// LockedRound is a closed round waiting for its draw.
type LockedRound struct {
	Bets     map[UserID]Bet `json:"bets"`
	ClosedAt time.Time      `json:"closed_at"`
}

// EscrowStatus tracks whether a duel or coinflip stake is still pending.
type EscrowStatus string

const (
	EscrowOpen     EscrowStatus = "open"
	EscrowResolved EscrowStatus = "resolved"
)

// DuelEscrow is a challenger's stake waiting for a defender.
type DuelEscrow struct {
	ID           string       `json:"id"`
	ChallengerID UserID       `json:"challenger_id"`
	Stake        int64        `json:"stake"`
	Status       EscrowStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// CoinSide is a coinflip face.
type CoinSide string

const (
	Heads CoinSide = "heads"
	Tails CoinSide = "tails"
)

// CoinflipEscrow is a stake waiting for the house flip.
type CoinflipEscrow struct {
	ID        string       `json:"id"`
	OwnerID   UserID       `json:"owner_id"`
	Stake     int64        `json:"stake"`
	Choice    CoinSide     `json:"choice"`
	Status    EscrowStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// LedgerState is the whole persisted ledger.
type LedgerState struct {
	Accounts  map[UserID]*Account        `json:"users"`
	Duels     map[string]*DuelEscrow     `json:"duels"`
	Coinflips map[string]*CoinflipEscrow `json:"coinflips"`
	Lottery   LotteryRound               `json:"lottery"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// Normalize fills nil maps so a freshly decoded or zero state is usable.
func (s *LedgerState) Normalize() {
	if s.Accounts == nil {
		s.Accounts = make(map[UserID]*Account)
	}
	if s.Duels == nil {
		s.Duels = make(map[string]*DuelEscrow)
	}
	if s.Coinflips == nil {
		s.Coinflips = make(map[string]*CoinflipEscrow)
	}
	if s.Lottery.Locked != nil && s.Lottery.Locked.Bets == nil {
		s.Lottery.Locked.Bets = make(map[UserID]Bet)
	}
	if s.Lottery.Bets == nil {
		s.Lottery.Bets = make(map[UserID]Bet)
	}
	for _, a := range s.Accounts {
		if a.Cooldowns == nil {
			a.Cooldowns = make(map[GrantKind]time.Time)
		}
		if a.Stats.GrantsClaimed == nil {
			a.Stats.GrantsClaimed = make(map[GrantKind]int)
		}
	}
}
