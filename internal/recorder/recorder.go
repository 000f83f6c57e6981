package recorder

import "ZucchiniBot/internal/model"

// RoundEvent holds the outcome of one settled lottery round.
type RoundEvent struct {
	WinningNumber int
	TotalPot      int64
	Paid          int64
	Bettors       int
	Winners       int
	Refunded      bool
}

// DuelEvent records a resolved duel.
type DuelEvent struct {
	EscrowID       string
	ChallengerID   model.UserID
	DefenderID     model.UserID
	Stake          int64
	ChallengerRoll int
	DefenderRoll   int
	Winner         string // "challenger", "defender" or "tie"
}

// CoinflipEvent records a resolved coinflip.
type CoinflipEvent struct {
	EscrowID string
	OwnerID  model.UserID
	Stake    int64
	Choice   model.CoinSide
	Result   model.CoinSide
	Won      bool
}

// GrantEvent records a claimed grant.
type GrantEvent struct {
	UserID model.UserID
	Kind   model.GrantKind
	Amount int64
}

// TransferEvent records a donation between users.
type TransferEvent struct {
	FromID model.UserID
	ToID   model.UserID
	Amount int64
}

// EscrowEvent records an escrow returned to its owner without resolution.
type EscrowEvent struct {
	EscrowID string
	Kind     string // "DUEL" or "COINFLIP"
	OwnerID  model.UserID
	Stake    int64
	Reason   string // "CANCELLED" or "EXPIRED"
}

// Recorder persists an audit trail of settled wagers and grants.
type Recorder interface {
	RecordRound(evt *RoundEvent) error
	RecordDuel(evt *DuelEvent) error
	RecordCoinflip(evt *CoinflipEvent) error
	RecordGrant(evt *GrantEvent) error
	RecordTransfer(evt *TransferEvent) error
	RecordEscrowReturn(evt *EscrowEvent) error
	Close() error
}
