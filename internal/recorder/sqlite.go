package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the audit trail to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lottery_rounds (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			winning_number INTEGER NOT NULL,
			total_pot      INTEGER NOT NULL,
			paid           INTEGER NOT NULL,
			bettors        INTEGER NOT NULL,
			winners        INTEGER NOT NULL,
			refunded       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_ts ON lottery_rounds(timestamp)`,

		`CREATE TABLE IF NOT EXISTS duels (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			escrow_id       TEXT NOT NULL,
			challenger_id   INTEGER NOT NULL,
			defender_id     INTEGER NOT NULL,
			stake           INTEGER NOT NULL,
			challenger_roll INTEGER,
			defender_roll   INTEGER,
			winner          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_duels_ts ON duels(timestamp)`,

		`CREATE TABLE IF NOT EXISTS coinflips (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			escrow_id TEXT NOT NULL,
			owner_id  INTEGER NOT NULL,
			stake     INTEGER NOT NULL,
			choice    TEXT,
			result    TEXT,
			won       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_coinflips_ts ON coinflips(timestamp)`,

		`CREATE TABLE IF NOT EXISTS grants (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			user_id   INTEGER NOT NULL,
			kind      TEXT NOT NULL,
			amount    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grants_user ON grants(user_id)`,

		`CREATE TABLE IF NOT EXISTS transfers (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			from_id   INTEGER NOT NULL,
			to_id     INTEGER NOT NULL,
			amount    INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS escrow_returns (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			escrow_id TEXT NOT NULL,
			kind      TEXT NOT NULL,
			owner_id  INTEGER NOT NULL,
			stake     INTEGER NOT NULL,
			reason    TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRound(evt *RoundEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO lottery_rounds
		(timestamp, winning_number, total_pot, paid, bettors, winners, refunded)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.WinningNumber, evt.TotalPot, evt.Paid,
		evt.Bettors, evt.Winners, evt.Refunded,
	)
	return err
}

func (r *SQLiteRecorder) RecordDuel(evt *DuelEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO duels
		(timestamp, escrow_id, challenger_id, defender_id, stake, challenger_roll, defender_roll, winner)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.EscrowID, int64(evt.ChallengerID), int64(evt.DefenderID),
		evt.Stake, evt.ChallengerRoll, evt.DefenderRoll, evt.Winner,
	)
	return err
}

func (r *SQLiteRecorder) RecordCoinflip(evt *CoinflipEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO coinflips
		(timestamp, escrow_id, owner_id, stake, choice, result, won)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.EscrowID, int64(evt.OwnerID), evt.Stake,
		string(evt.Choice), string(evt.Result), evt.Won,
	)
	return err
}

func (r *SQLiteRecorder) RecordGrant(evt *GrantEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO grants (timestamp, user_id, kind, amount) VALUES (?,?,?,?)`,
		time.Now().Unix(), int64(evt.UserID), string(evt.Kind), evt.Amount,
	)
	return err
}

func (r *SQLiteRecorder) RecordTransfer(evt *TransferEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO transfers (timestamp, from_id, to_id, amount) VALUES (?,?,?,?)`,
		time.Now().Unix(), int64(evt.FromID), int64(evt.ToID), evt.Amount,
	)
	return err
}

func (r *SQLiteRecorder) RecordEscrowReturn(evt *EscrowEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO escrow_returns
		(timestamp, escrow_id, kind, owner_id, stake, reason)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.EscrowID, evt.Kind, int64(evt.OwnerID), evt.Stake, evt.Reason,
	)
	return err
}

// RoundCount returns how many lottery rounds have been recorded.
func (r *SQLiteRecorder) RoundCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM lottery_rounds`).Scan(&n)
	return n, err
}

// GrantTotal sums every grant amount recorded for a user.
func (r *SQLiteRecorder) GrantTotal(userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	err := r.db.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM grants WHERE user_id = ?`, userID).Scan(&total)
	return total, err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
