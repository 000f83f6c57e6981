package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
)

type memStore struct{}

func (memStore) Load() (*model.LedgerState, error) {
	s := &model.LedgerState{}
	s.Normalize()
	return s, nil
}

func (memStore) Save(_ *model.LedgerState) error { return nil }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fixedSource always draws the same value; fail makes the next draws panic.
type fixedSource struct {
	mu   sync.Mutex
	v    int
	fail int
}

func (f *fixedSource) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		panic("entropy unavailable")
	}
	return f.v % n
}

func (f *fixedSource) Float64() float64 { return 0 }

type recordingNotifier struct {
	mu      sync.Mutex
	rounds  []model.RoundSettlement
	expired []ledger.Refund
	err     error
}

func (r *recordingNotifier) RoundSettled(_ context.Context, s model.RoundSettlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, s)
	return r.err
}

func (r *recordingNotifier) EscrowsExpired(_ context.Context, refunds []ledger.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, refunds...)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rounds)
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clock  *fakeClock
	src    *fixedSource
	ledger *ledger.Ledger
	notif  *recordingNotifier
	sched  *RoundScheduler
}

func newFixture(t *testing.T, timing Timing) *fixture {
	t.Helper()
	f := &fixture{
		clock: &fakeClock{t: epoch},
		src:   &fixedSource{v: 6}, // draws 7
		notif: &recordingNotifier{},
	}
	l, err := ledger.New(memStore{}, ledger.Options{
		RoundInterval: time.Hour,
		Now:           f.clock.Now,
		Source:        f.src,
	})
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	f.ledger = l
	f.sched = NewRoundScheduler(context.Background(), l, f.notif, f.src, timing)
	return f
}

func (f *fixture) bet(t *testing.T, id model.UserID, number int, amount int64) {
	t.Helper()
	if _, err := f.ledger.Credit(id, amount); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := f.ledger.PlaceLotteryBet(id, number, amount); err != nil {
		t.Fatalf("PlaceLotteryBet: %v", err)
	}
}

func (f *fixture) balance(id model.UserID) int64 {
	a, _ := f.ledger.Account(id)
	return a.Balance
}

func TestTick_NothingBeforeEndTime(t *testing.T) {
	f := newFixture(t, Timing{})
	f.bet(t, 1, 7, 10)

	f.clock.Advance(30 * time.Minute)
	f.sched.Tick()

	if f.notif.count() != 0 {
		t.Error("notified before the round was due")
	}
	if _, ok := f.ledger.LotteryBet(1); !ok {
		t.Error("bet cleared before the round was due")
	}
}

func TestTick_SettlesDueRound(t *testing.T) {
	f := newFixture(t, Timing{})
	f.bet(t, 1, 7, 100)
	f.bet(t, 2, 7, 50)
	f.bet(t, 3, 3, 30)

	f.clock.Advance(time.Hour)
	f.sched.Tick()

	if f.notif.count() != 1 {
		t.Fatalf("notifications = %d, want 1", f.notif.count())
	}
	got := f.notif.rounds[0]
	if got.WinningNumber != 7 || got.Deltas[1] != 120 || got.Deltas[2] != 60 || got.Deltas[3] != 0 {
		t.Errorf("settlement = %+v", got)
	}
	if !got.NextDrawAt.Equal(epoch.Add(2 * time.Hour)) {
		t.Errorf("NextDrawAt = %v", got.NextDrawAt)
	}
	if f.balance(1) != 120 || f.balance(2) != 60 || f.balance(3) != 0 {
		t.Errorf("balances = %d/%d/%d", f.balance(1), f.balance(2), f.balance(3))
	}

	// Same instant again: the new round is open, nothing to do.
	f.sched.Tick()
	if f.notif.count() != 1 {
		t.Errorf("round settled twice")
	}
}

func TestTick_EmptyRoundAdvancesWithoutNotice(t *testing.T) {
	f := newFixture(t, Timing{})

	f.clock.Advance(time.Hour)
	f.sched.Tick()

	if f.notif.count() != 0 {
		t.Error("empty round was announced")
	}
	st := f.ledger.LotteryStatus()
	if !st.EndTime.Equal(epoch.Add(2 * time.Hour)) {
		t.Errorf("EndTime = %v, want %v", st.EndTime, epoch.Add(2*time.Hour))
	}
	if len(st.History) != 0 {
		t.Errorf("history = %v, want empty", st.History)
	}
}

func TestTick_FailedSettlementBacksOff(t *testing.T) {
	f := newFixture(t, Timing{RetryBackoff: 30 * time.Second, MaxBackoff: time.Minute})
	f.bet(t, 1, 7, 10)
	f.bet(t, 2, 2, 10)
	f.src.fail = 2

	f.clock.Advance(time.Hour)
	f.sched.Tick()
	if !f.sched.Pending() || f.notif.count() != 0 {
		t.Fatal("failed settlement should stay pending and unannounced")
	}
	if f.balance(1) != 0 {
		t.Errorf("balance credited by failed settlement: %d", f.balance(1))
	}

	// Inside the backoff window nothing is retried.
	f.clock.Advance(10 * time.Second)
	f.sched.Tick()
	if f.src.fail != 1 {
		t.Fatalf("retried before backoff elapsed (fail = %d)", f.src.fail)
	}

	f.clock.Advance(20 * time.Second)
	f.sched.Tick() // second failure, backoff doubles to 1m
	if !f.sched.Pending() {
		t.Fatal("round should still be pending")
	}

	f.clock.Advance(59 * time.Second)
	f.sched.Tick()
	if f.notif.count() != 0 {
		t.Fatal("retried before doubled backoff elapsed")
	}

	f.clock.Advance(time.Second)
	f.sched.Tick()
	if f.sched.Pending() {
		t.Fatal("round still pending after successful retry")
	}
	if f.notif.count() != 1 {
		t.Fatalf("notifications = %d, want 1", f.notif.count())
	}
	if f.balance(1) != 20 || f.balance(2) != 0 {
		t.Errorf("balances = %d/%d, want 20/0", f.balance(1), f.balance(2))
	}
}

func TestTick_NotifyFailureKeepsSettlement(t *testing.T) {
	f := newFixture(t, Timing{})
	f.notif.err = errors.New("telegram down")
	f.bet(t, 1, 7, 10)

	f.clock.Advance(time.Hour)
	f.sched.Tick()

	if f.balance(1) != 10 {
		t.Errorf("balance = %d, want 10", f.balance(1))
	}
	if f.sched.Pending() {
		t.Error("notify failure left the round pending")
	}
}

func TestTick_ExpiresStaleEscrows(t *testing.T) {
	f := newFixture(t, Timing{EscrowTTL: 10 * time.Minute})
	if _, err := f.ledger.Credit(1, 10); err != nil {
		t.Fatal(err)
	}
	d, err := f.ledger.OpenDuel(1, 10)
	if err != nil {
		t.Fatalf("OpenDuel: %v", err)
	}

	f.clock.Advance(5 * time.Minute)
	f.sched.Tick()
	if f.balance(1) != 0 {
		t.Fatal("escrow expired early")
	}

	f.clock.Advance(6 * time.Minute)
	f.sched.Tick()
	if f.balance(1) != 10 {
		t.Errorf("balance = %d, want 10", f.balance(1))
	}
	if len(f.notif.expired) != 1 || f.notif.expired[0].EscrowID != d.ID {
		t.Errorf("expired = %+v", f.notif.expired)
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, Timing{Tick: time.Second})
	f.sched.Start()
	if len(f.sched.Cron.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(f.sched.Cron.Entries()))
	}
	f.sched.Stop()
}

func TestTick_ResumesLockedRound(t *testing.T) {
	f := newFixture(t, Timing{})
	f.bet(t, 1, 7, 10)
	f.bet(t, 2, 3, 10)

	// A previous process closed the round and stopped before the draw.
	f.clock.Advance(time.Hour)
	if _, due := f.ledger.CloseRoundIfDue(f.clock.Now()); !due {
		t.Fatal("round not due")
	}
	if st := f.ledger.LotteryStatus(); st.Status != model.RoundLocked {
		t.Fatalf("status = %s, want locked", st.Status)
	}

	restarted := NewRoundScheduler(context.Background(), f.ledger, f.notif, f.src, Timing{})
	restarted.Tick()

	if f.notif.count() != 1 {
		t.Fatalf("notifications = %d, want 1", f.notif.count())
	}
	if got := f.balance(1); got != 20 {
		t.Errorf("winner balance = %d, want 20", got)
	}
	if st := f.ledger.LotteryStatus(); st.Status != model.RoundOpen || st.LockedPot != 0 {
		t.Errorf("status after resume = %+v", st)
	}
}
