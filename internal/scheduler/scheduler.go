package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/settlement"

	"github.com/robfig/cron/v3"
)

// Notifier receives each settled round. It is called outside the ledger lock
// and after the credits are committed, so a failure never undoes a payout.
type Notifier interface {
	RoundSettled(ctx context.Context, s model.RoundSettlement) error
}

// ExpiryNotifier is optionally implemented by a Notifier to hear about
// escrows refunded by the expiry sweep.
type ExpiryNotifier interface {
	EscrowsExpired(ctx context.Context, refunds []ledger.Refund) error
}

// Timing controls the scheduler cadence.
type Timing struct {
	Tick         time.Duration // how often the round is checked
	RetryBackoff time.Duration // first wait after a failed settlement
	MaxBackoff   time.Duration
	EscrowTTL    time.Duration // 0 disables the expiry sweep
}

// RoundScheduler drives the lottery: Open -> Locked -> Settled -> Open.
type RoundScheduler struct {
	Cron     *cron.Cron
	Ledger   *ledger.Ledger
	Notifier Notifier
	Source   settlement.Source
	Timing   Timing
	Ctx      context.Context

	mu      sync.Mutex
	pending *ledger.ClosedRound
	backoff time.Duration
	retryAt time.Time
}

// NewRoundScheduler creates a scheduler. Jobs run through cron's Recover
// and SkipIfStillRunning wrappers.
func NewRoundScheduler(ctx context.Context, l *ledger.Ledger, n Notifier, src settlement.Source, timing Timing) *RoundScheduler {
	logger := cron.PrintfLogger(log.Default())
	if timing.Tick <= 0 {
		timing.Tick = time.Minute
	}
	if timing.RetryBackoff <= 0 {
		timing.RetryBackoff = 30 * time.Second
	}
	if timing.MaxBackoff < timing.RetryBackoff {
		timing.MaxBackoff = timing.RetryBackoff
	}
	return &RoundScheduler{
		Cron:     cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		Ledger:   l,
		Notifier: n,
		Source:   src,
		Timing:   timing,
		Ctx:      ctx,
	}
}

// Start registers the tick job and starts the cron scheduler.
func (s *RoundScheduler) Start() {
	s.Cron.Schedule(cron.Every(s.Timing.Tick), cron.FuncJob(s.Tick))
	s.Cron.Start()
	log.Printf("[INFO] scheduler started (tick %v, round %v)", s.Timing.Tick, s.Ledger.RoundInterval())
}

// Stop stops the cron scheduler and waits for a running tick to finish.
func (s *RoundScheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Tick runs one scheduler pass: expire stale escrows, then close and settle
// the lottery round if it is due. A round whose settlement fails stays
// pending and is retried once its backoff elapses.
func (s *RoundScheduler) Tick() {
	now := s.Ledger.Now()
	s.expireEscrows(now)

	settled, ok := s.advance(now)
	if !ok {
		return
	}
	log.Printf("[INFO] lottery settled: number %d, pot %d, %d bettors, %d winners",
		settled.WinningNumber, settled.TotalPot, len(settled.Bets), len(settled.Winners()))
	s.notify(settled)
}

func (s *RoundScheduler) advance(now time.Time) (model.RoundSettlement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		if locked, ok := s.Ledger.LockedRound(); ok {
			log.Printf("[INFO] resuming lottery round locked at %s", locked.ClosedAt.Format(time.RFC3339))
			s.pending = locked
		}
	}
	if s.pending == nil {
		closed, due := s.Ledger.CloseRoundIfDue(now)
		if !due {
			return model.RoundSettlement{}, false
		}
		if closed.Empty() {
			log.Printf("[INFO] lottery round closed with no bets, next draw at %s", closed.NextDrawAt.Format(time.RFC3339))
			return model.RoundSettlement{}, false
		}
		s.pending = closed
	} else if now.Before(s.retryAt) {
		return model.RoundSettlement{}, false
	}

	settled, err := s.settle(s.pending)
	if err != nil {
		if s.backoff == 0 {
			s.backoff = s.Timing.RetryBackoff
		} else {
			s.backoff *= 2
		}
		if s.backoff > s.Timing.MaxBackoff {
			s.backoff = s.Timing.MaxBackoff
		}
		s.retryAt = now.Add(s.backoff)
		log.Printf("[ERROR] settle lottery round: %v, retrying in %v", err, s.backoff)
		return model.RoundSettlement{}, false
	}

	s.pending = nil
	s.backoff = 0
	s.retryAt = time.Time{}
	return settled, true
}

// settle draws outside the ledger lock, then applies the result in one
// critical section. A panic in the draw is turned into an error.
func (s *RoundScheduler) settle(closed *ledger.ClosedRound) (out model.RoundSettlement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("draw panicked: %v", r)
		}
	}()
	res := settlement.DrawLottery(s.Source, closed.Bets)
	return s.Ledger.ApplySettlement(closed, res), nil
}

func (s *RoundScheduler) notify(settled model.RoundSettlement) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.RoundSettled(s.Ctx, settled); err != nil {
		log.Printf("[ERROR] send round result: %v", err)
	}
}

func (s *RoundScheduler) expireEscrows(now time.Time) {
	if s.Timing.EscrowTTL <= 0 {
		return
	}
	refunds := s.Ledger.ExpireEscrows(now.Add(-s.Timing.EscrowTTL))
	if len(refunds) == 0 {
		return
	}
	log.Printf("[INFO] expired %d escrows", len(refunds))
	if en, ok := s.Notifier.(ExpiryNotifier); ok {
		if err := en.EscrowsExpired(s.Ctx, refunds); err != nil {
			log.Printf("[ERROR] send expiry notice: %v", err)
		}
	}
}

// Pending reports whether a closed round is waiting for a settlement retry.
func (s *RoundScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}
