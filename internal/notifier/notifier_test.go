package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/settlement"

	"gopkg.in/telebot.v3"
)

type fakeSender struct {
	fails int
	sent  []string
	to    []string
}

func (f *fakeSender) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	if f.fails > 0 {
		f.fails--
		return nil, errors.New("429 too many requests")
	}
	f.sent = append(f.sent, what.(string))
	f.to = append(f.to, to.Recipient())
	return &telebot.Message{}, nil
}

func TestSendWithRetry_RecoversAfterFailures(t *testing.T) {
	fs := &fakeSender{fails: 2}
	n := NewTelegramNotifier(fs, "-100123")
	n.Backoff = time.Millisecond

	if err := n.SendWithRetry(context.Background(), "ciao", 3); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	if len(fs.sent) != 1 || fs.to[0] != "-100123" {
		t.Errorf("sent = %v to %v", fs.sent, fs.to)
	}
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	fs := &fakeSender{fails: 10}
	n := NewTelegramNotifier(fs, "@zucchine")
	n.Backoff = time.Millisecond

	err := n.SendWithRetry(context.Background(), "ciao", 2)
	if err == nil || !strings.Contains(err.Error(), "all 3 retries exhausted") {
		t.Errorf("err = %v", err)
	}
	if fs.fails != 7 {
		t.Errorf("attempts = %d, want 3", 10-fs.fails)
	}
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	fs := &fakeSender{fails: 10}
	n := NewTelegramNotifier(fs, "1")
	n.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.SendWithRetry(ctx, "ciao", 3); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRoundSettled_PostsToChat(t *testing.T) {
	fs := &fakeSender{}
	n := NewTelegramNotifier(fs, "@zucchine")
	s := model.RoundSettlement{
		WinningNumber: 7,
		TotalPot:      180,
		Deltas:        map[model.UserID]int64{1: 120, 2: 60, 3: 0},
		History:       []int{2, 7},
		NextDrawAt:    time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	if err := n.RoundSettled(context.Background(), s); err != nil {
		t.Fatalf("RoundSettled: %v", err)
	}
	if len(fs.sent) != 1 || fs.to[0] != "@zucchine" {
		t.Fatalf("sent = %v to %v", fs.sent, fs.to)
	}
}

func TestFormatRoundResult_WinnersSortedByPayout(t *testing.T) {
	s := &model.RoundSettlement{
		WinningNumber: 7,
		TotalPot:      180,
		Deltas:        map[model.UserID]int64{2: 60, 1: 120, 3: 0},
		History:       []int{4, 7},
		NextDrawAt:    time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	msg := FormatRoundResult(s)

	if !strings.Contains(msg, "Numero estratto: <b>7</b>") {
		t.Errorf("missing winning number:\n%s", msg)
	}
	first := strings.Index(msg, UserLink(1))
	second := strings.Index(msg, UserLink(2))
	if first < 0 || second < 0 || first > second {
		t.Errorf("winners not ordered by payout:\n%s", msg)
	}
	if strings.Contains(msg, UserLink(3)) {
		t.Errorf("loser listed among winners:\n%s", msg)
	}
	if !strings.Contains(msg, "4 · 7") {
		t.Errorf("missing history:\n%s", msg)
	}
}

func TestFormatRoundResult_Refund(t *testing.T) {
	s := &model.RoundSettlement{
		WinningNumber: 5,
		TotalPot:      10,
		Deltas:        map[model.UserID]int64{1: 10},
		Refunded:      true,
	}
	msg := FormatRoundResult(s)
	if !strings.Contains(msg, "Nessun vincitore") || !strings.Contains(msg, "rimborso 10cm") {
		t.Errorf("unexpected refund message:\n%s", msg)
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ledger.ErrInsufficientFunds, "abbastanza"},
		{ledger.ErrConflictingNumber, "altro numero"},
		{ledger.ErrEscrowNotFound, "non è più disponibile"},
		{ledger.ErrAlreadyResolved, "non è più disponibile"},
		{&ledger.Error{Code: ledger.CodeStillOnCooldown, Remaining: 90 * time.Minute}, "1h 30m"},
		{errors.New("boom"), "storto"},
	}
	for _, tt := range tests {
		if got := FormatError(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("FormatError(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{23 * time.Hour, "23h 0m"},
		{5*time.Minute + 3*time.Second, "5m 3s"},
		{1500 * time.Millisecond, "2s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatDuelResult(t *testing.T) {
	r := ledger.DuelResult{
		Duel:       model.DuelEscrow{ChallengerID: 1, Stake: 30},
		DefenderID: 2,
		Outcome:    settlement.DuelOutcome{ChallengerRoll: 4, DefenderRoll: 18, Winner: settlement.Defender},
	}
	msg := FormatDuelResult(r)
	if !strings.Contains(msg, "Vince "+UserLink(2)) || !strings.Contains(msg, "60cm") {
		t.Errorf("unexpected duel message:\n%s", msg)
	}

	r.Outcome.Winner = settlement.Tie
	if msg := FormatDuelResult(r); !strings.Contains(msg, "Pareggio") {
		t.Errorf("tie not reported:\n%s", msg)
	}
}

func TestFormatGrant(t *testing.T) {
	msg := FormatGrant(ledger.Grant{Kind: model.GrantDaily, Amount: 8, Balance: 28})
	if !strings.Contains(msg, "Razione giornaliera") || !strings.Contains(msg, "28cm") {
		t.Errorf("unexpected grant message: %s", msg)
	}
	refused := FormatGrant(ledger.Grant{Kind: model.GrantHourly, NextAt: time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)})
	if !strings.Contains(refused, "rifiutata") {
		t.Errorf("unexpected refusal message: %s", refused)
	}
}

func TestFormatTicket_LockedRound(t *testing.T) {
	st := ledger.LotteryStatus{Status: model.RoundOpen, EndTime: time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), Pot: 5, Bettors: 1}
	open := FormatTicket(model.Bet{Number: 3, Amount: 5}, true, st)
	if !strings.Contains(open, "Numero: 3") || strings.Contains(open, "in corso") {
		t.Errorf("open ticket = %q", open)
	}

	st.Status = model.RoundLocked
	st.LockedPot = 40
	locked := FormatTicket(model.Bet{}, false, st)
	if !strings.Contains(locked, "Nessuna puntata") || !strings.Contains(locked, "40cm") {
		t.Errorf("locked ticket = %q", locked)
	}
}
