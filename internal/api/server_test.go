package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
)

type memStore struct {
	mu   sync.Mutex
	fail bool
}

func (m *memStore) Load() (*model.LedgerState, error) {
	s := &model.LedgerState{}
	s.Normalize()
	return s, nil
}

func (m *memStore) Save(_ *model.LedgerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("read-only filesystem")
	}
	return nil
}

func setup(t *testing.T) (*Server, *ledger.Ledger, *memStore) {
	t.Helper()
	store := &memStore{}
	l, err := ledger.New(store, ledger.Options{})
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	return NewServer(l, ":0"), l, store
}

func get(t *testing.T, s *Server, path string, out interface{}) int {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	s, l, store := setup(t)

	var body map[string]string
	if code := get(t, s, "/health", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", code, body)
	}

	store.mu.Lock()
	store.fail = true
	store.mu.Unlock()
	if _, err := l.Credit(1, 5); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	body = nil
	if code := get(t, s, "/health", &body); code != http.StatusOK || body["status"] != "degraded" {
		t.Errorf("health after save failure = %d %v", code, body)
	}
}

func TestLeaderboard(t *testing.T) {
	s, l, _ := setup(t)
	for id, amt := range map[model.UserID]int64{1: 10, 2: 30, 3: 20} {
		if _, err := l.Credit(id, amt); err != nil {
			t.Fatal(err)
		}
	}

	var rows []standingJSON
	if code := get(t, s, "/leaderboard?n=2", &rows); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(rows) != 2 || rows[0].UserID != 2 || rows[1].UserID != 3 || rows[0].Rank != 1 {
		t.Errorf("rows = %+v", rows)
	}

	if code := get(t, s, "/leaderboard?n=0", nil); code != http.StatusBadRequest {
		t.Errorf("n=0 status = %d, want 400", code)
	}
}

func TestLottery(t *testing.T) {
	s, l, _ := setup(t)
	if _, err := l.Credit(1, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PlaceLotteryBet(1, 4, 6); err != nil {
		t.Fatal(err)
	}

	var body lotteryJSON
	if code := get(t, s, "/lottery", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Status != model.RoundOpen || body.Bettors != 1 || body.Pot != 6 || body.History == nil {
		t.Errorf("lottery = %+v", body)
	}
}

func TestAccount(t *testing.T) {
	s, l, _ := setup(t)
	if _, err := l.Credit(77, 9); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PlaceLotteryBet(77, 2, 4); err != nil {
		t.Fatal(err)
	}

	var body accountJSON
	if code := get(t, s, "/accounts/77", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Balance != 5 || body.Bet == nil || body.Bet.Number != 2 {
		t.Errorf("account = %+v", body)
	}

	if code := get(t, s, "/accounts/404", nil); code != http.StatusNotFound {
		t.Errorf("unknown account status = %d, want 404", code)
	}
	if code := get(t, s, "/accounts/abc", nil); code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", code)
	}
}
