package bot

import (
	"errors"
	"testing"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10", 10, false},
		{" 25cm", 25, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"tanti", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ledger.ErrInvalidAmount) {
					t.Errorf("err = %v, want InvalidAmount", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("parseAmount(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestParseLottoArgs(t *testing.T) {
	n, amt, err := parseLottoArgs([]string{"7", "100"})
	if err != nil || n != 7 || amt != 100 {
		t.Errorf("got %d %d %v", n, amt, err)
	}

	// Out-of-range numbers pass through; the ledger rejects them.
	if n, _, err := parseLottoArgs([]string{"42", "1"}); err != nil || n != 42 {
		t.Errorf("got %d %v", n, err)
	}
	if _, _, err := parseLottoArgs([]string{"sette", "1"}); !errors.Is(err, ledger.ErrInvalidChoice) {
		t.Errorf("non-numeric number err = %v", err)
	}
	if _, _, err := parseLottoArgs([]string{"7", "x"}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("bad amount err = %v", err)
	}
	var usage usageError
	if _, _, err := parseLottoArgs([]string{"7"}); !errors.As(err, &usage) {
		t.Errorf("missing arg err = %v, want usage", err)
	}
}

func TestParseCoinflipArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		amt  int64
		side model.CoinSide
		err  error
	}{
		{"amount then side", []string{"5", "testa"}, 5, model.Heads, nil},
		{"side then amount", []string{"Croce", "8"}, 8, model.Tails, nil},
		{"english side", []string{"3", "tails"}, 3, model.Tails, nil},
		{"bad side", []string{"3", "bordo"}, 0, "", ledger.ErrInvalidChoice},
		{"bad amount", []string{"zero", "testa"}, 0, "", ledger.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amt, side, err := parseCoinflipArgs(tt.args)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil || amt != tt.amt || side != tt.side {
				t.Errorf("got %d %s %v; want %d %s", amt, side, err, tt.amt, tt.side)
			}
		})
	}
}

func TestParseSingleAmount(t *testing.T) {
	if amt, err := parseSingleAmount([]string{"12"}, usageDuel); err != nil || amt != 12 {
		t.Errorf("got %d %v", amt, err)
	}
	var usage usageError
	if _, err := parseSingleAmount(nil, usageDuel); !errors.As(err, &usage) || string(usage) != usageDuel {
		t.Errorf("err = %v, want usage %q", err, usageDuel)
	}
}
