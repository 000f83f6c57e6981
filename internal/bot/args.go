package bot

import (
	"strconv"
	"strings"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
)

// usageError means the command had the wrong shape; it carries the usage line.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

const (
	usageLotto    = "/superenalotto <numero 1-10> <importo>"
	usageCoinflip = "/coinflip <importo> <testa|croce>"
	usageDuel     = "/duello_pisello <importo>"
	usageDonate   = "/grazie_mosca <importo>, in risposta a un messaggio"
)

// parseAmount reads a positive stake; anything else is InvalidAmount.
func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimSpace(s), "cm"), 10, 64)
	if err != nil || n <= 0 {
		return 0, ledger.ErrInvalidAmount
	}
	return n, nil
}

var sideAliases = map[string]model.CoinSide{
	"testa": model.Heads,
	"heads": model.Heads,
	"t":     model.Heads,
	"h":     model.Heads,
	"croce": model.Tails,
	"tails": model.Tails,
	"c":     model.Tails,
}

func parseSide(s string) (model.CoinSide, error) {
	if side, ok := sideAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return side, nil
	}
	return "", ledger.ErrInvalidChoice
}

// parseLottoArgs reads "<numero> <importo>". Range checks stay in the ledger.
func parseLottoArgs(args []string) (int, int64, error) {
	if len(args) != 2 {
		return 0, 0, usageError(usageLotto)
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, ledger.ErrInvalidChoice
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return 0, 0, err
	}
	return number, amount, nil
}

// parseCoinflipArgs reads "<importo> <testa|croce>" in either order.
func parseCoinflipArgs(args []string) (int64, model.CoinSide, error) {
	if len(args) != 2 {
		return 0, "", usageError(usageCoinflip)
	}
	amountArg, sideArg := args[0], args[1]
	if _, err := parseSide(amountArg); err == nil {
		amountArg, sideArg = sideArg, amountArg
	}
	side, err := parseSide(sideArg)
	if err != nil {
		return 0, "", err
	}
	amount, err := parseAmount(amountArg)
	if err != nil {
		return 0, "", err
	}
	return amount, side, nil
}

// parseSingleAmount reads the only argument of a one-amount command.
func parseSingleAmount(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, usageError(usage)
	}
	return parseAmount(args[0])
}
