package settlement

import "ZucchiniBot/internal/model"

// DuelDie is the number of faces each duelist rolls.
const DuelDie = 20

// DuelWinner names the side that takes the pot.
type DuelWinner string

const (
	Challenger DuelWinner = "challenger"
	Defender   DuelWinner = "defender"
	Tie        DuelWinner = "tie"
)

// DuelOutcome records both rolls and who won.
type DuelOutcome struct {
	ChallengerRoll int
	DefenderRoll   int
	Winner         DuelWinner
}

// ResolveDuel rolls 1d20 for each side; higher wins, equal rolls tie.
func ResolveDuel(src Source) DuelOutcome {
	out := DuelOutcome{
		ChallengerRoll: roll(src, DuelDie),
		DefenderRoll:   roll(src, DuelDie),
	}
	switch {
	case out.ChallengerRoll > out.DefenderRoll:
		out.Winner = Challenger
	case out.DefenderRoll > out.ChallengerRoll:
		out.Winner = Defender
	default:
		out.Winner = Tie
	}
	return out
}

// DuelPayout returns what each side is credited from a pot of 2*stake.
func DuelPayout(stake int64, w DuelWinner) (challenger, defender int64) {
	switch w {
	case Challenger:
		return 2 * stake, 0
	case Defender:
		return 0, 2 * stake
	default:
		return stake, stake
	}
}

// CoinflipOutcome is the house flip against a player's call.
type CoinflipOutcome struct {
	Result model.CoinSide
	Won    bool
}

// ResolveCoinflip flips a fair coin; the player wins when it lands on choice.
func ResolveCoinflip(src Source, choice model.CoinSide) CoinflipOutcome {
	result := model.Heads
	if src.Intn(2) == 1 {
		result = model.Tails
	}
	return CoinflipOutcome{Result: result, Won: result == choice}
}

// CoinflipPayout is the credit for a settled flip: 2*stake on a win, nothing on a loss.
func CoinflipPayout(stake int64, won bool) int64 {
	if won {
		return 2 * stake
	}
	return 0
}

// GrantRule configures one grant kind.
// Chance is the probability in [0,1] that a claim pays anything at all.
type GrantRule struct {
	Min    int64
	Max    int64
	Chance float64
}

// GrantDraw decides a grant amount. With probability 1-Chance it returns 0
// (the alms were refused); otherwise a uniform amount in [Min, Max].
func GrantDraw(src Source, rule GrantRule) int64 {
	if rule.Chance < 1 && src.Float64() >= rule.Chance {
		return 0
	}
	if rule.Max <= rule.Min {
		return rule.Min
	}
	return rule.Min + int64(src.Intn(int(rule.Max-rule.Min+1)))
}
