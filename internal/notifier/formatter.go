package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/settlement"
)

// UserLink renders a mention that works without a username.
func UserLink(id model.UserID) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%d</a>`, id, id)
}

func cm(n int64) string {
	return fmt.Sprintf("%dcm", n)
}

func sortedIDs(m map[model.UserID]int64) []model.UserID {
	ids := make([]model.UserID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FormatRoundResult formats a settled lottery round for the group chat.
func FormatRoundResult(s *model.RoundSettlement) string {
	var b strings.Builder

	b.WriteString("🎲 <b>ESTRAZIONE SUPERENALOTTO</b> 🎲\n")
	b.WriteString(fmt.Sprintf("Numero estratto: <b>%d</b>\n\n", s.WinningNumber))
	b.WriteString(fmt.Sprintf("Totale scommesse: %s\n", cm(s.TotalPot)))

	if s.Refunded {
		b.WriteString("Nessun vincitore. Rimborso eseguito:\n")
		for _, id := range sortedIDs(s.Deltas) {
			b.WriteString(fmt.Sprintf("%s (rimborso %s)\n", UserLink(id), cm(s.Deltas[id])))
		}
	} else {
		winners := s.Winners()
		sort.Slice(winners, func(i, j int) bool {
			if s.Deltas[winners[i]] != s.Deltas[winners[j]] {
				return s.Deltas[winners[i]] > s.Deltas[winners[j]]
			}
			return winners[i] < winners[j]
		})
		b.WriteString("Vincitori:\n")
		for _, id := range winners {
			b.WriteString(fmt.Sprintf("%s (+%s)\n", UserLink(id), cm(s.Deltas[id])))
		}
	}

	if len(s.History) > 0 {
		nums := make([]string, len(s.History))
		for i, n := range s.History {
			nums[i] = fmt.Sprint(n)
		}
		b.WriteString(fmt.Sprintf("\nUltime estrazioni: %s\n", strings.Join(nums, " · ")))
	}
	b.WriteString(fmt.Sprintf("\nProssima estrazione: %s", s.NextDrawAt.Format("02/01 15:04")))
	return b.String()
}

// FormatLeaderboard formats the top balances.
func FormatLeaderboard(rows []ledger.Standing) string {
	var b strings.Builder
	b.WriteString("🏆 <b>Classifica Zucchine</b> 🏆\n")
	if len(rows) == 0 {
		b.WriteString("Ancora nessun giocatore.")
		return b.String()
	}
	for i, r := range rows {
		b.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, UserLink(r.UserID), cm(r.Balance)))
	}
	return b.String()
}

// FormatBalance shows a user's zucchini and stats.
func FormatBalance(id model.UserID, a model.Account) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🥒 %s: <b>%s</b>\n", UserLink(id), cm(a.Balance)))
	b.WriteString(fmt.Sprintf("Vinte: %d | Perse: %d | Puntato in totale: %s",
		a.Stats.Won, a.Stats.Lost, cm(a.Stats.TotalWagered)))
	return b.String()
}

var grantLabels = map[model.GrantKind]string{
	model.GrantDaily:  "Razione giornaliera",
	model.GrantHourly: "Elemosina",
	model.GrantBread:  "Tessera del pane",
}

// GrantLabel returns the display name of a grant kind.
func GrantLabel(kind model.GrantKind) string {
	if l, ok := grantLabels[kind]; ok {
		return l
	}
	return string(kind)
}

// FormatGrant formats a successful grant claim.
func FormatGrant(g ledger.Grant) string {
	if g.Amount == 0 {
		return fmt.Sprintf("🙅 %s rifiutata: nessuna zucchina questa volta. Riprova dopo le %s.",
			GrantLabel(g.Kind), g.NextAt.Format("15:04"))
	}
	return fmt.Sprintf("🥒 %s: +%s! Ora hai %s.", GrantLabel(g.Kind), cm(g.Amount), cm(g.Balance))
}

// FormatDuration renders a wait like "3h 12m" or "45s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatTicket shows the user's lottery ticket (schedina).
func FormatTicket(bet model.Bet, ok bool, st ledger.LotteryStatus) string {
	var b strings.Builder
	b.WriteString("🎟 <b>Schedina</b>\n")
	if ok {
		b.WriteString(fmt.Sprintf("Numero: %d | Puntata: %s\n", bet.Number, cm(bet.Amount)))
	} else {
		b.WriteString("Nessuna puntata in questo turno.\n")
	}
	b.WriteString(fmt.Sprintf("Montepremi: %s (%d giocatori)\n", cm(st.Pot), st.Bettors))
	b.WriteString(fmt.Sprintf("Estrazione: %s", st.EndTime.Format("02/01 15:04")))
	if st.Status == model.RoundLocked {
		b.WriteString(fmt.Sprintf("\n⏳ Estrazione precedente in corso (%s in palio)", cm(st.LockedPot)))
	}
	return b.String()
}

// FormatBetPlaced confirms a lottery bet.
func FormatBetPlaced(number int, total int64) string {
	return fmt.Sprintf("🎲 Puntata registrata sul %d. Totale in gioco: %s.", number, cm(total))
}

// FormatDuelOpen announces an open duel.
func FormatDuelOpen(d model.DuelEscrow) string {
	return fmt.Sprintf("⚔️ %s sfida chiunque a un duello per %s! Chi accetta?", UserLink(d.ChallengerID), cm(d.Stake))
}

// FormatDuelResult formats a settled duel.
func FormatDuelResult(r ledger.DuelResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚔️ <b>Duello</b> per %s\n", cm(r.Duel.Stake)))
	b.WriteString(fmt.Sprintf("%s tira %d, %s tira %d\n",
		UserLink(r.Duel.ChallengerID), r.Outcome.ChallengerRoll, UserLink(r.DefenderID), r.Outcome.DefenderRoll))
	switch r.Outcome.Winner {
	case settlement.Challenger:
		b.WriteString(fmt.Sprintf("Vince %s e incassa %s!", UserLink(r.Duel.ChallengerID), cm(2*r.Duel.Stake)))
	case settlement.Defender:
		b.WriteString(fmt.Sprintf("Vince %s e incassa %s!", UserLink(r.DefenderID), cm(2*r.Duel.Stake)))
	default:
		b.WriteString("Pareggio! Le puntate tornano ai proprietari.")
	}
	return b.String()
}

var sideLabels = map[model.CoinSide]string{
	model.Heads: "testa",
	model.Tails: "croce",
}

// FormatCoinflipOpen confirms a coinflip waiting to be tossed.
func FormatCoinflipOpen(c model.CoinflipEscrow) string {
	return fmt.Sprintf("🪙 %s punta %s su %s. Lancia la moneta!", UserLink(c.OwnerID), cm(c.Stake), sideLabels[c.Choice])
}

// FormatCoinflipResult formats a tossed coin.
func FormatCoinflipResult(r ledger.CoinflipResult) string {
	if r.Outcome.Won {
		return fmt.Sprintf("🪙 È uscito %s! %s vince %s. Saldo: %s.",
			sideLabels[r.Outcome.Result], UserLink(r.Coinflip.OwnerID), cm(r.Payout), cm(r.Balance))
	}
	return fmt.Sprintf("🪙 È uscito %s. %s perde %s. Saldo: %s.",
		sideLabels[r.Outcome.Result], UserLink(r.Coinflip.OwnerID), cm(r.Coinflip.Stake), cm(r.Balance))
}

// FormatRefund confirms a cancelled escrow.
func FormatRefund(r ledger.Refund) string {
	return fmt.Sprintf("↩️ Scommessa annullata, %s restituiti a %s.", cm(r.Stake), UserLink(r.OwnerID))
}

// FormatExpired lists escrows refunded by the expiry sweep.
func FormatExpired(refunds []ledger.Refund) string {
	var b strings.Builder
	b.WriteString("⌛ Sfide scadute senza risposta:\n")
	for _, r := range refunds {
		what := "duello"
		if r.Kind == ledger.KindCoinflip {
			what = "moneta"
		}
		b.WriteString(fmt.Sprintf("%s: %s restituiti a %s\n", what, cm(r.Stake), UserLink(r.OwnerID)))
	}
	return b.String()
}

// FormatTransfer confirms a donation.
func FormatTransfer(from, to model.UserID, r ledger.TransferResult) string {
	return fmt.Sprintf("🎁 %s dona %s a %s. Grazie mosca!", UserLink(from), cm(r.Amount), UserLink(to))
}

// FormatError turns a ledger error into a user-facing reply.
func FormatError(err error) string {
	switch ledger.CodeOf(err) {
	case ledger.CodeInsufficientFunds:
		return "❌ Non hai abbastanza zucchine."
	case ledger.CodeInvalidAmount:
		return "❌ Importo non valido."
	case ledger.CodeInvalidChoice:
		return "❌ Scelta non valida: i numeri vanno da 1 a 10, la moneta è testa o croce."
	case ledger.CodeConflictingNumber:
		return "❌ Hai già puntato su un altro numero in questo turno."
	case ledger.CodeSelfAcceptance:
		return "❌ Non puoi accettare il tuo stesso duello."
	case ledger.CodeSelfTransfer:
		return "❌ Non puoi donare a te stesso."
	case ledger.CodeEscrowNotFound, ledger.CodeAlreadyResolved:
		return "❌ Questa sfida non è più disponibile."
	case ledger.CodeStillOnCooldown:
		rem, _ := ledger.RemainingCooldown(err)
		return "⏳ Troppo presto! Riprova tra " + FormatDuration(rem) + "."
	default:
		return "❌ Qualcosa è andato storto, riprova più tardi."
	}
}
