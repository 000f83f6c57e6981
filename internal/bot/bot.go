// Package bot translates Telegram commands and button presses into ledger
// operations and renders the replies.
package bot

import (
	"errors"
	"html"
	"log"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/notifier"

	"gopkg.in/telebot.v3"
)

const leaderboardSize = 10

// Callback button identifiers.
var (
	btnDuelAccept = telebot.Btn{Unique: "duel_accept"}
	btnDuelCancel = telebot.Btn{Unique: "duel_cancel"}
	btnCoinFlip   = telebot.Btn{Unique: "coin_flip"}
	btnCoinCancel = telebot.Btn{Unique: "coin_cancel"}
)

const helpText = `🥒 <b>Zucchine</b>

/saldo - le tue zucchine
/razione_giornaliera - razione quotidiana
/elemosina - chiedi l'elemosina (non sempre va bene)
/tessera_del_pane - tessera del pane
/coinflip &lt;importo&gt; &lt;testa|croce&gt; - sfida la casa
/duello_pisello &lt;importo&gt; - sfida il gruppo
/superenalotto &lt;numero 1-10&gt; &lt;importo&gt; - punta sull'estrazione
/schedina - la tua puntata in corso
/grazie_mosca &lt;importo&gt; - in risposta a un messaggio, dona zucchine
/classifica - i più dotati del gruppo`

// Handlers holds the command handlers.
type Handlers struct {
	Ledger *ledger.Ledger
}

// Register binds every command (Italian names plus English aliases) and
// callback button to b.
func (h *Handlers) Register(b *telebot.Bot) {
	b.Handle("/start", h.Help)
	b.Handle("/help", h.Help)

	commands := []struct {
		names []string
		fn    telebot.HandlerFunc
	}{
		{[]string{"/saldo", "/balance"}, h.Balance},
		{[]string{"/razione_giornaliera", "/daily"}, h.grant(model.GrantDaily)},
		{[]string{"/elemosina", "/alms"}, h.grant(model.GrantHourly)},
		{[]string{"/tessera_del_pane", "/bread"}, h.grant(model.GrantBread)},
		{[]string{"/coinflip"}, h.Coinflip},
		{[]string{"/duello_pisello", "/duel"}, h.Duel},
		{[]string{"/superenalotto", "/lotto"}, h.Lotto},
		{[]string{"/schedina", "/ticket"}, h.Ticket},
		{[]string{"/grazie_mosca", "/donate"}, h.Donate},
		{[]string{"/classifica", "/top"}, h.Leaderboard},
	}
	for _, cmd := range commands {
		for _, name := range cmd.names {
			b.Handle(name, cmd.fn, groupsOnly)
		}
	}

	b.Handle(&btnDuelAccept, h.OnDuelAccept, groupsOnly)
	b.Handle(&btnDuelCancel, h.OnCancel, groupsOnly)
	b.Handle(&btnCoinFlip, h.OnCoinFlip, groupsOnly)
	b.Handle(&btnCoinCancel, h.OnCancel, groupsOnly)
}

// groupsOnly lets game commands through only in group chats; help works anywhere.
func groupsOnly(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		chat := c.Chat()
		if chat == nil || (chat.Type != telebot.ChatGroup && chat.Type != telebot.ChatSuperGroup) {
			return c.Send("🥒 Le zucchine si coltivano solo nei gruppi.")
		}
		return next(c)
	}
}

func sender(c telebot.Context) model.UserID {
	return model.UserID(c.Sender().ID)
}

func reply(c telebot.Context, text string, opts ...interface{}) error {
	return c.Reply(text, append(opts, telebot.ModeHTML)...)
}

// fail replies with the user-facing form of err. Errors that are not
// ledger errors are unexpected and get logged.
func fail(c telebot.Context, err error) error {
	var usage usageError
	if errors.As(err, &usage) {
		return reply(c, "ℹ️ Uso: "+html.EscapeString(string(usage)))
	}
	if ledger.CodeOf(err) == "" {
		log.Printf("[ERROR] %q from %d: %v", c.Text(), c.Sender().ID, err)
	}
	return reply(c, notifier.FormatError(err))
}

// respondError answers a button press with an alert.
func respondError(c telebot.Context, err error) error {
	if ledger.CodeOf(err) == "" {
		log.Printf("[ERROR] callback %q from %d: %v", c.Callback().Unique, c.Sender().ID, err)
	}
	return c.Respond(&telebot.CallbackResponse{Text: notifier.FormatError(err), ShowAlert: true})
}

func (h *Handlers) Help(c telebot.Context) error {
	h.Ledger.GetOrCreate(sender(c))
	return c.Send(helpText, telebot.ModeHTML)
}

func (h *Handlers) Balance(c telebot.Context) error {
	id := sender(c)
	return reply(c, notifier.FormatBalance(id, h.Ledger.GetOrCreate(id)))
}

func (h *Handlers) grant(kind model.GrantKind) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		g, err := h.Ledger.TryClaimGrant(sender(c), kind, h.Ledger.Now())
		if err != nil {
			return fail(c, err)
		}
		return reply(c, notifier.FormatGrant(g))
	}
}

func (h *Handlers) Lotto(c telebot.Context) error {
	number, amount, err := parseLottoArgs(c.Args())
	if err != nil {
		return fail(c, err)
	}
	total, err := h.Ledger.PlaceLotteryBet(sender(c), number, amount)
	if err != nil {
		return fail(c, err)
	}
	return reply(c, notifier.FormatBetPlaced(number, total))
}

func (h *Handlers) Ticket(c telebot.Context) error {
	bet, ok := h.Ledger.LotteryBet(sender(c))
	return reply(c, notifier.FormatTicket(bet, ok, h.Ledger.LotteryStatus()))
}

func (h *Handlers) Leaderboard(c telebot.Context) error {
	return c.Send(notifier.FormatLeaderboard(h.Ledger.Leaderboard(leaderboardSize)), telebot.ModeHTML, telebot.NoPreview)
}

func (h *Handlers) Donate(c telebot.Context) error {
	amount, err := parseSingleAmount(c.Args(), usageDonate)
	if err != nil {
		return fail(c, err)
	}
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.Sender == nil {
		return reply(c, "❌ Rispondi al messaggio di chi vuoi ringraziare.")
	}
	from, to := sender(c), model.UserID(msg.ReplyTo.Sender.ID)
	res, err := h.Ledger.Transfer(from, to, amount)
	if err != nil {
		return fail(c, err)
	}
	return reply(c, notifier.FormatTransfer(from, to, res))
}

func (h *Handlers) Duel(c telebot.Context) error {
	stake, err := parseSingleAmount(c.Args(), usageDuel)
	if err != nil {
		return fail(c, err)
	}
	d, err := h.Ledger.OpenDuel(sender(c), stake)
	if err != nil {
		return fail(c, err)
	}
	menu := &telebot.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data("⚔️ Accetta", btnDuelAccept.Unique, d.ID),
		menu.Data("↩️ Ritira", btnDuelCancel.Unique, d.ID),
	))
	return c.Send(notifier.FormatDuelOpen(d), menu, telebot.ModeHTML)
}

func (h *Handlers) Coinflip(c telebot.Context) error {
	stake, side, err := parseCoinflipArgs(c.Args())
	if err != nil {
		return fail(c, err)
	}
	cf, err := h.Ledger.OpenCoinflip(sender(c), stake, side)
	if err != nil {
		return fail(c, err)
	}
	menu := &telebot.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data("🪙 Lancia", btnCoinFlip.Unique, cf.ID),
		menu.Data("↩️ Annulla", btnCoinCancel.Unique, cf.ID),
	))
	return c.Send(notifier.FormatCoinflipOpen(cf), menu, telebot.ModeHTML)
}

func (h *Handlers) OnDuelAccept(c telebot.Context) error {
	res, err := h.Ledger.AcceptDuel(c.Callback().Data, sender(c))
	if err != nil {
		return respondError(c, err)
	}
	if err := c.Respond(); err != nil {
		log.Printf("[WARN] answer callback: %v", err)
	}
	return c.Edit(notifier.FormatDuelResult(res), telebot.ModeHTML)
}

func (h *Handlers) OnCoinFlip(c telebot.Context) error {
	id := c.Callback().Data
	if owner, _, ok := h.Ledger.EscrowOwner(id); ok && owner != sender(c) {
		return c.Respond(&telebot.CallbackResponse{Text: "Solo chi ha puntato può lanciare la moneta."})
	}
	res, err := h.Ledger.ResolveCoinflip(id)
	if err != nil {
		return respondError(c, err)
	}
	if err := c.Respond(); err != nil {
		log.Printf("[WARN] answer callback: %v", err)
	}
	return c.Edit(notifier.FormatCoinflipResult(res), telebot.ModeHTML)
}

// OnCancel withdraws an open duel or coinflip. Only its owner may do so.
func (h *Handlers) OnCancel(c telebot.Context) error {
	id := c.Callback().Data
	owner, _, ok := h.Ledger.EscrowOwner(id)
	if !ok {
		return respondError(c, ledger.ErrEscrowNotFound)
	}
	if owner != sender(c) {
		return c.Respond(&telebot.CallbackResponse{Text: "Solo chi ha lanciato la sfida può ritirarla."})
	}
	r, err := h.Ledger.Cancel(id)
	if err != nil {
		return respondError(c, err)
	}
	if err := c.Respond(); err != nil {
		log.Printf("[WARN] answer callback: %v", err)
	}
	return c.Edit(notifier.FormatRefund(r), telebot.ModeHTML)
}
