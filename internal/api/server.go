// Package api serves a read-only JSON view of the ledger.
package api

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
)

const (
	defaultTopN = 10
	maxTopN     = 100
)

type Server struct {
	app    *fiber.App
	ledger *ledger.Ledger
	addr   string
}

type standingJSON struct {
	Rank    int          `json:"rank"`
	UserID  model.UserID `json:"user_id"`
	Balance int64        `json:"balance"`
}

type lotteryJSON struct {
	Status    model.RoundStatus `json:"status"`
	LockedPot int64             `json:"locked_pot"`
	EndTime   time.Time         `json:"end_time"`
	Bettors   int               `json:"bettors"`
	Pot       int64             `json:"pot"`
	History   []int             `json:"history"`
}

type accountJSON struct {
	UserID    model.UserID                  `json:"user_id"`
	Balance   int64                         `json:"balance"`
	Cooldowns map[model.GrantKind]time.Time `json:"cooldowns"`
	Stats     model.Stats                   `json:"stats"`
	Bet       *model.Bet                    `json:"bet,omitempty"`
}

func NewServer(l *ledger.Ledger, addr string) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	s := &Server{app: app, ledger: l, addr: addr}

	app.Get("/health", s.health)
	app.Get("/leaderboard", s.leaderboard)
	app.Get("/lottery", s.lottery)
	app.Get("/accounts/:id", s.account)

	return s
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	log.Printf("[INFO] http api listening on %s", s.addr)
	return s.app.Listen(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.ledger.PersistError(); err != nil {
		return c.JSON(fiber.Map{"status": "degraded", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) leaderboard(c *fiber.Ctx) error {
	n := c.QueryInt("n", defaultTopN)
	if n <= 0 || n > maxTopN {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "n must be between 1 and 100"})
	}
	rows := s.ledger.Leaderboard(n)
	out := make([]standingJSON, len(rows))
	for i, r := range rows {
		out[i] = standingJSON{Rank: i + 1, UserID: r.UserID, Balance: r.Balance}
	}
	return c.JSON(out)
}

func (s *Server) lottery(c *fiber.Ctx) error {
	st := s.ledger.LotteryStatus()
	history := st.History
	if history == nil {
		history = []int{}
	}
	return c.JSON(lotteryJSON{
		Status:    st.Status,
		LockedPot: st.LockedPot,
		EndTime:   st.EndTime,
		Bettors:   st.Bettors,
		Pot:       st.Pot,
		History:   history,
	})
}

func (s *Server) account(c *fiber.Ctx) error {
	raw, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	id := model.UserID(raw)
	a, ok := s.ledger.Account(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	out := accountJSON{UserID: id, Balance: a.Balance, Cooldowns: a.Cooldowns, Stats: a.Stats}
	if bet, ok := s.ledger.LotteryBet(id); ok {
		out.Bet = &bet
	}
	return c.JSON(out)
}
