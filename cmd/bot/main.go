package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/telebot.v3"

	"ZucchiniBot/internal/api"
	"ZucchiniBot/internal/bot"
	"ZucchiniBot/internal/config"
	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/notifier"
	"ZucchiniBot/internal/recorder"
	"ZucchiniBot/internal/scheduler"
	"ZucchiniBot/internal/settlement"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] ZucchiniBot starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	seed, err := settlement.NewSeed()
	if err != nil {
		log.Fatalf("[FATAL] seed random source: %v", err)
	}
	src := settlement.NewSource(seed)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Init ledger
	l, err := ledger.New(ledger.NewFileStore(cfg.Ledger.StateFile), ledger.Options{
		StartingBalance: cfg.Ledger.StartingBalance,
		Grants:          cfg.GrantConfigs(),
		RoundInterval:   cfg.Lottery.RoundInterval,
		Source:          src,
		Recorder:        rec,
	})
	if err != nil {
		log.Fatalf("[FATAL] init ledger: %v", err)
	}

	// Init Telegram bot
	b, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Telegram.BotToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Fatalf("[FATAL] init telegram bot: %v", err)
	}
	handlers := &bot.Handlers{Ledger: l}
	handlers.Register(b)

	tn := notifier.NewTelegramNotifier(b, cfg.Telegram.ChatID)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init scheduler
	sched := scheduler.NewRoundScheduler(ctx, l, tn, src, scheduler.Timing{
		Tick:         cfg.Lottery.TickInterval,
		RetryBackoff: cfg.Lottery.RetryBackoff,
		MaxBackoff:   cfg.Lottery.MaxBackoff,
		EscrowTTL:    cfg.Escrow.TTL,
	})
	sched.Start()

	var srv *api.Server
	if cfg.HTTP.Addr != "" {
		srv = api.NewServer(l, cfg.HTTP.Addr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("[INFO] Telegram polling started")
		b.Start()
		return nil
	})
	if srv != nil {
		g.Go(srv.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[INFO] shutdown signal received, stopping...")
		b.Stop()
		sched.Stop()
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("[WARN] http shutdown: %v", err)
			}
		}
		return nil
	})

	log.Println("[INFO] ZucchiniBot is running. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] %v", err)
	}

	if err := l.PersistError(); err != nil {
		log.Printf("[WARN] last state save failed: %v", err)
	}
	log.Println("[INFO] ZucchiniBot stopped")
}
