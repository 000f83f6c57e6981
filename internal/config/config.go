package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"
	"ZucchiniBot/internal/settlement"
)

const defaultEscrowTTL = 10 * time.Minute

// GrantSpec configures one free grant kind.
type GrantSpec struct {
	Period time.Duration `yaml:"period" env:"PERIOD"`
	Min    int64         `yaml:"min" env:"MIN"`
	Max    int64         `yaml:"max" env:"MAX"`
	Chance float64       `yaml:"chance" env:"CHANCE"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Ledger struct {
		StateFile       string `yaml:"state_file" env:"STATE_FILE"`
		StartingBalance int64  `yaml:"starting_balance" env:"STARTING_BALANCE"`
	} `yaml:"ledger"`
	Lottery struct {
		RoundInterval time.Duration `yaml:"round_interval" env:"LOTTERY_INTERVAL"`
		TickInterval  time.Duration `yaml:"tick_interval" env:"LOTTERY_TICK"`
		RetryBackoff  time.Duration `yaml:"retry_backoff" env:"LOTTERY_RETRY_BACKOFF"`
		MaxBackoff    time.Duration `yaml:"max_backoff" env:"LOTTERY_MAX_BACKOFF"`
	} `yaml:"lottery"`
	Grants struct {
		Daily  GrantSpec `yaml:"daily" envPrefix:"GRANT_DAILY_"`
		Hourly GrantSpec `yaml:"hourly" envPrefix:"GRANT_HOURLY_"`
		Bread  GrantSpec `yaml:"bread" envPrefix:"GRANT_BREAD_"`
	} `yaml:"grants"`
	Escrow struct {
		TTL time.Duration `yaml:"ttl" env:"ESCROW_TTL"`
	} `yaml:"escrow"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr" env:"HTTP_ADDR"`
	} `yaml:"http"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// A zero TTL disables the sweep, so this default precedes file and env.
	cfg.Escrow.TTL = defaultEscrowTTL

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ledger.StateFile == "" {
		c.Ledger.StateFile = "data/zucchini_data.json"
	}
	if c.Lottery.RoundInterval == 0 {
		c.Lottery.RoundInterval = 6 * time.Hour
	}
	if c.Lottery.TickInterval == 0 {
		c.Lottery.TickInterval = time.Minute
	}
	if c.Lottery.RetryBackoff == 0 {
		c.Lottery.RetryBackoff = 30 * time.Second
	}
	if c.Lottery.MaxBackoff == 0 {
		c.Lottery.MaxBackoff = 10 * time.Minute
	}
	defaultGrant(&c.Grants.Daily, GrantSpec{Period: 24 * time.Hour, Min: 1, Max: 10, Chance: 1})
	defaultGrant(&c.Grants.Hourly, GrantSpec{Period: time.Hour, Min: 1, Max: 3, Chance: 0.5})
	defaultGrant(&c.Grants.Bread, GrantSpec{Period: 12 * time.Hour, Min: 2, Max: 5, Chance: 1})
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/zucchini.db"
	}
}

// defaultGrant fills unset fields; a grant with neither min nor max set
// takes the default range.
func defaultGrant(g *GrantSpec, def GrantSpec) {
	if g.Period == 0 {
		g.Period = def.Period
	}
	if g.Min == 0 && g.Max == 0 {
		g.Min, g.Max = def.Min, def.Max
	}
	if g.Chance == 0 {
		g.Chance = def.Chance
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Ledger.StartingBalance < 0 {
		return fmt.Errorf("ledger.starting_balance must not be negative")
	}
	if c.Lottery.RoundInterval <= 0 || c.Lottery.TickInterval <= 0 {
		return fmt.Errorf("lottery.round_interval and lottery.tick_interval must be positive")
	}
	if c.Lottery.MaxBackoff < c.Lottery.RetryBackoff {
		return fmt.Errorf("lottery.max_backoff must be at least lottery.retry_backoff")
	}
	for name, g := range map[string]GrantSpec{"daily": c.Grants.Daily, "hourly": c.Grants.Hourly, "bread": c.Grants.Bread} {
		if g.Period <= 0 {
			return fmt.Errorf("grants.%s.period must be positive", name)
		}
		if g.Min < 0 || g.Max < g.Min {
			return fmt.Errorf("grants.%s: need 0 <= min <= max, got [%d, %d]", name, g.Min, g.Max)
		}
		if g.Chance <= 0 || g.Chance > 1 {
			return fmt.Errorf("grants.%s.chance must be in (0, 1], got %v", name, g.Chance)
		}
	}
	if c.Escrow.TTL < 0 {
		return fmt.Errorf("escrow.ttl must not be negative")
	}
	return nil
}

// GrantConfigs converts the grant section into ledger options.
func (c *Config) GrantConfigs() map[model.GrantKind]ledger.GrantConfig {
	conv := func(g GrantSpec) ledger.GrantConfig {
		return ledger.GrantConfig{
			Period: g.Period,
			Rule:   settlement.GrantRule{Min: g.Min, Max: g.Max, Chance: g.Chance},
		}
	}
	return map[model.GrantKind]ledger.GrantConfig{
		model.GrantDaily:  conv(c.Grants.Daily),
		model.GrantHourly: conv(c.Grants.Hourly),
		model.GrantBread:  conv(c.Grants.Bread),
	}
}
