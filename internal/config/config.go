package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BasketRisk/internal/model"
	"BasketRisk/internal/scenario"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Simulation mirrors model.SimulationConfig in YAML form.
type Simulation struct {
	Horizon float64 `yaml:"horizon"`
	Steps   int     `yaml:"steps"`
	Trials  int     `yaml:"trials"`
	Rate    float64 `yaml:"rate"`
	Seed    *uint64 `yaml:"seed"`
	Workers int     `yaml:"workers"`
}

// Model converts to the engine config.
func (s Simulation) Model() model.SimulationConfig {
	return model.SimulationConfig{
		Horizon: s.Horizon,
		Steps:   s.Steps,
		Trials:  s.Trials,
		Rate:    s.Rate,
		Seed:    s.Seed,
		Workers: s.Workers,
	}
}

// Config holds all application configuration.
type Config struct {
	Market struct {
		Symbols       []string `yaml:"symbols"`
		Source        string   `yaml:"source"` // synthetic, yahoo or vstrader
		BaseURL       string   `yaml:"base_url"`
		APIKey        string   `yaml:"api_key"`
		LookbackDays  int      `yaml:"lookback_days"`
		SyntheticSeed uint64   `yaml:"synthetic_seed"`
	} `yaml:"market"`
	Option struct {
		Strike  float64  `yaml:"strike"`
		Barrier *float64 `yaml:"barrier"`
	} `yaml:"option"`
	Simulation Simulation `yaml:"simulation"`
	Greeks     struct {
		Epsilon float64 `yaml:"epsilon"`
		Trials  int     `yaml:"trials"`
	} `yaml:"greeks"`
	Scenarios struct {
		Trials  int              `yaml:"trials"`
		Partial bool             `yaml:"partial"`
		List    []model.Scenario `yaml:"list"`
	} `yaml:"scenarios"`
	Schedule struct {
		ReportCron string `yaml:"report_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level"`
}

// Path returns CONFIG_PATH or the default location.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads .env (if present) and the YAML file, then applies environment
// overrides and defaults. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	str("BASKETRISK_SOURCE", &c.Market.Source)
	str("BASKETRISK_BASE_URL", &c.Market.BaseURL)
	str("BASKETRISK_API_KEY", &c.Market.APIKey)
	str("BASKETRISK_REPORT_CRON", &c.Schedule.ReportCron)
	str("BASKETRISK_SQLITE_PATH", &c.Database.SQLitePath)
	str("BASKETRISK_METRICS_ADDR", &c.Metrics.ListenAddr)
	str("BASKETRISK_LOG_LEVEL", &c.LogLevel)
	str("HTTPS_PROXY", &c.Proxy)

	if v := os.Getenv("BASKETRISK_SYMBOLS"); v != "" {
		c.Market.Symbols = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Market.Symbols = append(c.Market.Symbols, s)
			}
		}
	}
	if v := os.Getenv("BASKETRISK_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BASKETRISK_TRIALS: %w", err)
		}
		c.Simulation.Trials = n
	}
	if v := os.Getenv("BASKETRISK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BASKETRISK_WORKERS: %w", err)
		}
		c.Simulation.Workers = n
	}
	if v := os.Getenv("BASKETRISK_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BASKETRISK_SEED: %w", err)
		}
		c.Simulation.Seed = &seed
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Market.Symbols) == 0 {
		c.Market.Symbols = []string{"ASSET1", "ASSET2"}
	}
	if c.Market.Source == "" {
		c.Market.Source = "synthetic"
	}
	if c.Market.LookbackDays == 0 {
		c.Market.LookbackDays = 252
	}
	if c.Market.SyntheticSeed == 0 {
		c.Market.SyntheticSeed = 92
	}
	if c.Option.Strike == 0 {
		c.Option.Strike = 100
	}
	if c.Simulation.Horizon == 0 {
		c.Simulation.Horizon = 1
	}
	if c.Simulation.Steps == 0 {
		c.Simulation.Steps = 100
	}
	if c.Simulation.Trials == 0 {
		c.Simulation.Trials = 3000
	}
	if c.Greeks.Epsilon == 0 {
		c.Greeks.Epsilon = 1e-2
	}
	if c.Greeks.Trials == 0 {
		c.Greeks.Trials = 1000
	}
	if c.Scenarios.Trials == 0 {
		c.Scenarios.Trials = 1000
	}
	if c.Scenarios.List == nil {
		c.Scenarios.List = scenario.Defaults()
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 30 22 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/basketrisk.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the settings the engine cannot default.
func (c *Config) Validate() error {
	switch c.Market.Source {
	case "synthetic", "yahoo":
	case "vstrader":
		if c.Market.BaseURL == "" {
			return fmt.Errorf("market.base_url is required for the vstrader source")
		}
	default:
		return fmt.Errorf("market.source %q is not one of synthetic, yahoo, vstrader", c.Market.Source)
	}
	if c.Market.LookbackDays < 3 {
		return fmt.Errorf("market.lookback_days must be at least 3")
	}
	if !(c.Option.Strike > 0) {
		return fmt.Errorf("option.strike must be positive")
	}
	if b := c.Option.Barrier; b != nil && !(*b > 0) {
		return fmt.Errorf("option.barrier must be positive")
	}
	s := c.Simulation
	if !(s.Horizon > 0) || math.IsInf(s.Horizon, 0) || s.Steps <= 0 || s.Trials <= 0 {
		return fmt.Errorf("simulation horizon, steps and trials must be positive")
	}
	if s.Workers < 0 {
		return fmt.Errorf("simulation.workers must not be negative")
	}
	if !(c.Greeks.Epsilon > 0) || c.Greeks.Trials <= 0 || c.Scenarios.Trials <= 0 {
		return fmt.Errorf("greeks.epsilon, greeks.trials and scenarios.trials must be positive")
	}
	if err := scenario.Validate(c.Scenarios.List); err != nil {
		return fmt.Errorf("scenarios.list: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool { return c.Telegram.BotToken != "" }

// PricingConfig is the simulation used for headline prices.
func (c *Config) PricingConfig() model.SimulationConfig { return c.Simulation.Model() }

// GreeksConfig reuses the simulation with the Greek trial count.
func (c *Config) GreeksConfig() model.SimulationConfig {
	m := c.Simulation.Model()
	m.Trials = c.Greeks.Trials
	return m
}

// ScenarioConfig reuses the simulation with the scenario trial count.
func (c *Config) ScenarioConfig() model.SimulationConfig {
	m := c.Simulation.Model()
	m.Trials = c.Scenarios.Trials
	return m
}

// OptionSpec returns the configured option.
func (c *Config) OptionSpec() model.OptionSpec {
	return model.OptionSpec{Strike: c.Option.Strike, Barrier: c.Option.Barrier}
}
