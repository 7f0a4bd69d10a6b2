package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"MarketPulse/internal/model"
	"MarketPulse/internal/signal"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Symbols    []string `yaml:"symbols" validate:"dive,required"`
	DataSource struct {
		Type        string `yaml:"type" validate:"oneof=csv yahoo"`
		HistoryDays int    `yaml:"history_days" validate:"gt=0"`
		Proxy       string `yaml:"proxy"`
	} `yaml:"data_source"`
	Paths struct {
		DataDir   string `yaml:"data_dir" validate:"required"`
		OutputDir string `yaml:"output_dir" validate:"required"`
	} `yaml:"paths"`
	Alerts struct {
		PriceChangeThreshold float64 `yaml:"price_change_threshold" validate:"gt=0"`
		VolumeMultiplier     float64 `yaml:"volume_multiplier" validate:"gt=0"`
		SevereMoveThreshold  float64 `yaml:"severe_move_threshold" validate:"gt=0"`
		GapDays              int     `yaml:"gap_days" validate:"gt=0"`
	} `yaml:"alerts"`
	Indicators struct {
		SMAShort         int     `yaml:"sma_short" validate:"gt=0"`
		SMALong          int     `yaml:"sma_long" validate:"gt=0"`
		EMA              int     `yaml:"ema" validate:"gt=0"`
		RSI              int     `yaml:"rsi" validate:"gt=0"`
		MACDFast         int     `yaml:"macd_fast" validate:"gt=0,ltfield=MACDSlow"`
		MACDSlow         int     `yaml:"macd_slow" validate:"gt=0"`
		MACDSignal       int     `yaml:"macd_signal" validate:"gt=0"`
		BollingerPeriod  int     `yaml:"bollinger_period" validate:"gt=0"`
		BollingerStdDev  float64 `yaml:"bollinger_stddev" validate:"gt=0"`
		VolumeWindow     int     `yaml:"volume_window" validate:"gt=0"`
		VolatilityWindow int     `yaml:"volatility_window" validate:"gt=0"`
		RangeWindow      int     `yaml:"range_window" validate:"gt=0"`
	} `yaml:"indicators"`
	Pipeline struct {
		MaxWorkers    int           `yaml:"max_workers" validate:"gte=0"`
		SymbolTimeout time.Duration `yaml:"symbol_timeout" validate:"gt=0"`
	} `yaml:"pipeline"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron" validate:"required"`
	} `yaml:"schedule"`
	RunOnStart bool `yaml:"run_on_start"`
	Database   struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=console json"`
	} `yaml:"log"`
}

// ConfigError is a fatal configuration problem. The run does not start.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads config from a YAML file, then a .env file, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, &ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("parse %s: %w", path, err)}
		}
	}

	// Existing environment variables win over .env entries.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a config with every default applied and no file or
// environment input.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MARKETPULSE_SYMBOLS"); v != "" {
		c.Symbols = ParseSymbols(v)
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Paths.OutputDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.DataSource.Proxy = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.RunOnStart = v == "true"
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if err := envFloat("PRICE_CHANGE_THRESHOLD", &c.Alerts.PriceChangeThreshold); err != nil {
		return err
	}
	if err := envFloat("VOLUME_MULTIPLIER", &c.Alerts.VolumeMultiplier); err != nil {
		return err
	}
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "MAX_WORKERS", Err: err}
		}
		c.Pipeline.MaxWorkers = n
	}
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return &ConfigError{Field: key, Err: err}
	}
	*dst = f
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Type == "" {
		c.DataSource.Type = "csv"
	}
	if c.DataSource.HistoryDays == 0 {
		c.DataSource.HistoryDays = 300
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = "data/processed"
	}

	th := signal.DefaultThresholds()
	if c.Alerts.PriceChangeThreshold == 0 {
		c.Alerts.PriceChangeThreshold = th.PriceChangePct
	}
	if c.Alerts.VolumeMultiplier == 0 {
		c.Alerts.VolumeMultiplier = th.VolumeMultiplier
	}
	if c.Alerts.SevereMoveThreshold == 0 {
		c.Alerts.SevereMoveThreshold = th.SevereMovePct
	}
	if c.Alerts.GapDays == 0 {
		c.Alerts.GapDays = 7
	}

	w := model.DefaultWindows()
	ind := &c.Indicators
	setInt(&ind.SMAShort, w.SMAShort)
	setInt(&ind.SMALong, w.SMALong)
	setInt(&ind.EMA, w.EMA)
	setInt(&ind.RSI, w.RSI)
	setInt(&ind.MACDFast, w.MACDFast)
	setInt(&ind.MACDSlow, w.MACDSlow)
	setInt(&ind.MACDSignal, w.MACDSignal)
	setInt(&ind.BollingerPeriod, w.BollingerPeriod)
	setInt(&ind.VolumeWindow, w.VolumeWindow)
	setInt(&ind.VolatilityWindow, w.VolatilityWindow)
	setInt(&ind.RangeWindow, w.RangeWindow)
	if ind.BollingerStdDev == 0 {
		ind.BollingerStdDev = w.BollingerK
	}

	if c.Pipeline.SymbolTimeout == 0 {
		c.Pipeline.SymbolTimeout = 30 * time.Second
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 18 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/market_pulse.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// Validate checks field constraints and returns the first violation as a *ConfigError.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigError{
			Field: fe.Namespace(),
			Err:   fmt.Errorf("failed %q constraint (value %v)", fe.ActualTag(), fe.Value()),
		}
	}
	return &ConfigError{Err: err}
}

// Windows returns the indicator windows for the calculator.
func (c *Config) Windows() model.Windows {
	ind := c.Indicators
	return model.Windows{
		SMAShort:         ind.SMAShort,
		SMALong:          ind.SMALong,
		EMA:              ind.EMA,
		RSI:              ind.RSI,
		MACDFast:         ind.MACDFast,
		MACDSlow:         ind.MACDSlow,
		MACDSignal:       ind.MACDSignal,
		BollingerPeriod:  ind.BollingerPeriod,
		BollingerK:       ind.BollingerStdDev,
		VolumeWindow:     ind.VolumeWindow,
		VolatilityWindow: ind.VolatilityWindow,
		RangeWindow:      ind.RangeWindow,
	}
}

// Thresholds returns the alert trigger levels for the detector. The severe
// level never sits below the alert level.
func (c *Config) Thresholds() signal.Thresholds {
	return signal.Thresholds{
		PriceChangePct:   c.Alerts.PriceChangeThreshold,
		VolumeMultiplier: c.Alerts.VolumeMultiplier,
		SevereMovePct:    max(c.Alerts.SevereMoveThreshold, c.Alerts.PriceChangeThreshold),
	}
}

// Workers returns the worker pool size for n symbols: min(n, max_workers),
// with max_workers 0 meaning the number of CPUs.
func (c *Config) Workers(n int) int {
	limit := c.Pipeline.MaxWorkers
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return max(min(n, limit), 1)
}

// TelegramEnabled reports whether a bot token and chat id are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// ParseSymbols splits a comma separated list, upper-casing and dropping blanks.
func ParseSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
