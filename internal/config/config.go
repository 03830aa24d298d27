// Package config holds the backtest engine's run configuration: a
// builder-style Config assembled via With* methods or loaded from JSON,
// validated with struct tags before a run starts.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// FXRate is one non-reference currency's buy/sell rate pair against the
// configured reference currency.
type FXRate struct {
	Currency string  `json:"currency" validate:"required"`
	FromRef  float64 `json:"fromRef" validate:"gt=0"`
	ToRef    float64 `json:"toRef" validate:"gt=0"`
}

// Config is the full set of knobs a backtest run needs. Zero value is not
// runnable; use New() for defaults, chain With* methods, then Validate().
type Config struct {
	ReferenceCurrency string    `json:"referenceCurrency" validate:"required"`
	FXRates           []FXRate  `json:"fxRates" validate:"dive"`
	OffsetMode        string    `json:"offsetMode" validate:"oneof=day minute"`
	EndOfTime         time.Time `json:"endOfTime" validate:"required"`
	TickInterval      time.Duration `json:"tickInterval" validate:"gt=0"`
	InitialCapital    float64   `json:"initialCapital" validate:"gte=0"`

	HTTPPort    int    `json:"httpPort" validate:"gte=0,lte=65535"`
	JWTIssuer   string `json:"jwtIssuer"`
	PostgresDSN string `json:"postgresDsn"`
	RedisAddr   string `json:"redisAddr"`
	LogDir      string `json:"logDir" validate:"required"`
}

// New returns a Config with the ambient defaults: a CNY reference
// currency, day-mode bar slicing, a 1-second monotonic tick, and CSV logs
// under ./run-logs.
func New() *Config {
	return &Config{
		ReferenceCurrency: "CNY",
		OffsetMode:        "day",
		EndOfTime:         time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC),
		TickInterval:      time.Second,
		InitialCapital:    1_000_000,
		HTTPPort:          8090,
		JWTIssuer:         "jax-backtest-engine",
		LogDir:            "./run-logs",
	}
}

func (c *Config) WithReferenceCurrency(ccy string) *Config {
	c.ReferenceCurrency = ccy
	return c
}

func (c *Config) WithFXRate(ccy string, fromRef, toRef float64) *Config {
	c.FXRates = append(c.FXRates, FXRate{Currency: ccy, FromRef: fromRef, ToRef: toRef})
	return c
}

func (c *Config) WithOffsetMode(mode string) *Config {
	c.OffsetMode = mode
	return c
}

func (c *Config) WithEndOfTime(t time.Time) *Config {
	c.EndOfTime = t
	return c
}

func (c *Config) WithTickInterval(d time.Duration) *Config {
	c.TickInterval = d
	return c
}

func (c *Config) WithInitialCapital(capital float64) *Config {
	c.InitialCapital = capital
	return c
}

func (c *Config) WithHTTPPort(port int) *Config {
	c.HTTPPort = port
	return c
}

func (c *Config) WithPostgresDSN(dsn string) *Config {
	c.PostgresDSN = dsn
	return c
}

func (c *Config) WithRedisAddr(addr string) *Config {
	c.RedisAddr = addr
	return c
}

func (c *Config) WithLogDir(dir string) *Config {
	c.LogDir = dir
	return c
}

// Validate runs struct-tag validation over the assembled config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads a JSON config file, rejecting unknown fields, and validates
// the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read: %w", err)
	}
	cfg := New()
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
