// Package config assembles the runtime configuration: baked-in defaults,
// MDC_* environment overrides, then an optional config.json merge, validated
// once at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mission-control/mdc/internal/band"
)

// Config is the full runtime configuration. Consumed at startup only;
// nothing rereads it while the engine runs.
type Config struct {
	// Queue
	QueueCapacity   int  `json:"queueCapacity"`
	EvictOnOverflow bool `json:"evictOnOverflow"`

	// Housekeeping
	SweepInterval time.Duration `json:"sweepInterval"`

	// Fault management
	WatchdogTimeout time.Duration `json:"watchdogTimeout"`

	// Band selection
	BandSwitchTimeout time.Duration `json:"bandSwitchTimeout"`
	FallbackBand      string        `json:"fallbackBand"`

	// Authentication
	AuthSecret   string        `json:"authSecret"`
	ReplayWindow time.Duration `json:"replayWindow"`

	// Monitoring surface
	ListenAddr    string `json:"listenAddr"`
	HubBufferSize int    `json:"hubBufferSize"`

	// Audit
	AuditDir string `json:"auditDir"`

	// Logging
	LogLevel string `json:"logLevel"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		QueueCapacity:     1000,
		EvictOnOverflow:   true,
		SweepInterval:     time.Second,
		WatchdogTimeout:   10 * time.Second,
		BandSwitchTimeout: 500 * time.Millisecond,
		FallbackBand:      "UHF",
		ReplayWindow:      30 * time.Second,
		ListenAddr:        ":8080",
		HubBufferSize:     256,
		AuditDir:          "audit",
		LogLevel:          "info",
	}
}

// Load merges Default() + MDC_* environment overrides + optional config.json,
// then validates the result.
func Load() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)

	if _, err := os.Stat("config.json"); err == nil {
		fileCfg, err := loadFromFile("config.json")
		if err != nil {
			return nil, fmt.Errorf("config: load config.json: %w", err)
		}
		merge(cfg, fileCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("MDC_QUEUE_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.QueueCapacity = n
		}
	}
	if val := os.Getenv("MDC_EVICT_ON_OVERFLOW"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.EvictOnOverflow = b
		}
	}
	if val := os.Getenv("MDC_SWEEP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.SweepInterval = d
		}
	}
	if val := os.Getenv("MDC_WATCHDOG_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.WatchdogTimeout = d
		}
	}
	if val := os.Getenv("MDC_BAND_SWITCH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.BandSwitchTimeout = d
		}
	}
	if val := os.Getenv("MDC_FALLBACK_BAND"); val != "" {
		cfg.FallbackBand = val
	}
	if val := os.Getenv("MDC_AUTH_SECRET"); val != "" {
		cfg.AuthSecret = val
	}
	if val := os.Getenv("MDC_REPLAY_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.ReplayWindow = d
		}
	}
	if val := os.Getenv("MDC_LISTEN_ADDR"); val != "" {
		cfg.ListenAddr = val
	}
	if val := os.Getenv("MDC_HUB_BUFFER_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.HubBufferSize = n
		}
	}
	if val := os.Getenv("MDC_AUDIT_DIR"); val != "" {
		cfg.AuditDir = val
	}
	if val := os.Getenv("MDC_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
}

// fileConfig is the config.json overlay. EvictOnOverflow is a pointer so an
// explicit false is distinguishable from the key being absent.
type fileConfig struct {
	QueueCapacity     int           `json:"queueCapacity"`
	EvictOnOverflow   *bool         `json:"evictOnOverflow"`
	SweepInterval     time.Duration `json:"sweepInterval"`
	WatchdogTimeout   time.Duration `json:"watchdogTimeout"`
	BandSwitchTimeout time.Duration `json:"bandSwitchTimeout"`
	FallbackBand      string        `json:"fallbackBand"`
	AuthSecret        string        `json:"authSecret"`
	ReplayWindow      time.Duration `json:"replayWindow"`
	ListenAddr        string        `json:"listenAddr"`
	HubBufferSize     int           `json:"hubBufferSize"`
	AuditDir          string        `json:"auditDir"`
	LogLevel          string        `json:"logLevel"`
}

func loadFromFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &fileConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// merge copies the fields actually present in the file config over base.
// Zero values mean "not set" and leave the base value alone.
func merge(base *Config, file *fileConfig) {
	if file.QueueCapacity > 0 {
		base.QueueCapacity = file.QueueCapacity
	}
	if file.SweepInterval > 0 {
		base.SweepInterval = file.SweepInterval
	}
	if file.WatchdogTimeout > 0 {
		base.WatchdogTimeout = file.WatchdogTimeout
	}
	if file.BandSwitchTimeout > 0 {
		base.BandSwitchTimeout = file.BandSwitchTimeout
	}
	if file.FallbackBand != "" {
		base.FallbackBand = file.FallbackBand
	}
	if file.AuthSecret != "" {
		base.AuthSecret = file.AuthSecret
	}
	if file.ReplayWindow > 0 {
		base.ReplayWindow = file.ReplayWindow
	}
	if file.ListenAddr != "" {
		base.ListenAddr = file.ListenAddr
	}
	if file.HubBufferSize > 0 {
		base.HubBufferSize = file.HubBufferSize
	}
	if file.AuditDir != "" {
		base.AuditDir = file.AuditDir
	}
	if file.LogLevel != "" {
		base.LogLevel = file.LogLevel
	}
	if file.EvictOnOverflow != nil {
		base.EvictOnOverflow = *file.EvictOnOverflow
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queueCapacity must be positive, got %d", c.QueueCapacity)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweepInterval must be positive, got %v", c.SweepInterval)
	}
	if c.WatchdogTimeout < time.Second {
		return fmt.Errorf("watchdogTimeout must be at least 1s, got %v", c.WatchdogTimeout)
	}
	if c.BandSwitchTimeout <= 0 {
		return fmt.Errorf("bandSwitchTimeout must be positive, got %v", c.BandSwitchTimeout)
	}
	if _, err := c.ParseFallbackBand(); err != nil {
		return err
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("authSecret is required (set MDC_AUTH_SECRET)")
	}
	if c.ReplayWindow <= 0 {
		return fmt.Errorf("replayWindow must be positive, got %v", c.ReplayWindow)
	}
	if c.HubBufferSize <= 0 {
		return fmt.Errorf("hubBufferSize must be positive, got %d", c.HubBufferSize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logLevel must be debug/info/warn/error, got %q", c.LogLevel)
	}
	return nil
}

// ParseFallbackBand resolves the configured fallback band name.
func (c *Config) ParseFallbackBand() (band.Band, error) {
	for _, b := range band.All() {
		if b.String() == c.FallbackBand {
			return b, nil
		}
	}
	return band.UHF, fmt.Errorf("unknown fallbackBand %q", c.FallbackBand)
}
