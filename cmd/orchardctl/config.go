package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/orchardlib/pkg/rng"
	"github.com/suffix-labs/orchardlib/pkg/unified"
)

// Config holds orchardctl settings loaded from YAML.
type Config struct {
	Network string    `yaml:"network"` // main, test
	RNG     RNGConfig `yaml:"rng"`
	Log     LogConfig `yaml:"log"`
}

// RNGConfig selects the randomness source for shield and sign.
type RNGConfig struct {
	Mode  string `yaml:"mode"` // hardware, deterministic
	Seed  string `yaml:"seed"` // 32 bytes hex, deterministic only
	Pos   uint64 `yaml:"pos"`
	Limit uint64 `yaml:"limit"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Network: "main",
		RNG:     RNGConfig{Mode: string(rng.Hardware)},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings without opening anything.
func (c *Config) Validate() error {
	if _, err := c.network(); err != nil {
		return err
	}
	if _, err := c.RNG.Config(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func (c *Config) network() (unified.Network, error) {
	switch strings.ToLower(c.Network) {
	case "main", "mainnet", "":
		return unified.Mainnet, nil
	case "test", "testnet":
		return unified.Testnet, nil
	}
	return 0, fmt.Errorf("network: unknown value %q", c.Network)
}

// Config converts the YAML form to an rng.Config.
func (r RNGConfig) Config() (rng.Config, error) {
	cfg := rng.Config{Mode: rng.Mode(strings.ToLower(r.Mode)), Pos: r.Pos, Limit: r.Limit}
	switch cfg.Mode {
	case rng.Hardware:
		if r.Seed != "" {
			return rng.Config{}, fmt.Errorf("rng.seed: not allowed in hardware mode")
		}
	case rng.Deterministic:
		seed, err := hex.DecodeString(r.Seed)
		if err != nil {
			return rng.Config{}, fmt.Errorf("rng.seed: %w", err)
		}
		if len(seed) != len(cfg.Seed) {
			return rng.Config{}, fmt.Errorf("rng.seed: want %d bytes, got %d", len(cfg.Seed), len(seed))
		}
		copy(cfg.Seed[:], seed)
	default:
		return rng.Config{}, fmt.Errorf("rng.mode: unknown value %q", r.Mode)
	}
	return cfg, nil
}

// NewLogger builds a production zap logger at the configured level, or at
// debug when verbose is set.
func (c *Config) NewLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
