package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddress  = ":8080"
	defaultDataDir        = "./adlottery-data"
	defaultStorageBackend = "leveldb"
	defaultEnvironment    = "local"
	defaultLogLevel       = "info"
	defaultEpochLengthMs  = uint64(86_400_000)
	defaultAPYRateBps     = uint64(1000)
	defaultPayoutCap      = uint64(50)
	defaultStrategy       = "random"
	defaultRatePerSecond  = 20
	defaultRateBurst      = 40
)

// Config is the full daemon configuration.
type Config struct {
	Node      NodeConfig      `toml:"node" yaml:"node"`
	Epoch     EpochConfig     `toml:"epoch" yaml:"epoch"`
	Staking   StakingConfig   `toml:"staking" yaml:"staking"`
	Registry  RegistryConfig  `toml:"registry" yaml:"registry"`
	Lottery   LotteryConfig   `toml:"lottery" yaml:"lottery"`
	Session   SessionConfig   `toml:"session" yaml:"session"`
	Treasury  TreasuryConfig  `toml:"treasury" yaml:"treasury"`
	Indexer   IndexerConfig   `toml:"indexer" yaml:"indexer"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
}

// Load loads the configuration from the given path. Files ending in .yaml or
// .yml are decoded as YAML, everything else as TOML. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path required")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	cfg := &Config{}
	cfg.normalize()
	return cfg
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.Node.ListenAddress = strings.TrimSpace(cfg.Node.ListenAddress)
	if cfg.Node.ListenAddress == "" {
		cfg.Node.ListenAddress = defaultListenAddress
	}
	cfg.Node.DataDir = strings.TrimSpace(cfg.Node.DataDir)
	if cfg.Node.DataDir == "" {
		cfg.Node.DataDir = defaultDataDir
	}
	cfg.Node.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.Node.StorageBackend))
	if cfg.Node.StorageBackend == "" {
		cfg.Node.StorageBackend = defaultStorageBackend
	}
	if strings.TrimSpace(cfg.Node.Environment) == "" {
		cfg.Node.Environment = defaultEnvironment
	}
	if strings.TrimSpace(cfg.Node.LogLevel) == "" {
		cfg.Node.LogLevel = defaultLogLevel
	}
	if cfg.Epoch.LengthMs == 0 {
		cfg.Epoch.LengthMs = defaultEpochLengthMs
	}
	if cfg.Staking.APYRateBps == 0 {
		cfg.Staking.APYRateBps = defaultAPYRateBps
	}
	cfg.Lottery.Strategy = strings.ToLower(strings.TrimSpace(cfg.Lottery.Strategy))
	if cfg.Lottery.Strategy == "" {
		cfg.Lottery.Strategy = defaultStrategy
	}
	if cfg.Session.PayoutCap == 0 {
		cfg.Session.PayoutCap = defaultPayoutCap
	}
	if cfg.Treasury.Authorized == nil {
		cfg.Treasury.Authorized = []string{}
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = defaultRatePerSecond
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = defaultRateBurst
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
