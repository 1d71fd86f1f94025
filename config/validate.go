package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"adlottery/native/lottery"
)

var supportedBackends = map[string]struct{}{
	"memory":  {},
	"leveldb": {},
	"bolt":    {},
}

// Validate reports the first inconsistency in the configuration.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if _, ok := supportedBackends[cfg.Node.StorageBackend]; !ok {
		return fmt.Errorf("node: unsupported storage backend %q", cfg.Node.StorageBackend)
	}
	if cfg.Epoch.LengthMs == 0 {
		return fmt.Errorf("epoch: length_ms must be greater than zero")
	}
	if _, err := cfg.Genesis(); err != nil {
		return err
	}
	if cfg.RateLimit.RequestsPerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0,1]")
	}
	if (cfg.Telemetry.Metrics || cfg.Telemetry.Traces) && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: endpoint required when exporters are enabled")
	}
	return nil
}

func parseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

func parseStrategy(raw string) (lottery.Strategy, error) {
	strategy, err := lottery.ParseStrategy(raw)
	if err != nil {
		return "", fmt.Errorf("lottery: %w", err)
	}
	return strategy, nil
}
