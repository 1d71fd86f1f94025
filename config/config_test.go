package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"adlottery/native/lottery"
)

const testAdmin = "0x00000000000000000000000000000000000000aa"

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesTOMLSections(t *testing.T) {
	path := writeFile(t, "config.toml", `[node]
ListenAddress = "127.0.0.1:9000"
DataDir = "./data"
StorageBackend = "bolt"
Environment = "staging"
LogLevel = "debug"

[epoch]
LengthMs = 3600000

[staking]
APYRateBps = 750
MinStake = "100"
MaxStake = "1000000"

[registry]
SubmissionFee = "5"

[lottery]
Strategy = "votes"
VotingWindowMs = 600000
DrawIntervalMs = 60000

[session]
PayoutCap = 10
RewardPerPayout = "3"
RetainHistory = true

[treasury]
Admin = "`+testAdmin+`"
SeedYield = "1000000"
SeedVotingRewards = "2500"

[indexer]
DSN = "sqlite::memory:"

[rate_limit]
RequestsPerSecond = 5.5
Burst = 11
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.ListenAddress != "127.0.0.1:9000" || cfg.Node.StorageBackend != "bolt" {
		t.Fatalf("unexpected node section: %+v", cfg.Node)
	}
	if cfg.Epoch.LengthMs != 3_600_000 {
		t.Fatalf("unexpected epoch length %d", cfg.Epoch.LengthMs)
	}
	if cfg.RateLimit.RequestsPerSecond != 5.5 || cfg.RateLimit.Burst != 11 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}

	g, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if g.Admin != common.HexToAddress(testAdmin) || !g.HasAdmin() {
		t.Fatalf("unexpected admin %s", g.Admin.Hex())
	}
	if g.Strategy != lottery.StrategyVotes {
		t.Fatalf("unexpected strategy %q", g.Strategy)
	}
	if g.MinStake.Int64() != 100 || g.MaxStake.Int64() != 1_000_000 {
		t.Fatalf("unexpected stake bounds %s/%s", g.MinStake, g.MaxStake)
	}
	if g.SeedYield.Int64() != 1_000_000 || g.SeedVotingRewards.Int64() != 2_500 {
		t.Fatalf("unexpected seeds %s/%s", g.SeedYield, g.SeedVotingRewards)
	}
	if g.PayoutCap != 10 || g.RewardPerPayout.Int64() != 3 || !g.RetainHistory {
		t.Fatalf("unexpected session genesis: %+v", g)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `node:
  listen: ":7000"
  storage_backend: memory
lottery:
  strategy: random
session:
  reward_per_payout: "7"
treasury:
  admin: "`+testAdmin+`"
  authorized:
    - "0x00000000000000000000000000000000000000bb"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.ListenAddress != ":7000" || cfg.Node.StorageBackend != "memory" {
		t.Fatalf("unexpected node section: %+v", cfg.Node)
	}
	g, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if len(g.Authorized) != 1 || g.Authorized[0] != common.HexToAddress("0xbb") {
		t.Fatalf("unexpected authorized list %v", g.Authorized)
	}
	if g.RewardPerPayout.Int64() != 7 {
		t.Fatalf("unexpected reward %s", g.RewardPerPayout)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Node.StorageBackend != defaultStorageBackend {
		t.Fatalf("unexpected backend %q", cfg.Node.StorageBackend)
	}
	if cfg.Session.PayoutCap != defaultPayoutCap {
		t.Fatalf("unexpected payout cap %d", cfg.Session.PayoutCap)
	}
	if cfg.Epoch.LengthMs != defaultEpochLengthMs {
		t.Fatalf("unexpected epoch length %d", cfg.Epoch.LengthMs)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Node.DataDir != cfg.Node.DataDir {
		t.Fatalf("reload mismatch: %q vs %q", reloaded.Node.DataDir, cfg.Node.DataDir)
	}
	g, err := reloaded.Genesis()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if g.HasAdmin() {
		t.Fatalf("default config must not name an admin")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend":  "[node]\nStorageBackend = \"rocks\"\n",
		"strategy": "[lottery]\nStrategy = \"weighted\"\n",
		"amount":   "[staking]\nMinStake = \"-1\"\n",
		"bounds":   "[staking]\nMinStake = \"10\"\nMaxStake = \"5\"\n",
		"admin":    "[treasury]\nAdmin = \"not-an-address\"\n",
		"ratio":    "[telemetry]\nSampleRatio = 1.5\n",
		"endpoint": "[telemetry]\nTraces = true\n",
		"unknown":  "[node]\nColour = \"blue\"\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "config.toml", contents)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %s", strings.TrimSpace(contents))
			}
		})
	}
}
