package config

// NodeConfig controls the daemon process.
type NodeConfig struct {
	ListenAddress  string `toml:"ListenAddress" yaml:"listen"`
	DataDir        string `toml:"DataDir" yaml:"data_dir"`
	StorageBackend string `toml:"StorageBackend" yaml:"storage_backend"`
	Environment    string `toml:"Environment" yaml:"environment"`
	LogLevel       string `toml:"LogLevel" yaml:"log_level"`
	LogFile        string `toml:"LogFile" yaml:"log_file"`
	LogMaxSizeMB   int    `toml:"LogMaxSizeMB" yaml:"log_max_size_mb"`
	LogMaxBackups  int    `toml:"LogMaxBackups" yaml:"log_max_backups"`
	LogMaxAgeDays  int    `toml:"LogMaxAgeDays" yaml:"log_max_age_days"`
}

// EpochConfig sets the length of a yield epoch.
type EpochConfig struct {
	LengthMs uint64 `toml:"LengthMs" yaml:"length_ms"`
}

// StakingConfig seeds the staking pool. Amounts are decimal strings.
type StakingConfig struct {
	APYRateBps uint64 `toml:"APYRateBps" yaml:"apy_rate_bps"`
	MinStake   string `toml:"MinStake" yaml:"min_stake"`
	MaxStake   string `toml:"MaxStake" yaml:"max_stake"`
}

// RegistryConfig seeds the ad registry.
type RegistryConfig struct {
	SubmissionFee string `toml:"SubmissionFee" yaml:"submission_fee"`
}

// LotteryConfig seeds the epoch coordinator.
type LotteryConfig struct {
	Strategy       string `toml:"Strategy" yaml:"strategy"`
	VotingWindowMs uint64 `toml:"VotingWindowMs" yaml:"voting_window_ms"`
	DrawIntervalMs uint64 `toml:"DrawIntervalMs" yaml:"draw_interval_ms"`
}

// SessionConfig seeds the verification session.
type SessionConfig struct {
	PayoutCap       uint64 `toml:"PayoutCap" yaml:"payout_cap"`
	RewardPerPayout string `toml:"RewardPerPayout" yaml:"reward_per_payout"`
	RetainHistory   bool   `toml:"RetainHistory" yaml:"retain_history"`
}

// TreasuryConfig names the admin and seeds the reserves at genesis.
type TreasuryConfig struct {
	Admin             string   `toml:"Admin" yaml:"admin"`
	Authorized        []string `toml:"Authorized" yaml:"authorized"`
	SeedYield         string   `toml:"SeedYield" yaml:"seed_yield"`
	SeedVotingRewards string   `toml:"SeedVotingRewards" yaml:"seed_voting_rewards"`
}

// IndexerConfig points the event indexer at a SQL database. An empty DSN
// disables indexing.
type IndexerConfig struct {
	DSN string `toml:"DSN" yaml:"dsn"`
}

// RateLimitConfig throttles the read-only HTTP surface per client.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond" yaml:"requests_per_second"`
	Burst             int     `toml:"Burst" yaml:"burst"`
}

// TelemetryConfig wires the OTLP exporters.
type TelemetryConfig struct {
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure"`
	Headers     string  `toml:"Headers" yaml:"headers"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics"`
	Traces      bool    `toml:"Traces" yaml:"traces"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sample_ratio"`
}
