package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"adlottery/native/lottery"
)

// Genesis holds the parsed values used to create the ledger singletons on a
// fresh database.
type Genesis struct {
	Admin             common.Address
	Authorized        []common.Address
	APYRateBps        uint64
	MinStake          *big.Int
	MaxStake          *big.Int
	SubmissionFee     *big.Int
	Strategy          lottery.Strategy
	VotingWindowMs    uint64
	DrawIntervalMs    uint64
	PayoutCap         uint64
	RewardPerPayout   *big.Int
	RetainHistory     bool
	SeedYield         *big.Int
	SeedVotingRewards *big.Int
}

// Genesis parses the configured amounts and addresses.
func (cfg *Config) Genesis() (Genesis, error) {
	g := Genesis{
		APYRateBps:     cfg.Staking.APYRateBps,
		VotingWindowMs: cfg.Lottery.VotingWindowMs,
		DrawIntervalMs: cfg.Lottery.DrawIntervalMs,
		PayoutCap:      cfg.Session.PayoutCap,
		RetainHistory:  cfg.Session.RetainHistory,
	}
	var err error
	if strings.TrimSpace(cfg.Treasury.Admin) != "" {
		if g.Admin, err = parseAddress("treasury.Admin", cfg.Treasury.Admin); err != nil {
			return g, err
		}
	}
	for i, raw := range cfg.Treasury.Authorized {
		addr, err := parseAddress(fmt.Sprintf("treasury.Authorized[%d]", i), raw)
		if err != nil {
			return g, err
		}
		g.Authorized = append(g.Authorized, addr)
	}
	amounts := []struct {
		field string
		raw   string
		dst   **big.Int
	}{
		{"staking.MinStake", cfg.Staking.MinStake, &g.MinStake},
		{"staking.MaxStake", cfg.Staking.MaxStake, &g.MaxStake},
		{"registry.SubmissionFee", cfg.Registry.SubmissionFee, &g.SubmissionFee},
		{"session.RewardPerPayout", cfg.Session.RewardPerPayout, &g.RewardPerPayout},
		{"treasury.SeedYield", cfg.Treasury.SeedYield, &g.SeedYield},
		{"treasury.SeedVotingRewards", cfg.Treasury.SeedVotingRewards, &g.SeedVotingRewards},
	}
	for _, amount := range amounts {
		value, err := parseUintAmount(amount.raw)
		if err != nil {
			return g, fmt.Errorf("invalid %s: %w", amount.field, err)
		}
		*amount.dst = value
	}
	if g.MaxStake.Sign() > 0 && g.MaxStake.Cmp(g.MinStake) < 0 {
		return g, fmt.Errorf("staking: MaxStake below MinStake")
	}
	if g.Strategy, err = parseStrategy(cfg.Lottery.Strategy); err != nil {
		return g, err
	}
	return g, nil
}

// HasAdmin reports whether the genesis names a treasury admin. Bootstrap is
// skipped without one.
func (g Genesis) HasAdmin() bool {
	return g.Admin != (common.Address{})
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return value, nil
}
