package config

import (
	"log"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MySQLDSN string
	RedisURL string
	Port     string

	// Chain access
	RPCURL        string
	WSURL         string // optional, enables the transfer watcher
	TokenAddress  string
	RouterAddress string
	TokenDecimals int

	SweepInterval time.Duration
	PriceInterval time.Duration

	// Lowercased denylist.
	Blacklist []string

	// Notifier daemon
	DiscordToken   string
	DiscordChannel string
}

// Governance constants. Weights are measured in votes (balance divided by
// TokensPerVote), so RequiredWeight is a vote count, not a raw balance.
const (
	VotingPeriod       = 7 * 24 * time.Hour
	RequiredPercentage = 70
	PageSize           = 10
)

// RequiredWeight is the minimum aggregate for-weight a proposal needs to
// pass its voting phase: 150B votes.
func RequiredWeight() *big.Int {
	return new(big.Int).Mul(big.NewInt(150), pow10(9))
}

// TokensPerVote is the token denomination of one vote.
func (c Config) TokensPerVote() *big.Int {
	return pow10(c.TokenDecimals)
}

// MinProposalBalance is the balance needed to submit a proposal: 10B tokens.
func (c Config) MinProposalBalance() *big.Int {
	return new(big.Int).Mul(new(big.Int).Mul(big.NewInt(10), pow10(9)), pow10(c.TokenDecimals))
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	decimals, _ := strconv.Atoi(getenv("TOKEN_DECIMALS", "9"))
	sweep, _ := strconv.Atoi(getenv("SWEEP_INTERVAL", "3600"))
	price, _ := strconv.Atoi(getenv("PRICE_INTERVAL", "300"))

	var blacklist []string
	for _, a := range strings.Split(os.Getenv("BLACKLIST"), ",") {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			blacklist = append(blacklist, a)
		}
	}

	return Config{
		MySQLDSN:       getenv("MYSQL_DSN", "govapi:govapi@tcp(localhost:3306)/govapi?parseTime=true"),
		RedisURL:       getenv("REDIS_URL", "redis://localhost:6379/0"),
		Port:           getenv("PORT", "3000"),
		RPCURL:         getenv("RPC_URL", "https://bsc-dataseed.binance.org/"),
		WSURL:          os.Getenv("WS_URL"),
		TokenAddress:   getenv("TOKEN_ADDRESS", "0x0cf011a946f23a03ceff92a4632d5f9288c6c70d"),
		RouterAddress:  getenv("ROUTER_ADDRESS", "0x05fF2B0DB69458A0750badebc4f9e13aDd608C7F"),
		TokenDecimals:  decimals,
		SweepInterval:  time.Duration(sweep) * time.Second,
		PriceInterval:  time.Duration(price) * time.Second,
		Blacklist:      blacklist,
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordChannel: os.Getenv("DISCORD_CHANNEL"),
	}
}
