package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	BackendMemory = "memory"
	BackendSPL    = "spl"
)

type Config struct {
	// Backend selects in-memory assets and routers or SPL tokens on chain.
	Backend string

	// RPC settings
	RPCUrl     string
	Commitment string
	// RPCRequestsPerSecond caps calls to the node across all wallets.
	RPCRequestsPerSecond float64

	// Assets. Symbol and decimals fall back to the known token table.
	SourceMint     string
	SourceSymbol   string
	SourceDecimals int
	DestMint       string
	DestSymbol     string
	DestDecimals   int

	// Principals
	OwnerAddress      string
	CustodyPrivateKey string
	RouterAPrivateKey string
	RouterBPrivateKey string
	MakerPrivateKey   string

	// Router A
	PoolConfigPath string
	// MaxPriceImpactBps bounds router A hops and the Jupiter price router B
	// fills at. Zero disables it.
	MaxPriceImpactBps int

	// Router B
	RFQSpreadBps int
	// RFQFixedRate prices router B offline (dest units per source unit).
	// Empty uses the Jupiter quote API.
	RFQFixedRate string
	// MakerSeed is the raw dest inventory minted to the maker in memory.
	MakerSeed uint64

	// Swap risk, amounts in whole source units. Empty disables the limit.
	DefaultSlippageBps int
	MaxSlippageBps     int
	MaxSwapAmount      string
	DailySwapLimit     string

	// Jupiter
	JupiterBaseURL string
	JupiterAPIKey  string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// AI
	OpenRouterAPIKey string
	AIModel          string

	// API
	APIAddr         string
	APIKey          string
	APIWriteTimeout time.Duration
	DevMode         bool

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func Load() *Config {
	return &Config{
		Backend: strings.ToLower(getEnv("TREASURY_BACKEND", BackendMemory)),

		// RPC
		RPCUrl:     getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		Commitment: getEnv("SOLANA_COMMITMENT", "confirmed"),
		// Public mainnet allows roughly 10 requests per second per IP.
		RPCRequestsPerSecond: getFloatEnv("SOLANA_RPC_RPS", 8),

		// Assets
		SourceMint:     getEnv("SOURCE_MINT", "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs"),
		SourceSymbol:   getEnv("SOURCE_SYMBOL", ""),
		SourceDecimals: getIntEnv("SOURCE_DECIMALS", -1),
		DestMint:       getEnv("DEST_MINT", "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
		DestSymbol:     getEnv("DEST_SYMBOL", ""),
		DestDecimals:   getIntEnv("DEST_DECIMALS", -1),

		// Principals
		OwnerAddress:      getEnv("OWNER_ADDRESS", ""),
		CustodyPrivateKey: getEnv("CUSTODY_PRIVATE_KEY", ""),
		RouterAPrivateKey: getEnv("ROUTER_A_PRIVATE_KEY", ""),
		RouterBPrivateKey: getEnv("ROUTER_B_PRIVATE_KEY", ""),
		MakerPrivateKey:   getEnv("MAKER_PRIVATE_KEY", ""),

		// Routers
		PoolConfigPath:    getEnv("POOL_CONFIG_PATH", "configs/pools.json"),
		MaxPriceImpactBps: getIntEnv("MAX_PRICE_IMPACT_BPS", 0),
		RFQSpreadBps:      getIntEnv("RFQ_SPREAD_BPS", 10),
		RFQFixedRate:      getEnv("RFQ_FIXED_RATE", ""),
		MakerSeed:         getUintEnv("RFQ_MAKER_SEED", 1_000_000_000_000),

		// Risk
		DefaultSlippageBps: getIntEnv("DEFAULT_SLIPPAGE_BPS", 100),
		MaxSlippageBps:     getIntEnv("MAX_SLIPPAGE_BPS", 1000),
		MaxSwapAmount:      getEnv("RISK_MAX_SWAP_AMOUNT", ""),
		DailySwapLimit:     getEnv("RISK_DAILY_SWAP_LIMIT", ""),

		// Jupiter
		JupiterBaseURL: getEnv("JUPITER_BASE_URL", ""),
		JupiterAPIKey:  getEnv("JUPITER_API_KEY", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "treasury"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		// spl swaps wait for an approve and a swap confirmation.
		APIWriteTimeout: getDurationEnv("API_WRITE_TIMEOUT", 150*time.Second),
		DevMode:         getBoolEnv("DEV_MODE", false),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),
	}
}

// Validate checks the settings every backend needs plus the keys the spl
// backend cannot run without.
func (c *Config) Validate() error {
	var errs []error
	req := func(name, val string) {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	switch c.Backend {
	case BackendMemory:
	case BackendSPL:
		req("SOLANA_RPC_URL", c.RPCUrl)
		req("CUSTODY_PRIVATE_KEY", c.CustodyPrivateKey)
		req("ROUTER_A_PRIVATE_KEY", c.RouterAPrivateKey)
		req("ROUTER_B_PRIVATE_KEY", c.RouterBPrivateKey)
		req("MAKER_PRIVATE_KEY", c.MakerPrivateKey)
		if c.RFQFixedRate != "" {
			errs = append(errs, errors.New("RFQ_FIXED_RATE is only supported by the memory backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("TREASURY_BACKEND must be %q or %q, got %q", BackendMemory, BackendSPL, c.Backend))
	}

	req("OWNER_ADDRESS", c.OwnerAddress)
	req("SOURCE_MINT", c.SourceMint)
	req("DEST_MINT", c.DestMint)
	req("POOL_CONFIG_PATH", c.PoolConfigPath)
	if c.SourceMint != "" && c.SourceMint == c.DestMint {
		errs = append(errs, errors.New("SOURCE_MINT and DEST_MINT must differ"))
	}
	if c.SourceDecimals > 255 || c.DestDecimals > 255 {
		errs = append(errs, errors.New("token decimals must fit in a byte"))
	}
	if c.MaxPriceImpactBps < 0 || c.MaxPriceImpactBps > 10000 {
		errs = append(errs, errors.New("MAX_PRICE_IMPACT_BPS must be within 0..10000"))
	}
	if c.RFQSpreadBps < 0 || c.RFQSpreadBps >= 10000 {
		errs = append(errs, errors.New("RFQ_SPREAD_BPS must be within 0..9999"))
	}
	if c.DefaultSlippageBps < 0 || c.MaxSlippageBps > 10000 || c.DefaultSlippageBps > c.MaxSlippageBps {
		errs = append(errs, errors.New("slippage bps must satisfy 0 <= DEFAULT_SLIPPAGE_BPS <= MAX_SLIPPAGE_BPS <= 10000"))
	}
	for name, val := range map[string]string{"RISK_MAX_SWAP_AMOUNT": c.MaxSwapAmount, "RISK_DAILY_SWAP_LIMIT": c.DailySwapLimit} {
		if val == "" {
			continue
		}
		if d, err := decimal.NewFromString(val); err != nil || !d.IsPositive() {
			errs = append(errs, fmt.Errorf("%s %q is not a positive decimal", name, val))
		}
	}
	if c.RFQFixedRate != "" {
		if rate, err := decimal.NewFromString(c.RFQFixedRate); err != nil || !rate.IsPositive() {
			errs = append(errs, fmt.Errorf("RFQ_FIXED_RATE %q is not a positive decimal", c.RFQFixedRate))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getUintEnv(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
