package constants

import "time"

// Redis keys
const (
	RedisKeyRecentEvents = "treasury:recent_events"
	// RedisKeySeenSignature prefixes request signatures already accepted.
	RedisKeySeenSignature = "treasury:seen_sig:"
)

// Redis Pub/Sub channels. Kind channels are PubSubChannelEvents + ":" + kind.
const (
	PubSubChannelEvents = "treasury:events"
	PubSubPatternByKind = "treasury:events:*"
)

// Limits
const (
	MaxRecentEvents     = 100
	MaxRecentEventsPage = 200
)

// ClickHouse
const (
	ClickHouseEventsTable = "ledger_events"
)

// Request signing
const (
	HeaderPrincipal = "X-Principal"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"

	MaxSignatureSkew = 5 * time.Minute
)

type TokenInfo struct {
	Symbol   string
	Decimals uint8
}

// KnownTokens maps mint addresses to symbol and decimals.
var KnownTokens = map[string]TokenInfo{
	"So11111111111111111111111111111111111111112":  {"SOL", 9},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {"USDC", 6},
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {"USDT", 6},
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  {"mSOL", 9},
	"7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs": {"WETH", 8},
	"3NZ9JMVBmGAqocybic2c7LQCJScmgsAZ6vQqTDzcqmJh": {"WBTC", 8},
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": {"BONK", 5},
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  {"JUP", 6},
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": {"RAY", 6},
}
