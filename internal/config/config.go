package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	TreasuryWallet       string
	FeeCollectionPrivKey string
	RPCURL               string
	WebhookURL           string
	ServiceName          string
	APIKey               string
	CORSAllowOrigin      string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Blockchain
	Network  string // mainnet | sepolia | base | optimism | arbitrum
	GasLimit int

	// Fee policy
	FeePercentage float64
	MinimumFee    float64
	MaximumFee    float64

	// Settlement
	AutoTransferFees       bool
	BatchSize              int
	TransferTimeoutSeconds int
	TransferDelaySeconds   int
	SettlementIntervalMin  int

	// Risk Management
	MaxDailyTrades     int
	MaxPositionSizeUSD float64

	// Scanner
	ScanSymbols         []string
	ScanIntervalMinutes int
	OpportunityTTLHours int

	// Agent runtime
	AgentTickSeconds int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		TreasuryWallet:       envStr("TREASURY_WALLET_ADDRESS", ""),
		FeeCollectionPrivKey: envStr("FEE_COLLECTION_PRIVATE_KEY", ""),
		RPCURL:               envStr("RPC_URL", ""),
		WebhookURL:           envStr("WEBHOOK_URL", ""),
		ServiceName:          envStr("SERVICE_NAME", "TrahnAgentDesk"),
		APIKey:               envStr("API_KEY", ""),
		CORSAllowOrigin:      envStr("CORS_ALLOW_ORIGIN", "*"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "trahn_agents"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Blockchain
		Network:  envStr("BLOCKCHAIN_NETWORK", "mainnet"),
		GasLimit: envInt("GAS_LIMIT", 100000),

		// Fee policy: 0.1% with a $0.01 floor by default
		FeePercentage: envFloat("TRANSACTION_FEE_PERCENTAGE", 0.001),
		MinimumFee:    envFloat("MINIMUM_FEE_USD", 0.01),
		MaximumFee:    envFloat("MAXIMUM_FEE_USD", 0),

		// Settlement
		AutoTransferFees:       envBool("AUTO_TRANSFER_FEES", false),
		BatchSize:              envInt("SETTLEMENT_BATCH_SIZE", 50),
		TransferTimeoutSeconds: envInt("TRANSFER_TIMEOUT_SECONDS", 30),
		TransferDelaySeconds:   envInt("TRANSFER_DELAY_SECONDS", 1),
		SettlementIntervalMin:  envInt("SETTLEMENT_INTERVAL_MINUTES", 60),

		// Risk
		MaxDailyTrades:     envInt("MAX_DAILY_TRADES", 50),
		MaxPositionSizeUSD: envFloat("MAX_POSITION_SIZE_USD", 10000),

		// Scanner
		ScanSymbols:         envList("SCAN_SYMBOLS", []string{"BTC", "ETH", "SOL"}),
		ScanIntervalMinutes: envInt("SCAN_INTERVAL_MINUTES", 15),
		OpportunityTTLHours: envInt("OPPORTUNITY_TTL_HOURS", 24),

		// Agent runtime
		AgentTickSeconds: envInt("AGENT_TICK_SECONDS", 60),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.AutoTransferFees || c.SettlementIntervalMin > 0 {
		if c.TreasuryWallet == "" {
			errs = append(errs, "TREASURY_WALLET_ADDRESS is required for fee settlement")
		} else if !strings.HasPrefix(c.TreasuryWallet, "0x") {
			errs = append(errs, "TREASURY_WALLET_ADDRESS must be a 0x-prefixed address")
		}
		if c.FeeCollectionPrivKey == "" {
			errs = append(errs, "FEE_COLLECTION_PRIVATE_KEY is required for fee settlement")
		}
	}
	if c.FeePercentage < 0 {
		errs = append(errs, "TRANSACTION_FEE_PERCENTAGE must be non-negative")
	}
	if c.MaximumFee > 0 && c.MaximumFee < c.MinimumFee {
		errs = append(errs, "MAXIMUM_FEE_USD must not be below MINIMUM_FEE_USD")
	}
	if c.BatchSize <= 0 || c.BatchSize > 50 {
		errs = append(errs, "SETTLEMENT_BATCH_SIZE must be between 1 and 50")
	}

	if c.RPCURL == "" {
		fmt.Println("[WARN] RPC_URL not set — fee transfers will use the default public endpoint")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set — REST API has no authentication")
	}
	if c.MaxDailyTrades == 0 && c.MaxPositionSizeUSD == 0 {
		fmt.Println("[WARN] MAX_DAILY_TRADES and MAX_POSITION_SIZE_USD are both 0 — no per-trade limits active")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== TRAHN Agent Trading Backend Configuration ===")
	fmt.Printf("Network: %s\n", c.Network)
	if len(c.TreasuryWallet) > 16 {
		fmt.Printf("Treasury: %s...%s\n", c.TreasuryWallet[:10], c.TreasuryWallet[len(c.TreasuryWallet)-6:])
	}
	fmt.Println("--------------------------------------")
	fmt.Println("Fee Policy:")
	fmt.Printf("  Percentage: %.3f%%\n", c.FeePercentage*100)
	fmt.Printf("  Minimum: $%.2f\n", c.MinimumFee)
	if c.MaximumFee > 0 {
		fmt.Printf("  Maximum: $%.2f\n", c.MaximumFee)
	} else {
		fmt.Println("  Maximum: none")
	}
	fmt.Println("--------------------------------------")
	fmt.Println("Settlement:")
	fmt.Printf("  Auto-transfer: %v\n", c.AutoTransferFees)
	fmt.Printf("  Batch size: %d\n", c.BatchSize)
	fmt.Printf("  Interval: every %d minutes\n", c.SettlementIntervalMin)
	fmt.Println("--------------------------------------")
	fmt.Println("Scanner:")
	fmt.Printf("  Symbols: %s\n", strings.Join(c.ScanSymbols, ", "))
	fmt.Printf("  Interval: every %d minutes\n", c.ScanIntervalMinutes)
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) TransferTimeout() time.Duration {
	return time.Duration(c.TransferTimeoutSeconds) * time.Second
}

func (c *Config) TransferDelay() time.Duration {
	return time.Duration(c.TransferDelaySeconds) * time.Second
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
