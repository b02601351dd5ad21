package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	App        AppConfig
	Solana     SolanaConfig
	Monitoring MonitoringConfig
	Payout     PayoutConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// SolanaConfig holds Solana network and wallet settings
type SolanaConfig struct {
	Network                string
	RPCURL                 string
	ServerWalletPrivateKey string
	PlatformWalletAddress  string
	TokenMintAddress       string
	// MockSettlement disables real on-chain transfers. Used in environments
	// without a funded server wallet.
	MockSettlement bool
}

// MonitoringConfig holds the default detection rule thresholds used to seed
// the rule table on first migration. Runtime evaluation always reads the
// persisted rules, which admins can tune.
type MonitoringConfig struct {
	MaxScorePerGame       int64
	MaxMovesPerMinute     float64
	MinReactionTimeMs     float64
	PerfectMovesThreshold float64
	ZeroMistakesThreshold int
	SessionCountPerHour   int
	TempBanDuration       time.Duration
	AutoBanScoreThreshold int
}

// PayoutConfig holds settlement worker tuning
type PayoutConfig struct {
	Interval           time.Duration
	BatchSize          int
	MaxAttempts        int
	JobDelay           time.Duration
	ExecutorTimeout    time.Duration
	PlatformFeePercent float64
	MinPayoutThreshold float64
	// DisputeWindow delays freshly queued prize payouts so an operator can
	// intervene before funds move.
	DisputeWindow time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "arcade_arena"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Solana: SolanaConfig{
			Network:                getEnv("SOLANA_NETWORK", "devnet"),
			RPCURL:                 getEnv("SOLANA_RPC_URL", ""),
			ServerWalletPrivateKey: getEnv("SERVER_WALLET_PRIVATE_KEY", ""),
			PlatformWalletAddress:  getEnv("PLATFORM_WALLET_PUBLIC_KEY", ""),
			TokenMintAddress:       getEnv("TOKEN_MINT_ADDRESS", ""),
			MockSettlement:         getEnvBool("MOCK_SETTLEMENT", false),
		},
		Monitoring: MonitoringConfig{
			MaxScorePerGame:       getEnvInt64("RULE_MAX_SCORE_PER_GAME", 1000000),
			MaxMovesPerMinute:     getEnvFloat("RULE_MAX_MOVES_PER_MINUTE", 300),
			MinReactionTimeMs:     getEnvFloat("RULE_MIN_REACTION_TIME_MS", 150),
			PerfectMovesThreshold: getEnvFloat("RULE_PERFECT_MOVES_THRESHOLD", 0.95),
			ZeroMistakesThreshold: getEnvInt("RULE_ZERO_MISTAKES_THRESHOLD", 50),
			SessionCountPerHour:   getEnvInt("RULE_SESSION_COUNT_PER_HOUR", 20),
			TempBanDuration:       time.Duration(getEnvInt("TEMP_BAN_DAYS", 7)) * 24 * time.Hour,
			AutoBanScoreThreshold: getEnvInt("AUTO_BAN_SCORE_THRESHOLD", 80),
		},
		Payout: PayoutConfig{
			Interval:           time.Duration(getEnvInt("PAYOUT_INTERVAL_SECONDS", 30)) * time.Second,
			BatchSize:          getEnvInt("PAYOUT_BATCH_SIZE", 10),
			MaxAttempts:        getEnvInt("PAYOUT_MAX_ATTEMPTS", 3),
			JobDelay:           time.Duration(getEnvInt("PAYOUT_JOB_DELAY_MS", 500)) * time.Millisecond,
			ExecutorTimeout:    time.Duration(getEnvInt("PAYOUT_EXECUTOR_TIMEOUT_SECONDS", 60)) * time.Second,
			PlatformFeePercent: getEnvFloat("PLATFORM_FEE_PERCENT", 5),
			MinPayoutThreshold: getEnvFloat("MIN_PAYOUT_THRESHOLD", 10),
			DisputeWindow:      time.Duration(getEnvInt("PAYOUT_DISPUTE_WINDOW_SECONDS", 30)) * time.Second,
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Payout.MaxAttempts < 1 {
		return nil, fmt.Errorf("PAYOUT_MAX_ATTEMPTS must be at least 1")
	}

	if config.Payout.PlatformFeePercent < 0 || config.Payout.PlatformFeePercent >= 100 {
		return nil, fmt.Errorf("PLATFORM_FEE_PERCENT must be in [0, 100)")
	}

	if !config.Solana.MockSettlement && config.Solana.ServerWalletPrivateKey == "" {
		return nil, fmt.Errorf("SERVER_WALLET_PRIVATE_KEY is required unless MOCK_SETTLEMENT=true")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
