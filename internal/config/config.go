package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "SafiriWallet"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultSessionReplayTTL = 5 * time.Minute
	defaultSessionRateLimit = 20
	defaultTaskTimeout      = 2 * time.Minute

	// Defaults for the Starknet Sepolia testnet the service runs against.
	defaultNodeURL          = "https://free-rpc.nethermind.io/sepolia-juno/v0_7"
	defaultAccountClassHash = "0x036078334509b514626504edc9fb252328d1a240e4e948bef8d0c08dff45927f"
	defaultStrkContract     = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
	defaultEthContract      = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
	defaultTxVersion        = "0x3"
	defaultMaxFee           = "100000000000000"
	defaultFundingAmount    = "0.0001"
	defaultPollInterval     = 2 * time.Second
	defaultMaxPollAttempts  = 10
	defaultSettleDelay      = 5 * time.Second

	defaultSMSBaseURL  = "https://api.sandbox.africastalking.com/version1/messaging"
	defaultSMSUsername = "sandbox"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	ShutdownPeriod   time.Duration
	SessionReplayTTL time.Duration
	SessionRateLimit int
	TaskTimeout      time.Duration

	Chain ChainConfig
	SMS   SMSConfig
}

// ChainConfig holds everything the chain client and the funding worker need.
// AdminAddress/AdminPrivateKey are optional: without them provisioning
// degrades to "created but undeployed".
type ChainConfig struct {
	NodeURL          string
	AccountClassHash string
	StrkContract     string
	EthContract      string
	TxVersion        string
	MaxFee           string
	AdminAddress     string
	AdminPrivateKey  string
	FundingAmount    string // display units of the gas token, e.g. "0.0001"
	PollInterval     time.Duration
	MaxPollAttempts  int
	SettleDelay      time.Duration
}

// SMSConfig holds Africa's Talking credentials. An empty APIKey selects the
// logging notifier instead of the real gateway.
type SMSConfig struct {
	APIKey   string
	Username string
	BaseURL  string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		SessionReplayTTL: defaultSessionReplayTTL,
		SessionRateLimit: defaultSessionRateLimit,
		TaskTimeout:      defaultTaskTimeout,
		Chain: ChainConfig{
			NodeURL:          getEnv("STARKNET_NODE_URL", defaultNodeURL),
			AccountClassHash: getEnv("ACCOUNT_CLASS_HASH", defaultAccountClassHash),
			StrkContract:     getEnv("STRK_CONTRACT", defaultStrkContract),
			EthContract:      getEnv("ETH_CONTRACT", defaultEthContract),
			TxVersion:        getEnv("TRANSACTION_VERSION", defaultTxVersion),
			MaxFee:           getEnv("MAX_FEE", defaultMaxFee),
			AdminAddress:     os.Getenv("ADMIN_ACCOUNT_ADDRESS"),
			AdminPrivateKey:  os.Getenv("ADMIN_PRIVATE_KEY"),
			FundingAmount:    getEnv("FUNDING_AMOUNT", defaultFundingAmount),
			PollInterval:     defaultPollInterval,
			MaxPollAttempts:  defaultMaxPollAttempts,
			SettleDelay:      defaultSettleDelay,
		},
		SMS: SMSConfig{
			APIKey:   os.Getenv("AT_API_KEY"),
			Username: getEnv("AT_USERNAME", defaultSMSUsername),
			BaseURL:  getEnv("AT_BASE_URL", defaultSMSBaseURL),
		},
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("SESSION_REPLAY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SESSION_REPLAY_TTL: %w", err)
		}
		cfg.SessionReplayTTL = d
	}

	if v := os.Getenv("SESSION_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SESSION_RATE_LIMIT: %w", err)
		}
		cfg.SessionRateLimit = n
	}

	if v := os.Getenv("TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASK_TIMEOUT: %w", err)
		}
		cfg.TaskTimeout = d
	}

	if v := os.Getenv("CONFIRM_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONFIRM_POLL_INTERVAL: %w", err)
		}
		cfg.Chain.PollInterval = d
	}

	if v := os.Getenv("CONFIRM_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONFIRM_MAX_ATTEMPTS: %w", err)
		}
		cfg.Chain.MaxPollAttempts = n
	}

	if v := os.Getenv("SETTLE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SETTLE_DELAY: %w", err)
		}
		cfg.Chain.SettleDelay = d
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if (cfg.Chain.AdminAddress == "") != (cfg.Chain.AdminPrivateKey == "") {
		return Config{}, fmt.Errorf("ADMIN_ACCOUNT_ADDRESS and ADMIN_PRIVATE_KEY must be set together")
	}

	return cfg, nil
}

// HasAdminAccount reports whether an admin funding account is configured.
func (c ChainConfig) HasAdminAccount() bool {
	return c.AdminAddress != "" && c.AdminPrivateKey != ""
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
