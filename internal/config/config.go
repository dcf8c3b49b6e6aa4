package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Every tunable of the pipeline
// lives here; code never hardcodes thresholds.
type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty" default:"false"`
	} `yaml:"log"`

	Scheduler struct {
		PollInterval time.Duration `yaml:"poll_interval" default:"15s" validate:"gt=0"`
		// CycleTimeout bounds one evaluation cycle end to end, including
		// time spent queued behind source rate limiters.
		CycleTimeout    time.Duration `yaml:"cycle_timeout" default:"60s" validate:"gt=0"`
		StalenessTTL    time.Duration `yaml:"staleness_ttl" default:"30m" validate:"gt=0"`
		SweepInterval   time.Duration `yaml:"sweep_interval" default:"1m" validate:"gt=0"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s" validate:"gt=0"`
	} `yaml:"scheduler"`

	Engine struct {
		// MaxConcurrentEvaluations bounds the per-tick fan-out across all
		// candidates and sources.
		MaxConcurrentEvaluations int `yaml:"max_concurrent_evaluations" default:"8" validate:"gt=0"`
		// RetryBudget is the number of retryable failures tolerated per
		// candidate per source before the candidate is rejected.
		RetryBudget int `yaml:"retry_budget" default:"2" validate:"gte=0"`
		// MaxActiveCandidates caps registry size; discovery beyond the cap
		// is dropped until evictions free room.
		MaxActiveCandidates int `yaml:"max_active_candidates" default:"500" validate:"gt=0"`
	} `yaml:"engine"`

	Storage struct {
		Backend     string `yaml:"backend" default:"memory" validate:"oneof=memory postgres"`
		PostgresDSN string `yaml:"postgres_dsn"`
		Clickhouse  struct {
			Enabled bool   `yaml:"enabled" default:"false"`
			DSN     string `yaml:"dsn"`
		} `yaml:"clickhouse"`
	} `yaml:"storage"`

	Metrics struct {
		Enabled    bool   `yaml:"enabled" default:"true"`
		ListenAddr string `yaml:"listen_addr" default:":9090"`
		Path       string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Sources struct {
		Dexscreener SourceConfig `yaml:"dexscreener"`
		Rugcheck    SourceConfig `yaml:"rugcheck"`
		Bubblemaps  SourceConfig `yaml:"bubblemaps"`
		Moni        SourceConfig `yaml:"moni"`
		GMGN        SourceConfig `yaml:"gmgn"`
		Pumpfun     struct {
			Enabled        bool          `yaml:"enabled" default:"false"`
			WebsocketURL   string        `yaml:"websocket_url" default:"wss://pumpportal.fun/api/data"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s" validate:"gt=0"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"30s" validate:"gt=0"`
		} `yaml:"pumpfun"`
	} `yaml:"sources"`

	Filter struct {
		MinVolumeUSD    float64       `yaml:"min_volume_usd" default:"30000" validate:"gte=0"`
		MaxAge          time.Duration `yaml:"max_age" default:"24h" validate:"gt=0"`
		MinHolders      int           `yaml:"min_holders" default:"200" validate:"gte=0"`
		MinLiquidityUSD float64       `yaml:"min_liquidity_usd" default:"10000" validate:"gte=0"`
	} `yaml:"filter"`

	Decision struct {
		// MaxTopHolderShare rejects candidates whose top wallets hold more
		// than this share of supply, in [0,1].
		MaxTopHolderShare float64 `yaml:"max_top_holder_share" default:"0.5" validate:"gte=0,lte=1"`
		// MinSentiment is the social score required for a TRADE verdict.
		MinSentiment float64 `yaml:"min_sentiment" default:"70" validate:"gte=0,lte=100"`
		// WatchSentiment is the score floor below which a candidate is
		// rejected outright instead of watched.
		WatchSentiment float64 `yaml:"watch_sentiment" default:"40" validate:"gte=0,lte=100"`
	} `yaml:"decision"`

	Execution struct {
		Enabled      bool    `yaml:"enabled" default:"false"`
		PositionSize float64 `yaml:"position_size" default:"0.1" validate:"gt=0"`
		// MaxConcurrentTrades caps positions open at once; further TRADE
		// verdicts wait in MONITORED until a position settles.
		MaxConcurrentTrades int           `yaml:"max_concurrent_trades" default:"3" validate:"gt=0"`
		MaxRetries          int           `yaml:"max_retries" default:"3" validate:"gte=0"`
		InitialBackoff      time.Duration `yaml:"initial_backoff" default:"1s" validate:"gt=0"`
		MaxBackoff          time.Duration `yaml:"max_backoff" default:"30s" validate:"gt=0"`
		PollInterval        time.Duration `yaml:"poll_interval" default:"2s" validate:"gt=0"`
		OrderTimeout        time.Duration `yaml:"order_timeout" default:"60s" validate:"gt=0"`
		// Slippage is passed through to the venue on every order, in
		// percent.
		Slippage float64 `yaml:"slippage" default:"0.5" validate:"gte=0"`
	} `yaml:"execution"`
}

// SourceConfig is the shared shape of one HTTP signal source.
type SourceConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	// RateLimit is requests per second allowed against the source.
	RateLimit float64 `yaml:"rate_limit" default:"2" validate:"gt=0"`
	Burst     int     `yaml:"burst" default:"4" validate:"gt=0"`
	// MaxConcurrency bounds in-flight calls to the source.
	MaxConcurrency int `yaml:"max_concurrency" default:"4" validate:"gt=0"`
}

// Load reads a YAML configuration file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse parses YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns the configuration with every default applied and no file
// loaded. Used by tests and the memory backend quickstart.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets from environment
// variables so they stay out of config files.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SCOUT_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("SCOUT_CLICKHOUSE_DSN"); v != "" {
		c.Storage.Clickhouse.DSN = v
	}
	if v := os.Getenv("SCOUT_GMGN_API_KEY"); v != "" {
		c.Sources.GMGN.APIKey = v
	}
	if v := os.Getenv("SCOUT_MONI_API_KEY"); v != "" {
		c.Sources.Moni.APIKey = v
	}
	if v := os.Getenv("SCOUT_BUBBLEMAPS_API_KEY"); v != "" {
		c.Sources.Bubblemaps.APIKey = v
	}

	return c, nil
}

var validate = validator.New()

// Validate checks structural constraints plus the cross-field rules the
// validator tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
	}
	if c.Storage.Clickhouse.Enabled && c.Storage.Clickhouse.DSN == "" {
		return fmt.Errorf("storage.clickhouse.dsn is required when clickhouse is enabled")
	}
	if c.Decision.WatchSentiment > c.Decision.MinSentiment {
		return fmt.Errorf("decision.watch_sentiment must not exceed decision.min_sentiment")
	}
	if c.Execution.InitialBackoff > c.Execution.MaxBackoff {
		return fmt.Errorf("execution.initial_backoff must not exceed execution.max_backoff")
	}
	return nil
}
