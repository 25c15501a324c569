package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	EnvDataDir    = "WHALEWATCH_DATA_DIR"
	EnvPrivateKey = "HYPERLIQUID_PRIVATE_KEY"

	DefaultMinValue       = 2_500_000
	DefaultConcurrency    = 8
	DefaultRatePerSecond  = 10.0
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultScanInterval   = 5 * time.Minute
	DefaultAddr           = ":8080"
	DefaultDataDir        = "./wal/ledger"
	DefaultInfoURL        = "https://api.hyperliquid.xyz/info"
	DefaultLeaderboardURL = "https://stats-data.hyperliquid.xyz/Mainnet/leaderboard"
	DefaultHyperliquidURL = "https://api.hyperliquid.xyz"
)

type Config struct {
	MinValue       decimal.Decimal
	Concurrency    int
	RatePerSecond  float64
	MaxAttempts    int
	BaseDelay      time.Duration
	RequestTimeout time.Duration
	ScanInterval   time.Duration
	Once           bool
	Addr           string
	DataDir        string
	InfoURL        string
	LeaderboardURL string
	HyperliquidURL string
	// PrivateKey is read from the environment only; empty means an ephemeral signer.
	PrivateKey string
}

// ConfigTmp is the YAML shape of Config.
type ConfigTmp struct {
	MinValue       string        `yaml:"min_value"`
	Concurrency    int           `yaml:"concurrency,omitempty"`
	RatePerSecond  string        `yaml:"rate_per_second,omitempty"`
	MaxAttempts    int           `yaml:"max_attempts,omitempty"`
	BaseDelay      time.Duration `yaml:"base_delay,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	ScanInterval   time.Duration `yaml:"scan_interval,omitempty"`
	Once           bool          `yaml:"once,omitempty"`
	Addr           string        `yaml:"addr,omitempty"`
	DataDir        string        `yaml:"data_dir,omitempty"`
	InfoURL        string        `yaml:"info_url,omitempty"`
	LeaderboardURL string        `yaml:"leaderboard_url,omitempty"`
	HyperliquidURL string        `yaml:"hyperliquid_url,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MinValue:       decimal.NewFromInt(DefaultMinValue),
		Concurrency:    DefaultConcurrency,
		RatePerSecond:  DefaultRatePerSecond,
		MaxAttempts:    DefaultMaxAttempts,
		BaseDelay:      DefaultBaseDelay,
		RequestTimeout: DefaultRequestTimeout,
		ScanInterval:   DefaultScanInterval,
		Addr:           DefaultAddr,
		DataDir:        DefaultDataDir,
		InfoURL:        DefaultInfoURL,
		LeaderboardURL: DefaultLeaderboardURL,
		HyperliquidURL: DefaultHyperliquidURL,
	}
}

// LoadEnv reads .env files into the process environment. A missing file is not an error.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "load .env")
	}
	return nil
}

// Get builds the configuration from defaults, an optional YAML file (--config),
// explicitly set flags and finally the environment, later sources winning.
func Get(args []string) (Config, Options, error) {
	opts, err := parseFlags(args)
	if err != nil {
		return Config{}, Options{}, err
	}

	cfg := Default()
	if opts.ConfigPath != "" {
		fromFile, err := getYaml(opts.ConfigPath)
		if err != nil {
			return Config{}, opts, err
		}
		cfg = fromFile
	}

	if err := opts.apply(&cfg); err != nil {
		return Config{}, opts, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, opts, err
	}
	return cfg, opts, nil
}

func applyEnv(cfg *Config) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = dir
	}
	cfg.PrivateKey = os.Getenv(EnvPrivateKey)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	return fromTmp(tmp)
}

func fromTmp(c ConfigTmp) (Config, error) {
	cfg := Default()

	if c.MinValue != "" {
		minValue, err := decimal.NewFromString(c.MinValue)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'min_value' param in yaml config (must be a decimal), error: %w", err)
		}
		cfg.MinValue = minValue
	}
	if c.RatePerSecond != "" {
		rate, err := strconv.ParseFloat(c.RatePerSecond, 64)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'rate_per_second' param in yaml config (must be a number), error: %w", err)
		}
		cfg.RatePerSecond = rate
	}
	if c.Concurrency != 0 {
		cfg.Concurrency = c.Concurrency
	}
	if c.MaxAttempts != 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay != 0 {
		cfg.BaseDelay = c.BaseDelay
	}
	if c.RequestTimeout != 0 {
		cfg.RequestTimeout = c.RequestTimeout
	}
	if c.ScanInterval != 0 {
		cfg.ScanInterval = c.ScanInterval
	}
	cfg.Once = c.Once
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.DataDir != "" {
		cfg.DataDir = c.DataDir
	}
	if c.InfoURL != "" {
		cfg.InfoURL = c.InfoURL
	}
	if c.LeaderboardURL != "" {
		cfg.LeaderboardURL = c.LeaderboardURL
	}
	if c.HyperliquidURL != "" {
		cfg.HyperliquidURL = c.HyperliquidURL
	}

	return cfg, nil
}

// ToTmp converts cfg to its YAML shape. The private key is never written.
func (c Config) ToTmp() ConfigTmp {
	return ConfigTmp{
		MinValue:       c.MinValue.String(),
		Concurrency:    c.Concurrency,
		RatePerSecond:  strconv.FormatFloat(c.RatePerSecond, 'f', -1, 64),
		MaxAttempts:    c.MaxAttempts,
		BaseDelay:      c.BaseDelay,
		RequestTimeout: c.RequestTimeout,
		ScanInterval:   c.ScanInterval,
		Once:           c.Once,
		Addr:           c.Addr,
		DataDir:        c.DataDir,
		InfoURL:        c.InfoURL,
		LeaderboardURL: c.LeaderboardURL,
		HyperliquidURL: c.HyperliquidURL,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.MinValue.IsNegative():
		return fmt.Errorf("invalid min value %s, must not be negative", c.MinValue)
	case c.Concurrency < 1:
		return fmt.Errorf("invalid concurrency %d, must be at least 1", c.Concurrency)
	case c.RatePerSecond <= 0:
		return fmt.Errorf("invalid rate %v, must be positive", c.RatePerSecond)
	case c.MaxAttempts < 1:
		return fmt.Errorf("invalid max attempts %d, must be at least 1", c.MaxAttempts)
	case c.BaseDelay < 0:
		return fmt.Errorf("invalid base delay %s", c.BaseDelay)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("invalid request timeout %s", c.RequestTimeout)
	case !c.Once && c.ScanInterval <= 0:
		return fmt.Errorf("invalid scan interval %s, must be positive unless --once is set", c.ScanInterval)
	}
	return nil
}
