// Package config handles configuration loading for stockscore.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/seenimoa/stockscore/internal/analysis/technical"
	"github.com/seenimoa/stockscore/internal/datasource"
	"github.com/seenimoa/stockscore/internal/scoring"
)

// EnvPrefix prefixes every environment override, e.g. STOCKSCORE_API_PORT.
const EnvPrefix = "STOCKSCORE"

// Config represents the complete application configuration.
type Config struct {
	Analysis   AnalysisConfig   `mapstructure:"analysis"   yaml:"analysis"`
	Datasource DatasourceConfig `mapstructure:"datasource" yaml:"datasource"`
	Storage    StorageConfig    `mapstructure:"storage"    yaml:"storage"`
	Alerts     AlertsConfig     `mapstructure:"alerts"     yaml:"alerts"`
	Backtest   BacktestConfig   `mapstructure:"backtest"   yaml:"backtest"`
	Export     ExportConfig     `mapstructure:"export"     yaml:"export"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// AnalysisConfig holds the analysis core settings.
type AnalysisConfig struct {
	Benchmark    string             `mapstructure:"benchmark"      yaml:"benchmark"      validate:"required"`
	Period       string             `mapstructure:"period"         yaml:"period"`
	RiskFreeRate float64            `mapstructure:"risk_free_rate" yaml:"risk_free_rate"`
	Periods      technical.Periods  `mapstructure:"periods"        yaml:"periods"`
	Weights      scoring.Weights    `mapstructure:"weights"        yaml:"weights"`
	Thresholds   scoring.Thresholds `mapstructure:"thresholds"     yaml:"thresholds"`
}

// DatasourceConfig holds remote data settings.
type DatasourceConfig struct {
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	Burst     int           `mapstructure:"burst"      yaml:"burst"      validate:"gte=0"`
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"    validate:"gt=0"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	Cache     CacheConfig   `mapstructure:"cache"      yaml:"cache"`
	News      NewsConfig    `mapstructure:"news"       yaml:"news"`
}

// CacheConfig selects and sizes the response cache.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"          yaml:"backend"          validate:"oneof=memory badger none"`
	Dir             string        `mapstructure:"dir"              yaml:"dir"`
	TTL             time.Duration `mapstructure:"ttl"              yaml:"ttl"              validate:"gt=0"`
	MaxItems        int           `mapstructure:"max_items"        yaml:"max_items"        validate:"gt=0"`
	CleanupFraction float64       `mapstructure:"cleanup_fraction" yaml:"cleanup_fraction" validate:"gt=0,lte=1"`
}

// NewsConfig holds the headline feed settings.
type NewsConfig struct {
	Enabled bool   `mapstructure:"enabled"  yaml:"enabled"`
	FeedURL string `mapstructure:"feed_url" yaml:"feed_url" validate:"required_if=Enabled true"`
	Limit   int    `mapstructure:"limit"    yaml:"limit"    validate:"gte=0"`
}

// StorageConfig holds local persistence paths. An empty HistoryDB disables
// the analysis history.
type StorageConfig struct {
	HistoryDB  string `mapstructure:"history_db"  yaml:"history_db"`
	AlertsFile string `mapstructure:"alerts_file" yaml:"alerts_file" validate:"required"`
}

// AlertsConfig holds the alert watcher settings.
type AlertsConfig struct {
	Schedule string `mapstructure:"schedule" yaml:"schedule" validate:"required"`
}

// BacktestConfig holds walk-forward defaults.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital" yaml:"initial_capital" validate:"gt=0"`
	Warmup         int     `mapstructure:"warmup"          yaml:"warmup"          validate:"gt=0"`
	Step           int     `mapstructure:"step"            yaml:"step"            validate:"gt=0"`
}

// ExportConfig holds report export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         validate:"min=1,max=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	Token       string   `mapstructure:"token"        yaml:"token"` // optional bearer token for /api/v1
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockscore/config.yaml (home directory)
//  3. /etc/stockscore/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKSCORE_<SECTION>_<KEY>, e.g., STOCKSCORE_ANALYSIS_BENCHMARK
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockscore"))
	v.AddConfigPath("/etc/stockscore")

	bindEnv(v)

	// The config file is optional.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.expandPaths()
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	p := technical.DefaultPeriods()
	s := scoring.DefaultConfig()
	dataDir := filepath.Join(homeDir(), ".stockscore")

	// Analysis defaults
	v.SetDefault("analysis.benchmark", "^TA125.TA")
	v.SetDefault("analysis.period", datasource.DefaultPeriod)
	v.SetDefault("analysis.risk_free_rate", s.RiskFreeRate)
	v.SetDefault("analysis.periods.rsi", p.RSI)
	v.SetDefault("analysis.periods.macd_fast", p.MACDFast)
	v.SetDefault("analysis.periods.macd_slow", p.MACDSlow)
	v.SetDefault("analysis.periods.macd_signal", p.MACDSignal)
	v.SetDefault("analysis.periods.bb", p.BB)
	v.SetDefault("analysis.periods.bb_k", p.BBMult)
	v.SetDefault("analysis.periods.atr", p.ATR)
	v.SetDefault("analysis.periods.adx", p.ADX)
	v.SetDefault("analysis.periods.aroon", p.Aroon)
	v.SetDefault("analysis.periods.cmf", p.CMF)
	v.SetDefault("analysis.periods.roc", p.ROC)
	v.SetDefault("analysis.weights.technical", s.Weights.Technical)
	v.SetDefault("analysis.weights.risk", s.Weights.Risk)
	v.SetDefault("analysis.weights.fundamental", s.Weights.Fundamental)
	v.SetDefault("analysis.weights.sentiment", s.Weights.Sentiment)
	v.SetDefault("analysis.thresholds.strong_buy", s.Thresholds.StrongBuy)
	v.SetDefault("analysis.thresholds.buy", s.Thresholds.Buy)
	v.SetDefault("analysis.thresholds.hold", s.Thresholds.Hold)
	v.SetDefault("analysis.thresholds.sell", s.Thresholds.Sell)

	// Datasource defaults
	v.SetDefault("datasource.rate_limit", 5.0)
	v.SetDefault("datasource.burst", 5)
	v.SetDefault("datasource.timeout", datasource.DefaultTimeout)
	v.SetDefault("datasource.user_agent", datasource.DefaultUserAgent)
	v.SetDefault("datasource.cache.backend", "memory")
	v.SetDefault("datasource.cache.dir", filepath.Join(dataDir, "cache"))
	v.SetDefault("datasource.cache.ttl", 24*time.Hour)
	v.SetDefault("datasource.cache.max_items", 1000)
	v.SetDefault("datasource.cache.cleanup_fraction", 0.2)
	v.SetDefault("datasource.news.enabled", true)
	v.SetDefault("datasource.news.feed_url", datasource.DefaultNewsFeed)
	v.SetDefault("datasource.news.limit", datasource.DefaultNewsLimit)

	// Storage defaults
	v.SetDefault("storage.history_db", filepath.Join(dataDir, "history.db"))
	v.SetDefault("storage.alerts_file", filepath.Join(dataDir, "alerts.yaml"))

	// Alerts defaults
	v.SetDefault("alerts.schedule", "@every 5m")

	// Backtest defaults
	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.warmup", 20)
	v.SetDefault("backtest.step", 5)

	// Export defaults
	v.SetDefault("export.dir", "exports")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.token", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// expandPaths resolves a leading "~/" in the path settings.
func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Datasource.Cache.Dir, &c.Storage.HistoryDB, &c.Storage.AlertsFile, &c.Export.Dir,
	} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(homeDir(), (*p)[2:])
		}
	}
}

var validate = validator.New()

// Validate checks every section, the analysis period and the scoring rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := datasource.ValidatePeriod(c.Analysis.Period); err != nil {
		return fmt.Errorf("config: analysis.period: %w", err)
	}
	if _, err := c.ScoringConfig(); err != nil {
		return err
	}
	return nil
}

// ScoringConfig converts the analysis section to a validated scoring.Config.
func (c *Config) ScoringConfig() (scoring.Config, error) {
	sc := scoring.Config{
		Periods:      c.Analysis.Periods,
		RiskFreeRate: c.Analysis.RiskFreeRate,
		Weights:      c.Analysis.Weights,
		Thresholds:   c.Analysis.Thresholds,
	}
	if err := sc.Validate(); err != nil {
		return scoring.Config{}, err
	}
	return sc, nil
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
