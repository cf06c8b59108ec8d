package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"odds-picks/internal/logging"
)

// DefaultSports are queried when odds.sports is not configured.
var DefaultSports = []string{"basketball_nba", "americanfootball_nfl", "baseball_mlb", "mixed_martial_arts_mma"}

// ErrMissingAPIKey is returned by ValidateForRun when no upstream key is configured.
var ErrMissingAPIKey = errors.New("odds.api_key is required (set THE_ODDS_API_KEY)")

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Odds      OddsConfig      `mapstructure:"odds"`
	Model     ModelConfig     `mapstructure:"model"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// OddsConfig covers access to The Odds API.
type OddsConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Sports         []string      `mapstructure:"sports"`
	Regions        string        `mapstructure:"regions"`
	Markets        string        `mapstructure:"markets"`
	OddsFormat     string        `mapstructure:"odds_format"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ModelConfig tunes training and pick selection.
type ModelConfig struct {
	TestRatio     float64 `mapstructure:"test_ratio"`
	Seed          int64   `mapstructure:"seed"`
	Threshold     float64 `mapstructure:"threshold"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the cadence of the schedule command.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig routes run summaries to operators.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	MaxPicks int            `mapstructure:"max_picks"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MetricsConfig exposes Prometheus metrics from the schedule command.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from defaults, an optional file and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ODDSPICKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// bindLegacyEnv keeps the unprefixed variable names operators already export.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"odds.api_key":  {"ODDSPICKS_ODDS_API_KEY", "THE_ODDS_API_KEY"},
		"odds.base_url": {"ODDSPICKS_ODDS_BASE_URL", "THE_ODDS_API_BASE_URL"},
		"database.dsn":  {"ODDSPICKS_DATABASE_DSN", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "oddspicks")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("odds.base_url", "https://api.the-odds-api.com/v4/sports/")
	v.SetDefault("odds.sports", DefaultSports)
	v.SetDefault("odds.regions", "us")
	v.SetDefault("odds.markets", "h2h,spreads,totals")
	v.SetDefault("odds.odds_format", "")
	v.SetDefault("odds.request_timeout", "30s")

	v.SetDefault("model.test_ratio", 0.2)
	v.SetDefault("model.seed", int64(42))
	v.SetDefault("model.threshold", 0.6)
	v.SetDefault("model.max_iterations", 100)

	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x6f646473))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.max_picks", 10)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("server.listen_addr", ":3001")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout", "30s")

	v.SetDefault("metrics.listen_addr", "")

	v.SetDefault("export.max_data_points", 10000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if len(c.Odds.Sports) == 0 {
		return fmt.Errorf("odds.sports must list at least one sport")
	}
	if strings.TrimSpace(c.Odds.BaseURL) == "" {
		return fmt.Errorf("odds.base_url must not be empty")
	}
	if c.Model.TestRatio <= 0 || c.Model.TestRatio >= 1 {
		return fmt.Errorf("model.test_ratio must be between 0 and 1 (exclusive)")
	}
	if c.Model.Threshold < 0 || c.Model.Threshold > 1 {
		return fmt.Errorf("model.threshold must be between 0 and 1")
	}
	if c.Model.MaxIterations <= 0 {
		return fmt.Errorf("model.max_iterations must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ValidateForRun checks the settings a batch run cannot do without.
func (c *Config) ValidateForRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Odds.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// PersistenceEnabled reports whether a storage target is configured.
func (c *Config) PersistenceEnabled() bool {
	return strings.TrimSpace(c.Database.DSN) != ""
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
