package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"alert-digest/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Source     SourceConfig     `mapstructure:"source"`
	Report     ReportConfig     `mapstructure:"report"`
	Export     ExportConfig     `mapstructure:"export"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ExtractionConfig tunes how raw mail becomes events.
type ExtractionConfig struct {
	VendorMarker string        `mapstructure:"vendor_marker"`
	UTCOffset    time.Duration `mapstructure:"utc_offset"`
	Workers      int           `mapstructure:"workers"`
}

// DirectoryConfig locates the subscription table. DSN takes precedence over Path.
type DirectoryConfig struct {
	Path  string `mapstructure:"path"`
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// SourceConfig selects which files are read.
type SourceConfig struct {
	Extensions []string `mapstructure:"extensions"`
}

// ReportConfig shapes the rendered report.
type ReportConfig struct {
	Format    string `mapstructure:"format"`
	SortDates bool   `mapstructure:"sort_dates"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	ChartWidth  int `mapstructure:"chart_width"`
	ChartHeight int `mapstructure:"chart_height"`
}

// MetricsConfig enables the Prometheus textfile output.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// AlertingConfig defines report delivery.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram delivery channel.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ALERTDIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "alertdigest")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("extraction.vendor_marker", "microsoft")
	v.SetDefault("extraction.utc_offset", "5h")
	v.SetDefault("extraction.workers", 4)

	v.SetDefault("directory.path", "suscripciones.csv")
	v.SetDefault("directory.table", "suscripciones")

	v.SetDefault("source.extensions", []string{".eml", ".yaml", ".yml"})

	v.SetDefault("report.format", "text")
	v.SetDefault("report.sort_dates", false)

	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 720)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")
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
	if strings.TrimSpace(c.Extraction.VendorMarker) == "" {
		return fmt.Errorf("extraction.vendor_marker must not be empty")
	}
	if c.Extraction.UTCOffset < 0 {
		return fmt.Errorf("extraction.utc_offset cannot be negative")
	}
	if c.Extraction.Workers < 1 {
		return fmt.Errorf("extraction.workers must be at least 1")
	}
	if c.Directory.DSN == "" && c.Directory.Path == "" {
		return fmt.Errorf("directory.path or directory.dsn must be configured")
	}
	switch c.Report.Format {
	case "text", "json":
	default:
		return fmt.Errorf("report.format must be text or json, got %q", c.Report.Format)
	}
	if c.Export.ChartWidth <= 0 || c.Export.ChartHeight <= 0 {
		return fmt.Errorf("export chart dimensions must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be configured")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be configured")
		}
	}
	return nil
}
