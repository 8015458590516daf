package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadcheck/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Match  MatchConfig  `yaml:"match" mapstructure:"match"`
	Fields FieldsConfig `yaml:"fields" mapstructure:"fields"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// MatchConfig configures the fuzzy matching cutoffs.
type MatchConfig struct {
	Thresholds model.Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
}

// FieldsConfig points at an optional column alias override file.
type FieldsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures batch classification.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig configures the run history backend. DatabaseURL is the
// SQLite path or the Postgres URL depending on the driver.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ExportConfig configures the CSV output files.
type ExportConfig struct {
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DelimiterRune returns the export delimiter as a rune.
func (c ExportConfig) DelimiterRune() (rune, error) {
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0, eris.Errorf("config: export.delimiter must be one character, got %q", c.Delimiter)
	}
	return r[0], nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("match.thresholds.company_high", 85)
	v.SetDefault("match.thresholds.company_mid", 70)
	v.SetDefault("match.thresholds.domain_high", 90)
	v.SetDefault("match.thresholds.domain_mid", 70)
	v.SetDefault("fields.path", "")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadcheck.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("export.delimiter", ";")
	v.SetDefault("export.output_dir", "out")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given mode, "check" or
// "serve". All problems are reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "check":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.Workers < 1 || c.Batch.Workers > 50 {
		problems = append(problems, "batch.workers must be between 1 and 50")
	}
	if err := c.Match.Thresholds.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.Export.DelimiterRune(); err != nil {
		problems = append(problems, err.Error())
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "none":
	default:
		problems = append(problems, "store.driver must be sqlite, postgres, or none")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
