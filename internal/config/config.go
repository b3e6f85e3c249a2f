package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Analyse AnalyseConfig `yaml:"analyse" mapstructure:"analyse"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EngineConfig configures the in-process geospatial engine.
type EngineConfig struct {
	Seats int `yaml:"seats" mapstructure:"seats"`
}

// ExtractConfig configures depression extraction.
type ExtractConfig struct {
	ZLimit    float64 `yaml:"z_limit" mapstructure:"z_limit"`
	MaxAreaM2 float64 `yaml:"max_area_m2" mapstructure:"max_area_m2"`
}

// AnalyseConfig configures morphometric analysis.
type AnalyseConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ExportConfig configures file outputs.
type ExportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
	Styles  bool     `yaml:"styles" mapstructure:"styles"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for a given command mode. Modes:
// "identify", "analyse", "run", "stats".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "identify", "run":
		if c.Extract.ZLimit < 0 {
			problems = append(problems, "extract.z_limit must be >= 0")
		}
		if c.Extract.MaxAreaM2 <= 0 {
			problems = append(problems, "extract.max_area_m2 must be > 0")
		}
		if c.Engine.Seats < 1 {
			problems = append(problems, "engine.seats must be >= 1")
		}
	case "analyse":
		if c.Analyse.Workers < 0 {
			problems = append(problems, "analyse.workers must be >= 0")
		}
		if c.Engine.Seats < 1 {
			problems = append(problems, "engine.seats must be >= 1")
		}
	case "stats":
		// Store checks above are sufficient.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "run" && c.Analyse.Workers < 0 {
		problems = append(problems, "analyse.workers must be >= 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POCKMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "pockmark.db")
	v.SetDefault("engine.seats", 1)
	v.SetDefault("extract.z_limit", 0.0)
	v.SetDefault("extract.max_area_m2", 1e6)
	v.SetDefault("analyse.workers", 0)
	v.SetDefault("export.dir", "out")
	v.SetDefault("export.formats", []string{"shapefile", "geojson"})
	v.SetDefault("export.styles", true)
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
