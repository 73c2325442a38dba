// Package config loads settings for the exploronomics commands from
// defaults, an optional YAML file, a .env file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/patrickcap/exploronomics/errors"
	"github.com/patrickcap/exploronomics/logging"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override
	EnvPrefix = "EXPLORONOMICS"
	// DefaultFileName is looked up in the working directory when no
	// explicit config path is given
	DefaultFileName = "exploronomics"
)

// Config holds all settings
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Format   FormatConfig   `mapstructure:"format"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type FormatConfig struct {
	InputFile  string `mapstructure:"input_file"`
	OutputFile string `mapstructure:"output_file"`
}

// SeedConfig controls the seeder. An empty RecordsFile selects the
// built-in country list.
type SeedConfig struct {
	RecordsFile string `mapstructure:"records_file"`
	Backup      bool   `mapstructure:"backup"`
	MaxBackups  int    `mapstructure:"max_backups"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	IndicatorsFile  string        `mapstructure:"indicators_file"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Addr returns the listen address in host:port form
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "./data/exploronomics.db")

	v.SetDefault("format.input_file", "world_economic_data_2023_1999.csv")
	v.SetDefault("format.output_file", "world_economic_data_2023_1999_formatted_output.csv")

	v.SetDefault("seed.records_file", "")
	v.SetDefault("seed.backup", false)
	v.SetDefault("seed.max_backups", 5)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.indicators_file", "./data/world_economic_data_2023_1999.csv")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Load builds the configuration. Precedence, highest first: environment
// (EXPLORONOMICS_SECTION_KEY, plus PORT for the server port), variables
// from ./.env, the config file, defaults. When path is empty a missing
// exploronomics.yaml in the working directory is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrConfig, err, "failed to load .env file")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, err, "failed to bind PORT")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		switch {
		case path == "" && notFound:
			logging.Debug("config", "No config file found, using defaults and environment")
		case path != "" && (notFound || os.IsNotExist(err)):
			return nil, errors.NewFileNotFoundError(path, err)
		default:
			return nil, errors.Wrap(errors.ErrConfig, err, "failed to read config file")
		}
	} else {
		logging.Debug("config", "Loaded config file", map[string]interface{}{"path": v.ConfigFileUsed()})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, err, "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Path == "" {
		problems = append(problems, "database.path must not be empty")
	}
	if c.Format.InputFile == "" {
		problems = append(problems, "format.input_file must not be empty")
	}
	if c.Format.OutputFile == "" {
		problems = append(problems, "format.output_file must not be empty")
	}
	if c.Seed.MaxBackups < 0 {
		problems = append(problems, "seed.max_backups must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.IndicatorsFile == "" {
		problems = append(problems, "server.indicators_file must not be empty")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrConfig, strings.Join(problems, "; ")).
			WithContext("problems", problems)
	}
	return nil
}
