package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"spacesim/internal/engine"
)

// EnvPrefix prefixes environment overrides, e.g. SPACESIM_HTTP_ADDR
const EnvPrefix = "SPACESIM"

type HTTPConfig struct {
	Addr      string `mapstructure:"addr"`
	PublicURL string `mapstructure:"publicUrl"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	Secret       string        `mapstructure:"secret"`
	ShipTokenTTL time.Duration `mapstructure:"shipTokenTTL"`
}

type MatchConfig struct {
	TickRate      time.Duration `mapstructure:"tickRate"`
	SnapshotEvery int           `mapstructure:"snapshotEvery"`
	MaxTicks      int64         `mapstructure:"maxTicks"`
	MaxActive     int           `mapstructure:"maxActive"`
}

type LimitsConfig struct {
	ConnsPerIP int `mapstructure:"connsPerIP"`
	TotalConns int `mapstructure:"totalConns"`
}

type BlueprintsConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the full server configuration
type Config struct {
	LogLevel   string           `mapstructure:"logLevel"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	DB         DBConfig         `mapstructure:"db"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Engine     engine.Config    `mapstructure:"engine"`
	Match      MatchConfig      `mapstructure:"match"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Blueprints BlueprintsConfig `mapstructure:"blueprints"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.publicUrl", "http://localhost:8080")

	v.SetDefault("db.path", "spacesim.db")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.shipTokenTTL", "24h")

	v.SetDefault("engine.subSteps", engine.DefaultSubSteps)
	v.SetDefault("engine.decisionTimeout", engine.DefaultDecisionTimeout.String())
	v.SetDefault("engine.stealthTime", engine.DefaultStealthTime)
	v.SetDefault("engine.historyLimit", 0)

	v.SetDefault("match.tickRate", "50ms")
	v.SetDefault("match.snapshotEvery", 100)
	v.SetDefault("match.maxTicks", 20000)
	v.SetDefault("match.maxActive", 16)

	v.SetDefault("limits.connsPerIP", 8)
	v.SetDefault("limits.totalConns", 1000)

	v.SetDefault("blueprints.path", "")
}

// Load reads defaults, then the optional config file, then SPACESIM_*
// environment variables. An empty path searches the working directory
// for spacesim.{yaml,toml,json}; a missing file is not an error there.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("spacesim")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	if c.Match.TickRate <= 0 {
		return fmt.Errorf("match.tickRate must be positive")
	}
	if c.Engine.DecisionTimeout >= c.Match.TickRate {
		return fmt.Errorf("engine.decisionTimeout (%s) must be shorter than match.tickRate (%s)",
			c.Engine.DecisionTimeout, c.Match.TickRate)
	}
	if c.Match.SnapshotEvery < 0 {
		return fmt.Errorf("match.snapshotEvery must not be negative")
	}
	return nil
}
