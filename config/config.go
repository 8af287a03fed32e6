// Package config loads punchsync settings from config.yaml, the environment
// and, when configured, an SSM parameter holding a YAML overlay.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"axiapac.com/punchsync/infrastructure/communication"
	"axiapac.com/punchsync/infrastructure/devops"
	"axiapac.com/punchsync/push"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "config.yaml"
	EnvPrefix         = "PUNCHSYNC"

	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

type StoreConfig struct {
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	Schema         string `mapstructure:"schema"`
	MaxConnections int    `mapstructure:"max-connections"`
	LogLevel       string `mapstructure:"log-level"`
}

type IngestConfig struct {
	// UTCOffset applies to exported timestamps that carry no zone.
	UTCOffset time.Duration `mapstructure:"utc-offset"`
	Bucket    string        `mapstructure:"bucket"`
	Prefix    string        `mapstructure:"prefix"`
	// Processed is the prefix imported objects are moved to; empty leaves them.
	Processed string `mapstructure:"processed"`
}

type NotifyConfig struct {
	Slack communication.SlackOption `mapstructure:"slack"`
	Email communication.EmailOption `mapstructure:"email"`
}

type QueueConfig struct {
	MaxSize int `mapstructure:"max-size"`
}

type PushConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Frequency time.Duration `mapstructure:"frequency"`

	push.Options `mapstructure:",squash"`
}

type Config struct {
	LogLevel      string        `mapstructure:"log-level"`
	ListenAddress string        `mapstructure:"listen-address"`
	RelayTimeout  time.Duration `mapstructure:"relay-timeout"`
	AuthSecret    string        `mapstructure:"auth-secret"`
	SSMParameter  string        `mapstructure:"ssm-parameter"`

	Store  StoreConfig     `mapstructure:"store"`
	Queue  QueueConfig     `mapstructure:"queue"`
	Push   PushConfig      `mapstructure:"push"`
	Wire   push.WireFormat `mapstructure:"wire"`
	Ingest IngestConfig    `mapstructure:"ingest"`
	Notify NotifyConfig    `mapstructure:"notify"`
}

// ParameterSource is where the YAML overlay comes from.
type ParameterSource interface {
	YAMLParameter(ctx context.Context, name string) (map[string]any, error)
}

func setDefaults(v *viper.Viper) {
	wire := push.DefaultWireFormat()

	v.SetDefault("log-level", "info")
	v.SetDefault("listen-address", ":8090")
	v.SetDefault("relay-timeout", 30*time.Second)
	v.SetDefault("auth-secret", "")
	v.SetDefault("ssm-parameter", "")

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.schema", "")
	v.SetDefault("store.max-connections", 5)
	v.SetDefault("store.log-level", "warn")

	v.SetDefault("queue.max-size", 5000)

	v.SetDefault("push.enabled", true)
	v.SetDefault("push.frequency", 5*time.Minute)
	v.SetDefault("push.batch-size", push.DefaultBatchSize)
	v.SetDefault("push.max-retries", 3)
	v.SetDefault("push.retry-delay", 10*time.Second)
	v.SetDefault("push.backoff-factor", 2.0)

	v.SetDefault("wire.schema", wire.Schema)
	v.SetDefault("wire.path", wire.Path)
	v.SetDefault("wire.model", "")
	v.SetDefault("wire.method", "")
	v.SetDefault("wire.timestamp-layout", wire.TimestampLayout)
	v.SetDefault("wire.action-codes", wire.ActionCodes)

	v.SetDefault("ingest.utc-offset", time.Duration(0))
	v.SetDefault("ingest.bucket", "")
	v.SetDefault("ingest.prefix", "")
	v.SetDefault("ingest.processed", "")

	v.SetDefault("notify.slack.token", "")
	v.SetDefault("notify.slack.info-channel", "")
	v.SetDefault("notify.slack.error-channel", "")
	v.SetDefault("notify.slack.prefix", "")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.to", []string{})
	v.SetDefault("notify.email.subject", "punchsync")
	v.SetDefault("notify.email.errors-only", true)
}

// InitConfig reads configuration from a YAML file and environment variables.
// Environment variables take precedence over the config file, and the SSM
// overlay over both. A missing file is not an error.
func InitConfig(ctx context.Context, path string) (*Config, error) {
	return Load(ctx, path, nil)
}

func Load(ctx context.Context, path string, params ParameterSource) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	if name := v.GetString("ssm-parameter"); name != "" {
		if params == nil {
			store, err := devops.NewParameterStore(ctx)
			if err != nil {
				return nil, err
			}
			params = store
		}
		overlay, err := params.YAMLParameter(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("could not read overlay: %w", err)
		}
		if err := v.MergeConfigMap(overlay); err != nil {
			return nil, fmt.Errorf("could not merge overlay: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate checks the fields that have no usable default.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("missing required config field: store.dsn")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.ListenAddress == "" {
		return fmt.Errorf("missing required config field: listen-address")
	}
	if _, err := c.Wire.PushSchema(); err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	if c.Push.Frequency <= 0 {
		return fmt.Errorf("push.frequency must be positive")
	}
	return nil
}

// OffsetSeconds is the ingest offset in the form the importer takes.
func (c IngestConfig) OffsetSeconds() int {
	return int(c.UTCOffset / time.Second)
}
