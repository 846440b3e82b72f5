package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MEET"

// Loader reads configuration with ENV > flags > file > defaults precedence.
type Loader struct {
	configFile string
	flags      *pflag.FlagSet
}

// NewLoader creates a loader. configFile may be empty.
func NewLoader(configFile string) *Loader {
	return &Loader{configFile: configFile}
}

// WithFlags binds a pflag set whose values override the config file.
func (l *Loader) WithFlags(flags *pflag.FlagSet) *Loader {
	l.flags = flags
	return l
}

// Load resolves the effective configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	setDefaults(v, defaults)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.flags != nil {
		if err := v.BindPFlags(l.flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, defaults Config) {
	v.SetDefault("service.name", defaults.Service.Name)
	v.SetDefault("service.loglevel", defaults.Service.LogLevel)
	v.SetDefault("service.logformat", defaults.Service.LogFormat)

	v.SetDefault("redis.url", defaults.Redis.URL)
	v.SetDefault("redis.operationtimeout", defaults.Redis.OperationTimeout)
	v.SetDefault("redis.pinginterval", defaults.Redis.PingInterval)

	v.SetDefault("mongo.url", defaults.Mongo.URL)
	v.SetDefault("mongo.database", defaults.Mongo.Database)
	v.SetDefault("mongo.connecttimeout", defaults.Mongo.ConnectTimeout)
	v.SetDefault("mongo.operationtimeout", defaults.Mongo.OperationTimeout)

	v.SetDefault("media.url", defaults.Media.URL)
	v.SetDefault("media.apikey", defaults.Media.APIKey)
	v.SetDefault("media.operationtimeout", defaults.Media.OperationTimeout)

	v.SetDefault("ops.address", defaults.Ops.Address)

	v.SetDefault("rooms.gcinterval", defaults.Rooms.GCInterval)
	v.SetDefault("rooms.autodeletiondatefloor", defaults.Rooms.AutoDeletionDateFloor)
	v.SetDefault("rooms.deletionpolicy", string(defaults.Rooms.DeletionPolicy))

	v.SetDefault("recordings.lockttl", defaults.Recordings.LockTTL)
	v.SetDefault("recordings.starttimeout", defaults.Recordings.StartTimeout)
	v.SetDefault("recordings.stalethreshold", defaults.Recordings.StaleThreshold)
	v.SetDefault("recordings.stalesweepinterval", defaults.Recordings.StaleSweepInterval)
	v.SetDefault("recordings.orphansweepinterval", defaults.Recordings.OrphanSweepInterval)
	v.SetDefault("recordings.orphangrace", defaults.Recordings.OrphanGrace)

	v.SetDefault("webhook.url", defaults.Webhook.URL)
	v.SetDefault("webhook.apikey", defaults.Webhook.APIKey)
	v.SetDefault("webhook.maxeventage", defaults.Webhook.MaxEventAge)
}
