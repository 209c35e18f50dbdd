// Package config loads herdcache settings from a file with environment
// overrides. It only produces a plain Config struct; opening stores and
// assembling the cache stays with the caller, keeping this package free of
// store dependencies.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server describes one pool endpoint. Socket takes precedence over
// Host/Port when set (subject to the store's own downgrade rules).
type Server struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Socket string `mapstructure:"socket"`
	DB     int    `mapstructure:"db"`
	Master bool   `mapstructure:"master"`
}

// Config is the full recognized option surface.
type Config struct {
	Servers []Server

	LockTTL                 time.Duration // 0 disables locking
	PollInterval            time.Duration
	SkipQueuePercentage     int // clamped to [0,100]
	DropUnreachableReplicas bool

	Compression          bool
	CompressionThreshold int // bytes
}

// Master returns the designated master and the remaining servers as
// replicas. With no explicit designation the first server is the master.
// ok is false when the server list is empty.
func (c Config) Master() (master Server, replicas []Server, ok bool) {
	if len(c.Servers) == 0 {
		return Server{}, nil, false
	}
	mi := 0
	for i, s := range c.Servers {
		if s.Master {
			mi = i
			break
		}
	}
	for i, s := range c.Servers {
		if i != mi {
			replicas = append(replicas, s)
		}
	}
	return c.Servers[mi], replicas, true
}

// Load reads the file at path (format inferred from the extension) and
// applies HERDCACHE_* environment overrides, e.g. HERDCACHE_LOCK_TTL_SECONDS.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("herdcache")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("lock-ttl-seconds", 30)
	v.SetDefault("poll-interval-ms", 100)
	v.SetDefault("skip-queue-percentage", 0)
	v.SetDefault("drop-unreachable-replicas", false)
	v.SetDefault("compression", false)
	v.SetDefault("compression-threshold", 2048)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var servers []Server
	if err := v.UnmarshalKey("servers", &servers); err != nil {
		return Config{}, fmt.Errorf("config: servers: %w", err)
	}

	cfg := Config{
		Servers:                 servers,
		LockTTL:                 time.Duration(v.GetInt("lock-ttl-seconds")) * time.Second,
		PollInterval:            time.Duration(v.GetInt("poll-interval-ms")) * time.Millisecond,
		SkipQueuePercentage:     clamp(v.GetInt("skip-queue-percentage"), 0, 100),
		DropUnreachableReplicas: v.GetBool("drop-unreachable-replicas"),
		Compression:             v.GetBool("compression"),
		CompressionThreshold:    v.GetInt("compression-threshold"),
	}
	return cfg, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
