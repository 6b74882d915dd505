package app

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"areacloud/effects/catalog"
	"areacloud/internal/persist"
	"areacloud/internal/sim"
	"areacloud/internal/telemetry"
	"areacloud/logging"
)

// Store backends selectable through STORE.
const (
	StoreNone  = "none"
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config captures everything Run needs. Zero fields fall back to
// DefaultConfig.
type Config struct {
	ListenAddr   string
	TickRate     int
	Store        string
	StorePath    string
	SnapshotKey  string
	SaveInterval time.Duration
	Redis        persist.RedisConfig
	CatalogPaths []string
	Demo         bool

	LogLevel    string
	LogFormat   string
	LogSinks    []string
	LogJSONPath string

	// Output receives process logs and console events. Defaults to stdout.
	Output io.Writer
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8080",
		TickRate:     sim.DefaultTickRate,
		Store:        StoreFile,
		StorePath:    "data",
		SnapshotKey:  "world",
		SaveInterval: 30 * time.Second,
		Redis:        persist.RedisConfig{Addr: "localhost:6379"},
		CatalogPaths: catalog.DefaultPaths(),
		LogLevel:     "info",
		LogFormat:    "text",
		LogSinks:     logging.DefaultConfig().EnabledSinks,
		Output:       os.Stdout,
	}
}

// FromEnv overlays the variables found through lookup. Values that fail to
// parse are reported through logger and leave the setting unchanged.
func (c Config) FromEnv(lookup func(string) (string, bool), logger telemetry.Logger) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	str := func(key string, dst *string) {
		if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
			*dst = strings.TrimSpace(raw)
		}
	}
	integer := func(key string, dst *int) {
		raw, ok := lookup(key)
		if !ok || raw == "" {
			return
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			logger.Printf("invalid %s=%q: %v", key, raw, err)
			return
		}
		*dst = value
	}

	str("LISTEN_ADDR", &c.ListenAddr)
	integer("TICK_RATE", &c.TickRate)
	str("STORE", &c.Store)
	c.Store = strings.ToLower(c.Store)
	str("STORE_PATH", &c.StorePath)
	str("SNAPSHOT_KEY", &c.SnapshotKey)
	if raw, ok := lookup("SAVE_INTERVAL"); ok && raw != "" {
		if value, err := time.ParseDuration(raw); err == nil {
			c.SaveInterval = value
		} else {
			logger.Printf("invalid SAVE_INTERVAL=%q: %v", raw, err)
		}
	}
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	integer("REDIS_DB", &c.Redis.DB)
	str("REDIS_PREFIX", &c.Redis.Prefix)
	if raw, ok := lookup("EFFECT_CATALOG_PATH"); ok && raw != "" {
		c.CatalogPaths = strings.Split(raw, string(os.PathListSeparator))
	}
	if raw, ok := lookup("SIM_DEMO"); ok && raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Demo = value
		} else {
			logger.Printf("invalid SIM_DEMO=%q: %v", raw, err)
		}
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	if raw, ok := lookup("LOG_SINKS"); ok && raw != "" {
		c.LogSinks = logging.ParseSinks(raw)
	}
	str("LOG_JSON_PATH", &c.LogJSONPath)
	return c
}

func (c Config) normalized() Config {
	defaults := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = defaults.ListenAddr
	}
	if c.TickRate <= 0 {
		c.TickRate = defaults.TickRate
	}
	if c.Store == "" {
		c.Store = StoreNone
	}
	if c.SnapshotKey == "" {
		c.SnapshotKey = defaults.SnapshotKey
	}
	if c.Output == nil {
		c.Output = defaults.Output
	}
	if len(c.LogSinks) == 0 {
		c.LogSinks = defaults.LogSinks
	}
	return c
}
