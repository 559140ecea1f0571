// Package config loads the process-wide cityposter configuration.
//
// Settings come from three layers, later ones winning:
//
//  1. [Default]
//  2. a TOML file (cityposter.toml in the working directory by default)
//  3. the CACHE_DIR and OSM_NETWORK_TYPE environment variables
//
// Directory settings (themes, fonts, posters) exist only here; per-request
// options cannot redirect them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	perrors "github.com/matzehuels/cityposter/pkg/errors"
)

// DefaultFile is the configuration file looked up when no path is given.
const DefaultFile = "cityposter.toml"

// appName names the per-user cache directory.
const appName = "cityposter"

// Environment overrides.
const (
	EnvCacheDir    = "CACHE_DIR"
	EnvNetworkType = "OSM_NETWORK_TYPE"
)

// Duration is a time.Duration written as "30s" or "168h" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full configuration.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Render   Render   `toml:"render"`
	Geocoder Geocoder `toml:"geocoder"`
	Overpass Overpass `toml:"overpass"`
	Cache    Cache    `toml:"cache"`
	Server   Server   `toml:"server"`
	Redis    Redis    `toml:"redis"`
	Mongo    Mongo    `toml:"mongo"`
}

// Paths holds the directory contract.
type Paths struct {
	Themes  string `toml:"themes"`
	Fonts   string `toml:"fonts"`
	Posters string `toml:"posters"`
}

// Render holds request defaults.
type Render struct {
	Theme       string  `toml:"theme"`
	Distance    float64 `toml:"distance"`
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	Unit        string  `toml:"unit"`
	DPI         float64 `toml:"dpi"`
	Format      string  `toml:"format"`
	Concurrency int     `toml:"concurrency"`
}

// Geocoder configures Nominatim.
type Geocoder struct {
	BaseURL   string   `toml:"base_url"`
	UserAgent string   `toml:"user_agent"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// Overpass configures the map-data provider.
type Overpass struct {
	BaseURL  string   `toml:"base_url"`
	Network  string   `toml:"network"`
	Timeout  Duration `toml:"timeout"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Cache selects the response cache.
type Cache struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

// Job registry backends.
const (
	JobsMemory = "memory"
	JobsRedis  = "redis"
)

// Server configures the web API.
type Server struct {
	Addr        string   `toml:"addr"`
	Workers     int      `toml:"workers"`
	Jobs        string   `toml:"jobs"`
	JobTTL      Duration `toml:"job_ttl"`
	PreviewSize int      `toml:"preview_size"`
}

// Redis is shared by the redis cache and the redis job registry.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// Mongo enables GridFS poster storage for the server when URI is set.
type Mongo struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Bucket   string `toml:"bucket"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: Paths{Themes: "themes", Fonts: "fonts", Posters: "posters"},
		Render: Render{
			Theme:       "feature_based",
			Distance:    29000,
			Width:       30.48,
			Height:      40.64,
			Unit:        "cm",
			DPI:         150,
			Format:      "png",
			Concurrency: 4,
		},
		Geocoder: Geocoder{
			BaseURL:  "https://nominatim.openstreetmap.org",
			CacheTTL: Duration{30 * 24 * time.Hour},
		},
		Overpass: Overpass{
			BaseURL:  "https://overpass-api.de/api/interpreter",
			Network:  "drive",
			Timeout:  Duration{180 * time.Second},
			CacheTTL: Duration{7 * 24 * time.Hour},
		},
		Cache: Cache{Backend: CacheFile, Dir: defaultCacheDir()},
		Server: Server{
			Addr:        ":8080",
			Workers:     2,
			Jobs:        JobsMemory,
			JobTTL:      Duration{24 * time.Hour},
			PreviewSize: 800,
		},
		Redis: Redis{Addr: "localhost:6379", Prefix: "cityposter:"},
		Mongo: Mongo{Database: "cityposter", Bucket: "posters"},
	}
}

// defaultCacheDir follows XDG: $XDG_CACHE_HOME/cityposter or ~/.cache/cityposter.
func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}

// Load reads path over the defaults and applies environment overrides. An
// empty path reads DefaultFile if it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "read config %s", path)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv applies the environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvCacheDir)); v != "" {
		c.Cache.Dir = v
	}
	if v := strings.TrimSpace(getenv(EnvNetworkType)); v != "" {
		c.Overpass.Network = strings.ToLower(v)
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Overpass.Network {
	case "drive", "all":
	default:
		return perrors.New(perrors.ErrCodeInvalidInput, "overpass.network must be drive or all, got %q", c.Overpass.Network)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return perrors.New(perrors.ErrCodeInvalidInput, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	switch c.Server.Jobs {
	case JobsMemory, JobsRedis:
	default:
		return perrors.New(perrors.ErrCodeInvalidInput, "server.jobs must be memory or redis, got %q", c.Server.Jobs)
	}
	if c.Server.Workers < 1 {
		return perrors.New(perrors.ErrCodeInvalidInput, "server.workers must be at least 1")
	}
	for name, url := range map[string]string{
		"geocoder.base_url": c.Geocoder.BaseURL,
		"overpass.base_url": c.Overpass.BaseURL,
	} {
		if err := perrors.ValidateURL(url); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
