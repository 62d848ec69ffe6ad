// Package config loads the scheduler configuration from defaults, an optional
// TOML file, an optional .env file and SCHEDULER_* environment variables, in
// increasing order of precedence.
package config

import (
	"fmt"
	"time"
)

// Storage drivers.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Duration decodes Go duration strings such as "2s" from TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config captures every setting of the scheduler service.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Booking BookingConfig `toml:"booking"`
	Auth    AuthConfig    `toml:"auth"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	HTTPPort        int      `toml:"http_port"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// StorageConfig selects where snapshots are written. DSN is used by the SQL
// drivers, SnapshotPath by the json driver.
type StorageConfig struct {
	Driver           string `toml:"driver"`
	DSN              string `toml:"dsn"`
	SnapshotPath     string `toml:"snapshot_path"`
	SnapshotSchedule string `toml:"snapshot_schedule"`
}

type BookingConfig struct {
	LockTimeout Duration `toml:"lock_timeout"`
	Timezone    string   `toml:"timezone"`
}

// AuthConfig holds the bearer token secret and the hashes of accepted API keys.
type AuthConfig struct {
	JWTSecret    string   `toml:"jwt_secret"`
	APIKeyHashes []string `toml:"api_key_hashes"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Storage: StorageConfig{
			Driver:           DriverJSON,
			DSN:              "file:scheduler.db?_pragma=foreign_keys(1)",
			SnapshotPath:     "data/snapshot.json",
			SnapshotSchedule: "*/5 * * * *",
		},
		Booking: BookingConfig{
			LockTimeout: Duration{2 * time.Second},
			Timezone:    "UTC",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Location resolves the facility timezone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.HTTPPort)
}
