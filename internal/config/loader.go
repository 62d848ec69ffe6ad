package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/example/facility-scheduler/internal/logging"
)

// Environment variables overriding the file configuration.
const (
	EnvHTTPPort         = "SCHEDULER_HTTP_PORT"
	EnvShutdownTimeout  = "SCHEDULER_SHUTDOWN_TIMEOUT"
	EnvStorageDriver    = "SCHEDULER_STORAGE_DRIVER"
	EnvStorageDSN       = "SCHEDULER_STORAGE_DSN"
	EnvSnapshotPath     = "SCHEDULER_SNAPSHOT_PATH"
	EnvSnapshotSchedule = "SCHEDULER_SNAPSHOT_SCHEDULE"
	EnvLockTimeout      = "SCHEDULER_LOCK_TIMEOUT"
	EnvTimezone         = "SCHEDULER_TIMEZONE"
	EnvJWTSecret        = "SCHEDULER_JWT_SECRET"
	EnvAPIKeyHashes     = "SCHEDULER_API_KEY_HASHES"
	EnvMetricsEnabled   = "SCHEDULER_METRICS_ENABLED"
	EnvMetricsPath      = "SCHEDULER_METRICS_PATH"
	EnvLogLevel         = "SCHEDULER_LOG_LEVEL"
	EnvLogFormat        = "SCHEDULER_LOG_FORMAT"
)

// Options control where Load looks for its inputs.
type Options struct {
	// Path of the TOML file. Empty skips the file.
	Path string
	// EnvFile is read with godotenv when it exists. Process variables win
	// over its entries.
	EnvFile string
	// Lookup reads process variables. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load reads path (optional) and ./.env, then applies the process environment.
func Load(path string) (Config, error) {
	return LoadWith(Options{Path: path, EnvFile: ".env"})
}

// LoadWith builds the configuration from opts. Every missing or invalid value
// is reported in a single error.
func LoadWith(opts Options) (Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if _, err := toml.DecodeFile(opts.Path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.Path, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			lookup = layered(lookup, dotenv)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", opts.EnvFile, err)
		}
	}

	var invalid []string
	env := envReader{lookup: lookup, invalid: &invalid}
	env.int(EnvHTTPPort, &cfg.Server.HTTPPort)
	env.duration(EnvShutdownTimeout, &cfg.Server.ShutdownTimeout)
	env.string(EnvStorageDriver, &cfg.Storage.Driver)
	env.string(EnvStorageDSN, &cfg.Storage.DSN)
	env.string(EnvSnapshotPath, &cfg.Storage.SnapshotPath)
	env.string(EnvSnapshotSchedule, &cfg.Storage.SnapshotSchedule)
	env.duration(EnvLockTimeout, &cfg.Booking.LockTimeout)
	env.string(EnvTimezone, &cfg.Booking.Timezone)
	env.string(EnvJWTSecret, &cfg.Auth.JWTSecret)
	env.list(EnvAPIKeyHashes, &cfg.Auth.APIKeyHashes)
	env.bool(EnvMetricsEnabled, &cfg.Metrics.Enabled)
	env.string(EnvMetricsPath, &cfg.Metrics.Path)
	env.string(EnvLogLevel, &cfg.Log.Level)
	env.string(EnvLogFormat, &cfg.Log.Format)

	var missing []string
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		missing = append(missing, EnvJWTSecret)
	}
	invalid = append(invalid, cfg.validate()...)

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required values: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid values: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func (c *Config) validate() []string {
	var invalid []string
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		invalid = append(invalid, "server.http_port")
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		invalid = append(invalid, "server.shutdown_timeout")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverJSON:
		if strings.TrimSpace(c.Storage.SnapshotPath) == "" {
			invalid = append(invalid, "storage.snapshot_path")
		}
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			invalid = append(invalid, "storage.dsn")
		}
	default:
		invalid = append(invalid, "storage.driver")
	}

	if c.Booking.LockTimeout.Duration <= 0 {
		invalid = append(invalid, "booking.lock_timeout")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		invalid = append(invalid, "booking.timezone")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		invalid = append(invalid, "metrics.path")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		invalid = append(invalid, "log.level")
	}
	switch logging.Format(strings.ToLower(c.Log.Format)) {
	case logging.FormatJSON, logging.FormatText:
	default:
		invalid = append(invalid, "log.format")
	}
	return invalid
}

func layered(primary func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if value, ok := primary(key); ok {
			return value, true
		}
		value, ok := fallback[key]
		return value, ok
	}
}

type envReader struct {
	lookup  func(string) (string, bool)
	invalid *[]string
}

func (r envReader) value(key string) (string, bool) {
	raw, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func (r envReader) string(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = v
	}
}

func (r envReader) int(key string, dst *int) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		*r.invalid = append(*r.invalid, key)
		return
	}
	*dst = parsed
}

func (r envReader) bool(key string, dst *bool) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		*r.invalid = append(*r.invalid, key)
		return
	}
	*dst = parsed
}

func (r envReader) duration(key string, dst *Duration) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		*r.invalid = append(*r.invalid, key)
		return
	}
	dst.Duration = parsed
}

func (r envReader) list(key string, dst *[]string) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}
