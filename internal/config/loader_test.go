package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadWith(t *testing.T) {
	t.Run("applies defaults when only the secret is set", func(t *testing.T) {
		cfg, err := LoadWith(Options{Lookup: envMap(map[string]string{EnvJWTSecret: "secret"})})
		if err != nil {
			t.Fatalf("LoadWith returned error: %v", err)
		}
		if cfg.Server.HTTPPort != 8080 {
			t.Fatalf("expected default port 8080, got %d", cfg.Server.HTTPPort)
		}
		if cfg.Storage.Driver != DriverJSON {
			t.Fatalf("expected json driver, got %q", cfg.Storage.Driver)
		}
		if cfg.Booking.LockTimeout.Duration != 2*time.Second {
			t.Fatalf("expected 2s lock timeout, got %s", cfg.Booking.LockTimeout)
		}
		if cfg.Location() != time.UTC {
			t.Fatalf("expected UTC location, got %s", cfg.Location())
		}
		if cfg.Addr() != ":8080" {
			t.Fatalf("unexpected addr %q", cfg.Addr())
		}
	})

	t.Run("reads the toml file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.toml", `
[server]
http_port = 9090
shutdown_timeout = "30s"

[storage]
driver = "sqlite"
dsn = "file::memory:"
snapshot_schedule = "@every 1m"

[booking]
lock_timeout = "500ms"
timezone = "Asia/Tokyo"

[auth]
jwt_secret = "from-file"
api_key_hashes = ["$2a$10$abc", "$2a$10$def"]

[metrics]
enabled = false

[log]
level = "debug"
format = "text"
`)
		cfg, err := LoadWith(Options{Path: path, Lookup: envMap(nil)})
		if err != nil {
			t.Fatalf("LoadWith returned error: %v", err)
		}
		if cfg.Server.HTTPPort != 9090 || cfg.Server.ShutdownTimeout.Duration != 30*time.Second {
			t.Fatalf("unexpected server config: %+v", cfg.Server)
		}
		if cfg.Storage.Driver != DriverSQLite || cfg.Storage.DSN != "file::memory:" {
			t.Fatalf("unexpected storage config: %+v", cfg.Storage)
		}
		if cfg.Booking.LockTimeout.Duration != 500*time.Millisecond {
			t.Fatalf("unexpected lock timeout %s", cfg.Booking.LockTimeout)
		}
		if cfg.Location().String() != "Asia/Tokyo" {
			t.Fatalf("unexpected location %s", cfg.Location())
		}
		if cfg.Auth.JWTSecret != "from-file" || len(cfg.Auth.APIKeyHashes) != 2 {
			t.Fatalf("unexpected auth config: %+v", cfg.Auth)
		}
		if cfg.Metrics.Enabled {
			t.Fatalf("expected metrics disabled")
		}
		if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
			t.Fatalf("unexpected log config: %+v", cfg.Log)
		}
	})

	t.Run("environment overrides dotenv which overrides the file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.toml", "[server]\nhttp_port = 9090\n[auth]\njwt_secret = \"file\"\n")
		envFile := writeFile(t, dir, ".env", "SCHEDULER_HTTP_PORT=7070\nSCHEDULER_JWT_SECRET=dotenv\nSCHEDULER_API_KEY_HASHES=a, b ,\n")

		cfg, err := LoadWith(Options{
			Path:    path,
			EnvFile: envFile,
			Lookup:  envMap(map[string]string{EnvJWTSecret: "process"}),
		})
		if err != nil {
			t.Fatalf("LoadWith returned error: %v", err)
		}
		if cfg.Server.HTTPPort != 7070 {
			t.Fatalf("expected dotenv port 7070, got %d", cfg.Server.HTTPPort)
		}
		if cfg.Auth.JWTSecret != "process" {
			t.Fatalf("expected process secret, got %q", cfg.Auth.JWTSecret)
		}
		if strings.Join(cfg.Auth.APIKeyHashes, "|") != "a|b" {
			t.Fatalf("unexpected api key hashes %q", cfg.Auth.APIKeyHashes)
		}
	})

	t.Run("missing dotenv file is ignored", func(t *testing.T) {
		_, err := LoadWith(Options{
			EnvFile: filepath.Join(t.TempDir(), ".env"),
			Lookup:  envMap(map[string]string{EnvJWTSecret: "secret"}),
		})
		if err != nil {
			t.Fatalf("LoadWith returned error: %v", err)
		}
	})

	t.Run("missing toml file fails", func(t *testing.T) {
		_, err := LoadWith(Options{
			Path:   filepath.Join(t.TempDir(), "absent.toml"),
			Lookup: envMap(map[string]string{EnvJWTSecret: "secret"}),
		})
		if err == nil {
			t.Fatalf("expected error for missing config file")
		}
	})

	t.Run("aggregates missing and invalid values", func(t *testing.T) {
		_, err := LoadWith(Options{Lookup: envMap(map[string]string{
			EnvHTTPPort:      "abc",
			EnvLockTimeout:   "soon",
			EnvStorageDriver: "mongo",
			EnvTimezone:      "Mars/Olympus",
			EnvLogFormat:     "xml",
		})})
		if err == nil {
			t.Fatalf("expected error")
		}
		message := err.Error()
		for _, want := range []string{
			EnvJWTSecret,
			EnvHTTPPort,
			EnvLockTimeout,
			"storage.driver",
			"booking.timezone",
			"log.format",
		} {
			if !strings.Contains(message, want) {
				t.Fatalf("expected %q in error %q", want, message)
			}
		}
	})

	t.Run("postgres needs a dsn", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.toml", "[storage]\ndriver = \"postgres\"\ndsn = \"\"\n")
		_, err := LoadWith(Options{Path: path, Lookup: envMap(map[string]string{EnvJWTSecret: "secret"})})
		if err == nil || !strings.Contains(err.Error(), "storage.dsn") {
			t.Fatalf("expected storage.dsn error, got %v", err)
		}
	})
}
