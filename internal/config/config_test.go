package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	oldWd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldWd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}

	want := Config{
		Server:   ServerConfig{Addr: ":8080"},
		Registry: RegistryConfig{Dir: "fields", Pattern: "**/*.{yaml,yml,json}"},
		Store:    StoreConfig{Driver: DriverMemory},
		Cache: CacheConfig{
			Driver: DriverMemory,
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "fieldtree:tree:"},
		},
		Encoder: EncoderConfig{MaxDepth: 3},
		Write: WriteConfig{
			Enabled:           true,
			Header:            "X-Fieldtree-Persist",
			TransientStatuses: []string{"auto-draft", "trash", "inherit"},
		},
		Log: LogConfig{Level: "info"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
store:
  driver: sqlite3
  dsn: file:fields.db
cache:
  driver: redis
  ttl: 90s
  redis:
    addr: cache:6379
encoder:
  max_depth: 1
write:
  transient_statuses: [trash]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FIELDTREE_ENCODER_MAX_DEPTH", "2")
	t.Setenv("FIELDTREE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.DSN != "file:fields.db" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Cache.TTL != 90*time.Second || cfg.Cache.Redis.Addr != "cache:6379" {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Encoder.MaxDepth != 2 {
		t.Errorf("expected env to override max depth, got %d", cfg.Encoder.MaxDepth)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected env log level, got %q", cfg.Log.Level)
	}
	if diff := cmp.Diff([]string{"trash"}, cfg.Write.TransientStatuses); diff != "" {
		t.Errorf("transient statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Registry: RegistryConfig{Dir: "fields"},
			Store:    StoreConfig{Driver: DriverMemory},
			Cache:    CacheConfig{Driver: DriverMemory},
			Encoder:  EncoderConfig{MaxDepth: 3},
			Write:    WriteConfig{Header: "X-Fieldtree-Persist"},
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "store.driver"},
		{name: "sql without dsn", mutate: func(c *Config) { c.Store.Driver = DriverPgx }, wantErr: "store.dsn"},
		{name: "unknown cache", mutate: func(c *Config) { c.Cache.Driver = "memcached" }, wantErr: "cache.driver"},
		{name: "redis without addr", mutate: func(c *Config) { c.Cache.Driver = DriverRedis }, wantErr: "cache.redis.addr"},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTL = -time.Second }, wantErr: "cache.ttl"},
		{name: "depth too small", mutate: func(c *Config) { c.Encoder.MaxDepth = -2 }, wantErr: "max_depth"},
		{name: "depth minus one", mutate: func(c *Config) { c.Encoder.MaxDepth = -1 }},
		{name: "blank header", mutate: func(c *Config) { c.Write.Header = " " }, wantErr: "write.header"},
		{name: "no registry dir", mutate: func(c *Config) { c.Registry.Dir = "" }, wantErr: "registry.dir"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}
