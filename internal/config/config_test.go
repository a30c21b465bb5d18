package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != DefaultAddress {
		t.Errorf("Address = %q, want %q", cfg.Address, DefaultAddress)
	}
	if cfg.Persistence.Backend != BackendFile {
		t.Errorf("Backend = %q, want %q", cfg.Persistence.Backend, BackendFile)
	}
	if cfg.Quiescence() != 2*time.Second {
		t.Errorf("Quiescence() = %v, want 2s", cfg.Quiescence())
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := writeConfig(t, `{"address": ":8080"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Address != ":8080" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.Persistence.Path != DefaultSnapshotPath {
		t.Errorf("Path = %q, want default", cfg.Persistence.Path)
	}
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `{
		"address": ":9000",
		"persistence": {
			"backend": "redis",
			"quiescenceMs": 500,
			"redis": {"addr": "localhost:6379", "db": 2, "key": "custom:canvas"}
		},
		"relay": {"maxSessions": 50, "maxLogEntries": 10000}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Persistence.Backend != BackendRedis {
		t.Errorf("Backend = %q", cfg.Persistence.Backend)
	}
	if cfg.Persistence.Redis.Addr != "localhost:6379" || cfg.Persistence.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Persistence.Redis)
	}
	if cfg.Quiescence() != 500*time.Millisecond {
		t.Errorf("Quiescence() = %v", cfg.Quiescence())
	}
	if cfg.Relay.MaxSessions != 50 || cfg.Relay.MaxLogEntries != 10000 {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "{not json")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"memory backend", func(c *Config) { c.Persistence.Backend = BackendMemory }, false},
		{"none backend", func(c *Config) { c.Persistence.Backend = BackendNone }, false},
		{"unknown backend", func(c *Config) { c.Persistence.Backend = "dynamo" }, true},
		{"redis without addr", func(c *Config) { c.Persistence.Backend = BackendRedis }, true},
		{"redis with addr", func(c *Config) {
			c.Persistence.Backend = BackendRedis
			c.Persistence.Redis.Addr = "localhost:6379"
		}, false},
		{"s3 without bucket", func(c *Config) { c.Persistence.Backend = BackendS3 }, true},
		{"s3 with bucket", func(c *Config) {
			c.Persistence.Backend = BackendS3
			c.Persistence.S3.Bucket = "my-bucket"
		}, false},
		{"negative max sessions", func(c *Config) { c.Relay.MaxSessions = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
