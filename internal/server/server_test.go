package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Port = "8081"

	srv, err := NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if srv.Server.Addr != ":8081" {
		t.Errorf("Expected port :8081, got %s", srv.Server.Addr)
	}

	// Missing bucket for S3
	cfg = DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Type = StorageS3
	if _, err := NewServer(context.Background(), cfg); err == nil {
		t.Error("Expected error for missing AWS_BUCKET")
	}
}

func TestNewServerReindexesStoredDocuments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewStorage(dir, NewLocalBlobStore(dir))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddDocument(ctx, "scholarships.txt", []byte("Scholarship applications are due in March.")); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.DataDir = dir
	srv, err := NewServer(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if srv.Handler.Index.Len() == 0 {
		t.Error("stored documents should be indexed at startup")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `port: "9000"
dataDir: /tmp/campus
askRatePerMinute: 5
storage:
  type: minio
  minio:
    endpoint: localhost:9001
    bucket: docs
accounts:
  - email: admin.user@mail.utec.edu.sv
    name: Admin
    roleId: 1
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ASK_RATE_PER_MINUTE", "12")
	t.Setenv("STORAGE_TYPE", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != ":9000" || cfg.DataDir != "/tmp/campus" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.AskRatePerMinute != 12 {
		t.Errorf("env should override yaml, got %d", cfg.AskRatePerMinute)
	}
	if cfg.Storage.Type != StorageMinio || cfg.Storage.Minio.Bucket != "docs" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].RoleID != 1 {
		t.Errorf("unexpected accounts %+v", cfg.Accounts)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "ftp" }},
		{"minio without endpoint", func(c *Config) { c.Storage.Type = StorageMinio }},
		{"no accounts", func(c *Config) { c.Accounts = nil }},
		{"negative rate", func(c *Config) { c.AskRatePerMinute = -1 }},
		{"no data dir", func(c *Config) { c.DataDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigBadRate(t *testing.T) {
	t.Setenv("ASK_RATE_PER_MINUTE", "lots")
	if _, err := LoadConfig(""); err == nil {
		t.Error("expected error for non-numeric rate")
	}
}
