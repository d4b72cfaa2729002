package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
	ttl, err := cfg.TTL()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", ttl)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
		"name": "demo",
		"addr": ":3000",
		"sessionTTL": "30m",
		"store": {"driver": "redis", "addr": "localhost:6379", "prefix": "demo:"}
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "demo" || cfg.Addr != ":3000" {
		t.Errorf("cfg = %+v, fields not loaded", cfg)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Prefix != "demo:" {
		t.Errorf("store = %+v, fields not loaded", cfg.Store)
	}
	ttl, err := cfg.TTL()
	if err != nil || ttl != 30*time.Minute {
		t.Errorf("TTL = %v, %v, want 30m", ttl, err)
	}
	// Unset fields still get defaults.
	if cfg.StylesheetHref != DefaultStylesheet {
		t.Errorf("StylesheetHref = %q, want default", cfg.StylesheetHref)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"BadJSON", `{not json`},
		{"UnknownDriver", `{"store": {"driver": "carrier-pigeon"}}`},
		{"RedisWithoutAddr", `{"store": {"driver": "redis"}}`},
		{"SQLiteWithoutDSN", `{"store": {"driver": "sqlite"}}`},
		{"S3WithoutBucket", `{"store": {"driver": "s3"}}`},
		{"BadTTL", `{"sessionTTL": "sometime next week"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			if _, err := Load(dir); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Name = "saved"
	cfg.Store = StoreConfig{Driver: "sqlite", DSN: "file:app.db"}

	path := filepath.Join(dir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.Name != "saved" || loaded.Store.DSN != "file:app.db" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `{}`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot failed: %v", err)
	}
	// Resolve symlinks; temp dirs on some systems are symlinked.
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(found)
	if gotRoot != wantRoot {
		t.Errorf("FindProjectRoot = %q, want %q", gotRoot, wantRoot)
	}
}

func TestFindProjectRootMissing(t *testing.T) {
	if _, err := FindProjectRoot(t.TempDir()); err == nil {
		t.Error("FindProjectRoot succeeded with no config anywhere")
	}
}
