package wcconfig

import (
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.PoolSize <= 0 {
		t.Fatalf("Default PoolSize = %d, want > 0", cfg.PoolSize)
	}
	if cfg.Backends["opus"] != "libopus" {
		t.Fatalf("Default Backends[opus] = %q, want libopus", cfg.Backends["opus"])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wc.yaml")
	cfg := Config{PoolSize: 7, Backends: map[string]string{"vp8": "libvpx-custom"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.PoolSize != 7 || got.Backends["vp8"] != "libvpx-custom" {
		t.Fatalf("round trip = %+v, want PoolSize=7 Backends[vp8]=libvpx-custom", got)
	}
	if Current().PoolSize != 7 {
		t.Fatalf("Current().PoolSize = %d, want 7 after Load", Current().PoolSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error loading a nonexistent config file")
	}
}
