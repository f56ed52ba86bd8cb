package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v, want nil", err)
	}
	if cfg.TickHz != 60 {
		t.Fatalf("TickHz = %d, want 60", cfg.TickHz)
	}
	if cfg.QuantumTicks != 10 {
		t.Fatalf("QuantumTicks = %d, want 10", cfg.QuantumTicks)
	}
	if !cfg.NetSink {
		t.Fatalf("NetSink = false, want true")
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load(missing) = %v, want nil", err)
	}
	if cfg.TickHz != 60 {
		t.Fatalf("TickHz = %d, want 60", cfg.TickHz)
	}
}

func TestLoadOverlayAndClamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.yaml")
	body := "tick_hz: 5000\nquantum_ticks: 3\nspinners: 99\ntrace_path: /tmp/trace.txt\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v, want nil", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.TickHz != 1000 {
		t.Fatalf("TickHz = %d, want clamp to 1000", cfg.TickHz)
	}
	if cfg.QuantumTicks != 3 {
		t.Fatalf("QuantumTicks = %d, want 3", cfg.QuantumTicks)
	}
	if cfg.Spinners != 8 {
		t.Fatalf("Spinners = %d, want clamp to 8", cfg.Spinners)
	}
	if cfg.TracePath != "/tmp/trace.txt" {
		t.Fatalf("TracePath = %q, want /tmp/trace.txt", cfg.TracePath)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("tick_hz: [not a number"), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v, want nil", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("Load(bad yaml) err = nil, want error")
	}
}
