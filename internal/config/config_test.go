package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValidModuloSeedDir(t *testing.T) {
	c := Default()
	if c.Engine.NumWorkers <= 0 {
		t.Fatal("expected a positive default worker count")
	}
	if c.Engine.StartMethod != "spawn" {
		t.Fatalf("expected default start method spawn, got %q", c.Engine.StartMethod)
	}
}

func TestLoadFileOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "covfuzz.yaml")
	yamlDoc := "engine:\n  num_workers: 7\n  max_crashes: 5\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	merged, err := LoadFile(path, Default())
	if err != nil {
		t.Fatal(err)
	}
	if merged.Engine.NumWorkers != 7 {
		t.Fatalf("expected num_workers overridden to 7, got %d", merged.Engine.NumWorkers)
	}
	if merged.Engine.MaxCrashes != 5 {
		t.Fatalf("expected max_crashes 5, got %d", merged.Engine.MaxCrashes)
	}
	if merged.Engine.StatFrequency != 3*time.Second {
		t.Fatalf("expected stat_frequency default preserved, got %v", merged.Engine.StatFrequency)
	}
}

func TestValidateRejectsMissingSeedDir(t *testing.T) {
	c := Default()
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error when seed dir is empty")
	}
}

func TestValidateRejectsFork(t *testing.T) {
	c := Default()
	c.SeedDir = t.TempDir()
	c.Engine.StartMethod = "fork"
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error when start-method is fork")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	c := Default()
	c.SeedDir = t.TempDir()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected a well-formed config to validate, got %v", err)
	}
}
