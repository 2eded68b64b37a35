package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/hrr"
)

func TestDefaultMatchesComponentDefaults(t *testing.T) {
	c := Default()
	if c.CycleIntervalMS != brain.DefaultCycleIntervalMS {
		t.Fatalf("expected cycle_interval_ms %d, got %d", brain.DefaultCycleIntervalMS, c.CycleIntervalMS)
	}
	if c.HRR.Dimension != hrr.DefaultDimension {
		t.Fatalf("expected hrr.dimension %d, got %d", hrr.DefaultDimension, c.HRR.Dimension)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error loading a missing config file: %v", err)
	}
	if c.Model.Name == "" {
		t.Fatalf("expected a default model name when no file is present")
	}
}

func TestLoadParsesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kudzu.yaml")
	yaml := `
api_auth:
  enabled: true
  keys: ["k1", "k2"]
cycle_interval_ms: 60000
hrr:
  dimension: 1024
model:
  name: custom-model
  max_turns: 3
  budget_limit_monthly_usd: 12.5
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.APIAuth.Enabled || len(c.APIAuth.Keys) != 2 {
		t.Fatalf("expected api_auth to be parsed from file, got %+v", c.APIAuth)
	}
	if c.CycleIntervalMS != 60000 {
		t.Fatalf("expected cycle_interval_ms 60000, got %d", c.CycleIntervalMS)
	}
	if c.HRR.Dimension != 1024 {
		t.Fatalf("expected hrr.dimension 1024, got %d", c.HRR.Dimension)
	}
	if c.Model.Name != "custom-model" || c.Model.MaxTurns != 3 {
		t.Fatalf("expected model overrides applied, got %+v", c.Model)
	}
	// Encoder.BlendStrength was untouched by the fixture, so the default
	// layer underneath must still be in effect.
	if c.Encoder.BlendStrength != 0.3 {
		t.Fatalf("expected untouched field to retain its default, got %v", c.Encoder.BlendStrength)
	}
}

func TestApplyEnvOverridesSecretsWinOverFile(t *testing.T) {
	c := Default()
	c.Model.APIKey = "from-file"

	getenv := func(key string) string {
		if key == "ANTHROPIC_API_KEY" {
			return "from-env"
		}
		return ""
	}
	ApplyEnvOverrides(c, getenv)

	if c.Model.APIKey != "from-env" {
		t.Fatalf("expected env var to win over file-configured api key, got %q", c.Model.APIKey)
	}
}

func TestApplyEnvOverridesParsesAPIAuthKeyList(t *testing.T) {
	c := Default()
	getenv := func(key string) string {
		if key == "KUDZU_API_AUTH_KEYS" {
			return "alpha,beta,,gamma"
		}
		return ""
	}
	ApplyEnvOverrides(c, getenv)

	want := []string{"alpha", "beta", "gamma"}
	if len(c.APIAuth.Keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, c.APIAuth.Keys)
	}
	for i, k := range want {
		if c.APIAuth.Keys[i] != k {
			t.Fatalf("expected %v, got %v", want, c.APIAuth.Keys)
		}
	}
}
