// Package config loads a kudzu node's settings from a YAML file layered
// over built-in defaults, with environment variables overriding secrets.
// No cobra flag writes into Config.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/consolidation"
	"github.com/meshrepublic/kudzu/internal/hrr"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/storage"
)

// Config is every setting a running node's operation surface and
// background loops read, plus the mesh bind settings a running node needs.
type Config struct {
	APIAuth struct {
		Enabled bool     `yaml:"enabled"`
		Keys    []string `yaml:"keys"`
	} `yaml:"api_auth"`

	CycleIntervalMS int64 `yaml:"cycle_interval_ms"`

	Consolidation struct {
		LightIntervalMS int64 `yaml:"light_interval_ms"`
		DeepIntervalMS  int64 `yaml:"deep_interval_ms"`
	} `yaml:"consolidation"`

	Storage struct {
		HotToWarmSeconds  int64 `yaml:"hot_to_warm_seconds"`
		WarmToColdSeconds int64 `yaml:"warm_to_cold_seconds"`
	} `yaml:"storage"`

	HRR struct {
		Dimension int `yaml:"dimension"`
	} `yaml:"hrr"`

	Encoder struct {
		BlendStrength float64 `yaml:"blend_strength"`
	} `yaml:"encoder"`

	Model struct {
		Name                   string  `yaml:"name"`
		APIKey                 string  `yaml:"api_key"`
		BudgetLimitMonthlyUSD  float64 `yaml:"budget_limit_monthly_usd"`
		MaxTurns               int     `yaml:"max_turns"`
	} `yaml:"model"`

	Mesh struct {
		NodeName string `yaml:"node_name"`
		BindAddr string `yaml:"bind_addr"`
		BindPort int    `yaml:"bind_port"`
		RPCAddr  string `yaml:"rpc_addr"`
		Seeds    []string `yaml:"seeds"`
	} `yaml:"mesh"`
}

// Default returns a config populated with every component's own defaults,
// the base layer the YAML file and env vars then override.
func Default() *Config {
	c := &Config{}
	c.CycleIntervalMS = brain.DefaultCycleIntervalMS
	c.Consolidation.LightIntervalMS = int64(10 * time.Minute / time.Millisecond)
	c.Consolidation.DeepIntervalMS = int64(6 * time.Hour / time.Millisecond)
	c.Storage.HotToWarmSeconds = int64(time.Hour / time.Second)
	c.Storage.WarmToColdSeconds = int64(7 * 24 * time.Hour / time.Second)
	c.HRR.Dimension = hrr.DefaultDimension
	c.Encoder.BlendStrength = 0.3
	c.Model.Name = "claude-3-5-sonnet-20241022"
	c.Model.MaxTurns = 8
	c.Model.BudgetLimitMonthlyUSD = 50.0
	return c
}

// Load reads a YAML file at path over Default(), then applies environment
// overrides for secrets. A missing file is not an error: operators may run
// entirely off defaults and environment variables.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		ApplyEnvOverrides(c, os.Getenv)
		return c, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		ApplyEnvOverrides(c, os.Getenv)
		return c, nil
	}
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "parse config file %s", path)
	}
	ApplyEnvOverrides(c, os.Getenv)
	return c, nil
}

// ApplyEnvOverrides overrides secrets from the environment.
func ApplyEnvOverrides(c *Config, getenv func(string) string) {
	if key := getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Model.APIKey = key
	}
	if keys := getenv("KUDZU_API_AUTH_KEYS"); keys != "" {
		c.APIAuth.Keys = splitNonEmpty(keys, ",")
	}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	if part := s[start:]; part != "" {
		out = append(out, part)
	}
	return out
}

// BrainConfig projects the model settings into brain.Config.
func (c *Config) BrainConfig() brain.Config {
	return brain.Config{
		Model:                 c.Model.Name,
		APIKey:                c.Model.APIKey,
		MaxTurns:              c.Model.MaxTurns,
		MonthlyBudgetLimitUSD: c.Model.BudgetLimitMonthlyUSD,
	}
}

// CycleInterval is CycleIntervalMS as a time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.CycleIntervalMS) * time.Millisecond
}

// ConsolidationConfig projects the consolidation interval settings.
func (c *Config) ConsolidationConfig() consolidation.Config {
	return consolidation.Config{
		LightInterval: time.Duration(c.Consolidation.LightIntervalMS) * time.Millisecond,
		DeepInterval:  time.Duration(c.Consolidation.DeepIntervalMS) * time.Millisecond,
	}
}

// AgingConfig projects the storage tier aging thresholds.
func (c *Config) AgingConfig() storage.AgingConfig {
	return storage.AgingConfig{
		HotToWarmAfter:  time.Duration(c.Storage.HotToWarmSeconds) * time.Second,
		WarmToColdAfter: time.Duration(c.Storage.WarmToColdSeconds) * time.Second,
	}
}
