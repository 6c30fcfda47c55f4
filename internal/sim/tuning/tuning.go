package tuning

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"rivet.ai/internal/sim/kernel"
)

// Tuning holds run settings. None of them reach the simulated state, so a
// run's hashes do not depend on this file.
type Tuning struct {
	TickBudget         int `yaml:"tick_budget"          env:"RIVET_TICK_BUDGET"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks" env:"RIVET_SNAPSHOT_EVERY_TICKS"`

	Index IndexSettings `yaml:"index"`

	// Rules selects pack rules by id, in order. Empty enables all of them.
	Rules []string `yaml:"rules" env:"RIVET_RULES" envSeparator:","`
}

type IndexSettings struct {
	Enabled bool   `yaml:"enabled" env:"RIVET_INDEX_ENABLED"`
	Path    string `yaml:"path"    env:"RIVET_INDEX_PATH"`
}

func Defaults() Tuning {
	return Tuning{
		TickBudget:         1000,
		SnapshotEveryTicks: 100,
		Index: IndexSettings{
			Enabled: true,
			Path:    "index.sqlite",
		},
	}
}

// Load reads path on top of Defaults, so omitted keys keep their default.
// RIVET_* environment variables override the file.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t, err = ApplyEnv(t); err != nil {
		return t, err
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// ApplyEnv overrides t with the RIVET_* variables that are set.
func ApplyEnv(t Tuning) (Tuning, error) {
	if err := env.Parse(&t); err != nil {
		return t, fmt.Errorf("parse env: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []kernel.ConfigError
	if t.TickBudget <= 0 {
		errs = append(errs, kernel.ConfigError{Field: "tick_budget", Message: "must be positive", Value: t.TickBudget, Bounds: ">= 1"})
	}
	if t.SnapshotEveryTicks < 0 {
		errs = append(errs, kernel.ConfigError{Field: "snapshot_every_ticks", Message: "must not be negative", Value: t.SnapshotEveryTicks, Bounds: ">= 0"})
	}
	if t.Index.Enabled && strings.TrimSpace(t.Index.Path) == "" {
		errs = append(errs, kernel.ConfigError{Field: "index.path", Message: "required when index is enabled"})
	}
	seen := map[string]int{}
	for i, id := range t.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if strings.TrimSpace(id) == "" {
			errs = append(errs, kernel.ConfigError{Field: field, Message: "must not be empty"})
			continue
		}
		if j, dup := seen[id]; dup {
			errs = append(errs, kernel.ConfigError{Field: field, Message: fmt.Sprintf("duplicate of rules[%d]", j), Value: id})
			continue
		}
		seen[id] = i
	}
	if len(errs) > 0 {
		return &kernel.ConfigValidationError{Errors: errs}
	}
	return nil
}
