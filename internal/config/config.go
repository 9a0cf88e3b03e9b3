// Package config loads the pipeline's threshold configuration: score
// bands, policy cutoffs, routing thresholds and deadlines. The schema
// and its defaults are CUE, embedded in the binary; an optional user
// file is unified over the defaults and validated against the same
// constraints, so a config that loads is a config that is in range.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/seedcap/lendflow/internal/policy"
	"github.com/seedcap/lendflow/internal/scoring"
)

//go:embed defaults.cue
var defaultsCUE []byte

// Config is the decoded threshold configuration.
type Config struct {
	Bands   scoring.RiskBands `json:"bands"`
	Policy  policy.Thresholds `json:"policy"`
	Routing Routing           `json:"routing"`
	Timeout Timeouts          `json:"timeouts"`
}

// Routing holds the routing cutoffs.
type Routing struct {
	// ImpactSkipThreshold routes audit scores at or above it straight
	// to compliance, skipping the impact stage.
	ImpactSkipThreshold float64 `json:"impactSkipThreshold"`
}

// Timeouts holds the execution deadlines, in seconds.
type Timeouts struct {
	StageSeconds int `json:"stageSeconds"`
	RunSeconds   int `json:"runSeconds"`
}

// StageTimeout returns the per-stage deadline.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Timeout.StageSeconds) * time.Second
}

// RunTimeout returns the whole-run deadline.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Timeout.RunSeconds) * time.Second
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := load(nil)
	if err != nil {
		// The embedded defaults are compiled into the binary; failing to
		// load them is a build defect.
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load reads a CUE config file and unifies it over the embedded
// defaults. The file only needs to state the values it overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := load(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes unifies raw CUE source over the embedded defaults.
func LoadBytes(data []byte) (*Config, error) {
	return load(data)
}

func load(overrides []byte) (*Config, error) {
	ctx := cuecontext.New()

	v := ctx.CompileBytes(defaultsCUE, cue.Filename("defaults.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile defaults: %w", err)
	}

	if len(overrides) > 0 {
		ov := ctx.CompileBytes(overrides, cue.Filename("config.cue"))
		if err := ov.Err(); err != nil {
			return nil, fmt.Errorf("compile: %w", err)
		}
		v = v.Unify(ov)
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("unify: %w", err)
		}
	}

	cv := v.LookupPath(cue.ParsePath("config"))
	if err := cv.Err(); err != nil {
		return nil, fmt.Errorf("lookup config: %w", err)
	}
	if err := cv.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	var cfg Config
	if err := cv.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &cfg, nil
}
