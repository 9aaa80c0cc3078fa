package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentsim/internal/util"
	"github.com/hupe1980/agentsim/logging"
)

// Scenario is the top-level scenario file: one species, its population, the
// run length and an optional experiment definition.
type Scenario struct {
	// Name is the model name.
	Name string `json:"name" yaml:"name"`

	// Agents is the population size (default 1).
	Agents int `json:"agents" yaml:"agents"`

	// Steps is the number of steps every run advances.
	Steps int `json:"steps" yaml:"steps"`

	// RecordInitial records the initial population as step 0.
	RecordInitial bool `json:"record_initial" yaml:"record_initial"`

	Parameters map[string]float64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Properties defines the schema in storage order together with the
	// initial value of every property.
	Properties []PropertyConfig `json:"properties" yaml:"properties"`

	// Overrides gives single agents diverging initial values.
	Overrides []OverrideConfig `json:"overrides,omitempty" yaml:"overrides,omitempty"`

	// Operations are applied to every agent in order on each step.
	Operations []OperationConfig `json:"operations" yaml:"operations"`

	Experiment *ExperimentConfig `json:"experiment,omitempty" yaml:"experiment,omitempty"`

	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// envErrs holds environment overrides that could not be applied.
	envErrs util.ValidationErrors
}

// PropertyConfig declares one integer property.
type PropertyConfig struct {
	Name    string `json:"name" yaml:"name"`
	Initial int64  `json:"initial" yaml:"initial"`
}

// OverrideConfig sets initial values for the agent at index Agent.
type OverrideConfig struct {
	Agent  int              `json:"agent" yaml:"agent"`
	Values map[string]int64 `json:"values" yaml:"values"`
}

// ExperimentConfig runs the scenario over a parameter sample.
type ExperimentConfig struct {
	// Iterations is the number of replicates per parameter combination.
	Iterations int `json:"iterations" yaml:"iterations"`

	// N is the number of points drawn from every range.
	N int `json:"n,omitempty" yaml:"n,omitempty"`

	// Zip pairs value sets index by index instead of combining all of them.
	Zip bool `json:"zip,omitempty" yaml:"zip,omitempty"`

	Sample map[string]SampleConfig `json:"sample,omitempty" yaml:"sample,omitempty"`
}

// SampleConfig defines one sampled parameter. Exactly one field is set.
type SampleConfig struct {
	Value    *float64  `json:"value,omitempty" yaml:"value,omitempty"`
	Values   []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Range    []float64 `json:"range,omitempty" yaml:"range,omitempty"`
	IntRange []int64   `json:"int_range,omitempty" yaml:"int_range,omitempty"`
}

// RuntimeConfig controls execution and persistence.
type RuntimeConfig struct {
	MaxConcurrentRuns int    `json:"max_concurrent_runs" yaml:"max_concurrent_runs"`
	Store             string `json:"store" yaml:"store"`
	SQLitePath        string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Format is json or text.
	Format string `json:"format" yaml:"format"`
}

// Default returns a scenario with defaults for every optional setting.
func Default() *Scenario {
	return &Scenario{
		Agents: 1,
		Runtime: RuntimeConfig{
			MaxConcurrentRuns: 4,
			Store:             "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile reads a scenario file and applies environment overrides.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(s)

	return s, nil
}

// Parse decodes a YAML scenario on top of Default. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	s := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}

	return s, nil
}

// Validate reports every problem of the scenario at once.
func (s *Scenario) Validate() error {
	errs := append(util.ValidationErrors(nil), s.envErrs...)

	if s.Name == "" {
		errs.Add("name", nil, "must not be empty")
	}

	if s.Agents < 1 {
		errs.Add("agents", s.Agents, "must be at least 1")
	}

	if s.Steps < 0 {
		errs.Add("steps", s.Steps, "must not be negative")
	}

	if len(s.Properties) == 0 {
		errs.Add("properties", nil, "at least one property is required")
	}

	seen := make(map[string]bool, len(s.Properties))
	for i, p := range s.Properties {
		field := fmt.Sprintf("properties[%d].name", i)

		switch {
		case p.Name == "":
			errs.Add(field, nil, "must not be empty")
		case seen[p.Name]:
			errs.Add(field, p.Name, "duplicate property")
		}

		seen[p.Name] = true
	}

	for i, o := range s.Overrides {
		if o.Agent < 0 || o.Agent >= s.Agents {
			errs.Add(fmt.Sprintf("overrides[%d].agent", i), o.Agent, "outside population of %d", s.Agents)
		}

		for name := range o.Values {
			if !seen[name] {
				errs.Add(fmt.Sprintf("overrides[%d].values", i), name, "unknown property")
			}
		}
	}

	for i, op := range s.Operations {
		op.validate(fmt.Sprintf("operations[%d]", i), seen, &errs)
	}

	if e := s.Experiment; e != nil {
		if e.Iterations < 0 {
			errs.Add("experiment.iterations", e.Iterations, "must not be negative")
		}

		for name, sc := range e.Sample {
			sc.validate("experiment.sample."+name, e.N, &errs)
		}
	}

	if s.Runtime.MaxConcurrentRuns < 1 {
		errs.Add("runtime.max_concurrent_runs", s.Runtime.MaxConcurrentRuns, "must be at least 1")
	}

	validStores := map[string]bool{"": true, "memory": true, "sqlite": true}
	if !validStores[s.Runtime.Store] {
		errs.Add("runtime.store", s.Runtime.Store, "valid: memory, sqlite")
	}

	if _, err := logging.ParseLevel(s.Logging.Level); err != nil {
		errs.Add("logging.level", s.Logging.Level, "valid: debug, info, warn, error")
	}

	validFormats := map[string]bool{"": true, "json": true, "text": true}
	if !validFormats[s.Logging.Format] {
		errs.Add("logging.format", s.Logging.Format, "valid: json, text")
	}

	return errs.Err()
}

func (c SampleConfig) validate(field string, n int, errs *util.ValidationErrors) {
	set := 0

	if c.Value != nil {
		set++
	}

	if c.Values != nil {
		set++

		if len(c.Values) == 0 {
			errs.Add(field+".values", nil, "must not be empty")
		}
	}

	for _, r := range []struct {
		name string
		len  int
		set  bool
	}{
		{"range", len(c.Range), c.Range != nil},
		{"int_range", len(c.IntRange), c.IntRange != nil},
	} {
		if !r.set {
			continue
		}

		set++

		if r.len != 2 {
			errs.Add(field+"."+r.name, r.len, "expects [min, max]")
		}

		if n < 1 {
			errs.Add("experiment.n", n, "must be positive when %s uses a range", field)
		}
	}

	if set != 1 {
		errs.Add(field, nil, "exactly one of value, values, range, int_range is required")
	}
}

// Logger builds the structured logger described by the logging section.
func (s *Scenario) Logger() *logging.SimLogger {
	level, _ := logging.ParseLevel(s.Logging.Level)
	return logging.NewSlogLogger(level, s.Logging.Format, false)
}

func applyEnvOverrides(s *Scenario) {
	if v := os.Getenv("AGENTSIM_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}

	if v := os.Getenv("AGENTSIM_LOG_FORMAT"); v != "" {
		s.Logging.Format = v
	}

	if v := os.Getenv("AGENTSIM_MAX_CONCURRENT_RUNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.envErrs.Add("AGENTSIM_MAX_CONCURRENT_RUNS", v, "must be an integer")
		} else {
			s.Runtime.MaxConcurrentRuns = n
		}
	}

	if v := os.Getenv("AGENTSIM_STORE"); v != "" {
		s.Runtime.Store = v
	}

	if v := os.Getenv("AGENTSIM_SQLITE_PATH"); v != "" {
		s.Runtime.SQLitePath = v
	}
}
