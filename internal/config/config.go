// Package config loads the type checker's run options (spec.md §6 "external
// interface"): whether the builtin module's magic names are visible to
// ordinary name resolution, and an optional source line to narrate
// inference for while checking.
//
// Grounded on the teacher's internal/eval_harness/spec.go (YAML-backed
// options struct with a LoadSpec-style file loader and field validation).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options controls checker behavior that isn't a property of the program
// being checked (spec.md §6).
type Options struct {
	// IsBuiltinModuleVisible is loaded and defaulted here, but the checker
	// does not read it: the magic names Any, Never and Builtin (spec.md §4.2
	// "Magic type names") resolve the same way whichever value it has.
	IsBuiltinModuleVisible bool `yaml:"builtin_module_visible"`

	// TracingInferenceIn, when non-zero, narrates constraint generation and
	// solving for any subject whose declaration site falls on this source
	// line (spec.md §6 "tracingInferenceIn").
	TracingInferenceIn int `yaml:"tracing_inference_in"`
}

// Default returns the checker's out-of-the-box options: the builtin module
// visible, no tracing.
func Default() Options {
	return Options{IsBuiltinModuleVisible: true}
}

// Load reads Options from a YAML file at path.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read config file: %w", err)
	}
	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return opts, nil
}

// TraceLine returns a pointer suitable for Checker.TraceLine: nil when
// tracing is disabled (TracingInferenceIn is zero, an invalid source line).
func (o Options) TraceLine() *int {
	if o.TracingInferenceIn <= 0 {
		return nil
	}
	line := o.TracingInferenceIn
	return &line
}
