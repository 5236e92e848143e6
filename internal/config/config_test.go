package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasBuiltinModuleVisibleAndNoTracing(t *testing.T) {
	opts := Default()
	if !opts.IsBuiltinModuleVisible {
		t.Error("expected the builtin module visible by default")
	}
	if opts.TraceLine() != nil {
		t.Error("expected no trace line by default")
	}
}

func TestLoadParsesYAMLAndOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checker.yaml")
	contents := "builtin_module_visible: false\ntracing_inference_in: 42\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.IsBuiltinModuleVisible {
		t.Error("expected builtin_module_visible: false to override the default")
	}
	line := opts.TraceLine()
	if line == nil || *line != 42 {
		t.Errorf("TraceLine() = %v, want pointer to 42", line)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}

func TestTraceLineNilForNonPositiveLine(t *testing.T) {
	opts := Options{TracingInferenceIn: 0}
	if opts.TraceLine() != nil {
		t.Error("TracingInferenceIn == 0 should yield a nil TraceLine")
	}
	opts.TracingInferenceIn = -1
	if opts.TraceLine() != nil {
		t.Error("a negative TracingInferenceIn should yield a nil TraceLine")
	}
}
