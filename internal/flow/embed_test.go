package flow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDefaultsWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	flowsDir := filepath.Join(dir, "flows")
	if err := EnsureDefaults(flowsDir); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}

	for _, name := range []string{"default", "project"} {
		if _, err := os.Stat(filepath.Join(flowsDir, name+".yaml")); err != nil {
			t.Errorf("expected %s.yaml to exist: %v", name, err)
		}
	}

	f, err := LoadFlow(flowsDir, "default")
	if err != nil {
		t.Fatalf("LoadFlow(default) error = %v", err)
	}
	if f.Name != "default" {
		t.Errorf("f.Name = %q, want default", f.Name)
	}
}

func TestEnsureDefaultsDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	flowsDir := filepath.Join(dir, "flows")
	if err := EnsureDefaults(flowsDir); err != nil {
		t.Fatal(err)
	}
	custom := []byte("name: default\ndescription: customized\ntransitions: {}\n")
	if err := os.WriteFile(filepath.Join(flowsDir, "default.yaml"), custom, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDefaults(flowsDir); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFlow(flowsDir, "default")
	if err != nil {
		t.Fatal(err)
	}
	if f.Description != "customized" {
		t.Errorf("EnsureDefaults overwrote an existing flow file")
	}
}
