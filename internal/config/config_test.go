package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	if c.Scope != DefaultScope {
		t.Errorf("Scope = %q, want %q", c.Scope, DefaultScope)
	}
	if c.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", c.PollInterval, DefaultPollInterval)
	}
	if c.SocketPath != "/tmp/octopoidd-default.sock" {
		t.Errorf("SocketPath = %q", c.SocketPath)
	}
	if c.Logger == nil {
		t.Error("Logger should default to slog.Default()")
	}
}

func TestApplyEnvOverridesZeroFieldsOnly(t *testing.T) {
	t.Setenv("OCTOPOID_SERVER_URL", "https://octopoid.example.com")
	t.Setenv("OCTOPOID_API_KEY", "secret")

	c := Config{APIKey: "from-flag"}
	c.ApplyEnv()

	if c.ServerURL != "https://octopoid.example.com" {
		t.Errorf("ServerURL = %q, want env value", c.ServerURL)
	}
	if c.APIKey != "from-flag" {
		t.Errorf("APIKey = %q, want flag value preserved", c.APIKey)
	}
}

func TestValidateRequiresServerURL(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing server URL")
	}
}

func TestValidateRejectsBadScope(t *testing.T) {
	c := Config{ServerURL: "https://x", Scope: "not a scope!"}
	c.ApplyDefaults()
	c.Scope = "not a scope!"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for invalid scope")
	}
}

func TestValidatePromptDirRequiresImplementerTemplate(t *testing.T) {
	dir := t.TempDir()
	c := Config{ServerURL: "https://x", PromptDir: dir}
	c.ApplyDefaults()
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for prompt-dir missing implementer.md")
	}

	if err := os.WriteFile(filepath.Join(dir, "implementer.md"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error once implementer.md exists: %v", err)
	}
}

func TestLoadConfigFileMergesZeroFieldsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "server: https://file.example.com\nscope: file-scope\npoll_interval: 5s\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c := Config{Scope: "flag-scope"} // simulate a CLI flag already set
	if err := LoadConfigFile(path, &c); err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	if c.ServerURL != "https://file.example.com" {
		t.Errorf("ServerURL = %q, want file value", c.ServerURL)
	}
	if c.Scope != "flag-scope" {
		t.Errorf("Scope = %q, want flag value to win", c.Scope)
	}
	if c.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", c.PollInterval)
	}
}

func TestLoadConfigFileMissingIsNotError(t *testing.T) {
	var c Config
	if err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), &c); err != nil {
		t.Errorf("missing config file should not error, got %v", err)
	}
}

func TestPathsFor(t *testing.T) {
	p := PathsFor("/proj")
	if p.FlowsDir != "/proj/.octopoid/flows" {
		t.Errorf("FlowsDir = %q", p.FlowsDir)
	}
	if p.TasksDir != "/proj/.octopoid/runtime/tasks" {
		t.Errorf("TasksDir = %q", p.TasksDir)
	}
	if p.ThreadsDir != "/proj/.octopoid/shared/threads" {
		t.Errorf("ThreadsDir = %q", p.ThreadsDir)
	}
}
