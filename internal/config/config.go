// Package config assembles octopoid's daemon/CLI configuration from four
// layers in priority order — CLI flags, then the OCTOPOID_SERVER_URL /
// OCTOPOID_API_KEY environment variables (spec §6.5), then the on-disk
// config file, then built-in defaults — mirroring the teacher's
// internal/daemon/config.go ApplyDefaults/Validate/LoadConfigFile/
// mergeConfig zero-value-fill pattern: each layer only fills the fields
// the layers above it left at their zero value.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxRetries   = 3
	DefaultThreshold    = 3
	DefaultScope        = "default"
	DefaultSpawnCmd     = "octopoid-agent"
)

// validScope restricts the tenant scope string to characters safe for use
// in file paths and socket names.
var validScope = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Config holds everything the daemon and CLI need to talk to the remote
// task store and run the scheduler loop.
//
// Assembled from four sources in priority order:
//  1. CLI flags (highest priority)
//  2. OCTOPOID_SERVER_URL / OCTOPOID_API_KEY environment variables
//  3. Config file (.octopoid/config.yaml)
//  4. Defaults (lowest priority)
type Config struct {
	// ServerURL is the remote task-store's root URL. Required.
	ServerURL string `yaml:"server"`

	// APIKey is sent as a bearer token on every remote-store request.
	APIKey string `yaml:"api_key"`

	// Scope isolates this orchestrator's tasks/messages from other
	// tenants sharing the same remote store.
	Scope string `yaml:"scope"`

	// MachineID identifies this host in orchestrator registration.
	MachineID string `yaml:"machine_id"`

	// Cluster optionally groups related orchestrators.
	Cluster string `yaml:"cluster"`

	// Root is the project root containing .octopoid/. Not persisted —
	// derived from where the config file was found or passed via flag.
	Root string `yaml:"-"`

	// PollInterval is how often the scheduler ticks.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxRetries is defaulted and validated here; no other package reads it.
	MaxRetries int `yaml:"max_retries"`

	// Threshold is the step-failure circuit-breaker limit (spec §3.8).
	Threshold int `yaml:"threshold"`

	// PromptDir overrides the embedded prompt templates with files from
	// this directory. Empty means use the prompts compiled into the binary.
	PromptDir string `yaml:"prompt_dir"`

	// SpawnCmd is the shell command used to launch an agent subprocess.
	// Receives TASK_DIR/TASK_WORKTREE/RESULT_FILE via its environment
	// (spec §6.5), not as CLI arguments.
	SpawnCmd string `yaml:"spawn_cmd"`

	// SocketPath is the Unix socket path for the local control-plane RPC.
	SocketPath string `yaml:"socket_path"`

	// Logger is the structured logger. Not configurable via file/flags.
	Logger *slog.Logger `yaml:"-"`
}

// Paths is the conventional .octopoid/ layout under a project root
// (spec §6.6), as derived by PathsFor.
type Paths struct {
	Dir           string
	ConfigFile    string
	AgentsFile    string
	FlowsDir      string
	RuntimeDir    string
	TasksDir      string
	AgentsDir     string
	SharedDir     string
	ThreadsDir    string
	DispatchState string
}

// PathsFor derives the persisted layout paths under root/.octopoid.
func PathsFor(root string) Paths {
	base := filepath.Join(root, ".octopoid")
	runtime := filepath.Join(base, "runtime")
	shared := filepath.Join(base, "shared")
	return Paths{
		Dir:           base,
		ConfigFile:    filepath.Join(base, "config.yaml"),
		AgentsFile:    filepath.Join(base, "agents.yaml"),
		FlowsDir:      filepath.Join(base, "flows"),
		RuntimeDir:    runtime,
		TasksDir:      filepath.Join(runtime, "tasks"),
		AgentsDir:     filepath.Join(runtime, "agents"),
		SharedDir:     shared,
		ThreadsDir:    filepath.Join(shared, "threads"),
		DispatchState: filepath.Join(runtime, "message_dispatch_state.json"),
	}
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Root == "" {
		if wd, err := os.Getwd(); err == nil {
			c.Root = wd
		}
	}
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.SocketPath == "" {
		c.SocketPath = socketPathFor(c.Scope)
	}
	if c.SpawnCmd == "" {
		c.SpawnCmd = DefaultSpawnCmd
	}
	if c.MachineID == "" {
		if host, err := os.Hostname(); err == nil {
			c.MachineID = host
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func socketPathFor(scope string) string {
	safe := filepath.Base(scope)
	if safe == "." || safe == "/" || safe == "" {
		return "/tmp/octopoidd.sock"
	}
	return fmt.Sprintf("/tmp/octopoidd-%s.sock", safe)
}

// ApplyEnv overlays OCTOPOID_SERVER_URL / OCTOPOID_API_KEY onto zero-valued
// fields (spec §6.5) — called after CLI flags are set and before the
// config file is loaded, so flags win over the environment and the
// environment wins over the file.
func (c *Config) ApplyEnv() {
	if c.ServerURL == "" {
		c.ServerURL = os.Getenv("OCTOPOID_SERVER_URL")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OCTOPOID_API_KEY")
	}
}

// Validate checks that configuration values are usable. Call after
// ApplyEnv and ApplyDefaults.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server is required (use --server, set OCTOPOID_SERVER_URL, or set server in config file)")
	}
	if !validScope.MatchString(c.Scope) {
		return fmt.Errorf("scope %q contains invalid characters (allowed: letters, digits, hyphens, underscores, dots)", c.Scope)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive, got %v", c.PollInterval)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %d", c.Threshold)
	}

	if c.PromptDir != "" {
		if !filepath.IsAbs(c.PromptDir) {
			abs, err := filepath.Abs(c.PromptDir)
			if err != nil {
				return fmt.Errorf("resolving prompt-dir %q: %w", c.PromptDir, err)
			}
			c.PromptDir = abs
		}
		if _, err := os.Stat(filepath.Join(c.PromptDir, "implementer.md")); err != nil {
			return fmt.Errorf("prompt-dir %q must contain implementer.md: %w", c.PromptDir, err)
		}
	}

	return nil
}

// LoadConfigFile reads a YAML config file and merges it into the config.
// Only zero-valued fields are overwritten — CLI flags take precedence.
// Returns nil if the file does not exist.
func LoadConfigFile(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	mergeConfig(&file, into)
	return nil
}

// mergeConfig copies non-zero fields from src into dst, but only where
// dst still has the zero value — dst is populated from CLI flags before
// the merge, so flags win over the file.
func mergeConfig(src, dst *Config) {
	if dst.ServerURL == "" {
		dst.ServerURL = src.ServerURL
	}
	if dst.APIKey == "" {
		dst.APIKey = src.APIKey
	}
	if dst.Scope == "" {
		dst.Scope = src.Scope
	}
	if dst.MachineID == "" {
		dst.MachineID = src.MachineID
	}
	if dst.Cluster == "" {
		dst.Cluster = src.Cluster
	}
	if dst.PollInterval == 0 {
		dst.PollInterval = src.PollInterval
	}
	if dst.MaxRetries == 0 {
		dst.MaxRetries = src.MaxRetries
	}
	if dst.Threshold == 0 {
		dst.Threshold = src.Threshold
	}
	if dst.PromptDir == "" {
		dst.PromptDir = src.PromptDir
	}
	if dst.SpawnCmd == "" {
		dst.SpawnCmd = src.SpawnCmd
	}
	if dst.SocketPath == "" {
		dst.SocketPath = src.SocketPath
	}
}
