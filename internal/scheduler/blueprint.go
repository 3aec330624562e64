package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Blueprint is a configured agent pool (spec §3.5): a named kind of
// worker, how many instances of it may run at once, and which tasks it is
// allowed to claim. Loaded once at scheduler start from agents.yaml and
// persists across ticks; instances spawned against it are short-lived.
type Blueprint struct {
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	MaxInstances int      `yaml:"max_instances"`
	RoleFilter   string   `yaml:"role_filter"`
	TypeFilter   string   `yaml:"type_filter"`
	Gatekeeper   bool     `yaml:"gatekeeper"`
	Hooks        []string `yaml:"agent_hooks"`
}

type blueprintsFile struct {
	Blueprints []Blueprint `yaml:"blueprints"`
}

// LoadBlueprints reads agents.yaml (spec §6.6) and validates each entry.
// Blueprints are tried in file order on every tick — "ordered highest
// priority first" (spec §4.5) is expressed as declaration order, so an
// operator controls claim priority by where a blueprint sits in the file.
func LoadBlueprints(path string) ([]Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agents file %s: %w", path, err)
	}

	var file blueprintsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing agents file %s: %w", path, err)
	}

	for i, bp := range file.Blueprints {
		if bp.Name == "" {
			return nil, fmt.Errorf("agents file %s: blueprint %d missing name", path, i)
		}
		if bp.MaxInstances <= 0 {
			return nil, fmt.Errorf("agents file %s: blueprint %q max_instances must be positive", path, bp.Name)
		}
	}

	return file.Blueprints, nil
}
