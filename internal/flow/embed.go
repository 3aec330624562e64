package flow

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed templates/*.yaml
var templatesFS embed.FS

// EnsureDefaults writes default.yaml and project.yaml into flowsDir if
// they do not already exist, mirroring
// original_source/orchestrator/flow.py:create_flows_directory — called
// by octopoidd at startup.
func EnsureDefaults(flowsDir string) error {
	if err := os.MkdirAll(flowsDir, 0o755); err != nil {
		return fmt.Errorf("create flows dir: %w", err)
	}
	for _, name := range []string{"default", "project"} {
		dest := filepath.Join(flowsDir, name+".yaml")
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		data, err := templatesFS.ReadFile("templates/" + name + ".yaml")
		if err != nil {
			return fmt.Errorf("reading embedded %s.yaml: %w", name, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
	}
	return nil
}
