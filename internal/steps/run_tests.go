package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runTests detects a test runner from well-known marker files in the
// worktree and executes it with an augmented PATH, raising on non-zero
// exit. Ported from original_source/tests/test_steps.go's expectations
// for run_tests and _build_node_path: pytest.ini/pyproject.toml trigger
// pytest, package.json triggers npm test, and a bare Makefile triggers
// make test. No marker file present is a silent skip, not a failure.
func runTests(ctx context.Context, worktree string) error {
	name, args, ok := detectRunner(worktree)
	if !ok {
		return nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = worktree
	cmd.Env = append(os.Environ(), "PATH="+buildNodePath())

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("run_tests: tests failed: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

func detectRunner(worktree string) (name string, args []string, ok bool) {
	markers := []struct {
		file string
		name string
		args []string
	}{
		{"pytest.ini", "pytest", nil},
		{"pyproject.toml", "pytest", nil},
		{"package.json", "npm", []string{"test"}},
		{"Makefile", "make", []string{"test"}},
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(worktree, m.file)); err == nil {
			return m.name, m.args, true
		}
	}
	return "", nil, false
}

// buildNodePath augments the inherited PATH with nvm's active node bin
// directory and the corepack shims directory, when present on disk, so
// run_tests can find a node/npm that isn't on the orchestrator's own PATH.
func buildNodePath() string {
	path := os.Getenv("PATH")

	if nvmDir := os.Getenv("NVM_DIR"); nvmDir != "" {
		versionsDir := filepath.Join(nvmDir, "versions", "node")
		if entries, err := os.ReadDir(versionsDir); err == nil && len(entries) > 0 {
			latest := entries[len(entries)-1]
			binDir := filepath.Join(versionsDir, latest.Name(), "bin")
			if _, err := os.Stat(binDir); err == nil {
				path = binDir + string(os.PathListSeparator) + path
			}
		}
	}

	shims := "/usr/local/lib/node_modules/corepack/shims"
	if info, err := os.Stat(shims); err == nil && info.IsDir() {
		path = path + string(os.PathListSeparator) + shims
	}

	return path
}
