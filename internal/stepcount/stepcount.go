// Package stepcount implements the per-task step-failure counter that
// backs the result handler's circuit breaker (spec §3.8, §4.4).
package stepcount

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultThreshold is the number of consecutive step failures that trips
// the circuit breaker and moves a task to failed.
const DefaultThreshold = 3

const fileName = "step_failure_count"

// path returns <taskDir>/step_failure_count.
func path(taskDir string) string {
	return filepath.Join(taskDir, fileName)
}

// Read returns the current counter value for a task directory, treating
// a missing or malformed file as zero.
func Read(taskDir string) int {
	data, err := os.ReadFile(path(taskDir))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}

// Increment bumps the counter by one and returns the new value.
func Increment(taskDir string) (int, error) {
	n := Read(taskDir) + 1
	if err := write(taskDir, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Reset sets the counter back to zero.
func Reset(taskDir string) error {
	return write(taskDir, 0)
}

// Tripped reports whether n has crossed threshold.
func Tripped(n, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return n >= threshold
}

func write(taskDir string, n int) error {
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return fmt.Errorf("stepcount: create task dir: %w", err)
	}
	tmp, err := os.CreateTemp(taskDir, fileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("stepcount: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(strconv.Itoa(n)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("stepcount: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("stepcount: close: %w", err)
	}
	if err := os.Rename(tmpName, path(taskDir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("stepcount: rename: %w", err)
	}
	return nil
}
