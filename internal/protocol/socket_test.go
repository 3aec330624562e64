package protocol

import "testing"

func TestSocketPathFor(t *testing.T) {
	tests := []struct {
		project string
		want    string
	}{
		// Normal cases
		{"", DefaultSocketPath},
		{"myproject", "/tmp/octopoidd-myproject.sock"},
		{"eldspire-hexmap", "/tmp/octopoidd-eldspire-hexmap.sock"},
		{"my.project", "/tmp/octopoidd-my.project.sock"},

		// Path traversal — filepath.Base strips directory components.
		{"../etc", "/tmp/octopoidd-etc.sock"},
		{"../../run/systemd", "/tmp/octopoidd-systemd.sock"},
		{"/absolute/path", "/tmp/octopoidd-path.sock"},
		{"a/b/c", "/tmp/octopoidd-c.sock"},

		// Degenerate inputs that filepath.Base collapses.
		{".", DefaultSocketPath},
		{"/", DefaultSocketPath},
	}
	for _, tt := range tests {
		got := SocketPathFor(tt.project)
		if got != tt.want {
			t.Errorf("SocketPathFor(%q) = %q, want %q", tt.project, got, tt.want)
		}
	}
}
