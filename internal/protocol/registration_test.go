package protocol

import (
	"testing"
	"time"
)

func TestAgentInfoIsStale(t *testing.T) {
	fresh := AgentInfo{StartedAt: time.Now().UnixMilli()}
	if fresh.IsStale(time.Hour) {
		t.Error("freshly started agent should not be stale")
	}

	old := AgentInfo{StartedAt: time.Now().Add(-2 * time.Hour).UnixMilli()}
	if !old.IsStale(time.Hour) {
		t.Error("two-hour-old agent should be stale against a one-hour max")
	}
}
