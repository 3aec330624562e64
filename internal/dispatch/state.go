// Package dispatch implements the serial action-message dispatcher (spec
// §4.6, §3.7): one action_command message processed per tick, with a
// crash-recovery "processing" set and a stuck-message sweep. Adapted from
// internal/outbox's persisted-JSON pattern (atomic temp-file-and-rename
// write, each file read and write serialized by a mutex) applied to the
// three id sets
// original_source/orchestrator/message_dispatcher.py tracks, instead of
// per-agent queues.
package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StuckThreshold is how long a message may sit in "processing" before a
// crashed dispatcher's claim on it is treated as abandoned.
const StuckThreshold = 5 * time.Minute

// AgentTimeout bounds how long a single action agent run may take before
// the dispatcher gives up on it.
const AgentTimeout = 3 * time.Minute

// processingEntry records when a message was claimed and a content
// preview, so a stuck sweep can report something useful.
type processingEntry struct {
	StartedAt time.Time `json:"started_at"`
	Content   string    `json:"content"`
}

// state is the on-disk dispatch tracking record.
type state struct {
	Done       []string                    `json:"done"`
	Failed     []string                    `json:"failed"`
	Processing map[string]processingEntry `json:"processing"`
}

func newState() state {
	return state{Processing: map[string]processingEntry{}}
}

// Store guards the on-disk dispatch state with a mutex, matching the
// teacher's Store-wraps-a-map-with-RWMutex shape.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store persisting to <dir>/message_dispatch_state.json.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "message_dispatch_state.json")}
}

func (s *Store) load() (state, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newState(), nil
		}
		return state{}, fmt.Errorf("dispatch: read state: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return newState(), nil
	}
	if st.Processing == nil {
		st.Processing = map[string]processingEntry{}
	}
	return st, nil
}

func (s *Store) save(st state) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("dispatch: create state dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("dispatch: marshal state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "message_dispatch_state.json.tmp-*")
	if err != nil {
		return fmt.Errorf("dispatch: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("dispatch: write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("dispatch: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("dispatch: rename state: %w", err)
	}
	return nil
}

func isIn(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
