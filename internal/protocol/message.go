// Package protocol defines the message envelope and addressing scheme used
// by the message dispatcher's human-inbox traffic.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType is the semantic type of a dispatcher message.
type MessageType string

const (
	// TypeActionCommand is a human-issued command addressed to the agent
	// actor, picked up by the message dispatcher (spec §4.6).
	TypeActionCommand MessageType = "action_command"

	// TypeWorkerResult is posted back to the human inbox once a dispatcher
	// agent finishes, successfully or not.
	TypeWorkerResult MessageType = "worker_result"
)

// Address identifies a message endpoint. "human" is the operator inbox;
// "agent" is the generic dispatcher actor that action commands target.
type Address struct {
	Type string `json:"type"` // "human" or "agent"
	ID   string `json:"id,omitempty"`
}

// ParseAddress parses an address string like "agent" or "human:alice".
func ParseAddress(s string) (Address, error) {
	idx := strings.Index(s, ":")
	if idx == -1 {
		if s != "human" && s != "agent" {
			return Address{}, fmt.Errorf("invalid address: %s (expected 'human', 'agent', or 'type:id')", s)
		}
		return Address{Type: s}, nil
	}
	if idx == 0 || idx == len(s)-1 || strings.Contains(s[idx+1:], ":") {
		return Address{}, fmt.Errorf("invalid address format: %s", s)
	}
	addrType, id := s[:idx], s[idx+1:]
	if addrType != "human" && addrType != "agent" {
		return Address{}, fmt.Errorf("invalid address type: %s", addrType)
	}
	return Address{Type: addrType, ID: id}, nil
}

func (a Address) String() string {
	if a.ID == "" {
		return a.Type
	}
	return fmt.Sprintf("%s:%s", a.Type, a.ID)
}

// Link is an optional reference attached to a message (e.g. a PR or log).
type Link struct {
	Type string `json:"type"` // "task", "pr", "log"
	URL  string `json:"url"`
}

// Message is the dispatcher's message envelope.
type Message struct {
	ID   string      `json:"id"` // UUIDv7, time-ordered
	TS   int64       `json:"ts"` // Unix milliseconds
	From Address     `json:"from"`
	To   Address     `json:"to"`
	Type MessageType `json:"type"`

	TaskID  string `json:"task_id,omitempty"`
	Summary string `json:"summary"`
	Links   []Link `json:"links,omitempty"`
}

// NewMessage creates a message with a generated id and current timestamp.
func NewMessage(from, to Address, msgType MessageType, summary string) *Message {
	return &Message{
		ID:      uuid.Must(uuid.NewV7()).String(),
		TS:      time.Now().UnixMilli(),
		From:    from,
		To:      to,
		Type:    msgType,
		Summary: summary,
	}
}

// Validate checks that the message is well-formed.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}
	if m.From.Type == "" {
		return fmt.Errorf("message 'from' address is required")
	}
	if m.To.Type == "" {
		return fmt.Errorf("message 'to' address is required")
	}
	if m.Type == "" {
		return fmt.Errorf("message type is required")
	}
	if m.Summary == "" {
		return fmt.Errorf("message summary is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m *Message) MarshalJSON() ([]byte, error) {
	type Alias Message
	return json.Marshal((*Alias)(m))
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	type Alias Message
	return json.Unmarshal(data, (*Alias)(m))
}
