package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input   string
		want    Address
		wantErr bool
	}{
		{"human", Address{Type: "human"}, false},
		{"agent", Address{Type: "agent"}, false},
		{"agent:ghost_wolf", Address{Type: "agent", ID: "ghost_wolf"}, false},
		{"human:alice", Address{Type: "human", ID: "alice"}, false},
		{"", Address{}, true},
		{"unknown", Address{}, true},
		{"agent:", Address{}, true},
		{"foo:bar", Address{}, true},
		{"agent:ghost:extra", Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAddress(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAddressString(t *testing.T) {
	tests := []struct {
		addr Address
		want string
	}{
		{Address{Type: "human"}, "human"},
		{Address{Type: "agent"}, "agent"},
		{Address{Type: "human", ID: "alice"}, "human:alice"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.addr.String(); got != tt.want {
				t.Errorf("Address.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewMessage(t *testing.T) {
	from := Address{Type: "human", ID: "alice"}
	to := Address{Type: "agent"}

	msg := NewMessage(from, to, TypeActionCommand, "run the linter")

	if msg.ID == "" {
		t.Error("Message ID should not be empty")
	}
	if msg.TS == 0 {
		t.Error("Message timestamp should not be zero")
	}
	if msg.From != from {
		t.Errorf("Message.From = %v, want %v", msg.From, from)
	}
	if msg.To != to {
		t.Errorf("Message.To = %v, want %v", msg.To, to)
	}
	if msg.Type != TypeActionCommand {
		t.Errorf("Message.Type = %v, want %v", msg.Type, TypeActionCommand)
	}
}

func TestMessageValidate(t *testing.T) {
	validMsg := Message{
		ID:      "msg-123",
		From:    Address{Type: "human"},
		To:      Address{Type: "agent"},
		Type:    TypeActionCommand,
		Summary: "do the thing",
	}

	tests := []struct {
		name    string
		modify  func(*Message)
		wantErr bool
	}{
		{"valid message", func(m *Message) {}, false},
		{"missing ID", func(m *Message) { m.ID = "" }, true},
		{"missing from", func(m *Message) { m.From = Address{} }, true},
		{"missing to", func(m *Message) { m.To = Address{} }, true},
		{"missing type", func(m *Message) { m.Type = "" }, true},
		{"missing summary", func(m *Message) { m.Summary = "" }, true},
		{"with task ID", func(m *Message) { m.TaskID = "ts-123" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validMsg
			tt.modify(&msg)
			err := msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageJSON(t *testing.T) {
	original := &Message{
		ID:      "msg-123",
		TS:      1234567890000,
		From:    Address{Type: "agent"},
		To:      Address{Type: "human"},
		Type:    TypeWorkerResult,
		TaskID:  "ts-abc123",
		Summary: "completed successfully",
		Links: []Link{
			{Type: "pr", URL: "https://github.com/org/repo/pull/123"},
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if decoded.ID != original.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, original.ID)
	}
	if decoded.Type != original.Type {
		t.Errorf("Type = %v, want %v", decoded.Type, original.Type)
	}
	if decoded.TaskID != original.TaskID {
		t.Errorf("TaskID = %q, want %q", decoded.TaskID, original.TaskID)
	}
	if len(decoded.Links) != len(original.Links) {
		t.Errorf("Links length = %d, want %d", len(decoded.Links), len(original.Links))
	}
}

func TestMessageTypesDistinct(t *testing.T) {
	types := []MessageType{TypeActionCommand, TypeWorkerResult}
	seen := make(map[MessageType]bool)
	for _, mt := range types {
		if seen[mt] {
			t.Errorf("duplicate message type: %s", mt)
		}
		seen[mt] = true
	}
}
