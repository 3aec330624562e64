// Package flow implements the declarative flow model: states, transitions
// and gating conditions that govern task queue movement (spec §3.1-§3.3,
// §4.1). Flows are loaded from YAML under <project>/.octopoid/flows/.
package flow

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConditionType is one of the three condition kinds a transition can gate
// on.
type ConditionType string

const (
	ConditionScript ConditionType = "script"
	ConditionAgent  ConditionType = "agent"
	ConditionManual ConditionType = "manual"
)

// Condition is a gate that must pass before a transition's state change
// takes effect (spec §3.3).
type Condition struct {
	Name   string        `yaml:"name"`
	Type   ConditionType `yaml:"type"`
	Script string        `yaml:"script,omitempty"`
	Agent  string        `yaml:"agent,omitempty"`
	OnFail string        `yaml:"on_fail,omitempty"`
	Skip   bool          `yaml:"skip,omitempty"`
}

// Transition describes movement from one queue to another, the agent
// role that handles work in from_state, the steps to run on the approve
// path, and the ordered gates that must pass first (spec §3.2).
type Transition struct {
	FromState  string      `yaml:"-"`
	ToState    string      `yaml:"-"`
	Agent      string      `yaml:"agent,omitempty"`
	Runs       []string    `yaml:"runs,omitempty"`
	Conditions []Condition `yaml:"conditions,omitempty"`
}

// transitionYAML is the on-disk shape of one transitions map entry,
// before the "<from> -> <to>" key is split into FromState/ToState.
type transitionYAML struct {
	Agent      string      `yaml:"agent,omitempty"`
	Runs       []string    `yaml:"runs,omitempty"`
	Conditions []Condition `yaml:"conditions,omitempty"`
}

// childFlowYAML is the on-disk shape of the optional child_flow block.
// Transitions is decoded as a raw node so declaration order survives —
// plain map[string]T decoding would randomize it, breaking the "ordered
// sequence of Transition" requirement (spec §3.1).
type childFlowYAML struct {
	Transitions yaml.Node `yaml:"transitions"`
}

// flowYAML is the on-disk shape of a flow file.
type flowYAML struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Transitions yaml.Node      `yaml:"transitions"`
	ChildFlow   *childFlowYAML `yaml:"child_flow,omitempty"`
}

// Flow is a conditional state machine governing one category of task
// (spec §3.1). ChildFlow, when present, governs project children.
type Flow struct {
	Name        string
	Description string
	Transitions []Transition
	ChildFlow   *Flow
}

func splitTransitionKey(key string) (from, to string, err error) {
	parts := strings.SplitN(key, "->", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid transition key %q (must be %q)", key, "state1 -> state2")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// transitionsFromNode walks a YAML mapping node's key/value pairs in
// document order (yaml.Node.Content interleaves key, value, key, value...)
// so the resulting slice preserves declaration order.
func transitionsFromNode(node yaml.Node) ([]Transition, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("transitions must be a mapping")
	}

	transitions := make([]Transition, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		from, to, err := splitTransitionKey(keyNode.Value)
		if err != nil {
			return nil, err
		}

		var data transitionYAML
		if err := valNode.Decode(&data); err != nil {
			return nil, fmt.Errorf("transition %q: %w", keyNode.Value, err)
		}

		transitions = append(transitions, Transition{
			FromState:  from,
			ToState:    to,
			Agent:      data.Agent,
			Runs:       data.Runs,
			Conditions: data.Conditions,
		})
	}
	return transitions, nil
}

func fromYAML(name string, data flowYAML) (*Flow, error) {
	transitions, err := transitionsFromNode(data.Transitions)
	if err != nil {
		return nil, fmt.Errorf("flow %q: %w", name, err)
	}

	f := &Flow{
		Name:        data.Name,
		Description: data.Description,
		Transitions: transitions,
	}

	if data.ChildFlow != nil {
		childTransitions, err := transitionsFromNode(data.ChildFlow.Transitions)
		if err != nil {
			return nil, fmt.Errorf("flow %q child_flow: %w", name, err)
		}
		f.ChildFlow = &Flow{
			Name:        name + "_child",
			Description: "Child flow for " + name,
			Transitions: childTransitions,
		}
	}

	return f, nil
}

// AllStates returns every state appearing in any transition's from_state,
// to_state, or any condition's on_fail.
func (f *Flow) AllStates() map[string]bool {
	states := make(map[string]bool)
	for _, t := range f.Transitions {
		states[t.FromState] = true
		states[t.ToState] = true
		for _, c := range t.Conditions {
			if c.OnFail != "" {
				states[c.OnFail] = true
			}
		}
	}
	return states
}

// TransitionsFrom returns all transitions originating at the given state,
// in declaration order.
func (f *Flow) TransitionsFrom(state string) []Transition {
	var out []Transition
	for _, t := range f.Transitions {
		if t.FromState == state {
			out = append(out, t)
		}
	}
	return out
}
