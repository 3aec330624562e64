package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrFlowNotFound is returned by LoadFlow when no file exists for the
// requested name.
type ErrFlowNotFound struct {
	Name string
	Dir  string
}

func (e *ErrFlowNotFound) Error() string {
	return fmt.Sprintf("flow %q not found in %s", e.Name, e.Dir)
}

// LoadFlow loads a flow by name from the per-project flow directory
// (<project>/.octopoid/flows/<name>.yaml).
func LoadFlow(flowsDir, name string) (*Flow, error) {
	path := filepath.Join(flowsDir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrFlowNotFound{Name: name, Dir: flowsDir}
		}
		return nil, fmt.Errorf("reading flow %q: %w", name, err)
	}

	var raw flowYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing flow %q: %w", name, err)
	}

	return fromYAML(name, raw)
}

// ListFlows returns the names (without .yaml) of every flow file in dir.
func ListFlows(flowsDir string) ([]string, error) {
	entries, err := os.ReadDir(flowsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".yaml")])
	}
	sort.Strings(names)
	return names, nil
}

// Validate reports invalid condition types, missing required fields per
// type, unknown on_fail targets, and unreachable states. Reachability
// starts from the conventional entry state "incoming"; the terminal
// states {done, failed, rejected} are exempt when only reached via
// on_fail (spec §4.1).
func (f *Flow) Validate(knownAgents map[string]bool) []error {
	var errs []error
	validStates := f.AllStates()

	// AllStates includes every on_fail target, so on_fail is checked
	// against the transition endpoints plus the terminal states instead.
	transitionStates := make(map[string]bool)
	for _, t := range f.Transitions {
		transitionStates[t.FromState] = true
		transitionStates[t.ToState] = true
	}

	for _, t := range f.Transitions {
		key := t.FromState + " -> " + t.ToState

		if t.Agent != "" && knownAgents != nil && !knownAgents[t.Agent] {
			errs = append(errs, fmt.Errorf("flow %q transition %q: agent %q not found in agents.yaml", f.Name, key, t.Agent))
		}

		for _, c := range t.Conditions {
			errs = append(errs, validateCondition(f.Name, key, c)...)
			if c.OnFail != "" && !transitionStates[c.OnFail] && !terminalStates[c.OnFail] {
				errs = append(errs, fmt.Errorf("flow %q transition %q condition %q: on_fail state %q is not a valid state", f.Name, key, c.Name, c.OnFail))
			}
		}
	}

	errs = append(errs, f.checkReachability(validStates)...)

	if f.ChildFlow != nil {
		for _, err := range f.ChildFlow.Validate(knownAgents) {
			errs = append(errs, fmt.Errorf("child flow: %w", err))
		}
	}

	return errs
}

var terminalStates = map[string]bool{"done": true, "failed": true, "rejected": true}

func (f *Flow) checkReachability(validStates map[string]bool) []error {
	reachable := map[string]bool{"incoming": true}
	for changed := true; changed; {
		changed = false
		for _, t := range f.Transitions {
			if reachable[t.FromState] && !reachable[t.ToState] {
				reachable[t.ToState] = true
				changed = true
			}
		}
	}

	var unreachable []string
	for state := range validStates {
		if !reachable[state] && !terminalStates[state] {
			unreachable = append(unreachable, state)
		}
	}
	if len(unreachable) == 0 {
		return nil
	}
	sort.Strings(unreachable)
	return []error{fmt.Errorf("flow %q has unreachable states: %v", f.Name, unreachable)}
}

func validateCondition(flowName, transitionKey string, c Condition) []error {
	var errs []error
	switch c.Type {
	case ConditionScript:
		if c.Script == "" {
			errs = append(errs, fmt.Errorf("flow %q transition %q condition %q: script conditions must specify 'script'", flowName, transitionKey, c.Name))
		}
	case ConditionAgent:
		if c.Agent == "" {
			errs = append(errs, fmt.Errorf("flow %q transition %q condition %q: agent conditions must specify 'agent'", flowName, transitionKey, c.Name))
		}
	case ConditionManual:
		// no additional fields required
	default:
		errs = append(errs, fmt.Errorf("flow %q transition %q condition %q: invalid condition type %q (must be script, agent, or manual)", flowName, transitionKey, c.Name, c.Type))
	}
	return errs
}
