package voxagent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SlotType constrains the value shape of a slot.
type SlotType string

const (
	SlotString SlotType = "string"
	SlotEnum   SlotType = "enum"
	SlotNumber SlotType = "number"
	SlotDate   SlotType = "date"
	// SlotList holds an ordered collection of items, e.g. a cart. Each item
	// is an object with at least "item" and a positive "quantity".
	SlotList SlotType = "list"
)

const dateLayout = "2006-01-02"

// SlotDef declares one piece of information an agent must collect.
type SlotDef struct {
	Name        string   `yaml:"name"`
	Type        SlotType `yaml:"type"`
	Required    bool     `yaml:"required"`
	Enum        []string `yaml:"enum,omitempty"`
	Min         *float64 `yaml:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty"`
	Pattern     string   `yaml:"pattern,omitempty"`
	Default     any      `yaml:"default,omitempty"`
	Prompt      string   `yaml:"prompt,omitempty"`
	Description string   `yaml:"description,omitempty"`

	// Check is an optional extra predicate run after the built-in checks.
	// It cannot be declared in YAML.
	Check func(value any) error `yaml:"-"`

	pattern *regexp.Regexp
}

// AskPrompt is the scripted question for this slot, used verbatim when the
// gateway is unavailable.
func (d *SlotDef) AskPrompt() string {
	if d.Prompt != "" {
		return d.Prompt
	}
	name := strings.ReplaceAll(d.Name, "_", " ")
	if d.Type == SlotEnum && len(d.Enum) > 0 {
		return fmt.Sprintf("What %s would you like? Options: %s.", name, strings.Join(d.Enum, ", "))
	}
	return fmt.Sprintf("Could you tell me your %s?", name)
}

// Normalize validates value against the definition and returns its canonical
// form: strings trimmed, enums lowercased to the declared member, numbers as
// float64, dates as YYYY-MM-DD, lists as []any of item objects.
func (d *SlotDef) Normalize(value any) (any, error) {
	norm, err := d.normalizeTyped(value)
	if err != nil {
		return nil, err
	}
	if d.Check != nil {
		if cErr := d.Check(norm); cErr != nil {
			return nil, &ValidationError{Slot: d.Name, Reason: cErr.Error()}
		}
	}
	return norm, nil
}

func (d *SlotDef) normalizeTyped(value any) (any, error) {
	switch d.Type {
	case SlotString:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Slot: d.Name, Reason: "expected a text value"}
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, &ValidationError{Slot: d.Name, Reason: "value is empty"}
		}
		if d.pattern != nil && !d.pattern.MatchString(s) {
			return nil, &ValidationError{Slot: d.Name, Reason: fmt.Sprintf("%q does not look like a valid %s", s, strings.ReplaceAll(d.Name, "_", " "))}
		}
		return s, nil
	case SlotEnum:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Slot: d.Name, Reason: "expected one of the listed options"}
		}
		s = strings.ToLower(strings.TrimSpace(s))
		for _, member := range d.Enum {
			if strings.ToLower(member) == s {
				return member, nil
			}
		}
		return nil, &ValidationError{Slot: d.Name, Reason: fmt.Sprintf("%q is not one of: %s", s, strings.Join(d.Enum, ", "))}
	case SlotNumber:
		n, ok := toFloat(value)
		if !ok {
			return nil, &ValidationError{Slot: d.Name, Reason: "expected a number"}
		}
		if d.Min != nil && n < *d.Min {
			return nil, &ValidationError{Slot: d.Name, Reason: fmt.Sprintf("%v is below the minimum of %v", n, *d.Min)}
		}
		if d.Max != nil && n > *d.Max {
			return nil, &ValidationError{Slot: d.Name, Reason: fmt.Sprintf("%v is above the maximum of %v", n, *d.Max)}
		}
		return n, nil
	case SlotDate:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Slot: d.Name, Reason: "expected a date"}
		}
		t, err := time.Parse(dateLayout, strings.TrimSpace(s))
		if err != nil {
			return nil, &ValidationError{Slot: d.Name, Reason: fmt.Sprintf("%q is not a date in %s form", s, dateLayout)}
		}
		return t.Format(dateLayout), nil
	case SlotList:
		items, ok := value.([]any)
		if !ok {
			return nil, &ValidationError{Slot: d.Name, Reason: "expected a list of items"}
		}
		out := make([]any, 0, len(items))
		for _, raw := range items {
			item, err := normalizeListItem(d.Name, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, &ValidationError{Slot: d.Name, Reason: fmt.Sprintf("unknown slot type %q", d.Type)}
	}
}

func normalizeListItem(slot string, raw any) (map[string]any, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Slot: slot, Reason: "list items must be objects"}
	}
	name, _ := obj["item"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Slot: slot, Reason: "list item has no name"}
	}
	qty, ok := toFloat(obj["quantity"])
	if !ok {
		qty = 1
	}
	if qty < 1 {
		return nil, &ValidationError{Slot: slot, Reason: fmt.Sprintf("quantity for %q must be at least 1", name)}
	}
	item := map[string]any{"item": name, "quantity": qty}
	if price, ok := toFloat(obj["price"]); ok {
		item["price"] = price
	}
	if notes, ok := obj["notes"].(string); ok && notes != "" {
		item["notes"] = notes
	}
	return item, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Branch routes a completed mode to its successor. The first branch whose
// slot equals the expected value wins; a branch with an empty Slot always
// matches. Set values are written as explicit slots on transition.
type Branch struct {
	Slot   string         `yaml:"slot,omitempty"`
	Equals any            `yaml:"equals,omitempty"`
	To     string         `yaml:"to"`
	Set    map[string]any `yaml:"set,omitempty"`
}

// Mode is one conversational phase with its own slot schema.
type Mode struct {
	Name     string    `yaml:"name"`
	Slots    []SlotDef `yaml:"slots,omitempty"`
	Voice    string    `yaml:"voice,omitempty"`
	Greeting string    `yaml:"greeting,omitempty"`
	// Aliases are utterances that switch the session into this mode.
	Aliases []string `yaml:"aliases,omitempty"`
	// Branches and Next fire once the mode's required slots are complete.
	Branches []Branch `yaml:"branches,omitempty"`
	Next     string   `yaml:"next,omitempty"`
	// Confirm requires an explicit user affirmation before finalizing.
	// Terminal modes with Confirm false finalize as soon as they complete.
	Confirm  bool `yaml:"confirm"`
	Terminal bool `yaml:"terminal,omitempty"`
}

// Slot returns the definition of a slot declared in this mode.
func (m *Mode) Slot(name string) (*SlotDef, bool) {
	for i := range m.Slots {
		if m.Slots[i].Name == name {
			return &m.Slots[i], true
		}
	}
	return nil, false
}

// RequiredSlots returns the required slot names in declaration order.
func (m *Mode) RequiredSlots() []string {
	var names []string
	for i := range m.Slots {
		if m.Slots[i].Required {
			names = append(names, m.Slots[i].Name)
		}
	}
	return names
}

// AgentSchema is the full declarative description of one agent persona:
// its modes, their slots, and the transitions between them. Personas are
// data; the engine control flow is shared.
type AgentSchema struct {
	AgentType   string `yaml:"agent_type"`
	InitialMode string `yaml:"initial_mode"`
	Modes       []Mode `yaml:"modes"`

	modes map[string]*Mode
}

// Define builds an immutable agent schema, enforcing unique mode names,
// unique slot names within a mode, consistent types for slots shared across
// modes, and resolvable transitions.
func Define(agentType, initialMode string, modes ...Mode) (*AgentSchema, error) {
	s := &AgentSchema{
		AgentType:   agentType,
		InitialMode: initialMode,
		Modes:       modes,
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AgentSchema) compile() error {
	if s.AgentType == "" {
		return fmt.Errorf("schema: agent type is required")
	}
	if len(s.Modes) == 0 {
		return fmt.Errorf("schema %s: at least one mode is required", s.AgentType)
	}
	s.modes = make(map[string]*Mode, len(s.Modes))
	slotTypes := make(map[string]SlotType)
	for i := range s.Modes {
		m := &s.Modes[i]
		if m.Name == "" {
			return fmt.Errorf("schema %s: mode %d has no name", s.AgentType, i)
		}
		if _, dup := s.modes[m.Name]; dup {
			return fmt.Errorf("schema %s: duplicate mode %q", s.AgentType, m.Name)
		}
		s.modes[m.Name] = m
		seen := make(map[string]bool, len(m.Slots))
		for j := range m.Slots {
			def := &m.Slots[j]
			if def.Name == "" {
				return fmt.Errorf("schema %s: mode %q slot %d has no name", s.AgentType, m.Name, j)
			}
			if seen[def.Name] {
				return fmt.Errorf("schema %s: mode %q declares slot %q twice", s.AgentType, m.Name, def.Name)
			}
			seen[def.Name] = true
			if def.Type == "" {
				def.Type = SlotString
			}
			if prev, shared := slotTypes[def.Name]; shared && prev != def.Type {
				return fmt.Errorf("schema %s: slot %q is %s in one mode and %s in another", s.AgentType, def.Name, prev, def.Type)
			}
			slotTypes[def.Name] = def.Type
			if def.Pattern != "" {
				re, err := regexp.Compile(def.Pattern)
				if err != nil {
					return fmt.Errorf("schema %s: slot %q pattern: %w", s.AgentType, def.Name, err)
				}
				def.pattern = re
			}
		}
	}
	if s.InitialMode == "" {
		s.InitialMode = s.Modes[0].Name
	}
	if _, ok := s.modes[s.InitialMode]; !ok {
		return fmt.Errorf("schema %s: initial mode %q is not declared", s.AgentType, s.InitialMode)
	}
	for i := range s.Modes {
		m := &s.Modes[i]
		if m.Next != "" {
			if _, ok := s.modes[m.Next]; !ok {
				return fmt.Errorf("schema %s: mode %q advances to unknown mode %q", s.AgentType, m.Name, m.Next)
			}
		}
		for _, b := range m.Branches {
			if _, ok := s.modes[b.To]; !ok {
				return fmt.Errorf("schema %s: mode %q branches to unknown mode %q", s.AgentType, m.Name, b.To)
			}
		}
	}
	return nil
}

// Mode looks up a declared mode by name.
func (s *AgentSchema) Mode(name string) (*Mode, bool) {
	m, ok := s.modes[name]
	return m, ok
}

// SlotDef finds a slot definition, preferring the given mode and falling back
// to any mode that declares it (shared slots).
func (s *AgentSchema) SlotDef(mode, slot string) (*SlotDef, bool) {
	if m, ok := s.modes[mode]; ok {
		if def, found := m.Slot(slot); found {
			return def, true
		}
	}
	for i := range s.Modes {
		if def, found := s.Modes[i].Slot(slot); found {
			return def, true
		}
	}
	return nil, false
}

// Validate checks a raw value for the named slot in the given mode.
func (s *AgentSchema) Validate(mode, slot string, value any) (any, error) {
	def, ok := s.SlotDef(mode, slot)
	if !ok {
		return nil, &ValidationError{Slot: slot, Reason: "unknown slot"}
	}
	return def.Normalize(value)
}

// SwitchTarget resolves a user utterance to a mode via the declared aliases.
// Matching is whole-phrase and case-insensitive; "switch to <alias>" and
// "<alias> mode" also match.
func (s *AgentSchema) SwitchTarget(utterance string) (string, bool) {
	phrase := normalizePhrase(utterance)
	if phrase == "" {
		return "", false
	}
	for i := range s.Modes {
		m := &s.Modes[i]
		for _, alias := range m.Aliases {
			a := normalizePhrase(alias)
			if phrase == a || phrase == "switch to "+a || phrase == a+" mode" || phrase == "go to "+a {
				return m.Name, true
			}
		}
	}
	return "", false
}

func normalizePhrase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".!?,; ")
	return strings.Join(strings.Fields(s), " ")
}
