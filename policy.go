package voxagent

import (
	"fmt"
	"strings"
)

// Policy chooses the next system action from session state and schema alone.
// It is deterministic: agent behavior is reproducible independent of model
// nondeterminism, and every action carries a scripted prompt for the
// degraded path.
type Policy struct {
	schema *AgentSchema
}

// NewPolicy builds a dialogue policy over the given schema.
func NewPolicy(schema *AgentSchema) *Policy {
	return &Policy{schema: schema}
}

// Next decides the upcoming system action. Priority: clarify pending
// rejections, ask the first unfilled required slot in declaration order,
// advance through a matching branch or the declared next mode, confirm, and
// only then finalize.
func (p *Policy) Next(s *SessionState) NextAction {
	if s.Stage == StageFinalized || s.Stage == StageAborted {
		return NextAction{Type: ActionFinalize, Prompt: "This session is complete."}
	}
	if len(s.PendingClarify) > 0 {
		return NextAction{Type: ActionClarify, Prompt: p.clarifyPrompt(s)}
	}
	mode, ok := p.schema.Mode(s.Mode)
	if !ok {
		return NextAction{Type: ActionFinalize, Prompt: "This session is complete."}
	}
	for i := range mode.Slots {
		def := &mode.Slots[i]
		if def.Required && !s.Filled(def.Name) {
			return NextAction{Type: ActionAsk, Slot: def.Name, Prompt: def.AskPrompt()}
		}
	}
	if target, set, matched := p.branch(mode, s); matched {
		return NextAction{Type: ActionSwitchMode, TargetMode: target, Set: set}
	}
	if mode.Next != "" {
		return NextAction{Type: ActionSwitchMode, TargetMode: mode.Next}
	}
	if mode.Confirm && s.Stage != StageConfirming {
		return NextAction{Type: ActionConfirm, Prompt: p.confirmPrompt(s)}
	}
	if mode.Confirm && s.Stage == StageConfirming {
		// Waiting on the user's affirmation; repeat the summary.
		return NextAction{Type: ActionConfirm, Prompt: p.confirmPrompt(s)}
	}
	return NextAction{Type: ActionFinalize, Prompt: "All set. Thank you!"}
}

func (p *Policy) branch(mode *Mode, s *SessionState) (string, map[string]any, bool) {
	for _, b := range mode.Branches {
		if b.Slot == "" {
			return b.To, b.Set, true
		}
		v, ok := s.Slot(b.Slot)
		if ok && equalValues(v.Value, b.Equals) {
			return b.To, b.Set, true
		}
	}
	return "", nil, false
}

func (p *Policy) clarifyPrompt(s *SessionState) string {
	ve := s.PendingClarify[0]
	if def, ok := p.schema.SlotDef(s.Mode, ve.Slot); ok {
		return fmt.Sprintf("Sorry, %s. %s", ve.Reason, def.AskPrompt())
	}
	return fmt.Sprintf("Sorry, %s. Could you say that again?", ve.Reason)
}

func (p *Policy) confirmPrompt(s *SessionState) string {
	return fmt.Sprintf("Let me confirm: %s. Is that right?", p.Summary(s))
}

// Summary renders the collected slots of the current mode in declaration
// order, with list totals when item prices are known.
func (p *Policy) Summary(s *SessionState) string {
	mode, ok := p.schema.Mode(s.Mode)
	if !ok {
		return ""
	}
	var parts []string
	for i := range mode.Slots {
		def := &mode.Slots[i]
		v, filled := s.Slot(def.Name)
		if !filled {
			continue
		}
		label := strings.ReplaceAll(def.Name, "_", " ")
		if def.Type == SlotList {
			items, _ := v.Value.([]any)
			parts = append(parts, fmt.Sprintf("%s: %s", label, formatItems(items)))
			if total, priced := itemsTotal(items); priced {
				parts = append(parts, fmt.Sprintf("total: %.2f", total))
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", label, v.Value))
	}
	if len(parts) == 0 {
		return "nothing collected yet"
	}
	return strings.Join(parts, ", ")
}

func formatItems(items []any) string {
	if len(items) == 0 {
		return "none"
	}
	var parts []string
	for _, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["item"].(string)
		qty, _ := toFloat(obj["quantity"])
		parts = append(parts, fmt.Sprintf("%s x%.0f", name, qty))
	}
	return strings.Join(parts, ", ")
}

func itemsTotal(items []any) (float64, bool) {
	total := 0.0
	priced := false
	for _, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		price, ok := toFloat(obj["price"])
		if !ok {
			continue
		}
		qty, _ := toFloat(obj["quantity"])
		if qty == 0 {
			qty = 1
		}
		total += price * qty
		priced = true
	}
	return total, priced
}

func equalValues(a, b any) bool {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.EqualFold(strings.TrimSpace(sa), strings.TrimSpace(sb))
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return a == b
}
