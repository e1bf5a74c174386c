package voxagent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/itzneel05/voxagent/catalog"
)

// MergeResult reports what a merge changed and what it refused.
type MergeResult struct {
	Applied  []string
	Rejected []ValidationError
}

// Merger reconciles gateway extractions into session state. The gateway is
// never trusted: every candidate passes schema validation, explicit values
// win over inferred ones, and derived-item expansions apply all-or-nothing.
type Merger struct {
	schema *AgentSchema
	cat    catalog.Source
}

// NewMerger builds a merger; cat may be nil for agents without a catalog.
func NewMerger(schema *AgentSchema, cat catalog.Source) *Merger {
	return &Merger{schema: schema, cat: cat}
}

type stagedValue struct {
	name   string
	value  any
	origin Origin
}

// Merge applies an extraction to the session. Accepted values are committed
// as a single RFC6902 patch against a copy of the slot document, so a failed
// application mutates nothing. Rejections come back as ValidationErrors for
// the policy to turn into a clarify.
func (m *Merger) Merge(s *SessionState, ext Extraction) (MergeResult, error) {
	var res MergeResult
	if s.Frozen() {
		return res, ErrSessionFinalized
	}
	staged := make([]stagedValue, 0, len(ext.Candidates))
	index := make(map[string]int)

	for _, c := range ext.Candidates {
		def, ok := m.schema.SlotDef(s.Mode, c.Slot)
		if !ok {
			res.Rejected = append(res.Rejected, ValidationError{Slot: c.Slot, Reason: "unknown slot"})
			continue
		}
		origin := c.Origin
		if origin == "" {
			origin = OriginInferred
		}
		if def.Type != SlotList {
			// Explicit wins: an inferred candidate never displaces an
			// explicit value already collected (or staged this turn).
			if existing, has := s.Slot(def.Name); has && existing.Origin == OriginExplicit && origin == OriginInferred {
				continue
			}
			if i, dup := index[def.Name]; dup && staged[i].origin == OriginExplicit && origin == OriginInferred {
				continue
			}
		}

		value, newOrigin, vErr := m.stageCandidate(s, def, c, origin, staged, index)
		if vErr != nil {
			var ve *ValidationError
			if errors.As(vErr, &ve) {
				res.Rejected = append(res.Rejected, *ve)
			} else {
				res.Rejected = append(res.Rejected, ValidationError{Slot: def.Name, Reason: vErr.Error()})
			}
			continue
		}
		if i, dup := index[def.Name]; dup {
			staged[i] = stagedValue{name: def.Name, value: value, origin: newOrigin}
		} else {
			index[def.Name] = len(staged)
			staged = append(staged, stagedValue{name: def.Name, value: value, origin: newOrigin})
		}
	}

	if len(staged) == 0 {
		return res, nil
	}
	doc, err := m.applyPatch(s, staged)
	if err != nil {
		return res, err
	}
	for _, sv := range staged {
		if err := s.SetSlot(sv.name, SlotValue{Value: doc[sv.name], Origin: sv.origin}); err != nil {
			return res, err
		}
		res.Applied = append(res.Applied, sv.name)
	}
	return res, nil
}

// stageCandidate validates one candidate and produces the full value the
// slot will hold. List slots accumulate: the candidate's items (or expansion
// components) are merged into the current list, bumping quantities of items
// already present.
func (m *Merger) stageCandidate(s *SessionState, def *SlotDef, c Candidate, origin Origin, staged []stagedValue, index map[string]int) (any, Origin, error) {
	if def.Type != SlotList {
		if c.Expand != "" {
			return nil, origin, &ValidationError{Slot: def.Name, Reason: "slot is not a collection"}
		}
		norm, err := def.Normalize(c.Value)
		if err != nil {
			return nil, origin, err
		}
		return norm, origin, nil
	}

	// Start from what this merge already staged for the slot, else from the
	// session, so two list candidates in one extraction accumulate.
	var items []any
	mergedOrigin := origin
	if i, dup := index[def.Name]; dup {
		items = cloneItems(staged[i].value)
		if staged[i].origin == OriginExplicit {
			mergedOrigin = OriginExplicit
		}
	} else if existing, has := s.Slot(def.Name); has {
		items = cloneItems(existing.Value)
		if existing.Origin == OriginExplicit {
			mergedOrigin = OriginExplicit
		}
	}

	if c.Expand != "" {
		if m.cat == nil {
			return nil, origin, &ValidationError{Slot: def.Name, Reason: "no catalog available for expansion"}
		}
		components, err := m.cat.Expand(c.Expand)
		if err != nil {
			return nil, origin, &ValidationError{Slot: def.Name, Reason: err.Error()}
		}
		servings := c.Servings
		if servings < 1 {
			servings = 1
		}
		// All-or-nothing: components come from one catalog entry, and the
		// whole list is validated below before anything commits.
		for _, e := range components {
			items = mergeItem(items, e.Name, float64(servings), e.Price)
		}
	} else {
		incoming, err := candidateItems(def.Name, c.Value)
		if err != nil {
			return nil, origin, err
		}
		for _, item := range incoming {
			name, _ := item["item"].(string)
			qty, ok := toFloat(item["quantity"])
			if !ok {
				qty = 1
			}
			price := 0.0
			if m.cat != nil {
				entry, found := m.cat.Lookup(name)
				if !found {
					return nil, origin, &ValidationError{Slot: def.Name, Reason: fmt.Sprintf("%q is not in the catalog", name)}
				}
				if len(entry.Related) > 0 {
					// A derived entry named literally still expands.
					components, err := m.cat.Expand(entry.ID)
					if err != nil {
						return nil, origin, &ValidationError{Slot: def.Name, Reason: err.Error()}
					}
					for _, e := range components {
						items = mergeItem(items, e.Name, qty, e.Price)
					}
					continue
				}
				name = entry.Name
				price = entry.Price
			}
			items = mergeItem(items, name, qty, price)
		}
	}

	norm, err := def.Normalize(items)
	if err != nil {
		return nil, origin, err
	}
	return norm, mergedOrigin, nil
}

func candidateItems(slot string, value any) ([]map[string]any, error) {
	switch v := value.(type) {
	case map[string]any:
		item, err := normalizeListItem(slot, v)
		if err != nil {
			return nil, err
		}
		return []map[string]any{item}, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, raw := range v {
			item, err := normalizeListItem(slot, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return nil, &ValidationError{Slot: slot, Reason: "list item has no name"}
		}
		return []map[string]any{{"item": name, "quantity": float64(1)}}, nil
	default:
		return nil, &ValidationError{Slot: slot, Reason: "expected an item or list of items"}
	}
}

func mergeItem(items []any, name string, qty, price float64) []any {
	for _, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		existing, _ := obj["item"].(string)
		if strings.EqualFold(existing, name) {
			current, _ := toFloat(obj["quantity"])
			obj["quantity"] = current + qty
			return items
		}
	}
	item := map[string]any{"item": name, "quantity": qty}
	if price > 0 {
		item["price"] = price
	}
	return append(items, item)
}

func cloneItems(v any) []any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(items))
	for _, raw := range items {
		if obj, ok := raw.(map[string]any); ok {
			cp := make(map[string]any, len(obj))
			for k, val := range obj {
				cp[k] = val
			}
			out = append(out, cp)
			continue
		}
		out = append(out, raw)
	}
	return out
}

type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// applyPatch commits the staged values as one RFC6902 patch against a copy
// of the slot document and returns the patched document. Any failure leaves
// the session untouched.
func (m *Merger) applyPatch(s *SessionState, staged []stagedValue) (map[string]any, error) {
	doc := make(map[string]any, len(s.Slots))
	for name, v := range s.Slots {
		doc[name] = v.Value
	}
	ops := make([]patchOperation, 0, len(staged))
	for _, sv := range staged {
		op := "add"
		if _, exists := doc[sv.name]; exists {
			op = "replace"
		}
		ops = append(ops, patchOperation{Op: op, Path: "/" + escapePointer(sv.name), Value: sv.value})
	}
	docJSON, err := sonic.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal slot document: %w", err)
	}
	opsJSON, err := sonic.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("marshal slot patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(opsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode slot patch: %w", err)
	}
	patched, err := patch.Apply(docJSON)
	if err != nil {
		return nil, fmt.Errorf("apply slot patch: %w", err)
	}
	var out map[string]any
	if err := sonic.Unmarshal(patched, &out); err != nil {
		return nil, fmt.Errorf("decode slot document: %w", err)
	}
	return out, nil
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}
