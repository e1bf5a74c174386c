package voxagent

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the mutable record of one conversation. Each session is
// owned by a single logical thread of conversation; concurrent sessions are
// independent values with no shared state.
type SessionState struct {
	ID        string               `json:"id"`
	AgentType string               `json:"agent_type"`
	Mode      string               `json:"mode"`
	Stage     Stage                `json:"stage"`
	Slots     map[string]SlotValue `json:"slots"`
	History   []Turn               `json:"history"`
	StartedAt time.Time            `json:"started_at"`
	UpdatedAt time.Time            `json:"updated_at"`

	// PendingClarify holds rejected values from the last merge; the policy
	// turns them into a clarify action on the next decision.
	PendingClarify []ValidationError `json:"pending_clarify,omitempty"`

	// Record is set exactly once, when the session is frozen. PendingRecord
	// is non-nil while a finalized record still awaits persistence.
	Record        *FinalRecord `json:"record,omitempty"`
	PendingRecord *FinalRecord `json:"pending_record,omitempty"`
}

// NewSession creates a session in the schema's initial mode. Slot defaults
// are seeded as inferred values so an explicit user statement replaces them.
func NewSession(schema *AgentSchema) *SessionState {
	now := time.Now()
	s := &SessionState{
		ID:        uuid.NewString(),
		AgentType: schema.AgentType,
		Mode:      schema.InitialMode,
		Stage:     StageCollecting,
		Slots:     make(map[string]SlotValue),
		StartedAt: now,
		UpdatedAt: now,
	}
	for i := range schema.Modes {
		for _, def := range schema.Modes[i].Slots {
			if def.Default == nil {
				continue
			}
			if _, exists := s.Slots[def.Name]; exists {
				continue
			}
			if norm, err := def.Normalize(def.Default); err == nil {
				s.Slots[def.Name] = SlotValue{Value: norm, Origin: OriginInferred}
			}
		}
	}
	return s
}

// Frozen reports whether the session may no longer be mutated.
func (s *SessionState) Frozen() bool {
	return s.Stage == StageFinalized
}

// AppendTurn adds an utterance to the history. History is append-only and
// closed once the session is finalized.
func (s *SessionState) AppendTurn(speaker Speaker, utterance string) error {
	if s.Frozen() {
		return ErrSessionFinalized
	}
	now := time.Now()
	s.History = append(s.History, Turn{Speaker: speaker, Utterance: utterance, At: now})
	s.UpdatedAt = now
	return nil
}

// SetSlot writes a slot value, honoring the finalize guard.
func (s *SessionState) SetSlot(name string, v SlotValue) error {
	if s.Frozen() {
		return ErrSessionFinalized
	}
	if s.Slots == nil {
		s.Slots = make(map[string]SlotValue)
	}
	s.Slots[name] = v
	s.UpdatedAt = time.Now()
	return nil
}

// Slot returns the collected value for a slot, if any.
func (s *SessionState) Slot(name string) (SlotValue, bool) {
	v, ok := s.Slots[name]
	return v, ok
}

// Filled reports whether a slot holds a value.
func (s *SessionState) Filled(name string) bool {
	_, ok := s.Slots[name]
	return ok
}

// SlotString returns the slot value as a string, or "" when absent or not
// textual.
func (s *SessionState) SlotString(name string) string {
	v, ok := s.Slots[name]
	if !ok {
		return ""
	}
	str, _ := v.Value.(string)
	return str
}

// UserTurns counts the user utterances in the history.
func (s *SessionState) UserTurns() int {
	n := 0
	for _, t := range s.History {
		if t.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}

func (s *SessionState) snapshotSlots() map[string]SlotValue {
	out := make(map[string]SlotValue, len(s.Slots))
	for k, v := range s.Slots {
		out[k] = v
	}
	return out
}

func (s *SessionState) snapshotHistory() []Turn {
	out := make([]Turn, len(s.History))
	copy(out, s.History)
	return out
}
