package voxagent

import (
	"context"
)

// SlotHint describes one slot to the gateway: what to collect and how it is
// constrained. The gateway may use it; the merger re-checks everything.
type SlotHint struct {
	Name        string   `json:"name"`
	Type        SlotType `json:"type"`
	Required    bool     `json:"required"`
	Filled      bool     `json:"filled"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description,omitempty"`
}

// SchemaHint is the current-mode context handed to the gateway each turn.
type SchemaHint struct {
	AgentType string            `json:"agent_type"`
	Mode      string            `json:"mode"`
	Stage     Stage             `json:"stage"`
	Slots     []SlotHint        `json:"slots"`
	Missing   []string          `json:"missing,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// ConverseRequest carries the ordered turn history and the schema hint.
type ConverseRequest struct {
	Input   string
	History []Turn
	Hint    SchemaHint
}

// ConverseResult is the gateway's reply for one turn: a natural-language
// utterance plus candidate slot extractions.
type ConverseResult struct {
	Utterance  string
	Extraction Extraction
}

// Gateway is the external language-model collaborator. Implementations must
// wrap transport and deadline failures in ErrGatewayUnavailable so the
// engine can degrade to scripted prompts.
type Gateway interface {
	Converse(ctx context.Context, req *ConverseRequest) (*ConverseResult, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req *ConverseRequest) (*ConverseResult, error)

func (f GatewayFunc) Converse(ctx context.Context, req *ConverseRequest) (*ConverseResult, error) {
	return f(ctx, req)
}

// ScriptedGateway extracts nothing and says nothing, leaving every turn to
// the schema-driven scripted prompts. It is the fully degraded path and the
// deterministic baseline for tests.
type ScriptedGateway struct{}

func (ScriptedGateway) Converse(ctx context.Context, req *ConverseRequest) (*ConverseResult, error) {
	return &ConverseResult{}, nil
}

// BuildHint assembles the schema hint for the session's current mode.
func BuildHint(schema *AgentSchema, policy *Policy, s *SessionState, extra map[string]string) SchemaHint {
	hint := SchemaHint{
		AgentType: schema.AgentType,
		Mode:      s.Mode,
		Stage:     s.Stage,
		Context:   extra,
	}
	mode, ok := schema.Mode(s.Mode)
	if !ok {
		return hint
	}
	for i := range mode.Slots {
		def := &mode.Slots[i]
		filled := s.Filled(def.Name)
		hint.Slots = append(hint.Slots, SlotHint{
			Name:        def.Name,
			Type:        def.Type,
			Required:    def.Required,
			Filled:      filled,
			Enum:        def.Enum,
			Description: def.Description,
		})
		if def.Required && !filled {
			hint.Missing = append(hint.Missing, def.Name)
		}
	}
	if policy != nil {
		hint.Summary = policy.Summary(s)
	}
	return hint
}
