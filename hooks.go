package voxagent

import (
	"context"
	"time"
)

// TurnEvent is emitted after each processed user turn.
type TurnEvent struct {
	SessionID string
	AgentType string
	Mode      string
	Stage     Stage
	Action    ActionType
	Duration  time.Duration
}

// GatewayErrorEvent is emitted when a gateway call fails and the engine
// degrades to the scripted path.
type GatewayErrorEvent struct {
	SessionID string
	AgentType string
	Err       error
}

// ModeSwitchEvent is emitted on a successful mode transition. Explicit marks
// user-requested switches, as opposed to schema-driven advances.
type ModeSwitchEvent struct {
	SessionID string
	AgentType string
	From      string
	To        string
	Explicit  bool
}

// FinalizeEvent is emitted when a session is frozen.
type FinalizeEvent struct {
	SessionID string
	AgentType string
	Record    *FinalRecord
}

// Hooks are optional observability taps. Nil fields are skipped.
type Hooks struct {
	OnTurn         func(ctx context.Context, e *TurnEvent)
	OnGatewayError func(ctx context.Context, e *GatewayErrorEvent)
	OnModeSwitch   func(ctx context.Context, e *ModeSwitchEvent)
	OnFinalize     func(ctx context.Context, e *FinalizeEvent)
}

func (h Hooks) turn(ctx context.Context, e *TurnEvent) {
	if h.OnTurn != nil {
		h.OnTurn(ctx, e)
	}
}

func (h Hooks) gatewayError(ctx context.Context, e *GatewayErrorEvent) {
	if h.OnGatewayError != nil {
		h.OnGatewayError(ctx, e)
	}
}

func (h Hooks) modeSwitch(ctx context.Context, e *ModeSwitchEvent) {
	if h.OnModeSwitch != nil {
		h.OnModeSwitch(ctx, e)
	}
}

func (h Hooks) finalize(ctx context.Context, e *FinalizeEvent) {
	if h.OnFinalize != nil {
		h.OnFinalize(ctx, e)
	}
}
