package voxagent

import (
	"time"
)

// Stage is the lifecycle stage of a session.
type Stage string

const (
	StageCollecting Stage = "collecting"
	StageConfirming Stage = "confirming"
	StageFinalized  Stage = "finalized"
	StageAborted    Stage = "aborted"
)

// Origin records how a slot value entered the session. Explicit values come
// from a direct user statement (or deterministic engine logic) and are never
// overwritten by inferred ones.
type Origin string

const (
	OriginExplicit Origin = "explicit"
	OriginInferred Origin = "inferred"
)

// SlotValue is a collected value together with its origin.
type SlotValue struct {
	Value  any    `json:"value"`
	Origin Origin `json:"origin"`
}

// Speaker identifies the side of a conversation turn.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Turn is one utterance in the session history.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Utterance string    `json:"utterance"`
	At        time.Time `json:"at"`
}

// Candidate is one slot update proposed by the gateway for a turn. A candidate
// with Expand set names a catalog entry whose components are appended to the
// target list slot instead of the literal value.
type Candidate struct {
	Slot     string `json:"slot"`
	Value    any    `json:"value,omitempty"`
	Origin   Origin `json:"origin"`
	Expand   string `json:"expand,omitempty"`
	Servings int    `json:"servings,omitempty"`
}

// Extraction is the set of candidate slot updates for one turn. Extractions
// are untrusted until they pass the merger.
type Extraction struct {
	Candidates []Candidate `json:"candidates"`
}

// Empty reports whether the extraction proposes nothing.
func (e Extraction) Empty() bool {
	return len(e.Candidates) == 0
}

// ActionType enumerates the system actions the dialogue policy can choose.
type ActionType string

const (
	ActionAsk        ActionType = "ask"
	ActionConfirm    ActionType = "confirm"
	ActionClarify    ActionType = "clarify"
	ActionSwitchMode ActionType = "switch_mode"
	ActionFinalize   ActionType = "finalize"
)

// NextAction is the policy's decision for the upcoming system turn. Prompt is
// the scripted wording used when no model utterance is available.
type NextAction struct {
	Type       ActionType
	Slot       string
	TargetMode string
	Set        map[string]any
	Prompt     string
}

// Reply is the engine's output for one user turn.
type Reply struct {
	Message string            `json:"message"`
	Action  ActionType        `json:"action"`
	Stage   Stage             `json:"stage"`
	Mode    string            `json:"mode"`
	Voice   string            `json:"voice,omitempty"`
	Record  *FinalRecord      `json:"record,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Completed reports whether the session behind this reply has ended.
func (r *Reply) Completed() bool {
	return r.Stage == StageFinalized || r.Stage == StageAborted
}
