package voxagent

import (
	"context"
)

// Command is a conversational control intent recognized without the model,
// so the degraded path can still confirm, cancel and switch modes.
type Command string

const (
	CommandNone   Command = "none"
	CommandAffirm Command = "affirm"
	CommandDeny   Command = "deny"
	CommandCancel Command = "cancel"
	CommandSwitch Command = "switch"
)

// ParsedCommand is the outcome of command parsing; Target is set for switch
// commands.
type ParsedCommand struct {
	Command Command
	Target  string
}

// CommandParser recognizes control intents in a user utterance.
type CommandParser interface {
	Parse(ctx context.Context, schema *AgentSchema, utterance string) ParsedCommand
}

// StaticCommandParser matches whole normalized phrases against keyword lists
// plus the schema's mode aliases. Deterministic and model-free.
type StaticCommandParser struct {
	AffirmKeywords []string
	DenyKeywords   []string
	CancelKeywords []string
}

// NewCommandParser returns a parser with the default keyword sets.
func NewCommandParser() *StaticCommandParser {
	return &StaticCommandParser{
		AffirmKeywords: []string{
			"yes", "yeah", "yep", "correct", "confirm", "sure",
			"done", "that's all", "thats all", "i'm done", "im done",
			"that's it", "thats it", "good to go", "place the order",
		},
		DenyKeywords: []string{
			"no", "nope", "wrong", "not quite", "change it",
		},
		CancelKeywords: []string{
			"cancel", "quit", "exit", "stop", "never mind", "nevermind", "goodbye",
		},
	}
}

func (p *StaticCommandParser) Parse(ctx context.Context, schema *AgentSchema, utterance string) ParsedCommand {
	phrase := normalizePhrase(utterance)
	if phrase == "" {
		return ParsedCommand{Command: CommandNone}
	}
	if schema != nil {
		if target, ok := schema.SwitchTarget(utterance); ok {
			return ParsedCommand{Command: CommandSwitch, Target: target}
		}
	}
	for _, kw := range p.CancelKeywords {
		if phrase == kw {
			return ParsedCommand{Command: CommandCancel}
		}
	}
	for _, kw := range p.AffirmKeywords {
		if phrase == kw {
			return ParsedCommand{Command: CommandAffirm}
		}
	}
	for _, kw := range p.DenyKeywords {
		if phrase == kw {
			return ParsedCommand{Command: CommandDeny}
		}
	}
	return ParsedCommand{Command: CommandNone}
}
