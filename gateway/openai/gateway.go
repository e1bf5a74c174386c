// Package openai implements the language-model gateway over an
// OpenAI-compatible chat endpoint using eino's tool-calling interface. Each
// turn is a single forced tool call that yields both the spoken reply and
// the slot extractions, which keeps the model output machine-checkable.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/itzneel05/voxagent"
)

const (
	respondToolName        = "respond"
	respondToolDescription = "Reply to the user and report any slot values their last utterance provided. Always call this tool exactly once."
)

type slotCapture struct {
	Slot     string `json:"slot" jsonschema:"required,description=Name of the slot the value belongs to"`
	Value    any    `json:"value" jsonschema:"description=The captured value in the user's words"`
	Inferred bool   `json:"inferred" jsonschema:"description=True when the value was deduced rather than stated outright"`
	Expand   string `json:"expand" jsonschema:"description=Catalog entry to expand into its components instead of adding the literal value"`
	Servings int    `json:"servings" jsonschema:"description=Multiplier for an expanded entry, defaults to 1"`
}

type respondInput struct {
	Message string        `json:"message" jsonschema:"required,description=Natural conversational reply to speak to the user"`
	Slots   []slotCapture `json:"slots" jsonschema:"description=Slot values captured from the user's last utterance"`
}

// Config holds the chat endpoint settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Persona is prepended to the system prompt, e.g. the agent's character
	// and tone instructions. Optional.
	Persona string
}

// Gateway calls an OpenAI-compatible model with a forced respond tool.
type Gateway struct {
	chatModel model.ToolCallingChatModel
	toolInfo  *schema.ToolInfo
	persona   string
}

// New builds the gateway, inferring the tool schema from the respond input
// struct.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return NewWithModel(ctx, cm, cfg.Persona)
}

// NewWithModel wraps an existing eino chat model, which lets tests and other
// providers reuse the prompt and decode logic.
func NewWithModel(ctx context.Context, cm model.ToolCallingChatModel, persona string) (*Gateway, error) {
	toolInfo, err := utils.GoStruct2ToolInfo[respondInput](respondToolName, respondToolDescription)
	if err != nil {
		return nil, fmt.Errorf("build tool info: %w", err)
	}
	return &Gateway{chatModel: cm, toolInfo: toolInfo, persona: persona}, nil
}

// Converse runs one forced tool call. Transport, deadline and malformed
// response failures are wrapped in ErrGatewayUnavailable so the engine can
// fall back to scripted prompts.
func (g *Gateway) Converse(ctx context.Context, req *voxagent.ConverseRequest) (*voxagent.ConverseResult, error) {
	messages := g.buildMessages(req)
	resp, err := g.chatModel.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{g.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, g.toolInfo.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", voxagent.ErrGatewayUnavailable, err)
	}
	if len(resp.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: no tool call in model response", voxagent.ErrGatewayUnavailable)
	}
	var input respondInput
	if err := sonic.UnmarshalString(resp.ToolCalls[0].Function.Arguments, &input); err != nil {
		return nil, fmt.Errorf("%w: parse tool arguments: %v", voxagent.ErrGatewayUnavailable, err)
	}
	result := &voxagent.ConverseResult{Utterance: input.Message}
	for _, captured := range input.Slots {
		origin := voxagent.OriginExplicit
		if captured.Inferred {
			origin = voxagent.OriginInferred
		}
		result.Extraction.Candidates = append(result.Extraction.Candidates, voxagent.Candidate{
			Slot:     captured.Slot,
			Value:    captured.Value,
			Origin:   origin,
			Expand:   captured.Expand,
			Servings: captured.Servings,
		})
	}
	return result, nil
}

func (g *Gateway) buildMessages(req *voxagent.ConverseRequest) []*schema.Message {
	messages := []*schema.Message{schema.SystemMessage(g.systemPrompt(req.Hint))}
	for _, turn := range req.History {
		switch turn.Speaker {
		case voxagent.SpeakerUser:
			messages = append(messages, schema.UserMessage(turn.Utterance))
		case voxagent.SpeakerAgent:
			messages = append(messages, schema.AssistantMessage(turn.Utterance, nil))
		}
	}
	// The history already ends with the current user turn; append it only
	// when the caller supplied no history.
	if len(req.History) == 0 && req.Input != "" {
		messages = append(messages, schema.UserMessage(req.Input))
	}
	return messages
}

func (g *Gateway) systemPrompt(hint voxagent.SchemaHint) string {
	var sb strings.Builder
	if g.persona != "" {
		sb.WriteString(g.persona)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "You are the %s agent, currently in the %q mode (stage: %s).\n", hint.AgentType, hint.Mode, hint.Stage)
	sb.WriteString("Talk to the user naturally and report every slot value their last utterance provides via the respond tool.\n")
	sb.WriteString("Mark a value inferred when you deduced it instead of hearing it outright. Never invent values the user did not give.\n\n")
	sb.WriteString(formatSlotsSection(hint.Slots))
	sb.WriteString(formatMissingSection(hint.Missing))
	sb.WriteString(formatContextSection(hint.Context))
	if hint.Stage == voxagent.StageConfirming && hint.Summary != "" {
		fmt.Fprintf(&sb, "The user is confirming this summary: %s\n", hint.Summary)
	}
	return sb.String()
}

func formatSlotsSection(slots []voxagent.SlotHint) string {
	if len(slots) == 0 {
		return ""
	}
	result := "Slots for this mode:\n"
	for _, slot := range slots {
		result += fmt.Sprintf("  - %s (%s", slot.Name, slot.Type)
		if slot.Required {
			result += ", required"
		}
		if slot.Filled {
			result += ", filled"
		}
		result += ")"
		if len(slot.Enum) > 0 {
			result += fmt.Sprintf(" one of: %s", strings.Join(slot.Enum, ", "))
		}
		if slot.Description != "" {
			result += fmt.Sprintf(": %s", slot.Description)
		}
		result += "\n"
	}
	return result
}

func formatMissingSection(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("Still missing: %s\n", strings.Join(missing, ", "))
}

func formatContextSection(ctx map[string]string) string {
	if len(ctx) == 0 {
		return ""
	}
	result := "Additional context:\n"
	for key, val := range ctx {
		result += fmt.Sprintf("  - %s: %s\n", key, val)
	}
	return result
}
