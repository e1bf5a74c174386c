// Package agents ships the built-in personas. Each persona is pure data: an
// agent schema plus, where relevant, a catalog. The engine control flow is
// identical for all of them.
package agents

import (
	"fmt"
	"strings"

	"github.com/itzneel05/voxagent"
)

func must(schema *voxagent.AgentSchema, err error) *voxagent.AgentSchema {
	if err != nil {
		panic(fmt.Sprintf("agents: invalid built-in schema: %v", err))
	}
	return schema
}

// Barista takes coffee orders: drink, size, milk and a name for the cup.
func Barista() *voxagent.AgentSchema {
	return must(voxagent.Define("barista", "order",
		voxagent.Mode{
			Name:     "order",
			Voice:    "en-US-molly",
			Greeting: "Welcome to Cozy Cafe! What can I get started for you today?",
			Confirm:  true,
			Terminal: true,
			Slots: []voxagent.SlotDef{
				{Name: "name", Type: voxagent.SlotString, Required: true,
					Prompt: "Can I get a name for the order?"},
				{Name: "drink", Type: voxagent.SlotEnum, Required: true,
					Enum:   []string{"espresso", "latte", "cappuccino", "americano", "cold brew", "mocha"},
					Prompt: "What drink can I craft for you?"},
				{Name: "size", Type: voxagent.SlotEnum, Required: true,
					Enum:   []string{"small", "medium", "large"},
					Prompt: "What size would you like: small, medium, or large?"},
				{Name: "milk", Type: voxagent.SlotEnum, Required: true,
					Enum:   []string{"whole", "oat", "almond", "soy", "none"},
					Prompt: "Any milk preference: whole, oat, almond, soy, or none?"},
				{Name: "extras", Type: voxagent.SlotString,
					Description: "Extra shots or flavor syrups, free form"},
			},
		},
	))
}

// Wellness runs a daily check-in: mood, energy, objectives for the day.
// Pair it with WithHintContext to reference the previous check-in.
func Wellness() *voxagent.AgentSchema {
	one, ten := 1.0, 10.0
	return must(voxagent.Define("wellness", "checkin",
		voxagent.Mode{
			Name:     "checkin",
			Voice:    "en-US-molly",
			Greeting: "Hi, good to hear from you! How are you feeling today?",
			Confirm:  true,
			Terminal: true,
			Slots: []voxagent.SlotDef{
				{Name: "mood", Type: voxagent.SlotString, Required: true,
					Prompt: "How would you describe your mood today?"},
				{Name: "energy", Type: voxagent.SlotNumber, Required: true, Min: &one, Max: &ten,
					Prompt:      "On a scale of 1 to 10, how is your energy?",
					Description: "Energy level from 1 to 10"},
				{Name: "objectives", Type: voxagent.SlotString, Required: true,
					Prompt:      "What are one to three practical objectives for today?",
					Description: "One to three objectives for the day"},
			},
		},
	))
}

// Tutor is an active recall coach with three switchable study modes, each
// with its own voice. The user picks a topic once; it is shared across
// modes.
func Tutor() *voxagent.AgentSchema {
	topic := voxagent.SlotDef{
		Name: "topic", Type: voxagent.SlotEnum, Required: true,
		Enum:   []string{"variables", "loops", "functions"},
		Prompt: "Which topic shall we work on: variables, loops, or functions?",
	}
	return must(voxagent.Define("tutor", "learn",
		voxagent.Mode{
			Name:     "learn",
			Voice:    "en-US-matthew",
			Greeting: "Hi! I'm your recall coach. Say 'switch to quiz' or 'switch to teach back' anytime.",
			Aliases: []string{"learn", "learning"},
			Confirm: true,
			Slots: []voxagent.SlotDef{
				topic,
				{Name: "takeaway", Type: voxagent.SlotString, Required: true,
					Prompt: "In one sentence, what did you take away from this topic?"},
			},
		},
		voxagent.Mode{
			Name:    "quiz",
			Voice:   "en-US-alicia",
			Aliases: []string{"quiz", "quiz me"},
			Confirm: true,
			Slots: []voxagent.SlotDef{
				topic,
				{Name: "quiz_answer", Type: voxagent.SlotString, Required: true,
					Prompt: "Here is your question. What is your answer?"},
			},
		},
		voxagent.Mode{
			Name:    "teach_back",
			Voice:   "en-US-ken",
			Aliases: []string{"teach back", "teach-back", "teachback"},
			Confirm: true,
			Slots: []voxagent.SlotDef{
				topic,
				{Name: "explanation", Type: voxagent.SlotString, Required: true,
					Prompt: "Explain the topic back to me in your own words."},
			},
		},
	))
}

// SDR qualifies inbound leads: contact details plus use case, team size and
// timeline. Pair it with the FAQ catalog so product questions get answered
// mid-qualification.
func SDR() *voxagent.AgentSchema {
	return must(voxagent.Define("sdr", "qualify",
		voxagent.Mode{
			Name:     "qualify",
			Voice:    "en-US-matthew",
			Greeting: "Thanks for your interest! I'd love to learn a bit about you and your team.",
			Confirm:  true,
			Terminal: true,
			Slots: []voxagent.SlotDef{
				{Name: "name", Type: voxagent.SlotString, Required: true,
					Prompt: "Could I get your name?"},
				{Name: "company", Type: voxagent.SlotString, Required: true,
					Prompt: "What company are you with?"},
				{Name: "email", Type: voxagent.SlotString, Required: true,
					Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
					Prompt:  "What's the best email to reach you at?"},
				{Name: "role", Type: voxagent.SlotString,
					Description: "The lead's role or title"},
				{Name: "use_case", Type: voxagent.SlotString, Required: true,
					Prompt: "What would you mainly use the product for?"},
				{Name: "team_size", Type: voxagent.SlotString,
					Description: "Rough size of the team"},
				{Name: "timeline", Type: voxagent.SlotString,
					Description: "When they plan to get started"},
			},
		},
	))
}

// FraudCase is the open case a fraud verification call is about.
type FraudCase struct {
	CustomerName     string
	MaskedCard       string
	Amount           float64
	Merchant         string
	Location         string
	Timestamp        string
	SecurityQuestion string
	SecurityAnswer   string
}

// TransactionSummary is the non-sensitive description read to a verified
// caller: merchant, location, time, amount and the card's last four digits.
func (c FraudCase) TransactionSummary() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, c.MaskedCard)
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	return fmt.Sprintf("Suspicious transaction: %s at %s around %s for $%.2f on card ending %s.",
		c.Merchant, c.Location, c.Timestamp, c.Amount, last4)
}

// Fraud verifies a caller against the case's security question and then asks
// about the flagged transaction. A wrong answer routes straight to a
// verification_failed resolution; the transaction is never described to an
// unverified caller. The resolve mode finalizes without confirmation, the
// outcome is already decided.
func Fraud(c FraudCase) *voxagent.AgentSchema {
	answer := strings.ToLower(strings.TrimSpace(c.SecurityAnswer))
	return must(voxagent.Define("fraud", "verify_identity",
		voxagent.Mode{
			Name:     "verify_identity",
			Voice:    "en-IN-Isha",
			Greeting: fmt.Sprintf("Hello %s, this is the card security team about a flagged transaction. To verify you: %s", c.CustomerName, c.SecurityQuestion),
			Slots: []voxagent.SlotDef{
				{Name: "identity_answer", Type: voxagent.SlotString, Required: true,
					Prompt: c.SecurityQuestion},
			},
			Branches: []voxagent.Branch{
				{Slot: "identity_answer", Equals: answer, To: "review_transaction"},
				{To: "resolve", Set: map[string]any{"resolution": "verification_failed"}},
			},
		},
		voxagent.Mode{
			Name:     "review_transaction",
			Voice:    "en-IN-Isha",
			Greeting: c.TransactionSummary() + " Did you make this transaction, yes or no?",
			Slots: []voxagent.SlotDef{
				{Name: "transaction_response", Type: voxagent.SlotEnum, Required: true,
					Enum:   []string{"yes", "no"},
					Prompt: "Did you make this transaction, yes or no?"},
			},
			Branches: []voxagent.Branch{
				{Slot: "transaction_response", Equals: "yes", To: "resolve", Set: map[string]any{"resolution": "confirmed_safe"}},
				{To: "resolve", Set: map[string]any{"resolution": "confirmed_fraud"}},
			},
		},
		voxagent.Mode{
			Name:     "resolve",
			Voice:    "en-IN-Isha",
			Terminal: true,
			Slots: []voxagent.SlotDef{
				{Name: "resolution", Type: voxagent.SlotEnum,
					Enum: []string{"verification_failed", "confirmed_safe", "confirmed_fraud"}},
			},
		},
	))
}

// Grocery takes grocery orders into a cart. Items are validated against the
// grocery catalog and recipes expand into their ingredients.
func Grocery() *voxagent.AgentSchema {
	return must(voxagent.Define("grocery", "shop",
		voxagent.Mode{
			Name:     "shop",
			Voice:    "en-IN-Isha",
			Greeting: "Hi! I can help you order groceries, snacks, and simple prepared foods. What would you like?",
			Confirm:  true,
			Terminal: true,
			Slots: []voxagent.SlotDef{
				{Name: "cart", Type: voxagent.SlotList, Required: true,
					Prompt:      "What would you like to add to your cart?",
					Description: "The items to order, with quantities"},
				{Name: "customer_name", Type: voxagent.SlotString, Required: true,
					Prompt: "Can I get your name for the order?"},
				{Name: "customer_address", Type: voxagent.SlotString, Required: true,
					Prompt: "And the delivery address?"},
			},
		},
	))
}
