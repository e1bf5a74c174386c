package voxagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyAsksInDeclarationOrder(t *testing.T) {
	schema := testSchema(t)
	policy := NewPolicy(schema)
	s := NewSession(schema)

	action := policy.Next(s)
	assert.Equal(t, ActionAsk, action.Type)
	assert.Equal(t, "name", action.Slot)

	require.NoError(t, s.SetSlot("name", SlotValue{Value: "Priya", Origin: OriginExplicit}))
	action = policy.Next(s)
	assert.Equal(t, ActionAsk, action.Type)
	assert.Equal(t, "party_size", action.Slot)

	// Optional slots are never asked.
	require.NoError(t, s.SetSlot("party_size", SlotValue{Value: 4.0, Origin: OriginExplicit}))
	action = policy.Next(s)
	assert.Equal(t, ActionAsk, action.Type)
	assert.Equal(t, "date", action.Slot)
}

func TestPolicyClarifyTakesPriority(t *testing.T) {
	schema := testSchema(t)
	policy := NewPolicy(schema)
	s := NewSession(schema)
	s.PendingClarify = []ValidationError{{Slot: "party_size", Reason: "11 is above the maximum of 10"}}

	action := policy.Next(s)
	assert.Equal(t, ActionClarify, action.Type)
	assert.Contains(t, action.Prompt, "11 is above the maximum of 10")
}

func TestPolicyConfirmsOnceComplete(t *testing.T) {
	schema := testSchema(t)
	policy := NewPolicy(schema)
	s := NewSession(schema)
	require.NoError(t, s.SetSlot("name", SlotValue{Value: "Priya", Origin: OriginExplicit}))
	require.NoError(t, s.SetSlot("party_size", SlotValue{Value: 4.0, Origin: OriginExplicit}))
	require.NoError(t, s.SetSlot("date", SlotValue{Value: "2026-09-01", Origin: OriginExplicit}))

	action := policy.Next(s)
	assert.Equal(t, ActionConfirm, action.Type)
	assert.Contains(t, action.Prompt, "Priya")

	// While the user deliberates, the policy keeps confirming instead of
	// re-asking or finalizing on its own.
	s.Stage = StageConfirming
	action = policy.Next(s)
	assert.Equal(t, ActionConfirm, action.Type)
}

func TestPolicyBranchSelection(t *testing.T) {
	schema, err := Define("triage", "collect",
		Mode{
			Name: "collect",
			Slots: []SlotDef{
				{Name: "severity", Type: SlotEnum, Required: true, Enum: []string{"low", "high"}},
			},
			Branches: []Branch{
				{Slot: "severity", Equals: "high", To: "escalate"},
				{To: "close", Set: map[string]any{"outcome": "self_service"}},
			},
		},
		Mode{Name: "escalate", Terminal: true},
		Mode{Name: "close", Terminal: true, Slots: []SlotDef{
			{Name: "outcome", Type: SlotString},
		}},
	)
	require.NoError(t, err)
	policy := NewPolicy(schema)

	s := NewSession(schema)
	require.NoError(t, s.SetSlot("severity", SlotValue{Value: "high", Origin: OriginExplicit}))
	action := policy.Next(s)
	assert.Equal(t, ActionSwitchMode, action.Type)
	assert.Equal(t, "escalate", action.TargetMode)

	s = NewSession(schema)
	require.NoError(t, s.SetSlot("severity", SlotValue{Value: "low", Origin: OriginExplicit}))
	action = policy.Next(s)
	assert.Equal(t, ActionSwitchMode, action.Type)
	assert.Equal(t, "close", action.TargetMode)
	assert.Equal(t, "self_service", action.Set["outcome"])
}

func TestPolicyFinalizesTerminalModeWithoutConfirm(t *testing.T) {
	schema, err := Define("oneshot", "done",
		Mode{Name: "done", Terminal: true},
	)
	require.NoError(t, err)
	policy := NewPolicy(schema)
	s := NewSession(schema)

	action := policy.Next(s)
	assert.Equal(t, ActionFinalize, action.Type)
}

func TestPolicySummaryWithListTotals(t *testing.T) {
	schema, err := Define("grocery", "shop", Mode{
		Name:    "shop",
		Confirm: true,
		Slots: []SlotDef{
			{Name: "cart", Type: SlotList, Required: true},
			{Name: "customer_name", Type: SlotString, Required: true},
		},
	})
	require.NoError(t, err)
	policy := NewPolicy(schema)
	s := NewSession(schema)
	require.NoError(t, s.SetSlot("cart", SlotValue{
		Value: []any{
			map[string]any{"item": "Milk", "quantity": 2.0, "price": 60.0},
			map[string]any{"item": "Sugar", "quantity": 1.0, "price": 45.0},
		},
		Origin: OriginExplicit,
	}))
	require.NoError(t, s.SetSlot("customer_name", SlotValue{Value: "Rohan", Origin: OriginExplicit}))

	summary := policy.Summary(s)
	assert.Contains(t, summary, "Milk x2")
	assert.Contains(t, summary, "Sugar x1")
	assert.Contains(t, summary, "total: 165.00")
	assert.Contains(t, summary, "customer name: Rohan")
}
