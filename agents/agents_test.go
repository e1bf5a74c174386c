package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itzneel05/voxagent"
)

func TestBuiltinSchemasCompile(t *testing.T) {
	for _, schema := range []*voxagent.AgentSchema{
		Barista(), Wellness(), Tutor(), SDR(), Grocery(),
		Fraud(FraudCase{SecurityQuestion: "Question?", SecurityAnswer: "answer"}),
	} {
		_, ok := schema.Mode(schema.InitialMode)
		assert.True(t, ok, "agent %s", schema.AgentType)
	}
}

func TestGroceryCatalogRecipesResolve(t *testing.T) {
	cat := GroceryCatalog()
	for _, recipe := range []string{"masala chai", "dal", "paneer curry", "biryani", "roti", "poha"} {
		components, err := cat.Expand(recipe)
		require.NoError(t, err, "recipe %s", recipe)
		assert.NotEmpty(t, components)
		for _, c := range components {
			assert.Greater(t, c.Price, 0.0, "component %s of %s", c.ID, recipe)
		}
	}
}

func TestSDRFAQAnswers(t *testing.T) {
	faq := SDRFAQ()
	e, ok := faq.Answer("how much does it cost per month")
	require.True(t, ok)
	assert.Equal(t, "pricing", e.ID)
}

func TestTutorModesSwitchByAlias(t *testing.T) {
	schema := Tutor()
	target, ok := schema.SwitchTarget("switch to quiz")
	require.True(t, ok)
	assert.Equal(t, "quiz", target)

	target, ok = schema.SwitchTarget("teach back")
	require.True(t, ok)
	assert.Equal(t, "teach_back", target)

	// Each study mode speaks with its own voice.
	voices := map[string]bool{}
	for _, name := range []string{"learn", "quiz", "teach_back"} {
		mode, ok := schema.Mode(name)
		require.True(t, ok)
		voices[mode.Voice] = true
	}
	assert.Len(t, voices, 3)
}

func TestFraudRoutesOnSecurityAnswer(t *testing.T) {
	fraudCase := FraudCase{
		CustomerName:     "Rohan Sharma",
		MaskedCard:       "XXXX-XXXX-XXXX-4821",
		Amount:           4999,
		Merchant:         "QuickMart Online",
		Location:         "Mumbai",
		Timestamp:        "2025-11-06 02:14",
		SecurityQuestion: "What is the name of your first pet?",
		SecurityAnswer:   "Biscuit",
	}
	schema := Fraud(fraudCase)
	engine, err := voxagent.New(schema, voxagent.ScriptedGateway{})
	require.NoError(t, err)

	// Wrong answer: the call resolves immediately, no transaction details.
	ctx := voxagent.WithSessionKey(context.Background(), "wrong")
	reply, err := engine.Turn(ctx, "rex")
	require.NoError(t, err)
	require.True(t, reply.Completed())
	assert.Equal(t, "verification_failed", reply.Record.SlotString("resolution"))
	assert.NotContains(t, reply.Message, "QuickMart")

	// Correct answer, case-insensitive: the transaction is described with
	// only the last four card digits.
	ctx = voxagent.WithSessionKey(context.Background(), "right")
	reply, err = engine.Turn(ctx, "biscuit")
	require.NoError(t, err)
	assert.Equal(t, "review_transaction", reply.Mode)
	assert.Contains(t, reply.Message, "QuickMart Online")
	assert.Contains(t, reply.Message, "4821")
	assert.NotContains(t, reply.Message, "XXXX-XXXX")

	reply, err = engine.Turn(ctx, "yes")
	require.NoError(t, err)
	require.True(t, reply.Completed())
	assert.Equal(t, "confirmed_safe", reply.Record.SlotString("resolution"))
}

func TestTransactionSummaryMasksCard(t *testing.T) {
	c := FraudCase{
		MaskedCard: "4111-2222-3333-4444",
		Amount:     49.99,
		Merchant:   "QuickMart",
		Location:   "Pune",
		Timestamp:  "2025-11-06 02:14",
	}
	summary := c.TransactionSummary()
	assert.Contains(t, summary, "ending 4444")
	assert.Contains(t, summary, "$49.99")
	assert.NotContains(t, summary, "4111")
}

func TestTutorContentCoversTopicEnum(t *testing.T) {
	content := TutorContent()
	tutor := Tutor()
	mode, ok := tutor.Mode("quiz")
	require.True(t, ok)
	def, ok := mode.Slot("topic")
	require.True(t, ok)
	for _, topic := range def.Enum {
		concept, found := content[topic]
		require.True(t, found, "no content for topic %q", topic)
		assert.NotEmpty(t, concept.Summary)
		assert.NotEmpty(t, concept.Question)
		assert.Len(t, concept.Options, 3)
	}
}

func TestSDRAnswersFAQMidQualification(t *testing.T) {
	engine, err := voxagent.New(SDR(), voxagent.ScriptedGateway{},
		voxagent.WithCatalog(SDRFAQ()))
	require.NoError(t, err)

	ctx := voxagent.WithSessionKey(context.Background(), "lead")
	reply, err := engine.Turn(ctx, "Priya")
	require.NoError(t, err)
	require.Equal(t, voxagent.ActionAsk, reply.Action)

	// A product question does not overwrite the asked slot; it is answered
	// and the pending question is restated.
	reply, err = engine.Turn(ctx, "wait, how much does it cost per month?")
	require.NoError(t, err)
	assert.Equal(t, voxagent.ActionAsk, reply.Action)
	assert.Contains(t, reply.Message, "per seat")

	reply, err = engine.Turn(ctx, "Acme Robotics")
	require.NoError(t, err)
	assert.Equal(t, voxagent.ActionAsk, reply.Action)
}
