package voxagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueGateway replays canned results, one per turn, then goes quiet.
type queueGateway struct {
	results []*ConverseResult
}

func (g *queueGateway) Converse(ctx context.Context, req *ConverseRequest) (*ConverseResult, error) {
	if len(g.results) == 0 {
		return &ConverseResult{}, nil
	}
	res := g.results[0]
	g.results = g.results[1:]
	return res, nil
}

func fraudSchema(t *testing.T) *AgentSchema {
	t.Helper()
	schema, err := Define("fraud", "verify_identity",
		Mode{
			Name: "verify_identity",
			Slots: []SlotDef{
				{Name: "identity_answer", Type: SlotString, Required: true,
					Prompt: "What is the name of your first pet?"},
			},
			Branches: []Branch{
				{Slot: "identity_answer", Equals: "biscuit", To: "review_transaction"},
				{To: "resolve", Set: map[string]any{"resolution": "verification_failed"}},
			},
		},
		Mode{
			Name:     "review_transaction",
			Greeting: "Suspicious transaction: QuickMart for $49.99. Did you make this transaction, yes or no?",
			Slots: []SlotDef{
				{Name: "transaction_response", Type: SlotEnum, Required: true, Enum: []string{"yes", "no"},
					Prompt: "Did you make this transaction, yes or no?"},
			},
			Branches: []Branch{
				{Slot: "transaction_response", Equals: "yes", To: "resolve", Set: map[string]any{"resolution": "confirmed_safe"}},
				{To: "resolve", Set: map[string]any{"resolution": "confirmed_fraud"}},
			},
		},
		Mode{
			Name:     "resolve",
			Terminal: true,
			Slots: []SlotDef{
				{Name: "resolution", Type: SlotEnum, Enum: []string{"verification_failed", "confirmed_safe", "confirmed_fraud"}},
			},
		},
	)
	require.NoError(t, err)
	return schema
}

func TestEngineScriptedBookingFlow(t *testing.T) {
	schema := testSchema(t)
	store := NewMemoryRecordStore()
	engine, err := New(schema, ScriptedGateway{}, WithRecordStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	// With no model at all, the session still runs off the scripted prompts
	// and captures each asked slot literally.
	reply, err := engine.Turn(ctx, "Priya")
	require.NoError(t, err)
	assert.Equal(t, ActionAsk, reply.Action)
	assert.Equal(t, "party_size", askedSlotName(t, engine, ctx))

	reply, err = engine.Turn(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, ActionAsk, reply.Action)

	reply, err = engine.Turn(ctx, "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, ActionConfirm, reply.Action)
	assert.Equal(t, StageConfirming, reply.Stage)
	assert.Contains(t, reply.Message, "Priya")

	reply, err = engine.Turn(ctx, "yes")
	require.NoError(t, err)
	assert.Equal(t, StageFinalized, reply.Stage)
	assert.True(t, reply.Completed())
	require.NotNil(t, reply.Record)
	assert.Equal(t, "Priya", reply.Record.SlotString("name"))

	require.Len(t, store.Records(), 1)
	rec := store.Records()[0]
	assert.Equal(t, 4.0, rec.Slots["party_size"].Value)
	assert.Equal(t, "2026-09-01", rec.Slots["date"].Value)
}

func askedSlotName(t *testing.T, engine *Engine, ctx context.Context) string {
	t.Helper()
	s, err := engine.sessions.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	def := engine.askedSlot(s)
	if def == nil {
		return ""
	}
	return def.Name
}

func TestEngineClarifiesInvalidValueThenRecovers(t *testing.T) {
	schema := testSchema(t)
	gateway := &queueGateway{results: []*ConverseResult{
		{Extraction: Extraction{Candidates: []Candidate{
			{Slot: "name", Value: "Priya", Origin: OriginExplicit},
			{Slot: "party_size", Value: 40, Origin: OriginExplicit},
		}}},
		{Extraction: Extraction{Candidates: []Candidate{
			{Slot: "party_size", Value: 4, Origin: OriginExplicit},
		}}},
	}}
	engine, err := New(schema, gateway)
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := engine.Turn(ctx, "table for forty for Priya")
	require.NoError(t, err)
	assert.Equal(t, ActionClarify, reply.Action)
	assert.Contains(t, reply.Message, "maximum")

	reply, err = engine.Turn(ctx, "make it four then")
	require.NoError(t, err)
	assert.Equal(t, ActionAsk, reply.Action)

	s, _ := engine.sessions.Load(ctx)
	v, ok := s.Slot("party_size")
	require.True(t, ok)
	assert.Equal(t, 4.0, v.Value)
}

func TestEngineGroceryRecipeOrder(t *testing.T) {
	schema := cartSchema(t)
	store := NewMemoryRecordStore()
	gateway := &queueGateway{results: []*ConverseResult{
		{
			Utterance: "Masala chai ingredients coming up! Who is this order for?",
			Extraction: Extraction{Candidates: []Candidate{
				{Slot: "cart", Expand: "masala chai", Origin: OriginExplicit},
			}},
		},
		{Extraction: Extraction{Candidates: []Candidate{
			{Slot: "customer_name", Value: "Rohan", Origin: OriginExplicit},
		}}},
	}}
	engine, err := New(schema, gateway,
		WithCatalog(cartCatalog()),
		WithRecordStore(store),
	)
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := engine.Turn(ctx, "I want to make masala chai")
	require.NoError(t, err)
	assert.Equal(t, "Masala chai ingredients coming up! Who is this order for?", reply.Message)

	reply, err = engine.Turn(ctx, "it's for Rohan")
	require.NoError(t, err)
	assert.Equal(t, ActionConfirm, reply.Action)
	assert.Contains(t, reply.Message, "total: 315.00")

	reply, err = engine.Turn(ctx, "place the order")
	require.NoError(t, err)
	assert.True(t, reply.Completed())

	require.Len(t, store.Records(), 1)
	items := store.Records()[0].Slots["cart"].Value.([]any)
	assert.Len(t, items, 4)
}

func TestEngineFraudWrongAnswerNeverReachesTransaction(t *testing.T) {
	schema := fraudSchema(t)
	store := NewMemoryRecordStore()
	engine, err := New(schema, ScriptedGateway{}, WithRecordStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := engine.Turn(ctx, "uh, rex?")
	require.NoError(t, err)
	assert.True(t, reply.Completed())
	require.NotNil(t, reply.Record)
	assert.Equal(t, "verification_failed", reply.Record.SlotString("resolution"))

	// The transaction was never described to the unverified caller.
	for _, turn := range reply.Record.History {
		assert.NotContains(t, turn.Utterance, "QuickMart")
	}
}

func TestEngineFraudVerifiedFlow(t *testing.T) {
	schema := fraudSchema(t)
	store := NewMemoryRecordStore()
	engine, err := New(schema, ScriptedGateway{}, WithRecordStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := engine.Turn(ctx, "Biscuit")
	require.NoError(t, err)
	assert.Equal(t, "review_transaction", reply.Mode)
	assert.Contains(t, reply.Message, "QuickMart")

	// "no" is the answer to the asked enum slot, not a deny command.
	reply, err = engine.Turn(ctx, "no")
	require.NoError(t, err)
	assert.True(t, reply.Completed())
	require.NotNil(t, reply.Record)
	assert.Equal(t, "confirmed_fraud", reply.Record.SlotString("resolution"))
	// The identity answer survives the mode switches into the record.
	assert.Equal(t, "Biscuit", reply.Record.SlotString("identity_answer"))
}

func TestEngineExplicitModeSwitch(t *testing.T) {
	schema := testSchema(t)
	engine, err := New(schema, ScriptedGateway{})
	require.NoError(t, err)
	ctx := context.Background()

	reply, err := engine.Turn(ctx, "Priya")
	require.NoError(t, err)

	reply, err = engine.Turn(ctx, "switch to feedback")
	require.NoError(t, err)
	assert.Equal(t, "feedback", reply.Mode)
	// No greeting on the target mode, so the reply moves straight to the
	// next missing slot there.
	assert.Equal(t, ActionAsk, reply.Action)

	// Shared slot kept across the switch.
	s, _ := engine.sessions.Load(ctx)
	assert.Equal(t, "Priya", s.SlotString("name"))
}

func TestEngineTurnAfterFinalizeIsBenign(t *testing.T) {
	schema := fraudSchema(t)
	engine, err := New(schema, ScriptedGateway{})
	require.NoError(t, err)
	ctx := WithSessionKey(context.Background(), "test")

	reply, err := engine.Turn(ctx, "rex")
	require.NoError(t, err)
	assert.True(t, reply.Completed())

	// Input after finalization does not fail and mutates nothing.
	reply, err = engine.Turn(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, StageFinalized, reply.Stage)
}

func TestEngineCancelAbortsWithoutRecord(t *testing.T) {
	schema := testSchema(t)
	store := NewMemoryRecordStore()
	engine, err := New(schema, ScriptedGateway{}, WithRecordStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Turn(ctx, "Priya")
	require.NoError(t, err)
	reply, err := engine.Turn(ctx, "never mind")
	require.NoError(t, err)
	assert.Equal(t, StageAborted, reply.Stage)
	assert.True(t, reply.Completed())
	assert.Empty(t, store.Records())
}

func TestEngineDegradesWhenGatewayFails(t *testing.T) {
	schema := testSchema(t)
	var gatewayErrs int
	gateway := GatewayFunc(func(ctx context.Context, req *ConverseRequest) (*ConverseResult, error) {
		return nil, ErrGatewayUnavailable
	})
	engine, err := New(schema, gateway, WithHooks(Hooks{
		OnGatewayError: func(ctx context.Context, e *GatewayErrorEvent) { gatewayErrs++ },
	}))
	require.NoError(t, err)
	ctx := context.Background()

	// The turn still succeeds: the literal answer fills the asked slot and
	// the scripted prompt asks the next question.
	reply, err := engine.Turn(ctx, "Priya")
	require.NoError(t, err)
	assert.Equal(t, ActionAsk, reply.Action)
	assert.NotEmpty(t, reply.Message)
	assert.Equal(t, 1, gatewayErrs)

	s, _ := engine.sessions.Load(ctx)
	assert.Equal(t, "Priya", s.SlotString("name"))
}

func TestEngineStorageFailureSurfacesAndRetries(t *testing.T) {
	schema := testSchema(t)
	store := &flakyStore{failures: 100}
	engine, err := New(schema, ScriptedGateway{},
		WithRecordStore(store, WithSaveAttempts(2)),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Turn(ctx, "Priya")
	require.NoError(t, err)
	_, err = engine.Turn(ctx, "4")
	require.NoError(t, err)
	_, err = engine.Turn(ctx, "2026-09-01")
	require.NoError(t, err)

	reply, err := engine.Turn(ctx, "yes")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	require.NotNil(t, reply)
	assert.Equal(t, StageFinalized, reply.Stage)
	require.NotNil(t, reply.Record)

	store.failures = 0
	require.NoError(t, engine.RetryPending(ctx))
	s, _ := engine.sessions.Load(ctx)
	assert.Nil(t, s.PendingRecord)
}

func TestEngineDenyDuringConfirmReopensCollection(t *testing.T) {
	schema := testSchema(t)
	engine, err := New(schema, ScriptedGateway{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Turn(ctx, "Priya")
	require.NoError(t, err)
	_, err = engine.Turn(ctx, "4")
	require.NoError(t, err)
	reply, err := engine.Turn(ctx, "2026-09-01")
	require.NoError(t, err)
	require.Equal(t, StageConfirming, reply.Stage)

	reply, err = engine.Turn(ctx, "no")
	require.NoError(t, err)
	assert.Equal(t, StageCollecting, reply.Stage)
	assert.Equal(t, ActionClarify, reply.Action)
}

func TestEngineSessionsAreIndependent(t *testing.T) {
	schema := testSchema(t)
	engine, err := New(schema, ScriptedGateway{})
	require.NoError(t, err)

	ctxA := WithSessionKey(context.Background(), "caller-a")
	ctxB := WithSessionKey(context.Background(), "caller-b")

	_, err = engine.Turn(ctxA, "Priya")
	require.NoError(t, err)
	_, err = engine.Turn(ctxB, "Rohan")
	require.NoError(t, err)

	a, _ := engine.sessions.Load(ctxA)
	b, _ := engine.sessions.Load(ctxB)
	assert.Equal(t, "Priya", a.SlotString("name"))
	assert.Equal(t, "Rohan", b.SlotString("name"))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEngineLeadQualification(t *testing.T) {
	schema, err := Define("sdr", "qualify", Mode{
		Name:    "qualify",
		Confirm: true, Terminal: true,
		Slots: []SlotDef{
			{Name: "name", Type: SlotString, Required: true},
			{Name: "email", Type: SlotString, Required: true, Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`},
		},
	})
	require.NoError(t, err)
	store := NewMemoryRecordStore()
	gateway := &queueGateway{results: []*ConverseResult{
		{Extraction: Extraction{Candidates: []Candidate{
			{Slot: "name", Value: "Sam Carter", Origin: OriginExplicit},
		}}},
		{Extraction: Extraction{Candidates: []Candidate{
			{Slot: "email", Value: "sam@acme.io", Origin: OriginExplicit},
		}}},
	}}
	engine, err := New(schema, gateway, WithRecordStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Turn(ctx, "hi, I'm Sam Carter")
	require.NoError(t, err)
	reply, err := engine.Turn(ctx, "sam@acme.io")
	require.NoError(t, err)
	require.Equal(t, StageConfirming, reply.Stage)

	reply, err = engine.Turn(ctx, "correct")
	require.NoError(t, err)
	require.NotNil(t, reply.Record)

	// Exactly two user turns of content before the confirmation.
	userTurns := 0
	for _, turn := range reply.Record.History {
		if turn.Speaker == SpeakerUser {
			userTurns++
		}
	}
	assert.Equal(t, 3, userTurns)
	assert.Equal(t, "sam@acme.io", reply.Record.SlotString("email"))
}

func TestEngineModeSwitchHookDistinguishesExplicit(t *testing.T) {
	schema := fraudSchema(t)
	var events []*ModeSwitchEvent
	engine, err := New(schema, ScriptedGateway{}, WithHooks(Hooks{
		OnModeSwitch: func(ctx context.Context, e *ModeSwitchEvent) { events = append(events, e) },
	}))
	require.NoError(t, err)

	_, err = engine.Turn(context.Background(), "biscuit")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "verify_identity", events[0].From)
	assert.Equal(t, "review_transaction", events[0].To)
	assert.False(t, events[0].Explicit)
}

func TestEngineUnknownSlotFromGatewayIsClarifiedNotApplied(t *testing.T) {
	schema := testSchema(t)
	gateway := &queueGateway{results: []*ConverseResult{
		{Extraction: Extraction{Candidates: []Candidate{
			{Slot: "favorite_color", Value: "blue", Origin: OriginExplicit},
		}}},
	}}
	engine, err := New(schema, gateway)
	require.NoError(t, err)

	reply, err := engine.Turn(context.Background(), "blue")
	require.NoError(t, err)
	assert.Equal(t, ActionClarify, reply.Action)

	s, _ := engine.sessions.Load(context.Background())
	assert.False(t, s.Filled("favorite_color"))
}

func TestEngineTurnAfterAbortIsBenign(t *testing.T) {
	schema := testSchema(t)
	engine, err := New(schema, ScriptedGateway{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Turn(ctx, "cancel")
	require.NoError(t, err)
	reply, err := engine.Turn(ctx, "hello?")
	require.NoError(t, err)
	assert.Equal(t, StageAborted, reply.Stage)
	assert.True(t, reply.Completed())
}

func TestEngineAffirmRunsPendingTransition(t *testing.T) {
	// A completed mode left unexecuted (e.g. a session restored from the
	// store) must run forward on "that's all", not echo an empty action.
	one, five := 1.0, 5.0
	intake, err := Define("survey", "intake",
		Mode{
			Name: "intake",
			Next: "wrap",
			Slots: []SlotDef{
				{Name: "feedback", Type: SlotString, Required: true},
			},
		},
		Mode{
			Name:     "wrap",
			Terminal: true,
			Slots: []SlotDef{
				{Name: "rating", Type: SlotNumber, Required: true, Min: &one, Max: &five,
					Prompt: "How would you rate us, 1 to 5?"},
			},
		},
	)
	require.NoError(t, err)

	sessions := NewMemorySessionStore()
	records := NewMemoryRecordStore()
	engine, err := New(intake, ScriptedGateway{},
		WithSessionStore(sessions), WithRecordStore(records))
	require.NoError(t, err)

	ctx := WithSessionKey(context.Background(), "restored")
	seed := NewSession(intake)
	require.NoError(t, seed.SetSlot("feedback", SlotValue{Value: "great service", Origin: OriginExplicit}))
	require.NoError(t, sessions.Save(ctx, seed))

	reply, err := engine.Turn(ctx, "that's all")
	require.NoError(t, err)
	assert.Equal(t, ActionAsk, reply.Action)
	assert.Equal(t, "wrap", reply.Mode)
	assert.Contains(t, reply.Message, "rate")

	// The terminal mode completes on affirm too once its slot is filled.
	reply, err = engine.Turn(ctx, "5")
	require.NoError(t, err)
	require.True(t, reply.Completed())
	require.NotNil(t, reply.Record)
	assert.Equal(t, 5.0, reply.Record.Slots["rating"].Value)
	assert.Len(t, records.Records(), 1)
}
