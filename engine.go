package voxagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/itzneel05/voxagent/catalog"
)

const maxModeHops = 8

// Engine drives one agent persona: it owns the schema-driven policy, the
// merger, the mode machine and the finalizer, and talks to the gateway,
// session store and record store collaborators. Engines are safe for
// concurrent use; each session is loaded, mutated and saved per turn under
// its own routing key.
type Engine struct {
	schema    *AgentSchema
	gateway   Gateway
	parser    CommandParser
	policy    *Policy
	merger    *Merger
	finalizer *Finalizer
	sessions  SessionStore
	faq       catalog.Answerer
	logger    *slog.Logger
	hooks     Hooks
	timeout   time.Duration
	// hintContext supplies persona extras for the gateway hint, e.g. the
	// previous check-in's mood.
	hintContext func(ctx context.Context, s *SessionState) map[string]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(store SessionStore) Option {
	return func(e *Engine) { e.sessions = store }
}

// WithRecordStore sets the persistence collaborator for final records.
func WithRecordStore(store RecordStore, opts ...FinalizerOption) Option {
	return func(e *Engine) { e.finalizer = NewFinalizer(store, opts...) }
}

// WithCatalog attaches a catalog used for item validation and expansion. A
// source that also implements catalog.Answerer serves FAQ questions.
func WithCatalog(cat catalog.Source) Option {
	return func(e *Engine) {
		e.merger = NewMerger(e.schema, cat)
		if answerer, ok := cat.(catalog.Answerer); ok {
			e.faq = answerer
		}
	}
}

// WithCommandParser replaces the default keyword command parser.
func WithCommandParser(p CommandParser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHooks registers observability hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithGatewayTimeout bounds each gateway call; an exceeded deadline degrades
// the turn to the scripted path instead of retrying.
func WithGatewayTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithHintContext supplies extra key/value context for the gateway hint.
func WithHintContext(fn func(ctx context.Context, s *SessionState) map[string]string) Option {
	return func(e *Engine) { e.hintContext = fn }
}

// New builds an engine for one agent schema and gateway.
func New(schema *AgentSchema, gateway Gateway, opts ...Option) (*Engine, error) {
	if schema == nil {
		return nil, fmt.Errorf("engine: schema is required")
	}
	if gateway == nil {
		gateway = ScriptedGateway{}
	}
	e := &Engine{
		schema:    schema,
		gateway:   gateway,
		parser:    NewCommandParser(),
		policy:    NewPolicy(schema),
		merger:    NewMerger(schema, nil),
		finalizer: NewFinalizer(nil),
		sessions:  NewMemorySessionStore(),
		logger:    slog.Default(),
		timeout:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Schema returns the agent schema the engine runs.
func (e *Engine) Schema() *AgentSchema { return e.schema }

// Greeting returns the scripted opening line for a fresh session.
func (e *Engine) Greeting() string {
	if mode, ok := e.schema.Mode(e.schema.InitialMode); ok && mode.Greeting != "" {
		return mode.Greeting
	}
	return "Hello! How can I help you today?"
}

// Turn processes one user utterance for the session routed by the context
// key. A storage failure during finalize returns both the reply and a
// StorageError; the frozen record stays on the session for RetryPending.
func (e *Engine) Turn(ctx context.Context, input string) (*Reply, error) {
	start := time.Now()
	session, err := e.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		session = NewSession(e.schema)
	}
	if session.Stage == StageFinalized {
		return e.reply(session, ActionFinalize, "This session is already complete. Thank you!"), nil
	}
	if session.Stage == StageAborted {
		return e.reply(session, ActionFinalize, "This session has ended."), nil
	}
	if aErr := session.AppendTurn(SpeakerUser, input); aErr != nil {
		return nil, aErr
	}

	reply, turnErr := e.processTurn(ctx, session, input)
	if reply == nil {
		return nil, turnErr
	}
	if !session.Frozen() && session.Stage != StageAborted {
		_ = session.AppendTurn(SpeakerAgent, reply.Message)
	}
	if sErr := e.sessions.Save(ctx, session); sErr != nil {
		return reply, fmt.Errorf("save session: %w", sErr)
	}
	e.hooks.turn(ctx, &TurnEvent{
		SessionID: session.ID,
		AgentType: session.AgentType,
		Mode:      session.Mode,
		Stage:     session.Stage,
		Action:    reply.Action,
		Duration:  time.Since(start),
	})
	return reply, turnErr
}

func (e *Engine) processTurn(ctx context.Context, session *SessionState, input string) (*Reply, error) {
	cmd := e.parser.Parse(ctx, e.schema, input)
	// An utterance that answers the slot currently being asked is an answer,
	// not a command; "no" to "did you make this transaction?" must land in
	// the slot.
	if cmd.Command == CommandAffirm || cmd.Command == CommandDeny {
		if e.answersAskedSlot(session, input) {
			cmd = ParsedCommand{Command: CommandNone}
		}
	}

	switch cmd.Command {
	case CommandCancel:
		return e.handleCancel(ctx, session)
	case CommandSwitch:
		return e.handleSwitch(ctx, session, cmd.Target)
	case CommandAffirm:
		if session.Stage == StageConfirming {
			return e.finalizeSession(ctx, session)
		}
		// "That's all" during collection: run the mode forward, which may
		// confirm, hop to the next mode or finalize outright.
		modeBefore := session.Mode
		action := e.advance(ctx, session)
		if session.Mode != modeBefore && action.Type != ActionFinalize {
			if mode, ok := e.schema.Mode(session.Mode); ok && mode.Greeting != "" {
				action.Prompt = mode.Greeting
			}
		}
		switch action.Type {
		case ActionConfirm:
			session.Stage = StageConfirming
		case ActionFinalize:
			return e.finalizeSession(ctx, session)
		}
		return e.reply(session, action.Type, action.Prompt), nil
	case CommandDeny:
		if session.Stage == StageConfirming {
			session.Stage = StageCollecting
			return e.reply(session, ActionClarify, "Okay, what would you like to change?"), nil
		}
	}
	return e.handleUtterance(ctx, session, input)
}

func (e *Engine) handleCancel(ctx context.Context, session *SessionState) (*Reply, error) {
	rec, err := e.finalizer.Abort(ctx, session)
	if err != nil && !errors.Is(err, ErrSessionFinalized) {
		e.logger.Error("abort persistence failed", "session", session.ID, "err", err)
	}
	r := e.reply(session, ActionFinalize, "No problem, I've cancelled this session. Goodbye!")
	r.Record = rec
	return r, nil
}

func (e *Engine) handleSwitch(ctx context.Context, session *SessionState, target string) (*Reply, error) {
	from := session.Mode
	if err := SwitchMode(e.schema, session, target); err != nil {
		var mte *ModeTransitionError
		if errors.As(err, &mte) {
			e.logger.Warn("mode switch rejected", "session", session.ID, "from", mte.From, "to", mte.To, "reason", mte.Reason)
			return e.reply(session, ActionClarify, fmt.Sprintf("Sorry, I can't switch to %s right now.", target)), nil
		}
		return nil, err
	}
	e.hooks.modeSwitch(ctx, &ModeSwitchEvent{
		SessionID: session.ID,
		AgentType: session.AgentType,
		From:      from,
		To:        session.Mode,
		Explicit:  true,
	})
	if mode, ok := e.schema.Mode(session.Mode); ok && mode.Greeting != "" {
		return e.reply(session, ActionSwitchMode, mode.Greeting), nil
	}
	action := e.policy.Next(session)
	return e.reply(session, action.Type, action.Prompt), nil
}

func (e *Engine) handleUtterance(ctx context.Context, session *SessionState, input string) (*Reply, error) {
	utterance, extraction, degraded := e.converse(ctx, session, input)
	if extraction.Empty() {
		// A turn that filled nothing may be a product question; answer it
		// and repeat the pending prompt.
		if e.faq != nil && session.Stage == StageCollecting {
			if entry, ok := e.faq.Answer(input); ok {
				return e.answerFAQ(session, entry), nil
			}
		}
		// No model contribution this turn, either a failure or a fully
		// scripted gateway. The literal utterance answers the asked slot.
		scripted := degraded || utterance == ""
		extraction = e.scriptedCapture(session, input, scripted)
	}
	mergeRes, err := e.merger.Merge(session, extraction)
	if err != nil {
		return nil, err
	}
	if len(mergeRes.Rejected) > 0 {
		session.PendingClarify = mergeRes.Rejected
	} else if len(mergeRes.Applied) > 0 {
		session.PendingClarify = nil
	}

	modeBefore := session.Mode
	action := e.advance(ctx, session)
	if session.Mode != modeBefore && action.Type != ActionFinalize {
		// A schema-driven transition landed in a new mode; its greeting
		// carries the scripted lead-in (e.g. the transaction summary).
		if mode, ok := e.schema.Mode(session.Mode); ok && mode.Greeting != "" {
			action.Prompt = mode.Greeting
			utterance = ""
		}
	}
	switch action.Type {
	case ActionConfirm:
		session.Stage = StageConfirming
	case ActionClarify:
		// Clarifications are one-shot: asked once, then cleared so the
		// policy resumes normal slot order.
		defer func() { session.PendingClarify = nil }()
	case ActionFinalize:
		return e.finalizeSession(ctx, session)
	}

	message := action.Prompt
	if !degraded && utterance != "" && action.Type != ActionClarify {
		message = utterance
	}
	return e.reply(session, action.Type, message), nil
}

// answerFAQ replies with the matched answer and restates the pending ask so
// collection picks up where it left off.
func (e *Engine) answerFAQ(session *SessionState, entry *catalog.FAQEntry) *Reply {
	action := e.policy.Next(session)
	message := entry.Answer
	if action.Type == ActionAsk && action.Prompt != "" {
		message = entry.Answer + " " + action.Prompt
	}
	if action.Type == ActionConfirm {
		session.Stage = StageConfirming
		message = entry.Answer + " " + action.Prompt
	}
	return e.reply(session, action.Type, message)
}

// converse calls the gateway under the configured deadline. Failures are
// logged, surfaced through hooks and degrade the turn; they never fail it.
func (e *Engine) converse(ctx context.Context, session *SessionState, input string) (string, Extraction, bool) {
	var extra map[string]string
	if e.hintContext != nil {
		extra = e.hintContext(ctx, session)
	}
	req := &ConverseRequest{
		Input:   input,
		History: session.snapshotHistory(),
		Hint:    BuildHint(e.schema, e.policy, session, extra),
	}
	gctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	res, err := e.gateway.Converse(gctx, req)
	if err != nil {
		e.logger.Warn("gateway unavailable, using scripted flow", "session", session.ID, "err", err)
		e.hooks.gatewayError(ctx, &GatewayErrorEvent{SessionID: session.ID, AgentType: session.AgentType, Err: err})
		return "", Extraction{}, true
	}
	return res.Utterance, res.Extraction, false
}

// scriptedCapture fills the slot currently being asked without the model:
// an utterance matching an enum member always counts, and on a scripted turn
// the raw utterance is offered to the asked slot (validation still applies).
func (e *Engine) scriptedCapture(session *SessionState, input string, scripted bool) Extraction {
	def := e.askedSlot(session)
	if def == nil {
		return Extraction{}
	}
	if def.Type == SlotEnum {
		phrase := normalizePhrase(input)
		for _, member := range def.Enum {
			if phrase == normalizePhrase(member) {
				return Extraction{Candidates: []Candidate{{Slot: def.Name, Value: member, Origin: OriginExplicit}}}
			}
		}
	}
	if scripted && def.Type != SlotList {
		return Extraction{Candidates: []Candidate{{Slot: def.Name, Value: input, Origin: OriginExplicit}}}
	}
	return Extraction{}
}

// askedSlot resolves which slot the session is currently asking for.
func (e *Engine) askedSlot(session *SessionState) *SlotDef {
	if session.Stage != StageCollecting {
		return nil
	}
	if len(session.PendingClarify) > 0 {
		if def, ok := e.schema.SlotDef(session.Mode, session.PendingClarify[0].Slot); ok {
			return def
		}
	}
	mode, ok := e.schema.Mode(session.Mode)
	if !ok {
		return nil
	}
	for i := range mode.Slots {
		def := &mode.Slots[i]
		if def.Required && !session.Filled(def.Name) {
			return def
		}
	}
	return nil
}

func (e *Engine) answersAskedSlot(session *SessionState, input string) bool {
	def := e.askedSlot(session)
	if def == nil || def.Type != SlotEnum {
		return false
	}
	phrase := normalizePhrase(input)
	for _, member := range def.Enum {
		if phrase == normalizePhrase(member) {
			return true
		}
	}
	return false
}

// advance walks schema-driven mode transitions until the policy settles on a
// non-switch action. Branch Set values are written as explicit slots before
// the transition, so resolution outcomes survive into the record.
func (e *Engine) advance(ctx context.Context, session *SessionState) NextAction {
	for hop := 0; hop < maxModeHops; hop++ {
		action := e.policy.Next(session)
		if action.Type != ActionSwitchMode {
			return action
		}
		for name, val := range action.Set {
			if def, ok := e.schema.SlotDef(session.Mode, name); ok {
				if norm, err := def.Normalize(val); err == nil {
					val = norm
				}
			}
			_ = session.SetSlot(name, SlotValue{Value: val, Origin: OriginExplicit})
		}
		from := session.Mode
		if err := SwitchMode(e.schema, session, action.TargetMode); err != nil {
			e.logger.Error("schema-driven switch failed", "session", session.ID, "to", action.TargetMode, "err", err)
			return NextAction{Type: ActionClarify, Prompt: "Sorry, something went wrong. Could you repeat that?"}
		}
		e.hooks.modeSwitch(ctx, &ModeSwitchEvent{
			SessionID: session.ID,
			AgentType: session.AgentType,
			From:      from,
			To:        session.Mode,
		})
	}
	e.logger.Error("mode transition loop detected", "session", session.ID, "mode", session.Mode)
	return NextAction{Type: ActionClarify, Prompt: "Sorry, something went wrong. Could you repeat that?"}
}

func (e *Engine) finalizeSession(ctx context.Context, session *SessionState) (*Reply, error) {
	summary := e.policy.Summary(session)
	rec, err := e.finalizer.Finalize(ctx, session)
	if err != nil && !errors.Is(err, ErrSessionFinalized) {
		e.logger.Error("finalize persistence failed", "session", session.ID, "err", err)
		r := e.reply(session, ActionFinalize, "Everything is recorded, but saving hit a snag; I'll keep your details and retry.")
		r.Record = rec
		r.Meta = map[string]string{"error": err.Error()}
		return r, err
	}
	e.hooks.finalize(ctx, &FinalizeEvent{SessionID: session.ID, AgentType: session.AgentType, Record: rec})
	r := e.reply(session, ActionFinalize, fmt.Sprintf("All set. %s. Thank you!", summary))
	r.Record = rec
	return r, nil
}

// RetryPending re-attempts persistence of a record parked by a storage
// failure in an earlier turn.
func (e *Engine) RetryPending(ctx context.Context) error {
	session, err := e.sessions.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil
	}
	if err := e.finalizer.RetryPending(ctx, session); err != nil {
		return err
	}
	return e.sessions.Save(ctx, session)
}

func (e *Engine) reply(session *SessionState, action ActionType, message string) *Reply {
	voice := ""
	if mode, ok := e.schema.Mode(session.Mode); ok {
		voice = mode.Voice
	}
	return &Reply{
		Message: message,
		Action:  action,
		Stage:   session.Stage,
		Mode:    session.Mode,
		Voice:   voice,
		Record:  session.Record,
	}
}
