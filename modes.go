package voxagent

// SwitchMode moves the session to the target mode. Collected slots are never
// discarded by a switch; slots shared with the new mode keep their values.
// Switching away from a terminal mode, to an unknown mode, or on a frozen
// session fails with ModeTransitionError and leaves the state untouched.
func SwitchMode(schema *AgentSchema, s *SessionState, target string) error {
	if s.Frozen() {
		return &ModeTransitionError{From: s.Mode, To: target, Reason: "session already finalized"}
	}
	current, ok := schema.Mode(s.Mode)
	if !ok {
		return &ModeTransitionError{From: s.Mode, To: target, Reason: "current mode is not declared"}
	}
	next, ok := schema.Mode(target)
	if !ok {
		return &ModeTransitionError{From: s.Mode, To: target, Reason: "no such mode"}
	}
	if current.Terminal && target != current.Name {
		return &ModeTransitionError{From: s.Mode, To: target, Reason: "mode is terminal"}
	}
	if target == s.Mode {
		return nil
	}
	s.Mode = next.Name
	if s.Stage == StageConfirming {
		s.Stage = StageCollecting
	}
	s.PendingClarify = nil
	return nil
}

// TerminalReached reports whether the session sits in a terminal mode with
// every required slot of that mode collected.
func TerminalReached(schema *AgentSchema, s *SessionState) bool {
	mode, ok := schema.Mode(s.Mode)
	if !ok || !mode.Terminal {
		return false
	}
	for _, name := range mode.RequiredSlots() {
		if !s.Filled(name) {
			return false
		}
	}
	return true
}
