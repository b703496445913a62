package phase

import (
	"fmt"
	"strings"
)

// Decision is the outcome of gating one tool call.
type Decision struct {
	Allowed bool
	// Reason names the allowed tool set when the call is rejected. It is
	// surfaced to the client for guidance, never silently dropped.
	Reason string
	// NewPhase is the phase after a successful call. Only meaningful when
	// PhaseChanged is true; phase-neutral tools leave the phase untouched.
	NewPhase     Phase
	PhaseChanged bool
}

// AllowedTools returns the exact set of tools callable in the given phase.
// The switch is exhaustive over all phases: adding a phase without deciding
// its tool set fails here instead of failing silently at runtime.
func AllowedTools(p Phase) []Tool {
	switch p {
	case PhaseGreeting:
		return []Tool{ToolStartSession, ToolNextQuestion}
	case PhaseAsking:
		// No tool calls while the question is being read aloud.
		return nil
	case PhaseListening:
		return []Tool{ToolReportIntent, ToolSubmitAnswer, ToolInfoLookup}
	case PhasePostScore:
		return []Tool{ToolNextQuestion, ToolFinishSession, ToolGetLeaderboard}
	default:
		return nil
	}
}

// NextPhase returns the phase that follows a successful call of the given
// tool. The second return is false for phase-neutral tools.
func NextPhase(t Tool) (Phase, bool) {
	switch t {
	case ToolStartSession, ToolNextQuestion:
		return PhaseAsking, true
	case ToolSubmitAnswer, ToolInfoLookup:
		return PhasePostScore, true
	case ToolFinishSession:
		return PhaseGreeting, true
	case ToolReportIntent, ToolGetLeaderboard:
		return "", false
	default:
		return "", false
	}
}

// CheckToolCall decides whether a tool is callable in the current phase, and
// what phase follows a successful call.
func CheckToolCall(current Phase, tool Tool) Decision {
	allowed := AllowedTools(current)
	for _, t := range allowed {
		if t == tool {
			next, changed := NextPhase(tool)
			return Decision{Allowed: true, NewPhase: next, PhaseChanged: changed}
		}
	}

	return Decision{
		Allowed: false,
		Reason:  rejectionReason(current, tool, allowed),
	}
}

// IsValidTransition validates phase-to-phase edges independent of which tool
// triggered them. Callers treat disagreement between this and the tool table
// as a logic error to be logged; the tool table stays authoritative.
func IsValidTransition(from, to Phase) bool {
	switch from {
	case PhaseGreeting:
		return to == PhaseAsking
	case PhaseAsking:
		return to == PhaseListening
	case PhaseListening:
		return to == PhasePostScore
	case PhasePostScore:
		return to == PhaseAsking || to == PhaseGreeting
	default:
		return false
	}
}

func rejectionReason(current Phase, tool Tool, allowed []Tool) string {
	if len(allowed) == 0 {
		return fmt.Sprintf("tool %q is not available during the %s phase; no tools may be called until the question has been read", tool, current)
	}
	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = string(t)
	}
	return fmt.Sprintf("tool %q is not available during the %s phase; allowed tools: %s", tool, current, strings.Join(names, ", "))
}
