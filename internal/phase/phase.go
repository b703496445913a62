package phase

// Phase is one state of the per-session conversational protocol.
type Phase string

const (
	// PhaseGreeting is the reset state: no quiz active, or quiz just finished.
	PhaseGreeting Phase = "greeting"
	// PhaseAsking means the assistant is reading the question aloud.
	PhaseAsking Phase = "asking"
	// PhaseListening means the assistant is waiting for the spoken answer.
	PhaseListening Phase = "listening"
	// PhasePostScore follows a scored (or forfeited) answer.
	PhasePostScore Phase = "post-score"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseGreeting, PhaseAsking, PhaseListening, PhasePostScore:
		return true
	}
	return false
}

// Tool is a named operation the conversational agent may invoke.
type Tool string

const (
	ToolStartSession   Tool = "startSession"
	ToolNextQuestion   Tool = "nextQuestion"
	ToolReportIntent   Tool = "reportIntent"
	ToolSubmitAnswer   Tool = "submitAnswer"
	ToolInfoLookup     Tool = "infoLookup"
	ToolFinishSession  Tool = "finishSession"
	ToolGetLeaderboard Tool = "getLeaderboard"
)

// Tools lists every known tool, in a stable order.
func Tools() []Tool {
	return []Tool{
		ToolStartSession,
		ToolNextQuestion,
		ToolReportIntent,
		ToolSubmitAnswer,
		ToolInfoLookup,
		ToolFinishSession,
		ToolGetLeaderboard,
	}
}

// Phases lists every known phase, in protocol order.
func Phases() []Phase {
	return []Phase{PhaseGreeting, PhaseAsking, PhaseListening, PhasePostScore}
}
