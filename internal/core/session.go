package core

import (
	"sort"
	"strings"
	"time"
)

// SessionID uniquely identifies a report-generation run. Assigned
// exactly once at start, never reused.
type SessionID string

// SessionStatus is the externally visible state of a session. It is
// derived from the presence of the final report, never stored.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session is one end-to-end report-generation run.
type Session struct {
	ID          SessionID `json:"id"`
	Topic       string    `json:"topic"`
	MaxAnalysts int       `json:"max_analysts"`

	// Analysts is the ordered roster produced by the generation stage.
	// Empty until that stage completes.
	Analysts []Analyst `json:"analysts,omitempty"`

	// HumanFeedback is nil until a human responds at the feedback gate.
	HumanFeedback *string `json:"human_feedback,omitempty"`

	// Outputs maps analyst name to that analyst's research
	// contribution. Populated incrementally as fan-out tasks conclude.
	Outputs map[string]AnalystOutput `json:"outputs,omitempty"`

	// FinalReport is set exactly once, by the synthesis stage. Once set
	// the session is terminal.
	FinalReport string `json:"final_report,omitempty"`

	// CurrentStage is the last stage to complete, or the stage
	// currently awaiting external input.
	CurrentStage Stage `json:"current_stage"`

	// RegenCycles counts analyst-regeneration rounds taken at the
	// feedback gate. Each Resume call may add at most one.
	RegenCycles int `json:"regen_cycles"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a new session at the start of the graph.
func NewSession(id SessionID, topic string, maxAnalysts int) *Session {
	return &Session{
		ID:           id,
		Topic:        topic,
		MaxAnalysts:  maxAnalysts,
		Outputs:      make(map[string]AnalystOutput),
		CurrentStage: StageGenerateAnalysts,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// Status derives the session status from the final report.
func (s *Session) Status() SessionStatus {
	if s.FinalReport != "" {
		return SessionCompleted
	}
	return SessionInProgress
}

// Terminal reports whether the session has finished. A resume call on a
// terminal session is a no-op.
func (s *Session) Terminal() bool {
	return s.FinalReport != ""
}

// Suspended reports whether the session is parked at the feedback gate.
func (s *Session) Suspended() bool {
	return s.CurrentStage == StageHumanFeedback && !s.Terminal()
}

// ResearchComplete is the sole completion gate for synthesis: every
// analyst has an output slot, degraded or not.
func (s *Session) ResearchComplete() bool {
	if len(s.Analysts) == 0 {
		return false
	}
	return len(s.Outputs) == len(s.Analysts)
}

// OrderedOutputs returns outputs sorted by analyst name so the final
// merge is deterministic regardless of completion order.
func (s *Session) OrderedOutputs() []AnalystOutput {
	outputs := make([]AnalystOutput, 0, len(s.Outputs))
	for _, out := range s.Outputs {
		outputs = append(outputs, out)
	}
	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].Analyst.Name < outputs[j].Analyst.Name
	})
	return outputs
}

// DegradedCount returns the number of degraded contributions.
func (s *Session) DegradedCount() int {
	n := 0
	for _, out := range s.Outputs {
		if out.Degraded {
			n++
		}
	}
	return n
}

// Clone returns a deep copy. Checkpoint stores hand out clones so no
// caller mutates shared state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Analysts != nil {
		cp.Analysts = make([]Analyst, len(s.Analysts))
		copy(cp.Analysts, s.Analysts)
	}
	if s.HumanFeedback != nil {
		fb := *s.HumanFeedback
		cp.HumanFeedback = &fb
	}
	if s.Outputs != nil {
		cp.Outputs = make(map[string]AnalystOutput, len(s.Outputs))
		for k, v := range s.Outputs {
			cp.Outputs[k] = v
		}
	}
	return &cp
}

// Validate checks session invariants.
func (s *Session) Validate() error {
	if s.ID == "" {
		return ErrValidation(CodeInvalidState, "session ID cannot be empty")
	}
	if strings.TrimSpace(s.Topic) == "" {
		return ErrValidation(CodeEmptyTopic, "topic cannot be empty")
	}
	if len(s.Topic) > MaxTopicLength {
		return ErrValidation(CodeTopicTooLong, "topic exceeds maximum length")
	}
	if s.MaxAnalysts < 1 {
		return ErrValidation(CodeInvalidAnalysts, "max analysts must be positive")
	}
	if !ValidStage(s.CurrentStage) {
		return ErrValidation(CodeInvalidState, "invalid current stage")
	}
	return nil
}

// Delta is a named-node partial update of a session. The Node tag
// determines which payload field applies; anything else is rejected at
// construction time so an invalid node can never become a silent no-op.
type Delta struct {
	Node        Stage
	Analysts    []Analyst      // Node == StageGenerateAnalysts
	Feedback    *string        // Node == StageHumanFeedback
	Output      *AnalystOutput // Node == StageResearch
	FinalReport string         // Node == StageSynthesize
}

// AnalystsDelta records a generated (or regenerated) roster.
func AnalystsDelta(analysts []Analyst) Delta {
	return Delta{Node: StageGenerateAnalysts, Analysts: analysts}
}

// FeedbackDelta records the human response at the feedback gate.
func FeedbackDelta(feedback string) Delta {
	return Delta{Node: StageHumanFeedback, Feedback: &feedback}
}

// OutputDelta records one analyst's research contribution.
func OutputDelta(out AnalystOutput) Delta {
	return Delta{Node: StageResearch, Output: &out}
}

// ReportDelta records the synthesized final report.
func ReportDelta(report string) Delta {
	return Delta{Node: StageSynthesize, FinalReport: report}
}

// Validate rejects node/payload mismatches.
func (d Delta) Validate() error {
	switch d.Node {
	case StageGenerateAnalysts:
		if len(d.Analysts) == 0 {
			return ErrValidation(CodeInvalidDelta, "generate_analysts delta requires analysts")
		}
	case StageHumanFeedback:
		if d.Feedback == nil {
			return ErrValidation(CodeInvalidDelta, "human_feedback delta requires feedback")
		}
	case StageResearch:
		if d.Output == nil {
			return ErrValidation(CodeInvalidDelta, "research delta requires an output")
		}
		if err := d.Output.Analyst.Validate(); err != nil {
			return err
		}
	case StageSynthesize:
		if d.FinalReport == "" {
			return ErrValidation(CodeInvalidDelta, "synthesize delta requires a report")
		}
	default:
		return ErrValidation(CodeInvalidDelta, "unknown delta node: "+string(d.Node))
	}
	return nil
}

// Apply mutates the session with the delta payload. Callers hold
// whatever lock the store requires; Apply itself only mutates.
func (d Delta) Apply(s *Session) error {
	if err := d.Validate(); err != nil {
		return err
	}
	switch d.Node {
	case StageGenerateAnalysts:
		if len(s.Analysts) > 0 {
			// Replacing an existing roster is a regeneration round.
			s.RegenCycles++
		}
		s.Analysts = make([]Analyst, len(d.Analysts))
		copy(s.Analysts, d.Analysts)
		// A fresh roster invalidates any prior research.
		s.Outputs = make(map[string]AnalystOutput)
	case StageHumanFeedback:
		fb := *d.Feedback
		s.HumanFeedback = &fb
	case StageResearch:
		if s.Outputs == nil {
			s.Outputs = make(map[string]AnalystOutput)
		}
		s.Outputs[d.Output.Analyst.Name] = *d.Output
	case StageSynthesize:
		if s.FinalReport != "" {
			return ErrState(CodeInvalidState, "final report already set for session "+string(s.ID))
		}
		s.FinalReport = d.FinalReport
	}
	s.UpdatedAt = time.Now()
	return nil
}
