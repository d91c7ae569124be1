package core

import "fmt"

// Stage represents a named step in the report-generation graph.
type Stage string

const (
	// StageGenerateAnalysts is the first stage where analyst personas
	// are generated from the topic by the model backend.
	StageGenerateAnalysts Stage = "generate_analysts"

	// StageHumanFeedback is the suspend point. The run halts here on
	// first arrival and resumes only when feedback is injected for the
	// session.
	StageHumanFeedback Stage = "human_feedback"

	// StageResearch is the fan-out stage where each analyst produces an
	// independent research contribution.
	StageResearch Stage = "research"

	// StageSynthesize merges all analyst contributions into the final
	// report. It runs exactly once per session.
	StageSynthesize Stage = "synthesize"

	// StageDone is the terminal state. It is NOT an executable stage —
	// it signals "session fully done".
	StageDone Stage = "done"
)

// AllStages returns all stages in graph order.
func AllStages() []Stage {
	return []Stage{StageGenerateAnalysts, StageHumanFeedback, StageResearch, StageSynthesize}
}

// StageOrder returns the numeric order of a stage (0-indexed).
func StageOrder(s Stage) int {
	switch s {
	case StageGenerateAnalysts:
		return 0
	case StageHumanFeedback:
		return 1
	case StageResearch:
		return 2
	case StageSynthesize:
		return 3
	case StageDone:
		return 4
	default:
		return -1
	}
}

// NextStage returns the stage following the given stage on the approval
// path. Returns empty string past the end. The regeneration edge
// (human_feedback back to generate_analysts) is taken by the runner, not
// encoded here.
func NextStage(s Stage) Stage {
	switch s {
	case StageGenerateAnalysts:
		return StageHumanFeedback
	case StageHumanFeedback:
		return StageResearch
	case StageResearch:
		return StageSynthesize
	case StageSynthesize:
		return StageDone
	default:
		return ""
	}
}

// ValidStage checks if a stage value is a member of the graph.
func ValidStage(s Stage) bool {
	switch s {
	case StageGenerateAnalysts, StageHumanFeedback, StageResearch, StageSynthesize, StageDone:
		return true
	default:
		return false
	}
}

// ParseStage converts a string to a Stage with validation.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !ValidStage(st) {
		return "", fmt.Errorf("invalid stage: %s", s)
	}
	return st, nil
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Description returns a human-readable description of the stage.
func (s Stage) Description() string {
	switch s {
	case StageGenerateAnalysts:
		return "Generate analyst personas for the topic"
	case StageHumanFeedback:
		return "Await human review of the analyst roster"
	case StageResearch:
		return "Run per-analyst research in parallel"
	case StageSynthesize:
		return "Merge analyst contributions into the final report"
	case StageDone:
		return "Session completed"
	default:
		return "Unknown stage"
	}
}
