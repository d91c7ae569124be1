package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s := NewSession("sess-1", "AI in Healthcare", 3)

	assert.Equal(t, SessionID("sess-1"), s.ID)
	assert.Equal(t, "AI in Healthcare", s.Topic)
	assert.Equal(t, 3, s.MaxAnalysts)
	assert.Equal(t, StageGenerateAnalysts, s.CurrentStage)
	assert.Equal(t, SessionInProgress, s.Status())
	assert.False(t, s.Terminal())
	assert.NoError(t, s.Validate())
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(s *Session) {},
			wantErr: "",
		},
		{
			name:    "empty id",
			mutate:  func(s *Session) { s.ID = "" },
			wantErr: CodeInvalidState,
		},
		{
			name:    "empty topic",
			mutate:  func(s *Session) { s.Topic = "   " },
			wantErr: CodeEmptyTopic,
		},
		{
			name:    "zero analysts",
			mutate:  func(s *Session) { s.MaxAnalysts = 0 },
			wantErr: CodeInvalidAnalysts,
		},
		{
			name:    "bogus stage",
			mutate:  func(s *Session) { s.CurrentStage = Stage("interview") },
			wantErr: CodeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("sess-1", "quantum computing", 2)
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var domErr *DomainError
			require.ErrorAs(t, err, &domErr)
			assert.Equal(t, tt.wantErr, domErr.Code)
		})
	}
}

func TestSessionStatusDerivation(t *testing.T) {
	s := NewSession("sess-1", "topic", 2)
	assert.Equal(t, SessionInProgress, s.Status())

	s.FinalReport = "## Report"
	assert.Equal(t, SessionCompleted, s.Status())
	assert.True(t, s.Terminal())
}

func TestSessionResearchComplete(t *testing.T) {
	s := NewSession("sess-1", "topic", 2)
	assert.False(t, s.ResearchComplete(), "no analysts yet")

	s.Analysts = []Analyst{
		{Name: "Ada", Focus: "hardware"},
		{Name: "Grace", Focus: "software"},
	}
	assert.False(t, s.ResearchComplete(), "no outputs yet")

	s.Outputs["Ada"] = AnalystOutput{Analyst: s.Analysts[0], Content: "notes"}
	assert.False(t, s.ResearchComplete(), "partial results never trigger synthesis")

	s.Outputs["Grace"] = DegradedOutput(s.Analysts[1], "backend timeout")
	assert.True(t, s.ResearchComplete(), "degraded outputs count toward the gate")
	assert.Equal(t, 1, s.DegradedCount())
}

func TestSessionOrderedOutputs(t *testing.T) {
	s := NewSession("sess-1", "topic", 3)
	s.Analysts = []Analyst{
		{Name: "Zoe", Focus: "z"},
		{Name: "Ada", Focus: "a"},
		{Name: "Mia", Focus: "m"},
	}
	// Insert in completion order, not name order.
	for _, a := range []string{"Mia", "Zoe", "Ada"} {
		s.Outputs[a] = AnalystOutput{Analyst: Analyst{Name: a, Focus: "x"}, Content: a + " notes"}
	}

	ordered := s.OrderedOutputs()
	require.Len(t, ordered, 3)
	assert.Equal(t, "Ada", ordered[0].Analyst.Name)
	assert.Equal(t, "Mia", ordered[1].Analyst.Name)
	assert.Equal(t, "Zoe", ordered[2].Analyst.Name)
}

func TestSessionClone(t *testing.T) {
	s := NewSession("sess-1", "topic", 2)
	fb := "looks good"
	s.HumanFeedback = &fb
	s.Analysts = []Analyst{{Name: "Ada", Focus: "hardware"}}
	s.Outputs["Ada"] = AnalystOutput{Analyst: s.Analysts[0], Content: "notes"}

	cp := s.Clone()
	cp.Analysts[0].Name = "Changed"
	*cp.HumanFeedback = "changed"
	cp.Outputs["Ada"] = AnalystOutput{Analyst: Analyst{Name: "Other"}}

	assert.Equal(t, "Ada", s.Analysts[0].Name)
	assert.Equal(t, "looks good", *s.HumanFeedback)
	assert.Equal(t, "notes", s.Outputs["Ada"].Content)
}

func TestDeltaValidate(t *testing.T) {
	tests := []struct {
		name  string
		delta Delta
		ok    bool
	}{
		{"analysts ok", AnalystsDelta([]Analyst{{Name: "Ada", Focus: "x"}}), true},
		{"analysts empty", Delta{Node: StageGenerateAnalysts}, false},
		{"feedback ok", FeedbackDelta(""), true},
		{"feedback missing", Delta{Node: StageHumanFeedback}, false},
		{"output ok", OutputDelta(AnalystOutput{Analyst: Analyst{Name: "Ada", Focus: "x"}}), true},
		{"output missing", Delta{Node: StageResearch}, false},
		{"report ok", ReportDelta("body"), true},
		{"report empty", Delta{Node: StageSynthesize}, false},
		{"unknown node", Delta{Node: Stage("bogus")}, false},
		{"done is not a delta node", Delta{Node: StageDone, FinalReport: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.delta.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDeltaApply(t *testing.T) {
	s := NewSession("sess-1", "topic", 2)

	roster := []Analyst{{Name: "Ada", Focus: "hardware"}, {Name: "Grace", Focus: "software"}}
	require.NoError(t, AnalystsDelta(roster).Apply(s))
	assert.Len(t, s.Analysts, 2)
	assert.Equal(t, 0, s.RegenCycles, "first roster is not a regeneration")

	require.NoError(t, FeedbackDelta("add an economist").Apply(s))
	require.NotNil(t, s.HumanFeedback)
	assert.Equal(t, "add an economist", *s.HumanFeedback)

	out := AnalystOutput{Analyst: roster[0], Content: "notes"}
	require.NoError(t, OutputDelta(out).Apply(s))
	assert.Equal(t, "notes", s.Outputs["Ada"].Content)

	// Regeneration clears stale research and counts the cycle.
	require.NoError(t, AnalystsDelta(roster[:1]).Apply(s))
	assert.Empty(t, s.Outputs)
	assert.Equal(t, 1, s.RegenCycles)
}

func TestDeltaApplyFinalReportOnce(t *testing.T) {
	s := NewSession("sess-1", "topic", 1)

	require.NoError(t, ReportDelta("first").Apply(s))
	assert.Equal(t, "first", s.FinalReport)

	err := ReportDelta("second").Apply(s)
	require.Error(t, err)
	assert.True(t, IsCategory(err, ErrCatState))
	assert.Equal(t, "first", s.FinalReport, "final report is set at most once")
}

func TestDeltaApplyTouchesUpdatedAt(t *testing.T) {
	s := NewSession("sess-1", "topic", 1)
	s.UpdatedAt = time.Now().Add(-time.Hour)
	before := s.UpdatedAt

	require.NoError(t, FeedbackDelta("ok").Apply(s))
	assert.True(t, s.UpdatedAt.After(before))
}
