package workflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/logging"
	"github.com/verity-labs/chorus/internal/model"
)

// Nodes implements the stage node functions against a model backend.
// One Nodes value serves all sessions; per-session state lives in the
// session snapshot and the checkpoint store.
type Nodes struct {
	backend core.ModelBackend
	logger  *logging.Logger

	// generationAttempts bounds roster-generation retries on top of any
	// transport-level retry the backend already carries.
	generationAttempts int

	// researchConcurrency caps concurrent research tasks. Zero means
	// one task per analyst.
	researchConcurrency int
}

// NewNodes creates the stage node set.
func NewNodes(backend core.ModelBackend, logger *logging.Logger, generationAttempts, researchConcurrency int) *Nodes {
	if generationAttempts < 1 {
		generationAttempts = 2
	}
	return &Nodes{
		backend:             backend,
		logger:              logger,
		generationAttempts:  generationAttempts,
		researchConcurrency: researchConcurrency,
	}
}

// GenerateAnalysts produces the analyst roster and commits it together
// with the transition to the review gate. A roster with zero usable
// personas after all attempts fails the session with a generation error.
func (n *Nodes) GenerateAnalysts(ctx context.Context, session *core.Session, commit CommitFunc) error {
	log := n.logger.WithSession(string(session.ID)).WithStage(string(core.StageGenerateAnalysts))

	feedback := ""
	if session.HumanFeedback != nil {
		feedback = *session.HumanFeedback
	}

	req := core.DefaultCompletionRequest()
	req.System = analystSystemPrompt
	req.Prompt = analystPrompt(session.Topic, session.MaxAnalysts, feedback)

	var lastErr error
	for attempt := 1; attempt <= n.generationAttempts; attempt++ {
		result, err := n.backend.Complete(ctx, req)
		if err != nil {
			lastErr = err
			log.Warn("analyst generation call failed", "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		analysts, err := model.ParseAnalysts(result.Text, session.MaxAnalysts)
		if err != nil {
			lastErr = err
			log.Warn("analyst roster unparseable", "attempt", attempt, "error", err)
			continue
		}

		log.Info("analyst roster generated", "analysts", len(analysts), "attempt", attempt)
		return commit(ctx, core.AnalystsDelta(analysts), core.StageHumanFeedback)
	}

	return core.ErrGenerationFailed(session.Topic, lastErr)
}

// Research fans out one research task per analyst and joins on all of
// them. A failed task never aborts the stage: it records an explicit
// degraded output so synthesis can name the gap. Analysts that already
// hold an output are skipped, which makes the stage safe to re-run
// after a crash.
func (n *Nodes) Research(ctx context.Context, session *core.Session, commit CommitFunc) error {
	log := n.logger.WithSession(string(session.ID)).WithStage(string(core.StageResearch))

	pending := make([]core.Analyst, 0, len(session.Analysts))
	for _, a := range session.Analysts {
		if _, done := session.Outputs[a.Name]; !done {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if n.researchConcurrency > 0 {
		g.SetLimit(n.researchConcurrency)
	}

	for _, analyst := range pending {
		g.Go(func() error {
			req := core.DefaultCompletionRequest()
			req.System = researchSystemPrompt
			req.Prompt = researchPrompt(session.Topic, analyst)

			output := core.AnalystOutput{Analyst: analyst}
			result, err := n.backend.Complete(gctx, req)
			if err != nil {
				log.Warn("research task degraded",
					"analyst", analyst.Name,
					"code", core.CodeAnalystDegraded,
					"error", err)
				output = core.DegradedOutput(analyst, err.Error())
			} else {
				output.Content = result.Text
				log.Info("research task complete", "analyst", analyst.Name)
			}

			// Checkpoint each contribution as it lands so a crash
			// mid-fan-out loses at most the in-flight tasks.
			return commit(gctx, core.OutputDelta(output), core.StageResearch)
		})
	}

	return g.Wait()
}

// Synthesize merges all contributions into the final report and commits
// the terminal transition.
func (n *Nodes) Synthesize(ctx context.Context, session *core.Session, commit CommitFunc) error {
	log := n.logger.WithSession(string(session.ID)).WithStage(string(core.StageSynthesize))

	if !session.ResearchComplete() {
		return core.ErrState(core.CodeInvalidState,
			fmt.Sprintf("synthesis requires all research outputs: have %d of %d",
				len(session.Outputs), len(session.Analysts)))
	}

	outputs := session.OrderedOutputs()
	req := core.DefaultCompletionRequest()
	req.System = synthesisSystemPrompt
	req.Prompt = synthesisPrompt(session.Topic, outputs)

	result, err := n.backend.Complete(ctx, req)
	if err != nil {
		return core.ErrExecution(core.CodeBackendFailed, "report synthesis failed").WithCause(err)
	}
	if result.Text == "" {
		return core.ErrExecution(core.CodeBackendFailed, "report synthesis returned empty text")
	}

	report := result.Text
	if session.DegradedCount() > 0 {
		report = appendCoverageGaps(report, outputs)
	}

	log.Info("report synthesized",
		"contributions", len(outputs),
		"degraded", session.DegradedCount())
	return commit(ctx, core.ReportDelta(report), core.StageDone)
}

// appendCoverageGaps appends a section naming every analyst whose
// research task failed. The synthesis prompt asks the model to
// acknowledge the gaps, but model output is untrusted: the final report
// names them whether or not the model complied.
func appendCoverageGaps(report string, outputs []core.AnalystOutput) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(report, "\n"))
	sb.WriteString("\n\n## Coverage gaps\n\n")
	sb.WriteString("The following analyst contributions were unavailable and are not reflected above:\n\n")
	for _, out := range outputs {
		if !out.Degraded {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", out.Analyst.Name, out.Analyst.Focus, out.Reason)
	}
	return sb.String()
}
