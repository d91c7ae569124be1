// Package service exposes the report workflow as a small stateless
// facade. All durable state lives in the checkpoint store; a service
// instance can be recreated at any time without losing sessions.
package service

import (
	"context"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/export"
	"github.com/verity-labs/chorus/internal/logging"
	"github.com/verity-labs/chorus/internal/workflow"
)

// ReportStatus is the externally visible view of a session.
type ReportStatus struct {
	SessionID        string              `json:"session_id"`
	Topic            string              `json:"topic"`
	Status           core.SessionStatus  `json:"status"`
	Stage            core.Stage          `json:"stage"`
	AwaitingFeedback bool                `json:"awaiting_feedback"`
	Analysts         []core.Analyst      `json:"analysts,omitempty"`
	RegenCycles      int                 `json:"regen_cycles"`
	Degraded         int                 `json:"degraded_contributions"`
	FinalReport      string              `json:"final_report,omitempty"`
	Artifacts        []export.Artifact   `json:"artifacts,omitempty"`
}

// ReportService coordinates the session runner and the artifact
// compiler behind one API for the HTTP layer and the CLI.
type ReportService struct {
	runner   *workflow.Runner
	compiler *export.Compiler
	logger   *logging.Logger
}

// NewReportService wires the facade.
func NewReportService(runner *workflow.Runner, compiler *export.Compiler, logger *logging.Logger) *ReportService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReportService{
		runner:   runner,
		compiler: compiler,
		logger:   logger,
	}
}

// StartReportGeneration opens a session and runs it up to the feedback
// gate.
func (s *ReportService) StartReportGeneration(ctx context.Context, topic string, maxAnalysts int) (*ReportStatus, error) {
	s.logger.WithTopic(topic).Info("starting report generation", "max_analysts", maxAnalysts)

	session, err := s.runner.Start(ctx, topic, maxAnalysts)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// SubmitFeedback delivers human feedback to a suspended session and
// drives it forward. Artifact compilation is deferred to the status
// path so an export failure never masks a finished workflow.
func (s *ReportService) SubmitFeedback(ctx context.Context, id core.SessionID, feedback string) (*ReportStatus, error) {
	s.logger.WithSession(string(id)).Info("feedback received")

	session, err := s.runner.Resume(ctx, id, feedback)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// GetReportStatus reads the session and, once it has completed, lazily
// compiles the artifacts. A failed compile surfaces as a retryable
// export error; the next status call tries again without re-running
// the workflow.
func (s *ReportService) GetReportStatus(ctx context.Context, id core.SessionID) (*ReportStatus, error) {
	session, err := s.runner.Status(ctx, id)
	if err != nil {
		return nil, err
	}

	status := s.view(session)
	if session.Terminal() {
		artifacts, err := s.CompileArtifacts(session)
		if err != nil {
			return nil, err
		}
		status.Artifacts = artifacts
	}
	return status, nil
}

// FetchArtifact resolves an artifact file name to its path.
func (s *ReportService) FetchArtifact(ctx context.Context, name string) (string, error) {
	return s.compiler.FindArtifact(name)
}

// UpdateFeedbackVocabulary swaps the affirmative-term list at runtime,
// for live config reload.
func (s *ReportService) UpdateFeedbackVocabulary(terms []string) {
	s.runner.SetClassifier(workflow.NewClassifier(terms))
}

// ListSessions returns all known session IDs.
func (s *ReportService) ListSessions(ctx context.Context) ([]core.SessionID, error) {
	return s.runner.List(ctx)
}

// CompileArtifacts renders every artifact for a finished session.
func (s *ReportService) CompileArtifacts(session *core.Session) ([]export.Artifact, error) {
	if artifacts, ok := s.compiler.Artifacts(session); ok {
		return artifacts, nil
	}
	artifacts, err := s.compiler.CompileAll(session)
	if err != nil {
		s.logger.WithSession(string(session.ID)).Error("artifact compilation failed", "error", err)
		return nil, err
	}
	return artifacts, nil
}

func (s *ReportService) view(session *core.Session) *ReportStatus {
	return &ReportStatus{
		SessionID:        string(session.ID),
		Topic:            session.Topic,
		Status:           session.Status(),
		Stage:            session.CurrentStage,
		AwaitingFeedback: session.Suspended(),
		Analysts:         session.Analysts,
		RegenCycles:      session.RegenCycles,
		Degraded:         session.DegradedCount(),
		FinalReport:      session.FinalReport,
	}
}
