package workflow

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/logging"
)

// Options configures a Runner.
type Options struct {
	// Classifier decides approval vs. revision at the review gate.
	// Nil falls back to the default affirmative vocabulary.
	Classifier *Classifier

	Logger *logging.Logger

	// GenerationAttempts bounds roster-generation retries.
	GenerationAttempts int

	// ResearchConcurrency caps concurrent research tasks; zero means
	// one task per analyst.
	ResearchConcurrency int
}

// Runner drives sessions through the stage graph, checkpointing after
// every transition. All methods are safe for concurrent use; calls for
// the same session are serialized, calls for different sessions are
// independent.
type Runner struct {
	graph  *Graph
	store  core.CheckpointStore
	nodes  *Nodes
	logger *logging.Logger

	// classifier is swappable at runtime for config reloads.
	classifier atomic.Pointer[Classifier]

	// locks grows with sessions and is never pruned, matching the
	// store's no-garbage-collection stance on abandoned sessions.
	mu    sync.Mutex
	locks map[core.SessionID]*sync.Mutex
}

// NewRunner wires the stage graph for report generation.
func NewRunner(store core.CheckpointStore, backend core.ModelBackend, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = NewClassifier(nil)
	}

	nodes := NewNodes(backend, logger, opts.GenerationAttempts, opts.ResearchConcurrency)
	graph, err := NewGraph(GraphSpec{
		Entry:   core.StageGenerateAnalysts,
		Suspend: core.StageHumanFeedback,
		Nodes: map[core.Stage]NodeFunc{
			core.StageGenerateAnalysts: nodes.GenerateAnalysts,
			core.StageHumanFeedback:    suspendNode,
			core.StageResearch:         nodes.Research,
			core.StageSynthesize:       nodes.Synthesize,
		},
		Edges: map[core.Stage]core.Stage{
			core.StageGenerateAnalysts: core.StageHumanFeedback,
			core.StageHumanFeedback:    core.StageResearch,
			core.StageResearch:         core.StageSynthesize,
			core.StageSynthesize:       core.StageDone,
		},
	})
	if err != nil {
		return nil, err
	}

	r := &Runner{
		graph:  graph,
		store:  store,
		nodes:  nodes,
		logger: logger,
		locks:  make(map[core.SessionID]*sync.Mutex),
	}
	r.classifier.Store(classifier)
	return r, nil
}

// SetClassifier swaps the feedback classifier, for live config reload.
func (r *Runner) SetClassifier(c *Classifier) {
	if c != nil {
		r.classifier.Store(c)
	}
}

// suspendNode marks the review gate. The runner halts before invoking
// it; it exists so the gate is a first-class stage in the graph.
func suspendNode(ctx context.Context, session *core.Session, commit CommitFunc) error {
	return nil
}

// Start creates a session, generates the analyst roster and suspends
// at the review gate. The returned session is parked there awaiting
// Resume.
func (r *Runner) Start(ctx context.Context, topic string, maxAnalysts int) (*core.Session, error) {
	id := core.SessionID(uuid.NewString())
	session := core.NewSession(id, topic, maxAnalysts)
	if err := session.Validate(); err != nil {
		return nil, err
	}

	unlock := r.lockSession(id)
	defer unlock()

	log := r.logger.WithSession(string(id)).WithTopic(topic)
	log.Info("session started", "max_analysts", maxAnalysts)

	if err := r.store.Write(ctx, session); err != nil {
		return nil, err
	}

	entry, _ := r.graph.Node(r.graph.Entry())
	if err := entry(ctx, session, r.commitFor(id)); err != nil {
		log.Error("analyst generation failed", "error", err)
		return nil, err
	}

	return r.store.Read(ctx, id)
}

// Resume delivers feedback to a suspended session and drives it
// forward. Approval runs research and synthesis to completion; a
// revision request regenerates the roster exactly once and re-suspends
// at the gate. Resuming a terminal session is a no-op that returns the
// finished session unchanged.
func (r *Runner) Resume(ctx context.Context, id core.SessionID, feedback string) (*core.Session, error) {
	unlock := r.lockSession(id)
	defer unlock()

	session, err := r.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	log := r.logger.WithSession(string(id)).WithTopic(session.Topic)

	if session.Terminal() {
		log.Info("resume on completed session ignored")
		return session, nil
	}

	switch session.CurrentStage {
	case core.StageGenerateAnalysts:
		// Interrupted before the roster landed: rebuild it and park at
		// the gate. The feedback belongs to the next Resume.
		if feedback != "" {
			log.Warn("feedback dropped, no roster to review yet", "feedback", feedback)
		}
		entry, _ := r.graph.Node(r.graph.Entry())
		if err := entry(ctx, session, r.commitFor(id)); err != nil {
			return nil, err
		}
		return r.store.Read(ctx, id)

	case core.StageHumanFeedback:
		if err := r.store.Update(ctx, id, core.FeedbackDelta(feedback), core.StageHumanFeedback); err != nil {
			return nil, err
		}
		session, err = r.store.Read(ctx, id)
		if err != nil {
			return nil, err
		}

		if !r.classifier.Load().Approves(feedback) {
			log.Info("revision requested, regenerating roster", "cycle", session.RegenCycles+1)
			generate, _ := r.graph.Node(core.StageGenerateAnalysts)
			if err := generate(ctx, session, r.commitFor(id)); err != nil {
				return nil, err
			}
			// One regeneration per resume call; the session re-suspends
			// at the gate for the next round of review.
			return r.store.Read(ctx, id)
		}

		log.Info("roster approved, starting research", "analysts", len(session.Analysts))
		return r.advance(ctx, id, core.StageResearch)

	case core.StageResearch:
		// Interrupted mid fan-out: finish the missing outputs.
		return r.advance(ctx, id, core.StageResearch)

	case core.StageSynthesize:
		return r.advance(ctx, id, core.StageSynthesize)

	default:
		return nil, core.ErrState(core.CodeInvalidState,
			"session "+string(id)+" is at unexpected stage "+string(session.CurrentStage))
	}
}

// Status returns the current session snapshot without side effects.
func (r *Runner) Status(ctx context.Context, id core.SessionID) (*core.Session, error) {
	return r.store.Read(ctx, id)
}

// List returns all checkpointed session IDs.
func (r *Runner) List(ctx context.Context) ([]core.SessionID, error) {
	return r.store.List(ctx)
}

// advance runs stages from `stage` along the approval path until the
// graph terminates, re-reading the checkpoint between stages so each
// node sees the committed state of the one before it.
func (r *Runner) advance(ctx context.Context, id core.SessionID, stage core.Stage) (*core.Session, error) {
	commit := r.commitFor(id)
	for stage != core.StageDone {
		session, err := r.store.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		node, ok := r.graph.Node(stage)
		if !ok {
			return nil, core.ErrState(core.CodeInvalidState, "no node for stage "+string(stage))
		}
		if err := node(ctx, session, commit); err != nil {
			r.logger.WithSession(string(id)).WithStage(string(stage)).Error("stage failed", "error", err)
			return nil, err
		}
		next, ok := r.graph.Next(stage)
		if !ok {
			break
		}
		stage = next
	}
	return r.store.Read(ctx, id)
}

// commitFor binds checkpoint updates to one session.
func (r *Runner) commitFor(id core.SessionID) CommitFunc {
	return func(ctx context.Context, delta core.Delta, stage core.Stage) error {
		return r.store.Update(ctx, id, delta, stage)
	}
}

// lockSession serializes operations on one session.
func (r *Runner) lockSession(id core.SessionID) func() {
	r.mu.Lock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
