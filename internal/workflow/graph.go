// Package workflow implements the report-generation stage graph and
// the session runner that drives it against a checkpoint store.
package workflow

import (
	"context"
	"fmt"

	"github.com/verity-labs/chorus/internal/core"
)

// CommitFunc persists a named-node delta together with the stage
// transition it completes. Nodes call it instead of touching the store
// so every transition is checkpointed before the next stage begins.
type CommitFunc func(ctx context.Context, delta core.Delta, stage core.Stage) error

// NodeFunc executes one stage against a session snapshot. The snapshot
// is the node's working copy; durable effects go through commit.
type NodeFunc func(ctx context.Context, session *core.Session, commit CommitFunc) error

// Graph is the directed graph of named stages with one designated
// suspend stage. Construction validates the wiring, so an unknown stage
// is an error at build time rather than a silent no-op at run time.
type Graph struct {
	entry   core.Stage
	suspend core.Stage
	nodes   map[core.Stage]NodeFunc
	edges   map[core.Stage]core.Stage
}

// GraphSpec declares the stages and edges of a graph.
type GraphSpec struct {
	Entry   core.Stage
	Suspend core.Stage
	Nodes   map[core.Stage]NodeFunc
	Edges   map[core.Stage]core.Stage
}

// NewGraph validates a spec and builds the graph.
func NewGraph(spec GraphSpec) (*Graph, error) {
	if !core.ValidStage(spec.Entry) {
		return nil, fmt.Errorf("graph entry is not a valid stage: %q", spec.Entry)
	}
	if !core.ValidStage(spec.Suspend) {
		return nil, fmt.Errorf("graph suspend point is not a valid stage: %q", spec.Suspend)
	}
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("graph has no nodes")
	}
	for stage := range spec.Nodes {
		if !core.ValidStage(stage) {
			return nil, fmt.Errorf("graph node is not a valid stage: %q", stage)
		}
	}
	if _, ok := spec.Nodes[spec.Entry]; !ok {
		return nil, fmt.Errorf("graph entry %s has no node", spec.Entry)
	}
	for from, to := range spec.Edges {
		if _, ok := spec.Nodes[from]; !ok {
			return nil, fmt.Errorf("edge source %s has no node", from)
		}
		if to != core.StageDone {
			if _, ok := spec.Nodes[to]; !ok {
				return nil, fmt.Errorf("edge target %s has no node", to)
			}
		}
	}

	return &Graph{
		entry:   spec.Entry,
		suspend: spec.Suspend,
		nodes:   spec.Nodes,
		edges:   spec.Edges,
	}, nil
}

// Entry returns the first stage of the graph.
func (g *Graph) Entry() core.Stage {
	return g.entry
}

// Suspend returns the stage at which runs halt for external input.
func (g *Graph) Suspend() core.Stage {
	return g.suspend
}

// Node returns the node function for a stage.
func (g *Graph) Node(stage core.Stage) (NodeFunc, bool) {
	fn, ok := g.nodes[stage]
	return fn, ok
}

// Next returns the stage that follows on the approval path.
func (g *Graph) Next(stage core.Stage) (core.Stage, bool) {
	next, ok := g.edges[stage]
	return next, ok
}
