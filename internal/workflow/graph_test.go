package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity-labs/chorus/internal/core"
)

func noopNode(ctx context.Context, session *core.Session, commit CommitFunc) error {
	return nil
}

func TestNewGraphValidWiring(t *testing.T) {
	g, err := NewGraph(GraphSpec{
		Entry:   core.StageGenerateAnalysts,
		Suspend: core.StageHumanFeedback,
		Nodes: map[core.Stage]NodeFunc{
			core.StageGenerateAnalysts: noopNode,
			core.StageHumanFeedback:    noopNode,
			core.StageResearch:         noopNode,
		},
		Edges: map[core.Stage]core.Stage{
			core.StageGenerateAnalysts: core.StageHumanFeedback,
			core.StageHumanFeedback:    core.StageResearch,
			core.StageResearch:         core.StageDone,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, core.StageGenerateAnalysts, g.Entry())
	assert.Equal(t, core.StageHumanFeedback, g.Suspend())

	next, ok := g.Next(core.StageHumanFeedback)
	require.True(t, ok)
	assert.Equal(t, core.StageResearch, next)

	_, ok = g.Node(core.StageSynthesize)
	assert.False(t, ok)
}

func TestNewGraphRejectsBadWiring(t *testing.T) {
	tests := []struct {
		name string
		spec GraphSpec
	}{
		{
			name: "invalid entry stage",
			spec: GraphSpec{
				Entry:   core.Stage("bogus"),
				Suspend: core.StageHumanFeedback,
				Nodes:   map[core.Stage]NodeFunc{core.StageGenerateAnalysts: noopNode},
			},
		},
		{
			name: "invalid suspend stage",
			spec: GraphSpec{
				Entry:   core.StageGenerateAnalysts,
				Suspend: core.Stage("nowhere"),
				Nodes:   map[core.Stage]NodeFunc{core.StageGenerateAnalysts: noopNode},
			},
		},
		{
			name: "no nodes",
			spec: GraphSpec{
				Entry:   core.StageGenerateAnalysts,
				Suspend: core.StageHumanFeedback,
			},
		},
		{
			name: "entry has no node",
			spec: GraphSpec{
				Entry:   core.StageGenerateAnalysts,
				Suspend: core.StageHumanFeedback,
				Nodes:   map[core.Stage]NodeFunc{core.StageResearch: noopNode},
			},
		},
		{
			name: "edge to unknown node",
			spec: GraphSpec{
				Entry:   core.StageGenerateAnalysts,
				Suspend: core.StageHumanFeedback,
				Nodes:   map[core.Stage]NodeFunc{core.StageGenerateAnalysts: noopNode},
				Edges:   map[core.Stage]core.Stage{core.StageGenerateAnalysts: core.StageResearch},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.spec)
			require.Error(t, err)
		})
	}
}
