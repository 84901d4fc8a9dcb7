package framegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToDAG_Edges(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Producer", false)
	p1 := b.CreateRenderPass("Blend", false)
	p2 := b.CreateRenderPass("Present", true)

	created := b.CreateTexture(p0, "Color", colorTarget(), colorWrite) // node 0
	written := b.WriteTexture(p1, created, colorBlend)                 // node 1
	read := b.ReadTexture(p2, written, fragmentRead)                   // node 2
	require.NoError(t, b.Err())

	dag, roots, err := ConvertToDAG(fg)
	require.NoError(t, err)
	require.Len(t, dag.Nodes, 6)
	assert.Equal(t, uint32(3), dag.UsageCount)
	assert.Equal(t, []uint32{5}, roots)

	assert.Equal(t, []uint32{dag.RenderPassNode(p0)}, dag.Nodes[created].Children)
	assert.Equal(t, []uint32{dag.RenderPassNode(p1), uint32(created)}, dag.Nodes[written].Children)
	assert.Equal(t, []uint32{uint32(written)}, dag.Nodes[read].Children)
	assert.Equal(t, []uint32{uint32(read)}, dag.Nodes[dag.RenderPassNode(p2)].Children)
	assert.Empty(t, dag.Nodes[dag.RenderPassNode(p0)].Children)
}

func TestConvertToDAG_UnknownUsageType(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p := b.CreateRenderPass("P", true)
	u := b.CreateTexture(p, "T", colorTarget(), colorWrite)
	require.NoError(t, b.Err())

	fg.ResourceUsages[u].Type = UsageType(4)
	assert.ErrorIs(t, b.Build(), ErrUnknownUsageType)
}

func TestConvertToDAG_InvalidParent(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("P0", false)
	p1 := b.CreateRenderPass("P1", true)
	u := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	r := b.ReadTexture(p1, u, fragmentRead)
	require.NoError(t, b.Err())

	fg.ResourceUsages[r].Parent = InvalidResourceUsageHandle
	assert.ErrorIs(t, b.Build(), ErrInvalidHandle)
}

func TestFindCycle(t *testing.T) {
	grid := []struct {
		name  string
		edges [][2]uint32
		nodes int
		roots []uint32
		want  []uint32
	}{
		{name: "chain", nodes: 3, edges: [][2]uint32{{0, 1}, {1, 2}}, roots: []uint32{0}},
		{name: "diamond", nodes: 4, edges: [][2]uint32{{0, 1}, {0, 2}, {1, 3}, {2, 3}}, roots: []uint32{0}},
		{name: "self loop", nodes: 1, edges: [][2]uint32{{0, 0}}, roots: []uint32{0}, want: []uint32{0, 0}},
		{name: "triangle", nodes: 3, edges: [][2]uint32{{0, 1}, {1, 2}, {2, 0}}, roots: []uint32{0}, want: []uint32{0, 1, 2, 0}},
		{name: "cycle below root", nodes: 4, edges: [][2]uint32{{0, 1}, {1, 2}, {2, 3}, {3, 1}}, roots: []uint32{0}, want: []uint32{1, 2, 3, 1}},
		{name: "unreachable cycle", nodes: 4, edges: [][2]uint32{{0, 1}, {2, 3}, {3, 2}}, roots: []uint32{0}},
		{name: "shared subtree from two roots", nodes: 4, edges: [][2]uint32{{0, 2}, {1, 2}, {2, 3}}, roots: []uint32{0, 1}},
	}

	for _, tc := range grid {
		t.Run(tc.name, func(t *testing.T) {
			dag := &DirectedAcyclicGraph{Nodes: make([]DAGNode, tc.nodes)}
			for _, e := range tc.edges {
				dag.addEdge(e[0], e[1])
			}
			assert.Equal(t, tc.want, dag.FindCycle(tc.roots))
			assert.Equal(t, tc.want != nil, dag.HasCycles(tc.roots))
		})
	}
}

func TestComputeTransitiveClosure(t *testing.T) {
	dag := &DirectedAcyclicGraph{Nodes: make([]DAGNode, 6)}
	dag.addEdge(0, 1)
	dag.addEdge(0, 2)
	dag.addEdge(1, 3)
	dag.addEdge(2, 3)
	dag.addEdge(5, 4)

	closure, err := dag.ComputeTransitiveClosure([]uint32{0})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3}, closure)

	closure, err = dag.ComputeTransitiveClosure([]uint32{5, 0, 5})
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 0, 4, 1, 2, 3}, closure)
}

func TestBuild_RejectsPassReadingItsOwnOutput(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	a := b.CreateRenderPass("Feedback", true)
	created := b.CreateTexture(a, "T", colorTarget(), colorWrite)
	b.ReadTexture(a, created, fragmentRead)

	err := b.Build()
	require.ErrorIs(t, err, ErrCycle)
	cerr := AsCycleError(err)
	require.NotNil(t, cerr)
	// pass node 2 -> read usage 1 -> created usage 0 -> pass node 2
	assert.Equal(t, []uint32{2, 1, 0, 2}, cerr.Cycle)

	_, err = ComputeSchedule(fg)
	assert.ErrorIs(t, err, ErrNotBuilt)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestBuild_RejectsIndirectCycle(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	a := b.CreateRenderPass("A", true)
	bp := b.CreateRenderPass("B", false)

	t0 := b.CreateTexture(a, "T", colorTarget(), colorWrite)
	b.ReadTexture(bp, t0, fragmentRead)
	u := b.CreateTexture(bp, "U", colorTarget(), colorWrite)
	b.ReadTexture(a, u, fragmentRead)
	require.NoError(t, b.Err())

	err := b.Build()
	assert.ErrorIs(t, err, ErrCycle)
	assert.NotNil(t, AsCycleError(err))
	assert.Nil(t, AsCycleError(ErrNoSideEffects))
}

func TestBuild_PrunesOrphanPass(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	q := b.CreateRenderPass("Producer", false)
	o := b.CreateRenderPass("Orphan", false)
	p := b.CreateRenderPass("Present", true)

	produced := b.CreateTexture(q, "Color", colorTarget(), colorWrite)
	orphaned := b.CreateTexture(o, "Nobody Reads Me", colorTarget(), colorWrite)
	read := b.ReadTexture(p, produced, fragmentRead)
	require.NoError(t, b.Build())

	assert.True(t, fg.RenderPasses[p].IsUsed)
	assert.True(t, fg.RenderPasses[q].IsUsed)
	assert.False(t, fg.RenderPasses[o].IsUsed)

	assert.True(t, fg.ResourceUsages[produced].IsUsed)
	assert.True(t, fg.ResourceUsages[read].IsUsed)
	assert.False(t, fg.ResourceUsages[orphaned].IsUsed)

	color, _ := fg.GetResourceFromUsage(produced)
	orphan, _ := fg.GetResourceFromUsage(orphaned)
	assert.True(t, color.IsUsed)
	assert.False(t, orphan.IsUsed)
}

func TestBuild_MarksWritesOfKeptPasses(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Clear", false)
	p1 := b.CreateRenderPass("Present", true)

	created := b.CreateTexture(p0, "Color", colorTarget(), colorWrite)
	written := b.WriteTexture(p0, created, transferWrite)
	b.ReadTexture(p1, written, fragmentRead)
	scratch := b.CreateTexture(p1, "Scratch", colorTarget(), colorWrite)
	require.NoError(t, b.Build())

	assert.True(t, fg.ResourceUsages[created].IsUsed)
	assert.True(t, fg.ResourceUsages[written].IsUsed)
	assert.True(t, fg.ResourceUsages[scratch].IsUsed, "outputs of a side effect pass are kept")
}

func TestBuild_RecomputesFlags(t *testing.T) {
	f := recordDeferredFrame(t)
	fg := f.graph
	require.False(t, fg.RenderPasses[f.pruneMe].IsUsed)

	for i := range fg.RenderPasses {
		fg.RenderPasses[i].IsUsed = true
	}
	require.NoError(t, NewBuilder(fg).Build())
	assert.False(t, fg.RenderPasses[f.pruneMe].IsUsed)
	assert.True(t, fg.RenderPasses[f.shadow].IsUsed)
}
