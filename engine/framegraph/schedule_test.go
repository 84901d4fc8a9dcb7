package framegraph

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func schedule(t *testing.T, fg *FrameGraph) *FrameGraphSchedule {
	t.Helper()
	s, err := ComputeSchedule(fg)
	require.NoError(t, err)
	return s
}

// barrierFor returns the barrier whose destination is the given usage.
func barrierFor(t *testing.T, s *FrameGraphSchedule, dst ResourceUsageHandle) (uint32, Barrier) {
	t.Helper()
	for i, b := range s.Barriers {
		if b.Dst.Usage == dst {
			return uint32(i), b
		}
	}
	require.FailNow(t, "no barrier", "no barrier targets %s", dst)
	return 0, Barrier{}
}

func eventsOf(s *FrameGraphSchedule, barrier uint32) []BarrierEvent {
	var out []BarrierEvent
	for _, e := range s.BarrierEvents {
		if e.BarrierHandle == barrier {
			out = append(out, e)
		}
	}
	return out
}

func TestComputeSchedule_Deterministic(t *testing.T) {
	a := schedule(t, recordDeferredFrame(t).graph)
	b := schedule(t, recordDeferredFrame(t).graph)
	assert.Equal(t, a, b)
}

func TestComputeSchedule_Queue0SkipsPrunedPasses(t *testing.T) {
	f := recordDeferredFrame(t)
	s := schedule(t, f.graph)
	assert.Equal(t, []RenderPassHandle{f.shadow, f.gbuffer, f.lighting, f.histogram, f.present}, s.Queue0)

	for _, b := range s.Barriers {
		assert.NotEqual(t, f.pruneMe, b.Src.RenderPass)
		assert.NotEqual(t, f.pruneMe, b.Dst.RenderPass)
	}
}

func TestComputeSchedule_AdjacentPassesUseImmediateBarrier(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("P0", false)
	p1 := b.CreateRenderPass("P1", true)
	b.CreateRenderPass("P2", true)

	created := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	read := b.ReadTexture(p1, created, fragmentRead)
	require.NoError(t, b.Build())
	s := schedule(t, fg)

	handle, barrier := barrierFor(t, s, read)
	assert.Equal(t, created, barrier.Src.Usage)
	assert.Equal(t, []BarrierEvent{{Type: ImmediateAfter, BarrierHandle: handle, RenderPass: p0}}, eventsOf(s, handle))
}

func TestComputeSchedule_PassInBetweenSplitsBarrier(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("P0", false)
	b.CreateRenderPass("P2", true)
	p1 := b.CreateRenderPass("P1", true)

	created := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	read := b.ReadTexture(p1, created, fragmentRead)
	require.NoError(t, b.Build())
	s := schedule(t, fg)

	handle, _ := barrierFor(t, s, read)
	assert.Equal(t, []BarrierEvent{
		{Type: SplitBegin, BarrierHandle: handle, RenderPass: p0},
		{Type: SplitEnd, BarrierHandle: handle, RenderPass: p1},
	}, eventsOf(s, handle))
	assert.Equal(t, 1, s.SplitBarrierCount())
}

func TestComputeSchedule_PrunedPassDoesNotSplit(t *testing.T) {
	f := recordDeferredFrame(t)
	fg := f.graph
	s := schedule(t, fg)

	// GBuffer and Lighting are recorded around PruneMe but run back to back.
	albedoRead := fg.RenderPasses[f.lighting].ResourceUsageHandles[0]
	handle, barrier := barrierFor(t, s, albedoRead)
	assert.Equal(t, f.gbuffer, barrier.Src.RenderPass)
	assert.Equal(t, []BarrierEvent{{Type: ImmediateAfter, BarrierHandle: handle, RenderPass: f.gbuffer}}, eventsOf(s, handle))
}

func TestComputeSchedule_SamePassUsesImmediateBefore(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Upload", false)
	p1 := b.CreateRenderPass("Present", true)

	created := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	written := b.WriteTexture(p0, created, transferWrite)
	b.ReadTexture(p1, written, fragmentRead)
	require.NoError(t, b.Build())
	s := schedule(t, fg)

	handle, barrier := barrierFor(t, s, written)
	assert.Equal(t, created, barrier.Src.Usage)
	assert.Equal(t, []BarrierEvent{{Type: ImmediateBefore, BarrierHandle: handle, RenderPass: p0}}, eventsOf(s, handle))
}

func TestComputeSchedule_InitialTransition(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("P0", true)
	created := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	require.NoError(t, b.Build())
	s := schedule(t, fg)

	require.Len(t, s.Barriers, 1)
	barrier := s.Barriers[0]
	assert.Equal(t, metadata.InitialResourceAccess(), barrier.Src.Access)
	assert.Equal(t, p0, barrier.Src.RenderPass)
	assert.Equal(t, created, barrier.Dst.Usage)
	assert.Equal(t, colorWrite.ToResourceAccess(), barrier.Dst.Access)
	assert.Equal(t, []BarrierEvent{{Type: ImmediateBefore, BarrierHandle: 0, RenderPass: p0}}, s.BarrierEvents)
}

func TestComputeSchedule_MergesConsecutiveReaders(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Producer", false)
	p1 := b.CreateRenderPass("ReaderA", true)
	p2 := b.CreateRenderPass("ReaderB", true)

	created := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	readA := b.ReadTexture(p1, created, fragmentRead)
	readB := b.ReadTexture(p2, created, computeRead)
	require.NoError(t, b.Build())
	s := schedule(t, fg)

	// initial -> create, create -> both readers
	require.Len(t, s.Barriers, 2)
	_, barrier := barrierFor(t, s, readA)
	assert.Equal(t, fragmentRead.StageMask|computeRead.StageMask, barrier.Dst.Access.StageMask)
	assert.Equal(t, fragmentRead.AccessMask|computeRead.AccessMask, barrier.Dst.Access.AccessMask)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, barrier.Dst.Access.ImageLayout)
	for _, b := range s.Barriers {
		assert.NotEqual(t, readB, b.Dst.Usage)
	}
}

func TestComputeSchedule_MergesEveryConsecutiveReader(t *testing.T) {
	vertexRead := metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit),
		AccessMask:  vk.AccessFlags(vk.AccessInputAttachmentReadBit),
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}

	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Producer", false)
	p1 := b.CreateRenderPass("ReaderA", true)
	p2 := b.CreateRenderPass("ReaderB", true)
	p3 := b.CreateRenderPass("ReaderC", true)

	created := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	readA := b.ReadTexture(p1, created, fragmentRead)
	b.ReadTexture(p2, created, computeRead)
	b.ReadTexture(p3, created, vertexRead)
	require.NoError(t, b.Build())
	s := schedule(t, fg)

	require.Len(t, s.Barriers, 2)
	_, barrier := barrierFor(t, s, readA)
	assert.Equal(t, fragmentRead.StageMask|computeRead.StageMask|vertexRead.StageMask, barrier.Dst.Access.StageMask)
	assert.Equal(t, fragmentRead.AccessMask|computeRead.AccessMask|vertexRead.AccessMask, barrier.Dst.Access.AccessMask)
	assert.Equal(t, p1, barrier.Dst.RenderPass)
}

func TestComputeSchedule_ReadersWithDifferentLayouts(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Producer", false)
	p1 := b.CreateRenderPass("ReaderA", true)
	p2 := b.CreateRenderPass("ReaderB", true)

	created := b.CreateTexture(p0, "T", colorTarget(), colorWrite)
	b.ReadTexture(p1, created, fragmentRead)
	b.ReadTexture(p2, created, generalRead)
	require.NoError(t, b.Build())

	_, err := ComputeSchedule(fg)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestComputeSchedule_BuffersIgnoreLayouts(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Simulate", false)
	p1 := b.CreateRenderPass("Integrate", false)
	p2 := b.CreateRenderPass("Draw", true)

	created := b.CreateBuffer(p0, "Particles", histogramBuffer(), storageWrite)
	written := b.WriteBuffer(p1, created, storageWrite)
	b.ReadBuffer(p2, written, uniformRead)
	require.NoError(t, b.Build())
	s := schedule(t, fg)

	assert.Len(t, s.Barriers, 3)
	for _, barrier := range s.Barriers {
		assert.False(t, barrier.Resource.IsTexture())
	}
}

func TestComputeSchedule_SameLayoutDifferentAccess(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Opaque", false)
	p1 := b.CreateRenderPass("Transparent", true)

	created := b.CreateTexture(p0, "HDR", colorTarget(), colorWrite)
	b.WriteTexture(p1, created, colorBlend)
	require.NoError(t, b.Build())

	_, err := ComputeSchedule(fg)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestComputeSchedule_SameLayoutSameAccess(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	p0 := b.CreateRenderPass("Clear", false)
	p1 := b.CreateRenderPass("Draw", false)
	p2 := b.CreateRenderPass("Present", true)

	created := b.CreateTexture(p0, "HDR", colorTarget(), colorWrite)
	written := b.WriteTexture(p1, created, colorWrite)
	b.ReadTexture(p2, written, fragmentRead)
	require.NoError(t, b.Build())

	s, err := ComputeSchedule(fg)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
	assert.Nil(t, s)
}

func TestComputeSchedule_ReadBeforeProduce(t *testing.T) {
	fg := New()
	b := NewBuilder(fg)
	reader := b.CreateRenderPass("Reader", true)
	writer := b.CreateRenderPass("Writer", false)

	created := b.CreateTexture(writer, "T", colorTarget(), colorWrite)
	b.ReadTexture(reader, created, fragmentRead)
	require.NoError(t, b.Build())

	_, err := ComputeSchedule(fg)
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestComputeSchedule_EventsSorted(t *testing.T) {
	s := schedule(t, recordDeferredFrame(t).graph)
	for i := 1; i < len(s.BarrierEvents); i++ {
		prev, cur := s.BarrierEvents[i-1], s.BarrierEvents[i]
		require.LessOrEqual(t, prev.RenderPass, cur.RenderPass)
		if prev.RenderPass == cur.RenderPass {
			assert.False(t, !prev.Type.ExecutesBeforePass() && cur.Type.ExecutesBeforePass(),
				"after-pass event %d precedes before-pass event %d", i-1, i)
		}
	}
}

func TestGetBarriersToExecute_MatchesLinearFilter(t *testing.T) {
	f := recordDeferredFrame(t)
	s := schedule(t, f.graph)
	require.NotEmpty(t, s.BarrierEvents)

	for pass := range f.graph.RenderPasses {
		for _, before := range []bool{true, false} {
			var want []BarrierEvent
			for _, e := range s.BarrierEvents {
				if e.RenderPass == RenderPassHandle(pass) && e.Type.ExecutesBeforePass() == before {
					want = append(want, e)
				}
			}
			got := GetBarriersToExecute(s, RenderPassHandle(pass), before)
			assert.Equal(t, want, got, "pass %d before=%t", pass, before)
		}
	}

	assert.Nil(t, GetBarriersToExecute(s, f.pruneMe, true))
	assert.Nil(t, GetBarriersToExecute(s, InvalidRenderPassHandle, false))
}

func TestComputeSchedule_EveryBarrierHasMatchingEvents(t *testing.T) {
	s := schedule(t, recordDeferredFrame(t).graph)
	for i := range s.Barriers {
		events := eventsOf(s, uint32(i))
		switch len(events) {
		case 1:
			assert.Contains(t, []BarrierType{ImmediateBefore, ImmediateAfter}, events[0].Type)
		case 2:
			assert.Equal(t, SplitBegin, events[0].Type)
			assert.Equal(t, SplitEnd, events[1].Type)
			assert.Less(t, events[0].RenderPass, events[1].RenderPass)
		default:
			t.Fatalf("barrier %d has %d events", i, len(events))
		}
	}
}
