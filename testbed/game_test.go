package testbed

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
)

func TestDeferredFrame(t *testing.T) {
	tg := NewTestGame()
	tg.ApplicationConfig.DumpDir = t.TempDir()

	e, err := engine.New(tg.Game)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	result, err := e.RenderFrame()
	require.NoError(t, err)

	assert.Equal(t, []string{"Shadow", "GBuffer", "Lighting", "Histogram", "Composite", "Present"}, tg.RecordedPasses())
	assert.Equal(t, 1, result.PrunedPasses)
	assert.Equal(t, 15, result.Barriers)
	// shadow map, HDR, swapchain and histogram skip at least one pass
	assert.Equal(t, 4, result.SplitBarriers)
	assert.Equal(t, 4, result.Commands.SetEventCount)
	assert.Equal(t, 4, result.Commands.WaitEventCount)
	assert.Equal(t, 11, result.Commands.PipelineBarrierCount)
	assert.FileExists(t, result.DumpDir+"/framegraph.dot")
}

func TestDeferredFrame_DOT(t *testing.T) {
	tg := NewTestGame()
	fg := framegraph.New()
	b := framegraph.NewBuilder(fg)
	require.NoError(t, tg.RecordFrame(b, 640, 360))
	require.NoError(t, b.Build())

	var out bytes.Buffer
	require.NoError(t, framegraph.WriteDOT(&out, fg))
	dot := out.String()
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "PruneMe")
	assert.Contains(t, dot, `fillcolor="#BBBBBB"`)
}
