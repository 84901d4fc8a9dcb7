package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

var (
	colorWrite = metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		AccessMask:  vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
	}
	fragmentRead = metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		AccessMask:  vk.AccessFlags(vk.AccessShaderReadBit),
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	storageWrite = metadata.GPUBufferAccess{
		StageMask:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		AccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
	}
	uniformRead = metadata.GPUBufferAccess{
		StageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		AccessMask: vk.AccessFlags(vk.AccessUniformReadBit),
	}
)

type testFrame struct {
	graph                      *framegraph.FrameGraph
	schedule                   *framegraph.FrameGraphSchedule
	scene, overlay, out, debug framegraph.RenderPassHandle
}

// recordTestFrame records scene -> overlay -> out where out reads the scene
// outputs two passes later, plus a debug pass that gets pruned.
func recordTestFrame(t *testing.T) testFrame {
	t.Helper()
	fg := framegraph.New()
	b := framegraph.NewBuilder(fg)
	f := testFrame{graph: fg}

	color := metadata.DefaultGPUTextureProperties(32, 32, vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit))
	lights := metadata.DefaultGPUBufferProperties(256, 4, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit))

	f.scene = b.CreateRenderPass("Scene", false)
	sceneColor := b.CreateTexture(f.scene, "Scene Color", color, colorWrite)
	lightList := b.CreateBuffer(f.scene, "Lights", lights, storageWrite)

	f.overlay = b.CreateRenderPass("Overlay", false)
	overlayColor := b.CreateTexture(f.overlay, "Overlay Color", color, colorWrite)

	f.out = b.CreateRenderPass("Out", true)
	b.ReadTexture(f.out, sceneColor, fragmentRead)
	b.ReadTexture(f.out, overlayColor, fragmentRead)
	b.ReadBuffer(f.out, lightList, uniformRead)

	f.debug = b.CreateRenderPass("Debug", false)
	b.ReadTexture(f.debug, sceneColor, fragmentRead)
	b.CreateTexture(f.debug, "Debug Color", color, colorWrite)

	require.NoError(t, b.Build())
	schedule, err := framegraph.ComputeSchedule(fg)
	require.NoError(t, err)
	f.schedule = schedule
	return f
}

func newTestResources(t *testing.T, fg *framegraph.FrameGraph) (*FrameGraphResources, *DryRunAllocator) {
	t.Helper()
	allocator := &DryRunAllocator{}
	resources, err := NewFrameGraphResources(allocator)
	require.NoError(t, err)
	require.NoError(t, resources.Allocate(fg))
	return resources, allocator
}

func TestFrameGraphResources_Allocate(t *testing.T) {
	f := recordTestFrame(t)
	resources, allocator := newTestResources(t, f.graph)

	assert.Equal(t, EventCount, allocator.Events)
	assert.Equal(t, 2, allocator.Images, "the debug texture is not allocated")
	assert.Equal(t, 1, allocator.Buffers)
	// scene color and overlay color, each created and read once by a kept pass
	assert.Equal(t, 4, allocator.ImageViews)
	assert.Equal(t, uint64(1024), allocator.BufferBytes)
	assert.Equal(t, uint64(2*32*32), allocator.TexelCount)

	unused := framegraph.NewResourceHandle(2, true)
	_, err := resources.Image(unused)
	assert.True(t, errors.Is(err, framegraph.ErrInvalidHandle))
	_, err = resources.Buffer(framegraph.NewResourceHandle(0, true))
	assert.True(t, errors.Is(err, framegraph.ErrInvalidHandle))

	resources.Release()
	assert.Equal(t, 0, allocator.Images)
	assert.Equal(t, 0, allocator.Buffers)
	assert.Equal(t, 0, allocator.ImageViews)
	assert.Equal(t, EventCount, allocator.Events)

	resources.Destroy()
	assert.Equal(t, 0, allocator.Events)
}

type failingAllocator struct {
	DryRunAllocator
	failImage int
}

var errOutOfMemory = errors.New("out of device memory")

func (a *failingAllocator) CreateImage(name string, properties metadata.GPUTextureProperties) (*VulkanImage, error) {
	if a.Images == a.failImage {
		return nil, errOutOfMemory
	}
	return a.DryRunAllocator.CreateImage(name, properties)
}

func TestFrameGraphResources_AllocateFailureReleases(t *testing.T) {
	f := recordTestFrame(t)
	allocator := &failingAllocator{failImage: 1}
	resources, err := NewFrameGraphResources(allocator)
	require.NoError(t, err)

	err = resources.Allocate(f.graph)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errOutOfMemory))
	assert.Equal(t, 0, allocator.Images)
	assert.Equal(t, 0, allocator.Buffers)
}

func TestPlanFrameGraphBarriers_BeforeFirstPass(t *testing.T) {
	f := recordTestFrame(t)
	resources, _ := newTestResources(t, f.graph)

	commands, err := PlanFrameGraphBarriers(f.schedule, f.graph, resources, f.scene, true)
	require.NoError(t, err)
	require.Len(t, commands, 2)

	image := commands[0]
	assert.Equal(t, PipelineBarrierCommand, image.Kind)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), image.SrcStage)
	assert.Equal(t, colorWrite.StageMask, image.DstStage)
	require.Len(t, image.ImageBarriers, 1)
	assert.Empty(t, image.BufferBarriers)
	assert.Equal(t, vk.ImageLayoutUndefined, image.ImageBarriers[0].OldLayout)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, image.ImageBarriers[0].NewLayout)
	assert.Equal(t, vk.AccessFlags(0), image.ImageBarriers[0].SrcAccessMask)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), image.ImageBarriers[0].SubresourceRange.AspectMask)

	buffer := commands[1]
	assert.Equal(t, PipelineBarrierCommand, buffer.Kind)
	require.Len(t, buffer.BufferBarriers, 1)
	assert.Equal(t, vk.DeviceSize(1024), buffer.BufferBarriers[0].Size)
	assert.Equal(t, storageWrite.AccessMask, buffer.BufferBarriers[0].DstAccessMask)
}

func TestPlanFrameGraphBarriers_SplitBarrier(t *testing.T) {
	f := recordTestFrame(t)
	resources, _ := newTestResources(t, f.graph)

	after, err := PlanFrameGraphBarriers(f.schedule, f.graph, resources, f.scene, false)
	require.NoError(t, err)
	kinds := make([]BarrierCommandKind, 0, len(after))
	for _, c := range after {
		kinds = append(kinds, c.Kind)
	}
	// scene color and lights are read two passes later, overlay color starts
	// its life after the first pass
	assert.Equal(t, []BarrierCommandKind{SetEventCommand, PipelineBarrierCommand, SetEventCommand}, kinds)
	assert.Empty(t, after[0].ImageBarriers)
	assert.Equal(t, colorWrite.StageMask, after[0].SrcStage)

	before, err := PlanFrameGraphBarriers(f.schedule, f.graph, resources, f.out, true)
	require.NoError(t, err)
	require.Len(t, before, 2)
	for _, c := range before {
		assert.Equal(t, WaitEventsCommand, c.Kind)
	}
	assert.Equal(t, after[0].Barrier, before[0].Barrier)
	assert.Equal(t, after[2].Barrier, before[1].Barrier)
	require.Len(t, before[0].ImageBarriers, 1)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, before[0].ImageBarriers[0].OldLayout)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, before[0].ImageBarriers[0].NewLayout)
	require.Len(t, before[1].BufferBarriers, 1)

	none, err := PlanFrameGraphBarriers(f.schedule, f.graph, resources, f.out, false)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPlanFrameGraphBarriers_EventPoolExhausted(t *testing.T) {
	f := recordTestFrame(t)
	resources, _ := newTestResources(t, f.graph)
	resources.Events = resources.Events[:1]

	_, err := PlanFrameGraphBarriers(f.schedule, f.graph, resources, f.scene, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEventPoolExhausted))
}

func TestRecordFrameGraph(t *testing.T) {
	f := recordTestFrame(t)
	resources, _ := newTestResources(t, f.graph)

	var passes []string
	counter := &CommandCounter{}
	err := RecordFrameGraph(counter, f.schedule, f.graph, resources,
		func(_ framegraph.RenderPassHandle, renderPass *framegraph.RenderPass) error {
			passes = append(passes, renderPass.DebugName)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"Scene", "Overlay", "Out"}, passes)
	assert.Equal(t, 4, counter.PipelineBarrierCount)
	assert.Equal(t, 2, counter.SetEventCount)
	assert.Equal(t, 2, counter.WaitEventCount)
	assert.Equal(t, 4, counter.ImageBarrierCount)
	assert.Equal(t, 2, counter.BufferBarrierCount)
	assert.Equal(t, f.schedule.SplitBarrierCount(), counter.SetEventCount)
}

func TestRecordFrameGraph_PassError(t *testing.T) {
	f := recordTestFrame(t)
	resources, _ := newTestResources(t, f.graph)

	errPass := errors.New("pipeline missing")
	err := RecordFrameGraph(&CommandCounter{}, f.schedule, f.graph, resources,
		func(h framegraph.RenderPassHandle, _ *framegraph.RenderPass) error {
			if h == f.overlay {
				return errPass
			}
			return nil
		})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errPass))
	assert.Contains(t, err.Error(), "Overlay")
}

func TestPlanPass(t *testing.T) {
	f := recordTestFrame(t)
	resources, _ := newTestResources(t, f.graph)

	plan, err := PlanPass(f.schedule, f.graph, resources, f.out)
	require.NoError(t, err)
	assert.Equal(t, f.out, plan.Pass)
	assert.Len(t, plan.Before, 2)
	assert.Empty(t, plan.After)

	counter := &CommandCounter{}
	require.NoError(t, ReplayFrameGraph(counter, f.graph, resources, []PassCommands{plan}, nil))
	assert.Equal(t, 2, counter.WaitEventCount)
	assert.Zero(t, counter.SetEventCount)

	resources.Events = nil
	_, err = PlanPass(f.schedule, f.graph, resources, f.out)
	assert.True(t, errors.Is(err, ErrEventPoolExhausted))
}

func TestRecorderGroup(t *testing.T) {
	f := recordTestFrame(t)
	resources, _ := newTestResources(t, f.graph)

	first, second := &CommandCounter{}, &CommandCounter{}
	require.NoError(t, RecordFrameGraph(RecorderGroup{first, second}, f.schedule, f.graph, resources, nil))
	assert.Equal(t, *first, *second)
	assert.Equal(t, 4, second.PipelineBarrierCount)
	assert.Equal(t, 2, second.SetEventCount)
	assert.Equal(t, 2, second.WaitEventCount)
}
