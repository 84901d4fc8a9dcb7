package testbed

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

const shadowMapSize = 2048

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
	// passes seen by the backend in the last frame
	recordedPasses []string
}

var (
	colorAttachmentWrite = metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		AccessMask:  vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
	}
	colorAttachmentBlend = metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		AccessMask:  vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
	}
	depthAttachmentWrite = metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
		AccessMask:  vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
		ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	fragmentSample = metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		AccessMask:  vk.AccessFlags(vk.AccessShaderReadBit),
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	computeSample = metadata.GPUTextureAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		AccessMask:  vk.AccessFlags(vk.AccessShaderReadBit),
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	computeStorageWrite = metadata.GPUBufferAccess{
		StageMask:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		AccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
	}
	fragmentUniformRead = metadata.GPUBufferAccess{
		StageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		AccessMask: vk.AccessFlags(vk.AccessUniformReadBit),
	}
)

func NewTestGame() *TestGame {
	config := engine.DefaultApplicationConfig()
	config.Name = "Frame Graph Testbed"
	config.LogLevel = core.DebugLevel.String()

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				width:  config.ScreenWidth,
				height: config.ScreenHeight,
			},
		},
	}
	tg.FnRecordFrame = tg.RecordFrame
	tg.FnRecordPass = tg.RecordPass
	tg.FnOnResize = tg.OnResize
	return tg
}

func colorTarget(width, height uint32, format vk.Format) metadata.GPUTextureProperties {
	return metadata.DefaultGPUTextureProperties(width, height, format,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit))
}

func depthTarget(width, height uint32) metadata.GPUTextureProperties {
	return metadata.DefaultGPUTextureProperties(width, height, vk.FormatD32Sfloat,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit))
}

// RecordFrame records a deferred renderer. PruneMe produces a texture that
// nothing reads and is removed when the graph is built.
func (g *TestGame) RecordFrame(b *framegraph.Builder, width, height uint32) error {
	shadow := b.CreateRenderPass("Shadow", false)
	shadowMap := b.CreateTexture(shadow, "Shadow Map", depthTarget(shadowMapSize, shadowMapSize), depthAttachmentWrite)

	gbuffer := b.CreateRenderPass("GBuffer", false)
	albedo := b.CreateTexture(gbuffer, "GBuffer Albedo", colorTarget(width, height, vk.FormatR8g8b8a8Unorm), colorAttachmentWrite)
	normals := b.CreateTexture(gbuffer, "GBuffer Normals", colorTarget(width, height, vk.FormatR16g16Sfloat), colorAttachmentWrite)
	depth := b.CreateTexture(gbuffer, "GBuffer Depth", depthTarget(width, height), depthAttachmentWrite)

	pruneMe := b.CreateRenderPass("PruneMe", false)
	b.ReadTexture(pruneMe, albedo, fragmentSample)
	b.CreateTexture(pruneMe, "Useless Texture", colorTarget(width, height, vk.FormatR8g8b8a8Unorm), colorAttachmentWrite)

	lighting := b.CreateRenderPass("Lighting", false)
	b.ReadTexture(lighting, albedo, fragmentSample)
	b.ReadTexture(lighting, normals, fragmentSample)
	b.ReadTexture(lighting, depth, fragmentSample)
	b.ReadTexture(lighting, shadowMap, fragmentSample)
	hdr := b.CreateTexture(lighting, "HDR", colorTarget(width, height, vk.FormatR16g16b16a16Sfloat), colorAttachmentWrite)

	histogram := b.CreateRenderPass("Histogram", false)
	b.ReadTexture(histogram, hdr, computeSample)
	bins := b.CreateBuffer(histogram, "Luminance Histogram",
		metadata.DefaultGPUBufferProperties(256, 4, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)),
		computeStorageWrite)

	composite := b.CreateRenderPass("Composite", false)
	b.ReadBuffer(composite, bins, fragmentUniformRead)
	composited := b.WriteTexture(composite, hdr, colorAttachmentBlend)

	present := b.CreateRenderPass("Present", true)
	b.ReadTexture(present, composited, fragmentSample)
	b.CreateTexture(present, "Swapchain", colorTarget(width, height, vk.FormatB8g8r8a8Srgb), colorAttachmentWrite)

	return b.Err()
}

func (g *TestGame) RecordPass(_ framegraph.RenderPassHandle, renderPass *framegraph.RenderPass) error {
	state := g.State.(*gameState)
	state.recordedPasses = append(state.recordedPasses, renderPass.DebugName)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

// RecordedPasses returns and clears the passes the backend walked through.
func (g *TestGame) RecordedPasses() []string {
	state := g.State.(*gameState)
	passes := state.recordedPasses
	state.recordedPasses = nil
	return passes
}
