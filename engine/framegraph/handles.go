package framegraph

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// RenderPassHandle indexes FrameGraph.RenderPasses.
type RenderPassHandle uint32

// ResourceUsageHandle indexes FrameGraph.ResourceUsages.
type ResourceUsageHandle uint32

// ResourceHandle packs an index into either FrameGraph.Textures or
// FrameGraph.Buffers. The top bit tags textures.
type ResourceHandle uint32

const (
	InvalidRenderPassHandle    RenderPassHandle    = 0xFFFFFFFF
	InvalidResourceUsageHandle ResourceUsageHandle = 0xFFFFFFFF
	InvalidResourceHandle      ResourceHandle      = 0xFFFFFFFF

	resourceTextureBit uint32 = 1 << 31
	resourceIndexMask  uint32 = resourceTextureBit - 1
	MaxResourceIndex   uint32 = resourceIndexMask - 1
)

func NewResourceHandle(index uint32, isTexture bool) ResourceHandle {
	h := index & resourceIndexMask
	if isTexture {
		h |= resourceTextureBit
	}
	return ResourceHandle(h)
}

func (h ResourceHandle) Index() uint32 {
	return uint32(h) & resourceIndexMask
}

func (h ResourceHandle) IsTexture() bool {
	return uint32(h)&resourceTextureBit != 0
}

func (h ResourceHandle) String() string {
	if h == InvalidResourceHandle {
		return "resource(invalid)"
	}
	if h.IsTexture() {
		return fmt.Sprintf("texture(%d)", h.Index())
	}
	return fmt.Sprintf("buffer(%d)", h.Index())
}

func (h RenderPassHandle) String() string {
	if h == InvalidRenderPassHandle {
		return "pass(invalid)"
	}
	return fmt.Sprintf("pass(%d)", uint32(h))
}

func (h ResourceUsageHandle) String() string {
	if h == InvalidResourceUsageHandle {
		return "usage(invalid)"
	}
	return fmt.Sprintf("usage(%d)", uint32(h))
}

func validIndex[H constraints.Unsigned](h H, length int) bool {
	return uint64(h) < uint64(length)
}
