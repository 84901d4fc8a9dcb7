package metadata

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief How a render pass touches a texture: which pipeline stages,
 * which memory accesses and which image layout the texture must be in.
 */
type GPUTextureAccess struct {
	StageMask   vk.PipelineStageFlags
	AccessMask  vk.AccessFlags
	ImageLayout vk.ImageLayout
}

/**
 * @brief How a render pass touches a buffer. Buffers have no layout.
 */
type GPUBufferAccess struct {
	StageMask  vk.PipelineStageFlags
	AccessMask vk.AccessFlags
}

// GPUResourceAccess is the kind-agnostic access stored on a resource usage.
// ImageLayout is ignored for buffers.
type GPUResourceAccess struct {
	StageMask   vk.PipelineStageFlags
	AccessMask  vk.AccessFlags
	ImageLayout vk.ImageLayout
}

func (a GPUTextureAccess) ToResourceAccess() GPUResourceAccess {
	return GPUResourceAccess{
		StageMask:   a.StageMask,
		AccessMask:  a.AccessMask,
		ImageLayout: a.ImageLayout,
	}
}

func (a GPUBufferAccess) ToResourceAccess() GPUResourceAccess {
	return GPUResourceAccess{
		StageMask:   a.StageMask,
		AccessMask:  a.AccessMask,
		ImageLayout: vk.ImageLayoutUndefined,
	}
}

func (a GPUResourceAccess) Texture() GPUTextureAccess {
	return GPUTextureAccess{
		StageMask:   a.StageMask,
		AccessMask:  a.AccessMask,
		ImageLayout: a.ImageLayout,
	}
}

func (a GPUResourceAccess) Buffer() GPUBufferAccess {
	return GPUBufferAccess{
		StageMask:  a.StageMask,
		AccessMask: a.AccessMask,
	}
}

// Merge returns the union of both stage and access masks. The layout of a is kept.
func (a GPUResourceAccess) Merge(other GPUResourceAccess) GPUResourceAccess {
	return GPUResourceAccess{
		StageMask:   a.StageMask | other.StageMask,
		AccessMask:  a.AccessMask | other.AccessMask,
		ImageLayout: a.ImageLayout,
	}
}

// InitialResourceAccess is the state every frame graph resource starts the frame in.
func InitialResourceAccess() GPUResourceAccess {
	return GPUResourceAccess{
		StageMask:   vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		AccessMask:  0,
		ImageLayout: vk.ImageLayoutUndefined,
	}
}

// GPUResourceProperties is implemented by GPUTextureProperties and GPUBufferProperties.
type GPUResourceProperties interface {
	IsTexture() bool
}

// GPUResourceView is implemented by GPUTextureView and GPUBufferView.
type GPUResourceView interface {
	IsTexture() bool
}
