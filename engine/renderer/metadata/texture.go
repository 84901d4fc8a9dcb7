package metadata

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief Describes a texture the frame graph may allocate for the current frame.
 */
type GPUTextureProperties struct {
	/** @brief The texture Width in texels. */
	Width uint32
	/** @brief The texture Height in texels. */
	Height uint32
	/** @brief The texture Depth, 1 for 2D textures. */
	Depth uint32
	/** @brief The pixel format. */
	Format vk.Format
	/** @brief The number of mip levels. */
	MipCount uint32
	/** @brief The number of array layers, 6 for cubemaps. */
	LayerCount uint32
	/** @brief The number of samples per texel. */
	SampleCount uint32
	/** @brief Indicates if the texture is a cubemap. */
	IsCubemap bool
	/** @brief How the backend will use the image. */
	UsageFlags vk.ImageUsageFlags
}

// IsTexture tags GPUTextureProperties as the texture variant of GPUResourceProperties.
func (GPUTextureProperties) IsTexture() bool { return true }

func DefaultGPUTextureProperties(width, height uint32, format vk.Format, usage vk.ImageUsageFlags) GPUTextureProperties {
	return GPUTextureProperties{
		Width:       width,
		Height:      height,
		Depth:       1,
		Format:      format,
		MipCount:    1,
		LayerCount:  1,
		SampleCount: 1,
		UsageFlags:  usage,
	}
}

/**
 * @brief A subresource range of a texture, as seen by one resource usage.
 */
type GPUTextureView struct {
	Format      vk.Format
	Aspect      vk.ImageAspectFlags
	MipOffset   uint32
	MipCount    uint32
	LayerOffset uint32
	LayerCount  uint32
}

func (GPUTextureView) IsTexture() bool { return true }

// DefaultGPUTextureView covers every mip and layer of the texture.
func DefaultGPUTextureView(properties GPUTextureProperties) GPUTextureView {
	return GPUTextureView{
		Format:      properties.Format,
		Aspect:      FormatAspect(properties.Format),
		MipOffset:   0,
		MipCount:    properties.MipCount,
		LayerOffset: 0,
		LayerCount:  properties.LayerCount,
	}
}

// FormatAspect returns the image aspects a full view of the format must cover.
func FormatAspect(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatX8D24UnormPack32:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case vk.FormatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}
