package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func GetVkImageSubresourceRange(view metadata.GPUTextureView) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     view.Aspect,
		BaseMipLevel:   view.MipOffset,
		LevelCount:     view.MipCount,
		BaseArrayLayer: view.LayerOffset,
		LayerCount:     view.LayerCount,
	}
}

// GetVkImageBarrier builds the layout transition and memory dependency
// between two accesses of the same image.
func GetVkImageBarrier(image vk.Image, view metadata.GPUTextureView, src, dst metadata.GPUTextureAccess) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       src.AccessMask,
		DstAccessMask:       dst.AccessMask,
		OldLayout:           src.ImageLayout,
		NewLayout:           dst.ImageLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    GetVkImageSubresourceRange(view),
	}
}

func GetVkBufferBarrier(buffer vk.Buffer, view metadata.GPUBufferView, src, dst metadata.GPUBufferAccess) vk.BufferMemoryBarrier {
	size := vk.DeviceSize(view.SizeBytes)
	if view.SizeBytes == 0 {
		size = vk.DeviceSize(vk.WholeSize)
	}
	return vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       src.AccessMask,
		DstAccessMask:       dst.AccessMask,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Offset:              vk.DeviceSize(view.OffsetBytes),
		Size:                size,
	}
}
