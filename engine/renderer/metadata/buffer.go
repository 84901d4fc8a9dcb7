package metadata

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief Describes a buffer the frame graph may allocate for the current frame.
 */
type GPUBufferProperties struct {
	ElementCount     uint64
	ElementSizeBytes uint32
	/** @brief Distance between two elements, at least ElementSizeBytes. */
	Stride     uint32
	UsageFlags vk.BufferUsageFlags
}

func (GPUBufferProperties) IsTexture() bool { return false }

func DefaultGPUBufferProperties(elementCount uint64, elementSizeBytes uint32, usage vk.BufferUsageFlags) GPUBufferProperties {
	return GPUBufferProperties{
		ElementCount:     elementCount,
		ElementSizeBytes: elementSizeBytes,
		Stride:           elementSizeBytes,
		UsageFlags:       usage,
	}
}

// SizeBytes is the allocation size needed to hold every element.
func (p GPUBufferProperties) SizeBytes() uint64 {
	stride := p.Stride
	if stride < p.ElementSizeBytes {
		stride = p.ElementSizeBytes
	}
	return p.ElementCount * uint64(stride)
}

type GPUBufferView struct {
	OffsetBytes uint64
	SizeBytes   uint64
}

func (GPUBufferView) IsTexture() bool { return false }

func DefaultGPUBufferView(properties GPUBufferProperties) GPUBufferView {
	return GPUBufferView{
		OffsetBytes: 0,
		SizeBytes:   properties.SizeBytes(),
	}
}
