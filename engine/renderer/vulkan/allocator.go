package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// ResourceAllocator creates the GPU objects backing frame graph resources.
type ResourceAllocator interface {
	CreateEvent() (vk.Event, error)
	DestroyEvent(event vk.Event)
	CreateImage(name string, properties metadata.GPUTextureProperties) (*VulkanImage, error)
	DestroyImage(image *VulkanImage)
	CreateImageView(image *VulkanImage, properties metadata.GPUTextureProperties, view metadata.GPUTextureView) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	CreateBuffer(name string, properties metadata.GPUBufferProperties) (*VulkanBuffer, error)
	DestroyBuffer(buffer *VulkanBuffer)
}

// DeviceAllocator allocates device local memory for every resource.
type DeviceAllocator struct {
	context *VulkanContext
}

func NewDeviceAllocator(context *VulkanContext) *DeviceAllocator {
	return &DeviceAllocator{context: context}
}

func (a *DeviceAllocator) CreateEvent() (vk.Event, error) {
	info := vk.EventCreateInfo{
		SType: vk.StructureTypeEventCreateInfo,
	}
	var event vk.Event
	if res := vk.CreateEvent(a.context.Device, &info, a.context.Allocator, &event); res != vk.Success {
		return nil, errors.Wrap(vk.Error(res), "failed to create event")
	}
	return event, nil
}

func (a *DeviceAllocator) DestroyEvent(event vk.Event) {
	vk.DestroyEvent(a.context.Device, event, a.context.Allocator)
}

func (a *DeviceAllocator) allocate(requirements vk.MemoryRequirements) (vk.DeviceMemory, error) {
	requirements.Deref()
	index := a.context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if index < 0 {
		return nil, errors.New("no device local memory type matches the requirements")
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(a.context.Device, &info, a.context.Allocator, &memory); res != vk.Success {
		return nil, errors.Wrap(vk.Error(res), "failed to allocate memory")
	}
	return memory, nil
}

func (a *DeviceAllocator) CreateImage(name string, properties metadata.GPUTextureProperties) (*VulkanImage, error) {
	imageType := vk.ImageType2d
	if properties.Depth > 1 {
		imageType = vk.ImageType3d
	}
	var flags vk.ImageCreateFlags
	if properties.IsCubemap {
		flags |= vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: imageType,
		Format:    properties.Format,
		Extent: vk.Extent3D{
			Width:  properties.Width,
			Height: properties.Height,
			Depth:  properties.Depth,
		},
		MipLevels:     properties.MipCount,
		ArrayLayers:   properties.LayerCount,
		Samples:       vk.SampleCountFlagBits(properties.SampleCount),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         properties.UsageFlags,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	image := &VulkanImage{Width: properties.Width, Height: properties.Height}
	if res := vk.CreateImage(a.context.Device, &info, a.context.Allocator, &image.Handle); res != vk.Success {
		return nil, errors.Wrapf(vk.Error(res), "failed to create image '%s'", name)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.context.Device, image.Handle, &requirements)
	memory, err := a.allocate(requirements)
	if err != nil {
		vk.DestroyImage(a.context.Device, image.Handle, a.context.Allocator)
		return nil, errors.Wrapf(err, "image '%s'", name)
	}
	image.Memory = memory

	if res := vk.BindImageMemory(a.context.Device, image.Handle, image.Memory, 0); res != vk.Success {
		a.DestroyImage(image)
		return nil, errors.Wrapf(vk.Error(res), "failed to bind memory of image '%s'", name)
	}
	core.LogDebug("created image '%s' %dx%d", name, properties.Width, properties.Height)
	return image, nil
}

func (a *DeviceAllocator) DestroyImage(image *VulkanImage) {
	if image.Handle != nil {
		vk.DestroyImage(a.context.Device, image.Handle, a.context.Allocator)
		image.Handle = nil
	}
	if image.Memory != nil {
		vk.FreeMemory(a.context.Device, image.Memory, a.context.Allocator)
		image.Memory = nil
	}
}

func imageViewType(properties metadata.GPUTextureProperties, view metadata.GPUTextureView) vk.ImageViewType {
	switch {
	case properties.IsCubemap && view.LayerCount == 6:
		return vk.ImageViewTypeCube
	case properties.Depth > 1:
		return vk.ImageViewType3d
	case view.LayerCount > 1:
		return vk.ImageViewType2dArray
	default:
		return vk.ImageViewType2d
	}
}

func (a *DeviceAllocator) CreateImageView(image *VulkanImage, properties metadata.GPUTextureProperties, view metadata.GPUTextureView) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            image.Handle,
		ViewType:         imageViewType(properties, view),
		Format:           view.Format,
		SubresourceRange: GetVkImageSubresourceRange(view),
	}
	var imageView vk.ImageView
	if res := vk.CreateImageView(a.context.Device, &info, a.context.Allocator, &imageView); res != vk.Success {
		return nil, errors.Wrap(vk.Error(res), "failed to create image view")
	}
	return imageView, nil
}

func (a *DeviceAllocator) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(a.context.Device, view, a.context.Allocator)
}

func (a *DeviceAllocator) CreateBuffer(name string, properties metadata.GPUBufferProperties) (*VulkanBuffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(properties.SizeBytes()),
		Usage:       properties.UsageFlags,
		SharingMode: vk.SharingModeExclusive,
	}

	buffer := &VulkanBuffer{Size: properties.SizeBytes()}
	if res := vk.CreateBuffer(a.context.Device, &info, a.context.Allocator, &buffer.Handle); res != vk.Success {
		return nil, errors.Wrapf(vk.Error(res), "failed to create buffer '%s'", name)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.context.Device, buffer.Handle, &requirements)
	memory, err := a.allocate(requirements)
	if err != nil {
		vk.DestroyBuffer(a.context.Device, buffer.Handle, a.context.Allocator)
		return nil, errors.Wrapf(err, "buffer '%s'", name)
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(a.context.Device, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		a.DestroyBuffer(buffer)
		return nil, errors.Wrapf(vk.Error(res), "failed to bind memory of buffer '%s'", name)
	}
	core.LogDebug("created buffer '%s' (%d bytes)", name, buffer.Size)
	return buffer, nil
}

func (a *DeviceAllocator) DestroyBuffer(buffer *VulkanBuffer) {
	if buffer.Handle != nil {
		vk.DestroyBuffer(a.context.Device, buffer.Handle, a.context.Allocator)
		buffer.Handle = nil
	}
	if buffer.Memory != nil {
		vk.FreeMemory(a.context.Device, buffer.Memory, a.context.Allocator)
		buffer.Memory = nil
	}
}

// DryRunAllocator hands out empty handles and only accounts for what a
// device allocator would have created. It lets a frame be replayed without
// a GPU.
type DryRunAllocator struct {
	Events      int
	Images      int
	ImageViews  int
	Buffers     int
	TexelCount  uint64
	BufferBytes uint64
}

func (a *DryRunAllocator) CreateEvent() (vk.Event, error) {
	a.Events++
	return nil, nil
}

func (a *DryRunAllocator) DestroyEvent(vk.Event) {
	a.Events--
}

func (a *DryRunAllocator) CreateImage(name string, properties metadata.GPUTextureProperties) (*VulkanImage, error) {
	a.Images++
	a.TexelCount += uint64(properties.Width) * uint64(properties.Height) * uint64(properties.Depth) *
		uint64(properties.LayerCount) * uint64(properties.SampleCount)
	return &VulkanImage{Width: properties.Width, Height: properties.Height}, nil
}

func (a *DryRunAllocator) DestroyImage(*VulkanImage) {
	a.Images--
}

func (a *DryRunAllocator) CreateImageView(*VulkanImage, metadata.GPUTextureProperties, metadata.GPUTextureView) (vk.ImageView, error) {
	a.ImageViews++
	return nil, nil
}

func (a *DryRunAllocator) DestroyImageView(vk.ImageView) {
	a.ImageViews--
}

func (a *DryRunAllocator) CreateBuffer(name string, properties metadata.GPUBufferProperties) (*VulkanBuffer, error) {
	a.Buffers++
	a.BufferBytes += properties.SizeBytes()
	return &VulkanBuffer{Size: properties.SizeBytes()}, nil
}

func (a *DryRunAllocator) DestroyBuffer(*VulkanBuffer) {
	a.Buffers--
}
