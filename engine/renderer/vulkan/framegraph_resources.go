package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
)

// EventCount is the size of the event pool used by split barriers. Split
// barriers index it by barrier handle.
const EventCount = 100

var ErrEventPoolExhausted = errors.New("not enough events for split barriers")

// FrameGraphResources owns the GPU objects backing one frame graph. Events
// live as long as the backend, images buffers and views are recreated every
// frame for the used resources only.
type FrameGraphResources struct {
	allocator ResourceAllocator

	Events     []vk.Event
	Images     []*VulkanImage
	Buffers    []*VulkanBuffer
	ImageViews []vk.ImageView
}

func NewFrameGraphResources(allocator ResourceAllocator) (*FrameGraphResources, error) {
	r := &FrameGraphResources{
		allocator: allocator,
		Events:    make([]vk.Event, 0, EventCount),
	}
	for i := 0; i < EventCount; i++ {
		event, err := allocator.CreateEvent()
		if err != nil {
			r.Destroy()
			return nil, errors.Wrapf(err, "event %d", i)
		}
		r.Events = append(r.Events, event)
	}
	return r, nil
}

// Allocate releases the previous frame's objects and creates an image or a
// buffer for every used resource plus an image view for every used texture
// usage.
func (r *FrameGraphResources) Allocate(fg *framegraph.FrameGraph) error {
	r.Release()

	r.Images = make([]*VulkanImage, len(fg.Textures))
	for i := range fg.Textures {
		texture := &fg.Textures[i]
		if !texture.IsUsed {
			continue
		}
		properties, _ := texture.TextureProperties()
		image, err := r.allocator.CreateImage(texture.DebugName, properties)
		if err != nil {
			r.Release()
			return err
		}
		r.Images[i] = image
	}

	r.Buffers = make([]*VulkanBuffer, len(fg.Buffers))
	for i := range fg.Buffers {
		buffer := &fg.Buffers[i]
		if !buffer.IsUsed {
			continue
		}
		properties, _ := buffer.BufferProperties()
		vb, err := r.allocator.CreateBuffer(buffer.DebugName, properties)
		if err != nil {
			r.Release()
			return err
		}
		r.Buffers[i] = vb
	}

	r.ImageViews = make([]vk.ImageView, len(fg.ResourceUsages))
	for i := range fg.ResourceUsages {
		usage := &fg.ResourceUsages[i]
		if !usage.IsUsed || !usage.Resource.IsTexture() {
			continue
		}
		texture, err := fg.GetResource(usage.Resource)
		if err != nil {
			r.Release()
			return err
		}
		properties, _ := texture.TextureProperties()
		view, _ := usage.TextureView()
		imageView, err := r.allocator.CreateImageView(r.Images[usage.Resource.Index()], properties, view)
		if err != nil {
			r.Release()
			return errors.Wrapf(err, "view of '%s'", texture.DebugName)
		}
		r.ImageViews[i] = imageView
	}

	core.LogDebug("framegraph %s: allocated backing objects", fg.ID)
	return nil
}

// Release destroys the per frame objects and keeps the event pool.
func (r *FrameGraphResources) Release() {
	for i, view := range r.ImageViews {
		if view != nil {
			r.allocator.DestroyImageView(view)
		}
		r.ImageViews[i] = nil
	}
	for i, image := range r.Images {
		if image != nil {
			r.allocator.DestroyImage(image)
		}
		r.Images[i] = nil
	}
	for i, buffer := range r.Buffers {
		if buffer != nil {
			r.allocator.DestroyBuffer(buffer)
		}
		r.Buffers[i] = nil
	}
	r.ImageViews = r.ImageViews[:0]
	r.Images = r.Images[:0]
	r.Buffers = r.Buffers[:0]
}

func (r *FrameGraphResources) Destroy() {
	r.Release()
	for _, event := range r.Events {
		r.allocator.DestroyEvent(event)
	}
	r.Events = nil
}

func (r *FrameGraphResources) Image(h framegraph.ResourceHandle) (*VulkanImage, error) {
	if !h.IsTexture() || int(h.Index()) >= len(r.Images) || r.Images[h.Index()] == nil {
		return nil, errors.Wrapf(framegraph.ErrInvalidHandle, "no image allocated for %s", h)
	}
	return r.Images[h.Index()], nil
}

func (r *FrameGraphResources) Buffer(h framegraph.ResourceHandle) (*VulkanBuffer, error) {
	if h == framegraph.InvalidResourceHandle || h.IsTexture() || int(h.Index()) >= len(r.Buffers) || r.Buffers[h.Index()] == nil {
		return nil, errors.Wrapf(framegraph.ErrInvalidHandle, "no buffer allocated for %s", h)
	}
	return r.Buffers[h.Index()], nil
}

func (r *FrameGraphResources) Event(barrier uint32) (vk.Event, error) {
	if int(barrier) >= len(r.Events) {
		return nil, errors.Wrapf(ErrEventPoolExhausted, "barrier %d, pool of %d", barrier, len(r.Events))
	}
	return r.Events[barrier], nil
}
