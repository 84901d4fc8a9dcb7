package framegraph

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// UsageType is a bit set; InputOutput is a read-modify-write of the parent usage.
type UsageType uint8

const (
	Input       UsageType = 1 << 0
	Output      UsageType = 1 << 1
	InputOutput UsageType = Input | Output
)

func (t UsageType) String() string {
	switch t {
	case Input:
		return "input"
	case Output:
		return "output"
	case InputOutput:
		return "input|output"
	default:
		return "unknown"
	}
}

func (t UsageType) valid() bool {
	return t == Input || t == Output || t == InputOutput
}

type RenderPass struct {
	DebugName            string
	HasSideEffects       bool
	ResourceUsageHandles []ResourceUsageHandle
	IsUsed               bool
}

// Resource is a texture or a buffer declared for the current frame.
// Properties is either metadata.GPUTextureProperties or metadata.GPUBufferProperties.
type Resource struct {
	DebugName  string
	Properties metadata.GPUResourceProperties
	IsUsed     bool
}

func (r *Resource) IsTexture() bool {
	return r.Properties != nil && r.Properties.IsTexture()
}

func (r *Resource) TextureProperties() (metadata.GPUTextureProperties, bool) {
	p, ok := r.Properties.(metadata.GPUTextureProperties)
	return p, ok
}

func (r *Resource) BufferProperties() (metadata.GPUBufferProperties, bool) {
	p, ok := r.Properties.(metadata.GPUBufferProperties)
	return p, ok
}

// ResourceUsage is one read, write or creation of a resource by a render pass.
// Parent is the usage this one reads from and is invalid for creations.
type ResourceUsage struct {
	Type       UsageType
	Resource   ResourceHandle
	RenderPass RenderPassHandle
	Parent     ResourceUsageHandle
	Access     metadata.GPUResourceAccess
	View       metadata.GPUResourceView
	IsUsed     bool
}

func (u *ResourceUsage) TextureView() (metadata.GPUTextureView, bool) {
	v, ok := u.View.(metadata.GPUTextureView)
	return v, ok
}

func (u *ResourceUsage) BufferView() (metadata.GPUBufferView, bool) {
	v, ok := u.View.(metadata.GPUBufferView)
	return v, ok
}

// FrameGraph holds everything recorded for one frame. It is mutated only
// through a Builder and must not be shared between goroutines while recording.
type FrameGraph struct {
	ID             uuid.UUID
	ResourceUsages []ResourceUsage
	Textures       []Resource
	Buffers        []Resource
	RenderPasses   []RenderPass

	built    bool
	buildErr error
}

func New() *FrameGraph {
	return &FrameGraph{ID: uuid.New()}
}

// Reset clears the graph so it can record the next frame.
func (fg *FrameGraph) Reset() {
	fg.ID = uuid.New()
	fg.ResourceUsages = fg.ResourceUsages[:0]
	fg.Textures = fg.Textures[:0]
	fg.Buffers = fg.Buffers[:0]
	fg.RenderPasses = fg.RenderPasses[:0]
	fg.built = false
	fg.buildErr = nil
}

// Built reports whether the last Build succeeded.
func (fg *FrameGraph) Built() bool {
	return fg.built && fg.buildErr == nil
}

func (fg *FrameGraph) ResourceCount() int {
	return len(fg.Textures) + len(fg.Buffers)
}

// FlatResourceIndex orders textures first, then buffers.
func (fg *FrameGraph) FlatResourceIndex(h ResourceHandle) int {
	if h.IsTexture() {
		return int(h.Index())
	}
	return len(fg.Textures) + int(h.Index())
}

func (fg *FrameGraph) GetRenderPass(h RenderPassHandle) (*RenderPass, error) {
	if !validIndex(h, len(fg.RenderPasses)) {
		return nil, errors.Wrapf(ErrInvalidHandle, "%s", h)
	}
	return &fg.RenderPasses[h], nil
}

func (fg *FrameGraph) GetResourceUsage(h ResourceUsageHandle) (*ResourceUsage, error) {
	if !validIndex(h, len(fg.ResourceUsages)) {
		return nil, errors.Wrapf(ErrInvalidHandle, "%s", h)
	}
	return &fg.ResourceUsages[h], nil
}

func (fg *FrameGraph) GetResource(h ResourceHandle) (*Resource, error) {
	if h == InvalidResourceHandle {
		return nil, errors.Wrapf(ErrInvalidHandle, "%s", h)
	}
	resources := fg.Buffers
	if h.IsTexture() {
		resources = fg.Textures
	}
	if !validIndex(h.Index(), len(resources)) {
		return nil, errors.Wrapf(ErrInvalidHandle, "%s", h)
	}
	return &resources[h.Index()], nil
}

func (fg *FrameGraph) GetResourceFromUsage(h ResourceUsageHandle) (*Resource, error) {
	usage, err := fg.GetResourceUsage(h)
	if err != nil {
		return nil, err
	}
	return fg.GetResource(usage.Resource)
}
