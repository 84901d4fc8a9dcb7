package framegraph

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// Builder records render passes and their resource usages into a FrameGraph.
// The first failing call is remembered: every later call returns an invalid
// handle and Build reports that first error without building anything.
type Builder struct {
	graph *FrameGraph
	err   error
}

func NewBuilder(graph *FrameGraph) *Builder {
	return &Builder{graph: graph}
}

func (b *Builder) Graph() *FrameGraph {
	return b.graph
}

// Err returns the first recording error, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(op string, err error) {
	if b.err == nil {
		b.err = newError(op, err)
	}
}

func (b *Builder) CreateRenderPass(name string, hasSideEffects bool) RenderPassHandle {
	if b.err != nil {
		return InvalidRenderPassHandle
	}
	b.graph.built = false
	b.graph.RenderPasses = append(b.graph.RenderPasses, RenderPass{
		DebugName:      name,
		HasSideEffects: hasSideEffects,
	})
	return RenderPassHandle(len(b.graph.RenderPasses) - 1)
}

func (b *Builder) CreateTexture(pass RenderPassHandle, name string, properties metadata.GPUTextureProperties,
	access metadata.GPUTextureAccess, extraViews ...metadata.GPUTextureView) ResourceUsageHandle {
	const op = "create texture"
	if len(extraViews) > 0 {
		b.fail(op, errors.Wrapf(ErrUnsupported, "additional texture views for %q", name))
		return InvalidResourceUsageHandle
	}
	return b.createResource(op, pass, name, properties, access.ToResourceAccess(), metadata.DefaultGPUTextureView(properties))
}

func (b *Builder) CreateBuffer(pass RenderPassHandle, name string, properties metadata.GPUBufferProperties,
	access metadata.GPUBufferAccess, extraViews ...metadata.GPUBufferView) ResourceUsageHandle {
	const op = "create buffer"
	if len(extraViews) > 0 {
		b.fail(op, errors.Wrapf(ErrUnsupported, "additional buffer views for %q", name))
		return InvalidResourceUsageHandle
	}
	return b.createResource(op, pass, name, properties, access.ToResourceAccess(), metadata.DefaultGPUBufferView(properties))
}

func (b *Builder) ReadTexture(pass RenderPassHandle, input ResourceUsageHandle, access metadata.GPUTextureAccess,
	extraViews ...metadata.GPUTextureView) ResourceUsageHandle {
	const op = "read texture"
	if len(extraViews) > 0 {
		b.fail(op, errors.Wrap(ErrUnsupported, "additional texture views"))
		return InvalidResourceUsageHandle
	}
	return b.useResource(op, Input, true, pass, input, access.ToResourceAccess())
}

func (b *Builder) ReadBuffer(pass RenderPassHandle, input ResourceUsageHandle, access metadata.GPUBufferAccess,
	extraViews ...metadata.GPUBufferView) ResourceUsageHandle {
	const op = "read buffer"
	if len(extraViews) > 0 {
		b.fail(op, errors.Wrap(ErrUnsupported, "additional buffer views"))
		return InvalidResourceUsageHandle
	}
	return b.useResource(op, Input, false, pass, input, access.ToResourceAccess())
}

// WriteTexture records a read-modify-write of the texture behind input.
// Later readers and writers must chain from the returned handle.
func (b *Builder) WriteTexture(pass RenderPassHandle, input ResourceUsageHandle, access metadata.GPUTextureAccess,
	extraViews ...metadata.GPUTextureView) ResourceUsageHandle {
	const op = "write texture"
	if len(extraViews) > 0 {
		b.fail(op, errors.Wrap(ErrUnsupported, "additional texture views"))
		return InvalidResourceUsageHandle
	}
	return b.useResource(op, InputOutput, true, pass, input, access.ToResourceAccess())
}

func (b *Builder) WriteBuffer(pass RenderPassHandle, input ResourceUsageHandle, access metadata.GPUBufferAccess,
	extraViews ...metadata.GPUBufferView) ResourceUsageHandle {
	const op = "write buffer"
	if len(extraViews) > 0 {
		b.fail(op, errors.Wrap(ErrUnsupported, "additional buffer views"))
		return InvalidResourceUsageHandle
	}
	return b.useResource(op, InputOutput, false, pass, input, access.ToResourceAccess())
}

func (b *Builder) createResource(op string, pass RenderPassHandle, name string,
	properties metadata.GPUResourceProperties, access metadata.GPUResourceAccess,
	view metadata.GPUResourceView) ResourceUsageHandle {
	if b.err != nil {
		return InvalidResourceUsageHandle
	}
	if _, err := b.graph.GetRenderPass(pass); err != nil {
		b.fail(op, err)
		return InvalidResourceUsageHandle
	}

	isTexture := properties.IsTexture()
	var index int
	if isTexture {
		index = len(b.graph.Textures)
	} else {
		index = len(b.graph.Buffers)
	}
	if uint32(index) > MaxResourceIndex {
		b.fail(op, errors.Wrapf(ErrInvalidHandle, "resource index %d out of range", index))
		return InvalidResourceUsageHandle
	}

	resource := Resource{DebugName: name, Properties: properties}
	if isTexture {
		b.graph.Textures = append(b.graph.Textures, resource)
	} else {
		b.graph.Buffers = append(b.graph.Buffers, resource)
	}

	return b.appendUsage(pass, ResourceUsage{
		Type:       Output,
		Resource:   NewResourceHandle(uint32(index), isTexture),
		RenderPass: pass,
		Parent:     InvalidResourceUsageHandle,
		Access:     access,
		View:       view,
	})
}

func (b *Builder) useResource(op string, usageType UsageType, wantTexture bool, pass RenderPassHandle,
	input ResourceUsageHandle, access metadata.GPUResourceAccess) ResourceUsageHandle {
	if b.err != nil {
		return InvalidResourceUsageHandle
	}
	if _, err := b.graph.GetRenderPass(pass); err != nil {
		b.fail(op, err)
		return InvalidResourceUsageHandle
	}
	parent, err := b.graph.GetResourceUsage(input)
	if err != nil {
		b.fail(op, err)
		return InvalidResourceUsageHandle
	}
	handle := parent.Resource
	resource, err := b.graph.GetResource(handle)
	if err != nil {
		b.fail(op, err)
		return InvalidResourceUsageHandle
	}
	if handle.IsTexture() != wantTexture {
		b.fail(op, errors.Wrapf(ErrKindMismatch, "%s %q behind %s", handle, resource.DebugName, input))
		return InvalidResourceUsageHandle
	}

	var view metadata.GPUResourceView
	if wantTexture {
		props, _ := resource.TextureProperties()
		view = metadata.DefaultGPUTextureView(props)
	} else {
		props, _ := resource.BufferProperties()
		view = metadata.DefaultGPUBufferView(props)
	}

	return b.appendUsage(pass, ResourceUsage{
		Type:       usageType,
		Resource:   handle,
		RenderPass: pass,
		Parent:     input,
		Access:     access,
		View:       view,
	})
}

func (b *Builder) appendUsage(pass RenderPassHandle, usage ResourceUsage) ResourceUsageHandle {
	b.graph.built = false
	b.graph.ResourceUsages = append(b.graph.ResourceUsages, usage)
	h := ResourceUsageHandle(len(b.graph.ResourceUsages) - 1)
	rp := &b.graph.RenderPasses[pass]
	rp.ResourceUsageHandles = append(rp.ResourceUsageHandles, h)
	return h
}

// Build prunes the recorded graph and stores the result in the IsUsed flags.
// It must succeed before the graph can be scheduled.
func (b *Builder) Build() error {
	if b.err != nil {
		b.graph.built = true
		b.graph.buildErr = b.err
		return b.err
	}
	if err := b.graph.build(); err != nil {
		return err
	}

	fg := b.graph
	pruned := 0
	for i := range fg.RenderPasses {
		if !fg.RenderPasses[i].IsUsed {
			pruned++
			core.LogDebug("framegraph %s: pruned render pass '%s'", fg.ID, fg.RenderPasses[i].DebugName)
		}
	}
	core.LogDebug("framegraph %s: built %d passes (%d pruned), %d usages, %d textures, %d buffers",
		fg.ID, len(fg.RenderPasses), pruned, len(fg.ResourceUsages), len(fg.Textures), len(fg.Buffers))
	return nil
}
