package assets

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

var ErrInvalidDescription = errors.New("invalid frame description")

// Description is a declarative frame: resource declarations followed by the
// passes in recording order.
type Description struct {
	Name     string               `toml:"name" hcl:"name,optional"`
	Textures []TextureDescription `toml:"texture" hcl:"texture,block"`
	Buffers  []BufferDescription  `toml:"buffer" hcl:"buffer,block"`
	Passes   []PassDescription    `toml:"pass" hcl:"pass,block"`
}

type TextureDescription struct {
	Name        string   `toml:"name" hcl:"name,label"`
	Width       uint32   `toml:"width" hcl:"width"`
	Height      uint32   `toml:"height" hcl:"height"`
	Depth       uint32   `toml:"depth" hcl:"depth,optional"`
	Format      string   `toml:"format" hcl:"format"`
	MipCount    uint32   `toml:"mip_count" hcl:"mip_count,optional"`
	LayerCount  uint32   `toml:"layer_count" hcl:"layer_count,optional"`
	SampleCount uint32   `toml:"sample_count" hcl:"sample_count,optional"`
	Cubemap     bool     `toml:"cubemap" hcl:"cubemap,optional"`
	Usage       []string `toml:"usage" hcl:"usage,optional"`
}

type BufferDescription struct {
	Name         string   `toml:"name" hcl:"name,label"`
	ElementCount uint64   `toml:"element_count" hcl:"element_count"`
	ElementSize  uint32   `toml:"element_size" hcl:"element_size"`
	Stride       uint32   `toml:"stride" hcl:"stride,optional"`
	Usage        []string `toml:"usage" hcl:"usage,optional"`
}

type PassDescription struct {
	Name        string              `toml:"name" hcl:"name,label"`
	SideEffects bool                `toml:"side_effects" hcl:"side_effects,optional"`
	Accesses    []AccessDescription `toml:"access" hcl:"access,block"`
}

// AccessDescription is one resource usage of a pass. Mode is create, read or
// write. Layout is ignored for buffers.
type AccessDescription struct {
	Resource string   `toml:"resource" hcl:"resource"`
	Mode     string   `toml:"mode" hcl:"mode"`
	Stages   []string `toml:"stages" hcl:"stages"`
	Access   []string `toml:"access" hcl:"access,optional"`
	Layout   string   `toml:"layout" hcl:"layout,optional"`
}

const (
	ModeCreate = "create"
	ModeRead   = "read"
	ModeWrite  = "write"
)

func orOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func (t *TextureDescription) properties() (metadata.GPUTextureProperties, error) {
	format, err := metadata.ParseFormat(t.Format)
	if err != nil {
		return metadata.GPUTextureProperties{}, err
	}
	usage, err := metadata.ParseImageUsage(t.Usage)
	if err != nil {
		return metadata.GPUTextureProperties{}, err
	}
	if t.Width == 0 || t.Height == 0 {
		return metadata.GPUTextureProperties{}, errors.Wrapf(ErrInvalidDescription, "size %dx%d", t.Width, t.Height)
	}
	properties := metadata.DefaultGPUTextureProperties(t.Width, t.Height, format, usage)
	properties.Depth = orOne(t.Depth)
	properties.MipCount = orOne(t.MipCount)
	properties.LayerCount = orOne(t.LayerCount)
	properties.SampleCount = orOne(t.SampleCount)
	properties.IsCubemap = t.Cubemap
	return properties, nil
}

func (b *BufferDescription) properties() (metadata.GPUBufferProperties, error) {
	usage, err := metadata.ParseBufferUsage(b.Usage)
	if err != nil {
		return metadata.GPUBufferProperties{}, err
	}
	if b.ElementCount == 0 || b.ElementSize == 0 {
		return metadata.GPUBufferProperties{}, errors.Wrapf(ErrInvalidDescription, "%d elements of %d bytes", b.ElementCount, b.ElementSize)
	}
	properties := metadata.DefaultGPUBufferProperties(b.ElementCount, b.ElementSize, usage)
	if b.Stride > 0 {
		properties.Stride = b.Stride
	}
	return properties, nil
}

func (a *AccessDescription) resourceAccess() (metadata.GPUResourceAccess, error) {
	stages, err := metadata.ParseStageMask(a.Stages)
	if err != nil {
		return metadata.GPUResourceAccess{}, err
	}
	access, err := metadata.ParseAccessMask(a.Access)
	if err != nil {
		return metadata.GPUResourceAccess{}, err
	}
	layout, err := metadata.ParseImageLayout(a.Layout)
	if err != nil {
		return metadata.GPUResourceAccess{}, err
	}
	return metadata.GPUResourceAccess{StageMask: stages, AccessMask: access, ImageLayout: layout}, nil
}

type declaredResource struct {
	texture *TextureDescription
	buffer  *BufferDescription
	// latest is the usage later reads and writes consume.
	latest  framegraph.ResourceUsageHandle
	created bool
}

// Record replays the description through b in file order. A resource name
// always resolves to its latest create or write usage.
func (d *Description) Record(b *framegraph.Builder) error {
	resources := make(map[string]*declaredResource, len(d.Textures)+len(d.Buffers))
	for i := range d.Textures {
		t := &d.Textures[i]
		if _, ok := resources[t.Name]; ok {
			return errors.Wrapf(ErrInvalidDescription, "resource '%s' declared twice", t.Name)
		}
		resources[t.Name] = &declaredResource{texture: t, latest: framegraph.InvalidResourceUsageHandle}
	}
	for i := range d.Buffers {
		buf := &d.Buffers[i]
		if _, ok := resources[buf.Name]; ok {
			return errors.Wrapf(ErrInvalidDescription, "resource '%s' declared twice", buf.Name)
		}
		resources[buf.Name] = &declaredResource{buffer: buf, latest: framegraph.InvalidResourceUsageHandle}
	}

	for i := range d.Passes {
		p := &d.Passes[i]
		pass := b.CreateRenderPass(p.Name, p.SideEffects)
		for j := range p.Accesses {
			a := &p.Accesses[j]
			if err := recordAccess(b, pass, resources, a); err != nil {
				return errors.Wrapf(err, "pass '%s' access %d", p.Name, j)
			}
		}
	}
	return b.Err()
}

func recordAccess(b *framegraph.Builder, pass framegraph.RenderPassHandle,
	resources map[string]*declaredResource, a *AccessDescription) error {
	resource, ok := resources[a.Resource]
	if !ok {
		return errors.Wrapf(ErrInvalidDescription, "unknown resource '%s'", a.Resource)
	}
	access, err := a.resourceAccess()
	if err != nil {
		return err
	}

	switch a.Mode {
	case ModeCreate:
		if resource.created {
			return errors.Wrapf(ErrInvalidDescription, "'%s' created twice", a.Resource)
		}
		if resource.texture != nil {
			properties, err := resource.texture.properties()
			if err != nil {
				return errors.Wrapf(err, "texture '%s'", a.Resource)
			}
			resource.latest = b.CreateTexture(pass, a.Resource, properties, access.Texture())
		} else {
			properties, err := resource.buffer.properties()
			if err != nil {
				return errors.Wrapf(err, "buffer '%s'", a.Resource)
			}
			resource.latest = b.CreateBuffer(pass, a.Resource, properties, access.Buffer())
		}
		resource.created = true
	case ModeRead, ModeWrite:
		if !resource.created {
			return errors.Wrapf(ErrInvalidDescription, "'%s' used before it is created", a.Resource)
		}
		var usage framegraph.ResourceUsageHandle
		switch {
		case a.Mode == ModeRead && resource.texture != nil:
			usage = b.ReadTexture(pass, resource.latest, access.Texture())
		case a.Mode == ModeRead:
			usage = b.ReadBuffer(pass, resource.latest, access.Buffer())
		case resource.texture != nil:
			usage = b.WriteTexture(pass, resource.latest, access.Texture())
		default:
			usage = b.WriteBuffer(pass, resource.latest, access.Buffer())
		}
		if a.Mode == ModeWrite {
			resource.latest = usage
		}
	default:
		return errors.Wrapf(ErrInvalidDescription, "unknown mode '%s'", a.Mode)
	}
	return b.Err()
}
