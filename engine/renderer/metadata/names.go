package metadata

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

var ErrUnknownName = errors.New("unknown name")

type flagName[T ~uint32] struct {
	name string
	bit  T
}

// Ordered by bit so mask strings are stable.
var stageNames = []flagName[vk.PipelineStageFlags]{
	{"top_of_pipe", vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)},
	{"draw_indirect", vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit)},
	{"vertex_input", vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)},
	{"vertex_shader", vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit)},
	{"fragment_shader", vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)},
	{"early_fragment_tests", vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)},
	{"late_fragment_tests", vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)},
	{"color_attachment_output", vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	{"compute_shader", vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)},
	{"transfer", vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
	{"bottom_of_pipe", vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)},
	{"host", vk.PipelineStageFlags(vk.PipelineStageHostBit)},
	{"all_graphics", vk.PipelineStageFlags(vk.PipelineStageAllGraphicsBit)},
	{"all_commands", vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)},
}

var accessNames = []flagName[vk.AccessFlags]{
	{"indirect_command_read", vk.AccessFlags(vk.AccessIndirectCommandReadBit)},
	{"index_read", vk.AccessFlags(vk.AccessIndexReadBit)},
	{"vertex_attribute_read", vk.AccessFlags(vk.AccessVertexAttributeReadBit)},
	{"uniform_read", vk.AccessFlags(vk.AccessUniformReadBit)},
	{"input_attachment_read", vk.AccessFlags(vk.AccessInputAttachmentReadBit)},
	{"shader_read", vk.AccessFlags(vk.AccessShaderReadBit)},
	{"shader_write", vk.AccessFlags(vk.AccessShaderWriteBit)},
	{"color_attachment_read", vk.AccessFlags(vk.AccessColorAttachmentReadBit)},
	{"color_attachment_write", vk.AccessFlags(vk.AccessColorAttachmentWriteBit)},
	{"depth_stencil_attachment_read", vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)},
	{"depth_stencil_attachment_write", vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)},
	{"transfer_read", vk.AccessFlags(vk.AccessTransferReadBit)},
	{"transfer_write", vk.AccessFlags(vk.AccessTransferWriteBit)},
	{"host_read", vk.AccessFlags(vk.AccessHostReadBit)},
	{"host_write", vk.AccessFlags(vk.AccessHostWriteBit)},
	{"memory_read", vk.AccessFlags(vk.AccessMemoryReadBit)},
	{"memory_write", vk.AccessFlags(vk.AccessMemoryWriteBit)},
}

var imageUsageNames = []flagName[vk.ImageUsageFlags]{
	{"transfer_src", vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)},
	{"transfer_dst", vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)},
	{"sampled", vk.ImageUsageFlags(vk.ImageUsageSampledBit)},
	{"storage", vk.ImageUsageFlags(vk.ImageUsageStorageBit)},
	{"color_attachment", vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)},
	{"depth_stencil_attachment", vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)},
	{"input_attachment", vk.ImageUsageFlags(vk.ImageUsageInputAttachmentBit)},
}

var bufferUsageNames = []flagName[vk.BufferUsageFlags]{
	{"transfer_src", vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)},
	{"transfer_dst", vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)},
	{"uniform", vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)},
	{"storage", vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)},
	{"index", vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)},
	{"vertex", vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)},
	{"indirect", vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit)},
}

var layoutNames = map[string]vk.ImageLayout{
	"undefined":                        vk.ImageLayoutUndefined,
	"general":                          vk.ImageLayoutGeneral,
	"color_attachment_optimal":         vk.ImageLayoutColorAttachmentOptimal,
	"depth_stencil_attachment_optimal": vk.ImageLayoutDepthStencilAttachmentOptimal,
	"depth_stencil_read_only_optimal":  vk.ImageLayoutDepthStencilReadOnlyOptimal,
	"shader_read_only_optimal":         vk.ImageLayoutShaderReadOnlyOptimal,
	"transfer_src_optimal":             vk.ImageLayoutTransferSrcOptimal,
	"transfer_dst_optimal":             vk.ImageLayoutTransferDstOptimal,
	"preinitialized":                   vk.ImageLayoutPreinitialized,
	"present_src":                      vk.ImageLayoutPresentSrc,
}

var formatNames = map[string]vk.Format{
	"undefined":           vk.FormatUndefined,
	"r8g8b8a8_unorm":      vk.FormatR8g8b8a8Unorm,
	"r8g8b8a8_srgb":       vk.FormatR8g8b8a8Srgb,
	"b8g8r8a8_unorm":      vk.FormatB8g8r8a8Unorm,
	"b8g8r8a8_srgb":       vk.FormatB8g8r8a8Srgb,
	"r16g16_sfloat":       vk.FormatR16g16Sfloat,
	"r16g16b16a16_unorm":  vk.FormatR16g16b16a16Unorm,
	"r16g16b16a16_sfloat": vk.FormatR16g16b16a16Sfloat,
	"r32g32_sfloat":       vk.FormatR32g32Sfloat,
	"r32g32b32a32_sfloat": vk.FormatR32g32b32a32Sfloat,
	"d32_sfloat":          vk.FormatD32Sfloat,
	"d24_unorm_s8_uint":   vk.FormatD24UnormS8Uint,
	"d32_sfloat_s8_uint":  vk.FormatD32SfloatS8Uint,
}

func parseMask[T ~uint32](kind string, table []flagName[T], names []string) (T, error) {
	var mask T
	for _, n := range names {
		found := false
		key := strings.ToLower(strings.TrimSpace(n))
		for _, e := range table {
			if e.name == key {
				mask |= e.bit
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Wrapf(ErrUnknownName, "%s %q", kind, n)
		}
	}
	return mask, nil
}

func maskString[T ~uint32](table []flagName[T], mask T) string {
	if mask == 0 {
		return "none"
	}
	var parts []string
	rest := mask
	for _, e := range table {
		if mask&e.bit == e.bit && e.bit != 0 {
			parts = append(parts, e.name)
			rest &^= e.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

func ParseStageMask(names []string) (vk.PipelineStageFlags, error) {
	return parseMask("pipeline stage", stageNames, names)
}

func ParseAccessMask(names []string) (vk.AccessFlags, error) {
	return parseMask("access", accessNames, names)
}

func ParseImageUsage(names []string) (vk.ImageUsageFlags, error) {
	return parseMask("image usage", imageUsageNames, names)
}

func ParseBufferUsage(names []string) (vk.BufferUsageFlags, error) {
	return parseMask("buffer usage", bufferUsageNames, names)
}

func ParseImageLayout(name string) (vk.ImageLayout, error) {
	if name == "" {
		return vk.ImageLayoutUndefined, nil
	}
	l, ok := layoutNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownName, "image layout %q", name)
	}
	return l, nil
}

func ParseFormat(name string) (vk.Format, error) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownName, "format %q", name)
	}
	return f, nil
}

func StageMaskString(mask vk.PipelineStageFlags) string {
	return maskString(stageNames, mask)
}

func AccessMaskString(mask vk.AccessFlags) string {
	return maskString(accessNames, mask)
}

func ImageLayoutString(layout vk.ImageLayout) string {
	for n, l := range layoutNames {
		if l == layout {
			return n
		}
	}
	return "unknown"
}

func FormatString(format vk.Format) string {
	for n, f := range formatNames {
		if f == format {
			return n
		}
	}
	return "unknown"
}
