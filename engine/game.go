package engine

import (
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/vulkan"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnRecordFrame     RecordFrame
	FnRecordPass      vulkan.PassFunc
	FnOnResize        OnResize
	// Device used by the vulkan backend. Instance and device creation belong
	// to the windowing layer.
	VulkanContext *vulkan.VulkanContext
}

// RecordFrame declares the passes and resources of one frame.
type RecordFrame func(b *framegraph.Builder, width, height uint32) error
type OnResize func(width uint32, height uint32) error
