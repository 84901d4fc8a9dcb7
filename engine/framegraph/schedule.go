package framegraph

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// ResourceUsageEvent is one consolidated access to a resource on the timeline.
type ResourceUsageEvent struct {
	RenderPass RenderPassHandle
	Usage      ResourceUsageHandle
	Access     metadata.GPUResourceAccess
}

type Barrier struct {
	Resource ResourceHandle
	Src      ResourceUsageEvent
	Dst      ResourceUsageEvent
}

type BarrierType uint8

const (
	// ImmediateBefore runs right before its render pass.
	ImmediateBefore BarrierType = iota
	// ImmediateAfter runs right after its render pass.
	ImmediateAfter
	// SplitBegin signals after the producing pass.
	SplitBegin
	// SplitEnd waits before the consuming pass.
	SplitEnd
)

func (t BarrierType) String() string {
	switch t {
	case ImmediateBefore:
		return "ImmediateBefore"
	case ImmediateAfter:
		return "ImmediateAfter"
	case SplitBegin:
		return "SplitBegin"
	case SplitEnd:
		return "SplitEnd"
	default:
		return fmt.Sprintf("BarrierType(%d)", uint8(t))
	}
}

// ExecutesBeforePass reports on which side of its render pass the event runs.
func (t BarrierType) ExecutesBeforePass() bool {
	return t == ImmediateBefore || t == SplitEnd
}

type BarrierEvent struct {
	Type          BarrierType
	BarrierHandle uint32
	RenderPass    RenderPassHandle
}

// FrameGraphSchedule is immutable once returned by ComputeSchedule and can be
// read from several goroutines.
type FrameGraphSchedule struct {
	Queue0        []RenderPassHandle
	Barriers      []Barrier
	BarrierEvents []BarrierEvent
}

// SplitBarrierCount is the number of barriers recorded as a signal/wait pair.
func (s *FrameGraphSchedule) SplitBarrierCount() int {
	count := 0
	for _, e := range s.BarrierEvents {
		if e.Type == SplitBegin {
			count++
		}
	}
	return count
}

// ComputeSchedule orders the used passes as recorded and derives the barriers
// between consecutive accesses of every resource. fg must have been built.
func ComputeSchedule(fg *FrameGraph) (*FrameGraphSchedule, error) {
	const op = "compute schedule"
	if !fg.built {
		return nil, newError(op, ErrNotBuilt)
	}
	if fg.buildErr != nil {
		return nil, newError(op, errors.Mark(fg.buildErr, ErrNotBuilt))
	}

	schedule := &FrameGraphSchedule{}
	for i := range fg.RenderPasses {
		if fg.RenderPasses[i].IsUsed {
			schedule.Queue0 = append(schedule.Queue0, RenderPassHandle(i))
		}
	}
	if len(schedule.Queue0) == 0 {
		return schedule, nil
	}

	events, err := consolidateEvents(fg, schedule.Queue0)
	if err != nil {
		return nil, newError(op, err)
	}

	for flat, resourceEvents := range events {
		handle := resourceHandleFromFlat(fg, flat)
		for i := 1; i < len(resourceEvents); i++ {
			src := resourceEvents[i-1]
			dst := resourceEvents[i]
			// every texture barrier is a layout transition
			if handle.IsTexture() && src.Access.ImageLayout == dst.Access.ImageLayout {
				resource, _ := fg.GetResource(handle)
				return nil, newError(op, errors.Wrapf(ErrLayoutMismatch,
					"texture '%s' keeps layout %s between %s and %s", resource.DebugName,
					metadata.ImageLayoutString(dst.Access.ImageLayout), src.Usage, dst.Usage))
			}
			schedule.Barriers = append(schedule.Barriers, Barrier{Resource: handle, Src: src, Dst: dst})
		}
	}

	position := make(map[RenderPassHandle]int, len(schedule.Queue0))
	for i, h := range schedule.Queue0 {
		position[h] = i
	}
	for i, barrier := range schedule.Barriers {
		handle := uint32(i)
		srcPos := position[barrier.Src.RenderPass]
		dstPos := position[barrier.Dst.RenderPass]
		switch {
		case dstPos == srcPos+1:
			schedule.BarrierEvents = append(schedule.BarrierEvents,
				BarrierEvent{Type: ImmediateAfter, BarrierHandle: handle, RenderPass: barrier.Src.RenderPass})
		case dstPos == srcPos:
			schedule.BarrierEvents = append(schedule.BarrierEvents,
				BarrierEvent{Type: ImmediateBefore, BarrierHandle: handle, RenderPass: barrier.Dst.RenderPass})
		default:
			schedule.BarrierEvents = append(schedule.BarrierEvents,
				BarrierEvent{Type: SplitBegin, BarrierHandle: handle, RenderPass: barrier.Src.RenderPass},
				BarrierEvent{Type: SplitEnd, BarrierHandle: handle, RenderPass: barrier.Dst.RenderPass})
		}
	}

	slices.SortStableFunc(schedule.BarrierEvents, func(a, b BarrierEvent) int {
		if a.RenderPass != b.RenderPass {
			if a.RenderPass < b.RenderPass {
				return -1
			}
			return 1
		}
		ab, bb := a.Type.ExecutesBeforePass(), b.Type.ExecutesBeforePass()
		switch {
		case ab == bb:
			return 0
		case ab:
			return -1
		default:
			return 1
		}
	})

	core.LogDebug("framegraph %s: scheduled %d passes, %d barriers (%d split)",
		fg.ID, len(schedule.Queue0), len(schedule.Barriers), schedule.SplitBarrierCount())
	return schedule, nil
}

func consolidateEvents(fg *FrameGraph, queue0 []RenderPassHandle) ([][]ResourceUsageEvent, error) {
	events := make([][]ResourceUsageEvent, fg.ResourceCount())

	for _, passHandle := range queue0 {
		pass := &fg.RenderPasses[passHandle]
		for _, usageHandle := range pass.ResourceUsageHandles {
			usage, err := fg.GetResourceUsage(usageHandle)
			if err != nil {
				return nil, err
			}
			if !usage.IsUsed {
				continue
			}
			resource, err := fg.GetResource(usage.Resource)
			if err != nil {
				return nil, err
			}
			flat := fg.FlatResourceIndex(usage.Resource)
			resourceEvents := events[flat]

			if len(resourceEvents) == 0 {
				if usage.Type == Input {
					return nil, errors.Wrapf(ErrOutOfOrder, "'%s' reads '%s' before any pass produced it",
						pass.DebugName, resource.DebugName)
				}
				resourceEvents = append(resourceEvents, ResourceUsageEvent{
					RenderPass: queue0[0],
					Usage:      usageHandle,
					Access:     metadata.InitialResourceAccess(),
				})
			}

			previous := &resourceEvents[len(resourceEvents)-1]
			previousUsage := &fg.ResourceUsages[previous.Usage]
			if previousUsage.Type == Input && usage.Type == Input {
				if resource.IsTexture() && previous.Access.ImageLayout != usage.Access.ImageLayout {
					return nil, errors.Wrapf(ErrLayoutMismatch, "readers of '%s' need %s and %s",
						resource.DebugName,
						metadata.ImageLayoutString(previous.Access.ImageLayout),
						metadata.ImageLayoutString(usage.Access.ImageLayout))
				}
				previous.Access = previous.Access.Merge(usage.Access)
			} else {
				resourceEvents = append(resourceEvents, ResourceUsageEvent{
					RenderPass: passHandle,
					Usage:      usageHandle,
					Access:     usage.Access,
				})
			}
			events[flat] = resourceEvents
		}
	}
	return events, nil
}

func resourceHandleFromFlat(fg *FrameGraph, flat int) ResourceHandle {
	if flat < len(fg.Textures) {
		return NewResourceHandle(uint32(flat), true)
	}
	return NewResourceHandle(uint32(flat-len(fg.Textures)), false)
}

// GetBarriersToExecute returns the contiguous run of events attached to pass
// on the requested side. It relies on the ordering ComputeSchedule produces.
func GetBarriersToExecute(schedule *FrameGraphSchedule, pass RenderPassHandle, executeBeforePass bool) []BarrierEvent {
	first, last := -1, -1
	for i, e := range schedule.BarrierEvents {
		if e.RenderPass == pass && e.Type.ExecutesBeforePass() == executeBeforePass {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}
	return schedule.BarrierEvents[first : last+1]
}
