package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/framegraph"
)

// BarrierRecorder receives the synchronization commands of a frame graph.
// VulkanCommandBuffer records them into a command buffer.
type BarrierRecorder interface {
	PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags,
		bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier)
	SetEvent(event vk.Event, stage vk.PipelineStageFlags)
	WaitEvents(events []vk.Event, srcStage, dstStage vk.PipelineStageFlags,
		bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier)
}

type BarrierCommandKind uint8

const (
	PipelineBarrierCommand BarrierCommandKind = iota
	SetEventCommand
	WaitEventsCommand
)

func (k BarrierCommandKind) String() string {
	switch k {
	case PipelineBarrierCommand:
		return "pipeline_barrier"
	case SetEventCommand:
		return "set_event"
	case WaitEventsCommand:
		return "wait_events"
	default:
		return "unknown"
	}
}

// BarrierCommand is one recorded synchronization command. Event commands use
// the barrier handle as index into the event pool.
type BarrierCommand struct {
	Kind           BarrierCommandKind
	Barrier        uint32
	SrcStage       vk.PipelineStageFlags
	DstStage       vk.PipelineStageFlags
	ImageBarriers  []vk.ImageMemoryBarrier
	BufferBarriers []vk.BufferMemoryBarrier
}

// PlanFrameGraphBarriers translates the barrier events attached to one side
// of pass into commands.
func PlanFrameGraphBarriers(schedule *framegraph.FrameGraphSchedule, fg *framegraph.FrameGraph,
	resources *FrameGraphResources, pass framegraph.RenderPassHandle, executeBeforePass bool) ([]BarrierCommand, error) {
	events := framegraph.GetBarriersToExecute(schedule, pass, executeBeforePass)
	if len(events) == 0 {
		return nil, nil
	}

	commands := make([]BarrierCommand, 0, len(events))
	for _, event := range events {
		if int(event.BarrierHandle) >= len(schedule.Barriers) {
			return nil, errors.Wrapf(framegraph.ErrInvalidHandle, "barrier %d", event.BarrierHandle)
		}
		barrier := &schedule.Barriers[event.BarrierHandle]

		var kind BarrierCommandKind
		switch {
		case event.Type == framegraph.ImmediateBefore && executeBeforePass,
			event.Type == framegraph.ImmediateAfter && !executeBeforePass:
			kind = PipelineBarrierCommand
		case event.Type == framegraph.SplitBegin && !executeBeforePass:
			kind = SetEventCommand
		case event.Type == framegraph.SplitEnd && executeBeforePass:
			kind = WaitEventsCommand
		default:
			continue
		}

		if kind != PipelineBarrierCommand && int(event.BarrierHandle) >= len(resources.Events) {
			return nil, errors.Wrapf(ErrEventPoolExhausted, "barrier %d, pool of %d", event.BarrierHandle, len(resources.Events))
		}

		command := BarrierCommand{
			Kind:     kind,
			Barrier:  event.BarrierHandle,
			SrcStage: barrier.Src.Access.StageMask,
			DstStage: barrier.Dst.Access.StageMask,
		}
		if kind == SetEventCommand {
			commands = append(commands, command)
			continue
		}

		dstUsage, err := fg.GetResourceUsage(barrier.Dst.Usage)
		if err != nil {
			return nil, err
		}
		if barrier.Resource.IsTexture() {
			image, err := resources.Image(barrier.Resource)
			if err != nil {
				return nil, err
			}
			view, _ := dstUsage.TextureView()
			command.ImageBarriers = []vk.ImageMemoryBarrier{
				GetVkImageBarrier(image.Handle, view, barrier.Src.Access.Texture(), barrier.Dst.Access.Texture()),
			}
		} else {
			buffer, err := resources.Buffer(barrier.Resource)
			if err != nil {
				return nil, err
			}
			view, _ := dstUsage.BufferView()
			command.BufferBarriers = []vk.BufferMemoryBarrier{
				GetVkBufferBarrier(buffer.Handle, view, barrier.Src.Access.Buffer(), barrier.Dst.Access.Buffer()),
			}
		}
		commands = append(commands, command)
	}
	return commands, nil
}

// ReplayBarrierCommands sends planned commands to rec.
func ReplayBarrierCommands(rec BarrierRecorder, resources *FrameGraphResources, commands []BarrierCommand) error {
	for _, command := range commands {
		switch command.Kind {
		case PipelineBarrierCommand:
			rec.PipelineBarrier(command.SrcStage, command.DstStage, command.BufferBarriers, command.ImageBarriers)
		case SetEventCommand:
			event, err := resources.Event(command.Barrier)
			if err != nil {
				return err
			}
			rec.SetEvent(event, command.SrcStage)
		case WaitEventsCommand:
			event, err := resources.Event(command.Barrier)
			if err != nil {
				return err
			}
			rec.WaitEvents([]vk.Event{event}, command.SrcStage, command.DstStage, command.BufferBarriers, command.ImageBarriers)
		}
	}
	return nil
}

// RecordFrameGraphBarriers records the barriers of one side of pass.
func RecordFrameGraphBarriers(rec BarrierRecorder, schedule *framegraph.FrameGraphSchedule, fg *framegraph.FrameGraph,
	resources *FrameGraphResources, pass framegraph.RenderPassHandle, executeBeforePass bool) error {
	commands, err := PlanFrameGraphBarriers(schedule, fg, resources, pass, executeBeforePass)
	if err != nil {
		return err
	}
	return ReplayBarrierCommands(rec, resources, commands)
}

// PassFunc records the work of one render pass.
type PassFunc func(pass framegraph.RenderPassHandle, renderPass *framegraph.RenderPass) error

// PassCommands holds the planned barriers around one pass.
type PassCommands struct {
	Pass   framegraph.RenderPassHandle
	Before []BarrierCommand
	After  []BarrierCommand
}

// PlanPass plans both sides of pass. It only reads its arguments, so passes
// of the same frame can be planned concurrently.
func PlanPass(schedule *framegraph.FrameGraphSchedule, fg *framegraph.FrameGraph,
	resources *FrameGraphResources, pass framegraph.RenderPassHandle) (PassCommands, error) {
	plan := PassCommands{Pass: pass}
	var err error
	if plan.Before, err = PlanFrameGraphBarriers(schedule, fg, resources, pass, true); err != nil {
		return plan, errors.Wrap(err, "barriers before pass")
	}
	if plan.After, err = PlanFrameGraphBarriers(schedule, fg, resources, pass, false); err != nil {
		return plan, errors.Wrap(err, "barriers after pass")
	}
	return plan, nil
}

// ReplayFrameGraph records plans in order, each pass between its barriers.
func ReplayFrameGraph(rec BarrierRecorder, fg *framegraph.FrameGraph, resources *FrameGraphResources,
	plans []PassCommands, recordPass PassFunc) error {
	for _, plan := range plans {
		renderPass, err := fg.GetRenderPass(plan.Pass)
		if err != nil {
			return err
		}
		if err := ReplayBarrierCommands(rec, resources, plan.Before); err != nil {
			return errors.Wrapf(err, "barriers before '%s'", renderPass.DebugName)
		}
		if recordPass != nil {
			if err := recordPass(plan.Pass, renderPass); err != nil {
				return errors.Wrapf(err, "pass '%s'", renderPass.DebugName)
			}
		}
		if err := ReplayBarrierCommands(rec, resources, plan.After); err != nil {
			return errors.Wrapf(err, "barriers after '%s'", renderPass.DebugName)
		}
	}
	return nil
}

// RecordFrameGraph plans every pass of queue0 and replays the result.
func RecordFrameGraph(rec BarrierRecorder, schedule *framegraph.FrameGraphSchedule, fg *framegraph.FrameGraph,
	resources *FrameGraphResources, recordPass PassFunc) error {
	plans := make([]PassCommands, 0, len(schedule.Queue0))
	for _, pass := range schedule.Queue0 {
		renderPass, err := fg.GetRenderPass(pass)
		if err != nil {
			return err
		}
		plan, err := PlanPass(schedule, fg, resources, pass)
		if err != nil {
			return errors.Wrapf(err, "pass '%s'", renderPass.DebugName)
		}
		plans = append(plans, plan)
	}
	return ReplayFrameGraph(rec, fg, resources, plans, recordPass)
}

// CommandCounter is a BarrierRecorder that only counts what it receives.
type CommandCounter struct {
	PipelineBarrierCount int
	SetEventCount        int
	WaitEventCount       int
	ImageBarrierCount    int
	BufferBarrierCount   int
}

func (c *CommandCounter) PipelineBarrier(_, _ vk.PipelineStageFlags,
	bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier) {
	c.PipelineBarrierCount++
	c.BufferBarrierCount += len(bufferBarriers)
	c.ImageBarrierCount += len(imageBarriers)
}

func (c *CommandCounter) SetEvent(vk.Event, vk.PipelineStageFlags) {
	c.SetEventCount++
}

func (c *CommandCounter) WaitEvents(_ []vk.Event, _, _ vk.PipelineStageFlags,
	bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier) {
	c.WaitEventCount++
	c.BufferBarrierCount += len(bufferBarriers)
	c.ImageBarrierCount += len(imageBarriers)
}

// RecorderGroup forwards every command to each of its recorders in order.
type RecorderGroup []BarrierRecorder

func (g RecorderGroup) PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags,
	bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier) {
	for _, rec := range g {
		rec.PipelineBarrier(srcStage, dstStage, bufferBarriers, imageBarriers)
	}
}

func (g RecorderGroup) SetEvent(event vk.Event, stage vk.PipelineStageFlags) {
	for _, rec := range g {
		rec.SetEvent(event, stage)
	}
}

func (g RecorderGroup) WaitEvents(events []vk.Event, srcStage, dstStage vk.PipelineStageFlags,
	bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier) {
	for _, rec := range g {
		rec.WaitEvents(events, srcStage, dstStage, bufferBarriers, imageBarriers)
	}
}

var (
	_ BarrierRecorder = (*VulkanCommandBuffer)(nil)
	_ BarrierRecorder = (*CommandCounter)(nil)
	_ BarrierRecorder = RecorderGroup(nil)
)
