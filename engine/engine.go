package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/spaghettifunk/framegraph/engine/assets"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/vulkan"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const targetFrameTime = time.Second / 60

// FrameResult summarizes one rendered frame.
type FrameResult struct {
	ID            uuid.UUID
	Number        uint64
	Passes        int
	PrunedPasses  int
	Barriers      int
	SplitBarriers int
	Commands      vulkan.CommandCounter
	Elapsed       time.Duration
	DumpDir       string
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig

	graph       *framegraph.FrameGraph
	description *assets.Description
	allocator   vulkan.ResourceAllocator
	device      *vulkan.VulkanContext
	resources   *vulkan.FrameGraphResources
	jobs        *systems.JobSystem

	clock       *core.Clock
	metrics     *core.FrameMetrics
	events      *core.EventSystem
	watcher     *assets.Watcher
	frameNumber uint64

	mutex  sync.Mutex
	width  uint32
	height uint32

	dirty    chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

func New(g *Game) (*Engine, error) {
	config := g.ApplicationConfig
	if config == nil {
		config = DefaultApplicationConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if g.FnRecordFrame == nil && config.Description == "" {
		return nil, core.ErrNoFrameRecorder
	}

	var (
		allocator vulkan.ResourceAllocator = &vulkan.DryRunAllocator{}
		device    *vulkan.VulkanContext
	)
	if config.Backend == BackendVulkan {
		if g.VulkanContext == nil {
			return nil, core.ErrNoDeviceContext
		}
		device = g.VulkanContext
		allocator = vulkan.NewDeviceAllocator(device)
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		graph:        framegraph.New(),
		allocator:    allocator,
		device:       device,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		events:       core.NewEventSystem(),
		width:        config.ScreenWidth,
		height:       config.ScreenHeight,
		dirty:        make(chan struct{}, 1),
		quit:         make(chan struct{}),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_DESCRIPTION_CHANGED, e, e.onDescriptionChanged)

	resources, err := vulkan.NewFrameGraphResources(e.allocator)
	if err != nil {
		return err
	}
	e.resources = resources

	workers := e.config.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if e.jobs, err = systems.NewJobSystem(workers, workers); err != nil {
		return err
	}

	if e.config.Description != "" {
		if err := e.loadDescription(); err != nil {
			return err
		}
	}

	if e.config.Watch {
		w, err := assets.NewWatcher(func(path string) {
			e.events.Fire(core.EventContext{Type: core.EVENT_CODE_DESCRIPTION_CHANGED, Data: path})
		})
		if err != nil {
			return err
		}
		if err := w.Watch(e.config.Description); err != nil {
			w.Close()
			return err
		}
		e.watcher = w
		core.LogInfo("watching %s", e.config.Description)
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) loadDescription() error {
	w, h := e.GetFramebufferSize()
	d, err := assets.LoadDescription(e.config.Description, assets.Variables{ScreenWidth: w, ScreenHeight: h})
	if err != nil {
		return err
	}
	e.description = d
	return nil
}

func (e *Engine) record(b *framegraph.Builder) error {
	if e.description != nil {
		return e.description.Record(b)
	}
	w, h := e.GetFramebufferSize()
	return e.gameInstance.FnRecordFrame(b, w, h)
}

// RenderFrame records, builds and schedules one frame, then replays its
// barriers against the dry run backend.
func (e *Engine) RenderFrame() (*FrameResult, error) {
	if e.currentStage < EngineStageInitialized {
		return nil, errors.New("engine is not initialized")
	}

	e.clock.Start()
	e.graph.Reset()
	b := framegraph.NewBuilder(e.graph)
	if err := e.record(b); err != nil {
		return nil, errors.Wrap(err, "failed to record frame")
	}
	if err := b.Build(); err != nil {
		return nil, err
	}
	schedule, err := framegraph.ComputeSchedule(e.graph)
	if err != nil {
		return nil, err
	}
	e.clock.Stop()

	if err := e.resources.Allocate(e.graph); err != nil {
		return nil, err
	}
	result := &FrameResult{
		ID:            e.graph.ID,
		Number:        e.frameNumber,
		Passes:        len(schedule.Queue0),
		PrunedPasses:  len(e.graph.RenderPasses) - len(schedule.Queue0),
		Barriers:      len(schedule.Barriers),
		SplitBarriers: schedule.SplitBarrierCount(),
		Elapsed:       e.clock.Elapsed(),
	}
	plans, err := e.planBarriers(schedule)
	if err != nil {
		return nil, err
	}
	if err := e.replay(&result.Commands, plans); err != nil {
		return nil, err
	}

	if e.config.DumpDir != "" {
		dir, err := e.dump(schedule)
		if err != nil {
			return nil, err
		}
		result.DumpDir = dir
	}

	e.metrics.Update(result.Elapsed)
	e.metrics.LastPassCount = result.Passes
	e.metrics.LastPrunedCount = result.PrunedPasses
	e.metrics.LastBarrierCount = result.Barriers
	e.metrics.LastSplitCount = result.SplitBarriers
	e.frameNumber++

	core.LogInfo("frame %d: %d passes (%d pruned), %d barriers (%d split), %d images, %d buffers in %s",
		result.Number, result.Passes, result.PrunedPasses, result.Barriers, result.SplitBarriers,
		allocatedCount(e.resources.Images), allocatedCount(e.resources.Buffers), result.Elapsed)
	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_FRAME_SCHEDULED, Data: result})
	return result, nil
}

// replay records the planned frame into counter and, on the vulkan backend,
// into a single use command buffer submitted to the graphics queue.
func (e *Engine) replay(counter *vulkan.CommandCounter, plans []vulkan.PassCommands) error {
	if e.device == nil {
		return vulkan.ReplayFrameGraph(counter, e.graph, e.resources, plans, e.gameInstance.FnRecordPass)
	}

	pool := e.device.GraphicsCommandPool
	cmd, err := vulkan.NewVulkanCommandBuffer(e.device, pool, true)
	if err != nil {
		return err
	}
	if err := cmd.Begin(true); err != nil {
		cmd.Free(e.device, pool)
		return err
	}
	rec := vulkan.RecorderGroup{counter, cmd}
	if err := vulkan.ReplayFrameGraph(rec, e.graph, e.resources, plans, e.gameInstance.FnRecordPass); err != nil {
		_ = cmd.End()
		cmd.Free(e.device, pool)
		return err
	}
	return cmd.EndSingleUse(e.device, pool, e.device.GraphicsQueue)
}

func allocatedCount[T any](objects []*T) int {
	count := 0
	for _, o := range objects {
		if o != nil {
			count++
		}
	}
	return count
}

// planBarriers plans the barriers of every scheduled pass on the job system.
func (e *Engine) planBarriers(schedule *framegraph.FrameGraphSchedule) ([]vulkan.PassCommands, error) {
	plans := make([]vulkan.PassCommands, len(schedule.Queue0))
	tasks := make([]systems.JobTask, len(schedule.Queue0))
	for i, pass := range schedule.Queue0 {
		i, pass := i, pass
		renderPass, err := e.graph.GetRenderPass(pass)
		if err != nil {
			return nil, err
		}
		tasks[i] = systems.JobTask{
			Name: renderPass.DebugName,
			Run: func() (err error) {
				plans[i], err = vulkan.PlanPass(schedule, e.graph, e.resources, pass)
				return err
			},
		}
	}
	if err := e.jobs.RunAll(tasks); err != nil {
		return nil, errors.Wrap(err, "failed to plan barriers")
	}
	return plans, nil
}

func (e *Engine) dump(schedule *framegraph.FrameGraphSchedule) (string, error) {
	dir := filepath.Join(e.config.DumpDir, e.graph.ID.String())
	if err := framegraph.DumpFrameGraph(e.graph, dir); err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(dir, "schedule.txt"))
	if err != nil {
		return "", errors.Wrap(err, "failed to create schedule dump")
	}
	defer f.Close()
	if err := framegraph.WriteSchedule(f, e.graph, schedule); err != nil {
		return "", err
	}
	core.LogDebug("dumped frame to %s", dir)
	return dir, nil
}

// Run renders the configured number of frames. With Frames set to zero, or
// when watching a description, it keeps rendering until ctx is done or the
// engine is asked to quit.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning

	for i := 0; i < e.config.Frames; i++ {
		if _, err := e.RenderFrame(); err != nil {
			core.LogError("frame failed: %s", err)
			return err
		}
	}
	if e.config.Frames > 0 && !e.config.Watch {
		return nil
	}

	var tick <-chan time.Time
	if e.config.Frames == 0 {
		ticker := time.NewTicker(targetFrameTime)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quit:
			return nil
		case <-e.dirty:
			if e.description != nil {
				if err := e.loadDescription(); err != nil {
					// keep the previous description until the file is fixed
					core.LogError("failed to reload description: %s", err)
					continue
				}
			}
			if _, err := e.RenderFrame(); err != nil {
				core.LogError("frame failed: %s", err)
			}
		case <-tick:
			if _, err := e.RenderFrame(); err != nil {
				core.LogError("frame failed: %s", err)
				return err
			}
		}
	}
}

// Quit stops Run after the current frame.
func (e *Engine) Quit() {
	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

// Resize changes the screen size used by screen sized textures.
func (e *Engine) Resize(width, height uint32) {
	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: core.ResizeEvent{Width: width, Height: height}})
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			return err
		}
	}
	if e.jobs != nil {
		if err := e.jobs.Shutdown(); err != nil {
			return err
		}
	}
	if e.resources != nil {
		e.resources.Destroy()
	}
	e.events.Shutdown()
	return nil
}

// GetFramebufferSize returns the width and height (in this order) of the
// screen.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.width, e.height
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

func (e *Engine) Events() *core.EventSystem {
	return e.events
}

func (e *Engine) markDirty() {
	select {
	case e.dirty <- struct{}{}:
	default:
	}
}

func (e *Engine) onEvent(ctx core.EventContext) bool {
	switch ctx.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.quitOnce.Do(func() { close(e.quit) })
		return true
	}
	return false
}

func (e *Engine) onResized(ctx core.EventContext) bool {
	size, ok := ctx.Data.(core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", ctx.Type)
		return false
	}
	if size.Width == 0 || size.Height == 0 {
		core.LogInfo("Window minimized, ignoring resize.")
		return true
	}

	e.mutex.Lock()
	changed := size.Width != e.width || size.Height != e.height
	e.width, e.height = size.Width, size.Height
	e.mutex.Unlock()

	if changed {
		core.LogDebug("resize: %d, %d", size.Width, size.Height)
		if e.gameInstance.FnOnResize != nil {
			if err := e.gameInstance.FnOnResize(size.Width, size.Height); err != nil {
				core.LogError(err.Error())
			}
		}
		e.markDirty()
	}
	return true
}

func (e *Engine) onDescriptionChanged(ctx core.EventContext) bool {
	core.LogInfo("description %v changed, re-rendering", ctx.Data)
	e.markDirty()
	return true
}
