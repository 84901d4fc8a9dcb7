package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Stops the frame loop after the current frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A frame description file changed on disk.
	/* Context usage:
	 * path := ctx.Data.(string)
	 */
	EVENT_CODE_DESCRIPTION_CHANGED SystemEventCode = 0x02

	// Resolution changed; textures sized from the screen must be recreated.
	/* Context usage:
	 * size := ctx.Data.(ResizeEvent)
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x03

	// A frame graph was built and scheduled.
	EVENT_CODE_FRAME_SCHEDULED SystemEventCode = 0x04

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

// Should return true if handled.
type FnOnEvent func(ctx EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventSystem dispatches events synchronously on the goroutine that fires
// them. It is safe for concurrent use.
type EventSystem struct {
	mutex      sync.RWMutex
	registered map[SystemEventCode][]registeredEvent
}

func NewEventSystem() *EventSystem {
	return &EventSystem{
		registered: make(map[SystemEventCode][]registeredEvent),
	}
}

// Register adds a listener for code. listener identifies the registration and
// must be comparable; registering the same listener twice returns false.
func (es *EventSystem) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	for _, e := range es.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	es.registered[code] = append(es.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

func (es *EventSystem) Unregister(code SystemEventCode, listener interface{}) bool {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	events := es.registered[code]
	for i, e := range events {
		if e.listener == listener {
			es.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire calls the listeners of ctx.Type in registration order until one of
// them handles the event.
func (es *EventSystem) Fire(ctx EventContext) bool {
	es.mutex.RLock()
	events := make([]registeredEvent, len(es.registered[ctx.Type]))
	copy(events, es.registered[ctx.Type])
	es.mutex.RUnlock()

	for _, e := range events {
		if e.callback(ctx) {
			return true
		}
	}
	return false
}

func (es *EventSystem) Shutdown() {
	es.mutex.Lock()
	defer es.mutex.Unlock()
	es.registered = make(map[SystemEventCode][]registeredEvent)
}
