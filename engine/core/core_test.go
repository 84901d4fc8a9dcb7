package core

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}

func TestInitLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(WarnLevel, &buf)
	t.Cleanup(func() { InitLogger(InfoLevel, &bytes.Buffer{}) })

	LogInfo("hidden %d", 1)
	LogWarn("visible %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "visible 2")
}

func TestClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClock()
	c.now = func() time.Time { return now }

	c.Update()
	assert.Zero(t, c.Elapsed(), "not started")

	c.Start()
	now = now.Add(3 * time.Millisecond)
	c.Update()
	assert.Equal(t, 3*time.Millisecond, c.Elapsed())

	now = now.Add(2 * time.Millisecond)
	c.Stop()
	assert.Equal(t, 5*time.Millisecond, c.Elapsed())

	now = now.Add(time.Second)
	c.Update()
	assert.Equal(t, 5*time.Millisecond, c.Elapsed(), "stopped clock keeps its value")
}

func TestFrameMetrics_Average(t *testing.T) {
	m := NewFrameMetrics()
	assert.Zero(t, m.Average())

	m.Update(2 * time.Millisecond)
	m.Update(4 * time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, m.Average())

	for i := 2; i < int(AVG_COUNT); i++ {
		m.Update(3 * time.Millisecond)
	}
	assert.Equal(t, uint64(AVG_COUNT), m.Frames())
	assert.Equal(t, 3*time.Millisecond, m.Average())
}

func TestEventSystem(t *testing.T) {
	es := NewEventSystem()
	first, second := new(int), new(int)

	var order []string
	assert.True(t, es.Register(EVENT_CODE_RESIZED, first, func(ctx EventContext) bool {
		order = append(order, "first")
		return false
	}))
	assert.False(t, es.Register(EVENT_CODE_RESIZED, first, func(EventContext) bool { return false }))
	assert.True(t, es.Register(EVENT_CODE_RESIZED, second, func(ctx EventContext) bool {
		order = append(order, "second")
		size, ok := ctx.Data.(ResizeEvent)
		return ok && size.Width == 640
	}))

	handled := es.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: ResizeEvent{Width: 640, Height: 480}})
	assert.True(t, handled)
	assert.Equal(t, []string{"first", "second"}, order)

	assert.False(t, es.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}), "no listener")

	assert.True(t, es.Unregister(EVENT_CODE_RESIZED, second))
	assert.False(t, es.Unregister(EVENT_CODE_RESIZED, second))
	assert.False(t, es.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: ResizeEvent{Width: 640}}))

	es.Shutdown()
	order = nil
	es.Fire(EventContext{Type: EVENT_CODE_RESIZED})
	assert.Empty(t, order)
}
