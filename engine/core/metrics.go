package core

import "time"

const AVG_COUNT uint8 = 30

// FrameMetrics keeps a rolling average of the CPU time spent preparing a frame
// graph (record + build + schedule) and the size of the last schedule.
type FrameMetrics struct {
	frameAVGCounter uint8
	times           [AVG_COUNT]time.Duration
	avg             time.Duration
	frames          uint64

	LastPassCount    int
	LastPrunedCount  int
	LastBarrierCount int
	LastSplitCount   int
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{}
}

// Update records the preparation time of one frame. The average is refreshed
// every AVG_COUNT frames.
func (m *FrameMetrics) Update(frameTime time.Duration) {
	m.times[m.frameAVGCounter] = frameTime
	if m.frameAVGCounter == AVG_COUNT-1 {
		var sum time.Duration
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.times[i]
		}
		m.avg = sum / time.Duration(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT
	m.frames++
}

// Average returns the last computed average. Before AVG_COUNT frames have been
// recorded it averages whatever is available.
func (m *FrameMetrics) Average() time.Duration {
	if m.frames >= uint64(AVG_COUNT) {
		return m.avg
	}
	if m.frames == 0 {
		return 0
	}
	var sum time.Duration
	for i := uint64(0); i < m.frames; i++ {
		sum += m.times[i]
	}
	return sum / time.Duration(m.frames)
}

func (m *FrameMetrics) Frames() uint64 {
	return m.frames
}
