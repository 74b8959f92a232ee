package core

import (
	"time"

	"github.com/VividCortex/ewma"
)

// Meter is a rolling throughput sample: bytes since the previous sample over
// the wall time since that sample. Samples closer together than interval
// return the previous rate.
type Meter struct {
	interval time.Duration
	now      func() time.Time

	bytes int64
	last  time.Time
	rate  float64
	avg   ewma.MovingAverage
}

func NewMeter(interval time.Duration) *Meter {
	m := &Meter{
		interval: interval,
		now:      time.Now,
	}
	m.Reset()
	return m
}

func (m *Meter) Reset() {
	m.bytes = 0
	m.last = m.now()
	m.rate = 0
	m.avg = ewma.NewMovingAverage()
}

func (m *Meter) Add(n int) {
	m.bytes += int64(n)
}

// Sample returns bytes per second.
func (m *Meter) Sample() float64 {
	now := m.now()
	elapsed := now.Sub(m.last)

	if elapsed <= 0 || elapsed < m.interval || m.bytes == 0 {
		return m.rate
	}

	m.rate = float64(m.bytes) / elapsed.Seconds()
	m.avg.Add(m.rate)
	m.bytes = 0
	m.last = now

	return m.rate
}

// Average is the exponentially weighted mean of all samples taken so far.
func (m *Meter) Average() float64 {
	return m.avg.Value()
}
