package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMeter(interval time.Duration) (*Meter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	m := &Meter{interval: interval, now: clock.now}
	m.Reset()
	return m, clock
}

func TestMeterSample(t *testing.T) {
	m, clock := newTestMeter(time.Second)

	m.Add(1000)
	clock.advance(500 * time.Millisecond)
	assert.Zero(t, m.Sample(), "sampled before interval elapsed")

	clock.advance(1500 * time.Millisecond)
	assert.InDelta(t, 500.0, m.Sample(), 0.001)

	// no new bytes keeps the previous rate
	clock.advance(2 * time.Second)
	assert.InDelta(t, 500.0, m.Sample(), 0.001)

	m.Add(4000)
	clock.advance(2 * time.Second)
	assert.InDelta(t, 1000.0, m.Sample(), 0.001)
}

func TestMeterAverage(t *testing.T) {
	m, clock := newTestMeter(time.Second)

	for range 5 {
		m.Add(2048)
		clock.advance(time.Second)
		m.Sample()
	}

	assert.InDelta(t, 2048.0, m.Average(), 0.001)
}

func TestMeterReset(t *testing.T) {
	m, clock := newTestMeter(time.Second)

	m.Add(100)
	clock.advance(time.Second)
	assert.NotZero(t, m.Sample())

	m.Reset()
	assert.Zero(t, m.Sample())
	assert.Zero(t, m.Average())
}
