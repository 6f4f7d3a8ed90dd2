package cart

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDrawer_AutoClosesAfterIncrease(t *testing.T) {
	var closes atomic.Int32
	d := NewDrawer(30*time.Millisecond, func(open bool) {
		if !open {
			closes.Add(1)
		}
	})
	defer d.Stop()

	d.Track(0)
	d.Open()
	d.Track(1)
	assert.True(t, d.TimerActive())

	assert.Eventually(t, func() bool { return !d.IsOpen() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), closes.Load())
	assert.False(t, d.TimerActive())
}

func TestDrawer_PointerEnterKeepsOpen(t *testing.T) {
	d := NewDrawer(30*time.Millisecond, nil)
	defer d.Stop()

	d.Open()
	d.Track(2)
	d.PointerEnter()

	time.Sleep(80 * time.Millisecond)
	assert.True(t, d.IsOpen())
	assert.False(t, d.TimerActive())
}

func TestDrawer_NoTimerWhenClosedOrNotIncreasing(t *testing.T) {
	d := NewDrawer(time.Hour, nil)
	defer d.Stop()

	d.Track(3)
	assert.False(t, d.TimerActive(), "closed drawer never arms")

	d.Open()
	d.Track(3)
	assert.False(t, d.TimerActive(), "unchanged total")
	d.Track(1)
	assert.False(t, d.TimerActive(), "decreasing total")
	d.Track(2)
	assert.True(t, d.TimerActive())
}

func TestDrawer_CloseCancelsTimer(t *testing.T) {
	d := NewDrawer(time.Hour, nil)
	d.Open()
	d.Track(1)
	assert.True(t, d.TimerActive())

	d.Close()
	assert.False(t, d.IsOpen())
	assert.False(t, d.TimerActive())
}

func TestDrawer_Toggle(t *testing.T) {
	var changes []bool
	d := NewDrawer(0, func(open bool) { changes = append(changes, open) })

	d.Toggle()
	d.Toggle()
	d.Close()
	d.Open()
	d.Open()

	assert.Equal(t, []bool{true, false, true}, changes)
}

func TestDrawer_IncreaseWhilePendingRestartsTimer(t *testing.T) {
	var closes atomic.Int32
	d := NewDrawer(200*time.Millisecond, func(open bool) {
		if !open {
			closes.Add(1)
		}
	})
	defer d.Stop()

	d.Open()
	d.Track(1)
	time.Sleep(120 * time.Millisecond)
	d.Track(2)
	time.Sleep(120 * time.Millisecond)

	// Past the first deadline, still within the restarted one.
	assert.True(t, d.IsOpen())
	assert.True(t, d.TimerActive())
	assert.Eventually(t, func() bool { return !d.IsOpen() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), closes.Load())
}
