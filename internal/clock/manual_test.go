package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestManual_AdvanceFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })

	m.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)
	assert.Equal(t, 2, m.Pending())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 1150*time.Millisecond, m.Elapsed())
}

func TestManual_TiesFireInArmingOrder(t *testing.T) {
	m := NewManual(epoch)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		m.AfterFunc(time.Second, func() { order = append(order, i) })
	}

	m.Advance(time.Second)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestManual_NowDuringCallbackIsDeadline(t *testing.T) {
	m := NewManual(epoch)

	var seen time.Time
	m.AfterFunc(250*time.Millisecond, func() { seen = m.Now() })
	m.Advance(time.Second)

	assert.Equal(t, epoch.Add(250*time.Millisecond), seen)
	assert.Equal(t, epoch.Add(time.Second), m.Now())
}

func TestManual_StopPreventsFire(t *testing.T) {
	m := NewManual(epoch)

	ran := false
	timer := m.AfterFunc(time.Second, func() { ran = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, m.Pending())

	m.Advance(10 * time.Second)
	assert.False(t, ran)
}

func TestManual_StopAfterFire(t *testing.T) {
	m := NewManual(epoch)

	timer := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)

	assert.False(t, timer.Stop())
}

func TestManual_CallbackCanStopLaterTimer(t *testing.T) {
	m := NewManual(epoch)

	ran := false
	var later Timer
	m.AfterFunc(time.Second, func() { later.Stop() })
	later = m.AfterFunc(2*time.Second, func() { ran = true })

	m.Advance(5 * time.Second)
	assert.False(t, ran)
}

func TestManual_TimersArmedDuringAdvanceFireInWindow(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.AfterFunc(time.Second, func() {
		order = append(order, "first")
		m.AfterFunc(time.Second, func() { order = append(order, "second") })
	})

	m.Advance(3 * time.Second)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManual_PostRunsInline(t *testing.T) {
	m := NewManual(epoch)

	ran := false
	require.True(t, m.Post(func() { ran = true }))
	assert.True(t, ran)
}

func TestManual_ReentrantPostRunsAfterCurrent(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.Post(func() {
		m.Post(func() { order = append(order, "inner") })
		order = append(order, "outer")
	})

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestManual_AdvanceTo(t *testing.T) {
	m := NewManual(epoch)

	m.AdvanceTo(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, m.Elapsed())

	m.AdvanceTo(time.Second) // never backwards
	assert.Equal(t, 1500*time.Millisecond, m.Elapsed())
}

func TestManual_NextDeadline(t *testing.T) {
	m := NewManual(epoch)

	_, ok := m.NextDeadline()
	assert.False(t, ok)

	m.AfterFunc(2*time.Second, func() {})
	m.AfterFunc(time.Second, func() {})

	d, ok := m.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Second), d)
}

func TestSequence_Monotonic(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, int64(0), s.Current())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(2), s.Current())
}

func TestStopAll(t *testing.T) {
	m := NewManual(epoch)

	a := m.AfterFunc(time.Second, func() {})
	b := m.AfterFunc(2*time.Second, func() {})
	m.Advance(time.Second) // a fires

	assert.Equal(t, 1, StopAll([]Timer{a, b, nil}))
	assert.Equal(t, 0, m.Pending())
}
