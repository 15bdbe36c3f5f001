package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerFiresOnce(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("ticket-1", 10*time.Millisecond, func() { fired.Add(1) })

	waitFor(t, func() bool { return fired.Load() == 1 })
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestSchedulerReplacesPendingTask(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("ticket-1", time.Hour, func() { first.Add(1) })
	s.Schedule("ticket-1", 10*time.Millisecond, func() { second.Add(1) })

	waitFor(t, func() bool { return second.Load() == 1 })
	assert.Equal(t, int32(0), first.Load())
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("ticket-1", 50*time.Millisecond, func() { fired.Add(1) })
	assert.True(t, s.Cancel("ticket-1"))
	assert.False(t, s.Cancel("ticket-1"))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestSchedulerStopRejectsNewTasks(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	s.Schedule("a", 50*time.Millisecond, func() { fired.Add(1) })
	s.Stop()
	s.Schedule("b", 10*time.Millisecond, func() { fired.Add(1) })

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
