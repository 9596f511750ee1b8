package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker("vec_copy")
	assert.Equal(t, StateInitialized, tr.Snapshot().State)

	tr.Apply(Update{Kind: UpdateQueued})
	assert.Equal(t, StateQueued, tr.Snapshot().State)

	tr.Apply(Update{Kind: UpdateLimit, Limit: itemgraph.ProgressLimit{Kind: itemgraph.LimitBytes, N: 100}})
	assert.Equal(t, StateRunning, tr.Snapshot().State)
	assert.Equal(t, uint64(100), tr.Snapshot().Limit.N)

	tr.Apply(Update{Kind: UpdateDelta, Delta: Delta{N: 40}})
	tr.Apply(Update{Kind: UpdateDelta, Delta: Delta{N: 10}})
	assert.Equal(t, uint64(50), tr.Snapshot().Completed)

	tr.Apply(Update{Kind: UpdateCompleteSuccess})
	assert.Equal(t, StateCompleteSuccess, tr.Snapshot().State)
}

func TestTrackerInterrupt(t *testing.T) {
	tr := NewTracker("mock")
	tr.Apply(Update{Kind: UpdateInterrupt})
	assert.Equal(t, StateInterrupted, tr.Snapshot().State)
}

func TestInterruptSignalFinishCurrentClosesImmediately(t *testing.T) {
	s := NewInterruptSignal()
	assert.False(t, s.Fired())
	s.RequestFinishCurrent()
	assert.True(t, s.Fired())
	select {
	case <-s.Channel():
	default:
		t.Fatal("channel should be closed")
	}
}

func TestInterruptSignalPollNextNCountsDown(t *testing.T) {
	s := NewInterruptSignal()
	s.RequestPollNextN(2)
	assert.False(t, s.Fired())
	s.Tick()
	assert.False(t, s.Fired())
	s.Tick()
	assert.False(t, s.Fired())
	s.Tick()
	assert.True(t, s.Fired())
}

func TestInterruptSignalPollNextNZeroFiresImmediately(t *testing.T) {
	s := NewInterruptSignal()
	s.RequestPollNextN(0)
	assert.True(t, s.Fired())
}
