package editor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/folio/pkg/types"
)

const (
	testWindow = 40 * time.Millisecond
	testQuiet  = 30 * time.Millisecond
	waitFor    = time.Second
	tick       = 5 * time.Millisecond
)

type statusLog struct {
	mu     sync.Mutex
	states []types.SaveState
}

func (l *statusLog) observe(s types.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.states); n > 0 && l.states[n-1] == s.State {
		return
	}
	l.states = append(l.states, s.State)
}

func (l *statusLog) get() []types.SaveState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.SaveState(nil), l.states...)
}

func TestTracker_StartsIdleAndClean(t *testing.T) {
	tr := NewTracker(testWindow)
	assert.Equal(t, types.Status{State: types.StateIdle}, tr.Status())
}

func TestTracker_BeginSaveWhileSavingIsRejected(t *testing.T) {
	tr := NewTracker(testWindow)
	t.Cleanup(tr.Stop)

	tr.MarkDirty()
	require.NoError(t, tr.BeginSave())
	err := tr.BeginSave()
	assert.ErrorIs(t, err, types.ErrAlreadySaving)
	assert.Equal(t, types.Status{State: types.StateSaving, Dirty: true}, tr.Status())

	tr.CompleteSave(true)
	assert.Equal(t, types.Status{State: types.StateSuccess, Dirty: false}, tr.Status())
}

func TestTracker_ReturnsToIdle(t *testing.T) {
	tests := []struct {
		name      string
		ok        bool
		resolved  types.SaveState
		wantDirty bool
	}{
		{"after success", true, types.StateSuccess, false},
		{"after error", false, types.StateError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(testWindow)
			t.Cleanup(tr.Stop)

			tr.MarkDirty()
			require.NoError(t, tr.BeginSave())
			tr.CompleteSave(tt.ok)
			assert.Equal(t, types.Status{State: tt.resolved, Dirty: tt.wantDirty}, tr.Status())

			// An edit inside the window does not cancel the return to idle.
			tr.MarkDirty()
			assert.Eventually(t, func() bool {
				return tr.Status().State == types.StateIdle
			}, waitFor, tick)
			assert.True(t, tr.Status().Dirty)
		})
	}
}

func TestTracker_EditDuringSaveKeepsDirty(t *testing.T) {
	tr := NewTracker(testWindow)
	t.Cleanup(tr.Stop)

	tr.MarkDirty()
	require.NoError(t, tr.BeginSave())
	tr.MarkDirty()
	tr.CompleteSave(true)

	assert.Equal(t, types.Status{State: types.StateSuccess, Dirty: true}, tr.Status())
}

func TestTracker_MarkClean(t *testing.T) {
	tr := NewTracker(testWindow)
	t.Cleanup(tr.Stop)
	var seen []types.Status
	tr.OnChange(func(s types.Status) { seen = append(seen, s) })

	tr.MarkDirty()
	tr.MarkClean()
	tr.MarkClean()
	assert.Equal(t, types.Status{State: types.StateIdle}, tr.Status())
	assert.Equal(t, []types.Status{
		{State: types.StateIdle, Dirty: true},
		{State: types.StateIdle},
	}, seen)

	tr.MarkDirty()
	require.NoError(t, tr.BeginSave())
	tr.MarkClean()
	assert.True(t, tr.Status().Dirty, "ignored while saving")
}

func TestTracker_StaleIdleTimerIgnored(t *testing.T) {
	tr := NewTracker(testWindow)
	t.Cleanup(tr.Stop)

	require.NoError(t, tr.BeginSave())
	tr.CompleteSave(false)
	require.NoError(t, tr.BeginSave())

	time.Sleep(3 * testWindow)
	assert.Equal(t, types.StateSaving, tr.Status().State)
}

func TestTracker_CompleteSaveOutsideSaveIgnored(t *testing.T) {
	tr := NewTracker(testWindow)
	tr.MarkDirty()
	tr.CompleteSave(true)
	assert.Equal(t, types.Status{State: types.StateIdle, Dirty: true}, tr.Status())
}

func TestTracker_ObserversSeeEveryTransition(t *testing.T) {
	tr := NewTracker(testWindow)
	t.Cleanup(tr.Stop)
	log := &statusLog{}
	tr.OnChange(log.observe)

	tr.MarkDirty()
	require.NoError(t, tr.BeginSave())
	tr.CompleteSave(true)

	assert.Eventually(t, func() bool {
		return len(log.get()) == 4
	}, waitFor, tick)
	assert.Equal(t, []types.SaveState{
		types.StateIdle, types.StateSaving, types.StateSuccess, types.StateIdle,
	}, log.get())
}

func TestTracker_StopCancelsIdleTransition(t *testing.T) {
	tr := NewTracker(testWindow)
	require.NoError(t, tr.BeginSave())
	tr.CompleteSave(true)
	tr.Stop()

	assert.Never(t, func() bool {
		return tr.Status().State == types.StateIdle
	}, 3*testWindow, tick)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(testQuiet, func() { calls.Add(1) })
	t.Cleanup(d.Stop)

	for range 5 {
		d.NotifyChange()
		time.Sleep(testQuiet / 5)
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	time.Sleep(2 * testQuiet)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_SeparateBurstsFireSeparately(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(testQuiet, func() { calls.Add(1) })
	t.Cleanup(d.Stop)

	d.NotifyChange()
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	d.NotifyChange()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
}

func TestDebouncer_CancelAndStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(testQuiet, func() { calls.Add(1) })

	d.NotifyChange()
	d.Cancel()
	assert.False(t, d.Pending())

	d.NotifyChange()
	d.Stop()
	d.NotifyChange()
	assert.False(t, d.Pending())

	time.Sleep(3 * testQuiet)
	assert.Equal(t, int32(0), calls.Load())
}
