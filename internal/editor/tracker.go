package editor

import (
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Tracker is the save-state machine of one entity: idle, saving, success or
// error, plus an independent dirty flag. Success and error return to idle
// after the status window.
type Tracker struct {
	mu        sync.Mutex
	state     types.SaveState
	dirty     bool
	rev       uint64 // bumped by every MarkDirty.
	saveRev   uint64 // rev when the in-flight save began.
	gen       uint64 // save cycle; guards the idle timer.
	window    time.Duration
	idle      *time.Timer
	observers []func(types.Status)
	stopped   bool
}

// NewTracker returns an idle, clean tracker. A non-positive window uses
// types.DefaultStatusWindow.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = types.DefaultStatusWindow
	}
	return &Tracker{state: types.StateIdle, window: window}
}

// OnChange registers an observer called after every status change. Observers
// run outside the tracker's lock.
func (t *Tracker) OnChange(fn func(types.Status)) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Status returns the current state and dirty flag.
func (t *Tracker) Status() types.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.Status{State: t.state, Dirty: t.dirty}
}

// MarkDirty records an unsaved edit. Edits that land while a save is in
// flight keep the entity dirty after that save succeeds.
func (t *Tracker) MarkDirty() {
	t.mu.Lock()
	t.rev++
	changed := !t.dirty
	t.dirty = true
	t.unlockAndNotify(changed)
}

// MarkClean clears the dirty flag after edits brought the entity back to its
// last persisted value. It is ignored while a save is in flight.
func (t *Tracker) MarkClean() {
	t.mu.Lock()
	if t.state == types.StateSaving {
		t.mu.Unlock()
		return
	}
	t.rev++
	changed := t.dirty
	t.dirty = false
	t.unlockAndNotify(changed)
}

// BeginSave enters the saving state. It returns ErrAlreadySaving, leaving
// the in-flight attempt untouched, when a save is already running.
func (t *Tracker) BeginSave() error {
	t.mu.Lock()
	if t.state == types.StateSaving {
		t.mu.Unlock()
		return types.ErrAlreadySaving
	}
	t.state = types.StateSaving
	t.saveRev = t.rev
	t.gen++
	t.stopIdleLocked()
	t.unlockAndNotify(true)
	return nil
}

// CompleteSave resolves the in-flight save. Success clears dirty unless an
// edit arrived after BeginSave; failure leaves dirty alone. Either way the
// state returns to idle after the status window. Calls outside a save are
// ignored.
func (t *Tracker) CompleteSave(ok bool) {
	t.mu.Lock()
	if t.state != types.StateSaving {
		t.mu.Unlock()
		return
	}
	if ok {
		t.state = types.StateSuccess
		if t.rev == t.saveRev {
			t.dirty = false
		}
	} else {
		t.state = types.StateError
	}
	t.gen++
	t.scheduleIdleLocked(t.gen)
	t.unlockAndNotify(true)
}

// Stop cancels the pending return to idle. The tracker keeps answering
// Status but schedules nothing further.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.stopIdleLocked()
}

func (t *Tracker) scheduleIdleLocked(gen uint64) {
	t.stopIdleLocked()
	if t.stopped {
		return
	}
	t.idle = time.AfterFunc(t.window, func() {
		t.mu.Lock()
		if t.stopped || t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.idle = nil
		t.state = types.StateIdle
		t.unlockAndNotify(true)
	})
}

func (t *Tracker) stopIdleLocked() {
	if t.idle != nil {
		t.idle.Stop()
		t.idle = nil
	}
}

// unlockAndNotify releases t.mu and, if changed, calls the observers with
// the status captured under the lock.
func (t *Tracker) unlockAndNotify(changed bool) {
	if !changed || len(t.observers) == 0 {
		t.mu.Unlock()
		return
	}
	status := types.Status{State: t.state, Dirty: t.dirty}
	observers := slices.Clone(t.observers)
	t.mu.Unlock()
	for _, fn := range observers {
		fn(status)
	}
}
