package types

// SaveState is the user-visible persistence status of one entity editor.
type SaveState string

// Save states. An editor starts idle, moves to saving while a persistence
// attempt is in flight, resolves to success or error, and returns to idle
// after the status display window.
const (
	StateIdle    SaveState = "idle"
	StateSaving  SaveState = "saving"
	StateSuccess SaveState = "success"
	StateError   SaveState = "error"
)

// Status pairs the save state with the unsaved-changes flag. The two are
// tracked independently: Dirty may be true in any state.
type Status struct {
	State SaveState `json:"state"`
	Dirty bool      `json:"dirty"`
}
