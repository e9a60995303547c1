// Package forms implements the debounced, server-validated form input
// machinery: per-field state machines, staleness-guarded uniqueness checks
// and submit-time gating.
package forms

import "context"

// FieldState is the externally visible state of one validated field.
type FieldState struct {
	Value           string
	Invalid         bool
	Message         string
	Unique          bool
	Checked         bool
	CheckInProgress bool
	CheckCount      int
}

// FormMessage is the single-slot display of the form's current asynchronous
// outcome. It is cleared whenever any field is edited.
type FormMessage struct {
	IsError bool
	Text    string
}

// CheckFunc asks the server whether value conflicts with an existing
// account; true means taken.
type CheckFunc func(ctx context.Context, value string) (bool, error)

// field is one validated input owned by a form. All access goes through the
// form's mutex.
type field struct {
	name            string
	immediate       []Rule
	delayed         []Rule
	check           CheckFunc
	conflictMessage string
	failureMessage  string
	state           FieldState
	inflight        canceller
}

type canceller interface {
	Cancel()
}

// runImmediate applies the keystroke rules, escalating Invalid.
func (f *field) runImmediate() {
	for _, rule := range f.immediate {
		if msg := rule(f.state.Value); msg != "" {
			f.state.Invalid = true
			f.state.Message = msg
		}
	}
}

// runDelayed applies the settle-window rules, escalating Invalid.
func (f *field) runDelayed() {
	for _, rule := range f.delayed {
		if msg := rule(f.state.Value); msg != "" {
			f.state.Invalid = true
			f.state.Message = msg
		}
	}
}

// resetForInput records a new keystroke: prior invalidity (including
// async-asserted conflicts) is cleared, any in-flight check is invalidated
// and the field returns to the editing state.
func (f *field) resetForInput(value string) {
	f.state.Value = value
	f.state.Invalid = false
	f.state.Message = ""
	f.state.Unique = false
	f.state.Checked = false
	f.state.CheckInProgress = false
	if f.inflight != nil {
		f.inflight.Cancel()
		f.inflight = nil
	}
}

// gateBlocked reports whether this field blocks submission: invalid, or —
// for server-checked fields — unchecked, conflicted or mid-check.
func (f *field) gateBlocked() bool {
	if f.state.Invalid {
		return true
	}
	if f.check == nil {
		return false
	}
	return !f.state.Checked || !f.state.Unique || f.state.CheckInProgress
}
