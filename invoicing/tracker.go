package invoicing

import (
	"strconv"
	"sync"
)

type Action string

const (
	ActionIssue  Action = "issue"
	ActionCancel Action = "cancel"
)

// ActionTracker remembers which irreversible actions are awaiting a response
// so the caller can disable them and refuse a double submit. The zero value
// is ready to use.
type ActionTracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func trackerKey(invoiceID uint, action Action) string {
	return strconv.FormatUint(uint64(invoiceID), 10) + ":" + string(action)
}

// Begin marks the action pending. It returns false if it already was.
func (t *ActionTracker) Begin(invoiceID uint, action Action) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		t.pending = make(map[string]struct{})
	}
	key := trackerKey(invoiceID, action)
	if _, ok := t.pending[key]; ok {
		return false
	}
	t.pending[key] = struct{}{}
	return true
}

// Done clears the pending mark.
func (t *ActionTracker) Done(invoiceID uint, action Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, trackerKey(invoiceID, action))
}

// InFlight reports whether the action is pending.
func (t *ActionTracker) InFlight(invoiceID uint, action Action) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[trackerKey(invoiceID, action)]
	return ok
}

// State returns the ActionState for an action given the form's dirty flag.
func (t *ActionTracker) State(invoiceID uint, action Action, dirty bool) ActionState {
	return ActionState{Dirty: dirty, InFlight: t.InFlight(invoiceID, action)}
}
