package internal

// WindowPolicy selects how a hit on a resident window entry is handled.
type WindowPolicy uint8

const (
	// WindowLRU refreshes a hit entry to the MRU position (true LRU).
	WindowLRU WindowPolicy = iota
	// WindowFIFO leaves a hit entry in place; only its frequency is
	// bumped. Loses exact recency but resists scans better.
	WindowFIFO
)

// Window is the admission buffer every fresh key passes through before
// it can contend for main-cache space. It gives one-time keys a short,
// cheap trial instead of letting them pollute probation directly.
type Window struct {
	list   *List
	policy WindowPolicy
}

func NewWindow(policy WindowPolicy) *Window {
	return &Window{list: NewList(SegWindow), policy: policy}
}

func (w *Window) Len() int {
	return w.list.Len()
}

// Admit places a detached entry at the MRU position.
func (w *Window) Admit(e *Entry) {
	w.list.PushFront(e)
}

// Access handles a hit on a window entry according to the policy.
func (w *Window) Access(e *Entry) {
	if w.policy == WindowLRU {
		w.list.MoveToFront(e)
	}
}

// Victim peeks the LRU entry without removing it.
func (w *Window) Victim() *Entry {
	return w.list.Back()
}

// PopOverflow unlinks and returns the LRU entry so it can move on to
// probation.
func (w *Window) PopOverflow() *Entry {
	return w.list.PopTail()
}

func (w *Window) Remove(e *Entry) {
	w.list.Remove(e)
}

func (w *Window) Reset() {
	w.list.Reset()
}
