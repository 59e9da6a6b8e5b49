package internal

import (
	"fmt"
	"strings"
)

// List is an intrusive doubly linked list over Entry. Entries carry
// their own prev/next pointers, so membership moves are pointer swaps
// with no allocation. Front is the MRU position, Back the LRU one.
type List struct {
	root Entry // sentinel, only &root, root.prev and root.next are used
	seg  uint8 // segment id stamped on entries while they are linked here
	len  int
}

// NewList returns an initialized list whose entries are tagged with seg.
func NewList(seg uint8) *List {
	l := &List{seg: seg}
	l.root.flag.SetRoot(true)
	l.root.next = &l.root
	l.root.prev = &l.root
	return l
}

func (l *List) Reset() {
	for e := l.root.next; e != &l.root; {
		next := e.next
		e.prev = nil
		e.next = nil
		e.flag.SetSegment(SegNone)
		e = next
	}
	l.root.next = &l.root
	l.root.prev = &l.root
	l.len = 0
}

// Len returns the number of linked entries. O(1).
func (l *List) Len() int { return l.len }

// Front returns the MRU entry or nil if the list is empty.
func (l *List) Front() *Entry {
	if l.len == 0 {
		return nil
	}
	return l.root.next
}

// Back returns the LRU entry or nil if the list is empty.
func (l *List) Back() *Entry {
	if l.len == 0 {
		return nil
	}
	return l.root.prev
}

// PushFront links e at the MRU position and stamps it with the list's
// segment id. e must be detached.
func (l *List) PushFront(e *Entry) {
	e.flag.SetSegment(l.seg)
	e.prev = &l.root
	e.next = l.root.next
	e.prev.next = e
	e.next.prev = e
	l.len++
}

// Remove unlinks e. e must currently belong to this list.
func (l *List) Remove(e *Entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
	e.flag.SetSegment(SegNone)
	l.len--
}

// MoveToFront refreshes e to the MRU position.
func (l *List) MoveToFront(e *Entry) {
	if l.root.next == e {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = &l.root
	e.next = l.root.next
	e.prev.next = e
	e.next.prev = e
}

// PopTail unlinks and returns the LRU entry, or nil if the list is empty.
func (l *List) PopTail() *Entry {
	e := l.root.prev
	if e == &l.root {
		return nil
	}
	l.Remove(e)
	return e
}

// display renders keys MRU first, used by tests to assert exact order.
func (l *List) display() string {
	var s []string
	for e := l.Front(); e != nil; e = e.Next() {
		s = append(s, fmt.Sprintf("%v", e.key))
	}
	return strings.Join(s, "/")
}

func (l *List) displayReverse() string {
	var s []string
	for e := l.Back(); e != nil; e = e.Prev() {
		s = append(s, fmt.Sprintf("%v", e.key))
	}
	return strings.Join(s, "/")
}
