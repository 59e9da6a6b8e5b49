package internal

// Segment identifiers for resident entries. Every live entry belongs to
// exactly one segment; the zero value means the entry is detached.
const (
	SegNone uint8 = iota
	SegWindow
	SegProbation
	SegProtected
)

// Flag packs per-entry booleans and the segment id into a single byte.
// Bit 1: entry is a list sentinel (root).
// Bits 2-3: segment id (none/window/probation/protected).
// All bits are read/written under the policy mutex only.
type Flag struct {
	flags uint8
}

func (f *Flag) SetRoot(isRoot bool) {
	if isRoot {
		f.flags |= 1
	} else {
		f.flags &^= 1
	}
}

func (f *Flag) IsRoot() bool {
	return f.flags&1 == 1
}

func (f *Flag) SetSegment(seg uint8) {
	f.flags = (f.flags &^ 0b110) | (seg << 1)
}

func (f *Flag) Segment() uint8 {
	return (f.flags >> 1) & 0b11
}

// Entry is the policy-side record of one resident key. The surrounding
// container owns the value; the policy tracks only identity, size and
// list linkage.
type Entry struct {
	key  string
	size int64
	fp   uint64 // seeded fingerprint, computed once at insert
	prev *Entry
	next *Entry
	flag Flag
}

func NewEntry(key string, size int64, fp uint64) *Entry {
	return &Entry{key: key, size: size, fp: fp}
}

func (e *Entry) Key() string {
	return e.key
}

func (e *Entry) Size() int64 {
	return e.size
}

func (e *Entry) Fingerprint() uint64 {
	return e.fp
}

func (e *Entry) Segment() uint8 {
	return e.flag.Segment()
}

// Next returns the next list element or nil when e is the last one.
func (e *Entry) Next() *Entry {
	if p := e.next; p != nil && !p.flag.IsRoot() {
		return p
	}
	return nil
}

// Prev returns the previous list element or nil when e is the first one.
func (e *Entry) Prev() *Entry {
	if p := e.prev; p != nil && !p.flag.IsRoot() {
		return p
	}
	return nil
}
