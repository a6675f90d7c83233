package buffer

import (
	"sync"

	"pagevault/disk"
	"pagevault/replacer"
)

// PageSize is the fixed size of a frame's data buffer.
const PageSize = disk.PageSize

// PageID identifies a page. PageID(-1) (InvalidPageID) marks an unused
// frame.
type PageID = disk.PageID

// InvalidPageID marks an unused frame.
const InvalidPageID = disk.InvalidPageID

// FrameID identifies a slot in the pool's frame array.
type FrameID = replacer.FrameID

// Frame is an in-memory slot holding at most one page: a fixed-size byte
// buffer, its identity, a pin count, a sticky dirty flag, and the
// reader-writer latch page guards acquire.
type Frame struct {
	mu       sync.RWMutex
	data     [PageSize]byte
	pageID   PageID
	pinCount int32
	isDirty  bool
}

func newFrame() *Frame {
	return &Frame{pageID: InvalidPageID}
}

// PageID returns the frame's current page identity, or InvalidPageID if the
// frame holds no page.
func (f *Frame) PageID() PageID { return f.pageID }

// PinCount returns the number of outstanding pins on this frame.
func (f *Frame) PinCount() int32 { return f.pinCount }

// IsDirty reports whether the frame's buffer has been written since its
// last flush.
func (f *Frame) IsDirty() bool { return f.isDirty }

// Data exposes the frame's raw page-sized buffer.
func (f *Frame) Data() []byte { return f.data[:] }

// RLatch/RUnlatch/WLatch/WUnlatch guard the frame's buffer against
// concurrent mutation. The pool's mutex protects the page table and pin
// counts; these latches protect the bytes themselves.
func (f *Frame) RLatch()   { f.mu.RLock() }
func (f *Frame) RUnlatch() { f.mu.RUnlock() }
func (f *Frame) WLatch()   { f.mu.Lock() }
func (f *Frame) WUnlatch() { f.mu.Unlock() }

func (f *Frame) reset() {
	f.pageID = InvalidPageID
	f.pinCount = 0
	f.isDirty = false
	for i := range f.data {
		f.data[i] = 0
	}
}
