// Package guard provides RAII-style scoped access to buffer pool pages. Go
// has no destructors, so where bustub relies on a guard's destructor to
// unpin and unlatch, these guards rely on the caller calling Drop (typically
// via defer) exactly once.
package guard

import (
	"pagevault/access"
	"pagevault/buffer"
)

// noCopy has a sync.Locker-shaped method set for no other reason than to
// make `go vet`'s copylocks check flag an accidental copy of a struct that
// embeds it. Copying a guard after construction would double-unpin its
// frame on Drop, which is exactly the "copy is forbidden" spec.md holds
// bustub's move-only guards to; Go has no compiler-enforced move semantics,
// so this is the closest static check available.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Basic wraps a fetched, pinned frame with no latch held. It is the cheapest
// guard: safe to hold across calls that would deadlock under a latch, but it
// gives the caller no protection against concurrent mutation of the page's
// bytes.
type Basic struct {
	noCopy  noCopy
	pool    *buffer.PoolManager
	frame   *buffer.Frame
	pageID  buffer.PageID
	isDirty bool
	dropped bool
}

// FetchBasic pins pageID in pool and returns a Basic guard over it.
func FetchBasic(pool *buffer.PoolManager, pageID buffer.PageID, accessType access.Type) (Basic, error) {
	frame, err := pool.FetchPage(pageID, accessType)
	if err != nil {
		return Basic{}, err
	}
	return Basic{pool: pool, frame: frame, pageID: pageID}, nil
}

// NewPageGuarded allocates a fresh page and returns a Basic guard over it.
func NewPageGuarded(pool *buffer.PoolManager) (Basic, error) {
	pageID, frame, err := pool.NewPage()
	if err != nil {
		return Basic{}, err
	}
	return Basic{pool: pool, frame: frame, pageID: pageID}, nil
}

// PageID returns the id of the guarded page.
func (g *Basic) PageID() buffer.PageID { return g.pageID }

// Data exposes the page's raw bytes, unlatched.
func (g *Basic) Data() []byte { return g.frame.Data() }

// MarkDirty records that this guard's holder mutated the page, so Drop
// flags it dirty on unpin.
func (g *Basic) MarkDirty() { g.isDirty = true }

// UpgradeRead consumes the Basic guard and returns a Read guard over the
// same pin, taking the frame's read latch. The Basic guard must not be used
// after this call.
func (g *Basic) UpgradeRead() Read {
	g.frame.RLatch()
	g.dropped = true
	return Read{pool: g.pool, frame: g.frame, pageID: g.pageID}
}

// UpgradeWrite consumes the Basic guard and returns a Write guard over the
// same pin, taking the frame's write latch. The Basic guard must not be used
// after this call.
func (g *Basic) UpgradeWrite() Write {
	g.frame.WLatch()
	g.dropped = true
	return Write{pool: g.pool, frame: g.frame, pageID: g.pageID}
}

// Drop releases the pin this guard holds. Safe to call multiple times; a
// no-op after the first call or after an Upgrade*.
func (g *Basic) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.pool.UnpinPage(g.pageID, g.isDirty, access.Unknown)
}

// Read wraps a fetched frame with its read latch held. Multiple Read guards
// may coexist over the same frame; a Write guard may not coexist with any.
type Read struct {
	noCopy  noCopy
	pool    *buffer.PoolManager
	frame   *buffer.Frame
	pageID  buffer.PageID
	dropped bool
}

// FetchRead pins pageID and takes its read latch.
func FetchRead(pool *buffer.PoolManager, pageID buffer.PageID, accessType access.Type) (Read, error) {
	frame, err := pool.FetchPage(pageID, accessType)
	if err != nil {
		return Read{}, err
	}
	frame.RLatch()
	return Read{pool: pool, frame: frame, pageID: pageID}, nil
}

// PageID returns the id of the guarded page.
func (g *Read) PageID() buffer.PageID { return g.pageID }

// Data exposes the page's bytes for reading. The caller must not treat the
// returned slice as writable.
func (g *Read) Data() []byte { return g.frame.Data() }

// Drop releases the read latch, then unpins. The latch is released before
// the unpin to match the ordering bustub's guard destructors use: never hold
// a latch while touching the page table.
func (g *Read) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.frame.RUnlatch()
	g.pool.UnpinPage(g.pageID, false, access.Unknown)
}

// Write wraps a fetched frame with its write latch held, exclusive of every
// other guard over the same frame.
type Write struct {
	noCopy  noCopy
	pool    *buffer.PoolManager
	frame   *buffer.Frame
	pageID  buffer.PageID
	dropped bool
}

// FetchWrite pins pageID and takes its write latch.
func FetchWrite(pool *buffer.PoolManager, pageID buffer.PageID, accessType access.Type) (Write, error) {
	frame, err := pool.FetchPage(pageID, accessType)
	if err != nil {
		return Write{}, err
	}
	frame.WLatch()
	return Write{pool: pool, frame: frame, pageID: pageID}, nil
}

// NewPageWriteGuarded allocates a fresh page and returns a Write guard over
// it, latched for exclusive initialization.
func NewPageWriteGuarded(pool *buffer.PoolManager) (Write, error) {
	pageID, frame, err := pool.NewPage()
	if err != nil {
		return Write{}, err
	}
	frame.WLatch()
	return Write{pool: pool, frame: frame, pageID: pageID}, nil
}

// PageID returns the id of the guarded page.
func (g *Write) PageID() buffer.PageID { return g.pageID }

// Data exposes the page's bytes, mutable in place.
func (g *Write) Data() []byte { return g.frame.Data() }

// Drop releases the write latch, then unpins, marking the page dirty since a
// Write guard's whole purpose is to permit mutation.
func (g *Write) Drop() {
	if g.dropped {
		return
	}
	g.dropped = true
	g.frame.WUnlatch()
	g.pool.UnpinPage(g.pageID, true, access.Unknown)
}
