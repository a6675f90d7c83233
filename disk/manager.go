// Package disk models the raw block device the buffer pool sits on top of.
// It is deliberately thin: the disk manager owns nothing about pages, pins,
// or latches, only bytes at a page-sized offset.
package disk

// PageSize is the fixed size of every page and every frame that holds one.
const PageSize = 4096

// PageID identifies a page on disk. Page identity is allocated by the
// buffer pool, not by the disk manager.
type PageID = int64

// InvalidPageID marks an unused frame or an unallocated page.
const InvalidPageID PageID = -1

// Manager is the block-device abstraction consumed by the disk scheduler.
// Implementations may be in-memory (unlimited, used by tests) or
// file-backed. Calls are synchronous and may block; a failing call is
// fatal to the scheduler that issued it (see scheduler.DiskScheduler).
type Manager interface {
	// ReadPage fills buf (which must be PageSize bytes) with the contents
	// of pageID. Reading an unwritten page yields zero bytes.
	ReadPage(pageID PageID, buf []byte) error
	// WritePage persists buf (which must be PageSize bytes) at pageID.
	WritePage(pageID PageID, buf []byte) error
	// ShutDown releases any resources (file handles) held by the manager.
	ShutDown() error
}
