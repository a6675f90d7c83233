// Package buffer implements the central arbiter of database memory: a
// fixed pool of pin-counted page frames, backed by a replacer for eviction
// and a disk scheduler for I/O.
package buffer

import (
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"pagevault/access"
	"pagevault/disk"
	"pagevault/replacer"
	"pagevault/scheduler"

	"sync"
)

// ErrPoolExhausted is returned by NewPage/FetchPage when every frame is
// pinned: no free frame and nothing evictable.
var ErrPoolExhausted = errors.New("buffer: no free or evictable frame available")

// ErrPageNotFound is returned by FlushPage when pageID is not resident.
var ErrPageNotFound = errors.New("buffer: page not resident in pool")

// PoolManager owns pages_/page_table_/free_list_ in bustub's terms: a fixed
// array of frames, a page-id-to-frame-id map, a LIFO free list, and the
// replacer and scheduler it coordinates to serve NewPage/FetchPage. A single
// mutex serialises every public operation.
type PoolManager struct {
	mu         sync.Mutex
	frames     []*Frame
	pageTable  *xsync.MapOf[PageID, FrameID]
	freeList   []FrameID
	nextPageID PageID
	replacer   *replacer.LRUKReplacer
	scheduler  *scheduler.DiskScheduler
}

// NewPoolManager creates a pool of poolSize frames over mgr, replacing
// victims with an LRU-K replacer of history depth k, and dispatching I/O
// through numWorkers scheduler workers (<=0 selects the scheduler default).
func NewPoolManager(poolSize int, k int, mgr disk.Manager, numWorkers int) *PoolManager {
	frames := make([]*Frame, poolSize)
	freeList := make([]FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = newFrame()
		freeList[i] = FrameID(i)
	}
	return &PoolManager{
		frames:    frames,
		pageTable: xsync.NewMapOf[PageID, FrameID](),
		freeList:  freeList,
		replacer:  replacer.New(poolSize, k),
		scheduler: scheduler.New(mgr, numWorkers),
	}
}

// Capacity returns the total number of frames in the pool.
func (p *PoolManager) Capacity() int { return len(p.frames) }

// pickVictim returns a frame ready to hold a new page: popped from the free
// list, or evicted (and flushed if dirty) via the replacer. Returns
// ErrPoolExhausted if nothing is evictable, or the disk error if flushing a
// dirty victim fails. Callers must hold mu.
func (p *PoolManager) pickVictim() (FrameID, error) {
	if n := len(p.freeList); n > 0 {
		fid := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return fid, nil
	}

	fid, ok := p.replacer.Evict()
	if !ok {
		return 0, ErrPoolExhausted
	}
	frame := p.frames[fid]
	if frame.isDirty {
		if err := p.writeFrameToDisk(frame); err != nil {
			// The replacer has already forgotten fid (Evict removes the
			// node); the frame stays resident under its old page id and
			// regains eviction tracking the next time that page is
			// fetched. The eviction itself is aborted, not retried here.
			return 0, fmt.Errorf("buffer: flushing eviction victim: %w", err)
		}
	}
	p.pageTable.Delete(frame.pageID)
	frame.reset()
	return fid, nil
}

func (p *PoolManager) writeFrameToDisk(frame *Frame) error {
	done := make(chan error, 1)
	p.scheduler.Schedule(scheduler.Request{
		IsWrite: true,
		Buffer:  frame.data[:],
		PageID:  frame.pageID,
		Done:    done,
	})
	if err := <-done; err != nil {
		return err
	}
	frame.isDirty = false
	return nil
}

func (p *PoolManager) readFrameFromDisk(frame *Frame) error {
	done := make(chan error, 1)
	p.scheduler.Schedule(scheduler.Request{
		IsWrite: false,
		Buffer:  frame.data[:],
		PageID:  frame.pageID,
		Done:    done,
	})
	return <-done
}

// NewPage allocates a fresh page identity in a pinned, non-evictable frame.
// Returns ErrPoolExhausted if the pool has neither a free frame nor an
// evictable one, or the disk error if flushing an eviction victim failed.
func (p *PoolManager) NewPage() (PageID, *Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, err := p.pickVictim()
	if err != nil {
		return InvalidPageID, nil, err
	}

	pageID := p.nextPageID
	p.nextPageID++

	frame := p.frames[fid]
	frame.pageID = pageID
	p.pageTable.Store(pageID, fid)

	p.replacer.RecordAccess(fid, access.Unknown)
	p.replacer.SetEvictable(fid, false)
	frame.pinCount = 1

	fmt.Printf("[buffer] NEW pageID=%d frameID=%d\n", pageID, fid)
	return pageID, frame, nil
}

// FetchPage returns the frame holding pageID, pinning it and loading it
// from disk on a miss. Returns ErrPoolExhausted if the page is absent and
// the pool is exhausted, or the disk error if the read itself failed — in
// either failure case the page is not pinned and its buffer must not be
// used.
func (p *PoolManager) FetchPage(pageID PageID, accessType access.Type) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fid, ok := p.pageTable.Load(pageID); ok {
		frame := p.frames[fid]
		frame.pinCount++
		p.replacer.RecordAccess(fid, accessType)
		p.replacer.SetEvictable(fid, false)
		fmt.Printf("[buffer] HIT pageID=%d frameID=%d pinCount=%d\n", pageID, fid, frame.pinCount)
		return frame, nil
	}

	fid, err := p.pickVictim()
	if err != nil {
		return nil, err
	}

	frame := p.frames[fid]
	frame.pageID = pageID
	p.pageTable.Store(pageID, fid)

	if err := p.readFrameFromDisk(frame); err != nil {
		// Abort: undo the tentative residency so a retry gets a clean
		// frame instead of one wired to a half-read page.
		p.pageTable.Delete(pageID)
		frame.reset()
		p.freeList = append(p.freeList, fid)
		return nil, fmt.Errorf("buffer: fetching page %d: %w", pageID, err)
	}

	frame.pinCount++
	p.replacer.RecordAccess(fid, accessType)
	p.replacer.SetEvictable(fid, false)

	fmt.Printf("[buffer] MISS pageID=%d frameID=%d -- loaded from disk\n", pageID, fid)
	return frame, nil
}

// UnpinPage decrements pageID's pin count and ORs isDirty into the frame's
// sticky dirty flag. Returns false if the page is not resident or is
// already unpinned.
func (p *PoolManager) UnpinPage(pageID PageID, isDirty bool, accessType access.Type) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable.Load(pageID)
	if !ok {
		return false
	}
	frame := p.frames[fid]
	if frame.pinCount == 0 {
		return false
	}

	frame.pinCount--
	if isDirty {
		frame.isDirty = true
	}
	if frame.pinCount == 0 {
		p.replacer.SetEvictable(fid, true)
	}
	return true
}

// FlushPage synchronously writes pageID to disk if resident, regardless of
// pin count, and clears its dirty flag. Returns ErrPageNotFound if not
// resident, or the disk error if the write failed.
func (p *PoolManager) FlushPage(pageID PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable.Load(pageID)
	if !ok {
		return ErrPageNotFound
	}
	if err := p.writeFrameToDisk(p.frames[fid]); err != nil {
		return fmt.Errorf("buffer: flushing page %d: %w", pageID, err)
	}
	return nil
}

// FlushAllPages writes every resident page to disk, continuing past a
// failed page so a single bad write doesn't strand the rest dirty. Returns
// the first error encountered, if any.
func (p *PoolManager) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	p.pageTable.Range(func(pageID PageID, fid FrameID) bool {
		if err := p.writeFrameToDisk(p.frames[fid]); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("buffer: flushing page %d: %w", pageID, err)
		}
		return true
	})
	return firstErr
}

// DeletePage detaches pageID and returns its frame to the free list.
// Vacuously true if the page was never resident; false if it is pinned.
func (p *PoolManager) DeletePage(pageID PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable.Load(pageID)
	if !ok {
		return true
	}
	frame := p.frames[fid]
	if frame.pinCount != 0 {
		return false
	}

	p.pageTable.Delete(pageID)
	p.replacer.Remove(fid)
	frame.reset()
	p.freeList = append(p.freeList, fid)
	return true
}

// Close drains the pool's disk scheduler and returns the first fatal disk
// error observed by any worker, if any.
func (p *PoolManager) Close() error {
	return p.scheduler.Close()
}
