// Package scheduler decouples the buffer pool from the disk manager: callers
// enqueue read/write requests onto a shared channel and a fixed pool of
// worker goroutines drains it, so a slow disk never blocks a caller directly
// on its own I/O call.
package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"pagevault/channel"
	"pagevault/disk"
)

// DefaultWorkers is used when New is given a non-positive worker count.
const DefaultWorkers = 4

// Request describes one page-sized read or write. Buffer must be exactly
// disk.PageSize bytes: the source for a write, the destination for a read.
// Done, if non-nil, receives exactly one value once the request completes:
// nil on success, or the disk.Manager error that failed it. The issuer must
// not trust Buffer's contents until it has received on Done.
type Request struct {
	IsWrite bool
	PageID  disk.PageID
	Buffer  []byte
	Done    chan<- error
}

// DiskScheduler fans a Request queue out across a worker pool, each worker
// serially issuing requests to a shared disk.Manager.
type DiskScheduler struct {
	mgr        disk.Manager
	queue      *channel.Channel[Request]
	group      *errgroup.Group
	cancel     context.CancelFunc
	numWorkers int
}

// New starts numWorkers goroutines pulling requests destined for mgr.
// numWorkers <= 0 selects DefaultWorkers.
func New(mgr disk.Manager, numWorkers int) *DiskScheduler {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	s := &DiskScheduler{
		mgr:        mgr,
		queue:      channel.New[Request](numWorkers),
		group:      group,
		cancel:     cancel,
		numWorkers: numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		group.Go(func() error {
			return s.work(ctx)
		})
	}
	return s
}

// Schedule enqueues req for a worker to service. Blocks if every worker is
// busy and the queue is full.
func (s *DiskScheduler) Schedule(req Request) {
	s.queue.Put(req)
}

// work is a single worker's loop: pull a request, perform the I/O, signal
// completion. It returns nil on the close sentinel, returns the disk error
// of a failed request, and, after completing a request, returns ctx.Err()
// if ctx has been cancelled; a worker blocked waiting for a request does not
// observe cancellation.
func (s *DiskScheduler) work(ctx context.Context) error {
	for {
		req, ok := s.queue.Get()
		if !ok {
			return nil
		}

		var err error
		if req.IsWrite {
			err = s.mgr.WritePage(req.PageID, req.Buffer)
		} else {
			err = s.mgr.ReadPage(req.PageID, req.Buffer)
		}

		if req.Done != nil {
			req.Done <- err
		}

		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Close enqueues one sentinel per worker behind any queued requests, waits
// for the workers to exit, and returns the first fatal error observed by any
// worker (typically a disk.Manager error surfaced after ShutDown). Schedule
// is not refused after Close; such a request is never serviced.
func (s *DiskScheduler) Close() error {
	for i := 0; i < s.numWorkers; i++ {
		s.queue.Close()
	}
	err := s.group.Wait()
	s.cancel()
	if err == context.Canceled {
		return nil
	}
	return err
}
