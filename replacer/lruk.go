// Package replacer implements a weighted LRU-K replacement policy: the
// buffer pool's answer to "which frame do we sacrifice under pressure".
package replacer

import (
	"errors"
	"sync"

	"pagevault/access"
)

// FrameID identifies a frame slot in the buffer pool. The replacer knows
// nothing about pages; it only ranks opaque frame ids by access history.
type FrameID int32

// ErrInvalidFrame is returned by RecordAccess and SetEvictable for a frame
// id outside the replacer's configured capacity, or unknown to SetEvictable.
var ErrInvalidFrame = errors.New("replacer: invalid frame id")

// ErrNotEvictable is returned by Remove when the frame exists but is not
// marked evictable — a caller bug per the buffer pool's pin discipline.
var ErrNotEvictable = errors.New("replacer: frame is not evictable")

const infDistance = ^uint64(0)

type historyEntry struct {
	timestamp uint64
	weight    int
}

type node struct {
	frameID     FrameID
	k           int
	evictable   bool
	history     []historyEntry
	totalWeight int
}

func (n *node) recordAccess(timestamp uint64, weight int) {
	if len(n.history) == n.k {
		n.totalWeight -= n.history[0].weight
		n.history = n.history[1:]
	}
	n.history = append(n.history, historyEntry{timestamp: timestamp, weight: weight})
	n.totalWeight += weight
}

func (n *node) earliestTimestamp() uint64 {
	return n.history[0].timestamp
}

func (n *node) kBackDistance(now uint64) uint64 {
	if len(n.history) < n.k {
		return infDistance
	}
	return now - n.history[0].timestamp
}

func (n *node) weightedKBackDistance(now uint64, k int) uint64 {
	d := n.kBackDistance(now)
	if d == infDistance {
		return infDistance
	}
	return uint64(n.totalWeight) * d / uint64(k)
}

// LRUKReplacer tracks, per frame, up to K most recent accesses weighted by
// access kind, and picks eviction victims from the subset of frames marked
// evictable.
type LRUKReplacer struct {
	mu               sync.Mutex
	nodes            map[FrameID]*node
	evictableCount   int
	currentTimestamp uint64
	capacity         FrameID
	k                int
}

// New creates a replacer over numFrames frame ids (0..numFrames-1), keeping
// up to k accesses of history per frame.
func New(numFrames int, k int) *LRUKReplacer {
	return &LRUKReplacer{
		nodes:    make(map[FrameID]*node),
		capacity: FrameID(numFrames),
		k:        k,
	}
}

// RecordAccess appends a weighted access to frameID's history, creating the
// node on first access.
func (r *LRUKReplacer) RecordAccess(frameID FrameID, accessType access.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frameID < 0 || frameID >= r.capacity {
		return ErrInvalidFrame
	}

	n, ok := r.nodes[frameID]
	if !ok {
		n = &node{frameID: frameID, k: r.k}
		r.nodes[frameID] = n
	}
	n.recordAccess(r.currentTimestamp, accessType.Weight())
	r.currentTimestamp++
	return nil
}

// SetEvictable toggles whether frameID is a candidate for Evict.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return ErrInvalidFrame
	}
	if evictable && !n.evictable {
		n.evictable = true
		r.evictableCount++
	} else if !evictable && n.evictable {
		n.evictable = false
		r.evictableCount--
	}
	return nil
}

// Remove drops frameID's history outright. A no-op if the frame is unknown;
// an error if it is known but not evictable (caller bug).
func (r *LRUKReplacer) Remove(frameID FrameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[frameID]
	if !ok {
		return nil
	}
	if !n.evictable {
		return ErrNotEvictable
	}
	delete(r.nodes, frameID)
	r.evictableCount--
	return nil
}

// Size returns the number of evictable frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictableCount
}

// Evict picks a victim among evictable frames: nodes with fewer than K
// accesses (infinite K-back distance) are preferred, tie-broken by the
// smallest earliest timestamp (classical LRU); otherwise the frame with the
// largest weighted K-back distance wins, ties broken by the smallest frame
// id. Returns ok=false if no frame is evictable.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.evictableCount == 0 {
		return 0, false
	}

	var infCandidate *node
	var finiteCandidate *node
	var finiteDist uint64

	for _, n := range r.nodes {
		if !n.evictable {
			continue
		}
		d := n.weightedKBackDistance(r.currentTimestamp, r.k)
		if d == infDistance {
			if infCandidate == nil ||
				n.earliestTimestamp() < infCandidate.earliestTimestamp() ||
				(n.earliestTimestamp() == infCandidate.earliestTimestamp() && n.frameID < infCandidate.frameID) {
				infCandidate = n
			}
			continue
		}
		if finiteCandidate == nil || d > finiteDist ||
			(d == finiteDist && n.frameID < finiteCandidate.frameID) {
			finiteCandidate = n
			finiteDist = d
		}
	}

	victim := infCandidate
	if victim == nil {
		victim = finiteCandidate
	}
	if victim == nil {
		return 0, false
	}

	delete(r.nodes, victim.frameID)
	r.evictableCount--
	return victim.frameID, true
}
