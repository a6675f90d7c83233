// Package htable implements the directory page of an extendible hash table:
// a fixed-layout, disk-persistable array mapping hash buckets to bucket page
// ids, doubling and halving as the table grows and shrinks.
package htable

import (
	"encoding/binary"
	"fmt"
)

// ArraySize bounds the directory's bucket_page_ids/local_depths arrays,
// matching HTABLE_DIRECTORY_ARRAY_SIZE = 2^MaxDepth.
const ArraySize = 512

// MaxDepth is the largest global or local depth the directory can hold.
const MaxDepth = 9

// InvalidPageID marks an unoccupied directory slot.
const InvalidPageID int32 = -1

// wireSize is the exact byte length of MarshalBinary's output: two u32
// header fields, ArraySize local depth bytes, ArraySize i32 page ids.
const wireSize = 4 + 4 + ArraySize + ArraySize*4

// DirectoryPage is the fixed bit-exact layout described by the on-disk
// wire format: a global depth, and per-slot local depths and bucket page
// ids, memory-mappable straight off a page's byte buffer.
type DirectoryPage struct {
	maxDepth     uint32
	globalDepth  uint32
	localDepths  [ArraySize]uint8
	bucketPageIDs [ArraySize]int32
}

// NewDirectoryPage returns an empty directory: global depth 0, every slot
// pointing at InvalidPageID with local depth 0.
func NewDirectoryPage() *DirectoryPage {
	d := &DirectoryPage{maxDepth: MaxDepth}
	for i := range d.bucketPageIDs {
		d.bucketPageIDs[i] = InvalidPageID
	}
	return d
}

// Size returns 2^global_depth, the number of active directory slots.
func (d *DirectoryPage) Size() uint32 { return 1 << d.globalDepth }

// GlobalDepth returns the directory's current global depth.
func (d *DirectoryPage) GlobalDepth() uint32 { return d.globalDepth }

// HashToBucketIndex masks hash down to the low global_depth bits.
func (d *DirectoryPage) HashToBucketIndex(hash uint32) uint32 {
	return hash & (d.Size() - 1)
}

// SplitImageIndex returns the index that shares idx's bucket at one
// lower local depth: idx with its local-depth-th bit flipped.
func (d *DirectoryPage) SplitImageIndex(idx uint32) uint32 {
	return idx ^ (1 << d.localDepths[idx])
}

// BucketPageID returns the bucket page id stored at idx.
func (d *DirectoryPage) BucketPageID(idx uint32) int32 {
	return d.bucketPageIDs[idx]
}

// SetBucketPageID stores pageID at idx.
func (d *DirectoryPage) SetBucketPageID(idx uint32, pageID int32) {
	d.bucketPageIDs[idx] = pageID
}

// LocalDepth returns the local depth stored at idx.
func (d *DirectoryPage) LocalDepth(idx uint32) uint8 {
	return d.localDepths[idx]
}

// SetLocalDepth stores depth at idx.
func (d *DirectoryPage) SetLocalDepth(idx uint32, depth uint8) {
	d.localDepths[idx] = depth
}

// IncrLocalDepth increments the local depth stored at idx.
func (d *DirectoryPage) IncrLocalDepth(idx uint32) {
	d.localDepths[idx]++
}

// DecrLocalDepth decrements the local depth stored at idx.
func (d *DirectoryPage) DecrLocalDepth(idx uint32) {
	d.localDepths[idx]--
}

// IncrGlobalDepth doubles the directory by mirroring every active entry
// i into i+Size, preserving bucket assignment and local depth, then bumps
// global depth. A no-op once global depth has reached max depth.
func (d *DirectoryPage) IncrGlobalDepth() {
	if d.globalDepth == d.maxDepth {
		return
	}
	size := d.Size()
	for i := uint32(0); i < size; i++ {
		d.bucketPageIDs[i+size] = d.bucketPageIDs[i]
		d.localDepths[i+size] = d.localDepths[i]
	}
	d.globalDepth++
}

// CanShrink reports whether the directory may safely halve: global depth
// must be positive, and every entry in the first half must agree with its
// mirror in the second half on both bucket page id and local depth. This is
// the pairwise formulation, strictly safer under asymmetric local depths
// than checking only for an entry at max local depth.
func (d *DirectoryPage) CanShrink() bool {
	if d.globalDepth == 0 {
		return false
	}
	half := d.Size() / 2
	for i := uint32(0); i < half; i++ {
		if d.bucketPageIDs[i] != d.bucketPageIDs[i+half] {
			return false
		}
		if d.localDepths[i] != d.localDepths[i+half] {
			return false
		}
	}
	return true
}

// DecrGlobalDepth halves the directory, clearing the discarded upper half
// and decrementing global depth. A no-op if CanShrink is false.
func (d *DirectoryPage) DecrGlobalDepth() {
	if !d.CanShrink() {
		return
	}
	half := d.Size() / 2
	for i := half; i < d.Size(); i++ {
		d.bucketPageIDs[i] = InvalidPageID
		d.localDepths[i] = 0
	}
	d.globalDepth--
}

// MarshalBinary encodes the directory in the fixed little-endian layout:
// u32 max_depth, u32 global_depth, u8[N] local_depths, i32[N] bucket_page_ids.
func (d *DirectoryPage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, wireSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.maxDepth)
	binary.LittleEndian.PutUint32(buf[4:8], d.globalDepth)
	copy(buf[8:8+ArraySize], d.localDepths[:])
	off := 8 + ArraySize
	for i, pid := range d.bucketPageIDs {
		binary.LittleEndian.PutUint32(buf[off+i*4:off+i*4+4], uint32(pid))
	}
	return buf, nil
}

// UnmarshalBinary decodes a directory previously produced by MarshalBinary.
func (d *DirectoryPage) UnmarshalBinary(buf []byte) error {
	if len(buf) < wireSize {
		return fmt.Errorf("htable: directory buffer too short: got %d want %d", len(buf), wireSize)
	}
	d.maxDepth = binary.LittleEndian.Uint32(buf[0:4])
	d.globalDepth = binary.LittleEndian.Uint32(buf[4:8])
	copy(d.localDepths[:], buf[8:8+ArraySize])
	off := 8 + ArraySize
	for i := range d.bucketPageIDs {
		d.bucketPageIDs[i] = int32(binary.LittleEndian.Uint32(buf[off+i*4 : off+i*4+4]))
	}
	return nil
}
