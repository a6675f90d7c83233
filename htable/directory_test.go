package htable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagevault/htable"
)

func TestNewDirectoryPageIsEmpty(t *testing.T) {
	d := htable.NewDirectoryPage()
	assert.Equal(t, uint32(0), d.GlobalDepth())
	assert.Equal(t, uint32(1), d.Size())
	assert.Equal(t, htable.InvalidPageID, d.BucketPageID(0))
}

func TestIncrGlobalDepthMirrorsEntries(t *testing.T) {
	d := htable.NewDirectoryPage()
	d.SetBucketPageID(0, 42)
	d.SetLocalDepth(0, 3)

	d.IncrGlobalDepth()

	assert.Equal(t, uint32(1), d.GlobalDepth())
	assert.Equal(t, uint32(2), d.Size())
	assert.Equal(t, int32(42), d.BucketPageID(1))
	assert.Equal(t, uint8(3), d.LocalDepth(1))
}

func TestIncrGlobalDepthNoopAtMaxDepth(t *testing.T) {
	d := htable.NewDirectoryPage()
	for i := 0; i < htable.MaxDepth; i++ {
		d.IncrGlobalDepth()
	}
	require.Equal(t, uint32(htable.MaxDepth), d.GlobalDepth())
	d.IncrGlobalDepth()
	assert.Equal(t, uint32(htable.MaxDepth), d.GlobalDepth())
}

func TestSplitImageIndexFlipsLocalDepthBit(t *testing.T) {
	d := htable.NewDirectoryPage()
	d.SetLocalDepth(3, 1)
	assert.Equal(t, uint32(1), d.SplitImageIndex(3))
}

// Scenario 3 from the spec: max_depth=9 starting empty, IncrGlobalDepth
// three times, then fill all eight active slots with the repeating pattern
// {10,11,10,11} and local depth 1. CanShrink is true, and DecrGlobalDepth
// shrinks in two
// steps: size 4 {10,11,10,11} -> size 2 {10,11}.
func TestDecrGlobalDepthShrinksInTwoSteps(t *testing.T) {
	d := htable.NewDirectoryPage()
	d.IncrGlobalDepth()
	d.IncrGlobalDepth()
	d.IncrGlobalDepth()
	require.Equal(t, uint32(3), d.GlobalDepth())
	require.Equal(t, uint32(8), d.Size())

	pageIDs := []int32{10, 11, 10, 11}
	for i := uint32(0); i < d.Size(); i++ {
		d.SetBucketPageID(i, pageIDs[i%4])
		d.SetLocalDepth(i, 1)
	}

	require.True(t, d.CanShrink())
	d.DecrGlobalDepth()
	assert.Equal(t, uint32(2), d.GlobalDepth())
	assert.Equal(t, uint32(4), d.Size())
	assert.Equal(t, []int32{10, 11, 10, 11}, []int32{
		d.BucketPageID(0), d.BucketPageID(1), d.BucketPageID(2), d.BucketPageID(3),
	})

	require.True(t, d.CanShrink())
	d.DecrGlobalDepth()
	assert.Equal(t, uint32(1), d.GlobalDepth())
	assert.Equal(t, uint32(2), d.Size())
	assert.Equal(t, int32(10), d.BucketPageID(0))
	assert.Equal(t, int32(11), d.BucketPageID(1))
}

func TestCanShrinkFalseWhenMirrorsDisagree(t *testing.T) {
	d := htable.NewDirectoryPage()
	d.IncrGlobalDepth()
	d.SetBucketPageID(0, 1)
	d.SetBucketPageID(1, 2)
	assert.False(t, d.CanShrink())
}

func TestCanShrinkFalseAtGlobalDepthZero(t *testing.T) {
	d := htable.NewDirectoryPage()
	assert.False(t, d.CanShrink())
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	d := htable.NewDirectoryPage()
	d.IncrGlobalDepth()
	d.IncrGlobalDepth()
	d.SetBucketPageID(0, 99)
	d.SetLocalDepth(0, 2)

	buf, err := d.MarshalBinary()
	require.NoError(t, err)

	got := htable.NewDirectoryPage()
	require.NoError(t, got.UnmarshalBinary(buf))

	assert.Equal(t, d.GlobalDepth(), got.GlobalDepth())
	assert.Equal(t, int32(99), got.BucketPageID(0))
	assert.Equal(t, uint8(2), got.LocalDepth(0))
}

func TestUnmarshalRejectsShortBuffer(t *testing.T) {
	d := htable.NewDirectoryPage()
	err := d.UnmarshalBinary(make([]byte, 4))
	assert.Error(t, err)
}
