package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagevault/access"
	"pagevault/buffer"
	"pagevault/disk"
)

// Scenario 1 from the spec: pool size 2, K=2. NewPage -> p0, NewPage -> p1,
// Unpin(p0, false), Unpin(p1, false), NewPage -> p2 evicts p0 (the first
// infinite-history victim); Fetch(p0) then reads it back from disk.
func TestNewPageEvictsFirstInfiniteHistoryVictim(t *testing.T) {
	mgr := disk.NewMemoryManager()
	pool := buffer.NewPoolManager(2, 2, mgr, 2)
	defer pool.Close()

	p0, _, err := pool.NewPage()
	require.NoError(t, err)
	p1, _, err := pool.NewPage()
	require.NoError(t, err)

	require.True(t, pool.UnpinPage(p0, false, access.Unknown))
	require.True(t, pool.UnpinPage(p1, false, access.Unknown))

	p2, _, err := pool.NewPage()
	require.NoError(t, err)
	assert.NotEqual(t, p0, p2)

	frame, err := pool.FetchPage(p0, access.Unknown)
	require.NoError(t, err)
	assert.Equal(t, p0, frame.PageID())
}

// Scenario 2 from the spec: NewPage -> p, write "hello", Unpin(p, true),
// Fetch again returns a frame whose first 5 bytes are "hello"; FlushPage(p)
// then DiskManager.ReadPage(p) yields the same bytes.
func TestDirtyWriteSurvivesUnpinAndFlush(t *testing.T) {
	mgr := disk.NewMemoryManager()
	pool := buffer.NewPoolManager(2, 2, mgr, 2)
	defer pool.Close()

	p, frame, err := pool.NewPage()
	require.NoError(t, err)
	copy(frame.Data(), "hello")
	require.True(t, pool.UnpinPage(p, true, access.Unknown))

	frame, err = pool.FetchPage(p, access.Unknown)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(frame.Data()[:5]))
	require.True(t, pool.UnpinPage(p, false, access.Unknown))

	require.NoError(t, pool.FlushPage(p))

	buf := make([]byte, disk.PageSize)
	require.NoError(t, mgr.ReadPage(p, buf))
	assert.Equal(t, "hello", string(buf[:5]))
}

func TestFetchPageMissWithFullPinnedPoolFails(t *testing.T) {
	mgr := disk.NewMemoryManager()
	pool := buffer.NewPoolManager(1, 2, mgr, 1)
	defer pool.Close()

	_, _, err := pool.NewPage()
	require.NoError(t, err)

	_, err = pool.FetchPage(999, access.Unknown)
	assert.ErrorIs(t, err, buffer.ErrPoolExhausted)
}

func TestUnpinUnknownPageIsFalse(t *testing.T) {
	pool := buffer.NewPoolManager(2, 2, disk.NewMemoryManager(), 1)
	defer pool.Close()

	assert.False(t, pool.UnpinPage(42, false, access.Unknown))
}

func TestDeletePageRejectsPinned(t *testing.T) {
	pool := buffer.NewPoolManager(2, 2, disk.NewMemoryManager(), 1)
	defer pool.Close()

	p, _, err := pool.NewPage()
	require.NoError(t, err)
	assert.False(t, pool.DeletePage(p))

	require.True(t, pool.UnpinPage(p, false, access.Unknown))
	assert.True(t, pool.DeletePage(p))
}

func TestDeleteUnknownPageIsVacuouslyTrue(t *testing.T) {
	pool := buffer.NewPoolManager(2, 2, disk.NewMemoryManager(), 1)
	defer pool.Close()

	assert.True(t, pool.DeletePage(123))
}

func TestFlushAllPagesWritesEveryResidentPage(t *testing.T) {
	mgr := disk.NewMemoryManager()
	pool := buffer.NewPoolManager(3, 2, mgr, 2)
	defer pool.Close()

	ids := make([]buffer.PageID, 0, 3)
	for i := 0; i < 3; i++ {
		id, frame, err := pool.NewPage()
		require.NoError(t, err)
		frame.Data()[0] = byte(i + 1)
		require.True(t, pool.UnpinPage(id, true, access.Unknown))
		ids = append(ids, id)
	}

	require.NoError(t, pool.FlushAllPages())

	for i, id := range ids {
		buf := make([]byte, disk.PageSize)
		require.NoError(t, mgr.ReadPage(id, buf))
		assert.Equal(t, byte(i+1), buf[0])
	}
}

func TestFlushPageUnknownPageIsNotFound(t *testing.T) {
	pool := buffer.NewPoolManager(2, 2, disk.NewMemoryManager(), 1)
	defer pool.Close()

	assert.ErrorIs(t, pool.FlushPage(999), buffer.ErrPageNotFound)
}

func TestFetchPageSurfacesDiskReadFailure(t *testing.T) {
	mgr := disk.NewMemoryManager()
	pool := buffer.NewPoolManager(1, 2, mgr, 1)

	p, _, err := pool.NewPage()
	require.NoError(t, err)
	require.True(t, pool.UnpinPage(p, false, access.Unknown))

	// Evict p so the fetch below is a miss that has to read from disk.
	q, _, err := pool.NewPage()
	require.NoError(t, err)
	require.True(t, pool.UnpinPage(q, false, access.Unknown))

	require.NoError(t, mgr.ShutDown())

	_, err = pool.FetchPage(p, access.Unknown)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, buffer.ErrPoolExhausted)
}
