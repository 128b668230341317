package cache

import (
	"testing"

	"github.com/deploymenttheory/go-apfs/apfs/types"
	"github.com/stretchr/testify/require"
)

func TestCacheHitsAvoidReload(t *testing.T) {
	c := New[int](0)
	loads := 0
	load := func(oid types.OidT, xid types.XidT, paddr types.Paddr) (int, error) {
		loads++
		return int(oid) * 2, nil
	}

	v, err := c.Get(5, 0, 0, false, load)
	require.NoError(t, err)
	require.Equal(t, 10, v)

	v, err = c.Get(5, 0, 0, false, load)
	require.NoError(t, err)
	require.Equal(t, 10, v)
	require.Equal(t, 1, loads)

	hits, misses := c.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)
}

func TestCacheLRUEviction(t *testing.T) {
	c := New[int](2)
	load := func(oid types.OidT, xid types.XidT, paddr types.Paddr) (int, error) {
		return int(oid), nil
	}

	_, err := c.Get(1, 0, 0, false, load)
	require.NoError(t, err)
	_, err = c.Get(2, 0, 0, false, load)
	require.NoError(t, err)
	_, err = c.Get(3, 0, 0, false, load)
	require.NoError(t, err)

	loads := 0
	countingLoad := func(oid types.OidT, xid types.XidT, paddr types.Paddr) (int, error) {
		loads++
		return int(oid), nil
	}
	_, err = c.Get(1, 0, 0, false, countingLoad)
	require.NoError(t, err)
	require.Equal(t, 1, loads, "oid 1 should have been evicted and require a reload")
}

func TestCacheEphemeralSurvivesEviction(t *testing.T) {
	c := New[int](1)
	load := func(oid types.OidT, xid types.XidT, paddr types.Paddr) (int, error) {
		return int(oid), nil
	}

	_, err := c.Get(100, 0, 0, true, load)
	require.NoError(t, err)
	_, err = c.Get(1, 0, 0, false, load)
	require.NoError(t, err)
	_, err = c.Get(2, 0, 0, false, load)
	require.NoError(t, err)

	loads := 0
	countingLoad := func(oid types.OidT, xid types.XidT, paddr types.Paddr) (int, error) {
		loads++
		return int(oid), nil
	}
	_, err = c.Get(100, 0, 0, true, countingLoad)
	require.NoError(t, err)
	require.Equal(t, 0, loads, "ephemeral entry should not have been evicted")
}

func TestCacheInvalidateEphemeral(t *testing.T) {
	c := New[int](0)
	load := func(oid types.OidT, xid types.XidT, paddr types.Paddr) (int, error) {
		return int(oid), nil
	}
	_, err := c.Get(100, 0, 0, true, load)
	require.NoError(t, err)

	c.InvalidateEphemeral()

	loads := 0
	countingLoad := func(oid types.OidT, xid types.XidT, paddr types.Paddr) (int, error) {
		loads++
		return int(oid), nil
	}
	_, err = c.Get(100, 0, 0, true, countingLoad)
	require.NoError(t, err)
	require.Equal(t, 1, loads)
}
