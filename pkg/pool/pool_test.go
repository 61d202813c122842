package pool_test

import (
	"testing"

	"github.com/kristofer/stvm/pkg/pool"
	"github.com/stretchr/testify/require"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	p := pool.New[int](2)
	a := p.Alloc()
	*a = 7
	b := p.Alloc()
	*b = 9
	require.Equal(t, 7, *a)
	require.Equal(t, 9, *b)

	p.Free(a)
	c := p.Alloc()
	require.Equal(t, 0, *c, "Alloc must hand back a zeroed value")
}

func TestGrowsWhenExhausted(t *testing.T) {
	p := pool.New[int](1)
	ptrs := make([]*int, 0, 8)
	for i := 0; i < 8; i++ {
		v := p.Alloc()
		*v = i
		ptrs = append(ptrs, v)
	}
	for i, v := range ptrs {
		require.Equal(t, i, *v)
	}
}

func TestScanSeesUsedAndFree(t *testing.T) {
	p := pool.New[int](4)
	a := p.Alloc()
	*a = 42
	p.Alloc()
	p.Free(a)

	var usedCount, freeCount int
	p.Scan(func(v *int, used bool) {
		if used {
			usedCount++
		} else {
			freeCount++
		}
	})
	require.Equal(t, 1, usedCount)
	require.Equal(t, 3, freeCount)
}

func TestFreeUnmarkedSweepsAndFinalizes(t *testing.T) {
	p := pool.New[int](4)
	keep := p.Alloc()
	*keep = 1
	drop := p.Alloc()
	*drop = 2

	finalized := 0
	p.FreeUnmarked(func(v *int) bool {
		return v == keep
	}, func(v *int) {
		finalized++
	})
	require.Equal(t, 1, finalized)

	reused := p.Alloc()
	require.Equal(t, drop, reused, "freed slot should be recycled")
}
