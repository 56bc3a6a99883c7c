package handle

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLookup(t *testing.T) {
	table := NewTable()

	h1 := table.Register("first", "conn-1")
	h2 := table.Register("second", "conn-1")

	assert.Equal(t, table.Endpoint(), h1.Endpoint)
	assert.NotEqual(t, h1.Token, h2.Token)
	assert.False(t, h1.IsZero())

	obj, err := table.Lookup(h1)
	require.NoError(t, err)
	assert.Equal(t, "first", obj)

	obj, err = table.Lookup(h2)
	require.NoError(t, err)
	assert.Equal(t, "second", obj)
	assert.Equal(t, 2, table.Len())
}

func TestReleasedHandleIsStale(t *testing.T) {
	table := NewTable()
	h := table.Register(42, "conn-1")

	require.NoError(t, table.Release(h))

	_, err := table.Lookup(h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStale))

	var stale *StaleError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, h, stale.Handle)

	err = table.Release(h)
	assert.ErrorIs(t, err, ErrStale, "double release")
	assert.Zero(t, table.Len())
}

func TestScopedAccess(t *testing.T) {
	table := NewTable()
	h := table.Register("store", "conn-1")

	t.Run("OwnerScope", func(t *testing.T) {
		obj, err := table.LookupScoped(h, "conn-1")
		require.NoError(t, err)
		assert.Equal(t, "store", obj)
	})

	t.Run("OtherScopeIsStale", func(t *testing.T) {
		_, err := table.LookupScoped(h, "conn-2")
		assert.ErrorIs(t, err, ErrStale)

		err = table.ReleaseScoped(h, "conn-2")
		assert.ErrorIs(t, err, ErrStale)
		assert.Equal(t, 1, table.Len(), "release from another scope must not drop the entry")
	})

	t.Run("OwnerReleases", func(t *testing.T) {
		require.NoError(t, table.ReleaseScoped(h, "conn-1"))
		_, err := table.LookupScoped(h, "conn-1")
		assert.ErrorIs(t, err, ErrStale)
		assert.Zero(t, table.Len())
	})
}

func TestTokensNeverReused(t *testing.T) {
	table := NewTable()
	h := table.Register("a", "")
	require.NoError(t, table.Release(h))

	h2 := table.Register("b", "")
	assert.NotEqual(t, h.Token, h2.Token)

	_, err := table.Lookup(h)
	assert.ErrorIs(t, err, ErrStale)
}

func TestForeignEndpointIsStale(t *testing.T) {
	local := NewTable()
	other := NewTable()

	h := other.Register("x", "")
	assert.False(t, local.Owns(h))

	_, err := local.Lookup(h)
	assert.ErrorIs(t, err, ErrStale)
	assert.ErrorIs(t, local.Release(h), ErrStale)

	// Same token, different endpoint: must not alias.
	local.Register("y", "")
	forged := Handle{Endpoint: uuid.New(), Token: 1}
	_, err = local.Lookup(forged)
	assert.ErrorIs(t, err, ErrStale)
}

func TestReleaseScope(t *testing.T) {
	table := NewTable()
	a := table.Register("a", "conn-1")
	b := table.Register("b", "conn-1")
	c := table.Register("c", "conn-2")

	assert.Equal(t, 2, table.ReleaseScope("conn-1"))
	assert.Equal(t, 0, table.ReleaseScope("conn-1"))

	for _, h := range []Handle{a, b} {
		_, err := table.Lookup(h)
		assert.ErrorIs(t, err, ErrStale)
	}
	obj, err := table.Lookup(c)
	require.NoError(t, err)
	assert.Equal(t, "c", obj)
}

func TestStaleErrorMessage(t *testing.T) {
	h := Handle{Endpoint: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), Token: 7}

	assert.Equal(t, "stale handle 6ba7b810-9dad-11d1-80b4-00c04fd430c8/7: released",
		NewStaleError(h, "released").Error())
	assert.Equal(t, "stale handle 6ba7b810-9dad-11d1-80b4-00c04fd430c8/7",
		NewStaleError(h, "").Error())
	assert.True(t, Handle{}.IsZero())
}

func TestConcurrentRegisterRelease(t *testing.T) {
	table := NewTable()

	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				want := fmt.Sprintf("%d-%d", w, i)
				h := table.Register(want, fmt.Sprint(w))

				got, err := table.Lookup(h)
				if !assert.NoError(t, err) || !assert.Equal(t, want, got) {
					return
				}
				if i%2 == 0 {
					assert.NoError(t, table.Release(h))
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker/2, table.Len())
	for w := 0; w < workers; w++ {
		table.ReleaseScope(fmt.Sprint(w))
	}
	assert.Zero(t, table.Len())
}
