package registry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type uuidGen struct{}

func (uuidGen) NewRawID() (uuid.UUID, error) {
	return uuid.NewV7()
}

// TestRegistryCreateGetDelete walks the full lifecycle of an entry.
func TestRegistryCreateGetDelete(t *testing.T) {
	t.Parallel()

	reg := New(uuidGen{}, &fixedClock{now: time.Unix(0, 0)}, nil)
	entry, err := reg.Create(0.25)
	require.NoError(t, err)
	require.InDelta(t, 0.25, entry.Tracker.True(), 1e-9)

	got, err := reg.Get(entry.ID)
	require.NoError(t, err)
	require.Same(t, entry.Tracker, got.Tracker)

	require.NoError(t, reg.Delete(entry.ID))
	_, err = reg.Get(entry.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, reg.Delete(entry.ID), ErrNotFound)
}

// TestRegistryListOrdersByCreation verifies List returns oldest-first.
func TestRegistryListOrdersByCreation(t *testing.T) {
	t.Parallel()

	reg := New(uuidGen{}, &fixedClock{now: time.Unix(0, 0)}, nil)
	first, err := reg.Create(0)
	require.NoError(t, err)
	second, err := reg.Create(0)
	require.NoError(t, err)

	entries := reg.List()
	require.Len(t, entries, 2)
	require.Equal(t, first.ID, entries[0].ID)
	require.Equal(t, second.ID, entries[1].ID)
}
