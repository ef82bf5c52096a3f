package geocache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescope/server/internal/models"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "geocache.db"), ttl, nil)
	require.NoError(t, err)
	return store
}

func sampleGeo() models.GeoCodes {
	return models.GeoCodes{
		Latitude:  53.796,
		Longitude: -1.548,
		LSOA:      "E01011364",
		LAD:       "E08000035",
		Locality:  "Leeds",
	}
}

func TestStore_PutThenGet(t *testing.T) {
	store := openTestStore(t, time.Hour)

	_, ok := store.Get("LS14AP")
	assert.False(t, ok)

	store.Put("LS14AP", sampleGeo())

	got, ok := store.Get("LS14AP")
	require.True(t, ok)
	assert.Equal(t, sampleGeo(), got)
}

func TestStore_PutRefreshesExistingEntry(t *testing.T) {
	store := openTestStore(t, time.Hour)

	store.Put("LS14AP", sampleGeo())
	updated := sampleGeo()
	updated.Locality = "Leeds City Centre"
	store.Put("LS14AP", updated)

	got, ok := store.Get("LS14AP")
	require.True(t, ok)
	assert.Equal(t, "Leeds City Centre", got.Locality)
}

func TestStore_ExpiredEntryIsAMiss(t *testing.T) {
	store := openTestStore(t, time.Nanosecond)

	store.Put("LS14AP", sampleGeo())
	time.Sleep(10 * time.Millisecond)

	_, ok := store.Get("LS14AP")
	assert.False(t, ok)
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	store := openTestStore(t, 0)

	store.Put("LS14AP", sampleGeo())
	time.Sleep(10 * time.Millisecond)

	_, ok := store.Get("LS14AP")
	assert.True(t, ok)
}

func TestStore_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocache.db")

	first, err := Open(path, time.Hour, nil)
	require.NoError(t, err)
	first.Put("LS14AP", sampleGeo())

	second, err := Open(path, time.Hour, nil)
	require.NoError(t, err)
	got, ok := second.Get("LS14AP")
	require.True(t, ok)
	assert.Equal(t, sampleGeo(), got)
}
