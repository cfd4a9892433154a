package cart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	blp885 = &catalog.Record{ID: "BLP885", Name: "VIVO Y12 BLP885 Battery"}
	bm58   = &catalog.Record{ID: "BM58", Name: "XIAOMI REDMI 9 BM58 Battery"}
	bn47   = &catalog.Record{ID: "BN47", Name: "XIAOMI REDMI NOTE 9 BN47"}
)

func TestListAdd(t *testing.T) {
	l := NewList(nil)

	first := l.Add(blp885)
	assert.Equal(t, Item{ID: "BLP885", Name: blp885.Name, Qty: 1}, first)

	again := l.Add(blp885)
	assert.Equal(t, 2, again.Qty)

	l.Add(bm58)
	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "BLP885", items[0].ID)
	assert.Equal(t, "BM58", items[1].ID)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 3, l.Total())
}

func TestListRemove(t *testing.T) {
	l := NewList(nil)
	l.Add(blp885)
	l.Add(bm58)
	l.Add(bn47)

	assert.True(t, l.Remove("BM58"))
	assert.False(t, l.Remove("BM58"))
	assert.False(t, l.Remove("missing"))

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "BLP885", items[0].ID)
	assert.Equal(t, "BN47", items[1].ID)
}

func TestListSetQty(t *testing.T) {
	l := NewList(nil)
	l.Add(blp885)

	testCases := []struct {
		qty         int
		expected    int
		description string
	}{
		{5, 5, "Raise"},
		{1, 1, "Lower"},
		{0, 1, "Zero clamps"},
		{-3, 1, "Negative clamps"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			item, ok := l.SetQty("BLP885", tc.qty)
			require.True(t, ok)
			assert.Equal(t, tc.expected, item.Qty)
			assert.Equal(t, tc.expected, l.Items()[0].Qty)
		})
	}

	_, ok := l.SetQty("missing", 3)
	assert.False(t, ok)
}

func TestListClear(t *testing.T) {
	store := NewMemoryStore()
	l := NewList(store)
	l.Add(blp885)
	l.Add(bm58)

	l.Clear()

	assert.Zero(t, l.Len())
	assert.Empty(t, l.Items())
	assert.Empty(t, store.Load())
}

func TestListItemsIsACopy(t *testing.T) {
	l := NewList(nil)
	l.Add(blp885)

	items := l.Items()
	items[0].Qty = 99

	assert.Equal(t, 1, l.Items()[0].Qty)
}

func TestListPersistsEveryChange(t *testing.T) {
	store := NewMemoryStore()
	l := NewList(store)

	l.Add(blp885)
	l.Add(blp885)
	l.SetQty("BLP885", 4)
	l.Remove("missing")
	l.Remove("BLP885")

	assert.Equal(t, 4, store.Saves(), "a no-op remove must not save")
	assert.Empty(t, store.Load())
}

func TestListLoadSanitizes(t *testing.T) {
	store := NewMemoryStore(
		Item{ID: "BLP885", Name: "VIVO Y12 BLP885 Battery", Qty: 2},
		Item{ID: "  ", Name: "blank id", Qty: 1},
		Item{ID: "BM58", Name: "XIAOMI REDMI 9 BM58 Battery", Qty: 0},
		Item{ID: "BLP885", Name: "VIVO Y12 BLP885 Battery", Qty: 1},
	)

	l := NewList(store)

	assert.Equal(t, []Item{
		{ID: "BLP885", Name: "VIVO Y12 BLP885 Battery", Qty: 3},
		{ID: "BM58", Name: "XIAOMI REDMI 9 BM58 Battery", Qty: 1},
	}, l.Items())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.msgpack")

	l := NewList(NewFileStore(path))
	assert.Zero(t, l.Len(), "a missing file is an empty cart")
	l.Add(blp885)
	l.Add(bn47)
	l.SetQty("BN47", 3)

	require.FileExists(t, path)

	reloaded := NewList(NewFileStore(path))
	assert.Equal(t, l.Items(), reloaded.Items())
}

func TestFileStoreUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.msgpack")
	require.NoError(t, os.WriteFile(path, []byte("not msgpack at all"), 0o644))

	l := NewList(NewFileStore(path))
	assert.Zero(t, l.Len())

	// the next change overwrites the broken file
	l.Add(bm58)
	assert.Len(t, NewFileStore(path).Load(), 1)
}

func TestFileStoreSaveFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	// a directory cannot be replaced by the cart file
	path := filepath.Join(dir, "cart.msgpack")
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), nil, 0o644))

	l := NewList(NewFileStore(path))
	l.Add(blp885)

	assert.Equal(t, 1, l.Len())
	assert.DirExists(t, path)
}
