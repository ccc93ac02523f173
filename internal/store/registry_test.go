package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRegistry(t *testing.T) *ChatRegistry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestMarkAddedAndActive(t *testing.T) {
	r := openTestRegistry(t)

	require.NoError(t, r.MarkAdded("oc_1", "Team Chat"))
	require.NoError(t, r.MarkAdded("oc_2", ""))

	chats, err := r.Active()
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "oc_1", chats[0].ChatID)
	assert.Equal(t, "Team Chat", chats[0].Name)
	assert.True(t, chats[0].Active)
}

func TestMarkRemoved(t *testing.T) {
	r := openTestRegistry(t)

	require.NoError(t, r.MarkAdded("oc_1", "Team"))
	require.NoError(t, r.MarkRemoved("oc_1"))

	active, err := r.Active()
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := r.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)
}

func TestReAddReactivates(t *testing.T) {
	r := openTestRegistry(t)

	require.NoError(t, r.MarkAdded("oc_1", "Old Name"))
	require.NoError(t, r.MarkRemoved("oc_1"))
	require.NoError(t, r.MarkAdded("oc_1", "New Name"))

	active, err := r.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "New Name", active[0].Name)
}

func TestMarkRemovedUnknownChat(t *testing.T) {
	r := openTestRegistry(t)
	require.NoError(t, r.MarkRemoved("oc_ghost"))
}
