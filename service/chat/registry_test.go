package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LastRegisterWins(t *testing.T) {
	reg := NewRegistry()

	old := NewClient("conn-1", "alice", nil, 4)
	replaced := reg.Register(old)
	assert.Nil(t, replaced)

	fresh := NewClient("conn-2", "alice", nil, 4)
	replaced = reg.Register(fresh)
	require.Same(t, old, replaced)

	got, ok := reg.Get("alice")
	require.True(t, ok)
	assert.Same(t, fresh, got)

	// The replaced connection id is gone.
	_, ok = reg.GetByConnID("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_StaleUnregisterKeepsNewClient(t *testing.T) {
	reg := NewRegistry()

	old := NewClient("conn-1", "alice", nil, 4)
	reg.Register(old)
	fresh := NewClient("conn-2", "alice", nil, 4)
	reg.Register(fresh)

	// The old connection's teardown fires after the new registration; it must
	// not evict the new client.
	removed := reg.Unregister(old)
	assert.False(t, removed)

	got, ok := reg.Get("alice")
	require.True(t, ok)
	assert.Same(t, fresh, got)

	removed = reg.Unregister(fresh)
	assert.True(t, removed)
	_, ok = reg.Get("alice")
	assert.False(t, ok)
	assert.Zero(t, reg.Len())
}

func TestRegistry_ReregisterSameClient(t *testing.T) {
	reg := NewRegistry()

	c := NewClient("conn-1", "alice", nil, 4)
	reg.Register(c)
	replaced := reg.Register(c)
	assert.Nil(t, replaced)
	assert.Equal(t, 1, reg.Len())
}
