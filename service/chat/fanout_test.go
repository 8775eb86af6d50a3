package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case p := <-c.Send:
		return p
	case <-time.After(time.Second):
		t.Fatal("no payload received")
		return nil
	}
}

func TestFanout_Broadcast(t *testing.T) {
	f := NewFanout(2, 16)
	defer f.Close()

	a := NewClient("conn-a", "alice", nil, 4)
	b := NewClient("conn-b", "bob", nil, 4)
	payload := []byte(`{"type":"new_message"}`)

	f.Broadcast([]*Client{a, b}, payload)

	assert.Equal(t, payload, recvPayload(t, a))
	assert.Equal(t, payload, recvPayload(t, b))
}

func TestFanout_SlowClientDoesNotBlock(t *testing.T) {
	f := NewFanout(1, 16)
	defer f.Close()

	slow := NewClient("conn-slow", "slow", nil, 1)
	fast := NewClient("conn-fast", "fast", nil, 4)

	// Fill the slow client's queue so further sends would block.
	slow.Send <- []byte("backlog")

	f.Broadcast([]*Client{slow, fast}, []byte("first"))
	f.Broadcast([]*Client{fast}, []byte("second"))

	// The fast client still gets both payloads; the slow one dropped "first".
	assert.Equal(t, []byte("first"), recvPayload(t, fast))
	assert.Equal(t, []byte("second"), recvPayload(t, fast))

	require.Equal(t, []byte("backlog"), <-slow.Send)
	select {
	case p := <-slow.Send:
		t.Fatalf("unexpected payload for slow client: %s", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFanout_EmptyArgsNoop(t *testing.T) {
	f := NewFanout(1, 1)
	defer f.Close()

	f.Broadcast(nil, []byte("x"))
	f.Broadcast([]*Client{NewClient("c", "u", nil, 1)}, nil)
}
