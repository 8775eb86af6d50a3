package store

import (
	"context"
	"testing"
	"time"

	chatmodel "LinkupIM/module/chat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConv(a, b string) *chatmodel.Conversation {
	pair := chatmodel.SortedPair(a, b)
	now := time.Now()
	return &chatmodel.Conversation{
		Participants:    pair[:],
		PairKey:         chatmodel.PairKeyOf(a, b),
		LastMessageTime: now,
		CreateTime:      now,
		UpdateTime:      now,
	}
}

func TestMemStore_UniquePairKey(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	first := newConv("alice", "bob")
	require.NoError(t, st.InsertConversation(ctx, first))
	assert.NotEmpty(t, first.ID)

	// Same pair in either argument order maps onto the same key.
	dup := newConv("bob", "alice")
	err := st.InsertConversation(ctx, dup)
	require.ErrorIs(t, err, ErrConversationExists)

	got, err := st.GetConversationByPair(ctx, chatmodel.PairKeyOf("bob", "alice"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemStore_GetMissing(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	_, err := st.GetConversation(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.GetConversationByPair(ctx, "a|b")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, st.SetArchived(ctx, "nope", true), ErrNotFound)
	assert.ErrorIs(t, st.SetTopic(ctx, "nope", "t"), ErrNotFound)
	assert.ErrorIs(t, st.BumpLastMessage(ctx, "nope", "m", time.Now()), ErrNotFound)
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	conv := newConv("alice", "bob")
	require.NoError(t, st.InsertConversation(ctx, conv))

	got, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	got.Topic = "mutated outside the store"

	again, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Topic)
}

func TestMemStore_NextSeq(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		seq, err := st.NextSeq(ctx, "conv-1")
		require.NoError(t, err)
		assert.Greater(t, seq, prev)
		prev = seq
	}

	// Counters are per conversation.
	seq, err := st.NextSeq(ctx, "conv-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestMemStore_BumpLastMessageMonotonic(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	conv := newConv("alice", "bob")
	require.NoError(t, st.InsertConversation(ctx, conv))

	later := time.Now().Add(time.Minute)
	require.NoError(t, st.BumpLastMessage(ctx, conv.ID, "m2", later))

	// An out-of-order bump updates the id but never moves the time backwards.
	earlier := later.Add(-time.Hour)
	require.NoError(t, st.BumpLastMessage(ctx, conv.ID, "m1", earlier))

	got, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "m1", got.LastMessageID)
	assert.True(t, got.LastMessageTime.Equal(later))
}

func TestMemStore_ListMessagesOrdering(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	at := time.Now()
	// Same timestamp: seq breaks the tie. Insert out of order on purpose.
	for _, m := range []*chatmodel.Message{
		{ConversationID: "c1", SenderID: "alice", Content: "third", Seq: 3, CreatedAt: at},
		{ConversationID: "c1", SenderID: "bob", Content: "first", Seq: 1, CreatedAt: at},
		{ConversationID: "c1", SenderID: "alice", Content: "second", Seq: 2, CreatedAt: at},
	} {
		require.NoError(t, st.InsertMessage(ctx, m))
	}

	msgs, err := st.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestMemStore_MarkRead(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, st.InsertMessage(ctx, &chatmodel.Message{
			ConversationID: "c1", SenderID: "alice", Content: "hi", Seq: int64(i + 1), CreatedAt: time.Now(),
		}))
	}
	require.NoError(t, st.InsertMessage(ctx, &chatmodel.Message{
		ConversationID: "c1", SenderID: "bob", Content: "yo", Seq: 3, CreatedAt: time.Now(),
	}))

	at := time.Now()
	n, err := st.MarkRead(ctx, "c1", "bob", at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = st.MarkRead(ctx, "c1", "bob", at)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemStore_SearchConversations(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	topics := map[string]string{"bob": "Golang Tips", "carol": "garden club", "dave": "golang meetup"}
	for peer, topic := range topics {
		c := newConv("alice", peer)
		c.Topic = topic
		require.NoError(t, st.InsertConversation(ctx, c))
	}

	convs, total, err := st.SearchConversations(ctx, "alice", "golang", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, convs, 2)

	convs, total, err = st.SearchConversations(ctx, "alice", "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, convs, 1)

	// Offset past the end returns an empty page, not an error.
	convs, total, err = st.SearchConversations(ctx, "alice", "", 10, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, convs)
}
