package store

import (
	"context"
	"errors"
	"time"

	chatmodel "LinkupIM/module/chat/model"
)

var (
	// ErrConversationExists reports a canonical-pair uniqueness violation on
	// insert. Callers treat it as "someone else won the race" and re-read.
	ErrConversationExists = errors.New("conversation pair already exists")

	ErrNotFound = errors.New("record not found")
)

// Store abstracts durable conversation/message state. The production
// implementation is Mongo (mongo.go); tests run against the in-memory one
// (memory.go). Both enforce the unique canonical pair key on insert.
type Store interface {
	// InsertConversation writes a new conversation. A second insert for the
	// same pair key fails with ErrConversationExists.
	InsertConversation(ctx context.Context, conv *chatmodel.Conversation) error
	GetConversation(ctx context.Context, id string) (*chatmodel.Conversation, error)
	GetConversationByPair(ctx context.Context, pairKey string) (*chatmodel.Conversation, error)
	// ListConversations returns all conversations with the user as a
	// participant, ordered by last_message_time descending.
	ListConversations(ctx context.Context, userID string) ([]*chatmodel.Conversation, error)
	// SearchConversations filters by topic substring (empty matches all) and
	// paginates; it also returns the total match count.
	SearchConversations(ctx context.Context, userID, topic string, limit, offset int64) ([]*chatmodel.Conversation, int64, error)
	SetArchived(ctx context.Context, id string, archived bool) error
	SetTopic(ctx context.Context, id, topic string) error
	// BumpLastMessage updates the conversation's last-message summary.
	BumpLastMessage(ctx context.Context, convID, msgID string, at time.Time) error

	// NextSeq allocates the next insertion sequence for a conversation.
	NextSeq(ctx context.Context, convID string) (int64, error)
	InsertMessage(ctx context.Context, m *chatmodel.Message) error
	// ListMessages returns the conversation's messages oldest first
	// (created_at ascending, seq breaking ties).
	ListMessages(ctx context.Context, convID string) ([]*chatmodel.Message, error)
	// MarkRead flips every unread message not sent by reader to read,
	// stamping at. Returns the number of messages transitioned.
	MarkRead(ctx context.Context, convID, reader string, at time.Time) (int64, error)
	// UnreadCount counts unread messages addressed to the user across all of
	// their conversations.
	UnreadCount(ctx context.Context, userID string) (int64, error)
}
