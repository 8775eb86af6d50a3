package model

import (
	"context"
	"time"

	"LinkupIM/service/mgo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Message belongs to exactly one conversation for its lifetime. CreatedAt
// defines arrival order; Seq breaks same-millisecond ties.
type Message struct {
	ID             string     `bson:"_id" json:"id"`
	ConversationID string     `bson:"conversation_id" json:"conversationId"`
	SenderID       string     `bson:"sender_id" json:"sender"`
	Content        string     `bson:"content" json:"content"`
	Seq            int64      `bson:"seq" json:"seq"`
	IsRead         bool       `bson:"is_read" json:"isRead"`
	ReadAt         *time.Time `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt      time.Time  `bson:"created_at" json:"createdAt"`
}

func (m *Message) GetTableName() string {
	return "message"
}

func (m *Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

func (m *Message) EnsureIndexes(ctx context.Context) error {
	_, err := m.Collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "sender_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "is_read", Value: 1}},
			Options: options.Index(),
		},
	})
	return err
}
