package model

import (
	"context"
	"strings"
	"time"

	"LinkupIM/service/mgo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Conversation is a two-party thread. Participants are stored sorted
// ascending; PairKey carries the unique index that makes get-or-create
// converge under concurrent creation.
type Conversation struct {
	ID              string    `bson:"_id" json:"id"`
	Participants    []string  `bson:"participants" json:"participants"` // exactly two, sorted
	PairKey         string    `bson:"pair_key" json:"-"`                // "<lo>|<hi>", unique
	LastMessageID   string    `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastMessageTime time.Time `bson:"last_message_time" json:"lastMessageTime"`
	Topic           string    `bson:"topic,omitempty" json:"topic,omitempty"`
	IsArchived      bool      `bson:"is_archived" json:"isArchived"`
	CreateTime      time.Time `bson:"create_time" json:"createTime"`
	UpdateTime      time.Time `bson:"update_time" json:"updateTime"`
}

// PairKeyOf returns the canonical pair key, independent of argument order.
func PairKeyOf(userA, userB string) string {
	lo, hi := userA, userB
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return lo + "|" + hi
}

// SortedPair returns the two ids in canonical (ascending) order.
func SortedPair(userA, userB string) [2]string {
	if strings.Compare(userA, userB) > 0 {
		return [2]string{userB, userA}
	}
	return [2]string{userA, userB}
}

// Peer returns the other participant, or "" when user is not a participant.
func (c *Conversation) Peer(user string) string {
	for _, p := range c.Participants {
		if p != user {
			return p
		}
	}
	return ""
}

func (c *Conversation) HasParticipant(user string) bool {
	for _, p := range c.Participants {
		if p == user {
			return true
		}
	}
	return false
}

func (c *Conversation) GetTableName() string {
	return "conversation"
}

func (c *Conversation) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}

// EnsureIndexes creates the canonical-pair unique index and the list index.
// The unique index is the single source of truth for pair identity; callers
// must treat a duplicate-key error on insert as "already exists".
func (c *Conversation) EnsureIndexes(ctx context.Context) error {
	_, err := c.Collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_message_time", Value: -1}},
		},
	})
	return err
}
