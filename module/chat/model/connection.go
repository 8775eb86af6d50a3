package model

import (
	"LinkupIM/service/mgo"

	"go.mongodb.org/mongo-driver/mongo"
)

// Connection status values as written by the social-graph service.
const ConnectionAccepted = "accepted"

// Connection is owned by the external social graph; the messaging core only
// reads it to decide whether two users may message each other.
type Connection struct {
	ID         string `bson:"_id"`
	SenderID   string `bson:"sender_id"`
	ReceiverID string `bson:"receiver_id"`
	Status     string `bson:"status"`
}

func (c *Connection) GetTableName() string {
	return "connection"
}

func (c *Connection) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}
