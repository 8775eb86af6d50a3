package graph

import (
	"context"
	"sync"

	chatmodel "LinkupIM/module/chat/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Graph answers "may A and B message each other?" against the external
// connection graph. Absence of a relationship is false, not an error.
type Graph interface {
	IsConnected(ctx context.Context, userA, userB string) (bool, error)
}

// MongoGraph reads the connection collection maintained by the social-graph
// service. Accepted relationships are bidirectional, so both orientations
// are checked.
type MongoGraph struct {
	ConnColl *mongo.Collection
}

func NewMongoGraph(db *mongo.Database) *MongoGraph {
	conn := chatmodel.Connection{}
	return &MongoGraph{ConnColl: db.Collection(conn.GetTableName())}
}

func (g *MongoGraph) IsConnected(ctx context.Context, userA, userB string) (bool, error) {
	if userA == userB {
		return false, nil
	}
	err := g.ConnColl.FindOne(ctx, bson.M{
		"$or": []bson.M{
			{"sender_id": userA, "receiver_id": userB},
			{"sender_id": userB, "receiver_id": userA},
		},
		"status": chatmodel.ConnectionAccepted,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemGraph is the test double: connections added via Connect are accepted
// in both directions.
type MemGraph struct {
	mu    sync.RWMutex
	pairs map[[2]string]struct{}
}

func NewMemGraph() *MemGraph {
	return &MemGraph{pairs: make(map[[2]string]struct{})}
}

func (g *MemGraph) Connect(userA, userB string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pairs[chatmodel.SortedPair(userA, userB)] = struct{}{}
}

func (g *MemGraph) Disconnect(userA, userB string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pairs, chatmodel.SortedPair(userA, userB))
}

func (g *MemGraph) IsConnected(ctx context.Context, userA, userB string) (bool, error) {
	if userA == userB {
		return false, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.pairs[chatmodel.SortedPair(userA, userB)]
	return ok, nil
}
