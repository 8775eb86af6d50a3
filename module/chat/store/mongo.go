package store

import (
	"context"
	"time"

	chatmodel "LinkupIM/module/chat/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	ConvColl *mongo.Collection // conversation
	MsgColl  *mongo.Collection // message
	SeqColl  *mongo.Collection // seq_conversation
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	conv := chatmodel.Conversation{}
	msg := chatmodel.Message{}
	return &MongoStore{
		ConvColl: db.Collection(conv.GetTableName()),
		MsgColl:  db.Collection(msg.GetTableName()),
		SeqColl:  db.Collection("seq_conversation"),
	}
}

func (s *MongoStore) InsertConversation(ctx context.Context, conv *chatmodel.Conversation) error {
	if conv.ID == "" {
		conv.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.ConvColl.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConversationExists
	}
	return err
}

func (s *MongoStore) GetConversation(ctx context.Context, id string) (*chatmodel.Conversation, error) {
	var conv chatmodel.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *MongoStore) GetConversationByPair(ctx context.Context, pairKey string) (*chatmodel.Conversation, error) {
	var conv chatmodel.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{"pair_key": pairKey}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *MongoStore) ListConversations(ctx context.Context, userID string) ([]*chatmodel.Conversation, error) {
	cur, err := s.ConvColl.Find(ctx,
		bson.M{"participants": userID},
		options.Find().SetSort(bson.D{{Key: "last_message_time", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*chatmodel.Conversation
	for cur.Next(ctx) {
		var conv chatmodel.Conversation
		if err := cur.Decode(&conv); err != nil {
			return nil, err
		}
		out = append(out, &conv)
	}
	return out, cur.Err()
}

func (s *MongoStore) SearchConversations(ctx context.Context, userID, topic string, limit, offset int64) ([]*chatmodel.Conversation, int64, error) {
	filter := bson.M{"participants": userID}
	if topic != "" {
		filter["topic"] = bson.M{"$regex": topic, "$options": "i"}
	}
	total, err := s.ConvColl.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.ConvColl.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "last_message_time", Value: -1}}).
			SetLimit(limit).
			SetSkip(offset),
	)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*chatmodel.Conversation
	for cur.Next(ctx) {
		var conv chatmodel.Conversation
		if err := cur.Decode(&conv); err != nil {
			return nil, 0, err
		}
		out = append(out, &conv)
	}
	return out, total, cur.Err()
}

func (s *MongoStore) SetArchived(ctx context.Context, id string, archived bool) error {
	res, err := s.ConvColl.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_archived": archived, "update_time": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetTopic(ctx context.Context, id, topic string) error {
	res, err := s.ConvColl.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"topic": topic, "update_time": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) BumpLastMessage(ctx context.Context, convID, msgID string, at time.Time) error {
	// $max keeps the summary monotonic when appends commit out of order
	res, err := s.ConvColl.UpdateOne(ctx,
		bson.M{"_id": convID},
		bson.M{
			"$set": bson.M{"last_message_id": msgID, "update_time": time.Now()},
			"$max": bson.M{"last_message_time": at},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) NextSeq(ctx context.Context, convID string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.SeqColl.FindOneAndUpdate(ctx,
		bson.M{"_id": convID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

func (s *MongoStore) InsertMessage(ctx context.Context, m *chatmodel.Message) error {
	if m.ID == "" {
		m.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.MsgColl.InsertOne(ctx, m)
	return err
}

func (s *MongoStore) ListMessages(ctx context.Context, convID string) ([]*chatmodel.Message, error) {
	cur, err := s.MsgColl.Find(ctx,
		bson.M{"conversation_id": convID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*chatmodel.Message
	for cur.Next(ctx) {
		var m chatmodel.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *MongoStore) MarkRead(ctx context.Context, convID, reader string, at time.Time) (int64, error) {
	res, err := s.MsgColl.UpdateMany(ctx,
		bson.M{
			"conversation_id": convID,
			"sender_id":       bson.M{"$ne": reader},
			"is_read":         false,
		},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ids, err := s.ConvColl.Distinct(ctx, "_id", bson.M{"participants": userID})
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.MsgColl.CountDocuments(ctx, bson.M{
		"conversation_id": bson.M{"$in": ids},
		"sender_id":       bson.M{"$ne": userID},
		"is_read":         false,
	})
}
