package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"LinkupIM/logger"
	"LinkupIM/module/chat/graph"
	chatmodel "LinkupIM/module/chat/model"
	"LinkupIM/module/chat/store"
	"LinkupIM/tools/errs"
)

const defaultTopic = "New Topic"

// Deliverer pushes a stored message to the recipient's live connection when
// one is registered. Best-effort: no retry, no ack.
type Deliverer interface {
	Deliver(msg *chatmodel.Message, recipientID string)
}

// MessageCreatedEvent is emitted after a successful append for downstream
// consumers (notifications, analytics).
type MessageCreatedEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	CreatedAtMS    int64  `json:"created_at_ms"`
}

type EventSink interface {
	MessageCreated(ev MessageCreatedEvent)
}

// ChatService owns conversation identity, message history, read state and
// the delivery hand-off. All identity decisions go through the store's
// unique pair key, never an in-process lock, so concurrent creation across
// processes converges on one conversation.
type ChatService struct {
	store     store.Store
	graph     graph.Graph
	deliverer Deliverer
	events    EventSink
}

func NewChatService(st store.Store, g graph.Graph, d Deliverer, ev EventSink) *ChatService {
	return &ChatService{store: st, graph: g, deliverer: d, events: ev}
}

// mapErr converts store and context failures into stable caller-visible
// error kinds. Conflicts never pass through here; the create path resolves
// them locally.
func mapErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return errs.ErrRecordNotFound.WrapMsg(op)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.ErrDeadline.WrapMsg(op)
	default:
		return errs.ErrInternalServer.WrapMsg(op, "err", err)
	}
}

func (s *ChatService) CheckConnection(ctx context.Context, caller, peer string) (bool, error) {
	if caller == peer {
		return false, errs.ErrArgs.WrapMsg("cannot check connection with yourself")
	}
	ok, err := s.graph.IsConnected(ctx, caller, peer)
	if err != nil {
		return false, mapErr(err, "check connection")
	}
	return ok, nil
}

// requireConnected gates every conversation-creating operation.
func (s *ChatService) requireConnected(ctx context.Context, caller, peer string) error {
	if caller == "" || peer == "" {
		return errs.ErrArgs.WrapMsg("user id required")
	}
	if caller == peer {
		return errs.ErrArgs.WrapMsg("cannot create conversation with yourself")
	}
	ok, err := s.graph.IsConnected(ctx, caller, peer)
	if err != nil {
		return mapErr(err, "membership check")
	}
	if !ok {
		return errs.ErrForbidden.WrapMsg("you can only message your connections")
	}
	return nil
}

// GetOrCreateConversation resolves the unique conversation for the pair,
// creating it when absent. Two concurrent calls may both miss the read and
// both insert; the unique pair index admits one, the loser re-reads the
// winner's record. N simultaneous calls converge on one conversation.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, caller, peer string) (*chatmodel.Conversation, error) {
	if err := s.requireConnected(ctx, caller, peer); err != nil {
		return nil, err
	}
	pairKey := chatmodel.PairKeyOf(caller, peer)

	conv, err := s.store.GetConversationByPair(ctx, pairKey)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, mapErr(err, "lookup conversation")
	}

	pair := chatmodel.SortedPair(caller, peer)
	now := time.Now()
	fresh := &chatmodel.Conversation{
		Participants:    pair[:],
		PairKey:         pairKey,
		LastMessageTime: now,
		CreateTime:      now,
		UpdateTime:      now,
	}
	if err := validateParticipants(fresh.Participants); err != nil {
		return nil, err
	}

	err = s.store.InsertConversation(ctx, fresh)
	if err == nil {
		logger.Infof("[chat] conversation created id=%s pair=%s", fresh.ID, pairKey)
		return fresh, nil
	}
	if !errors.Is(err, store.ErrConversationExists) {
		return nil, mapErr(err, "create conversation")
	}

	// Lost the creation race: the winner's record is authoritative.
	conv, err = s.store.GetConversationByPair(ctx, pairKey)
	if err != nil {
		return nil, mapErr(err, "re-read conversation after conflict")
	}
	logger.Infof("[chat] creation conflict resolved pair=%s id=%s", pairKey, conv.ID)
	return conv, nil
}

// CreateTopicConversation starts (or reuses) the pair's single conversation
// and labels it. One conversation per pair holds; the topic is a mutable
// field on that conversation.
func (s *ChatService) CreateTopicConversation(ctx context.Context, caller, peer, topic string) (*chatmodel.Conversation, error) {
	conv, err := s.GetOrCreateConversation(ctx, caller, peer)
	if err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = defaultTopic
	}
	if err := s.store.SetTopic(ctx, conv.ID, topic); err != nil {
		return nil, mapErr(err, "set topic")
	}
	conv.Topic = topic
	return conv, nil
}

func (s *ChatService) ListConversations(ctx context.Context, caller string) ([]*chatmodel.Conversation, error) {
	out, err := s.store.ListConversations(ctx, caller)
	if err != nil {
		return nil, mapErr(err, "list conversations")
	}
	return out, nil
}

// ChatHistory lists the caller's conversations with an optional topic filter
// and pagination. Returns the page, the total match count and whether more
// pages remain.
func (s *ChatService) ChatHistory(ctx context.Context, caller, search string, limit, offset int64) ([]*chatmodel.Conversation, int64, bool, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	convs, total, err := s.store.SearchConversations(ctx, caller, strings.TrimSpace(search), limit, offset)
	if err != nil {
		return nil, 0, false, mapErr(err, "chat history")
	}
	hasMore := total > offset+int64(len(convs))
	return convs, total, hasMore, nil
}

// requireParticipant loads the conversation and checks membership.
// Missing conversation is NotFound; outsider access is Forbidden.
func (s *ChatService) requireParticipant(ctx context.Context, convID, caller string) (*chatmodel.Conversation, error) {
	if convID == "" {
		return nil, errs.ErrArgs.WrapMsg("conversation id required")
	}
	conv, err := s.store.GetConversation(ctx, convID)
	if err != nil {
		return nil, mapErr(err, "load conversation")
	}
	if !conv.HasParticipant(caller) {
		return nil, errs.ErrForbidden.WrapMsg("not a participant")
	}
	return conv, nil
}

// SendMessage appends to the conversation, bumps the last-message summary
// and hands the message to the deliverer for the recipient.
func (s *ChatService) SendMessage(ctx context.Context, caller, convID, content string) (*chatmodel.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.ErrArgs.WrapMsg("message content is required")
	}
	conv, err := s.requireParticipant(ctx, convID, caller)
	if err != nil {
		return nil, err
	}

	seq, err := s.store.NextSeq(ctx, convID)
	if err != nil {
		return nil, mapErr(err, "allocate seq")
	}
	msg := &chatmodel.Message{
		ConversationID: convID,
		SenderID:       caller,
		Content:        content,
		Seq:            seq,
		CreatedAt:      time.Now(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, mapErr(err, "insert message")
	}
	if err := s.store.BumpLastMessage(ctx, convID, msg.ID, msg.CreatedAt); err != nil {
		return nil, mapErr(err, "bump last message")
	}

	recipient := conv.Peer(caller)
	if s.deliverer != nil && recipient != "" {
		s.deliverer.Deliver(msg, recipient)
	}
	if s.events != nil {
		s.events.MessageCreated(MessageCreatedEvent{
			ConversationID: convID,
			MessageID:      msg.ID,
			SenderID:       caller,
			RecipientID:    recipient,
			CreatedAtMS:    msg.CreatedAt.UnixMilli(),
		})
	}
	return msg, nil
}

func (s *ChatService) ListMessages(ctx context.Context, caller, convID string) ([]*chatmodel.Message, error) {
	if _, err := s.requireParticipant(ctx, convID, caller); err != nil {
		return nil, err
	}
	out, err := s.store.ListMessages(ctx, convID)
	if err != nil {
		return nil, mapErr(err, "list messages")
	}
	return out, nil
}

// MarkRead transitions every unread message from the other participant to
// read. Idempotent: nothing unread is a no-op success.
func (s *ChatService) MarkRead(ctx context.Context, caller, convID string) error {
	if _, err := s.requireParticipant(ctx, convID, caller); err != nil {
		return err
	}
	n, err := s.store.MarkRead(ctx, convID, caller, time.Now())
	if err != nil {
		return mapErr(err, "mark read")
	}
	if n > 0 {
		logger.Infof("[chat] marked %d messages read conv=%s reader=%s", n, convID, caller)
	}
	return nil
}

func (s *ChatService) UnreadCount(ctx context.Context, caller string) (int64, error) {
	n, err := s.store.UnreadCount(ctx, caller)
	if err != nil {
		return 0, mapErr(err, "unread count")
	}
	return n, nil
}

// Archive flags the conversation. Archiving an archived conversation is a
// no-op success.
func (s *ChatService) Archive(ctx context.Context, caller, convID string) error {
	return s.setArchived(ctx, caller, convID, true)
}

func (s *ChatService) Unarchive(ctx context.Context, caller, convID string) error {
	return s.setArchived(ctx, caller, convID, false)
}

func (s *ChatService) setArchived(ctx context.Context, caller, convID string, archived bool) error {
	if _, err := s.requireParticipant(ctx, convID, caller); err != nil {
		return err
	}
	if err := s.store.SetArchived(ctx, convID, archived); err != nil {
		return mapErr(err, "set archived")
	}
	return nil
}

func (s *ChatService) UpdateTopic(ctx context.Context, caller, convID, topic string) (*chatmodel.Conversation, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errs.ErrArgs.WrapMsg("topic cannot be empty")
	}
	conv, err := s.requireParticipant(ctx, convID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTopic(ctx, convID, topic); err != nil {
		return nil, mapErr(err, "set topic")
	}
	conv.Topic = topic
	return conv, nil
}

func validateParticipants(p []string) error {
	if len(p) != 2 || p[0] == p[1] || p[0] == "" || p[1] == "" {
		return errs.ErrArgs.WrapMsg("conversation must have exactly 2 participants")
	}
	return nil
}
