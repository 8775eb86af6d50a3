package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	chatmodel "LinkupIM/module/chat/model"
	"LinkupIM/tools/ids"
)

// MemStore mirrors the Mongo implementation's constraints in memory,
// including the unique canonical pair key. Used by tests and local runs.
type MemStore struct {
	mu     sync.RWMutex
	byID   map[string]*chatmodel.Conversation
	byPair map[string]*chatmodel.Conversation
	msgs   map[string][]*chatmodel.Message // conv id -> append order
	seqs   map[string]int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:   make(map[string]*chatmodel.Conversation),
		byPair: make(map[string]*chatmodel.Conversation),
		msgs:   make(map[string][]*chatmodel.Message),
		seqs:   make(map[string]int64),
	}
}

func (s *MemStore) InsertConversation(ctx context.Context, conv *chatmodel.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// UNIQUE(pair_key)
	if _, ok := s.byPair[conv.PairKey]; ok {
		return ErrConversationExists
	}
	if conv.ID == "" {
		conv.ID = ids.GenerateString()
	}
	cp := *conv
	s.byID[cp.ID] = &cp
	s.byPair[cp.PairKey] = &cp
	return nil
}

func (s *MemStore) GetConversation(ctx context.Context, id string) (*chatmodel.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.byID[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) GetConversationByPair(ctx context.Context, pairKey string) (*chatmodel.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.byPair[pairKey]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) listLocked(userID string) []*chatmodel.Conversation {
	var out []*chatmodel.Conversation
	for _, c := range s.byID {
		if c.HasParticipant(userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	return out
}

func (s *MemStore) ListConversations(ctx context.Context, userID string) ([]*chatmodel.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(userID), nil
}

func (s *MemStore) SearchConversations(ctx context.Context, userID, topic string, limit, offset int64) ([]*chatmodel.Conversation, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.listLocked(userID)
	if topic != "" {
		filtered := all[:0]
		for _, c := range all {
			if strings.Contains(strings.ToLower(c.Topic), strings.ToLower(topic)) {
				filtered = append(filtered, c)
			}
		}
		all = filtered
	}
	total := int64(len(all))
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemStore) SetArchived(ctx context.Context, id string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.IsArchived = archived
	c.UpdateTime = time.Now()
	return nil
}

func (s *MemStore) SetTopic(ctx context.Context, id, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.Topic = topic
	c.UpdateTime = time.Now()
	return nil
}

func (s *MemStore) BumpLastMessage(ctx context.Context, convID, msgID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[convID]
	if !ok {
		return ErrNotFound
	}
	c.LastMessageID = msgID
	if at.After(c.LastMessageTime) {
		c.LastMessageTime = at
	}
	c.UpdateTime = time.Now()
	return nil
}

func (s *MemStore) NextSeq(ctx context.Context, convID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[convID]++
	return s.seqs[convID], nil
}

func (s *MemStore) InsertMessage(ctx context.Context, m *chatmodel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = ids.GenerateString()
	}
	cp := *m
	s.msgs[m.ConversationID] = append(s.msgs[m.ConversationID], &cp)
	return nil
}

func (s *MemStore) ListMessages(ctx context.Context, convID string) ([]*chatmodel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.msgs[convID]
	out := make([]*chatmodel.Message, 0, len(src))
	for _, m := range src {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemStore) MarkRead(ctx context.Context, convID, reader string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.msgs[convID] {
		if m.SenderID != reader && !m.IsRead {
			m.IsRead = true
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (s *MemStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for convID, c := range s.byID {
		if !c.HasParticipant(userID) {
			continue
		}
		for _, m := range s.msgs[convID] {
			if m.SenderID != userID && !m.IsRead {
				n++
			}
		}
	}
	return n, nil
}
