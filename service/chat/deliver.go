package chat

import (
	"context"

	"LinkupIM/logger"
	chatmodel "LinkupIM/module/chat/model"
)

// Deliver pushes a stored message to the recipient. Local registry hit goes
// through the fanout pool; otherwise the presence mirror may point at another
// gateway and the frame is relayed there. No hit anywhere means the message
// simply waits in the store for the next poll.
func (s *Server) Deliver(msg *chatmodel.Message, recipientID string) {
	payload := BuildNewMessageFrame(msg)

	if c, ok := s.reg.Get(recipientID); ok {
		s.fanout.Broadcast([]*Client{c}, payload)
		return
	}
	if !s.presenceEnabled() || s.relay == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), presenceOpWait)
	defer cancel()
	gw, online, err := s.presence.Lookup(ctx, recipientID)
	if err != nil {
		logger.Infof("[deliver] presence lookup failed user=%s err=%v", recipientID, err)
		return
	}
	if !online || gw == s.conf.GatewayID {
		// offline, or a stale local entry; the store keeps the message
		return
	}
	if err := s.relay.Relay(gw, EncodeRelayEnvelope(recipientID, payload)); err != nil {
		logger.Infof("[deliver] relay failed user=%s gw=%s err=%v", recipientID, gw, err)
	}
}

// DeliverLocal pushes a relayed payload to a locally registered user. Called
// by the relay consumer; drops silently when the user has since disconnected.
func (s *Server) DeliverLocal(raw []byte) {
	env, err := DecodeRelayEnvelope(raw)
	if err != nil {
		logger.Infof("[deliver] bad relay envelope: %v", err)
		return
	}
	if c, ok := s.reg.Get(env.Recipient); ok {
		s.fanout.Broadcast([]*Client{c}, env.Payload)
	}
}
