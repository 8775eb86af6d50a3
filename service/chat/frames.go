package chat

import (
	"encoding/json"
	"time"

	chatmodel "LinkupIM/module/chat/model"
	"LinkupIM/tools/decode"
	"LinkupIM/tools/errs"
)

// Frame types carried over the websocket.
const (
	FrameRegister   = "register"
	FrameRegistered = "registered"
	FramePing       = "ping"
	FramePong       = "pong"
	FrameNewMessage = "new_message"
	FrameError      = "error"
)

type Frame struct {
	Type string         `json:"type"`
	TS   int64          `json:"ts,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal frame failed")
	}
	if frame.Type == "" {
		return nil, errs.New("frame missing type")
	}
	return frame, nil
}

type RegisterPayload struct {
	Token  string `mapstructure:"token"`
	UserID string `mapstructure:"user_id"`
}

// DecodeRegister pulls the typed register payload out of a generic frame.
func DecodeRegister(f *Frame) (*RegisterPayload, error) {
	if f == nil || f.Data == nil {
		return nil, errs.New("register frame missing data")
	}
	p, err := decode.Map[RegisterPayload](f.Data)
	if err != nil {
		return nil, errs.WrapMsg(err, "decode register payload")
	}
	return p, nil
}

// ---- server-built frames ----

func BuildRegisteredFrame(connID, gatewayID, userID string) []byte {
	b, _ := json.Marshal(Frame{
		Type: FrameRegistered,
		TS:   time.Now().UnixMilli(),
		Data: map[string]any{
			"conn_id":    connID,
			"gateway_id": gatewayID,
			"user_id":    userID,
		},
	})
	return b
}

func BuildPongFrame() []byte {
	b, _ := json.Marshal(Frame{Type: FramePong, TS: time.Now().UnixMilli()})
	return b
}

func BuildErrorFrame(msg string) []byte {
	b, _ := json.Marshal(Frame{
		Type: FrameError,
		TS:   time.Now().UnixMilli(),
		Data: map[string]any{"message": msg},
	})
	return b
}

// BuildNewMessageFrame is the push payload a recipient's client sees.
func BuildNewMessageFrame(m *chatmodel.Message) []byte {
	b, _ := json.Marshal(Frame{
		Type: FrameNewMessage,
		TS:   time.Now().UnixMilli(),
		Data: map[string]any{
			"message_id":      m.ID,
			"conversation_id": m.ConversationID,
			"sender_id":       m.SenderID,
			"content":         m.Content,
			"created_at":      m.CreatedAt.UnixMilli(),
		},
	})
	return b
}

// RelayEnvelope wraps a push payload for delivery through another gateway.
type RelayEnvelope struct {
	Recipient string          `json:"recipient"`
	Payload   json.RawMessage `json:"payload"`
}

func EncodeRelayEnvelope(recipient string, payload []byte) []byte {
	b, _ := json.Marshal(RelayEnvelope{Recipient: recipient, Payload: payload})
	return b
}

func DecodeRelayEnvelope(raw []byte) (*RelayEnvelope, error) {
	var env RelayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errs.WrapMsg(err, "decode relay envelope")
	}
	return &env, nil
}
