package chat

import (
	"encoding/json"
	"testing"
	"time"

	chatmodel "LinkupIM/module/chat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"ping","ts":123}`))
	require.NoError(t, err)
	assert.Equal(t, FramePing, f.Type)
	assert.Equal(t, int64(123), f.TS)

	_, err = ParseFrame([]byte(`{"ts":1}`))
	assert.Error(t, err)

	_, err = ParseFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeRegister(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"register","data":{"token":"abc","user_id":"alice"}}`))
	require.NoError(t, err)

	p, err := DecodeRegister(f)
	require.NoError(t, err)
	assert.Equal(t, "abc", p.Token)
	assert.Equal(t, "alice", p.UserID)

	_, err = DecodeRegister(&Frame{Type: FrameRegister})
	assert.Error(t, err)
}

func TestBuildNewMessageFrame(t *testing.T) {
	m := &chatmodel.Message{
		ID:             "m1",
		ConversationID: "c1",
		SenderID:       "alice",
		Content:        "hello",
		CreatedAt:      time.Now(),
	}
	raw := BuildNewMessageFrame(m)

	f, err := ParseFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, FrameNewMessage, f.Type)
	assert.Equal(t, "m1", f.Data["message_id"])
	assert.Equal(t, "c1", f.Data["conversation_id"])
	assert.Equal(t, "alice", f.Data["sender_id"])
	assert.Equal(t, "hello", f.Data["content"])
}

func TestRelayEnvelopeRoundTrip(t *testing.T) {
	payload := BuildPongFrame()
	raw := EncodeRelayEnvelope("bob", payload)

	env, err := DecodeRelayEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "bob", env.Recipient)
	assert.Equal(t, json.RawMessage(payload), env.Payload)
}
