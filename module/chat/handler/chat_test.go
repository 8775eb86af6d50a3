package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	midsec "LinkupIM/middleware/security"
	"LinkupIM/module/chat/graph"
	chatsvc "LinkupIM/module/chat/service"
	"LinkupIM/module/chat/store"
	"LinkupIM/tools/errs"
	tsec "LinkupIM/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = tsec.DefaultOptions([]byte("test-secret"))

type testEnv struct {
	router *gin.Engine
	graph  *graph.MemGraph
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, store.NewMemStore())
}

func newTestEnvWith(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	g := graph.NewMemGraph()
	svc := chatsvc.NewChatService(st, g, nil, nil)

	r := gin.New()
	h := NewHandler(svc, 2*time.Second)
	h.RegisterRoutes(r, midsec.DefaultOptions(testJWT))
	return &testEnv{router: r, graph: g}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := tsec.Generate(testJWT, userID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, user))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/chat/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conversations", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckConnectionRoute(t *testing.T) {
	env := newTestEnv(t)
	env.graph.Connect("alice", "bob")

	w := env.do(t, http.MethodGet, "/api/chat/connection/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["isConnected"])

	w = env.do(t, http.MethodGet, "/api/chat/connection/carol", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["isConnected"])
}

func TestGetOrCreateConversationRoute(t *testing.T) {
	env := newTestEnv(t)
	env.graph.Connect("alice", "bob")

	w := env.do(t, http.MethodGet, "/api/chat/conversation/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeBody(t, w)
	require.NotEmpty(t, first["id"])

	// Same conversation from the other side.
	w = env.do(t, http.MethodGet, "/api/chat/conversation/alice", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["id"], decodeBody(t, w)["id"])

	// Strangers are rejected.
	w = env.do(t, http.MethodGet, "/api/chat/conversation/carol", "alice", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Self is a bad request.
	w = env.do(t, http.MethodGet, "/api/chat/conversation/alice", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessageFlowRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.graph.Connect("alice", "bob")

	w := env.do(t, http.MethodGet, "/api/chat/conversation/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	convID := decodeBody(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/api/chat/message", "alice", gin.H{
		"conversationId": convID,
		"content":        "hello bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	msg := decodeBody(t, w)
	assert.Equal(t, "alice", msg["sender"])
	assert.Equal(t, "hello bob", msg["content"])

	// Missing body fields.
	w = env.do(t, http.MethodPost, "/api/chat/message", "alice", gin.H{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Empty content.
	w = env.do(t, http.MethodPost, "/api/chat/message", "alice", gin.H{
		"conversationId": convID,
		"content":        "   ",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Outsider cannot read the thread.
	w = env.do(t, http.MethodGet, "/api/chat/messages/"+convID, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/chat/messages/"+convID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, false, msgs[0]["isRead"])

	w = env.do(t, http.MethodGet, "/api/chat/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["unreadCount"])

	w = env.do(t, http.MethodPut, "/api/chat/read/"+convID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/chat/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["unreadCount"])
}

func TestUnknownConversationRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/chat/messages/does-not-exist", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/chat/message", "alice", gin.H{
		"conversationId": "does-not-exist",
		"content":        "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTopicRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.graph.Connect("alice", "bob")

	w := env.do(t, http.MethodPost, "/api/chat/conversation/topic", "alice", gin.H{
		"userId": "bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	conv := decodeBody(t, w)
	assert.Equal(t, "New Topic", conv["topic"])
	convID := conv["id"].(string)

	w = env.do(t, http.MethodPut, "/api/chat/topic/"+convID, "bob", gin.H{"topic": "weekend plans"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "weekend plans", decodeBody(t, w)["topic"])

	w = env.do(t, http.MethodPut, "/api/chat/topic/"+convID, "alice", gin.H{"topic": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryRoute(t *testing.T) {
	env := newTestEnv(t)
	for _, peer := range []string{"bob", "carol", "dave"} {
		env.graph.Connect("alice", peer)
		w := env.do(t, http.MethodPost, "/api/chat/conversation/topic", "alice", gin.H{
			"userId": peer,
			"topic":  "chat with " + peer,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/chat/history?limit=2", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["totalCount"])
	assert.Equal(t, true, body["hasMore"])
	assert.Len(t, body["conversations"], 2)

	w = env.do(t, http.MethodGet, "/api/chat/history?search=carol", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, float64(1), body["totalCount"])
	assert.Equal(t, false, body["hasMore"])
}

func TestHistoryRejectsBadPagination(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/chat/history?limit=abc", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/chat/history?offset=1.5", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// timeoutStore simulates a storage call exceeding its deadline.
type timeoutStore struct {
	store.Store
}

func (timeoutStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return 0, context.DeadlineExceeded
}

func TestTimeoutMapsToGatewayTimeout(t *testing.T) {
	env := newTestEnvWith(t, timeoutStore{Store: store.NewMemStore()})

	w := env.do(t, http.MethodGet, "/api/chat/unread-count", "alice", nil)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, float64(errs.DeadlineError), decodeBody(t, w)["code"])
}

func TestArchiveRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.graph.Connect("alice", "bob")

	w := env.do(t, http.MethodGet, "/api/chat/conversation/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	convID := decodeBody(t, w)["id"].(string)

	w = env.do(t, http.MethodPut, "/api/chat/archive/"+convID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/chat/conversations", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var convs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, true, convs[0]["isArchived"])

	w = env.do(t, http.MethodPut, "/api/chat/unarchive/"+convID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/api/chat/archive/"+convID, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
