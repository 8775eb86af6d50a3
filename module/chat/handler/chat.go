package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	mid "LinkupIM/middleware"
	midsec "LinkupIM/middleware/security"
	chatsvc "LinkupIM/module/chat/service"
	"LinkupIM/tools/errs"

	"github.com/gin-gonic/gin"
)

const defaultRequestTimeout = 5 * time.Second

// Handler exposes the messaging core over HTTP. Route shapes follow the
// client contract: ids in the path, bodies for content-bearing operations.
type Handler struct {
	svc     *chatsvc.ChatService
	timeout time.Duration
}

func NewHandler(svc *chatsvc.ChatService, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{svc: svc, timeout: timeout}
}

// RegisterRoutes mounts the chat API under /api/chat, all behind auth.
func (h *Handler) RegisterRoutes(r gin.IRoutes, auth *midsec.Options) {
	opt := mid.RouteOpt{IsAuth: true, Auth: auth}
	mid.GET(r, "/api/chat/connection/:userId", h.CheckConnection, opt)
	mid.GET(r, "/api/chat/conversations", h.GetConversations, opt)
	mid.GET(r, "/api/chat/conversation/:userId", h.GetOrCreateConversation, opt)
	mid.POST(r, "/api/chat/conversation/topic", h.CreateTopicConversation, opt)
	mid.GET(r, "/api/chat/history", h.GetChatHistory, opt)
	mid.GET(r, "/api/chat/messages/:conversationId", h.GetMessages, opt)
	mid.POST(r, "/api/chat/message", h.SendMessage, opt)
	mid.PUT(r, "/api/chat/read/:conversationId", h.MarkRead, opt)
	mid.GET(r, "/api/chat/unread-count", h.GetUnreadCount, opt)
	mid.PUT(r, "/api/chat/archive/:conversationId", h.Archive, opt)
	mid.PUT(r, "/api/chat/unarchive/:conversationId", h.Unarchive, opt)
	mid.PUT(r, "/api/chat/topic/:conversationId", h.UpdateTopic, opt)
}

func (h *Handler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// httpStatus maps the error taxonomy onto transport status codes. Conflict
// never appears here; the service resolves it internally.
func httpStatus(err error) int {
	switch errs.CodeOf(err) {
	case errs.ArgsError:
		return http.StatusBadRequest
	case errs.ForbiddenError:
		return http.StatusForbidden
	case errs.RecordNotFoundError:
		return http.StatusNotFound
	case errs.DuplicateKeyError:
		return http.StatusConflict
	case errs.DeadlineError:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	c.JSON(httpStatus(err), gin.H{"code": errs.CodeOf(err), "message": err.Error()})
}

func (h *Handler) CheckConnection(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	ok, err := h.svc.CheckConnection(ctx, midsec.UserID(c), c.Param("userId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isConnected": ok})
}

func (h *Handler) GetConversations(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	convs, err := h.svc.ListConversations(ctx, midsec.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (h *Handler) GetOrCreateConversation(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	conv, err := h.svc.GetOrCreateConversation(ctx, midsec.UserID(c), c.Param("userId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

type createTopicReq struct {
	UserID string `json:"userId" binding:"required"`
	Topic  string `json:"topic"`
}

func (h *Handler) CreateTopicConversation(c *gin.Context) {
	var req createTopicReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	conv, err := h.svc.CreateTopicConversation(ctx, midsec.UserID(c), req.UserID, req.Topic)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *Handler) GetChatHistory(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil {
		respondErr(c, errs.ErrArgs.WrapMsg("limit must be an integer"))
		return
	}
	offset, err := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if err != nil {
		respondErr(c, errs.ErrArgs.WrapMsg("offset must be an integer"))
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	convs, total, hasMore, err := h.svc.ChatHistory(ctx, midsec.UserID(c), c.Query("search"), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": convs,
		"totalCount":    total,
		"hasMore":       hasMore,
	})
}

func (h *Handler) GetMessages(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	msgs, err := h.svc.ListMessages(ctx, midsec.UserID(c), c.Param("conversationId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type sendMessageReq struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Content        string `json:"content"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	msg, err := h.svc.SendMessage(ctx, midsec.UserID(c), req.ConversationID, req.Content)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) MarkRead(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.MarkRead(ctx, midsec.UserID(c), c.Param("conversationId")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "messages marked as read"})
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	n, err := h.svc.UnreadCount(ctx, midsec.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": n})
}

func (h *Handler) Archive(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.Archive(ctx, midsec.UserID(c), c.Param("conversationId")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "conversation archived"})
}

func (h *Handler) Unarchive(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.Unarchive(ctx, midsec.UserID(c), c.Param("conversationId")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "conversation unarchived"})
}

type updateTopicReq struct {
	Topic string `json:"topic"`
}

func (h *Handler) UpdateTopic(c *gin.Context) {
	var req updateTopicReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errs.ErrArgs.WrapMsg("invalid request body"))
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	conv, err := h.svc.UpdateTopic(ctx, midsec.UserID(c), c.Param("conversationId"), req.Topic)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}
