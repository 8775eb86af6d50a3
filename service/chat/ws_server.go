package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"LinkupIM/logger"
	"LinkupIM/tools/ids"
	"LinkupIM/tools/safe"
	"LinkupIM/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	registerWait   = 10 * time.Second
	readWait       = 90 * time.Second
	presenceOpWait = 3 * time.Second
)

type ServerConf struct {
	GatewayID     string
	JWT           security.Options
	PresenceTTL   time.Duration // redis presence key TTL
	SendQueueSize int
	FanoutWorkers int
	FanoutQueue   int
	// SkipPresence disables the presence mirror (single-node runs).
	SkipPresence bool
}

func (c *ServerConf) norm() {
	if c.PresenceTTL <= 0 {
		c.PresenceTTL = 2 * time.Minute
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.FanoutWorkers <= 0 {
		c.FanoutWorkers = 4
	}
	if c.FanoutQueue <= 0 {
		c.FanoutQueue = 1024
	}
}

// Relay forwards a push payload to another gateway, keyed by its gateway id.
type Relay interface {
	Relay(gatewayID string, data []byte) error
}

// Presence mirrors registrations into shared storage so peers can route
// cross-gateway pushes. Offline takes the releasing gateway id so a stale
// disconnect cannot evict a newer registration made through another gateway.
type Presence interface {
	Online(ctx context.Context, user, gatewayID string, ttl time.Duration) error
	Offline(ctx context.Context, user, gatewayID string) error
	Lookup(ctx context.Context, user string) (gatewayID string, online bool, err error)
}

// Server is the realtime gateway: it upgrades connections, authenticates
// them, keeps the presence registry and pushes stored messages out.
type Server struct {
	conf     ServerConf
	reg      *Registry
	fanout   *Fanout
	relay    Relay
	presence Presence
}

func NewServer(conf ServerConf, relay Relay, presence Presence) *Server {
	conf.norm()
	return &Server{
		conf:     conf,
		reg:      NewRegistry(),
		fanout:   NewFanout(conf.FanoutWorkers, conf.FanoutQueue),
		relay:    relay,
		presence: presence,
	}
}

func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) GatewayID() string   { return s.conf.GatewayID }

func (s *Server) presenceEnabled() bool {
	return !s.conf.SkipPresence && s.presence != nil
}

// HandleWS upgrades the request and runs the connection's read loop.
// Authentication comes from the Authorization header, a token query
// parameter, or a register frame sent within registerWait.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	userID, err := s.authenticate(c, ws)
	if err != nil {
		_ = ws.WriteMessage(websocket.TextMessage, BuildErrorFrame("unauthorized"))
		_ = ws.Close()
		return
	}

	client := NewClient(ids.GenerateString(), userID, ws, s.conf.SendQueueSize)
	s.install(client)
	defer s.teardown(client)

	safe.SafeGo(client.WritePump)
	client.Send <- BuildRegisteredFrame(client.ConnID, s.conf.GatewayID, userID)

	// pongs answer the write pump's protocol pings every pingPeriod, so they
	// double as the presence heartbeat for otherwise quiet connections
	ws.SetPongHandler(func(string) error {
		s.presenceOnline(userID)
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})
	_ = ws.SetReadDeadline(time.Now().Add(readWait))

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s user=%s", client.ConnID, userID)
			} else {
				logger.Infof("[ws] read err conn=%s user=%s err=%v", client.ConnID, userID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		frame, perr := ParseFrame(data)
		if perr != nil {
			logger.Infof("[ws] bad frame conn=%s err=%v len=%d", client.ConnID, perr, len(data))
			continue
		}
		switch frame.Type {
		case FramePing:
			_ = ws.SetReadDeadline(time.Now().Add(readWait))
			s.presenceOnline(userID)
			select {
			case client.Send <- BuildPongFrame():
			default:
			}
		case FrameRegister:
			// already registered; refresh the presence TTL
			s.presenceOnline(userID)
		default:
			// inbound data frames are not part of the protocol; sends go
			// through the HTTP API
			logger.Infof("[ws] ignoring frame type=%s conn=%s", frame.Type, client.ConnID)
		}
	}
}

// authenticate resolves the caller identity from the request or the first
// register frame.
func (s *Server) authenticate(c *gin.Context, ws *websocket.Conn) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	if token == "" {
		_ = ws.SetReadDeadline(time.Now().Add(registerWait))
		_, data, err := ws.ReadMessage()
		if err != nil {
			return "", err
		}
		frame, err := ParseFrame(data)
		if err != nil {
			return "", err
		}
		payload, err := DecodeRegister(frame)
		if err != nil {
			return "", err
		}
		token = payload.Token
	}
	return security.VerifyUserID(s.conf.JWT, token)
}

func (s *Server) install(client *Client) {
	if replaced := s.reg.Register(client); replaced != nil {
		logger.Infof("[ws] replacing connection user=%s old=%s new=%s",
			client.UserID, replaced.ConnID, client.ConnID)
		replaced.Close()
	}
	s.presenceOnline(client.UserID)
	logger.Infof("[ws] registered user=%s conn=%s online=%d", client.UserID, client.ConnID, s.reg.Len())
}

func (s *Server) teardown(client *Client) {
	client.Close()
	if s.reg.Unregister(client) && s.presenceEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), presenceOpWait)
		defer cancel()
		if err := s.presence.Offline(ctx, client.UserID, s.conf.GatewayID); err != nil {
			logger.Infof("[ws] presence offline failed user=%s err=%v", client.UserID, err)
		}
	}
	logger.Infof("[ws] disconnected user=%s conn=%s online=%d", client.UserID, client.ConnID, s.reg.Len())
}

func (s *Server) presenceOnline(userID string) {
	if !s.presenceEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpWait)
	defer cancel()
	if err := s.presence.Online(ctx, userID, s.conf.GatewayID, s.conf.PresenceTTL); err != nil {
		logger.Infof("[ws] presence online failed user=%s err=%v", userID, err)
	}
}
