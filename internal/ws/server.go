package ws

import (
	"errors"
	"net/http"
	"time"

	"gamelobby/internal/metrics"
	"gamelobby/internal/services/lobby"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Options struct {
	SendBuffer int
	ReadLimit  int64
}

type WsServer struct {
	svc      *lobby.Service
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
	opts     Options
}

func NewWsServer(svc *lobby.Service, hub *Hub, opts Options) *WsServer {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 64 << 10
	}
	srv := &WsServer{
		svc:    svc,
		hub:    hub,
		router: NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		opts: opts,
	}
	srv.registerHandlers() // ← every inbound message type configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

// Handle upgrades GET /ws/game/:room/. The room name is fixed for the life of
// the connection.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	roomName := ginCtx.Param("room")
	if roomName == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "room is required"})
		return
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.ReadLimit)

	// ─────────────────── Client joined ────────────────────────
	conn := newClientConn(uuid.NewString(), rawConn, s.opts.SendBuffer)
	s.hub.register(conn)
	metrics.Connections.Inc()
	sess := s.svc.Connect(conn.id, roomName)
	zap.L().Debug("ws.connect", zap.String("conn", conn.id), zap.String("room", roomName))

	go conn.writePump()
	go s.reader(sess, conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	svc := s.svc
	Register(s.router, lobby.MsgJoinLobby, svc.JoinLobby)
	Register(s.router, lobby.MsgLeaveLobby, svc.LeaveLobby)
	Register(s.router, lobby.MsgChangeUsername, svc.ChangeUsername)
	Register(s.router, lobby.MsgSetStatus, svc.SetStatus)
	Register(s.router, lobby.MsgRequestUserList, func(sess *lobby.Session, _ struct{}) {
		svc.RequestUserList(sess)
	})

	Register(s.router, lobby.MsgChatMessage, svc.Chat)
	Register(s.router, lobby.MsgGameRoomMessage, svc.GameRoomChat)
	Register(s.router, lobby.MsgLobbyMessage, svc.LobbyChat)

	Register(s.router, lobby.MsgGameChallenge, svc.Challenge)
	Register(s.router, lobby.MsgChallengeResponse, svc.RespondChallenge)

	Register(s.router, lobby.MsgJoinGameRoom, svc.JoinGameRoom)
	Register(s.router, lobby.MsgLeaveGameRoom, svc.LeaveGameRoom)
	Register(s.router, lobby.MsgPlayerReady, func(sess *lobby.Session, req lobby.RoomRequest) {
		svc.SetReady(sess, req, true)
	})
	Register(s.router, lobby.MsgPlayerUnready, func(sess *lobby.Session, req lobby.RoomRequest) {
		svc.SetReady(sess, req, false)
	})
	Register(s.router, lobby.MsgAllPlayersReady, svc.AllReady)
	Register(s.router, lobby.MsgChangeGameMode, svc.ChangeGameMode)
	Register(s.router, lobby.MsgResetGame, svc.ResetGame)
	Register(s.router, lobby.MsgStartGame, svc.StartGame)
}

func (s *WsServer) reader(sess *lobby.Session, conn *clientConn) {
	defer func() {
		s.svc.Disconnect(sess)
		s.hub.unregister(conn)
		conn.kill()
		metrics.Connections.Dec()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, raw, err := conn.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, lobby.CloseSuperseded) {
				zap.L().Debug("ws.read", zap.String("conn", conn.id), zap.Error(err))
			}
			return // client closed or errored
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.handle(sess, raw)
	}
}

// handle routes one frame and turns routing failures into client events.
func (s *WsServer) handle(sess *lobby.Session, raw []byte) {
	msgType, err := s.router.dispatch(sess, raw)
	switch {
	case errors.Is(err, errUnknownType):
		metrics.InboundMessages.WithLabelValues("unknown").Inc()
	case msgType != "":
		metrics.InboundMessages.WithLabelValues(msgType).Inc()
	}

	var invalid *invalidError
	switch {
	case err == nil:
	case errors.Is(err, errUnknownType):
		s.svc.Echo(sess, raw)
	case errors.As(err, &invalid):
		s.svc.Reject(sess, "Invalid "+invalid.msgType+" message")
	default:
		zap.L().Debug("ws.malformed", zap.String("conn", sess.ConnID), zap.Error(err))
		s.svc.Reject(sess, "")
	}
}
