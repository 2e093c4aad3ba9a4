package lobby

import (
	"sync"
	"time"

	"gamelobby/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	LobbyRoom = "lobby"

	// CloseSuperseded is the websocket close code for a session replaced by a rejoin.
	CloseSuperseded = 4000

	DefaultMaxPlayers = 8
)

// LobbyGroup is the broadcast group of every lobby connection.
var LobbyGroup = GroupFor(LobbyRoom)

// GroupFor derives the broadcast group of a URL room name or game id.
func GroupFor(room string) string { return "game_" + room }

// Bus delivers events to named groups or single connections. Implementations
// must not block and must keep per-group publish order.
type Bus interface {
	Join(group, connID string)
	Leave(group, connID string)
	Publish(group string, event any)
	SendTo(connID string, event any)
	Close(connID string, code int, reason string)
}

// Round is one start_game pulse handed to the Recorder.
type Round struct {
	GameID    string
	Players   []string
	Mode      string
	StartedAt time.Time
}

type Recorder interface {
	Record(Round)
}

type nopRecorder struct{}

func (nopRecorder) Record(Round) {}

// Session is the per-connection state. Its fields are written by Service
// while holding the service lock.
type Session struct {
	ConnID   string
	RoomName string
	Group    string
	Username string
	GameID   string
}

type Options struct {
	MaxPlayers   int
	ChallengeTTL time.Duration
	RoomIdleTTL  time.Duration
	Recorder     Recorder
	Now          func() time.Time
	NewID        func() string
}

// Service owns presence, challenges, game rooms and ready maps. Every
// operation runs as one critical section under mu, including the bus calls it
// issues, so per-group event order matches mutation order.
type Service struct {
	mu         sync.Mutex
	bus        Bus
	presence   *presenceRegistry
	challenges *challengeRegistry
	rooms      *roomRegistry
	opts       Options
}

func NewService(bus Bus, opts Options) *Service {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		bus:        bus,
		presence:   newPresenceRegistry(),
		challenges: newChallengeRegistry(),
		rooms:      newRoomRegistry(opts.MaxPlayers),
		opts:       opts,
	}
}

func (s *Service) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	metrics.PresentUsers.Set(float64(s.presence.len()))
	metrics.GameRooms.Set(float64(s.rooms.len()))
	metrics.PendingChallenges.Set(float64(s.challenges.len()))
}

// Connect joins the connection to the group of roomName and confirms it.
func (s *Service) Connect(connID, roomName string) *Session {
	if roomName == "" {
		roomName = LobbyRoom
	}
	sess := &Session{ConnID: connID, RoomName: roomName, Group: GroupFor(roomName)}
	s.locked(func() {
		s.bus.Join(sess.Group, connID)
		s.bus.SendTo(connID, MessageEvent{Type: EventConnectionEstablished, Message: "Connected to game server"})
	})
	return sess
}

// Disconnect runs the cleanup cascade then releases the group membership.
func (s *Service) Disconnect(sess *Session) {
	s.locked(func() {
		if sess.GameID != "" {
			if room, ok := s.rooms.get(sess.GameID); ok && room.isHost(sess.Username) {
				s.teardownRoom(room, sess.Username)
			}
		}
		if sess.Username != "" {
			if e, ok := s.presence.get(sess.Username); ok && e.ConnID == sess.ConnID {
				s.leaveLobby(sess.Username)
			}
		}
		s.bus.Leave(sess.Group, sess.ConnID)
	})
	zap.L().Debug("lobby.disconnect",
		zap.String("conn", sess.ConnID),
		zap.String("room", sess.RoomName),
		zap.String("username", sess.Username))
}

// Sweep evicts challenges older than the challenge TTL and rooms idle longer
// than the room TTL.
func (s *Service) Sweep(now time.Time) (challenges, rooms int) {
	s.locked(func() {
		if s.opts.ChallengeTTL > 0 {
			challenges = s.challenges.expire(now.Add(-s.opts.ChallengeTTL))
		}
		if s.opts.RoomIdleTTL > 0 {
			for _, room := range s.rooms.idle(now.Add(-s.opts.RoomIdleTTL)) {
				s.rooms.remove(room.ID)
				challenges += s.challenges.dropTargeting(room.ID)
				rooms++
			}
		}
	})
	if challenges > 0 || rooms > 0 {
		zap.L().Info("lobby.sweep", zap.Int("challenges", challenges), zap.Int("rooms", rooms))
	}
	return challenges, rooms
}

// Users returns the presence snapshot.
func (s *Service) Users() []UserInfo {
	var out []UserInfo
	s.locked(func() { out = s.presence.snapshot() })
	return out
}

type RoomSummary struct {
	ID        string         `json:"id"`
	Host      string         `json:"host"`
	Players   []PlayerInfo   `json:"players"`
	Status    RoomStatus     `json:"status"`
	Mode      string         `json:"mode,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (s *Service) Rooms() []RoomSummary {
	var out []RoomSummary
	s.locked(func() {
		rooms := s.rooms.list()
		out = make([]RoomSummary, 0, len(rooms))
		for _, room := range rooms {
			out = append(out, s.summary(room))
		}
	})
	return out
}

func (s *Service) Room(id string) (RoomSummary, error) {
	var (
		out RoomSummary
		err error
	)
	s.locked(func() {
		room, ok := s.rooms.get(id)
		if !ok {
			err = ErrRoomNotFound
			return
		}
		out = s.summary(room)
	})
	return out, err
}

func (s *Service) summary(room *GameRoom) RoomSummary {
	return RoomSummary{
		ID:        room.ID,
		Host:      room.host(),
		Players:   s.playerInfos(room),
		Status:    room.Status,
		Mode:      room.Mode,
		Options:   room.Options,
		CreatedAt: room.CreatedAt,
	}
}

// ─────────────────────────────── helpers ─────────────────────────────────────
// All helpers below expect s.mu to be held.

func (s *Service) timestamp() string { return s.opts.Now().Format("15:04:05") }

func (s *Service) sendError(connID, eventType string, err error) {
	s.bus.SendTo(connID, MessageEvent{Type: eventType, Message: errorText(err)})
}

func (s *Service) systemLine(group, content string) {
	s.bus.Publish(group, ChatEvent{
		Type:      EventGameRoomMessage,
		Username:  SystemUsername,
		Content:   content,
		Timestamp: s.timestamp(),
		System:    true,
	})
}

func (s *Service) systemLineTo(connID, content string) {
	s.bus.SendTo(connID, ChatEvent{
		Type:      EventGameRoomMessage,
		Username:  SystemUsername,
		Content:   content,
		Timestamp: s.timestamp(),
		System:    true,
	})
}

// broadcastUserList sends user_list to the lobby and lobby_user_list to every
// open game room.
func (s *Service) broadcastUserList() {
	users := s.presence.snapshot()
	s.bus.Publish(LobbyGroup, UserListEvent{Type: EventUserList, Users: users})
	for _, room := range s.rooms.list() {
		s.bus.Publish(GroupFor(room.ID), UserListEvent{Type: EventLobbyUserList, Users: users})
	}
}

func (s *Service) playerInfos(room *GameRoom) []PlayerInfo {
	out := make([]PlayerInfo, 0, len(room.Players))
	for _, p := range room.Players {
		out = append(out, PlayerInfo{
			Username: p,
			Status:   s.presence.statusOf(p),
			IsReady:  room.isReady(p),
		})
	}
	return out
}

func (s *Service) broadcastPlayerList(room *GameRoom) {
	s.bus.Publish(GroupFor(room.ID), PlayerListEvent{
		Type:    EventPlayerList,
		GameID:  room.ID,
		Players: s.playerInfos(room),
	})
}

func (s *Service) leaveLobby(username string) {
	if !s.presence.remove(username) {
		return
	}
	s.bus.Publish(LobbyGroup, UserEvent{Type: EventUserLeft, Username: username})
	s.broadcastUserList()
}

// releaseInvited moves invited users back to online and reports whether
// anything changed.
func (s *Service) releaseInvited(usernames ...string) bool {
	changed := false
	for _, u := range usernames {
		if s.presence.statusOf(u) == StatusInvited {
			s.presence.setStatus(u, StatusOnline)
			changed = true
		}
	}
	return changed
}

// teardownRoom deletes a room after its host left.
func (s *Service) teardownRoom(room *GameRoom, host string) {
	s.rooms.remove(room.ID)
	dropped := s.challenges.dropTargeting(room.ID)
	s.bus.Publish(GroupFor(room.ID), PlayerEvent{Type: EventHostLeft, GameID: room.ID, Username: host})
	if s.releaseInvited(room.Players...) {
		s.broadcastUserList()
	}
	zap.L().Info("lobby.room_closed",
		zap.String("game", room.ID),
		zap.String("host", host),
		zap.Int("dropped_challenges", dropped))
}
