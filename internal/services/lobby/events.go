package lobby

import "encoding/json"

// Outbound event discriminators.
const (
	EventConnectionEstablished = "connection_established"
	EventUserJoined            = "user_joined"
	EventUserLeft              = "user_left"
	EventUserList              = "user_list"
	EventLobbyUserList         = "lobby_user_list"
	EventUsernameChanged       = "username_changed"
	EventUsernameError         = "username_error"
	EventChatMessage           = "chat_message"
	EventGameChallenge         = "game_challenge"
	EventChallengeAccepted     = "challenge_accepted"
	EventChallengeDeclined     = "challenge_declined"
	EventGameRoomJoined        = "game_room_joined"
	EventPlayerList            = "player_list"
	EventGameRoomMessage       = "game_room_message"
	EventPlayerReady           = "player_ready"
	EventPlayerUnready         = "player_unready"
	EventGameModeChanged       = "game_mode_changed"
	EventAllPlayersReady       = "all_players_ready"
	EventGameReset             = "game_reset"
	EventGameStarted           = "game_started"
	EventHostLeft              = "host_left"
	EventForceDisconnect       = "force_disconnect"
	EventError                 = "error"
	EventEcho                  = "echo_message"
)

// SystemUsername authors every server generated chat line.
const SystemUsername = "System"

type MessageEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type UserEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type UserListEvent struct {
	Type  string     `json:"type"`
	Users []UserInfo `json:"users"`
}

type UsernameChangedEvent struct {
	Type        string `json:"type"`
	OldUsername string `json:"oldUsername"`
	NewUsername string `json:"newUsername"`
}

type ChatEvent struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	System    bool   `json:"system,omitempty"`
}

type ChallengeEvent struct {
	Type        string `json:"type"`
	ChallengeID string `json:"challengeId,omitempty"`
	Challenger  string `json:"challenger"`
	Opponent    string `json:"opponent"`
	Username    string `json:"username,omitempty"`
	GameID      string `json:"gameId,omitempty"`
}

type RoomJoinedEvent struct {
	Type      string `json:"type"`
	GameID    string `json:"gameId"`
	Username  string `json:"username"`
	IsInviter bool   `json:"isInviter"`
	IsHost    bool   `json:"isHost"`
}

type PlayerListEvent struct {
	Type    string       `json:"type"`
	GameID  string       `json:"gameId"`
	Players []PlayerInfo `json:"players"`
}

type PlayerEvent struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	Username string `json:"username"`
}

type GameEvent struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
}

type GameModeEvent struct {
	Type    string         `json:"type"`
	GameID  string         `json:"gameId"`
	Mode    string         `json:"mode"`
	Options map[string]any `json:"options,omitempty"`
}

type EchoEvent struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}
