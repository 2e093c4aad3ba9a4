package lobby

// Inbound message types.
const (
	MsgJoinLobby         = "join_lobby"
	MsgLeaveLobby        = "leave_lobby"
	MsgChatMessage       = "chat_message"
	MsgChangeUsername    = "change_username"
	MsgSetStatus         = "set_status"
	MsgGameChallenge     = "game_challenge"
	MsgChallengeResponse = "challenge_response"
	MsgJoinGameRoom      = "join_game_room"
	MsgLeaveGameRoom     = "leave_game_room"
	MsgGameRoomMessage   = "game_room_message"
	MsgLobbyMessage      = "lobby_message"
	MsgPlayerReady       = "player_ready"
	MsgPlayerUnready     = "player_unready"
	MsgChangeGameMode    = "change_game_mode"
	MsgAllPlayersReady   = "all_players_ready"
	MsgResetGame         = "reset_game"
	MsgStartGame         = "start_game"
	MsgRequestUserList   = "request_user_list"
)

type JoinLobbyRequest struct {
	Username  string `json:"username"  validate:"required"`
	Rejoining bool   `json:"rejoining"`
}

type LeaveLobbyRequest struct {
	Username string `json:"username" validate:"required"`
}

// ChatRequest is shared by chat_message, game_room_message and lobby_message.
type ChatRequest struct {
	Username  string `json:"username" validate:"required"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type ChangeUsernameRequest struct {
	OldUsername string `json:"oldUsername" validate:"required"`
	NewUsername string `json:"newUsername" validate:"required"`
}

type SetStatusRequest struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
}

type ChallengeRequest struct {
	Challenger string `json:"challenger" validate:"required"`
	Opponent   string `json:"opponent"   validate:"required"`
}

type ChallengeResponseRequest struct {
	Response   string `json:"response"   validate:"required,oneof=accept decline"`
	Username   string `json:"username"   validate:"required"`
	Challenger string `json:"challenger" validate:"required"`
}

// RoomRequest is shared by join/leave_game_room and player_ready/unready.
type RoomRequest struct {
	Username string `json:"username" validate:"required"`
	GameID   string `json:"gameId"   validate:"required"`
}

type GameModeRequest struct {
	GameID  string         `json:"gameId" validate:"required"`
	Mode    string         `json:"mode"`
	Options map[string]any `json:"options"`
}

// GameRequest is shared by all_players_ready, reset_game and start_game.
type GameRequest struct {
	GameID string `json:"gameId" validate:"required"`
}

const (
	ResponseAccepted = "accept"
	ResponseDeclined = "decline"
)
