package lobby

import "errors"

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrOpponentBusy  = errors.New("opponent is configuring")
	ErrRoomFull      = errors.New("game room full")
	ErrRoomNotFound  = errors.New("game room not found")
	ErrNotAPlayer    = errors.New("not a player in this game")
)

// Client-facing texts. The web client matches on "Game room not found".
const (
	msgInvalidJSON   = "Invalid JSON format"
	msgUsernameTaken = "Username is already taken"
	msgRoomNotFound  = "Game room not found"
	msgNotAPlayer    = "You are not a player in this game"
	msgSuperseded    = "You have been disconnected because you logged in from another window"
)

// errorText renders a core error as the text shown to the requester.
func errorText(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return msgRoomNotFound
	case errors.Is(err, ErrNotAPlayer):
		return msgNotAPlayer
	case errors.Is(err, ErrUsernameTaken):
		return msgUsernameTaken
	default:
		return err.Error()
	}
}
