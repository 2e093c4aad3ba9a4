package lobby

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roomUser connects a game room session for username and joins the room.
func (f *fixture) roomUser(connID, gameID, username string) *Session {
	sess := f.svc.Connect(connID, gameID)
	f.svc.JoinGameRoom(sess, RoomRequest{Username: username, GameID: gameID})
	return sess
}

func TestJoinGameRoom(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	group := GroupFor(gameID)
	f.bus.reset()

	host := f.roomUser("room-alice", gameID, "alice")

	joined, ok := last[RoomJoinedEvent](f.bus.sentTo("room-alice"), EventGameRoomJoined)
	require.True(t, ok)
	assert.True(t, joined.IsHost)
	assert.True(t, joined.IsInviter)
	assert.Equal(t, gameID, host.GameID)
	assert.True(t, f.bus.isMember(group, "room-alice"))

	events := f.bus.publishedTo(group)
	assert.Equal(t, []string{EventPlayerList, EventGameRoomMessage, EventLobbyUserList}, types(events))
	assert.Equal(t, []PlayerInfo{
		{Username: "alice", Status: StatusInvited, IsReady: false},
		{Username: "bob", Status: StatusInvited, IsReady: false},
	}, events[0].(PlayerListEvent).Players)

	f.bus.reset()
	f.roomUser("room-bob", gameID, "bob")
	joined, ok = last[RoomJoinedEvent](f.bus.sentTo("room-bob"), EventGameRoomJoined)
	require.True(t, ok)
	assert.False(t, joined.IsHost)
}

func TestJoinGameRoomErrors(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")

	stranger := f.roomUser("room-eve", gameID, "eve")
	errEv, ok := last[MessageEvent](f.bus.sentTo("room-eve"), EventError)
	require.True(t, ok)
	assert.Equal(t, "You are not a player in this game", errEv.Message)
	assert.Empty(t, stranger.GameID)

	f.roomUser("room-x", "missing", "alice")
	errEv, ok = last[MessageEvent](f.bus.sentTo("room-x"), EventError)
	require.True(t, ok)
	assert.Equal(t, "Game room not found", errEv.Message)
}

func TestPlayerListShowsOfflinePlayers(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	f.svc.LeaveLobby(&Session{ConnID: "conn-bob"}, LeaveLobbyRequest{Username: "bob"})
	f.bus.reset()

	f.roomUser("room-alice", gameID, "alice")
	list, ok := last[PlayerListEvent](f.bus.publishedTo(GroupFor(gameID)), EventPlayerList)
	require.True(t, ok)
	assert.Equal(t, StatusOffline, list.Players[1].Status)
}

func TestHostDisconnectClosesRoom(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	host := f.roomUser("room-alice", gameID, "alice")
	f.roomUser("room-bob", gameID, "bob")
	f.bus.reset()

	f.svc.Disconnect(host)

	hostLeft, ok := last[PlayerEvent](f.bus.publishedTo(GroupFor(gameID)), EventHostLeft)
	require.True(t, ok)
	assert.Equal(t, PlayerEvent{Type: EventHostLeft, GameID: gameID, Username: "alice"}, hostLeft)
	_, err := f.svc.Room(gameID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.False(t, f.bus.isMember(GroupFor(gameID), "room-alice"))

	// Lobby presence is owned by the lobby connection and survives.
	_, present := f.svc.presence.get("alice")
	assert.True(t, present)
	assert.Equal(t, StatusOnline, f.svc.presence.statusOf("bob"))

	f.roomUser("room-bob-2", gameID, "bob")
	errEv, ok := last[MessageEvent](f.bus.sentTo("room-bob-2"), EventError)
	require.True(t, ok)
	assert.Equal(t, "Game room not found", errEv.Message)
}

func TestNonHostDisconnectKeepsRoom(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	guest := f.roomUser("room-bob", gameID, "bob")
	f.bus.reset()

	f.svc.Disconnect(guest)

	assert.Empty(t, f.bus.publishedTo(GroupFor(gameID)))
	_, err := f.svc.Room(gameID)
	assert.NoError(t, err)
}

func TestLeaveGameRoom(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	carol := f.lobbyUser("conn-carol", "carol")
	alice := &Session{ConnID: "conn-alice", RoomName: LobbyRoom, Group: LobbyGroup, Username: "alice"}
	f.svc.Challenge(alice, ChallengeRequest{Challenger: "alice", Opponent: "carol"})
	f.svc.RespondChallenge(carol, ChallengeResponseRequest{Response: ResponseAccepted, Username: "carol", Challenger: "alice"})
	bob := f.roomUser("room-bob", gameID, "bob")
	f.svc.SetReady(bob, RoomRequest{Username: "bob", GameID: gameID}, true)
	f.bus.reset()

	f.svc.LeaveGameRoom(bob, RoomRequest{Username: "bob", GameID: gameID})

	events := f.bus.publishedTo(GroupFor(gameID))
	require.NotEmpty(t, events)
	list := events[0].(PlayerListEvent)
	require.Len(t, list.Players, 2)
	assert.Equal(t, "alice", list.Players[0].Username)
	assert.Equal(t, "carol", list.Players[1].Username)
	assert.Empty(t, bob.GameID)
	assert.Equal(t, StatusOnline, f.svc.presence.statusOf("bob"))
	room, _ := f.svc.rooms.get(gameID)
	_, tracked := room.ready["bob"]
	assert.False(t, tracked)

	// Repeating the leave, or leaving an unknown room, changes nothing.
	f.bus.reset()
	f.svc.LeaveGameRoom(bob, RoomRequest{Username: "bob", GameID: gameID})
	f.svc.LeaveGameRoom(bob, RoomRequest{Username: "bob", GameID: "missing"})
	assert.Empty(t, f.bus.published)
	assert.Empty(t, f.bus.direct)

	// Host departure deletes the room and no successor is promoted.
	f.svc.LeaveGameRoom(alice, RoomRequest{Username: "alice", GameID: gameID})
	_, ok := last[PlayerEvent](f.bus.publishedTo(GroupFor(gameID)), EventHostLeft)
	assert.True(t, ok)
	_, err := f.svc.Room(gameID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, StatusOnline, f.svc.presence.statusOf("carol"))
}

func TestHostLeaveDropsChallengesIntoRoom(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	f.lobbyUser("conn-carol", "carol")
	alice := &Session{ConnID: "conn-alice", RoomName: LobbyRoom, Group: LobbyGroup, Username: "alice"}
	f.svc.Challenge(alice, ChallengeRequest{Challenger: "alice", Opponent: "carol"})
	require.Equal(t, 1, f.svc.challenges.len())

	f.svc.LeaveGameRoom(alice, RoomRequest{Username: "alice", GameID: gameID})
	assert.Zero(t, f.svc.challenges.len())
}

func TestHostInvariantAcrossGuestChurn(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	bob := f.roomUser("room-bob", gameID, "bob")

	for i := 0; i < 3; i++ {
		f.svc.LeaveGameRoom(bob, RoomRequest{Username: "bob", GameID: gameID})
		alice := &Session{ConnID: "conn-alice", RoomName: LobbyRoom, Group: LobbyGroup, Username: "alice"}
		f.svc.Challenge(alice, ChallengeRequest{Challenger: "alice", Opponent: "bob"})
		f.svc.RespondChallenge(&Session{ConnID: "conn-bob"}, ChallengeResponseRequest{Response: ResponseAccepted, Username: "bob", Challenger: "alice"})
		f.roomUser("room-bob", gameID, "bob")

		room, err := f.svc.Room(gameID)
		require.NoError(t, err)
		assert.Equal(t, "alice", room.Host)
	}
}

func TestReadyFlags(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	bob := f.roomUser("room-bob", gameID, "bob")
	group := GroupFor(gameID)
	f.bus.reset()

	f.svc.SetReady(bob, RoomRequest{Username: "bob", GameID: gameID}, true)
	assert.Equal(t, []string{EventPlayerReady, EventGameRoomMessage}, types(f.bus.publishedTo(group)))
	room, _ := f.svc.rooms.get(gameID)
	assert.True(t, room.isReady("bob"))

	f.bus.reset()
	f.svc.SetReady(bob, RoomRequest{Username: "bob", GameID: gameID}, false)
	assert.Equal(t, []string{EventPlayerUnready, EventGameRoomMessage}, types(f.bus.publishedTo(group)))
	assert.False(t, room.isReady("bob"))

	f.bus.reset()
	f.svc.SetReady(bob, RoomRequest{Username: "bob", GameID: "missing"}, true)
	f.svc.SetReady(bob, RoomRequest{Username: "eve", GameID: gameID}, true)
	assert.Empty(t, f.bus.published)

	f.svc.AllReady(bob, GameRequest{GameID: gameID})
	assert.Equal(t, []string{EventAllPlayersReady, EventGameRoomMessage}, types(f.bus.publishedTo(group)))
	assert.Equal(t, RoomActive, room.Status)
}

func TestResetAndStartClearReadyFlags(t *testing.T) {
	for _, op := range []string{MsgResetGame, MsgStartGame} {
		t.Run(op, func(t *testing.T) {
			f := newFixture()
			gameID := f.openRoom("alice", "bob")
			alice := f.roomUser("room-alice", gameID, "alice")
			bob := f.roomUser("room-bob", gameID, "bob")
			f.svc.SetReady(alice, RoomRequest{Username: "alice", GameID: gameID}, true)
			f.svc.SetReady(bob, RoomRequest{Username: "bob", GameID: gameID}, true)
			f.bus.reset()

			if op == MsgResetGame {
				f.svc.ResetGame(alice, GameRequest{GameID: gameID})
				assert.Equal(t, []string{EventGameReset, EventPlayerList, EventGameRoomMessage}, types(f.bus.publishedTo(GroupFor(gameID))))
			} else {
				f.svc.StartGame(alice, GameRequest{GameID: gameID})
				assert.Equal(t, []string{EventGameStarted, EventGameRoomMessage, EventPlayerList}, types(f.bus.publishedTo(GroupFor(gameID))))
			}

			room, _ := f.svc.rooms.get(gameID)
			assert.Equal(t, RoomActive, room.Status)
			for _, p := range room.Players {
				assert.False(t, room.isReady(p), p)
			}
			list, _ := last[PlayerListEvent](f.bus.publishedTo(GroupFor(gameID)), EventPlayerList)
			for _, p := range list.Players {
				assert.False(t, p.IsReady)
			}
		})
	}
}

func TestStartGameRecordsRound(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	f.svc.ChangeGameMode(nil, GameModeRequest{GameID: gameID, Mode: "custom"})
	f.svc.StartGame(nil, GameRequest{GameID: gameID})

	require.Len(t, f.rec.rounds, 1)
	assert.Equal(t, Round{GameID: gameID, Players: []string{"alice", "bob"}, Mode: "custom", StartedAt: testNow}, f.rec.rounds[0])

	f.svc.StartGame(nil, GameRequest{GameID: "missing"})
	assert.Len(t, f.rec.rounds, 1)
}

func TestChangeGameModeEchoesOptions(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	f.bus.reset()

	opts := map[string]any{"reveal": true}
	f.svc.ChangeGameMode(nil, GameModeRequest{GameID: gameID, Mode: "custom", Options: opts})

	ev, ok := last[GameModeEvent](f.bus.publishedTo(GroupFor(gameID)), EventGameModeChanged)
	require.True(t, ok)
	assert.Equal(t, "custom", ev.Mode)
	assert.Equal(t, opts, ev.Options)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"game_mode_changed","gameId":"`+gameID+`","mode":"custom","options":{"reveal":true}}`, string(raw))

	room, _ := f.svc.Room(gameID)
	assert.Equal(t, "custom", room.Mode)

	f.bus.reset()
	f.svc.ChangeGameMode(nil, GameModeRequest{GameID: "missing", Mode: "custom"})
	assert.Empty(t, f.bus.published)
}

func TestSweepRemovesIdleRooms(t *testing.T) {
	f := newFixture()
	stale := f.openRoom("alice", "bob")
	f.now = testNow.Add(50 * time.Minute)
	fresh := f.openRoom("carol", "dave")

	_, rooms := f.svc.Sweep(testNow.Add(70 * time.Minute))
	assert.Equal(t, 1, rooms)
	_, err := f.svc.Room(stale)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = f.svc.Room(fresh)
	assert.NoError(t, err)
}

func TestUserListReachesGameRooms(t *testing.T) {
	f := newFixture()
	gameID := f.openRoom("alice", "bob")
	f.bus.reset()

	f.lobbyUser("conn-carol", "carol")

	list, ok := last[UserListEvent](f.bus.publishedTo(GroupFor(gameID)), EventLobbyUserList)
	require.True(t, ok)
	assert.Len(t, list.Users, 3)
}
