package lobby

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ───────────────────────────── presence ──────────────────────────────────────

func (s *Service) JoinLobby(sess *Session, req JoinLobbyRequest) {
	s.locked(func() {
		superseded, err := s.presence.claim(req.Username, sess.ConnID, req.Rejoining)
		if err != nil {
			s.sendError(sess.ConnID, EventUsernameError, err)
			return
		}

		if prev := sess.Username; prev != "" && prev != req.Username {
			if e, ok := s.presence.get(prev); ok && e.ConnID == sess.ConnID {
				s.presence.remove(prev)
				s.bus.Publish(LobbyGroup, UserEvent{Type: EventUserLeft, Username: prev})
			}
		}

		if superseded != "" {
			s.bus.SendTo(superseded, MessageEvent{Type: EventForceDisconnect, Message: msgSuperseded})
			s.bus.Close(superseded, CloseSuperseded, "superseded")
			zap.L().Info("lobby.superseded", zap.String("username", req.Username), zap.String("conn", superseded))
		}

		s.presence.put(req.Username, sess.ConnID)
		sess.Username = req.Username
		s.bus.Publish(LobbyGroup, UserEvent{Type: EventUserJoined, Username: req.Username})
		s.broadcastUserList()
	})
}

// LeaveLobby is a no-op for absent users.
func (s *Service) LeaveLobby(sess *Session, req LeaveLobbyRequest) {
	s.locked(func() {
		s.leaveLobby(req.Username)
		if sess.Username == req.Username {
			sess.Username = ""
		}
	})
}

// SetStatus ignores unknown users and statuses other than online/configuring.
func (s *Service) SetStatus(_ *Session, req SetStatusRequest) {
	if req.Status != StatusOnline && req.Status != StatusConfiguring {
		return
	}
	s.locked(func() {
		if s.presence.setStatus(req.Username, req.Status) {
			s.broadcastUserList()
		}
	})
}

func (s *Service) ChangeUsername(sess *Session, req ChangeUsernameRequest) {
	s.locked(func() {
		if err := s.presence.rename(req.OldUsername, req.NewUsername, sess.ConnID); err != nil {
			s.sendError(sess.ConnID, EventUsernameError, err)
			return
		}
		s.rooms.renamePlayer(req.OldUsername, req.NewUsername)
		s.challenges.rename(req.OldUsername, req.NewUsername)
		if sess.Username == req.OldUsername || sess.Username == "" {
			sess.Username = req.NewUsername
		}
		s.bus.Publish(LobbyGroup, UsernameChangedEvent{
			Type:        EventUsernameChanged,
			OldUsername: req.OldUsername,
			NewUsername: req.NewUsername,
		})
		s.broadcastUserList()
	})
}

func (s *Service) RequestUserList(_ *Session) {
	s.locked(s.broadcastUserList)
}

// ─────────────────────────────── chat ────────────────────────────────────────

func (s *Service) Chat(sess *Session, req ChatRequest) {
	s.locked(func() {
		s.bus.Publish(sess.Group, ChatEvent{Type: EventChatMessage, Username: req.Username, Content: req.Content, Timestamp: req.Timestamp})
	})
}

func (s *Service) GameRoomChat(sess *Session, req ChatRequest) {
	s.locked(func() {
		s.bus.Publish(sess.Group, ChatEvent{Type: EventGameRoomMessage, Username: req.Username, Content: req.Content, Timestamp: req.Timestamp})
	})
}

// LobbyChat always targets the lobby, whatever room the sender is in.
func (s *Service) LobbyChat(_ *Session, req ChatRequest) {
	s.locked(func() {
		s.bus.Publish(LobbyGroup, ChatEvent{Type: EventChatMessage, Username: req.Username, Content: req.Content, Timestamp: req.Timestamp})
	})
}

// Echo rebroadcasts a message of unknown type to the sender's group.
func (s *Service) Echo(sess *Session, raw json.RawMessage) {
	s.locked(func() {
		s.bus.Publish(sess.Group, EchoEvent{Type: EventEcho, Message: raw})
	})
}

// Reject reports an undecodable or invalid message to its sender only.
func (s *Service) Reject(sess *Session, reason string) {
	if reason == "" {
		reason = msgInvalidJSON
	}
	s.locked(func() {
		s.bus.SendTo(sess.ConnID, MessageEvent{Type: EventError, Message: reason})
	})
}

// ───────────────────────────── challenges ────────────────────────────────────

func (s *Service) Challenge(sess *Session, req ChallengeRequest) {
	s.locked(func() {
		if err := s.createChallenge(req.Challenger, req.Opponent, sess.ConnID); err != nil {
			zap.L().Debug("lobby.challenge_rejected",
				zap.String("challenger", req.Challenger),
				zap.String("opponent", req.Opponent),
				zap.Error(err))
		}
	})
}

// createChallenge reports refusals to the challenger's connection only; the
// opponent and lobby bystanders never see them.
func (s *Service) createChallenge(challenger, opponent, replyConn string) error {
	if s.presence.statusOf(opponent) == StatusConfiguring {
		s.systemLineTo(replyConn, fmt.Sprintf("%s is configuring a game and cannot accept challenges right now.", opponent))
		return ErrOpponentBusy
	}

	ch := &Challenge{
		ID:         s.opts.NewID(),
		Challenger: challenger,
		Opponent:   opponent,
		CreatedAt:  s.opts.Now(),
	}
	if room, ok := s.rooms.findByPlayer(challenger); ok {
		if s.rooms.full(room) {
			s.systemLineTo(replyConn, fmt.Sprintf("Game room is full (max %d players).", s.rooms.maxPlayers))
			return ErrRoomFull
		}
		ch.TargetGameID = room.ID
	}
	s.challenges.add(ch)

	if e, ok := s.presence.get(opponent); ok {
		s.bus.SendTo(e.ConnID, ChallengeEvent{
			Type:        EventGameChallenge,
			ChallengeID: ch.ID,
			Challenger:  challenger,
			Opponent:    opponent,
			GameID:      ch.TargetGameID,
		})
	}
	return nil
}

// RespondChallenge handles challenge_response. The sender is the opponent.
func (s *Service) RespondChallenge(sess *Session, req ChallengeResponseRequest) {
	s.locked(func() {
		opponent := req.Username
		ch, _ := s.challenges.take(req.Challenger, opponent)

		challenger, ok := s.presence.get(req.Challenger)
		if !ok {
			zap.L().Debug("lobby.challenge_response_dropped",
				zap.String("challenger", req.Challenger),
				zap.String("opponent", opponent))
			return
		}

		if req.Response == ResponseDeclined {
			s.presence.setStatus(req.Challenger, StatusOnline)
			s.presence.setStatus(opponent, StatusOnline)
			s.broadcastUserList()
			s.bus.SendTo(challenger.ConnID, ChallengeEvent{
				Type:       EventChallengeDeclined,
				Challenger: req.Challenger,
				Opponent:   opponent,
				Username:   opponent,
			})
			return
		}

		room, err := s.acceptInto(ch, req.Challenger, opponent)
		if err != nil {
			if errors.Is(err, ErrRoomFull) {
				s.systemLineTo(challenger.ConnID, fmt.Sprintf("Game room is full (max %d players).", s.rooms.maxPlayers))
			}
			return
		}

		s.presence.setStatus(req.Challenger, StatusInvited)
		s.presence.setStatus(opponent, StatusInvited)
		s.broadcastUserList()

		ev := ChallengeEvent{
			Type:       EventChallengeAccepted,
			Challenger: req.Challenger,
			Opponent:   opponent,
			Username:   opponent,
			GameID:     room.ID,
		}
		s.bus.SendTo(challenger.ConnID, ev)
		opponentConn := sess.ConnID
		if e, ok := s.presence.get(opponent); ok {
			opponentConn = e.ConnID
		}
		if opponentConn != challenger.ConnID {
			s.bus.SendTo(opponentConn, ev)
		}
		zap.L().Info("lobby.challenge_accepted",
			zap.String("challenger", req.Challenger),
			zap.String("opponent", opponent),
			zap.String("game", room.ID))
	})
}

// acceptInto seats the opponent in the challenge's target room, or opens a
// fresh room when there is no target (or it has since closed).
func (s *Service) acceptInto(ch *Challenge, challenger, opponent string) (*GameRoom, error) {
	now := s.opts.Now()
	if ch != nil && ch.TargetGameID != "" {
		if room, ok := s.rooms.get(ch.TargetGameID); ok {
			if err := s.rooms.addPlayer(room, opponent); err != nil {
				return nil, err
			}
			room.touch(now)
			return room, nil
		}
	}
	return s.rooms.create(s.opts.NewID(), []string{challenger, opponent}, now), nil
}

// ───────────────────────────── game rooms ────────────────────────────────────

func (s *Service) JoinGameRoom(sess *Session, req RoomRequest) {
	s.locked(func() {
		room, err := s.rooms.enter(req.GameID, req.Username)
		if err != nil {
			s.sendError(sess.ConnID, EventError, err)
			return
		}
		room.touch(s.opts.Now())
		sess.GameID = room.ID
		if sess.Username == "" {
			sess.Username = req.Username
		}

		group := GroupFor(room.ID)
		s.bus.SendTo(sess.ConnID, RoomJoinedEvent{
			Type:      EventGameRoomJoined,
			GameID:    room.ID,
			Username:  req.Username,
			IsInviter: room.isHost(req.Username),
			IsHost:    room.isHost(req.Username),
		})
		s.broadcastPlayerList(room)
		s.systemLine(group, fmt.Sprintf("%s joined the game room.", req.Username))
		s.bus.Publish(group, UserListEvent{Type: EventLobbyUserList, Users: s.presence.snapshot()})
	})
}

func (s *Service) LeaveGameRoom(sess *Session, req RoomRequest) {
	s.locked(func() {
		if sess.GameID == req.GameID && sess.Username == req.Username {
			sess.GameID = ""
		}
		room, ok := s.rooms.get(req.GameID)
		if !ok {
			return
		}
		if room.isHost(req.Username) {
			s.teardownRoom(room, req.Username)
			return
		}
		if !room.removePlayer(req.Username) {
			return
		}
		room.touch(s.opts.Now())
		s.broadcastPlayerList(room)
		s.systemLine(GroupFor(room.ID), fmt.Sprintf("%s left the game room.", req.Username))
		if s.releaseInvited(req.Username) {
			s.broadcastUserList()
		}
	})
}

func (s *Service) SetReady(_ *Session, req RoomRequest, ready bool) {
	s.locked(func() {
		room, ok := s.rooms.get(req.GameID)
		if !ok || !room.hasPlayer(req.Username) {
			return
		}
		room.setReady(req.Username, ready)
		room.touch(s.opts.Now())

		evType, line := EventPlayerReady, "%s is ready."
		if !ready {
			evType, line = EventPlayerUnready, "%s is not ready."
		}
		group := GroupFor(room.ID)
		s.bus.Publish(group, PlayerEvent{Type: evType, GameID: room.ID, Username: req.Username})
		s.systemLine(group, fmt.Sprintf(line, req.Username))
	})
}

// AllReady is informational; it never starts the round.
func (s *Service) AllReady(_ *Session, req GameRequest) {
	s.locked(func() {
		room, ok := s.rooms.get(req.GameID)
		if !ok {
			return
		}
		group := GroupFor(room.ID)
		s.bus.Publish(group, GameEvent{Type: EventAllPlayersReady, GameID: room.ID})
		s.systemLine(group, "All players are ready! The host can start the game.")
	})
}

func (s *Service) ChangeGameMode(_ *Session, req GameModeRequest) {
	s.locked(func() {
		room, ok := s.rooms.get(req.GameID)
		if !ok {
			return
		}
		room.Mode = req.Mode
		room.Options = req.Options
		room.touch(s.opts.Now())

		group := GroupFor(room.ID)
		s.bus.Publish(group, GameModeEvent{Type: EventGameModeChanged, GameID: room.ID, Mode: req.Mode, Options: req.Options})
		s.systemLine(group, fmt.Sprintf("Game mode changed to %s.", req.Mode))
	})
}

func (s *Service) ResetGame(_ *Session, req GameRequest) {
	s.locked(func() {
		room, ok := s.rooms.get(req.GameID)
		if !ok {
			return
		}
		room.Status = RoomActive
		room.clearReady()
		room.touch(s.opts.Now())

		group := GroupFor(room.ID)
		s.bus.Publish(group, GameEvent{Type: EventGameReset, GameID: room.ID})
		s.broadcastPlayerList(room)
		s.systemLine(group, "Game has been reset. All players need to ready up again.")
	})
}

// StartGame announces the round and immediately returns the room to an
// unready active state; started is never persisted.
func (s *Service) StartGame(_ *Session, req GameRequest) {
	s.locked(func() {
		room, ok := s.rooms.get(req.GameID)
		if !ok {
			return
		}
		now := s.opts.Now()
		room.Status = RoomStarted
		room.touch(now)

		group := GroupFor(room.ID)
		s.bus.Publish(group, GameEvent{Type: EventGameStarted, GameID: room.ID})
		s.systemLine(group, "Game started! Get ready to play!")
		s.opts.Recorder.Record(Round{
			GameID:    room.ID,
			Players:   append([]string(nil), room.Players...),
			Mode:      room.Mode,
			StartedAt: now,
		})

		room.clearReady()
		room.Status = RoomActive
		s.broadcastPlayerList(room)
	})
}
