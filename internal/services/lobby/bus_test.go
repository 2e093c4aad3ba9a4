package lobby

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

type delivery struct {
	target string
	event  any
}

type closeCall struct {
	conn   string
	code   int
	reason string
}

// recordingBus captures everything the service emits.
type recordingBus struct {
	mu        sync.Mutex
	members   map[string]map[string]bool
	published []delivery
	direct    []delivery
	closed    []closeCall
}

func newRecordingBus() *recordingBus {
	return &recordingBus{members: make(map[string]map[string]bool)}
}

func (b *recordingBus) Join(group, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.members[group] == nil {
		b.members[group] = make(map[string]bool)
	}
	b.members[group][connID] = true
}

func (b *recordingBus) Leave(group, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.members[group], connID)
}

func (b *recordingBus) Publish(group string, event any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, delivery{target: group, event: event})
}

func (b *recordingBus) SendTo(connID string, event any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct = append(b.direct, delivery{target: connID, event: event})
}

func (b *recordingBus) Close(connID string, code int, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, closeCall{conn: connID, code: code, reason: reason})
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
	b.direct = nil
	b.closed = nil
}

func (b *recordingBus) publishedTo(group string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, d := range b.published {
		if d.target == group {
			out = append(out, d.event)
		}
	}
	return out
}

func (b *recordingBus) sentTo(conn string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, d := range b.direct {
		if d.target == conn {
			out = append(out, d.event)
		}
	}
	return out
}

func (b *recordingBus) isMember(group, conn string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.members[group][conn]
}

// types lists the "type" discriminator of each event.
func types(events []any) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, reflect.ValueOf(ev).FieldByName("Type").String())
	}
	return out
}

// last returns the last event of the given type.
func last[T any](events []any, eventType string) (T, bool) {
	var zero T
	for i := len(events) - 1; i >= 0; i-- {
		ev, ok := events[i].(T)
		if !ok {
			continue
		}
		if reflect.ValueOf(ev).FieldByName("Type").String() == eventType {
			return ev, true
		}
	}
	return zero, false
}

var testNow = time.Date(2025, 7, 27, 16, 5, 5, 0, time.UTC)

type fakeRecorder struct {
	rounds []Round
}

func (f *fakeRecorder) Record(r Round) { f.rounds = append(f.rounds, r) }

type fixture struct {
	svc *Service
	bus *recordingBus
	rec *fakeRecorder
	now time.Time
	ids int
}

func newFixture() *fixture {
	f := &fixture{bus: newRecordingBus(), rec: &fakeRecorder{}, now: testNow}
	f.svc = NewService(f.bus, Options{
		MaxPlayers:   DefaultMaxPlayers,
		ChallengeTTL: 2 * time.Minute,
		RoomIdleTTL:  time.Hour,
		Recorder:     f.rec,
		Now:          func() time.Time { return f.now },
		NewID: func() string {
			f.ids++
			return fmt.Sprintf("id-%d", f.ids)
		},
	})
	return f
}

// lobbyUser connects a lobby session and joins as username.
func (f *fixture) lobbyUser(connID, username string) *Session {
	sess := f.svc.Connect(connID, LobbyRoom)
	f.svc.JoinLobby(sess, JoinLobbyRequest{Username: username})
	return sess
}

// openRoom makes challenger and opponent present and accepts a challenge
// between them, returning the new game id.
func (f *fixture) openRoom(challenger, opponent string) string {
	a := f.lobbyUser("conn-"+challenger, challenger)
	b := f.lobbyUser("conn-"+opponent, opponent)
	f.svc.Challenge(a, ChallengeRequest{Challenger: challenger, Opponent: opponent})
	f.svc.RespondChallenge(b, ChallengeResponseRequest{Response: ResponseAccepted, Username: opponent, Challenger: challenger})
	ev, ok := last[ChallengeEvent](f.bus.sentTo("conn-"+challenger), EventChallengeAccepted)
	if !ok {
		panic("challenge was not accepted")
	}
	return ev.GameID
}
