package lobby

import (
	"sort"
	"time"
)

type RoomStatus string

const (
	RoomActive  RoomStatus = "active"
	RoomStarted RoomStatus = "started"
)

type GameRoom struct {
	ID           string
	Players      []string // Players[0] is the host
	Status       RoomStatus
	Mode         string
	Options      map[string]any
	CreatedAt    time.Time
	LastActivity time.Time

	ready map[string]bool
}

type PlayerInfo struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
	IsReady  bool   `json:"isReady"`
}

func (g *GameRoom) host() string {
	if len(g.Players) == 0 {
		return ""
	}
	return g.Players[0]
}

func (g *GameRoom) isHost(username string) bool {
	return username != "" && g.host() == username
}

func (g *GameRoom) hasPlayer(username string) bool {
	for _, p := range g.Players {
		if p == username {
			return true
		}
	}
	return false
}

// removePlayer drops a non-host seat and its ready flag.
func (g *GameRoom) removePlayer(username string) bool {
	for i, p := range g.Players {
		if p == username && i > 0 {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			delete(g.ready, username)
			return true
		}
	}
	return false
}

func (g *GameRoom) isReady(username string) bool { return g.ready[username] }

func (g *GameRoom) setReady(username string, ready bool) { g.ready[username] = ready }

// clearReady sets every player's flag to false.
func (g *GameRoom) clearReady() {
	for _, p := range g.Players {
		g.ready[p] = false
	}
}

func (g *GameRoom) touch(now time.Time) { g.LastActivity = now }

// roomRegistry owns every game room and its ready map.
type roomRegistry struct {
	rooms      map[string]*GameRoom
	maxPlayers int
}

func newRoomRegistry(maxPlayers int) *roomRegistry {
	return &roomRegistry{rooms: make(map[string]*GameRoom), maxPlayers: maxPlayers}
}

func (r *roomRegistry) create(id string, players []string, now time.Time) *GameRoom {
	room := &GameRoom{
		ID:           id,
		Players:      append([]string(nil), players...),
		Status:       RoomActive,
		CreatedAt:    now,
		LastActivity: now,
		ready:        make(map[string]bool, len(players)),
	}
	r.rooms[id] = room
	return room
}

func (r *roomRegistry) get(id string) (*GameRoom, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// findByPlayer returns the oldest room listing username as a player.
func (r *roomRegistry) findByPlayer(username string) (*GameRoom, bool) {
	var found *GameRoom
	for _, room := range r.rooms {
		if !room.hasPlayer(username) {
			continue
		}
		if found == nil || room.CreatedAt.Before(found.CreatedAt) ||
			(room.CreatedAt.Equal(found.CreatedAt) && room.ID < found.ID) {
			found = room
		}
	}
	return found, found != nil
}

func (r *roomRegistry) full(room *GameRoom) bool { return len(room.Players) >= r.maxPlayers }

// addPlayer seats username unless already present, enforcing the cap.
func (r *roomRegistry) addPlayer(room *GameRoom, username string) error {
	if room.hasPlayer(username) {
		return nil
	}
	if r.full(room) {
		return ErrRoomFull
	}
	room.Players = append(room.Players, username)
	return nil
}

// enter validates a join and lazily creates the player's ready flag.
func (r *roomRegistry) enter(id, username string) (*GameRoom, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if !room.hasPlayer(username) {
		return nil, ErrNotAPlayer
	}
	if _, ok := room.ready[username]; !ok {
		room.ready[username] = false
	}
	return room, nil
}

func (r *roomRegistry) remove(id string) {
	delete(r.rooms, id)
}

// renamePlayer rewrites a username in every seat and ready map, in place.
func (r *roomRegistry) renamePlayer(oldName, newName string) {
	for _, room := range r.rooms {
		for i, p := range room.Players {
			if p != oldName {
				continue
			}
			room.Players[i] = newName
			if v, ok := room.ready[oldName]; ok {
				delete(room.ready, oldName)
				room.ready[newName] = v
			}
		}
	}
}

// idle returns rooms without activity since cutoff.
func (r *roomRegistry) idle(cutoff time.Time) []*GameRoom {
	var out []*GameRoom
	for _, room := range r.rooms {
		if room.LastActivity.Before(cutoff) {
			out = append(out, room)
		}
	}
	return out
}

// list returns rooms ordered by creation time.
func (r *roomRegistry) list() []*GameRoom {
	out := make([]*GameRoom, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *roomRegistry) len() int { return len(r.rooms) }
