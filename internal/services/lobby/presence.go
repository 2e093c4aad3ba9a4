package lobby

type Status string

const (
	StatusOnline      Status = "online"
	StatusConfiguring Status = "configuring"
	StatusInvited     Status = "invited"
	StatusOffline     Status = "offline"
)

type PresenceEntry struct {
	ConnID string
	Status Status
}

type UserInfo struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
}

// presenceRegistry maps usernames to their owning connection. Iteration
// follows insertion order; a rename keeps the original slot.
// Not safe for concurrent use; Service serialises access.
type presenceRegistry struct {
	entries map[string]*PresenceEntry
	order   []string
}

func newPresenceRegistry() *presenceRegistry {
	return &presenceRegistry{entries: make(map[string]*PresenceEntry)}
}

func (p *presenceRegistry) get(username string) (PresenceEntry, bool) {
	e, ok := p.entries[username]
	if !ok {
		return PresenceEntry{}, false
	}
	return *e, true
}

// statusOf returns StatusOffline for absent users.
func (p *presenceRegistry) statusOf(username string) Status {
	if e, ok := p.entries[username]; ok {
		return e.Status
	}
	return StatusOffline
}

// claim checks whether connID may take username. It returns the connection
// currently holding the name when a rejoin supersedes it. Nothing is mutated.
func (p *presenceRegistry) claim(username, connID string, rejoining bool) (string, error) {
	e, ok := p.entries[username]
	if !ok || e.ConnID == connID {
		return "", nil
	}
	if !rejoining {
		return "", ErrUsernameTaken
	}
	return e.ConnID, nil
}

// put registers username as online for connID, replacing any holder in place.
func (p *presenceRegistry) put(username, connID string) {
	if e, ok := p.entries[username]; ok {
		e.ConnID = connID
		e.Status = StatusOnline
		return
	}
	p.entries[username] = &PresenceEntry{ConnID: connID, Status: StatusOnline}
	p.order = append(p.order, username)
}

func (p *presenceRegistry) remove(username string) bool {
	if _, ok := p.entries[username]; !ok {
		return false
	}
	delete(p.entries, username)
	for i, u := range p.order {
		if u == username {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

func (p *presenceRegistry) setStatus(username string, st Status) bool {
	e, ok := p.entries[username]
	if !ok {
		return false
	}
	e.Status = st
	return true
}

// rename moves oldName's entry to newName. When oldName is not registered the
// new name is registered for connID instead.
func (p *presenceRegistry) rename(oldName, newName, connID string) error {
	if _, taken := p.entries[newName]; taken {
		return ErrUsernameTaken
	}
	e, ok := p.entries[oldName]
	if !ok {
		p.put(newName, connID)
		return nil
	}
	delete(p.entries, oldName)
	p.entries[newName] = e
	for i, u := range p.order {
		if u == oldName {
			p.order[i] = newName
			break
		}
	}
	return nil
}

func (p *presenceRegistry) snapshot() []UserInfo {
	out := make([]UserInfo, 0, len(p.order))
	for _, u := range p.order {
		out = append(out, UserInfo{Username: u, Status: p.entries[u].Status})
	}
	return out
}

func (p *presenceRegistry) len() int { return len(p.entries) }
