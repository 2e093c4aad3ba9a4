package lobby

import "time"

type Challenge struct {
	ID           string
	Challenger   string
	Opponent     string
	TargetGameID string // empty: a new room is created on acceptance
	CreatedAt    time.Time
}

// challengeRegistry keeps pending challenges oldest first.
type challengeRegistry struct {
	pending []*Challenge
}

func newChallengeRegistry() *challengeRegistry { return &challengeRegistry{} }

func (c *challengeRegistry) add(ch *Challenge) { c.pending = append(c.pending, ch) }

// take removes and returns the oldest challenge for the exact pair.
func (c *challengeRegistry) take(challenger, opponent string) (*Challenge, bool) {
	for i, ch := range c.pending {
		if ch.Challenger == challenger && ch.Opponent == opponent {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return ch, true
		}
	}
	return nil, false
}

// dropTargeting removes every challenge inviting into gameID.
func (c *challengeRegistry) dropTargeting(gameID string) int {
	return c.filter(func(ch *Challenge) bool { return ch.TargetGameID == gameID })
}

// expire removes challenges created before cutoff.
func (c *challengeRegistry) expire(cutoff time.Time) int {
	return c.filter(func(ch *Challenge) bool { return ch.CreatedAt.Before(cutoff) })
}

func (c *challengeRegistry) filter(drop func(*Challenge) bool) int {
	kept := c.pending[:0]
	n := 0
	for _, ch := range c.pending {
		if drop(ch) {
			n++
			continue
		}
		kept = append(kept, ch)
	}
	for i := len(kept); i < len(c.pending); i++ {
		c.pending[i] = nil
	}
	c.pending = kept
	return n
}

// rename rewrites a username on both sides of every pending challenge.
func (c *challengeRegistry) rename(oldName, newName string) {
	for _, ch := range c.pending {
		if ch.Challenger == oldName {
			ch.Challenger = newName
		}
		if ch.Opponent == oldName {
			ch.Opponent = newName
		}
	}
}

func (c *challengeRegistry) len() int { return len(c.pending) }
