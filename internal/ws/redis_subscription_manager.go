package ws

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "lobby:grp:"

func channelFor(group string) string { return channelPrefix + group }

// subscriptionManager guarantees that we have **exactly one** Redis
// subscription per group channel, no matter how many local connections are
// members of the group.
type subscriptionManager struct {
	mu   sync.Mutex
	subs map[string]*subEntry // group ➜ subscription data

	// listen runs until ctx is cancelled, forwarding the group's messages.
	listen func(ctx context.Context, group string)
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, deliver func(group string, msg []byte)) *subscriptionManager {
	sm := &subscriptionManager{subs: make(map[string]*subEntry)}
	sm.listen = func(ctx context.Context, group string) {
		ps := rdb.Subscribe(ctx, channelFor(group))
		defer ps.Close()

		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok { // Redis connection closed.
					zap.L().Warn("ws.redis_subscription_closed", zap.String("group", group))
					return
				}
				deliver(group, []byte(m.Payload))
			}
		}
	}
	return sm
}

// Subscribe ensures that the process is subscribed to the group's channel;
// subsequent calls for the same group only increment the ref‑counter.
func (sm *subscriptionManager) Subscribe(group string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if e, ok := sm.subs[group]; ok {
		e.refCnt++
		return
	}

	// First member → start the fan‑in loop.
	ctx, cancel := context.WithCancel(context.Background())
	sm.subs[group] = &subEntry{refCnt: 1, cancel: cancel}
	go sm.listen(ctx, group)
}

// Unsubscribe decrements the ref‑counter and tears the Redis SUB down when the
// last local member leaves the group.
func (sm *subscriptionManager) Unsubscribe(group string) {
	sm.mu.Lock()
	e, ok := sm.subs[group]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, group)
	sm.mu.Unlock()

	// Outside the lock → stop the fan‑in goroutine.
	e.cancel()
}

func (sm *subscriptionManager) closeAll() {
	sm.mu.Lock()
	subs := sm.subs
	sm.subs = make(map[string]*subEntry)
	sm.mu.Unlock()
	for _, e := range subs {
		e.cancel()
	}
}

func (sm *subscriptionManager) refs(group string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if e, ok := sm.subs[group]; ok {
		return e.refCnt
	}
	return 0
}
