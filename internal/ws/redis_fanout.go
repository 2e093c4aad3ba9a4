package ws

import (
	"context"
	"encoding/json"
	"time"

	"gamelobby/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

type outbound struct {
	group string
	msg   []byte
}

// RedisBus is a lobby.Bus that fans group publishes out through Redis so that
// every instance delivers them to its own members. Local members receive
// publishes only via the subscription. Direct sends and closes stay local.
type RedisBus struct {
	rdb  *redis.Client
	hub  *Hub
	subs *subscriptionManager
	out  chan outbound
}

func NewRedisBus(rdb *redis.Client, hub *Hub, queue int) *RedisBus {
	if queue <= 0 {
		queue = 1024
	}
	return &RedisBus{
		rdb:  rdb,
		hub:  hub,
		subs: newSubscriptionManager(rdb, hub.Broadcast),
		out:  make(chan outbound, queue),
	}
}

// Run drains the outbound queue in order until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) {
	defer b.subs.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-b.out:
			b.publish(ctx, o)
		}
	}
}

func (b *RedisBus) publish(ctx context.Context, o outbound) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, channelFor(o.group), string(o.msg)).Err(); err != nil {
		zap.L().Warn("ws.redis_publish", zap.String("group", o.group), zap.Error(err))
	}
}

func (b *RedisBus) Join(group, connID string) {
	if b.hub.join(group, connID) {
		b.subs.Subscribe(group)
	}
}

func (b *RedisBus) Leave(group, connID string) {
	if b.hub.leave(group, connID) {
		b.subs.Unsubscribe(group)
	}
}

func (b *RedisBus) Publish(group string, event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("ws.marshal", zap.String("group", group), zap.Error(err))
		return
	}
	select {
	case b.out <- outbound{group: group, msg: msg}:
	default:
		// Dropped for every member of the group, on every instance.
		metrics.BusDropped.Inc()
		zap.L().Warn("ws.redis_queue_full", zap.String("group", group))
	}
}

func (b *RedisBus) SendTo(connID string, event any) { b.hub.SendTo(connID, event) }

func (b *RedisBus) Close(connID string, code int, reason string) { b.hub.Close(connID, code, reason) }
