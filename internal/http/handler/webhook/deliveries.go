package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryWindow is how long a delivery id is remembered. GitHub redelivers
// manually or on timeouts, usually within minutes.
const DeliveryWindow = time.Hour

// DeliveryTracker remembers webhook delivery ids. MarkSeen reports true when
// the id was already recorded inside the window.
type DeliveryTracker interface {
	MarkSeen(ctx context.Context, deliveryID string) (bool, error)
}

type memoryDeliveries struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemoryDeliveries(ttl time.Duration) DeliveryTracker {
	return newMemoryDeliveries(ttl, time.Now)
}

func newMemoryDeliveries(ttl time.Duration, now func() time.Time) *memoryDeliveries {
	return &memoryDeliveries{
		ttl:  ttl,
		now:  now,
		seen: make(map[string]time.Time),
	}
}

func (d *memoryDeliveries) MarkSeen(_ context.Context, deliveryID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, expires := range d.seen {
		if !now.Before(expires) {
			delete(d.seen, id)
		}
	}

	if _, ok := d.seen[deliveryID]; ok {
		return true, nil
	}
	d.seen[deliveryID] = now.Add(d.ttl)
	return false, nil
}

type redisDeliveries struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeliveries shares the dedup window across server replicas.
func NewRedisDeliveries(client *redis.Client, ttl time.Duration) DeliveryTracker {
	return &redisDeliveries{client: client, ttl: ttl}
}

func (d *redisDeliveries) MarkSeen(ctx context.Context, deliveryID string) (bool, error) {
	created, err := d.client.SetNX(ctx, "ghas-sync:delivery:"+deliveryID, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording delivery %s: %w", deliveryID, err)
	}
	return !created, nil
}
