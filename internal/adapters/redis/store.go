package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"voyago_booking/internal/adapters/observability"
	"voyago_booking/internal/domain"
)

// Store persists booking session snapshots in redis, one key per session,
// TTL-bounded so abandoned sessions vanish on their own once the hold is
// dead.
type Store struct{ c *redis.Client }

func New(addr, pass string, db int) *Store {
	return &Store{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func key(sessionID string) string { return "booking:session:" + sessionID }

func (s *Store) Save(ctx context.Context, snap domain.Snapshot, ttl time.Duration) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	observability.ObserveSession("save")
	return s.c.Set(ctx, key(snap.SessionID), b, ttl).Err()
}

func (s *Store) Load(ctx context.Context, sessionID string) (domain.Snapshot, bool, error) {
	v, err := s.c.Get(ctx, key(sessionID)).Bytes()
	if err == redis.Nil {
		observability.ObserveSession("miss")
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(v, &snap); err != nil {
		return domain.Snapshot{}, false, err
	}
	observability.ObserveSession("hit")
	return snap, true, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	observability.ObserveSession("del")
	return s.c.Del(ctx, key(sessionID)).Err()
}
