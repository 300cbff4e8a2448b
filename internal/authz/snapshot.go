package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore caches the resolved actor per user in Redis. The snapshot is
// written on login and on an explicit refresh; evaluation always works off the
// snapshot currently held, pull based rather than push.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore constructs a SnapshotStore.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// Save stores the actor snapshot.
func (s *SnapshotStore) Save(ctx context.Context, actor *Actor) error {
	if actor == nil || actor.ID == "" {
		return errors.New("authz: snapshot requires an actor with id")
	}
	payload, err := json.Marshal(actor)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(actor.ID), payload, s.ttl).Err()
}

// Load returns the cached actor, or nil when no snapshot exists.
func (s *SnapshotStore) Load(ctx context.Context, userID string) (*Actor, error) {
	payload, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var actor Actor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return nil, err
	}
	return &actor, nil
}

// Invalidate drops the cached actor. It is idempotent: multiple in-flight
// requests may each observe a 401 and each attempt the clear, and every
// attempt after the first is a no-op.
func (s *SnapshotStore) Invalidate(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	err := s.client.Del(ctx, s.key(userID)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *SnapshotStore) key(userID string) string {
	return "actor:" + userID
}
