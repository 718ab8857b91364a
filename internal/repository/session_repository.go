package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRepository stores live attendance sessions in Redis. Each open
// session is a hash keyed attendance:{subjectID} mapping faculty email to the
// latest broadcast location blob. The hash expires as a whole; every write
// re-arms the expiry so an active session stays alive.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(subjectID string) string {
	return "attendance:" + subjectID
}

// SetLocation writes the actor's location into the session hash and refreshes
// the key expiry. Creating the hash and starting the countdown are the same
// operation.
func (r *SessionRepository) SetLocation(ctx context.Context, subjectID, email string, location []byte, ttl time.Duration) error {
	key := sessionKey(subjectID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, email, location)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write session location: %w", err)
	}
	return nil
}

// ActorExists reports whether the actor currently holds a field in the
// session hash.
func (r *SessionRepository) ActorExists(ctx context.Context, subjectID, email string) (bool, error) {
	exists, err := r.client.HExists(ctx, sessionKey(subjectID), email).Result()
	if err != nil {
		return false, fmt.Errorf("check session actor: %w", err)
	}
	return exists, nil
}

// RemoveActor deletes the actor's field from the session hash. Other actors'
// fields and the key expiry are untouched.
func (r *SessionRepository) RemoveActor(ctx context.Context, subjectID, email string) error {
	if err := r.client.HDel(ctx, sessionKey(subjectID), email).Err(); err != nil {
		return fmt.Errorf("remove session actor: %w", err)
	}
	return nil
}

// Locations returns every actor's location blob in the session hash. An
// expired or never-started session yields an empty map.
func (r *SessionRepository) Locations(ctx context.Context, subjectID string) (map[string]string, error) {
	locations, err := r.client.HGetAll(ctx, sessionKey(subjectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read session locations: %w", err)
	}
	return locations, nil
}
