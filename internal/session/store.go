package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rtchat/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidSession is returned when a token does not map to a live
// session record.
var ErrInvalidSession = errors.New("invalid session")

// Store keeps session records in Redis under "sess:<id>".
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func sessionKey(sid string) string {
	return "sess:" + sid
}

// Create starts a session for an identity and returns the new session id.
func (s *Store) Create(ctx context.Context, identity *models.Identity) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	sid := hex.EncodeToString(buf)

	data, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sid), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sid, nil
}

// Get loads the identity for a session id. A missing or unparseable
// record is ErrInvalidSession.
func (s *Store) Get(ctx context.Context, sid string) (*models.Identity, error) {
	data, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	identity := &models.Identity{}
	if err := json.Unmarshal(data, identity); err != nil {
		return nil, fmt.Errorf("%w: unparseable record", ErrInvalidSession)
	}
	if identity.UserID == "" {
		return nil, fmt.Errorf("%w: incomplete record", ErrInvalidSession)
	}
	return identity, nil
}

// Destroy removes a session record.
func (s *Store) Destroy(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}
