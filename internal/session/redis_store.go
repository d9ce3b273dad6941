package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenPrefix marks bearer tokens issued by this package.
const TokenPrefix = "tas_"

// RedisStore keeps each session under its own key with a TTL and indexes the
// tokens of every account in a set so they can be revoked together.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) sessionKey(token string) string {
	return s.prefix + "session:" + token
}

func (s *RedisStore) accountKey(accountID int64) string {
	return s.prefix + "account:" + strconv.FormatInt(accountID, 10) + ":sessions"
}

// Create issues a new session for accountID.
func (s *RedisStore) Create(ctx context.Context, accountID int64) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &Session{
		Token:     token,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(token), data, s.ttl)
		pipe.SAdd(ctx, s.accountKey(accountID), token)
		pipe.Expire(ctx, s.accountKey(accountID), s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

// Lookup returns the live session for token.
func (s *RedisStore) Lookup(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

// Revoke ends a single session.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	sess, err := s.Lookup(ctx, token)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(token))
		pipe.SRem(ctx, s.accountKey(sess.AccountID), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// InvalidateAll revokes every session of accountID. Zero live sessions is not an error.
func (s *RedisStore) InvalidateAll(ctx context.Context, accountID int64) (int, error) {
	tokens, err := s.client.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, s.sessionKey(t))
	}

	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			del = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, s.accountKey(accountID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalidating sessions: %w", err)
	}
	if del == nil {
		return 0, nil
	}
	return int(del.Val()), nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
