package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-account-chat/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionPrefix  = "session:"
	accountPrefix  = "account:sessions:"
	minimumKeyLife = time.Second
)

// NewClient initializes a redis client.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// SessionStore keeps sessions as JSON values that expire with the session.
// Each account also has a set of its session ids so they can be revoked
// together.
type SessionStore struct {
	rdb goredis.UniversalClient
	now func() time.Time
}

func NewSessionStore(rdb goredis.UniversalClient) *SessionStore {
	return &SessionStore{rdb: rdb, now: time.Now}
}

func (s *SessionStore) Put(ctx context.Context, sess *domain.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl < minimumKeyLife {
		ttl = minimumKeyLife
	}
	setKey := accountPrefix + sess.AccountID
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, sessionPrefix+sess.SessionID, b, ttl)
		p.SAdd(ctx, setKey, sess.SessionID)
		p.Expire(ctx, setKey, ttl)
		return nil
	})
	return err
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	b, err := s.rdb.Get(ctx, sessionPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, sessionPrefix+sessionID)
		p.SRem(ctx, accountPrefix+sess.AccountID, sessionID)
		return nil
	})
	return err
}

func (s *SessionStore) DeleteByAccount(ctx context.Context, accountID string) error {
	setKey := accountPrefix + accountID
	ids, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionPrefix+id)
	}
	keys = append(keys, setKey)
	return s.rdb.Del(ctx, keys...).Err()
}
