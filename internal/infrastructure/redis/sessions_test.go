package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-account-chat/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewSessionStore(rdb)
	s.now = func() time.Time { return base }
	return s, mr
}

func session(id, accountID string, ttl time.Duration) *domain.Session {
	return &domain.Session{SessionID: id, AccountID: accountID, CreatedAt: base, ExpiresAt: base.Add(ttl)}
}

func TestPut_ExpiresWithSession(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, session("sid-1", "acc-1", time.Hour)))

	assert.Equal(t, time.Hour, mr.TTL(sessionPrefix+"sid-1"))
	members, err := mr.SMembers(accountPrefix + "acc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sid-1"}, members)

	got, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.AccountID)
	assert.True(t, base.Add(time.Hour).Equal(got.ExpiresAt))

	mr.FastForward(time.Hour + time.Second)
	_, err = s.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPut_AlreadyExpiredKeepsMinimumLife(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, s.Put(context.Background(), session("sid-1", "acc-1", -time.Minute)))
	assert.Equal(t, minimumKeyLife, mr.TTL(sessionPrefix+"sid-1"))
}

func TestGet_Unknown(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RemovesSessionAndMembership(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, session("sid-1", "acc-1", time.Hour)))
	require.NoError(t, s.Put(ctx, session("sid-2", "acc-1", time.Hour)))

	require.NoError(t, s.Delete(ctx, "sid-1"))
	_, err := s.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	members, err := mr.SMembers(accountPrefix + "acc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sid-2"}, members)

	assert.NoError(t, s.Delete(ctx, "sid-1"), "deleting twice is not an error")
}

func TestDeleteByAccount_RevokesOnlyThatAccount(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, session("sid-1", "acc-1", time.Hour)))
	require.NoError(t, s.Put(ctx, session("sid-2", "acc-1", time.Hour)))
	require.NoError(t, s.Put(ctx, session("sid-3", "acc-2", time.Hour)))

	require.NoError(t, s.DeleteByAccount(ctx, "acc-1"))

	for _, id := range []string{"sid-1", "sid-2"} {
		_, err := s.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
	}
	assert.False(t, mr.Exists(accountPrefix+"acc-1"))
	_, err := s.Get(ctx, "sid-3")
	assert.NoError(t, err)

	assert.NoError(t, s.DeleteByAccount(ctx, "nobody"))
}
