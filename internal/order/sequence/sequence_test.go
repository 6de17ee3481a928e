package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestFormat(t *testing.T) {
	at := time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "ORD-20261015-000042", Format("ORD", at, 42))
	assert.Equal(t, "ORD-20261015-1234567", Format("ORD", at, 1234567))
}

func TestRedisSequence(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	seq := NewRedis(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := seq.Next(ctx, "20261015")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := seq.Next(ctx, "20261016")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Greater(t, mr.TTL(keyPrefix+"20261015"), time.Duration(0))

	mr.FastForward(keyTTL + time.Second)
	n, err = seq.Next(ctx, "20261015")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisSequenceUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedis(client).Next(context.Background(), "20261015")
	assert.Error(t, err)
}

func TestDBSequence(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Counter{}))

	seq := NewDB(db)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := seq.Next(ctx, "20261015")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := seq.Next(ctx, "20261016")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewPicksBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, ok := New(nil, client, zap.NewNop()).(*Redis)
	assert.True(t, ok)

	_, ok = New(&gorm.DB{}, nil, zap.NewNop()).(*DB)
	assert.True(t, ok)
}
