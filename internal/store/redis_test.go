package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-genie/internal/models"
)

func TestRedisLoad_ReturnsProfile(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisRepository(client, 0)

	stored := models.NewTenantProfile(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	stored.Age = 30
	stored.Status = models.StatusQualified
	blob, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectGet("tenant:profile:sess-1").SetVal(string(blob))

	profile, err := repo.Load(context.Background(), "sess-1")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 30, profile.Age)
	assert.Equal(t, models.StatusQualified, profile.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLoad_AbsentIsNotAnError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisRepository(client, 0)

	mock.ExpectGet("tenant:profile:sess-1").RedisNil()

	profile, err := repo.Load(context.Background(), "sess-1")

	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestRedisLoad_CorruptBlob(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisRepository(client, 0)

	mock.ExpectGet("tenant:profile:sess-1").SetVal("{not json")

	profile, err := repo.Load(context.Background(), "sess-1")

	assert.Error(t, err)
	assert.Nil(t, profile)
}

func TestRedisSave(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisRepository(client, time.Hour)

	profile := models.NewTenantProfile(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	profile.Age = 30
	blob, err := json.Marshal(profile)
	require.NoError(t, err)

	mock.ExpectSet("tenant:profile:sess-1", blob, time.Hour).SetVal("OK")

	assert.NoError(t, repo.Save(context.Background(), "sess-1", profile))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewRedisRepository(client, 0)
	ctx := context.Background()

	profile := models.NewTenantProfile(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	profile.Age = 27
	profile.GuarantorStatus = "visale"
	viewing := true
	profile.ViewingInterest = &viewing

	require.NoError(t, repo.Save(ctx, "sess-1", profile))

	loaded, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 27, loaded.Age)
	assert.Equal(t, "visale", loaded.GuarantorStatus)
	require.NotNil(t, loaded.ViewingInterest)
	assert.True(t, *loaded.ViewingInterest)

	require.NoError(t, repo.Delete(ctx, "sess-1"))
	loaded, err = repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisRepository(client, 0)

	mock.ExpectDel("tenant:profile:sess-1").SetVal(1)

	assert.NoError(t, repo.Delete(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
