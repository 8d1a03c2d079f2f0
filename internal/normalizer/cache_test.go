package normalizer

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondLevelCacheGetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewSecondLevelCache(client, time.Hour)

	mock.ExpectGet(redisKey("polygon", "AAPL")).SetVal("7")

	id, ok := cache.Get(context.Background(), "polygon", "AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSecondLevelCacheGetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewSecondLevelCache(client, time.Hour)

	mock.ExpectGet(redisKey("polygon", "MSFT")).RedisNil()

	_, ok := cache.Get(context.Background(), "polygon", "MSFT")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSecondLevelCacheSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewSecondLevelCache(client, time.Hour)

	mock.ExpectSet(redisKey("polygon", "AAPL"), "7", time.Hour).SetVal("OK")

	cache.Set(context.Background(), "polygon", "AAPL", 7)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSecondLevelCacheNilReceiverIsSafe(t *testing.T) {
	var cache *SecondLevelCache
	_, ok := cache.Get(context.Background(), "polygon", "AAPL")
	assert.False(t, ok)
	cache.Set(context.Background(), "polygon", "AAPL", 1)
}
