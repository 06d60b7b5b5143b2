package myredis

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedisAddr = "redis://localhost:6379"

func setupTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	client, err := NewRedisUniversalClient(testRedisAddr)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not reachable at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedisUniversalClient_BadURL(t *testing.T) {
	client, err := NewRedisUniversalClient("not-a-url://")
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "cant parse redis url")
}

func TestNewRedisUniversalClient_Options(t *testing.T) {
	client, err := NewRedisUniversalClient("redis://:secret@localhost:6390/3", WithClientName("controller"))
	require.NoError(t, err)
	defer client.Close()
	assert.NotNil(t, client)
}

func TestNewPubSub_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "adapters.myredis.pubsub.go: redis client is required", func() {
		NewPubSub(nil, log.NewNopLogger())
	})
}

func TestPubSub_PublishSubscribe(t *testing.T) {
	client := setupTestRedis(t)
	ps := NewPubSub(client, log.NewNopLogger())
	defer ps.Close()

	got := make(chan []byte, 4)
	require.NoError(t, ps.Subscribe("coprocfleet-test-logs", func(payload []byte) {
		got <- payload
	}))

	ctx := context.Background()
	require.NoError(t, ps.Publish(ctx, "coprocfleet-test-logs", []byte("hello")))
	select {
	case payload := <-got:
		assert.Equal(t, []byte("hello"), payload)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPubSub_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	client := setupTestRedis(t)
	ps := NewPubSub(client, log.NewNopLogger())
	defer ps.Close()

	got := make(chan string, 4)
	require.NoError(t, ps.Subscribe("coprocfleet-test-panic", func(payload []byte) {
		if string(payload) == "boom" {
			panic("boom")
		}
		got <- string(payload)
	}))
	ctx := context.Background()
	require.NoError(t, ps.Publish(ctx, "coprocfleet-test-panic", []byte("boom")))
	require.NoError(t, ps.Publish(ctx, "coprocfleet-test-panic", []byte("after")))
	select {
	case payload := <-got:
		assert.Equal(t, "after", payload)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery stopped after panic")
	}
}

func TestPubSub_SubscribeAfterClose(t *testing.T) {
	client, err := NewRedisUniversalClient(testRedisAddr)
	require.NoError(t, err)
	defer client.Close()
	ps := NewPubSub(client, log.NewNopLogger())
	require.NoError(t, ps.Close())
	err = ps.Subscribe("x", func([]byte) {})
	assert.ErrorIs(t, err, ErrPubSubClosed)
}
