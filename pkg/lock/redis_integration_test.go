package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/testutil"
)

// Runs the single-winner property against a real Redis server.
func TestIntegrationRedisSingleWinner(t *testing.T) {
	testutil.RequireIntegration(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	provider, err := NewRedisProvider(client, RedisProviderConfig{Prefix: "itest"})
	if err != nil {
		t.Fatalf("NewRedisProvider: %v", err)
	}

	const contenders = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, acquired, err := provider.Acquire(ctx, "integration-contested", 30*time.Second)
			if err != nil {
				t.Errorf("acquire errored: %v", err)
				return
			}
			if acquired {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
