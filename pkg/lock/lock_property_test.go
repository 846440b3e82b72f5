package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// At most one of N concurrent acquire attempts on the same key may win,
// for any N and any TTL.
func TestPropertySingleWinnerAcrossConcurrentAcquires(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("exactly one concurrent acquire succeeds", prop.ForAll(
		func(contenders int, ttlMillis int) bool {
			provider := NewMemoryProvider()
			defer provider.Close()

			ttl := time.Duration(ttlMillis) * time.Millisecond
			var wg sync.WaitGroup
			var mu sync.Mutex
			winners := 0

			start := make(chan struct{})
			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, acquired, err := provider.Acquire(context.Background(), "contested-key", ttl)
					if err != nil {
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

			return winners == 1
		},
		gen.IntRange(2, 32),
		gen.IntRange(50, 5000),
	))

	properties.Property("key is free again after owner release", prop.ForAll(
		func(ttlMillis int) bool {
			provider := NewMemoryProvider()
			defer provider.Close()
			ctx := context.Background()

			ttl := time.Duration(ttlMillis) * time.Millisecond
			lease, acquired, err := provider.Acquire(ctx, "cycled-key", ttl)
			if err != nil || !acquired {
				return false
			}
			if err := provider.Release(ctx, lease); err != nil {
				return false
			}
			_, acquired, err = provider.Acquire(ctx, "cycled-key", ttl)
			return err == nil && acquired
		},
		gen.IntRange(100, 5000),
	))

	properties.TestingRun(t)
}
