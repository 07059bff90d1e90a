package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_RestartsAfterError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var attempts atomic.Int32
	Run(ctx, Config{Name: "t", InitialDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond}, func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("boom")
	})

	assert.GreaterOrEqual(t, int(attempts.Load()), 2)
}

func TestRun_RecoversFromPanic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var attempts atomic.Int32
	Run(ctx, Config{Name: "t", InitialDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond}, func(ctx context.Context) error {
		attempts.Add(1)
		panic("boom")
	})

	assert.GreaterOrEqual(t, int(attempts.Load()), 2)
}

func TestRun_StopsOnNilError(t *testing.T) {
	var attempts atomic.Int32
	Run(context.Background(), DefaultConfig("t"), func(ctx context.Context) error {
		attempts.Add(1)
		return nil
	})
	assert.Equal(t, int32(1), attempts.Load())
}
