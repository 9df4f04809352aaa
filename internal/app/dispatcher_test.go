//go:build unit

package app_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ramadhanas/kaskelas/internal/app"
	"github.com/ramadhanas/kaskelas/internal/domain"
	"github.com/stretchr/testify/assert"
)

type gatewayFunc func(ctx context.Context, destination, body string) (domain.GatewayOutcome, error)

func (f gatewayFunc) Send(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
	return f(ctx, destination, body)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func fastPolicy() app.BackoffPolicy {
	return app.BackoffPolicy{MaxAttempts: 3, Base: time.Millisecond}
}

func TestDispatch(t *testing.T) {
	t.Run("given a gateway that always fails, attempts equals the cap and success is false", func(t *testing.T) {
		calls := 0
		gw := gatewayFunc(func(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
			calls++
			return domain.GatewayOutcome{Success: false, Message: "device disconnected"}, nil
		})

		res := app.NewDispatcher(gw, fastPolicy(), testLogger()).Dispatch(context.Background(), "628", "halo")

		assert.False(t, res.Success)
		assert.Equal(t, 3, res.Attempts)
		assert.Equal(t, 3, calls)
		assert.Equal(t, "device disconnected", res.Message)
	})

	t.Run("given success on the second call, attempts is two", func(t *testing.T) {
		calls := 0
		gw := gatewayFunc(func(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
			calls++
			if calls < 2 {
				return domain.GatewayOutcome{}, errors.New("connection reset")
			}
			return domain.GatewayOutcome{Success: true, Message: "queued"}, nil
		})

		res := app.NewDispatcher(gw, fastPolicy(), testLogger()).Dispatch(context.Background(), "628", "halo")

		assert.True(t, res.Success)
		assert.Equal(t, 2, res.Attempts)
		assert.Equal(t, "queued", res.Message)
	})

	t.Run("given immediate success, exactly one attempt is made", func(t *testing.T) {
		calls := 0
		gw := gatewayFunc(func(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
			calls++
			return domain.GatewayOutcome{Success: true, Message: "queued"}, nil
		})

		res := app.NewDispatcher(gw, fastPolicy(), testLogger()).Dispatch(context.Background(), "628", "halo")

		assert.True(t, res.Success)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, 1, calls)
	})

	t.Run("transport errors and structured failures are retried identically", func(t *testing.T) {
		calls := 0
		gw := gatewayFunc(func(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
			calls++
			if calls == 1 {
				return domain.GatewayOutcome{}, errors.New("dial tcp: refused")
			}
			return domain.GatewayOutcome{Success: false, Message: "rejected"}, nil
		})

		res := app.NewDispatcher(gw, fastPolicy(), testLogger()).Dispatch(context.Background(), "628", "halo")

		assert.False(t, res.Success)
		assert.Equal(t, 3, res.Attempts)
		assert.Equal(t, "rejected", res.Message)
	})

	t.Run("given a cancelled context during backoff, the last failure is returned early", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		gw := gatewayFunc(func(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
			cancel()
			return domain.GatewayOutcome{Success: false, Message: "down"}, nil
		})

		policy := app.BackoffPolicy{MaxAttempts: 3, Base: time.Hour}
		res := app.NewDispatcher(gw, policy, testLogger()).Dispatch(ctx, "628", "halo")

		assert.False(t, res.Success)
		assert.Equal(t, 1, res.Attempts)
	})
}

func TestBackoffPolicyDelay(t *testing.T) {
	p := app.BackoffPolicy{MaxAttempts: 3, Base: time.Second}

	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}
