package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/ramadhanas/kaskelas/internal/domain"
)

// Gateway delivers one rendered message to one normalized destination.
type Gateway interface {
	Send(ctx context.Context, destination, body string) (domain.GatewayOutcome, error)
}

// BackoffPolicy bounds the per-recipient retry loop. The delay after the n-th
// failed attempt is Base * 2^n, attempts counted from 1.
type BackoffPolicy struct {
	MaxAttempts int
	Base        time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{MaxAttempts: 3, Base: time.Second}
}

func (p BackoffPolicy) Delay(attempt int) time.Duration {
	return p.Base << attempt
}

// DispatchResult is the terminal outcome of one recipient's send, after
// retries are exhausted or the gateway reports success.
type DispatchResult struct {
	Success  bool
	Message  string
	Attempts int
}

// Dispatcher wraps a single gateway call with bounded retry and exponential
// backoff. Structured failures and transport errors count identically as one
// failed attempt.
type Dispatcher struct {
	gateway Gateway
	policy  BackoffPolicy
	logger  *slog.Logger
}

func NewDispatcher(gateway Gateway, policy BackoffPolicy, logger *slog.Logger) *Dispatcher {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Dispatcher{
		gateway: gateway,
		policy:  policy,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, destination, body string) DispatchResult {
	var last string
	for attempt := 1; ; attempt++ {
		outcome, err := d.gateway.Send(ctx, destination, body)
		if err == nil && outcome.Success {
			return DispatchResult{Success: true, Message: outcome.Message, Attempts: attempt}
		}

		if err != nil {
			last = err.Error()
		} else {
			last = outcome.Message
		}

		if attempt >= d.policy.MaxAttempts {
			return DispatchResult{Success: false, Message: last, Attempts: attempt}
		}

		delay := d.policy.Delay(attempt)
		d.logger.Warn("send attempt failed, backing off",
			"destination", destination,
			"attempt", attempt,
			"delay", delay,
			"reason", last)

		if err := sleep(ctx, delay); err != nil {
			return DispatchResult{Success: false, Message: last, Attempts: attempt}
		}
	}
}

// sleep waits for d but gives up when the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
