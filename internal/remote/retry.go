package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/textbook-chat/cli/internal/logx"
)

// ErrExhausted is wrapped into Result.Err when every attempt failed with a
// retryable condition.
var ErrExhausted = errors.New("remote call attempts exhausted")

// Outcome tags how a wrapped call ended
type Outcome int

const (
	Success Outcome = iota
	Transient
	Terminal
)

// String returns a short name for the outcome
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Transient:
		return "transient"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Policy controls the bounded retry loop around a single remote call.
type Policy struct {
	MaxAttempts    int
	WarmupDelay    time.Duration // after a 503 "service warming up"
	TransportDelay time.Duration // after a transport error or timeout
}

// DefaultPolicy returns three attempts with a 5s warm-up wait and a 2s transport wait.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		WarmupDelay:    5 * time.Second,
		TransportDelay: 2 * time.Second,
	}
}

// Result is the tagged outcome of Do. It is never nil-valued on failure:
// callers inspect Outcome instead of handling a panic or a bare error.
type Result[T any] struct {
	Value    T
	Outcome  Outcome
	Attempts int
	Err      error
}

// OK reports whether the call succeeded
func (r Result[T]) OK() bool {
	return r.Outcome == Success
}

// StatusCoder is implemented by errors that carry a remote response status.
type StatusCoder interface {
	StatusCode() int
}

// StatusError is a non-success response from a remote endpoint.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Service, e.Code, e.Body)
}

// StatusCode returns the HTTP status of the response
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Do invokes call at most p.MaxAttempts times. A 503 waits WarmupDelay and
// retries; any other status is terminal; any other error waits TransportDelay
// and retries. No wait follows the final attempt.
func Do[T any](ctx context.Context, p Policy, call func(ctx context.Context) (T, error)) Result[T] {
	maxAttempts := max(p.MaxAttempts, 1)

	var (
		attempts int
		lastErr  error
		terminal bool
	)
	operation := func() (T, error) {
		attempts++
		value, err := call(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			terminal = true
			return value, backoff.Permanent(err)
		}

		var sc StatusCoder
		if errors.As(err, &sc) {
			if sc.StatusCode() != http.StatusServiceUnavailable {
				terminal = true
				return value, backoff.Permanent(err)
			}
			return value, &backoff.RetryAfterError{Duration: p.WarmupDelay}
		}
		return value, err
	}

	value, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.TransportDelay)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(_ error, delay time.Duration) {
			logx.Warn().Err(lastErr).Int("attempt", attempts).Dur("delay", delay).Msg("remote call failed, retrying")
		}),
	)

	switch {
	case err == nil:
		return Result[T]{Value: value, Outcome: Success, Attempts: attempts}
	case terminal:
		return Result[T]{Outcome: Terminal, Attempts: attempts, Err: lastErr}
	case ctx.Err() != nil:
		// cancelled while waiting between attempts
		return Result[T]{Outcome: Terminal, Attempts: attempts, Err: ctx.Err()}
	default:
		return Result[T]{
			Outcome:  Transient,
			Attempts: attempts,
			Err:      fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr),
		}
	}
}
