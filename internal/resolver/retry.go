// File: internal/resolver/retry.go
package resolver

import (
	"context"
	"time"
)

// Policy bounds a polling loop: at most Attempts evaluations, Interval apart.
type Policy struct {
	Attempts int
	Interval time.Duration
}

// Poll evaluates the predicate until it reports true, an error, the policy is
// exhausted, or the context is canceled. It returns whether the predicate
// ever succeeded. The button-enablement and redirect-verification loops in
// the auth flow share this primitive instead of hand-rolling sleeps.
func Poll(ctx context.Context, p Policy, predicate func(context.Context) (bool, error)) (bool, error) {
	for attempt := 0; attempt < p.Attempts; attempt++ {
		ok, err := predicate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if attempt == p.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(p.Interval):
		}
	}
	return false, nil
}

// PollUntil is Poll with a deadline instead of an attempt count: it keeps
// evaluating every interval until the predicate succeeds or the timeout
// elapses.
func PollUntil(ctx context.Context, timeout, interval time.Duration, predicate func(context.Context) (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := predicate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}
