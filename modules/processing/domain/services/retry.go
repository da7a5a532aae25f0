package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
)

// Classification is what an Operation's Classifier returns after observing
// a failed attempt.
type Classification struct {
	Retry bool
	Sleep time.Duration // overrides the default backoff delay, e.g. for 429 Retry-After
}

// Classifier inspects an error from one attempt and decides whether (and how
// long) to wait before retrying.
type Classifier func(err error) Classification

// Operation is one attempt of the work being retried.
type Operation func(ctx context.Context) error

// minBudgetSlack is the "sleep + 30s must fit in remaining budget" guard
// from §4.5: before sleeping, the driver ensures the next sleep plus this
// slack still fits, or fails fast with BudgetExhausted.
const minBudgetSlack = 30 * time.Second

// RunWithinBudget is the single generic function governing all external I/O
// retries (C5). It keeps elapsed wall time and aborts once budget is
// exhausted; classify decides whether to retry and how long to sleep;
// absent an explicit sleep, delay follows
// min(baseDelay*2^(attempt-1), maxDelay).
func RunWithinBudget(ctx context.Context, op Operation, classify Classifier, budget, baseDelay, maxDelay time.Duration) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = baseDelay
	eb.MaxInterval = maxDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0 // we enforce the budget ourselves, below

	deadline := time.Now().Add(budget)
	attempt := 0

	for {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}

		cls := classify(err)
		if !cls.Retry {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return perrors.NewBudgetExhausted(budget, err)
		}

		sleep := cls.Sleep
		if sleep == 0 {
			sleep = eb.NextBackOff()
		}

		if sleep+minBudgetSlack > remaining {
			return perrors.NewBudgetExhausted(budget, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}
