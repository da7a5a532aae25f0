package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamyab/audiopipeline/seedwork/domain"
)

func TestRunWithinBudget_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := RunWithinBudget(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, func(err error) Classification {
		t.Fatal("classifier should not be called on success")
		return Classification{}
	}, time.Minute, time.Millisecond, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunWithinBudget_NonRetryableFailsFast(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	err := RunWithinBudget(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	}, func(err error) Classification {
		return Classification{Retry: false}
	}, time.Minute, time.Millisecond, time.Millisecond)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRunWithinBudget_ExhaustsBudget(t *testing.T) {
	// P4: a classifier that always asks for a long sleep terminates after
	// <= budget + baseDelay wall-clock time and raises BudgetExhausted.
	sentinel := errors.New("always fails")
	start := time.Now()

	err := RunWithinBudget(context.Background(), func(ctx context.Context) error {
		return sentinel
	}, func(err error) Classification {
		return Classification{Retry: true, Sleep: 5 * time.Minute}
	}, 50*time.Millisecond, 10*time.Millisecond, time.Minute)

	elapsed := time.Since(start)
	require.Error(t, err)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "BUDGET_EXHAUSTED", de.Code)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRunWithinBudget_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	err := RunWithinBudget(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(err error) Classification {
		return Classification{Retry: true, Sleep: time.Millisecond}
	}, time.Minute, time.Millisecond, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRunWithinBudget_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunWithinBudget(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	}, func(err error) Classification {
		return Classification{Retry: true, Sleep: time.Millisecond}
	}, time.Minute, time.Millisecond, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
}
