// Package steps holds the Step Kernel (C8) — a durable step executor
// modeled on the host workflow primitive referenced by the source, but
// specified here in abstract, host-agnostic terms — and the Pipeline
// Driver (C9) that sequences the named steps for one episode.
package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/repositories"
)

// Policy governs one step's retry/backoff/timeout behavior (§4.8, §4.9).
type Policy struct {
	Retries int
	Delay   time.Duration
	// Backoff is "exponential" or "" (fixed delay).
	Backoff string
	Timeout time.Duration
}

// Kernel is the durable step executor for one workflow run.
type Kernel struct {
	workflowID string
	log        repositories.StepLogRepository
}

// NewKernel creates a Kernel bound to one workflow's step log.
func NewKernel(workflowID string, log repositories.StepLogRepository) *Kernel {
	return &Kernel{workflowID: workflowID, log: log}
}

// Do runs stepName under policy, returning its typed output. On the first
// call, body runs (retried per policy on failure). On a later call after a
// restart, a previously succeeded record for (workflowID, stepName) is
// decoded and returned without re-invoking body — the suspension points are
// exactly before body runs, after it succeeds, and between retry attempts.
func Do[T any](ctx context.Context, k *Kernel, stepName string, policy Policy, body func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if existing, err := k.log.Find(ctx, k.workflowID, stepName); err == nil && existing != nil && existing.Status == repositories.StepSucceeded {
		var out T
		if err := json.Unmarshal(existing.OutputJSON, &out); err != nil {
			return zero, fmt.Errorf("step %q: decoding cached output: %w", stepName, err)
		}
		log.Printf("step %s: replaying cached output for workflow %s", stepName, k.workflowID)
		return out, nil
	}

	stepCtx := ctx
	var cancel context.CancelFunc
	if policy.Timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	out, err := runWithRetries(stepCtx, policy, body)
	if err != nil {
		k.persistFailure(ctx, stepName, err)
		return zero, perrors.NewStepError(stepName, err)
	}

	k.persistSuccess(ctx, stepName, out)
	return out, nil
}

func runWithRetries[T any](ctx context.Context, policy Policy, body func(ctx context.Context) (T, error)) (T, error) {
	var eb backoff.BackOff
	if policy.Backoff == "exponential" {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = policy.Delay
		exp.MaxElapsedTime = 0
		eb = exp
	} else {
		eb = backoff.NewConstantBackOff(policy.Delay)
	}

	var lastErr error
	for attempt := 0; attempt <= policy.Retries; attempt++ {
		out, err := body(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == policy.Retries {
			break
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-time.After(eb.NextBackOff()):
		}
	}

	var zero T
	return zero, lastErr
}

func (k *Kernel) persistSuccess(ctx context.Context, stepName string, out any) {
	payload, err := json.Marshal(out)
	if err != nil {
		log.Printf("step %s: failed to marshal output for persistence: %v", stepName, err)
		payload = []byte("null")
	}
	if err := k.log.Save(ctx, &repositories.StepRecord{
		WorkflowID:  k.workflowID,
		StepName:    stepName,
		Status:      repositories.StepSucceeded,
		OutputJSON:  payload,
		CompletedAt: time.Now(),
	}); err != nil {
		log.Printf("step %s: failed to persist success record: %v", stepName, err)
	}
}

func (k *Kernel) persistFailure(ctx context.Context, stepName string, cause error) {
	if err := k.log.Save(ctx, &repositories.StepRecord{
		WorkflowID:   k.workflowID,
		StepName:     stepName,
		Status:       repositories.StepFailed,
		ErrorMessage: cause.Error(),
		CompletedAt:  time.Now(),
	}); err != nil {
		log.Printf("step %s: failed to persist failure record: %v", stepName, err)
	}
}
