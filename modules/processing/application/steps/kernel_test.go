package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infrarepos "github.com/sesamyab/audiopipeline/modules/processing/infrastructure/repositories"
)

type fooOutput struct {
	Value int `json:"value"`
}

func TestKernel_Do_RunsOnceThenReplaysFromLog(t *testing.T) {
	repo := infrarepos.NewMemoryStepLogRepository()
	calls := 0
	body := func(ctx context.Context) (fooOutput, error) {
		calls++
		return fooOutput{Value: 42}, nil
	}

	k1 := NewKernel("wf-1", repo)
	out, err := Do(context.Background(), k1, "compute", Policy{Timeout: time.Second}, body)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, 1, calls)

	// Simulate a restart: a fresh Kernel bound to the same log repository.
	k2 := NewKernel("wf-1", repo)
	out2, err := Do(context.Background(), k2, "compute", Policy{Timeout: time.Second}, body)
	require.NoError(t, err)
	assert.Equal(t, 42, out2.Value)
	assert.Equal(t, 1, calls, "body must not re-run for a step already recorded as succeeded")
}

func TestKernel_Do_RetriesThenSucceeds(t *testing.T) {
	repo := infrarepos.NewMemoryStepLogRepository()
	attempts := 0
	body := func(ctx context.Context) (fooOutput, error) {
		attempts++
		if attempts < 3 {
			return fooOutput{}, errors.New("transient")
		}
		return fooOutput{Value: 7}, nil
	}

	k := NewKernel("wf-2", repo)
	out, err := Do(context.Background(), k, "flaky", Policy{Retries: 3, Delay: time.Millisecond}, body)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Value)
	assert.Equal(t, 3, attempts)
}

func TestKernel_Do_ExhaustsRetriesAndWrapsStepError(t *testing.T) {
	repo := infrarepos.NewMemoryStepLogRepository()
	sentinel := errors.New("permanent failure")
	body := func(ctx context.Context) (fooOutput, error) {
		return fooOutput{}, sentinel
	}

	k := NewKernel("wf-3", repo)
	_, err := Do(context.Background(), k, "broken", Policy{Retries: 2, Delay: time.Millisecond}, body)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)

	rec, err := repo.Find(context.Background(), "wf-3", "broken")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "failed", string(rec.Status))
}
