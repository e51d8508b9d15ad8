package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"askora/internal/common/config"
	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/common/metrics"
	"askora/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Worker Option Tests
// ==========================

func TestResolveOptions(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	cfg := &config.Config{
		Camunda: config.CamundaConfig{MaxJobsActive: 7},
		Workers: map[string]config.WorkerConfig{
			"llm-synthesis": {Enabled: true, MaxJobsActive: 2, Timeout: 20000},
			"rank-sources":  {Enabled: false, MaxJobsActive: 3, Timeout: 1000},
		},
	}

	tests := []struct {
		taskType string
		want     WorkerOptions
	}{
		{"llm-synthesis", WorkerOptions{Enabled: true, MaxJobsActive: 2, Timeout: 20 * time.Second}},
		{"rank-sources", WorkerOptions{Enabled: false, MaxJobsActive: 3, Timeout: time.Second}},
		{"route-engine", WorkerOptions{Enabled: true, MaxJobsActive: 5, Timeout: 30 * time.Second}},
		{"enrich-web-search", WorkerOptions{Enabled: true, MaxJobsActive: 5, Timeout: 12 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.taskType, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveOptions(tt.taskType, cfg, reg))
		})
	}
}

func TestResolveOptions_WithoutRegistry(t *testing.T) {
	opts := ResolveOptions("unknown", &config.Config{}, nil)
	assert.True(t, opts.Enabled)
	assert.Equal(t, 5, opts.MaxJobsActive)
	assert.Equal(t, 30*time.Second, opts.Timeout)
}

// ==========================
// Retry Tests
// ==========================

func TestRetryWithBackoff(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		var retries []int
		err := retryWithBackoff(context.Background(), cfg, func() error {
			calls++
			if calls < 3 {
				return errors.New("rpc error: code = Unavailable desc = connection refused")
			}
			return nil
		}, func(attempt int, _ time.Duration, _ error) {
			retries = append(retries, attempt)
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retries)
	})

	t.Run("permanent error stops", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), cfg, func() error {
			calls++
			return errors.New("permission denied")
		}, nil)
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), cfg, func() error {
			calls++
			return errors.New("deadline exceeded")
		}, nil)
		require.Error(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		err := retryWithBackoff(ctx, slow, func() error { return errors.New("timeout") }, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoffDelay_IsCapped(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, backoffDelay(cfg, 0))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 2))
	assert.Equal(t, 5*time.Second, backoffDelay(cfg, 6))
}

func TestNewClientWithConfig_RequiresAddress(t *testing.T) {
	_, err := NewClientWithConfig(context.Background(), &ClientConfig{}, nil)
	assert.Error(t, err)
}

// ==========================
// Instrumentation Tests
// ==========================

func TestInstrument(t *testing.T) {
	const taskType = "instrument-test"
	called := false
	h := Instrument(taskType, func(worker.JobClient, entities.Job) { called = true })

	before := testutil.ToFloat64(metrics.WorkerJobsHandled.WithLabelValues(taskType))
	h(nil, entities.Job{})

	assert.True(t, called)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WorkerJobsHandled.WithLabelValues(taskType)))
}

// ==========================
// Input Validation Tests
// ==========================

func jobWithVariables(vars string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       1,
		Type:      "llm-synthesis",
		Retries:   3,
		Variables: vars,
	}}
}

func TestValidateJob(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	activity, ok := reg.Get("llm-synthesis")
	require.True(t, ok)

	tests := []struct {
		name    string
		vars    string
		wantErr bool
	}{
		{"valid", `{"question":"ما هو الثقب الأسود","intent":"define"}`, false},
		{"extra process variables", `{"question":"سؤال","processId":"p-1"}`, false},
		{"missing required field", `{"intent":"define"}`, true},
		{"wrong type", `{"question":42}`, true},
		{"not json", `{question`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateJob(activity.InputSchema, jobWithVariables(tt.vars))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
		})
	}
}

func TestValidate_PassesValidJobsThrough(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	called := false
	h := Validate(reg, "llm-synthesis", logger.NewNoOpLogger(), func(worker.JobClient, entities.Job) { called = true })
	h(nil, jobWithVariables(`{"question":"سؤال"}`))

	assert.True(t, called)
}

func TestValidate_UnknownTaskTypeIsUnwrapped(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	called := false
	h := Validate(reg, "not-registered", logger.NewNoOpLogger(), func(worker.JobClient, entities.Job) { called = true })
	h(nil, entities.Job{})

	assert.True(t, called)
}
