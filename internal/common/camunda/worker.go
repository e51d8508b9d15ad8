// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"time"

	"askora/internal/common/config"
	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/common/metrics"
	"askora/internal/common/validation"
	"askora/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// HandlerFunc is the Handle method every pipeline stage exposes.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// WorkerOptions are the resolved settings for one job type.
type WorkerOptions struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

// ResolveOptions merges the workers section of the config with the activity
// registry. An explicit worker timeout wins over the registry's.
func ResolveOptions(taskType string, cfg *config.Config, reg *registry.ActivityRegistry) WorkerOptions {
	wcfg := config.GetWorkerConfig(cfg, taskType)
	opts := WorkerOptions{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}
	if opts.MaxJobsActive <= 0 {
		opts.MaxJobsActive = cfg.Camunda.MaxJobsActive
	}
	if opts.MaxJobsActive <= 0 {
		opts.MaxJobsActive = 5
	}
	if _, explicit := cfg.Workers[taskType]; !explicit && reg != nil {
		if activity, ok := reg.Get(taskType); ok {
			opts.Timeout = activity.TimeoutDuration(opts.Timeout)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return opts
}

// Manager owns the open job workers.
type Manager struct {
	client  zbc.Client
	workers map[string]worker.JobWorker
	logger  logger.Logger
}

func NewManager(client zbc.Client, log logger.Logger) *Manager {
	return &Manager{
		client:  client,
		workers: make(map[string]worker.JobWorker),
		logger:  log,
	}
}

// Start opens a job worker for taskType. It reports false when the worker
// is disabled.
func (m *Manager) Start(taskType string, opts WorkerOptions, handler HandlerFunc) bool {
	if !opts.Enabled {
		m.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	m.workers[taskType] = m.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(Instrument(taskType, handler))).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Open()

	m.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout_ms":    opts.Timeout.Milliseconds(),
	})
	return true
}

// Running lists the task types with an open worker.
func (m *Manager) Running() []string {
	out := make([]string, 0, len(m.workers))
	for taskType := range m.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops every worker, waiting for in-flight jobs.
func (m *Manager) Close() {
	for taskType, w := range m.workers {
		m.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		w.AwaitClose()
	}
}

// Instrument records job count and duration around a handler.
func Instrument(taskType string, handler HandlerFunc) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		defer func() {
			metrics.WorkerJobsHandled.WithLabelValues(taskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		}()
		handler(client, job)
	}
}

// Validate checks job variables against the activity's input schema before
// the handler runs. Rejected jobs are reported as INVALID_INPUT.
func Validate(reg *registry.ActivityRegistry, taskType string, log logger.Logger, handler HandlerFunc) HandlerFunc {
	if reg == nil {
		return handler
	}
	activity, ok := reg.Get(taskType)
	if !ok || len(activity.InputSchema) == 0 {
		return handler
	}
	errorHandler := apperrors.NewErrorHandler(log.WithFields(map[string]interface{}{"taskType": taskType}))

	return func(client worker.JobClient, job entities.Job) {
		if err := validateJob(activity.InputSchema, job); err != nil {
			errorHandler.HandleJobError(context.Background(), client, job, err)
			return
		}
		handler(client, job)
	}
}

func validateJob(schema map[string]interface{}, job entities.Job) error {
	var vars interface{}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		return apperrors.NewInvalidInputError("variables are not JSON: " + err.Error())
	}
	if result := validation.ValidateDocument(schema, vars); !result.Valid {
		return apperrors.NewInvalidInputError(result.Error())
	}
	return nil
}
