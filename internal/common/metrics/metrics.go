package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_requests_total",
			Help: "Questions received, by entry point and outcome",
		},
		[]string{"entrypoint", "outcome"},
	)

	AnswerPaths = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_answer_path_total",
			Help: "Answers produced, by routing path",
		},
		[]string{"path"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askora_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	CompletionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_completion_attempts_total",
			Help: "Generative completion attempts, by outcome",
		},
		[]string{"outcome"},
	)

	SearchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_search_results_total",
			Help: "Raw results returned per search provider",
		},
		[]string{"provider"},
	)

	SearchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_search_failures_total",
			Help: "Search provider failures absorbed as zero results",
		},
		[]string{"provider"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askora_cache_lookups_total",
			Help: "Answer cache lookups, by result",
		},
		[]string{"result"},
	)

	ContractViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "askora_contract_violations_total",
			Help: "Assembled answers failing the output schema",
		},
	)

	WorkerJobsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_handled_total",
			Help: "Total number of jobs handed to a worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
