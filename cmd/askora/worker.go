// cmd/askora/worker.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"askora/internal/common/camunda"
	"askora/internal/common/logger"
	"askora/pkg/registry"

	enrichwebsearch "askora/internal/workers/ai-conversation/enrich-web-search"
	evaluateconfidence "askora/internal/workers/ai-conversation/evaluate-confidence"
	llmsynthesis "askora/internal/workers/ai-conversation/llm-synthesis"
	normalizeinput "askora/internal/workers/ai-conversation/normalize-input"
	parseuserintent "askora/internal/workers/ai-conversation/parse-user-intent"
	queryinternaldata "askora/internal/workers/ai-conversation/query-internal-data"
	ranksources "askora/internal/workers/ai-conversation/rank-sources"
	routeengine "askora/internal/workers/ai-conversation/route-engine"
	summarizesources "askora/internal/workers/ai-conversation/summarize-sources"
	buildanswer "askora/internal/workers/infrastructure/build-answer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var workerMetricsPort int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the pipeline stages as Camunda job workers",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerMetricsPort, "metrics-port", 8080, "port for /health and /metrics")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, flush := newLogger(cfg)
	defer flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Default()
	if err != nil {
		return fmt.Errorf("load activity registry: %w", err)
	}

	a, err := newApp(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	client, err := camunda.NewClient(ctx, cfg.Camunda.BrokerAddress, log)
	if err != nil {
		return err
	}
	defer client.Close()

	manager := camunda.NewManager(client.GetClient(), log)
	for taskType, handler := range a.stageHandlers(log) {
		manager.Start(taskType, camunda.ResolveOptions(taskType, cfg, reg), camunda.Validate(reg, taskType, log, handler))
	}
	defer manager.Close()

	running := manager.Running()
	sort.Strings(running)
	log.Info("workers running", map[string]interface{}{"count": len(running), "taskTypes": running})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", workerMetricsPort),
		Handler:           workerMux(client, running),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("shutting down workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// stageTaskTypes lists the job types this binary can serve.
var stageTaskTypes = []string{
	normalizeinput.TaskType,
	parseuserintent.TaskType,
	enrichwebsearch.TaskType,
	queryinternaldata.TaskType,
	ranksources.TaskType,
	llmsynthesis.TaskType,
	summarizesources.TaskType,
	evaluateconfidence.TaskType,
	buildanswer.TaskType,
	routeengine.TaskType,
}

// stageHandlers maps every task type in the activity registry to its handler.
func (a *app) stageHandlers(log logger.Logger) map[string]camunda.HandlerFunc {
	return map[string]camunda.HandlerFunc{
		normalizeinput.TaskType:     normalizeinput.NewHandler(normalizeinput.LoadConfig(), log).Handle,
		parseuserintent.TaskType:    parseuserintent.NewHandler(parseuserintent.LoadConfig(), log).Handle,
		enrichwebsearch.TaskType:    a.webSearch.Handle,
		queryinternaldata.TaskType:  a.knowledge.Handle,
		ranksources.TaskType:        ranksources.NewHandler(ranksources.LoadConfig(), log).Handle,
		llmsynthesis.TaskType:       a.completer.Handle,
		summarizesources.TaskType:   summarizesources.NewHandler(summarizesources.LoadConfig(), log).Handle,
		evaluateconfidence.TaskType: evaluateconfidence.NewHandler(evaluateconfidence.LoadConfig(), log).Handle,
		buildanswer.TaskType:        buildanswer.NewHandler(buildanswer.LoadConfig(), log).Handle,
		routeengine.TaskType:        routeengine.NewHandler(a.engineConfig(), a.engine, log).Handle,
	}
}

func workerMux(client *camunda.Client, running []string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := client.HealthCheck(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  status,
			"workers": running,
		})
	})
	return mux
}
