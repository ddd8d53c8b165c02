package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	RunsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockcrew_runs_started_total",
			Help: "Total number of analysis runs started",
		},
	)

	RunsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockcrew_runs_finished_total",
			Help: "Total number of analysis runs finished",
		},
		[]string{"status"}, // status: completed|failed|rejected
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockcrew_run_duration_seconds",
			Help:    "End-to-end analysis run duration in seconds",
			Buckets: []float64{30, 60, 120, 300, 600, 900, 1800, 3600},
		},
	)

	StageExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockcrew_stage_executions_total",
			Help: "Total number of pipeline stage executions",
		},
		[]string{"stage", "status"}, // status: success|error
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockcrew_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	ConfirmationWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockcrew_confirmation_wait_seconds",
			Help:    "Time spent waiting for the operator at the report gate",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockcrew_agent_calls_total",
			Help: "Total number of LLM calls made by agents",
		},
		[]string{"provider", "model", "status"}, // status: success|error|rate_limited
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockcrew_agent_latency_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "model"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockcrew_agent_tokens_total",
			Help: "Total tokens used by agents",
		},
		[]string{"provider", "model", "type"}, // type: prompt|completion
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockcrew_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error|cache_hit
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockcrew_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockcrew_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockcrew_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockcrew_kafka_messages_total",
			Help: "Total Kafka messages produced/consumed",
		},
		[]string{"topic", "direction", "status"}, // direction: produced|consumed
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockcrew_websocket_connections",
			Help: "Current number of UI websocket subscribers",
		},
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RunsStarted,
			RunsFinished,
			RunDuration,
			StageExecutions,
			StageDuration,
			ConfirmationWait,

			AgentCalls,
			AgentLatency,
			AgentTokens,

			ToolExecutions,
			ToolLatency,

			DBQueries,
			DBQueryDuration,

			KafkaMessages,
			WebSocketConnections,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordStage records one pipeline stage execution
func RecordStage(stage string, duration time.Duration, err error) {
	StageExecutions.WithLabelValues(stage, status(err)).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRunFinished records the terminal status of a run
func RecordRunFinished(runStatus string, duration time.Duration) {
	RunsFinished.WithLabelValues(runStatus).Inc()
	RunDuration.Observe(duration.Seconds())
}

// RecordAgentCall records an LLM invocation
func RecordAgentCall(provider, model string, latency time.Duration, promptTokens, completionTokens int, err error) {
	AgentCalls.WithLabelValues(provider, model, status(err)).Inc()
	AgentLatency.WithLabelValues(provider, model).Observe(latency.Seconds())

	if promptTokens > 0 {
		AgentTokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		AgentTokens.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordRateLimited counts an LLM call rejected by the local limiter
func RecordRateLimited(provider, model string) {
	AgentCalls.WithLabelValues(provider, model, "rate_limited").Inc()
}

// RecordToolExecution records a tool execution; failed reports a Fail result
func RecordToolExecution(tool string, latency time.Duration, failed bool) {
	s := "success"
	if failed {
		s = "error"
	}
	ToolExecutions.WithLabelValues(tool, s).Inc()
	ToolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordToolCacheHit records a tool call served from the cache
func RecordToolCacheHit(tool string) {
	ToolExecutions.WithLabelValues(tool, "cache_hit").Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	DBQueries.WithLabelValues(database, operation, status(err)).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordKafkaMessage records a produced or consumed message
func RecordKafkaMessage(topic, direction string, err error) {
	KafkaMessages.WithLabelValues(topic, direction, status(err)).Inc()
}
