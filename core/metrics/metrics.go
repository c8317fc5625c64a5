// Package metrics 服务内部的 Prometheus 指标，使用独立的 Registry
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parlrag"

// Registry 所有指标注册在这里，/metrics 只暴露该 Registry
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// ChatTurns 按结果统计的对话轮次，status 为 ok 或 error
	ChatTurns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_turns_total",
		Help:      "Chat turns processed, by outcome.",
	}, []string{"status"})

	// AgentHops 每轮对话中 agent 节点的执行次数
	AgentHops = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "agent_hops",
		Help:      "Agent transitions per chat turn.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
	})

	ToolCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Tool calls dispatched by the agent, by tool name.",
	}, []string{"tool"})

	GradeDecisions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grade_decisions_total",
		Help:      "Relevance grading decisions, by decision.",
	}, []string{"decision"})

	IngestChunks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_chunks_total",
		Help:      "Chunks written to the vector index.",
	})

	IngestFailedFiles = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_failed_files_total",
		Help:      "Transcript files skipped because they could not be read or parsed.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler /metrics 的 HTTP 处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
