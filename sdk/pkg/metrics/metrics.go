package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/logger"
)

// 压测过程计数器；结果工件只来自 harness 自己的计数，这里纯粹是观测面
var (
	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchmark_messages_published_total",
		Help: "Total number of messages successfully published.",
	}, []string{"broker", "worker_id"})

	PublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchmark_publish_errors_total",
		Help: "Total number of publish attempts the broker rejected.",
	}, []string{"broker", "worker_id"})

	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchmark_messages_received_total",
		Help: "Total number of in-window data messages tallied.",
	}, []string{"broker", "subscriber_id"})
)

// Serve 暴露 /metrics，阻塞运行；配置了地址时由调用方在独立 goroutine 启动
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Infof("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics server error: %v", err)
	}
}
