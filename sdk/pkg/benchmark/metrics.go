package benchmark

import (
	"time"
)

// RunConfig 发布端记录内嵌的压测配置
type RunConfig struct {
	NumPublishers          int `json:"num_publishers"`
	NumSubscribers         int `json:"num_subscribers"`
	PublishDurationSeconds int `json:"publish_duration_seconds"`
}

// Results 发布端记录内嵌的计算结果镜像
type Results struct {
	MessagesPublished         uint64  `json:"messages_published"`
	DurationMs                int64   `json:"duration_ms"`
	ThroughputMsgPerSec       float64 `json:"throughput_msg_per_sec"`
	AvgThroughputPerPublisher float64 `json:"avg_throughput_per_publisher"`
}

// Record 一次压测的度量记录，构造后不再修改
// 计数字段按角色二选一；发布端额外内嵌 config 与 results
type Record struct {
	BatchID    string `json:"batch_id"`
	BrokerType string `json:"broker_type"`
	Role       string `json:"role"`
	ReplicaID  string `json:"replica_id"`
	Host       string `json:"host"`
	Timestamp  string `json:"timestamp"`

	MessagesPublished *uint64 `json:"messages_published,omitempty"`
	MessagesReceived  *uint64 `json:"messages_received,omitempty"`

	DurationUs          int64   `json:"duration_us"`
	DurationMs          int64   `json:"duration_ms"`
	ThroughputMsgPerSec float64 `json:"throughput_msg_per_sec"`

	Config  *RunConfig `json:"config,omitempty"`
	Results *Results   `json:"results,omitempty"`
}

// Throughput 吞吐量 = 计数 / 秒
// 时长小于等于 0 时定义为 0，绝不触发除零
func Throughput(count uint64, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(count) / secs
}

// NewPublisherRecord 构造发布端记录并计算派生指标
func NewPublisherRecord(brokerType, batchID, replicaID, host string, count uint64, elapsed time.Duration, cfg RunConfig) *Record {
	throughput := Throughput(count, elapsed)

	avg := float64(0)
	if cfg.NumPublishers > 0 {
		avg = throughput / float64(cfg.NumPublishers)
	}

	published := count
	return &Record{
		BatchID:             batchID,
		BrokerType:          brokerType,
		Role:                RolePublisher,
		ReplicaID:           replicaID,
		Host:                host,
		Timestamp:           time.Now().Format(timestampLayout),
		MessagesPublished:   &published,
		DurationUs:          elapsed.Microseconds(),
		DurationMs:          elapsed.Milliseconds(),
		ThroughputMsgPerSec: throughput,
		Config:              &cfg,
		Results: &Results{
			MessagesPublished:         count,
			DurationMs:                elapsed.Milliseconds(),
			ThroughputMsgPerSec:       throughput,
			AvgThroughputPerPublisher: avg,
		},
	}
}

// NewSubscriberRecord 构造订阅端记录并计算派生指标
func NewSubscriberRecord(brokerType, batchID, replicaID, host string, count uint64, elapsed time.Duration) *Record {
	received := count
	return &Record{
		BatchID:             batchID,
		BrokerType:          brokerType,
		Role:                RoleSubscriber,
		ReplicaID:           replicaID,
		Host:                host,
		Timestamp:           time.Now().Format(timestampLayout),
		MessagesReceived:    &received,
		DurationUs:          elapsed.Microseconds(),
		DurationMs:          elapsed.Milliseconds(),
		ThroughputMsgPerSec: Throughput(count, elapsed),
	}
}
