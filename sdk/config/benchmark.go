package config

import "time"

// PublisherConfig 发布端基准配置
type PublisherConfig struct {
	Workers         int           `mapstructure:"workers"`         // 并发发布 worker 数
	DurationSeconds int           `mapstructure:"durationSeconds"` // 压测时长（秒）
	Channel         string        `mapstructure:"channel"`
	GraceDelay      time.Duration `mapstructure:"graceDelay"` // 开始令牌发出后的等待，让订阅端先观察到令牌
	NumSubscribers  int           `mapstructure:"numSubscribers"`
	ReplicaID       string        `mapstructure:"replicaId"`
}

// Duration 返回压测时长
func (c *PublisherConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// SubscriberConfig 订阅端基准配置
type SubscriberConfig struct {
	Channel   string `mapstructure:"channel"`
	ReplicaID string `mapstructure:"replicaId"`
	// NoSignalTimeout 内未观察到开始令牌则合成空窗口，保证进程不会无限等待
	NoSignalTimeout time.Duration `mapstructure:"noSignalTimeout"`
	// RunTimeoutMargin 叠加在压测时长之上，窗口超时未关闭时以当前时间收口
	RunTimeoutMargin time.Duration `mapstructure:"runTimeoutMargin"`
	PumpBudget       time.Duration `mapstructure:"pumpBudget"`
	// ExitAfterRun 为 true 时写完结果即退出；false 保持监听，可复用于下一轮压测
	ExitAfterRun bool `mapstructure:"exitAfterRun"`
}

// RecorderConfig 结果落盘配置
type RecorderConfig struct {
	Dir     string `mapstructure:"dir"`     // 共享结果目录，按批次分子目录
	BatchID string `mapstructure:"batchId"` // 为空时自动生成
}

// MetricsConfig Prometheus 指标暴露配置，Addr 为空则不启动
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	PublisherConfigInstance  = new(PublisherConfig)
	SubscriberConfigInstance = new(SubscriberConfig)
	RecorderConfigInstance   = new(RecorderConfig)
	MetricsConfigInstance    = new(MetricsConfig)
)
