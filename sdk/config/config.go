package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config 顶层配置结构
type Config struct {
	Logger     *Logger           `mapstructure:"logger"`
	Broker     *BrokerConfig     `mapstructure:"broker"`
	Publisher  *PublisherConfig  `mapstructure:"publisher"`
	Subscriber *SubscriberConfig `mapstructure:"subscriber"`
	Recorder   *RecorderConfig   `mapstructure:"recorder"`
	Metrics    *MetricsConfig    `mapstructure:"metrics"`
}

var AppConfig = &Config{
	Logger:     LoggerConfig,
	Broker:     BrokerConfigInstance,
	Publisher:  PublisherConfigInstance,
	Subscriber: SubscriberConfigInstance,
	Recorder:   RecorderConfigInstance,
	Metrics:    MetricsConfigInstance,
}

// Setup 加载配置：默认值 -> 配置文件（可选） -> 环境变量覆盖
// 配置文件缺失只告警不中断，容器编排注入的环境变量仍然生效
func Setup(configYml string) error {
	v := viper.New()

	setDefaults(v)
	bindEnvs(v)

	if configYml != "" {
		v.SetConfigFile(configYml)
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read config file %s: %v\n", configYml, err)
		}
	}

	if err := v.Unmarshal(AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.path", "")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.stdout", true)
	v.SetDefault("logger.maxSize", 50)
	v.SetDefault("logger.infoMaxAge", 3)
	v.SetDefault("logger.errorMaxAge", 14)
	v.SetDefault("logger.maxBackups", 20)

	v.SetDefault("broker.type", "redis")
	v.SetDefault("broker.redis.host", "localhost")
	v.SetDefault("broker.redis.port", 6379)
	v.SetDefault("broker.redis.dialTimeout", "5s")
	v.SetDefault("broker.redis.readTimeout", "3s")
	v.SetDefault("broker.redis.writeTimeout", "3s")
	v.SetDefault("broker.redis.socketBuffer", 1<<20)
	v.SetDefault("broker.redis.pipelineSize", 0)
	v.SetDefault("broker.nats.url", "nats://localhost:4222")
	v.SetDefault("broker.nats.connectionTimeout", "5s")
	v.SetDefault("broker.nats.maxReconnects", 0)
	v.SetDefault("broker.nats.reconnectWait", "0s")

	v.SetDefault("publisher.workers", 10)
	v.SetDefault("publisher.durationSeconds", 60)
	v.SetDefault("publisher.channel", "benchmark_channel")
	v.SetDefault("publisher.graceDelay", "100ms")
	v.SetDefault("publisher.numSubscribers", 0)
	v.SetDefault("publisher.replicaId", "publisher_1")

	v.SetDefault("subscriber.channel", "benchmark_channel")
	v.SetDefault("subscriber.replicaId", "subscriber_1")
	v.SetDefault("subscriber.noSignalTimeout", "120s")
	v.SetDefault("subscriber.runTimeoutMargin", "30s")
	v.SetDefault("subscriber.pumpBudget", "100ms")
	v.SetDefault("subscriber.exitAfterRun", false)

	v.SetDefault("recorder.dir", "/data")
	v.SetDefault("recorder.batchId", "")

	v.SetDefault("metrics.addr", "")
}

// bindEnvs 绑定容器编排注入的环境变量（与原部署保持同名）
func bindEnvs(v *viper.Viper) {
	_ = v.BindEnv("broker.type", "BROKER_TYPE")
	_ = v.BindEnv("broker.redis.host", "REDIS_HOST")
	_ = v.BindEnv("broker.redis.port", "REDIS_PORT")
	_ = v.BindEnv("broker.nats.url", "NATS_URL")
	_ = v.BindEnv("publisher.workers", "NUM_PUBLISHERS")
	_ = v.BindEnv("publisher.durationSeconds", "PUBLISH_DURATION_SECONDS")
	_ = v.BindEnv("publisher.numSubscribers", "NUM_SUBSCRIBERS")
	_ = v.BindEnv("subscriber.replicaId", "SUBSCRIBER_ID")
	_ = v.BindEnv("recorder.dir", "RESULTS_DIR")
	_ = v.BindEnv("recorder.batchId", "BATCH_ID")
	_ = v.BindEnv("metrics.addr", "METRICS_ADDR")
}
