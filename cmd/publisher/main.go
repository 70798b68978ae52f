package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/config"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/benchmark"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/broker"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/json"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/metrics"
)

// 发布端压测入口
// 建连失败直接非零退出，不重试；重启策略属于外部编排
func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config yaml (optional)")
	flag.Parse()

	if err := config.Setup(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup()

	if addr := config.MetricsConfigInstance.Addr; addr != "" {
		go metrics.Serve(addr)
	}

	brokerCfg := config.BrokerConfigInstance
	pubCfg := config.PublisherConfigInstance
	recCfg := config.RecorderConfigInstance

	batchID := recCfg.BatchID
	if batchID == "" {
		batchID = benchmark.NewBatchID()
	}

	factory := func() (broker.Broker, error) {
		return broker.New(brokerCfg)
	}
	// 工厂提前验证一次代理类型，未知类型立即失败
	if _, err := broker.New(brokerCfg); err != nil {
		logger.Errorf("invalid broker config: %v", err)
		os.Exit(1)
	}

	pub := benchmark.NewPublisher(benchmark.PublisherOptions{
		Workers:        pubCfg.Workers,
		Duration:       pubCfg.Duration(),
		Channel:        pubCfg.Channel,
		GraceDelay:     pubCfg.GraceDelay,
		NumSubscribers: pubCfg.NumSubscribers,
		BrokerType:     brokerCfg.Type,
		BatchID:        batchID,
		ReplicaID:      pubCfg.ReplicaID,
	}, factory)

	rec, err := pub.Run(context.Background())
	if err != nil {
		logger.Errorf("publisher benchmark failed: %v", err)
		os.Exit(1)
	}

	// 结果JSON打到stdout，供编排侧采集
	if data, err := json.MarshalIndent(rec, "", "  "); err == nil {
		fmt.Println(string(data))
	}

	// 落盘失败非致命，打印的结果仍是本进程的权威输出
	recorder := benchmark.NewRecorder(recCfg.Dir)
	if path, err := recorder.Write(rec); err != nil {
		logger.Errorf("failed to persist publisher record: %v", err)
	} else {
		logger.Infof("publisher record written to %s", path)
	}
}
