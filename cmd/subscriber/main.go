package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/config"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/benchmark"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/broker"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/json"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/metrics"
)

// 订阅端压测入口
// 建连/订阅失败直接非零退出，不重试；重启策略属于外部编排
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
	subCfg := config.SubscriberConfigInstance
	recCfg := config.RecorderConfigInstance

	batchID := recCfg.BatchID
	if batchID == "" {
		batchID = benchmark.NewBatchID()
	}

	b, err := broker.New(brokerCfg)
	if err != nil {
		logger.Errorf("invalid broker config: %v", err)
		os.Exit(1)
	}

	// 窗口超时 = 发布时长 + 余量
	runTimeout := config.PublisherConfigInstance.Duration() + subCfg.RunTimeoutMargin

	sub := benchmark.NewSubscriber(benchmark.SubscriberOptions{
		Channel:         subCfg.Channel,
		BrokerType:      brokerCfg.Type,
		BatchID:         batchID,
		ReplicaID:       subCfg.ReplicaID,
		NoSignalTimeout: subCfg.NoSignalTimeout,
		RunTimeout:      runTimeout,
		PumpBudget:      subCfg.PumpBudget,
	}, b, benchmark.NewRecorder(recCfg.Dir))

	rec, err := sub.Run(context.Background())
	if err != nil {
		logger.Errorf("subscriber benchmark failed: %v", err)
		os.Exit(1)
	}

	// 结果JSON打到stdout，供编排侧采集
	if data, err := json.MarshalIndent(rec, "", "  "); err == nil {
		fmt.Println(string(data))
	}

	if subCfg.ExitAfterRun {
		return
	}

	// 持续监听模式：记录已产出，进程保持泵取以便复用于下一轮压测
	logger.Info("benchmark results written, subscriber continues running")
	for {
		b.ProcessMessages(100 * time.Millisecond)
	}
}
