package benchmark

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/broker"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/metrics"
)

// BrokerFactory 为每个 worker 创建独占的代理连接
// 底层会话不支持并发使用，连接绝不跨 worker 共享
type BrokerFactory func() (broker.Broker, error)

// PublisherOptions 发布端压测参数
type PublisherOptions struct {
	Workers        int
	Duration       time.Duration
	Channel        string
	GraceDelay     time.Duration // 开始令牌发出后、洪峰开始前的固定等待
	NumSubscribers int
	BrokerType     string
	BatchID        string
	ReplicaID      string
}

// Publisher 多 worker 发布压测
// worker 0 是 leader，只有它发出控制令牌
type Publisher struct {
	opts    PublisherOptions
	factory BrokerFactory
}

// runState 单次 Run 的共享状态，按调用作用域传递而不是进程级全局量
type runState struct {
	total atomic.Uint64 // 各 worker 本地成功计数的汇总，relaxed 语义足够

	// startGate 在 leader 完成开场序列（开始令牌 + Flush + grace 等待）后关闭，
	// 所有 worker 的洪峰都阻塞在该门上，数据消息绝不先于开始令牌送出
	startGate chan struct{}
	gateOnce  sync.Once

	mu             sync.Mutex // 保护两个时间戳，只有 leader 写
	firstMessageAt time.Time
	lastMessageAt  time.Time
}

func (st *runState) openGate() {
	st.gateOnce.Do(func() { close(st.startGate) })
}

// NewPublisher 创建发布压测
func NewPublisher(opts PublisherOptions, factory BrokerFactory) *Publisher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.GraceDelay <= 0 {
		opts.GraceDelay = 100 * time.Millisecond
	}
	return &Publisher{opts: opts, factory: factory}
}

// Run 启动 P 个 worker 对共享截止时间发布洪峰，返回发布端记录
// 任一 worker 建连失败视为本次运行失败（不重试，由外部编排决定重启）
func (p *Publisher) Run(ctx context.Context) (*Record, error) {
	start := time.Now()
	deadline := start.Add(p.opts.Duration)
	state := &runState{startGate: make(chan struct{})}

	logger.Infof("starting publisher benchmark: %d workers, %v duration, channel %s",
		p.opts.Workers, p.opts.Duration, p.opts.Channel)

	var wg sync.WaitGroup
	errCh := make(chan error, p.opts.Workers)

	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if workerID == 0 {
				// leader 提前出错也要放行其余 worker，避免全员卡死在门上
				defer state.openGate()
			}

			b, err := p.factory()
			if err != nil {
				errCh <- err
				return
			}
			if err := b.Connect(ctx); err != nil {
				logger.Errorf("worker %d failed to connect: %v", workerID, err)
				errCh <- err
				return
			}
			defer b.Disconnect()

			p.runWorker(ctx, workerID, b, deadline, state)
		}(i)
	}

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	// leader 记录了开始令牌与结束令牌的时间戳时，以该窗口为准，
	// 剔除建连与收尾的墙钟噪声
	state.mu.Lock()
	if !state.firstMessageAt.IsZero() && state.lastMessageAt.After(state.firstMessageAt) {
		elapsed = state.lastMessageAt.Sub(state.firstMessageAt)
	}
	state.mu.Unlock()
	total := state.total.Load()

	rec := NewPublisherRecord(p.opts.BrokerType, p.opts.BatchID, p.opts.ReplicaID, Hostname(),
		total, elapsed, RunConfig{
			NumPublishers:          p.opts.Workers,
			NumSubscribers:         p.opts.NumSubscribers,
			PublishDurationSeconds: int(p.opts.Duration / time.Second),
		})

	logger.Infof("publisher benchmark complete: published %d messages in %v (%.2f msg/s)",
		total, elapsed, rec.ThroughputMsgPerSec)
	return rec, nil
}

// runWorker 单个 worker 的发布循环
func (p *Publisher) runWorker(ctx context.Context, workerID int, b broker.Broker, deadline time.Time, st *runState) {
	var published, seq uint64
	leader := workerID == 0
	workerLabel := strconv.Itoa(workerID)
	prefix := "msg_" + workerLabel + "_"

	// 标签解析放在洪峰循环之外，热路径上只剩一次 Inc
	okCounter := metrics.MessagesPublished.WithLabelValues(p.opts.BrokerType, workerLabel)
	failCounter := metrics.PublishErrors.WithLabelValues(p.opts.BrokerType, workerLabel)

	if leader {
		// 只有 leader 发控制令牌；立即 Flush 保证开始信号先行送出，
		// 再等一个固定的 grace 间隔让订阅端先观察到令牌，随后才放行洪峰
		b.Publish(ctx, p.opts.Channel, []byte(StartToken))
		b.Flush()

		st.mu.Lock()
		st.firstMessageAt = time.Now()
		st.mu.Unlock()

		time.Sleep(p.opts.GraceDelay)
		st.openGate()
	}

	// 所有 worker（含 leader）都等开场序列完成后才进入洪峰
	<-st.startGate

	for time.Now().Before(deadline) {
		payload := []byte(prefix + strconv.FormatUint(seq, 10))
		seq++
		if b.Publish(ctx, p.opts.Channel, payload) {
			published++
			okCounter.Inc()
		} else {
			// 发布失败只是不计数，循环不中断
			failCounter.Inc()
		}
	}

	b.Flush()

	if leader {
		b.Publish(ctx, p.opts.Channel, []byte(EndToken))
		b.Flush()

		st.mu.Lock()
		st.lastMessageAt = time.Now()
		st.mu.Unlock()
	}

	st.total.Add(published)
	logger.Debugf("worker %d finished, published %d messages", workerID, published)
}
