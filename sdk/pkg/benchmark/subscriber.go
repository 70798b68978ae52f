package benchmark

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/broker"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/logger"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/metrics"
)

// SubscriberOptions 订阅端压测参数
type SubscriberOptions struct {
	Channel    string
	BrokerType string
	BatchID    string
	ReplicaID  string

	// NoSignalTimeout 内未观察到开始令牌则合成空窗口，避免永久挂起
	NoSignalTimeout time.Duration
	// RunTimeout 为压测时长加余量；RUNNING 超过该时长则以当前时间收口
	RunTimeout time.Duration
	// PumpBudget 每轮 ProcessMessages 的时间预算，保持进程可响应
	PumpBudget time.Duration
}

// Subscriber 长驻监听者：连接一次、订阅一次、反复泵取，
// 从线上观察到的控制令牌推导基准窗口并统计窗口内的数据消息
type Subscriber struct {
	opts     SubscriberOptions
	broker   broker.Broker
	recorder *Recorder // 可为 nil（不落盘）

	window *Window
	tally  atomic.Uint64
}

// NewSubscriber 创建订阅压测
func NewSubscriber(opts SubscriberOptions, b broker.Broker, recorder *Recorder) *Subscriber {
	if opts.PumpBudget <= 0 {
		opts.PumpBudget = 100 * time.Millisecond
	}
	if opts.NoSignalTimeout <= 0 {
		opts.NoSignalTimeout = 120 * time.Second
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 90 * time.Second
	}
	return &Subscriber{
		opts:     opts,
		broker:   b,
		recorder: recorder,
		window:   NewWindow(),
	}
}

// handleMessage 状态机按收到的每条消息推进
// 与令牌字面量相同的数据载荷会被当作控制信号（协议既有限制）
func (s *Subscriber) handleMessage(channel string, payload []byte) {
	switch string(payload) {
	case StartToken:
		if s.window.MarkStart(time.Now()) {
			logger.Infof("benchmark window opened on channel %s", channel)
		}
	case EndToken:
		if s.window.MarkEnd(time.Now()) {
			logger.Infof("benchmark window closed on channel %s, received %d messages", channel, s.tally.Load())
		}
	default:
		// 窗口外（IDLE/ENDED）的数据消息一律丢弃，不计数
		if s.window.State() == StateRunning {
			s.tally.Add(1)
			metrics.MessagesReceived.WithLabelValues(s.opts.BrokerType, s.opts.ReplicaID).Inc()
		}
	}
}

// Run 连接、订阅并泵取消息直到窗口关闭，产出唯一一条订阅端记录
// 建连/订阅失败直接返回错误，重试策略属于外部编排
func (s *Subscriber) Run(ctx context.Context) (*Record, error) {
	if err := s.broker.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.broker.Name(), err)
	}
	if err := s.broker.Subscribe(ctx, s.opts.Channel, s.handleMessage); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.opts.Channel, err)
	}

	logger.Infof("subscriber %s ready on channel %s, waiting for benchmark window", s.opts.ReplicaID, s.opts.Channel)

	started := time.Now()
	for {
		s.broker.ProcessMessages(s.opts.PumpBudget)

		state := s.window.State()
		if state == StateEnded {
			break
		}

		now := time.Now()
		if ctx.Err() != nil {
			// 取消按超时收口处理，仍然产出有效记录
			if state == StateRunning {
				s.window.MarkEnd(now)
			} else if s.window.Synthesize(now) {
				logger.Warn("context cancelled before start token, emitting empty window")
			}
			break
		}

		if state == StateIdle && now.Sub(started) >= s.opts.NoSignalTimeout {
			if s.window.Synthesize(now) {
				logger.Warnf("no start token within %v, emitting empty window", s.opts.NoSignalTimeout)
				break
			}
			// 合成与开始令牌竞争失败，窗口已经打开，继续泵取
			continue
		}

		if state == StateRunning {
			start, _ := s.window.Bounds()
			if now.Sub(start) >= s.opts.RunTimeout {
				if s.window.MarkEnd(now) {
					logger.Warnf("run timeout %v elapsed, closing window at current time", s.opts.RunTimeout)
				}
				break
			}
		}
	}

	rec := s.buildRecord()

	if s.recorder != nil {
		// 落盘失败只记日志：本进程自己报告的结果仍以内存记录为准
		if path, err := s.recorder.Write(rec); err != nil {
			logger.Errorf("failed to persist result artifact: %v", err)
		} else {
			logger.Infof("result artifact written to %s", path)
		}
	}

	return rec, nil
}

// Tally 返回窗口内统计到的数据消息数
func (s *Subscriber) Tally() uint64 {
	return s.tally.Load()
}

func (s *Subscriber) buildRecord() *Record {
	return NewSubscriberRecord(s.opts.BrokerType, s.opts.BatchID, s.opts.ReplicaID, Hostname(),
		s.tally.Load(), s.window.Elapsed())
}
