package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/broker"
)

func newTestSubscriber(b broker.Broker, opts SubscriberOptions) *Subscriber {
	if opts.Channel == "" {
		opts.Channel = "bench"
	}
	if opts.BrokerType == "" {
		opts.BrokerType = "memory"
	}
	if opts.BatchID == "" {
		opts.BatchID = "batch-sub"
	}
	if opts.ReplicaID == "" {
		opts.ReplicaID = "subscriber_1"
	}
	return NewSubscriber(opts, b, nil)
}

// TestSubscriber_WindowExclusion 测试窗口外的数据消息一律不计数
func TestSubscriber_WindowExclusion(t *testing.T) {
	s := newTestSubscriber(broker.NewMemoryHub().Client(), SubscriberOptions{})

	// IDLE 阶段的数据消息被丢弃
	s.handleMessage("bench", []byte("msg_0_0"))
	assert.Equal(t, uint64(0), s.Tally())

	s.handleMessage("bench", []byte(StartToken))
	s.handleMessage("bench", []byte("msg_0_1"))
	s.handleMessage("bench", []byte("msg_1_0"))
	assert.Equal(t, uint64(2), s.Tally())

	s.handleMessage("bench", []byte(EndToken))
	// ENDED 之后的数据消息同样被丢弃
	s.handleMessage("bench", []byte("msg_0_2"))
	assert.Equal(t, uint64(2), s.Tally())
}

// TestSubscriber_DuplicateTokens 测试重复令牌是空操作
func TestSubscriber_DuplicateTokens(t *testing.T) {
	s := newTestSubscriber(broker.NewMemoryHub().Client(), SubscriberOptions{})

	s.handleMessage("bench", []byte(StartToken))
	start1, _ := s.window.Bounds()

	time.Sleep(5 * time.Millisecond)
	s.handleMessage("bench", []byte(StartToken))
	start2, _ := s.window.Bounds()
	assert.Equal(t, start1, start2, "duplicate start must not move the window")

	s.handleMessage("bench", []byte("msg_0_0"))
	s.handleMessage("bench", []byte(EndToken))
	_, end1 := s.window.Bounds()

	time.Sleep(5 * time.Millisecond)
	s.handleMessage("bench", []byte(EndToken))
	_, end2 := s.window.Bounds()
	assert.Equal(t, end1, end2, "duplicate end must not move the window")
	assert.Equal(t, uint64(1), s.Tally())
}

// TestSubscriber_NoSignalLiveness 测试无开始令牌时合成空窗口而不是永久挂起
func TestSubscriber_NoSignalLiveness(t *testing.T) {
	b := broker.NewMemoryHub().Client()
	s := newTestSubscriber(b, SubscriberOptions{
		NoSignalTimeout: 60 * time.Millisecond,
		RunTimeout:      time.Second,
		PumpBudget:      10 * time.Millisecond,
	})

	done := make(chan *Record, 1)
	go func() {
		rec, err := s.Run(context.Background())
		assert.NoError(t, err)
		done <- rec
	}()

	select {
	case rec := <-done:
		require.NotNil(t, rec)
		require.NotNil(t, rec.MessagesReceived)
		assert.Equal(t, uint64(0), *rec.MessagesReceived)
		assert.Equal(t, float64(0), rec.ThroughputMsgPerSec)
		assert.Equal(t, int64(0), rec.DurationUs)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber hung waiting for a start token that never arrives")
	}
}

// TestSubscriber_RunTimeoutClosesWindow 测试 RUNNING 超时后以当前时间收口
func TestSubscriber_RunTimeoutClosesWindow(t *testing.T) {
	hub := broker.NewMemoryHub()
	b := hub.Client()
	s := newTestSubscriber(b, SubscriberOptions{
		NoSignalTimeout: time.Second,
		RunTimeout:      80 * time.Millisecond,
		PumpBudget:      10 * time.Millisecond,
	})

	done := make(chan *Record, 1)
	go func() {
		rec, err := s.Run(context.Background())
		assert.NoError(t, err)
		done <- rec
	}()

	// 等订阅就绪后只发开始令牌和数据，不发结束令牌
	time.Sleep(30 * time.Millisecond)
	pubClient := hub.Client()
	require.NoError(t, pubClient.Connect(context.Background()))
	defer pubClient.Disconnect()
	assert.True(t, pubClient.Publish(context.Background(), "bench", []byte(StartToken)))
	assert.True(t, pubClient.Publish(context.Background(), "bench", []byte("msg_0_0")))

	select {
	case rec := <-done:
		require.NotNil(t, rec)
		require.NotNil(t, rec.MessagesReceived)
		assert.Equal(t, uint64(1), *rec.MessagesReceived)
		assert.GreaterOrEqual(t, rec.DurationMs, int64(80))
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not close the window after run timeout")
	}
}

// failingBroker 建连即失败的桩实现
type failingBroker struct {
	broker.Broker
	err error
}

func (f *failingBroker) Connect(ctx context.Context) error { return f.err }

func (f *failingBroker) Name() string { return "Failing" }

// TestSubscriber_ConnectError 测试建连失败直接报错，不重试
func TestSubscriber_ConnectError(t *testing.T) {
	wantErr := errors.New("connection refused")
	s := newTestSubscriber(&failingBroker{err: wantErr}, SubscriberOptions{
		NoSignalTimeout: 50 * time.Millisecond,
		PumpBudget:      10 * time.Millisecond,
	})

	rec, err := s.Run(context.Background())
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, wantErr)
}

// TestScenario_FanOut 端到端：3个发布worker压1秒级窗口，
// 单订阅者在同一通道上统计到的消息数应接近聚合发布数
func TestScenario_FanOut(t *testing.T) {
	hub := broker.NewMemoryHub()

	sub := newTestSubscriber(hub.Client(), SubscriberOptions{
		NoSignalTimeout: 2 * time.Second,
		RunTimeout:      5 * time.Second,
		PumpBudget:      10 * time.Millisecond,
	})

	subDone := make(chan *Record, 1)
	go func() {
		rec, err := sub.Run(context.Background())
		assert.NoError(t, err)
		subDone <- rec
	}()

	// 等订阅就绪再启动发布端
	time.Sleep(30 * time.Millisecond)

	pub := NewPublisher(PublisherOptions{
		Workers:        3,
		Duration:       200 * time.Millisecond,
		Channel:        "bench",
		GraceDelay:     20 * time.Millisecond,
		NumSubscribers: 1,
		BrokerType:     "memory",
		BatchID:        "batch-e2e",
		ReplicaID:      "publisher_1",
	}, func() (broker.Broker, error) { return hub.Client(), nil })

	pubRec, err := pub.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pubRec.MessagesPublished)
	total := *pubRec.MessagesPublished
	assert.Greater(t, total, uint64(0))

	select {
	case subRec := <-subDone:
		require.NotNil(t, subRec)
		require.NotNil(t, subRec.MessagesReceived)
		received := *subRec.MessagesReceived
		// 开始令牌之前抢跑的少量数据消息不计数，统计值不超过聚合发布数
		assert.LessOrEqual(t, received, total)
		assert.Greater(t, received, total/2, "received %d of %d published", received, total)
		assert.Greater(t, subRec.ThroughputMsgPerSec, float64(0))
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber never observed the end token")
	}
}
