package broker

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/go-redis/redis/v9"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/config"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/logger"
)

// redisBroker Redis pub/sub 实现（轮询型）
// 发布是同步的 PUBLISH 往返；订阅走第二条独立连接，由 ProcessMessages 主动收取。
// 同步往返对延迟敏感，连接建立时关闭小包合并并放大套接字缓冲区
type redisBroker struct {
	cfg    *config.RedisConfig
	client *redis.Client
	pubsub *redis.PubSub

	mu       sync.RWMutex
	handlers map[string]MessageHandler

	// 管道缓冲（可选，PipelineSize > 0 时启用）
	pipe    redis.Pipeliner
	pending int

	connected bool
}

// NewRedisBroker 创建 Redis 实现
func NewRedisBroker(cfg *config.RedisConfig) Broker {
	return &redisBroker{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
	}
}

// Connect 建立发布连接并验证连通性
func (b *redisBroker) Connect(ctx context.Context) error {
	b.client = redis.NewClient(&redis.Options{
		Addr:         b.cfg.Addr(),
		DialTimeout:  b.cfg.DialTimeout,
		ReadTimeout:  b.cfg.ReadTimeout,
		WriteTimeout: b.cfg.WriteTimeout,
		Dialer:       b.dialTuned,
	})

	if err := b.client.Ping(ctx).Err(); err != nil {
		_ = b.client.Close()
		b.client = nil
		return err
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()

	logger.Infof("connected to redis at %s", b.cfg.Addr())
	return nil
}

// dialTuned 建连后调整套接字参数
func (b *redisBroker) dialTuned(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: b.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		if b.cfg.SocketBuffer > 0 {
			_ = tc.SetReadBuffer(b.cfg.SocketBuffer)
			_ = tc.SetWriteBuffer(b.cfg.SocketBuffer)
		}
	}
	return conn, nil
}

// Disconnect 释放发布连接与订阅连接
func (b *redisBroker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub != nil {
		_ = b.pubsub.Close()
		b.pubsub = nil
	}
	if b.client != nil {
		_ = b.client.Close()
		b.client = nil
	}
	b.connected = false
	b.handlers = make(map[string]MessageHandler)
}

func (b *redisBroker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Publish 发布一条消息
// 默认逐条同步往返；启用管道时先入缓冲，由 Flush 统一执行
func (b *redisBroker) Publish(ctx context.Context, channel string, payload []byte) bool {
	if !b.IsConnected() {
		return false
	}

	if b.cfg.PipelineSize > 0 {
		if b.pipe == nil {
			b.pipe = b.client.Pipeline()
		}
		b.pipe.Publish(ctx, channel, payload)
		b.pending++
		if b.pending >= b.cfg.PipelineSize {
			b.Flush()
		}
		return true
	}

	return b.client.Publish(ctx, channel, payload).Err() == nil
}

// Flush 执行管道中缓冲的命令并回收应答；未启用管道时为空操作
func (b *redisBroker) Flush() {
	if b.pipe == nil || b.pending == 0 {
		return
	}
	if _, err := b.pipe.Exec(context.Background()); err != nil {
		logger.Errorf("redis pipeline exec failed: %v", err)
	}
	b.pending = 0
}

// Subscribe 在独立连接上订阅，并同步等待订阅确认
func (b *redisBroker) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return errors.New("redis broker is not connected")
	}

	if b.pubsub == nil {
		b.pubsub = b.client.Subscribe(ctx, channel)
	} else if err := b.pubsub.Subscribe(ctx, channel); err != nil {
		return err
	}

	// 等待 SUBSCRIBE 确认
	reply, err := b.pubsub.ReceiveTimeout(ctx, b.cfg.DialTimeout)
	if err != nil {
		return err
	}
	if _, ok := reply.(*redis.Subscription); !ok {
		// 确认之前已有消息到达也算订阅成功，直接分发
		// 已持有写锁，就地查表而不是走 dispatch
		if msg, ok := reply.(*redis.Message); ok {
			if h := b.handlers[msg.Channel]; h != nil {
				h(msg.Channel, []byte(msg.Payload))
			}
		}
	}

	b.handlers[channel] = handler
	logger.Infof("subscribed to redis channel %s", channel)
	return nil
}

// Unsubscribe 取消订阅
func (b *redisBroker) Unsubscribe(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub != nil {
		if err := b.pubsub.Unsubscribe(context.Background(), channel); err != nil {
			logger.Errorf("redis unsubscribe from %s failed: %v", channel, err)
		}
	}
	delete(b.handlers, channel)
}

// ProcessMessages 在时间预算内循环收取并分发消息
// 读超时表示暂无数据，正常退出；其他错误记日志后退出循环
func (b *redisBroker) ProcessMessages(budget time.Duration) {
	b.mu.RLock()
	pubsub := b.pubsub
	b.mu.RUnlock()
	if pubsub == nil {
		return
	}

	deadline := time.Now().Add(budget)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}

		reply, err := pubsub.ReceiveTimeout(context.Background(), remaining)
		if err != nil {
			if isTimeout(err) {
				return
			}
			logger.Errorf("redis receive failed: %v", err)
			return
		}

		switch m := reply.(type) {
		case *redis.Message:
			b.dispatch(m.Channel, []byte(m.Payload))
		case *redis.Subscription:
			// 订阅/退订确认，忽略
		case *redis.Pong:
		}
	}
}

func (b *redisBroker) dispatch(channel string, payload []byte) {
	b.mu.RLock()
	handler := b.handlers[channel]
	b.mu.RUnlock()
	if handler != nil {
		handler(channel, payload)
	}
}

func (b *redisBroker) Name() string {
	return "Redis"
}

// isTimeout 区分"暂无数据"与真正的 I/O 故障
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
