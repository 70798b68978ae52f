package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/config"
	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/logger"
)

// natsBroker NATS core 实现（推送型）
// 客户端库在自己的 I/O goroutine 上直接把消息投递进回调，
// ProcessMessages 因此只做有界让出
type natsBroker struct {
	cfg  *config.NATSConfig
	conn *nats.Conn

	mu            sync.Mutex
	subscriptions map[string]*nats.Subscription
}

// NewNATSBroker 创建 NATS 实现
func NewNATSBroker(cfg *config.NATSConfig) Broker {
	return &natsBroker{
		cfg:           cfg,
		subscriptions: make(map[string]*nats.Subscription),
	}
}

// Connect 连接 NATS 服务器
func (b *natsBroker) Connect(ctx context.Context) error {
	opts := buildNATSOptions(b.cfg)

	nc, err := nats.Connect(b.cfg.URL, opts...)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.conn = nc
	b.mu.Unlock()

	logger.Infof("connected to nats at %s", b.cfg.URL)
	return nil
}

// buildNATSOptions 构建NATS连接选项
func buildNATSOptions(cfg *config.NATSConfig) []nats.Option {
	var opts []nats.Option

	if cfg.ClientID != "" {
		opts = append(opts, nats.Name(cfg.ClientID))
	}
	if cfg.ConnectionTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnectionTimeout))
	}
	// 运行期的断连重连策略；首次连接失败仍直接报错退出
	opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}

	return opts
}

// Disconnect 销毁全部订阅并关闭连接
func (b *natsBroker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, sub := range b.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			logger.Debugf("nats unsubscribe from %s on disconnect failed: %v", channel, err)
		}
	}
	b.subscriptions = make(map[string]*nats.Subscription)

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

func (b *natsBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}

// Publish 发布一条消息；客户端内部有写缓冲，由 Flush 强制送达
func (b *natsBroker) Publish(ctx context.Context, channel string, payload []byte) bool {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return false
	}
	return conn.Publish(channel, payload) == nil
}

// Flush 排空客户端写缓冲并等待服务器确认
func (b *natsBroker) Flush() {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Flush(); err != nil {
		logger.Errorf("nats flush failed: %v", err)
	}
}

// Subscribe 注册回调订阅，阻塞到服务器确认订阅生效
func (b *natsBroker) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return errors.New("nats broker is not connected")
	}

	sub, err := b.conn.Subscribe(channel, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return err
	}

	// 往返一次，确认 SUB 已被服务器处理
	timeout := b.cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := b.conn.FlushTimeout(timeout); err != nil {
		_ = sub.Unsubscribe()
		return err
	}

	b.subscriptions[channel] = sub
	logger.Infof("subscribed to nats subject %s", channel)
	return nil
}

// Unsubscribe 取消订阅
func (b *natsBroker) Unsubscribe(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscriptions[channel]; ok {
		if err := sub.Unsubscribe(); err != nil {
			logger.Errorf("nats unsubscribe from %s failed: %v", channel, err)
		}
		delete(b.subscriptions, channel)
	}
}

// ProcessMessages 消息由客户端库异步投递，这里只做协作式让出
func (b *natsBroker) ProcessMessages(budget time.Duration) {
	time.Sleep(budget)
}

func (b *natsBroker) Name() string {
	return "NATS"
}
