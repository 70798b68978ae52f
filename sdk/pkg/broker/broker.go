package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/config"
)

// MessageHandler 消息处理回调
// channel 为消息所在通道，payload 为不透明载荷
type MessageHandler func(channel string, payload []byte)

// Broker 消息代理能力接口
// 同一个实例由唯一的逻辑 worker 独占，不做跨 goroutine 共享；
// 两类后端（同步轮询 / 异步推送）都收敛到这一个契约之下
type Broker interface {
	// Connect 建立发布会话，失败直接返回错误，不做重试
	Connect(ctx context.Context) error
	// Disconnect 释放全部会话（含订阅专用连接）
	Disconnect()
	IsConnected() bool

	// Publish 尝试一次投递，返回代理是否接受；副作用可能被缓冲（见 Flush）
	Publish(ctx context.Context, channel string, payload []byte) bool
	// Flush 强制完成所有缓冲的出站操作并回收其应答；无缓冲的实现是空操作
	Flush()

	// Subscribe 注册回调，只阻塞到代理确认订阅成功为止
	Subscribe(ctx context.Context, channel string, handler MessageHandler) error
	Unsubscribe(channel string)

	// ProcessMessages 在给定时间预算内驱动消息投递：
	// 轮询型实现主动读取并分发，读超时是正常退出，I/O故障记日志后退出；
	// 推送型实现的投递发生在客户端自身的线程里，这里只做有界让出
	ProcessMessages(budget time.Duration)

	Name() string
}

// New 根据配置类型创建具体实现
// 后端选择是一个数据决策，测试中可用 memory 实现替换
func New(cfg *config.BrokerConfig) (Broker, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisBroker(&cfg.Redis), nil
	case "nats":
		return NewNATSBroker(&cfg.NATS), nil
	case "memory":
		return DefaultHub.Client(), nil
	default:
		return nil, fmt.Errorf("unsupported broker type: %s", cfg.Type)
	}
}
