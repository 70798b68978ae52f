package broker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryHub 进程内消息总线（用于测试和开发）
// 同一个 hub 下的所有客户端互相可见，扮演一个共享的代理服务端
type MemoryHub struct {
	mu      sync.RWMutex
	clients []*memoryBroker
	closed  bool
}

// DefaultHub 工厂按 memory 类型创建客户端时共用的 hub
var DefaultHub = NewMemoryHub()

// NewMemoryHub 创建内存总线
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{}
}

// Client 创建挂在该 hub 上的客户端
func (h *MemoryHub) Client() Broker {
	return &memoryBroker{hub: h, handlers: make(map[string]MessageHandler)}
}

// publish 同步分发给所有已订阅该通道的客户端
func (h *MemoryHub) publish(channel string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return false
	}
	for _, c := range h.clients {
		c.deliver(channel, payload)
	}
	return true
}

func (h *MemoryHub) attach(c *memoryBroker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients = append(h.clients, c)
}

func (h *MemoryHub) detach(c *memoryBroker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, other := range h.clients {
		if other == c {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			return
		}
	}
}

// Close 关闭总线，后续发布全部失败
func (h *MemoryHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.clients = nil
}

// memoryBroker 内存客户端
// 投递在发布方的 goroutine 上同步完成，窗口类测试因此是确定性的
type memoryBroker struct {
	hub *MemoryHub

	mu        sync.RWMutex
	handlers  map[string]MessageHandler
	connected bool
}

// 锁序约定：hub 锁在外、客户端锁在内（publish 路径），
// attach/detach 因此不能在持有客户端锁时调用
func (b *memoryBroker) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.connected {
		b.mu.Unlock()
		return nil
	}
	b.connected = true
	b.mu.Unlock()

	b.hub.attach(b)
	return nil
}

func (b *memoryBroker) Disconnect() {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return
	}
	b.connected = false
	b.handlers = make(map[string]MessageHandler)
	b.mu.Unlock()

	b.hub.detach(b)
}

func (b *memoryBroker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *memoryBroker) Publish(ctx context.Context, channel string, payload []byte) bool {
	if !b.IsConnected() {
		return false
	}
	return b.hub.publish(channel, payload)
}

// Flush 无缓冲，空操作
func (b *memoryBroker) Flush() {}

func (b *memoryBroker) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return errors.New("memory broker is not connected")
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	b.handlers[channel] = handler
	return nil
}

func (b *memoryBroker) Unsubscribe(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, channel)
}

// ProcessMessages 投递发生在发布方 goroutine 上，这里只做有界让出
func (b *memoryBroker) ProcessMessages(budget time.Duration) {
	time.Sleep(budget)
}

func (b *memoryBroker) Name() string {
	return "Memory"
}

func (b *memoryBroker) deliver(channel string, payload []byte) {
	b.mu.RLock()
	handler := b.handlers[channel]
	b.mu.RUnlock()
	if handler != nil {
		handler(channel, payload)
	}
}
