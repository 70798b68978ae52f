package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryBroker_PublishSubscribe 测试同一 hub 下的客户端互相可见
func TestMemoryBroker_PublishSubscribe(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	subClient := hub.Client()
	require.NoError(t, subClient.Connect(ctx))
	defer subClient.Disconnect()

	var mu sync.Mutex
	var received [][]byte
	require.NoError(t, subClient.Subscribe(ctx, "test-channel", func(channel string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
	}))

	pubClient := hub.Client()
	require.NoError(t, pubClient.Connect(ctx))
	defer pubClient.Disconnect()

	assert.True(t, pubClient.Publish(ctx, "test-channel", []byte("hello")))
	assert.True(t, pubClient.Publish(ctx, "other-channel", []byte("elsewhere")))

	// 投递是同步的，无需等待
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, []byte("hello"), received[0])
}

// TestMemoryBroker_FanOut 测试一条消息投递给多个订阅者
func TestMemoryBroker_FanOut(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	const subscribers = 3
	counts := make([]int, subscribers)
	var mu sync.Mutex

	for i := 0; i < subscribers; i++ {
		c := hub.Client()
		require.NoError(t, c.Connect(ctx))
		defer c.Disconnect()
		idx := i
		require.NoError(t, c.Subscribe(ctx, "fanout", func(channel string, payload []byte) {
			mu.Lock()
			defer mu.Unlock()
			counts[idx]++
		}))
	}

	pubClient := hub.Client()
	require.NoError(t, pubClient.Connect(ctx))
	defer pubClient.Disconnect()
	assert.True(t, pubClient.Publish(ctx, "fanout", []byte("msg")))

	mu.Lock()
	defer mu.Unlock()
	for i, n := range counts {
		assert.Equal(t, 1, n, "subscriber %d", i)
	}
}

// TestMemoryBroker_DisconnectedPublish 测试未连接的客户端发布失败
func TestMemoryBroker_DisconnectedPublish(t *testing.T) {
	hub := NewMemoryHub()
	c := hub.Client()

	assert.False(t, c.Publish(context.Background(), "ch", []byte("x")))
	assert.False(t, c.IsConnected())
}

// TestMemoryBroker_SubscribeRequiresConnection 测试订阅前必须先连接
func TestMemoryBroker_SubscribeRequiresConnection(t *testing.T) {
	hub := NewMemoryHub()
	c := hub.Client()

	err := c.Subscribe(context.Background(), "ch", func(string, []byte) {})
	assert.Error(t, err)
}

// TestMemoryBroker_Unsubscribe 测试退订后不再收到消息
func TestMemoryBroker_Unsubscribe(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	c := hub.Client()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()

	var mu sync.Mutex
	count := 0
	require.NoError(t, c.Subscribe(ctx, "ch", func(string, []byte) {
		mu.Lock()
		defer mu.Unlock()
		count++
	}))

	pubClient := hub.Client()
	require.NoError(t, pubClient.Connect(ctx))
	defer pubClient.Disconnect()

	pubClient.Publish(ctx, "ch", []byte("a"))
	c.Unsubscribe("ch")
	pubClient.Publish(ctx, "ch", []byte("b"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

// TestMemoryBroker_ClosedHub 测试关闭后的 hub 拒绝发布
func TestMemoryBroker_ClosedHub(t *testing.T) {
	hub := NewMemoryHub()
	c := hub.Client()
	require.NoError(t, c.Connect(context.Background()))

	hub.Close()
	assert.False(t, c.Publish(context.Background(), "ch", []byte("x")))
}

// TestMemoryBroker_ProcessMessagesYields 测试 ProcessMessages 按预算让出
func TestMemoryBroker_ProcessMessagesYields(t *testing.T) {
	hub := NewMemoryHub()
	c := hub.Client()

	start := time.Now()
	c.ProcessMessages(20 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
