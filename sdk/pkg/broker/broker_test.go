package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/config"
)

// TestNew_UnsupportedType 测试未知代理类型直接报错
func TestNew_UnsupportedType(t *testing.T) {
	b, err := New(&config.BrokerConfig{Type: "zeromq"})
	assert.Nil(t, b)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported broker type")
}

// TestNew_KnownTypes 测试三种类型都能构造
func TestNew_KnownTypes(t *testing.T) {
	for _, typ := range []string{"redis", "nats", "memory"} {
		b, err := New(&config.BrokerConfig{
			Type: typ,
			Redis: config.RedisConfig{
				Host: "localhost",
				Port: 6379,
			},
			NATS: config.NATSConfig{
				URL: "nats://localhost:4222",
			},
		})
		require.NoError(t, err, typ)
		require.NotNil(t, b, typ)
	}
}

// TestRedisConfig_Addr 测试地址拼接
func TestRedisConfig_Addr(t *testing.T) {
	cfg := &config.RedisConfig{Host: "redis-svc", Port: 6380}
	assert.Equal(t, "redis-svc:6380", cfg.Addr())
}
