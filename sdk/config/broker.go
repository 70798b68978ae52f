package config

import (
	"fmt"
	"time"
)

// BrokerConfig 消息代理配置
// Type 取值：redis、nats、memory（memory 仅用于测试）
type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
	NATS  NATSConfig  `mapstructure:"nats"`
}

// RedisConfig Redis 连接配置
// 同步 PUBLISH 往返对延迟敏感，SocketBuffer 用于放大底层套接字缓冲区
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	SocketBuffer int           `mapstructure:"socketBuffer"`
	// PipelineSize 大于 0 时发布走批量管道，由 Flush 统一执行并回收应答；0 为逐条同步发布
	PipelineSize int `mapstructure:"pipelineSize"`
}

// Addr 返回 host:port 形式的连接地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig NATS 连接配置
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	ClientID          string        `mapstructure:"clientId"`
	ConnectionTimeout time.Duration `mapstructure:"connectionTimeout"`
	MaxReconnects     int           `mapstructure:"maxReconnects"`
	ReconnectWait     time.Duration `mapstructure:"reconnectWait"`
}

var BrokerConfigInstance = new(BrokerConfig)
