package json

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON 统一的 jsoniter 配置实例
// 使用 ConfigCompatibleWithStandardLibrary 确保与标准库完全兼容，
// 同时获得更高的性能
//
// 所有组件都应该使用这个统一的配置，包括：
// - benchmark: Record 序列化 / 结果工件落盘
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal 序列化对象为 JSON 字节数组
// 兼容标准库 json.Marshal 接口
func Marshal(v interface{}) ([]byte, error) {
	return JSON.Marshal(v)
}

// MarshalIndent 序列化对象为带缩进的 JSON 字节数组
// 兼容标准库 json.MarshalIndent 接口
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return JSON.MarshalIndent(v, prefix, indent)
}

// Unmarshal 从 JSON 字节数组反序列化对象
// 兼容标准库 json.Unmarshal 接口
func Unmarshal(data []byte, v interface{}) error {
	return JSON.Unmarshal(data, v)
}
