package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ChenBigdata421/jxt-benchmark/sdk/pkg/json"
)

// Recorder 把度量记录序列化成批次目录下的结果工件
// 文件名组合 代理类型/角色/副本/主机/时间戳，并发副本之间绝不碰撞
type Recorder struct {
	Dir string
}

// NewRecorder 创建结果记录器
func NewRecorder(dir string) *Recorder {
	return &Recorder{Dir: dir}
}

// Write 落盘一条记录，返回写入路径
// 失败（权限、目录缺失）由调用方记日志并视为非致命
func (r *Recorder) Write(rec *Record) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("record cannot be nil")
	}

	dir := filepath.Join(r.Dir, rec.BatchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create batch dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s_%s_%s_%s.json",
		rec.BrokerType, rec.Role, rec.ReplicaID, rec.Host, rec.Timestamp)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result file %s: %w", path, err)
	}

	return path, nil
}

// Hostname 返回主机标识：HOSTNAME 环境变量优先（容器内即副本名）
func Hostname() string {
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown-host"
}

// NewBatchID 批次号兜底：时间戳加短随机量，多副本同时兜底也不冲突
func NewBatchID() string {
	return time.Now().Format(timestampLayout) + "_" + uuid.NewString()[:8]
}
