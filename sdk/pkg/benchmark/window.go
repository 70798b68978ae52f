package benchmark

import (
	"sync"
	"time"
)

// WindowState 窗口状态机：IDLE -> RUNNING -> ENDED
type WindowState int32

const (
	StateIdle WindowState = iota
	StateRunning
	StateEnded
)

func (s WindowState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Window 基准窗口 [start, end)
// 时间取自单调时钟（time.Time 自带单调读数）；
// start/end 各自最多被设置一次，重复的令牌是空操作
type Window struct {
	mu    sync.Mutex
	state WindowState
	start time.Time
	end   time.Time
}

// NewWindow 创建空闲窗口
func NewWindow() *Window {
	return &Window{state: StateIdle}
}

// MarkStart 记录首个开始令牌，IDLE -> RUNNING
// 返回是否发生了状态迁移（重复调用返回 false）
func (w *Window) MarkStart(t time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateIdle {
		return false
	}
	w.start = t
	w.state = StateRunning
	return true
}

// MarkEnd 记录首个结束令牌，RUNNING -> ENDED
// 开始之前的结束令牌被忽略；重复调用返回 false
func (w *Window) MarkEnd(t time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateRunning {
		return false
	}
	w.end = t
	w.state = StateEnded
	return true
}

// Synthesize 合成空窗口（start = end = t），IDLE -> ENDED
// 无信号超时的兜底，保证仍能产出一条零计数的有效记录
func (w *Window) Synthesize(t time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateIdle {
		return false
	}
	w.start = t
	w.end = t
	w.state = StateEnded
	return true
}

// State 返回当前状态
func (w *Window) State() WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Bounds 返回窗口边界；未设置的一侧为零值
func (w *Window) Bounds() (start, end time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.start, w.end
}

// Elapsed 返回窗口时长；窗口未关闭时为 0
func (w *Window) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateEnded {
		return 0
	}
	return w.end.Sub(w.start)
}
