package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestWindow_StateTransitions 测试 IDLE -> RUNNING -> ENDED 状态迁移
func TestWindow_StateTransitions(t *testing.T) {
	w := NewWindow()
	assert.Equal(t, StateIdle, w.State())

	now := time.Now()
	assert.True(t, w.MarkStart(now))
	assert.Equal(t, StateRunning, w.State())

	assert.True(t, w.MarkEnd(now.Add(time.Second)))
	assert.Equal(t, StateEnded, w.State())
}

// TestWindow_Idempotent 测试 start/end 各自最多被设置一次
func TestWindow_Idempotent(t *testing.T) {
	w := NewWindow()

	t1 := time.Now()
	t2 := t1.Add(100 * time.Millisecond)

	assert.True(t, w.MarkStart(t1))
	assert.False(t, w.MarkStart(t2), "duplicate start token must be a no-op")

	start, _ := w.Bounds()
	assert.Equal(t, t1, start)

	t3 := t1.Add(time.Second)
	t4 := t1.Add(2 * time.Second)
	assert.True(t, w.MarkEnd(t3))
	assert.False(t, w.MarkEnd(t4), "duplicate end token must be a no-op")

	_, end := w.Bounds()
	assert.Equal(t, t3, end)
	assert.Equal(t, time.Second, w.Elapsed())
}

// TestWindow_EndBeforeStart 测试开始之前的结束令牌被忽略
func TestWindow_EndBeforeStart(t *testing.T) {
	w := NewWindow()

	assert.False(t, w.MarkEnd(time.Now()))
	assert.Equal(t, StateIdle, w.State())
}

// TestWindow_Synthesize 测试合成空窗口
func TestWindow_Synthesize(t *testing.T) {
	w := NewWindow()

	now := time.Now()
	assert.True(t, w.Synthesize(now))
	assert.Equal(t, StateEnded, w.State())

	start, end := w.Bounds()
	assert.Equal(t, now, start)
	assert.Equal(t, now, end)
	assert.Equal(t, time.Duration(0), w.Elapsed())
}

// TestWindow_SynthesizeAfterStart 测试窗口已打开时合成失败
func TestWindow_SynthesizeAfterStart(t *testing.T) {
	w := NewWindow()

	assert.True(t, w.MarkStart(time.Now()))
	assert.False(t, w.Synthesize(time.Now()))
	assert.Equal(t, StateRunning, w.State())
}

// TestWindow_ElapsedBeforeClose 测试未关闭窗口的时长为0
func TestWindow_ElapsedBeforeClose(t *testing.T) {
	w := NewWindow()
	assert.Equal(t, time.Duration(0), w.Elapsed())

	w.MarkStart(time.Now())
	assert.Equal(t, time.Duration(0), w.Elapsed())
}
