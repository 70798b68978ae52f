package benchmark

// 控制令牌：共享通道上保留的两个载荷字面量
// 载荷没有转义或成帧，与令牌字面量相同的数据载荷无法与控制信号区分——
// 这是线上协议的既有限制，保持原样以保证线上兼容
const (
	StartToken = "START_BENCHMARK"
	EndToken   = "END_BENCHMARK"
)

// 结果记录中的角色
const (
	RolePublisher  = "publisher"
	RoleSubscriber = "subscriber"
)

// timestampLayout 结果工件里的时间戳格式
const timestampLayout = "20060102T150405"
