package contract

import (
	"context"
	"io"
)

// Limit: 分片尺寸阈值（字节）。仅在记录起始边界生效，属于建议上限：
// 单个分片最多可超出一条记录的大小。
type Limit struct {
	MaxBytes int64
}

// EmitFunc 接收一个已切出的分片；返回错误将终止扫描。
type EmitFunc func(ctx context.Context, p Part) error

// Splitter: 将单个输入字节流切分为有序 Part 序列，并逐个交给 emit。
// 约束：
// 1) 不在记录中间切分；
// 2) Part.Index 自 1 起严格递增、无空洞；
// 3) 不改变文本（行按原样透传，含行结束符）；
// 4) 无内部并发；一次只持有一个分片缓冲。
type Splitter interface {
	Split(ctx context.Context, r io.Reader, limit Limit, emit EmitFunc) error
}
