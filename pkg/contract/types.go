package contract

import (
	"io"
	"strings"
)

// FileID: 逻辑输入标识（通常为路径，需规范化，跨平台一致）。
type FileID string

// Header: 从输入起始处逐字捕获的固定行（含原始行结束符）。
// 一次运行内只捕获一次，所有 Part 共享，只读。
type Header string

// Part: 一个输出分片（header + 连续的记录行 + footer）。
// 约束：
// - Index 自 1 起严格递增且无空洞；
// - Body 为原样文本行（保留原始行结束符），不做任何归一；
// - Size 恒等于 Body 各行 UTF-8 字节长度之和。
type Part struct {
	Index  int
	Header Header
	Body   []string
	Footer string
	Size   int64
}

// Empty 报告分片是否不含任何记录行。
func (p Part) Empty() bool { return len(p.Body) == 0 }

// Reader 以流式方式按 header → body → footer 的顺序产出分片内容。
func (p Part) Reader() io.Reader {
	rs := make([]io.Reader, 0, len(p.Body)+2)
	rs = append(rs, strings.NewReader(string(p.Header)))
	for _, line := range p.Body {
		rs = append(rs, strings.NewReader(line))
	}
	rs = append(rs, strings.NewReader(p.Footer))
	return io.MultiReader(rs...)
}

// Len 返回写出后的完整字节数（header + body + footer）。
func (p Part) Len() int64 {
	return int64(len(p.Header)) + p.Size + int64(len(p.Footer))
}
