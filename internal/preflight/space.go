// Package preflight 提供运行前的只读环境检查（不改变任何状态）。
package preflight

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// PartOverhead 为每个分片在记录之外的估计开销（header + footer）。
const PartOverhead = 4 * 1024

// Space 为输出目录所在文件系统的容量检查结果。
type Space struct {
	Dir  string
	Free uint64
	Need int64
}

// Enough 报告可用空间是否覆盖估计需求。
func (s Space) Enough() bool {
	return s.Need <= 0 || uint64(s.Need) <= s.Free
}

func (s Space) String() string {
	return fmt.Sprintf("%s: free=%d need=%d", s.Dir, s.Free, s.Need)
}

// usage 查询文件系统用量；测试可替换。
var usage = disk.UsageWithContext

// EstimateNeed 估算写出全部分片所需字节：输入体积 + 每分片固定开销。
func EstimateNeed(inputSize, maxBytes int64) int64 {
	if inputSize <= 0 {
		return 0
	}
	parts := int64(1)
	if maxBytes > 0 {
		parts = inputSize/maxBytes + 1
	}
	return inputSize + parts*PartOverhead
}

// CheckSpace 查询 dir 所在文件系统的可用空间并与 need 比较。
func CheckSpace(ctx context.Context, dir string, need int64) (Space, error) {
	st, err := usage(ctx, dir)
	if err != nil {
		return Space{Dir: dir, Need: need}, fmt.Errorf("disk usage %s: %w", dir, err)
	}
	return Space{Dir: dir, Free: st.Free, Need: need}, nil
}
