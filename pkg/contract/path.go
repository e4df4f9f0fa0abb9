package contract

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	s := strings.ReplaceAll(p, "\\", "/")
	return FileID(path.Clean(s))
}

// Stem 返回输入基名去掉最后一个扩展名后的部分。
// 以点开头且无其他点的名称（如 ".export"）整体保留。
func Stem(id FileID) string {
	base := path.Base(string(id))
	ext := path.Ext(base)
	if ext == base {
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// PartName 生成确定性的分片文件名：<stem>_part_<n>.xml。
func PartName(stem string, n int) ArtifactID {
	return ArtifactID(fmt.Sprintf("%s_part_%d.xml", stem, n))
}
