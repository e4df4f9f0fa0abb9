package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（单个文件或 STDIN）。
// 约束：
// 1) 仅提供字节流，不做解码/业务解析；
// 2) FileID 稳定且去平台差异化；
// 3) 输入不存在时返回包裹 ErrInputNotFound 的错误；
// 4) 调用方负责 Close。
type Reader interface {
	Open(ctx context.Context, path string) (FileID, io.ReadCloser, error)
}
