package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识（分片文件名，相对于 Writer 的输出根）。
type ArtifactID string

// Writer: 将分片内容以流式方式持久化到目标介质。
// 约束：
//  1. 同一 ArtifactID 单写者；每次写入为完整替换，不追加；
//  2. 流式写入，按字节透传，不读取/修改业务内容；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
