package mmap

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	mmapgo "github.com/edsrzf/mmap-go"

	"github.com/BenEklundCS/IGN-QuarantineSplitter/pkg/contract"
)

// Options 为 mmap Reader 的可选配置。
type Options struct {
	// StdinBufSize: "-"（STDIN）回退为流式读取时的缓冲大小；默认 64KiB。
	StdinBufSize int `json:"stdin_buf_size,omitempty"`
}

// Reader 将常规文件只读映射到内存后按字节流交给 Splitter。
// 管道与 STDIN 无法映射，"-" 回退为带缓冲的流式读取。
type Reader struct {
	bufSize int
	stdin   io.Reader
}

// New 创建 mmap Reader。
func New(opts *Options) *Reader {
	r := &Reader{bufSize: 64 * 1024, stdin: os.Stdin}
	if opts != nil && opts.StdinBufSize > 0 {
		r.bufSize = opts.StdinBufSize
	}
	return r
}

var _ contract.Reader = (*Reader)(nil)

// Open 映射 path 指向的常规文件。目录、设备与命名管道视为无效输入。
func (r *Reader) Open(ctx context.Context, path string) (contract.FileID, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if path == "-" {
		return contract.FileID("stdin"), io.NopCloser(bufio.NewReaderSize(r.stdin, r.bufSize)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %w", contract.ErrInputNotFound, err)
		}
		return "", nil, err
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %s is not a regular file", contract.ErrInvalidInput, path)
	}
	id := contract.NormalizeFileID(path)
	// 零长度文件不可映射
	if info.Size() == 0 {
		return id, io.NopCloser(bytes.NewReader(nil)), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	m, err := mmapgo.Map(f, mmapgo.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return "", nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return id, &mapped{Reader: bytes.NewReader(m), m: m, f: f}, nil
}

// mapped 在 Close 时解除映射并关闭文件。
type mapped struct {
	*bytes.Reader
	m mmapgo.MMap
	f *os.File
}

func (m *mapped) Close() error {
	if m.m == nil {
		return nil
	}
	err := m.m.Unmap()
	m.m = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
