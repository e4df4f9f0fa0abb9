// Package dirlock 在输出目录上持有进程间互斥的建议锁，
// 防止两次运行同时写入同一批分片文件。
package dirlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexflint/go-filemutex"
)

// FileName 为锁文件名（位于输出目录内）。
const FileName = ".qsplit.lock"

// ErrLocked: 目录已被其他运行持有。
var ErrLocked = errors.New("output directory locked by another run")

// Lock 为已获取的目录锁。
type Lock struct {
	path string
	m    *filemutex.FileMutex
}

// Acquire 以非阻塞方式获取 dir 上的独占锁；dir 必须已存在。
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)
	m, err := filemutex.New(path)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	if err := m.TryLock(); err != nil {
		_ = m.Close()
		if errors.Is(err, filemutex.AlreadyLocked) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &Lock{path: path, m: m}, nil
}

// Path 返回锁文件路径。
func (l *Lock) Path() string { return l.path }

// Release 释放锁并删除锁文件。重复调用安全。
func (l *Lock) Release() error {
	if l == nil || l.m == nil {
		return nil
	}
	// 先删除再解锁：避免后来者锁住一个即将被删除的 inode
	_ = os.Remove(l.path)
	err := l.m.Unlock()
	if cerr := l.m.Close(); err == nil {
		err = cerr
	}
	l.m = nil
	return err
}
