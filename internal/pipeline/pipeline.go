package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/BenEklundCS/IGN-QuarantineSplitter/internal/diag"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/internal/dirlock"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/pkg/contract"
)

// - 单线程顺序执行：Reader → Splitter → (emit) → Writer；同一时刻至多一个分片文件句柄。
// - 分片写失败按 Settings.ContinueOnError 处理：继续（记录失败）或首错中止。
// - 面向用户的提示走 diag.Terminal；结构化事件走 diag.Logger。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader   contract.Reader
	Splitter contract.Splitter
	Writer   contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// Input: 输入路径（"-" 表示 STDIN）。
	Input string
	// OutputDir: 输出目录；仅用于目录锁与提示中的完整路径，写入由 Writer 负责。
	OutputDir string
	// Limit: 分片字节阈值（建议上限）。
	Limit contract.Limit
	// ContinueOnError: 分片写失败后是否继续后续分片。
	ContinueOnError bool
	// LockOutput: 运行期间在输出目录持有独占锁。
	LockOutput bool
}

// PartFailure 描述一个写出失败的分片。
type PartFailure struct {
	Index int
	Path  string
	Err   error
}

// Result 汇总一次运行的分片写出情况（按分片序号顺序）。
type Result struct {
	FileID  contract.FileID
	Written []string
	Failed  []PartFailure
}

// Run 执行完整流水线。
// 返回错误的情形：输入不存在（包裹 ErrInputNotFound）、读取/解码失败、
// 目录锁被其他运行持有、或在 ContinueOnError=false 时首个分片写失败（包裹 ErrPartWrite）。
// 错误已通过 Terminal 报告；调用方只需决定是否改变退出码。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Result, error) {
	var res Result
	if err := sanity(comp, set); err != nil {
		return res, fmt.Errorf("sanity: %w", err)
	}
	term := diag.GetTerminal()
	runStart := time.Now()

	fail := func(stage string, err error) (Result, error) {
		code := diag.Classify(err)
		logger.ErrorWith(stage, string(code), err.Error(), &runStart, string(res.FileID), 0, nil)
		if code == diag.CodeNotFound {
			term.InputNotFound(set.Input)
		} else {
			term.ProcessFailed(set.Input, err)
		}
		return res, err
	}

	if set.LockOutput {
		lock, err := dirlock.Acquire(set.OutputDir)
		switch {
		case errors.Is(err, dirlock.ErrLocked):
			return fail("dirlock", fmt.Errorf("lock output: %w", err))
		case err != nil:
			// 锁文件无法创建（如目录只读）：不加锁继续，分片写入自行报告失败
			logger.Warn("dirlock", string(diag.Classify(err)), "running without output lock",
				map[string]string{"cause": err.Error()})
		default:
			defer func() { _ = lock.Release() }()
		}
	}

	fileID, rc, err := comp.Reader.Open(ctx, set.Input)
	if err != nil {
		return fail("reader", fmt.Errorf("open input: %w", err))
	}
	defer rc.Close()
	res.FileID = fileID
	stem := contract.Stem(fileID)

	emit := func(ctx context.Context, p contract.Part) error {
		name := contract.PartName(stem, p.Index)
		path := filepath.Join(set.OutputDir, string(name))
		t := logger.StartWith("writer", "write", string(fileID), p.Index)
		werr := comp.Writer.Write(ctx, name, p.Reader())
		if werr != nil {
			logger.ErrorWith("writer", string(diag.Classify(werr)), "write failed", nil, string(fileID), p.Index,
				map[string]string{"path": path, "cause": werr.Error()})
			term.PartFailed(path, werr)
			res.Failed = append(res.Failed, PartFailure{Index: p.Index, Path: path, Err: werr})
			if errors.Is(werr, context.Canceled) || errors.Is(werr, context.DeadlineExceeded) {
				return werr
			}
			if !set.ContinueOnError {
				return fmt.Errorf("%w: %s: %w", contract.ErrPartWrite, path, werr)
			}
			return nil
		}
		t.Finish("write", p.Len())
		term.PartWritten(path)
		res.Written = append(res.Written, path)
		return nil
	}

	st := logger.StartWith("splitter", "split", string(fileID), 0)
	if err := comp.Splitter.Split(ctx, rc, set.Limit, emit); err != nil {
		return fail("splitter", fmt.Errorf("split %s: %w", fileID, err))
	}
	st.Finish("split", int64(len(res.Written)))
	return res, nil
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Splitter == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if s.Input == "" {
		return errors.New("pipeline: empty input")
	}
	if s.LockOutput && s.OutputDir == "" {
		return errors.New("pipeline: lock requires output dir")
	}
	if s.Limit.MaxBytes <= 0 {
		return fmt.Errorf("pipeline: %w", contract.ErrInvalidLimit)
	}
	return nil
}
