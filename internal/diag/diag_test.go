package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenEklundCS/IGN-QuarantineSplitter/internal/dirlock"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/pkg/contract"
)

// 日志轮转写入
func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 30)
	defer w.Close()
	_, err := w.Write([]byte("first line that is very long\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	hasCurrent, hasRotated := false, false
	for _, e := range ents {
		if e.Name() == currentLogName {
			hasCurrent = true
		} else if strings.HasPrefix(e.Name(), "qsplit-") && strings.HasSuffix(e.Name(), ".log") {
			hasRotated = true
		}
	}
	assert.True(t, hasCurrent, "current file")
	assert.True(t, hasRotated, "rotated file")
	b, err := os.ReadFile(filepath.Join(dir, currentLogName))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(b))
}

// 超长单条不会在空文件上无限轮转
func TestRotatingFileOversizedEntry(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 4)
	defer w.Close()
	_, err := w.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	ents, _ := os.ReadDir(dir)
	assert.Len(t, ents, 1)
}

func TestRotatingFileDefaultsAndClose(t *testing.T) {
	w := NewRotatingFile(t.TempDir(), 0)
	assert.Equal(t, int64(10*1024*1024), w.maxBytes)
	assert.NoError(t, w.Close(), "close before open")
	_, err := w.Write([]byte("x\n"))
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{fmt.Errorf("open: %w", context.DeadlineExceeded), CodeCancel},
		{fmt.Errorf("%w: x", contract.ErrInputNotFound), CodeNotFound},
		{fmt.Errorf("%w: line 4", contract.ErrDecode), CodeDecode},
		{fmt.Errorf("%w: out", dirlock.ErrLocked), CodeLock},
		{contract.ErrPathInvalid, CodeInvariant},
		{contract.ErrInvalidInput, CodeInvariant},
		{&fs.PathError{Op: "open", Path: "/", Err: errors.New("x")}, CodeIO},
		{&os.LinkError{Op: "rename", Old: "a", New: "b", Err: errors.New("x")}, CodeIO},
		{errors.New("other"), CodeUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "err=%v", c.err)
	}
}

// Logger 输出单行 JSON，携带关联 ID 与事件字段
func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "corr-1", "info")
	tm := l.StartWith("writer", "write", "in.xml", 2)
	tm.Finish("write", 17)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "corr-1", ev["corr_id"])
	assert.Equal(t, "writer", ev["comp"])
	assert.Equal(t, "finish", ev["stage"])
	assert.Equal(t, "in.xml", ev["file_id"])
	assert.Equal(t, float64(2), ev["part"])
	assert.Equal(t, float64(17), ev["count"])
	assert.Equal(t, "info", ev["level"])
	assert.Contains(t, ev, "ts")
	assert.Equal(t, "corr-1", l.CorrID())
}

func TestLoggerErrorWithKV(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "c", "info")
	start := time.Now()
	l.ErrorWith("writer", string(CodeIO), "write failed", &start, "in.xml", 3, map[string]string{"path": "out/x_part_3.xml"})
	var ev map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "error", ev["level"])
	assert.Equal(t, "io", ev["code"])
	assert.Equal(t, map[string]any{"path": "out/x_part_3.xml"}, ev["kv"])
}

func TestLoggerWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "c", "warn")
	l.Warn("preflight", "space", "low disk space", map[string]string{"free": "10"})
	var ev map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "warning", ev["level"])
	assert.Equal(t, "warn", ev["stage"])
	assert.Equal(t, "space", ev["code"])

	buf.Reset()
	NewLoggerTo(&buf, "c", "error").Warn("preflight", "space", "dropped", nil)
	assert.Empty(t, buf.String())
}

// 级别过滤：info 级别丢弃 debug
func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "c", "info")
	l.DebugStart("config", "effective", "", map[string]string{"k": "v"})
	assert.Empty(t, buf.String())

	l = NewLoggerTo(&buf, "c", "DEBUG")
	l.DebugStart("config", "effective", "", nil)
	assert.Contains(t, buf.String(), `"level":"debug"`)

	buf.Reset()
	l = NewLoggerTo(&buf, "c", "error")
	l.Start("pipeline", "run").Finish("run", 0)
	l.InfoFinish("pipeline", "run", time.Now(), 1)
	assert.Empty(t, buf.String())
	l.Error("pipeline", "unknown", "first error", nil)
	assert.NotEmpty(t, buf.String())
}

// nil Logger 为关闭日志，不应 panic
func TestLoggerNil(t *testing.T) {
	var l *Logger
	l.Start("a", "b").Finish("c", 1)
	l.Error("a", "b", "c", nil)
	l.DebugStart("a", "b", "", nil)
	l.Warn("a", "b", "c", nil)
	assert.Equal(t, "", l.CorrID())
	assert.NoError(t, l.Close())
}

// 写入目录下的轮转文件
func TestLoggerWithSink(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger("corr", "info", dir)
	l.Start("comp", "msg").Finish("ok", 1)
	require.NoError(t, l.Close())
	b, err := os.ReadFile(filepath.Join(dir, currentLogName))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"corr_id":"corr"`)
}

func TestTerminalLines(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	term.PartWritten("out/q_part_1.xml")
	term.PartFailed("out/q_part_2.xml", errors.New("disk full"))
	term.InputNotFound("missing.xml")
	term.ProcessFailed("in.xml", errors.New("bad\nthing"))
	term.RunFinish(1500 * time.Millisecond)

	want := "Written: out/q_part_1.xml\n" +
		"Error writing part file out/q_part_2.xml: disk full\n" +
		"File not found: missing.xml\n" +
		"Error processing file in.xml: bad\nthing\n" +
		"[partial] parts written=1 failed=1 | 1.5s\n"
	assert.Equal(t, want, sb.String())
}

func TestTerminalDisabledAndNil(t *testing.T) {
	var sb strings.Builder
	NewTerminal(&sb, false).PartWritten("x")
	assert.Empty(t, sb.String())

	var nilTerm *Terminal
	nilTerm.PartWritten("x")
	nilTerm.RunFinish(0)

	SetTerminal(nil)
	assert.Nil(t, GetTerminal())
	t1 := NewTerminal(nil, true)
	SetTerminal(t1)
	assert.Same(t, t1, GetTerminal())
	SetTerminal(nil)
}

type flakyWriter struct{ fail bool }

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fail {
		w.fail = false
		return 0, fmt.Errorf("boom")
	}
	return len(p), nil
}

// 写失败降级为禁用态
func TestTerminalDisableOnWriteError(t *testing.T) {
	term := NewTerminal(&flakyWriter{fail: true}, true)
	term.PartWritten("a")
	assert.False(t, term.enabled)
	term.RunFinish(0)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "a b c", safe("a\nb\rc"))
	assert.Equal(t, "0ms", formatDur(0))
	assert.Equal(t, "1.5s", formatDur(1500*time.Millisecond))
}
