package diag

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger 为最小结构化日志器：基于 logrus 的单行 JSON，写入轮转文件或 stderr。
// 所有方法对 nil 接收者安全（nil 即关闭日志）。
type Logger struct {
	corrID string
	lg     *logrus.Logger
	sink   *RotatingFile
}

// NewLogger 按 level 初始化；dir 非空时写入 dir 下 10MiB 轮转文件，否则写 stderr。
func NewLogger(corrID, level, dir string) *Logger {
	if strings.TrimSpace(dir) == "" {
		return NewLoggerTo(os.Stderr, corrID, level)
	}
	sink := NewRotatingFile(dir, 10*1024*1024)
	l := NewLoggerTo(sink, corrID, level)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入任意 io.Writer。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	lg := logrus.New()
	lg.SetOutput(w)
	lg.SetLevel(parseLevel(level))
	lg.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	})
	return &Logger{corrID: corrID, lg: lg}
}

func parseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Event 为标准事件字段。
type Event struct {
	Comp   string
	Stage  string // start|finish|error
	Code   string
	DurMS  int64
	Count  int64
	FileID string
	Part   int
	KV     map[string]string
}

func (e Event) fields(corrID string) logrus.Fields {
	f := logrus.Fields{"corr_id": corrID, "comp": e.Comp, "stage": e.Stage}
	if e.Code != "" {
		f["code"] = e.Code
	}
	if e.DurMS != 0 {
		f["dur_ms"] = e.DurMS
	}
	if e.Count != 0 {
		f["count"] = e.Count
	}
	if e.FileID != "" {
		f["file_id"] = e.FileID
	}
	if e.Part != 0 {
		f["part"] = e.Part
	}
	if len(e.KV) > 0 {
		f["kv"] = e.KV
	}
	return f
}

func (l *Logger) log(lv logrus.Level, ev Event, msg string) {
	if l == nil || l.lg == nil {
		return
	}
	l.lg.WithFields(ev.fields(l.corrID)).Log(lv, msg)
}

// CorrID 返回本次运行的关联 ID。
func (l *Logger) CorrID() string {
	if l == nil {
		return ""
	}
	return l.corrID
}

// Close 关闭底层轮转文件（若有）。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(logrus.InfoLevel, Event{Comp: comp, Stage: "start"}, msg)
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id/part 的 start。
func (l *Logger) StartWith(comp, msg, fileID string, part int) *Timer {
	l.log(logrus.InfoLevel, Event{Comp: comp, Stage: "start", FileID: fileID, Part: part}, msg)
	return &Timer{l: l, comp: comp, fileID: fileID, part: part, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", 0, nil)
}

// ErrorWith 支持 file_id/part 与附加键值（例如目标路径、底层错误）。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string, part int, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(logrus.ErrorLevel, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, FileID: fileID, Part: part, KV: kv}, msg)
}

// Warn 记录 warn 事件（不影响流程的异常状况）。
func (l *Logger) Warn(comp, code, msg string, kv map[string]string) {
	l.log(logrus.WarnLevel, Event{Comp: comp, Stage: "warn", Code: code, KV: kv}, msg)
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(logrus.InfoLevel, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count}, msg)
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID string, kv map[string]string) {
	l.log(logrus.DebugLevel, Event{Comp: comp, Stage: "start", FileID: fileID, KV: kv}, msg)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	part   int
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(logrus.InfoLevel, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Part: t.part}, msg)
}
