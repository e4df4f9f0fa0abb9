package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
// Input/OutputDir/MaxSizeMB 通常来自 CLI 位置参数，亦可由 JSON 提供。
type Config struct {
	Input     string  `json:"input,omitempty"`
	OutputDir string  `json:"output_dir,omitempty"`
	MaxSizeMB float64 `json:"max_size_mb,omitempty"`

	// ContinueOnError: 分片写失败后是否继续；nil 表示未设置（默认 true）。
	ContinueOnError *bool `json:"continue_on_error,omitempty"`
	// LockOutput: 运行期间是否持有输出目录锁；nil 表示未设置（默认 true）。
	LockOutput *bool `json:"lock_output,omitempty"`

	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与输出目录。
// Dir 为 "-" 时写 stderr；为空时使用默认目录。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Sink 返回传给 diag.NewLogger 的目录参数（"" 表示 stderr）。
func (l Logging) Sink() string {
	if l.Dir == "-" {
		return ""
	}
	return l.Dir
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader   string `json:"reader"`
	Splitter string `json:"splitter"`
	Writer   string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader   json.RawMessage `json:"reader,omitempty"`
	Splitter json.RawMessage `json:"splitter,omitempty"`
	Writer   json.RawMessage `json:"writer,omitempty"`
}
