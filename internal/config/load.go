package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix 为全部环境变量覆盖项的前缀。
const EnvPrefix = "QSPLIT_"

// DefaultLogDir 为未配置时的日志去向："-" 表示写 stderr，不在工作目录落盘。
const DefaultLogDir = "-"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		ContinueOnError: boolPtr(true),
		LockOutput:      boolPtr(true),
		Logging:         Logging{Level: "info", Dir: DefaultLogDir},
		Components: Components{
			Reader:   "fs",
			Splitter: "quarantine",
			Writer:   "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if strings.TrimSpace(over.Input) != "" {
		out.Input = over.Input
	}
	if strings.TrimSpace(over.OutputDir) != "" {
		out.OutputDir = over.OutputDir
	}
	if over.MaxSizeMB != 0 {
		out.MaxSizeMB = over.MaxSizeMB
	}
	// 指针字段：nil 表示未覆盖，false 亦为有效值
	if over.ContinueOnError != nil {
		out.ContinueOnError = boolPtr(*over.ContinueOnError)
	}
	if over.LockOutput != nil {
		out.LockOutput = boolPtr(*over.LockOutput)
	}

	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	if strings.TrimSpace(over.Logging.Dir) != "" {
		out.Logging.Dir = strings.TrimSpace(over.Logging.Dir)
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Splitter != "" {
		out.Components.Splitter = over.Components.Splitter
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Splitter) > 0 {
		out.Options.Splitter = cloneRaw(over.Options.Splitter)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 QSPLIT_；集合之外的键忽略。
// 支持：LOG_LEVEL, LOG_DIR, CONTINUE_ON_ERROR, LOCK_OUTPUT, COMPONENTS_*,
// 以及 OPTIONS_{READER,SPLITTER,WRITER}_JSON（原样 JSON）。
// 布尔值无法解析时返回错误。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[:eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			// 空值视为未设置，避免清空 config.json 中的值
			continue
		}
		switch strings.TrimPrefix(key, EnvPrefix) {
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "CONTINUE_ON_ERROR":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, fmt.Errorf("%s: %w", key, err)
			}
			over.ContinueOnError = &b
		case "LOCK_OUTPUT":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, fmt.Errorf("%s: %w", key, err)
			}
			over.LockOutput = &b
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_SPLITTER":
			over.Components.Splitter = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_SPLITTER_JSON":
			over.Options.Splitter = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		}
	}
	return over, nil
}

// SetOption 在原样 JSON 对象中设置单个键，返回新的 JSON。
// raw 为空时视为 {}；raw 不是 JSON 对象时返回错误。
func SetOption(raw json.RawMessage, key string, value any) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("options: %w", err)
		}
		if obj == nil {
			obj = map[string]json.RawMessage{}
		}
	}
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	obj[key] = v
	return json.Marshal(obj)
}

func boolPtr(b bool) *bool { return &b }

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
