package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BenEklundCS/IGN-QuarantineSplitter/internal/pipeline"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/pkg/contract"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/pkg/registry"
)

// MinSizeMB 为分片阈值下限（MB，不含）。
const MinSizeMB = 5.0

// ErrInvalidSize 表示阈值不是大于 MinSizeMB 的有限数。
var ErrInvalidSize = errors.New("invalid max file size")

// SizeReason 返回阈值（MB）不合法的原因；合法时返回空串。
// 阈值必须为有限数且严格大于 MinSizeMB。
func SizeReason(mb float64) string {
	if math.IsNaN(mb) || math.IsInf(mb, 0) {
		return fmt.Sprintf("%v is not a finite number", mb)
	}
	if mb <= MinSizeMB {
		return fmt.Sprintf("max file size must be greater than %vmb", MinSizeMB)
	}
	return ""
}

// CheckSize 以 ErrInvalidSize 包装 SizeReason 的结果。
func CheckSize(mb float64) error {
	if r := SizeReason(mb); r != "" {
		return fmt.Errorf("%w: %s", ErrInvalidSize, r)
	}
	return nil
}

// MaxBytes 将 MB 阈值换算为字节（向下取整）。
func MaxBytes(mb float64) int64 {
	return int64(math.Floor(mb * 1024 * 1024))
}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return errors.New("config: input path cannot be empty")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return errors.New("config: output dir cannot be empty")
	}
	if err := CheckSize(cfg.MaxSizeMB); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", cfg.Logging.Level)
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Splitter, d.Components.Splitter); registry.Splitter[name] == nil {
		return fmt.Errorf("config: splitter %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	sn := effName(cfg.Components.Splitter, d.Components.Splitter)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader %q options: %w", rn, err)
	}
	s, err := registry.Splitter[sn](cfg.Options.Splitter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("splitter %q options: %w", sn, err)
	}
	w, err := registry.Writer[wn](cfg.OutputDir, cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer %q options: %w", wn, err)
	}

	set := pipeline.Settings{
		Input:           cfg.Input,
		OutputDir:       cfg.OutputDir,
		Limit:           contract.Limit{MaxBytes: MaxBytes(cfg.MaxSizeMB)},
		ContinueOnError: boolOr(cfg.ContinueOnError, true),
		LockOutput:      boolOr(cfg.LockOutput, true),
	}
	return pipeline.Components{Reader: r, Splitter: s, Writer: w}, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
