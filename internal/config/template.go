package config

import "encoding/json"

// DefaultTemplateConfig 返回一个包含全部可配置键的默认配置模板：
// - 位置参数（input/output_dir/max_size_mb）留空，由 CLI 提供；
// - 组件名采用仓库内置实现；
// - 选项给出安全中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		ContinueOnError: d.ContinueOnError,
		LockOutput:      d.LockOutput,
		Logging:         d.Logging,
		Components:      d.Components,
	}
	// Options：包含所有键（值可为空/默认），确保键存在。
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536
}`)
	cfg.Options.Splitter = json.RawMessage(`{
  "header_lines": 3,
  "record_marker": "<scanclassset",
  "end_marker": "</data",
  "footer": "   </data>\n</cachedata>",
  "keep_empty_parts": false,
  "validate_utf8": true,
  "buf_size": 65536
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "atomic": true,
  "perm_file": 420,
  "perm_dir": 493,
  "buf_size": 65536
}`)
	return cfg
}
