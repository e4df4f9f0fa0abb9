package registry

import (
	"bytes"
	"encoding/json"

	"github.com/BenEklundCS/IGN-QuarantineSplitter/pkg/contract"
	rfs "github.com/BenEklundCS/IGN-QuarantineSplitter/plugins/reader/filesystem"
	rmmap "github.com/BenEklundCS/IGN-QuarantineSplitter/plugins/reader/mmap"
	squar "github.com/BenEklundCS/IGN-QuarantineSplitter/plugins/splitter/quarantine"
	wfs "github.com/BenEklundCS/IGN-QuarantineSplitter/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewSplitter 工厂签名：接收原样 JSON Options。
type NewSplitter func(raw json.RawMessage) (contract.Splitter, error)

// NewWriter 工厂签名：输出根目录 + 原样 JSON Options。
type NewWriter func(outputDir string, raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
	// mmap: 常规文件只读映射；STDIN 回退为流式读取
	"mmap": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rmmap.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rmmap.New(&opts), nil
	},
}

// Splitter 工厂注册表。
var Splitter = map[string]NewSplitter{
	// quarantine: 按 <scanclassset 边界与字节阈值切分
	"quarantine": func(raw json.RawMessage) (contract.Splitter, error) {
		var opts squar.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return squar.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(outputDir string, raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(outputDir, &opts)
	},
}
