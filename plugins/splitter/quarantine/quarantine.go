package quarantine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/BenEklundCS/IGN-QuarantineSplitter/pkg/contract"
)

const (
	// DefaultHeaderLines: 头部固定行数（XML 声明 + 根/数据起始标签）。
	DefaultHeaderLines = 3
	// DefaultRecordMarker: 记录起始行标记。
	DefaultRecordMarker = "<scanclassset"
	// DefaultEndMarker: 记录区结束行标记。
	DefaultEndMarker = "</data"
	// DefaultFooter: 每个分片末尾追加的固定闭合文本。
	DefaultFooter = "   </data>\n</cachedata>"
)

// Options 为 quarantine Splitter 的可选配置。零值字段采用默认。
type Options struct {
	// HeaderLines: 头部行数；<=0 使用默认 3。
	HeaderLines int `json:"header_lines,omitempty"`
	// RecordMarker/EndMarker: 行内子串标记；空串使用默认。
	RecordMarker string `json:"record_marker,omitempty"`
	EndMarker    string `json:"end_marker,omitempty"`
	// Footer: nil 使用默认；显式空串表示不追加。
	Footer *string `json:"footer,omitempty"`
	// KeepEmptyParts: 为 true 时，空缓冲也会被写出为仅含 header+footer 的分片。
	KeepEmptyParts bool `json:"keep_empty_parts,omitempty"`
	// ValidateUTF8: 默认 true；非法 UTF-8 行视为解码错误并中止。
	ValidateUTF8 *bool `json:"validate_utf8,omitempty"`
	// BufSize: 读缓冲大小；<=0 使用 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

// Splitter 实现按记录边界与字节阈值切分的行扫描器。
type Splitter struct {
	headerLines  int
	recordMarker string
	endMarker    string
	footer       string
	keepEmpty    bool
	validateUTF8 bool
	bufSize      int
}

// New 创建 Splitter。
func New(opts *Options) *Splitter {
	s := &Splitter{
		headerLines:  DefaultHeaderLines,
		recordMarker: DefaultRecordMarker,
		endMarker:    DefaultEndMarker,
		footer:       DefaultFooter,
		validateUTF8: true,
		bufSize:      64 * 1024,
	}
	if opts == nil {
		return s
	}
	if opts.HeaderLines > 0 {
		s.headerLines = opts.HeaderLines
	}
	if opts.RecordMarker != "" {
		s.recordMarker = opts.RecordMarker
	}
	if opts.EndMarker != "" {
		s.endMarker = opts.EndMarker
	}
	if opts.Footer != nil {
		s.footer = *opts.Footer
	}
	if opts.ValidateUTF8 != nil {
		s.validateUTF8 = *opts.ValidateUTF8
	}
	if opts.BufSize > 0 {
		s.bufSize = opts.BufSize
	}
	s.keepEmpty = opts.KeepEmptyParts
	return s
}

var _ contract.Splitter = (*Splitter)(nil)

// ReadHeader 从 br 读取恰好 n 行并按原样拼接（保留行结束符）。
// 流过短时返回较少内容而不报错；仅上抛非 EOF 的读错误。
func ReadHeader(br *bufio.Reader, n int) (contract.Header, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		line, err := br.ReadString('\n')
		b.WriteString(line)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
	}
	return contract.Header(b.String()), nil
}

// cutBefore 判定是否需要在 line 之前切出新分片：
// line 为记录起始，且累计字节加上该行严格大于阈值（等于阈值不切）。
func cutBefore(line string, acc, max int64, marker string) bool {
	return strings.Contains(line, marker) && acc+int64(len(line)) > max
}

// scanState 为单次 Split 的分片缓冲与计数器。
type scanState struct {
	s      *Splitter
	header contract.Header
	emit   contract.EmitFunc

	body    []string
	size    int64
	next    int // 下一个分片序号（自 1 起）
	emitted int
}

func (st *scanState) add(line string) {
	st.body = append(st.body, line)
	st.size += int64(len(line))
}

// flush 将当前缓冲交给 emit 并重置；空缓冲在未开启 keepEmpty 时跳过（不占用序号），
// force 用于保证整次运行至少产出一个分片。
func (st *scanState) flush(ctx context.Context, force bool) error {
	if len(st.body) == 0 && !st.s.keepEmpty && !force {
		return nil
	}
	p := contract.Part{
		Index:  st.next,
		Header: st.header,
		Body:   st.body,
		Footer: st.s.footer,
		Size:   st.size,
	}
	st.next++
	st.emitted++
	st.body = nil
	st.size = 0
	if err := st.emit(ctx, p); err != nil {
		return fmt.Errorf("emit part %d: %w", p.Index, err)
	}
	return nil
}

// Split 读取头部后逐行扫描剩余内容，并在以下时机切出分片：
// 1) 记录起始行到来且将超过阈值（该行归入新分片）；
// 2) 遇到结束标记（该行不写出，停止读取）；
// 3) 输入耗尽且缓冲非空。
func (s *Splitter) Split(ctx context.Context, r io.Reader, limit contract.Limit, emit contract.EmitFunc) error {
	if limit.MaxBytes <= 0 {
		return fmt.Errorf("%w: %d", contract.ErrInvalidLimit, limit.MaxBytes)
	}
	if emit == nil {
		return fmt.Errorf("%w: nil emit", contract.ErrInvariantViolation)
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, s.bufSize)
	}
	header, err := ReadHeader(br, s.headerLines)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if s.validateUTF8 {
		if n := invalidLine(string(header)); n > 0 {
			return fmt.Errorf("%w: invalid UTF-8 in header at line %d", contract.ErrDecode, n)
		}
	}
	st := &scanState{s: s, header: header, emit: emit, next: 1}

	lineNo := s.headerLines
	for {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		line, rerr := br.ReadString('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return fmt.Errorf("read line %d: %w", lineNo+1, rerr)
		}
		if line == "" {
			break
		}
		lineNo++
		if s.validateUTF8 && !utf8.ValidString(line) {
			return fmt.Errorf("%w: invalid UTF-8 at line %d", contract.ErrDecode, lineNo)
		}

		switch {
		case cutBefore(line, st.size, limit.MaxBytes, s.recordMarker):
			if err := st.flush(ctx, false); err != nil {
				return err
			}
		case strings.Contains(line, s.endMarker):
			return st.flush(ctx, st.emitted == 0)
		}
		st.add(line)

		if errors.Is(rerr, io.EOF) {
			break
		}
	}
	return st.flush(ctx, false)
}

// invalidLine 返回首个非法 UTF-8 行的行号（自 1 起）；全部合法时返回 0。
func invalidLine(text string) int {
	for i, line := range strings.SplitAfter(text, "\n") {
		if !utf8.ValidString(line) {
			return i + 1
		}
	}
	return 0
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
