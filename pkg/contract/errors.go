package contract

import "errors"

// 最小错误分类（哨兵）；调用方通过 errors.Is 判定。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInputNotFound: 输入文件不存在。
	ErrInputNotFound = errors.New("input not found")
	// ErrInvalidInput: 输入不是可读取的常规文件（例如目录）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrDecode: 输入行不是合法 UTF-8。
	ErrDecode = errors.New("decode error")
	// ErrPartWrite: 分片写出失败（按策略中止时上抛）。
	ErrPartWrite = errors.New("part write failed")
	// ErrInvalidLimit: 尺寸阈值非法（非正、NaN 或无穷）。
	ErrInvalidLimit = errors.New("invalid size limit")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
