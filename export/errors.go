package export

import "errors"

var (
	// ErrInvalidOptions 表示导出参数在开始截图之前就被拒绝。
	ErrInvalidOptions = errors.New("导出参数无效")
	// ErrFinalization 表示文档序列化或交付失败；这是唯一会中止导出的错误。
	ErrFinalization = errors.New("文档输出失败")
)
