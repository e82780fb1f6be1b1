package renderer

import "github.com/ByLCY/folio/layout"

// DocumentWriter 是有状态的文档页面对象：创建时已经位于第一页。
// 坐标与尺寸单位均为毫米，原点在页面左上角；字号单位为 pt。
type DocumentWriter interface {
	PageSize() (width, height float64)
	NewPage() error
	DrawImage(data []byte, x, y, width, height float64) error
	DrawText(text string, x, y, fontSize float64) error
	// Finalize 序列化文档并以 fileName 交付字节流，之后 writer 不可再用。
	Finalize(fileName string) error
}

// RectFiller 是可选能力：用纯色填充矩形，用于遮住分页时边距中露出的图片。
type RectFiller interface {
	FillRect(x, y, width, height float64, c layout.Color) error
}

// WriterFactory 为每次导出创建一个新的 DocumentWriter。
type WriterFactory interface {
	NewWriter(format layout.PageFormat) (DocumentWriter, error)
}

// WriterFactoryFunc 让普通函数实现 WriterFactory。
type WriterFactoryFunc func(format layout.PageFormat) (DocumentWriter, error)

func (f WriterFactoryFunc) NewWriter(format layout.PageFormat) (DocumentWriter, error) {
	return f(format)
}

// Meta 保存 PDF 元信息。
type Meta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
