package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/renderer"
)

var textColor = layout.Color{R: 30, G: 30, B: 30}

// Options configures the PDF writer.
type Options struct {
	// OutDir receives finalized documents. Empty means the current directory.
	OutDir string
	// Font names a built-in font for text; empty selects fonts.Regular.
	Font string
	Meta renderer.Meta
}

// Writer draws pages via github.com/tdewolff/canvas and serializes them as PDF.
// Each page is an independent canvas; content outside the page is cut off by
// the page boundary.
type Writer struct {
	opts   Options
	width  float64
	height float64
	fonts  *fontCache

	pages []*canvas.Canvas
	ctx   *canvas.Context

	output    []byte
	finalized bool
}

var (
	_ renderer.DocumentWriter = (*Writer)(nil)
	_ renderer.RectFiller     = (*Writer)(nil)
)

// NewWriter creates a writer positioned on the first page of the given format.
func NewWriter(format layout.PageFormat, opts Options) (*Writer, error) {
	width, height, err := layout.PageSize(format)
	if err != nil {
		return nil, err
	}
	w := &Writer{opts: opts, width: width, height: height, fonts: newFontCache()}
	w.startPage()
	return w, nil
}

// Factory implements renderer.WriterFactory with shared options.
type Factory struct {
	Options Options
}

var _ renderer.WriterFactory = Factory{}

// NewWriter implements renderer.WriterFactory.
func (f Factory) NewWriter(format layout.PageFormat) (renderer.DocumentWriter, error) {
	return NewWriter(format, f.Options)
}

func (w *Writer) startPage() {
	c := canvas.New(w.width, w.height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	w.pages = append(w.pages, c)
	w.ctx = ctx
}

// PageSize returns the page width and height in millimetres.
func (w *Writer) PageSize() (float64, float64) { return w.width, w.height }

// PageCount returns the number of pages started so far.
func (w *Writer) PageCount() int { return len(w.pages) }

// NewPage starts a new page.
func (w *Writer) NewPage() error {
	if w.finalized {
		return fmt.Errorf("文档已输出，不能再追加页面")
	}
	w.startPage()
	return nil
}

// DrawImage decodes data and draws it with its top-left corner at (x, y),
// scaled to width. The height follows from the image aspect ratio.
func (w *Writer) DrawImage(data []byte, x, y, width, height float64) error {
	if w.finalized {
		return fmt.Errorf("文档已输出，不能再绘制")
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("解码图片失败: %w", err)
	}
	dpmm := float64(img.Bounds().Dx()) / width
	if dpmm <= 0 {
		dpmm = 1
	}
	w.ctx.DrawImage(x, y, img, canvas.DPMM(dpmm))
	return nil
}

// DrawText draws a single line whose top edge is at y. fontSize is in pt.
func (w *Writer) DrawText(text string, x, y, fontSize float64) error {
	if w.finalized {
		return fmt.Errorf("文档已输出，不能再绘制")
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	face, err := w.fonts.face(w.opts.Font, fontSize, colorFromLayout(textColor))
	if err != nil {
		return err
	}
	// 基线位置：行顶部加上字体上升部
	baseline := y + face.Metrics().Ascent
	w.ctx.DrawText(x, baseline, canvas.NewTextLine(face, text, canvas.Left))
	return nil
}

// FillRect paints a solid rectangle without stroke.
func (w *Writer) FillRect(x, y, width, height float64, c layout.Color) error {
	if w.finalized {
		return fmt.Errorf("文档已输出，不能再绘制")
	}
	fillRect(w.ctx, x, y, width, height, colorFromLayout(c))
	return nil
}

// Finalize renders every page into a PDF and writes it to OutDir/fileName.
func (w *Writer) Finalize(fileName string) error {
	if w.finalized {
		return fmt.Errorf("文档已输出")
	}
	if strings.TrimSpace(fileName) == "" {
		return fmt.Errorf("输出文件名不能为空")
	}
	data, err := w.render()
	if err != nil {
		return err
	}
	w.finalized = true
	w.output = data

	path := fileName
	if !filepath.IsAbs(path) && w.opts.OutDir != "" {
		path = filepath.Join(w.opts.OutDir, fileName)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

// Bytes returns the serialized document after Finalize.
func (w *Writer) Bytes() []byte { return w.output }

func (w *Writer) render() ([]byte, error) {
	var buf bytes.Buffer
	writer := pdf.New(&buf, w.width, w.height, nil)
	meta := w.opts.Meta
	if meta.Creator == "" {
		meta.Creator = "Folio"
	}
	writer.SetInfo(meta.Title, meta.Subject, strings.Join(meta.Keywords, ", "), meta.Author, meta.Creator)
	for i, c := range w.pages {
		if i > 0 {
			writer.NewPage(w.width, w.height)
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}
