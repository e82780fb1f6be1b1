package canvasrenderer

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/surface"
)

const defaultFontSizePx = 14.0

// Rasterizer 实现 surface.Renderer：把脱离文档的表面子树绘制成位图。
// 画布单位取 CSS 像素，输出分辨率为每单位 Scale 个像素。
type Rasterizer struct {
	font  string
	fonts *fontCache
}

var _ surface.Renderer = (*Rasterizer)(nil)

// NewRasterizer 创建光栅化器；font 为空时使用内置默认字体。
func NewRasterizer(font string) *Rasterizer {
	return &Rasterizer{font: font, fonts: newFontCache()}
}

// Rasterize 按 opts 给出的自然尺寸与过采样倍数绘制 node 及其子节点。
func (r *Rasterizer) Rasterize(ctx context.Context, node *surface.Node, opts surface.RasterOptions) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("光栅化目标为空")
	}
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = node.NaturalSize()
	}
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rectangle{}), nil
	}
	scale := opts.Scale
	if scale < 1 {
		scale = 1
	}

	c := canvas.New(float64(w), float64(h))
	cc := canvas.NewContext(c)
	cc.SetCoordSystem(canvas.CartesianIV)
	if opts.Background != nil {
		fillRect(cc, 0, 0, float64(w), float64(h), opts.Background)
	}
	// 根节点自身的偏移（离屏位置）不参与绘制
	if err := r.drawNode(cc, node, -node.X, -node.Y); err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPMM(scale), canvas.DefaultColorSpace), nil
}

func (r *Rasterizer) drawNode(cc *canvas.Context, n *surface.Node, ox, oy float64) error {
	x, y := ox+n.X, oy+n.Y
	if n.Background != "" && n.Width > 0 && n.Height > 0 {
		if bg, err := layout.ParseColor(n.Background); err == nil {
			fillRect(cc, x, y, float64(n.Width), float64(n.Height), colorFromLayout(bg))
		}
	}

	switch n.Kind {
	case surface.KindBitmap:
		// 未同步到像素的位图节点保持空白
		if n.Bitmap != nil && n.Width > 0 {
			dpmm := float64(n.Bitmap.Bounds().Dx()) / float64(n.Width)
			cc.DrawImage(x, y, n.Bitmap, canvas.DPMM(dpmm))
		}
	case surface.KindText:
		if err := r.drawText(cc, n, x, y); err != nil {
			return err
		}
	}

	for _, child := range n.Children {
		if err := r.drawNode(cc, child, x, y); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rasterizer) drawText(cc *canvas.Context, n *surface.Node, x, y float64) error {
	if n.Text == "" {
		return nil
	}
	size := n.FontSize
	if size <= 0 {
		size = defaultFontSizePx
	}
	col := textColor
	if n.Color != "" {
		if c, err := layout.ParseColor(n.Color); err == nil {
			col = c
		}
	}
	// 画布单位为像素，字号像素值按 mm→pt 的比例换算成字体面大小
	face, err := r.fonts.face(r.font, toPt(size), colorFromLayout(col))
	if err != nil {
		return err
	}
	cc.DrawText(x, y+face.Metrics().Ascent, canvas.NewTextLine(face, n.Text, canvas.Left))
	return nil
}

func fillRect(cc *canvas.Context, x, y, w, h float64, fill color.Color) {
	cc.SetFillColor(fill)
	cc.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	cc.SetStrokeWidth(0)
	cc.DrawPath(x, y, canvas.Rectangle(w, h))
}
