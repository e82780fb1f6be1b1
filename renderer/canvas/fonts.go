package canvasrenderer

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/folio/fonts"
	"github.com/ByLCY/folio/layout"
)

// fontCache 按名称缓存已加载的字体族，writer 与 rasterizer 共用。
type fontCache struct {
	mu       sync.Mutex
	families map[string]*canvas.FontFamily
}

func newFontCache() *fontCache {
	return &fontCache{families: map[string]*canvas.FontFamily{}}
}

func (fc *fontCache) family(name string) (*canvas.FontFamily, error) {
	if name == "" {
		name = fonts.Regular
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fam, ok := fc.families[name]; ok {
		return fam, nil
	}
	data, err := fonts.Load(name)
	if err != nil {
		return nil, err
	}
	fam := canvas.NewFontFamily(name)
	if err := fam.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
	}
	fc.families[name] = fam
	return fam, nil
}

// face 创建字号为 sizePt（pt）的字体面。
func (fc *fontCache) face(name string, sizePt float64, col color.Color) (*canvas.FontFace, error) {
	fam, err := fc.family(name)
	if err != nil {
		return nil, err
	}
	return fam.Face(sizePt, col, canvas.FontRegular, canvas.FontNormal), nil
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
