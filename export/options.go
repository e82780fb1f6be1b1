package export

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/ByLCY/folio/layout"
)

const (
	DefaultImageQuality    = 0.95
	DefaultScale           = 1.0
	DefaultBackgroundColor = "#ffffff"
	DefaultMargin          = 10.0 // mm
)

// DocumentTitleSlot 是单页合成模式整页标题在 Titles 中的键。
const DocumentTitleSlot = "document"

// SectionRequest 描述一个待导出的表面。
type SectionRequest struct {
	SurfaceID string  `json:"surfaceId"`
	Title     string  `json:"title,omitempty"`
	MarginTop float64 `json:"marginTop,omitempty"` // mm
}

// RenderOptions 是一次导出的全部参数。零值字段由 Normalize 填充默认值。
type RenderOptions struct {
	FileName   string            `json:"fileName"`
	PageFormat layout.PageFormat `json:"pageFormat"`
	// ImageQuality 取值 [0,1]：1 输出无损 PNG，否则按 quality×100 编码 JPEG。
	// 0 视为未设置。
	ImageQuality    float64 `json:"imageQuality"`
	Scale           float64 `json:"scale"`
	BackgroundColor string  `json:"backgroundColor"`
	Margin          float64 `json:"margin"` // mm；负数表示显式的 0 边距
	// Titles 按槽位保存标题：表面 id 或 DocumentTitleSlot。
	Titles map[string]string `json:"titles,omitempty"`

	TitleFontSize float64 `json:"titleFontSize,omitempty"` // pt
	TitleGap      float64 `json:"titleGap,omitempty"`      // mm
}

// Normalize 返回填充默认值后的副本。
func (o RenderOptions) Normalize() RenderOptions {
	out := o
	out.FileName = strings.TrimSpace(out.FileName)
	if out.PageFormat == "" {
		out.PageFormat = layout.FormatA4
	} else {
		out.PageFormat = layout.PageFormat(strings.ToLower(strings.TrimSpace(string(out.PageFormat))))
	}
	if out.ImageQuality == 0 {
		out.ImageQuality = DefaultImageQuality
	}
	if out.Scale == 0 {
		out.Scale = DefaultScale
	}
	if strings.TrimSpace(out.BackgroundColor) == "" {
		out.BackgroundColor = DefaultBackgroundColor
	}
	switch {
	case out.Margin == 0:
		out.Margin = DefaultMargin
	case out.Margin < 0:
		out.Margin = 0
	}
	return out
}

// Validate 检查已规范化的参数。页面几何在拿到 writer 的页面尺寸后另行校验。
func (o RenderOptions) Validate() error {
	if o.FileName == "" {
		return fmt.Errorf("%w: 文件名不能为空", ErrInvalidOptions)
	}
	if _, err := layout.ParsePageFormat(string(o.PageFormat)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.ImageQuality < 0 || o.ImageQuality > 1 {
		return fmt.Errorf("%w: 图片质量 %g 超出 [0,1]", ErrInvalidOptions, o.ImageQuality)
	}
	if o.Scale < 1 {
		return fmt.Errorf("%w: 缩放倍数 %g 不能小于 1", ErrInvalidOptions, o.Scale)
	}
	if _, err := layout.ParseColor(o.BackgroundColor); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

// Title 返回槽位 slot 上配置的标题。
func (o RenderOptions) Title(slot string) string {
	return o.Titles[slot]
}

func (o RenderOptions) planOptions() layout.PlanOptions {
	return layout.PlanOptions{TitleFontSize: o.TitleFontSize, TitleGap: o.TitleGap}
}

func (o RenderOptions) background() (layout.Color, color.Color) {
	c, err := layout.ParseColor(o.BackgroundColor)
	if err != nil {
		c = layout.White
	}
	return c, color.RGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 0xff}
}
