package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// PageFormat 是受支持的纸张规格名称。
type PageFormat string

const (
	FormatA4     PageFormat = "a4"
	FormatLetter PageFormat = "letter"
)

var pagePresets = map[PageFormat][2]float64{
	FormatA4:     {210, 297},
	FormatLetter: {215.9, 279.4},
}

// ParsePageFormat 规范化纸张名称（大小写不敏感）。
func ParsePageFormat(value string) (PageFormat, error) {
	f := PageFormat(strings.ToLower(strings.TrimSpace(value)))
	if f == "" {
		return FormatA4, nil
	}
	if _, ok := pagePresets[f]; !ok {
		return "", fmt.Errorf("暂不支持的纸张尺寸：%s", value)
	}
	return f, nil
}

// PageSize 返回纵向纸张的宽高（mm）。
func PageSize(format PageFormat) (float64, float64, error) {
	base, ok := pagePresets[format]
	if !ok {
		return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", format)
	}
	return base[0], base[1], nil
}

// NewPageGeometry 组合页面尺寸与边距，并校验 2×margin 小于宽与高。
func NewPageGeometry(width, height, margin float64) (PageGeometry, error) {
	g := PageGeometry{Width: width, Height: height, Margin: margin}
	return g, g.Validate()
}

// Validate 检查几何不变式。
func (g PageGeometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("页面尺寸无效: %gx%g", g.Width, g.Height)
	}
	if g.Margin < 0 {
		return fmt.Errorf("页边距不能为负: %g", g.Margin)
	}
	if 2*g.Margin >= g.Width || 2*g.Margin >= g.Height {
		return fmt.Errorf("页边距 %gmm 过大，页面 %gx%gmm 没有可绘制区域", g.Margin, g.Width, g.Height)
	}
	return nil
}

// ParseColor 解析 #rgb / #rrggbb / #rrggbbaa 形式的颜色（透明度被忽略）。
func ParseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return hexColor(r, g, b)
	case 6, 8:
		return hexColor(value[0:2], value[2:4], value[4:6])
	default:
		return Color{}, fmt.Errorf("颜色值 #%s 无法解析", value)
	}
}

func hexColor(r, g, b string) (Color, error) {
	var out [3]int
	for i, part := range []string{r, g, b} {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("颜色分量 %s 无法解析: %w", part, err)
		}
		out[i] = int(v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}

// Hex 返回 #rrggbb 形式。
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// White 是默认背景色。
var White = Color{R: 255, G: 255, B: 255}
