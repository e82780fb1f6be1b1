package layout

const (
	// DefaultTitleFontSize 标题字号（pt）。
	DefaultTitleFontSize = 14.0
	// DefaultTitleGap 标题与图片之间的留白（mm）。
	DefaultTitleGap = 4.0
)

// PlanOptions 配置规划阶段的标题排版参数。
type PlanOptions struct {
	TitleFontSize float64 // pt，<=0 时使用 DefaultTitleFontSize
	TitleGap      float64 // mm，<=0 时使用 DefaultTitleGap
	// Heading 仅用于单页合成模式：整页顶部的标题。
	Heading string
}

func (o PlanOptions) fontSize() float64 {
	if o.TitleFontSize <= 0 {
		return DefaultTitleFontSize
	}
	return o.TitleFontSize
}

// TitleBand 返回一个标题占用的纵向高度（mm）：一行标题加上与内容之间的留白。
func (o PlanOptions) TitleBand() float64 {
	gap := o.TitleGap
	if gap <= 0 {
		gap = DefaultTitleGap
	}
	return o.fontSize()*PtToMm*1.2 + gap
}
