package layout

// 该文件定义页面几何、截图输入与绘制指令，供规划、回放与调试 JSON 共用。

// PageGeometry 描述目标页面尺寸与统一边距，单位均为毫米。
type PageGeometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin float64 `json:"margin"`
}

// ContentWidth 返回扣除左右边距后的可绘制宽度。
func (g PageGeometry) ContentWidth() float64 { return g.Width - 2*g.Margin }

// Band 返回页面的可绘制纵向范围（page band）。
func (g PageGeometry) Band() float64 { return g.Height - 2*g.Margin }

// Image 是规划器看到的一张截图：只关心引用名与像素尺寸。
type Image struct {
	Ref      string `json:"ref"`
	WidthPx  int    `json:"widthPx"`
	HeightPx int    `json:"heightPx"`
}

// Empty 报告截图是否缺失；宽或高为 0 的截图永远不会被绘制。
func (img *Image) Empty() bool {
	return img == nil || img.WidthPx <= 0 || img.HeightPx <= 0
}

// Section 是一个待排版的段落：可选标题、可选顶部留白以及（可能缺失的）截图。
type Section struct {
	Title     string  `json:"title,omitempty"`
	MarginTop float64 `json:"marginTop,omitempty"` // mm
	Image     *Image  `json:"image,omitempty"`
}

// InstructionKind 区分绘制指令的种类。
type InstructionKind string

const (
	KindImage InstructionKind = "image"
	KindText  InstructionKind = "text"
	// KindMask 用背景色覆盖边距区域，使平移后的整图只在 page band 内可见。
	KindMask InstructionKind = "mask"
)

// DrawInstruction 是一条已经算好坐标的绘制指令（单位：mm，左上角为原点）。
// 回放顺序：先按 Page 升序，再按生成顺序。
type DrawInstruction struct {
	Page     int             `json:"page"`
	Kind     InstructionKind `json:"kind"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Width    float64         `json:"width,omitempty"`
	Height   float64         `json:"height,omitempty"`
	ImageRef string          `json:"imageRef,omitempty"`
	Text     string          `json:"text,omitempty"`
	FontSize float64         `json:"fontSize,omitempty"` // pt
}

// Plan 是一次导出的完整排版结果。
type Plan struct {
	Pages        int               `json:"pages"`
	Geometry     PageGeometry      `json:"geometry"`
	Instructions []DrawInstruction `json:"instructions"`
}

// PageInstructions 返回指定页上的指令（保持生成顺序）。
func (p *Plan) PageInstructions(page int) []DrawInstruction {
	var out []DrawInstruction
	for _, in := range p.Instructions {
		if in.Page == page {
			out = append(out, in)
		}
	}
	return out
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}
