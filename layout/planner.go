package layout

import "math"

// 三种排版策略都是纯函数：输入截图尺寸与页面几何，输出按页排列的绘制指令。
// 输出格式不支持裁剪，分页依靠“整图重绘并上移”：每页都画完整图片，
// 只是纵向偏移不同，由页面边界与边距遮罩完成裁切。

// pageEpsilon 吸收浮点误差，避免恰好整除时多出一页空白。
const pageEpsilon = 1e-9

// PagesNeeded 返回高度 height 在 page band 为 band 时需要的页数（至少 1）。
func PagesNeeded(height, band float64) int {
	if band <= 0 || height <= 0 {
		return 1
	}
	n := int(math.Ceil(height/band - pageEpsilon))
	if n < 1 {
		return 1
	}
	return n
}

// ShrinkFactor 返回单页合成模式的统一缩放系数，永远不放大。
func ShrinkFactor(total, available float64) float64 {
	if total <= 0 {
		return 1
	}
	return math.Min(1, available/total)
}

// FitRatio 返回把 w×h 放入 availW×availH 的最佳缩放比例，可能大于 1。
func FitRatio(availW, availH, w, h float64) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	return math.Min(availW/w, availH/h)
}

// fittedHeight 将图片宽度拟合到 width 后的高度（mm），宽高比不变。
func fittedHeight(img *Image, width float64) float64 {
	return PxToUnits(float64(img.HeightPx)) * width / PxToUnits(float64(img.WidthPx))
}

// PlanPaginated 按请求顺序把每个段落完整分页，段落之间总是另起一页。
//
// 段落首页的标题与 MarginTop 合计为预留高度 T，图片在第 i 页的纵向位置为
// margin + T − i×band，因此各页可见切片首尾相接，既无缝隙也不重叠。
func PlanPaginated(sections []Section, geo PageGeometry, opts PlanOptions) Plan {
	plan := Plan{Geometry: geo}
	renderW := geo.ContentWidth()
	band := geo.Band()
	page := -1

	for _, sec := range sections {
		if sec.Image.Empty() {
			continue
		}
		renderH := fittedHeight(sec.Image, renderW)
		reserve := math.Max(sec.MarginTop, 0)
		if sec.Title != "" {
			reserve += opts.TitleBand()
		}
		// 预留过多时首页将放不下任何内容，最多占用半个 band
		reserve = math.Min(reserve, band/2)

		pages := PagesNeeded(renderH+reserve, band)
		for i := 0; i < pages; i++ {
			page++
			if i == 0 && sec.Title != "" {
				plan.Instructions = append(plan.Instructions, titleInstruction(page, geo.Margin, geo.Margin+math.Max(sec.MarginTop, 0), sec.Title, opts))
			}
			y := geo.Margin + reserve - float64(i)*band
			plan.Instructions = append(plan.Instructions, DrawInstruction{
				Page:     page,
				Kind:     KindImage,
				X:        geo.Margin,
				Y:        y,
				Width:    renderW,
				Height:   renderH,
				ImageRef: sec.Image.Ref,
			})
			plan.Instructions = append(plan.Instructions, marginMasks(page, geo, y, renderH)...)
		}
	}

	plan.Pages = page + 1
	if plan.Pages < 1 {
		plan.Pages = 1
	}
	return plan
}

// marginMasks 遮住上下边距中露出的图片部分。
func marginMasks(page int, geo PageGeometry, y, h float64) []DrawInstruction {
	var out []DrawInstruction
	if geo.Margin <= 0 {
		return nil
	}
	if y < geo.Margin {
		out = append(out, DrawInstruction{Page: page, Kind: KindMask, X: 0, Y: 0, Width: geo.Width, Height: geo.Margin})
	}
	bottom := geo.Margin + geo.Band()
	if y+h > bottom {
		out = append(out, DrawInstruction{Page: page, Kind: KindMask, X: 0, Y: bottom, Width: geo.Width, Height: geo.Height - bottom})
	}
	return out
}

// PlanComposite 把所有段落压缩到同一页：先按共同宽度拟合高度，
// 再用统一系数 min(1, 可用高度/总高度) 缩放，保持相对比例，依次堆叠。
// 缺失的截图贡献 0 高度。
func PlanComposite(sections []Section, geo PageGeometry, opts PlanOptions) Plan {
	plan := Plan{Pages: 1, Geometry: geo}
	renderW := geo.ContentWidth()
	top := geo.Margin
	available := geo.Band()
	if opts.Heading != "" {
		plan.Instructions = append(plan.Instructions, titleInstruction(0, geo.Margin, geo.Margin, opts.Heading, opts))
		top += opts.TitleBand()
		available -= opts.TitleBand()
	}

	fitted := make([]float64, len(sections))
	total := 0.0
	for i, sec := range sections {
		if sec.Image.Empty() {
			continue
		}
		fitted[i] = fittedHeight(sec.Image, renderW)
		total += fitted[i]
	}

	shrink := ShrinkFactor(total, available)
	offset := 0.0
	for i, sec := range sections {
		if sec.Image.Empty() {
			continue
		}
		h := fitted[i] * shrink
		w := renderW * shrink
		plan.Instructions = append(plan.Instructions, DrawInstruction{
			Page:     0,
			Kind:     KindImage,
			X:        geo.Margin + (renderW-w)/2,
			Y:        top + offset,
			Width:    w,
			Height:   h,
			ImageRef: sec.Image.Ref,
		})
		offset += h
	}
	return plan
}

// PlanTwoPage 固定输出两页：第一页放 first，第二页放 second。
// 每页独立地把图片按最佳比例放入标题下方的可绘制区域并在两个方向上居中；
// 截图缺失时该页只保留标题。
func PlanTwoPage(first, second Section, geo PageGeometry, opts PlanOptions) Plan {
	plan := Plan{Pages: 2, Geometry: geo}
	for page, sec := range []Section{first, second} {
		plan.Instructions = append(plan.Instructions, fitCentered(page, sec, geo, opts)...)
	}
	return plan
}

func fitCentered(page int, sec Section, geo PageGeometry, opts PlanOptions) []DrawInstruction {
	var out []DrawInstruction
	top := geo.Margin
	availW := geo.ContentWidth()
	availH := geo.Band()
	if sec.Title != "" {
		out = append(out, titleInstruction(page, geo.Margin, geo.Margin, sec.Title, opts))
		top += opts.TitleBand()
		availH -= opts.TitleBand()
	}
	if sec.Image.Empty() || availH <= 0 {
		return out
	}

	imgW := PxToUnits(float64(sec.Image.WidthPx))
	imgH := PxToUnits(float64(sec.Image.HeightPx))
	ratio := FitRatio(availW, availH, imgW, imgH)
	w, h := imgW*ratio, imgH*ratio
	return append(out, DrawInstruction{
		Page:     page,
		Kind:     KindImage,
		X:        geo.Margin + (availW-w)/2,
		Y:        top + (availH-h)/2,
		Width:    w,
		Height:   h,
		ImageRef: sec.Image.Ref,
	})
}

func titleInstruction(page int, x, y float64, text string, opts PlanOptions) DrawInstruction {
	size := opts.fontSize()
	return DrawInstruction{
		Page:     page,
		Kind:     KindText,
		X:        x,
		Y:        y,
		Height:   size * PtToMm * 1.2,
		Text:     text,
		FontSize: size,
	}
}
