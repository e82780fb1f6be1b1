package export

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"slices"
	"strconv"

	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/renderer"
	"github.com/ByLCY/folio/surface"
)

// Composer 驱动一次完整导出：逐个截图、排版、在 DocumentWriter 上回放并输出。
// 截图严格串行，同一时刻最多只有一个离屏副本挂载在表面树上。
type Composer struct {
	tree     *surface.Tree
	renderer surface.Renderer
	writers  renderer.WriterFactory
	logger   *slog.Logger
}

// Option 配置 Composer。
type Option func(*Composer)

// WithLogger 设置用于记录被跳过段落的 logger。
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// New 创建 Composer。writers 为每次导出提供新的 DocumentWriter。
func New(tree *surface.Tree, r surface.Renderer, writers renderer.WriterFactory, opts ...Option) *Composer {
	c := &Composer{tree: tree, renderer: r, writers: writers, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report 汇总一次导出的结果。
type Report struct {
	FileName string
	Pages    int
	// Drawn 与 Skipped 按请求顺序列出成功截图与被跳过的表面 id。
	Drawn   []string
	Skipped []string
	Plan    layout.Plan
}

// ExportPaginated 把每个段落完整分页输出，段落按请求顺序排列，各自另起一页。
func (c *Composer) ExportPaginated(ctx context.Context, sections []SectionRequest, opts RenderOptions) (*Report, error) {
	run, err := c.begin(opts)
	if err != nil {
		return nil, err
	}
	laid := make([]layout.Section, 0, len(sections))
	for _, req := range sections {
		img, err := run.capture(ctx, req.SurfaceID)
		if err != nil {
			return nil, err
		}
		title := req.Title
		if title == "" {
			title = run.opts.Title(req.SurfaceID)
		}
		laid = append(laid, layout.Section{Title: title, MarginTop: req.MarginTop, Image: img})
	}
	return run.finish(layout.PlanPaginated(laid, run.geo, run.planOpts))
}

// ExportComposite 把所有段落按统一比例压缩到同一页。
// 整页标题取自 Titles[DocumentTitleSlot]；段落自身的标题不绘制。
func (c *Composer) ExportComposite(ctx context.Context, sections []SectionRequest, opts RenderOptions) (*Report, error) {
	run, err := c.begin(opts)
	if err != nil {
		return nil, err
	}
	laid := make([]layout.Section, 0, len(sections))
	for _, req := range sections {
		img, err := run.capture(ctx, req.SurfaceID)
		if err != nil {
			return nil, err
		}
		laid = append(laid, layout.Section{Image: img})
	}
	run.planOpts.Heading = run.opts.Title(DocumentTitleSlot)
	return run.finish(layout.PlanComposite(laid, run.geo, run.planOpts))
}

// ExportTwoPage 固定输出两页，分别放 firstID 与 secondID 对应的表面。
// 某个表面缺失时只影响它自己那一页。
func (c *Composer) ExportTwoPage(ctx context.Context, firstID, secondID string, opts RenderOptions) (*Report, error) {
	run, err := c.begin(opts)
	if err != nil {
		return nil, err
	}
	var pair [2]layout.Section
	for i, id := range []string{firstID, secondID} {
		img, err := run.capture(ctx, id)
		if err != nil {
			return nil, err
		}
		pair[i] = layout.Section{Title: run.opts.Title(id), Image: img}
	}
	return run.finish(layout.PlanTwoPage(pair[0], pair[1], run.geo, run.planOpts))
}

// exportRun 保存单次导出期间的状态；截图字节只在本次导出内有效。
type exportRun struct {
	c        *Composer
	opts     RenderOptions
	writer   renderer.DocumentWriter
	geo      layout.PageGeometry
	planOpts layout.PlanOptions
	capturer *surface.Capturer
	fill     layout.Color
	bg       color.Color
	images   map[string][]byte
	report   *Report
}

func (c *Composer) begin(opts RenderOptions) (*exportRun, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	writer, err := c.writers.NewWriter(opts.PageFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	w, h := writer.PageSize()
	geo, err := layout.NewPageGeometry(w, h, opts.Margin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	fill, bg := opts.background()
	return &exportRun{
		c:        c,
		opts:     opts,
		writer:   writer,
		geo:      geo,
		planOpts: opts.planOptions(),
		capturer: surface.NewCapturer(c.tree, c.renderer, surface.WithQuality(opts.ImageQuality), surface.WithLogger(c.logger)),
		fill:     fill,
		bg:       bg,
		images:   make(map[string][]byte),
		report:   &Report{FileName: opts.FileName},
	}, nil
}

// capture 截取一个表面。找不到表面或光栅化失败只会跳过该段落（返回 nil 图片）；
// 只有 context 被取消时才返回错误。
func (r *exportRun) capture(ctx context.Context, id string) (*layout.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := r.capturer.Capture(ctx, id, r.opts.Scale, r.bg)
	switch {
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.skip(id, err)
		return nil, nil
	case res.Empty():
		r.skip(id, errors.New("截图尺寸为 0"))
		return nil, nil
	}

	ref := strconv.Itoa(len(r.images)) + ":" + id
	r.images[ref] = res.ImageBytes
	r.report.Drawn = append(r.report.Drawn, id)
	r.c.logger.Debug("surface captured", "surface", id, "width", res.WidthPx, "height", res.HeightPx, "format", res.Format)
	return &layout.Image{Ref: ref, WidthPx: res.WidthPx, HeightPx: res.HeightPx}, nil
}

func (r *exportRun) skip(id string, err error) {
	r.report.Skipped = append(r.report.Skipped, id)
	r.c.logger.Warn("section skipped", "surface", id, "error", err)
}

// finish 按页回放指令，然后以配置的文件名输出文档。
func (r *exportRun) finish(plan layout.Plan) (*Report, error) {
	if err := r.replay(plan); err != nil {
		return nil, err
	}
	if err := r.writer.Finalize(r.opts.FileName); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFinalization, r.opts.FileName, err)
	}
	r.report.Pages = plan.Pages
	r.report.Plan = plan
	r.c.logger.Info("document exported", "file", r.opts.FileName, "pages", plan.Pages, "drawn", len(r.report.Drawn), "skipped", len(r.report.Skipped))
	return r.report, nil
}

func (r *exportRun) replay(plan layout.Plan) error {
	instructions := slices.Clone(plan.Instructions)
	slices.SortStableFunc(instructions, func(a, b layout.DrawInstruction) int {
		return cmp.Compare(a.Page, b.Page)
	})
	filler, canFill := r.writer.(renderer.RectFiller)

	page := 0
	for _, in := range instructions {
		if err := r.advance(&page, in.Page); err != nil {
			return err
		}
		switch in.Kind {
		case layout.KindImage:
			data, ok := r.images[in.ImageRef]
			if !ok {
				continue
			}
			if err := r.writer.DrawImage(data, in.X, in.Y, in.Width, in.Height); err != nil {
				r.c.logger.Warn("image not drawn", "ref", in.ImageRef, "page", in.Page, "error", err)
			}
		case layout.KindText:
			if err := r.writer.DrawText(in.Text, in.X, in.Y, in.FontSize); err != nil {
				r.c.logger.Warn("title not drawn", "text", in.Text, "page", in.Page, "error", err)
			}
		case layout.KindMask:
			if !canFill {
				continue
			}
			if err := filler.FillRect(in.X, in.Y, in.Width, in.Height, r.fill); err != nil {
				r.c.logger.Warn("margin mask not drawn", "page", in.Page, "error", err)
			}
		}
	}
	return r.advance(&page, plan.Pages-1)
}

// advance 新建页面直到当前页为 target。writer 创建时已位于第 0 页。
func (r *exportRun) advance(page *int, target int) error {
	for *page < target {
		if err := r.writer.NewPage(); err != nil {
			return fmt.Errorf("新建第 %d 页失败: %w", *page+2, err)
		}
		*page++
	}
	return nil
}
