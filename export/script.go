package export

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/folio/binding"
	"github.com/ByLCY/folio/dsl"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/renderer"
)

// Policy 选择排版策略。
type Policy string

const (
	PolicyPaginated Policy = "paginated"
	PolicyComposite Policy = "composite"
	PolicyTwoPage   Policy = "two-page"
)

// Job 是脚本中的一个导出任务。
type Job struct {
	Policy   Policy
	Sections []SectionRequest
	Options  RenderOptions
}

// Script 是解析并插值后的导出脚本。
type Script struct {
	Name    string
	Version string
	Meta    renderer.Meta
	Jobs    []Job
}

// LoadScript 把解析后的脚本转换成导出任务。文件名与标题中的 ${path}
// 占位符以 data 插值；options 段的参数作为每个任务的默认值，任务内可覆盖。
func LoadScript(doc *dsl.Document, data any) (*Script, error) {
	if doc == nil {
		return nil, fmt.Errorf("脚本为空")
	}
	script := &Script{Name: doc.Name, Version: doc.Version, Meta: collectMeta(doc, data)}

	var shared RenderOptions
	for _, section := range doc.Sections {
		if section.Options == nil {
			continue
		}
		if err := applyOptions(&shared, section.Options.Block, data); err != nil {
			return nil, err
		}
	}

	for _, section := range doc.Sections {
		if section.Job == nil {
			continue
		}
		job, err := buildJob(section.Job, shared, data)
		if err != nil {
			return nil, err
		}
		if job.Options.FileName == "" {
			job.Options.FileName = fmt.Sprintf("%s-%d.pdf", strings.ToLower(doc.Name), len(script.Jobs)+1)
		}
		script.Jobs = append(script.Jobs, job)
	}
	if len(script.Jobs) == 0 {
		return nil, fmt.Errorf("脚本 %s 中没有导出任务", doc.Name)
	}
	return script, nil
}

// Run 按任务策略调用对应的导出入口。
func (c *Composer) Run(ctx context.Context, job Job) (*Report, error) {
	switch job.Policy {
	case PolicyPaginated:
		return c.ExportPaginated(ctx, job.Sections, job.Options)
	case PolicyComposite:
		return c.ExportComposite(ctx, job.Sections, job.Options)
	case PolicyTwoPage:
		if len(job.Sections) != 2 {
			return nil, fmt.Errorf("%w: two-page 需要正好两个表面，实际 %d", ErrInvalidOptions, len(job.Sections))
		}
		return c.ExportTwoPage(ctx, job.Sections[0].SurfaceID, job.Sections[1].SurfaceID, job.Options)
	default:
		return nil, fmt.Errorf("%w: 未知的排版策略 %q", ErrInvalidOptions, job.Policy)
	}
}

func buildJob(section *dsl.JobSection, shared RenderOptions, data any) (Job, error) {
	job := Job{Policy: Policy(section.Policy), Options: shared}
	job.Options.Titles = cloneTitles(shared.Titles)
	if section.File != nil {
		job.Options.FileName = binding.Interpolate(string(*section.File), data)
	}
	if section.Block == nil {
		return job, nil
	}

	var first, second *SectionRequest
	for _, stmt := range section.Block.Statements {
		switch {
		case stmt.Assignment != nil:
			if stmt.Assignment.Key == "heading" {
				if job.Policy != PolicyComposite {
					return Job{}, fmt.Errorf("%s 任务不支持 heading", job.Policy)
				}
				setTitle(&job.Options, DocumentTitleSlot, binding.Interpolate(valueToString(stmt.Assignment.Value), data))
				continue
			}
			if err := applyOption(&job.Options, stmt.Assignment, data); err != nil {
				return Job{}, err
			}
		case stmt.Command != nil:
			cmd := stmt.Command
			req, err := parseSectionCommand(cmd, data)
			if err != nil {
				return Job{}, err
			}
			switch {
			case cmd.Name == "section" && job.Policy != PolicyTwoPage:
				if job.Policy == PolicyComposite && req.Title != "" {
					return Job{}, fmt.Errorf("第 %d 行: composite 任务的段落不支持标题，请使用 heading", cmd.Pos.Line)
				}
				job.Sections = append(job.Sections, req)
			case cmd.Name == "first" && job.Policy == PolicyTwoPage:
				first = &req
			case cmd.Name == "second" && job.Policy == PolicyTwoPage:
				second = &req
			default:
				return Job{}, fmt.Errorf("第 %d 行: %s 任务不支持指令 %s", cmd.Pos.Line, job.Policy, cmd.Name)
			}
		}
	}

	if job.Policy == PolicyTwoPage {
		if first == nil || second == nil {
			return Job{}, fmt.Errorf("two-page 任务需要 first 与 second")
		}
		// 两页模式的标题按表面 id 存放在 Titles 中
		for _, req := range []*SectionRequest{first, second} {
			if req.Title != "" {
				setTitle(&job.Options, req.SurfaceID, req.Title)
			}
		}
		job.Sections = []SectionRequest{{SurfaceID: first.SurfaceID}, {SurfaceID: second.SurfaceID}}
	}
	return job, nil
}

// parseSectionCommand 解析 `section <id> [title "..."] [margin-top 4mm]`。
func parseSectionCommand(cmd *dsl.Command, data any) (SectionRequest, error) {
	if len(cmd.Args) == 0 {
		return SectionRequest{}, fmt.Errorf("第 %d 行: %s 缺少表面 id", cmd.Pos.Line, cmd.Name)
	}
	req := SectionRequest{SurfaceID: binding.Interpolate(cmd.Args[0].Value, data)}
	for key, val := range parseArgs(cmd.Args[1:]) {
		switch key {
		case "title":
			req.Title = binding.Interpolate(val, data)
		case "margin-top":
			req.MarginTop = layout.ParseRawLengthStr(val).ToMM()
		default:
			return SectionRequest{}, fmt.Errorf("第 %d 行: 未知参数 %s", cmd.Pos.Line, key)
		}
	}
	return req, nil
}

func applyOptions(opts *RenderOptions, block *dsl.Block, data any) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if err := applyOption(opts, stmt.Assignment, data); err != nil {
			return err
		}
	}
	return nil
}

func applyOption(opts *RenderOptions, a *dsl.Assignment, data any) error {
	raw := valueToString(a.Value)
	switch strings.ToLower(a.Key) {
	case "page", "format":
		opts.PageFormat = layout.PageFormat(raw)
	case "quality":
		q, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("quality 无法解析: %q", raw)
		}
		opts.ImageQuality = q
	case "scale":
		s, err := strconv.ParseFloat(strings.TrimSuffix(raw, "x"), 64)
		if err != nil {
			return fmt.Errorf("scale 无法解析: %q", raw)
		}
		opts.Scale = s
	case "background":
		opts.BackgroundColor = raw
	case "margin":
		m := layout.ParseRawLengthStr(raw).ToMM()
		if m == 0 {
			// 显式的 0 边距
			m = -1
		}
		opts.Margin = m
	case "title-size":
		l := layout.ParseRawLengthStr(raw)
		if l.Unit == layout.UnitNone {
			l.Unit = layout.UnitPT
		}
		opts.TitleFontSize = l.ToPT()
	case "title-gap":
		opts.TitleGap = layout.ParseRawLengthStr(raw).ToMM()
	case "titles":
		if a.Value == nil || a.Value.Object == nil {
			return fmt.Errorf("titles 需要形如 { id: \"标题\" } 的对象")
		}
		for _, entry := range a.Value.Object.Entries {
			setTitle(opts, entry.Key, binding.Interpolate(valueToString(entry.Value), data))
		}
	default:
		return fmt.Errorf("未知的导出参数 %s", a.Key)
	}
	return nil
}

func setTitle(opts *RenderOptions, slot, title string) {
	if opts.Titles == nil {
		opts.Titles = make(map[string]string)
	}
	opts.Titles[slot] = title
}

func cloneTitles(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func collectMeta(doc *dsl.Document, data any) renderer.Meta {
	meta := renderer.Meta{Creator: "Folio"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = binding.Interpolate(valueToString(val), data)
			case "author":
				meta.Author = binding.Interpolate(valueToString(val), data)
			case "subject":
				meta.Subject = binding.Interpolate(valueToString(val), data)
			case "creator":
				meta.Creator = valueToString(val)
			case "keywords":
				meta.Keywords = valueToStringSlice(val)
			}
		}
	}
	return meta
}

// parseArgs 把 `key value key value` 形式的参数转换为 map，末尾落单的 key 被忽略。
func parseArgs(args []*dsl.Lexeme) map[string]string {
	result := map[string]string{}
	for cursor := 0; cursor < len(args)-1; cursor += 2 {
		result[args[cursor].Value] = args[cursor+1].Value
	}
	return result
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
