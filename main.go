package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/folio/dsl"
	"github.com/ByLCY/folio/export"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/logging"
	canvasrenderer "github.com/ByLCY/folio/renderer/canvas"
	"github.com/ByLCY/folio/surface"
)

type config struct {
	input    string
	surfaces string
	data     string
	outDir   string
	debugDir string
	font     string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.input, "in", "examples/climate.folio", "导出脚本路径")
	flag.StringVar(&cfg.surfaces, "surfaces", "examples/dashboard.json", "表面快照 JSON 路径")
	flag.StringVar(&cfg.data, "data", "", "绑定到脚本的 JSON 数据（以 @ 开头表示文件路径）")
	flag.StringVar(&cfg.outDir, "out", "output", "PDF 输出目录")
	flag.StringVar(&cfg.debugDir, "debug", "", "排版调试 JSON 输出目录")
	flag.StringVar(&cfg.font, "font", "", "标题字体（默认内置 Go 字体）")
	logLevel := flag.String("log-level", "info", "日志级别：debug/info/warn/error")
	logFormat := flag.String("log-format", "text", "日志格式：text/json")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel, Format: *logFormat})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	files, err := run(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("导出 PDF 失败: %v", err)
	}
	for _, f := range files {
		fmt.Printf("已生成 PDF：%s\n", f)
	}
}

// run 串联脚本解析、表面加载、截图排版与输出，返回生成的文件路径。
func run(ctx context.Context, cfg config, logger *slog.Logger) ([]string, error) {
	data, err := loadData(cfg.data)
	if err != nil {
		return nil, err
	}

	doc, err := dsl.ParseFile(cfg.input)
	if err != nil {
		return nil, fmt.Errorf("解析导出脚本失败: %w", err)
	}
	script, err := export.LoadScript(doc, data)
	if err != nil {
		return nil, fmt.Errorf("读取导出任务失败: %w", err)
	}

	tree, err := surface.LoadTreeFile(cfg.surfaces)
	if err != nil {
		return nil, err
	}

	writers := canvasrenderer.Factory{Options: canvasrenderer.Options{OutDir: cfg.outDir, Font: cfg.font, Meta: script.Meta}}
	composer := export.New(tree, canvasrenderer.NewRasterizer(cfg.font), writers, export.WithLogger(logger))

	var files []string
	for _, job := range script.Jobs {
		report, err := composer.Run(ctx, job)
		if err != nil {
			return files, fmt.Errorf("%s 任务失败: %w", job.Policy, err)
		}
		if cfg.debugDir != "" {
			if err := writeDebug(&report.Plan, cfg.debugDir, report.FileName); err != nil {
				return files, err
			}
		}
		files = append(files, filepath.Join(cfg.outDir, report.FileName))
	}
	return files, nil
}

func loadData(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	content := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取 data 文件失败: %w", err)
		}
		content = b
	}
	var data any
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("解析 data JSON 失败: %w", err)
	}
	return data, nil
}

func writeDebug(plan *layout.Plan, debugDir, fileName string) error {
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)) + ".plan.json"
	if err := layout.WriteDebugJSON(plan, filepath.Join(debugDir, name)); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
