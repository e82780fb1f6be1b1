package canvasrenderer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/renderer"
	"github.com/ByLCY/folio/surface"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestWriterPageSizes(t *testing.T) {
	cases := map[layout.PageFormat][2]float64{
		layout.FormatA4:     {210, 297},
		layout.FormatLetter: {215.9, 279.4},
	}
	for format, want := range cases {
		w, err := NewWriter(format, Options{})
		if err != nil {
			t.Fatalf("NewWriter(%s): %v", format, err)
		}
		if gw, gh := w.PageSize(); gw != want[0] || gh != want[1] {
			t.Fatalf("%s: 页面尺寸 %gx%g，期望 %gx%g", format, gw, gh, want[0], want[1])
		}
	}
	if _, err := NewWriter("a3", Options{}); err == nil {
		t.Fatalf("不支持的纸张应返回错误")
	}
}

func TestWriterFinalizeWritesPDF(t *testing.T) {
	dir := t.TempDir()
	w, err := Factory{Options: Options{OutDir: dir, Meta: renderer.Meta{Title: "Climate report", Keywords: []string{"climate", "export"}}}}.NewWriter(layout.FormatA4)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	img := pngBytes(t, 380, 760, color.RGBA{R: 200, A: 255})
	if err := w.DrawText("Temperature", 10, 10, 14); err != nil {
		t.Fatalf("DrawText: %v", err)
	}
	// 整图上移后跨越页面边界
	if err := w.DrawImage(img, 10, 20, 190, 380); err != nil {
		t.Fatalf("DrawImage: %v", err)
	}
	if err := w.NewPage(); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := w.DrawImage(img, 10, 20-277, 190, 380); err != nil {
		t.Fatalf("DrawImage: %v", err)
	}
	if err := w.(*Writer).FillRect(0, 0, 210, 10, layout.White); err != nil {
		t.Fatalf("FillRect: %v", err)
	}
	if got := w.(*Writer).PageCount(); got != 2 {
		t.Fatalf("期望 2 页，实际 %d", got)
	}

	if err := w.Finalize("report.pdf"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	if err != nil {
		t.Fatalf("读取输出失败: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("输出不是 PDF: %q", data[:min(8, len(data))])
	}
	if !bytes.Equal(data, w.(*Writer).Bytes()) {
		t.Fatalf("Bytes 与文件内容不一致")
	}

	if err := w.Finalize("again.pdf"); err == nil {
		t.Fatalf("重复 Finalize 应返回错误")
	}
	if err := w.NewPage(); err == nil {
		t.Fatalf("Finalize 之后不应允许新页")
	}
}

func TestWriterRejectsBadImage(t *testing.T) {
	w, err := NewWriter(layout.FormatA4, Options{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.DrawImage([]byte("not an image"), 0, 0, 10, 10); err == nil {
		t.Fatalf("无法解码的数据应返回错误")
	}
	if err := w.Finalize(""); err == nil {
		t.Fatalf("空文件名应返回错误")
	}
}

func TestRasterizerDrawsBackgroundAndBitmap(t *testing.T) {
	green := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			green.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	node := &surface.Node{ID: "panel", X: -5000, Width: 60, Height: 40, Background: "#ff0000", Children: []*surface.Node{
		{ID: "chart", Kind: surface.KindBitmap, X: 40, Y: 20, Width: 20, Height: 20, Bitmap: green},
		{ID: "caption", Kind: surface.KindText, Text: "Rain", FontSize: 10},
	}}

	r := NewRasterizer("")
	img, err := r.Rasterize(context.Background(), node, surface.RasterOptions{Background: color.White, Scale: 2, Width: 60, Height: 40})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	b := img.Bounds()
	if b.Dx() < 120 || b.Dx() > 121 || b.Dy() < 80 || b.Dy() > 81 {
		t.Fatalf("输出尺寸 %dx%d，期望约 120x80", b.Dx(), b.Dy())
	}
	if r8, g8, _, _ := rgba8(img.At(40, 70)); r8 < 200 || g8 > 60 {
		t.Fatalf("背景像素应为红色: r=%d g=%d", r8, g8)
	}
	greens := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r8, g8, _, _ := rgba8(img.At(x, y)); g8 > 200 && r8 < 60 {
				greens++
			}
		}
	}
	// 20×20 的位图在 2 倍过采样下约占 1600 像素
	if greens < 1200 {
		t.Fatalf("位图像素数量过少: %d", greens)
	}
}

func TestRasterizerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRasterizer("").Rasterize(ctx, &surface.Node{Width: 10, Height: 10}, surface.RasterOptions{Scale: 1}); err == nil {
		t.Fatalf("已取消的 context 应返回错误")
	}
}

func rgba8(c color.Color) (uint8, uint8, uint8, uint8) {
	r, g, b, a := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)
}
