package surface

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// recordingRenderer captures what it was asked to rasterize.
type recordingRenderer struct {
	tree        *Tree
	got         *Node
	opts        RasterOptions
	mountedSeen bool
	err         error
	empty       bool
}

func (r *recordingRenderer) Rasterize(_ context.Context, node *Node, opts RasterOptions) (image.Image, error) {
	r.got = node
	r.opts = opts
	r.mountedSeen = r.tree.Mounted()
	if r.err != nil {
		return nil, r.err
	}
	if r.empty {
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
	}
	w := int(float64(opts.Width) * opts.Scale)
	h := int(float64(opts.Height) * opts.Scale)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func dashboard() *Tree {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	root := &Node{ID: "app", Width: 1280, Height: 800, Children: []*Node{
		{ID: "analysis", Width: 600, Height: 300, ScrollHeight: 900, Overflow: "auto", Transition: "opacity 0.3s", Children: []*Node{
			{ID: "temp-chart", Kind: KindBitmap, Width: 400, Height: 200, Bitmap: solid(400, 200, red), Animation: "fade 1s"},
			{ID: "note", Kind: KindText, Y: 220, Width: 400, Height: 20, Text: "Warmest year on record"},
			{ID: "rain-chart", Kind: KindBitmap, Y: 300, Width: 400, Height: 200, Bitmap: solid(400, 200, blue)},
		}},
		{ID: "charts", Width: 800, Height: 400, Children: []*Node{
			{ID: "foreign", Kind: KindBitmap, Width: 100, Height: 100, Tainted: true, Bitmap: solid(100, 100, red)},
			{ID: "wind", Kind: KindBitmap, Y: 120, Width: 100, Height: 100, Bitmap: solid(100, 100, blue)},
		}},
	}}
	return NewTree(root)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCaptureDuplicatesAtNaturalExtent(t *testing.T) {
	tree := dashboard()
	r := &recordingRenderer{tree: tree}
	c := NewCapturer(tree, r, WithLogger(quietLogger()))

	res, err := c.Capture(context.Background(), "analysis", 2, color.White)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if r.opts.Width != 600 || r.opts.Height != 900 {
		t.Fatalf("duplicate should cover overflow: got %dx%d", r.opts.Width, r.opts.Height)
	}
	if res.WidthPx != 1200 || res.HeightPx != 1800 {
		t.Fatalf("result size %dx%d, want 1200x1800", res.WidthPx, res.HeightPx)
	}
	if res.Format != "png" || !bytes.HasPrefix(res.ImageBytes, []byte("\x89PNG")) {
		t.Fatalf("default quality should produce PNG, got %s", res.Format)
	}

	live, _ := tree.Lookup("analysis")
	if r.got == live {
		t.Fatalf("renderer received the live node instead of a duplicate")
	}
	if r.got.Overflow != "visible" {
		t.Fatalf("duplicate overflow = %q", r.got.Overflow)
	}
	if live.Transition != "opacity 0.3s" || live.Children[0].Animation != "fade 1s" {
		t.Fatalf("live surface must not be modified")
	}
	r.got.Walk(func(n *Node) bool {
		if n.Transition != "none" || n.Animation != "none" {
			t.Fatalf("motion not disabled on %q", n.ID)
		}
		return true
	})
}

func TestCaptureSynchronizesBitmapsByOrder(t *testing.T) {
	tree := dashboard()
	r := &recordingRenderer{tree: tree}
	c := NewCapturer(tree, r, WithLogger(quietLogger()))

	if _, err := c.Capture(context.Background(), "analysis", 1, color.White); err != nil {
		t.Fatalf("capture: %v", err)
	}
	bitmaps := r.got.bitmapNodes()
	if len(bitmaps) != 2 {
		t.Fatalf("expected 2 bitmap children, got %d", len(bitmaps))
	}
	if got := bitmaps[0].Bitmap.RGBAAt(5, 5); got.R != 255 || got.B != 0 {
		t.Fatalf("first bitmap not copied: %+v", got)
	}
	if got := bitmaps[1].Bitmap.RGBAAt(5, 5); got.B != 255 || got.R != 0 {
		t.Fatalf("second bitmap not copied: %+v", got)
	}
	live, _ := tree.Lookup("temp-chart")
	if bitmaps[0].Bitmap == live.Bitmap {
		t.Fatalf("duplicate must own its pixels")
	}
}

func TestCaptureSwallowsSynchronizationFailure(t *testing.T) {
	tree := dashboard()
	var logs bytes.Buffer
	r := &recordingRenderer{tree: tree}
	c := NewCapturer(tree, r, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	res, err := c.Capture(context.Background(), "charts", 1, color.White)
	if err != nil {
		t.Fatalf("tainted child must not abort capture: %v", err)
	}
	if res.Empty() {
		t.Fatalf("capture should still produce a bitmap")
	}
	bitmaps := r.got.bitmapNodes()
	if bitmaps[0].Bitmap != nil {
		t.Fatalf("tainted region should stay blank")
	}
	if bitmaps[1].Bitmap == nil {
		t.Fatalf("healthy sibling should still be copied")
	}
	if !strings.Contains(logs.String(), "bitmap child left blank") {
		t.Fatalf("expected a warning, got %q", logs.String())
	}
}

func TestCaptureSurfaceNotFound(t *testing.T) {
	tree := dashboard()
	r := &recordingRenderer{tree: tree}
	c := NewCapturer(tree, r)
	_, err := c.Capture(context.Background(), "missing", 1, color.White)
	if !errors.Is(err, ErrSurfaceNotFound) {
		t.Fatalf("want ErrSurfaceNotFound, got %v", err)
	}
	if r.got != nil {
		t.Fatalf("renderer must not be called")
	}
}

func TestCaptureDetachesOnEveryPath(t *testing.T) {
	tree := dashboard()
	before := len(tree.Root().Children)

	ok := &recordingRenderer{tree: tree}
	if _, err := NewCapturer(tree, ok).Capture(context.Background(), "charts", 1, color.White); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !ok.mountedSeen {
		t.Fatalf("duplicate should be mounted while rasterizing")
	}

	failing := &recordingRenderer{tree: tree, err: errors.New("gpu lost")}
	_, err := NewCapturer(tree, failing).Capture(context.Background(), "charts", 1, color.White)
	if !errors.Is(err, ErrRasterization) {
		t.Fatalf("want ErrRasterization, got %v", err)
	}

	if tree.Mounted() {
		t.Fatalf("duplicate still mounted after capture")
	}
	if got := len(tree.Root().Children); got != before {
		t.Fatalf("root children %d, want %d", got, before)
	}
}

func TestCaptureEmptyRasterIsMissing(t *testing.T) {
	tree := dashboard()
	r := &recordingRenderer{tree: tree, empty: true}
	res, err := NewCapturer(tree, r).Capture(context.Background(), "charts", 1, color.White)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("zero-sized raster should yield an empty result: %+v", res)
	}
}

func TestCaptureJPEGQuality(t *testing.T) {
	tree := dashboard()
	r := &recordingRenderer{tree: tree}
	res, err := NewCapturer(tree, r, WithQuality(0.8)).Capture(context.Background(), "charts", 1, color.White)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Format != "jpeg" || !bytes.HasPrefix(res.ImageBytes, []byte{0xff, 0xd8}) {
		t.Fatalf("quality < 1 should produce JPEG, got %s", res.Format)
	}
}

func TestMountSingleDuplicate(t *testing.T) {
	tree := dashboard()
	release, err := tree.Mount((&Node{ID: "dup"}).Clone())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, err := tree.Mount(&Node{ID: "second"}); !errors.Is(err, ErrAlreadyMounted) {
		t.Fatalf("want ErrAlreadyMounted, got %v", err)
	}
	release()
	release()
	if tree.Mounted() {
		t.Fatalf("release should detach")
	}
}

func TestLookupIgnoresMountedDuplicate(t *testing.T) {
	tree := &Tree{root: &Node{ID: "root"}}
	dup := &Node{ID: "ghost"}
	release, err := tree.Mount(dup)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer release()
	if _, ok := tree.Lookup("ghost"); ok {
		t.Fatalf("mounted duplicate must not resolve as a live surface")
	}
	if dup.X >= 0 {
		t.Fatalf("duplicate should be positioned off-screen, x=%g", dup.X)
	}
}

func TestNaturalSizeIncludesChildren(t *testing.T) {
	n := &Node{Width: 100, Height: 50, Children: []*Node{
		{X: 80, Y: 10, Width: 60, Height: 30},
		{Y: 40, Width: 10, Height: 10, ScrollHeight: 70},
	}}
	w, h := n.NaturalSize()
	if w != 140 || h != 110 {
		t.Fatalf("NaturalSize = %dx%d, want 140x110", w, h)
	}
}

func TestLoadTree(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "chart.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solid(40, 30, color.RGBA{G: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	snapshot := `{"id":"app","width":800,"height":600,"children":[
		{"id":"analysis","width":400,"height":300,"children":[
			{"id":"chart","kind":"bitmap","src":"chart.png"}
		]}
	]}`
	tree, err := LoadTree(strings.NewReader(snapshot), dir)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	chart, ok := tree.Lookup("chart")
	if !ok || chart.Bitmap == nil {
		t.Fatalf("bitmap node not loaded")
	}
	if chart.Width != 40 || chart.Height != 30 {
		t.Fatalf("bitmap size %dx%d", chart.Width, chart.Height)
	}
	if chart.Parent() == nil || chart.Parent().ID != "analysis" {
		t.Fatalf("parent links not wired")
	}

	if _, err := LoadTree(strings.NewReader(`{"id":"x","children":[{"kind":"bitmap","src":"nope.png"}]}`), dir); err == nil {
		t.Fatalf("missing bitmap file should fail")
	}
}
