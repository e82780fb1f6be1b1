package surface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

// Renderer rasterizes a detached subtree at its natural pixel extent.
type Renderer interface {
	Rasterize(ctx context.Context, node *Node, opts RasterOptions) (image.Image, error)
}

// RasterOptions are passed to the Renderer for one duplicate.
type RasterOptions struct {
	Background color.Color
	Scale      float64 // oversampling factor, >= 1
	Width      int     // CSS pixels
	Height     int
}

// CaptureResult is an isolated bitmap snapshot of one surface.
type CaptureResult struct {
	ImageBytes []byte
	WidthPx    int
	HeightPx   int
	Format     string // "png" or "jpeg"
}

// Empty reports whether the capture has no drawable area.
func (r CaptureResult) Empty() bool {
	return len(r.ImageBytes) == 0 || r.WidthPx <= 0 || r.HeightPx <= 0
}

// Capturer snapshots live surfaces through an offscreen duplicate.
type Capturer struct {
	tree     *Tree
	renderer Renderer
	quality  float64
	logger   *slog.Logger
}

// CaptureOption configures a Capturer.
type CaptureOption func(*Capturer)

// WithQuality sets the encoding quality in [0,1]; 1 selects lossless PNG.
func WithQuality(q float64) CaptureOption {
	return func(c *Capturer) { c.quality = q }
}

// WithLogger sets the logger used for swallowed per-child failures.
func WithLogger(l *slog.Logger) CaptureOption {
	return func(c *Capturer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCapturer returns a Capturer bound to tree and renderer.
func NewCapturer(tree *Tree, renderer Renderer, opts ...CaptureOption) *Capturer {
	c := &Capturer{tree: tree, renderer: renderer, quality: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture snapshots the surface identified by id.
//
// The live node is duplicated, sized to its full content extent, stripped of
// motion, mounted off-screen, given a copy of every bitmap child's pixels and
// handed to the Renderer. The duplicate is detached on every exit path.
func (c *Capturer) Capture(ctx context.Context, id string, scale float64, background color.Color) (CaptureResult, error) {
	live, ok := c.tree.Lookup(id)
	if !ok {
		return CaptureResult{}, fmt.Errorf("%w: %q", ErrSurfaceNotFound, id)
	}
	if scale < 1 {
		scale = 1
	}

	w, h := live.NaturalSize()
	dup := live.Clone()
	dup.Width, dup.Height = w, h
	dup.ScrollWidth, dup.ScrollHeight = 0, 0
	dup.Overflow = "visible"
	dup.disableMotion()

	release, err := c.tree.Mount(dup)
	if err != nil {
		return CaptureResult{}, err
	}
	defer release()

	for _, serr := range syncBitmaps(live, dup) {
		c.logger.Warn("bitmap child left blank", "surface", id, "error", serr)
	}

	img, err := c.renderer.Rasterize(ctx, dup, RasterOptions{
		Background: background,
		Scale:      scale,
		Width:      w,
		Height:     h,
	})
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %q: %w", ErrRasterization, id, err)
	}
	if img == nil || img.Bounds().Empty() {
		return CaptureResult{}, nil
	}

	data, format, err := encode(img, c.quality)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %q: encode: %w", ErrRasterization, id, err)
	}
	b := img.Bounds()
	return CaptureResult{ImageBytes: data, WidthPx: b.Dx(), HeightPx: b.Dy(), Format: format}, nil
}

// syncBitmaps copies pixel content from every bitmap node of src into the
// matching node of dst. Nodes are paired by traversal order: the duplicate's
// nodes are new objects, so identity cannot be used to match them.
func syncBitmaps(src, dst *Node) []error {
	from := src.bitmapNodes()
	to := dst.bitmapNodes()
	var errs []error
	if len(from) != len(to) {
		errs = append(errs, fmt.Errorf("%w: bitmap count %d != %d", ErrSynchronization, len(from), len(to)))
	}
	for i := 0; i < min(len(from), len(to)); i++ {
		if err := copyBitmap(from[i], to[i]); err != nil {
			errs = append(errs, fmt.Errorf("%w: child %d (%s): %w", ErrSynchronization, i, from[i].ID, err))
		}
	}
	return errs
}

func copyBitmap(src, dst *Node) error {
	if src.Tainted {
		return fmt.Errorf("source bitmap is tainted")
	}
	if src.Bitmap == nil {
		return fmt.Errorf("source bitmap has no pixels")
	}
	b := src.Bitmap.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(out, image.Point{}, src.Bitmap, b, draw.Src, nil)
	dst.Bitmap = out
	return nil
}

func encode(img image.Image, quality float64) ([]byte, string, error) {
	var buf bytes.Buffer
	if quality >= 1 {
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "png", nil
	}
	q := int(math.Round(quality * 100))
	q = min(max(q, 1), 100)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "jpeg", nil
}
