package surface

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// LoadTree 从 JSON 快照构建表面树。位图节点的 src 相对 baseDir 解析，
// 读取后的像素写入 Bitmap；未声明尺寸的位图节点使用图片自身尺寸。
func LoadTree(r io.Reader, baseDir string) (*Tree, error) {
	var root Node
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("解析表面快照失败: %w", err)
	}

	var loadErr error
	root.Walk(func(n *Node) bool {
		if n.Kind == "" {
			n.Kind = KindBox
		}
		if n.Kind != KindBitmap || n.Src == "" {
			return true
		}
		bmp, err := loadBitmap(n.Src, baseDir)
		if err != nil {
			loadErr = err
			return false
		}
		n.Bitmap = bmp
		if n.Width == 0 && n.Height == 0 {
			n.Width, n.Height = bmp.Bounds().Dx(), bmp.Bounds().Dy()
		}
		return true
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return NewTree(&root), nil
}

// LoadTreeFile 是 LoadTree 的文件版本，位图路径相对快照文件所在目录。
func LoadTreeFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开表面快照 %s: %w", path, err)
	}
	defer f.Close()
	return LoadTree(f, filepath.Dir(path))
}

func loadBitmap(src, baseDir string) (*image.RGBA, error) {
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取位图 %s 失败: %w", src, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("解码位图 %s 失败: %w", src, err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}
