package surface

import (
	"image"
	"math"
)

// Kind classifies a node of the surface tree.
type Kind string

const (
	KindBox    Kind = "box"
	KindBitmap Kind = "bitmap" // canvas-like child whose pixels live outside the structure
	KindText   Kind = "text"
)

// Node is one element of a live surface tree. Coordinates and sizes are CSS
// pixels; X/Y are relative to the parent node.
type Node struct {
	ID   string `json:"id,omitempty"`
	Kind Kind   `json:"kind,omitempty"`

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	// ScrollWidth/ScrollHeight report the natural content extent, including
	// overflow beyond the visible box.
	ScrollWidth  int    `json:"scrollWidth,omitempty"`
	ScrollHeight int    `json:"scrollHeight,omitempty"`
	Overflow     string `json:"overflow,omitempty"`

	Background string  `json:"background,omitempty"`
	Color      string  `json:"color,omitempty"`
	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Transition string  `json:"transition,omitempty"`
	Animation  string  `json:"animation,omitempty"`

	// Src names an image file that seeds Bitmap when a snapshot is loaded.
	Src string `json:"src,omitempty"`
	// Tainted bitmaps refuse pixel reads, like a canvas drawn from a foreign origin.
	Tainted bool        `json:"tainted,omitempty"`
	Bitmap  *image.RGBA `json:"-"`

	Children []*Node `json:"children,omitempty"`
	parent   *Node
}

// Parent returns the node's parent, or nil for a root or a detached node.
func (n *Node) Parent() *Node { return n.parent }

// Append attaches child as the last child of n.
func (n *Node) Append(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// Remove detaches child from n. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i:i], n.Children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node in pre-order whose ID equals id.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// Clone returns a detached structural duplicate of the subtree. Geometry,
// style and text are copied; bitmap pixels are not, just as a structural copy
// of a canvas element starts out blank.
func (n *Node) Clone() *Node {
	dup := *n
	dup.Bitmap = nil
	dup.parent = nil
	dup.Children = make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		dup.Append(c.Clone())
	}
	return &dup
}

// NaturalSize returns the full content extent of n: the larger of its box,
// its reported scroll extent and the bounds of its children.
func (n *Node) NaturalSize() (int, int) {
	w := max(n.Width, n.ScrollWidth)
	h := max(n.Height, n.ScrollHeight)
	for _, c := range n.Children {
		cw, ch := c.NaturalSize()
		w = max(w, int(math.Ceil(c.X+float64(cw))))
		h = max(h, int(math.Ceil(c.Y+float64(ch))))
	}
	return w, h
}

// bitmapNodes lists bitmap-backed descendants (including n) in traversal order.
func (n *Node) bitmapNodes() []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Kind == KindBitmap {
			out = append(out, c)
		}
		return true
	})
	return out
}

// disableMotion clears transitions and animations on every node of the subtree.
func (n *Node) disableMotion() {
	n.Walk(func(c *Node) bool {
		c.Transition = "none"
		c.Animation = "none"
		return true
	})
}
