package surface

import (
	"fmt"
	"sync"
)

// offscreenGap keeps a mounted duplicate well clear of the visible page.
const offscreenGap = 10000

// Tree is the shared live surface tree. At most one duplicate may be mounted
// at a time; Mount enforces this.
type Tree struct {
	mu      sync.Mutex
	root    *Node
	mounted *Node
}

// NewTree wraps root, wiring parent links for the whole subtree.
func NewTree(root *Node) *Tree {
	if root == nil {
		root = &Node{Kind: KindBox}
	}
	relink(root)
	return &Tree{root: root}
}

func relink(n *Node) {
	for _, c := range n.Children {
		c.parent = n
		relink(c)
	}
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Lookup resolves id to its live node. A mounted duplicate is never returned.
func (t *Tree) Lookup(id string) (*Node, bool) {
	if id == "" {
		return nil, false
	}
	t.mu.Lock()
	mounted := t.mounted
	t.mu.Unlock()

	var found *Node
	t.root.Walk(func(n *Node) bool {
		if n.ID == id && !within(n, mounted) {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

func within(n, ancestor *Node) bool {
	if ancestor == nil {
		return false
	}
	for p := n; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Mount attaches dup to the tree, positioned off-screen, and returns the
// release func that detaches it again. Release is idempotent.
func (t *Tree) Mount(dup *Node) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mounted != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyMounted, t.mounted.ID)
	}
	w, _ := dup.NaturalSize()
	dup.X = -float64(w + offscreenGap)
	dup.Y = 0
	t.root.Append(dup)
	t.mounted = dup

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.root.Remove(dup)
			if t.mounted == dup {
				t.mounted = nil
			}
		})
	}, nil
}

// Mounted reports whether a duplicate is currently attached.
func (t *Tree) Mounted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mounted != nil
}
