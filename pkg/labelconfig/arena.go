package labelconfig

import (
	"strings"

	"github.com/beevik/etree"
)

// node is one markup element. Nodes live in a flat arena, and refer to each
// other by index. The arena is filled in document (pre-order) order, so a
// parent always has a lower index than its children.
type node struct {
	tag      string
	attrs    map[string]string
	parent   int // -1 for the root
	children []int
}

func (n *node) attr(key string) string {
	return n.attrs[key]
}

func (n *node) hasAttr(key string) bool {
	_, ok := n.attrs[key]
	return ok
}

// copyAttrs returns a copy of the raw attribute map, so that callers can't mutate the arena
func (n *node) copyAttrs() map[string]string {
	c := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		c[k] = v
	}
	return c
}

type arena struct {
	nodes []node
}

func parseArena(config string) (*arena, error) {
	if strings.TrimSpace(config) == "" {
		return nil, &ConfigParseError{Reason: "document is empty"}
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(config); err != nil {
		return nil, &ConfigParseError{Reason: err.Error(), Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &ConfigParseError{Reason: "document has no root element"}
	}
	a := &arena{}
	a.add(root, -1)
	return a, nil
}

func (a *arena) add(el *etree.Element, parent int) int {
	idx := len(a.nodes)
	n := node{
		tag:    el.Tag,
		attrs:  make(map[string]string, len(el.Attr)),
		parent: parent,
	}
	for _, at := range el.Attr {
		n.attrs[at.Key] = at.Value
	}
	a.nodes = append(a.nodes, n)
	for _, child := range el.ChildElements() {
		c := a.add(child, idx)
		a.nodes[idx].children = append(a.nodes[idx].children, c)
	}
	return idx
}

// ancestor walks up the parent chain of node i, and returns the index of the
// first ancestor for which match returns true, or -1.
func (a *arena) ancestor(i int, match func(idx int) bool) int {
	for p := a.nodes[i].parent; p != -1; p = a.nodes[p].parent {
		if match(p) {
			return p
		}
	}
	return -1
}
