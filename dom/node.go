// Package dom holds the document tree produced by the HTML parser.
//
// Nodes live in a flat arena owned by the Document. Children are owned
// by their parent as an ordered id sequence; the parent link is a plain
// index back into the arena, never a pointer, so the tree cannot form
// reference cycles while upward traversal stays O(1).
package dom

// NodeID identifies a node within its Document's arena.
type NodeID int32

// InvalidNode is the parent of the root node and the result of failed
// lookups.
const InvalidNode NodeID = -1

// NodeKind discriminates the node variants.
type NodeKind uint8

const (
	// KindElement is a tag with attributes and children.
	KindElement NodeKind = iota
	// KindText is a run of character data.
	KindText
	// KindComment is a <!-- --> comment; kept in the tree, ignored by
	// style and layout.
	KindComment
)

// Attribute is a single name/value pair. Attribute order is the source
// order of the markup.
type Attribute struct {
	Name  string
	Value string
}

// Node is one entry in the document arena.
type Node struct {
	Kind     NodeKind
	Tag      string // lowercase element name, elements only
	Text     string // text and comment content
	Attr     []Attribute
	Parent   NodeID
	Children []NodeID
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.LookupAttr(name)
	return ok
}

// AttrValue returns the attribute's value, or "" when absent.
func (n *Node) AttrValue(name string) string {
	v, _ := n.LookupAttr(name)
	return v
}

// LookupAttr returns the attribute's value and whether it is present.
func (n *Node) LookupAttr(name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Document is an arena of nodes. Index 0 is always the synthetic
// "#document" root element.
type Document struct {
	nodes []Node
}

// NewDocument creates a document containing only the root node.
func NewDocument() *Document {
	return &Document{nodes: []Node{{
		Kind:   KindElement,
		Tag:    "#document",
		Parent: InvalidNode,
	}}}
}

// Root returns the id of the document root.
func (d *Document) Root() NodeID { return 0 }

// Len returns the number of nodes in the arena.
func (d *Document) Len() int { return len(d.nodes) }

// Node returns the node for an id. The pointer stays valid until the
// next node is created.
func (d *Document) Node(id NodeID) *Node {
	return &d.nodes[id]
}

// CreateElement appends a new element node to the arena without
// attaching it to the tree.
func (d *Document) CreateElement(tag string, attr []Attribute) NodeID {
	return d.create(Node{Kind: KindElement, Tag: tag, Attr: attr, Parent: InvalidNode})
}

// CreateText appends a new text node to the arena without attaching it.
func (d *Document) CreateText(text string) NodeID {
	return d.create(Node{Kind: KindText, Text: text, Parent: InvalidNode})
}

// CreateComment appends a new comment node to the arena without
// attaching it.
func (d *Document) CreateComment(text string) NodeID {
	return d.create(Node{Kind: KindComment, Text: text, Parent: InvalidNode})
}

func (d *Document) create(n Node) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, n)
	return id
}

// AppendChild attaches child as the last child of parent. A node has
// exactly one parent; attaching an already-attached node is a no-op.
func (d *Document) AppendChild(parent, child NodeID) {
	if d.nodes[child].Parent != InvalidNode {
		return
	}
	d.nodes[child].Parent = parent
	d.nodes[parent].Children = append(d.nodes[parent].Children, child)
}

// Walk visits id and its descendants in pre-order, passing each node
// alongside its id. Returning false from visit prunes the subtree
// below the current node.
func (d *Document) Walk(id NodeID, visit func(NodeID, *Node) bool) {
	if !visit(id, &d.nodes[id]) {
		return
	}
	for _, c := range d.nodes[id].Children {
		d.Walk(c, visit)
	}
}

// FirstElement returns the first element with the given tag in
// pre-order, or InvalidNode.
func (d *Document) FirstElement(tag string) NodeID {
	found := InvalidNode
	d.Walk(d.Root(), func(id NodeID, n *Node) bool {
		if found != InvalidNode {
			return false
		}
		if n.Kind == KindElement && n.Tag == tag {
			found = id
			return false
		}
		return true
	})
	return found
}

// RenderRoot returns the body element when present, else the document
// root. Layout starts here.
func (d *Document) RenderRoot() NodeID {
	if body := d.FirstElement("body"); body != InvalidNode {
		return body
	}
	return d.Root()
}

// TextContent concatenates all text beneath id in document order.
func (d *Document) TextContent(id NodeID) string {
	var out []byte
	d.Walk(id, func(_ NodeID, n *Node) bool {
		if n.Kind == KindText {
			out = append(out, n.Text...)
		}
		return true
	})
	return string(out)
}

// Ancestors returns the chain of element ancestors of id, nearest
// first, excluding id itself.
func (d *Document) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	for p := d.nodes[id].Parent; p != InvalidNode; p = d.nodes[p].Parent {
		out = append(out, p)
	}
	return out
}

// ChildIndex returns the 1-based position of id among its parent's
// element children, for :nth-child style matching. Returns 0 for the
// root or non-element nodes.
func (d *Document) ChildIndex(id NodeID) int {
	p := d.nodes[id].Parent
	if p == InvalidNode || d.nodes[id].Kind != KindElement {
		return 0
	}
	idx := 0
	for _, c := range d.nodes[p].Children {
		if d.nodes[c].Kind != KindElement {
			continue
		}
		idx++
		if c == id {
			return idx
		}
	}
	return 0
}
