// Package rawtree reads and writes syntax trees as JSON, so trees produced by
// other tools can be formatted and trees parsed here can be inspected.
//
// A document looks like:
//
//	{
//	  "source": "[1]",
//	  "root": {
//	    "kind": "array", "named": true, "start": 0, "end": 3,
//	    "children": [
//	      {"kind": "[", "named": false, "start": 0, "end": 1},
//	      ...
//	    ]
//	  }
//	}
//
// Leaves written by Marshal also carry their "text", which Parse ignores.
package rawtree

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"github.com/vito/drape/pkg/drape"
)

type node struct {
	kind       string
	named      bool
	start, end uint
	children   []*node
}

func (n *node) Kind() string               { return n.kind }
func (n *node) IsNamed() bool              { return n.named }
func (n *node) StartByte() uint            { return n.start }
func (n *node) EndByte() uint              { return n.end }
func (n *node) ChildCount() uint           { return uint(len(n.children)) }
func (n *node) Child(i uint) drape.RawNode { return n.children[i] }

// Parse reads a tree document.
func Parse(data []byte) (*drape.Tree, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	source := gjson.GetBytes(data, "source")
	if source.Type != gjson.String {
		return nil, fmt.Errorf("source: expected a string")
	}
	root := gjson.GetBytes(data, "root")
	if !root.IsObject() {
		return nil, fmt.Errorf("root: expected an object")
	}
	raw, err := decode(root, "root")
	if err != nil {
		return nil, err
	}
	return drape.Adapt(raw, []byte(source.String()))
}

func decode(r gjson.Result, path string) (*node, error) {
	kind := r.Get("kind")
	if kind.Type != gjson.String {
		return nil, fmt.Errorf("%s.kind: expected a string", path)
	}
	n := &node{
		kind:  kind.String(),
		named: r.Get("named").Bool(),
	}
	for _, f := range []struct {
		name string
		dst  *uint
	}{
		{"start", &n.start},
		{"end", &n.end},
	} {
		v := r.Get(f.name)
		if v.Type != gjson.Number || v.Int() < 0 {
			return nil, fmt.Errorf("%s.%s: expected a byte offset", path, f.name)
		}
		*f.dst = uint(v.Uint())
	}
	children := r.Get("children")
	if children.Exists() && !children.IsArray() {
		return nil, fmt.Errorf("%s.children: expected an array", path)
	}
	for i, c := range children.Array() {
		child, err := decode(c, fmt.Sprintf("%s.children.%d", path, i))
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

// Marshal writes a tree document, indented for reading.
func Marshal(tree *drape.Tree) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte(`{}`), "source", string(tree.Source))
	if err != nil {
		return nil, err
	}
	if len(tree.Nodes) > 0 {
		root, err := encode(tree, tree.Root())
		if err != nil {
			return nil, err
		}
		doc, err = sjson.SetRawBytes(doc, "root", root)
		if err != nil {
			return nil, err
		}
	}
	return pretty.Pretty(doc), nil
}

func encode(tree *drape.Tree, id drape.NodeID) ([]byte, error) {
	n := tree.Node(id)
	obj := []byte(`{}`)
	var err error
	for _, kv := range []struct {
		key string
		val any
	}{
		{"kind", n.Kind},
		{"named", n.Named},
		{"start", n.Start},
		{"end", n.End},
	} {
		if obj, err = sjson.SetBytes(obj, kv.key, kv.val); err != nil {
			return nil, err
		}
	}
	if len(n.Children) == 0 {
		return sjson.SetBytes(obj, "text", tree.Text(id))
	}
	for _, c := range n.Children {
		child, err := encode(tree, c)
		if err != nil {
			return nil, err
		}
		if obj, err = sjson.SetRawBytes(obj, "children.-1", child); err != nil {
			return nil, err
		}
	}
	return obj, nil
}
