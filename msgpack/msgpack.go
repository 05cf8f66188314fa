// Package msgpack provides the native MessagePack snapshotter and the
// primitive tree dump used by wrapped codecs.
//
// The snapshotter encodes whole objects directly and never consults the
// registry. Struct fields are named by their brine tag, so a field excluded
// from projection is excluded from snapshots too. Interface-typed fields do
// not recover their dynamic types on restore.
package msgpack

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/brine"
)

// structTag names struct fields in snapshots.
const structTag = "brine"

// msgpackSnapshotter implements brine.Snapshotter for MessagePack.
type msgpackSnapshotter struct{}

// New returns a MessagePack snapshotter.
func New() brine.Snapshotter {
	return &msgpackSnapshotter{}
}

// ContentType returns the MIME type for MessagePack.
func (s *msgpackSnapshotter) ContentType() string {
	return "application/msgpack"
}

// Snapshot encodes v as MessagePack.
func (s *msgpackSnapshotter) Snapshot(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore decodes MessagePack data into v.
func (s *msgpackSnapshotter) Restore(data []byte, v any) error {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag(structTag)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("msgpack: %d trailing bytes", r.Len())
	}
	return nil
}

// document is the wire form of a brine.Document.
type document struct {
	TypeName string `msgpack:"t"`
	State    []node `msgpack:"s"`
}

// node is the wire form of one tree entry.
type node struct {
	Key      string `msgpack:"k"`
	Tag      string `msgpack:"g,omitempty"`
	Text     string `msgpack:"v,omitempty"`
	Branch   bool   `msgpack:"b,omitempty"`
	Children []node `msgpack:"c,omitempty"`
}

// MarshalDocument dumps doc as MessagePack.
func MarshalDocument(doc brine.Document) ([]byte, error) {
	if doc.TypeName == "" {
		return nil, errors.New("msgpack: document has no type name")
	}
	return msgpack.Marshal(&document{TypeName: doc.TypeName, State: toNodes(doc.State)})
}

// UnmarshalDocument loads a document written by MarshalDocument.
func UnmarshalDocument(data []byte) (brine.Document, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)

	var w document
	if err := dec.Decode(&w); err != nil {
		return brine.Document{}, err
	}
	if r.Len() != 0 {
		return brine.Document{}, fmt.Errorf("msgpack: %d trailing bytes", r.Len())
	}
	if w.TypeName == "" {
		return brine.Document{}, errors.New("msgpack: document has no type name")
	}
	return brine.Document{TypeName: w.TypeName, State: fromNodes(w.State)}, nil
}

func toNodes(tree *brine.Tree) []node {
	entries := tree.Entries()
	nodes := make([]node, len(entries))
	for i, e := range entries {
		n := node{Key: e.Key.Name, Tag: string(e.Key.Tag)}
		if e.Value.IsBranch() {
			n.Branch = true
			n.Children = toNodes(e.Value.Tree())
		} else {
			n.Text = e.Value.Text()
		}
		nodes[i] = n
	}
	return nodes
}

func fromNodes(nodes []node) *brine.Tree {
	tree := brine.NewTree()
	for _, n := range nodes {
		key := brine.Key{Name: n.Key, Tag: brine.Tag(n.Tag)}
		if n.Branch {
			tree.Set(key, brine.Branch(fromNodes(n.Children)))
			continue
		}
		tree.Set(key, brine.Leaf(n.Text))
	}
	return tree
}
