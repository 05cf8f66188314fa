// Package yaml provides a YAML tree codec built on yaml.v3 nodes.
//
// Tags travel as local YAML tags: containers are mappings tagged !array or
// !TypeName (index-shaped arrays become sequences), and scalar leaves are
// double-quoted strings tagged !bool, !int, or !float. Leaves that are not
// valid UTF-8 are written as !!binary.
package yaml

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zoobzio/brine"
	"gopkg.in/yaml.v3"
)

const (
	fieldTypeName = "typeName"
	fieldState    = "state"
	tagBinary     = "!!binary"
	tagNull       = "!!null"
)

// yamlCodec implements brine.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() brine.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Encode writes doc as a YAML document.
func (c *yamlCodec) Encode(doc brine.Document) ([]byte, error) {
	if doc.TypeName == "" {
		return nil, errors.New("yaml: document has no type name")
	}

	state, err := mappingNode(brine.TagNone, doc.State)
	if err != nil {
		return nil, err
	}
	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			plainString(fieldTypeName), quotedString(doc.TypeName),
			plainString(fieldState), state,
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mappingNode(tag brine.Tag, tree *brine.Tree) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	if tag != brine.TagNone {
		t, err := localTag(tag)
		if err != nil {
			return nil, err
		}
		n.Tag = t
	}
	for _, e := range tree.Entries() {
		val, err := valueNode(e.Key.Tag, e.Value)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, quotedString(e.Key.Name), val)
	}
	return n, nil
}

func sequenceNode(tree *brine.Tree) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range tree.Entries() {
		val, err := valueNode(e.Key.Tag, e.Value)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, val)
	}
	return n, nil
}

func valueNode(tag brine.Tag, v brine.Value) (*yaml.Node, error) {
	if v.IsBranch() {
		if tag == brine.TagArray && isIndexed(v.Tree()) {
			return sequenceNode(v.Tree())
		}
		return mappingNode(tag, v.Tree())
	}

	text := v.Text()
	if !utf8.ValidString(text) {
		if tag != brine.TagNone {
			return nil, fmt.Errorf("yaml: %s leaf is not valid UTF-8", tag)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagBinary, Value: base64.StdEncoding.EncodeToString([]byte(text))}, nil
	}

	n := quotedString(text)
	if tag != brine.TagNone {
		t, err := localTag(tag)
		if err != nil {
			return nil, err
		}
		n.Tag = t
	}
	return n, nil
}

// localTag renders tag as a YAML local tag.
func localTag(tag brine.Tag) (string, error) {
	for _, r := range string(tag) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_.~", r):
		default:
			return "", fmt.Errorf("yaml: tag %q cannot be written as a YAML tag", tag)
		}
	}
	return "!" + string(tag), nil
}

func isIndexed(tree *brine.Tree) bool {
	for i, e := range tree.Entries() {
		if e.Key.Name != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

func plainString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

func quotedString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: s}
}

// Decode parses a single YAML document.
func (c *yamlCodec) Decode(data []byte) (brine.Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return brine.Document{}, errors.New("yaml: empty document")
		}
		return brine.Document{}, err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		if err != nil {
			return brine.Document{}, err
		}
		return brine.Document{}, errors.New("yaml: more than one document")
	}

	root := resolve(&doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = resolve(root.Content[0])
	}
	if root.Kind != yaml.MappingNode {
		return brine.Document{}, errors.New("yaml: document is not a mapping")
	}

	var out brine.Document
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := resolve(root.Content[i]), resolve(root.Content[i+1])
		switch k.Value {
		case fieldTypeName:
			if v.Kind != yaml.ScalarNode {
				return brine.Document{}, errors.New("yaml: typeName is not a scalar")
			}
			out.TypeName = v.Value
		case fieldState:
			if v.Kind != yaml.MappingNode {
				return brine.Document{}, errors.New("yaml: state is not a mapping")
			}
			state, err := readMapping(v, make(map[*yaml.Node]bool))
			if err != nil {
				return brine.Document{}, err
			}
			out.State = state
		}
	}

	if out.TypeName == "" {
		return brine.Document{}, errors.New("yaml: document has no typeName")
	}
	if out.State == nil {
		return brine.Document{}, errors.New("yaml: document has no state")
	}
	return out, nil
}

// readMapping reads a mapping node. open holds the containers on the current
// path, so an anchor aliased inside itself is an error instead of endless
// recursion.
func readMapping(n *yaml.Node, open map[*yaml.Node]bool) (*brine.Tree, error) {
	if err := enter(n, open); err != nil {
		return nil, err
	}
	defer delete(open, n)

	tree := brine.NewTree()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("yaml: line %d: mapping key is not a scalar", k.Line)
		}
		if err := readEntry(tree, k.Value, resolve(n.Content[i+1]), open); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func readSequence(n *yaml.Node, open map[*yaml.Node]bool) (*brine.Tree, error) {
	if err := enter(n, open); err != nil {
		return nil, err
	}
	defer delete(open, n)

	tree := brine.NewTree()
	for i, item := range n.Content {
		if err := readEntry(tree, strconv.Itoa(i), resolve(item), open); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// readEntry adds the value held by n to tree under name.
func readEntry(tree *brine.Tree, name string, n *yaml.Node, open map[*yaml.Node]bool) error {
	tag := brine.Tag(customTag(n.Tag))
	switch n.Kind {
	case yaml.MappingNode:
		sub, err := readMapping(n, open)
		if err != nil {
			return err
		}
		tree.Set(brine.Key{Name: name, Tag: tag}, brine.Branch(sub))

	case yaml.SequenceNode:
		sub, err := readSequence(n, open)
		if err != nil {
			return err
		}
		if tag == brine.TagNone {
			tag = brine.TagArray
		}
		tree.Set(brine.Key{Name: name, Tag: tag}, brine.Branch(sub))

	case yaml.ScalarNode:
		switch n.ShortTag() {
		case tagNull:
			if n.Style == 0 && tag == brine.TagNone {
				return nil
			}
		case tagBinary:
			raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
			if err != nil {
				return fmt.Errorf("yaml: line %d: %w", n.Line, err)
			}
			tree.Set(brine.Key{Name: name}, brine.Leaf(string(raw)))
			return nil
		}
		tree.Set(brine.Key{Name: name, Tag: tag}, brine.Leaf(n.Value))

	default:
		return fmt.Errorf("yaml: line %d: unexpected node", n.Line)
	}
	return nil
}

// customTag returns the name of a local "!name" tag, or "" for standard tags.
func customTag(tag string) string {
	if strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!") {
		return tag[1:]
	}
	return ""
}

func enter(n *yaml.Node, open map[*yaml.Node]bool) error {
	if open[n] {
		return fmt.Errorf("yaml: line %d: anchor %q contains itself", n.Line, n.Anchor)
	}
	open[n] = true
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
