// Package json provides the compact-text tree codec.
//
// A document is {"typeName":"T","state":{...}}. Containers carry their
// structural tag as a "name|tag" key suffix, and index-shaped arrays of
// leaves are written as JSON arrays. Scalar tags are not written: every
// leaf is a JSON string and decodes as an untagged leaf, so bool, int, and
// float coercion does not happen for documents read by this codec.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zoobzio/brine"
)

const (
	fieldTypeName = "typeName"
	fieldState    = "state"
	tagSep        = "|"
)

// jsonCodec implements brine.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec.
func New() brine.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Encode writes doc as a JSON object with ordered keys.
func (c *jsonCodec) Encode(doc brine.Document) ([]byte, error) {
	if doc.TypeName == "" {
		return nil, errors.New("json: document has no type name")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	writeString(&buf, fieldTypeName)
	buf.WriteByte(':')
	writeString(&buf, doc.TypeName)
	buf.WriteByte(',')
	writeString(&buf, fieldState)
	buf.WriteByte(':')
	writeObject(&buf, doc.State)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeObject(buf *bytes.Buffer, tree *brine.Tree) {
	buf.WriteByte('{')
	for i, e := range tree.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !e.Value.IsBranch() {
			writeString(buf, e.Key.Name)
			buf.WriteByte(':')
			writeString(buf, e.Value.Text())
			continue
		}
		writeString(buf, e.Key.Name+tagSep+string(e.Key.Tag))
		buf.WriteByte(':')
		writeBranch(buf, e.Key.Tag, e.Value.Tree())
	}
	buf.WriteByte('}')
}

func writeBranch(buf *bytes.Buffer, tag brine.Tag, tree *brine.Tree) {
	if tag == brine.TagArray && isList(tree) {
		writeList(buf, tree)
		return
	}
	writeObject(buf, tree)
}

func writeList(buf *bytes.Buffer, tree *brine.Tree) {
	buf.WriteByte('[')
	for i, e := range tree.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if e.Value.IsBranch() {
			writeList(buf, e.Value.Tree())
			continue
		}
		writeString(buf, e.Value.Text())
	}
	buf.WriteByte(']')
}

// isList reports whether an array container can be written as a JSON array
// without losing keys or tags: keys must be "0".."n-1" and every element a
// leaf or a nested container that is itself a list.
func isList(tree *brine.Tree) bool {
	for i, e := range tree.Entries() {
		if e.Key.Name != strconv.Itoa(i) {
			return false
		}
		if !e.Value.IsBranch() {
			continue
		}
		if e.Key.Tag != brine.TagArray || !isList(e.Value.Tree()) {
			return false
		}
	}
	return true
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s) // strings always marshal
	buf.Write(b)
}

// Decode parses a JSON document.
func (c *jsonCodec) Decode(data []byte) (brine.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return brine.Document{}, err
	}

	var doc brine.Document
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return brine.Document{}, err
		}
		switch name {
		case fieldTypeName:
			tok, err := dec.Token()
			if err != nil {
				return brine.Document{}, err
			}
			s, ok := tok.(string)
			if !ok {
				return brine.Document{}, fmt.Errorf("json: typeName is %T, want string", tok)
			}
			doc.TypeName = s
		case fieldState:
			if err := expectDelim(dec, '{'); err != nil {
				return brine.Document{}, err
			}
			if doc.State, err = readObject(dec); err != nil {
				return brine.Document{}, err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return brine.Document{}, err
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return brine.Document{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return brine.Document{}, errors.New("json: trailing data after document")
	}

	if doc.TypeName == "" {
		return brine.Document{}, errors.New("json: document has no typeName")
	}
	if doc.State == nil {
		return brine.Document{}, errors.New("json: document has no state")
	}
	return doc, nil
}

// readObject reads entries up to the closing brace of an object whose
// opening brace was already consumed.
func readObject(dec *json.Decoder) (*brine.Tree, error) {
	tree := brine.NewTree()
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key := brine.Key{Name: name}
		if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
			if i := strings.LastIndex(name, tagSep); i >= 0 {
				key = brine.Key{Name: name[:i], Tag: brine.Tag(name[i+1:])}
			} else if d == '[' {
				key.Tag = brine.TagArray
			}
		}

		val, ok, err := readValue(dec, tok)
		if err != nil {
			return nil, err
		}
		if ok {
			tree.Set(key, val)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return tree, nil
}

// readList reads elements up to the closing bracket of an array whose
// opening bracket was already consumed. Elements are keyed by position.
func readList(dec *json.Decoder) (*brine.Tree, error) {
	tree := brine.NewTree()
	for i := 0; dec.More(); i++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := brine.Key{Name: strconv.Itoa(i)}
		if d, ok := tok.(json.Delim); ok && d == '[' {
			key.Tag = brine.TagArray
		}
		val, ok, err := readValue(dec, tok)
		if err != nil {
			return nil, err
		}
		if ok {
			tree.Set(key, val)
		}
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return tree, nil
}

// readValue converts tok, and whatever it opens, into a tree value.
// ok is false for null.
func readValue(dec *json.Decoder, tok json.Token) (brine.Value, bool, error) {
	switch t := tok.(type) {
	case json.Delim:
		var (
			sub *brine.Tree
			err error
		)
		switch t {
		case '{':
			sub, err = readObject(dec)
		case '[':
			sub, err = readList(dec)
		default:
			return brine.Value{}, false, fmt.Errorf("json: unexpected %q", t)
		}
		if err != nil {
			return brine.Value{}, false, err
		}
		return brine.Branch(sub), true, nil
	case string:
		return brine.Leaf(t), true, nil
	case json.Number:
		return brine.Leaf(t.String()), true, nil
	case bool:
		return brine.Leaf(strconv.FormatBool(t)), true, nil
	case nil:
		return brine.Value{}, false, nil
	}
	return brine.Value{}, false, fmt.Errorf("json: unexpected token %v", tok)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	name, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("json: expected object key, got %v", tok)
	}
	return name, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}
