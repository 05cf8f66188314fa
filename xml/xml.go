// Package xml provides the structured-markup tree codec.
//
// A document is a single <object typeName="T"> element. Object fields become
// child elements named after their key; elements of array containers, and
// fields whose key is not a valid XML name, are written as <arrayItem key="k">.
// Every tag travels in a typeName attribute, so the format is lossless.
package xml

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zoobzio/brine"
)

const (
	rootElement  = "object"
	itemElement  = "arrayItem"
	attrTypeName = "typeName"
	attrKey      = "key"
	attrEncoding = "encoding"
	encBase64    = "base64"
)

// xmlCodec implements brine.Codec for XML.
type xmlCodec struct{}

// New returns an XML codec.
func New() brine.Codec {
	return &xmlCodec{}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

// Encode writes doc as an XML document.
func (c *xmlCodec) Encode(doc brine.Document) ([]byte, error) {
	if doc.TypeName == "" {
		return nil, errors.New("xml: document has no type name")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{
		Name: xml.Name{Local: rootElement},
		Attr: []xml.Attr{{Name: xml.Name{Local: attrTypeName}, Value: doc.TypeName}},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	if err := writeTree(enc, doc.State, false); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTree(enc *xml.Encoder, tree *brine.Tree, array bool) error {
	for _, e := range tree.Entries() {
		start := xml.StartElement{Name: xml.Name{Local: e.Key.Name}}
		if array || !isName(e.Key.Name) {
			start.Name.Local = itemElement
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrKey}, Value: e.Key.Name})
		}
		if e.Key.Tag != brine.TagNone {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrTypeName}, Value: string(e.Key.Tag)})
		}

		if e.Value.IsBranch() {
			if err := enc.EncodeToken(start); err != nil {
				return err
			}
			if err := writeTree(enc, e.Value.Tree(), e.Key.Tag == brine.TagArray); err != nil {
				return err
			}
			if err := enc.EncodeToken(start.End()); err != nil {
				return err
			}
			continue
		}

		text := e.Value.Text()
		if !isText(text) {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrEncoding}, Value: encBase64})
			text = base64.StdEncoding.EncodeToString([]byte(text))
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		if text != "" {
			if err := enc.EncodeToken(xml.CharData(text)); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses an XML document.
func (c *xmlCodec) Decode(data []byte) (brine.Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	root, err := firstElement(dec)
	if err != nil {
		return brine.Document{}, err
	}
	if root.Name.Local != rootElement {
		return brine.Document{}, fmt.Errorf("xml: root element is <%s>, want <%s>", root.Name.Local, rootElement)
	}
	typeName := attr(root, attrTypeName)
	if typeName == "" {
		return brine.Document{}, errors.New("xml: root element has no typeName")
	}

	state, text, err := readChildren(dec)
	if err != nil {
		return brine.Document{}, err
	}
	if strings.TrimSpace(text) != "" {
		return brine.Document{}, errors.New("xml: text content in root element")
	}
	if err := expectEOF(dec); err != nil {
		return brine.Document{}, err
	}
	return brine.Document{TypeName: typeName, State: state}, nil
}

// firstElement skips the prolog and returns the root start element.
func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, errors.New("xml: no root element")
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return xml.StartElement{}, errors.New("xml: text before root element")
			}
		}
	}
}

func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return errors.New("xml: trailing data after root element")
			}
		case xml.Comment, xml.ProcInst:
		default:
			return errors.New("xml: trailing data after root element")
		}
	}
}

// readChildren reads up to the end of the current element, returning its
// child elements as a tree and its concatenated text.
func readChildren(dec *xml.Decoder) (*brine.Tree, string, error) {
	tree := brine.NewTree()
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, "", io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			key, val, err := readElement(dec, t)
			if err != nil {
				return nil, "", err
			}
			tree.Set(key, val)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return tree, text.String(), nil
		}
	}
}

func readElement(dec *xml.Decoder, start xml.StartElement) (brine.Key, brine.Value, error) {
	key := brine.Key{Name: start.Name.Local, Tag: brine.Tag(attr(start, attrTypeName))}
	for _, a := range start.Attr {
		if a.Name.Local == attrKey && a.Name.Space == "" {
			key.Name = a.Value
		}
	}

	children, text, err := readChildren(dec)
	if err != nil {
		return brine.Key{}, brine.Value{}, err
	}

	if children.Len() > 0 || key.Tag == brine.TagArray || key.Tag.IsTypeName() {
		if strings.TrimSpace(text) != "" {
			return brine.Key{}, brine.Value{}, fmt.Errorf("xml: text content in container %q", key.Name)
		}
		return key, brine.Branch(children), nil
	}

	if attr(start, attrEncoding) == encBase64 {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return brine.Key{}, brine.Value{}, fmt.Errorf("xml: leaf %q: %w", key.Name, err)
		}
		text = string(raw)
	}
	return key, brine.Leaf(text), nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// isName reports whether s can be used as an element name as-is.
func isName(s string) bool {
	if s == "" || strings.HasPrefix(strings.ToLower(s), "xml") {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

// isText reports whether s survives as XML 1.0 character data.
func isText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}
