// Package bson provides a BSON tree codec.
//
// A document is {typeName: T, state: {...}} with every entry key written as
// "name|tag" (the tag part is empty for untagged leaves). Containers are
// embedded documents and leaves are strings, so element order and all tags
// survive a round trip.
package bson

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/zoobzio/brine"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	fieldTypeName = "typeName"
	fieldState    = "state"
	tagSep        = "|"
)

// bsonCodec implements brine.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() brine.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Encode writes doc as a BSON document.
func (c *bsonCodec) Encode(doc brine.Document) ([]byte, error) {
	if doc.TypeName == "" {
		return nil, errors.New("bson: document has no type name")
	}
	return bson.Marshal(bson.D{
		{Key: fieldTypeName, Value: doc.TypeName},
		{Key: fieldState, Value: toD(doc.State)},
	})
}

func toD(tree *brine.Tree) bson.D {
	d := make(bson.D, 0, tree.Len())
	for _, e := range tree.Entries() {
		key := e.Key.Name + tagSep + string(e.Key.Tag)
		if e.Value.IsBranch() {
			d = append(d, bson.E{Key: key, Value: toD(e.Value.Tree())})
			continue
		}
		d = append(d, bson.E{Key: key, Value: e.Value.Text()})
	}
	return d
}

// Decode parses a BSON document.
func (c *bsonCodec) Decode(data []byte) (brine.Document, error) {
	if len(data) < 5 || int(binary.LittleEndian.Uint32(data)) != len(data) {
		return brine.Document{}, errors.New("bson: length prefix does not match input")
	}
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return brine.Document{}, err
	}
	elems, err := raw.Elements()
	if err != nil {
		return brine.Document{}, err
	}

	var doc brine.Document
	for _, el := range elems {
		switch el.Key() {
		case fieldTypeName:
			s, ok := el.Value().StringValueOK()
			if !ok {
				return brine.Document{}, errors.New("bson: typeName is not a string")
			}
			doc.TypeName = s
		case fieldState:
			sub, ok := el.Value().DocumentOK()
			if !ok {
				return brine.Document{}, errors.New("bson: state is not a document")
			}
			state, err := fromRaw(sub)
			if err != nil {
				return brine.Document{}, err
			}
			doc.State = state
		}
	}

	if doc.TypeName == "" {
		return brine.Document{}, errors.New("bson: document has no typeName")
	}
	if doc.State == nil {
		return brine.Document{}, errors.New("bson: document has no state")
	}
	return doc, nil
}

func fromRaw(raw bson.Raw) (*brine.Tree, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, err
	}

	tree := brine.NewTree()
	for _, el := range elems {
		i := strings.LastIndex(el.Key(), tagSep)
		if i < 0 {
			return nil, fmt.Errorf("bson: key %q has no tag separator", el.Key())
		}
		key := brine.Key{Name: el.Key()[:i], Tag: brine.Tag(el.Key()[i+1:])}

		val := el.Value()
		if sub, ok := val.DocumentOK(); ok {
			subtree, err := fromRaw(sub)
			if err != nil {
				return nil, err
			}
			tree.Set(key, brine.Branch(subtree))
			continue
		}
		s, ok := val.StringValueOK()
		if !ok {
			return nil, fmt.Errorf("bson: key %q holds %s, want string or document", el.Key(), val.Type)
		}
		tree.Set(key, brine.Leaf(s))
	}
	return tree, nil
}
