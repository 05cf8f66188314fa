// Package base64 provides a text-safe tree codec: the MessagePack tree dump
// wrapped in standard base64.
package base64

import (
	"bytes"
	"encoding/base64"

	"github.com/zoobzio/brine"
	"github.com/zoobzio/brine/msgpack"
)

// base64Codec implements brine.Codec by wrapping the MessagePack tree dump.
type base64Codec struct{}

// New returns a base64-wrapped codec.
func New() brine.Codec {
	return &base64Codec{}
}

// ContentType returns the MIME type for base64-wrapped MessagePack.
func (c *base64Codec) ContentType() string {
	return "application/msgpack+base64"
}

// Encode dumps doc and base64-encodes the result.
func (c *base64Codec) Encode(doc brine.Document) ([]byte, error) {
	raw, err := msgpack.MarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// Decode base64-decodes data and loads the document. Surrounding
// whitespace is ignored.
func (c *base64Codec) Decode(data []byte) (brine.Document, error) {
	data = bytes.TrimSpace(data)
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(raw, data)
	if err != nil {
		return brine.Document{}, err
	}
	return msgpack.UnmarshalDocument(raw[:n])
}
