package base64

import (
	"bytes"
	"testing"

	codectest "github.com/zoobzio/brine/testing"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/msgpack+base64" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/msgpack+base64")
	}
}

func TestEncodeDecode(t *testing.T) {
	c := New()
	doc := codectest.SampleDocument()

	data, err := c.Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	restored, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if restored.TypeName != doc.TypeName {
		t.Errorf("TypeName = %q, want %q", restored.TypeName, doc.TypeName)
	}
	if !restored.State.Equal(doc.State) {
		t.Error("round-trip changed state")
	}
}

func TestEncode_TextSafe(t *testing.T) {
	c := New()

	data, err := c.Encode(codectest.SampleDocument())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	for i, b := range data {
		ok := (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') ||
			b == '+' || b == '/' || b == '='
		if !ok {
			t.Fatalf("byte %d = %q is not in the base64 alphabet", i, b)
		}
	}
}

func TestDecode_TrailingNewline(t *testing.T) {
	c := New()

	data, err := c.Encode(codectest.SampleDocument())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if _, err := c.Decode(append(data, '\n')); err != nil {
		t.Errorf("Decode() with trailing newline error: %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	c := New()

	data, err := c.Encode(codectest.SampleDocument())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	testCases := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"invalid alphabet", []byte("!!!not base64!!!")},
		{"bad padding", []byte("QUJD=")},
		{"truncated", data[:len(data)/2]},
		{"valid base64 of garbage", []byte("bm90IG1zZ3BhY2s=")},
		{"embedded garbage", bytes.Replace(data, data[4:8], []byte("$$$$"), 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Decode(tc.input); err == nil {
				t.Errorf("Decode(%q) should return error", tc.input)
			}
		})
	}
}
