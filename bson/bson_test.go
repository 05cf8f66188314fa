package bson

import (
	"testing"

	"github.com/zoobzio/brine"
	codectest "github.com/zoobzio/brine/testing"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/bson" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/bson")
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

func TestEncode_Keys(t *testing.T) {
	c := New()

	state := brine.NewTree()
	state.Set(brine.Key{Name: "a|b"}, brine.Leaf("pipe"))
	state.Set(brine.Key{Name: "n", Tag: brine.TagInt}, brine.Leaf("7"))

	data, err := c.Encode(brine.Document{TypeName: "T", State: state})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var got bson.D
	if err := bson.Unmarshal(data, &got); err != nil {
		t.Fatalf("bson.Unmarshal() error: %v", err)
	}
	inner, ok := got[1].Value.(bson.D)
	if !ok {
		t.Fatalf("state = %T, want bson.D", got[1].Value)
	}
	if inner[0].Key != "a|b|" || inner[1].Key != "n|int" {
		t.Errorf("keys = %q, %q", inner[0].Key, inner[1].Key)
	}

	restored, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !restored.State.Equal(state) {
		t.Error("round-trip changed state")
	}
}

func TestDecode_Malformed(t *testing.T) {
	c := New()

	data, err := c.Encode(codectest.SampleDocument())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	mustMarshal := func(v any) []byte {
		b, err := bson.Marshal(v)
		if err != nil {
			t.Fatalf("bson.Marshal() error: %v", err)
		}
		return b
	}

	testCases := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not bson at all")},
		{"truncated", data[:len(data)-3]},
		{"trailing", append(append([]byte{}, data...), 0x00)},
		{"missing type name", mustMarshal(bson.D{{Key: "state", Value: bson.D{}}})},
		{"missing state", mustMarshal(bson.D{{Key: "typeName", Value: "T"}})},
		{"state not document", mustMarshal(bson.D{{Key: "typeName", Value: "T"}, {Key: "state", Value: "x"}})},
		{"key without tag", mustMarshal(bson.D{{Key: "typeName", Value: "T"}, {Key: "state", Value: bson.D{{Key: "a", Value: "x"}}}})},
		{"numeric leaf", mustMarshal(bson.D{{Key: "typeName", Value: "T"}, {Key: "state", Value: bson.D{{Key: "a|", Value: 1}}}})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Decode(tc.input); err == nil {
				t.Errorf("Decode(%x) should return error", tc.input)
			}
		})
	}
}
