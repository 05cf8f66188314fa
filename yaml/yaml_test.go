package yaml

import (
	"strings"
	"testing"

	"github.com/zoobzio/brine"
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
	if c.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/yaml")
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
		t.Fatalf("Decode() error: %v\n%s", err, data)
	}
	if restored.TypeName != doc.TypeName {
		t.Errorf("TypeName = %q, want %q", restored.TypeName, doc.TypeName)
	}
	if !restored.State.Equal(doc.State) {
		t.Errorf("round-trip changed state:\n%s", data)
	}
}

func TestEncode_Tags(t *testing.T) {
	c := New()

	data, err := c.Encode(codectest.SampleDocument())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		`typeName: "Person"`,
		`"age": !int "34"`,
		`"active": !bool "true"`,
		`"home": !Address`,
		`"labels": !array`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestEncode_UnwritableTag(t *testing.T) {
	c := New()

	state := brine.NewTree()
	state.Set(brine.Key{Name: "x", Tag: "has space"}, brine.Branch(brine.NewTree()))
	if _, err := c.Encode(brine.Document{TypeName: "T", State: state}); err == nil {
		t.Error("Encode() with a tag YAML cannot carry should return error")
	}
}

func TestSpecialText(t *testing.T) {
	c := New()

	testCases := []struct {
		name  string
		input string
	}{
		{"newline", "line1\nline2"},
		{"colon", "key: value"},
		{"padding", "  spaced  "},
		{"unicode", "日本語テスト"},
		{"emoji", "hello 👋 world"},
		{"special chars", "#@!$%^&*()"},
		{"looks like bool", "yes"},
		{"looks like null", "~"},
		{"control", "tab\tnul\x00"},
		{"invalid utf8", "\xff\xfe"},
		{"empty", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state := brine.NewTree()
			state.Set(brine.Key{Name: "text"}, brine.Leaf(tc.input))

			data, err := c.Encode(brine.Document{TypeName: "Note", State: state})
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			doc, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			got, ok := doc.State.Get("text")
			if !ok || got.Value.Text() != tc.input {
				t.Errorf("round-trip failed for %q: got %q\n%s", tc.input, got.Value.Text(), data)
			}
		})
	}
}

func TestDecode_HandWritten(t *testing.T) {
	c := New()

	input := `typeName: Appt
state:
  title: Demo
  startDate: !int 1700000000
  tags: &tags
    - a
    - b
  copy: *tags
  missing:
`
	doc, err := c.Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	start, _ := doc.State.Get("startDate")
	if start.Key.Tag != brine.TagInt || start.Value.Text() != "1700000000" {
		t.Errorf("startDate = %+v", start)
	}
	for _, name := range []string{"tags", "copy"} {
		e, ok := doc.State.Get(name)
		if !ok || e.Key.Tag != brine.TagArray || e.Value.Tree().Len() != 2 {
			t.Errorf("%s = %+v", name, e)
		}
	}
	if _, ok := doc.State.Get("missing"); ok {
		t.Error("null value should be omitted")
	}
}

func TestDecode_Malformed(t *testing.T) {
	c := New()

	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unclosed bracket", "typeName: T\nstate: [a, b"},
		{"bad indent", "typeName: T\nstate:\n  a: 1\n b: 2"},
		{"tab indent", "typeName: T\nstate:\n\ta: 1"},
		{"scalar root", "just a string"},
		{"missing type name", "state: {}"},
		{"missing state", "typeName: T"},
		{"state not mapping", "typeName: T\nstate: [1]"},
		{"two documents", "typeName: T\nstate: {}\n---\ntypeName: U\nstate: {}"},
		{"bad binary", "typeName: T\nstate:\n  x: !!binary \"@@@\""},
		{"anchor inside itself", "typeName: T\nstate: &a\n  val: *a\n"},
		{"sequence inside itself", "typeName: T\nstate:\n  xs: &s\n    - *s\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Decode([]byte(tc.input)); err == nil {
				t.Errorf("Decode(%q) should return error", tc.input)
			}
		})
	}
}
