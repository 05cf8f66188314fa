package brine

// Tag describes how the value behind a key must be rebuilt.
// Anything other than the reserved tags names a registered type.
type Tag string

const (
	// TagNone marks an opaque scalar passed through verbatim.
	TagNone Tag = ""

	// TagArray marks an ordered container (slice, array, or map).
	TagArray Tag = "array"

	// TagBool marks a leaf that must be coerced to a boolean.
	TagBool Tag = "bool"

	// TagInt marks a leaf that must be coerced to an integer.
	TagInt Tag = "int"

	// TagFloat marks a leaf that must be coerced to a floating-point number.
	TagFloat Tag = "float"
)

// reservedTags cannot be used as registered type names.
var reservedTags = map[Tag]bool{
	TagNone:  true,
	TagArray: true,
	TagBool:  true,
	TagInt:   true,
	TagFloat: true,
}

// IsScalar reports whether the tag requests a primitive coercion.
func (t Tag) IsScalar() bool {
	return t == TagBool || t == TagInt || t == TagFloat
}

// IsTypeName reports whether the tag names a registered object type.
func (t Tag) IsTypeName() bool {
	return !reservedTags[t]
}

// Key addresses a value in a Tree. Tag is metadata and not part of identity.
type Key struct {
	Name string
	Tag  Tag
}

// Value is either a text leaf or a nested Tree.
type Value struct {
	text string
	tree *Tree
}

// Leaf returns a scalar value.
func Leaf(text string) Value {
	return Value{text: text}
}

// Branch returns a container value. A nil tree is treated as empty.
func Branch(t *Tree) Value {
	if t == nil {
		t = NewTree()
	}
	return Value{tree: t}
}

// IsBranch reports whether the value is a nested Tree.
func (v Value) IsBranch() bool {
	return v.tree != nil
}

// Text returns the leaf text. It is empty for branches.
func (v Value) Text() string {
	return v.text
}

// Tree returns the nested tree, or nil for leaves.
func (v Value) Tree() *Tree {
	return v.tree
}

// Entry is one key/value pair of a Tree.
type Entry struct {
	Key   Key
	Value Value
}

// Tree is an insertion-ordered map of tagged keys to values.
// The same structure represents object field maps and array containers;
// the tag on the key pointing at a tree says which one it is.
type Tree struct {
	entries []Entry
	index   map[string]int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{index: make(map[string]int)}
}

// Set stores v under key. An existing entry with the same name is replaced
// in place and keeps its position.
func (t *Tree) Set(key Key, v Value) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[key.Name]; ok {
		t.entries[i] = Entry{Key: key, Value: v}
		return
	}
	t.index[key.Name] = len(t.entries)
	t.entries = append(t.entries, Entry{Key: key, Value: v})
}

// Get returns the entry stored under name.
func (t *Tree) Get(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Len returns the number of entries.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries in insertion order.
// The returned slice is a copy; nested trees are shared.
func (t *Tree) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Equal reports whether both trees hold the same keys, tags, and values
// in the same order.
func (t *Tree) Equal(other *Tree) bool {
	if t.Len() != other.Len() {
		return false
	}
	for i := 0; i < t.Len(); i++ {
		a, b := t.entries[i], other.entries[i]
		if a.Key != b.Key || a.Value.IsBranch() != b.Value.IsBranch() {
			return false
		}
		if a.Value.IsBranch() {
			if !a.Value.tree.Equal(b.Value.tree) {
				return false
			}
			continue
		}
		if a.Value.text != b.Value.text {
			return false
		}
	}
	return true
}

// Document is the unit every codec writes and reads: the serialized
// object's type name plus its projected state.
type Document struct {
	TypeName string
	State    *Tree
}
