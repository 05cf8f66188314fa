// Package brine projects registered Go objects into an ordered value tree
// and moves that tree through pluggable wire formats.
//
// A Serializer pairs a Registry with a set of codecs. Serialize projects an
// object into a Tree and encodes it; Deserialize decodes a Tree and hydrates
// a fresh instance of the named type from it.
//
// # Value Tree
//
// A Tree is an ordered mapping from keys to values. Each key carries a name
// and a Tag describing how its value is read back:
//
//   - "" - untagged text, stored verbatim
//   - "array" - a container keyed by index or map key
//   - "bool", "int", "float" - text coerced to that primitive
//   - anything else - a container holding a registered type by name
//
// # Registration
//
// Types are registered under a unique name before use, and the registry is
// frozen once setup is done:
//
//	type Appt struct {
//	    Title     string   `brine:"title"`
//	    StartDate any      `brine:"startDate"`
//	    Tags      []string `brine:"tags"`
//	    cache     []byte
//	}
//
//	r := brine.NewRegistry()
//	brine.MustRegister[Appt](r, "Appt", nil, nil)
//	r.Freeze()
//
// The brine tag renames a field; brine:"-" excludes it. Unexported fields
// are never projected.
//
// # Basic Usage
//
//	s, _ := brine.NewSerializer(r,
//	    brine.WithCodec(xml.New()),
//	    brine.WithCodec(json.New()),
//	    brine.WithSnapshotter(msgpack.New()),
//	)
//
//	data, _ := s.Serialize(ctx, &appt, "application/xml")
//	restored, _ := brine.DeserializeAs[Appt](ctx, s, data, "application/xml")
//
// # Override Interfaces
//
// Types can bypass reflection by implementing:
//
//   - Projectable: custom projection into a tree
//   - Injectable: custom hydration from a tree
//
// # Codec Providers
//
// The following implementations are available as subpackages:
//
//   - xml - markup encoding (application/xml)
//   - json - compact text encoding (application/json)
//   - yaml - YAML encoding (application/yaml)
//   - bson - BSON encoding (application/bson)
//   - base64 - MessagePack tree, base64 wrapped (application/msgpack+base64)
//   - msgpack - native object snapshot (application/msgpack)
//
// The json codec writes every leaf as a string and drops scalar tags, so an
// int read through it lands in an untyped field as a string.
//
// # Signals
//
// Serialize and Deserialize emit capitan signals on start and completion,
// registration emits brine.type.registered, and projection emits
// brine.field.skipped for values with no tree representation.
package brine

// Codec converts a Document to and from a wire format.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/xml").
	ContentType() string

	// Encode writes doc in the codec's wire format.
	Encode(doc Document) ([]byte, error)

	// Decode parses data into a Document.
	Decode(data []byte) (Document, error)
}

// Snapshotter dumps and restores whole objects with a native mechanism,
// bypassing the value tree and the registry's hydrators. It only round-trips
// objects whose runtime representation is self-describing; interface-typed
// fields do not recover their dynamic types.
type Snapshotter interface {
	// ContentType returns the MIME type for this snapshotter.
	ContentType() string

	// Snapshot encodes v directly.
	Snapshot(v any) ([]byte, error)

	// Restore decodes data into v, which must be a non-nil pointer.
	Restore(data []byte, v any) error
}

// Projectable bypasses reflection when projecting a value into a tree.
type Projectable interface {
	// ProjectState returns the receiver's state as a tree.
	// Nested registered objects can be projected with r.Project.
	ProjectState(r *Registry) (*Tree, error)
}

// Injectable bypasses reflection when hydrating a default instance.
type Injectable interface {
	// InjectState applies tree onto the receiver.
	// The receiver is a freshly built default instance.
	InjectState(r *Registry, tree *Tree) error
}
