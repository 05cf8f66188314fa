package brine

import (
	"context"
	"fmt"
	"go/token"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/zoobzio/sentinel"
)

// tagKey is the struct tag that renames or excludes fields.
const tagKey = "brine"

func init() {
	sentinel.Tag(tagKey)
}

// Registry maps type names to default-instance factories and hydrators.
//
// A registry has two phases. During startup, types are added with Register.
// Freeze then ends the registration phase; after that, lookups are read-only
// and safe for concurrent use without locking. Registering concurrently with
// lookups is not supported.
type Registry struct {
	frozen atomic.Bool
	byName map[string]*descriptor
	byType map[reflect.Type]*descriptor
}

// descriptor holds everything the registry knows about one type.
type descriptor struct {
	name    string
	typ     reflect.Type // struct type, never a pointer
	factory func() any
	hydrate func(target any, tree *Tree) error
	fields  []fieldPlan
	byKey   map[string]int
}

// fieldPlan describes how one struct field maps to a tree key.
type fieldPlan struct {
	key   string // wire name
	name  string // Go field name
	index []int  // reflect.Value.FieldByIndex access path
}

// NewRegistry returns an empty registry in its registration phase.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*descriptor),
		byType: make(map[reflect.Type]*descriptor),
	}
}

// Register adds struct type T under name.
//
// factory must return a structurally complete default instance; nil means
// new(T). hydrate applies a tree onto that instance; nil means T's own
// Injectable implementation if it has one, reflective injection otherwise.
func Register[T any](r *Registry, name string, factory func() *T, hydrate func(target *T, tree *Tree) error) error {
	if r.frozen.Load() {
		return newConfigError(ErrFrozen, name, "")
	}
	if !Tag(name).IsTypeName() || strings.Contains(name, "|") {
		return newConfigError(ErrReservedType, name, "")
	}

	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return newConfigError(ErrInvalidTarget, name, "")
	}
	if _, ok := r.byName[name]; ok {
		return newConfigError(ErrDuplicateType, name, "")
	}
	if existing, ok := r.byType[typ]; ok {
		return newConfigError(ErrDuplicateType, existing.name, typ.String())
	}

	fields, err := scanFields[T]()
	if err != nil {
		return newConfigError(err, name, "")
	}

	if factory == nil {
		factory = func() *T { return new(T) }
	}

	d := &descriptor{
		name:   name,
		typ:    typ,
		fields: fields,
		byKey:  make(map[string]int, len(fields)),
		factory: func() any {
			inst := factory()
			if inst == nil {
				return nil
			}
			return inst
		},
	}
	for i, f := range fields {
		d.byKey[f.key] = i
	}

	if hydrate != nil {
		d.hydrate = func(target any, tree *Tree) error {
			return hydrate(target.(*T), tree)
		}
	} else {
		d.hydrate = func(target any, tree *Tree) error {
			if inj, ok := target.(Injectable); ok {
				return inj.InjectState(r, tree)
			}
			return r.Inject(target, tree)
		}
	}

	r.byName[name] = d
	r.byType[typ] = d

	emitTypeRegistered(context.Background(), name, len(fields))
	return nil
}

// MustRegister is like Register but panics on error.
// Intended for startup wiring where a failure is a programming defect.
func MustRegister[T any](r *Registry, name string, factory func() *T, hydrate func(target *T, tree *Tree) error) {
	if err := Register(r, name, factory, hydrate); err != nil {
		panic(fmt.Sprintf("brine: register %q: %v", name, err))
	}
}

// scanFields builds field plans for T from its sentinel metadata.
func scanFields[T any]() ([]fieldPlan, error) {
	meta := sentinel.Scan[T]()

	plans := make([]fieldPlan, 0, len(meta.Fields))
	seen := make(map[string]bool, len(meta.Fields))
	for _, field := range meta.Fields {
		if !token.IsExported(field.Name) {
			continue
		}

		key := field.Name
		if val, ok := field.Tags[tagKey]; ok {
			name, _, _ := strings.Cut(val, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
		}

		if seen[key] {
			return nil, fmt.Errorf("%w: key %q used twice (field %s)", ErrInvalidTag, key, field.Name)
		}
		seen[key] = true

		plans = append(plans, fieldPlan{
			key:   key,
			name:  field.Name,
			index: append([]int{}, field.Index...),
		})
	}
	return plans, nil
}

// Freeze ends the registration phase. Subsequent Register calls fail with ErrFrozen.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// TypeNameOf returns the registered name of v's runtime type.
// Pointers are dereferenced.
func (r *Registry) TypeNameOf(v any) (string, bool) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "", false
	}
	d, ok := r.byType[t]
	if !ok {
		return "", false
	}
	return d.name, true
}

// New returns a default instance of the named type as a pointer.
func (r *Registry) New(name string) (any, error) {
	d, err := r.lookup(name, "")
	if err != nil {
		return nil, err
	}
	return d.newInstance()
}

// Fields returns the wire names of every field the named type's
// hydrator may touch, in declaration order.
func (r *Registry) Fields(name string) ([]string, error) {
	d, err := r.lookup(name, "")
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.key
	}
	return keys, nil
}

// Hydrate builds a default instance of the named type and applies tree to it.
// Unknown type names anywhere in tree are reported before any work is done.
func (r *Registry) Hydrate(name string, tree *Tree) (any, error) {
	d, err := r.lookup(name, "")
	if err != nil {
		return nil, err
	}
	if err := r.checkTypes(tree, name); err != nil {
		return nil, err
	}
	return r.build(d, tree)
}

// build runs a descriptor's factory and hydrator.
func (r *Registry) build(d *descriptor, tree *Tree) (any, error) {
	inst, err := d.newInstance()
	if err != nil {
		return nil, err
	}
	if err := d.hydrate(inst, tree); err != nil {
		return nil, err
	}
	return inst, nil
}

func (r *Registry) lookup(name, field string) (*descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, newConfigError(ErrUnknownType, name, field)
	}
	return d, nil
}

// checkTypes verifies every type name tagged in tree is registered.
func (r *Registry) checkTypes(tree *Tree, path string) error {
	for _, e := range tree.Entries() {
		fieldPath := path + "." + e.Key.Name
		if e.Key.Tag.IsTypeName() && !r.Has(string(e.Key.Tag)) {
			return newConfigError(ErrUnknownType, string(e.Key.Tag), fieldPath)
		}
		if e.Value.IsBranch() {
			if err := r.checkTypes(e.Value.Tree(), fieldPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *descriptor) newInstance() (any, error) {
	inst := d.factory()
	if inst == nil {
		return nil, newConfigError(ErrInvalidTarget, d.name, "")
	}
	return inst, nil
}
