package brine

import (
	"context"
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Project converts a registered object into a tree of its field state.
//
// Nested registered objects are tagged with their runtime type name, so a
// field declared as an interface keeps its concrete type. Slices, arrays, and
// maps are tagged TagArray; booleans, integers, and floats carry scalar tags.
// Values with no tree representation (nil pointers, unregistered structs,
// channels, funcs, complex numbers) are skipped without error.
func (r *Registry) Project(obj any) (*Tree, error) {
	rv := reflect.ValueOf(obj)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, newConfigError(ErrInvalidTarget, rv.Type().String(), "")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, newConfigError(ErrInvalidTarget, "", "")
	}

	d, ok := r.byType[rv.Type()]
	if !ok {
		return nil, newConfigError(ErrUnknownType, rv.Type().String(), "")
	}

	p := &projector{r: r, visiting: make(map[visitKey]bool)}
	return p.object(d, rv, d.name)
}

// projector carries per-call state for a single projection.
type projector struct {
	r        *Registry
	visiting map[visitKey]bool
}

// visitKey identifies an addressable struct on the current projection path.
type visitKey struct {
	addr uintptr
	typ  reflect.Type
}

func (p *projector) object(d *descriptor, rv reflect.Value, path string) (*Tree, error) {
	if rv.CanAddr() {
		key := visitKey{addr: rv.UnsafeAddr(), typ: rv.Type()}
		if p.visiting[key] {
			return nil, newConfigError(ErrCycle, d.name, path)
		}
		p.visiting[key] = true
		defer delete(p.visiting, key)
	}

	if pr, ok := asProjectable(rv); ok {
		return pr.ProjectState(p.r)
	}

	tree := NewTree()
	for _, f := range d.fields {
		fv := rv.FieldByIndex(f.index)
		tag, val, ok, err := p.value(fv, path+"."+f.key)
		if err != nil {
			return nil, err
		}
		if !ok {
			emitFieldSkipped(context.Background(), d.name, f.key, fv.Kind().String())
			continue
		}
		tree.Set(Key{Name: f.key, Tag: tag}, val)
	}
	return tree, nil
}

// value projects a single field or element. ok is false when the value
// has no tree representation and must be skipped.
func (p *projector) value(fv reflect.Value, path string) (tag Tag, val Value, ok bool, err error) {
	for fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface {
		if fv.IsNil() {
			return TagNone, Value{}, false, nil
		}
		fv = fv.Elem()
	}

	if fv.Kind() == reflect.Struct {
		if d, found := p.r.byType[fv.Type()]; found {
			sub, err := p.object(d, fv, path)
			if err != nil {
				return TagNone, Value{}, false, err
			}
			return Tag(d.name), Branch(sub), true, nil
		}
	}

	if m, found := asTextMarshaler(fv); found {
		text, err := m.MarshalText()
		if err != nil {
			return TagNone, Value{}, false, fmt.Errorf("marshal text %s: %w", path, err)
		}
		return TagNone, Leaf(string(text)), true, nil
	}

	switch fv.Kind() {
	case reflect.Bool:
		return TagBool, Leaf(strconv.FormatBool(fv.Bool())), true, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return TagInt, Leaf(strconv.FormatInt(fv.Int(), 10)), true, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return TagInt, Leaf(strconv.FormatUint(fv.Uint(), 10)), true, nil

	case reflect.Float32, reflect.Float64:
		return TagFloat, Leaf(strconv.FormatFloat(fv.Float(), 'g', -1, fv.Type().Bits())), true, nil

	case reflect.String:
		return TagNone, Leaf(fv.String()), true, nil

	case reflect.Slice:
		if fv.IsNil() {
			return TagNone, Value{}, false, nil
		}
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			return TagNone, Leaf(base64.StdEncoding.EncodeToString(fv.Bytes())), true, nil
		}
		sub, err := p.list(fv, path)
		return TagArray, Branch(sub), err == nil, err

	case reflect.Array:
		sub, err := p.list(fv, path)
		return TagArray, Branch(sub), err == nil, err

	case reflect.Map:
		if fv.IsNil() {
			return TagNone, Value{}, false, nil
		}
		sub, err := p.dict(fv, path)
		return TagArray, Branch(sub), err == nil, err
	}

	return TagNone, Value{}, false, nil
}

// list projects slice and array elements under their index.
func (p *projector) list(fv reflect.Value, path string) (*Tree, error) {
	tree := NewTree()
	for i := 0; i < fv.Len(); i++ {
		key := strconv.Itoa(i)
		tag, val, ok, err := p.value(fv.Index(i), path+"["+key+"]")
		if err != nil {
			return nil, err
		}
		if ok {
			tree.Set(Key{Name: key, Tag: tag}, val)
		}
	}
	return tree, nil
}

// dict projects map entries in sorted key order.
func (p *projector) dict(fv reflect.Value, path string) (*Tree, error) {
	type pair struct {
		key string
		val reflect.Value
	}

	pairs := make([]pair, 0, fv.Len())
	iter := fv.MapRange()
	for iter.Next() {
		key, err := mapKeyString(iter.Key())
		if err != nil {
			return nil, fmt.Errorf("map key %s: %w", path, err)
		}
		pairs = append(pairs, pair{key: key, val: iter.Value()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	tree := NewTree()
	for _, pr := range pairs {
		tag, val, ok, err := p.value(pr.val, path+"["+pr.key+"]")
		if err != nil {
			return nil, err
		}
		if ok {
			tree.Set(Key{Name: pr.key, Tag: tag}, val)
		}
	}
	return tree, nil
}

func mapKeyString(k reflect.Value) (string, error) {
	if m, ok := asTextMarshaler(k); ok {
		text, err := m.MarshalText()
		return string(text), err
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	case reflect.Bool:
		return strconv.FormatBool(k.Bool()), nil
	}
	return fmt.Sprint(k.Interface()), nil
}

func asTextMarshaler(v reflect.Value) (encoding.TextMarshaler, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if m, ok := v.Interface().(encoding.TextMarshaler); ok {
		return m, true
	}
	if v.CanAddr() {
		if m, ok := v.Addr().Interface().(encoding.TextMarshaler); ok {
			return m, true
		}
	}
	return nil, false
}

func asProjectable(v reflect.Value) (Projectable, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if v.CanAddr() {
		if pr, ok := v.Addr().Interface().(Projectable); ok {
			return pr, true
		}
	}
	if pr, ok := v.Interface().(Projectable); ok {
		return pr, true
	}
	return nil, false
}
