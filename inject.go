package brine

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
)

var anyType = reflect.TypeFor[any]()

// Inject applies tree onto target, which must be a non-nil pointer to a
// registered struct.
//
// Every key in tree with a matching field is applied; fields with no key in
// tree keep their current values. Type names are checked against the
// registry before anything is touched, and the remaining work happens on a
// copy that replaces *target only on success, so a failed injection leaves
// target unchanged.
func (r *Registry) Inject(target any, tree *Tree) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return newConfigError(ErrInvalidTarget, fmt.Sprintf("%T", target), "")
	}

	elem := rv.Elem()
	d, ok := r.byType[elem.Type()]
	if !ok {
		return newConfigError(ErrUnknownType, elem.Type().String(), "")
	}
	if err := r.checkTypes(tree, d.name); err != nil {
		return err
	}

	work := reflect.New(elem.Type()).Elem()
	work.Set(elem)
	if err := r.injectObject(d, work, tree, d.name); err != nil {
		return err
	}
	elem.Set(work)
	return nil
}

func (r *Registry) injectObject(d *descriptor, v reflect.Value, tree *Tree, path string) error {
	for _, e := range tree.Entries() {
		i, ok := d.byKey[e.Key.Name]
		if !ok {
			continue
		}
		f := d.fields[i]
		if err := r.assign(v.FieldByIndex(f.index), e.Key.Tag, e.Value, path+"."+f.key); err != nil {
			return err
		}
	}
	return nil
}

// assign stores val in dst according to tag.
func (r *Registry) assign(dst reflect.Value, tag Tag, val Value, path string) error {
	switch {
	case tag == TagArray:
		if !val.IsBranch() {
			return newFieldError(ErrMismatch, path, fmt.Errorf("array tag on a leaf"))
		}
		return r.assignArray(dst, val.Tree(), path)

	case tag.IsScalar():
		if val.IsBranch() {
			return newFieldError(ErrMismatch, path, fmt.Errorf("%s tag on a container", tag))
		}
		return assignScalar(dst, tag, val.Text(), path)

	case tag == TagNone:
		if val.IsBranch() {
			return newFieldError(ErrMismatch, path, fmt.Errorf("untagged container"))
		}
		return assignText(dst, val.Text(), path)
	}

	if !val.IsBranch() {
		return newFieldError(ErrMismatch, path, fmt.Errorf("type %q on a leaf", tag))
	}
	d, err := r.lookup(string(tag), path)
	if err != nil {
		return err
	}
	inst, err := r.build(d, val.Tree())
	if err != nil {
		return err
	}
	return assignObject(dst, inst, path)
}

func assignObject(dst reflect.Value, inst any, path string) error {
	iv := reflect.ValueOf(inst)
	switch {
	case iv.Type().AssignableTo(dst.Type()):
		dst.Set(iv)
	case iv.Elem().Type().AssignableTo(dst.Type()):
		dst.Set(iv.Elem())
	default:
		return newFieldError(ErrMismatch, path, fmt.Errorf("cannot assign %s to %s", iv.Type(), dst.Type()))
	}
	return nil
}

func (r *Registry) assignArray(dst reflect.Value, tree *Tree, path string) error {
	switch dst.Kind() {
	case reflect.Pointer:
		ptr := reflect.New(dst.Type().Elem())
		if err := r.assignArray(ptr.Elem(), tree, path); err != nil {
			return err
		}
		dst.Set(ptr)

	case reflect.Slice:
		idx, span, err := slots(tree, path)
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(dst.Type(), span, span)
		for i, e := range tree.Entries() {
			if err := r.assign(out.Index(idx[i]), e.Key.Tag, e.Value, path+"["+e.Key.Name+"]"); err != nil {
				return err
			}
		}
		dst.Set(out)

	case reflect.Array:
		idx, span, err := slots(tree, path)
		if err != nil {
			return err
		}
		out := reflect.New(dst.Type()).Elem()
		if span > out.Len() {
			return newFieldError(ErrMismatch, path, fmt.Errorf("%d elements for %s", span, dst.Type()))
		}
		for i, e := range tree.Entries() {
			if err := r.assign(out.Index(idx[i]), e.Key.Tag, e.Value, path+"["+e.Key.Name+"]"); err != nil {
				return err
			}
		}
		dst.Set(out)

	case reflect.Map:
		out := reflect.MakeMapWithSize(dst.Type(), tree.Len())
		for _, e := range tree.Entries() {
			elemPath := path + "[" + e.Key.Name + "]"
			key := reflect.New(dst.Type().Key()).Elem()
			if err := assignText(key, e.Key.Name, elemPath); err != nil {
				return err
			}
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := r.assign(elem, e.Key.Tag, e.Value, elemPath); err != nil {
				return err
			}
			out.SetMapIndex(key, elem)
		}
		dst.Set(out)

	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return newFieldError(ErrMismatch, path, fmt.Errorf("array into %s", dst.Type()))
		}
		generic, err := r.genericArray(tree, path)
		if err != nil {
			return err
		}
		dst.Set(generic)

	default:
		return newFieldError(ErrMismatch, path, fmt.Errorf("array into %s", dst.Type()))
	}
	return nil
}

// genericArray builds []any for index-keyed trees and map[string]any otherwise.
func (r *Registry) genericArray(tree *Tree, path string) (reflect.Value, error) {
	if idx, span, ok := positions(tree); ok {
		if span > maxSpan {
			return reflect.Value{}, newFieldError(ErrMismatch, path, fmt.Errorf("index %d out of range", span-1))
		}
		out := reflect.MakeSlice(reflect.TypeFor[[]any](), span, span)
		for i, e := range tree.Entries() {
			if err := r.assign(out.Index(idx[i]), e.Key.Tag, e.Value, path+"["+e.Key.Name+"]"); err != nil {
				return reflect.Value{}, err
			}
		}
		return out, nil
	}

	out := reflect.MakeMapWithSize(reflect.TypeFor[map[string]any](), tree.Len())
	for _, e := range tree.Entries() {
		elem := reflect.New(anyType).Elem()
		if err := r.assign(elem, e.Key.Tag, e.Value, path+"["+e.Key.Name+"]"); err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(reflect.ValueOf(e.Key.Name), elem)
	}
	return out, nil
}

// maxSpan bounds the length a sparse index can ask for.
const maxSpan = 1 << 24

// positions returns the index named by each key when every key is a
// canonical non-negative integer in ascending order, plus the length they
// span. Gaps come from nil elements that projection skipped.
func positions(tree *Tree) ([]int, int, bool) {
	entries := tree.Entries()
	idx := make([]int, len(entries))
	last := -1
	for i, e := range entries {
		n, err := strconv.Atoi(e.Key.Name)
		if err != nil || n <= last || strconv.Itoa(n) != e.Key.Name {
			return nil, 0, false
		}
		idx[i] = n
		last = n
	}
	return idx, last + 1, true
}

// slots places entries of a list-shaped tree. Index keys keep their
// positions; any other keys are laid out in entry order.
func slots(tree *Tree, path string) ([]int, int, error) {
	idx, span, ok := positions(tree)
	if !ok {
		idx = make([]int, tree.Len())
		for i := range idx {
			idx[i] = i
		}
		return idx, tree.Len(), nil
	}
	if span > maxSpan {
		return nil, 0, newFieldError(ErrMismatch, path, fmt.Errorf("index %d out of range", span-1))
	}
	return idx, span, nil
}

// assignScalar coerces text to the primitive named by tag.
func assignScalar(dst reflect.Value, tag Tag, text, path string) error {
	if dst.Kind() == reflect.Pointer {
		ptr := reflect.New(dst.Type().Elem())
		if err := assignScalar(ptr.Elem(), tag, text, path); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}

	if dst.Kind() == reflect.Interface {
		if dst.NumMethod() != 0 {
			return newFieldError(ErrMismatch, path, fmt.Errorf("%s into %s", tag, dst.Type()))
		}
		v, err := scalarValue(tag, text)
		if err != nil {
			return newFieldError(ErrCoerce, path, err)
		}
		dst.Set(reflect.ValueOf(v))
		return nil
	}

	switch tag {
	case TagBool:
		if dst.Kind() != reflect.Bool {
			return newFieldError(ErrMismatch, path, fmt.Errorf("bool into %s", dst.Type()))
		}
	case TagInt:
		if !isInt(dst.Kind()) && !isUint(dst.Kind()) && !isFloat(dst.Kind()) {
			return newFieldError(ErrMismatch, path, fmt.Errorf("int into %s", dst.Type()))
		}
	case TagFloat:
		if !isFloat(dst.Kind()) {
			return newFieldError(ErrMismatch, path, fmt.Errorf("float into %s", dst.Type()))
		}
	}
	return setParsed(dst, text, path)
}

// scalarValue returns the natural Go value for a tagged leaf stored in an
// empty interface.
func scalarValue(tag Tag, text string) (any, error) {
	switch tag {
	case TagBool:
		return strconv.ParseBool(text)
	case TagInt:
		if n, err := strconv.ParseInt(text, 10, 0); err == nil {
			return int(n), nil
		}
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case TagFloat:
		return strconv.ParseFloat(text, 64)
	}
	return text, nil
}

// assignText stores an untagged leaf verbatim. Statically typed primitive
// fields parse the text, since Go cannot hold a string in them.
func assignText(dst reflect.Value, text, path string) error {
	if dst.Kind() == reflect.Pointer {
		ptr := reflect.New(dst.Type().Elem())
		if err := assignText(ptr.Elem(), text, path); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}

	if dst.CanAddr() {
		if u, ok := dst.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(text)); err != nil {
				return newFieldError(ErrCoerce, path, err)
			}
			return nil
		}
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(text)
		return nil

	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return newFieldError(ErrMismatch, path, fmt.Errorf("text into %s", dst.Type()))
		}
		dst.Set(reflect.ValueOf(text))
		return nil

	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.Uint8 {
			return newFieldError(ErrMismatch, path, fmt.Errorf("text into %s", dst.Type()))
		}
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return newFieldError(ErrCoerce, path, err)
		}
		dst.SetBytes(b)
		return nil
	}

	return setParsed(dst, text, path)
}

// setParsed parses text according to dst's kind.
func setParsed(dst reflect.Value, text, path string) error {
	kind := dst.Kind()
	switch {
	case kind == reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return newFieldError(ErrCoerce, path, err)
		}
		dst.SetBool(b)

	case isInt(kind):
		n, err := strconv.ParseInt(text, 10, dst.Type().Bits())
		if err != nil {
			return newFieldError(ErrCoerce, path, err)
		}
		dst.SetInt(n)

	case isUint(kind):
		n, err := strconv.ParseUint(text, 10, dst.Type().Bits())
		if err != nil {
			return newFieldError(ErrCoerce, path, err)
		}
		dst.SetUint(n)

	case isFloat(kind):
		f, err := strconv.ParseFloat(text, dst.Type().Bits())
		if err != nil {
			return newFieldError(ErrCoerce, path, err)
		}
		dst.SetFloat(f)

	default:
		return newFieldError(ErrMismatch, path, fmt.Errorf("leaf into %s", dst.Type()))
	}
	return nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
