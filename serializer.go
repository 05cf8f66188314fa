package brine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Serializer routes objects through the registry and a configured codec.
//
// A Serializer is safe for concurrent use once its registry is frozen.
type Serializer struct {
	registry     *Registry
	codecs       map[string]Codec
	snapshotters map[string]Snapshotter
}

// Option configures a Serializer.
type Option func(*Serializer) error

// WithCodec adds a tree codec, keyed by its content type.
func WithCodec(c Codec) Option {
	return func(s *Serializer) error {
		if c == nil {
			return fmt.Errorf("nil codec")
		}
		ct := c.ContentType()
		if s.has(ct) {
			return fmt.Errorf("content type %q configured twice", ct)
		}
		s.codecs[ct] = c
		return nil
	}
}

// WithSnapshotter adds a native snapshotter, keyed by its content type.
func WithSnapshotter(sn Snapshotter) Option {
	return func(s *Serializer) error {
		if sn == nil {
			return fmt.Errorf("nil snapshotter")
		}
		ct := sn.ContentType()
		if s.has(ct) {
			return fmt.Errorf("content type %q configured twice", ct)
		}
		s.snapshotters[ct] = sn
		return nil
	}
}

// NewSerializer creates a Serializer over r.
func NewSerializer(r *Registry, opts ...Option) (*Serializer, error) {
	if r == nil {
		return nil, fmt.Errorf("brine: nil registry")
	}
	s := &Serializer{
		registry:     r,
		codecs:       make(map[string]Codec),
		snapshotters: make(map[string]Snapshotter),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("brine: %w", err)
		}
	}
	return s, nil
}

func (s *Serializer) has(contentType string) bool {
	_, c := s.codecs[contentType]
	_, sn := s.snapshotters[contentType]
	return c || sn
}

// Registry returns the registry the serializer resolves types against.
func (s *Serializer) Registry() *Registry {
	return s.registry
}

// ContentTypes returns every configured content type in sorted order.
func (s *Serializer) ContentTypes() []string {
	out := make([]string, 0, len(s.codecs)+len(s.snapshotters))
	for ct := range s.codecs {
		out = append(out, ct)
	}
	for ct := range s.snapshotters {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

// Serialize encodes obj, which must be a registered type, in contentType.
func (s *Serializer) Serialize(ctx context.Context, obj any, contentType string) ([]byte, error) {
	typeName, ok := s.registry.TypeNameOf(obj)
	if !ok {
		return nil, newConfigError(ErrUnknownType, fmt.Sprintf("%T", obj), "")
	}

	start := time.Now()
	emitSerializeStart(ctx, contentType, typeName)

	var retErr error
	var retData []byte
	defer func() {
		emitSerializeComplete(ctx, contentType, typeName, len(retData), time.Since(start), retErr)
	}()

	if sn, ok := s.snapshotters[contentType]; ok {
		data, err := sn.Snapshot(obj)
		if err != nil {
			retErr = newCodecError(ErrEncode, contentType, err)
			return nil, retErr
		}
		retData = data
		return retData, nil
	}

	c, ok := s.codecs[contentType]
	if !ok {
		retErr = fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
		return nil, retErr
	}

	tree, err := s.registry.Project(obj)
	if err != nil {
		retErr = err
		return nil, retErr
	}

	data, err := c.Encode(Document{TypeName: typeName, State: tree})
	if err != nil {
		retErr = newCodecError(ErrEncode, contentType, err)
		return nil, retErr
	}
	retData = data
	return retData, nil
}

// Deserialize decodes data in contentType and rebuilds an instance of
// typeName. The result is a pointer to the registered struct.
//
// On any error the result is nil; no partially built object escapes.
func (s *Serializer) Deserialize(ctx context.Context, data []byte, typeName, contentType string) (any, error) {
	start := time.Now()
	emitDeserializeStart(ctx, contentType, typeName, len(data))

	var retErr error
	defer func() {
		emitDeserializeComplete(ctx, contentType, typeName, time.Since(start), retErr)
	}()

	if sn, ok := s.snapshotters[contentType]; ok {
		inst, err := s.registry.New(typeName)
		if err != nil {
			retErr = err
			return nil, retErr
		}
		if err := sn.Restore(data, inst); err != nil {
			retErr = newCodecError(ErrDecode, contentType, err)
			return nil, retErr
		}
		return inst, nil
	}

	c, ok := s.codecs[contentType]
	if !ok {
		retErr = fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
		return nil, retErr
	}

	doc, err := c.Decode(data)
	if err != nil {
		retErr = newCodecError(ErrDecode, contentType, err)
		return nil, retErr
	}
	if doc.TypeName != typeName {
		retErr = newCodecError(ErrDecode, contentType,
			fmt.Errorf("%w: document holds %q, want %q", ErrTypeMismatch, doc.TypeName, typeName))
		return nil, retErr
	}

	obj, err := s.registry.Hydrate(typeName, doc.State)
	if err != nil {
		// Registry problems stay configuration errors; anything the payload
		// itself got wrong is a decode error.
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			retErr = err
		} else {
			retErr = newCodecError(ErrDecode, contentType, err)
		}
		return nil, retErr
	}
	return obj, nil
}

// DeserializeAs decodes data into a new *T. T must be registered.
func DeserializeAs[T any](ctx context.Context, s *Serializer, data []byte, contentType string) (*T, error) {
	var zero T
	typeName, ok := s.registry.TypeNameOf(zero)
	if !ok {
		return nil, newConfigError(ErrUnknownType, fmt.Sprintf("%T", zero), "")
	}
	obj, err := s.Deserialize(ctx, data, typeName, contentType)
	if err != nil {
		return nil, err
	}
	out, ok := obj.(*T)
	if !ok {
		return nil, newConfigError(ErrInvalidTarget, typeName, "")
	}
	return out, nil
}

// Fingerprint returns the digest of obj's projected state.
// Objects with equal state have equal fingerprints regardless of format.
func (s *Serializer) Fingerprint(obj any) (string, error) {
	tree, err := s.registry.Project(obj)
	if err != nil {
		return "", err
	}
	return tree.Fingerprint(), nil
}
