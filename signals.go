package brine

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for brine events.
var (
	SignalTypeRegistered      = capitan.NewSignal("brine.type.registered", "Type added to a registry")
	SignalSerializeStart      = capitan.NewSignal("brine.serialize.start", "Serialize operation beginning")
	SignalSerializeComplete   = capitan.NewSignal("brine.serialize.complete", "Serialize operation finished")
	SignalDeserializeStart    = capitan.NewSignal("brine.deserialize.start", "Deserialize operation beginning")
	SignalDeserializeComplete = capitan.NewSignal("brine.deserialize.complete", "Deserialize operation finished")
	SignalFieldSkipped        = capitan.NewSignal("brine.field.skipped", "Field omitted from projection")
)

// Keys for typed event data.
var (
	KeyContentType = capitan.NewStringKey("content_type")
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyField       = capitan.NewStringKey("field")
	KeyKind        = capitan.NewStringKey("kind")
	KeySize        = capitan.NewIntKey("size")
	KeyFieldCount  = capitan.NewIntKey("field_count")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

// emitTypeRegistered emits an event when a type is registered.
func emitTypeRegistered(ctx context.Context, typeName string, fields int) {
	capitan.Emit(ctx, SignalTypeRegistered,
		KeyTypeName.Field(typeName),
		KeyFieldCount.Field(fields),
	)
}

// emitFieldSkipped emits an event when projection omits a field.
func emitFieldSkipped(ctx context.Context, typeName, field, kind string) {
	capitan.Emit(ctx, SignalFieldSkipped,
		KeyTypeName.Field(typeName),
		KeyField.Field(field),
		KeyKind.Field(kind),
	)
}

// emitSerializeStart emits an event when serialize begins.
func emitSerializeStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalSerializeStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitSerializeComplete emits an event when serialize finishes.
func emitSerializeComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSerializeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalSerializeComplete, fields...)
	}
}

// emitDeserializeStart emits an event when deserialize begins.
func emitDeserializeStart(ctx context.Context, contentType, typeName string, size int) {
	capitan.Emit(ctx, SignalDeserializeStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
	)
}

// emitDeserializeComplete emits an event when deserialize finishes.
func emitDeserializeComplete(ctx context.Context, contentType, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDeserializeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDeserializeComplete, fields...)
	}
}
