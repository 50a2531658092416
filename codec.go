package jsonasset

import (
	"encoding/json"

	"github.com/goliatone/go-jsonasset/internal/hydrate"
)

// Source identifies the asset and path a payload is decoded from.
type Source = hydrate.Context

// Diagnostic is a single recoverable problem reported by a Codec.
type Diagnostic = hydrate.Diagnostic

// Diagnostics groups the problems reported by one decode.
type Diagnostics = hydrate.Diagnostics

// Severity classifies a Diagnostic.
type Severity = hydrate.Severity

const (
	SeverityWarning = hydrate.SeverityWarning
	SeverityError   = hydrate.SeverityError
)

// DefaultIndent is the indent used by the canonical encoding.
const DefaultIndent = "  "

// Codec converts between a payload and its canonical text. Decode mutates
// value in place; recoverable problems belong in the diagnostics and only
// text that cannot be applied at all is reported as an error.
type Codec[T any] interface {
	Encode(value *T) ([]byte, error)
	Decode(src Source, data []byte, value *T) (Diagnostics, error)
}

// CodecOption configures a JSONCodec.
type CodecOption[T any] func(*JSONCodec[T])

// CodecIndent overrides the indent of the canonical encoding.
func CodecIndent[T any](indent string) CodecOption[T] {
	return func(c *JSONCodec[T]) {
		c.indent = indent
	}
}

func decoderOptions[T any](opts ...hydrate.DecoderOption[T]) CodecOption[T] {
	return func(c *JSONCodec[T]) {
		c.decoderOpts = append(c.decoderOpts, opts...)
	}
}

// CodecDisallowUnknownFields reports unknown keys as errors.
func CodecDisallowUnknownFields[T any]() CodecOption[T] {
	return decoderOptions(hydrate.WithDisallowUnknownFields[T]())
}

// CodecUseNumber decodes untyped numbers as json.Number.
func CodecUseNumber[T any]() CodecOption[T] {
	return decoderOptions(hydrate.WithUseNumber[T]())
}

// CodecPreHook rewrites the top-level keys of an object document before
// they are applied. An error aborts the decode.
func CodecPreHook[T any](hook func(Source, map[string]json.RawMessage) (map[string]json.RawMessage, error)) CodecOption[T] {
	return decoderOptions(hydrate.WithPreHook[T](hook))
}

// CodecPostHook inspects the decoded value. An error is reported as a
// diagnostic.
func CodecPostHook[T any](hook func(Source, *T) error) CodecOption[T] {
	return decoderOptions(hydrate.WithPostHook[T](hook))
}

// JSONCodec is the default Codec: indented JSON without HTML escaping,
// decoded field by field into the existing value.
type JSONCodec[T any] struct {
	indent      string
	decoderOpts []hydrate.DecoderOption[T]
	decoder     *hydrate.Decoder[T]
}

// NewJSONCodec constructs a JSONCodec.
func NewJSONCodec[T any](opts ...CodecOption[T]) *JSONCodec[T] {
	c := &JSONCodec[T]{indent: DefaultIndent}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.decoder = hydrate.NewDecoder(c.decoderOpts...)
	return c
}

// Encode returns the canonical text for value.
func (c *JSONCodec[T]) Encode(value *T) ([]byte, error) {
	if value == nil {
		return nil, ErrNilValue
	}
	return hydrate.Encode(value, c.indent)
}

// Decode applies data onto value.
func (c *JSONCodec[T]) Decode(src Source, data []byte, value *T) (Diagnostics, error) {
	return c.decoder.DecodeInto(src, data, value)
}
