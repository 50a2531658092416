package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// Context carries identifiers tied to the payload being decoded.
type Context struct {
	Asset string
	Path  string
}

func (c Context) label() string {
	if c.Path != "" {
		return c.Path
	}
	if c.Asset != "" {
		return c.Asset
	}
	return "<memory>"
}

// PreHook lets callers rename or normalise top-level keys before decoding.
type PreHook func(Context, map[string]json.RawMessage) (map[string]json.RawMessage, error)

// PostHook lets callers adjust or validate the hydrated value after decoding.
// A returned error is recorded as a diagnostic, not a hard failure.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder applies JSON text onto an existing value of type T.
type Decoder[T any] struct {
	preHooks      []PreHook
	postHooks     []PostHook[T]
	configureDec  []func(*json.Decoder)
	strictUnknown bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields reports unknown keys as errors instead of warnings.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strictUnknown = true
	}
}

// WithDecoderConfig allows callers to configure each json.Decoder directly.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.configureDec = append(d.configureDec, configure)
		}
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeInto applies data onto target in place. Recoverable problems are
// returned as diagnostics while the remaining fields are still applied; the
// error result is reserved for documents that cannot be decoded at all.
func (d *Decoder[T]) DecodeInto(ctx Context, data []byte, target *T) (Diagnostics, error) {
	if target == nil {
		return nil, fmt.Errorf("hydrate: target is nil for %s", ctx.label())
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("hydrate: parse %s: %w", ctx.label(), err)
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	rv := reflect.ValueOf(target).Elem()
	if rv.Kind() != reflect.Struct {
		return d.decodeWhole(ctx, trimmed, target)
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("hydrate: decode %s: expected object for %s", ctx.label(), rv.Type())
	}

	members, err := readObject(trimmed)
	if err != nil {
		return nil, fmt.Errorf("hydrate: decode %s: %w", ctx.label(), err)
	}
	fields := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		fields[m.key] = m.value
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, fields)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.label(), err)
		}
		if next != nil {
			fields = next
		}
	}

	index := indexFields(rv.Type())
	var diags Diagnostics
	for _, key := range documentOrder(members, fields) {
		path, ok := index.lookup(key)
		if !ok {
			severity := SeverityWarning
			if d.strictUnknown {
				severity = SeverityError
			}
			diags = append(diags, Diagnostic{Severity: severity, Path: key, Message: "unknown field"})
			continue
		}
		field, ok := fieldByIndex(rv, path)
		if !ok {
			diags = append(diags, Diagnostic{Severity: SeverityError, Path: key, Message: "field is not reachable through a nil embedded pointer"})
			continue
		}
		if err := d.decodeValue(fields[key], field.Addr().Interface()); err != nil {
			diags = append(diags, Diagnostic{Severity: SeverityError, Path: key, Message: describeDecodeError(err)})
		}
	}

	return d.runPostHooks(ctx, target, diags), nil
}

type member struct {
	key   string
	value json.RawMessage
}

// readObject splits a JSON object into its members in document order,
// duplicates included.
func readObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

// documentOrder lists the keys of fields by their last position in the
// document, so a later key wins when two keys fold onto the same field, as
// in encoding/json. Keys added by pre-hooks follow, sorted.
func documentOrder(members []member, fields map[string]json.RawMessage) []string {
	last := make(map[string]int, len(members))
	for i, m := range members {
		last[m.key] = i
	}
	keys := make([]string, 0, len(fields))
	for i, m := range members {
		if last[m.key] != i {
			continue
		}
		if _, ok := fields[m.key]; ok {
			keys = append(keys, m.key)
		}
	}
	var added []string
	for key := range fields {
		if _, seen := last[key]; !seen {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	return append(keys, added...)
}

func (d *Decoder[T]) decodeWhole(ctx Context, data []byte, target *T) (Diagnostics, error) {
	err := d.decodeValue(data, target)
	if err == nil {
		return d.runPostHooks(ctx, target, nil), nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		diags := Diagnostics{{Severity: SeverityError, Path: typeErr.Field, Message: describeDecodeError(err)}}
		return d.runPostHooks(ctx, target, diags), nil
	}
	return nil, fmt.Errorf("hydrate: decode %s: %w", ctx.label(), err)
}

func (d *Decoder[T]) decodeValue(data []byte, dest any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}

func (d *Decoder[T]) runPostHooks(ctx Context, target *T, diags Diagnostics) Diagnostics {
	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, target); err != nil {
			diags = append(diags, Diagnostic{Severity: SeverityError, Message: fmt.Sprintf("post-hook: %v", err)})
		}
	}
	return diags
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("cannot use %s value as %s", typeErr.Value, typeErr.Type)
	}
	return err.Error()
}

// Encode produces the canonical text for value: indented with indent,
// HTML escaping disabled, terminated by a newline.
func Encode(value any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	if err := encoder.Encode(value); err != nil {
		return nil, fmt.Errorf("hydrate: encode: %w", err)
	}
	return buf.Bytes(), nil
}

type fieldIndex struct {
	exact  map[string][]int
	folded map[string][]int
}

func (f fieldIndex) lookup(key string) ([]int, bool) {
	if path, ok := f.exact[key]; ok {
		return path, true
	}
	path, ok := f.folded[strings.ToLower(key)]
	return path, ok
}

// indexFields maps JSON names to struct field paths. Shallower fields win over
// fields promoted from embedded structs, matching encoding/json.
func indexFields(typ reflect.Type) fieldIndex {
	index := fieldIndex{exact: map[string][]int{}, folded: map[string][]int{}}

	type pending struct {
		typ  reflect.Type
		path []int
	}
	queue := []pending{{typ: typ}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var embedded []pending
		for i := 0; i < current.typ.NumField(); i++ {
			field := current.typ.Field(i)
			tag := field.Tag.Get("json")
			if tag == "-" {
				continue
			}
			name, _, _ := strings.Cut(tag, ",")
			path := append(append([]int(nil), current.path...), i)

			if field.Anonymous && name == "" {
				ft := field.Type
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					embedded = append(embedded, pending{typ: ft, path: path})
					continue
				}
			}
			if !field.IsExported() {
				continue
			}
			if name == "" {
				name = field.Name
			}
			if _, taken := index.exact[name]; !taken {
				index.exact[name] = path
			}
			folded := strings.ToLower(name)
			if _, taken := index.folded[folded]; !taken {
				index.folded[folded] = path
			}
		}
		queue = append(queue, embedded...)
	}
	return index
}

// fieldByIndex walks path, allocating nil embedded pointers along the way.
func fieldByIndex(v reflect.Value, path []int) (reflect.Value, bool) {
	for i, idx := range path {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	if !v.CanSet() {
		return reflect.Value{}, false
	}
	return v, true
}
