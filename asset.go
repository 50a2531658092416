package jsonasset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-jsonasset/internal/merge"
	"github.com/goliatone/go-jsonasset/pkg/activity"
	"github.com/goliatone/go-jsonasset/pkg/rules"
	"github.com/goliatone/go-jsonasset/pkg/store"
)

// Resetter is implemented by payloads that need a clean baseline before
// text is applied to them.
type Resetter interface {
	Reset()
}

// Sanitizer is implemented by payloads that repair their own invariants
// after every decode attempt.
type Sanitizer interface {
	Sanitize()
}

// Host resolves assets to their tracked paths and re-imports paths after
// they are written.
type Host interface {
	Locate(obj any) (string, bool)
	Refresh(ctx context.Context, path string)
}

// Asset wraps a payload persisted as one JSON document. An asset is not safe
// for concurrent use.
type Asset[T any] struct {
	Value *T

	rt            *assetRuntime[T]
	name          string
	lastKnownText []byte
}

// assetRuntime holds the collaborators shared by assets of one library.
type assetRuntime[T any] struct {
	host      Host
	store     store.Store
	codec     Codec[T]
	logger    Logger
	emitter   *activity.Emitter
	evaluator rules.Evaluator
	cfg       assetConfig
}

func newRuntime[T any](host Host, st store.Store, cfg assetConfig) *assetRuntime[T] {
	if st == nil {
		st = store.NewFileStore()
	}
	rt := &assetRuntime[T]{
		host:    host,
		store:   st,
		codec:   resolveCodec[T](cfg),
		logger:  cfg.loggerOrDefault(),
		emitter: cfg.emitter(),
		cfg:     cfg,
	}
	if len(cfg.rules) > 0 {
		rt.evaluator = cfg.evaluator
		if rt.evaluator == nil {
			evaluator, err := rules.NewEvaluator(cfg.engine,
				rules.WithProgramCache(rules.NewMemoryCache()),
				rules.WithFunctions(cfg.functions),
			)
			if err != nil {
				rt.logger.Error("asset rules disabled", "engine", cfg.engine, "error", err)
			}
			rt.evaluator = evaluator
		}
	}
	return rt
}

func resolveCodec[T any](cfg assetConfig) Codec[T] {
	if codec, ok := cfg.codec.(Codec[T]); ok {
		return codec
	}
	indent := cfg.indent
	if indent == "" {
		indent = DefaultIndent
	}
	opts := []CodecOption[T]{CodecIndent[T](indent)}
	if cfg.strictUnknown {
		opts = append(opts, CodecDisallowUnknownFields[T]())
	}
	return NewJSONCodec(opts...)
}

// NewAsset wraps value. host may be nil, in which case the asset is transient
// and only explicit paths can be used; a nil store selects a FileStore.
func NewAsset[T any](value *T, host Host, st store.Store, opts ...Option) *Asset[T] {
	cfg := applyOptions(opts)
	return newAsset(value, newRuntime[T](host, st, cfg))
}

func newAsset[T any](value *T, rt *assetRuntime[T]) *Asset[T] {
	if value == nil {
		value = new(T)
	}
	return &Asset[T]{Value: value, rt: rt, name: rt.cfg.name}
}

// Location resolves the asset's path through its host.
func (a *Asset[T]) Location() (string, bool) {
	if a == nil || a.rt == nil || a.rt.host == nil {
		return "", false
	}
	p, ok := a.rt.host.Locate(a)
	if !ok || p == "" {
		return "", false
	}
	return p, true
}

// Name returns the display name used in logs and events.
func (a *Asset[T]) Name() string {
	if a.name != "" {
		return a.name
	}
	if p, ok := a.Location(); ok {
		base := path.Base(p)
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return typeName[T]()
}

func typeName[T any]() string {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Name() != "" {
		return typ.Name()
	}
	return typ.String()
}

func (a *Asset[T]) ensureValue() {
	if a.Value == nil {
		a.Value = new(T)
	}
}

// reset clears the payload through Resetter. A panicking Reset is returned
// as an error.
func (a *Asset[T]) reset() (err error) {
	r, ok := any(a.Value).(Resetter)
	if !ok {
		return nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("jsonasset: reset: %w", panicError(recovered))
		}
	}()
	r.Reset()
	return nil
}

func (a *Asset[T]) encode() (data []byte, err error) {
	if a.Value == nil {
		return nil, ErrNilValue
	}
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, panicError(r)
		}
	}()
	return a.rt.codec.Encode(a.Value)
}

// tryDeserialize resets the payload, caches text and applies it in place.
// Sanitize runs exactly once whatever the outcome. Diagnostics are logged
// but only a codec error or panic makes the result non-nil.
func (a *Asset[T]) tryDeserialize(ctx context.Context, text []byte, source string) (err error) {
	a.ensureValue()
	a.lastKnownText = bytes.Clone(text)

	defer a.sanitize(ctx, source)
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
		if err != nil {
			a.rt.logger.Error("asset decode failed",
				"asset", a.Name(),
				"path", source,
				"error", err,
			)
			a.emit(ctx, activity.BuildAssetDecodeFailedEvent(a.eventInput(source, "", err)))
			err = &DecodeError{Asset: a.Name(), Path: source, Err: err}
		}
	}()

	if err := a.reset(); err != nil {
		return err
	}
	diags, err := a.rt.codec.Decode(Source{Asset: a.Name(), Path: source}, text, a.Value)
	if err != nil {
		return err
	}
	switch {
	case diags.HasErrors():
		a.rt.logger.Error("asset decoded with errors",
			"asset", a.Name(),
			"path", source,
			"diagnostics", diags.String(),
		)
	case len(diags) > 0:
		a.rt.logger.Warn("asset decoded with warnings",
			"asset", a.Name(),
			"path", source,
			"diagnostics", diags.String(),
		)
	}
	return nil
}

// sanitize fills defaults, runs the payload's own Sanitize and then the
// configured rules.
func (a *Asset[T]) sanitize(ctx context.Context, source string) {
	defer func() {
		if r := recover(); r != nil {
			a.rt.logger.Error("asset sanitize failed",
				"asset", a.Name(),
				"path", source,
				"error", panicError(r),
			)
		}
	}()
	a.ensureValue()
	if defaults, ok := a.rt.cfg.defaults.(T); ok {
		merge.FillInto(a.Value, defaults)
	}
	if s, ok := any(a.Value).(Sanitizer); ok {
		s.Sanitize()
	}
	a.applyRules(ctx, source)
}

func (a *Asset[T]) applyRules(_ context.Context, source string) {
	if len(a.rt.cfg.rules) == 0 || a.rt.evaluator == nil {
		return
	}
	snapshot, err := toSnapshot(a.Value)
	if err != nil {
		a.rt.logger.Warn("asset rules skipped",
			"asset", a.Name(),
			"path", source,
			"error", err,
		)
		return
	}
	ruleCtx := rules.RuleContext{Asset: a.Name(), Path: source, Type: typeName[T]()}
	result, err := rules.Apply(a.rt.evaluator, ruleCtx, a.rt.cfg.rules, snapshot, a.rt.cfg.evaluatorLogger)
	if err != nil {
		a.rt.logger.Warn("asset rule failed",
			"asset", a.Name(),
			"path", source,
			"error", err,
		)
	}
	if err := fromSnapshot(result, a.Value); err != nil {
		a.rt.logger.Error("asset rule result rejected",
			"asset", a.Name(),
			"path", source,
			"error", err,
		)
	}
}

// toSnapshot renders value as a JSON object. Integral numbers become int64
// (or uint64) so values beyond 2^53 survive the round trip.
func toSnapshot(value any) (map[string]any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("jsonasset: snapshot: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var snapshot map[string]any
	if err := decoder.Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("jsonasset: snapshot: payload is not an object")
	}
	if snapshot == nil {
		return map[string]any{}, nil
	}
	return exactNumbers(snapshot).(map[string]any), nil
}

func exactNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = exactNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = exactNumbers(item)
		}
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return value
	}
}

func fromSnapshot(snapshot map[string]any, target any) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("jsonasset: snapshot: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("jsonasset: snapshot: %w", err)
	}
	return nil
}

func (a *Asset[T]) eventInput(p, diagnostics string, err error) activity.AssetEventInput {
	input := activity.AssetEventInput{
		Name:        a.Name(),
		Path:        p,
		Diagnostics: diagnostics,
		Err:         err,
	}
	if p != "" {
		input.ObjectID = assetID(p)
	}
	return input
}

func (a *Asset[T]) emit(ctx context.Context, event activity.Event) {
	emitEvent(ctx, a.rt.emitter, a.rt.logger, event)
}

func emitEvent(ctx context.Context, emitter *activity.Emitter, logger Logger, event activity.Event) {
	if !emitter.Enabled() {
		return
	}
	if err := emitter.Emit(ctx, event); err != nil {
		logger.Warn("asset activity hook failed",
			"verb", event.Verb,
			"object", event.ObjectID,
			"error", err,
		)
	}
}
