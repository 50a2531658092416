// Package merge fills the zero fields of asset payloads from a defaults value.
package merge

import "reflect"

// Fill returns a detached copy of value with every zero field populated from
// defaults. Explicit values always win; maps are unioned key by key and a set
// pointer to a scalar counts as explicit even when it points at zero.
func Fill[T any](value, defaults T) T {
	var zero T
	filled := fill(reflect.ValueOf(value), reflect.ValueOf(defaults))
	if !filled.IsValid() {
		return zero
	}
	return filled.Interface().(T)
}

// FillInto populates zero fields of *target from defaults in place. Struct
// targets only have their exported fields written, so unexported state is
// kept.
func FillInto[T any](target *T, defaults T) {
	if target == nil {
		return
	}
	dst := reflect.ValueOf(target).Elem()
	if dst.Kind() != reflect.Struct {
		*target = Fill(*target, defaults)
		return
	}
	src := reflect.ValueOf(defaults)
	for i := 0; i < dst.NumField(); i++ {
		field := dst.Field(i)
		if field.CanSet() {
			field.Set(fill(field, src.Field(i)))
		}
	}
}

func fill(value, defaults reflect.Value) reflect.Value {
	if !value.IsValid() {
		return detach(defaults)
	}
	if defaults.IsValid() && defaults.Type() != value.Type() {
		defaults = reflect.Value{}
	}

	switch value.Kind() {
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return detach(defaults)
		}
		if !composite(value.Elem().Kind()) {
			return detach(value)
		}
		var inner reflect.Value
		if defaults.IsValid() && !defaults.IsNil() {
			inner = defaults.Elem()
		}
		filled := fill(value.Elem(), inner)
		if value.Kind() == reflect.Interface {
			return filled.Convert(value.Type())
		}
		out := reflect.New(value.Type().Elem())
		out.Elem().Set(filled)
		return out
	case reflect.Struct:
		out := reflect.New(value.Type()).Elem()
		for i := 0; i < value.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			var fallback reflect.Value
			if defaults.IsValid() {
				fallback = defaults.Field(i)
			}
			field.Set(fill(value.Field(i), fallback))
		}
		return out
	case reflect.Map:
		if value.IsNil() {
			return detach(defaults)
		}
		out := reflect.MakeMapWithSize(value.Type(), value.Len())
		if defaults.IsValid() && !defaults.IsNil() {
			iter := defaults.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), detach(iter.Value()))
			}
		}
		iter := value.MapRange()
		for iter.Next() {
			if existing := out.MapIndex(iter.Key()); existing.IsValid() {
				out.SetMapIndex(iter.Key(), fill(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), detach(iter.Value()))
		}
		return out
	case reflect.Slice:
		if value.IsNil() {
			return detach(defaults)
		}
		return detach(value)
	case reflect.Array:
		out := reflect.New(value.Type()).Elem()
		for i := 0; i < value.Len(); i++ {
			var fallback reflect.Value
			if defaults.IsValid() {
				fallback = defaults.Index(i)
			}
			out.Index(i).Set(fill(value.Index(i), fallback))
		}
		return out
	default:
		if value.IsZero() && defaults.IsValid() {
			return detach(defaults)
		}
		return detach(value)
	}
}

func composite(kind reflect.Kind) bool {
	switch kind {
	case reflect.Struct, reflect.Map, reflect.Array, reflect.Pointer, reflect.Interface:
		return true
	default:
		return false
	}
}

// detach deep-copies v so the result shares no maps, slices or pointers with
// it. Unexported struct fields are left at their zero value.
func detach(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(detach(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		return detach(v.Elem()).Convert(v.Type())
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(detach(v.Field(i)))
			}
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), detach(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(detach(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(detach(v.Index(i)))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
