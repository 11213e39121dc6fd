package construct

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

type Properties map[string]any

func (p Properties) Clone() Properties {
	if p == nil {
		return make(Properties)
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue returns a copy of v that shares no lists or maps with it. Typed slices and maps (eg.
// []PropertyRef or map[string]string) are copied into a value of the same type.
func CloneValue(v any) any {
	if v == nil {
		return nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Map:
		return cloneReflect(reflect.ValueOf(v)).Interface()
	}
	return v
}

func cloneReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneReflect(rv.Index(i)))
		}
		return out

	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out

	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(cloneReflect(rv.Elem()))
		return out
	}
	return rv
}

// SetProperty sets a top-level property, returning the resource for chaining in declarations.
func (r *Resource) SetProperty(name string, value any) *Resource {
	if r.Properties == nil {
		r.Properties = make(Properties)
	}
	r.Properties[name] = value
	return r
}

func (r *Resource) GetProperty(name string) (any, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// ReplaceRefs returns a copy of v in which every PropertyRef has been replaced by the result of fn.
func ReplaceRefs(v any, fn func(ref PropertyRef) (any, error)) (any, error) {
	return walkValue(v, fn)
}

func walkValue(v any, fn func(ref PropertyRef) (any, error)) (any, error) {
	switch v := v.(type) {
	case PropertyRef:
		return fn(v)

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			nv, err := walkValue(e, fn)
			if err != nil {
				return nil, &PropertyTypeError{Path: []string{fmt.Sprintf("[%d]", i)}, Cause: err}
			}
			out[i] = nv
		}
		return out, nil

	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(v))
		for _, k := range keys {
			nv, err := walkValue(v[k], fn)
			if err != nil {
				return nil, &PropertyTypeError{Path: []string{"." + k}, Cause: err}
			}
			out[k] = nv
		}
		return out, nil
	}
	if v == nil {
		return nil, nil
	}

	// Typed lists and maps that can hold references (eg. []PropertyRef) are walked like their
	// generic counterparts. Since a reference may be replaced by a value of any type, the result is
	// a []any or map[string]any.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if !mayHoldRefs(rv.Type().Elem()) {
			break
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return walkValue(items, fn)

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || !mayHoldRefs(rv.Type().Elem()) {
			break
		}
		items := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			items[iter.Key().String()] = iter.Value().Interface()
		}
		return walkValue(items, fn)
	}
	return CloneValue(v), nil
}

var propertyRefType = reflect.TypeOf(PropertyRef{})

// mayHoldRefs reports whether a value of type t can contain a PropertyRef.
func mayHoldRefs(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Slice, reflect.Array, reflect.Map:
		return mayHoldRefs(t.Elem())
	}
	return t == propertyRefType
}

// PropertyTypeError reports a property value that does not have the shape its kind requires.
type PropertyTypeError struct {
	Path  []string
	Cause error
}

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("error in path %s: %v",
		strings.Join(e.Path, ""),
		e.Cause,
	)
}

func (e *PropertyTypeError) Unwrap() error {
	return e.Cause
}
