package rest

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// maxConvertDepth bounds recursive expansion of nested delegates.
const maxConvertDepth = 16

type depthKey struct{}

func enter(ctx context.Context) (context.Context, error) {
	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= maxConvertDepth {
		return ctx, fmt.Errorf("representation nested deeper than %d levels", maxConvertDepth)
	}
	return context.WithValue(ctx, depthKey{}, depth+1), nil
}

// Convert turns a property value into its wire form. Values of a registered
// delegate type are expanded by their resource with rep; slices become
// arrays of converted items; times use DateTimeLayout.
func Convert(ctx context.Context, reg *Registry, v interface{}, rep Representation) (interface{}, error) {
	if isNil(v) {
		if v != nil && reflect.TypeOf(v).Kind() == reflect.Slice {
			return []interface{}{}, nil
		}
		return nil, nil
	}
	switch t := v.(type) {
	case *SimpleObject, string, bool, int, int64, float64:
		return t, nil
	case time.Time:
		if t.IsZero() {
			return nil, nil
		}
		return t.Format(DateTimeLayout), nil
	case *time.Time:
		return Convert(ctx, reg, *t, rep)
	case []*SimpleObject:
		return t, nil
	}
	if reg != nil {
		if res, ok := reg.ForValue(v); ok {
			return res.Represent(ctx, v, rep)
		}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, nil
		}
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := Convert(ctx, reg, rv.Index(i).Interface(), rep)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = item
		}
		return out, nil
	}
	return v, nil
}
