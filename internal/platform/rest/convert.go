package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the wire format for dates in responses.
const DateTimeLayout = "2006-01-02T15:04:05.000-0700"

// dateLayouts are the accepted input formats, most specific first.
var dateLayouts = []string{
	DateTimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses any of the accepted date layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognised date", s)
}

// String accepts strings and renders scalars into their text form.
func String(_ context.Context, raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", raw)
}

// Bool accepts booleans and their string forms.
func Bool(_ context.Context, raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", v)
		}
		return b, nil
	}
	return false, fmt.Errorf("cannot convert %T to boolean", raw)
}

// Int accepts integral numbers and numeric strings.
func Int(_ context.Context, raw interface{}) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("%s is not an integer", v)
		}
		return n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot convert %T to integer", raw)
}

// Date converts strings in any accepted layout to a time.
func Date(_ context.Context, raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, nil
		}
		return *v, nil
	case string:
		return ParseDate(v)
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to date", raw)
}

// OptionalDate is Date for properties where absence is meaningful.
func OptionalDate(ctx context.Context, raw interface{}) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := Date(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Enum converts a string to one of the allowed values, ignoring case and
// storing the canonical spelling.
func Enum(values ...string) Conversion[string] {
	return func(ctx context.Context, raw interface{}) (string, error) {
		s, err := String(ctx, raw)
		if err != nil {
			return "", err
		}
		for _, v := range values {
			if strings.EqualFold(v, strings.TrimSpace(s)) {
				return v, nil
			}
		}
		return "", fmt.Errorf("%q is not one of %s", s, strings.Join(values, ", "))
	}
}

// StringMap converts a JSON object of scalars.
func StringMap(ctx context.Context, raw interface{}) (map[string]string, error) {
	out := make(map[string]string)
	switch v := raw.(type) {
	case nil:
		return out, nil
	case map[string]string:
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	case *SimpleObject:
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			s, err := String(ctx, val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = s
		}
		return out, nil
	case map[string]interface{}:
		for k, val := range v {
			s, err := String(ctx, val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %T to an object", raw)
}

// StringList converts a JSON array of strings or a comma-separated string.
func StringList(ctx context.Context, raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, err := String(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %T to a list", raw)
}

// ReferenceUUID extracts the uuid from a reference given either as a bare
// string or as an object carrying a "uuid" key.
func ReferenceUUID(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("empty reference")
		}
		return strings.TrimSpace(v), nil
	case *SimpleObject:
		if id, ok := v.Get("uuid"); ok {
			return ReferenceUUID(id)
		}
	case map[string]interface{}:
		if id, ok := v["uuid"]; ok {
			return ReferenceUUID(id)
		}
	}
	return "", fmt.Errorf("cannot use %T as a reference", raw)
}

// Reference resolves a uuid reference into an entity through lookup.
func Reference[R any](lookup func(ctx context.Context, uuid string) (R, error)) Conversion[R] {
	return func(ctx context.Context, raw interface{}) (R, error) {
		var zero R
		if raw == nil {
			return zero, nil
		}
		if r, ok := raw.(R); ok {
			return r, nil
		}
		id, err := ReferenceUUID(raw)
		if err != nil {
			return zero, err
		}
		r, err := lookup(ctx, id)
		if err != nil {
			return zero, fmt.Errorf("resolve reference %s: %w", id, err)
		}
		return r, nil
	}
}

// ReferenceList resolves an array of references.
func ReferenceList[R any](lookup func(ctx context.Context, uuid string) (R, error)) Conversion[[]R] {
	one := Reference(lookup)
	return func(ctx context.Context, raw interface{}) ([]R, error) {
		if raw == nil {
			return nil, nil
		}
		if rs, ok := raw.([]R); ok {
			return append([]R(nil), rs...), nil
		}
		items, ok := raw.([]interface{})
		if !ok {
			items = []interface{}{raw}
		}
		out := make([]R, 0, len(items))
		for _, item := range items {
			r, err := one(ctx, item)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}
}
