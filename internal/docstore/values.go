package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// AsInt64 converts the numeric shapes produced by the backends (Go ints,
// BSON int32/int64, JSON float64 and json.Number) to int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case float32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// AsTime accepts time.Time, RFC 3339 strings and unix milliseconds.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	if ms, ok := AsInt64(v); ok {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// AsSlice converts array-shaped values to []any.
func AsSlice(v any) []any {
	switch s := v.(type) {
	case nil:
		return nil
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func sameValue(a, b any) bool {
	if !isString(a) && !isString(b) {
		if ai, ok := AsInt64(a); ok {
			if bi, ok := AsInt64(b); ok {
				return ai == bi
			}
		}
	}
	return reflect.DeepEqual(a, b)
}

func containsValue(list []any, v any) bool {
	for _, x := range list {
		if sameValue(x, v) {
			return true
		}
	}
	return false
}

// compareValues orders two field values of the same shape. Mixed or
// unknown shapes fall back to their formatted representation.
func compareValues(a, b any) int {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if ai, ok := AsInt64(a); ok && !isString(a) {
		if bi, ok := AsInt64(b); ok && !isString(b) {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			}
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case map[string]any:
		return cloneFields(x)
	}
	return v
}

func cloneFields(f map[string]any) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}
