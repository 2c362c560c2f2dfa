package iap

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

var ErrMissingValue = errors.New("missing value")

// Lookup returns the value stored under key, failing if it's absent or null.
func Lookup(m map[string]any, key string) (any, error) {
	if m == nil {
		return nil, errors.Wrapf(ErrMissingValue, "%q", key)
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, errors.Wrapf(ErrMissingValue, "%q", key)
	}
	return v, nil
}

// RequireString returns the non-empty string stored under key. Numbers are
// accepted and rendered in decimal.
func RequireString(m map[string]any, key string) (string, error) {
	v, err := Lookup(m, key)
	if err != nil {
		return "", err
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case map[string]any, []any:
		return "", fmt.Errorf("%q is not a scalar: %T", key, v)
	default:
		s, err = cast.ToStringE(v)
		if err != nil {
			return "", errors.Wrapf(err, "%q", key)
		}
	}

	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%q is empty", key)
	}
	return s, nil
}

// RequireInt64 returns the integer stored under key. Providers encode large
// integers (e.g. millisecond timestamps) as either JSON numbers or decimal
// strings, so both are accepted.
func RequireInt64(m map[string]any, key string) (int64, error) {
	v, err := Lookup(m, key)
	if err != nil {
		return 0, err
	}
	return ToInt64(v)
}

// ToInt64 coerces a decoded JSON scalar into an int64.
func ToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Int64()
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid integer %q", t)
		}
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("invalid integer %q", t)
		}
		return int64(f), nil
	case bool:
		return 0, fmt.Errorf("unexpected boolean %v", t)
	default:
		return cast.ToInt64E(v)
	}
}

// RequireBool returns the boolean-like value stored under key.
func RequireBool(m map[string]any, key string) (bool, error) {
	v, err := Lookup(m, key)
	if err != nil {
		return false, err
	}
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, errors.Wrapf(err, "%q", key)
	}
	return b, nil
}

// OptionalList returns the list stored under key. Absent or null keys yield a
// nil list, anything that isn't a list is an error.
func OptionalList(m map[string]any, key string) ([]map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	return toEntries(key, v)
}

// RequireList is OptionalList for keys that must be present.
func RequireList(m map[string]any, key string) ([]map[string]any, error) {
	v, err := Lookup(m, key)
	if err != nil {
		return nil, err
	}
	return toEntries(key, v)
}

func toEntries(key string, v any) ([]map[string]any, error) {
	switch t := v.(type) {
	case []map[string]any:
		return t, nil
	case []any:
		entries := make([]map[string]any, len(t))
		for i, item := range t {
			entry, ok := item.(map[string]any)
			if !ok {
				if raw, isRaw := item.(RawResponse); isRaw {
					entry = raw
				} else {
					return nil, fmt.Errorf("%q[%d] is not an object: %T", key, i, item)
				}
			}
			entries[i] = entry
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%q is not a list: %T", key, v)
	}
}
