package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Options names the record keys a normalizer reads.
type Options struct {
	// LabelKeys are tried in order; the first present key supplies the label.
	LabelKeys []string
	// ValueKey is read first. When its value is missing or null the
	// ValueFallbacks are tried in order.
	ValueKey       string
	ValueFallbacks []string
}

// DefaultOptions returns the key set used for category distributions.
func DefaultOptions() Options {
	return Options{
		LabelKeys:      []string{"label"},
		ValueKey:       "value",
		ValueFallbacks: []string{"count", "value", "total"},
	}
}

// FirstKey returns the value of the first key in keys that is present in
// rec. Presence wins even when the stored value is null.
func FirstKey(rec Record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func (o Options) label(rec Record) (string, bool) {
	v, ok := FirstKey(rec, o.LabelKeys)
	if !ok {
		return "", false
	}
	return toLabel(v)
}

func (o Options) value(rec Record) (float64, bool) {
	v := rec[o.ValueKey]
	if v == nil {
		v, _ = FirstKey(rec, o.ValueFallbacks)
	}
	return toNumber(v)
}

// toLabel renders a scalar JSON value as a label. Null, objects and arrays
// are rejected.
func toLabel(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// toNumber coerces a JSON number or numeric string. Thousands separators in
// strings are ignored.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
