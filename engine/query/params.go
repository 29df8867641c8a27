// Package query assembles the parameter set the Vahan analytics endpoints
// expect from the dashboard filters.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/WessleyAI/vahan-insights/engine/domain"
)

// Params is an ordered parameter mapping. The zero value is empty and ready
// to use. Params is immutable: Set and Merge return copies, so a Params built
// once per render can be shared by every endpoint call.
type Params struct {
	keys []string
	vals map[string]any
}

// Of builds Params from alternating key/value pairs. A trailing key without a
// value is ignored.
func Of(kvs ...any) Params {
	var p Params
	for i := 0; i+1 < len(kvs); i += 2 {
		k, ok := kvs[i].(string)
		if !ok {
			continue
		}
		p = p.Set(k, kvs[i+1])
	}
	return p
}

// Len returns the number of keys.
func (p Params) Len() int { return len(p.keys) }

// Keys returns the keys in insertion order.
func (p Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Get returns the value for key.
func (p Params) Get(key string) (any, bool) {
	v, ok := p.vals[key]
	return v, ok
}

// Set returns a copy with key set to v. An existing key keeps its position.
func (p Params) Set(key string, v any) Params {
	out := p.clone(1)
	if _, ok := out.vals[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.vals[key] = v
	return out
}

// Merge shallow-merges extra on top of p.
func (p Params) Merge(extra Params) Params {
	out := p.clone(extra.Len())
	for _, k := range extra.keys {
		if _, ok := out.vals[k]; !ok {
			out.keys = append(out.keys, k)
		}
		out.vals[k] = extra.vals[k]
	}
	return out
}

// Map returns the parameters as a plain map.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p.keys))
	for k, v := range p.vals {
		out[k] = v
	}
	return out
}

// Encode renders the parameters as a form-encoded query string in key order.
// Sequence values expand into repeated key=value pairs.
func (p Params) Encode() string {
	var b strings.Builder
	for _, k := range p.keys {
		for _, s := range encodeValue(p.vals[k]) {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(s))
		}
	}
	return b.String()
}

func (p Params) clone(extra int) Params {
	out := Params{
		keys: make([]string, len(p.keys), len(p.keys)+extra),
		vals: make(map[string]any, len(p.keys)+extra),
	}
	copy(out.keys, p.keys)
	for k, v := range p.vals {
		out.vals[k] = v
	}
	return out
}

func encodeValue(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{x}
	case int:
		return []string{strconv.Itoa(x)}
	case int64:
		return []string{strconv.FormatInt(x, 10)}
	case float64:
		return []string{strconv.FormatFloat(x, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(x)}
	case domain.CalendarType:
		return []string{strconv.Itoa(int(x))}
	case []string:
		return x
	case []int:
		out := make([]string, len(x))
		for i, n := range x {
			out[i] = strconv.Itoa(n)
		}
		return out
	case []any:
		var out []string
		for _, e := range x {
			out = append(out, encodeValue(e)...)
		}
		return out
	default:
		return []string{fmt.Sprint(x)}
	}
}
