// Package normalize turns the loosely shaped JSON payloads returned by the
// Vahan analytics endpoints into uniform tables.
//
// Every endpoint family has its own sniff function that inspects the decoded
// payload once and classifies it as one Payload variant. Normalizers then
// switch on the variant instead of probing keys ad hoc.
package normalize

import (
	"sort"
	"strconv"
)

// Record is one decoded JSON object.
type Record = map[string]any

// Payload is the closed set of payload shapes the upstream API produces.
type Payload interface {
	payload()
}

// ParallelArrays is an object with same-index "labels" and "data" arrays.
type ParallelArrays struct {
	Labels []any
	Data   []any
}

// RecordList is a top-level array of objects.
type RecordList struct {
	Records []Record
}

// WrappedRecordList is an object holding the record array under Key.
type WrappedRecordList struct {
	Key     string
	Records []Record
}

// YearKeyedSeries is an object mapping a year to an array of values. Years
// holds the keys in natural order.
type YearKeyedSeries struct {
	Years  []string
	Series map[string][]any
}

// Empty is any payload that carries no usable rows.
type Empty struct{}

func (ParallelArrays) payload()    {}
func (RecordList) payload()        {}
func (WrappedRecordList) payload() {}
func (YearKeyedSeries) payload()   {}
func (Empty) payload()             {}

// Records returns the records of a RecordList or WrappedRecordList, nil
// otherwise.
func Records(p Payload) []Record {
	switch v := p.(type) {
	case RecordList:
		return v.Records
	case WrappedRecordList:
		return v.Records
	}
	return nil
}

// SniffDistribution classifies a distribution payload (categories, top
// makers). An object with both "labels" and "data" is ParallelArrays. An
// object with a "data" key is unwrapped; otherwise the payload itself is the
// record source. A single object counts as a one-element list.
func SniffDistribution(raw any) Payload {
	if p, ok := parallel(raw); ok {
		return p
	}
	src, key := raw, ""
	if obj, ok := raw.(map[string]any); ok {
		if inner, ok := obj["data"]; ok {
			src, key = inner, "data"
		}
	}
	var recs []Record
	switch v := src.(type) {
	case []any:
		recs = records(v)
	case map[string]any:
		recs = []Record{v}
	default:
		return Empty{}
	}
	if key != "" {
		return WrappedRecordList{Key: key, Records: recs}
	}
	return RecordList{Records: recs}
}

// SniffParallel accepts only the labels/data shape.
func SniffParallel(raw any) Payload {
	if p, ok := parallel(raw); ok {
		return p
	}
	return Empty{}
}

// SniffRecords accepts only a top-level array of objects.
func SniffRecords(raw any) Payload {
	arr, ok := raw.([]any)
	if !ok {
		return Empty{}
	}
	return RecordList{Records: records(arr)}
}

// SniffYearKeyed accepts an object whose values are arrays. Keys holding
// anything else are ignored.
func SniffYearKeyed(raw any) Payload {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Empty{}
	}
	series := make(map[string][]any, len(obj))
	years := make([]string, 0, len(obj))
	for k, v := range obj {
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		series[k] = arr
		years = append(years, k)
	}
	if len(years) == 0 {
		return Empty{}
	}
	sort.Slice(years, func(i, j int) bool { return yearLess(years[i], years[j]) })
	return YearKeyedSeries{Years: years, Series: series}
}

func parallel(raw any) (ParallelArrays, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return ParallelArrays{}, false
	}
	labels, lok := obj["labels"]
	data, dok := obj["data"]
	if !lok || !dok {
		return ParallelArrays{}, false
	}
	l, _ := labels.([]any)
	d, _ := data.([]any)
	return ParallelArrays{Labels: l, Data: d}, true
}

// records keeps the object elements of arr. Non-object elements are skipped.
func records(arr []any) []Record {
	out := make([]Record, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func yearLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
