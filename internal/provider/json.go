package provider

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"reflect"
	"sort"
	"strings"
)

const (
	maxDecodeDepth = 256
	maxStringDepth = 48
	// maxStringNodes bounds the values one FirstStringValue call visits.
	maxStringNodes = 1 << 16
)

var errMalformed = errors.New("malformed json")

// Object is a decoded JSON object that remembers the order of its keys.
// Agent output is read back in the order the tool wrote it, so fallback
// text extraction stays stable.
type Object struct {
	keys []string
	vals map[string]any
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Keys returns the object's keys in document order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *Object) set(key string, v any) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// ToJSONCandidates returns the structured value carried by line, if any.
// The trimmed line is parsed directly first; failing that, the substring
// from the first '{' to the last '}' is tried, which handles log prefixes
// such as timestamps or level tags. At most one value is returned.
func ToJSONCandidates(line string) []any {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if v, ok := decodeJSON(trimmed); ok {
		return []any{v}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil
	}
	if v, ok := decodeJSON(trimmed[start : end+1]); ok {
		return []any{v}
	}
	return nil
}

func decodeJSON(s string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := decodeValue(dec, 0)
	if err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}

func decodeValue(dec *json.Decoder, depth int) (any, error) {
	if depth > maxDecodeDepth {
		return nil, errMalformed
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &Object{vals: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, errMalformed
			}
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			obj.set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, errMalformed
}

// FirstStringValue extracts the most relevant human-readable text from v.
//
// Strings are returned trimmed. Slices are walked element by element and
// the non-empty results joined with newlines. For objects the preferred
// keys are tried in order and the first non-empty result wins; if none
// yields text, every value is scanned in document order and the non-empty
// results joined with a single space. Anything else yields "".
func FirstStringValue(v any, preferredKeys []string) string {
	w := stringWalker{keys: preferredKeys, onPath: make(map[containerID]bool)}
	return w.walk(v, 0)
}

// containerID identifies a map, slice or *Object by the memory it refers to.
type containerID struct {
	ptr uintptr
	n   int
}

// stringWalker carries the state of one FirstStringValue call. Containers
// already on the current path are skipped, so self-referential values
// terminate, and the node budget caps work on heavily shared values.
type stringWalker struct {
	keys   []string
	onPath map[containerID]bool
	nodes  int
}

func (w *stringWalker) walk(v any, depth int) string {
	if depth > maxStringDepth || w.nodes >= maxStringNodes {
		return ""
	}
	w.nodes++
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []string:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case []any:
		if len(t) == 0 {
			return ""
		}
		id := containerID{reflect.ValueOf(t).Pointer(), len(t)}
		if !w.enter(id) {
			return ""
		}
		defer w.leave(id)
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := w.walk(item, depth+1); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case *Object:
		if t == nil {
			return ""
		}
		id := containerID{reflect.ValueOf(t).Pointer(), -1}
		if !w.enter(id) {
			return ""
		}
		defer w.leave(id)
		return w.object(t.keys, func(k string) any { return t.vals[k] }, depth)
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
		id := containerID{reflect.ValueOf(t).Pointer(), -2}
		if !w.enter(id) {
			return ""
		}
		defer w.leave(id)
		ordered := make([]string, 0, len(t))
		for k := range t {
			ordered = append(ordered, k)
		}
		sort.Strings(ordered)
		return w.object(ordered, func(k string) any { return t[k] }, depth)
	}
	return ""
}

func (w *stringWalker) enter(id containerID) bool {
	if w.onPath[id] {
		return false
	}
	w.onPath[id] = true
	return true
}

func (w *stringWalker) leave(id containerID) { delete(w.onPath, id) }

func (w *stringWalker) object(order []string, get func(string) any, depth int) string {
	for _, k := range w.keys {
		val := get(k)
		if val == nil {
			continue
		}
		if s := w.walk(val, depth+1); s != "" {
			return s
		}
	}
	parts := make([]string, 0, len(order))
	for _, k := range order {
		if s := w.walk(get(k), depth+1); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// field walks nested objects along path and returns the value found.
func field(v any, path ...string) any {
	cur := v
	for _, key := range path {
		switch t := cur.(type) {
		case *Object:
			next, ok := t.Get(key)
			if !ok {
				return nil
			}
			cur = next
		case map[string]any:
			next, ok := t[key]
			if !ok {
				return nil
			}
			cur = next
		default:
			return nil
		}
	}
	return cur
}

// stringField returns the trimmed string at path, or "".
func stringField(v any, path ...string) string {
	s, _ := field(v, path...).(string)
	return strings.TrimSpace(s)
}

func isObject(v any) bool {
	switch t := v.(type) {
	case *Object:
		return t != nil
	case map[string]any:
		return t != nil
	}
	return false
}

// positiveNumber reports v as a float when it is a finite number > 0.
// Zero, negative, non-finite, and non-numeric values count as absent.
func positiveNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}
