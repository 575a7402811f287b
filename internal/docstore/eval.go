package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Normalize round-trips data through JSON so every backend stores and compares
// the same value shapes (numbers become float64, structs become maps).
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyUpdates applies updates to a normalized document in place.
func ApplyUpdates(data map[string]any, updates []Update) error {
	for _, u := range updates {
		if u.Path == "" {
			return fmt.Errorf("update: empty field path")
		}
		segments := strings.Split(u.Path, ".")
		parent := data
		for _, seg := range segments[:len(segments)-1] {
			next, ok := parent[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				parent[seg] = next
			}
			parent = next
		}
		leaf := segments[len(segments)-1]

		if inc, ok := u.Value.(Increment); ok {
			current, _ := parent[leaf].(float64)
			parent[leaf] = current + float64(inc)
			continue
		}
		v, err := normalizeValue(u.Value)
		if err != nil {
			return fmt.Errorf("update %s: %w", u.Path, err)
		}
		parent[leaf] = v
	}
	return nil
}

// MergeInto deep-merges src into dst: nested maps merge key by key, every
// other value replaces the destination value.
func MergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			MergeInto(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

// Lookup returns the value at a dotted path.
func Lookup(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, seg := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Matches reports whether data satisfies every equality filter.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got, ok := Lookup(data, f.Field)
		if !ok {
			return false
		}
		want, err := normalizeValue(f.Value)
		if err != nil || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Evaluate filters, orders and limits documents in memory for backends that
// cannot push the query down.
func Evaluate(docs []Document, q Query) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if Matches(d.Data, q.Where) {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			vi, _ := Lookup(out[i].Data, q.OrderBy)
			vj, _ := Lookup(out[j].Data, q.OrderBy)
			if c := compareValues(vi, vj); c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// compareValues orders nil < bool < number < string; other kinds compare equal.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// CloneData deep-copies normalized document data.
func CloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
