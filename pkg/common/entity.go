package common

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Entity is a single record of an OrganizationModel category after the
// envelope has been removed.
//
// Records arrive in two shapes: bare ({"name": "Jenkins", ...}) or wrapped
// ({"data": {"name": "Jenkins", ...}, "confidence": 0.9}). Wrapped is true for
// the latter and Annotations holds the envelope keys next to "data".
type Entity struct {
	Fields      map[string]any
	Wrapped     bool
	Annotations map[string]any
}

// UnwrapEntity normalizes a raw category entry. It returns false when the
// entry is not a mapping or its "data" envelope is not a mapping.
func UnwrapEntity(raw any) (Entity, bool) {
	record, ok := AsMap(raw)
	if !ok {
		return Entity{}, false
	}

	data, wrapped := record["data"]
	if !wrapped {
		return Entity{Fields: record}, true
	}

	fields, ok := AsMap(data)
	if !ok {
		return Entity{}, false
	}

	annotations := make(map[string]any, len(record)-1)
	for k, v := range record {
		if k != "data" {
			annotations[k] = v
		}
	}

	return Entity{Fields: fields, Wrapped: true, Annotations: annotations}, true
}

// ID returns the first non-empty scalar value found under the given keys.
func (e Entity) ID(keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := e.Fields[key]; ok {
			if s, ok := Scalar(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Has reports whether the field is present, regardless of its value.
func (e Entity) Has(key string) bool {
	_, ok := e.Fields[key]
	return ok
}

// Strings returns the field as a flat list of identifiers. Scalars are
// wrapped into a single-element list and nested lists are flattened.
func (e Entity) Strings(key string) []string {
	return FlattenTargets(e.Fields[key])
}

// Map returns a nested mapping field, or nil when absent or not a mapping.
func (e Entity) Map(key string) map[string]any {
	m, _ := AsMap(e.Fields[key])
	return m
}

// Entities returns the unwrapped entity records of a category. Entries that
// cannot be unwrapped are dropped; a missing or non-sequence category yields nil.
func (m OrganizationModel) Entities(category string) []Entity {
	raw, ok := m[category].([]any)
	if !ok {
		return nil
	}

	entities := make([]Entity, 0, len(raw))
	for _, entry := range raw {
		if e, ok := UnwrapEntity(entry); ok {
			entities = append(entities, e)
		}
	}
	return entities
}

// Events is a shortcut for the "events" category.
func (m OrganizationModel) Events() []Entity {
	return m.Entities("events")
}

// AsMap converts decoded mapping values into map[string]any. YAML decoders
// may produce map[any]any for mappings with non-string keys.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case OrganizationModel:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := Scalar(k)
			if !ok {
				continue
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// Scalar renders a decoded scalar as an identifier. Empty strings, nil,
// booleans and composite values are rejected.
func Scalar(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	default:
		return "", false
	}
}

// FlattenTargets normalizes a relationship value into a flat list of
// identifiers: scalars become one-element lists, nested lists are flattened
// recursively, and anything that is not a scalar is skipped.
func FlattenTargets(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case nil:
		case []any:
			for _, item := range t {
				walk(item)
			}
		case []string:
			for _, item := range t {
				walk(item)
			}
		default:
			if s, ok := Scalar(t); ok {
				out = append(out, s)
			}
		}
	}
	walk(v)
	return out
}
