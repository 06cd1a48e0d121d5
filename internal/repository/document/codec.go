// Package document implements the repositories on top of a docstore.Store.
// Timestamps are stored as fixed-width UTC text; sub-records use the json
// layout of their model types.
package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sigmarp/medical-api/pkg/docstore"
)

// encodeRecord renders v with its json layout and stores each given
// timestamp field in text form.
func encodeRecord(v interface{}, times map[string]*time.Time) (docstore.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for field, t := range times {
		doc[field] = timeValue(t)
	}
	return doc, nil
}

// decodeRecord fills out from a stored sub-document, leaving the given
// timestamp fields to the caller.
func decodeRecord(raw interface{}, out interface{}, timeFields ...string) (map[string]interface{}, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", raw)
	}
	rest := make(map[string]interface{}, len(m))
	for k, v := range m {
		rest[k] = v
	}
	for _, f := range timeFields {
		delete(rest, f)
	}
	b, err := json.Marshal(rest)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return m, nil
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case docstore.Document:
		return m, true
	}
	return nil, false
}

func asList(v interface{}) []interface{} {
	switch l := v.(type) {
	case []interface{}:
		return l
	case []docstore.Document:
		out := make([]interface{}, len(l))
		for i, d := range l {
			out[i] = d
		}
		return out
	}
	return nil
}

func timeValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return docstore.FormatTime(*t)
}

// timeOr parses a stored timestamp, returning fallback when the field is
// missing or malformed.
func timeOr(m map[string]interface{}, field string, fallback time.Time) time.Time {
	if t := optTime(m, field); t != nil {
		return *t
	}
	return fallback
}

// optTime parses a stored timestamp, returning nil when the field is missing
// or malformed.
func optTime(m map[string]interface{}, field string) *time.Time {
	s, ok := m[field].(string)
	if !ok {
		return nil
	}
	t, err := docstore.ParseTime(s)
	if err != nil {
		return nil
	}
	return &t
}

func str(m map[string]interface{}, field string) string {
	s, _ := m[field].(string)
	return s
}

func optStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolean(m map[string]interface{}, field string) bool {
	b, _ := m[field].(bool)
	return b
}

func integer(m map[string]interface{}, field string, fallback int) int {
	switch n := m[field].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	}
	return fallback
}
