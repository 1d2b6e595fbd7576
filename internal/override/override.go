package override

import (
	"encoding/json"
	"strings"

	"github.com/0muji4/persona-prompt/internal/document"
)

// Record is a flat set of user overrides keyed by field name.
type Record map[string]any

// Field maps an override key to its location inside a persona document.
type Field struct {
	Name string
	Path []string
}

// Fields lists the overridable fields in application order.
var Fields = []Field{
	{Name: "name", Path: []string{"persona", "name"}},
	{Name: "description", Path: []string{"identity", "description"}},
	{Name: "preferred_language", Path: []string{"languages", "preferred"}},
	{Name: "verbosity", Path: []string{"behavior", "interaction_style", "verbosity"}},
}

// IsField reports whether name is an overridable field.
func IsField(name string) bool {
	for _, f := range Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// AppliedField is one override value written into a document.
type AppliedField struct {
	Name  string
	Value any
}

// Applied lists applied fields in application order.
type Applied []AppliedField

// Get returns the applied value for name.
func (a Applied) Get(name string) (any, bool) {
	for _, f := range a {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the applied field names.
func (a Applied) Names() []string {
	names := make([]string, 0, len(a))
	for _, f := range a {
		names = append(names, f.Name)
	}
	return names
}

// Map returns the applied fields as a plain map.
func (a Applied) Map() map[string]any {
	m := make(map[string]any, len(a))
	for _, f := range a {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON encodes the applied fields as an object.
func (a Applied) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

// UnmarshalJSON decodes an object keeping the whitelisted fields in
// application order.
func (a *Applied) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := Applied{}
	for _, f := range Fields {
		if v, ok := m[f.Name]; ok {
			out = append(out, AppliedField{Name: f.Name, Value: v})
		}
	}
	*a = out
	return nil
}

// Merge writes the whitelisted fields of rec into a copy of doc.
// Strings are trimmed; empty strings and nulls are skipped. doc is never
// modified. With an empty rec, doc itself is returned.
func Merge(doc *document.Node, rec Record) (*document.Node, Applied) {
	if len(rec) == 0 {
		return doc, Applied{}
	}

	updated := doc.Clone()
	if updated == nil {
		updated = document.NewMapping()
	}
	applied := Applied{}

	for _, f := range Fields {
		value, ok := rec[f.Name]
		if !ok {
			continue
		}
		value, ok = sanitize(value)
		if !ok {
			continue
		}
		updated.SetPath(f.Path, document.FromValue(value))
		applied = append(applied, AppliedField{Name: f.Name, Value: value})
	}

	return updated, applied
}

// Skipped returns whitelisted fields present in rec that Merge did not apply.
func Skipped(rec Record, applied Applied) []string {
	var skipped []string
	for _, f := range Fields {
		if _, ok := rec[f.Name]; !ok {
			continue
		}
		if _, ok := applied.Get(f.Name); !ok {
			skipped = append(skipped, f.Name)
		}
	}
	return skipped
}

func sanitize(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, false
		}
		return v, true
	default:
		return v, true
	}
}
