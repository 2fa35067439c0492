// normalize/normalize.go
//
// The remote store wraps list responses in a reference-graph envelope and
// speaks PascalCase field names. This package is the only place allowed to
// know either fact: everything above it sees flat, deduplicated,
// camelCase-keyed entities.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseError reports a payload whose shape is neither a bare array nor a
// recognizable envelope. Malformed shapes fail closed instead of passing
// through.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "normalize: " + e.Msg
}

// envelope keys, in both the documented and the on-the-wire spellings.
var valuesKeys = []string{"values", "Values", "$values"}

// idKeys are probed, in order, to establish entity identity for
// deduplication.
var idKeys = []string{"id", "Id", "ID", "$id", "_id"}

// Unwrap flattens a list payload into its raw elements. A bare array is
// returned as-is; an envelope contributes its values collection; null,
// empty or absent payloads yield an empty slice. Elements carrying an id
// already seen are dropped. The input is never mutated.
func Unwrap(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []json.RawMessage{}, nil
	}

	var elems []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, &ParseError{Msg: "malformed array: " + err.Error()}
		}
	case '{':
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, &ParseError{Msg: "malformed envelope: " + err.Error()}
		}
		raw, ok := envelopeValues(env)
		if !ok {
			return nil, &ParseError{Msg: "object payload has no values collection"}
		}
		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return []json.RawMessage{}, nil
		}
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, &ParseError{Msg: "malformed values collection: " + err.Error()}
		}
	default:
		return nil, &ParseError{Msg: "payload is neither array nor envelope"}
	}

	return dedupe(elems), nil
}

func envelopeValues(env map[string]json.RawMessage) (json.RawMessage, bool) {
	for _, k := range valuesKeys {
		if raw, ok := env[k]; ok {
			return raw, true
		}
	}
	return nil, false
}

func dedupe(elems []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(elems))
	seen := make(map[string]bool, len(elems))
	for _, el := range elems {
		id := elementID(el)
		if id != "" {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		out = append(out, el)
	}
	return out
}

func elementID(el json.RawMessage) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(el, &m); err != nil {
		return ""
	}
	for _, k := range idKeys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		// numeric ids arrive unquoted
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// UnwrapInto unwraps a list payload and decodes every element into T,
// translating wire casing on the way in.
func UnwrapInto[T any](data []byte) ([]T, error) {
	elems, err := Unwrap(data)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(elems))
	for _, el := range elems {
		var v T
		if err := FromWire(el, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Wrap builds the reference-graph envelope around a list. Used by tests and
// the stub server to produce what Unwrap consumes.
func Wrap(referenceID string, items any) map[string]any {
	return map[string]any{
		"referenceId": referenceID,
		"values":      items,
	}
}

// ToWire marshals v and re-keys every object to the remote naming
// convention (PascalCase). Local field names are authoritative; only the
// casing changes.
func ToWire(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: marshal: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &ParseError{Msg: "re-decode for wire casing: " + err.Error()}
	}
	return json.Marshal(rekey(decoded, pascal))
}

// FromWire re-keys an inbound payload to camelCase and decodes it into v.
// Reference-graph metadata keys ($id and friends) are dropped.
func FromWire(data []byte, v any) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return &ParseError{Msg: "malformed wire payload: " + err.Error()}
	}
	norm, err := json.Marshal(rekey(decoded, camel))
	if err != nil {
		return fmt.Errorf("normalize: remarshal: %w", err)
	}
	if err := json.Unmarshal(norm, v); err != nil {
		return &ParseError{Msg: "wire payload does not fit target type: " + err.Error()}
	}
	return nil
}

func rekey(v any, conv func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if strings.HasPrefix(k, "$") {
				continue
			}
			out[conv(k)] = rekey(val, conv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = rekey(el, conv)
		}
		return out
	default:
		return v
	}
}

func pascal(k string) string {
	if k == "" {
		return k
	}
	r, size := utf8.DecodeRuneInString(k)
	return string(unicode.ToUpper(r)) + k[size:]
}

func camel(k string) string {
	if k == "" {
		return k
	}
	if strings.ToUpper(k) == k && len(k) > 1 {
		// acronym-only keys like "ID" come down whole
		return strings.ToLower(k)
	}
	r, size := utf8.DecodeRuneInString(k)
	return string(unicode.ToLower(r)) + k[size:]
}

// departmentKeys is the ordered precedence list for the several spellings
// the remote store has used for a department id over time.
var departmentKeys = []string{"departmentId", "DepartmentId", "departmentID", "deptId", "ownerDepartmentId", "OwnerDepartmentId"}

// ResolveDepartmentID populates the one canonical department id from a raw
// payload, taking the first non-empty candidate in precedence order.
func ResolveDepartmentID(payload map[string]any) string {
	for _, k := range departmentKeys {
		if v, ok := payload[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
