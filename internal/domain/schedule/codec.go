package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rpms/rpms/internal/platform/apperr"
)

// Encode serializes a validated schedule into the JSON text stored on a care plan.
func Encode(s *Schedule) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode schedule: %w", err)
	}
	return string(b), nil
}

// Decode parses stored schedule JSON and validates it. Unknown keys are
// rejected so snake_case or otherwise drifted payloads never pass as valid.
func Decode(raw string) (*Schedule, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var s Schedule
	if err := dec.Decode(&s); err != nil {
		return nil, apperr.Deserialization(err, "decode schedule")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeLenient is the read-path variant of Decode: malformed JSON yields
// nil instead of an error.
func DecodeLenient(raw string) *Schedule {
	var s Schedule
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil
	}
	return &s
}

// StructuredData is the free-form key/value payload produced by extraction.
type StructuredData map[string]interface{}

// EncodeData serializes structured data for storage. A nil map is stored as "{}".
func EncodeData(d StructuredData) (string, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode structured data: %w", err)
	}
	return string(b), nil
}

// DecodeData parses stored structured data.
func DecodeData(raw string) (StructuredData, error) {
	var d StructuredData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, apperr.Deserialization(err, "decode structured data")
	}
	if d == nil {
		d = StructuredData{}
	}
	return d, nil
}

// DecodeDataLenient returns an empty map when raw cannot be parsed.
func DecodeDataLenient(raw string) StructuredData {
	d, err := DecodeData(raw)
	if err != nil {
		return StructuredData{}
	}
	return d
}

const unparseableSummary = "Error parsing data"

// Summarize renders the first n entries of stored structured data as
// "key: value" pairs in key order. Unparseable payloads render a fixed
// placeholder rather than failing.
func Summarize(raw string, n int) string {
	d, err := DecodeData(raw)
	if err != nil {
		return unparseableSummary
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+formatValue(d[k]))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case map[string]interface{}, []interface{}:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprint(val)
		}
		return strings.TrimSpace(buf.String())
	default:
		return fmt.Sprint(val)
	}
}
