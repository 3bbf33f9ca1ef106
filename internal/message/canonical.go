// Package message implements the signable view and the message envelope:
// the immutable, hash-keyed wire type that carries a source attestation,
// destination, payload variant, and proof chain.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// MaxEnvelopeSize bounds a serialised envelope.
const MaxEnvelopeSize = 16 * 1024 // 16KB

// CanonicalizeJSON converts any struct to its canonical JSON
// representation: deterministic key ordering and no empty fields, so the
// same logical value always serialises to the same bytes.
func CanonicalizeJSON(data interface{}) ([]byte, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("initial marshal failed: %w", err)
	}

	if len(jsonBytes) > MaxEnvelopeSize {
		return nil, ErrEnvelopeTooLarge
	}

	var generic interface{}
	if err := json.Unmarshal(jsonBytes, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal for canonicalization failed: %w", err)
	}

	canonical := canonicalizeValue(generic)

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "")

	if err := encoder.Encode(canonical); err != nil {
		return nil, fmt.Errorf("canonical marshal failed: %w", err)
	}

	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

func canonicalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return canonicalizeObject(v)
	case []interface{}:
		return canonicalizeArray(v)
	case string, float64, bool, nil:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func canonicalizeObject(obj map[string]interface{}) map[string]interface{} {
	if obj == nil {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make(map[string]interface{})
	for _, k := range keys {
		if obj[k] != nil && !isEmpty(obj[k]) {
			result[k] = canonicalizeValue(obj[k])
		}
	}
	return result
}

func canonicalizeArray(arr []interface{}) []interface{} {
	if arr == nil {
		return nil
	}
	result := make([]interface{}, len(arr))
	for i, v := range arr {
		result[i] = canonicalizeValue(v)
	}
	return result
}

func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// ValidateCanonicalJSON checks that data is already in canonical form.
func ValidateCanonicalJSON(data []byte) error {
	if len(data) == 0 {
		return ErrInvalidMessageStructure
	}
	if len(data) > MaxEnvelopeSize {
		return ErrEnvelopeTooLarge
	}

	var parsed interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	canonical, err := CanonicalizeJSON(parsed)
	if err != nil {
		return fmt.Errorf("re-canonicalization failed: %w", err)
	}

	if !bytes.Equal(data, canonical) {
		return ErrCanonicalizationFailed
	}
	return nil
}
