package datachangelog

import (
	"fmt"
	"math"
	"strings"

	"github.com/jecitDev/corebank/pkg/encryptor"
)

// sanitizerRedactionKey keys the BLAKE2b digest Sanitizer falls back to
// for non-string sensitive values (see RedactField in pkg/encryptor).
const sanitizerRedactionKey = "datachangelog.sanitizer"

// Sanitizer handles sanitization of sensitive fields
type Sanitizer struct {
	sensitiveFields map[string]bool
	redactionChar   string
}

// NewSanitizer creates a new sanitizer instance
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	fieldMap := make(map[string]bool)
	for _, field := range sensitiveFields {
		fieldMap[strings.ToLower(field)] = true
	}

	return &Sanitizer{
		sensitiveFields: fieldMap,
		redactionChar:   "*",
	}
}

// IsSensitive checks if a field is marked as sensitive
func (s *Sanitizer) IsSensitive(fieldName string) bool {
	return s.sensitiveFields[strings.ToLower(fieldName)]
}

// SanitizeValue sanitizes a sensitive value: strings and byte slices are
// partially masked so the mirrored record stays useful for comparison;
// anything else is redacted to a keyed digest via pkg/encryptor.
func (s *Sanitizer) SanitizeValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		return s.redactString(v)
	case []byte:
		return s.redactString(string(v))
	default:
		digest, err := encryptor.RedactField(sanitizerRedactionKey, fmt.Sprintf("%v", v))
		if err != nil {
			return "****"
		}
		return digest
	}
}

// SanitizeMap sanitizes sensitive fields in a map
func (s *Sanitizer) SanitizeMap(data map[string]interface{}, excludedFields []string, sensitiveFields []string) map[string]interface{} {
	if data == nil {
		return nil
	}

	excluded := make(map[string]bool)
	for _, field := range excludedFields {
		excluded[strings.ToLower(field)] = true
	}

	sensitive := make(map[string]bool)
	for _, field := range sensitiveFields {
		sensitive[strings.ToLower(field)] = true
	}

	result := make(map[string]interface{})
	for key, value := range data {
		lowerKey := strings.ToLower(key)

		if excluded[lowerKey] {
			continue
		}

		if sensitive[lowerKey] || s.IsSensitive(key) {
			result[key] = s.SanitizeValue(value)
			continue
		}

		switch v := value.(type) {
		case map[string]interface{}:
			result[key] = s.SanitizeMap(v, excludedFields, sensitiveFields)
		case []interface{}:
			result[key] = s.sanitizeSlice(v, excludedFields, sensitiveFields)
		default:
			result[key] = value
		}
	}

	return result
}

func (s *Sanitizer) sanitizeSlice(arr []interface{}, excludedFields []string, sensitiveFields []string) []interface{} {
	out := make([]interface{}, len(arr))

	for i, v := range arr {
		switch val := v.(type) {
		case map[string]interface{}:
			out[i] = s.SanitizeMap(val, excludedFields, sensitiveFields)
		default:
			out[i] = val
		}
	}

	return out
}

// redactString redacts a string using 80:20 masking, or full masking for
// short strings.
func (s *Sanitizer) redactString(value string) string {
	n := len(value)
	if n == 0 {
		return value
	}

	if n <= 4 {
		return strings.Repeat(s.redactionChar, n)
	}

	visible := int(math.Ceil(float64(n) * 0.2))
	if visible < 2 {
		visible = 2
	}

	prefixLen := visible / 2
	suffixLen := visible - prefixLen

	prefix := value[:prefixLen]
	suffix := value[n-suffixLen:]

	middle := strings.Repeat(s.redactionChar, n-prefixLen-suffixLen)

	return prefix + middle + suffix
}

// SanitizeFieldDiff sanitizes the values in a FieldDiff
func (s *Sanitizer) SanitizeFieldDiff(diff *FieldDiff) *FieldDiff {
	if diff == nil {
		return nil
	}

	sanitized := *diff

	if s.IsSensitive(diff.FieldName) {
		sanitized.OldValue = s.SanitizeValue(diff.OldValue)
		sanitized.NewValue = s.SanitizeValue(diff.NewValue)
		sanitized.Sanitized = true
	}

	return &sanitized
}

// SanitizeFieldDiffs sanitizes a slice of FieldDiff
func (s *Sanitizer) SanitizeFieldDiffs(diffs []FieldDiff) []FieldDiff {
	if diffs == nil {
		return nil
	}

	result := make([]FieldDiff, 0, len(diffs))
	for _, diff := range diffs {
		sanitized := s.SanitizeFieldDiff(&diff)
		if sanitized != nil {
			result = append(result, *sanitized)
		}
	}

	return result
}
