package datachangelog

import (
	"fmt"
	"reflect"
	"strings"
)

// DiffCalculator computes differences between before and after data
type DiffCalculator struct {
	excludedFields  []string
	sensitiveFields []string
}

// NewDiffCalculator creates a new DiffCalculator instance
func NewDiffCalculator(excludedFields, sensitiveFields []string) *DiffCalculator {
	return &DiffCalculator{
		excludedFields:  excludedFields,
		sensitiveFields: sensitiveFields,
	}
}

// CalculateDiff computes the differences between before and after maps.
// Returns a slice of FieldDiff representing all changes.
func (dc *DiffCalculator) CalculateDiff(before, after map[string]interface{}) []FieldDiff {
	var diffs []FieldDiff

	processedKeys := make(map[string]bool)

	if after != nil {
		for key, newValue := range after {
			if dc.isFieldExcluded(key) {
				continue
			}

			processedKeys[key] = true

			if before == nil {
				diffs = append(diffs, FieldDiff{
					FieldName: key,
					FieldType: dc.getFieldType(newValue),
					OldValue:  nil,
					NewValue:  newValue,
				})
				continue
			}

			if oldValue, exists := before[key]; exists {
				if !dc.valuesEqual(oldValue, newValue) {
					diffs = append(diffs, FieldDiff{
						FieldName: key,
						FieldType: dc.getFieldType(newValue),
						OldValue:  oldValue,
						NewValue:  newValue,
					})
				}
			} else {
				diffs = append(diffs, FieldDiff{
					FieldName: key,
					FieldType: dc.getFieldType(newValue),
					OldValue:  nil,
					NewValue:  newValue,
				})
			}
		}
	}

	if before != nil {
		for key, oldValue := range before {
			if dc.isFieldExcluded(key) {
				continue
			}

			if !processedKeys[key] {
				diffs = append(diffs, FieldDiff{
					FieldName: key,
					FieldType: dc.getFieldType(oldValue),
					OldValue:  oldValue,
					NewValue:  nil,
				})
			}
		}
	}

	return diffs
}

// valuesEqual checks if two values are equal, handling various types
func (dc *DiffCalculator) valuesEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// getFieldType returns a string representation of the field's type
func (dc *DiffCalculator) getFieldType(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case bool:
		return "boolean"
	case float64:
		if v == float64(int64(v)) {
			return "integer"
		}
		return "number"
	case float32:
		return "number"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return reflect.TypeOf(value).String()
	}
}

// isFieldExcluded checks if a field is in the excluded list
func (dc *DiffCalculator) isFieldExcluded(fieldName string) bool {
	lowerField := strings.ToLower(fieldName)
	for _, excluded := range dc.excludedFields {
		if strings.ToLower(excluded) == lowerField {
			return true
		}
	}
	return false
}

// IsSensitiveField checks if a field is sensitive
func (dc *DiffCalculator) IsSensitiveField(fieldName string) bool {
	lowerField := strings.ToLower(fieldName)
	for _, sensitive := range dc.sensitiveFields {
		if strings.ToLower(sensitive) == lowerField {
			return true
		}
	}
	return false
}
