// Package stringtools holds small string helpers used to log-safely
// truncate sensitive values (account numbers, tokens) to their trailing
// digits rather than writing them in full.
package stringtools

import "strings"

// RightValue returns the trailing length characters of input, or input
// unchanged if it is already that short or shorter.
func RightValue(input string, length int) string {
	if len(input) <= length {
		return input // Return the entire input string if its length is less than or equal to the specified length.
	}
	startIndex := len(input) - length

	return input[startIndex:]
}

func RightValueWithFormat(format string, input string, length int) string {
	if len(input) >= length {
		return input[len(input)-length:]
	}

	return strings.Repeat(format, length-len(input)) + input
}
