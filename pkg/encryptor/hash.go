// Package encryptor redacts sensitive field values before they reach the
// compliance mirror (pkg/datachangelog): a keyed digest that lets two
// snapshots of the same underlying value be compared for equality without
// ever storing the value itself.
package encryptor

import (
	"encoding/base64"

	"golang.org/x/crypto/blake2b"
)

// RedactField returns a keyed, base64-encoded digest of value. Same key
// and value always yield the same digest; the key must stay out of the
// audit/compliance stores that consume this digest's output.
func RedactField(key, value string) (string, error) {
	h, err := blake2b.New256([]byte(key))
	if err != nil {
		return "", err
	}
	if _, err := h.Write([]byte(value)); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}
