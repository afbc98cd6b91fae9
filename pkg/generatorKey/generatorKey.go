// Package generatorKey generates short, URL-safe correlation identifiers
// for compliance reports and audit-trail exports.
package generatorKey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// generateRandomSeed generates a cryptographically secure random seed.
func generateRandomSeed(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random seed: %w", err)
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b), nil
}

func hashSeed(seed string) string {
	hash := sha256.New()
	hash.Write([]byte(seed))
	hashedBytes := hash.Sum(nil)
	encodedString := base64.StdEncoding.EncodeToString(hashedBytes)
	return strings.NewReplacer("/", "", "+", "", "=", "").Replace(encodedString)
}

// GenerateReportID produces a dash-segmented correlation id suitable for
// a compliance-report identifier or an audit-trail export filename.
func GenerateReportID(seedLength, segmentLength int) (string, error) {
	seed, err := generateRandomSeed(seedLength)
	if err != nil {
		return "", err
	}
	id := hashSeed(seed)

	var formatted strings.Builder
	for i := 0; i < len(id); i += segmentLength {
		if i > 0 {
			formatted.WriteString("-")
		}
		end := i + segmentLength
		if end > len(id) {
			end = len(id)
		}
		formatted.WriteString(id[i:end])
	}
	return formatted.String(), nil
}
