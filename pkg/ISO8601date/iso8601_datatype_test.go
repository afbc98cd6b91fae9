package iso8601date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RejectsNonConformingStrings(t *testing.T) {
	_, err := Parse("2024-01-02")
	assert.Error(t, err)

	d, err := Parse("2024-01-02T15:04:05+00:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T15:04:05+00:00", d.String())
}

func TestCanonicalize_NormalizesToUTCWithExplicitOffset(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	t1 := time.Date(2024, 1, 2, 10, 0, 0, 0, loc)

	d := Canonicalize(t1)
	assert.Equal(t, "2024-01-02T15:04:05+00:00"[:10], d.String()[:10])
	assert.Contains(t, d.String(), "+00:00")
}

func TestJSONRoundTrip(t *testing.T) {
	d, err := Parse("2024-01-02T15:04:05+00:00")
	require.NoError(t, err)

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded ISO8601date
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, d.String(), decoded.String())
}
