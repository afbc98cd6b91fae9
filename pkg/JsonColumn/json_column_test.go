package jsoncolumn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metadata struct {
	Tags []string `json:"tags"`
}

func TestJsonColumn_ScanNilLeavesValueNil(t *testing.T) {
	var col JsonColumn[metadata]
	require.NoError(t, col.Scan(nil))
	assert.Nil(t, col.Get())
}

func TestJsonColumn_ScanDecodesJSONBytes(t *testing.T) {
	var col JsonColumn[metadata]
	require.NoError(t, col.Scan([]byte(`{"tags":["vip","overdraft"]}`)))
	require.NotNil(t, col.Get())
	assert.Equal(t, []string{"vip", "overdraft"}, col.Get().Tags)
}

func TestJsonColumn_ValueEncodesCurrentContents(t *testing.T) {
	col := JsonColumn[metadata]{V: &metadata{Tags: []string{"vip"}}}
	raw, err := col.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":["vip"]}`, string(raw.([]byte)))
}
