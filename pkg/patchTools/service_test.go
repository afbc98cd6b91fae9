package patchtools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type target struct {
	Name      *string    `json:"name"`
	Balance   *int64     `json:"balance"`
	Active    *bool      `json:"active"`
	OpenedAt  *time.Time `json:"opened_at"`
	unexposed *string
}

func TestPopulateStruct_SetsEachSupportedKind(t *testing.T) {
	var tgt target
	err := PopulateStruct([]Data{
		{Field: "name", Value: "alice"},
		{Field: "balance", Value: "1500"},
		{Field: "active", Value: "true"},
		{Field: "opened_at", Value: "2024-01-02T15:04:05Z"},
	}, &tgt)
	require.NoError(t, err)

	require.NotNil(t, tgt.Name)
	assert.Equal(t, "alice", *tgt.Name)
	require.NotNil(t, tgt.Balance)
	assert.Equal(t, int64(1500), *tgt.Balance)
	require.NotNil(t, tgt.Active)
	assert.True(t, *tgt.Active)
	require.NotNil(t, tgt.OpenedAt)
	assert.Equal(t, 2024, tgt.OpenedAt.Year())
}

func TestPopulateStruct_UnknownFieldIsSkipped(t *testing.T) {
	var tgt target
	err := PopulateStruct([]Data{{Field: "nickname", Value: "al"}}, &tgt)
	require.NoError(t, err)
	assert.Nil(t, tgt.Name)
}

func TestPopulateStruct_InvalidIntValueErrors(t *testing.T) {
	var tgt target
	err := PopulateStruct([]Data{{Field: "balance", Value: "abc"}}, &tgt)
	assert.Error(t, err)
}
