package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	patchtools "github.com/jecitDev/corebank/pkg/patchTools"
)

type accountPatch struct {
	Name    *string `json:"name"`
	Balance *int64  `json:"balance"`
}

func TestApplyPatch_SetsOnlyPatchedFields(t *testing.T) {
	name := "alice"
	existing := accountPatch{Name: &name}

	updated, err := ApplyPatch(existing, []patchtools.Data{{Field: "balance", Value: "500"}})
	require.NoError(t, err)

	require.NotNil(t, updated.Name)
	assert.Equal(t, "alice", *updated.Name)
	require.NotNil(t, updated.Balance)
	assert.Equal(t, int64(500), *updated.Balance)
}

func TestApplyPatch_InvalidValueReturnsOriginal(t *testing.T) {
	existing := accountPatch{}

	got, err := ApplyPatch(existing, []patchtools.Data{{Field: "balance", Value: "not-a-number"}})
	assert.Error(t, err)
	assert.Equal(t, existing, got)
}
