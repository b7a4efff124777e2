package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovePolicy_AllowanceFor(t *testing.T) {
	one, err := ParseAmount(Ether, "1eth")
	require.NoError(t, err)
	twenty, err := ParseAmount(Ether, "20eth")
	require.NoError(t, err)

	ceiling := ApprovePolicy{Mode: ApproveCeiling, Ceiling: DefaultApproveCeiling()}
	assert.Equal(t, "10.000000000000000000eth", ceiling.AllowanceFor(one).Format())
	assert.True(t, ceiling.AllowanceFor(twenty).Equal(twenty))

	exact := ApprovePolicy{Mode: ApproveExact}
	assert.True(t, exact.AllowanceFor(one).Equal(one))
}

func TestParsePolicies(t *testing.T) {
	w, err := ParseWrapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, WrapFull, w)

	w, err = ParseWrapPolicy("shortfall")
	require.NoError(t, err)
	assert.Equal(t, WrapShortfall, w)

	_, err = ParseWrapPolicy("half")
	assert.Error(t, err)

	m, err := ParseApproveMode("")
	require.NoError(t, err)
	assert.Equal(t, ApproveCeiling, m)

	_, err = ParseApproveMode("infinite")
	assert.Error(t, err)
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "wrap: skipped", SkippedStep("wrap", "").String())
	assert.Contains(t, SubmittedStep("approve", [32]byte{1}).String(), "approve: submitted tx 0x01")
}
