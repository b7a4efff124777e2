package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSalePhase_String(t *testing.T) {
	assert.Equal(t, "Ongoing", PhaseFromCode(0).String())
	assert.Equal(t, "Closed", PhaseFromCode(1).String())
	assert.Equal(t, "Finished", PhaseFromCode(2).String())
	assert.Equal(t, "Unknown (7)", PhaseFromCode(7).String())
}

func TestSalePhase_UnknownIsKept(t *testing.T) {
	p := PhaseFromCode(9)
	assert.False(t, p.IsKnown())
	assert.Equal(t, uint8(9), p.Code())
	assert.NotEqual(t, PhaseFinished, p)
	assert.True(t, PhaseFromCode(2) == PhaseFinished)
}
