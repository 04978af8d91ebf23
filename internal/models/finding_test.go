package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCondition(t *testing.T) {
	assert.Equal(t, ConditionExcellent, DeriveCondition(map[string]PieceState{
		"Socket A": PiecePresent,
		"Socket B": PiecePresent,
	}))

	// Any missing part makes the kit Lost even when another part is damaged
	assert.Equal(t, ConditionLost, DeriveCondition(map[string]PieceState{
		"Socket A": PieceDamaged,
		"Socket B": PieceMissing,
	}))

	assert.Equal(t, ConditionDamaged, DeriveCondition(map[string]PieceState{
		"Socket A": PiecePresent,
		"Socket B": PieceDamaged,
	}))

	assert.Equal(t, ConditionExcellent, DeriveCondition(map[string]PieceState{}))
}

func TestFindingInVariance(t *testing.T) {
	f := Finding{ExpectedQty: 5, SightedQty: 5, Condition: ConditionExcellent}
	assert.False(t, f.InVariance())

	f.SightedQty = 4
	assert.True(t, f.InVariance())

	f.SightedQty = 5
	f.Condition = ConditionDamaged
	assert.True(t, f.InVariance())

	f.Condition = ConditionLost
	assert.True(t, f.InVariance())
}
