package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlessMiddlewareAddsD4ToAttackWhenBlessed(t *testing.T) {
	s := NewEncounterState(1, nil)
	attacker := NewCombatant("a", "A")
	s.AddCombatant(attacker)
	s.PutEffect(&ActiveEffect{ID: "E1", Name: "bless", TargetID: "a", AppliesConditions: map[string]bool{}})

	mw := BlessMiddleware{}
	mods := mw.BeforeAttackRoll(s, attacker, nil, "sword")
	require.Len(t, mods, 1)
	assert.Equal(t, "bless", mods[0].Name)
	assert.GreaterOrEqual(t, mods[0].Value, 1)
	assert.LessOrEqual(t, mods[0].Value, 4)
}

func TestBlessMiddlewareNoOpWithoutBless(t *testing.T) {
	s := NewEncounterState(1, nil)
	attacker := NewCombatant("a", "A")
	s.AddCombatant(attacker)

	mw := BlessMiddleware{}
	assert.Nil(t, mw.BeforeAttackRoll(s, attacker, nil, "sword"))
	assert.Nil(t, mw.BeforeSaveRoll(s, attacker, "dex", "", ""))
	assert.Nil(t, mw.BeforeDamageRoll(s, attacker, nil, "fire", "attack"))
}

func TestApplyAttackMiddlewareAddsModsToRollTotal(t *testing.T) {
	s := NewEncounterState(1, nil)
	attacker := NewCombatant("a", "A")
	s.AddCombatant(attacker)
	s.PutEffect(&ActiveEffect{ID: "E1", Name: "bless", TargetID: "a", AppliesConditions: map[string]bool{}})

	roll := &Roll{Nat: 15, Total: 15}
	applyAttackMiddleware(DefaultRollMiddlewares(), s, roll, attacker, nil, "sword")
	require.Len(t, roll.Mods, 1)
	assert.Equal(t, 15+roll.Mods[0].Value, roll.Total)
	assert.Equal(t, 15, roll.Nat, "nat must never be touched by middleware")
}

func TestDefaultRollMiddlewaresIncludesBless(t *testing.T) {
	mws := DefaultRollMiddlewares()
	require.Len(t, mws, 1)
	_, ok := mws[0].(BlessMiddleware)
	assert.True(t, ok)
}
