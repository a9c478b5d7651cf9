package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSpellRegistryHasCoreSpells(t *testing.T) {
	r := NewDefaultSpellRegistry()
	for _, name := range []string{"fireball", "burning_hands", "sacred_flame", "hold_person", "guiding_bolt", "ray_of_frost"} {
		_, found := r.Lookup(name)
		assert.True(t, found, "expected %s to be registered", name)
	}
	_, found := r.Lookup("meteor_swarm")
	assert.False(t, found)
}

func TestFireballIsAOESaveSpellHalfOnSuccess(t *testing.T) {
	r := NewDefaultSpellRegistry()
	spell, found := r.Lookup("fireball")
	require.True(t, found)
	require.NotNil(t, spell.Save)
	assert.Equal(t, TargetAOE, spell.TargetMode())
	assert.Equal(t, OnSuccessHalf, spell.Save.OnSuccess)
	assert.Equal(t, 3, spell.MinSlotLevel())
	assert.False(t, spell.Concentration())
}

func TestHoldPersonIsConcentrationSingleTargetNoDamage(t *testing.T) {
	r := NewDefaultSpellRegistry()
	spell, found := r.Lookup("hold_person")
	require.True(t, found)
	require.NotNil(t, spell.Save)
	assert.True(t, spell.Concentration())
	assert.Equal(t, TargetSingle, spell.TargetMode())
	assert.Equal(t, OnSuccessNone, spell.Save.OnSuccess)
	assert.Equal(t, []string{"paralyzed"}, spell.Save.OnFailConditions)
	assert.Empty(t, spell.Save.DamageFormula)
}

func TestSacredFlameIsCantripAttackSpell(t *testing.T) {
	r := NewDefaultSpellRegistry()
	spell, found := r.Lookup("sacred_flame")
	require.True(t, found)
	require.NotNil(t, spell.Attack)
	assert.Equal(t, 0, spell.MinSlotLevel())
	assert.Equal(t, AttackRanged, spell.Attack.AttackKind)
}

func TestSpellRegistryIsInstanceNotGlobal(t *testing.T) {
	r1 := NewSpellRegistry()
	r1.RegisterSave(SaveSpell{SpellBase: SpellBase{Name: "test_only"}})
	r2 := NewSpellRegistry()
	_, foundIn1 := r1.Lookup("test_only")
	_, foundIn2 := r2.Lookup("test_only")
	assert.True(t, foundIn1)
	assert.False(t, foundIn2, "a registry built for one test must not leak into another")
}
