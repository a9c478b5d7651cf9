package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollParsesNotation(t *testing.T) {
	r := NewSeededRoller(1)

	result, err := r.Roll("2d6+3")
	require.NoError(t, err)
	assert.Len(t, result.Dice, 2)
	assert.Equal(t, 3, result.Modifier)

	sum := result.Modifier
	for _, d := range result.Dice {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, 6)
		sum += d
	}
	assert.Equal(t, sum, result.Total)
}

func TestRollNegativeModifier(t *testing.T) {
	r := NewSeededRoller(2)
	result, err := r.Roll("1d20-2")
	require.NoError(t, err)
	assert.Equal(t, -2, result.Modifier)
	assert.Equal(t, result.Dice[0]-2, result.Total)
}

func TestRollRejectsBadInput(t *testing.T) {
	r := NewSeededRoller(3)
	for _, notation := range []string{"", "d6", "2x6", "0d6", "101d6", "1d7", "1d3"} {
		_, err := r.Roll(notation)
		assert.Error(t, err, "notation %q should be rejected", notation)
	}
}

func TestSeededRollerIsDeterministic(t *testing.T) {
	r1 := NewSeededRoller(42)
	r2 := NewSeededRoller(42)
	for i := 0; i < 10; i++ {
		a, err := r1.Roll("3d8+1")
		require.NoError(t, err)
		b, err := r2.Roll("3d8+1")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRollAdvantageKeepsHigher(t *testing.T) {
	r := NewSeededRoller(7)
	result, err := r.RollAdvantage()
	require.NoError(t, err)

	check := NewSeededRoller(7)
	a, _ := check.Roll("1d20")
	b, _ := check.Roll("1d20")
	want := a
	if b.Total > a.Total {
		want = b
	}
	assert.Equal(t, want.Total, result.Total)
}

func TestRollDisadvantageKeepsLower(t *testing.T) {
	r := NewSeededRoller(7)
	result, err := r.RollDisadvantage()
	require.NoError(t, err)

	check := NewSeededRoller(7)
	a, _ := check.Roll("1d20")
	b, _ := check.Roll("1d20")
	want := a
	if b.Total < a.Total {
		want = b
	}
	assert.Equal(t, want.Total, result.Total)
}
