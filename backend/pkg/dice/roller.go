// Package dice is the boundary dice roller behind the table-roll HTTP
// endpoint: quick out-of-combat checks a GM wants without touching an
// encounter. In-combat rolls never come from here -- they are drawn from
// the encounter's own seeded PRNG inside internal/engine so that command
// replay stays deterministic.
package dice

import (
	"errors"
	"math/rand"
	"regexp"
	"strconv"
	"time"
)

type Roller struct {
	rng *rand.Rand
}

type RollResult struct {
	Notation string `json:"notation"`
	Dice     []int  `json:"dice"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}

// NewRoller returns a clock-seeded roller for ad-hoc table rolls.
func NewRoller() *Roller {
	return NewSeededRoller(time.Now().UnixNano())
}

// NewSeededRoller returns a deterministic roller, used by tests.
func NewSeededRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

var notationRe = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// physicalDice are the die sizes on a real table. Table rolls are kept to
// this set deliberately; the engine's own formula parser is wider because
// statblock formulas are data, not player input.
var physicalDice = map[int]bool{4: true, 6: true, 8: true, 10: true, 12: true, 20: true, 100: true}

// Roll parses dice notation like "2d6+3" or "1d20-2" and rolls it.
func (r *Roller) Roll(notation string) (*RollResult, error) {
	matches := notationRe.FindStringSubmatch(notation)
	if len(matches) == 0 {
		return nil, errors.New("invalid dice notation")
	}

	count, _ := strconv.Atoi(matches[1])
	sides, _ := strconv.Atoi(matches[2])

	modifier := 0
	if matches[3] != "" {
		modifier, _ = strconv.Atoi(matches[3])
	}

	if count < 1 || count > 100 {
		return nil, errors.New("dice count must be between 1 and 100")
	}
	if !physicalDice[sides] {
		return nil, errors.New("invalid dice type")
	}

	result := &RollResult{
		Notation: notation,
		Dice:     make([]int, count),
		Modifier: modifier,
		Total:    modifier,
	}
	for i := 0; i < count; i++ {
		roll := r.rng.Intn(sides) + 1
		result.Dice[i] = roll
		result.Total += roll
	}
	return result, nil
}

// RollAdvantage rolls 1d20 twice and keeps the higher.
func (r *Roller) RollAdvantage() (*RollResult, error) {
	roll1, _ := r.Roll("1d20")
	roll2, _ := r.Roll("1d20")
	if roll1.Total >= roll2.Total {
		return roll1, nil
	}
	return roll2, nil
}

// RollDisadvantage rolls 1d20 twice and keeps the lower.
func (r *Roller) RollDisadvantage() (*RollResult, error) {
	roll1, _ := r.Roll("1d20")
	roll2, _ := r.Roll("1d20")
	if roll1.Total <= roll2.Total {
		return roll1, nil
	}
	return roll2, nil
}
