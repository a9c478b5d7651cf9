// Package engine implements the deterministic, event-sourced combat rules
// engine: a pure (state, command) -> (state, events) reducer plus its
// supporting data model, validator, dice/RNG, roll middleware and spell
// registry. Nothing in this package talks to a database, the network, or
// a clock; every source of non-determinism is threaded in explicitly
// through EncounterState.
package engine

import "math/rand"

// Phase is the encounter's coarse lifecycle state.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseSetupInitiative  Phase = "setup_initiative"
	PhaseInTurn           Phase = "in_turn"
	PhaseReactionWindow   Phase = "reaction_window"
	PhaseFinished         Phase = "finished"
)

// Side is a faction tag used to determine hostility.
type Side string

const (
	SidePlayers Side = "party"
	SideEnemies Side = "enemies"
)

// AdvState is the advantage/disadvantage state of a d20 roll.
type AdvState string

const (
	AdvNormal       AdvState = "normal"
	AdvAdvantage    AdvState = "advantage"
	AdvDisadvantage AdvState = "disadvantage"
)

// Economy identifies which per-turn resource a command consumes.
type Economy string

const (
	EconomyAction  Economy = "action"
	EconomyBonus   Economy = "bonus"
	EconomyReaction Economy = "reaction"
)

// Position is a grid cell. Distance between cells is Chebyshev, scaled by
// 5 ft per square.
type Position struct {
	X int
	Y int
}

// AttackProfile describes one named attack a combatant can make.
type AttackProfile struct {
	Name           string
	ToHitBonus     int
	DamageFormula  string
	DamageType     string
	ReachFt        int
	UsesAction     bool
	UsesBonus      bool
}

// EffectRef names the effect a combatant's concentration currently
// sustains.
type EffectRef struct {
	EffectName   string
	SourceID     string
	StartedRound int
}

// DeathSaves tracks a dying player character's accumulated death-save
// outcomes.
type DeathSaves struct {
	Successes int
	Failures  int
}

// Combatant is one participant in an encounter: a PC, NPC, or monster.
type Combatant struct {
	ID       string
	Name     string
	AC       int
	HPCurrent int
	HPMax    int
	TempHP   int
	SpeedFt  int
	Side     Side
	HasSide  bool // false => legacy "no side" => always hostile to everyone
	Position Position

	SpellcastingAbility string
	SpellSaveDC         int
	HasSpellSaveDC      bool
	SpellAttackBonus    int
	HasSpellAttackBonus bool
	SpellSlotsCurrent   map[int]int
	SpellSlotsMax       map[int]int
	Concentration       *EffectRef

	SaveBonuses          map[string]int
	DamageResistances    map[string]bool
	DamageVulnerabilities map[string]bool
	DamageImmunities     map[string]bool
	Conditions           map[string]bool

	IsPlayerCharacter bool
	DeathSaves        DeathSaves
	IsStable          bool
	IsDead            bool

	Attacks         map[string]AttackProfile
	Multiattacks    map[string][]string
	AttacksPerAction int

	ActionAvailable    bool
	BonusAvailable     bool
	ReactionAvailable  bool
	MovementRemainingFt int
	AttackActionStarted bool
	AttackActionRemaining int
	NoOpportunityAttacksUntilTurnEnd bool

	Surprised         bool
	HasTakenFirstTurn bool
	InitiativeBonus   int
	ResourcesCurrent  map[string]int
	ResourcesMax      map[string]int
}

// NewCombatant returns a Combatant with every map field initialised and
// sane defaults (full action economy, no conditions).
func NewCombatant(id, name string) *Combatant {
	return &Combatant{
		ID:                   id,
		Name:                 name,
		AttacksPerAction:     1,
		SpellSlotsCurrent:    map[int]int{},
		SpellSlotsMax:        map[int]int{},
		SaveBonuses:          map[string]int{},
		DamageResistances:    map[string]bool{},
		DamageVulnerabilities: map[string]bool{},
		DamageImmunities:     map[string]bool{},
		Conditions:           map[string]bool{},
		Attacks:              map[string]AttackProfile{},
		Multiattacks:         map[string][]string{},
		ResourcesCurrent:     map[string]int{},
		ResourcesMax:         map[string]int{},
		ActionAvailable:      true,
		BonusAvailable:       true,
		ReactionAvailable:    true,
	}
}

func (c *Combatant) HasCondition(tag string) bool {
	return c.Conditions[tag]
}

// EffectiveSpeedFt is the combatant's movement budget for a fresh turn.
// Grappled and restrained combatants have no effective speed; the rest of
// the condition matrix that could reduce speed further is outside this
// spec's rule set.
func (c *Combatant) EffectiveSpeedFt() int {
	if c.HasCondition("grappled") || c.HasCondition("restrained") {
		return 0
	}
	return c.SpeedFt
}

// AreHostile implements the legacy-defaults-to-hostile side rule: absence
// of a side on either combatant means "treat as hostile".
func AreHostile(a, b *Combatant) bool {
	if !a.HasSide || !b.HasSide {
		return true
	}
	return a.Side != b.Side
}

// AbilityMod is the standard floor((score-10)/2) ability modifier. Unused
// directly by the reducer (bonuses are pre-baked onto Combatant), kept for
// callers building fixtures from raw ability scores.
func AbilityMod(score int) int {
	diff := score - 10
	if diff >= 0 {
		return diff / 2
	}
	// floor division for negatives: Go truncates toward zero.
	if diff%2 != 0 {
		return diff/2 - 1
	}
	return diff / 2
}

// ActiveEffect is a standing effect anchored either to a spell's
// concentration or nothing (permanent until explicitly ended).
type ActiveEffect struct {
	ID                      string
	Name                    string
	SourceID                string
	TargetID                string
	StartedRound            int
	DurationRounds          int
	HasDuration             bool
	ConcentrationOwnerID    string
	HasConcentrationOwner   bool
	ConcentrationEffectName string
	AppliesConditions       map[string]bool
}

// ReactionWindow is a transient state blocking all commands except
// UseReaction / DeclineReaction.
type ReactionWindow struct {
	ID             string
	Trigger        string
	MoverID        string
	ThreatenedByID string
	ReachFt        int
}

// EncounterState is the entire mutable world the engine operates over. It
// owns its combatants, effects, reaction window, and PRNG; nothing outside
// a reducer call may mutate it.
type EncounterState struct {
	Round              int
	TurnOwnerID        string
	HasTurnOwner       bool
	InitiativeOrder    []string
	Phase              Phase
	Seq                uint64
	T                  uint64

	combatants      map[string]*Combatant
	combatantOrder  []string

	RNGSeed  int64
	rng      *rand.Rand
	rngLog   []int

	ReactionWindow *ReactionWindow

	CombatStarted       bool
	InitiativeFinalized bool
	Initiatives         map[string]int

	effects   map[string]*ActiveEffect
	effectSeq int

	Spells *SpellRegistry
}

// NewEncounterState builds an empty encounter seeded deterministically.
// Combatants must be added via AddCombatant before StartCombat.
func NewEncounterState(seed int64, spells *SpellRegistry) *EncounterState {
	if spells == nil {
		spells = NewDefaultSpellRegistry()
	}
	return &EncounterState{
		Round:       1,
		Phase:       PhaseIdle,
		combatants:  map[string]*Combatant{},
		RNGSeed:     seed,
		rng:         rand.New(rand.NewSource(seed)),
		Initiatives: map[string]int{},
		effects:     map[string]*ActiveEffect{},
		Spells:      spells,
	}
}

// AddCombatant inserts a combatant, recording insertion order. Insertion
// order is load-bearing: the opportunity-attack tie-break and any
// default-iteration behaviour walk combatantOrder, never Go's randomized
// map iteration.
func (s *EncounterState) AddCombatant(c *Combatant) {
	if _, exists := s.combatants[c.ID]; exists {
		s.combatants[c.ID] = c
		return
	}
	s.combatants[c.ID] = c
	s.combatantOrder = append(s.combatantOrder, c.ID)
}

func (s *EncounterState) Combatant(id string) (*Combatant, bool) {
	c, ok := s.combatants[id]
	return c, ok
}

// CombatantsInOrder returns combatants in insertion order.
func (s *EncounterState) CombatantsInOrder() []*Combatant {
	out := make([]*Combatant, 0, len(s.combatantOrder))
	for _, id := range s.combatantOrder {
		out = append(out, s.combatants[id])
	}
	return out
}

func (s *EncounterState) CombatantCount() int {
	return len(s.combatantOrder)
}

func (s *EncounterState) Effect(id string) (*ActiveEffect, bool) {
	e, ok := s.effects[id]
	return e, ok
}

func (s *EncounterState) Effects() map[string]*ActiveEffect {
	return s.effects
}

func (s *EncounterState) PutEffect(e *ActiveEffect) {
	s.effects[e.ID] = e
}

func (s *EncounterState) DeleteEffect(id string) {
	delete(s.effects, id)
}

// NewEffectID mints the next "E<n>" effect id.
func (s *EncounterState) NewEffectID() string {
	s.effectSeq++
	return formatEffectID(s.effectSeq)
}

func formatEffectID(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return "E0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%10]
		n /= 10
	}
	return "E" + string(buf[i:])
}

// Bump increments the monotonic seq/t pair and returns the values the next
// event must carry. Every event construction is preceded by exactly one
// call to Bump.
func (s *EncounterState) Bump() (uint64, uint64) {
	s.Seq++
	s.T++
	return s.Seq, s.T
}

// rngIntn centralises access to the underlying *rand.Rand. math/rand.Rand
// exposes no way to read back its internal Mersenne-Twister-style state, so
// the codec instead replays the exact sequence of Intn(n) calls recorded in
// rngLog against a freshly seeded source to fast-forward it to the same
// position -- cheaper than hand-rolling a snapshot-able source and exact as
// long as every draw in the package goes through this one method.
func (s *EncounterState) rngIntn(n int) int {
	s.rngLog = append(s.rngLog, n)
	return s.rng.Intn(n)
}
