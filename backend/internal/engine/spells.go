package engine

// TargetMode constrains how many target ids a spell command must supply.
type TargetMode string

const (
	TargetSingle TargetMode = "single"
	TargetAOE    TargetMode = "aoe"
)

// OnSuccess describes what a save-spell does to a target that makes its
// save.
type OnSuccess string

const (
	OnSuccessHalf OnSuccess = "half"
	OnSuccessNone OnSuccess = "none"
)

// AttackKind distinguishes melee from ranged spell attacks for the
// condition-derived advantage rules (prone punishes melee reach,
// rewards ranged distance).
type AttackKind string

const (
	AttackMelee  AttackKind = "melee"
	AttackRanged AttackKind = "ranged"
)

// SpellBase holds the fields every spell (save or attack) shares.
type SpellBase struct {
	Name           string
	Economy        Economy
	Concentration  bool
	MinSlotLevel   int
	TargetMode     TargetMode
	DamageFormula  string
	DamageType     string
	RangeFt        int
	RequiresLOS    bool
}

// SaveSpell forces targets to roll a saving throw; on a failure it can
// both deal damage and apply standing conditions.
type SaveSpell struct {
	SpellBase
	SaveAbility      string
	OnSuccess        OnSuccess
	OnFailConditions []string
}

// AttackSpell rolls a spell attack against a single target, just like a
// weapon attack but using the caster's spell attack bonus.
type AttackSpell struct {
	SpellBase
	AttackKind AttackKind
}

// Spell is the tagged union CastSpell resolves against: exactly one of
// Save / Attack is non-nil.
type Spell struct {
	Save   *SaveSpell
	Attack *AttackSpell
}

func (s Spell) Name() string {
	if s.Save != nil {
		return s.Save.Name
	}
	return s.Attack.Name
}

func (s Spell) base() SpellBase {
	if s.Save != nil {
		return s.Save.SpellBase
	}
	return s.Attack.SpellBase
}

func (s Spell) Economy() Economy         { return s.base().Economy }
func (s Spell) Concentration() bool      { return s.base().Concentration }
func (s Spell) MinSlotLevel() int        { return s.base().MinSlotLevel }
func (s Spell) TargetMode() TargetMode   { return s.base().TargetMode }
func (s Spell) RangeFt() int             { return s.base().RangeFt }

// SpellRegistry is an explicit, caller-owned catalog of spells, held on
// EncounterState (or passed explicitly to tests) instead of living as a
// package-level var, so multiple rulesets -- or a test fixture with a
// deliberately bogus spell -- can coexist in the same process without
// import-order hazards.
type SpellRegistry struct {
	spells map[string]Spell
}

// NewSpellRegistry returns an empty registry.
func NewSpellRegistry() *SpellRegistry {
	return &SpellRegistry{spells: map[string]Spell{}}
}

func (r *SpellRegistry) RegisterSave(s SaveSpell) {
	r.spells[s.Name] = Spell{Save: &s}
}

func (r *SpellRegistry) RegisterAttack(s AttackSpell) {
	r.spells[s.Name] = Spell{Attack: &s}
}

func (r *SpellRegistry) Lookup(name string) (Spell, bool) {
	s, ok := r.spells[name]
	return s, ok
}

// NewDefaultSpellRegistry returns the core ruleset's starter spells:
// two save-or-half blasts, a save-or-paralyze hold, and three attack
// spells covering the cantrip and leveled cases.
func NewDefaultSpellRegistry() *SpellRegistry {
	r := NewSpellRegistry()

	r.RegisterSave(SaveSpell{
		SpellBase: SpellBase{
			Name: "fireball", Economy: EconomyAction, Concentration: false,
			MinSlotLevel: 3, TargetMode: TargetAOE, DamageFormula: "8d6",
			DamageType: "fire", RangeFt: 150, RequiresLOS: true,
		},
		SaveAbility: "dex", OnSuccess: OnSuccessHalf,
	})

	r.RegisterSave(SaveSpell{
		SpellBase: SpellBase{
			Name: "burning_hands", Economy: EconomyAction, Concentration: false,
			MinSlotLevel: 1, TargetMode: TargetAOE, DamageFormula: "3d6",
			DamageType: "fire", RangeFt: 15, RequiresLOS: true,
		},
		SaveAbility: "dex", OnSuccess: OnSuccessHalf,
	})

	r.RegisterAttack(AttackSpell{
		SpellBase: SpellBase{
			Name: "sacred_flame", Economy: EconomyAction, Concentration: false,
			MinSlotLevel: 0, TargetMode: TargetSingle, DamageFormula: "1d8",
			DamageType: "radiant", RangeFt: 60, RequiresLOS: true,
		},
		AttackKind: AttackRanged,
	})

	r.RegisterSave(SaveSpell{
		SpellBase: SpellBase{
			Name: "hold_person", Economy: EconomyAction, Concentration: true,
			MinSlotLevel: 2, TargetMode: TargetSingle, DamageFormula: "",
			DamageType: "", RangeFt: 60, RequiresLOS: true,
		},
		SaveAbility: "wis", OnSuccess: OnSuccessNone,
		OnFailConditions: []string{"paralyzed"},
	})

	r.RegisterAttack(AttackSpell{
		SpellBase: SpellBase{
			Name: "guiding_bolt", Economy: EconomyAction, Concentration: false,
			MinSlotLevel: 1, TargetMode: TargetSingle, DamageFormula: "4d6",
			DamageType: "radiant", RangeFt: 120, RequiresLOS: true,
		},
		AttackKind: AttackRanged,
	})

	r.RegisterAttack(AttackSpell{
		SpellBase: SpellBase{
			Name: "ray_of_frost", Economy: EconomyAction, Concentration: false,
			MinSlotLevel: 0, TargetMode: TargetSingle, DamageFormula: "1d8",
			DamageType: "cold", RangeFt: 60, RequiresLOS: true,
		},
		AttackKind: AttackRanged,
	})

	return r
}
