package engine

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// SnapshotSchemaVersion is bumped whenever the wire shape of Snapshot
// changes in a way that is not forward-decodable by an older reader.
const SnapshotSchemaVersion = 1

// wireCombatant is Combatant re-expressed with plain, JSON-stable shapes:
// sets as string slices, Position as a two-element array, rather than the
// live maps/structs the engine mutates in place.
type wireCombatant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AC        int    `json:"ac"`
	HPCurrent int    `json:"hp_current"`
	HPMax     int    `json:"hp_max"`
	TempHP    int    `json:"temp_hp"`
	SpeedFt   int    `json:"speed_ft"`
	Side      Side   `json:"side,omitempty"`
	HasSide   bool   `json:"has_side"`
	Position  [2]int `json:"position"`

	SpellcastingAbility string       `json:"spellcasting_ability,omitempty"`
	SpellSaveDC         int          `json:"spell_save_dc,omitempty"`
	HasSpellSaveDC      bool         `json:"has_spell_save_dc"`
	SpellAttackBonus    int          `json:"spell_attack_bonus,omitempty"`
	HasSpellAttackBonus bool         `json:"has_spell_attack_bonus"`
	SpellSlotsCurrent   map[int]int  `json:"spell_slots_current,omitempty"`
	SpellSlotsMax       map[int]int  `json:"spell_slots_max,omitempty"`
	Concentration       *EffectRef   `json:"concentration,omitempty"`

	SaveBonuses           map[string]int `json:"save_bonuses,omitempty"`
	DamageResistances     []string       `json:"damage_resistances,omitempty"`
	DamageVulnerabilities []string       `json:"damage_vulnerabilities,omitempty"`
	DamageImmunities      []string       `json:"damage_immunities,omitempty"`
	Conditions            []string       `json:"conditions,omitempty"`

	IsPlayerCharacter bool       `json:"is_player_character"`
	DeathSaves        DeathSaves `json:"death_saves"`
	IsStable          bool       `json:"is_stable"`
	IsDead            bool       `json:"is_dead"`

	Attacks          map[string]AttackProfile `json:"attacks,omitempty"`
	Multiattacks     map[string][]string      `json:"multiattacks,omitempty"`
	AttacksPerAction int                      `json:"attacks_per_action"`

	ActionAvailable                  bool `json:"action_available"`
	BonusAvailable                   bool `json:"bonus_available"`
	ReactionAvailable                bool `json:"reaction_available"`
	MovementRemainingFt              int  `json:"movement_remaining_ft"`
	AttackActionStarted              bool `json:"attack_action_started"`
	AttackActionRemaining            int  `json:"attack_action_remaining"`
	NoOpportunityAttacksUntilTurnEnd bool `json:"no_opportunity_attacks_until_turn_end"`

	Surprised         bool           `json:"surprised"`
	HasTakenFirstTurn bool           `json:"has_taken_first_turn"`
	InitiativeBonus   int            `json:"initiative_bonus"`
	ResourcesCurrent  map[string]int `json:"resources_current,omitempty"`
	ResourcesMax      map[string]int `json:"resources_max,omitempty"`
}

func setToList(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	return out
}

func listToSet(list []string) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, k := range list {
		out[k] = true
	}
	return out
}

func toWireCombatant(c *Combatant) wireCombatant {
	return wireCombatant{
		ID: c.ID, Name: c.Name, AC: c.AC, HPCurrent: c.HPCurrent, HPMax: c.HPMax,
		TempHP: c.TempHP, SpeedFt: c.SpeedFt, Side: c.Side, HasSide: c.HasSide,
		Position:              [2]int{c.Position.X, c.Position.Y},
		SpellcastingAbility:   c.SpellcastingAbility,
		SpellSaveDC:           c.SpellSaveDC,
		HasSpellSaveDC:        c.HasSpellSaveDC,
		SpellAttackBonus:      c.SpellAttackBonus,
		HasSpellAttackBonus:   c.HasSpellAttackBonus,
		SpellSlotsCurrent:     c.SpellSlotsCurrent,
		SpellSlotsMax:         c.SpellSlotsMax,
		Concentration:         c.Concentration,
		SaveBonuses:           c.SaveBonuses,
		DamageResistances:     setToList(c.DamageResistances),
		DamageVulnerabilities: setToList(c.DamageVulnerabilities),
		DamageImmunities:      setToList(c.DamageImmunities),
		Conditions:            setToList(c.Conditions),
		IsPlayerCharacter:     c.IsPlayerCharacter,
		DeathSaves:            c.DeathSaves,
		IsStable:              c.IsStable,
		IsDead:                c.IsDead,
		Attacks:               c.Attacks,
		Multiattacks:          c.Multiattacks,
		AttacksPerAction:      c.AttacksPerAction,
		ActionAvailable:       c.ActionAvailable,
		BonusAvailable:        c.BonusAvailable,
		ReactionAvailable:     c.ReactionAvailable,
		MovementRemainingFt:   c.MovementRemainingFt,
		AttackActionStarted:   c.AttackActionStarted,
		AttackActionRemaining: c.AttackActionRemaining,
		NoOpportunityAttacksUntilTurnEnd: c.NoOpportunityAttacksUntilTurnEnd,
		Surprised:         c.Surprised,
		HasTakenFirstTurn: c.HasTakenFirstTurn,
		InitiativeBonus:   c.InitiativeBonus,
		ResourcesCurrent:  c.ResourcesCurrent,
		ResourcesMax:      c.ResourcesMax,
	}
}

func fromWireCombatant(w wireCombatant) *Combatant {
	c := NewCombatant(w.ID, w.Name)
	c.AC, c.HPCurrent, c.HPMax, c.TempHP, c.SpeedFt = w.AC, w.HPCurrent, w.HPMax, w.TempHP, w.SpeedFt
	c.Side, c.HasSide = w.Side, w.HasSide
	c.Position = Position{X: w.Position[0], Y: w.Position[1]}
	c.SpellcastingAbility = w.SpellcastingAbility
	c.SpellSaveDC, c.HasSpellSaveDC = w.SpellSaveDC, w.HasSpellSaveDC
	c.SpellAttackBonus, c.HasSpellAttackBonus = w.SpellAttackBonus, w.HasSpellAttackBonus
	if w.SpellSlotsCurrent != nil {
		c.SpellSlotsCurrent = w.SpellSlotsCurrent
	}
	if w.SpellSlotsMax != nil {
		c.SpellSlotsMax = w.SpellSlotsMax
	}
	c.Concentration = w.Concentration
	if w.SaveBonuses != nil {
		c.SaveBonuses = w.SaveBonuses
	}
	c.DamageResistances = listToSet(w.DamageResistances)
	c.DamageVulnerabilities = listToSet(w.DamageVulnerabilities)
	c.DamageImmunities = listToSet(w.DamageImmunities)
	c.Conditions = listToSet(w.Conditions)
	c.IsPlayerCharacter = w.IsPlayerCharacter
	c.DeathSaves = w.DeathSaves
	c.IsStable, c.IsDead = w.IsStable, w.IsDead
	if w.Attacks != nil {
		c.Attacks = w.Attacks
	}
	if w.Multiattacks != nil {
		c.Multiattacks = w.Multiattacks
	}
	c.AttacksPerAction = w.AttacksPerAction
	c.ActionAvailable, c.BonusAvailable, c.ReactionAvailable = w.ActionAvailable, w.BonusAvailable, w.ReactionAvailable
	c.MovementRemainingFt = w.MovementRemainingFt
	c.AttackActionStarted, c.AttackActionRemaining = w.AttackActionStarted, w.AttackActionRemaining
	c.NoOpportunityAttacksUntilTurnEnd = w.NoOpportunityAttacksUntilTurnEnd
	c.Surprised, c.HasTakenFirstTurn = w.Surprised, w.HasTakenFirstTurn
	c.InitiativeBonus = w.InitiativeBonus
	if w.ResourcesCurrent != nil {
		c.ResourcesCurrent = w.ResourcesCurrent
	}
	if w.ResourcesMax != nil {
		c.ResourcesMax = w.ResourcesMax
	}
	return c
}

type wireEffect struct {
	*ActiveEffect
	AppliesConditions []string `json:"applies_conditions"`
}

type wireState struct {
	Round               int                  `json:"round"`
	TurnOwnerID         string               `json:"turn_owner_id,omitempty"`
	HasTurnOwner        bool                 `json:"has_turn_owner"`
	InitiativeOrder     []string             `json:"initiative_order,omitempty"`
	Phase               Phase                `json:"phase"`
	Seq                 uint64               `json:"seq"`
	T                    uint64              `json:"t"`
	CombatantOrder      []string             `json:"combatant_order"`
	Combatants          map[string]wireCombatant `json:"combatants"`
	RNGSeed             int64                `json:"rng_seed"`
	RNGLog              []int                `json:"rng_log"`
	ReactionWindow      *ReactionWindow      `json:"reaction_window,omitempty"`
	CombatStarted       bool                 `json:"combat_started"`
	InitiativeFinalized bool                 `json:"initiative_finalized"`
	Initiatives         map[string]int       `json:"initiatives"`
	Effects             map[string]json.RawMessage `json:"effects"`
	EffectSeq           int                  `json:"effect_seq"`
}

// Snapshot is the persisted envelope: schema version, encoded state, and
// the events produced by the call that led to this snapshot.
type Snapshot struct {
	SchemaVersion int             `json:"schema_version"`
	State         json.RawMessage `json:"state"`
	Events        []Event         `json:"events"`
}

// Encode serialises state plus the events produced by the call that led
// to this snapshot into the envelope.
func Encode(state *EncounterState, events []Event) ([]byte, error) {
	ws := wireState{
		Round: state.Round, TurnOwnerID: state.TurnOwnerID, HasTurnOwner: state.HasTurnOwner,
		InitiativeOrder: state.InitiativeOrder, Phase: state.Phase, Seq: state.Seq, T: state.T,
		CombatantOrder: state.combatantOrder, Combatants: map[string]wireCombatant{},
		RNGSeed: state.RNGSeed, RNGLog: state.rngLog, ReactionWindow: state.ReactionWindow,
		CombatStarted: state.CombatStarted, InitiativeFinalized: state.InitiativeFinalized,
		Initiatives: state.Initiatives, Effects: map[string]json.RawMessage{}, EffectSeq: state.effectSeq,
	}
	for id, c := range state.combatants {
		ws.Combatants[id] = toWireCombatant(c)
	}
	for id, e := range state.effects {
		raw, err := json.Marshal(wireEffect{ActiveEffect: e, AppliesConditions: setToList(e.AppliesConditions)})
		if err != nil {
			return nil, fmt.Errorf("engine: encode effect %s: %w", id, err)
		}
		ws.Effects[id] = raw
	}
	stateJSON, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("engine: encode state: %w", err)
	}
	snap := Snapshot{SchemaVersion: SnapshotSchemaVersion, State: stateJSON, Events: events}
	return json.Marshal(snap)
}

// Decode accepts either a full {schema_version, state, events} envelope
// or a legacy bare-state object saved before the envelope existed.
func Decode(data []byte, spells *SpellRegistry) (*EncounterState, []Event, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, fmt.Errorf("engine: decode snapshot: %w", err)
	}

	var stateRaw json.RawMessage
	var events []Event
	if raw, hasState := probe["state"]; hasState {
		stateRaw = raw
		if rawEvents, ok := probe["events"]; ok {
			if err := json.Unmarshal(rawEvents, &events); err != nil {
				return nil, nil, fmt.Errorf("engine: decode snapshot events: %w", err)
			}
		}
	} else {
		stateRaw = data
	}

	var ws wireState
	if err := json.Unmarshal(stateRaw, &ws); err != nil {
		return nil, nil, fmt.Errorf("engine: decode state: %w", err)
	}

	state := NewEncounterState(ws.RNGSeed, spells)
	state.Round, state.TurnOwnerID, state.HasTurnOwner = ws.Round, ws.TurnOwnerID, ws.HasTurnOwner
	state.InitiativeOrder, state.Phase, state.Seq, state.T = ws.InitiativeOrder, ws.Phase, ws.Seq, ws.T
	state.ReactionWindow = ws.ReactionWindow
	state.CombatStarted, state.InitiativeFinalized = ws.CombatStarted, ws.InitiativeFinalized
	if ws.Initiatives != nil {
		state.Initiatives = ws.Initiatives
	}
	state.effectSeq = ws.EffectSeq

	state.combatants = map[string]*Combatant{}
	for _, id := range ws.CombatantOrder {
		wc, ok := ws.Combatants[id]
		if !ok {
			return nil, nil, fmt.Errorf("engine: decode snapshot: combatant_order references unknown id %q", id)
		}
		state.combatants[id] = fromWireCombatant(wc)
	}
	state.combatantOrder = ws.CombatantOrder

	state.effects = map[string]*ActiveEffect{}
	for id, raw := range ws.Effects {
		var we wireEffect
		we.ActiveEffect = &ActiveEffect{}
		if err := json.Unmarshal(raw, &we); err != nil {
			return nil, nil, fmt.Errorf("engine: decode effect %s: %w", id, err)
		}
		we.ActiveEffect.AppliesConditions = listToSet(we.AppliesConditions)
		state.effects[id] = we.ActiveEffect
	}

	state.rng = rand.New(rand.NewSource(ws.RNGSeed))
	state.rngLog = nil
	for _, n := range ws.RNGLog {
		state.rngIntn(n)
	}

	return state, events, nil
}
