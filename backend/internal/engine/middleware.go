package engine

// RollMiddleware is a capability hook contributing additive modifiers to
// rolls before they are recorded in an event. Each method returns mods to
// append; nat and is_critical are never touched by middleware. A fixed,
// ordered slice of middlewares is owned by the caller (typically the
// hosting layer, which builds it once with DefaultRollMiddlewares) and
// passed into Apply.
type RollMiddleware interface {
	BeforeAttackRoll(state *EncounterState, attacker, target *Combatant, attackName string) []RollMod
	BeforeSaveRoll(state *EncounterState, roller *Combatant, saveAbility, sourceID, effectName string) []RollMod
	BeforeDamageRoll(state *EncounterState, source, target *Combatant, damageType, sourceKind string) []RollMod
}

// applyAttackMiddleware runs every middleware's BeforeAttackRoll hook in
// order, appending mods to roll.
func applyAttackMiddleware(mws []RollMiddleware, state *EncounterState, roll *Roll, attacker, target *Combatant, attackName string) {
	for _, mw := range mws {
		for _, mod := range mw.BeforeAttackRoll(state, attacker, target, attackName) {
			roll.addMod(mod.Name, mod.Value)
		}
	}
}

func applySaveMiddleware(mws []RollMiddleware, state *EncounterState, roll *Roll, roller *Combatant, saveAbility, sourceID, effectName string) {
	for _, mw := range mws {
		for _, mod := range mw.BeforeSaveRoll(state, roller, saveAbility, sourceID, effectName) {
			roll.addMod(mod.Name, mod.Value)
		}
	}
}

func applyDamageMiddleware(mws []RollMiddleware, state *EncounterState, roll *Roll, source, target *Combatant, damageType, sourceKind string) {
	for _, mw := range mws {
		for _, mod := range mw.BeforeDamageRoll(state, source, target, damageType, sourceKind) {
			roll.addMod(mod.Name, mod.Value)
		}
	}
}

// BlessMiddleware is the reference roll middleware: while
// the actor is the target of an active effect named "bless", attack and
// save rolls gain a freshly rolled +1d4.
type BlessMiddleware struct{}

func (BlessMiddleware) hasBless(state *EncounterState, combatantID string) bool {
	for _, eff := range state.Effects() {
		if eff.Name == "bless" && eff.TargetID == combatantID {
			return true
		}
	}
	return false
}

func (b BlessMiddleware) BeforeAttackRoll(state *EncounterState, attacker, target *Combatant, attackName string) []RollMod {
	if attacker == nil || !b.hasBless(state, attacker.ID) {
		return nil
	}
	return []RollMod{{Name: "bless", Value: state.RollD4()}}
}

func (b BlessMiddleware) BeforeSaveRoll(state *EncounterState, roller *Combatant, saveAbility, sourceID, effectName string) []RollMod {
	if roller == nil || !b.hasBless(state, roller.ID) {
		return nil
	}
	return []RollMod{{Name: "bless", Value: state.RollD4()}}
}

func (BlessMiddleware) BeforeDamageRoll(state *EncounterState, source, target *Combatant, damageType, sourceKind string) []RollMod {
	return nil
}

// DefaultRollMiddlewares is the engine's out-of-the-box middleware chain.
func DefaultRollMiddlewares() []RollMiddleware {
	return []RollMiddleware{BlessMiddleware{}}
}
