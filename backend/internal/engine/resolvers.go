package engine

// resolveSaveSpell rolls damage once, shared across all targets, then
// walks each target through its save. On-fail conditions anchor a new
// ActiveEffect to the caster's current concentration, if any.
func resolveSaveSpell(state *EncounterState, events *[]Event, mws []RollMiddleware, caster *Combatant, spell *SaveSpell, targetIDs []string, concentrationOwnerID, concentrationEffectName string) {
	var sharedRoll *Roll
	if spell.DamageFormula != "" {
		r, err := state.RollDamage(spell.DamageFormula, false)
		if err == nil {
			applyDamageMiddleware(mws, state, r, caster, nil, spell.DamageType, "spell")
			sharedRoll = r
		}
	}

	for _, tid := range targetIDs {
		target, found := state.Combatant(tid)
		if !found {
			continue
		}
		roll := state.RollSaveD20(target.SaveBonuses[spell.SaveAbility], AdvNormal)
		applySaveMiddleware(mws, state, roll, target, spell.SaveAbility, caster.ID, spell.Name)
		emit(events, state, EvtSavingThrowRolled, target.ID, map[string]any{
			"target_id": target.ID, "ability": spell.SaveAbility, "dc": caster.SpellSaveDC, "roll": rollPayload(roll),
		})
		success := roll.Total >= caster.SpellSaveDC
		if success {
			emit(events, state, EvtSavingThrowSucceeded, target.ID, map[string]any{"target_id": target.ID})
		} else {
			emit(events, state, EvtSavingThrowFailed, target.ID, map[string]any{"target_id": target.ID, "margin": caster.SpellSaveDC - roll.Total})
		}

		if success && spell.OnSuccess == OnSuccessNone {
			emit(events, state, EvtSaveEffectNegated, target.ID, map[string]any{"target_id": target.ID})
		} else if sharedRoll != nil {
			base := sharedRoll.Total
			if success && spell.OnSuccess == OnSuccessHalf {
				base /= 2
			}
			adjusted, modifier := adjustDamageForTarget(target, base, spell.DamageType)
			emit(events, state, EvtEffectDamageRolled, target.ID, map[string]any{"target_id": target.ID, "roll": rollPayload(sharedRoll), "damage_type": spell.DamageType})
			hpBefore := target.HPCurrent
			target.HPCurrent -= adjusted
			if target.HPCurrent < 0 {
				target.HPCurrent = 0
			}
			emit(events, state, EvtEffectDamageApplied, target.ID, map[string]any{
				"target_id": target.ID, "adjusted": base, "adjusted_final": adjusted,
				"hp_before": hpBefore, "hp_after": target.HPCurrent, "modifier": modifier,
			})
			maybeRunConcentrationCheck(state, events, mws, target, adjusted, spell.DamageType, "spell", caster.ID)
			maybeUnconscious(state, events, target, target.HPCurrent)
		}

		if !success && len(spell.OnFailConditions) > 0 {
			applySpellFailConditions(state, events, caster, target, spell.Name, spell.OnFailConditions, concentrationOwnerID, concentrationEffectName)
		}
	}
}

func applySpellFailConditions(state *EncounterState, events *[]Event, caster, target *Combatant, spellName string, conditions []string, concentrationOwnerID, concentrationEffectName string) {
	eff := &ActiveEffect{
		ID:                eventSideEffectID(state),
		Name:              spellName,
		SourceID:          caster.ID,
		TargetID:          target.ID,
		StartedRound:      state.Round,
		AppliesConditions: map[string]bool{},
	}
	if concentrationOwnerID != "" {
		eff.HasConcentrationOwner = true
		eff.ConcentrationOwnerID = concentrationOwnerID
		eff.ConcentrationEffectName = concentrationEffectName
	}
	for _, cond := range conditions {
		eff.AppliesConditions[cond] = true
		target.Conditions[cond] = true
	}
	state.PutEffect(eff)
	emit(events, state, EvtEffectApplied, target.ID, map[string]any{"effect_id": eff.ID, "name": spellName, "target_id": target.ID, "conditions": conditions})
	for _, cond := range conditions {
		emit(events, state, EvtConditionApplied, target.ID, map[string]any{"target_id": target.ID, "condition": cond, "reason": "spell:" + spellName})
	}
}

func eventSideEffectID(state *EncounterState) string {
	return state.NewEffectID()
}

// resolveAttackSpell resolves the spell as a weapon-style attack against
// the sole target, using the caster's spell attack bonus.
func resolveAttackSpell(state *EncounterState, events *[]Event, mws []RollMiddleware, caster *Combatant, spell *AttackSpell, targetIDs []string) {
	if len(targetIDs) == 0 {
		return
	}
	target, found := state.Combatant(targetIDs[0])
	if !found {
		return
	}
	emit(events, state, EvtAttackDeclared, caster.ID, map[string]any{"attacker_id": caster.ID, "target_id": target.ID, "attack_name": spell.Name, "economy": string(spell.Economy)})
	resolveAttack(state, events, mws, caster, target, caster.SpellAttackBonus, spell.DamageFormula, spell.DamageType, spell.Name, AdvNormal, spell.AttackKind)
}
