package engine

import "sort"

// Apply is the engine's single entry point: validate, then either emit one
// CommandRejected event or perform the command's transitions and return the
// full event sequence it produced. state is mutated in place on success; on
// rejection only the seq/t counters advance, for the CommandRejected event.
func Apply(state *EncounterState, cmd Command, mws []RollMiddleware) []Event {
	preview, verr := Validate(state, cmd)
	if verr != nil {
		var events []Event
		emit(&events, state, EvtCommandRejected, actorOf(cmd), map[string]any{
			"command": cmd, "code": verr.Code, "message": verr.Message, "meta": verr.Meta,
		})
		return events
	}
	_ = preview

	var events []Event
	switch cmd.Type {
	case CmdStartCombat:
		applyStartCombat(state, &events)
	case CmdSetInitiative:
		state.Initiatives[cmd.CombatantID] = cmd.Initiative
		emit(&events, state, EvtInitiativeSet, cmd.CombatantID, map[string]any{"combatant_id": cmd.CombatantID, "value": cmd.Initiative})
	case CmdRollInitiative:
		roll := state.RollD20(cmd.Bonus, AdvNormal)
		state.Initiatives[cmd.CombatantID] = roll.Total
		emit(&events, state, EvtInitiativeRolled, cmd.CombatantID, map[string]any{"combatant_id": cmd.CombatantID, "roll": rollPayload(roll), "value": roll.Total})
	case CmdFinalizeInitiative:
		applyFinalizeInitiative(state, &events)
	case CmdBeginTurn:
		applyBeginTurn(state, &events, cmd)
	case CmdEndTurn:
		applyEndTurn(state, &events)
	case CmdDisengage:
		c, _ := state.Combatant(cmd.CombatantID)
		c.ActionAvailable = false
		c.NoOpportunityAttacksUntilTurnEnd = true
		emit(&events, state, EvtDisengageApplied, cmd.CombatantID, map[string]any{"combatant_id": cmd.CombatantID})
	case CmdMove:
		applyMove(state, &events, cmd)
	case CmdAttack:
		attacker, _ := state.Combatant(cmd.AttackerID)
		target, _ := state.Combatant(cmd.TargetID)
		spendAttackEconomy(attacker, cmd.Economy)
		profile := attacker.Attacks[cmd.AttackName]
		emit(&events, state, EvtAttackDeclared, cmd.AttackerID, map[string]any{"attacker_id": attacker.ID, "target_id": target.ID, "attack_name": cmd.AttackName, "economy": cmd.Economy})
		resolveAttack(state, &events, mws, attacker, target, profile.ToHitBonus, profile.DamageFormula, profile.DamageType, cmd.AttackName, cmd.AdvState, cmd.AttackKind)
	case CmdMultiattack:
		applyMultiattack(state, &events, mws, cmd)
	case CmdUseReaction:
		applyUseReaction(state, &events, mws, cmd)
	case CmdDeclineReaction:
		state.ReactionWindow = nil
		state.Phase = PhaseInTurn
		emit(&events, state, EvtReactionWindowClosed, cmd.ReactorID, map[string]any{"closed_by": "declined"})
	case CmdApplyCondition:
		applyConditionCmd(state, &events, cmd.TargetID, cmd.Condition, true)
	case CmdRemoveCondition:
		applyConditionCmd(state, &events, cmd.TargetID, cmd.Condition, false)
	case CmdSaveEffect:
		applySaveEffectCmd(state, &events, mws, cmd)
	case CmdRollDeathSave:
		applyRollDeathSave(state, &events, cmd)
	case CmdStabilize:
		applyStabilize(state, &events, cmd)
	case CmdHeal:
		applyHeal(state, &events, cmd)
	case CmdStartConcentration:
		applyStartConcentration(state, &events, cmd)
	case CmdEndConcentration:
		endConcentration(state, &events, cmd.CombatantID, cmd.Reason)
	case CmdCastSpell:
		applyCastSpell(state, &events, mws, cmd)
	}
	return events
}

func actorOf(cmd Command) string {
	switch cmd.Type {
	case CmdAttack, CmdMultiattack:
		return cmd.AttackerID
	case CmdMove:
		return cmd.MoverID
	case CmdUseReaction, CmdDeclineReaction:
		return cmd.ReactorID
	case CmdSaveEffect:
		return cmd.SourceID
	case CmdStabilize:
		return cmd.HealerID
	case CmdHeal:
		return cmd.HealerID
	case CmdCastSpell:
		return cmd.CasterID
	default:
		return cmd.CombatantID
	}
}

// --- shared helpers --------------------------------------------------------

func applyDamageWithTempHP(target *Combatant, dmg int) (tempBefore, hpBefore, hpAfter int) {
	tempBefore = target.TempHP
	hpBefore = target.HPCurrent
	remaining := dmg
	if target.TempHP > 0 {
		drained := remaining
		if drained > target.TempHP {
			drained = target.TempHP
		}
		target.TempHP -= drained
		remaining -= drained
	}
	target.HPCurrent -= remaining
	if target.HPCurrent < 0 {
		target.HPCurrent = 0
	}
	hpAfter = target.HPCurrent
	return
}

func adjustDamageForTarget(target *Combatant, raw int, damageType string) (int, string) {
	if target.DamageImmunities[damageType] {
		return 0, "immune"
	}
	resistant := target.DamageResistances[damageType]
	vulnerable := target.DamageVulnerabilities[damageType]
	if resistant && vulnerable {
		return raw, ""
	}
	if resistant {
		return raw / 2, "resistant"
	}
	if vulnerable {
		return raw * 2, "vulnerable"
	}
	return raw, ""
}

func inReach(a, b Position, reachFt int) bool {
	if reachFt <= 5 {
		return adjacent8(a, b)
	}
	return gridDistanceFt(a, b) <= reachFt
}

func maybeRunConcentrationCheck(state *EncounterState, events *[]Event, mws []RollMiddleware, target *Combatant, damageTaken int, damageType, cause, sourceID string) {
	if target.Concentration == nil || damageTaken <= 0 {
		return
	}
	emit(events, state, EvtConcentrationCheckTriggered, target.ID, map[string]any{
		"combatant_id": target.ID, "damage_taken": damageTaken, "cause": cause,
	})
	if target.HPCurrent == 0 || target.HasCondition("unconscious") {
		breakConcentration(state, events, target, "incapacitated")
		return
	}
	dc := damageTaken / 2
	if dc < 10 {
		dc = 10
	}
	roll := state.RollSaveD20(target.SaveBonuses["con"], AdvNormal)
	applySaveMiddleware(mws, state, roll, target, "con", sourceID, "concentration")
	emit(events, state, EvtConcentrationCheckRolled, target.ID, map[string]any{"combatant_id": target.ID, "dc": dc, "roll": rollPayload(roll)})
	if roll.Total >= dc {
		emit(events, state, EvtConcentrationMaintained, target.ID, map[string]any{"combatant_id": target.ID})
		return
	}
	breakConcentration(state, events, target, "failed_save")
}

func breakConcentration(state *EncounterState, events *[]Event, target *Combatant, reason string) {
	if target.Concentration == nil {
		return
	}
	emit(events, state, EvtConcentrationBroken, target.ID, map[string]any{"combatant_id": target.ID, "reason": reason})
	endConcentrationInternal(state, events, target, reason)
}

// --- 4.4.1 initiative & turn lifecycle -------------------------------------

func applyStartCombat(state *EncounterState, events *[]Event) {
	state.CombatStarted = true
	state.Initiatives = map[string]int{}
	state.Phase = PhaseSetupInitiative
	state.Round = 1
	emit(events, state, EvtCombatStarted, "", map[string]any{"combatant_count": state.CombatantCount()})
}

func applyFinalizeInitiative(state *EncounterState, events *[]Event) {
	ids := make([]string, len(state.combatantOrder))
	copy(ids, state.combatantOrder)
	sort.SliceStable(ids, func(i, j int) bool {
		ii, ij := state.Initiatives[ids[i]], state.Initiatives[ids[j]]
		if ii != ij {
			return ii > ij
		}
		return ids[i] < ids[j]
	})
	state.InitiativeOrder = ids
	state.TurnOwnerID = ids[0]
	state.HasTurnOwner = true
	state.InitiativeFinalized = true
	emit(events, state, EvtInitiativeOrderFinalized, "", map[string]any{"initiative_order": ids})
	emit(events, state, EvtRoundStarted, "", map[string]any{"round": state.Round})
}

func applyBeginTurn(state *EncounterState, events *[]Event, cmd Command) {
	c, _ := state.Combatant(cmd.CombatantID)
	c.ActionAvailable = true
	c.BonusAvailable = true
	c.ReactionAvailable = true
	c.MovementRemainingFt = c.EffectiveSpeedFt()
	c.AttackActionStarted = false
	c.AttackActionRemaining = 0
	c.NoOpportunityAttacksUntilTurnEnd = false
	state.Phase = PhaseInTurn
	emit(events, state, EvtTurnStarted, c.ID, map[string]any{"combatant_id": c.ID, "round": state.Round})
	emit(events, state, EvtTurnResourcesReset, c.ID, map[string]any{"combatant_id": c.ID, "movement_ft": c.MovementRemainingFt})
	if c.IsPlayerCharacter && c.HPCurrent == 0 && !c.IsDead && !c.IsStable {
		emit(events, state, EvtDeathSaveRequired, c.ID, map[string]any{"combatant_id": c.ID})
	}
}

func applyEndTurn(state *EncounterState, events *[]Event) {
	c, _ := state.Combatant(state.TurnOwnerID)
	c.HasTakenFirstTurn = true
	c.NoOpportunityAttacksUntilTurnEnd = false
	idx := 0
	for i, id := range state.InitiativeOrder {
		if id == state.TurnOwnerID {
			idx = i
			break
		}
	}
	next := idx + 1
	if next >= len(state.InitiativeOrder) {
		next = 0
		state.Round++
	}
	state.TurnOwnerID = state.InitiativeOrder[next]
	state.Phase = PhaseIdle
	emit(events, state, EvtTurnEnded, c.ID, map[string]any{"combatant_id": c.ID})
	if next == 0 {
		emit(events, state, EvtRoundStarted, "", map[string]any{"round": state.Round})
	}
}

// --- 4.4.3 economy ----------------------------------------------------------

func spendAttackEconomy(attacker *Combatant, economy Economy) {
	if economy == EconomyBonus {
		attacker.BonusAvailable = false
		return
	}
	if !attacker.AttackActionStarted {
		attacker.ActionAvailable = false
		attacker.AttackActionStarted = true
		attacker.AttackActionRemaining = attacker.AttacksPerAction - 1
		if attacker.AttackActionRemaining < 0 {
			attacker.AttackActionRemaining = 0
		}
		return
	}
	attacker.AttackActionRemaining--
}

// --- 4.4.2 attack resolution -------------------------------------------------

func computeAttackAdv(cmdAdv AdvState, attacker, target *Combatant, kind AttackKind) AdvState {
	states := []AdvState{cmdAdv}
	if attacker.HasCondition("restrained") {
		states = append(states, AdvDisadvantage)
	}
	if target.HasCondition("unconscious") || target.HasCondition("restrained") {
		states = append(states, AdvAdvantage)
	}
	if target.HasCondition("prone") {
		if kind == AttackRanged {
			states = append(states, AdvDisadvantage)
		} else {
			states = append(states, AdvAdvantage)
		}
	}
	return CombineAdv(states...)
}

// resolveAttack runs the attack from the to-hit roll through damage and
// its knock-on effects (economy already spent, AttackDeclared already
// emitted by the caller).
func resolveAttack(state *EncounterState, events *[]Event, mws []RollMiddleware, attacker, target *Combatant, toHitBonus int, damageFormula, damageType, attackName string, cmdAdv AdvState, kind AttackKind) {
	adv := computeAttackAdv(cmdAdv, attacker, target, kind)
	roll := state.RollD20(toHitBonus, adv)
	applyAttackMiddleware(mws, state, roll, attacker, target, attackName)
	emit(events, state, EvtAttackRolled, attacker.ID, map[string]any{
		"attacker_id": attacker.ID, "target_id": target.ID, "roll": rollPayload(roll),
		"to_hit_bonus": toHitBonus, "target_ac": target.AC,
	})
	if roll.Nat == 1 {
		emit(events, state, EvtMissConfirmed, attacker.ID, map[string]any{"target_id": target.ID, "margin": roll.Total - target.AC})
		return
	}
	hit := roll.Total >= target.AC
	finalCrit := roll.IsCritical || (target.HasCondition("unconscious") && inReach(attacker.Position, target.Position, 5))
	if !hit {
		emit(events, state, EvtMissConfirmed, attacker.ID, map[string]any{"target_id": target.ID, "margin": roll.Total - target.AC})
		return
	}
	emit(events, state, EvtHitConfirmed, attacker.ID, map[string]any{"target_id": target.ID, "is_critical": roll.IsCritical, "margin": roll.Total - target.AC})

	if damageFormula == "" {
		return
	}
	dmgRoll, err := state.RollDamage(damageFormula, finalCrit)
	if err != nil {
		return
	}
	applyDamageMiddleware(mws, state, dmgRoll, attacker, target, damageType, "attack")
	emit(events, state, EvtDamageRolled, attacker.ID, map[string]any{"target_id": target.ID, "roll": rollPayload(dmgRoll), "damage_type": damageType})

	adjusted, modifier := adjustDamageForTarget(target, dmgRoll.Total, damageType)
	tempBefore, hpBefore, hpAfter := applyDamageWithTempHP(target, adjusted)
	emit(events, state, EvtDamageApplied, attacker.ID, map[string]any{
		"target_id": target.ID, "raw": dmgRoll.Total, "adjusted": adjusted,
		"temp_before": tempBefore, "hp_before": hpBefore, "hp_after": hpAfter,
		"modifier": modifier, "is_critical": finalCrit,
	})
	maybeUnconscious(state, events, target, hpAfter)
	maybeRunConcentrationCheck(state, events, mws, target, adjusted, damageType, "attack", attacker.ID)
}

func maybeUnconscious(state *EncounterState, events *[]Event, target *Combatant, hpAfter int) {
	if hpAfter != 0 || target.HasCondition("unconscious") {
		return
	}
	target.Conditions["unconscious"] = true
	target.ReactionAvailable = false
	if target.IsPlayerCharacter {
		target.DeathSaves = DeathSaves{}
		target.IsStable = false
		target.IsDead = false
	}
	emit(events, state, EvtConditionApplied, target.ID, map[string]any{"target_id": target.ID, "condition": "unconscious"})
	emit(events, state, EvtUnconsciousStateChanged, target.ID, map[string]any{"combatant_id": target.ID, "unconscious": true})
}

func applyMultiattack(state *EncounterState, events *[]Event, mws []RollMiddleware, cmd Command) {
	attacker, _ := state.Combatant(cmd.AttackerID)
	target, _ := state.Combatant(cmd.TargetID)
	attacker.ActionAvailable = false
	attacker.AttackActionStarted = false
	attacker.AttackActionRemaining = 0
	attackNames := attacker.Multiattacks[cmd.MultiattackName]
	emit(events, state, EvtMultiattackDeclared, attacker.ID, map[string]any{
		"attacker_id": attacker.ID, "target_id": target.ID, "multiattack_name": cmd.MultiattackName, "attacks": attackNames,
	})
	for _, name := range attackNames {
		profile := attacker.Attacks[name]
		resolveAttack(state, events, mws, attacker, target, profile.ToHitBonus, profile.DamageFormula, profile.DamageType, name, cmd.AdvState, cmd.AttackKind)
	}
}

// --- 4.4.4 movement & opportunity attacks -----------------------------------

func applyMove(state *EncounterState, events *[]Event, cmd Command) {
	mover, _ := state.Combatant(cmd.MoverID)
	from := mover.Position
	emit(events, state, EvtMovementStarted, mover.ID, map[string]any{"combatant_id": mover.ID, "from": from, "planned_path": cmd.Path})

	for _, nxt := range cmd.Path {
		if !mover.NoOpportunityAttacksUntilTurnEnd {
			if enemy := findOpportunityTrigger(state, mover, nxt); enemy != nil {
				rw := &ReactionWindow{
					ID: state.NewEffectID(), Trigger: "opportunity_attack",
					MoverID: mover.ID, ThreatenedByID: enemy.ID, ReachFt: 5,
				}
				state.ReactionWindow = rw
				state.Phase = PhaseReactionWindow
				emit(events, state, EvtOpportunityAttackTriggered, enemy.ID, map[string]any{"mover_id": mover.ID, "enemy_id": enemy.ID})
				emit(events, state, EvtReactionWindowOpened, enemy.ID, map[string]any{"eligible_reactors": []string{enemy.ID}, "trigger": rw.Trigger})
				emit(events, state, EvtMovementStopped, mover.ID, map[string]any{"combatant_id": mover.ID, "reason": "reaction_window"})
				return
			}
		}
		cost := 5
		mover.Position = nxt
		mover.MovementRemainingFt -= cost
		emit(events, state, EvtMovedStep, mover.ID, map[string]any{"combatant_id": mover.ID, "from": from, "to": nxt, "cost_ft": cost})
		from = nxt
	}
	emit(events, state, EvtMovementStopped, mover.ID, map[string]any{"combatant_id": mover.ID, "reason": "command_end"})
}

func findOpportunityTrigger(state *EncounterState, mover *Combatant, nxt Position) *Combatant {
	for _, id := range state.combatantOrder {
		enemy := state.combatants[id]
		if enemy.ID == mover.ID {
			continue
		}
		if !AreHostile(mover, enemy) {
			continue
		}
		if enemy.HPCurrent <= 0 || !enemy.ReactionAvailable {
			continue
		}
		if enemy.Surprised && !enemy.HasTakenFirstTurn {
			continue
		}
		wasInReach := inReach(enemy.Position, mover.Position, 5)
		willBeInReach := inReach(enemy.Position, nxt, 5)
		if wasInReach && !willBeInReach {
			return enemy
		}
	}
	return nil
}

// --- 4.4.5 reactions ---------------------------------------------------------

func applyUseReaction(state *EncounterState, events *[]Event, mws []RollMiddleware, cmd Command) {
	rw := state.ReactionWindow
	reactor, _ := state.Combatant(cmd.ReactorID)
	mover, _ := state.Combatant(rw.MoverID)
	reactor.ReactionAvailable = false
	profile := reactor.Attacks[cmd.AttackName]
	emit(events, state, EvtAttackDeclared, reactor.ID, map[string]any{"attacker_id": reactor.ID, "target_id": mover.ID, "attack_name": cmd.AttackName, "economy": "reaction"})
	resolveAttack(state, events, mws, reactor, mover, profile.ToHitBonus, profile.DamageFormula, profile.DamageType, cmd.AttackName, cmd.AdvState, cmd.AttackKind)
	state.ReactionWindow = nil
	state.Phase = PhaseInTurn
	emit(events, state, EvtReactionWindowClosed, reactor.ID, map[string]any{"closed_by": "reaction_used"})
}

// --- 4.4.6 save-effect (standalone, non-spell) ------------------------------

func applySaveEffectCmd(state *EncounterState, events *[]Event, mws []RollMiddleware, cmd Command) {
	source, _ := state.Combatant(cmd.SourceID)
	if cmd.Economy == EconomyBonus {
		source.BonusAvailable = false
	} else {
		source.ActionAvailable = false
	}
	emit(events, state, EvtSaveEffectDeclared, source.ID, map[string]any{
		"source_id": source.ID, "target_ids": cmd.TargetIDs, "effect_name": cmd.EffectName,
		"save_ability": cmd.SaveAbility, "dc": cmd.DC, "on_success": cmd.OnSuccess,
	})

	var sharedRoll *Roll
	if cmd.DamageFormula != "" {
		r, err := state.RollDamage(cmd.DamageFormula, false)
		if err == nil {
			applyDamageMiddleware(mws, state, r, source, nil, cmd.DamageType, "effect")
			sharedRoll = r
		}
	}

	for _, tid := range cmd.TargetIDs {
		target, found := state.Combatant(tid)
		if !found {
			continue
		}
		roll := state.RollSaveD20(target.SaveBonuses[cmd.SaveAbility], cmd.AdvState)
		applySaveMiddleware(mws, state, roll, target, cmd.SaveAbility, source.ID, cmd.EffectName)
		emit(events, state, EvtSavingThrowRolled, target.ID, map[string]any{
			"target_id": target.ID, "ability": cmd.SaveAbility, "dc": cmd.DC, "roll": rollPayload(roll),
		})
		success := roll.Total >= cmd.DC
		if success {
			emit(events, state, EvtSavingThrowSucceeded, target.ID, map[string]any{"target_id": target.ID})
		} else {
			emit(events, state, EvtSavingThrowFailed, target.ID, map[string]any{"target_id": target.ID, "margin": cmd.DC - roll.Total})
		}

		if success && cmd.OnSuccess == OnSuccessNone {
			emit(events, state, EvtSaveEffectNegated, target.ID, map[string]any{"target_id": target.ID})
			continue
		}
		if sharedRoll == nil {
			continue
		}
		base := sharedRoll.Total
		if success && cmd.OnSuccess == OnSuccessHalf {
			base /= 2
		}
		adjusted, modifier := adjustDamageForTarget(target, base, cmd.DamageType)
		emit(events, state, EvtEffectDamageRolled, target.ID, map[string]any{"target_id": target.ID, "roll": rollPayload(sharedRoll), "damage_type": cmd.DamageType})
		hpBefore := target.HPCurrent
		target.HPCurrent -= adjusted
		if target.HPCurrent < 0 {
			target.HPCurrent = 0
		}
		emit(events, state, EvtEffectDamageApplied, target.ID, map[string]any{
			"target_id": target.ID, "adjusted": base, "adjusted_final": adjusted,
			"hp_before": hpBefore, "hp_after": target.HPCurrent, "modifier": modifier,
		})
		maybeRunConcentrationCheck(state, events, mws, target, adjusted, cmd.DamageType, "effect", source.ID)
		maybeUnconscious(state, events, target, target.HPCurrent)
	}
}

// --- 4.4.8 conditions ---------------------------------------------------------

func applyConditionCmd(state *EncounterState, events *[]Event, targetID, condition string, add bool) {
	target, _ := state.Combatant(targetID)
	if add {
		target.Conditions[condition] = true
		if condition == "unconscious" {
			target.ReactionAvailable = false
		}
		emit(events, state, EvtConditionApplied, targetID, map[string]any{"target_id": targetID, "condition": condition})
		return
	}
	delete(target.Conditions, condition)
	emit(events, state, EvtConditionRemoved, targetID, map[string]any{"target_id": targetID, "condition": condition})
}

// --- 4.4.9 / 4.4.10 concentration --------------------------------------------

func applyStartConcentration(state *EncounterState, events *[]Event, cmd Command) {
	c, _ := state.Combatant(cmd.CombatantID)
	if c.Concentration != nil {
		emit(events, state, EvtConcentrationEnded, c.ID, map[string]any{"combatant_id": c.ID, "reason": "replaced"})
		endAnchoredEffects(state, events, c.ID, c.Concentration.EffectName)
		c.Concentration = nil
	}
	source := cmd.SourceID
	if source == "" {
		source = c.ID
	}
	c.Concentration = &EffectRef{EffectName: cmd.EffectName, SourceID: source, StartedRound: state.Round}
	emit(events, state, EvtConcentrationStarted, c.ID, map[string]any{"combatant_id": c.ID, "effect_name": cmd.EffectName, "source_id": source})
}

func endConcentration(state *EncounterState, events *[]Event, combatantID, reason string) {
	c, _ := state.Combatant(combatantID)
	endConcentrationInternal(state, events, c, reason)
}

func endConcentrationInternal(state *EncounterState, events *[]Event, c *Combatant, reason string) {
	if c.Concentration == nil {
		return
	}
	name := c.Concentration.EffectName
	c.Concentration = nil
	emit(events, state, EvtConcentrationEnded, c.ID, map[string]any{"combatant_id": c.ID, "reason": reason})
	endAnchoredEffects(state, events, c.ID, name)
}

func endAnchoredEffects(state *EncounterState, events *[]Event, ownerID, effectName string) {
	var ids []string
	for _, id := range sortedEffectIDs(state) {
		e := state.effects[id]
		if e.HasConcentrationOwner && e.ConcentrationOwnerID == ownerID && e.ConcentrationEffectName == effectName {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		e := state.effects[id]
		var removed []string
		if target, found := state.Combatant(e.TargetID); found {
			for cond := range e.AppliesConditions {
				if target.Conditions[cond] {
					delete(target.Conditions, cond)
					removed = append(removed, cond)
					emit(events, state, EvtConditionRemoved, target.ID, map[string]any{"target_id": target.ID, "condition": cond, "reason": "effect_end:" + e.Name})
				}
			}
		}
		state.DeleteEffect(id)
		emit(events, state, EvtEffectEnded, e.TargetID, map[string]any{"effect_id": id, "name": e.Name, "removed_conditions": removed})
	}
}

func sortedEffectIDs(state *EncounterState) []string {
	ids := make([]string, 0, len(state.effects))
	for id := range state.effects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// --- 4.4.11 death saves, stabilise, heal -------------------------------------

func applyRollDeathSave(state *EncounterState, events *[]Event, cmd Command) {
	c, _ := state.Combatant(cmd.CombatantID)
	roll := state.RollDeathSaveD20()
	var outcome string
	switch {
	case roll.Nat == 20:
		c.HPCurrent = 1
		c.DeathSaves = DeathSaves{}
		delete(c.Conditions, "unconscious")
		c.IsStable = false
		outcome = "revived"
		emit(events, state, EvtDeathSaveRolled, c.ID, map[string]any{"combatant_id": c.ID, "roll": rollPayload(roll)})
		emit(events, state, EvtDeathSaveResult, c.ID, map[string]any{"combatant_id": c.ID, "outcome": outcome, "successes": c.DeathSaves.Successes, "failures": c.DeathSaves.Failures})
		return
	case roll.Nat == 1:
		c.DeathSaves.Failures += 2
		outcome = "crit_fail"
	case roll.Nat >= 10:
		c.DeathSaves.Successes++
		outcome = "success"
	default:
		c.DeathSaves.Failures++
		outcome = "fail"
	}
	emit(events, state, EvtDeathSaveRolled, c.ID, map[string]any{"combatant_id": c.ID, "roll": rollPayload(roll)})

	if c.DeathSaves.Failures >= 3 {
		c.IsDead = true
		emit(events, state, EvtDeathSaveResult, c.ID, map[string]any{"combatant_id": c.ID, "outcome": outcome, "successes": c.DeathSaves.Successes, "failures": c.DeathSaves.Failures})
		emit(events, state, EvtDied, c.ID, map[string]any{"combatant_id": c.ID})
		return
	}
	if c.DeathSaves.Successes >= 3 {
		c.IsStable = true
		c.DeathSaves = DeathSaves{}
		emit(events, state, EvtDeathSaveResult, c.ID, map[string]any{"combatant_id": c.ID, "outcome": "stabilized", "successes": 3, "failures": 0})
		emit(events, state, EvtStabilized, c.ID, map[string]any{"combatant_id": c.ID, "reason": "death_saves"})
		return
	}
	emit(events, state, EvtDeathSaveResult, c.ID, map[string]any{"combatant_id": c.ID, "outcome": outcome, "successes": c.DeathSaves.Successes, "failures": c.DeathSaves.Failures})
}

func applyStabilize(state *EncounterState, events *[]Event, cmd Command) {
	healer, _ := state.Combatant(cmd.HealerID)
	target, _ := state.Combatant(cmd.TargetID)
	healer.ActionAvailable = false
	target.IsStable = true
	target.DeathSaves = DeathSaves{}
	emit(events, state, EvtStabilized, target.ID, map[string]any{"combatant_id": target.ID, "reason": "stabilize_action", "healer_id": healer.ID})
}

func applyHeal(state *EncounterState, events *[]Event, cmd Command) {
	target, _ := state.Combatant(cmd.TargetID)
	if cmd.HasHealerID {
		healer, _ := state.Combatant(cmd.HealerID)
		healer.ActionAvailable = false
	}
	hpBefore := target.HPCurrent
	target.HPCurrent += cmd.Amount
	if target.HPCurrent > target.HPMax {
		target.HPCurrent = target.HPMax
	}
	if target.HPCurrent > 0 {
		target.IsStable = false
		target.DeathSaves = DeathSaves{}
		delete(target.Conditions, "unconscious")
	}
	emit(events, state, EvtHealed, target.ID, map[string]any{"target_id": target.ID, "hp_before": hpBefore, "hp_after": target.HPCurrent})
}

// --- 4.4.12 spellcasting ------------------------------------------------------

func applyCastSpell(state *EncounterState, events *[]Event, mws []RollMiddleware, cmd Command) {
	caster, _ := state.Combatant(cmd.CasterID)
	spell, _ := state.Spells.Lookup(cmd.SpellName)

	switch spell.Economy() {
	case EconomyBonus:
		caster.BonusAvailable = false
	case EconomyReaction:
		caster.ReactionAvailable = false
	default:
		caster.ActionAvailable = false
		caster.AttackActionStarted = false
		caster.AttackActionRemaining = 0
	}
	emit(events, state, EvtSpellCastDeclared, caster.ID, map[string]any{"caster_id": caster.ID, "spell_name": cmd.SpellName, "target_ids": cmd.TargetIDs, "slot_level": cmd.SlotLevel})

	if spell.MinSlotLevel() > 0 {
		before := caster.SpellSlotsCurrent[cmd.SlotLevel]
		after := before - 1
		if after < 0 {
			after = 0
		}
		caster.SpellSlotsCurrent[cmd.SlotLevel] = after
		emit(events, state, EvtSpellSlotSpent, caster.ID, map[string]any{"caster_id": caster.ID, "slot_level": cmd.SlotLevel, "before": before, "after": after})
	}

	var effectOwnerID, effectName string
	if spell.Concentration() {
		if caster.Concentration != nil {
			emit(events, state, EvtConcentrationEnded, caster.ID, map[string]any{"combatant_id": caster.ID, "reason": "replaced"})
			endAnchoredEffects(state, events, caster.ID, caster.Concentration.EffectName)
		}
		caster.Concentration = &EffectRef{EffectName: spell.Name(), SourceID: caster.ID, StartedRound: state.Round}
		emit(events, state, EvtConcentrationStarted, caster.ID, map[string]any{"combatant_id": caster.ID, "effect_name": spell.Name(), "source_id": caster.ID})
		effectOwnerID, effectName = caster.ID, spell.Name()
	}

	if spell.Save != nil {
		resolveSaveSpell(state, events, mws, caster, spell.Save, cmd.TargetIDs, effectOwnerID, effectName)
		return
	}
	resolveAttackSpell(state, events, mws, caster, spell.Attack, cmd.TargetIDs)
}
