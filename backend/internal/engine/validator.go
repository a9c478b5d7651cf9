package engine

// RejectionCode is one of the external-contract rejection codes a
// CommandRejected event may carry. The set is part of the external
// contract; codes are never renamed, only added.
type RejectionCode string

const (
	CodeReactionWindowOpen     RejectionCode = "REACTION_WINDOW_OPEN"
	CodeCombatAlreadyStarted   RejectionCode = "COMBAT_ALREADY_STARTED"
	CodeNoCombatants           RejectionCode = "NO_COMBATANTS"
	CodeBadPhase               RejectionCode = "BAD_PHASE"
	CodeCombatNotStarted       RejectionCode = "COMBAT_NOT_STARTED"
	CodeInitiativeFinalized    RejectionCode = "INITIATIVE_FINALIZED"
	CodeUnknownCombatant       RejectionCode = "UNKNOWN_COMBATANT"
	CodeMissingInitiative      RejectionCode = "MISSING_INITIATIVE"
	CodeNotYourTurn            RejectionCode = "NOT_YOUR_TURN"
	CodeAlreadyInTurn          RejectionCode = "ALREADY_IN_TURN"
	CodeNotInTurn              RejectionCode = "NOT_IN_TURN"
	CodeSurprisedBlock         RejectionCode = "SURPRISED_BLOCK"
	CodeNoAction               RejectionCode = "NO_ACTION"
	CodeUnknownTargets         RejectionCode = "UNKNOWN_TARGETS"
	CodeNoBonusAction          RejectionCode = "NO_BONUS_ACTION"
	CodeNotAPC                 RejectionCode = "NOT_A_PC"
	CodeNotDying               RejectionCode = "NOT_DYING"
	CodeAlreadyDead            RejectionCode = "ALREADY_DEAD"
	CodeAlreadyStable          RejectionCode = "ALREADY_STABLE"
	CodeTargetNotPC            RejectionCode = "TARGET_NOT_PC"
	CodeTargetNotDying         RejectionCode = "TARGET_NOT_DYING"
	CodeTargetDead             RejectionCode = "TARGET_DEAD"
	CodeTargetAlreadyStable    RejectionCode = "TARGET_ALREADY_STABLE"
	CodeBadAmount              RejectionCode = "BAD_AMOUNT"
	CodeConditionBlocksAction  RejectionCode = "CONDITION_BLOCKS_ACTION"
	CodeConditionBlocksMove    RejectionCode = "CONDITION_BLOCKS_MOVE"
	CodeConditionBlocksReaction RejectionCode = "CONDITION_BLOCKS_REACTION"
	CodeEmptyPath              RejectionCode = "EMPTY_PATH"
	CodeInvalidPath            RejectionCode = "INVALID_PATH"
	CodeNoMovement             RejectionCode = "NO_MOVEMENT"
	CodeUnknownAttack          RejectionCode = "UNKNOWN_ATTACK"
	CodeAttackNotAction        RejectionCode = "ATTACK_NOT_ACTION"
	CodeAttackNotBonus         RejectionCode = "ATTACK_NOT_BONUS"
	CodeNoAttacksRemaining     RejectionCode = "NO_ATTACKS_REMAINING"
	CodeUnknownMultiattack     RejectionCode = "UNKNOWN_MULTIATTACK"
	CodeMultiattackMissingAttacks RejectionCode = "MULTIATTACK_MISSING_ATTACKS"
	CodeNoReactionWindow       RejectionCode = "NO_REACTION_WINDOW"
	CodeNotEligibleReactor     RejectionCode = "NOT_ELIGIBLE_REACTOR"
	CodeNoReaction             RejectionCode = "NO_REACTION"
	CodeIncapacitated          RejectionCode = "INCAPACITATED"
	CodeNoConcentration        RejectionCode = "NO_CONCENTRATION"
	CodeUnknownSpell           RejectionCode = "UNKNOWN_SPELL"
	CodeMissingSpellSaveDC     RejectionCode = "MISSING_SPELL_SAVE_DC"
	CodeMissingSpellAttackBonus RejectionCode = "MISSING_SPELL_ATTACK_BONUS"
	CodeNoTargets              RejectionCode = "NO_TARGETS"
	CodeBadTargetCount         RejectionCode = "BAD_TARGET_COUNT"
	CodeUnknownTarget          RejectionCode = "UNKNOWN_TARGET"
	CodeSlotTooLow             RejectionCode = "SLOT_TOO_LOW"
	CodeNoSpellSlot            RejectionCode = "NO_SPELL_SLOT"
	CodeOutOfRange             RejectionCode = "OUT_OF_RANGE"
	CodeSurprisedBlockReaction RejectionCode = "SURPRISED_BLOCK_REACTION"
	CodeDead                   RejectionCode = "DEAD"
	CodeUnknownCommand         RejectionCode = "UNKNOWN_COMMAND"
)

// ValidationError is the first (and only) error the validator surfaces.
type ValidationError struct {
	Code    RejectionCode
	Message string
	Meta    map[string]any
}

// CostPreview previews the economy a valid command will spend, informational
// only -- the reducer re-derives and spends the real cost itself.
type CostPreview map[string]any

func errf(code RejectionCode, message string, meta map[string]any) (CostPreview, *ValidationError) {
	if meta == nil {
		meta = map[string]any{}
	}
	return nil, &ValidationError{Code: code, Message: message, Meta: meta}
}

func ok(preview CostPreview) (CostPreview, *ValidationError) {
	if preview == nil {
		preview = CostPreview{}
	}
	return preview, nil
}

func gridDistanceFt(a, b Position) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	d := dx
	if dy > d {
		d = dy
	}
	return d * 5
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func adjacent8(a, b Position) bool {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	return dx <= 1 && dy <= 1 && !(dx == 0 && dy == 0)
}

// Validate is the pure gate every command passes through before Apply
// performs any mutation. It mirrors the reference validator's precedence
// exactly, command by command.
func Validate(s *EncounterState, cmd Command) (CostPreview, *ValidationError) {
	if s.ReactionWindow != nil {
		if cmd.Type != CmdUseReaction && cmd.Type != CmdDeclineReaction {
			return errf(CodeReactionWindowOpen, "A reaction window is open; resolve it first", nil)
		}
	}

	switch cmd.Type {
	case CmdStartCombat:
		if s.CombatStarted {
			return errf(CodeCombatAlreadyStarted, "Combat already started", nil)
		}
		if s.CombatantCount() == 0 {
			return errf(CodeNoCombatants, "Cannot start combat with zero combatants", nil)
		}
		if s.Phase != PhaseIdle {
			return errf(CodeBadPhase, "StartCombat requires idle phase", map[string]any{"phase": s.Phase})
		}
		return ok(nil)

	case CmdSetInitiative, CmdRollInitiative:
		if !s.CombatStarted {
			return errf(CodeCombatNotStarted, "Call StartCombat first", nil)
		}
		if s.InitiativeFinalized {
			return errf(CodeInitiativeFinalized, "Initiative already finalized", nil)
		}
		if _, found := s.Combatant(cmd.CombatantID); !found {
			return errf(CodeUnknownCombatant, "Unknown combatant_id", map[string]any{"combatant_id": cmd.CombatantID})
		}
		return ok(nil)

	case CmdFinalizeInitiative:
		if !s.CombatStarted {
			return errf(CodeCombatNotStarted, "Call StartCombat first", nil)
		}
		if s.InitiativeFinalized {
			return errf(CodeInitiativeFinalized, "Initiative already finalized", nil)
		}
		var missing []string
		for _, id := range s.combatantOrder {
			if _, staged := s.Initiatives[id]; !staged {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return errf(CodeMissingInitiative, "Not all combatants have initiative set/rolled", map[string]any{"missing": missing})
		}
		return ok(nil)

	case CmdApplyCondition, CmdRemoveCondition:
		if _, found := s.Combatant(cmd.TargetID); !found {
			return errf(CodeUnknownCombatant, "Target not found", map[string]any{"target_id": cmd.TargetID})
		}
		return ok(nil)

	case CmdBeginTurn:
		if _, found := s.Combatant(cmd.CombatantID); !found {
			return errf(CodeUnknownCombatant, "Unknown combatant_id", map[string]any{"combatant_id": cmd.CombatantID})
		}
		if !s.HasTurnOwner || s.TurnOwnerID != cmd.CombatantID {
			return errf(CodeNotYourTurn, "BeginTurn only for current turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "combatant_id": cmd.CombatantID})
		}
		if s.Phase == PhaseInTurn {
			return errf(CodeAlreadyInTurn, "Turn already started", nil)
		}
		return ok(nil)

	case CmdEndTurn:
		if !s.HasTurnOwner || cmd.CombatantID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "EndTurn only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "combatant_id": cmd.CombatantID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "EndTurn requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		return ok(nil)

	case CmdDisengage:
		if !s.HasTurnOwner || cmd.CombatantID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "Disengage only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "combatant_id": cmd.CombatantID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "Disengage requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		c, found := s.Combatant(cmd.CombatantID)
		if !found {
			return errf(CodeUnknownCombatant, "Combatant not found", map[string]any{"combatant_id": cmd.CombatantID})
		}
		if c.Surprised && !c.HasTakenFirstTurn {
			return errf(CodeSurprisedBlock, "Surprised creature cannot take actions on its first turn", nil)
		}
		if !c.ActionAvailable {
			return errf(CodeNoAction, "No action available this turn", nil)
		}
		return ok(CostPreview{"action": 1})

	case CmdSaveEffect:
		if !s.HasTurnOwner || cmd.SourceID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "SaveEffect only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "source_id": cmd.SourceID})
		}
		source, found := s.Combatant(cmd.SourceID)
		if !found {
			return errf(CodeUnknownCombatant, "Source not found", map[string]any{"source_id": cmd.SourceID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "SaveEffect requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if source.Surprised && !source.HasTakenFirstTurn {
			return errf(CodeSurprisedBlock, "Surprised creature cannot take actions on its first turn", nil)
		}
		if source.HasCondition("unconscious") {
			return errf(CodeConditionBlocksAction, "Unconscious creature cannot take actions", nil)
		}
		var missing []string
		for _, tid := range cmd.TargetIDs {
			if _, found := s.Combatant(tid); !found {
				missing = append(missing, tid)
			}
		}
		if len(missing) > 0 {
			return errf(CodeUnknownTargets, "Some targets not found", map[string]any{"missing": missing})
		}
		if cmd.Economy == EconomyAction {
			if !source.ActionAvailable {
				return errf(CodeNoAction, "No action available this turn", nil)
			}
			return ok(CostPreview{"action": 1})
		}
		if !source.BonusAvailable {
			return errf(CodeNoBonusAction, "No bonus action available this turn", nil)
		}
		return ok(CostPreview{"bonus": 1})

	case CmdRollDeathSave:
		if !s.HasTurnOwner || cmd.CombatantID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "Death save can be rolled only by the turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "combatant_id": cmd.CombatantID})
		}
		c, found := s.Combatant(cmd.CombatantID)
		if !found {
			return errf(CodeUnknownCombatant, "Combatant not found", map[string]any{"combatant_id": cmd.CombatantID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "Death save requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if !c.IsPlayerCharacter {
			return errf(CodeNotAPC, "Death saves apply only to player characters", map[string]any{"combatant_id": c.ID})
		}
		if c.HPCurrent != 0 {
			return errf(CodeNotDying, "Death save requires hp_current == 0", map[string]any{"hp_current": c.HPCurrent})
		}
		if c.IsDead {
			return errf(CodeAlreadyDead, "Cannot roll death save while dead", map[string]any{"combatant_id": c.ID})
		}
		if c.IsStable {
			return errf(CodeAlreadyStable, "Stable creature does not roll death saves", map[string]any{"combatant_id": c.ID})
		}
		return ok(CostPreview{"death_save": 1})

	case CmdStabilize:
		if !s.HasTurnOwner || cmd.HealerID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "Stabilize can be used only by the turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "healer_id": cmd.HealerID})
		}
		healer, hOK := s.Combatant(cmd.HealerID)
		target, tOK := s.Combatant(cmd.TargetID)
		if !hOK || !tOK {
			return errf(CodeUnknownCombatant, "Healer or target not found", map[string]any{"healer_id": cmd.HealerID, "target_id": cmd.TargetID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "Stabilize requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if healer.HasCondition("unconscious") {
			return errf(CodeConditionBlocksAction, "Unconscious creature cannot take actions", map[string]any{"healer_id": healer.ID})
		}
		if !healer.ActionAvailable {
			return errf(CodeNoAction, "No action available this turn", map[string]any{"healer_id": healer.ID})
		}
		if !target.IsPlayerCharacter {
			return errf(CodeTargetNotPC, "Stabilize (MVP) applies only to PCs", map[string]any{"target_id": target.ID})
		}
		if target.HPCurrent != 0 {
			return errf(CodeTargetNotDying, "Target must have hp_current == 0", map[string]any{"hp_current": target.HPCurrent})
		}
		if target.IsDead {
			return errf(CodeTargetDead, "Cannot stabilize a dead target", map[string]any{"target_id": target.ID})
		}
		if target.IsStable {
			return errf(CodeTargetAlreadyStable, "Target is already stable", map[string]any{"target_id": target.ID})
		}
		return ok(CostPreview{"action": 1})

	case CmdHeal:
		target, found := s.Combatant(cmd.TargetID)
		if !found {
			return errf(CodeUnknownCombatant, "Target not found", map[string]any{"target_id": cmd.TargetID})
		}
		if cmd.Amount <= 0 {
			return errf(CodeBadAmount, "Heal amount must be > 0", map[string]any{"amount": cmd.Amount})
		}
		if !cmd.HasHealerID {
			return ok(CostPreview{"heal": cmd.Amount})
		}
		if cmd.HealerID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "Heal can be used only by the turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "healer_id": cmd.HealerID})
		}
		healer, hFound := s.Combatant(cmd.HealerID)
		if !hFound {
			return errf(CodeUnknownCombatant, "Healer not found", map[string]any{"healer_id": cmd.HealerID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "Heal (with healer) requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if healer.HasCondition("unconscious") {
			return errf(CodeConditionBlocksAction, "Unconscious creature cannot take actions", map[string]any{"healer_id": healer.ID})
		}
		if !healer.ActionAvailable {
			return errf(CodeNoAction, "No action available this turn", map[string]any{"healer_id": healer.ID})
		}
		_ = target
		return ok(CostPreview{"action": 1})

	case CmdStartConcentration:
		if !s.HasTurnOwner || cmd.CombatantID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "StartConcentration only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "combatant_id": cmd.CombatantID})
		}
		c, found := s.Combatant(cmd.CombatantID)
		if !found {
			return errf(CodeUnknownCombatant, "Combatant not found", map[string]any{"combatant_id": cmd.CombatantID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "StartConcentration requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if c.IsDead {
			return errf(CodeAlreadyDead, "Dead creature cannot concentrate", map[string]any{"combatant_id": c.ID})
		}
		if c.HasCondition("unconscious") {
			return errf(CodeIncapacitated, "Unconscious creature cannot start concentration", map[string]any{"combatant_id": c.ID})
		}
		return ok(CostPreview{"concentration": "start"})

	case CmdEndConcentration:
		if !s.HasTurnOwner || cmd.CombatantID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "EndConcentration only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "combatant_id": cmd.CombatantID})
		}
		c, found := s.Combatant(cmd.CombatantID)
		if !found {
			return errf(CodeUnknownCombatant, "Combatant not found", map[string]any{"combatant_id": cmd.CombatantID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "EndConcentration requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if c.Concentration == nil {
			return errf(CodeNoConcentration, "Combatant is not concentrating", map[string]any{"combatant_id": c.ID})
		}
		return ok(CostPreview{"concentration": "end"})

	case CmdCastSpell:
		if !s.HasTurnOwner || cmd.CasterID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "CastSpell only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "caster_id": cmd.CasterID})
		}
		caster, found := s.Combatant(cmd.CasterID)
		if !found {
			return errf(CodeUnknownCombatant, "Caster not found", map[string]any{"caster_id": cmd.CasterID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "CastSpell requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if caster.Surprised && !caster.HasTakenFirstTurn {
			return errf(CodeSurprisedBlock, "Surprised creature cannot take actions on its first turn", nil)
		}
		if caster.IsDead {
			return errf(CodeDead, "Dead creature cannot act", nil)
		}
		if caster.HasCondition("unconscious") {
			return errf(CodeConditionBlocksAction, "Unconscious creature cannot cast spells", nil)
		}
		spell, found := s.Spells.Lookup(cmd.SpellName)
		if !found {
			return errf(CodeUnknownSpell, "Spell not registered", map[string]any{"spell_name": cmd.SpellName})
		}
		if spell.Save != nil {
			if !caster.HasSpellSaveDC || caster.SpellSaveDC <= 0 {
				return errf(CodeMissingSpellSaveDC, "Caster has no spell_save_dc set", map[string]any{"caster_id": caster.ID})
			}
		} else {
			if !caster.HasSpellAttackBonus {
				return errf(CodeMissingSpellAttackBonus, "Caster has no spell_attack_bonus set", map[string]any{"caster_id": caster.ID})
			}
		}
		if len(cmd.TargetIDs) == 0 {
			return errf(CodeNoTargets, "CastSpell requires at least one target", nil)
		}
		if spell.TargetMode() == TargetSingle && len(cmd.TargetIDs) != 1 {
			return errf(CodeBadTargetCount, "Single-target spell requires exactly 1 target", map[string]any{"target_mode": spell.TargetMode(), "count": len(cmd.TargetIDs)})
		}
		for _, tid := range cmd.TargetIDs {
			if _, found := s.Combatant(tid); !found {
				return errf(CodeUnknownTarget, "Target not found", map[string]any{"target_id": tid})
			}
		}
		var cost CostPreview
		switch spell.Economy() {
		case EconomyAction:
			if !caster.ActionAvailable {
				return errf(CodeNoAction, "No action available this turn", nil)
			}
			cost = CostPreview{"action": 1}
		case EconomyBonus:
			if !caster.BonusAvailable {
				return errf(CodeNoBonusAction, "No bonus action available this turn", nil)
			}
			cost = CostPreview{"bonus": 1}
		default:
			if !caster.ReactionAvailable {
				return errf(CodeNoReaction, "No reaction available", nil)
			}
			cost = CostPreview{"reaction": 1}
		}
		if spell.MinSlotLevel() != 0 {
			if cmd.SlotLevel < spell.MinSlotLevel() {
				return errf(CodeSlotTooLow, "Slot level too low for this spell", map[string]any{"slot_level": cmd.SlotLevel, "min_slot_level": spell.MinSlotLevel()})
			}
			if caster.SpellSlotsCurrent[cmd.SlotLevel] <= 0 {
				return errf(CodeNoSpellSlot, "No spell slots of this level remaining", map[string]any{"slot_level": cmd.SlotLevel})
			}
		}
		for _, tid := range cmd.TargetIDs {
			target, _ := s.Combatant(tid)
			dist := gridDistanceFt(caster.Position, target.Position)
			if dist > spell.RangeFt() {
				return errf(CodeOutOfRange, "Target is out of spell range", map[string]any{
					"spell_name": cmd.SpellName, "range_ft": spell.RangeFt(), "distance_ft": dist,
					"caster_id": caster.ID, "target_id": tid,
				})
			}
		}
		return ok(cost)

	case CmdAttack:
		if !s.HasTurnOwner || cmd.AttackerID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "Attack only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "attacker_id": cmd.AttackerID})
		}
		attacker, aOK := s.Combatant(cmd.AttackerID)
		_, tOK := s.Combatant(cmd.TargetID)
		if !aOK || !tOK {
			return errf(CodeUnknownCombatant, "Attacker or target not found", map[string]any{"attacker_id": cmd.AttackerID, "target_id": cmd.TargetID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "Attack requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if attacker.Surprised && !attacker.HasTakenFirstTurn {
			return errf(CodeSurprisedBlock, "Surprised creature cannot take actions on its first turn", nil)
		}
		if attacker.HasCondition("unconscious") {
			return errf(CodeConditionBlocksAction, "Unconscious creature cannot take actions", nil)
		}
		profile, found := attacker.Attacks[cmd.AttackName]
		if !found {
			return errf(CodeUnknownAttack, "Attacker does not have this attack", map[string]any{"attack_name": cmd.AttackName})
		}
		if cmd.Economy == EconomyAction {
			if !profile.UsesAction {
				return errf(CodeAttackNotAction, "This attack can't be used as an Action", map[string]any{"attack_name": cmd.AttackName})
			}
			if !attacker.AttackActionStarted {
				if !attacker.ActionAvailable {
					return errf(CodeNoAction, "No action available this turn", nil)
				}
				return ok(CostPreview{"economy": "action", "attack_action_step": "start"})
			}
			if attacker.AttackActionRemaining <= 0 {
				return errf(CodeNoAttacksRemaining, "No attacks remaining in this Attack action", nil)
			}
			return ok(CostPreview{"economy": "action", "attack_action_step": "continue"})
		}
		if !profile.UsesBonus {
			return errf(CodeAttackNotBonus, "This attack can't be used as a Bonus Action", map[string]any{"attack_name": cmd.AttackName})
		}
		if !attacker.BonusAvailable {
			return errf(CodeNoBonusAction, "No bonus action available this turn", nil)
		}
		return ok(CostPreview{"economy": "bonus"})

	case CmdMultiattack:
		if !s.HasTurnOwner || cmd.AttackerID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "Multiattack only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "attacker_id": cmd.AttackerID})
		}
		attacker, aOK := s.Combatant(cmd.AttackerID)
		_, tOK := s.Combatant(cmd.TargetID)
		if !aOK || !tOK {
			return errf(CodeUnknownCombatant, "Attacker or target not found", map[string]any{"attacker_id": cmd.AttackerID, "target_id": cmd.TargetID})
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "Multiattack requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if attacker.Surprised && !attacker.HasTakenFirstTurn {
			return errf(CodeSurprisedBlock, "Surprised creature cannot take actions on its first turn", nil)
		}
		if attacker.HasCondition("unconscious") {
			return errf(CodeConditionBlocksAction, "Unconscious creature cannot take actions", nil)
		}
		if !attacker.ActionAvailable {
			return errf(CodeNoAction, "No action available this turn", nil)
		}
		attackNames, found := attacker.Multiattacks[cmd.MultiattackName]
		if !found {
			return errf(CodeUnknownMultiattack, "Attacker does not have this multiattack", map[string]any{"multiattack_name": cmd.MultiattackName})
		}
		var missing []string
		for _, a := range attackNames {
			if _, found := attacker.Attacks[a]; !found {
				missing = append(missing, a)
			}
		}
		if len(missing) > 0 {
			return errf(CodeMultiattackMissingAttacks, "Multiattack references missing attacks", map[string]any{"missing": missing})
		}
		return ok(CostPreview{"action": 1})

	case CmdMove:
		if !s.HasTurnOwner || cmd.MoverID != s.TurnOwnerID {
			return errf(CodeNotYourTurn, "Move only by turn owner", map[string]any{"turn_owner_id": s.TurnOwnerID, "mover_id": cmd.MoverID})
		}
		mover, found := s.Combatant(cmd.MoverID)
		if !found {
			return errf(CodeUnknownCombatant, "Mover not found", map[string]any{"mover_id": cmd.MoverID})
		}
		if mover.HasCondition("unconscious") {
			return errf(CodeConditionBlocksMove, "Unconscious creature cannot move", nil)
		}
		if mover.HasCondition("grappled") {
			return errf(CodeConditionBlocksMove, "Grappled creature cannot move", nil)
		}
		if mover.HasCondition("restrained") {
			return errf(CodeConditionBlocksMove, "Restrained creature cannot move", nil)
		}
		if s.Phase != PhaseInTurn {
			return errf(CodeNotInTurn, "Move requires in_turn phase", map[string]any{"phase": s.Phase})
		}
		if mover.Surprised && !mover.HasTakenFirstTurn {
			return errf(CodeSurprisedBlock, "Surprised creature cannot move on its first turn", nil)
		}
		if len(cmd.Path) == 0 {
			return errf(CodeEmptyPath, "Move path is empty", nil)
		}
		cur := mover.Position
		steps := 0
		for _, p := range cmd.Path {
			if !adjacent8(cur, p) {
				return errf(CodeInvalidPath, "Move path must be step-by-step adjacent", map[string]any{"from_pos": cur, "to_pos": p})
			}
			steps++
			cur = p
		}
		costFt := steps * 5
		if mover.MovementRemainingFt < costFt {
			return errf(CodeNoMovement, "Not enough movement remaining", map[string]any{"needed_ft": costFt, "remaining_ft": mover.MovementRemainingFt})
		}
		return ok(CostPreview{"movement_ft": costFt})

	case CmdUseReaction:
		if s.ReactionWindow == nil {
			return errf(CodeNoReactionWindow, "No reaction window is open", nil)
		}
		rw := s.ReactionWindow
		if cmd.ReactorID != rw.ThreatenedByID {
			return errf(CodeNotEligibleReactor, "This reactor is not eligible for the current window", map[string]any{"reactor_id": cmd.ReactorID, "eligible": rw.ThreatenedByID})
		}
		reactor, rOK := s.Combatant(cmd.ReactorID)
		_, mOK := s.Combatant(rw.MoverID)
		if !rOK || !mOK {
			return errf(CodeUnknownCombatant, "Reactor or mover not found", map[string]any{"reactor_id": cmd.ReactorID, "mover_id": rw.MoverID})
		}
		if reactor.HasCondition("unconscious") {
			return errf(CodeConditionBlocksReaction, "Unconscious creature cannot take reactions", nil)
		}
		if reactor.Surprised && !reactor.HasTakenFirstTurn {
			return errf(CodeSurprisedBlockReaction, "Surprised creature cannot take reactions until its first turn ends", nil)
		}
		if !reactor.ReactionAvailable {
			return errf(CodeNoReaction, "No reaction available", nil)
		}
		if _, found := reactor.Attacks[cmd.AttackName]; !found {
			return errf(CodeUnknownAttack, "Reactor does not have this attack", map[string]any{"attack_name": cmd.AttackName})
		}
		return ok(CostPreview{"reaction": 1})

	case CmdDeclineReaction:
		if s.ReactionWindow == nil {
			return errf(CodeNoReactionWindow, "No reaction window is open", nil)
		}
		rw := s.ReactionWindow
		if cmd.ReactorID != rw.ThreatenedByID {
			return errf(CodeNotEligibleReactor, "This reactor is not eligible for the current window", map[string]any{"reactor_id": cmd.ReactorID, "eligible": rw.ThreatenedByID})
		}
		return ok(nil)
	}

	return errf(CodeUnknownCommand, "Unhandled command type", map[string]any{"type": cmd.Type})
}
