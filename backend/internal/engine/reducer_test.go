package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullLifecycleSeededHit(t *testing.T) {
	a := newFighter("a", "Attacker", 15, 20)
	a.Attacks["sword"] = AttackProfile{Name: "sword", ToHitBonus: 5, DamageFormula: "1d8+3", DamageType: "slashing", UsesAction: true}
	b := newFighter("b", "Defender", 13, 20)

	s := NewEncounterState(1234, nil)
	s.AddCombatant(a)
	s.AddCombatant(b)

	Apply(s, Command{Type: CmdStartCombat}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "a", Initiative: 20}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "b", Initiative: 10}, nil)
	Apply(s, Command{Type: CmdFinalizeInitiative}, nil)
	Apply(s, Command{Type: CmdBeginTurn, CombatantID: "a"}, nil)

	events := Apply(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "sword", Economy: EconomyAction}, DefaultRollMiddlewares())

	types := eventTypes(events)
	require.Contains(t, types, EvtAttackDeclared)
	require.Contains(t, types, EvtAttackRolled)
	require.True(t, types[len(types)-1] == EvtMissConfirmed || types[len(types)-1] == EvtDamageApplied || contains(types, EvtHitConfirmed))

	// Either the attack missed (stops at MissConfirmed) or it hit and damage
	// was applied and hp_current dropped accordingly -- both are legitimate
	// outcomes of a real d20 roll, so assert the implication rather than a
	// fixed roll.
	if contains(types, EvtHitConfirmed) {
		require.Contains(t, types, EvtDamageRolled)
		require.Contains(t, types, EvtDamageApplied)
		assert.Less(t, b.HPCurrent, 20)
	} else {
		require.Contains(t, types, EvtMissConfirmed)
		assert.Equal(t, 20, b.HPCurrent)
	}
}

func contains(types []EventType, want EventType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func TestCommandRejectedLeavesStateUnchangedAndEmitsOneEvent(t *testing.T) {
	s := NewEncounterState(1, nil)
	a := newFighter("a", "A", 12, 10)
	s.AddCombatant(a)
	before := *a

	events := Apply(s, Command{Type: CmdBeginTurn, CombatantID: "a"}, nil)
	require.Len(t, events, 1)
	assert.Equal(t, EvtCommandRejected, events[0].Type)
	assert.Equal(t, CodeNotYourTurn, events[0].Payload["code"])
	assert.Equal(t, before, *a, "rejected command must not mutate state")
	assert.Equal(t, uint64(1), s.Seq, "the CommandRejected event itself still consumes one seq/t tick")
}

func TestValidateErrorAlwaysYieldsExactlyOneCommandRejected(t *testing.T) {
	s := NewEncounterState(1, nil)
	cmd := Command{Type: CmdFinalizeInitiative}
	_, verr := Validate(s, cmd)
	require.NotNil(t, verr)
	events := Apply(s, cmd, nil)
	require.Len(t, events, 1)
	assert.Equal(t, EvtCommandRejected, events[0].Type)
	assert.Equal(t, verr.Code, events[0].Payload["code"])
}

func TestSeqAndTStrictlyIncreasingAcrossCalls(t *testing.T) {
	a := newFighter("a", "A", 12, 10)
	b := newFighter("b", "B", 12, 10)
	s := newTestEncounter(1, a, b)

	var lastSeq, lastT uint64
	calls := []Command{
		{Type: CmdEndTurn, CombatantID: "a"},
		{Type: CmdBeginTurn, CombatantID: "b"},
		{Type: CmdEndTurn, CombatantID: "b"},
		{Type: CmdBeginTurn, CombatantID: "a"},
	}
	for _, cmd := range calls {
		events := Apply(s, cmd, nil)
		for _, e := range events {
			assert.Greater(t, e.Seq, lastSeq)
			assert.Greater(t, e.T, lastT)
			lastSeq, lastT = e.Seq, e.T
		}
	}
}

func TestFinalizeInitiativeOrdersByInitiativeDescThenIDAsc(t *testing.T) {
	s := NewEncounterState(1, nil)
	s.AddCombatant(newFighter("zeta", "Z", 12, 10))
	s.AddCombatant(newFighter("alpha", "A", 12, 10))
	s.AddCombatant(newFighter("beta", "B", 12, 10))
	Apply(s, Command{Type: CmdStartCombat}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "zeta", Initiative: 15}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "alpha", Initiative: 15}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "beta", Initiative: 20}, nil)
	Apply(s, Command{Type: CmdFinalizeInitiative}, nil)

	assert.Equal(t, []string{"beta", "alpha", "zeta"}, s.InitiativeOrder)
	assert.Equal(t, "beta", s.TurnOwnerID)
	assert.True(t, s.InitiativeFinalized)
}

func TestDeterminismSameSeedSameCommandsSameEvents(t *testing.T) {
	build := func() []Event {
		a := newFighter("a", "A", 12, 20)
		a.Attacks["sword"] = AttackProfile{Name: "sword", ToHitBonus: 5, DamageFormula: "1d8+3", DamageType: "slashing", UsesAction: true}
		b := newFighter("b", "B", 13, 20)
		s := NewEncounterState(999, nil)
		s.AddCombatant(a)
		s.AddCombatant(b)
		Apply(s, Command{Type: CmdStartCombat}, nil)
		Apply(s, Command{Type: CmdSetInitiative, CombatantID: "a", Initiative: 20}, nil)
		Apply(s, Command{Type: CmdSetInitiative, CombatantID: "b", Initiative: 10}, nil)
		Apply(s, Command{Type: CmdFinalizeInitiative}, nil)
		Apply(s, Command{Type: CmdBeginTurn, CombatantID: "a"}, nil)
		return Apply(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "sword", Economy: EconomyAction}, DefaultRollMiddlewares())
	}
	run1 := build()
	run2 := build()
	require.Equal(t, len(run1), len(run2))
	for i := range run1 {
		assert.Equal(t, run1[i], run2[i], "event %d must be byte-identical across runs", i)
	}
}

func TestHPCurrentStaysWithinBoundsAfterDamage(t *testing.T) {
	b := newFighter("b", "B", 1, 5)
	_, _, hpAfter := applyDamageWithTempHP(b, 500)
	assert.Equal(t, 0, hpAfter, "massive overkill damage must clamp to zero, not go negative")
	assert.Equal(t, 0, b.HPCurrent)
	assert.GreaterOrEqual(t, b.HPCurrent, 0)
	assert.LessOrEqual(t, b.HPCurrent, b.HPMax)
}

func TestApplyDamageWithTempHPDrainsTempFirst(t *testing.T) {
	b := newFighter("b", "B", 1, 20)
	b.TempHP = 5
	tempBefore, hpBefore, hpAfter := applyDamageWithTempHP(b, 8)
	assert.Equal(t, 5, tempBefore)
	assert.Equal(t, 20, hpBefore)
	assert.Equal(t, 17, hpAfter)
	assert.Equal(t, 0, b.TempHP)
}

func TestDisengageIdempotenceWithinATurn(t *testing.T) {
	a := newFighter("a", "A", 12, 10)
	b := newFighter("b", "B", 12, 10)
	s := newTestEncounter(1, a, b)

	events := Apply(s, Command{Type: CmdDisengage, CombatantID: "a"}, nil)
	require.Equal(t, EvtDisengageApplied, lastEvent(events).Type)
	assert.True(t, a.NoOpportunityAttacksUntilTurnEnd)

	events = Apply(s, Command{Type: CmdDisengage, CombatantID: "a"}, nil)
	require.Equal(t, EvtCommandRejected, lastEvent(events).Type)
	assert.Equal(t, CodeNoAction, lastEvent(events).Payload["code"])
	assert.True(t, a.NoOpportunityAttacksUntilTurnEnd, "the no-OA flag from the first Disengage must persist")
}

func TestHealClampsToMaxAndEmitsOneEvent(t *testing.T) {
	s := NewEncounterState(1, nil)
	target := newFighter("b", "B", 12, 20)
	target.HPCurrent = 18
	s.AddCombatant(target)
	events := Apply(s, Command{Type: CmdHeal, TargetID: "b", Amount: 500}, nil)
	require.Len(t, events, 1)
	assert.Equal(t, EvtHealed, events[0].Type)
	assert.Equal(t, 20, target.HPCurrent)
	assert.Equal(t, 20, events[0].Payload["hp_after"])
}

func TestNat1AlwaysMissesRegardlessOfAC(t *testing.T) {
	found := false
	for seed := int64(1); seed < 3000 && !found; seed++ {
		a := newFighter("a", "A", 1, 20)
		a.Attacks["sword"] = AttackProfile{Name: "sword", ToHitBonus: 50, DamageFormula: "1d8", UsesAction: true}
		b := newFighter("b", "B", 1, 20) // AC 1: nearly anything hits except a natural 1
		s := newTestEncounter(seed, a, b)
		events := Apply(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "sword", Economy: EconomyAction}, nil)
		for _, e := range events {
			if e.Type == EvtAttackRolled {
				roll := e.Payload["roll"].(map[string]any)
				if roll["nat"].(int) == 1 {
					found = true
					assert.Equal(t, EvtMissConfirmed, lastEvent(events).Type, "seed %d: nat=1 must auto-miss", seed)
				}
			}
		}
	}
	require.True(t, found, "expected to find a seed producing a natural 1 within the search budget")
}

func TestCriticalOnNat20DoublesDamageDice(t *testing.T) {
	found := false
	for seed := int64(1); seed < 3000 && !found; seed++ {
		a := newFighter("a", "A", 1, 20)
		a.Attacks["sword"] = AttackProfile{Name: "sword", ToHitBonus: 50, DamageFormula: "1d8", UsesAction: true}
		b := newFighter("b", "B", 1, 100)
		s := newTestEncounter(seed, a, b)
		events := Apply(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "sword", Economy: EconomyAction}, nil)
		for _, e := range events {
			if e.Type == EvtAttackRolled {
				roll := e.Payload["roll"].(map[string]any)
				if roll["nat"].(int) == 20 {
					found = true
					for _, e2 := range events {
						if e2.Type == EvtDamageRolled {
							dmgRoll := e2.Payload["roll"].(map[string]any)
							dice := dmgRoll["dice"].([]int)
							assert.Len(t, dice, 2, "seed %d: a crit must roll double dice for 1d8", seed)
						}
					}
				}
			}
		}
	}
	require.True(t, found, "expected to find a seed producing a natural 20 within the search budget")
}

func TestCriticalAgainstUnconsciousTargetInReach(t *testing.T) {
	found := false
	for seed := int64(1); seed < 3000 && !found; seed++ {
		a := newFighter("a", "A", 10, 20)
		a.Position = Position{X: 0, Y: 0}
		a.Attacks["dagger"] = AttackProfile{Name: "dagger", ToHitBonus: 50, DamageFormula: "1d4", UsesAction: true}
		b := newFighter("b", "B", 30, 20)
		b.Position = Position{X: 1, Y: 0}
		b.Conditions["unconscious"] = true
		s := newTestEncounter(seed, a, b)
		events := Apply(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "dagger", Economy: EconomyAction}, nil)
		for _, e := range events {
			if e.Type == EvtAttackRolled {
				roll := e.Payload["roll"].(map[string]any)
				if roll["nat"].(int) == 1 {
					continue // auto-miss: doesn't exercise this law, try another seed
				}
			}
			if e.Type == EvtDamageApplied {
				found = true
				assert.True(t, e.Payload["is_critical"].(bool), "melee attack against an adjacent unconscious target is always a final crit")
			}
		}
	}
	require.True(t, found, "expected at least one non-nat-1 seed within the search budget")
}

func TestOpportunityAttackInterruptsMove(t *testing.T) {
	mover := newFighter("mover", "Mover", 12, 20)
	mover.Side, mover.HasSide = SidePlayers, true
	mover.Position = Position{X: 0, Y: 0}
	enemy := newFighter("enemy", "Enemy", 12, 20)
	enemy.Side, enemy.HasSide = SideEnemies, true
	enemy.Position = Position{X: 1, Y: 0}
	enemy.Attacks["claw"] = AttackProfile{Name: "claw", ToHitBonus: 4, DamageFormula: "1d6", UsesAction: true}

	s := newTestEncounter(1, mover, enemy)
	events := Apply(s, Command{Type: CmdMove, MoverID: "mover", Path: []Position{{X: 0, Y: 1}, {X: 0, Y: 2}}}, nil)

	types := eventTypes(events)
	assert.Equal(t, []EventType{
		EvtMovementStarted, EvtMovedStep,
		EvtOpportunityAttackTriggered, EvtReactionWindowOpened, EvtMovementStopped,
	}, types)
	assert.Equal(t, Position{X: 0, Y: 1}, mover.Position, "mover should stop at the first step, not reach the planned end")
	assert.Equal(t, PhaseReactionWindow, s.Phase)
	require.NotNil(t, s.ReactionWindow)
	assert.Equal(t, "enemy", s.ReactionWindow.ThreatenedByID)
}

func TestAlliesNeverTriggerOpportunityAttacks(t *testing.T) {
	mover := newFighter("mover", "Mover", 12, 20)
	mover.Side, mover.HasSide = SidePlayers, true
	mover.Position = Position{X: 0, Y: 0}
	ally := newFighter("ally", "Ally", 12, 20)
	ally.Side, ally.HasSide = SidePlayers, true
	ally.Position = Position{X: 1, Y: 0}
	ally.Attacks["claw"] = AttackProfile{Name: "claw", ToHitBonus: 4, DamageFormula: "1d6", UsesAction: true}

	s := newTestEncounter(1, mover, ally)
	events := Apply(s, Command{Type: CmdMove, MoverID: "mover", Path: []Position{{X: 0, Y: 1}}}, nil)
	assert.Nil(t, s.ReactionWindow)
	for _, e := range events {
		assert.NotEqual(t, EvtOpportunityAttackTriggered, e.Type)
	}
}

func TestUseReactionResolvesAttackAndClosesWindow(t *testing.T) {
	mover := newFighter("mover", "Mover", 12, 20)
	mover.Side, mover.HasSide = SidePlayers, true
	enemy := newFighter("enemy", "Enemy", 1, 20)
	enemy.Side, enemy.HasSide = SideEnemies, true
	enemy.Position = Position{X: 1, Y: 0}
	enemy.Attacks["claw"] = AttackProfile{Name: "claw", ToHitBonus: 50, DamageFormula: "1d6", UsesAction: true}

	s := newTestEncounter(1, mover, enemy)
	Apply(s, Command{Type: CmdMove, MoverID: "mover", Path: []Position{{X: 0, Y: 1}, {X: 0, Y: 2}}}, nil)
	require.NotNil(t, s.ReactionWindow)

	events := Apply(s, Command{Type: CmdUseReaction, ReactorID: "enemy", AttackName: "claw"}, nil)
	assert.Nil(t, s.ReactionWindow)
	assert.Equal(t, PhaseInTurn, s.Phase)
	assert.Equal(t, EvtReactionWindowClosed, lastEvent(events).Type)
	assert.Equal(t, "reaction_used", lastEvent(events).Payload["closed_by"])
	assert.False(t, enemy.ReactionAvailable)
}

func TestDeclineReactionClosesWindowWithoutAttacking(t *testing.T) {
	mover := newFighter("mover", "Mover", 12, 20)
	mover.Side, mover.HasSide = SidePlayers, true
	enemy := newFighter("enemy", "Enemy", 12, 20)
	enemy.Side, enemy.HasSide = SideEnemies, true
	enemy.Position = Position{X: 1, Y: 0}
	enemy.Attacks["claw"] = AttackProfile{Name: "claw", ToHitBonus: 4, DamageFormula: "1d6", UsesAction: true}

	s := newTestEncounter(1, mover, enemy)
	Apply(s, Command{Type: CmdMove, MoverID: "mover", Path: []Position{{X: 0, Y: 1}, {X: 0, Y: 2}}}, nil)
	require.NotNil(t, s.ReactionWindow)

	events := Apply(s, Command{Type: CmdDeclineReaction, ReactorID: "enemy"}, nil)
	assert.Nil(t, s.ReactionWindow)
	assert.Equal(t, EvtReactionWindowClosed, lastEvent(events).Type)
	assert.Equal(t, "declined", lastEvent(events).Payload["closed_by"])
	assert.True(t, enemy.ReactionAvailable, "declining must not spend the reaction")
}

func TestSaveEffectSharedRollHalvesOnSuccessFullOnFail(t *testing.T) {
	source := newFighter("src", "Src", 12, 20)
	winner := newFighter("winner", "Winner", 12, 50)
	winner.SaveBonuses["dex"] = 100
	loser := newFighter("loser", "Loser", 12, 50)
	loser.SaveBonuses["dex"] = -100

	s := NewEncounterState(1, nil)
	s.AddCombatant(source)
	s.AddCombatant(winner)
	s.AddCombatant(loser)
	Apply(s, Command{Type: CmdStartCombat}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "src", Initiative: 20}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "winner", Initiative: 10}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "loser", Initiative: 5}, nil)
	Apply(s, Command{Type: CmdFinalizeInitiative}, nil)
	Apply(s, Command{Type: CmdBeginTurn, CombatantID: "src"}, nil)

	events := Apply(s, Command{
		Type: CmdSaveEffect, SourceID: "src", TargetIDs: []string{"winner", "loser"},
		EffectName: "fireball", SaveAbility: "dex", DC: 15, OnSuccess: OnSuccessHalf,
		DamageFormula: "8d6", DamageType: "fire", Economy: EconomyAction,
	}, nil)

	var sharedTotal int
	var sawShared bool
	var winnerAdjustedFinal, loserAdjustedFinal int
	for _, e := range events {
		if e.Type == EvtEffectDamageRolled {
			roll := e.Payload["roll"].(map[string]any)
			total := roll["total"].(int)
			if !sawShared {
				sharedTotal = total
				sawShared = true
			} else {
				assert.Equal(t, sharedTotal, total, "the damage roll must be shared across all targets in one SaveEffect call")
			}
		}
		if e.Type == EvtEffectDamageApplied {
			switch e.ActorID {
			case "winner":
				winnerAdjustedFinal = e.Payload["adjusted_final"].(int)
			case "loser":
				loserAdjustedFinal = e.Payload["adjusted_final"].(int)
			}
		}
	}
	require.True(t, sawShared)
	assert.Equal(t, sharedTotal/2, winnerAdjustedFinal, "successful save halves the shared roll")
	assert.Equal(t, sharedTotal, loserAdjustedFinal, "failed save takes the full shared roll")
}

func TestConcentrationMaintainedOnSuccessfulConSave(t *testing.T) {
	a := newFighter("a", "A", 12, 20)
	a.Attacks["sword"] = AttackProfile{Name: "sword", ToHitBonus: 50, DamageFormula: "1d4", UsesAction: true}
	b := newFighter("b", "B", 1, 50)
	b.SaveBonuses["con"] = 100
	b.Concentration = &EffectRef{EffectName: "bless", SourceID: "b", StartedRound: 1}
	s := newTestEncounter(1, a, b)

	events := Apply(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "sword", Economy: EconomyAction}, nil)
	if contains(eventTypes(events), EvtDamageApplied) {
		assert.Contains(t, eventTypes(events), EvtConcentrationMaintained)
		assert.NotNil(t, b.Concentration)
	}
}

func TestConcentrationBreaksOnIncapacitationWithoutRoll(t *testing.T) {
	a := newFighter("a", "A", 12, 20)
	a.Attacks["sword"] = AttackProfile{Name: "sword", ToHitBonus: 50, DamageFormula: "50d1+1000", UsesAction: true}
	b := newFighter("b", "B", 1, 10)
	b.SaveBonuses["con"] = 100 // would always succeed a roll -- concentration must still break via the incapacitation shortcut
	b.Concentration = &EffectRef{EffectName: "bless", SourceID: "b", StartedRound: 1}
	s := newTestEncounter(1, a, b)

	events := Apply(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "sword", Economy: EconomyAction}, nil)
	require.Contains(t, eventTypes(events), EvtConcentrationBroken)
	require.Contains(t, eventTypes(events), EvtConcentrationEnded)
	assert.Nil(t, b.Concentration)
	for _, e := range events {
		assert.NotEqual(t, EvtConcentrationCheckRolled, e.Type, "the incapacitation shortcut never rolls")
	}
}

func TestAnchoredEffectsRemovedWhenConcentrationEnds(t *testing.T) {
	owner := newFighter("owner", "Owner", 12, 20)
	target := newFighter("target", "Target", 12, 20)
	s := newTestEncounter(1, owner, target)
	owner.Concentration = &EffectRef{EffectName: "hold_person", SourceID: "owner", StartedRound: 1}
	target.Conditions["paralyzed"] = true
	s.PutEffect(&ActiveEffect{
		ID: "E1", Name: "hold_person", SourceID: "owner", TargetID: "target",
		HasConcentrationOwner: true, ConcentrationOwnerID: "owner", ConcentrationEffectName: "hold_person",
		AppliesConditions: map[string]bool{"paralyzed": true},
	})

	events := Apply(s, Command{Type: CmdEndConcentration, CombatantID: "owner", Reason: "voluntary"}, nil)
	assert.Contains(t, eventTypes(events), EvtEffectEnded)
	assert.Contains(t, eventTypes(events), EvtConditionRemoved)
	assert.False(t, target.HasCondition("paralyzed"))
	_, found := s.Effect("E1")
	assert.False(t, found)
}

func TestDeathSaveRevivesOnNat20(t *testing.T) {
	found := false
	for seed := int64(1); seed < 3000 && !found; seed++ {
		s := NewEncounterState(seed, nil)
		a := newFighter("a", "A", 12, 20)
		a.IsPlayerCharacter = true
		a.HPCurrent = 0
		s.AddCombatant(a)
		Apply(s, Command{Type: CmdStartCombat}, nil)
		Apply(s, Command{Type: CmdSetInitiative, CombatantID: "a", Initiative: 10}, nil)
		Apply(s, Command{Type: CmdFinalizeInitiative}, nil)
		Apply(s, Command{Type: CmdBeginTurn, CombatantID: "a"}, nil)
		events := Apply(s, Command{Type: CmdRollDeathSave, CombatantID: "a"}, nil)
		for _, e := range events {
			if e.Type == EvtDeathSaveRolled {
				roll := e.Payload["roll"].(map[string]any)
				if roll["nat"].(int) == 20 {
					found = true
					assert.Equal(t, 1, a.HPCurrent)
					assert.False(t, a.IsDead)
					assert.Equal(t, "revived", lastEvent(events).Payload["outcome"])
				}
			}
		}
	}
	require.True(t, found)
}

func TestDeathSaveThreeFailuresKillsCombatant(t *testing.T) {
	s := NewEncounterState(1, nil)
	a := newFighter("a", "A", 12, 20)
	a.IsPlayerCharacter = true
	a.HPCurrent = 0
	a.DeathSaves = DeathSaves{Failures: 2}
	s.AddCombatant(a)
	Apply(s, Command{Type: CmdStartCombat}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "a", Initiative: 10}, nil)
	Apply(s, Command{Type: CmdFinalizeInitiative}, nil)
	Apply(s, Command{Type: CmdBeginTurn, CombatantID: "a"}, nil)

	// Force the outcome deterministically: directly exercise the reducer's
	// accounting by driving death saves until either revived or dead (bounded
	// loop), asserting the invariant rather than a specific roll.
	for i := 0; i < 20 && !a.IsDead && a.HPCurrent == 0; i++ {
		Apply(s, Command{Type: CmdRollDeathSave, CombatantID: "a"}, nil)
	}
	if a.IsDead {
		assert.GreaterOrEqual(t, a.DeathSaves.Failures, 3) // death is only set once failures reach three; they are not reset on death
	}
}

func TestBeginTurnEmitsTurnStartedBeforeResourcesReset(t *testing.T) {
	s := NewEncounterState(1, nil)
	a := newFighter("a", "A", 12, 20)
	s.AddCombatant(a)
	Apply(s, Command{Type: CmdStartCombat}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: "a", Initiative: 10}, nil)
	Apply(s, Command{Type: CmdFinalizeInitiative}, nil)

	events := Apply(s, Command{Type: CmdBeginTurn, CombatantID: "a"}, nil)
	assert.Equal(t, []EventType{EvtTurnStarted, EvtTurnResourcesReset}, eventTypes(events))
	assert.Equal(t, 30, a.MovementRemainingFt)
	assert.True(t, a.ActionAvailable)
}

func TestDeathSaveThirdSuccessStabilizes(t *testing.T) {
	found := false
	for seed := int64(1); seed < 3000 && !found; seed++ {
		s := NewEncounterState(seed, nil)
		a := newFighter("a", "A", 12, 20)
		a.IsPlayerCharacter = true
		a.HPCurrent = 0
		a.DeathSaves = DeathSaves{Successes: 2, Failures: 1}
		s.AddCombatant(a)
		Apply(s, Command{Type: CmdStartCombat}, nil)
		Apply(s, Command{Type: CmdSetInitiative, CombatantID: "a", Initiative: 10}, nil)
		Apply(s, Command{Type: CmdFinalizeInitiative}, nil)
		Apply(s, Command{Type: CmdBeginTurn, CombatantID: "a"}, nil)

		events := Apply(s, Command{Type: CmdRollDeathSave, CombatantID: "a"}, nil)
		for _, e := range events {
			if e.Type != EvtDeathSaveRolled {
				continue
			}
			roll := e.Payload["roll"].(map[string]any)
			if nat := roll["nat"].(int); nat < 10 || nat == 20 {
				continue // not the third plain success, try another seed
			}
			found = true
			var result, last Event
			for _, e2 := range events {
				if e2.Type == EvtDeathSaveResult {
					result = e2
				}
				last = e2
			}
			assert.Equal(t, "stabilized", result.Payload["outcome"])
			assert.Equal(t, 3, result.Payload["successes"])
			assert.Equal(t, 0, result.Payload["failures"])
			assert.Equal(t, EvtStabilized, last.Type)
			assert.Equal(t, "death_saves", last.Payload["reason"])
			assert.True(t, a.IsStable)
			assert.Equal(t, DeathSaves{}, a.DeathSaves, "counters reset on stabilizing")
		}
	}
	require.True(t, found, "expected a seed rolling 10-19 within the search budget")
}

func TestMultiattackClearsAttackActionBookkeeping(t *testing.T) {
	a := newFighter("a", "A", 12, 20)
	a.AttacksPerAction = 2
	a.Attacks["claw"] = AttackProfile{Name: "claw", ToHitBonus: 5, DamageFormula: "1d6", UsesAction: true}
	a.Multiattacks["rend"] = []string{"claw", "claw"}
	b := newFighter("b", "B", 30, 50)
	s := newTestEncounter(1, a, b)

	Apply(s, Command{Type: CmdMultiattack, AttackerID: "a", TargetID: "b", MultiattackName: "rend"}, nil)
	assert.False(t, a.ActionAvailable)
	assert.False(t, a.AttackActionStarted)
	assert.Equal(t, 0, a.AttackActionRemaining)

	_, verr := Validate(s, Command{Type: CmdAttack, AttackerID: "a", TargetID: "b", AttackName: "claw", Economy: EconomyAction})
	require.NotNil(t, verr)
	assert.Equal(t, CodeNoAction, verr.Code)
}

func TestCastSpellSpendsSlotAndAppliesConditionsOnFailedSave(t *testing.T) {
	caster := newFighter("caster", "Caster", 12, 20)
	caster.HasSpellSaveDC, caster.SpellSaveDC = true, 50
	caster.SpellSlotsCurrent[2] = 1
	target := newFighter("target", "Target", 12, 20)
	target.SaveBonuses["wis"] = -50 // guarantees failure against DC 50
	s := newTestEncounter(1, caster, target)

	events := Apply(s, Command{Type: CmdCastSpell, CasterID: "caster", SpellName: "hold_person", TargetIDs: []string{"target"}, SlotLevel: 2}, nil)
	types := eventTypes(events)
	assert.Contains(t, types, EvtSpellSlotSpent)
	assert.Contains(t, types, EvtConcentrationStarted)
	assert.Contains(t, types, EvtSavingThrowFailed)
	assert.Contains(t, types, EvtEffectApplied)
	assert.Contains(t, types, EvtConditionApplied)
	assert.Equal(t, 0, caster.SpellSlotsCurrent[2])
	assert.True(t, target.HasCondition("paralyzed"))
	assert.NotNil(t, caster.Concentration)
}

func TestCastSpellReplacesExistingConcentration(t *testing.T) {
	caster := newFighter("caster", "Caster", 12, 20)
	caster.HasSpellSaveDC, caster.SpellSaveDC = true, 1
	caster.SpellSlotsCurrent[2] = 5
	caster.Concentration = &EffectRef{EffectName: "bless", SourceID: "caster", StartedRound: 1}
	target := newFighter("target", "Target", 12, 20)
	target.SaveBonuses["wis"] = 999 // guarantee success so no new effect muddies assertions
	s := newTestEncounter(1, caster, target)

	events := Apply(s, Command{Type: CmdCastSpell, CasterID: "caster", SpellName: "hold_person", TargetIDs: []string{"target"}, SlotLevel: 2}, nil)
	typesWithEndedFirst := false
	for _, e := range events {
		if e.Type == EvtConcentrationEnded && e.Payload["reason"] == "replaced" {
			typesWithEndedFirst = true
		}
	}
	assert.True(t, typesWithEndedFirst)
	require.NotNil(t, caster.Concentration)
	assert.Equal(t, "hold_person", caster.Concentration.EffectName)
}
