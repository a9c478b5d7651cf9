package engine

import "fmt"

// EventType discriminates the Event tagged union.
type EventType string

const (
	EvtCommandRejected            EventType = "CommandRejected"
	EvtCombatStarted              EventType = "CombatStarted"
	EvtInitiativeSet              EventType = "InitiativeSet"
	EvtInitiativeRolled           EventType = "InitiativeRolled"
	EvtInitiativeOrderFinalized   EventType = "InitiativeOrderFinalized"
	EvtRoundStarted               EventType = "RoundStarted"
	EvtTurnStarted                EventType = "TurnStarted"
	EvtTurnResourcesReset         EventType = "TurnResourcesReset"
	EvtDisengageApplied           EventType = "DisengageApplied"
	EvtMovementStarted            EventType = "MovementStarted"
	EvtMovedStep                  EventType = "MovedStep"
	EvtMovementStopped            EventType = "MovementStopped"
	EvtOpportunityAttackTriggered EventType = "OpportunityAttackTriggered"
	EvtReactionWindowOpened       EventType = "ReactionWindowOpened"
	EvtReactionWindowClosed       EventType = "ReactionWindowClosed"
	EvtAttackDeclared             EventType = "AttackDeclared"
	EvtMultiattackDeclared        EventType = "MultiattackDeclared"
	EvtAttackRolled               EventType = "AttackRolled"
	EvtHitConfirmed               EventType = "HitConfirmed"
	EvtMissConfirmed              EventType = "MissConfirmed"
	EvtDamageRolled               EventType = "DamageRolled"
	EvtDamageApplied              EventType = "DamageApplied"
	EvtTurnEnded                  EventType = "TurnEnded"
	EvtConditionApplied           EventType = "ConditionApplied"
	EvtConditionRemoved           EventType = "ConditionRemoved"
	EvtUnconsciousStateChanged    EventType = "UnconsciousStateChanged"
	EvtSaveEffectDeclared         EventType = "SaveEffectDeclared"
	EvtSavingThrowRolled          EventType = "SavingThrowRolled"
	EvtSavingThrowSucceeded       EventType = "SavingThrowSucceeded"
	EvtSavingThrowFailed          EventType = "SavingThrowFailed"
	EvtEffectDamageRolled         EventType = "EffectDamageRolled"
	EvtEffectDamageApplied        EventType = "EffectDamageApplied"
	EvtSaveEffectNegated          EventType = "SaveEffectNegated"
	EvtDeathSaveRequired          EventType = "DeathSaveRequired"
	EvtDeathSaveRolled            EventType = "DeathSaveRolled"
	EvtDeathSaveResult            EventType = "DeathSaveResult"
	EvtStabilized                 EventType = "Stabilized"
	EvtDied                       EventType = "Died"
	EvtHealed                     EventType = "Healed"
	EvtConcentrationStarted       EventType = "ConcentrationStarted"
	EvtConcentrationEnded         EventType = "ConcentrationEnded"
	EvtConcentrationCheckTriggered EventType = "ConcentrationCheckTriggered"
	EvtConcentrationCheckRolled   EventType = "ConcentrationCheckRolled"
	EvtConcentrationMaintained    EventType = "ConcentrationMaintained"
	EvtConcentrationBroken        EventType = "ConcentrationBroken"
	EvtSpellCastDeclared          EventType = "SpellCastDeclared"
	EvtSpellSlotSpent             EventType = "SpellSlotSpent"
	EvtEffectApplied              EventType = "EffectApplied"
	EvtEffectEnded                EventType = "EffectEnded"
)

// Event is the envelope every emitted event shares;
// Payload carries the event-specific fields as a plain map so one Go type
// serves the entire tagged union without forty near-identical structs.
type Event struct {
	EventID      string
	Seq          uint64
	T            uint64
	Type         EventType
	Round        int
	TurnOwnerID  string
	HasTurnOwner bool
	ActorID      string
	HasActorID   bool
	Payload      map[string]any
}

// newEventID derives a stable id from the event's own seq number rather
// than a randomly generated UUID: two independent runs sharing a seed
// and command stream must produce byte-identical event streams, and a
// crypto-random id would break that on every single event.
func newEventID(seq uint64) string {
	return fmt.Sprintf("evt-%020d", seq)
}

// emit mints event_id/seq/t (via Bump) and appends the built event to
// *events. Every reducer mutation site goes through this so seq/t are
// always assigned immediately before the event they stamp.
func emit(events *[]Event, s *EncounterState, typ EventType, actorID string, payload map[string]any) Event {
	seq, t := s.Bump()
	ev := Event{
		EventID: newEventID(seq),
		Seq:     seq,
		T:       t,
		Type:    typ,
		Round:   s.Round,
		Payload: payload,
	}
	if s.HasTurnOwner {
		ev.TurnOwnerID = s.TurnOwnerID
		ev.HasTurnOwner = true
	}
	if actorID != "" {
		ev.ActorID = actorID
		ev.HasActorID = true
	}
	*events = append(*events, ev)
	return ev
}

func rollPayload(r *Roll) map[string]any {
	return map[string]any{
		"dice":        r.Dice,
		"kept":        r.Kept,
		"nat":         r.Nat,
		"bonus":       r.Bonus,
		"mods":        r.Mods,
		"total":       r.Total,
		"is_critical": r.IsCritical,
		"adv_state":   r.AdvState,
	}
}
