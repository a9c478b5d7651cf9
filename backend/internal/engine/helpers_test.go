package engine

// newTestEncounter builds a two-combatant encounter (attacker "a" acts first,
// defender "b" second) already through StartCombat/initiative/BeginTurn so
// individual tests can start directly from an in_turn state owned by "a".
func newTestEncounter(seed int64, a, b *Combatant) *EncounterState {
	s := NewEncounterState(seed, nil)
	s.AddCombatant(a)
	s.AddCombatant(b)
	Apply(s, Command{Type: CmdStartCombat}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: a.ID, Initiative: 20}, nil)
	Apply(s, Command{Type: CmdSetInitiative, CombatantID: b.ID, Initiative: 10}, nil)
	Apply(s, Command{Type: CmdFinalizeInitiative}, nil)
	Apply(s, Command{Type: CmdBeginTurn, CombatantID: a.ID}, nil)
	return s
}

func newFighter(id, name string, ac, hp int) *Combatant {
	c := NewCombatant(id, name)
	c.AC = ac
	c.HPCurrent = hp
	c.HPMax = hp
	c.SpeedFt = 30
	return c
}

func lastEvent(events []Event) Event {
	return events[len(events)-1]
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func containsRejected(events []Event, code RejectionCode) bool {
	for _, e := range events {
		if e.Type == EvtCommandRejected && e.Payload["code"] == code {
			return true
		}
	}
	return false
}
