package models

import (
	"fmt"
	"time"
)

// Encounter is the hosting layer's record of one combat: who owns it,
// which seed it runs on, and where its lifecycle stands. The rules state
// itself lives in the snapshot store as an engine-encoded envelope; this
// row only carries what the API needs to list and authorize encounters
// without decoding that envelope.
type Encounter struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   string    `json:"ownerId" db:"owner_id"`
	Seed      int64     `json:"seed" db:"seed"`
	Status    string    `json:"status" db:"status"` // see EncounterStatus* constants
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Encounter lifecycle as the hosting layer tracks it. "active" spans the
// whole span from StartCombat to the last combatant standing; the finer
// phase breakdown (setup_initiative, in_turn, reaction_window) belongs to
// the engine state, not this row.
const (
	EncounterStatusSetup    = "setup"
	EncounterStatusActive   = "active"
	EncounterStatusFinished = "finished"
)

// CreateEncounterRequest is the request body for creating an encounter.
// A zero seed asks the server to pick one.
type CreateEncounterRequest struct {
	Name string `json:"name"`
	Seed int64  `json:"seed"`
}

var ErrEncounterNotFound = fmt.Errorf("encounter not found")
