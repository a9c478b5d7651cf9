// Package crdt hosts collaborative roster editing for the pre-combat
// phase: two GMs assembling the same encounter's combatant list merge
// their edits through automerge sync. Once StartCombat is issued the
// deterministic engine owns the encounter and this package is out of the
// picture -- rosters here are drafts, never live combat state.
package crdt

import (
	"sync"

	"github.com/automerge/automerge-go"
)

var store = struct {
	sync.RWMutex
	rosters map[string]*automerge.Doc
}{rosters: make(map[string]*automerge.Doc)}

// LoadRoster returns the draft roster document for an encounter,
// creating an empty one on first touch.
func LoadRoster(encounterID string) (*automerge.Doc, error) {
	store.RLock()
	doc, ok := store.rosters[encounterID]
	store.RUnlock()
	if ok {
		return doc, nil
	}
	newDoc := automerge.New()
	store.Lock()
	store.rosters[encounterID] = newDoc
	store.Unlock()
	return newDoc, nil
}

// ApplyChanges merges a batch of automerge changes into an encounter's
// draft roster.
func ApplyChanges(encounterID string, changes []byte) (*automerge.Doc, error) {
	doc, err := LoadRoster(encounterID)
	if err != nil {
		return nil, err
	}
	chgs, err := automerge.LoadChanges(changes)
	if err != nil {
		return nil, err
	}
	if err := doc.Apply(chgs...); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveSnapshot serialises the current draft roster, e.g. for the caller
// that maps it onto engine combatants at StartCombat time.
func SaveSnapshot(encounterID string) ([]byte, error) {
	doc, err := LoadRoster(encounterID)
	if err != nil {
		return nil, err
	}
	return doc.Save(), nil
}

// DropRoster discards a draft once combat has started and the roster has
// been handed to the engine.
func DropRoster(encounterID string) {
	store.Lock()
	delete(store.rosters, encounterID)
	store.Unlock()
}
