package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dndsim/combat-engine/backend/internal/auth"
	"github.com/dndsim/combat-engine/backend/internal/engine"
	"github.com/dndsim/combat-engine/backend/internal/models"
	"github.com/dndsim/combat-engine/backend/pkg/response"
)

// CreateEncounter handles POST /encounters.
//
// @Summary Create an encounter
// @Tags encounters
// @Accept json
// @Produce json
// @Param body body models.CreateEncounterRequest true "encounter"
// @Success 201 {object} models.Encounter
// @Router /encounters [post]
func (h *Handlers) CreateEncounter(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r, "")
		return
	}

	var req models.CreateEncounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	enc, err := h.encounters.Create(r.Context(), userID, req)
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	response.JSON(w, r, http.StatusCreated, enc)
}

// ListEncounters handles GET /encounters.
//
// @Summary List the caller's encounters
// @Tags encounters
// @Produce json
// @Success 200 {array} models.Encounter
// @Router /encounters [get]
func (h *Handlers) ListEncounters(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r, "")
		return
	}

	encounters, err := h.encounters.ListByOwner(r.Context(), userID)
	if err != nil {
		response.InternalServerError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, encounters)
}

// GetEncounter handles GET /encounters/{id}: metadata only.
//
// @Summary Get encounter metadata
// @Tags encounters
// @Produce json
// @Param id path string true "encounter id"
// @Success 200 {object} models.Encounter
// @Router /encounters/{id} [get]
func (h *Handlers) GetEncounter(w http.ResponseWriter, r *http.Request) {
	enc, err := h.encounters.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.NotFound(w, r, "Encounter")
		return
	}
	response.JSON(w, r, http.StatusOK, enc)
}

// GetEncounterSnapshot handles GET /encounters/{id}/snapshot: the raw
// engine envelope, ready for a client to hydrate from.
//
// @Summary Get the latest engine snapshot
// @Tags encounters
// @Produce json
// @Param id path string true "encounter id"
// @Success 200 {object} object
// @Router /encounters/{id}/snapshot [get]
func (h *Handlers) GetEncounterSnapshot(w http.ResponseWriter, r *http.Request) {
	raw, err := h.encounters.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.NotFound(w, r, "Encounter")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// combatantRequest is the roster-entry DTO mapped onto engine.Combatant.
type combatantRequest struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	AC                int            `json:"ac"`
	HP                int            `json:"hp"`
	TempHP            int            `json:"temp_hp"`
	SpeedFt           int            `json:"speed_ft"`
	Side              string         `json:"side"`
	X                 int            `json:"x"`
	Y                 int            `json:"y"`
	IsPlayerCharacter bool           `json:"is_player_character"`
	InitiativeBonus   int            `json:"initiative_bonus"`
	AttacksPerAction  int            `json:"attacks_per_action"`
	SaveBonuses       map[string]int `json:"save_bonuses"`
	Resistances       []string       `json:"damage_resistances"`
	Vulnerabilities   []string       `json:"damage_vulnerabilities"`
	Immunities        []string       `json:"damage_immunities"`

	SpellSaveDC      *int        `json:"spell_save_dc"`
	SpellAttackBonus *int        `json:"spell_attack_bonus"`
	SpellSlots       map[int]int `json:"spell_slots"`

	Attacks []attackRequest `json:"attacks"`
}

type attackRequest struct {
	Name          string `json:"name"`
	ToHitBonus    int    `json:"to_hit_bonus"`
	DamageFormula string `json:"damage_formula"`
	DamageType    string `json:"damage_type"`
	ReachFt       int    `json:"reach_ft"`
	UsesAction    bool   `json:"uses_action"`
	UsesBonus     bool   `json:"uses_bonus"`
}

func (req *combatantRequest) toCombatant() *engine.Combatant {
	c := engine.NewCombatant(req.ID, req.Name)
	c.AC = req.AC
	c.HPCurrent, c.HPMax = req.HP, req.HP
	c.TempHP = req.TempHP
	c.SpeedFt = req.SpeedFt
	if req.Side != "" {
		c.Side, c.HasSide = engine.Side(req.Side), true
	}
	c.Position = engine.Position{X: req.X, Y: req.Y}
	c.IsPlayerCharacter = req.IsPlayerCharacter
	c.InitiativeBonus = req.InitiativeBonus
	if req.AttacksPerAction > 0 {
		c.AttacksPerAction = req.AttacksPerAction
	}
	for ability, bonus := range req.SaveBonuses {
		c.SaveBonuses[ability] = bonus
	}
	for _, t := range req.Resistances {
		c.DamageResistances[t] = true
	}
	for _, t := range req.Vulnerabilities {
		c.DamageVulnerabilities[t] = true
	}
	for _, t := range req.Immunities {
		c.DamageImmunities[t] = true
	}
	if req.SpellSaveDC != nil {
		c.SpellSaveDC, c.HasSpellSaveDC = *req.SpellSaveDC, true
	}
	if req.SpellAttackBonus != nil {
		c.SpellAttackBonus, c.HasSpellAttackBonus = *req.SpellAttackBonus, true
	}
	for level, slots := range req.SpellSlots {
		c.SpellSlotsCurrent[level] = slots
		c.SpellSlotsMax[level] = slots
	}
	for _, a := range req.Attacks {
		c.Attacks[a.Name] = engine.AttackProfile{
			Name:          a.Name,
			ToHitBonus:    a.ToHitBonus,
			DamageFormula: a.DamageFormula,
			DamageType:    a.DamageType,
			ReachFt:       a.ReachFt,
			UsesAction:    a.UsesAction,
			UsesBonus:     a.UsesBonus,
		}
	}
	return c
}

// AddCombatant handles POST /encounters/{id}/combatants during setup.
//
// @Summary Add a combatant to the roster
// @Tags encounters
// @Accept json
// @Produce json
// @Param id path string true "encounter id"
// @Param body body combatantRequest true "combatant"
// @Success 201 {object} map[string]string
// @Router /encounters/{id}/combatants [post]
func (h *Handlers) AddCombatant(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r, "")
		return
	}

	var req combatantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if req.ID == "" || req.Name == "" {
		response.BadRequest(w, r, "combatant id and name are required")
		return
	}

	encounterID := mux.Vars(r)["id"]
	if err := h.encounters.AddCombatant(r.Context(), encounterID, userID, req.toCombatant()); err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]string{"combatant_id": req.ID})
}

// FinishEncounter handles POST /encounters/{id}/finish.
//
// @Summary Mark an encounter finished
// @Tags encounters
// @Produce json
// @Param id path string true "encounter id"
// @Success 200 {object} map[string]string
// @Router /encounters/{id}/finish [post]
func (h *Handlers) FinishEncounter(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r, "")
		return
	}

	encounterID := mux.Vars(r)["id"]
	if err := h.encounters.Finish(r.Context(), encounterID, userID); err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": models.EncounterStatusFinished})
}
