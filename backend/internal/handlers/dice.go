package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dndsim/combat-engine/backend/pkg/response"
)

type diceRollRequest struct {
	Notation string `json:"notation"`
	// Mode "advantage"/"disadvantage" rolls 1d20 twice; empty or
	// "normal" rolls the notation once.
	Mode string `json:"mode"`
}

// RollDice handles POST /dice/roll: an out-of-combat table roll. Rolls
// made here never touch an encounter -- in-combat dice come from the
// encounter's own seeded stream so replays stay deterministic.
//
// @Summary Roll dice
// @Tags dice
// @Accept json
// @Produce json
// @Param body body diceRollRequest true "roll"
// @Success 200 {object} dice.RollResult
// @Router /dice/roll [post]
func (h *Handlers) RollDice(w http.ResponseWriter, r *http.Request) {
	var req diceRollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	switch req.Mode {
	case "advantage":
		result, err := h.roller.RollAdvantage()
		if err != nil {
			response.BadRequest(w, r, err.Error())
			return
		}
		response.JSON(w, r, http.StatusOK, result)
	case "disadvantage":
		result, err := h.roller.RollDisadvantage()
		if err != nil {
			response.BadRequest(w, r, err.Error())
			return
		}
		response.JSON(w, r, http.StatusOK, result)
	default:
		result, err := h.roller.Roll(req.Notation)
		if err != nil {
			response.BadRequest(w, r, err.Error())
			return
		}
		response.JSON(w, r, http.StatusOK, result)
	}
}
