package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dndsim/combat-engine/backend/internal/auth"
	"github.com/dndsim/combat-engine/backend/internal/engine"
	"github.com/dndsim/combat-engine/backend/internal/models"
	"github.com/dndsim/combat-engine/backend/internal/services"
	"github.com/dndsim/combat-engine/backend/internal/websocket"
)

// gridPosition is the JSON-boundary shape of engine.Position; the engine
// package itself never sees raw JSON -- DTO validation lives here, not
// in internal/engine.
type gridPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// encounterCommandRequest is the wire shape of engine.Command: every
// variant's optional fields sit side by side, same as the tagged union it
// is bound into. gin's binding requires Type and toCommand refuses an
// unknown Type; the struct carries no go-playground/validator tags, and
// whether ids are present or known is left to the engine's validator.
type encounterCommandRequest struct {
	Type string `json:"type" binding:"required"`

	CombatantID string `json:"combatant_id"`
	Initiative  int    `json:"initiative"`
	Bonus       int    `json:"bonus"`

	AttackerID      string `json:"attacker_id"`
	TargetID        string `json:"target_id"`
	AttackName      string `json:"attack_name"`
	AttackKind      string `json:"attack_kind"`
	AdvState        string `json:"adv_state"`
	Economy         string `json:"economy"`
	MultiattackName string `json:"multiattack_name"`

	MoverID string         `json:"mover_id"`
	Path    []gridPosition `json:"path"`

	ReactorID    string `json:"reactor_id"`
	ReactionType string `json:"reaction_type"`

	Condition string `json:"condition"`

	SourceID      string   `json:"source_id"`
	TargetIDs     []string `json:"target_ids"`
	EffectName    string   `json:"effect_name"`
	SaveAbility   string   `json:"save_ability"`
	DC            int      `json:"dc"`
	OnSuccess     string   `json:"on_success"`
	DamageFormula string   `json:"damage_formula"`
	DamageType    string   `json:"damage_type"`

	HealerID    string `json:"healer_id"`
	HasHealerID bool   `json:"has_healer_id"`
	Amount      int    `json:"amount"`

	Reason string `json:"reason"`

	CasterID  string `json:"caster_id"`
	SpellName string `json:"spell_name"`
	SlotLevel int     `json:"slot_level"`
}

var knownCommandTypes = map[string]engine.CommandType{
	"StartCombat":        engine.CmdStartCombat,
	"SetInitiative":      engine.CmdSetInitiative,
	"RollInitiative":     engine.CmdRollInitiative,
	"FinalizeInitiative": engine.CmdFinalizeInitiative,
	"BeginTurn":          engine.CmdBeginTurn,
	"EndTurn":            engine.CmdEndTurn,
	"Attack":             engine.CmdAttack,
	"Multiattack":        engine.CmdMultiattack,
	"Disengage":          engine.CmdDisengage,
	"Move":               engine.CmdMove,
	"UseReaction":        engine.CmdUseReaction,
	"DeclineReaction":    engine.CmdDeclineReaction,
	"ApplyCondition":     engine.CmdApplyCondition,
	"RemoveCondition":    engine.CmdRemoveCondition,
	"SaveEffect":         engine.CmdSaveEffect,
	"RollDeathSave":      engine.CmdRollDeathSave,
	"Stabilize":          engine.CmdStabilize,
	"Heal":               engine.CmdHeal,
	"StartConcentration": engine.CmdStartConcentration,
	"EndConcentration":   engine.CmdEndConcentration,
	"CastSpell":          engine.CmdCastSpell,
}

// errUnknownCommandType signals a Type the engine has never heard of --
// the reducer's own UNKNOWN_COMMAND rejection code exists for this, but
// catching it here avoids constructing a zero-value Command first.
var errUnknownCommandType = errors.New("handlers: unknown command type")

func (req *encounterCommandRequest) toCommand() (engine.Command, error) {
	cmdType, ok := knownCommandTypes[req.Type]
	if !ok {
		return engine.Command{}, errUnknownCommandType
	}

	path := make([]engine.Position, 0, len(req.Path))
	for _, p := range req.Path {
		path = append(path, engine.Position{X: p.X, Y: p.Y})
	}

	return engine.Command{
		Type: cmdType,

		CombatantID: req.CombatantID,
		Initiative:  req.Initiative,
		Bonus:       req.Bonus,

		AttackerID:      req.AttackerID,
		TargetID:        req.TargetID,
		AttackName:      req.AttackName,
		AttackKind:      engine.AttackKind(req.AttackKind),
		AdvState:        engine.AdvState(defaultString(req.AdvState, string(engine.AdvNormal))),
		Economy:         engine.Economy(defaultString(req.Economy, string(engine.EconomyAction))),
		MultiattackName: req.MultiattackName,

		MoverID: req.MoverID,
		Path:    path,

		ReactorID:    req.ReactorID,
		ReactionType: req.ReactionType,

		Condition: req.Condition,

		SourceID:      req.SourceID,
		TargetIDs:     req.TargetIDs,
		EffectName:    req.EffectName,
		SaveAbility:   req.SaveAbility,
		DC:            req.DC,
		OnSuccess:     engine.OnSuccess(req.OnSuccess),
		DamageFormula: req.DamageFormula,
		DamageType:    req.DamageType,

		HealerID:    req.HealerID,
		HasHealerID: req.HasHealerID,
		Amount:      req.Amount,

		Reason: req.Reason,

		CasterID:  req.CasterID,
		SpellName: req.SpellName,
		SlotLevel: req.SlotLevel,
	}, nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// NewEncounterCommandRouter builds the gin engine fronting the
// encounter-command endpoint. It is mounted as a sub-handler under the
// gorilla/mux API router rather than replacing it: gin owns only this one
// boundary; gin owns only the encounter-command surface.
func NewEncounterCommandRouter(h *Handlers) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	validate := validator.New()

	r.POST("/api/v1/encounters/:encounterId/commands", func(c *gin.Context) {
		encounterID := c.Param("encounterId")

		userID, ok := auth.GetUserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		var req encounterCommandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validate.Struct(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd, err := req.toCommand()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		events, err := h.encounters.SubmitCommand(c.Request.Context(), encounterID, userID, cmd)
		if err != nil {
			if errors.Is(err, services.ErrEncounterNotFound) || errors.Is(err, models.ErrEncounterNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		h.broadcastEncounterEvents(encounterID, events)

		status := http.StatusOK
		if len(events) == 1 && events[0].Type == engine.EvtCommandRejected {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"events": events})
	})

	return r
}

// broadcastEncounterEvents fans a reducer call's event slice out to every
// websocket client in the encounter's room, wrapped in the
// Message{Type, RoomID, Data} envelope internal/websocket.Hub routes on.
func (h *Handlers) broadcastEncounterEvents(encounterID string, events []engine.Event) {
	if h.websocketHub == nil || len(events) == 0 {
		return
	}
	payload, err := marshalEvents(events)
	if err != nil {
		return
	}
	msg, err := websocketMessage("encounter_events", encounterID, payload)
	if err != nil {
		return
	}
	h.websocketHub.Broadcast(msg)
}

func marshalEvents(events []engine.Event) (json.RawMessage, error) {
	return json.Marshal(events)
}

func websocketMessage(msgType, roomID string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(websocket.Message{Type: msgType, RoomID: roomID, Data: data})
}
