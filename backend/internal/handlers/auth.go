package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dndsim/combat-engine/backend/internal/models"
	"github.com/dndsim/combat-engine/backend/pkg/response"
)

// Register handles POST /auth/register.
//
// @Summary Register a GM account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RegisterRequest true "registration"
// @Success 201 {object} models.AuthResponse
// @Router /auth/register [post]
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}

	resp, err := h.issueTokens(user)
	if err != nil {
		response.InternalServerError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
//
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "credentials"
// @Success 200 {object} models.AuthResponse
// @Router /auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req)
	if err != nil {
		response.Unauthorized(w, r, err.Error())
		return
	}

	resp, err := h.issueTokens(user)
	if err != nil {
		response.InternalServerError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// RefreshToken handles POST /auth/refresh.
//
// @Summary Rotate a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RefreshTokenRequest true "refresh token"
// @Success 200 {object} models.AuthResponse
// @Router /auth/refresh [post]
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	tokenPair, userID, err := h.refreshTokens.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		response.Unauthorized(w, r, "invalid refresh token")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		response.InternalServerError(w, r, err)
		return
	}

	if err := h.refreshTokens.Create(userID, tokenPair.RefreshToken); err != nil {
		response.InternalServerError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		TokenType:    "Bearer",
		User:         *user,
	})
}

func (h *Handlers) issueTokens(user *models.User) (*models.AuthResponse, error) {
	tokenPair, err := h.jwtManager.GenerateTokenPair(user.ID, user.Username, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	if err := h.refreshTokens.Create(user.ID, tokenPair.RefreshToken); err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		TokenType:    "Bearer",
		User:         *user,
	}, nil
}
