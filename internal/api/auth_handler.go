package api

import (
	"net/http"

	"valetpartner/internal/entities"
	"valetpartner/internal/service"
)

type AuthHandler struct {
	Service *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{Service: svc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	partner, err := h.Service.Register(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, partnerResponse(partner))
}

func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	challengeID, err := h.Service.RequestLoginOTP(req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.LoginChallengeResponse{ChallengeID: challengeID})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req entities.VerifyLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := h.Service.VerifyLogin(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.TokenResponse{Token: token})
}
