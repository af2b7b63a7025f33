package api

import (
	"net/http"

	"valetpartner/internal/auth"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/service"
)

type PartnerHandler struct {
	Service *service.PartnerService
}

func NewPartnerHandler(svc *service.PartnerService) *PartnerHandler {
	return &PartnerHandler{Service: svc}
}

func partnerResponse(p *db.Partner) entities.PartnerResponse {
	return entities.PartnerResponse{
		ID:           p.ID,
		Name:         p.Name,
		Phone:        p.Phone,
		Email:        p.Email,
		City:         p.City,
		Zone:         p.Zone,
		KycStatus:    p.KycStatus,
		Availability: p.Availability,
		CreatedAt:    p.CreatedAt,
	}
}

func (h *PartnerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	partner, err := h.Service.GetPartner(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, partnerResponse(partner))
}

func (h *PartnerHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	partner, err := h.Service.SetAvailability(auth.PartnerID(r), req.Availability)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, partnerResponse(partner))
}

func (h *PartnerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.Service.Dashboard(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
