package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"valetpartner/internal/apperr"
	"valetpartner/internal/auth"
	"valetpartner/internal/entities"
	"valetpartner/internal/service"
)

type KycHandler struct {
	Service *service.KycService
}

func NewKycHandler(svc *service.KycService) *KycHandler {
	return &KycHandler{Service: svc}
}

func (h *KycHandler) SubmitDocuments(w http.ResponseWriter, r *http.Request) {
	var req entities.KycSubmission
	if !decodeBody(w, r, &req) {
		return
	}
	receipt, err := h.Service.SubmitDocuments(auth.PartnerID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *KycHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.GetStatus(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.KycStatusResponse{Status: status})
}

// Review is the back-office reviewer decision.
func (h *KycHandler) Review(w http.ResponseWriter, r *http.Request) {
	partnerID, err := strconv.Atoi(mux.Vars(r)["partner_id"])
	if err != nil {
		writeError(w, apperr.Validation("invalid partner id"))
		return
	}
	var req entities.KycReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Service.ReviewDocuments(partnerID, req.Outcome); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.KycStatusResponse{Status: req.Outcome})
}
