package api

import (
	"net/http"
	"strconv"

	"valetpartner/internal/auth"
	"valetpartner/internal/service"
)

type EarningsHandler struct {
	Service *service.EarningsService
}

func NewEarningsHandler(svc *service.EarningsService) *EarningsHandler {
	return &EarningsHandler{Service: svc}
}

func (h *EarningsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(auth.PartnerID(r), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *EarningsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	txns, err := h.Service.Transactions(auth.PartnerID(r), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *EarningsHandler) Payout(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Payout(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EarningsHandler) LinkAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Service.LinkPayoutAccount(auth.PartnerID(r), req.AccountID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Payout account linked"})
}
