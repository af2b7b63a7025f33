package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"valetpartner/internal/apperr"
	"valetpartner/internal/auth"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/service"
)

type SupportHandler struct {
	Service *service.SupportService
}

func NewSupportHandler(svc *service.SupportService) *SupportHandler {
	return &SupportHandler{Service: svc}
}

func ticketResponse(t *db.SupportTicket) entities.TicketResponse {
	return entities.TicketResponse{
		ID:          t.ID,
		Subject:     t.Subject,
		Category:    t.Category,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (h *SupportHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req entities.TicketInput
	if !decodeBody(w, r, &req) {
		return
	}
	ticket, err := h.Service.CreateTicket(auth.PartnerID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticketResponse(ticket))
}

func (h *SupportHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Service.ListTickets(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	result := make([]entities.TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, ticketResponse(&tickets[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SupportHandler) ResolveTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validation("invalid ticket id"))
		return
	}
	if err := h.Service.ResolveTicket(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Ticket resolved"})
}
