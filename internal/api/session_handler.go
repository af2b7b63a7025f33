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

type SessionHandler struct {
	Service *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{Service: svc}
}

func sessionID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, apperr.Validation("invalid session id")
	}
	return id, nil
}

func sessionResponse(s *db.Session) entities.SessionResponse {
	return entities.SessionResponse{
		ID:            s.ID,
		Code:          s.Code,
		LocationID:    s.LocationID,
		OwnerName:     s.OwnerName,
		VehiclePlate:  s.VehiclePlate,
		VehicleModel:  s.VehicleModel,
		SlotLabel:     s.SlotLabel,
		Status:        s.Status,
		ReservedHours: s.ReservedHours,
		BaseRate:      s.BaseRate,
		ExtensionRate: s.ExtensionRate,
		StartTime:     s.StartTime,
		ScheduledEnd:  s.ScheduledEnd,
		ReturnedAt:    s.ReturnedAt,
		Fare:          s.Fare,
		CreatedAt:     s.CreatedAt,
	}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Service.ListForPartner(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	result := make([]entities.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, sessionResponse(&sessions[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.Service.Get(auth.PartnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *SessionHandler) RequestPickupOTP(w http.ResponseWriter, r *http.Request) {
	h.requestOTP(w, r, h.Service.RequestPickupOTP)
}

func (h *SessionHandler) RequestReturnOTP(w http.ResponseWriter, r *http.Request) {
	h.requestOTP(w, r, h.Service.RequestReturnOTP)
}

func (h *SessionHandler) requestOTP(w http.ResponseWriter, r *http.Request, send func(int, int) (string, error)) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	challengeID, err := send(auth.PartnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.OTPChallengeResponse{ChallengeID: challengeID})
}

func (h *SessionHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, h.Service.ConfirmPickup)
}

func (h *SessionHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, h.Service.ConfirmReturn)
}

func (h *SessionHandler) confirm(w http.ResponseWriter, r *http.Request, apply func(int, int, entities.InspectionConfirmRequest) (*db.Session, error)) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req entities.InspectionConfirmRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := apply(auth.PartnerID(r), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *SessionHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.Service.RequestReturn(auth.PartnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.Service.Cancel(auth.PartnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}
