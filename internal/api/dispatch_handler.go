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

type DispatchHandler struct {
	Service *service.DispatchService
}

func NewDispatchHandler(svc *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{Service: svc}
}

// CreateRequest registers an incoming parking job (back-office).
func (h *DispatchHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req entities.ParkingRequestInput
	if !decodeBody(w, r, &req) {
		return
	}
	request := &db.ParkingRequest{
		LocationID:    req.LocationID,
		OwnerName:     req.OwnerName,
		OwnerPhone:    req.OwnerPhone,
		OwnerEmail:    req.OwnerEmail,
		VehiclePlate:  req.VehiclePlate,
		VehicleModel:  req.VehicleModel,
		ReservedHours: req.ReservedHours,
	}
	if err := h.Service.CreateRequest(request); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestResponse(request))
}

// Offer proposes an open request to a partner (back-office).
func (h *DispatchHandler) Offer(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validation("invalid request id"))
		return
	}
	var req entities.OfferInput
	if !decodeBody(w, r, &req) {
		return
	}
	offer, err := h.Service.Offer(requestID, req.PartnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offerResponse(offer))
}

// Outstanding returns the authenticated partner's pending offer, if any.
func (h *DispatchHandler) Outstanding(w http.ResponseWriter, r *http.Request) {
	offer, err := h.Service.Outstanding(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if offer == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"offer": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"offer": offerResponse(offer)})
}

func offerResponse(o *db.Offer) entities.OfferResponse {
	return entities.OfferResponse{
		OfferID:   o.ID,
		RequestID: o.RequestID,
		Status:    o.Status,
		Deadline:  o.Deadline,
	}
}

func (h *DispatchHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Accept(mux.Vars(r)["id"], auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *DispatchHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Reject(mux.Vars(r)["id"], auth.PartnerID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Offer rejected"})
}

func requestResponse(req *db.ParkingRequest) entities.ParkingRequestResponse {
	return entities.ParkingRequestResponse{
		ID:            req.ID,
		Code:          req.Code,
		LocationID:    req.LocationID,
		OwnerName:     req.OwnerName,
		VehiclePlate:  req.VehiclePlate,
		VehicleModel:  req.VehicleModel,
		ReservedHours: req.ReservedHours,
		Status:        req.Status,
		CreatedAt:     req.CreatedAt,
	}
}
