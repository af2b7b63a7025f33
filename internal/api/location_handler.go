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

type LocationHandler struct {
	Service *service.LocationService
}

func NewLocationHandler(svc *service.LocationService) *LocationHandler {
	return &LocationHandler{Service: svc}
}

func locationID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, apperr.Validation("invalid location id")
	}
	return id, nil
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entities.LocationInput
	if !decodeBody(w, r, &req) {
		return
	}
	location, err := h.Service.Create(auth.PartnerID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Service.List(auth.PartnerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := locationID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	location, err := h.Service.Get(auth.PartnerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := locationID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req entities.LocationInput
	if !decodeBody(w, r, &req) {
		return
	}
	location, err := h.Service.Update(auth.PartnerID(r), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}
