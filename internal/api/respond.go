package api

import (
	"encoding/json"
	"log"
	"net/http"

	"valetpartner/internal/apperr"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps taxonomy errors onto their status and stable code;
// anything else is an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	if e := apperr.From(err); e != nil {
		writeJSON(w, e.Status, errorBody{Code: string(e.Code), Message: e.Message})
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal server error"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return false
	}
	return true
}
