package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sharesync/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeDomainError maps the client error taxonomy to operator-facing
// HTTP responses without collapsing the categories.
func writeDomainError(w http.ResponseWriter, err error) {
	var de *models.DiscoveryError
	var te *models.TransportError
	var pe *models.ProtocolError
	switch {
	case errors.Is(err, models.ErrNoToken):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &de):
		writeError(w, http.StatusNotFound, de.Error())
	case errors.As(err, &te):
		writeError(w, http.StatusBadGateway, te.Error())
	case errors.As(err, &pe):
		writeError(w, http.StatusBadGateway, pe.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
