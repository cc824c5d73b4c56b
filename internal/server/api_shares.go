package server

import (
	"net/http"

	"sharesync/internal/models"
)

type resolveShareRequest struct {
	Token      string          `json:"token"`
	MachineIDs []string        `json:"machine_ids"`
	Identity   models.Identity `json:"identity"`
}

type resolveShareResponse struct {
	SectionIDs []string `json:"section_ids"`
}

func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	var req resolveShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.MachineIDs) == 0 {
		writeError(w, http.StatusBadRequest, "machine_ids required")
		return
	}
	client, ok := s.plexFromRequest(w, req.Token)
	if !ok {
		return
	}
	ids, err := client.ResolveShare(r.Context(), req.MachineIDs, req.Identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, resolveShareResponse{SectionIDs: ids})
}

type setShareRequest struct {
	Token      string          `json:"token"`
	MachineID  string          `json:"machine_id"`
	Identity   models.Identity `json:"identity"`
	SectionIDs []string        `json:"section_ids"`
}

func (s *Server) handleSetShare(w http.ResponseWriter, r *http.Request) {
	var req setShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MachineID == "" {
		writeError(w, http.StatusBadRequest, "machine_id required")
		return
	}
	client, ok := s.plexFromRequest(w, req.Token)
	if !ok {
		return
	}
	if err := client.SetShare(r.Context(), req.MachineID, req.Identity, req.SectionIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clearShareRequest struct {
	Token     string          `json:"token"`
	MachineID string          `json:"machine_id"`
	Identity  models.Identity `json:"identity"`
}

func (s *Server) handleClearShare(w http.ResponseWriter, r *http.Request) {
	var req clearShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MachineID == "" {
		writeError(w, http.StatusBadRequest, "machine_id required")
		return
	}
	client, ok := s.plexFromRequest(w, req.Token)
	if !ok {
		return
	}
	if err := client.ClearShare(r.Context(), req.MachineID, req.Identity); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
