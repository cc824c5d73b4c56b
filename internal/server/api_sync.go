package server

import (
	"net/http"

	"sharesync/internal/reconcile"
)

type syncRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	client, ok := s.plexFromRequest(w, req.Token)
	if !ok {
		return
	}
	friends, err := client.Friends(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	customers, err := s.store.ListCustomers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	outcome, err := reconcile.Reconcile(r.Context(), s.store, friends, customers)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
