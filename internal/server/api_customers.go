package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sharesync/internal/models"
)

func customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.store.ListCustomers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c models.Customer
	if !decodeJSON(w, r, &c) {
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	id, err := s.store.CreateCustomer(r.Context(), c)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	created, err := s.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	c, err := s.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	var c models.Customer
	if !decodeJSON(w, r, &c) {
		return
	}
	c.ID = id
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if err := s.store.UpdateCustomer(r.Context(), c); err != nil {
		writeDomainError(w, err)
		return
	}
	updated, err := s.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteCustomer(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
