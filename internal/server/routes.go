package server

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(limitBody)
		r.Use(jsonContentType)
		r.Use(corsMiddleware(s.corsOrigin))
		if s.apiKeyHash != "" {
			r.Use(requireKey(s.apiKeyHash))
		}

		r.Post("/resolve", s.handleResolve)
		r.Post("/libraries", s.handleLibraries)
		r.Post("/friends", s.handleFriends)

		r.Post("/shares/resolve", s.handleResolveShare)
		r.Put("/shares", s.handleSetShare)
		r.Delete("/shares", s.handleClearShare)

		r.Post("/sync", s.handleSync)

		r.Get("/customers", s.handleListCustomers)
		r.Post("/customers", s.handleCreateCustomer)
		r.Get("/customers/{id}", s.handleGetCustomer)
		r.Put("/customers/{id}", s.handleUpdateCustomer)
		r.Delete("/customers/{id}", s.handleDeleteCustomer)
	})
}
