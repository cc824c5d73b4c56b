package server

import (
	"net/http"

	"sharesync/internal/httputil"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// plexFromRequest builds a per-token client. The token travels in the
// request body, never in the URL.
func (s *Server) plexFromRequest(w http.ResponseWriter, token string) (PlexClient, bool) {
	client, err := s.newPlex(token)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return client, true
}

type resolveRequest struct {
	Token        string `json:"token"`
	PreferredURI string `json:"preferred_uri,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	client, ok := s.plexFromRequest(w, req.Token)
	if !ok {
		return
	}
	res, err := client.Resolve(r.Context(), req.PreferredURI)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type librariesRequest struct {
	Token   string `json:"token"`
	BaseURI string `json:"base_uri"`
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	var req librariesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := httputil.ValidateBaseURL(req.BaseURI); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	client, ok := s.plexFromRequest(w, req.Token)
	if !ok {
		return
	}
	libs, err := client.Libraries(r.Context(), req.BaseURI)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, libs)
}

type friendsRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	var req friendsRequest
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
	writeJSON(w, http.StatusOK, friends)
}
