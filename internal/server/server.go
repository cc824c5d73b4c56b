package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sharesync/internal/models"
	"sharesync/internal/plex"
	"sharesync/internal/store"
)

// PlexClient is the per-token client the handlers drive. Satisfied by
// *plex.Client; faked in tests.
type PlexClient interface {
	Resolve(ctx context.Context, preferredDirectURI string) (*plex.Resolution, error)
	Libraries(ctx context.Context, baseURI string) (*plex.Libraries, error)
	Friends(ctx context.Context) ([]models.FriendAccount, error)
	ResolveShare(ctx context.Context, machineIDs []string, id models.Identity) ([]string, error)
	SetShare(ctx context.Context, machineID string, id models.Identity, sectionIDs []string) error
	ClearShare(ctx context.Context, machineID string, id models.Identity) error
}

type PlexFactory func(token string) (PlexClient, error)

func defaultPlexFactory(token string) (PlexClient, error) {
	return plex.New(token)
}

type Server struct {
	router     chi.Router
	store      *store.Store
	corsOrigin string
	apiKeyHash string
	newPlex    PlexFactory
}

func NewServer(s *store.Store, opts ...Option) *Server {
	srv := &Server{
		router:  chi.NewRouter(),
		store:   s,
		newPlex: defaultPlexFactory,
	}
	for _, o := range opts {
		o(srv)
	}
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.routes()
	return srv
}

type Option func(*Server)

func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithAPIKeyHash enables API-key auth on /api routes. An empty hash
// leaves the shell open, matching a single-operator deployment behind a
// reverse proxy.
func WithAPIKeyHash(hash string) Option {
	return func(s *Server) { s.apiKeyHash = hash }
}

func WithPlexFactory(f PlexFactory) Option {
	return func(s *Server) { s.newPlex = f }
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
