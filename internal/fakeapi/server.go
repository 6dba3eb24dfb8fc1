// Package fakeapi is an in-memory storefront API. It serves the same
// endpoints and error envelopes as the real backend and lets callers inject
// failures per route.
package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

type account struct {
	domain.UserSummary
	Password string
	Address  string
}

type fault struct {
	status    int
	errorType string
	remaining int
}

// Server holds accounts, products and wishlists in memory.
type Server struct {
	mu        sync.RWMutex
	byEmail   map[string]*account
	products  map[string]domain.Item
	wishlists map[string][]string // user id -> product ids, oldest first
	faults    map[string]*fault
	hits      map[string]int

	apiSecret []byte
	idpSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
	logger    *slog.Logger
	health    *health.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock overrides the time source used for token issuance and checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithTokenTTL sets the lifetime of issued session tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokenTTL = ttl }
}

// New creates an empty server with random signing keys.
func New(opts ...Option) *Server {
	s := &Server{
		byEmail:   make(map[string]*account),
		products:  make(map[string]domain.Item),
		wishlists: make(map[string][]string),
		faults:    make(map[string]*fault),
		hits:      make(map[string]int),
		apiSecret: randomKey(),
		idpSecret: randomKey(),
		tokenTTL:  7 * 24 * time.Hour,
		now:       time.Now,
		logger:    slog.Default(),
		health:    health.NewHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start serves the API on an ephemeral local port.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.Router())
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.RequestLogging(s.logger))
	r.Use(middleware.Tracing("fakeapi"))
	r.Use(s.countHits)
	r.Use(s.injectFaults)

	r.Get("/health", s.health.LivenessHandler())
	r.Get("/ready", s.health.ReadinessHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(s.validateToken))
			r.Use(middleware.RequestLogger(s.logger))
			r.Post("/auth/update-details", s.handleUpdateDetails)
			r.Get("/user/wishlist-products", s.handleWishlistProducts)
			r.Post("/user/update-wishlist", s.handleUpdateWishlist)
		})
	})
	return r
}

// UserSeed describes an account to create.
type UserSeed struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Address  string
	IsSeller bool
	Role     int
}

// AddUser registers an account directly and returns its summary.
func (s *Server) AddUser(seed UserSeed) domain.UserSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(seed)
}

func (s *Server) addUserLocked(seed UserSeed) domain.UserSummary {
	a := &account{
		UserSummary: domain.UserSummary{
			ID:       newObjectID(),
			Name:     seed.Name,
			Email:    seed.Email,
			Phone:    seed.Phone,
			IsSeller: seed.IsSeller,
			Role:     seed.Role,
		},
		Password: seed.Password,
		Address:  seed.Address,
	}
	s.byEmail[a.Email] = a
	return a.UserSummary
}

// User returns the stored summary for email.
func (s *Server) User(email string) (domain.UserSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byEmail[email]
	if !ok {
		return domain.UserSummary{}, false
	}
	return a.UserSummary, true
}

// AddProducts makes items available for wishlists.
func (s *Server) AddProducts(items ...domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.products[it.ID] = it
	}
}

// SetWishlist replaces the wishlist of the account with email.
func (s *Server) SetWishlist(email string, productIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byEmail[email]
	if !ok {
		return
	}
	s.wishlists[a.ID] = append([]string(nil), productIDs...)
}

// Wishlist returns the product ids on the account's wishlist.
func (s *Server) Wishlist(email string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byEmail[email]
	if !ok {
		return nil
	}
	return append([]string(nil), s.wishlists[a.ID]...)
}

// Fail makes the next times requests to path answer with status (at least
// one). errorType is placed in the error envelope when non-empty.
func (s *Server) Fail(path string, status int, errorType string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = &fault{status: status, errorType: errorType, remaining: times}
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[path]
}

// Health exposes the server's health handler so callers can register checks.
func (s *Server) Health() *health.Handler {
	return s.health
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.faults[r.URL.Path]
		if ok {
			f.remaining--
			if f.remaining <= 0 {
				delete(s.faults, r.URL.Path)
			}
		}
		s.mu.Unlock()

		if ok {
			httputil.WriteError(w, r, f.status, f.errorType, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// newObjectID returns a 24 hex digit id shaped like the backend's document ids.
func newObjectID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:12])
}

func randomKey() []byte {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return key
}
