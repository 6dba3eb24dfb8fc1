// Package session owns the process-wide session: the in-memory value, its
// durable snapshot and change notification.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
)

// Durable keys.
const (
	KeySession  = "auth"
	KeyIdentity = "email"
)

// DefaultTTL is the lifetime of a persisted snapshot.
const DefaultTTL = 7 * 24 * time.Hour

// Snapshot is the serialized form of a session in durable storage.
type Snapshot struct {
	User      *domain.UserSummary `json:"user"`
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

// Listener is called after every change with the previous and new value.
// Listeners run synchronously on the writer's goroutine and must not call
// Set or Clear.
type Listener func(prev, next domain.Session)

// Store holds the current session. Writes are last-write-wins.
type Store struct {
	storage storage.Storage
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	writeMu sync.Mutex // serializes Set/Clear/Restore so notifications keep write order

	mu      sync.RWMutex
	current domain.Session

	subMu     sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the snapshot lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for snapshot and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty session store backed by st.
func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage:   st,
		ttl:       DefaultTTL,
		logger:    slog.Default(),
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the current session.
func (s *Store) Get() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Set replaces the session, persists it and notifies listeners. The new value
// is installed even if persisting fails; that error is returned.
func (s *Store) Set(ctx context.Context, next domain.Session) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.swap(next)
	perr := s.persist(ctx, next)
	s.notify(prev, next)
	return perr
}

// Clear empties the session and removes the persisted snapshot.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.swap(domain.Session{})
	var derr error
	if err := s.storage.Delete(ctx, KeySession); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove persisted session", slog.String("error", err.Error()))
		derr = fmt.Errorf("remove session snapshot: %w", err)
	}
	s.notify(prev, domain.Session{})
	return derr
}

// LoadPersisted reads the persisted snapshot. It returns nil when the
// snapshot is absent, unreadable, expired or carries an expired token.
func (s *Store) LoadPersisted(ctx context.Context) *domain.Session {
	data, err := s.storage.Get(ctx, KeySession)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read persisted session", slog.String("error", err.Error()))
		}
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt session snapshot", slog.String("error", err.Error()))
		return nil
	}

	now := s.now()
	if !snap.ExpiresAt.IsZero() && !now.Before(snap.ExpiresAt) {
		s.logger.DebugContext(ctx, "persisted session expired", slog.Time("expires_at", snap.ExpiresAt))
		return nil
	}

	sess, err := domain.NewSession(snap.Token, snap.User)
	if err != nil || !sess.Authenticated() {
		return nil
	}
	if tokenExpired(sess.Token, now) {
		s.logger.DebugContext(ctx, "persisted token expired")
		return nil
	}
	return &sess
}

// Restore installs the persisted session, if any, without re-persisting it.
func (s *Store) Restore(ctx context.Context) (domain.Session, bool) {
	loaded := s.LoadPersisted(ctx)
	if loaded == nil {
		return domain.Session{}, false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.swap(*loaded)
	s.notify(prev, *loaded)
	return loaded.Clone(), true
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

// RememberIdentity caches the identity-provider email for auto-redirect.
func (s *Store) RememberIdentity(ctx context.Context, email string) error {
	if err := s.storage.Set(ctx, KeyIdentity, []byte(email), 0); err != nil {
		return fmt.Errorf("remember identity: %w", err)
	}
	return nil
}

// RememberedIdentity returns the cached identity-provider email.
func (s *Store) RememberedIdentity(ctx context.Context) (string, bool) {
	data, err := s.storage.Get(ctx, KeyIdentity)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read identity cache", slog.String("error", err.Error()))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// ForgetIdentity removes the cached identity-provider email.
func (s *Store) ForgetIdentity(ctx context.Context) error {
	if err := s.storage.Delete(ctx, KeyIdentity); err != nil {
		return fmt.Errorf("forget identity: %w", err)
	}
	return nil
}

func (s *Store) swap(next domain.Session) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = next.Clone()
	return prev
}

func (s *Store) persist(ctx context.Context, sess domain.Session) error {
	if !sess.Authenticated() {
		if err := s.storage.Delete(ctx, KeySession); err != nil {
			s.logger.ErrorContext(ctx, "failed to remove persisted session", slog.String("error", err.Error()))
			return fmt.Errorf("remove session snapshot: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(Snapshot{
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}
	if err := s.storage.Set(ctx, KeySession, data, s.ttl); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session", slog.String("error", err.Error()))
		return fmt.Errorf("persist session snapshot: %w", err)
	}
	return nil
}

func (s *Store) notify(prev, next domain.Session) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(prev.Clone(), next.Clone())
	}
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
