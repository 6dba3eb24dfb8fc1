// Package wishlist loads the signed-in user's wishlist page by page and
// applies confirmed removals to the loaded items.
package wishlist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/pagination"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 5

// API is the part of the storefront API the loader calls.
type API interface {
	WishlistPage(ctx context.Context, page, pageSize int) (*api.WishlistPage, error)
	RemoveFromWishlist(ctx context.Context, productID string) error
}

// View is a snapshot of the loader for rendering.
type View struct {
	Items         []domain.Item
	TotalCount    int
	CurrentPage   int
	PageSize      int
	State         State
	IsLoading     bool
	IsLoadingMore bool
	HasMore       bool
}

// Loader fetches wishlist pages into an append-only list. Every fetch is
// tagged with the generation and page it was issued for; answers that no
// longer match are dropped.
type Loader struct {
	api      API
	pageSize int
	logger   *slog.Logger
	events   event.Recorder

	mu         sync.Mutex
	state      State
	items      []domain.Item
	total      int
	page       int // last page merged into items
	generation uint64
	owner      string // email of the session the items belong to
	closed     bool
	unbind     func()
	bg         sync.WaitGroup
}

// Option configures a Loader.
type Option func(*Loader)

// WithPageSize sets the page size. Values below 1 are ignored.
func WithPageSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithLogger sets the loader logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// WithRecorder sets the activity recorder.
func WithRecorder(r event.Recorder) Option {
	return func(l *Loader) { l.events = r }
}

// NewLoader creates an idle loader.
func NewLoader(client API, opts ...Option) *Loader {
	l := &Loader{
		api:      client,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
		events:   event.Nop{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start loads the first page for sess. It does nothing unless the loader is
// idle and sess is a signed-in non-admin session.
func (l *Loader) Start(ctx context.Context, sess domain.Session) error {
	l.mu.Lock()
	gen, ok := l.beginLocked(sess)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return l.fetch(ctx, gen, 1)
}

// startAt is Start for a reload scheduled at generation gen. It does nothing
// once a later reset has moved the generation on, so a slow reload for an
// earlier session cannot claim the loader.
func (l *Loader) startAt(ctx context.Context, gen uint64, sess domain.Session) error {
	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		return nil
	}
	gen, ok := l.beginLocked(sess)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return l.fetch(ctx, gen, 1)
}

// beginLocked moves an idle loader into StateLoadingFirstPage for sess.
// Callers hold mu.
func (l *Loader) beginLocked(sess domain.Session) (uint64, bool) {
	if l.closed || l.state != StateIdle {
		return 0, false
	}
	if !sess.Authenticated() || sess.IsAdmin() {
		return 0, false
	}
	l.state = StateLoadingFirstPage
	l.owner = sess.Email()
	return l.generation, true
}

// RequestMore loads the next page. Outside StateReady, or once the last
// page is loaded, it neither calls the API nor changes state.
func (l *Loader) RequestMore(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateReady {
		l.mu.Unlock()
		return nil
	}
	if l.page >= pagination.TotalPages(l.total, l.pageSize) {
		l.state = StateExhausted
		l.mu.Unlock()
		return nil
	}
	l.state = StateLoadingMore
	gen, next := l.generation, l.page+1
	l.mu.Unlock()

	return l.fetch(ctx, gen, next)
}

func (l *Loader) fetch(ctx context.Context, gen uint64, page int) error {
	result, err := l.api.WishlistPage(ctx, page, l.pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation || page != l.page+1 {
		l.logger.DebugContext(ctx, "discarding stale wishlist page",
			slog.Int("page", page),
			slog.Uint64("generation", gen),
		)
		return nil
	}

	if err != nil {
		// The page counter only moves on success, so the same page is
		// requested again next time.
		if page == 1 {
			l.state = StateIdle
		} else {
			l.state = StateReady
		}
		l.logger.WarnContext(ctx, "wishlist page failed",
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		return err
	}

	l.items = append(l.items, result.Items...)
	l.page = page
	l.total = max(result.TotalItems, len(l.items))
	l.settle()

	l.logger.DebugContext(ctx, "wishlist page loaded",
		slog.Int("page", page),
		slog.Int("items", len(l.items)),
		slog.Int("total", l.total),
	)
	return nil
}

// settle picks Ready or Exhausted from the loaded counts. Callers hold mu.
func (l *Loader) settle() {
	if len(l.items) < l.total && l.page < pagination.TotalPages(l.total, l.pageSize) {
		l.state = StateReady
	} else {
		l.state = StateExhausted
	}
}

// RemoveItem removes id from the wishlist. Local state changes only after
// the API confirms; on failure the typed error is returned and nothing moves.
func (l *Loader) RemoveItem(ctx context.Context, id string) error {
	l.mu.Lock()
	gen := l.generation
	l.mu.Unlock()

	if err := l.api.RemoveFromWishlist(ctx, id); err != nil {
		l.logger.WarnContext(ctx, "wishlist removal failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return err
	}

	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		return nil
	}
	removed := false
	for i, it := range l.items {
		if it.ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			l.total--
			removed = true
			break
		}
	}
	if removed && !l.state.Loading() && l.state != StateIdle {
		l.settle()
	}
	owner, remaining := l.owner, l.total
	l.mu.Unlock()

	l.events.Record(ctx, event.Activity{
		Type:    event.TypeWishlistItemRemoved,
		Subject: owner,
		Data:    event.WishlistData{ProductID: id, Remaining: remaining},
	})
	return nil
}

// Reset drops all loaded items and returns to StateIdle. In-flight fetches
// are discarded when they complete.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
}

func (l *Loader) resetLocked() {
	l.generation++
	l.state = StateIdle
	l.items = nil
	l.total = 0
	l.page = 0
	l.owner = ""
}

// BindSession resets the loader whenever the session token changes and
// starts loading for the new session in the background.
func (l *Loader) BindSession(ctx context.Context, store *session.Store) {
	unsubscribe := store.Subscribe(func(prev, next domain.Session) {
		if prev.Token == next.Token {
			return
		}
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		l.resetLocked()
		gen := l.generation
		l.bg.Add(1)
		l.mu.Unlock()

		go func() {
			defer l.bg.Done()
			if err := l.startAt(ctx, gen, next); err != nil && ctx.Err() == nil {
				l.logger.WarnContext(ctx, "wishlist reload failed", slog.String("error", err.Error()))
			}
		}()
	})

	l.mu.Lock()
	if l.unbind != nil {
		l.unbind()
	}
	l.unbind = unsubscribe
	l.mu.Unlock()
}

// Wait blocks until background loads started by BindSession finish.
func (l *Loader) Wait() {
	l.bg.Wait()
}

// Close detaches the loader. Answers to fetches still in flight are
// ignored and later calls to Start do nothing.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.generation++
	unbind := l.unbind
	l.unbind = nil
	l.mu.Unlock()

	if unbind != nil {
		unbind()
	}
}

// View returns a snapshot of the loader.
func (l *Loader) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()

	return View{
		Items:         append([]domain.Item(nil), l.items...),
		TotalCount:    l.total,
		CurrentPage:   l.page,
		PageSize:      l.pageSize,
		State:         l.state,
		IsLoading:     l.state == StateLoadingFirstPage,
		IsLoadingMore: l.state == StateLoadingMore,
		HasMore:       l.state == StateReady,
	}
}

// LoadAll loads every remaining page for sess.
func (l *Loader) LoadAll(ctx context.Context, sess domain.Session) error {
	if err := l.Start(ctx, sess); err != nil {
		return err
	}
	for l.View().State == StateReady {
		if err := l.RequestMore(ctx); err != nil {
			return err
		}
	}
	return nil
}
