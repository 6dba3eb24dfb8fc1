// Package profile edits the signed-in user's name, email and phone, one
// field per request, and writes confirmed values back into the session.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

var (
	// ErrFieldBusy is returned while a field is being saved.
	ErrFieldBusy = errors.New("field is being saved")
	// ErrNotEditing is returned by SetDraft and Cancel outside edit mode.
	ErrNotEditing = errors.New("field is not being edited")
	// ErrOtherFieldEditing is returned under WithExclusiveEdit when another
	// field is already open.
	ErrOtherFieldEditing = errors.New("another field is being edited")
)

// MsgDetailsUpdated is shown when the API confirms a save without a message.
const MsgDetailsUpdated = "Details updated"

var fieldRules = map[domain.Field]string{
	domain.FieldName:  "required,min=1,max=100",
	domain.FieldEmail: "required,email",
	domain.FieldPhone: "required,len=10,numeric",
}

// API is the part of the storefront API the controller calls.
type API interface {
	UpdateDetails(ctx context.Context, req api.UpdateDetailsRequest) (*api.UpdateDetailsResponse, error)
}

// Notifier receives the confirmation notice after a field is saved.
type Notifier interface {
	Success(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}

// FieldView is what the profile screen renders for one field. Draft equals
// Committed unless the field is being edited.
type FieldView struct {
	Mode      domain.EditMode
	Committed string
	Draft     string
}

type fieldState struct {
	mode  domain.EditMode
	draft string
}

// Controller holds the per-field edit state.
type Controller struct {
	api       API
	sessions  *session.Store
	logger    *slog.Logger
	events    event.Recorder
	notify    Notifier
	exclusive bool

	mu     sync.Mutex
	fields map[domain.Field]*fieldState

	// applyMu serializes session read-modify-write so concurrent commits of
	// distinct fields do not drop each other's value.
	applyMu sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithExclusiveEdit allows only one field out of viewing mode at a time.
func WithExclusiveEdit() Option {
	return func(c *Controller) { c.exclusive = true }
}

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRecorder sets the activity recorder.
func WithRecorder(r event.Recorder) Option {
	return func(c *Controller) { c.events = r }
}

// WithNotifier sets where save confirmations are shown.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// NewController creates a controller with every field in viewing mode.
func NewController(client API, sessions *session.Store, opts ...Option) *Controller {
	c := &Controller{
		api:      client,
		sessions: sessions,
		logger:   slog.Default(),
		events:   event.Nop{},
		notify:   nopNotifier{},
		fields:   make(map[domain.Field]*fieldState, len(domain.Fields())),
	}
	for _, f := range domain.Fields() {
		c.fields[f] = &fieldState{mode: domain.ModeViewing}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Field returns the view of f.
func (c *Controller) Field(f domain.Field) FieldView {
	committed := c.committed(f)

	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.fields[f]
	if !ok || st.mode == domain.ModeViewing {
		return FieldView{Mode: domain.ModeViewing, Committed: committed, Draft: committed}
	}
	return FieldView{Mode: st.mode, Committed: committed, Draft: st.draft}
}

// BeginEdit opens f for editing with the committed value as draft.
func (c *Controller) BeginEdit(f domain.Field) error {
	committed := c.committed(f)

	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.stateLocked(f)
	if err != nil {
		return err
	}
	switch st.mode {
	case domain.ModeEditing:
		return nil
	case domain.ModeSaving:
		return fmt.Errorf("%s: %w", f, ErrFieldBusy)
	}
	if err := c.exclusiveLocked(f); err != nil {
		return err
	}
	st.mode = domain.ModeEditing
	st.draft = committed
	return nil
}

// SetDraft replaces the draft of a field being edited.
func (c *Controller) SetDraft(f domain.Field, v string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.stateLocked(f)
	if err != nil {
		return err
	}
	if st.mode != domain.ModeEditing {
		return fmt.Errorf("%s: %w", f, ErrNotEditing)
	}
	st.draft = v
	return nil
}

// Cancel discards the draft and returns f to viewing mode.
func (c *Controller) Cancel(f domain.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.stateLocked(f)
	if err != nil {
		return err
	}
	switch st.mode {
	case domain.ModeViewing:
		return nil
	case domain.ModeSaving:
		return fmt.Errorf("%s: %w", f, ErrFieldBusy)
	}
	st.mode = domain.ModeViewing
	st.draft = ""
	return nil
}

// Commit sends draft as the new value of f. On success the session user is
// updated and persisted and f returns to viewing mode. On failure f stays in
// editing mode with draft kept and the session untouched.
func (c *Controller) Commit(ctx context.Context, f domain.Field, draft string) (domain.UserSummary, error) {
	sess := c.sessions.Get()
	if !sess.Authenticated() || sess.User == nil {
		return domain.UserSummary{}, apperrors.NotAuthenticated("sign in to edit your profile")
	}
	committed := sess.User.Value(f)

	c.mu.Lock()
	st, err := c.stateLocked(f)
	if err != nil {
		c.mu.Unlock()
		return domain.UserSummary{}, err
	}
	if st.mode == domain.ModeSaving {
		c.mu.Unlock()
		return domain.UserSummary{}, fmt.Errorf("%s: %w", f, ErrFieldBusy)
	}
	if st.mode == domain.ModeViewing {
		if err := c.exclusiveLocked(f); err != nil {
			c.mu.Unlock()
			return domain.UserSummary{}, err
		}
	}
	st.draft = draft

	if err := validator.Var(f.String(), draft, fieldRules[f]); err != nil {
		st.mode = domain.ModeEditing
		c.mu.Unlock()
		return domain.UserSummary{}, err
	}
	if draft == committed {
		st.mode = domain.ModeViewing
		st.draft = ""
		c.mu.Unlock()
		return *sess.User, nil
	}
	st.mode = domain.ModeSaving
	c.mu.Unlock()

	user, err := c.save(ctx, f, draft, sess.Email())

	c.mu.Lock()
	if err != nil {
		st.mode = domain.ModeEditing
	} else {
		st.mode = domain.ModeViewing
		st.draft = ""
	}
	c.mu.Unlock()

	return user, err
}

func (c *Controller) save(ctx context.Context, f domain.Field, value, email string) (domain.UserSummary, error) {
	req, err := api.NewFieldUpdate(f, value, email)
	if err != nil {
		return domain.UserSummary{}, apperrors.Validation(err.Error())
	}

	resp, err := c.api.UpdateDetails(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "profile update failed",
			slog.String("field", f.String()),
			slog.String("kind", string(apperrors.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return domain.UserSummary{}, err
	}

	c.applyMu.Lock()
	cur := c.sessions.Get()
	if !cur.Authenticated() || cur.User == nil {
		c.applyMu.Unlock()
		return domain.UserSummary{}, apperrors.NotAuthenticated("session ended while saving")
	}
	confirmed := value
	if resp.User != nil && resp.User.Value(f) != "" {
		confirmed = resp.User.Value(f)
	}
	user := cur.User.WithValue(f, confirmed)
	next := domain.Session{Token: cur.Token, User: &user}
	if resp.Token != "" {
		next.Token = resp.Token
	}
	if err := c.sessions.Set(ctx, next); err != nil {
		c.logger.WarnContext(ctx, "updated session not persisted", slog.String("error", err.Error()))
	}
	c.applyMu.Unlock()

	c.logger.InfoContext(ctx, "profile field updated", slog.String("field", f.String()))
	c.events.Record(ctx, event.Activity{
		Type:    event.TypeProfileFieldUpdated,
		Subject: user.Email,
		Data:    event.ProfileData{Field: f.String()},
	})

	msg := resp.Message
	if msg == "" {
		msg = MsgDetailsUpdated
	}
	c.notify.Success(msg)
	return user, nil
}

func (c *Controller) committed(f domain.Field) string {
	sess := c.sessions.Get()
	if sess.User == nil {
		return ""
	}
	return sess.User.Value(f)
}

func (c *Controller) stateLocked(f domain.Field) (*fieldState, error) {
	st, ok := c.fields[f]
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown profile field %s", f))
	}
	return st, nil
}

func (c *Controller) exclusiveLocked(f domain.Field) error {
	if !c.exclusive {
		return nil
	}
	for other, st := range c.fields {
		if other != f && st.mode != domain.ModeViewing {
			return fmt.Errorf("%s is open: %w", other, ErrOtherFieldEditing)
		}
	}
	return nil
}
