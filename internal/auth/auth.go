// Package auth implements the sign-in, registration and sign-out flows on
// top of the API client and the session store.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Notice texts shown on the happy paths.
const (
	MsgStartingUp        = "Backend is starting up, this may take a moment..."
	MsgLoginSuccess      = "Logged in Successfully!"
	MsgRegisterSuccess   = "User Registered Successfully! Please Login..."
	MsgLogoutSuccess     = "Logged out successfully!"
	MsgPasswordsMismatch = "Password does not match!"
)

// Notifier shows transient notices to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// Navigator moves the host UI to another screen.
type Navigator interface {
	Navigate(route domain.Route)
}

// API is the part of the storefront API the flows call.
type API interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthPayload, error)
	Register(ctx context.Context, req api.RegisterRequest) (api.RegisterResult, error)
}

// Service runs the auth flows.
type Service struct {
	api      API
	sessions *session.Store
	notify   Notifier
	nav      Navigator
	events   event.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the activity recorder.
func WithRecorder(r event.Recorder) Option {
	return func(s *Service) { s.events = r }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used for ID token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the auth service.
func NewService(client API, sessions *session.Store, notify Notifier, nav Navigator, opts ...Option) *Service {
	s := &Service{
		api:      client,
		sessions: sessions,
		notify:   notify,
		nav:      nav,
		events:   event.Nop{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string
	Password string
	// Redirect is where to go after signing in; empty means home.
	Redirect domain.Route
}

// Login signs in with email and password. The session is only written on
// success.
func (s *Service) Login(ctx context.Context, in LoginInput) error {
	req := api.LoginRequest{Email: in.Email, Password: in.Password}
	if err := validator.Validate(req); err != nil {
		s.notify.Error(apperrors.UserMessage(err))
		return err
	}

	s.notify.Info(MsgStartingUp)
	payload, err := s.api.Login(ctx, req)
	if err != nil {
		s.fail(ctx, "login failed", err)
		if apperrors.KindOf(err) == apperrors.KindServerError {
			s.nav.Navigate(domain.RouteLogin)
		}
		return err
	}

	sess := payload.Session()
	if err := s.sessions.Set(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			s.notify.Error(apperrors.UserMessage(apperrors.ServerError(err.Error())))
			return apperrors.MalformedResponse(0, err)
		}
		s.logger.WarnContext(ctx, "session not persisted", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", sess.User.ID))
	s.events.Record(ctx, event.Activity{
		Type:    event.TypeUserLoggedIn,
		Subject: sess.Email(),
		Data:    event.UserData{UserID: sess.User.ID, Email: sess.Email(), Method: "password"},
	})

	s.notify.Success(MsgLoginSuccess)
	s.nav.Navigate(redirectOrHome(in.Redirect))
	return nil
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	Address         string
	IsSeller        bool
}

// Register creates an account. Both a new account and an existing one send
// the user to the login screen; the latter also returns ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	if in.Password != in.ConfirmPassword {
		err := apperrors.Validation(MsgPasswordsMismatch)
		s.notify.Error(apperrors.UserMessage(err))
		return err
	}

	result, err := s.api.Register(ctx, api.RegisterRequest{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Password: in.Password,
		Address:  in.Address,
		IsSeller: in.IsSeller,
	})
	if err != nil {
		s.fail(ctx, "registration failed", err)
		if apperrors.KindOf(err) == apperrors.KindServerError {
			s.nav.Navigate(domain.RouteRegister)
		}
		return err
	}

	if result == api.AlreadyRegistered {
		err := apperrors.AlreadyRegistered(in.Email)
		s.notify.Error(apperrors.UserMessage(err))
		s.nav.Navigate(domain.RouteLogin)
		return err
	}

	s.logger.InfoContext(ctx, "user registered", slog.Bool("is_seller", in.IsSeller))
	s.events.Record(ctx, event.Activity{
		Type:    event.TypeUserRegistered,
		Subject: in.Email,
		Data:    event.UserData{Email: in.Email},
	})

	s.notify.Success(MsgRegisterSuccess)
	s.nav.Navigate(domain.RouteLogin)
	return nil
}

// Logout clears the session. The cached identity email is kept.
func (s *Service) Logout(ctx context.Context) error {
	prev := s.sessions.Get()
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "session snapshot not removed", slog.String("error", err.Error()))
	}

	if prev.Authenticated() {
		s.events.Record(ctx, event.Activity{
			Type:    event.TypeUserLoggedOut,
			Subject: prev.Email(),
			Data:    event.UserData{Email: prev.Email()},
		})
	}

	s.notify.Success(MsgLogoutSuccess)
	s.nav.Navigate(domain.RouteHome)
	return nil
}

// DashboardRoute is where an already signed-in user opening the login
// screen is sent.
func DashboardRoute(sess domain.Session) domain.Route {
	if sess.IsAdmin() {
		return domain.RouteAdminDashboard
	}
	return domain.RouteUserDashboard
}

func (s *Service) fail(ctx context.Context, msg string, err error) {
	s.logger.WarnContext(ctx, msg,
		slog.String("kind", string(apperrors.KindOf(err))),
		slog.String("error", err.Error()),
		slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
	)
	s.notify.Error(apperrors.UserMessage(err))
}

func redirectOrHome(r domain.Route) domain.Route {
	if r == "" {
		return domain.RouteHome
	}
	return r
}
