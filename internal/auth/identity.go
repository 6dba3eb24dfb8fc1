package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Assertion is what an identity provider hands back after the user signs in.
type Assertion struct {
	Email   string
	Name    string
	IDToken string
}

// IdentityProvider authenticates the user with a third party.
type IdentityProvider interface {
	Authenticate(ctx context.Context) (Assertion, error)
}

// StaticAssertion is an IdentityProvider that returns a fixed assertion,
// e.g. an ID token pasted on the command line.
type StaticAssertion Assertion

func (a StaticAssertion) Authenticate(context.Context) (Assertion, error) {
	return Assertion(a), nil
}

type idClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// LoginWithIdentityProvider signs in through idp. The ID token becomes the
// session token and the email is cached for automatic redirect on the next
// visit.
func (s *Service) LoginWithIdentityProvider(ctx context.Context, idp IdentityProvider, redirect domain.Route) error {
	assertion, err := idp.Authenticate(ctx)
	if err != nil {
		err = apperrors.NotAuthenticated(fmt.Sprintf("identity provider: %v", err))
		s.fail(ctx, "identity provider sign-in failed", err)
		return err
	}

	claims, err := s.checkIDToken(assertion)
	if err != nil {
		err = apperrors.NotAuthenticated(err.Error())
		s.fail(ctx, "identity token rejected", err)
		return err
	}

	name := assertion.Name
	if name == "" {
		name = claims.Name
	}
	id := claims.Subject
	if id == "" {
		id = assertion.Email
	}

	sess, err := domain.NewSession(assertion.IDToken, &domain.UserSummary{
		ID:    id,
		Name:  name,
		Email: assertion.Email,
	})
	if err != nil {
		return apperrors.NotAuthenticated(err.Error())
	}
	if err := s.sessions.Set(ctx, sess); err != nil {
		s.logger.WarnContext(ctx, "session not persisted", slog.String("error", err.Error()))
	}
	if err := s.sessions.RememberIdentity(ctx, assertion.Email); err != nil {
		s.logger.WarnContext(ctx, "identity not cached", slog.String("error", err.Error()))
	}

	s.events.Record(ctx, event.Activity{
		Type:    event.TypeUserLoggedIn,
		Subject: assertion.Email,
		Data:    event.UserData{UserID: id, Email: assertion.Email, Method: "identity_provider"},
	})

	s.notify.Success(MsgLoginSuccess)
	s.nav.Navigate(redirectOrHome(redirect))
	return nil
}

// checkIDToken reads the token claims without verifying the signature; the
// API verifies it on every request.
func (s *Service) checkIDToken(a Assertion) (*idClaims, error) {
	if a.IDToken == "" {
		return nil, fmt.Errorf("identity token is missing")
	}
	if a.Email == "" {
		return nil, fmt.Errorf("identity assertion carries no email")
	}

	claims := &idClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(a.IDToken, claims); err != nil {
		return nil, fmt.Errorf("identity token is not a JWT: %w", err)
	}
	if !strings.EqualFold(claims.Email, a.Email) {
		return nil, fmt.Errorf("identity token email %q does not match %q", claims.Email, a.Email)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("identity token has no expiry")
	}
	if !s.now().Before(exp.Time) {
		return nil, fmt.Errorf("identity token expired at %s", exp.Time.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return claims, nil
}

// ResumeIdentity sends a returning identity-provider user straight to
// redirect. It reports whether an identity was cached.
func (s *Service) ResumeIdentity(ctx context.Context, redirect domain.Route) bool {
	email, ok := s.sessions.RememberedIdentity(ctx)
	if !ok {
		return false
	}
	s.logger.DebugContext(ctx, "resuming cached identity", slog.String("email", email))
	s.nav.Navigate(redirectOrHome(redirect))
	return true
}
