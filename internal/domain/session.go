package domain

import "errors"

// ErrInvalidSession is returned when a token and user are not both present
// or both absent.
var ErrInvalidSession = errors.New("session must carry both a token and a user, or neither")

// Session is the authenticated identity and credential held by the client.
// The zero value is the empty (signed-out) session.
type Session struct {
	Token string       `json:"token,omitempty"`
	User  *UserSummary `json:"user,omitempty"`
}

// NewSession builds a session, enforcing that token and user travel together.
func NewSession(token string, user *UserSummary) (Session, error) {
	s := Session{Token: token, User: user}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate checks the token/user pairing.
func (s Session) Validate() error {
	if (s.Token == "") != (s.User == nil) {
		return ErrInvalidSession
	}
	return nil
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// IsAdmin reports whether the signed-in user is an admin.
func (s Session) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin()
}

// Email returns the signed-in user's email, or "" for the empty session.
func (s Session) Email() string {
	if s.User == nil {
		return ""
	}
	return s.User.Email
}

// Clone returns a deep copy so callers cannot mutate shared user state.
func (s Session) Clone() Session {
	if s.User == nil {
		return Session{Token: s.Token}
	}
	u := *s.User
	return Session{Token: s.Token, User: &u}
}

// Equal compares two sessions by value.
func (s Session) Equal(o Session) bool {
	if s.Token != o.Token {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == nil && o.User == nil
	}
	return *s.User == *o.User
}
