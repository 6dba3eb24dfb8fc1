package api

import (
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
)

// Endpoint paths, relative to the API base URL.
const (
	PathLogin            = "/api/v1/auth/login"
	PathRegister         = "/api/v1/auth/register"
	PathUpdateDetails    = "/api/v1/auth/update-details"
	PathWishlistProducts = "/api/v1/user/wishlist-products"
	PathUpdateWishlist   = "/api/v1/user/update-wishlist"
)

// Wishlist mutation types.
const (
	WishlistRemove = "remove"
	WishlistAdd    = "add"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

// AuthPayload is the login answer.
type AuthPayload struct {
	User  domain.UserSummary `json:"user"`
	Token string             `json:"token"`
}

func (p *AuthPayload) check() error {
	if p.Token == "" {
		return fmt.Errorf("missing token")
	}
	if p.User.ID == "" {
		return fmt.Errorf("missing user._id")
	}
	return nil
}

// Session converts the payload into a session value.
func (p *AuthPayload) Session() domain.Session {
	u := p.User
	return domain.Session{Token: p.Token, User: &u}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,len=10,numeric"`
	Password string `json:"password" validate:"required,min=5"`
	Address  string `json:"address" validate:"required"`
	IsSeller bool   `json:"isSeller"`
}

// RegisterResult distinguishes a new account from an existing one.
type RegisterResult int

const (
	Registered RegisterResult = iota + 1
	AlreadyRegistered
)

func (r RegisterResult) String() string {
	switch r {
	case Registered:
		return "registered"
	case AlreadyRegistered:
		return "already_registered"
	default:
		return "unknown"
	}
}

// UpdateDetailsRequest is the body of POST /auth/update-details. Exactly one
// of NewName, NewEmail, NewPhone is set; Email identifies the account.
type UpdateDetailsRequest struct {
	NewName  string `json:"newName,omitempty"`
	NewEmail string `json:"newEmail,omitempty"`
	NewPhone string `json:"newPhone,omitempty"`
	Email    string `json:"email"`
}

// NewFieldUpdate builds the request carrying a single changed field.
func NewFieldUpdate(field domain.Field, value, email string) (UpdateDetailsRequest, error) {
	req := UpdateDetailsRequest{Email: email}
	switch field {
	case domain.FieldName:
		req.NewName = value
	case domain.FieldEmail:
		req.NewEmail = value
	case domain.FieldPhone:
		req.NewPhone = value
	default:
		return UpdateDetailsRequest{}, fmt.Errorf("unsupported profile field %s", field)
	}
	return req, nil
}

func (r UpdateDetailsRequest) check() error {
	set := 0
	for _, v := range []string{r.NewName, r.NewEmail, r.NewPhone} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("update-details must carry exactly one changed field, got %d", set)
	}
	if r.Email == "" {
		return fmt.Errorf("update-details requires the account email")
	}
	return nil
}

// UpdateDetailsResponse is the update-details answer. User and Token are
// present when the server returns the refreshed auth payload.
type UpdateDetailsResponse struct {
	Message string              `json:"message"`
	User    *domain.UserSummary `json:"user,omitempty"`
	Token   string              `json:"token,omitempty"`
}

// WishlistPage is one page of the wishlist listing.
type WishlistPage struct {
	Items      []domain.Item `json:"wishlistItems"`
	TotalItems int           `json:"totalItems"`
}

type wishlistPageWire struct {
	Items      []domain.Item `json:"wishlistItems"`
	TotalItems *int          `json:"totalItems"`
}

func (w wishlistPageWire) check(pageSize int) (*WishlistPage, error) {
	if w.TotalItems == nil {
		return nil, fmt.Errorf("missing totalItems")
	}
	if *w.TotalItems < 0 {
		return nil, fmt.Errorf("negative totalItems %d", *w.TotalItems)
	}
	if len(w.Items) > pageSize {
		return nil, fmt.Errorf("page holds %d items, page size is %d", len(w.Items), pageSize)
	}
	for i, item := range w.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("wishlistItems[%d] missing _id", i)
		}
	}
	items := w.Items
	if items == nil {
		items = []domain.Item{}
	}
	return &WishlistPage{Items: items, TotalItems: *w.TotalItems}, nil
}

// UpdateWishlistRequest is the body of POST /user/update-wishlist.
type UpdateWishlistRequest struct {
	ProductID string `json:"productId"`
	Type      string `json:"type"`
}
