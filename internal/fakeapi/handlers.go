package fakeapi

import (
	"net/http"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	s.mu.RLock()
	a, ok := s.byEmail[req.Email]
	var password string
	var user domain.UserSummary
	if ok {
		password = a.Password
		user = a.UserSummary
	}
	s.mu.RUnlock()

	if !ok {
		httputil.WriteError(w, r, http.StatusUnauthorized, "invalidUser", "User not Registered!")
		return
	}
	if password != req.Password {
		httputil.WriteError(w, r, http.StatusUnauthorized, "invalidPassword", "Wrong password!")
		return
	}

	token, err := s.issueToken(&account{UserSummary: user})
	if err != nil {
		httputil.WriteError(w, r, http.StatusInternalServerError, "", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, api.AuthPayload{User: user, Token: token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	s.mu.Lock()
	if _, exists := s.byEmail[req.Email]; exists {
		s.mu.Unlock()
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email is already registered"})
		return
	}
	user := s.addUserLocked(UserSeed{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Address:  req.Address,
		IsSeller: req.IsSeller,
	})
	s.mu.Unlock()

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"message": "User registered", "user": user})
}

func (s *Server) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req api.UpdateDetailsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email != claims.Email {
		httputil.WriteError(w, r, http.StatusForbidden, "", "email does not match the signed-in account")
		return
	}

	s.mu.Lock()
	a, ok := s.byEmail[req.Email]
	if !ok {
		s.mu.Unlock()
		httputil.WriteError(w, r, http.StatusUnauthorized, "invalidUser", "User not Registered!")
		return
	}
	switch {
	case req.NewName != "":
		a.Name = req.NewName
	case req.NewPhone != "":
		a.Phone = req.NewPhone
	case req.NewEmail != "":
		if _, taken := s.byEmail[req.NewEmail]; taken && req.NewEmail != a.Email {
			s.mu.Unlock()
			httputil.WriteError(w, r, http.StatusConflict, "", "email already in use")
			return
		}
		delete(s.byEmail, a.Email)
		a.Email = req.NewEmail
		s.byEmail[a.Email] = a
	default:
		s.mu.Unlock()
		httputil.WriteError(w, r, http.StatusBadRequest, "", "nothing to update")
		return
	}
	user := a.UserSummary
	s.mu.Unlock()

	token, err := s.issueToken(&account{UserSummary: user})
	if err != nil {
		httputil.WriteError(w, r, http.StatusInternalServerError, "", err.Error())
		return
	}

	logger.FromContext(r.Context()).InfoContext(r.Context(), "account details updated")
	httputil.WriteJSON(w, http.StatusOK, api.UpdateDetailsResponse{
		Message: "Details updated",
		User:    &user,
		Token:   token,
	})
}

func (s *Server) handleWishlistProducts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	params := pagination.FromRequest(r)

	s.mu.RLock()
	ids := s.wishlists[userID]
	items := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			items = append(items, p)
		}
	}
	s.mu.RUnlock()

	page := pagination.Slice(items, params)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"wishlistItems": page.Data,
		"totalItems":    page.TotalCount,
	})
}

func (s *Server) handleUpdateWishlist(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req api.UpdateWishlistRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		httputil.WriteError(w, r, http.StatusBadRequest, "", "productId is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.wishlists[userID]
	switch req.Type {
	case api.WishlistRemove:
		out := list[:0:0]
		for _, id := range list {
			if id != req.ProductID {
				out = append(out, id)
			}
		}
		s.wishlists[userID] = out
	case api.WishlistAdd:
		if _, ok := s.products[req.ProductID]; !ok {
			httputil.WriteError(w, r, http.StatusNotFound, "", "product not found")
			return
		}
		for _, id := range list {
			if id == req.ProductID {
				httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Already in wishlist"})
				return
			}
		}
		s.wishlists[userID] = append(list, req.ProductID)
	default:
		httputil.WriteError(w, r, http.StatusBadRequest, "", "unknown update type")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Wishlist updated"})
}
