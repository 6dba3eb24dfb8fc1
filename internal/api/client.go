// Package api is the typed client for the storefront endpoints. Response
// bodies are parsed and checked on receipt.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// Requester sends one classified request. *gateway.Gateway implements it.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*gateway.Response, error)
}

// Client calls the storefront API through a Requester.
type Client struct {
	gw Requester
}

// NewClient creates an API client.
func NewClient(gw Requester) *Client {
	return &Client{gw: gw}
}

// Login exchanges credentials for a token and user summary.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthPayload, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	resp, err := c.gw.Request(ctx, http.MethodPost, PathLogin, req)
	if err != nil {
		return nil, err
	}
	payload, err := gateway.Decode[AuthPayload](resp)
	if err != nil {
		return nil, err
	}
	if err := payload.check(); err != nil {
		return nil, apperrors.MalformedResponse(resp.Status, err)
	}
	return &payload, nil
}

// Register creates an account. A 200 answer means the email is taken.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if err := validator.Validate(req); err != nil {
		return 0, err
	}

	resp, err := c.gw.Request(ctx, http.MethodPost, PathRegister, req)
	if err != nil {
		return 0, err
	}
	switch resp.Status {
	case http.StatusCreated:
		return Registered, nil
	case http.StatusOK:
		return AlreadyRegistered, nil
	default:
		return 0, apperrors.UnexpectedStatus(resp.Status, "unexpected register status")
	}
}

// UpdateDetails changes a single profile field.
func (c *Client) UpdateDetails(ctx context.Context, req UpdateDetailsRequest) (*UpdateDetailsResponse, error) {
	if err := req.check(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	resp, err := c.gw.Request(ctx, http.MethodPost, PathUpdateDetails, req)
	if err != nil {
		return nil, err
	}
	out, err := gateway.Decode[UpdateDetailsResponse](resp)
	if err != nil {
		return nil, err
	}
	if out.User != nil && out.User.ID == "" {
		return nil, apperrors.MalformedResponse(resp.Status, fmt.Errorf("user missing _id"))
	}
	return &out, nil
}

// WishlistPage fetches one page of the signed-in user's wishlist.
func (c *Client) WishlistPage(ctx context.Context, page, pageSize int) (*WishlistPage, error) {
	if page < 1 || pageSize < 1 {
		return nil, apperrors.Validation(fmt.Sprintf("invalid page %d / page size %d", page, pageSize))
	}
	params := pagination.NewParams(page, pageSize)

	resp, err := c.gw.Request(ctx, http.MethodGet, PathWishlistProducts+"?"+params.Query(), nil)
	if err != nil {
		return nil, err
	}
	wire, err := gateway.Decode[wishlistPageWire](resp)
	if err != nil {
		return nil, err
	}
	out, err := wire.check(pageSize)
	if err != nil {
		return nil, apperrors.MalformedResponse(resp.Status, err)
	}
	return out, nil
}

// RemoveFromWishlist removes productID from the wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	return c.updateWishlist(ctx, productID, WishlistRemove)
}

// AddToWishlist adds productID to the wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	return c.updateWishlist(ctx, productID, WishlistAdd)
}

func (c *Client) updateWishlist(ctx context.Context, productID, kind string) error {
	if productID == "" {
		return apperrors.Validation("product id is required")
	}
	_, err := c.gw.Request(ctx, http.MethodPost, PathUpdateWishlist, UpdateWishlistRequest{
		ProductID: productID,
		Type:      kind,
	})
	return err
}
