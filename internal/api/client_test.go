package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/fakeapi"
	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

// ============================================================================
// Helpers
// ============================================================================

type tokenHolder struct{ token string }

func (h *tokenHolder) Token() string { return h.token }

func setup(t *testing.T) (*api.Client, *fakeapi.Server, *tokenHolder) {
	t.Helper()
	fake := fakeapi.New(fakeapi.WithLogger(logger.Discard()))
	srv := fake.Start()
	t.Cleanup(srv.Close)

	tokens := &tokenHolder{}
	gw := gateway.New(srv.URL, httpclient.New(httpclient.Config{Timeout: 5 * time.Second}), tokens,
		gateway.WithLogger(logger.Discard()))
	return api.NewClient(gw), fake, tokens
}

type mockRequester struct {
	mock.Mock
}

func (m *mockRequester) Request(ctx context.Context, method, path string, body any) (*gateway.Response, error) {
	args := m.Called(ctx, method, path, body)
	if r := args.Get(0); r != nil {
		return r.(*gateway.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func okBody(status int, body string) *gateway.Response {
	return &gateway.Response{Status: status, Body: []byte(body)}
}

func assertMalformed(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "MALFORMED_RESPONSE", appErr.Code)
}

// ============================================================================
// Login / Register
// ============================================================================

func TestLogin(t *testing.T) {
	client, fake, _ := setup(t)
	want := fake.AddUser(fakeapi.UserSeed{Name: "Ada", Email: "ada@example.com", Password: "secret1", Phone: "5551234567"})

	payload, err := client.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, payload.Token)
	assert.Equal(t, want, payload.User)

	sess := payload.Session()
	assert.True(t, sess.Authenticated())
	assert.Equal(t, want.ID, sess.User.ID)
}

func TestLogin_ClassifiedFailures(t *testing.T) {
	client, fake, _ := setup(t)
	fake.AddUser(fakeapi.UserSeed{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	ctx := context.Background()

	_, err := client.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "wrong1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = client.Login(ctx, api.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	fake.Fail(api.PathLogin, http.StatusInternalServerError, "", 1)
	_, err = client.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrServerError)
}

func TestLogin_ValidatesBeforeSending(t *testing.T) {
	client, fake, _ := setup(t)

	_, err := client.Login(context.Background(), api.LoginRequest{Email: "not-an-email", Password: "123"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 0, fake.Hits(api.PathLogin))
}

func TestLogin_MalformedPayload(t *testing.T) {
	tests := map[string]string{
		"not json":      `<html>`,
		"missing token": `{"user":{"_id":"u1"}}`,
		"missing id":    `{"user":{"name":"Ada"},"token":"t"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			m := new(mockRequester)
			m.On("Request", mock.Anything, http.MethodPost, api.PathLogin, mock.Anything).Return(okBody(200, body), nil)

			_, err := api.NewClient(m).Login(context.Background(), api.LoginRequest{Email: "a@example.com", Password: "secret1"})
			assertMalformed(t, err)
		})
	}
}

func validRegistration() api.RegisterRequest {
	return api.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Phone: "5551234567",
		Password: "secret1", Address: "1 Analytical Way",
	}
}

func TestRegister(t *testing.T) {
	client, _, _ := setup(t)
	ctx := context.Background()

	res, err := client.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, api.Registered, res)

	res, err = client.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, api.AlreadyRegistered, res)
}

func TestRegister_Validation(t *testing.T) {
	client, fake, _ := setup(t)

	req := validRegistration()
	req.Phone = "555-1234"
	_, err := client.Register(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 0, fake.Hits(api.PathRegister))
}

func TestRegister_UnexpectedSuccessStatus(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, http.MethodPost, api.PathRegister, mock.Anything).Return(okBody(http.StatusAccepted, `{}`), nil)

	_, err := api.NewClient(m).Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)
}

// ============================================================================
// UpdateDetails
// ============================================================================

func TestNewFieldUpdate(t *testing.T) {
	req, err := api.NewFieldUpdate(domain.FieldPhone, "5550000000", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, api.UpdateDetailsRequest{NewPhone: "5550000000", Email: "ada@example.com"}, req)

	_, err = api.NewFieldUpdate(domain.Field(42), "x", "ada@example.com")
	assert.Error(t, err)
}

func TestUpdateDetails(t *testing.T) {
	client, fake, tokens := setup(t)
	fake.AddUser(fakeapi.UserSeed{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	ctx := context.Background()

	payload, err := client.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	tokens.token = payload.Token

	req, err := api.NewFieldUpdate(domain.FieldName, "Countess Ada", "ada@example.com")
	require.NoError(t, err)
	out, err := client.UpdateDetails(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, out.User)
	assert.Equal(t, "Countess Ada", out.User.Name)
	assert.NotEmpty(t, out.Token)
}

func TestUpdateDetails_RejectsMultipleFields(t *testing.T) {
	m := new(mockRequester)
	_, err := api.NewClient(m).UpdateDetails(context.Background(),
		api.UpdateDetailsRequest{NewName: "a", NewPhone: "5550000000", Email: "ada@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	m.AssertNotCalled(t, "Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateDetails_MessageOnly(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, http.MethodPost, api.PathUpdateDetails,
		api.UpdateDetailsRequest{NewName: "Ada", Email: "ada@example.com"}).
		Return(okBody(200, `{"message":"ok"}`), nil)

	out, err := api.NewClient(m).UpdateDetails(context.Background(), api.UpdateDetailsRequest{NewName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Message)
	assert.Nil(t, out.User)
}

// ============================================================================
// Wishlist
// ============================================================================

func TestWishlistPage(t *testing.T) {
	client, fake, tokens := setup(t)
	fake.AddUser(fakeapi.UserSeed{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	fake.AddProducts(domain.Item{ID: "p1", Name: "Lamp", Price: 20}, domain.Item{ID: "p2", Name: "Desk", Price: 120})
	fake.SetWishlist("ada@example.com", "p1", "p2")
	ctx := context.Background()

	payload, err := client.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	tokens.token = payload.Token

	page, err := client.WishlistPage(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalItems)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p1", page.Items[0].ID)

	require.NoError(t, client.RemoveFromWishlist(ctx, "p1"))
	require.NoError(t, client.AddToWishlist(ctx, "p1"))
	assert.Equal(t, []string{"p2", "p1"}, fake.Wishlist("ada@example.com"))
}

func TestWishlistPage_Unauthenticated(t *testing.T) {
	client, _, _ := setup(t)
	_, err := client.WishlistPage(context.Background(), 1, 5)
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
}

func TestWishlistPage_SendsPagingQuery(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, http.MethodGet, api.PathWishlistProducts+"?page=3&pageSize=5", nil).
		Return(okBody(200, `{"wishlistItems":[],"totalItems":12}`), nil)

	page, err := api.NewClient(m).WishlistPage(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, page.TotalItems)
	assert.NotNil(t, page.Items)
	m.AssertExpectations(t)
}

func TestWishlistPage_Malformed(t *testing.T) {
	tests := map[string]string{
		"missing total":   `{"wishlistItems":[]}`,
		"negative total":  `{"wishlistItems":[],"totalItems":-1}`,
		"oversized page":  `{"wishlistItems":[{"_id":"1"},{"_id":"2"},{"_id":"3"}],"totalItems":3}`,
		"item without id": `{"wishlistItems":[{"name":"Lamp"}],"totalItems":1}`,
		"wrong types":     `{"wishlistItems":"nope","totalItems":"12"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			m := new(mockRequester)
			m.On("Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(okBody(200, body), nil)

			_, err := api.NewClient(m).WishlistPage(context.Background(), 1, 2)
			assertMalformed(t, err)
		})
	}
}

func TestWishlistPage_InvalidArguments(t *testing.T) {
	m := new(mockRequester)
	_, err := api.NewClient(m).WishlistPage(context.Background(), 0, 5)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRemoveFromWishlist_RequiresID(t *testing.T) {
	m := new(mockRequester)
	assert.ErrorIs(t, api.NewClient(m).RemoveFromWishlist(context.Background(), ""), apperrors.ErrValidation)
}

func TestRemoveFromWishlist_Body(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, http.MethodPost, api.PathUpdateWishlist,
		api.UpdateWishlistRequest{ProductID: "p9", Type: "remove"}).Return(okBody(200, `{}`), nil)

	require.NoError(t, api.NewClient(m).RemoveFromWishlist(context.Background(), "p9"))
	m.AssertExpectations(t)
}
