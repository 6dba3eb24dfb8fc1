package profile

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/fakeapi"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storage/memory"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

// ============================================================================
// Helpers
// ============================================================================

type harness struct {
	ctrl     *Controller
	fake     *fakeapi.Server
	sessions *session.Store
	events   *event.Memory
}

func setup(t *testing.T, opts ...Option) *harness {
	t.Helper()
	fake := fakeapi.New(fakeapi.WithLogger(logger.Discard()))
	srv := fake.Start()
	t.Cleanup(srv.Close)

	sessions := session.NewStore(memory.New(), session.WithLogger(logger.Discard()))
	gw := gateway.New(srv.URL, httpclient.New(httpclient.Config{Timeout: 5 * time.Second}),
		gateway.TokenFunc(sessions.Token), gateway.WithLogger(logger.Discard()))
	client := api.NewClient(gw)

	fake.AddUser(fakeapi.UserSeed{Name: "Ada", Email: "ada@example.com", Phone: "5551234567", Password: "secret1", Address: "x"})
	fake.AddUser(fakeapi.UserSeed{Name: "Eve", Email: "eve@example.com", Phone: "5550000000", Password: "secret1", Address: "y"})
	payload, err := client.Login(context.Background(), api.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, sessions.Set(context.Background(), payload.Session()))

	h := &harness{fake: fake, sessions: sessions, events: &event.Memory{}}
	opts = append([]Option{WithLogger(logger.Discard()), WithRecorder(h.events)}, opts...)
	h.ctrl = NewController(client, sessions, opts...)
	return h
}

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) UpdateDetails(ctx context.Context, req api.UpdateDetailsRequest) (*api.UpdateDetailsResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*api.UpdateDetailsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func signedIn(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(memory.New(), session.WithLogger(logger.Discard()))
	require.NoError(t, store.Set(context.Background(), domain.Session{
		Token: "tok",
		User:  &domain.UserSummary{ID: "u1", Name: "Ada", Email: "ada@example.com", Phone: "5551234567"},
	}))
	return store
}

// ============================================================================
// Mode machine
// ============================================================================

func TestField_ViewingDraftEqualsCommitted(t *testing.T) {
	c := NewController(new(mockAPI), signedIn(t), WithLogger(logger.Discard()))

	for _, f := range domain.Fields() {
		v := c.Field(f)
		assert.Equal(t, domain.ModeViewing, v.Mode)
		assert.Equal(t, v.Committed, v.Draft)
	}
	assert.Equal(t, "Ada", c.Field(domain.FieldName).Committed)
}

func TestBeginEdit_SetDraft_Cancel(t *testing.T) {
	c := NewController(new(mockAPI), signedIn(t), WithLogger(logger.Discard()))

	require.NoError(t, c.BeginEdit(domain.FieldName))
	v := c.Field(domain.FieldName)
	assert.Equal(t, domain.ModeEditing, v.Mode)
	assert.Equal(t, "Ada", v.Draft)

	require.NoError(t, c.SetDraft(domain.FieldName, "Ada L."))
	assert.Equal(t, "Ada L.", c.Field(domain.FieldName).Draft)
	assert.Equal(t, "Ada", c.Field(domain.FieldName).Committed)

	require.NoError(t, c.Cancel(domain.FieldName))
	v = c.Field(domain.FieldName)
	assert.Equal(t, domain.ModeViewing, v.Mode)
	assert.Equal(t, "Ada", v.Draft)
}

func TestSetDraft_RequiresEditing(t *testing.T) {
	c := NewController(new(mockAPI), signedIn(t), WithLogger(logger.Discard()))
	assert.ErrorIs(t, c.SetDraft(domain.FieldPhone, "1"), ErrNotEditing)
}

func TestUnknownField(t *testing.T) {
	c := NewController(new(mockAPI), signedIn(t), WithLogger(logger.Discard()))
	assert.ErrorIs(t, c.BeginEdit(domain.Field(9)), apperrors.ErrValidation)
}

func TestExclusiveEdit(t *testing.T) {
	c := NewController(new(mockAPI), signedIn(t), WithLogger(logger.Discard()), WithExclusiveEdit())

	require.NoError(t, c.BeginEdit(domain.FieldName))
	assert.ErrorIs(t, c.BeginEdit(domain.FieldPhone), ErrOtherFieldEditing)

	_, err := c.Commit(context.Background(), domain.FieldEmail, "x@example.com")
	assert.ErrorIs(t, err, ErrOtherFieldEditing)

	require.NoError(t, c.Cancel(domain.FieldName))
	assert.NoError(t, c.BeginEdit(domain.FieldPhone))
}

func TestNonExclusiveAllowsSeveralOpenFields(t *testing.T) {
	c := NewController(new(mockAPI), signedIn(t), WithLogger(logger.Discard()))
	require.NoError(t, c.BeginEdit(domain.FieldName))
	assert.NoError(t, c.BeginEdit(domain.FieldPhone))
}

// ============================================================================
// Commit
// ============================================================================

func TestCommit_UpdatesSessionAndPersists(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.BeginEdit(domain.FieldName))
	user, err := h.ctrl.Commit(ctx, domain.FieldName, "Ada Lovelace")
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "Ada Lovelace", h.sessions.Get().User.Name)
	assert.NotEmpty(t, h.sessions.Token())

	v := h.ctrl.Field(domain.FieldName)
	assert.Equal(t, domain.ModeViewing, v.Mode)
	assert.Equal(t, "Ada Lovelace", v.Committed)

	persisted := h.sessions.LoadPersisted(ctx)
	require.NotNil(t, persisted)
	assert.Equal(t, "Ada Lovelace", persisted.User.Name)

	stored, ok := h.fake.User("ada@example.com")
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", stored.Name)

	acts := h.events.Activities()
	require.Len(t, acts, 1)
	assert.Equal(t, event.TypeProfileFieldUpdated, acts[0].Type)
	assert.Equal(t, event.ProfileData{Field: "name"}, acts[0].Data)
}

type notices struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notices) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func TestCommit_ShowsServerMessage(t *testing.T) {
	n := &notices{}
	h := setup(t, WithNotifier(n))

	_, err := h.ctrl.Commit(context.Background(), domain.FieldName, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, []string{"Details updated"}, n.msgs)
}

func TestCommit_FailureShowsNoNotice(t *testing.T) {
	n := &notices{}
	h := setup(t, WithNotifier(n))
	h.fake.Fail(api.PathUpdateDetails, http.StatusInternalServerError, "", 1)

	_, err := h.ctrl.Commit(context.Background(), domain.FieldName, "Ada Lovelace")
	require.Error(t, err)
	assert.Empty(t, n.msgs)
}

func TestCommit_EmptyMessageFallsBack(t *testing.T) {
	m := new(mockAPI)
	m.On("UpdateDetails", mock.Anything, mock.Anything).Return(&api.UpdateDetailsResponse{}, nil).Once()
	n := &notices{}
	c := NewController(m, signedIn(t), WithLogger(logger.Discard()), WithNotifier(n))

	_, err := c.Commit(context.Background(), domain.FieldPhone, "5550001111")
	require.NoError(t, err)
	assert.Equal(t, []string{MsgDetailsUpdated}, n.msgs)
}

func TestCommit_EmailChangeKeepsSessionUsable(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.ctrl.Commit(ctx, domain.FieldEmail, "ada.l@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada.l@example.com", h.sessions.Get().Email())

	// The re-issued token authenticates the renamed account.
	_, err = h.ctrl.Commit(ctx, domain.FieldPhone, "5559999999")
	require.NoError(t, err)
	assert.Equal(t, "5559999999", h.sessions.Get().User.Phone)
}

func TestCommit_ServerErrorLeavesSessionAndStaysEditing(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	before := h.sessions.Get()

	require.NoError(t, h.ctrl.BeginEdit(domain.FieldPhone))
	h.fake.Fail(api.PathUpdateDetails, http.StatusInternalServerError, "", 1)
	_, err := h.ctrl.Commit(ctx, domain.FieldPhone, "5550001111")

	assert.ErrorIs(t, err, apperrors.ErrServerError)
	assert.True(t, before.Equal(h.sessions.Get()))

	v := h.ctrl.Field(domain.FieldPhone)
	assert.Equal(t, domain.ModeEditing, v.Mode)
	assert.Equal(t, "5551234567", v.Committed)
	assert.Equal(t, "5550001111", v.Draft)
	assert.Empty(t, h.events.Types())
}

func TestCommit_ConflictingEmail(t *testing.T) {
	h := setup(t)
	_, err := h.ctrl.Commit(context.Background(), domain.FieldEmail, "eve@example.com")

	assert.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(err))
	assert.Equal(t, "ada@example.com", h.sessions.Get().Email())
	assert.Equal(t, domain.ModeEditing, h.ctrl.Field(domain.FieldEmail).Mode)
}

func TestCommit_ValidationSkipsNetwork(t *testing.T) {
	tests := []struct {
		name  string
		field domain.Field
		draft string
	}{
		{"empty name", domain.FieldName, ""},
		{"long name", domain.FieldName, string(make([]byte, 101))},
		{"bad email", domain.FieldEmail, "nope"},
		{"short phone", domain.FieldPhone, "123"},
		{"letters in phone", domain.FieldPhone, "555abc4567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockAPI)
			c := NewController(m, signedIn(t), WithLogger(logger.Discard()))

			_, err := c.Commit(context.Background(), tt.field, tt.draft)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, domain.ModeEditing, c.Field(tt.field).Mode)
			m.AssertNotCalled(t, "UpdateDetails", mock.Anything, mock.Anything)
		})
	}
}

func TestCommit_UnchangedValueSkipsNetwork(t *testing.T) {
	m := new(mockAPI)
	c := NewController(m, signedIn(t), WithLogger(logger.Discard()))
	require.NoError(t, c.BeginEdit(domain.FieldName))

	user, err := c.Commit(context.Background(), domain.FieldName, "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, domain.ModeViewing, c.Field(domain.FieldName).Mode)
	m.AssertNotCalled(t, "UpdateDetails", mock.Anything, mock.Anything)
}

func TestCommit_RequiresSession(t *testing.T) {
	store := session.NewStore(memory.New(), session.WithLogger(logger.Discard()))
	c := NewController(new(mockAPI), store, WithLogger(logger.Discard()))

	_, err := c.Commit(context.Background(), domain.FieldName, "Ada")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestCommit_SendsSingleFieldWithSessionEmail(t *testing.T) {
	m := new(mockAPI)
	m.On("UpdateDetails", mock.Anything, api.UpdateDetailsRequest{NewPhone: "5550001111", Email: "ada@example.com"}).
		Return(&api.UpdateDetailsResponse{Message: "ok"}, nil).Once()

	store := signedIn(t)
	c := NewController(m, store, WithLogger(logger.Discard()))

	user, err := c.Commit(context.Background(), domain.FieldPhone, "5550001111")
	require.NoError(t, err)
	assert.Equal(t, "5550001111", user.Phone)
	assert.Equal(t, "tok", store.Token())
	m.AssertExpectations(t)
}

func TestCommit_BusyWhileSaving(t *testing.T) {
	release := make(chan struct{})
	m := new(mockAPI)
	m.On("UpdateDetails", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&api.UpdateDetailsResponse{Message: "ok"}, nil).Once()

	c := NewController(m, signedIn(t), WithLogger(logger.Discard()))
	done := make(chan error, 1)
	go func() {
		_, err := c.Commit(context.Background(), domain.FieldName, "Ada L.")
		done <- err
	}()
	require.Eventually(t, func() bool { return c.Field(domain.FieldName).Mode == domain.ModeSaving }, time.Second, time.Millisecond)

	_, err := c.Commit(context.Background(), domain.FieldName, "Other")
	assert.ErrorIs(t, err, ErrFieldBusy)
	assert.ErrorIs(t, c.Cancel(domain.FieldName), ErrFieldBusy)
	assert.ErrorIs(t, c.BeginEdit(domain.FieldName), ErrFieldBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestCommit_DistinctFieldsConcurrently(t *testing.T) {
	m := new(mockAPI)
	m.On("UpdateDetails", mock.Anything, mock.Anything).Return(&api.UpdateDetailsResponse{Message: "ok"}, nil)

	store := signedIn(t)
	c := NewController(m, store, WithLogger(logger.Discard()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := c.Commit(context.Background(), domain.FieldName, "Ada L.")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := c.Commit(context.Background(), domain.FieldPhone, "5550001111")
		assert.NoError(t, err)
	}()
	wg.Wait()

	u := store.Get().User
	assert.Equal(t, "Ada L.", u.Name)
	assert.Equal(t, "5550001111", u.Phone)
}
