package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-butik/internal/common"
	"github.com/noah-isme/backend-butik/internal/db"
)

type fakeQueries struct {
	byEmail map[string]db.User
	byID    map[uuid.UUID]db.User
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		byEmail: map[string]db.User{},
		byID:    map[uuid.UUID]db.User{},
	}
}

func (f *fakeQueries) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	if _, exists := f.byEmail[arg.Email]; exists {
		return db.User{}, &pgconn.PgError{Code: "23505"}
	}
	u := db.User{
		ID:           uuid.New(),
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
		CreatedAt:    time.Now(),
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id uuid.UUID) (db.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func newTestService(t *testing.T) (*Service, *fakeQueries) {
	t.Helper()
	q := newFakeQueries()
	svc, err := NewService(Config{
		Queries:        q,
		Secret:         "test-secret-which-is-long-enough",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc, q
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(context.Background(), "Anna@Example.SE", "hemligt lösenord")
	require.NoError(t, err)
	require.Equal(t, "anna@example.se", user.Email)
	require.Equal(t, []string{RoleCustomer}, user.Roles)

	result, err := svc.Login(context.Background(), "anna@example.se", "hemligt lösenord")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, user.ID, result.User.ID)

	_, err = svc.Login(context.Background(), "anna@example.se", "fel lösenord")
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "dubbel@example.se", "hemligt lösenord")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "dubbel@example.se", "annat lösenord")
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_ALREADY_USED", appErr.Code)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "", "hemligt lösenord")
	require.Error(t, err)

	_, err = svc.Register(context.Background(), "kort@example.se", "kort")
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.NewString()

	token, expiry, err := svc.signAccessToken(userID, []string{RoleCustomer, RoleAdmin})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)

	identity, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, userID, identity.UserID)
	require.ElementsMatch(t, []string{RoleCustomer, RoleAdmin}, identity.Roles)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, _ := newTestService(t)

	past := time.Now().Add(-48 * time.Hour)
	svc.WithNow(func() time.Time { return past })
	token, _, err := svc.signAccessToken(uuid.NewString(), []string{RoleCustomer})
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ParseAccessToken("not-a-token")
	require.Error(t, err)
	_, err = svc.ParseAccessToken("")
	require.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	svc, _ := newTestService(t)
	mw := Middleware{Service: svc}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := mw.RequireRole(RoleAdmin)(next)

	customerToken, _, err := svc.signAccessToken(uuid.NewString(), []string{RoleCustomer})
	require.NoError(t, err)
	adminToken, _, err := svc.signAccessToken(uuid.NewString(), []string{RoleCustomer, RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+customerToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
