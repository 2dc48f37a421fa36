package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/server"
	"github.com/HerbHall/grandline/internal/services"
	"github.com/HerbHall/grandline/internal/testutil"
)

const testSecret = "test-secret-for-grandline"

func newService(t *testing.T) (*Service, services.UserRepository) {
	t.Helper()
	svc, users, _ := newServiceDB(t)
	return svc, users
}

func newServiceDB(t *testing.T) (*Service, services.UserRepository, *sql.DB) {
	t.Helper()
	db := testutil.NewStore(t).DB()
	users := services.NewSQLiteUserRepository(db)
	svc, err := NewService(users, Config{Secret: testSecret, TokenTTL: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	return svc, users, db
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(nil, Config{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLogin(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "nami", "tangerine-map", "")
	require.NoError(t, err)

	tok, err := svc.Login(ctx, "nami", "tangerine-map")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), tok.ExpiresIn)

	id, err := svc.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "nami", id.Username)
	assert.Equal(t, DefaultRole, id.Role)
	assert.NotEmpty(t, id.UserID)

	u, err := users.GetByUsername(ctx, "nami")
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin, "last login should be recorded")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "nami", "tangerine-map", "")
	require.NoError(t, err)

	tests := []struct {
		name, user, pass string
	}{
		{"wrong password", "nami", "wrong-password"},
		{"unknown user", "usopp", "tangerine-map"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.user, tc.pass)
			assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials), "err = %v", err)
		})
	}
}

func TestLogin_Disabled(t *testing.T) {
	svc, _, db := newServiceDB(t)
	_, err := svc.Register(context.Background(), "crocodile", "sand-sand-fruit", "")
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE users SET disabled = 1 WHERE username = 'crocodile'`)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "crocodile", "sand-sand-fruit")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "  ", "long-enough", "")
	assert.True(t, apperr.HasCode(err, "INVALID_USERNAME"), "err = %v", err)

	_, err = svc.Register(ctx, "zoro", "short", "")
	assert.True(t, apperr.HasCode(err, "INVALID_PASSWORD"), "err = %v", err)

	_, err = svc.Register(ctx, "zoro", "three-swords", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "zoro", "three-swords", "")
	assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateName), "err = %v", err)
}

func TestVerify_Rejects(t *testing.T) {
	svc, _ := newService(t)
	u := &services.User{ID: "u-1", Username: "robin", Role: "admin"}

	expired := *svc
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(u)
	require.NoError(t, err)

	other, err := NewService(nil, Config{Secret: "another-secret"}, zap.NewNop())
	require.NoError(t, err)
	foreign, err := other.Issue(u)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      old.Token,
		"wrong secret": foreign.Token,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
		"empty":        "",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(raw)
			assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized), "err = %v", err)
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "")
	require.NoError(t, err)
	assert.False(t, created, "no password configured")

	created, err = svc.EnsureAdmin(ctx, "admin", "going-merry")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin2", "going-merry")
	require.NoError(t, err)
	assert.False(t, created, "users already exist")

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func newRouter(t *testing.T) (*Service, http.Handler) {
	t.Helper()
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), "franky", "super-cola-power", "")
	require.NoError(t, err)
	mux := http.NewServeMux()
	NewHandler(svc, server.NewResponder(zap.NewNop(), false), zap.NewNop()).RegisterRoutes(mux)
	return svc, mux
}

func TestHandleLogin(t *testing.T) {
	_, h := newRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"ok", `{"username":"franky","password":"super-cola-power"}`, http.StatusOK, ""},
		{"bad password", `{"username":"franky","password":"nope-nope"}`, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"missing fields", `{"username":"franky"}`, http.StatusBadRequest, "INVALID_BODY"},
		{"malformed", `{`, http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body)))
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())

			var env struct {
				Success bool   `json:"success"`
				Data    Token  `json:"data"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
			assert.Equal(t, tc.wantCode, env.Error)
			if tc.wantCode == "" {
				assert.True(t, env.Success)
				assert.NotEmpty(t, env.Data.Token)
			}
		})
	}
}

func TestHandleMe(t *testing.T) {
	svc, h := newRouter(t)
	tok, err := svc.Login(context.Background(), "franky", "super-cola-power")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"UNAUTHORIZED"`)

	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+tok.Token)
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"franky"`)
}

func TestMiddleware_DisabledAfterIssue(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "kuma", "paw-paw-fruit", "")
	require.NoError(t, err)
	tok, err := svc.Login(ctx, "kuma", "paw-paw-fruit")
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(svc, server.NewResponder(zap.NewNop(), false), zap.NewNop()).RegisterRoutes(mux)
	me := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r.Header.Set("Authorization", "Bearer "+tok.Token)
		mux.ServeHTTP(w, r)
		return w
	}

	require.Equal(t, http.StatusOK, me().Code)

	require.NoError(t, users.SetDisabled(ctx, "kuma", true))
	w := me()
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "account disabled")

	require.NoError(t, users.SetDisabled(ctx, "kuma", false))
	assert.Equal(t, http.StatusOK, me().Code)
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	svc, _ := newService(t)
	tok, err := svc.Issue(&services.User{ID: "gone", Username: "ghost", Role: DefaultRole})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), tok.Token)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"bearer":    {"Bearer abc", "abc", true},
		"lowercase": {"bearer abc", "abc", true},
		"basic":     {"Basic abc", "", false},
		"no token":  {"Bearer ", "", false},
		"no header": {"", "", false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, ok := bearerToken(r)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
