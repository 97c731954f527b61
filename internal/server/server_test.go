package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/config"
	"caku/internal/handlers"
	"caku/internal/metrics"
	"caku/internal/models"
	"caku/internal/security"
	"caku/internal/service"
	"caku/internal/testutil"
)

const secret = "test-secret"

type apiFixture struct {
	handler http.Handler
	auth    *service.AuthService
	ledger  *service.LedgerService
	failDB  bool
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIWithSecret(t, secret)
}

func newAPIWithSecret(t *testing.T, jwtSecret string) *apiFixture {
	t.Helper()
	log := zerolog.Nop()
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	f := &apiFixture{}
	f.auth = service.NewAuthService(testutil.NewFakeTokenStore(clock), []string{"admin"}, log).WithClock(clock)
	f.ledger = service.NewLedgerService(testutil.NewFakeTransactionStore(clock), testutil.NewFakeSettingsStore(), time.UTC, log).WithClock(clock)

	set := handlers.NewHandlerSet(log, handlers.Options{
		Environment: "test",
		JWTSecret:   jwtSecret,
		Ledger:      f.ledger,
		Auth:        f.auth,
		Wishlist:    service.NewWishlistService(testutil.NewFakeWishlistStore(), nil, log),
		Checks: map[string]handlers.Checker{
			"postgres": func(context.Context) error {
				if f.failDB {
					return errors.New("connection refused")
				}
				return nil
			},
		},
	})

	registry := prometheus.NewRegistry()
	cfg := &config.AppConfig{Environment: "test"}
	f.handler = NewHTTPServer(cfg, log, set, metrics.New(registry), registry).Handler()
	return f
}

func (f *apiFixture) authorize(t *testing.T, user string) string {
	t.Helper()
	ctx := context.Background()
	tok, err := f.auth.IssueToken(ctx, 30)
	require.NoError(t, err)
	_, err = f.auth.Redeem(ctx, user, tok.Token)
	require.NoError(t, err)

	jwt, _, err := security.GenerateDashboardToken(secret, user, time.Hour)
	require.NoError(t, err)
	return jwt
}

func (f *apiFixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	f := newAPI(t)

	rec := f.get("/api/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "ok", decode(t, rec)["status"])

	f.failDB = true
	rec = f.get("/api/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec)["status"])
}

func TestDashboardRequiresValidToken(t *testing.T) {
	f := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/summary", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/summary", "garbage").Code)

	forged, _, err := security.GenerateDashboardToken("other-secret", "alice", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/summary", forged).Code)

	expired, _, err := security.GenerateDashboardToken(secret, "alice", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/summary", expired).Code)

	unredeemed, _, err := security.GenerateDashboardToken(secret, "mallory", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, f.get("/api/v1/summary", unredeemed).Code)
}

func TestEmptySecretRejectsUnsignedTokens(t *testing.T) {
	f := newAPIWithSecret(t, "")
	ctx := context.Background()
	tok, err := f.auth.IssueToken(ctx, 30)
	require.NoError(t, err)
	_, err = f.auth.Redeem(ctx, "victim", tok.Token)
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, security.DashboardClaims{
		UserID: "victim",
		Scope:  security.DashboardScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/transactions", forged).Code)
}

func TestTokenQueryParameterIsAccepted(t *testing.T) {
	f := newAPI(t)
	token := f.authorize(t, "alice")
	assert.Equal(t, http.StatusOK, f.get("/api/v1/me?token="+token, "").Code)
}

func TestLedgerEndpointsAreScopedToTheCaller(t *testing.T) {
	f := newAPI(t)
	ctx := context.Background()
	alice := f.authorize(t, "alice")
	bob := f.authorize(t, "bob")

	food := "food"
	may := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 3, 9, 0, 0, 0, time.UTC)
	for _, tx := range []models.Transaction{
		{UserID: "alice", Amount: 1000000, Description: "gaji", CreatedAt: may},
		{UserID: "alice", Amount: -150000, Description: "makan", Category: &food, CreatedAt: may},
		{UserID: "alice", Amount: -50000, Description: "lama", Category: &food, CreatedAt: april},
		{UserID: "bob", Amount: -999, Description: "rahasia", CreatedAt: may},
	} {
		_, err := f.ledger.Add(ctx, tx)
		require.NoError(t, err)
	}

	rec := f.get("/api/v1/summary?month=05-2024", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 850000, body["balance"])
	assert.EqualValues(t, 1000000, body["income"])
	assert.EqualValues(t, 150000, body["expense"])
	assert.EqualValues(t, 2, body["count"])

	rec = f.get("/api/v1/transactions", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 3)

	rec = f.get("/api/v1/transactions", bob)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "rahasia", items[0].(map[string]any)["description"])

	rec = f.get("/api/v1/categories?month=05-2024", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode(t, rec)["items"].([]any)
	require.Len(t, cats, 2)
	first := cats[0].(map[string]any)
	assert.Equal(t, "Uncategorized", first["category"])
	second := cats[1].(map[string]any)
	assert.Equal(t, "food", second["category"])
	assert.EqualValues(t, 150000, second["expense"])
}

func TestBadQueryIsRejected(t *testing.T) {
	f := newAPI(t)
	token := f.authorize(t, "alice")

	rec := f.get("/api/v1/transactions?month=2024-05", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode(t, rec)["error"])

	assert.Equal(t, http.StatusBadRequest, f.get("/api/v1/transactions?limit=0", token).Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newAPI(t)
	user := f.authorize(t, "alice")
	admin := f.authorize(t, "admin")

	assert.Equal(t, http.StatusForbidden, f.get("/api/v1/admin/tokens", user).Code)

	rec := f.get("/api/v1/admin/tokens", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tokens", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	post := httptest.NewRecorder()
	f.handler.ServeHTTP(post, req)
	require.Equal(t, http.StatusCreated, post.Code)
	assert.EqualValues(t, service.DefaultTokenDays, decode(t, post)["expiresInDays"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPI(t)
	f.get("/api/healthz", "")

	rec := f.get("/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `caku_http_requests_total{method="GET",path="/api/healthz",status="200"} 1`)
}
