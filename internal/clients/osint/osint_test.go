package osint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/config"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg config.OSINTConfig) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.Timeout = time.Second
	return NewService(cfg, zerolog.Nop()).WithEndpoints(Endpoints{
		SerpAPI:   srv.URL + "/serp",
		Google:    srv.URL + "/google",
		NumVerify: srv.URL + "/numverify",
		Hunter:    srv.URL + "/hunter",
	})
}

func TestKind(t *testing.T) {
	assert.Equal(t, "phone", Kind("+6281234567890"))
	assert.Equal(t, "phone", Kind("081234567"))
	assert.Equal(t, "email", Kind("someone@example.com"))
	assert.Equal(t, "name", Kind("Budi Santoso"))
	assert.Equal(t, "name", Kind("12345"))
}

func TestSearchFallsBackToGoogle(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/serp":
			http.Error(w, "limit", http.StatusTooManyRequests)
		case "/google":
			assert.Equal(t, "cx-id", r.URL.Query().Get("cx"))
			_, _ = w.Write([]byte(`{"items":[{"title":"Profil Budi","link":"https://example.com/budi"}]}`))
		}
	}, config.OSINTConfig{SerpAPIKey: "s", GoogleAPIKey: "g", GoogleCX: "cx-id"})

	source, results := svc.Search(context.Background(), "Budi", 10)
	assert.Equal(t, sourceGoogle, source)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/budi", results[0].Link)
}

func TestRunPhone(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/numverify", r.URL.Path)
		assert.Equal(t, "+628123456789", r.URL.Query().Get("number"))
		_, _ = w.Write([]byte(`{"valid":true,"number":"628123456789","country_name":"Indonesia","country_code":"ID","carrier":"Telkomsel","line_type":"mobile"}`))
	}, config.OSINTConfig{NumVerifyAPIKey: "n"})

	text, err := svc.Run(context.Background(), "+628123456789")
	require.NoError(t, err)
	assert.Contains(t, text, "Indonesia (ID)")
	assert.Contains(t, text, "Carrier: Telkomsel")
	assert.Contains(t, text, "Location: -")
}

func TestRunNameWithoutResults(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, config.OSINTConfig{SerpAPIKey: "s"})

	text, err := svc.Run(context.Background(), "Nama Asing")
	require.NoError(t, err)
	assert.Contains(t, text, "Tidak ditemukan hasil publik")
}

func TestHunterCheck(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/hunter") {
		case "/domain-search":
			_, _ = w.Write([]byte(`{"data":{"emails":[{"value":"a@x.com"},{"value":"b@x.com"}]}}`))
		case "/email-verifier":
			_, _ = w.Write([]byte(`{"data":{"result":"deliverable","score":91}}`))
		case "/companies/find":
			http.Error(w, `{"errors":[{"details":"not found"}]}`, http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{"data":{}}`))
		}
	}, config.OSINTConfig{HunterAPIKey: "h"})

	text, err := svc.HunterCheck(context.Background(), HunterQuery{Domain: "x.com", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Contains(t, text, "Domain: x.com")
	assert.Contains(t, text, "domain_search: ✅ 2 email(s) found.")
	assert.Contains(t, text, "result=deliverable (score: 91)")
	assert.Contains(t, text, "companies_find: ❌")

	_, err = svc.HunterCheck(context.Background(), HunterQuery{})
	assert.Error(t, err)
}
