package chart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLEncodesPieConfig(t *testing.T) {
	r := New(time.Second)
	raw, err := r.URL([]string{"makan", "transport"}, []int64{50000, 20000}, "Pengeluaran 05-2024")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "png", u.Query().Get("format"))

	var cfg pieConfig
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("c")), &cfg))
	assert.Equal(t, "pie", cfg.Type)
	assert.Equal(t, []string{"makan", "transport"}, cfg.Data.Labels)
	assert.Equal(t, []int64{50000, 20000}, cfg.Data.Datasets[0].Data)
	assert.Equal(t, "Pengeluaran 05-2024", cfg.Options.Title.Text)

	_, err = r.URL([]string{"a"}, nil, "")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\x89PNG fake"))
	}))
	defer srv.Close()

	png, err := New(time.Second).WithBaseURL(srv.URL).Render(context.Background(), []string{"a"}, []int64{1}, "t")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG fake"), png)
}
