package mapclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prylval/affiliates/internal/domain"
)

func TestLoad_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"_schema": 1,
			"_updated_at": "2025-01-01T00:00:00Z",
			"kindle paperwhite": {"merchant": "computersalg", "tracking_url": "https://go.x/k", "image_url": "https://i/k.jpg", "confidence": 1, "merchant_priority": 1}
		}`))
	}))
	defer server.Close()

	entries, err := NewClient(server.URL, time.Second, zerolog.Nop()).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"kindle paperwhite"}, entries.Keys())
	assert.Equal(t, "computersalg", entries["kindle paperwhite"].Merchant)
}

func TestLoad_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewClient(server.URL, time.Second, zerolog.Nop()).Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrMapUnavailable)
}

func TestLoad_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second, zerolog.Nop()).Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrMalformedMap)
}

func TestLoad_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second, zerolog.Nop()).Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrMapUnavailable)
}
