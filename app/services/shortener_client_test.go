package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/utm-tracker/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTinyURL(t *testing.T, token string, h http.HandlerFunc) *TinyURLClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewTinyURLClient(&config.ShortenerConfig{
		BaseURL:  srv.URL,
		APIToken: token,
		Domain:   "tinyurl.com",
		Timeout:  2 * time.Second,
	})
}

func TestTinyURLClient_V2(t *testing.T) {
	t.Run("creates link with alias", func(t *testing.T) {
		client := newTestTinyURL(t, "secret", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/create", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			var body tinyURLCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://t.example.com/api/v1/track?id=1", body.URL)
			assert.Equal(t, "spring", body.Alias)
			assert.Equal(t, "tinyurl.com", body.Domain)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"tiny_url":"https://tinyurl.com/spring"},"code":0,"errors":[]}`))
		})

		got, err := client.Shorten(context.Background(), "https://t.example.com/api/v1/track?id=1", "spring")
		require.NoError(t, err)
		assert.Equal(t, "https://tinyurl.com/spring", got)
		assert.True(t, client.HasCredentials())
	})

	t.Run("422 with alias is a conflict", func(t *testing.T) {
		client := newTestTinyURL(t, "secret", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"data":[],"code":5,"errors":["Alias is not available."]}`))
		})
		_, err := client.Shorten(context.Background(), "https://x.example.com", "taken")
		assert.ErrorIs(t, err, ErrAliasTaken)
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		client := newTestTinyURL(t, "secret", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := client.Shorten(context.Background(), "https://x.example.com", "alias")
		assert.ErrorIs(t, err, ErrShortenerUnavailable)
		assert.NotErrorIs(t, err, ErrAliasTaken)
	})

	t.Run("malformed body is unavailable", func(t *testing.T) {
		client := newTestTinyURL(t, "secret", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := client.Shorten(context.Background(), "https://x.example.com", "")
		assert.ErrorIs(t, err, ErrShortenerUnavailable)
	})
}

func TestTinyURLClient_Legacy(t *testing.T) {
	t.Run("plain text response", func(t *testing.T) {
		client := newTestTinyURL(t, "", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api-create.php", r.URL.Path)
			assert.Equal(t, "https://x.example.com", r.URL.Query().Get("url"))
			assert.Equal(t, "", r.URL.Query().Get("alias"))
			_, _ = w.Write([]byte("https://tinyurl.com/abc123\n"))
		})
		got, err := client.Shorten(context.Background(), "https://x.example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "https://tinyurl.com/abc123", got)
		assert.False(t, client.HasCredentials())
	})

	t.Run("error body with alias is a conflict", func(t *testing.T) {
		client := newTestTinyURL(t, "", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("Error"))
		})
		_, err := client.Shorten(context.Background(), "https://x.example.com", "taken")
		assert.ErrorIs(t, err, ErrAliasTaken)
	})

	t.Run("error body without alias is unavailable", func(t *testing.T) {
		client := newTestTinyURL(t, "", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("Error"))
		})
		_, err := client.Shorten(context.Background(), "https://x.example.com", "")
		assert.ErrorIs(t, err, ErrShortenerUnavailable)
	})

	t.Run("accepted alias containing error", func(t *testing.T) {
		client := newTestTinyURL(t, "", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "error-page", r.URL.Query().Get("alias"))
			_, _ = w.Write([]byte("https://tinyurl.com/error-page"))
		})
		got, err := client.Shorten(context.Background(), "https://x.example.com", "error-page")
		require.NoError(t, err)
		assert.Equal(t, "https://tinyurl.com/error-page", got)
	})

	t.Run("non url body is malformed", func(t *testing.T) {
		client := newTestTinyURL(t, "", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		})
		_, err := client.Shorten(context.Background(), "https://x.example.com", "spring")
		assert.ErrorIs(t, err, ErrShortenerUnavailable)
		assert.NotErrorIs(t, err, ErrAliasTaken)
	})
}

func TestTinyURLClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewTinyURLClient(&config.ShortenerConfig{BaseURL: srv.URL, APIToken: "x", Timeout: time.Second})
	_, err := client.Shorten(context.Background(), "https://x.example.com", "")
	assert.ErrorIs(t, err, ErrShortenerUnavailable)
}

func TestMockURLShortener(t *testing.T) {
	m := NewMockURLShortener()
	ctx := context.Background()

	first, err := m.Shorten(ctx, "https://a.example.com", "promo")
	require.NoError(t, err)
	assert.Equal(t, "https://short.local/promo", first)

	_, err = m.Shorten(ctx, "https://b.example.com", "promo")
	assert.ErrorIs(t, err, ErrAliasTaken)

	random, err := m.Shorten(ctx, "https://b.example.com", "")
	require.NoError(t, err)
	assert.Len(t, random, len("https://short.local/")+8)
	assert.Len(t, m.Calls, 3)
}
