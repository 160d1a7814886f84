package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/utm-tracker/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityClient_EmailByID(t *testing.T) {
	known := uuid.New()
	noEmail := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/admin/users/" + known.String():
			_, _ = w.Write([]byte(`{"id":"` + known.String() + `","email":"owner@example.com"}`))
		case "/auth/v1/admin/users/" + noEmail.String():
			_, _ = w.Write([]byte(`{"id":"` + noEmail.String() + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewIdentityClient(&config.IdentityConfig{
		BaseURL:     srv.URL + "/",
		ServiceKey:  "service-key",
		ItemTimeout: time.Second,
	})
	ctx := context.Background()

	email, err := client.EmailByID(ctx, known)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", email)

	_, err = client.EmailByID(ctx, noEmail)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = client.EmailByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIdentityClient_NotConfigured(t *testing.T) {
	client := NewIdentityClient(&config.IdentityConfig{ItemTimeout: time.Second})
	_, err := client.EmailByID(context.Background(), uuid.New())
	assert.Error(t, err)
}
