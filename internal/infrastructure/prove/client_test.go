package prove

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/payfone/prefill-verify/internal/config"
	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(&config.Config{
		ProveBaseURL:  srv.URL,
		ProveClientID: "client-1",
		ProveUsername: "admin",
		ProvePassword: "secret",
		ProveTimeout:  5 * time.Second,
	})
	return c, srv
}

func tokenHandler(tokenCalls *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*tokenCalls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-123",
			"expires_in":   3600,
		})
	}
}

func TestGetInstantLinkResult(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(&tokenCalls))
	mux.HandleFunc("/fortified/2015/06/01/instantLinkResult", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "vfp-1", body["VerificationFingerprint"])
		_ = json.NewEncoder(w).Encode(InstantLinkResult{LinkClicked: true, PhoneMatch: "true"})
	})
	c, _ := newTestClient(t, mux)

	res, err := c.GetInstantLinkResult(context.Background(), "vfp-1")
	require.NoError(t, err)
	assert.True(t, res.LinkClicked)
	assert.Equal(t, "true", res.PhoneMatch)
}

func TestAdminToken_Cached(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(&tokenCalls))
	mux.HandleFunc("/trust/v2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(TrustResult{TrustScore: 900})
	})
	c, _ := newTestClient(t, mux)

	for i := 0; i < 3; i++ {
		res, err := c.TrustScore(context.Background(), "+12065550100", "127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, 900, res.TrustScore)
	}
	assert.Equal(t, 1, tokenCalls, "token should be fetched once and cached")
}

func TestPost_Non2xxIsProviderError(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(&tokenCalls))
	mux.HandleFunc("/identity/v2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.Identity(context.Background(), "+12065550100", "1990-01-01", "1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func TestPost_TokenFailureIsProviderError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.SendInstantLink(context.Background(), "+12065550100", "127.0.0.1", "http://localhost/verify")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))
}
