package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewaySenderPostsPayload(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewGatewaySender(srv.URL, "tok", nil)
	require.NotNil(t, s)

	err := s.Send(context.Background(), "5511999990000", "olá")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, map[string]string{"contact_id": "5511999990000", "text": "olá"}, gotBody)
}

func TestGatewaySenderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewGatewaySender(srv.URL, "", nil)
	err := s.Send(context.Background(), "c1", "oi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	assert.Error(t, s.Send(context.Background(), "", "oi"))
	assert.Error(t, s.Send(context.Background(), "c1", "  "))
}

func TestNewGatewaySenderRequiresURL(t *testing.T) {
	assert.Nil(t, NewGatewaySender("  ", "tok", nil))
}
