package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scambait/honeynet/agent/contract"
)

func TestPostSendsReportJSON(t *testing.T) {
	t.Parallel()

	var got contract.FinalReport
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	report := contract.FinalReport{
		SessionID:              "abc",
		ScamDetected:           true,
		TotalMessagesExchanged: 7,
		AgentNotes:             "Collected 1 UPI id",
	}
	require.NoError(t, client.Post(context.Background(), report))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, report.SessionID, got.SessionID)
	assert.Equal(t, report.TotalMessagesExchanged, got.TotalMessagesExchanged)
}

func TestPostSurfacesNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)

	err = client.Post(context.Background(), contract.FinalReport{SessionID: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClientRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "://not-a-url"})
	assert.Error(t, err)
}
