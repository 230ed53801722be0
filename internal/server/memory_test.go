// internal/server/memory_test.go
package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcp-simple-bolus/internal/config"
	"mcp-simple-bolus/internal/models"
)

func TestMemoryClientDonatesCarbEntry(t *testing.T) {
	var gotAuth, gotPath string
	memory := &memoryService{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		memory.ServeHTTP(w, r)
	}))
	defer srv.Close()

	client := NewMemoryClient(config.MemoryConfig{ProxyURL: srv.URL, APIKey: "k"})
	at := time.Date(2026, 2, 3, 7, 45, 0, 0, time.UTC)
	err := client.DonateCarbEntry(context.Background(), models.CarbEntry{
		Date: at, StartDate: at, Quantity: models.NewQuantity(25, models.Gram),
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "/memory", gotPath)
	require.Equal(t, 1, memory.count())
	params := memory.requests[0]["params"].(map[string]interface{})
	assert.Equal(t, "create_entities", params["name"])
}

func TestMemoryClientReportsFailures(t *testing.T) {
	memory := &memoryService{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(memory)
	defer srv.Close()

	client := NewMemoryClient(config.MemoryConfig{ProxyURL: srv.URL})
	err := client.DonateCarbEntry(context.Background(), models.CarbEntry{Quantity: models.NewQuantity(10, models.Gram)})
	assert.ErrorContains(t, err, "status 503")

	rpcErr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"no such tool"}}`))
	}))
	defer rpcErr.Close()

	client = NewMemoryClient(config.MemoryConfig{ProxyURL: rpcErr.URL})
	err = client.DonateCarbEntry(context.Background(), models.CarbEntry{Quantity: models.NewQuantity(10, models.Gram)})
	assert.ErrorContains(t, err, "no such tool")
}

func TestPasscodeAuthenticator(t *testing.T) {
	auth := NewPasscodeAuthenticator("2468", zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, auth.Authenticate(WithPasscode(ctx, "2468"), "Authenticate to Bolus 1 Units"))
	assert.ErrorIs(t, auth.Authenticate(WithPasscode(ctx, "1111"), "m"), ErrAuthenticationFailed)
	assert.ErrorIs(t, auth.Authenticate(ctx, "m"), ErrAuthenticationFailed)

	cancelled, cancel := context.WithCancel(WithPasscode(ctx, "2468"))
	cancel()
	assert.ErrorIs(t, auth.Authenticate(cancelled, "m"), context.Canceled)

	open := NewPasscodeAuthenticator("", zap.NewNop())
	assert.ErrorIs(t, open.Authenticate(WithPasscode(ctx, ""), "m"), ErrAuthenticationFailed)
}
