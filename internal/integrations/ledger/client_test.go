package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func testPosting() Posting {
	return NewPosting(domain.LedgerEntry{
		IdempotencyKey: domain.MappingLedgerKey(42, domain.LedgerReceivable),
		Kind:           domain.LedgerReceivable,
		MappingID:      42,
		Amount:         decimal.RequireFromString("150000.00"),
		PaymentMethod:  domain.PaymentTransfer,
		Reference:      "TRX-1",
		Description:    "RECEIVABLE: Basic",
		OccurredAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})
}

func TestClient_Post(t *testing.T) {
	var (
		gotKey    string
		gotAPIKey string
		got       Posting
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		gotAPIKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second, 0, nopLogger{})
	p := testPosting()

	require.NoError(t, client.Post(context.Background(), p))
	assert.Equal(t, p.IdempotencyKey, gotKey)
	assert.Equal(t, "secret", gotAPIKey)
	assert.Equal(t, int64(42), got.MappingID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("150000")))
}

func TestClient_Post_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "duplicate is success", status: http.StatusConflict},
		{name: "server error is retryable", status: http.StatusBadGateway, wantErr: ErrUnavailable},
		{name: "throttled is retryable", status: http.StatusTooManyRequests, wantErr: ErrUnavailable},
		{name: "validation error is final", status: http.StatusUnprocessableEntity, wantErr: ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewClient(srv.URL, "", time.Second, 100, nopLogger{}).Post(context.Background(), testPosting())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Post_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, "", time.Second, 0, nopLogger{}).Post(context.Background(), testPosting())
	assert.ErrorIs(t, err, ErrUnavailable)
}
