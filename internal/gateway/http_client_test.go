package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(HTTPConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 2 * time.Second})
}

func TestHTTPClient_Fund(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/escrow/fund", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"escrow_address":"Esc1","transaction_hash":"tx1","amount":"150.00"}`))
	})

	att, err := client.Fund(context.Background(), FundRequest{
		RequestKey: "key-1",
		OrderRef:   "job:1",
		Amount:     decimal.RequireFromString("150"),
		Currency:   "USDC",
		Deadline:   time.Now().Add(time.Hour),
	})

	require.NoError(t, err)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "150.00", gotBody["amount"])
	assert.Equal(t, "Esc1", att.EscrowAddress)
	assert.Equal(t, "tx1", att.TransactionHash)
	require.True(t, att.Amount.Valid)
	assert.True(t, att.Amount.Decimal.Equal(decimal.RequireFromString("150")))
}

func TestHTTPClient_FundWithoutAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"escrow_address":"Esc1","transaction_hash":"tx1"}`))
	})

	_, err := client.Fund(context.Background(), FundRequest{RequestKey: "k", Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
}

func TestHTTPClient_RejectedRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"escrow already released"}}`))
	})

	_, err := client.Release(context.Background(), "k", "Esc1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "escrow already released")
}

func TestHTTPClient_ServerErrorIsNotRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Dispute(context.Background(), "k", "Esc1", "работа не выполнена")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestHTTPClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Release(context.Background(), "k", "Esc1")
	assert.Error(t, err)
}

func TestHTTPClient_RefundOrSplit(t *testing.T) {
	var gotBody map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/escrow/refund", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"transaction_hash":"tx-refund"}`))
	})

	att, err := client.RefundOrSplit(context.Background(), "k", "Esc1", decimal.RequireFromString("60"), decimal.RequireFromString("40"))
	require.NoError(t, err)
	assert.Equal(t, "tx-refund", att.TransactionHash)
	assert.Equal(t, "60.00", gotBody["payer_amount"])
	assert.Equal(t, "40.00", gotBody["payee_amount"])
}

func TestHTTPClient_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantState LookupState
		wantErr   bool
	}{
		{name: "unknown", status: http.StatusNotFound, wantState: LookupUnknown},
		{name: "pending", status: http.StatusOK, body: `{"status":"pending"}`, wantState: LookupPending},
		{name: "failed", status: http.StatusOK, body: `{"status":"failed","reason":"insufficient funds"}`, wantState: LookupFailed},
		{
			name:      "confirmed",
			status:    http.StatusOK,
			body:      `{"status":"confirmed","result":{"escrow_address":"Esc1","transaction_hash":"tx1","amount":"10.00"}}`,
			wantState: LookupConfirmed,
		},
		{name: "garbage status", status: http.StatusOK, body: `{"status":"weird"}`, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/requests/key-1", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res, err := client.Lookup(context.Background(), "key-1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, res.State)
			if tt.wantState == LookupConfirmed {
				require.NotNil(t, res.Attestation)
				assert.Equal(t, "tx1", res.Attestation.TransactionHash)
			}
		})
	}
}

func TestRequestKey(t *testing.T) {
	id := uuid.New()

	k1 := RequestKey(id, "PENDING", "ESCROW")
	k2 := RequestKey(id, "PENDING", "ESCROW")
	k3 := RequestKey(id, "ESCROW", "RELEASED")
	k4 := RequestKey(id, "DISPUTED", "REFUNDED", "60.00", "40.00")
	k5 := RequestKey(id, "DISPUTED", "REFUNDED", "100.00", "0.00")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k4, k5)
	assert.Len(t, k1, 64)
	assert.NotEqual(t, k1, RetryKey(k1))
	assert.Equal(t, RetryKey(k1), RetryKey(k1))
}

func TestOrderRef(t *testing.T) {
	ref, err := OrderRef("job", uuid.New())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ref), MaxOrderRefLength)

	_, err = OrderRef("a-very-long-order-kind-that-does-not-fit-the-program", uuid.New())
	assert.Error(t, err)
}
