package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGatewayCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key-1", user)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 100000, body["amount"])
		require.Equal(t, "INR", body["currency"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Order{ID: "order-1", Amount: 100000, Currency: "INR", Status: "created"})
	}))
	defer server.Close()

	gw := NewGateway(Config{BaseURL: server.URL, KeyID: "key-1", KeySecret: "secret", Timeout: time.Second})
	order, err := gw.CreateOrder(context.Background(), 1000, "sub-1")
	require.NoError(t, err)
	require.Equal(t, "order-1", order.ID)
}

func TestGatewayVerifySignature(t *testing.T) {
	gw := NewGateway(Config{KeySecret: "secret"})

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("order-1|pay-1"))
	valid := hex.EncodeToString(mac.Sum(nil))

	require.True(t, gw.VerifySignature("order-1", "pay-1", valid))
	require.False(t, gw.VerifySignature("order-1", "pay-1", "bogus"))
	require.False(t, gw.VerifySignature("", "pay-1", valid))
}
