package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newTestClient(url string, retries int) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewClient(ClientConfig{
		BaseURL:      url,
		Timeout:      time.Second,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	})
}

func TestGetTokenAccountBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getTokenAccountBalance", req.Method)
		require.Len(t, req.Params, 2)
		assert.JSONEq(t, `"acct"`, string(req.Params[0]))
		assert.JSONEq(t, `{"commitment":"confirmed"}`, string(req.Params[1]))

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":9},"value":{"amount":"1798200000","decimals":6,"uiAmountString":"1798.2"}}}`))
	}))
	defer srv.Close()

	amount, err := newTestClient(srv.URL, 0).GetTokenAccountBalance(context.Background(), "acct", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_798_200_000), amount)
}

func TestGetTokenAccountBalance_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param: could not find account"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).GetTokenAccountBalance(context.Background(), "acct", "confirmed")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetParsedTokenAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if string(req.Params[0]) == `"missing"` {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","data":{"program":"spl-token","parsed":{"type":"account","info":{"mint":"m","owner":"o","state":"initialized","tokenAmount":{"amount":"50","decimals":6},"delegate":"d","delegatedAmount":{"amount":"20","decimals":6}}}}}}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	info, err := c.GetParsedTokenAccount(context.Background(), "acct", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, "d", info.Delegate)
	require.NotNil(t, info.DelegatedAmount)
	assert.Equal(t, "20", info.DelegatedAmount.Amount)
	assert.Equal(t, "50", info.TokenAmount.Amount)

	_, err = c.GetParsedTokenAccount(context.Background(), "missing", "confirmed")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCall_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"value":{"amount":"7"}}}`))
	}))
	defer srv.Close()

	amount, err := newTestClient(srv.URL, 3).GetTokenAccountBalance(context.Background(), "acct", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), amount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(srv.URL, 2).Call(context.Background(), "getSlot", nil, &out)
	assert.ErrorContains(t, err, "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(srv.URL, 3).Call(context.Background(), "getSlot", nil, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_RequestIDsIncrease(t *testing.T) {
	var ids []uint64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID uint64 `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ids = append(ids, req.ID)
		_, _ = w.Write([]byte(`{"result":1}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	var out map[string]any
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Call(context.Background(), "getSlot", nil, &out))
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

func TestCall_LimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":1}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second, RequestsPerSecond: 0.001})
	var out map[string]any
	require.NoError(t, c.Call(context.Background(), "getSlot", nil, &out))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Call(ctx, "getSlot", nil, &out))
}
