package explorer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voteScope/internal/iface"
	"voteScope/internal/retry"
)

var _ iface.Source = (*Client)(nil)

const (
	proxyAddr = "0x40907540d8a6c65c637785e8f8b742ae6b0b9968"
	implAddr  = "0x3a93c17fc82cc33420d1809dda9fb715cc89dd37"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "key",
		Retry:   retry.Policy{MaxRetries: 2, Backoff: time.Millisecond},
	}, zap.NewNop())
}

func TestProxyResolutionThroughLoader(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("apikey"))
		assert.Equal(t, "1", q.Get("chainid"))
		switch {
		case q.Get("action") == "getsourcecode" && q.Get("address") == proxyAddr:
			w.Write([]byte(`{"status":"1","message":"OK","result":[{"ContractName":"Proxy","Proxy":"1","Implementation":"0x3A93C17FC82CC33420d1809dDA9Fb715cc89dd37"}]}`))
		case q.Get("action") == "getabi" && q.Get("address") == implAddr:
			w.Write([]byte(`{"status":"1","message":"OK","result":"[{\"type\":\"function\",\"name\":\"execute\",\"inputs\":[{\"name\":\"_target\",\"type\":\"address\"},{\"name\":\"_ethValue\",\"type\":\"uint256\"},{\"name\":\"_data\",\"type\":\"bytes\"}],\"outputs\":[]}]"}`))
		default:
			t.Errorf("unexpected request %s", r.URL.RawQuery)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	loader := iface.NewLoader(client, nil, nil)
	got, err := loader.GetContractInterface(context.Background(), common.HexToAddress(proxyAddr))
	require.NoError(t, err)
	require.NotNil(t, got.Implementation)
	assert.Equal(t, common.HexToAddress(implAddr), *got.Implementation)
	_, ok := got.Function("execute")
	assert.True(t, ok)
}

func TestNotVerifiedIsPermanent(t *testing.T) {
	var calls int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Contract source code not verified"}`))
	})

	_, err := client.ABI(context.Background(), implAddr)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Contract source code not verified", apiErr.Result)
	assert.False(t, apiErr.RateLimited())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRateLimitIsRetried(t *testing.T) {
	var calls int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`))
			return
		}
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"Implementation":""}]}`))
	})

	impl, err := client.Implementation(context.Background(), proxyAddr)
	require.NoError(t, err)
	assert.Empty(t, impl)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestServerErrorsSurfaceAsUnavailable(t *testing.T) {
	var calls int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	})

	loader := iface.NewLoader(client, nil, nil)
	_, err := loader.GetContractInterface(context.Background(), common.HexToAddress(implAddr))
	assert.ErrorIs(t, err, iface.ErrInterfaceUnavailable)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInvalidABIPayload(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":"not json"}`))
	})
	_, err := client.ABI(context.Background(), implAddr)
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}
