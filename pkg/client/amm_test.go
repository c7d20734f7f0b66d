package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"mina-swap/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordedRequest captures what the mock AMM received
type recordedRequest struct {
	method      string
	path        string
	contentType string
	fields      map[string]interface{}
}

func newMockAMM(t *testing.T, status int, body string, record *recordedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if record != nil {
			record.method = r.Method
			record.path = r.URL.Path
			record.contentType = r.Header.Get("Content-Type")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &record.fields)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestClient(t *testing.T, baseURL string) *AMMClient {
	t.Helper()
	c := NewAMMClient(baseURL)
	t.Cleanup(c.CloseIdleConnections)
	return c
}

func TestAMMClient_FetchQuote_Success(t *testing.T) {
	want := types.QuoteResponse{FromAsset: "MINA", ToAsset: "cUSD", AmountIn: 10, AmountOut: 9.5, Fee: 0.05}
	body, err := json.Marshal(want)
	require.NoError(t, err)

	var rec recordedRequest
	server := newMockAMM(t, http.StatusOK, string(body), &rec)
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.FetchQuote(context.Background(), &types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 10})
	require.NoError(t, err)

	assert.Equal(t, want, *got)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/quote", rec.path)
	assert.Equal(t, "application/json", rec.contentType)
	assert.Equal(t, map[string]interface{}{
		"fromAsset": "MINA",
		"toAsset":   "cUSD",
		"amount":    10.0,
	}, rec.fields)
}

func TestAMMClient_SubmitSwap_Success(t *testing.T) {
	want := types.SwapResponse{
		TransactionID: "abc123",
		Status:        "submitted",
		SubmittedAt:   "2024-01-01T00:00:00Z",
		Message:       "Swap created",
	}
	body, err := json.Marshal(want)
	require.NoError(t, err)

	var rec recordedRequest
	server := newMockAMM(t, http.StatusOK, string(body), &rec)
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.SubmitSwap(context.Background(), &types.SwapRequest{
		QuoteRequest:  types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 2.5},
		WalletAddress: "addr_test1qz",
	})
	require.NoError(t, err)

	assert.Equal(t, want, *got)
	assert.Equal(t, "/swap", rec.path)
	assert.Equal(t, "application/json", rec.contentType)
	assert.Equal(t, map[string]interface{}{
		"fromAsset":     "MINA",
		"toAsset":       "cUSD",
		"amount":        2.5,
		"walletAddress": "addr_test1qz",
	}, rec.fields)
}

func TestAMMClient_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []string
	}{
		{"bad request with text", http.StatusBadRequest, "insufficient liquidity", []string{"400", "insufficient liquidity"}},
		{"server error empty body", http.StatusInternalServerError, "", []string{"500"}},
		{"not modified", http.StatusNotModified, "", []string{"304"}},
	}

	calls := map[string]func(c *AMMClient) error{
		"FetchQuote": func(c *AMMClient) error {
			_, err := c.FetchQuote(context.Background(), &types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 1})
			return err
		},
		"SubmitSwap": func(c *AMMClient) error {
			_, err := c.SubmitSwap(context.Background(), &types.SwapRequest{
				QuoteRequest:  types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 1},
				WalletAddress: "addr",
			})
			return err
		},
	}

	for _, tt := range tests {
		for op, call := range calls {
			t.Run(fmt.Sprintf("%s/%s", op, tt.name), func(t *testing.T) {
				server := newMockAMM(t, tt.status, tt.body, nil)
				defer server.Close()

				err := call(newTestClient(t, server.URL))
				require.Error(t, err)
				for _, fragment := range tt.want {
					assert.Contains(t, err.Error(), fragment)
				}

				var reqErr *RequestError
				require.True(t, errors.As(err, &reqErr))
				assert.Equal(t, tt.status, reqErr.StatusCode)
				assert.Equal(t, tt.body, reqErr.Body)
			})
		}
	}
}

func TestAMMClient_NetworkErrorIsUnmodified(t *testing.T) {
	server := newMockAMM(t, http.StatusOK, "{}", nil)
	baseURL := server.URL
	server.Close()

	c := newTestClient(t, baseURL)
	_, err := c.FetchQuote(context.Background(), &types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 1})
	require.Error(t, err)

	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr))
	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr))
}

func TestAMMClient_MalformedSuccessBody(t *testing.T) {
	server := newMockAMM(t, http.StatusOK, "not json", nil)
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchQuote(context.Background(), &types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 1})
	require.Error(t, err)

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
}

func TestAMMClient_TrailingGarbageAfterSuccessBody(t *testing.T) {
	server := newMockAMM(t, http.StatusOK, `{"transactionId":"tx-1","status":"ok"} <html>oops</html>`, nil)
	defer server.Close()

	got, err := newTestClient(t, server.URL).SubmitSwap(context.Background(), &types.SwapRequest{WalletAddress: "addr"})
	assert.Nil(t, got)

	var syntaxErr *json.SyntaxError
	require.True(t, errors.As(err, &syntaxErr), "got %v", err)
}

func TestAMMClient_MismatchedShapeIsTrusted(t *testing.T) {
	server := newMockAMM(t, http.StatusOK, `{"transactionId":"tx-1","unexpected":true}`, nil)
	defer server.Close()

	got, err := newTestClient(t, server.URL).SubmitSwap(context.Background(), &types.SwapRequest{WalletAddress: "addr"})
	require.NoError(t, err)
	assert.Equal(t, types.SwapResponse{TransactionID: "tx-1"}, *got)
}

func TestAMMClient_CancelledContext(t *testing.T) {
	server := newMockAMM(t, http.StatusOK, "{}", nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, server.URL).FetchQuote(ctx, &types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAMMClient_TrailingSlashBaseURL(t *testing.T) {
	var rec recordedRequest
	server := newMockAMM(t, http.StatusOK, `{"fromAsset":"MINA"}`, &rec)
	defer server.Close()

	c := newTestClient(t, server.URL+"/")
	assert.Equal(t, server.URL, c.BaseURL())

	_, err := c.FetchQuote(context.Background(), &types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, "/quote", rec.path)
}

func TestAMMClient_ConcurrentCallsDoNotMix(t *testing.T) {
	quoteServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.QuoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(types.QuoteResponse{
			FromAsset: req.FromAsset,
			ToAsset:   req.ToAsset,
			AmountIn:  req.Amount,
			AmountOut: req.Amount * 2,
		})
	}))
	defer quoteServer.Close()

	swapServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.SwapRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(types.SwapResponse{
			TransactionID: "tx-" + req.WalletAddress,
			Status:        "submitted",
		})
	}))
	defer swapServer.Close()

	quoter := newTestClient(t, quoteServer.URL)
	swapper := newTestClient(t, swapServer.URL)

	const calls = 20
	quotes := make([]*types.QuoteResponse, calls)
	swaps := make([]*types.SwapResponse, calls)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < calls; i++ {
		i := i
		g.Go(func() error {
			q, err := quoter.FetchQuote(ctx, &types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: float64(i + 1)})
			quotes[i] = q
			return err
		})
		g.Go(func() error {
			s, err := swapper.SubmitSwap(ctx, &types.SwapRequest{
				QuoteRequest:  types.QuoteRequest{FromAsset: "MINA", ToAsset: "cUSD", Amount: 1},
				WalletAddress: fmt.Sprintf("wallet-%d", i),
			})
			swaps[i] = s
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < calls; i++ {
		assert.Equal(t, float64(i+1), quotes[i].AmountIn)
		assert.Equal(t, float64(2*(i+1)), quotes[i].AmountOut)
		assert.Equal(t, fmt.Sprintf("tx-wallet-%d", i), swaps[i].TransactionID)
	}
}
