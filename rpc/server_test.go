package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"swaprouter/core/events"
	"swaprouter/native/router"
	"swaprouter/storage"
	"swaprouter/venues/devnet"
)

const testToken = "test-token"

func rpcAddr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func rpcFeed(fill byte) [32]byte {
	var f [32]byte
	for i := range f {
		f[i] = fill
	}
	return f
}

func addrHex(fill byte) string {
	a := rpcAddr(fill)
	return fmt.Sprintf("0x%x", a[:])
}

type rpcEnv struct {
	server *Server
	store  *storage.Store

	usdc [20]byte
	weth [20]byte
}

func newRPCEnv(t *testing.T, limit RateLimit) *rpcEnv {
	t.Helper()
	env := &rpcEnv{usdc: rpcAddr(0xA0), weth: rpcAddr(0xB0)}
	owner := rpcAddr(0x01)
	operator := rpcAddr(0x02)
	swapper := rpcAddr(0x03)
	custody := rpcAddr(0x06)

	ledger := devnet.NewLedger()
	require.NoError(t, ledger.CreateAsset(env.usdc, 6))
	require.NoError(t, ledger.CreateAsset(env.weth, 18))
	require.NoError(t, ledger.Mint(env.usdc, swapper, big.NewInt(1_000_000_000)))
	usdc, err := ledger.Asset(env.usdc)
	require.NoError(t, err)
	require.NoError(t, usdc.Approve(swapper, custody, big.NewInt(1_000_000_000)))

	rates := devnet.NewRateTable()
	rates.SetRate(env.usdc, env.weth, 2, 1)
	aggregated := devnet.NewAggregatedVenue(ledger, rates, rpcAddr(0xD0))
	split := devnet.NewSplitVenue(ledger, rates, rpcAddr(0xD1))
	callback := devnet.NewCallbackVenue(ledger, rates, rpcAddr(0xD2), custody)
	for _, reserve := range [][20]byte{aggregated.Account(), split.Account(), callback.Account()} {
		require.NoError(t, ledger.Mint(env.weth, reserve, big.NewInt(1_000_000_000)))
	}

	oracle := devnet.NewStaticOracle()
	oracle.SetPrice(rpcFeed(0xA1), big.NewInt(100_000_000), 8)

	authority := router.NewAuthority(owner)
	require.NoError(t, authority.AddOperator(operator))

	store, err := storage.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	env.store = store

	engine := router.NewEngine(custody)
	engine.SetState(ledger)
	engine.SetAuthority(authority)
	engine.SetOracle(oracle)
	engine.SetFeesCollector(rpcAddr(0x05))
	engine.SetVenues(router.VenueSet{
		Aggregated:        aggregated,
		AggregatedAccount: aggregated.Account(),
		Split:             split,
		SplitAccount:      split.Account(),
		Callback:          callback,
		CallbackAccount:   callback.Account(),
	})
	engine.SetEmitter(events.NewMultiEmitter(storage.NewRecorder(store, nil)))
	require.NoError(t, engine.RegisterAsset(owner, env.usdc, rpcFeed(0xA1)))
	require.NoError(t, engine.RegisterAsset(owner, env.weth, rpcFeed(0xB1)))
	require.NoError(t, engine.SetFeePolicy(owner, router.FeePolicy{Kind: router.FeePolicyPercentage, Bps: 100}))

	auth, err := NewAuthenticator(testToken)
	require.NoError(t, err)
	server, err := New(Config{
		ListenAddress: "127.0.0.1:0",
		Owner:         owner,
		Operator:      operator,
		RateLimit:     limit,
	}, engine, store, auth, slog.Default())
	require.NoError(t, err)
	env.server = server
	return env
}

func (env *rpcEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (env *rpcEnv) aggregatedSwapBody(amount, minOut string) map[string]any {
	return map[string]any{
		"swapper":        addrHex(0x03),
		"asset_in":       addrHex(0xA0),
		"amount_in":      amount,
		"asset_out":      addrHex(0xB0),
		"min_amount_out": minOut,
		"beneficiary":    addrHex(0x04),
	}
}

func TestHealthUnauthenticated(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSwapRequiresToken(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})

	rec := env.do(t, http.MethodPost, "/v1/swaps/aggregated", "", env.aggregatedSwapBody("1000", "2000"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/swaps/aggregated", "wrong", env.aggregatedSwapBody("1000", "2000"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAggregatedSwapEndpoint(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodPost, "/v1/swaps/aggregated", testToken, env.aggregatedSwapBody("50000", "100000"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp outcomePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, router.VenueAggregated, resp.Venue)
	require.Equal(t, "99000", resp.AmountOutNet)
	require.NotEmpty(t, resp.RequestID)
}

func TestSlippageFailureStatus(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodPost, "/v1/swaps/aggregated", testToken, env.aggregatedSwapBody("50000", "200000"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestManualCallbackEndpoint(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodPost, "/v1/swaps/callback/manual", testToken, map[string]any{
		"token0":   addrHex(0xA0),
		"token1":   addrHex(0xB0),
		"fee_tier": 3000,
		"amount":   "25000",
		"swapper":  addrHex(0x03),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp outcomePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, router.VenueCallback, resp.Venue)
	require.Equal(t, "49500", resp.AmountOutNet)
}

func TestValuationEndpoint(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodGet, "/v1/assets/"+addrHex(0xA0)+"/value?amount=1234", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "1234", resp["value"])
}

func TestValuationUnsupportedAsset(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodGet, "/v1/assets/"+addrHex(0xEE)+"/value?amount=10", testToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPauseBlocksSwapEndpoint(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodPut, "/admin/pause", testToken, map[string]any{"paused": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/swaps/aggregated", testToken, env.aggregatedSwapBody("1000", "2000"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPut, "/admin/pause", testToken, map[string]any{"paused": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/swaps/aggregated", testToken, env.aggregatedSwapBody("1000", "2000"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAssetLifecycle(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	newAsset := addrHex(0xC0)

	rec := env.do(t, http.MethodPost, "/admin/assets", testToken, map[string]any{
		"assets": []map[string]string{{
			"address": newAsset,
			"feed":    "0x" + fmt.Sprintf("%064x", 0xC1),
		}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/assets/"+newAsset, testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, true, status["supported"])

	rec = env.do(t, http.MethodDelete, "/admin/assets/"+newAsset, testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/admin/assets/"+newAsset, testToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeePolicyCeilingStatus(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodPut, "/admin/fee-policy", testToken, map[string]any{
		"kind": "percentage",
		"bps":  301,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOutcomesPersisted(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodPost, "/v1/swaps/aggregated", testToken, env.aggregatedSwapBody("50000", "100000"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/outcomes", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Outcomes []struct {
			Venue        string `json:"venue"`
			AmountOutNet string `json:"amount_out_net"`
			Fee          string `json:"fee"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Outcomes, 1)
	require.Equal(t, router.VenueAggregated, resp.Outcomes[0].Venue)
	require.Equal(t, "99000", resp.Outcomes[0].AmountOutNet)
	require.Equal(t, "1000", resp.Outcomes[0].Fee)

	rec = env.do(t, http.MethodGet, "/v1/outcomes/venues", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Venues map[string]struct {
			Count         int64  `json:"count"`
			FeesCollected string `json:"fees_collected"`
		} `json:"venues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.EqualValues(t, 1, stats.Venues[router.VenueAggregated].Count)
	require.Equal(t, "1000", stats.Venues[router.VenueAggregated].FeesCollected)
}

func TestNegativeSwapAmountRejected(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	rec := env.do(t, http.MethodPost, "/v1/swaps/aggregated", testToken, env.aggregatedSwapBody("-50000", "100000"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/swaps/aggregated", testToken, env.aggregatedSwapBody("50000", "-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimiterRejects(t *testing.T) {
	env := newRPCEnv(t, RateLimit{RequestsPerMinute: 1, Burst: 1})

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
