package devnet

import (
	"errors"
	"math/big"
	"testing"

	"swaprouter/native/router"
)

func devAddr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func devFeed(fill byte) [32]byte {
	var f [32]byte
	for i := range f {
		f[i] = fill
	}
	return f
}

type devEnv struct {
	engine *router.Engine
	ledger *Ledger

	owner       [20]byte
	operator    [20]byte
	swapper     [20]byte
	beneficiary [20]byte
	custody     [20]byte
	collector   [20]byte

	usdc [20]byte
	weth [20]byte
}

func newDevEnv(t *testing.T) *devEnv {
	t.Helper()
	env := &devEnv{
		ledger:      NewLedger(),
		owner:       devAddr(0x01),
		operator:    devAddr(0x02),
		swapper:     devAddr(0x03),
		beneficiary: devAddr(0x04),
		custody:     devAddr(0x06),
		collector:   devAddr(0x05),
		usdc:        devAddr(0xA0),
		weth:        devAddr(0xB0),
	}
	if err := env.ledger.CreateAsset(env.usdc, 6); err != nil {
		t.Fatalf("create usdc: %v", err)
	}
	if err := env.ledger.CreateAsset(env.weth, 18); err != nil {
		t.Fatalf("create weth: %v", err)
	}
	if err := env.ledger.Mint(env.usdc, env.swapper, big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	usdc, _ := env.ledger.Asset(env.usdc)
	if err := usdc.Approve(env.swapper, env.custody, big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rates := NewRateTable()
	rates.SetRate(env.usdc, env.weth, 2, 1)

	aggregated := NewAggregatedVenue(env.ledger, rates, devAddr(0xD0))
	split := NewSplitVenue(env.ledger, rates, devAddr(0xD1))
	callback := NewCallbackVenue(env.ledger, rates, devAddr(0xD2), env.custody)
	for _, reserve := range [][20]byte{aggregated.Account(), split.Account(), callback.Account()} {
		if err := env.ledger.Mint(env.weth, reserve, big.NewInt(1_000_000_000)); err != nil {
			t.Fatalf("fund venue: %v", err)
		}
	}

	oracle := NewStaticOracle()
	oracle.SetPrice(devFeed(0xA1), big.NewInt(100_000_000), 8)

	authority := router.NewAuthority(env.owner)
	if err := authority.AddOperator(env.operator); err != nil {
		t.Fatalf("add operator: %v", err)
	}

	engine := router.NewEngine(env.custody)
	engine.SetState(env.ledger)
	engine.SetAuthority(authority)
	engine.SetOracle(oracle)
	engine.SetFeesCollector(env.collector)
	engine.SetVenues(router.VenueSet{
		Aggregated:        aggregated,
		AggregatedAccount: aggregated.Account(),
		Split:             split,
		SplitAccount:      split.Account(),
		Callback:          callback,
		CallbackAccount:   callback.Account(),
	})
	if err := engine.RegisterAsset(env.owner, env.usdc, devFeed(0xA1)); err != nil {
		t.Fatalf("register usdc: %v", err)
	}
	if err := engine.RegisterAsset(env.owner, env.weth, devFeed(0xB1)); err != nil {
		t.Fatalf("register weth: %v", err)
	}
	if err := engine.SetFeePolicy(env.owner, router.FeePolicy{Kind: router.FeePolicyPercentage, Bps: 100}); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	env.engine = engine
	return env
}

func (env *devEnv) balance(t *testing.T, asset, account [20]byte) *big.Int {
	t.Helper()
	token, err := env.ledger.Asset(asset)
	if err != nil {
		t.Fatalf("resolve asset: %v", err)
	}
	bal, err := token.BalanceOf(account)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	return bal
}

func TestEndToEndAggregatedSwap(t *testing.T) {
	env := newDevEnv(t)
	outcome, err := env.engine.SwapAggregated(env.operator, router.AggregatedRouteRequest{
		Swapper:      env.swapper,
		AssetIn:      env.usdc,
		AmountIn:     big.NewInt(50_000),
		AssetOut:     env.weth,
		MinAmountOut: big.NewInt(100_000),
		Beneficiary:  env.beneficiary,
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	// 50000 at rate 2 = 100000 gross, 1% fee = 1000.
	if outcome.AmountOutNet.Cmp(big.NewInt(99_000)) != 0 {
		t.Fatalf("expected net 99000, got %s", outcome.AmountOutNet)
	}
	if outcome.Fee.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected fee 1000, got %s", outcome.Fee)
	}
	if got := env.balance(t, env.weth, env.beneficiary); got.Cmp(big.NewInt(99_000)) != 0 {
		t.Fatalf("beneficiary balance %s", got)
	}
	if got := env.balance(t, env.weth, env.collector); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("collector balance %s", got)
	}
}

func TestEndToEndSplitSwap(t *testing.T) {
	env := newDevEnv(t)
	outcome, err := env.engine.SwapSplit(env.operator, router.SplitRouteRequest{
		Swapper: env.swapper,
		Params: router.RouteParams{
			AssetIn:     env.usdc,
			AmountIn:    big.NewInt(10_000),
			AssetOut:    env.weth,
			Destination: env.custody,
		},
		Hops:        []router.SwapLeg{{Pool: devAddr(0xF0), AssetIn: env.usdc, AssetOut: env.weth}},
		Beneficiary: env.beneficiary,
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if outcome.AmountOutNet.Cmp(big.NewInt(19_800)) != 0 {
		t.Fatalf("expected net 19800, got %s", outcome.AmountOutNet)
	}
}

func TestEndToEndCallbackSwap(t *testing.T) {
	env := newDevEnv(t)
	outcome, err := env.engine.SwapCallbackManual(env.swapper, router.CallbackRequest{
		Pool:   router.PoolKey{Token0: env.usdc, Token1: env.weth, Fee: 3000},
		Amount: big.NewInt(25_000),
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if outcome.Venue != router.VenueCallback {
		t.Fatalf("unexpected venue %q", outcome.Venue)
	}
	// 25000 at rate 2 = 50000 gross, 1% fee = 500, net to the caller.
	if got := env.balance(t, env.weth, env.swapper); got.Cmp(big.NewInt(49_500)) != 0 {
		t.Fatalf("swapper output balance %s", got)
	}
	if got := env.balance(t, env.usdc, devAddr(0xD2)); got.Cmp(big.NewInt(25_000)) != 0 {
		t.Fatalf("core did not receive sold leg: %s", got)
	}
}

func TestEndToEndSlippageRollback(t *testing.T) {
	env := newDevEnv(t)
	before := env.balance(t, env.usdc, env.swapper)
	_, err := env.engine.SwapAggregated(env.operator, router.AggregatedRouteRequest{
		Swapper:      env.swapper,
		AssetIn:      env.usdc,
		AmountIn:     big.NewInt(50_000),
		AssetOut:     env.weth,
		MinAmountOut: big.NewInt(200_000),
		Beneficiary:  env.beneficiary,
	})
	if !errors.Is(err, router.ErrSwapFailed) {
		t.Fatalf("expected ErrSwapFailed, got %v", err)
	}
	if got := env.balance(t, env.usdc, env.swapper); got.Cmp(before) != 0 {
		t.Fatalf("swapper balance changed after failed swap")
	}
	if got := env.balance(t, env.usdc, env.custody); got.Sign() != 0 {
		t.Fatalf("custody retained input after rollback: %s", got)
	}
}

func TestEndToEndExhaustedPoolRollsBack(t *testing.T) {
	env := newDevEnv(t)
	before := env.balance(t, env.usdc, env.swapper)
	// Rate x2 against a reserve of 1e9 output units.
	_, err := env.engine.SwapCallbackManual(env.swapper, router.CallbackRequest{
		Pool:   router.PoolKey{Token0: env.usdc, Token1: env.weth, Fee: 3000},
		Amount: big.NewInt(900_000_000),
	})
	if !errors.Is(err, router.ErrSwapFailed) {
		t.Fatalf("expected ErrSwapFailed, got %v", err)
	}
	if got := env.balance(t, env.usdc, env.swapper); got.Cmp(before) != 0 {
		t.Fatalf("swapper balance changed after failed swap")
	}
}

func TestEndToEndValuation(t *testing.T) {
	env := newDevEnv(t)
	value, err := env.engine.ValueInUSD(env.usdc, big.NewInt(1234))
	if err != nil {
		t.Fatalf("value in usd: %v", err)
	}
	// Price 1.00 USD at 8 decimals.
	if value.Cmp(big.NewInt(1234)) != 0 {
		t.Fatalf("expected 1234, got %s", value)
	}
}
