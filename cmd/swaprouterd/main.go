package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"swaprouter/config"
	"swaprouter/core/events"
	"swaprouter/native/router"
	"swaprouter/observability"
	"swaprouter/observability/logging"
	"swaprouter/rpc"
	"swaprouter/storage"
	"swaprouter/venues/devnet"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SWAPROUTER_ENV"))
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("swaprouterd: load config: %v", err)
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("swaprouterd", env)

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("swaprouterd: open storage: %v", err)
	}
	defer store.Close()

	ledger, oracle, venueSet, err := buildDevnetBackend(cfg)
	if err != nil {
		log.Fatalf("swaprouterd: seed devnet backend: %v", err)
	}

	authority := router.NewAuthority(cfg.Owner.Bytes())
	for _, operator := range cfg.Operators {
		if err := authority.AddOperator(operator.Bytes()); err != nil {
			log.Fatalf("swaprouterd: add operator %x: %v", operator.Bytes(), err)
		}
	}

	engine := router.NewEngine(cfg.Custody.Bytes())
	engine.SetState(ledger)
	engine.SetAuthority(authority)
	engine.SetOracle(oracle)
	engine.SetFeesCollector(cfg.FeesCollector.Bytes())
	engine.SetVenues(venueSet)
	engine.SetEmitter(events.NewMultiEmitter(
		&logEmitter{logger: logger},
		observability.Router(),
		storage.NewRecorder(store, func(err error) {
			logger.Error("persist swap outcome", "error", err)
		}),
	))

	assets := make([][20]byte, 0, len(cfg.Assets))
	feeds := make([][32]byte, 0, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		assets = append(assets, asset.Address.Bytes())
		feeds = append(feeds, asset.Feed.Bytes())
	}
	if len(assets) > 0 {
		if err := engine.RegisterAssets(cfg.Owner.Bytes(), assets, feeds); err != nil {
			log.Fatalf("swaprouterd: register assets: %v", err)
		}
	}
	policy, err := cfg.FeePolicy.Policy()
	if err != nil {
		log.Fatalf("swaprouterd: fee policy: %v", err)
	}
	if err := engine.SetFeePolicy(cfg.Owner.Bytes(), policy); err != nil {
		log.Fatalf("swaprouterd: set fee policy: %v", err)
	}

	authenticator, err := rpc.NewAuthenticator(cfg.APIToken)
	if err != nil {
		log.Fatalf("swaprouterd: configure auth: %v", err)
	}
	operator := cfg.Owner.Bytes()
	if len(cfg.Operators) > 0 {
		operator = cfg.Operators[0].Bytes()
	}
	server, err := rpc.New(rpc.Config{
		ListenAddress: cfg.ListenAddress,
		Owner:         cfg.Owner.Bytes(),
		Operator:      operator,
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
	}, engine, store, authenticator, logger)
	if err != nil {
		log.Fatalf("swaprouterd: configure server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting swap router", "env", env, "listen", cfg.ListenAddress)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("swaprouterd: server: %v", err)
	}
	logger.Info("shutdown complete")
}

// buildDevnetBackend seeds the in-memory asset ledger, oracle and venues from
// configuration so the daemon runs self-contained.
func buildDevnetBackend(cfg config.Config) (*devnet.Ledger, *devnet.StaticOracle, router.VenueSet, error) {
	ledger := devnet.NewLedger()
	oracle := devnet.NewStaticOracle()

	for _, asset := range cfg.Assets {
		if err := ledger.CreateAsset(asset.Address.Bytes(), asset.Decimals); err != nil {
			return nil, nil, router.VenueSet{}, err
		}
		if strings.TrimSpace(asset.PriceUSD) != "" {
			price, ok := new(big.Int).SetString(strings.TrimSpace(asset.PriceUSD), 10)
			if !ok {
				return nil, nil, router.VenueSet{}, fmt.Errorf("invalid oracle price %q", asset.PriceUSD)
			}
			oracle.SetPrice(asset.Feed.Bytes(), price, asset.PriceDecimals)
		}
	}

	for _, balance := range cfg.Devnet.Balances {
		amount, ok := new(big.Int).SetString(strings.TrimSpace(balance.Amount), 10)
		if !ok {
			return nil, nil, router.VenueSet{}, fmt.Errorf("invalid balance amount %q", balance.Amount)
		}
		if err := ledger.Mint(balance.Asset.Bytes(), balance.Account.Bytes(), amount); err != nil {
			return nil, nil, router.VenueSet{}, err
		}
		// Devnet accounts pre-approve custody so swap submissions work
		// without a separate approval step.
		asset, err := ledger.Asset(balance.Asset.Bytes())
		if err != nil {
			return nil, nil, router.VenueSet{}, err
		}
		if err := asset.Approve(balance.Account.Bytes(), cfg.Custody.Bytes(), amount); err != nil {
			return nil, nil, router.VenueSet{}, err
		}
	}

	rates := devnet.NewRateTable()
	for _, rate := range cfg.Devnet.Rates {
		rates.SetRate(rate.AssetIn.Bytes(), rate.AssetOut.Bytes(), rate.Numerator, rate.Denominator)
	}

	aggregated := devnet.NewAggregatedVenue(ledger, rates, cfg.Venues.Aggregated.Bytes())
	split := devnet.NewSplitVenue(ledger, rates, cfg.Venues.SplitRoute.Bytes())
	callback := devnet.NewCallbackVenue(ledger, rates, cfg.Venues.Callback.Bytes(), cfg.Custody.Bytes())

	return ledger, oracle, router.VenueSet{
		Aggregated:        aggregated,
		AggregatedAccount: aggregated.Account(),
		Split:             split,
		SplitAccount:      split.Account(),
		Callback:          callback,
		CallbackAccount:   callback.Account(),
	}, nil
}

// logEmitter mirrors every engine event into the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) Emit(ev events.Event) {
	if l == nil || l.logger == nil || ev == nil {
		return
	}
	attrs := ev.Attributes()
	args := make([]any, 0, len(attrs)*2)
	for key, value := range attrs {
		args = append(args, key, value)
	}
	l.logger.Info(ev.EventType(), args...)
}
