// setup.go
package gm_client

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/tempo-gm-client/cmd/tempo-gm-client/config"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chainread"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/controller"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/ethwallet/userwallet"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/helpers"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	clienthttp "github.com/quantumauth-io/tempo-gm-client/internal/gm-client/http"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/metrics"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/snapshot"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/status"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/txlife"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

const metricsNamespace = "tempo_gm"

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type Options struct {
	// Approve confirms each local-wallet transaction; nil approves all.
	Approve wallet.ApproveFunc
}

// App holds the wired client.
type App struct {
	cfg        *config.Config
	chain      *chains.ChainService
	reader     *chainread.Reader
	aggregator *snapshot.Aggregator
	controller *controller.Controller
	reporter   *status.Reporter
	metrics    *metrics.Metrics
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{
		cfg:      cfg,
		reporter: status.NewReporter(),
		metrics:  metrics.New(metricsNamespace),
	}

	if err := app.dialChain(ctx); err != nil {
		app.Close()
		return nil, err
	}

	provider, err := app.newProvider(ctx, opts)
	if err != nil {
		app.Close()
		return nil, err
	}

	network := app.chain.Network()
	session := wallet.NewSession(provider, wallet.NewGuard(network))

	app.aggregator = snapshot.NewAggregator(app.reader, snapshot.Config{
		NativeToken:    cfg.NativeToken(),
		SecondaryToken: cfg.SecondaryToken(),
		MessagesCount:  cfg.Timing.RecentMessages,
		Observer:       app.metrics,
	})

	store := history.NewStore()
	store.OnChange(func(r history.Record) { app.metrics.ObserveTx(r.Status) })

	app.controller = controller.New(session, app.aggregator, store, app.reporter, controller.Config{
		Receipts: app.reader,
		Tx: txlife.Config{
			Contract:       cfg.GMContract(),
			ReceiptTimeout: cfg.Timing.ReceiptTimeout,
			PollAttempts:   cfg.Timing.PostConfirmPollAttempts,
			PollInterval:   cfg.Timing.PostConfirmPollInterval,
			TxURL:          network.TxURL,
		},
	})
	app.closers = append(app.closers, app.controller.Close)
	return app, nil
}

func (a *App) dialChain(ctx context.Context) error {
	chainService, err := chains.NewChainService(ctx, chains.ChainConfig{
		Network:          a.cfg.Chain.Network,
		PreferredRPCName: a.cfg.Chain.PreferredRPC,
		DialTimeout:      a.cfg.Chain.DialTimeout,
	})
	if err != nil {
		return err
	}
	a.chain = chainService
	a.closers = append(a.closers, func() {
		if err := chainService.Close(); err != nil {
			log.Error("chain client close failed", "error", err)
		}
	})

	client, err := chainService.HTTP()
	if err != nil {
		return err
	}

	a.reader = chainread.NewReader(client, chainread.Config{
		GMContract:          a.cfg.GMContract(),
		ReceiptPollInterval: a.cfg.Timing.ReceiptPoll,
		RequestsPerSecond:   a.cfg.Reads.RequestsPerSecond,
		Burst:               a.cfg.Reads.Burst,
		Observer:            a.metrics,
	})

	a.checkDeployment(ctx)
	return nil
}

// checkDeployment only warns: reads against a missing contract surface as
// unavailable fields anyway.
func (a *App) checkDeployment(ctx context.Context) {
	gm := a.cfg.GMContract()
	ok, err := a.reader.HasCode(ctx, gm)
	switch {
	case err != nil:
		log.Warn("could not check GM contract deployment", "address", gm.Hex(), "error", err)
	case !ok:
		log.Warn("GM contract has no code on this network", "address", gm.Hex(), "network", a.chain.Network().Name)
	}
}

func (a *App) newProvider(ctx context.Context, opts Options) (wallet.Provider, error) {
	switch a.cfg.Wallet.Mode {
	case config.WalletModeRPC:
		p, err := wallet.DialRPCProvider(ctx, a.cfg.Wallet.ProviderURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		log.Info("using external wallet", "url", a.cfg.Wallet.ProviderURL)
		return p, nil

	case config.WalletModeLocal:
		store, err := userwallet.NewStore(a.cfg.Wallet.KeyFile)
		if err != nil {
			return nil, err
		}
		password, err := helpers.PasswordFromEnvOrPrompt(a.cfg.Wallet.PasswordEnv, "Wallet password: ")
		if err != nil {
			return nil, err
		}
		w, err := store.Ensure(password)
		helpers.ZeroBytes(password)
		if err != nil {
			return nil, err
		}

		var localOpts []wallet.LocalOption
		if opts.Approve != nil {
			localOpts = append(localOpts, wallet.WithApproval(opts.Approve))
		}
		p, err := wallet.NewLocalProvider(w, a.chain.Network(), localOpts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		log.Info("using local wallet", "address", w.Address().Hex(), "path", store.Path)
		return p, nil

	default:
		// no transport; Connect reports "No Wallet Found."
		return nil, nil
	}
}

func (a *App) Controller() *controller.Controller { return a.controller }

func (a *App) Reader() *chainread.Reader { return a.reader }

func (a *App) Status() *status.Reporter { return a.reporter }

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run serves the HTTP surface until ctx is done.
func Run(ctx context.Context, build BuildInfo, cfg *config.Config) error {
	log.Info("tempo-gm-client",
		"version", build.Version,
		"commit", build.Commit,
		"build_date", build.BuildDate,
	)

	app, err := New(ctx, cfg, Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	go app.aggregator.RunGasTicker(ctx, cfg.Timing.GasPriceRefresh)

	if cfg.Wallet.Mode == config.WalletModeLocal {
		if _, err := app.controller.Connect(ctx); err != nil {
			log.Warn("initial wallet connect failed", "error", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := clienthttp.NewRouter(clienthttp.NewHandler(app.controller, cfg.GMContract()), clienthttp.RouterOptions{
		AllowOrigins: cfg.ClientSettings.AllowOrigins,
		LoopbackOnly: true,
		Metrics:      app.metrics.Handler(),
	})
	return clienthttp.Serve(ctx, cfg.ListenAddr(), router)
}

// Send connects, submits one GM and waits for its lifecycle, including the
// follow-up refreshes, to finish.
func Send(ctx context.Context, cfg *config.Config, message string, opts Options) (history.Record, error) {
	app, err := New(ctx, cfg, opts)
	if err != nil {
		return history.Record{}, err
	}
	defer app.Close()

	if _, err := app.controller.Connect(ctx); err != nil {
		return history.Record{}, err
	}
	rec, err := app.controller.SendGM(ctx, message)
	if err != nil {
		return history.Record{}, err
	}
	app.controller.Wait()

	for _, r := range app.controller.Transactions() {
		if r.Hash == rec.Hash {
			return r, nil
		}
	}
	return rec, nil
}

// LoadSnapshot connects and returns the first snapshot.
func LoadSnapshot(ctx context.Context, cfg *config.Config) (snapshot.Snapshot, error) {
	app, err := New(ctx, cfg, Options{})
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	defer app.Close()

	if _, err := app.controller.Connect(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	snap, ok := app.controller.Snapshot()
	if !ok {
		return snapshot.Snapshot{}, errors.New("no snapshot published")
	}
	return snap, nil
}

type Stats struct {
	Contract common.Address      `json:"contract"`
	User     common.Address      `json:"user"`
	TotalGMs *big.Int            `json:"total_gms"`
	Stats    chainread.UserStats `json:"stats"`
	Took     time.Duration       `json:"took"`
}

// ReadStats reads totalGMs and getUserStats(user) straight from the chain,
// without a wallet.
func ReadStats(ctx context.Context, cfg *config.Config, user common.Address) (Stats, error) {
	app := &App{cfg: cfg, metrics: metrics.New(metricsNamespace)}
	defer app.Close()
	if err := app.dialChain(ctx); err != nil {
		return Stats{}, err
	}

	start := time.Now()
	total, err := app.reader.TotalGMs(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats, err := app.reader.UserStats(ctx, user)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Contract: app.reader.GMContract(),
		User:     user,
		TotalGMs: total,
		Stats:    stats,
		Took:     time.Since(start),
	}, nil
}
