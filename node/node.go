package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/tendermint/ledgerd/config"
	"github.com/tendermint/ledgerd/internal/chain"
	"github.com/tendermint/ledgerd/internal/ledger"
	"github.com/tendermint/ledgerd/internal/p2p"
	"github.com/tendermint/ledgerd/internal/store"
	"github.com/tendermint/ledgerd/libs/log"
	"github.com/tendermint/ledgerd/libs/service"
)

// Node is the highest level interface to a full ledgerd node.
// It owns the gossip context and every service wired to it.
type Node struct {
	*service.BaseService
	logger log.Logger

	// config
	config *config.Config

	// network
	netCtx  *p2p.Context
	reactor *p2p.Reactor

	// services
	blockQueue *p2p.BlockQueue
	blockStore *store.BlockStore
	ledger     *ledger.Service
	producer   *ledger.Producer
	pipeline   *chain.Pipeline

	prometheusSrv *http.Server
}

// MetricsProvider returns the metrics of every package, in the order p2p,
// ledger, chain.
type MetricsProvider func() (*p2p.Metrics, *ledger.Metrics, *chain.Metrics)

// DefaultMetricsProvider returns Prometheus metrics if instrumentation is
// enabled, and no-op metrics otherwise.
func DefaultMetricsProvider(cfg *config.InstrumentationConfig) MetricsProvider {
	return func() (*p2p.Metrics, *ledger.Metrics, *chain.Metrics) {
		if cfg.Prometheus {
			return p2p.PrometheusMetrics(cfg.Namespace),
				ledger.PrometheusMetrics(cfg.Namespace),
				chain.PrometheusMetrics(cfg.Namespace)
		}
		return p2p.NopMetrics(), ledger.NopMetrics(), chain.NopMetrics()
	}
}

// New returns a node wired from cfg with the default database and metrics
// providers.
func New(cfg *config.Config, logger log.Logger) (*Node, error) {
	return NewWithProviders(
		cfg,
		logger,
		config.DefaultDBProvider,
		DefaultMetricsProvider(cfg.Instrumentation),
	)
}

// NewWithProviders returns a node wired from cfg. The UDP socket is bound
// here; nothing runs until Start.
func NewWithProviders(
	cfg *config.Config,
	logger log.Logger,
	dbProvider config.DBProvider,
	metricsProvider MetricsProvider,
) (*Node, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	laddr, err := cfg.P2P.ListenAddr()
	if err != nil {
		return nil, err
	}
	peers, err := cfg.P2P.PeerAddrs()
	if err != nil {
		return nil, err
	}

	p2pMetrics, ledgerMetrics, chainMetrics := metricsProvider()

	db, err := dbProvider(&config.DBContext{ID: "blockstore", Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("unable to open block store: %w", err)
	}
	blockStore := store.NewBlockStore(db)
	blockQueue := p2p.NewBlockQueue()

	netCtx, err := p2p.NewContext(laddr, peers, blockQueue,
		p2p.WithLogger(logger.With("module", "p2p")),
		p2p.WithMetrics(p2pMetrics),
		p2p.WithFanOut(cfg.P2P.GossipFanOut),
	)
	if err != nil {
		_ = blockStore.Close()
		return nil, err
	}

	ledgerSvc, err := ledger.NewService(
		logger.With("module", "ledger"),
		cfg.Ledger,
		cfg.Moniker,
		ledger.WithMetrics(ledgerMetrics),
	)
	if err != nil {
		_ = netCtx.Close()
		_ = blockStore.Close()
		return nil, err
	}
	netCtx.RegisterHandler(ledgerSvc)

	producer := ledger.NewProducer(
		logger.With("module", "producer"),
		ledgerSvc,
		netCtx,
		blockStore.LoadTip(),
		cfg.Ledger.BlockInterval,
		cfg.Ledger.MaxBlockEvents,
		ledgerMetrics,
	)

	n := &Node{
		logger:     logger,
		config:     cfg,
		netCtx:     netCtx,
		reactor:    p2p.NewReactor(logger.With("module", "p2p"), netCtx),
		blockQueue: blockQueue,
		blockStore: blockStore,
		ledger:     ledgerSvc,
		producer:   producer,
		pipeline: chain.NewPipeline(
			logger.With("module", "chain"),
			blockQueue,
			blockStore,
			chainMetrics,
			chain.WithRejectHook(producer.BlockRejected),
		),
	}
	n.BaseService = service.NewBaseService(logger, "Node", n)

	logger.Info("node created",
		"moniker", cfg.Moniker,
		"laddr", netCtx.Addr(),
		"peers", len(peers),
		"height", blockStore.Height(),
	)
	return n, nil
}

// OnStart starts the services in dependency order: the block consumer first,
// then the receive loop, then the producer.
func (n *Node) OnStart(ctx context.Context) error {
	if n.config.Instrumentation.Prometheus && n.config.Instrumentation.PrometheusListenAddr != "" {
		srv, err := n.startPrometheusServer()
		if err != nil {
			return err
		}
		n.prometheusSrv = srv
	}

	// Children are stopped by OnStop in reverse order only; the producer
	// must never outlive the pipeline that closes the block queue.
	childCtx := context.Background()

	started := make([]service.Service, 0, 3)
	for _, svc := range []service.Service{n.pipeline, n.reactor, n.producer} {
		if err := svc.Start(childCtx); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				_ = started[i].Stop()
			}
			n.stopPrometheusServer()
			return fmt.Errorf("starting %s: %w", svc, err)
		}
		started = append(started, svc)
	}
	return nil
}

// OnStop stops the services in reverse order and releases the socket and
// the database.
func (n *Node) OnStop() {
	n.logger.Info("stopping node")

	for _, svc := range []service.Service{n.producer, n.reactor, n.pipeline} {
		if err := svc.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
			n.logger.Error("problem stopping service", "service", svc, "err", err)
		}
	}

	n.stopPrometheusServer()

	if err := n.netCtx.Close(); err != nil {
		n.logger.Error("problem closing network context", "err", err)
	}
	if err := n.blockStore.Close(); err != nil {
		n.logger.Error("problem closing blockstore", "err", err)
	}
}

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on the configured address.
func (n *Node) startPrometheusServer() (*http.Server, error) {
	cfg := n.config.Instrumentation

	listener, err := net.Listen("tcp", cfg.PrometheusListenAddr)
	if err != nil {
		return nil, fmt.Errorf("prometheus listen %s: %w", cfg.PrometheusListenAddr, err)
	}
	if cfg.MaxOpenConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxOpenConnections)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{MaxRequestsInFlight: cfg.MaxOpenConnections},
		),
	))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			n.logger.Error("prometheus HTTP server Serve", "err", err)
		}
	}()
	n.logger.Info("serving metrics", "addr", listener.Addr())
	return srv, nil
}

func (n *Node) stopPrometheusServer() {
	if n.prometheusSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.prometheusSrv.Shutdown(ctx); err != nil {
		// Error from closing listeners, or context timeout:
		n.logger.Error("prometheus HTTP server Shutdown", "err", err)
	}
	n.prometheusSrv = nil
}

// Config returns the node's configuration.
func (n *Node) Config() *config.Config { return n.config }

// NetContext returns the gossip context.
func (n *Node) NetContext() *p2p.Context { return n.netCtx }

// BlockStore returns the node's block store.
func (n *Node) BlockStore() *store.BlockStore { return n.blockStore }

// Ledger returns the event service registered as the network handler.
func (n *Node) Ledger() *ledger.Service { return n.ledger }
