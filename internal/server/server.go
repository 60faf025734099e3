// Package server wires the yeelightd daemon together: config entries, entity
// registry, state store, Yeelight integration, discovery, MQTT and the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/yeelightd/internal/config"
	"github.com/jmylchreest/yeelightd/internal/core"
	"github.com/jmylchreest/yeelightd/internal/events"
	"github.com/jmylchreest/yeelightd/internal/http/handlers"
	"github.com/jmylchreest/yeelightd/internal/http/mw"
	"github.com/jmylchreest/yeelightd/internal/http/routes"
	"github.com/jmylchreest/yeelightd/internal/integration"
	"github.com/jmylchreest/yeelightd/internal/mqtt"
	"github.com/jmylchreest/yeelightd/internal/registry"
	"github.com/jmylchreest/yeelightd/internal/state"
	"github.com/jmylchreest/yeelightd/internal/ws"
	"github.com/jmylchreest/yeelightd/pkg/yeelight"
)

const shutdownTimeout = 10 * time.Second

// Scanner is the network discovery the daemon runs. *yeelight.Scanner implements it.
type Scanner interface {
	integration.Discovery
	handlers.BulbScanner
	OnDiscovered(fn func(yeelight.Capabilities))
	Run(ctx context.Context, interval time.Duration)
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Option customises a Server, mostly for tests.
type Option func(*Server)

// WithEntryStore replaces the entries.yaml store.
func WithEntryStore(store core.Store) Option {
	return func(s *Server) { s.entryStore = store }
}

// WithRegistryRepository replaces the SQLite entity registry.
func WithRegistryRepository(repo registry.Repository) Option {
	return func(s *Server) { s.repo = repo }
}

// WithBulbFactory replaces the LAN bulb client.
func WithBulbFactory(factory integration.BulbFactory) Option {
	return func(s *Server) { s.factory = factory }
}

// WithScanner replaces SSDP/mDNS discovery.
func WithScanner(scanner Scanner) Option {
	return func(s *Server) { s.scanner = scanner }
}

// WithMQTTClient publishes states through client instead of dialing the configured broker.
func WithMQTTClient(client mqtt.Client) Option {
	return func(s *Server) { s.mqttClient = client }
}

// WithBuildInfo sets the version reported by the API.
func WithBuildInfo(info BuildInfo) Option {
	return func(s *Server) { s.build = info }
}

// Server is the running daemon.
type Server struct {
	logger *slog.Logger
	cfg    *config.Config
	build  BuildInfo

	entryStore core.Store
	repo       registry.Repository
	closeRepo  func() error
	factory    integration.BulbFactory
	scanner    Scanner
	mqttClient mqtt.Client

	bus         *events.Bus
	states      *state.Store
	registry    *registry.Registry
	integration *integration.Integration
	manager     *core.Manager

	rootCtx    context.Context
	rootCancel context.CancelFunc
	// workCtx scopes discovery, setup retries and polling. It ends before
	// entries are unloaded, rootCtx after, so unload events still reach MQTT.
	workCtx    context.Context
	workCancel context.CancelFunc
	wg         sync.WaitGroup
	reloadMu   sync.Mutex

	httpServer *http.Server
	listener   net.Listener
}

// New builds the daemon from cfg. Nothing runs until Start.
func New(logger *slog.Logger, cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{logger: logger, cfg: cfg, build: BuildInfo{Version: "dev"}}
	for _, opt := range opts {
		opt(s)
	}
	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())
	s.workCtx, s.workCancel = context.WithCancel(s.rootCtx)

	if s.entryStore == nil {
		s.entryStore = core.NewFileStore(cfg.Storage.EntriesFile)
	}
	if s.repo == nil {
		repo, err := registry.OpenSQLite(s.rootCtx, cfg.Storage.RegistryPath)
		if err != nil {
			s.rootCancel()
			return nil, fmt.Errorf("opening entity registry: %w", err)
		}
		s.repo = repo
		s.closeRepo = repo.Close
	}
	if s.factory == nil {
		s.factory = integration.NewBulbFactory(logger)
	}
	if s.scanner == nil {
		scanner, err := newScanner(logger, cfg.Discovery)
		if err != nil {
			s.rootCancel()
			s.close()
			return nil, err
		}
		s.scanner = scanner
	}

	s.bus = events.NewBus()
	s.states = state.NewStore(s.bus)
	reg, err := registry.New(s.rootCtx, s.repo, s.bus, logger)
	if err != nil {
		s.rootCancel()
		s.close()
		return nil, err
	}
	s.registry = reg
	s.integration = integration.New(reg, s.states, s.scanner, s.factory, logger)
	s.manager = core.NewManager(s.entryStore, s.bus, logger)
	s.manager.RegisterIntegration(s.integration)
	s.manager.OnRemove(func(e *core.ConfigEntry) {
		if n, err := reg.RemoveConfigEntry(s.rootCtx, e.EntryID); err != nil {
			logger.Warn("server: removing entities of deleted entry failed", "entry_id", e.EntryID, "error", err)
		} else if n > 0 {
			logger.Info("server: removed entities of deleted entry", "entry_id", e.EntryID, "count", n)
		}
	})
	s.scanner.OnDiscovered(func(c yeelight.Capabilities) {
		logger.Info("discovery: new bulb", "id", c.ID(), "host", c.Host(), "model", c.Model())
		s.bus.Emit(events.DeviceDiscovered, handlers.BulbFromCapabilities(c))
	})
	return s, nil
}

func newScanner(logger *slog.Logger, cfg config.DiscoveryConfig) (*yeelight.Scanner, error) {
	timeout := config.SecondsOrDefault(cfg.Timeout, config.DefaultDiscoveryTimeout)
	opts := []yeelight.SSDPOption{yeelight.WithSSDPTimeout(timeout), yeelight.WithSSDPLogger(logger)}
	iface, err := discoveryInterface(cfg.Interface)
	if err != nil {
		return nil, err
	}
	if iface != nil {
		logger.Info("discovery: sending search requests on interface", "interface", iface.Name)
		opts = append(opts, yeelight.WithSSDPInterface(iface))
	}
	ssdp := yeelight.NewSSDPDiscoverer(opts...)
	sources := []yeelight.Source{ssdp}
	if cfg.MDNS {
		sources = append(sources, yeelight.NewMDNSDiscoverer(timeout, ssdp.Probe, logger))
	}
	return yeelight.NewScanner(logger, ssdp, sources...), nil
}

// discoveryInterface resolves the configured multicast interface. An empty
// name leaves the choice to the operating system.
func discoveryInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("discovery interface %q: %w", name, err)
	}
	return iface, nil
}

// Manager exposes the config entry manager.
func (s *Server) Manager() *core.Manager { return s.manager }

// States exposes the state store.
func (s *Server) States() *state.Store { return s.states }

// Addr returns the address the HTTP API listens on, once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start loads persisted entries, starts the background workers and the HTTP
// API, and sets up every yeelight entry in the background.
func (s *Server) Start() error {
	s.logger.Info("Starting yeelightd server")
	if err := s.manager.Load(); err != nil {
		return fmt.Errorf("loading config entries: %w", err)
	}

	if s.cfg.Discovery.Enabled {
		interval := time.Duration(config.ValidateDiscoveryInterval(s.cfg.Discovery.Interval)) * time.Second
		s.goSafe("discovery", func() { s.scanner.Run(s.workCtx, interval) })
	}

	s.manager.StartRetryWorker(s.workCtx, config.SecondsOrDefault(s.cfg.Yeelight.RetryInterval, config.DefaultRetryInterval))
	s.integration.StartPolling(s.workCtx, config.SecondsOrDefault(s.cfg.Yeelight.ScanInterval, config.DefaultScanInterval))

	if err := s.startMQTT(); err != nil {
		s.logger.Error("MQTT state stream disabled", "error", err)
	}

	if s.cfg.API.ListenAddress != "" {
		if err := s.startHTTP(); err != nil {
			s.rootCancel()
			return err
		}
	}

	s.goSafe("setup", func() { s.Reload(s.cfg) })
	return nil
}

// Reload imports the yeelight devices block of cfg and sets up every entry
// that is not loaded yet. It runs at start and after config file changes.
func (s *Server) Reload(cfg *config.Config) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	if err := s.manager.SetupComponent(s.workCtx, integration.Domain, cfg.Section(integration.Domain)); err != nil {
		s.logger.Error("yeelight setup failed", "error", err)
	}
}

func (s *Server) startMQTT() error {
	client := s.mqttClient
	if client == nil {
		if !s.cfg.MQTT.Enabled {
			return nil
		}
		c, err := mqtt.Connect(s.cfg.MQTT, s.logger)
		if err != nil {
			return err
		}
		client = c
	}
	publisher := mqtt.NewPublisher(client, s.cfg.MQTT.TopicPrefix, byte(s.cfg.MQTT.QoS), s.logger)
	s.goSafe("mqtt", func() { publisher.Run(s.rootCtx, s.bus) })
	return nil
}

func (s *Server) startHTTP() error {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(mw.RequestLogging(s.logger))
	router.Use(mw.RateLimitByIP(mw.RateLimitConfig{RequestsPerMinute: s.cfg.API.RequestsPerMinute}))
	router.Use(mw.APIKeyAuth(s.logger, s.cfg.API.Keys, "/api/v1/health", "/api/v1/version", "/healthz"))

	api := humachi.New(router, routes.NewHumaConfig(s.build.Version, ""))
	routes.Register(api, &routes.Handlers{
		HealthCheck:  handlers.HealthCheck,
		VersionCheck: (&handlers.VersionHandler{Version: s.build.Version, Commit: s.build.Commit, BuildDate: s.build.BuildDate}).VersionCheck,
		Entry:        &handlers.EntryHandler{Entries: s.manager, Logger: s.logger},
		Entity:       &handlers.EntityHandler{Registry: s.registry, States: s.states, Lights: s.integration, Logger: s.logger},
		Discovery:    &handlers.DiscoveryHandler{Scanner: s.scanner},
		Logging:      &handlers.LoggingHandler{Logger: s.logger},
	})

	hub := ws.NewHub(s.logger, s.bus)
	s.goSafe("ws hub", func() { hub.Run(s.rootCtx) })
	router.Get("/api/v1/ws", ws.Handler(hub, s.logger))

	listener, err := net.Listen("tcp", s.cfg.API.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.API.ListenAddress, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// discovery scans and bulb commands can take a few seconds
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("HTTP API listening", "address", listener.Addr().String())

	s.goSafe("http", func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
	})
	return nil
}

// goSafe runs fn in a tracked goroutine, logging panics.
func (s *Server) goSafe(name string, fn func()) {
	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in "+name, "recover", r)
			}
		}()
		fn()
	})
}

// Stop shuts the HTTP API and the background workers down, unloads every
// entry and then stops the MQTT stream, which clears the unloaded states.
func (s *Server) Stop() {
	s.logger.Info("Shutting down yeelightd server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}
	s.workCancel()
	if err := s.manager.Shutdown(ctx); err != nil {
		s.logger.Warn("unloading entries failed", "error", err)
	}
	s.rootCancel()
	s.wg.Wait()
	s.close()
	s.logger.Info("yeelightd server shut down")
}

func (s *Server) close() {
	if s.closeRepo != nil {
		if err := s.closeRepo(); err != nil {
			s.logger.Warn("closing entity registry failed", "error", err)
		}
	}
}
