// Package app wires the registry, lifecycle machine, session simulator and
// infrastructure adapters into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeflow/chargeflow/api/rest"
	"github.com/chargeflow/chargeflow/config"
	"github.com/chargeflow/chargeflow/core/lifecycle"
	coremetrics "github.com/chargeflow/chargeflow/core/metrics"
	"github.com/chargeflow/chargeflow/core/model"
	"github.com/chargeflow/chargeflow/core/registry"
	"github.com/chargeflow/chargeflow/core/session"
	"github.com/chargeflow/chargeflow/infra/logger"
	"github.com/chargeflow/chargeflow/infra/metrics"
	"github.com/chargeflow/chargeflow/infra/telemetry"
	"github.com/chargeflow/chargeflow/internal/eventbus"
)

// Service orchestrates the charging coordination core.
type Service struct {
	Registry *registry.MemoryRegistry
	Machine  *lifecycle.Machine
	Sessions *session.Manager

	cfg    *config.Config
	bus    *eventbus.Bus[model.SessionSnapshot]
	bridge *telemetry.Bridge
	log    logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	applyLogLevel(cfg.Logging.Level)
	log := logger.New("service")

	reg := registry.NewMemoryRegistry()
	if cfg.Seed {
		if err := registry.Seed(reg); err != nil {
			return nil, fmt.Errorf("seed registry: %w", err)
		}
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.Enabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics.Influx))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = coremetrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New[model.SessionSnapshot]()
	sessions := session.NewManager(cfg.Simulation, reg, bus, sink, logger.New("session"))
	machine := lifecycle.New(reg, sessions, sink, logger.New("lifecycle"))
	// Completion drives the same stop transition an operator would. A
	// session already removed by a disconnect leaves stop rejected, which
	// is expected and only logged.
	sessions.OnComplete = func(evseID string) {
		if _, err := machine.Stop(evseID); err != nil {
			log.Warnf("stop after completion on evse %s: %v", evseID, err)
		}
	}

	svc := &Service{
		Registry: reg,
		Machine:  machine,
		Sessions: sessions,
		cfg:      cfg,
		bus:      bus,
		log:      log,
	}

	if cfg.Telemetry.Enabled {
		bridge, err := telemetry.NewBridge(cfg.Telemetry, bus)
		if err != nil {
			return nil, fmt.Errorf("telemetry bridge: %w", err)
		}
		svc.bridge = bridge
	}
	return svc, nil
}

// Run starts the HTTP listeners and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	handler := rest.New(s.Registry, s.Machine, s.Sessions, logger.New("api"))
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http listening on %s", s.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.bridge != nil {
		go s.bridge.Run(ctx)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() {
	for _, snap := range s.Sessions.List() {
		s.Sessions.Cancel(snap.EVSE.ID)
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	s.bus.Close()
}

func applyLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
