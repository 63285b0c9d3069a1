// Package cac wires the commitment adjudication core's collaborators
// (fabric, identity, policy, ledger, audit, gate, ARES, threshold,
// continuity) into a single constructible App. There is no HTTP server or
// background daemon here: the core's external interfaces (spec §6) are a
// library surface plus the adapters package, consumed directly by cmd/cac
// or by an embedding process.
package cac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/resonance-systems/cac/internal/ares"
	"github.com/resonance-systems/cac/internal/audit"
	"github.com/resonance-systems/cac/internal/config"
	"github.com/resonance-systems/cac/internal/continuity"
	"github.com/resonance-systems/cac/internal/fabric"
	"github.com/resonance-systems/cac/internal/gate"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/ledger"
	"github.com/resonance-systems/cac/internal/policy"
	"github.com/resonance-systems/cac/internal/provenance"
	"github.com/resonance-systems/cac/internal/telemetry"
	"github.com/resonance-systems/cac/internal/threshold"
)

// App bundles one instance of every core collaborator. Construct with New;
// the zero value is not usable.
type App struct {
	cfg config.Config

	Fabric     *fabric.Fabric
	Identity   *identity.Registry
	Policy     *policy.Engine
	Ledger     *ledger.Ledger
	Journal    *audit.Journal
	Provenance *provenance.Index
	Gate       *gate.Gate
	ARES       *ares.Extension
	Threshold  *threshold.Engine
	Continuity *continuity.Manager

	logger       *slog.Logger
	version      string
	otelShutdown telemetry.Shutdown
	hooks        []EventHook
}

// New builds an App from its collaborators, applying opts over the
// environment-derived default configuration. A .env file in the working
// directory, if present, is loaded before the environment is read.
func New(opts ...Option) (*App, error) {
	_ = godotenv.Load()

	ro := &resolvedOptions{
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(ro)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cac: loading config: %w", err)
	}
	if ro.minIntentConfidence != nil {
		cfg.MinIntentConfidence = *ro.minIntentConfidence
	}
	if ro.requireIntentRef != nil {
		cfg.RequireIntentRef = *ro.requireIntentRef
	}

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, ro.version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("cac: initializing telemetry: %w", err)
	}

	f := fabric.New()
	idr := identity.NewRegistry()

	pe := policy.NewEngine()
	for _, p := range policy.DefaultPolicies() {
		pe.AddPolicy(p)
	}
	for _, p := range ro.extraPolicies {
		pe.AddPolicy(p)
	}

	l := ledger.New()
	j := audit.NewJournal()
	prov := provenance.NewIndex(f)

	g := gate.New(f, idr, pe, l, j, gate.Config{
		MinIntentConfidence: cfg.MinIntentConfidence,
		RequireIntentRef:    cfg.RequireIntentRef,
	})

	regulatory := ro.regulatoryEngine
	if regulatory == nil {
		regulatory = ares.AlwaysCompliant{}
	}
	aresExt := ares.New(regulatory)

	th := threshold.New(idr, j, l)
	cm := continuity.New(j)

	return &App{
		cfg:          cfg,
		Fabric:       f,
		Identity:     idr,
		Policy:       pe,
		Ledger:       l,
		Journal:      j,
		Provenance:   prov,
		Gate:         g,
		ARES:         aresExt,
		Threshold:    th,
		Continuity:   cm,
		logger:       ro.logger,
		version:      ro.version,
		otelShutdown: otelShutdown,
		hooks:        ro.eventHooks,
	}, nil
}

// Config returns the resolved configuration the App was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the App's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Version returns the version string the App was built with.
func (a *App) Version() string {
	return a.version
}

// Shutdown releases the App's process-wide resources. There is no
// background work to drain; this only flushes the telemetry exporter.
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelShutdown == nil {
		return nil
	}
	return a.otelShutdown(ctx)
}

// notifyHooks fires every registered EventHook asynchronously; a hook's
// failure is logged and never propagated to the caller of Submit or
// RecordOutcome.
func (a *App) notifyHooks(notify func(EventHook)) {
	for _, h := range a.hooks {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("event hook panicked", "panic", r)
				}
			}()
			notify(h)
		}()
	}
}
