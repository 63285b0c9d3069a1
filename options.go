package cac

import (
	"log/slog"

	"github.com/resonance-systems/cac/internal/ares"
	"github.com/resonance-systems/cac/internal/policy"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger              *slog.Logger
	version             string
	minIntentConfidence *float64
	requireIntentRef    *bool
	extraPolicies       []policy.Policy
	regulatoryEngine    ares.RegulatoryEngine
	eventHooks          []EventHook
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported to telemetry as the service
// version and returned by App.Version.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithMinIntentConfidence overrides the configured floor on intent-event
// confidence enforced at the declaration stage (CAC_MIN_INTENT_CONFIDENCE).
func WithMinIntentConfidence(threshold float64) Option {
	return func(o *resolvedOptions) { o.minIntentConfidence = &threshold }
}

// WithRequireIntentRef overrides whether declarations with no bound intent
// event are denied outright (CAC_REQUIRE_INTENT_REF).
func WithRequireIntentRef(required bool) Option {
	return func(o *resolvedOptions) { o.requireIntentRef = &required }
}

// WithPolicy adds a policy to the engine in addition to the built-in
// defaults. Multiple calls append; all supplied policies run alongside
// policy.DefaultPolicies().
func WithPolicy(p policy.Policy) Option {
	return func(o *resolvedOptions) { o.extraPolicies = append(o.extraPolicies, p) }
}

// WithRegulatoryEngine replaces ARES's default always-compliant regulatory
// check with a caller-supplied implementation (e.g. a sanctions-list or
// jurisdiction check). Only the last call wins.
func WithRegulatoryEngine(re ares.RegulatoryEngine) Option {
	return func(o *resolvedOptions) { o.regulatoryEngine = re }
}

// WithEventHook registers an event hook to receive adjudication and
// lifecycle notifications. Multiple hooks may be registered; all registered
// hooks receive every event.
func WithEventHook(hook EventHook) Option {
	return func(o *resolvedOptions) { o.eventHooks = append(o.eventHooks, hook) }
}
