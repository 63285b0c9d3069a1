package config

import (
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvFloatValid(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.75")
	v, err := envFloat("TEST_FLOAT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.75 {
		t.Fatalf("expected 0.75, got %f", v)
	}
}

func TestEnvFloatInvalid(t *testing.T) {
	t.Setenv("TEST_FLOAT_BAD", "abc")
	_, err := envFloat("TEST_FLOAT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-numeric value, got nil")
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatal("expected true")
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
	if got := err.Error(); got != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	v, err := envDuration("TEST_DUR", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Seconds() != 5 {
		t.Fatalf("expected 5s, got %s", v)
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	_, err := envDuration("TEST_DUR_BAD", 0)
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
	if got := err.Error(); got != `TEST_DUR_BAD="five-seconds" is not a valid duration` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestLoadFailsOnInvalidPort(t *testing.T) {
	t.Setenv("CAC_PORT", "abc")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with invalid CAC_PORT")
	}
	if got := err.Error(); !contains(got, "CAC_PORT") || !contains(got, "abc") {
		t.Fatalf("error should mention CAC_PORT and value 'abc', got: %s", got)
	}
}

func TestLoadFailsOnMultipleInvalid(t *testing.T) {
	t.Setenv("CAC_PORT", "abc")
	t.Setenv("CAC_MIN_INTENT_CONFIDENCE", "xyz")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with multiple invalid vars")
	}
	got := err.Error()
	if !contains(got, "CAC_PORT") {
		t.Fatalf("error should mention CAC_PORT, got: %s", got)
	}
	if !contains(got, "CAC_MIN_INTENT_CONFIDENCE") {
		t.Fatalf("error should mention CAC_MIN_INTENT_CONFIDENCE, got: %s", got)
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	// With no env vars set, Load should succeed using all defaults.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.MinIntentConfidence != 0.6 {
		t.Fatalf("expected default min intent confidence 0.6, got %f", cfg.MinIntentConfidence)
	}
	if !cfg.RequireIntentRef {
		t.Fatal("expected RequireIntentRef true by default")
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestLoad_JWTKeyPathValidation(t *testing.T) {
	bogusPath := "/tmp/cac-test-nonexistent-key-file.pem"
	t.Setenv("CAC_RECEIPT_JWT_PRIVATE_KEY", bogusPath)

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail when CAC_RECEIPT_JWT_PRIVATE_KEY points to a nonexistent file")
	}
	got := err.Error()
	if !contains(got, bogusPath) {
		t.Fatalf("error should mention the path %q, got: %s", bogusPath, got)
	}
	if !contains(got, "CAC_RECEIPT_JWT_PRIVATE_KEY") {
		t.Fatalf("error should mention CAC_RECEIPT_JWT_PRIVATE_KEY, got: %s", got)
	}
}

func TestLoad_OTELEndpointParsing(t *testing.T) {
	endpoint := "https://otel.example.com:4317"
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", endpoint)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.OTELEndpoint != endpoint {
		t.Fatalf("expected OTELEndpoint %q, got %q", endpoint, cfg.OTELEndpoint)
	}
}

func TestLoad_AutonomousLimitsRejectNonPositive(t *testing.T) {
	t.Setenv("CAC_AUTONOMOUS_LIMIT_IBANK", "0")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail when an autonomous limit is non-positive")
	}
	if !contains(err.Error(), "CAC_AUTONOMOUS_LIMIT_IBANK") {
		t.Fatalf("error should mention CAC_AUTONOMOUS_LIMIT_IBANK, got: %s", err.Error())
	}
}

func TestLoad_AllEnvVarsHonored(t *testing.T) {
	t.Setenv("CAC_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/testdb")
	t.Setenv("NOTIFY_URL", "postgres://test:test@db:5432/testdb_notify")
	t.Setenv("CAC_JWT_EXPIRATION", "12h")
	t.Setenv("CAC_MIN_INTENT_CONFIDENCE", "0.8")
	t.Setenv("CAC_REQUIRE_INTENT_REF", "false")
	t.Setenv("OTEL_SERVICE_NAME", "cac-test")
	t.Setenv("CAC_LOG_LEVEL", "debug")
	t.Setenv("CAC_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("CAC_PIPELINE_DEADLINE", "45s")
	t.Setenv("CAC_STAGE_DEADLINE", "10s")
	t.Setenv("CAC_CHECKPOINT_INTERVAL", "2m")
	t.Setenv("CAC_AUTONOMOUS_LIMIT_IBANK", "20000")
	t.Setenv("CAC_AUTONOMOUS_LIMIT_FINALVERSE", "2000")
	t.Setenv("CAC_AUTONOMOUS_LIMIT_MAPLEVERSE", "30000")
	t.Setenv("CAC_AUTONOMOUS_LIMIT_DEFAULT", "6000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}

	if cfg.Port != 9090 {
		t.Fatalf("expected Port 9090, got %d", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://test:test@db:5432/testdb" {
		t.Fatalf("expected DatabaseURL %q, got %q", "postgres://test:test@db:5432/testdb", cfg.DatabaseURL)
	}
	if cfg.NotifyURL != "postgres://test:test@db:5432/testdb_notify" {
		t.Fatalf("expected NotifyURL %q, got %q", "postgres://test:test@db:5432/testdb_notify", cfg.NotifyURL)
	}
	if cfg.JWTExpiration != 12*time.Hour {
		t.Fatalf("expected JWTExpiration 12h, got %s", cfg.JWTExpiration)
	}
	if cfg.MinIntentConfidence != 0.8 {
		t.Fatalf("expected MinIntentConfidence 0.8, got %f", cfg.MinIntentConfidence)
	}
	if cfg.RequireIntentRef {
		t.Fatal("expected RequireIntentRef false")
	}
	if cfg.ServiceName != "cac-test" {
		t.Fatalf("expected ServiceName %q, got %q", "cac-test", cfg.ServiceName)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected LogLevel %q, got %q", "debug", cfg.LogLevel)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %d", len(cfg.CORSAllowedOrigins))
	}
	if cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
		t.Fatalf("expected first CORS origin %q, got %q", "https://a.example.com", cfg.CORSAllowedOrigins[0])
	}
	if cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("expected second CORS origin %q, got %q", "https://b.example.com", cfg.CORSAllowedOrigins[1])
	}
	if cfg.PipelineDeadline != 45*time.Second {
		t.Fatalf("expected PipelineDeadline 45s, got %s", cfg.PipelineDeadline)
	}
	if cfg.StageDeadline != 10*time.Second {
		t.Fatalf("expected StageDeadline 10s, got %s", cfg.StageDeadline)
	}
	if cfg.CheckpointInterval != 2*time.Minute {
		t.Fatalf("expected CheckpointInterval 2m, got %s", cfg.CheckpointInterval)
	}
	if cfg.AutonomousLimitIBank != 20000 {
		t.Fatalf("expected AutonomousLimitIBank 20000, got %f", cfg.AutonomousLimitIBank)
	}
	if cfg.AutonomousLimitFinalverse != 2000 {
		t.Fatalf("expected AutonomousLimitFinalverse 2000, got %f", cfg.AutonomousLimitFinalverse)
	}
	if cfg.AutonomousLimitMapleverse != 30000 {
		t.Fatalf("expected AutonomousLimitMapleverse 30000, got %f", cfg.AutonomousLimitMapleverse)
	}
	if cfg.AutonomousLimitDefault != 6000 {
		t.Fatalf("expected AutonomousLimitDefault 6000, got %f", cfg.AutonomousLimitDefault)
	}
}
