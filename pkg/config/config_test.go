package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if c.Server.Port != 8000 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if c.Pipeline.EmitProbability != 0.35 || c.Pipeline.SampleStep != 2 {
		t.Fatalf("pipeline defaults = %+v", c.Pipeline)
	}
	if c.Pipeline.TierTimeout != 250*time.Millisecond {
		t.Fatalf("tier timeout = %v", c.Pipeline.TierTimeout)
	}
	if c.Pipeline.MaxFramePixels != 4096*4096 {
		t.Fatalf("max frame pixels = %d", c.Pipeline.MaxFramePixels)
	}
	if c.Tiers.Backend != TierBackendStatic || c.Tiers.Static["user_master"] != "master" {
		t.Fatalf("tiers = %+v", c.Tiers)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9100
pipeline:
  emit_probability: 0.5
tiers:
  backend: redis
  static:
    alice: pro
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "production" || c.Server.Port != 9100 || c.Pipeline.EmitProbability != 0.5 {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.Tiers.Backend != TierBackendRedis || len(c.Tiers.Static) != 1 {
		t.Fatalf("tiers = %+v", c.Tiers)
	}
	// untouched values keep their defaults
	if c.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout = %v", c.Server.ShutdownTimeout)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"bad backend":     "tiers:\n  backend: ldap\n",
		"postgres no dsn": "tiers:\n  backend: postgres\n",
		"http no url":     "tiers:\n  backend: http\n",
		"emit too high":   "pipeline:\n  emit_probability: 1.5\n",
		"events no sink":  "events:\n  enabled: true\n",
		"pixel cap":       "pipeline:\n  max_frame_pixels: -1\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("CHARTSENSE_PORT", "9200")
	t.Setenv("CHARTSENSE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CHARTSENSE_EMIT_PROBABILITY", "0.2")
	t.Setenv("CHARTSENSE_SUBSCRIPTIONS_API_KEY", "secret")

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9200 || len(c.Kafka.Brokers) != 2 || c.Pipeline.EmitProbability != 0.2 || c.Subscriptions.APIKey != "secret" {
		t.Fatalf("env overrides not applied: %+v", c)
	}

	t.Setenv("CHARTSENSE_PORT", "http")
	if _, err := LoadWithEnv(""); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}
