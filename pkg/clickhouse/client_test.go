package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(Config{
		Host:         "ch.local",
		Port:         9000,
		Database:     "chartsense",
		User:         "writer",
		Password:     "p@ss:word",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
	})

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/chartsense" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if pw, _ := u.User.Password(); pw != "p@ss:word" {
		t.Fatalf("password not preserved: %q", pw)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("max_execution_time") != "60" || q.Get("wait_for_async_insert") != "1" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	u, _ := url.Parse(buildDSN(Config{Host: "ch", Port: 8123, Database: "db", UseHTTP: true}))
	if u.Scheme != "http" || u.RawQuery != "" {
		t.Fatalf("unexpected dsn %v", u)
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{
		WithServer("ch", 0, ""),
		WithPool(4, 2, 0),
		WithInsertMode(true, true, false),
		WithMaxExecutionTime(30 * time.Second),
	} {
		opt(&cfg)
	}

	if cfg.Port != 9000 || cfg.Database != "default" {
		t.Fatalf("zero port/database should keep defaults, got %d %q", cfg.Port, cfg.Database)
	}
	if cfg.MaxOpenConns != 4 || cfg.MaxIdleConns != 2 || cfg.ConnMaxLifetime != 5*time.Minute {
		t.Fatalf("unexpected pool %+v", cfg)
	}

	q, _ := url.Parse(buildDSN(cfg))
	if q.Scheme != "http" || q.Query().Get("async_insert") != "1" || q.Query().Get("wait_for_async_insert") != "" {
		t.Fatalf("unexpected dsn %s", q)
	}
	if q.Query().Get("max_execution_time") != "30" {
		t.Fatalf("max_execution_time = %q", q.Query().Get("max_execution_time"))
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithCredentials("u", "p")); err == nil {
		t.Fatalf("expected error without host")
	}
}
