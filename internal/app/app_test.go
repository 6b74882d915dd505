package app

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"areacloud/internal/persist"
	"areacloud/internal/sim"
	"areacloud/internal/telemetry"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestFromEnvOverridesDefaults(t *testing.T) {
	cfg := DefaultConfig().FromEnv(envMap(map[string]string{
		"LISTEN_ADDR":         "127.0.0.1:9000",
		"TICK_RATE":           "40",
		"STORE":               "Redis",
		"REDIS_ADDR":          "cache:6379",
		"REDIS_DB":            "3",
		"EFFECT_CATALOG_PATH": "a.json:b.json",
		"SIM_DEMO":            "true",
		"LOG_SINKS":           "console, JSON",
		"SAVE_INTERVAL":       "1m",
	}), nil)

	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.TickRate != 40 {
		t.Fatalf("unexpected listener config %+v", cfg)
	}
	if cfg.Store != StoreRedis || cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 3 {
		t.Fatalf("unexpected store config %+v", cfg.Redis)
	}
	if len(cfg.CatalogPaths) != 2 || cfg.CatalogPaths[1] != "b.json" {
		t.Fatalf("expected two catalog paths, got %v", cfg.CatalogPaths)
	}
	if !cfg.Demo || cfg.SaveInterval != time.Minute {
		t.Fatalf("expected demo and autosave overrides")
	}
	if len(cfg.LogSinks) != 2 || cfg.LogSinks[1] != "json" {
		t.Fatalf("expected normalised sinks, got %v", cfg.LogSinks)
	}
}

func TestFromEnvReportsInvalidValues(t *testing.T) {
	var reports []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		reports = append(reports, format)
	})
	cfg := DefaultConfig().FromEnv(envMap(map[string]string{
		"TICK_RATE": "fast",
		"SIM_DEMO":  "maybe",
	}), logger)

	if cfg.TickRate != sim.DefaultTickRate || cfg.Demo {
		t.Fatalf("expected invalid values to keep defaults")
	}
	if len(reports) != 2 {
		t.Fatalf("expected two reports, got %d", len(reports))
	}
}

func TestOpenStore(t *testing.T) {
	store, err := OpenStore(Config{Store: StoreNone})
	if err != nil || store != nil {
		t.Fatalf("expected no store for none backend")
	}
	store, err = OpenStore(Config{Store: StoreFile, StorePath: t.TempDir()})
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	if _, ok := store.(*persist.FileStore); !ok {
		t.Fatalf("expected file store, got %T", store)
	}
	if _, err := OpenStore(Config{Store: "tape"}); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestRunServesAndSavesOnShutdown(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.StorePath = dir
	cfg.CatalogPaths = nil
	cfg.Demo = true
	cfg.SaveInterval = 0
	cfg.Output = io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.TrimSpace(string(body)) != "ok" {
		t.Fatalf("expected ok, got %q", body)
	}

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop")
	}

	store, err := persist.NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	snapshot, err := persist.LoadCompound(context.Background(), store, cfg.SnapshotKey)
	if err != nil {
		t.Fatalf("expected final snapshot: %v", err)
	}
	living, ok := snapshot.List("Living")
	if !ok || len(living) == 0 {
		t.Fatalf("expected demo entities saved")
	}
}
