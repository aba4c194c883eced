package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-mht/internal/api"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-mht/internal/provider"
)

const testItems = `group|Home|Home
switch|Home_Light|Light|lightbulb|@Home|1/1/0
measurement|Home_Temp|Temperature||@Home|3/1/0:listen
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_StartsAndStops(t *testing.T) {
	dir := t.TempDir()
	itemsPath := filepath.Join(dir, "home.items")
	writeFile(t, itemsPath, testItems)

	configPath := filepath.Join(dir, "config.yaml")
	writeFile(t, configPath, `
items:
  file: "`+itemsPath+`"
  poll_interval: 1
database:
  enabled: true
  path: "`+filepath.Join(dir, "history.db")+`"
api:
  enabled: false
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  output: discard
`)
	t.Setenv("GRAYLOGIC_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "history.db")); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

type stubCheck struct{ err error }

func (s stubCheck) HealthCheck(context.Context) error { return s.err }

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	down := errors.New("down")

	if err := healthCheck(ctx, map[string]api.HealthChecker{}); err != nil {
		t.Errorf("no subsystems: %v", err)
	}
	if err := healthCheck(ctx, map[string]api.HealthChecker{"database": stubCheck{}, "mqtt": stubCheck{}}); err != nil {
		t.Errorf("all healthy: %v", err)
	}

	err := healthCheck(ctx, map[string]api.HealthChecker{
		"database": stubCheck{},
		"influxdb": stubCheck{err: down},
		"mqtt":     stubCheck{err: errors.New("also down")},
	})
	if !errors.Is(err, down) || !strings.HasPrefix(err.Error(), "influxdb: ") {
		t.Errorf("healthCheck() = %v, want first failure in name order (influxdb)", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("GRAYLOGIC_CONFIG", "/etc/graylogic/mht.yaml")
	if got := getConfigPath(); got != "/etc/graylogic/mht.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishJSON(topic string, v any, retained bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, payload: b, retained: retained})
	return f.err
}

type fakeLogger struct {
	warnings int
}

func (l *fakeLogger) Warn(string, ...any) { l.warnings++ }

func newLoadedProvider(t *testing.T, content string) (*provider.Provider, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "home.items")
	writeFile(t, path, content)
	p := provider.New(nil)
	return p, path
}

func TestBusAnnouncer(t *testing.T) {
	pub := &fakePublisher{}
	logger := &fakeLogger{}
	announcer := newBusAnnouncer(pub, logger)

	p, path := newLoadedProvider(t, testItems)
	p.AddItemChangeListener(announcer)
	p.AddReloadObserver(announcer)

	if err := p.SourceChanged(context.Background(), path); err != nil {
		t.Fatalf("SourceChanged: %v", err)
	}
	writeFile(t, path, testItems+"switch|Home_Light\n")
	if err := p.Reload(context.Background()); err == nil {
		t.Fatal("Reload() of a duplicate item should fail")
	}

	topics := mqtt.Topics{}
	if len(pub.msgs) != 3 {
		t.Fatalf("published %d messages, want 3 (event, snapshot, event)", len(pub.msgs))
	}

	ok, snapshot, failed := pub.msgs[0], pub.msgs[1], pub.msgs[2]
	if ok.topic != topics.ReloadEvent() || ok.retained {
		t.Errorf("first message = %s retained=%v", ok.topic, ok.retained)
	}
	if snapshot.topic != topics.Items() || !snapshot.retained {
		t.Errorf("snapshot message = %s retained=%v", snapshot.topic, snapshot.retained)
	}

	var snap itemsSnapshot
	if err := json.Unmarshal(snapshot.payload, &snap); err != nil {
		t.Fatalf("snapshot payload: %v", err)
	}
	if len(snap.Items) != 3 || len(snap.Datapoints) != 2 || snap.Source != path {
		t.Errorf("snapshot = %d items, %d datapoints, source %q", len(snap.Items), len(snap.Datapoints), snap.Source)
	}

	var ev reloadMessage
	if err := json.Unmarshal(failed.payload, &ev); err != nil {
		t.Fatalf("reload payload: %v", err)
	}
	if ev.OK || ev.ErrorKind != "semantic" || ev.ErrorLine != 4 {
		t.Errorf("failed reload message = %+v", ev)
	}

	pub.err = errors.New("broker gone")
	announcer.AllItemsChanged(p)
	if logger.warnings != 1 {
		t.Errorf("warnings = %d, want 1", logger.warnings)
	}
}

func TestBusAnnouncer_NothingLoaded(t *testing.T) {
	pub := &fakePublisher{}
	newBusAnnouncer(pub, &fakeLogger{}).AllItemsChanged(provider.New(nil))
	if len(pub.msgs) != 0 {
		t.Errorf("published %d messages before any load", len(pub.msgs))
	}
}

type fakeReloader struct{ err error }

func (f fakeReloader) Reload(context.Context) error { return f.err }

func TestReloadCommands_Reload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		reloader     func(t *testing.T) reloader
		wantWarnings int
	}{
		{"success", func(*testing.T) reloader { return fakeReloader{} }, 0},
		{"parse failure is left to the provider", func(t *testing.T) reloader {
			p, path := newLoadedProvider(t, "switch|A|||99/0/0\n")
			p.SourceChanged(ctx, path) //nolint:errcheck // parse failure is the point
			return p
		}, 0},
		{"no source is logged", func(*testing.T) reloader { return fakeReloader{err: provider.ErrNoSource} }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &fakeLogger{}
			newReloadCommands(tt.reloader(t), log).reload(ctx)
			if log.warnings != tt.wantWarnings {
				t.Errorf("warnings = %d, want %d", log.warnings, tt.wantWarnings)
			}
		})
	}
}

// gatedPublisher holds every publish until release is closed, like a QoS 1
// publish waiting for its acknowledgement.
type gatedPublisher struct {
	fakePublisher
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPublisher) PublishJSON(topic string, v any, retained bool) error {
	g.entered <- struct{}{}
	<-g.release
	return g.fakePublisher.PublishJSON(topic, v, retained)
}

func TestReloadCommands_HandlerDoesNotWaitForPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, path := newLoadedProvider(t, testItems)
	if err := p.SourceChanged(ctx, path); err != nil {
		t.Fatalf("SourceChanged() error = %v", err)
	}
	pub := &gatedPublisher{entered: make(chan struct{}, 16), release: make(chan struct{})}
	a := newBusAnnouncer(pub, &fakeLogger{})
	p.AddItemChangeListener(a)
	p.AddReloadObserver(a)

	cmds := newReloadCommands(p, &fakeLogger{})
	done := make(chan struct{})
	go func() {
		cmds.run(ctx)
		close(done)
	}()

	returned := make(chan error, 1)
	go func() { returned <- cmds.handle("cmd", nil) }()
	select {
	case err := <-returned:
		if err != nil {
			t.Errorf("handle() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handle() blocked on the reload")
	}

	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("reload never reached the publisher")
	}

	// The reload is parked inside a publish; commands must still return.
	for range 3 {
		if err := cmds.handle("cmd", nil); err != nil {
			t.Errorf("handle() while publishing error = %v", err)
		}
	}

	close(pub.release)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not stop after cancel")
	}
}

// blockingReloader parks each Reload until release is closed.
type blockingReloader struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (b *blockingReloader) Reload(context.Context) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return nil
}

func TestReloadCommands_CoalescesPendingRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &blockingReloader{started: make(chan struct{}, 4), release: make(chan struct{})}
	cmds := newReloadCommands(r, &fakeLogger{})
	done := make(chan struct{})
	go func() {
		cmds.run(ctx)
		close(done)
	}()

	cmds.handle("cmd", nil) //nolint:errcheck // never fails
	<-r.started
	for range 3 {
		cmds.handle("cmd", nil) //nolint:errcheck // never fails
	}
	close(r.release)

	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("queued reload did not run")
	}
	cancel()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls != 2 {
		t.Errorf("reloads = %d, want 2 (one running, one queued)", r.calls)
	}
}

type fakeMetrics struct {
	got []influxdb.ReloadMetric
}

func (f *fakeMetrics) WriteReload(m influxdb.ReloadMetric) { f.got = append(f.got, m) }

func TestReloadMetrics(t *testing.T) {
	fm := &fakeMetrics{}
	p, path := newLoadedProvider(t, testItems)
	p.AddReloadObserver(reloadMetrics{client: fm})

	if err := p.SourceChanged(context.Background(), path); err != nil {
		t.Fatalf("SourceChanged: %v", err)
	}
	writeFile(t, path, "switch|A|B\n|")
	p.Reload(context.Background()) //nolint:errcheck // failure is recorded below

	if len(fm.got) != 2 {
		t.Fatalf("metrics = %d, want 2", len(fm.got))
	}
	if m := fm.got[0]; !m.OK || m.Items != 3 || m.Datapoints != 2 || m.Source != path {
		t.Errorf("success metric = %+v", m)
	}
	if m := fm.got[1]; m.OK || m.ErrorKind != "syntax" {
		t.Errorf("failure metric = %+v", m)
	}
}
