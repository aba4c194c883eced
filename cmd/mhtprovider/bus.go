package main

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-mht/internal/mht"
	"github.com/nerrad567/gray-logic-mht/internal/provider"
)

// jsonPublisher is the part of *mqtt.Client the announcer needs.
type jsonPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// itemsSnapshot is the retained payload on mqtt.Topics.Items.
type itemsSnapshot struct {
	Source     string          `json:"source"`
	Items      []mht.Item      `json:"items"`
	Datapoints []mht.Datapoint `json:"datapoints"`
	Timestamp  string          `json:"timestamp"`
}

// reloadMessage is published on mqtt.Topics.ReloadEvent for every attempt.
type reloadMessage struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	OK         bool   `json:"ok"`
	Items      int    `json:"items"`
	Datapoints int    `json:"datapoints"`
	DurationMS int64  `json:"duration_ms"`
	ErrorKind  string `json:"error_kind,omitempty"`
	ErrorLine  int    `json:"error_line,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// busAnnouncer publishes the item model and reload outcomes on MQTT.
type busAnnouncer struct {
	pub    jsonPublisher
	logger warnLogger
	topics mqtt.Topics
}

func newBusAnnouncer(pub jsonPublisher, logger warnLogger) *busAnnouncer {
	return &busAnnouncer{pub: pub, logger: logger}
}

// AllItemsChanged publishes the retained snapshot.
func (a *busAnnouncer) AllItemsChanged(p *provider.Provider) {
	res := p.Current()
	if res == nil {
		return
	}
	snap := itemsSnapshot{
		Source:     p.Source(),
		Items:      res.Items(),
		Datapoints: []mht.Datapoint{},
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, name := range res.Names() {
		snap.Datapoints = append(snap.Datapoints, res.Datapoints(name)...)
	}
	if err := a.pub.PublishJSON(a.topics.Items(), snap, true); err != nil {
		a.logger.Warn("failed to publish item snapshot", "error", err)
	}
}

// ReloadCompleted publishes the reload outcome.
func (a *busAnnouncer) ReloadCompleted(_ context.Context, ev provider.ReloadEvent) {
	msg := reloadMessage{
		ID:         ev.ID,
		Source:     ev.Source,
		OK:         ev.OK(),
		Items:      ev.Items,
		Datapoints: ev.Datapoints,
		DurationMS: ev.Duration.Milliseconds(),
		Timestamp:  ev.StartedAt.UTC().Format(time.RFC3339),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
		var perr *mht.ParseError
		if errors.As(ev.Err, &perr) {
			msg.ErrorKind = perr.Kind.String()
			msg.ErrorLine = perr.Line
		}
	}
	if err := a.pub.PublishJSON(a.topics.ReloadEvent(), msg, false); err != nil {
		a.logger.Warn("failed to publish reload event", "reload_id", ev.ID, "error", err)
	}
}

// reloader is the part of *provider.Provider the reload command needs.
type reloader interface {
	Reload(ctx context.Context) error
}

// reloadCommands runs reloads requested on the reload command topic.
//
// paho delivers messages on its router goroutine, which also dispatches
// the acknowledgements for our own publishes. A reload announces its
// outcome over MQTT, so it must not run on that goroutine. The handler
// only queues a request; run performs it. Requests arriving while one is
// pending collapse into it.
type reloadCommands struct {
	reloader reloader
	logger   warnLogger
	pending  chan struct{}
}

func newReloadCommands(r reloader, logger warnLogger) *reloadCommands {
	return &reloadCommands{
		reloader: r,
		logger:   logger,
		pending:  make(chan struct{}, 1),
	}
}

// handle implements mqtt.MessageHandler. It never blocks.
func (c *reloadCommands) handle(_ string, _ []byte) error {
	select {
	case c.pending <- struct{}{}:
	default:
	}
	return nil
}

// run performs queued reloads until ctx is done.
func (c *reloadCommands) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.pending:
			c.reload(ctx)
		}
	}
}

// reload re-reads the item file. Parse failures are already logged and
// announced by the provider, so only other errors are logged here.
func (c *reloadCommands) reload(ctx context.Context) {
	err := c.reloader.Reload(ctx)
	var perr *mht.ParseError
	if err == nil || errors.As(err, &perr) {
		return
	}
	c.logger.Warn("reload command failed", "error", err)
}

// metricsWriter is the part of *influxdb.Client reloadMetrics needs.
type metricsWriter interface {
	WriteReload(m influxdb.ReloadMetric)
}

// reloadMetrics records each reload attempt in InfluxDB.
type reloadMetrics struct {
	client metricsWriter
}

// ReloadCompleted implements provider.ReloadObserver.
func (m reloadMetrics) ReloadCompleted(_ context.Context, ev provider.ReloadEvent) {
	metric := influxdb.ReloadMetric{
		Source:     ev.Source,
		OK:         ev.OK(),
		Duration:   ev.Duration,
		Items:      ev.Items,
		Datapoints: ev.Datapoints,
		At:         ev.StartedAt,
	}
	var perr *mht.ParseError
	if errors.As(ev.Err, &perr) {
		metric.ErrorKind = perr.Kind.String()
	}
	m.client.WriteReload(metric)
}
