package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-mht/internal/knx"
	"github.com/nerrad567/gray-logic-mht/internal/mht"
)

// ErrNoSource is returned by Reload before any item file location is known.
var ErrNoSource = errors.New("provider: no item file configured")

// Logger defines the logging interface used by the Provider.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ItemChangeListener is told when the published item set was replaced.
//
// Listeners run synchronously after the swap, on the goroutine that
// performed the reload. They must not call Reload or SourceChanged.
type ItemChangeListener interface {
	AllItemsChanged(p *Provider)
}

// ItemChangeListenerFunc adapts a function to ItemChangeListener.
type ItemChangeListenerFunc func(p *Provider)

// AllItemsChanged calls f(p).
func (f ItemChangeListenerFunc) AllItemsChanged(p *Provider) { f(p) }

// ReloadEvent describes one reload attempt, successful or not.
type ReloadEvent struct {
	ID         string
	Source     string
	StartedAt  time.Time
	Duration   time.Duration
	Items      int
	Datapoints int
	Err        error
}

// OK reports whether the reload replaced the published items.
func (e ReloadEvent) OK() bool {
	return e.Err == nil
}

// ReloadObserver receives every ReloadEvent. Used for history and metrics.
type ReloadObserver interface {
	ReloadCompleted(ctx context.Context, ev ReloadEvent)
}

type listenerEntry struct {
	id uint64
	l  ItemChangeListener
}

// Provider publishes the current item model to the host.
//
// The model is held behind an atomic pointer. Readers load it without
// locking and always see one complete ParseResult; a reload builds a new
// result off to the side and swaps it in only when parsing succeeded.
// Reloads are serialised.
//
// All public methods are thread-safe.
type Provider struct {
	parser  *mht.Parser
	current atomic.Pointer[mht.ParseResult]

	reloadMu sync.Mutex // serialises reloads

	mu        sync.RWMutex // protects the fields below
	source    string
	listeners []listenerEntry
	nextID    uint64
	observers []ReloadObserver
	logger    Logger
}

// New creates a provider that parses item files with parser, or with the
// default file format when parser is nil.
// Until the first successful reload it publishes no items.
func New(parser *mht.Parser) *Provider {
	if parser == nil {
		parser, _ = mht.NewParser(mht.DefaultOptions()) //nolint:errcheck // defaults are valid
	}
	return &Provider{
		parser: parser,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the provider.
func (p *Provider) SetLogger(logger Logger) {
	p.mu.Lock()
	p.logger = logger
	p.mu.Unlock()
}

// Source returns the item file location, or "" if none was set.
func (p *Provider) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// Current returns the published result. It is nil before the first
// successful reload; all ParseResult methods accept a nil receiver.
func (p *Provider) Current() *mht.ParseResult {
	return p.current.Load()
}

// Items returns the published items in file order. It never fails and
// returns an empty slice before the first successful reload.
func (p *Provider) Items() []mht.Item {
	return p.Current().Items()
}

// AddItemChangeListener registers l and returns a function removing it.
func (p *Provider) AddItemChangeListener(l ItemChangeListener) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listenerEntry{id: id, l: l})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, e := range p.listeners {
			if e.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// AddReloadObserver registers o for every reload attempt.
func (p *Provider) AddReloadObserver(o ReloadObserver) {
	p.mu.Lock()
	p.observers = append(p.observers, o)
	p.mu.Unlock()
}

// SourceChanged points the provider at a new item file and parses it.
//
// The new location is remembered even when parsing fails, so a later
// Reload retries it. On failure the previous items stay published and the
// parse error is returned.
func (p *Provider) SourceChanged(ctx context.Context, location string) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	p.mu.Lock()
	previous := p.source
	p.source = location
	p.mu.Unlock()

	if previous != location {
		p.log().Info("item file location changed", "from", previous, "to", location)
	}
	return p.reload(ctx, location)
}

// Reload re-parses the current item file.
// Returns ErrNoSource if no location was ever set.
func (p *Provider) Reload(ctx context.Context) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	source := p.Source()
	if source == "" {
		return ErrNoSource
	}
	return p.reload(ctx, source)
}

// reload parses source and swaps the result in on success.
// Callers hold reloadMu.
func (p *Provider) reload(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ev := ReloadEvent{
		ID:        "rld-" + uuid.NewString()[:8],
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	res, err := p.parser.ParseFile(source)
	ev.Duration = time.Since(ev.StartedAt)

	if err != nil {
		ev.Err = err
		args := []any{"source", source, "reload_id", ev.ID, "error", err}
		var perr *mht.ParseError
		if errors.As(err, &perr) {
			args = append(args, "kind", perr.Kind.String(), "line", perr.Line)
		}
		p.log().Error("item file reload failed, keeping previous items", args...)
		p.notifyObservers(ctx, ev)
		return fmt.Errorf("loading items from %s: %w", source, err)
	}

	ev.Items = res.Len()
	ev.Datapoints = res.DatapointCount()
	p.current.Store(res)

	p.log().Info("items loaded",
		"source", source,
		"reload_id", ev.ID,
		"items", ev.Items,
		"datapoints", ev.Datapoints,
		"duration", ev.Duration,
	)
	p.notifyObservers(ctx, ev)
	p.notifyListeners()
	return nil
}

func (p *Provider) log() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

func (p *Provider) notifyObservers(ctx context.Context, ev ReloadEvent) {
	p.mu.RLock()
	observers := append([]ReloadObserver(nil), p.observers...)
	p.mu.RUnlock()

	for _, o := range observers {
		o.ReloadCompleted(ctx, ev)
	}
}

func (p *Provider) notifyListeners() {
	p.mu.RLock()
	listeners := append([]listenerEntry(nil), p.listeners...)
	p.mu.RUnlock()

	for _, e := range listeners {
		e.l.AllItemsChanged(p)
	}
}

// Item returns the named item from the published result.
func (p *Provider) Item(name string) (mht.Item, bool) {
	return p.Current().Item(name)
}

// IconFor returns the icon of the named item.
func (p *Provider) IconFor(name string) (string, bool) {
	return p.Current().IconFor(name)
}

// LabelFor returns the label of the named item.
func (p *Provider) LabelFor(name string) (string, bool) {
	return p.Current().LabelFor(name)
}

// DatapointFor returns the datapoint binding the named item to t.
func (p *Provider) DatapointFor(name string, t mht.TypeTag) (mht.Datapoint, bool) {
	return p.Current().DatapointFor(name, t)
}

// DatapointForAddress returns the datapoint of the named item whose value
// format matches the one bound to ga.
func (p *Provider) DatapointForAddress(name string, ga knx.GroupAddress) (mht.Datapoint, bool) {
	return p.Current().DatapointForAddress(name, ga)
}

// ListeningItemNames returns the items listening on ga, in file order.
func (p *Provider) ListeningItemNames(ga knx.GroupAddress) []string {
	return p.Current().ListeningItemNames(ga)
}
