package history

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-mht/internal/provider"
)

// writeTimeout bounds one history insert.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder is a provider.ReloadObserver that stores each event.
// Storage errors are logged and never fail the reload.
type Recorder struct {
	repo   Repository
	logger Logger
}

var _ provider.ReloadObserver = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// ReloadCompleted implements provider.ReloadObserver.
func (r *Recorder) ReloadCompleted(ctx context.Context, ev provider.ReloadEvent) {
	// Record even when the reload was triggered by a request that has
	// since gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	rec := FromEvent(ev)
	if err := r.repo.Create(ctx, &rec); err != nil {
		r.logger.Warn("failed to record reload", "reload_id", ev.ID, "error", err)
	}
}
