package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// MinWatchInterval is the shortest accepted polling interval.
const MinWatchInterval = 10 * time.Millisecond

// fileStamp identifies one version of the item file.
type fileStamp struct {
	path    string
	modTime time.Time
	size    int64
	exists  bool
}

func stampOf(path string) fileStamp {
	st := fileStamp{path: path}
	if path == "" {
		return st
	}
	info, err := os.Stat(path)
	if err != nil {
		return st
	}
	st.modTime = info.ModTime()
	st.size = info.Size()
	st.exists = true
	return st
}

// Watch polls the item file every interval and reloads it when its
// modification time or size changes. It blocks until ctx is done and then
// returns nil.
//
// A location change made through SourceChanged is picked up without an
// extra reload. A file that disappears is logged once and reloaded when it
// comes back.
func (p *Provider) Watch(ctx context.Context, interval time.Duration) error {
	if interval < MinWatchInterval {
		return fmt.Errorf("watch interval %s is shorter than %s", interval, MinWatchInterval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := stampOf(p.Source())
	p.log().Debug("watching item file", "source", last.path, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		cur := stampOf(p.Source())
		switch {
		case cur == last:
			continue
		case cur.path != last.path:
			// SourceChanged already parsed the new file.
			last = cur
			continue
		case !cur.exists:
			p.log().Warn("item file disappeared, keeping current items", "source", cur.path)
			last = cur
			continue
		}

		last = cur
		if err := p.Reload(ctx); err != nil && !errors.Is(err, ErrNoSource) {
			p.log().Debug("watched reload failed", "source", cur.path, "error", err)
		}
	}
}
