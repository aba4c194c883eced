package provider

import (
	"context"
	"testing"
	"time"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	p, path := newTestProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.SourceChanged(ctx, path); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 4)
	p.AddItemChangeListener(ItemChangeListenerFunc(func(*Provider) { changed <- struct{}{} }))

	watchErr := make(chan error, 1)
	go func() { watchErr <- p.Watch(ctx, 20*time.Millisecond) }()

	// Let the watcher take its first stamp.
	time.Sleep(60 * time.Millisecond)
	writeItems(t, path, homeItems+"string|Living_Scene|Scene\n")

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not reload the changed file")
	}
	if _, ok := p.Item("Living_Scene"); !ok {
		t.Error("reloaded result is missing the new item")
	}

	cancel()
	select {
	case err := <-watchErr:
		if err != nil {
			t.Errorf("Watch() returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatch_RejectsShortInterval(t *testing.T) {
	p, _ := newTestProvider(t)
	if err := p.Watch(context.Background(), time.Millisecond); err == nil {
		t.Error("Watch() accepted a 1ms interval")
	}
}
