// Package provider publishes the parsed item model to the rest of the
// system.
//
// The Provider owns the location of the item file and the current
// mht.ParseResult. SourceChanged and Reload re-parse the file; a successful
// parse replaces the published result in one atomic step and then notifies
// the registered ItemChangeListeners. A failed parse is logged and reported
// to ReloadObservers while the previous result stays in place, so callers
// never see a broken or half-built model.
//
// Holders of an old result keep reading consistent old data until they
// fetch the new one with Current:
//
//	p := provider.New(parser)
//	p.AddItemChangeListener(provider.ItemChangeListenerFunc(func(p *provider.Provider) {
//	    refreshUI(p.Items())
//	}))
//	if err := p.SourceChanged(ctx, "/etc/graylogic/home.items"); err != nil {
//	    log.Printf("items not loaded: %v", err)
//	}
//	go p.Watch(ctx, 2*time.Second)
package provider
