package datasource

import (
	"context"
	"log"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/watcher"
)

// Publisher fans change notifications out to per-record subscribers.
type Publisher interface {
	Publish(ids ...string) int
}

// WatchOptions configures Watch.
type WatchOptions struct {
	// OnReload runs after every successful reload that changed something.
	// Added records are reported here since no entry is subscribed to them.
	OnReload func(RecordDiff)
	// OnError receives reload and watcher errors. Nil logs them.
	OnError func(error)
	// Watcher options such as debounce and polling overrides.
	Watcher []watcher.Option
}

// Watch reloads src whenever its file changes and publishes changed and
// removed ids to pub. The returned watcher is already started; stop it or
// cancel ctx to end watching.
func Watch(ctx context.Context, src *JSONLSource, pub Publisher, opts WatchOptions) (*watcher.Watcher, error) {
	onErr := opts.OnError
	if onErr == nil {
		onErr = func(err error) { log.Printf("warning: watching %s: %v", src.Path(), err) }
	}
	reload := func() {
		diff, err := src.Reload()
		if err != nil {
			onErr(err)
			return
		}
		if diff.Empty() {
			return
		}
		debug.Log("reloaded %s: %s", src.Path(), diff.Summary())
		if stale := diff.Stale(); len(stale) > 0 {
			pub.Publish(stale...)
		}
		if opts.OnReload != nil {
			opts.OnReload(diff)
		}
	}

	wopts := append([]watcher.Option{
		watcher.WithOnChange(reload),
		watcher.WithOnError(onErr),
	}, opts.Watcher...)
	w, err := watcher.New(src.Path(), wopts...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
