package datasource

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/feed"
	"github.com/vanderheijden86/lazytree/pkg/watcher"
)

func TestWatchPublishesStaleIDs(t *testing.T) {
	src := openSample(t)
	hub := feed.NewHub()

	var mu sync.Mutex
	notified := map[string]int{}
	for _, id := range []string{"a", "b", "d"} {
		sub := hub.Subscribe(id, func() {
			mu.Lock()
			notified[id]++
			mu.Unlock()
		})
		defer sub.Release()
	}
	reloads := make(chan RecordDiff, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := Watch(ctx, src, hub, WatchOptions{
		OnReload: func(d RecordDiff) { reloads <- d },
		OnError:  func(error) {},
		Watcher: []watcher.Option{
			watcher.WithForcePoll(true),
			watcher.WithPollInterval(20 * time.Millisecond),
			watcher.WithDebounce(20 * time.Millisecond),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	next := strings.Replace(sampleJSONL, `"title":"Beta"`, `"title":"Beta 2"`, 1)
	next = strings.Replace(next, `{"id":"d","parent_id":"p2","title":"Delta"}`+"\n", "", 1)
	next += `{"id":"e","parent_id":"p2","title":"Epsilon"}` + "\n"
	if err := os.WriteFile(src.Path(), []byte(next), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-reloads:
		assertIDs(t, "added", d.Added, []string{"e"})
		assertIDs(t, "changed", d.Changed, []string{"b"})
		assertIDs(t, "removed", d.Removed, []string{"d"})
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	mu.Lock()
	defer mu.Unlock()
	if notified["b"] != 1 || notified["d"] != 1 {
		t.Errorf("expected b and d notified once, got %v", notified)
	}
	if notified["a"] != 0 {
		t.Errorf("unchanged record a was notified")
	}
}
