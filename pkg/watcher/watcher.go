// Package watcher reports changes to a single data file.
//
// It prefers fsnotify on the file's directory (robust against editors and
// tools that replace files atomically) and falls back to stat polling when
// notifications are unavailable, when the file lives on a network or FUSE
// filesystem, or when LAZYTREE_FORCE_POLL is set. Bursts of events are
// coalesced by a Debouncer.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval in polling mode.
const DefaultPollInterval = 2 * time.Second

// ForcePollEnv forces polling mode when set to a truthy value.
const ForcePollEnv = "LAZYTREE_FORCE_POLL"

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Mode is the change-detection strategy in use.
type Mode int

const (
	ModeNotify Mode = iota
	ModePoll
)

func (m Mode) String() string {
	if m == ModePoll {
		return "poll"
	}
	return "notify"
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long events are coalesced before OnChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the stat interval used in polling mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnChange sets the change callback.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the error callback.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll skips fsnotify entirely.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// fileStamp is what polling compares between ticks.
type fileStamp struct {
	mtime time.Time
	size  int64
}

func (s fileStamp) exists() bool { return !s.mtime.IsZero() }

// Watcher monitors one file.
type Watcher struct {
	path         string
	debounce     time.Duration
	pollInterval time.Duration
	onChange     func()
	onError      func(error)
	forcePoll    bool

	mu        sync.RWMutex
	running   bool
	mode      Mode
	fsType    FilesystemType
	last      fileStamp
	cancel    context.CancelFunc
	notify    *fsnotify.Watcher
	debouncer *Debouncer
	changed   chan struct{}
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         abs,
		debounce:     DefaultDebounceDuration,
		pollInterval: DefaultPollInterval,
		onChange:     func() {},
		onError:      func(error) {},
		changed:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Start begins watching until ctx is cancelled or Stop is called. A missing
// file is not an error; it is picked up once created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyStarted
	}

	st, err := stat(w.path)
	if err != nil {
		return err
	}
	w.last = st
	w.fsType = DetectFilesystemType(w.path)

	ctx, w.cancel = context.WithCancel(ctx)
	w.mode = ModePoll
	if !w.forcePoll && !envBool(ForcePollEnv) && !isRemoteFilesystem(w.fsType) {
		if nw, err := w.openNotify(); err == nil {
			w.notify = nw
			w.mode = ModeNotify
			go w.notifyLoop(ctx, nw.Events, nw.Errors)
		}
	}
	if w.mode == ModePoll {
		go w.pollLoop(ctx)
	}
	w.running = true
	return nil
}

func (w *Watcher) openNotify() (*fsnotify.Watcher, error) {
	nw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so atomic replace-by-rename is seen.
	if err := nw.Add(filepath.Dir(w.path)); err != nil {
		_ = nw.Close()
		return nil, err
	}
	return nw, nil
}

// Stop ends watching. Pending debounced callbacks are dropped. The Changed
// channel stays open so receivers never observe a spurious close.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.cancel()
	if w.notify != nil {
		_ = w.notify.Close()
		w.notify = nil
	}
	w.debouncer.Cancel()
	w.running = false
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Mode reports the detection strategy chosen by Start.
func (w *Watcher) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

// Changed receives (coalesced) after each debounced change.
func (w *Watcher) Changed() <-chan struct{} { return w.changed }

// Path returns the absolute watched path.
func (w *Watcher) Path() string { return w.path }

// PollInterval returns the polling interval.
func (w *Watcher) PollInterval() time.Duration { return w.pollInterval }

// FilesystemType returns the classification made by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

func (w *Watcher) notifyLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove):
				w.onError(ErrFileRemoved)
			case ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename):
				w.debouncer.Trigger(w.fire)
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	st, err := stat(w.path)
	if err != nil {
		w.onError(err)
		return
	}

	w.mu.Lock()
	prev := w.last
	w.last = st
	w.mu.Unlock()

	switch {
	case prev.exists() && !st.exists():
		w.onError(ErrFileRemoved)
	case st.exists() && (st.mtime.After(prev.mtime) || st.size != prev.size):
		w.debouncer.Trigger(w.fire)
	}
}

// fire runs the change callback and signals Changed.
func (w *Watcher) fire() {
	if !w.Running() {
		return
	}
	w.onChange()
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// stat returns a zero stamp for a missing file.
func stat(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return fileStamp{mtime: info.ModTime(), size: info.Size()}, nil
	case os.IsNotExist(err):
		return fileStamp{}, nil
	case os.IsPermission(err):
		return fileStamp{}, ErrPermission
	}
	return fileStamp{}, err
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
