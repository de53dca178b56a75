package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the coalescing window SPEC_FULL.md §6 specifies for the
// SSE watchdog: rapid successive filesystem events collapse into one.
const watchDebounce = 300 * time.Millisecond

// changeEvent is one coalesced filesystem change, as emitted over SSE.
type changeEvent struct {
	ChangeType string `json:"changeType"` // "create", "write", "remove", "rename"
	Path       string `json:"path"`
}

// Watchdog watches every registered project's specs/ directory with fsnotify
// and fans debounced change events out to SSE subscribers. The watch is not
// recursive: only entries directly inside specs/ are reported, not changes
// inside a spec's own directory (such as its README.md). Grounded on the
// teacher's internal/scheduler goroutine-per-timer idiom, adapted here from
// a fixed-interval tick to a per-event debounce timer (scheduler.Scheduler
// itself models periodic jobs, not event coalescing, so it isn't reused
// directly for this one).
type Watchdog struct {
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	subs map[int]chan changeEvent
	next int

	pending   map[string]changeEvent
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatchdog creates a Watchdog with no watched roots yet; call AddRoot for
// each registered project.
func NewWatchdog(logger *slog.Logger) (*Watchdog, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}
	wd := &Watchdog{
		logger:  logger,
		watcher: w,
		subs:    map[int]chan changeEvent{},
		pending: map[string]changeEvent{},
	}
	go wd.loop()
	return wd, nil
}

// AddRoot starts watching the projectPath/specs directory (not its
// subdirectories) for changes, if it exists.
func (w *Watchdog) AddRoot(projectPath string) {
	dir := projectPath + "/specs"
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("watchdog: failed to watch project", "path", dir, "error", err)
	}
}

func (w *Watchdog) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.coalesce(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watchdog error", "error", err)
		}
	}
}

func (w *Watchdog) coalesce(ev fsnotify.Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[ev.Name] = changeEvent{ChangeType: changeType(ev.Op), Path: ev.Name}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.flush)
}

func (w *Watchdog) flush() {
	w.pendingMu.Lock()
	batch := w.pending
	w.pending = map[string]changeEvent{}
	w.pendingMu.Unlock()

	for _, ev := range batch {
		w.publish(ev)
	}
}

func changeType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	default:
		return "write"
	}
}

func (w *Watchdog) publish(ev changeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (w *Watchdog) subscribe() (<-chan changeEvent, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	ch := make(chan changeEvent, 32)
	w.subs[id] = ch
	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
	}
}

// ServeSSE serves GET /events: a text/event-stream of changeEvent, one per
// coalesced filesystem change.
func (w *Watchdog) ServeSSE(rw http.ResponseWriter, r *http.Request) {
	flusher, ok := rw.(http.Flusher)
	if !ok {
		http.Error(rw, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := w.subscribe()
	defer unsubscribe()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(rw, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watchdog) Close() error {
	return w.watcher.Close()
}
