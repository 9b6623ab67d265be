package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/kessler-oss/gridbuf/internal/telemetry"
)

// Root is the top-level configuration loaded from a TOML file, combining
// the buffer shape/back-off settings with the driver's worker counts.
type Root struct {
	Buffer *Buffer `toml:"buffer"`
	Pool   *Pool   `toml:"pool"`
}

// NewRoot returns the default root configuration.
func NewRoot() *Root {
	return &Root{
		Buffer: NewBuffer(),
		Pool:   NewPool(),
	}
}

// Validate checks every sub-configuration.
func (r *Root) Validate(ac *AnomalyCollector) {
	if r.Buffer == nil {
		r.Buffer = NewBuffer()
	}
	r.Buffer.Validate(ac)

	if r.Pool == nil {
		r.Pool = NewPool()
	}
	r.Pool.Validate(ac)
}

// Load reads a Root configuration from a TOML file at path and validates
// it, logging and falling back to defaults for any anomalous field.
func Load(path string, tel *telemetry.Telemetry) (*Root, error) {
	root := NewRoot()

	if _, err := toml.DecodeFile(path, root); err != nil {
		return nil, fmt.Errorf("config: failed to decode %q: %w", path, err)
	}

	NewValidator(tel).Validate(root)

	return root, nil
}

// Watcher reloads a Root configuration from disk whenever the backing
// TOML file changes, delivering each successfully validated reload on
// Changes. Load errors during a reload are logged and otherwise
// discarded; the previous configuration stays in effect until a reload
// succeeds.
type Watcher struct {
	path string
	tel  *telemetry.Telemetry

	watcher *fsnotify.Watcher

	Changes chan *Root
}

// NewWatcher starts watching path for changes and returns a Watcher
// whose Changes channel receives a freshly loaded Root after every
// write. The caller must call Close when done.
func NewWatcher(path string, tel *telemetry.Telemetry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: failed to create watcher: %w", err)
	}

	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: failed to watch %q: %w", path, err)
	}

	w := &Watcher{
		path:    path,
		tel:     tel,
		watcher: fsw,
		Changes: make(chan *Root, 1),
	}

	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	// Editors often replace a file rather than write it in place, which
	// fires Remove/Create pairs in quick succession; debounce so a single
	// save does not trigger two reloads.
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(50*time.Millisecond, func() {
				root, err := Load(w.path, w.tel)
				if err != nil {
					w.tel.LogError("failed to reload config", err, "path", w.path)
					return
				}
				w.Changes <- root
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.tel.LogError("config watcher error", err, "path", w.path)
		}
	}
}

// Close stops the watcher and releases its file descriptor.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
