// Package wcconfig holds the polyfill's one piece of runtime
// configuration: backend instance-pool sizing and the codec
// identifier -> backend name table (§4.C.1, §6 "Codec identifier ->
// backend name"). It is loaded from YAML with gopkg.in/yaml.v2, the
// teacher's config library (config.go's AppConfig), and can optionally
// be hot-reloaded with fsnotify the way the rest of the retrieval pack
// wires file watchers onto long-lived config (petervdpas-goop2,
// ausocean-av both watch config files with fsnotify).
package wcconfig

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"
)

// Config is the polyfill's process-wide tunable surface.
type Config struct {
	// PoolSize bounds how many free backend instances (§4.C.4) are
	// retained per (backend codec name, decode/encode direction) before
	// being released.
	PoolSize int `yaml:"pool_size"`

	// Backends overrides the codec-identifier -> backend-name table
	// (§6) for identifiers whose default mapping a deployment wants to
	// change (e.g. pin "vp09" to a software-only backend name).
	Backends map[string]string `yaml:"backends,omitempty"`
}

// Default mirrors the table in spec.md §6.
func Default() Config {
	return Config{
		PoolSize: 4,
		Backends: map[string]string{
			"flac":   "flac",
			"opus":   "libopus",
			"vorbis": "libvorbis",
			"av01":   "libaom-av1",
			"vp09":   "libvpx-vp9",
			"vp8":    "libvpx",
		},
	}
}

var current atomic.Value // holds Config

func init() {
	current.Store(Default())
}

// Current returns the active configuration.
func Current() Config {
	return current.Load().(Config)
}

// Load reads YAML config from path and installs it as current.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("wcconfig: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("wcconfig: parse %s: %w", path, err)
	}
	current.Store(cfg)
	return cfg, nil
}

// Save atomically persists cfg to path (write-tmp-then-rename), the
// same pattern as the teacher's SaveConfig/UpdateCameraGeometry in
// config.go.
func Save(path string, cfg Config) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("wcconfig: create %s: %w", tmp, err)
	}
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(&cfg); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("wcconfig: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("wcconfig: close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("wcconfig: rename: %w", err)
	}
	return nil
}

// watcherMu serializes concurrent Stop calls.
var watcherMu sync.Mutex

// Watcher stops a file watch started by WatchFile.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Stop tears down the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	watcherMu.Lock()
	defer watcherMu.Unlock()
	close(w.done)
	return w.fsw.Close()
}

// WatchFile reloads path into the process-wide Config every time it
// changes on disk, logging (via the caller-supplied onErr) any parse
// failure rather than crashing the watching goroutine.
func WatchFile(path string, onErr func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("wcconfig: new watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("wcconfig: watch %s: %w", path, err)
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-w.done:
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if _, err := Load(path); err != nil && onErr != nil {
					onErr(err)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				if onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return w, nil
}
