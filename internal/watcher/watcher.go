// Package watcher watches intake directories with fsnotify and submits
// contractor/insurance document pairs as they become complete.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// File names that make up one intake pair. A directory is submitted once
// both are present.
const (
	ContractorFile = "contractor.pdf"
	InsuranceFile  = "insurance.pdf"
)

// PairFunc receives the paths of a completed document pair.
type PairFunc func(contractorPath, insurancePath string)

// Watcher watches intake roots and invokes the pair callback when a
// directory holds both documents of a pair. Each directory is submitted
// at most once until one of its documents is removed.
type Watcher struct {
	roots       []string
	onPair      PairFunc
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer // keyed by pair directory
	submitted   map[string]bool
	rootPaths   map[string][]string // root -> list of watched dirs
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events, etc.).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle delay applied before a directory is
// checked for a complete pair.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over the given intake roots. onPair is called
// once per directory that contains both pair documents.
func NewWatcher(roots []string, onPair PairFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:       roots,
		onPair:      onPair,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		submitted:   make(map[string]bool),
		rootPaths:   make(map[string][]string),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting", zap.Strings("roots", w.roots))
	}
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch ev.Op {
	case fsnotify.Create, fsnotify.Write:
		// Check if it's a directory (newly created or moved in)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if isPairFile(path) {
			w.debouncePairCheck(filepath.Dir(path))
		}
	case fsnotify.Remove:
		if isPairFile(path) {
			dir := filepath.Dir(path)
			w.cancelDebounce(dir)
			// A re-uploaded pair may be submitted again.
			w.mu.Lock()
			delete(w.submitted, dir)
			w.mu.Unlock()
		}
	}
}

// handleNewDirectory adds a newly created directory to the watch list and
// checks it for a pair already moved in whole.
func (w *Watcher) handleNewDirectory(dirPath string) {
	if w.logger != nil {
		w.logger.Debug("watcher handling new directory", zap.String("path", dirPath))
	}

	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()

	if watcher == nil {
		return
	}

	filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				if w.logger != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
			} else if w.logger != nil {
				w.logger.Debug("watcher added new directory", zap.String("path", path))
			}
		}
		return nil
	})

	w.syncDirectory(dirPath)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isPairFile(path string) bool {
	base := filepath.Base(path)
	return base == ContractorFile || base == InsuranceFile
}

// debouncePairCheck schedules a pair check for dir, resetting any pending
// timer so uploads in progress settle first.
func (w *Watcher) debouncePairCheck(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[dir]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, dir)
		w.mu.Unlock()
		w.checkPair(dir)
	})
	w.debounceMap[dir] = t
}

func (w *Watcher) cancelDebounce(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[dir]; ok {
		t.Stop()
		delete(w.debounceMap, dir)
	}
}

// checkPair submits dir if both pair documents are present and the directory
// has not been submitted yet.
func (w *Watcher) checkPair(dir string) {
	contractorPath := filepath.Join(dir, ContractorFile)
	insurancePath := filepath.Join(dir, InsuranceFile)
	if !fileExists(contractorPath) || !fileExists(insurancePath) {
		return
	}

	w.mu.Lock()
	if w.submitted[dir] {
		w.mu.Unlock()
		return
	}
	w.submitted[dir] = true
	onPair := w.onPair
	logger := w.logger
	w.mu.Unlock()

	if logger != nil {
		logger.Debug("watcher pair complete", zap.String("dir", dir))
	}
	if onPair != nil {
		onPair(contractorPath, insurancePath)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// AddDirectory adds an intake root to watch and optionally checks existing
// subdirectories for complete pairs.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == filepath.Clean(abs) {
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	if w.logger != nil {
		w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	}
	if syncExisting && w.onPair != nil {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(root, 0755); err != nil {
				return err
			}
		} else {
			return err
		}
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}
	w.rootPaths[root] = paths
	return nil
}

// syncDirectory checks root and each of its subdirectories for a complete pair.
func (w *Watcher) syncDirectory(root string) {
	if w.logger != nil {
		w.logger.Debug("watcher syncing directory", zap.String("root", root))
	}
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		w.checkPair(path)
		return nil
	})
}

// RemoveDirectory stops watching the given intake root.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	paths := w.rootPaths[abs]
	for _, p := range paths {
		_ = w.watcher.Remove(p)
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	if w.logger != nil {
		w.logger.Debug("watcher directory removed", zap.String("path", abs))
	}
	return nil
}

// Directories returns a copy of the current watched intake roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingPairs submits pairs that were already complete when the
// watcher started. Call this after Start().
func (w *Watcher) SyncExistingPairs() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("watcher syncing existing pairs", zap.Strings("roots", roots))
	}
	for _, root := range roots {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for dir, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, dir)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
