// Package watch reports changes to the source files of an optimization
// session so the command-line driver can run the session again.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op describes the kind of change to a file
type Op uint8

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event is a change to one watched file
type Event struct {
	Path string
	Op   Op
}

// ErrClosed is returned by Wait once the watcher is closed
var ErrClosed = errors.New("watcher closed")

// Watcher delivers events for a set of files using OS-native
// notifications. Directories holding the files are watched, so files
// replaced through a rename by an editor keep being reported.
type Watcher struct {
	w    *fsnotify.Watcher
	evC  chan Event
	erC  chan error
	done chan struct{}

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// New creates a watcher with no files
func New() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &Watcher{
		w:     w,
		evC:   make(chan Event, 128),
		erC:   make(chan error, 1),
		done:  make(chan struct{}),
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
	}
	go fw.loop()
	return fw, nil
}

func (fw *Watcher) loop() {
	defer close(fw.evC)
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			path := filepath.Clean(ev.Name)
			if !fw.watching(path) {
				continue
			}
			select {
			case fw.evC <- Event{Path: path, Op: convertOp(ev.Op)}:
			case <-fw.done:
				return
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			select {
			case fw.erC <- err:
			default:
				// An unread error is still pending; drop this one.
			}
		case <-fw.done:
			return
		}
	}
}

func convertOp(o fsnotify.Op) Op {
	var op Op
	if o.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if o.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if o.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if o.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if o.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

func (fw *Watcher) watching(path string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.files[path]
}

// Add starts reporting changes to the file name
func (fw *Watcher) Add(name string) error {
	abs, err := filepath.Abs(name)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	dir := filepath.Dir(abs)
	if !fw.dirs[dir] {
		if err := fw.w.Add(dir); err != nil {
			return err
		}
		fw.dirs[dir] = true
	}
	fw.files[abs] = true
	return nil
}

// Files returns the watched files, sorted
func (fw *Watcher) Files() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	files := make([]string, 0, len(fw.files))
	for f := range fw.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Close stops the watcher. Pending and later Wait calls return ErrClosed.
func (fw *Watcher) Close() error {
	select {
	case <-fw.done:
		return nil
	default:
	}
	close(fw.done)
	return fw.w.Close()
}

// Wait blocks until at least one watched file changed and no further
// change arrived for quiet. It returns the changed files, sorted.
func (fw *Watcher) Wait(ctx context.Context, quiet time.Duration) ([]string, error) {
	changed := make(map[string]bool)
	var timer <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-fw.erC:
			return nil, err
		case ev, ok := <-fw.evC:
			if !ok {
				return nil, ErrClosed
			}
			if ev.Op == OpChmod {
				continue
			}
			changed[ev.Path] = true
			timer = time.After(quiet)
		case <-timer:
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			return paths, nil
		}
	}
}
