package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/striped-zebra-dev/oagw/internal/logging"
)

// credentialsFile is the YAML shape of a file-backed credential store.
type credentialsFile struct {
	Credentials map[string]string `yaml:"credentials"`
}

// FileResolver reads credentials from a YAML file and reloads it when the
// file changes on disk. Lookups hit an in-memory snapshot; a reload swaps
// the snapshot atomically.
type FileResolver struct {
	path string

	mu      sync.RWMutex
	secrets map[string]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileResolver loads the file and starts watching it for changes.
// Call Close to stop the watcher.
func NewFileResolver(path string) (*FileResolver, error) {
	r := &FileResolver{path: path, done: make(chan struct{})}
	if err := r.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("credential watcher: %w", err)
	}
	// Watch the directory: editors replace files rather than write in place.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("credential watcher: %w", err)
	}
	r.watcher = w
	go r.watch()

	return r, nil
}

func (r *FileResolver) watch() {
	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := r.reload(); err != nil {
				logging.Warn("credential file reload failed",
					zap.String("path", r.path),
					zap.Error(err),
				)
				continue
			}
			logging.Info("credential file reloaded", zap.String("path", r.path))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("credential watcher error", zap.Error(err))
		}
	}
}

func (r *FileResolver) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}
	var f credentialsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse credentials file: %w", err)
	}
	r.mu.Lock()
	r.secrets = f.Credentials
	r.mu.Unlock()
	return nil
}

// Resolve implements Resolver.
func (r *FileResolver) Resolve(_ context.Context, secretRef string) (Secret, error) {
	r.mu.RLock()
	v, ok := r.secrets[secretRef]
	r.mu.RUnlock()
	if !ok {
		return Secret{}, NotFoundError(secretRef)
	}
	return NewSecret(v), nil
}

// Close stops the file watcher.
func (r *FileResolver) Close() error {
	close(r.done)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}
