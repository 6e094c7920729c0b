// Package state persists extraction cursors between runs.
package state

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/connector/core"
	"github.com/syphon-data/syphon/pkg/errors"
	jsonpool "github.com/syphon-data/syphon/pkg/json"
)

// Store loads and saves extraction state.
type Store interface {
	// Load returns persisted state, or an empty state on first run
	Load(ctx context.Context) (core.State, error)
	// Save persists the state
	Save(ctx context.Context, state core.State) error
}

// FileStore persists state as a JSON file. Writes go through a temp file
// and rename so a crash mid-write never corrupts the previous state.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file-backed state store at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With(zap.String("component", "state_store")),
	}
}

// Load reads the state file. A missing file means a fresh extraction.
func (fs *FileStore) Load(ctx context.Context) (core.State, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.logger.Info("no state file found, starting fresh", zap.String("path", fs.path))
			return core.State{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read state file")
	}

	var state core.State
	if err := jsonpool.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse state file").
			WithDetail("path", fs.path)
	}

	fs.logger.Info("state loaded",
		zap.String("path", fs.path),
		zap.Int("streams", len(state)))
	return state, nil
}

// Save writes the state file atomically.
func (fs *FileStore) Save(ctx context.Context, state core.State) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := jsonpool.Marshal(state)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode state")
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create state directory")
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write state")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to close state file")
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to replace state file")
	}

	fs.logger.Debug("state saved", zap.Int("streams", len(state)))
	return nil
}

// Advance returns a copy of state with the stream's cursor moved forward.
// The cursor only moves if newCursor sorts after the existing one; ISO-8601
// timestamps compare correctly as strings.
func Advance(state core.State, stream, newCursor string) core.State {
	if newCursor == "" {
		return state
	}

	next := make(core.State, len(state)+1)
	for k, v := range state {
		next[k] = v
	}

	current := next[stream]
	if current.Cursor == "" || newCursor > current.Cursor {
		next[stream] = core.StreamState{
			Cursor:    newCursor,
			UpdatedAt: time.Now().UTC(),
		}
	}
	return next
}
