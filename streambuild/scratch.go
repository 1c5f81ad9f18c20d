package streambuild

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forestrie/go-merkletree/merkleerr"
)

// scratchDir is the scoped scratch-storage resource for one streaming
// build: a freshly created, uniquely named directory holding one file per
// tree level, guaranteed to be removed recursively on every exit path
// (success, error, or cancellation). Cleanup failures are logged and
// otherwise swallowed so they never mask the primary error.
type scratchDir struct {
	path string
	log  *zap.SugaredLogger
}

func newScratchDir(baseDir string, log *zap.SugaredLogger) (*scratchDir, error) {
	name := "merkletree-build-" + uuid.NewString()
	path := filepath.Join(baseDir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating scratch dir %q: %v", merkleerr.ErrIOFailure, path, err)
	}
	return &scratchDir{path: path, log: log}, nil
}

func (d *scratchDir) levelPath(level int) string {
	return filepath.Join(d.path, fmt.Sprintf("level-%08d.bin", level))
}

// levelWriter opens the level's scratch file for appending, creating it if
// it does not already exist.
func (d *scratchDir) levelWriter(level int) (*os.File, error) {
	f, err := os.OpenFile(d.levelPath(level), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening level %d scratch file for write: %v", merkleerr.ErrIOFailure, level, err)
	}
	return f, nil
}

// levelReader opens the level's scratch file for reading.
func (d *scratchDir) levelReader(level int) (*os.File, error) {
	f, err := os.Open(d.levelPath(level))
	if err != nil {
		return nil, fmt.Errorf("%w: opening level %d scratch file for read: %v", merkleerr.ErrIOFailure, level, err)
	}
	return f, nil
}

// deleteLevel removes the level's scratch file once every frame in it has
// been consumed by the next level's build step.
func (d *scratchDir) deleteLevel(level int) {
	if err := os.Remove(d.levelPath(level)); err != nil && !os.IsNotExist(err) {
		d.logf("failed to delete scratch level %d file: %v", level, err)
	}
}

// close removes the scratch directory and everything left in it. Failures
// are logged, never returned: cleanup is best-effort by policy.
func (d *scratchDir) close() {
	if err := os.RemoveAll(d.path); err != nil {
		d.logf("failed to remove scratch dir %q: %v", d.path, err)
	}
}

func (d *scratchDir) logf(format string, args ...any) {
	if d.log == nil {
		return
	}
	d.log.Warnf(format, args...)
}
