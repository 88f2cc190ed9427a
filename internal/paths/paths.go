package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultBaseDir = "out"
	runsDirName    = "runs"

	// AudioFilename is the on-disk name of a run's synthesized audio.
	AudioFilename = "output.mp3"
	// DownloadFilename is the name offered to users when they download audio.
	DownloadFilename = "audiobook.mp3"
	// RewrittenFilename holds the rewritten text of a run.
	RewrittenFilename = "rewritten.txt"
	// MetaFilename holds run metadata.
	MetaFilename = "meta.json"
)

// Builder constructs per-run output paths rooted at Base (default "out").
type Builder struct {
	Base string
}

func New(base string) *Builder {
	if base == "" {
		base = defaultBaseDir
	}
	return &Builder{Base: base}
}

// RunDir returns the directory for one run: Base/runs/<runID>
func (b *Builder) RunDir(runID string) string {
	return filepath.Join(b.Base, runsDirName, runID)
}

func (b *Builder) RunAudio(runID string) string {
	return filepath.Join(b.RunDir(runID), AudioFilename)
}
func (b *Builder) RunRewritten(runID string) string {
	return filepath.Join(b.RunDir(runID), RewrittenFilename)
}
func (b *Builder) RunMeta(runID string) string {
	return filepath.Join(b.RunDir(runID), MetaFilename)
}

// EnsureRunDir creates the run directory if it does not exist.
func (b *Builder) EnsureRunDir(runID string) error {
	return os.MkdirAll(b.RunDir(runID), 0o755)
}

// CheckOverwrite enforces overwrite behavior. If any path exists and overwrite is false, returns error.
func CheckOverwrite(paths []string, overwrite bool) error {
	if overwrite {
		return nil
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("refusing to overwrite existing file: %s (use --overwrite)", p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking file: %s: %w", p, err)
		}
	}
	return nil
}
