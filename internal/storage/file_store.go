package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"echoverse/internal/paths"
)

var (
	// ErrInvalidRunID is returned for run ids that are not UUIDs.
	ErrInvalidRunID = errors.New("invalid run id")
	// ErrArtifactNotFound is returned when a run has no audio on disk.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Artifact is a committed audio file for one run.
type Artifact struct {
	RunID string `json:"runId"`
	Path  string `json:"-"`
	Size  int64  `json:"size"`
}

// FileStore keeps run artifacts on local disk, one directory per run id.
type FileStore struct {
	paths *paths.Builder
}

func NewFileStore(base string) *FileStore {
	return &FileStore{paths: paths.New(base)}
}

func (s *FileStore) Paths() *paths.Builder { return s.paths }

// ValidateRunID rejects anything that is not a UUID so ids can be used as path segments.
func ValidateRunID(runID string) error {
	id, err := uuid.Parse(runID)
	if err != nil || id.String() != runID {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return nil
}

// PendingAudio is an in-progress audio write. Exactly one of Commit or Abort
// must be called; Abort after Commit is a no-op so it can be deferred.
type PendingAudio struct {
	runID string
	final string
	f     *os.File
	n     int64
	done  bool
}

// CreateAudio opens a temp file inside the run directory.
func (s *FileStore) CreateAudio(runID string) (*PendingAudio, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	if err := s.paths.EnsureRunDir(runID); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(s.paths.RunDir(runID), ".output-*.mp3.tmp")
	if err != nil {
		return nil, err
	}
	return &PendingAudio{runID: runID, final: s.paths.RunAudio(runID), f: f}, nil
}

func (p *PendingAudio) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	p.n += int64(n)
	return n, err
}

// Commit flushes the temp file and renames it into place.
func (p *PendingAudio) Commit() (*Artifact, error) {
	if p.done {
		return nil, errors.New("audio already finalized")
	}
	p.done = true
	if err := p.f.Sync(); err != nil {
		p.discard()
		return nil, err
	}
	if err := p.f.Close(); err != nil {
		p.discard()
		return nil, err
	}
	if p.n == 0 {
		p.discard()
		return nil, errors.New("synthesized audio is empty")
	}
	if err := os.Rename(p.f.Name(), p.final); err != nil {
		p.discard()
		return nil, err
	}
	return &Artifact{RunID: p.runID, Path: p.final, Size: p.n}, nil
}

// Abort discards the temp file and removes the run directory if it is empty.
func (p *PendingAudio) Abort() {
	if p.done {
		return
	}
	p.done = true
	p.discard()
}

func (p *PendingAudio) discard() {
	tmp := p.f.Name()
	_ = p.f.Close()
	_ = os.Remove(tmp)
	_ = os.Remove(filepath.Dir(tmp))
}

// WriteFile atomically writes a small sidecar file (rewritten text, metadata) for a run.
func (s *FileStore) WriteFile(runID, name string, data []byte) error {
	if err := ValidateRunID(runID); err != nil {
		return err
	}
	if err := s.paths.EnsureRunDir(runID); err != nil {
		return err
	}
	dir := s.paths.RunDir(runID)
	f, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// OpenAudio opens a committed audio file for reading. The caller closes it.
func (s *FileStore) OpenAudio(runID string) (*os.File, os.FileInfo, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.paths.RunAudio(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrArtifactNotFound
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

// ReadAudio returns the committed audio bytes of a run.
func (s *FileStore) ReadAudio(runID string) ([]byte, error) {
	f, _, err := s.OpenAudio(runID)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
