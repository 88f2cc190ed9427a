package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestCreateAudioCommit(t *testing.T) {
	s := NewFileStore(t.TempDir())
	id := uuid.NewString()
	audio := []byte{0xff, 0xfb, 0x90, 0x00, 0x42}

	p, err := s.CreateAudio(id)
	if err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	defer p.Abort()
	if _, err := p.Write(audio); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(s.Paths().RunAudio(id)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("audio must not be visible before commit")
	}
	art, err := p.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if art.RunID != id || art.Size != int64(len(audio)) || art.Path != s.Paths().RunAudio(id) {
		t.Fatalf("unexpected artifact: %+v", art)
	}
	got, err := s.ReadAudio(id)
	if err != nil {
		t.Fatalf("ReadAudio: %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Fatalf("audio bytes changed: %v", got)
	}
	entries, _ := os.ReadDir(s.Paths().RunDir(id))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestCreateAudioAbortCleansUp(t *testing.T) {
	s := NewFileStore(t.TempDir())
	id := uuid.NewString()

	p, err := s.CreateAudio(id)
	if err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	_, _ = p.Write([]byte("partial"))
	p.Abort()
	p.Abort()

	if _, err := os.Stat(s.Paths().RunDir(id)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("run dir should be removed after abort, got %v", err)
	}
	if _, err := p.Commit(); err == nil {
		t.Fatalf("commit after abort must fail")
	}
}

func TestCommitRejectsEmptyAudio(t *testing.T) {
	s := NewFileStore(t.TempDir())
	id := uuid.NewString()
	p, err := s.CreateAudio(id)
	if err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if _, err := p.Commit(); err == nil {
		t.Fatalf("expected error for empty audio")
	}
	if _, err := os.Stat(s.Paths().RunAudio(id)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no audio file expected")
	}
}

func TestDistinctRunsDoNotCollide(t *testing.T) {
	s := NewFileStore(t.TempDir())
	a, b := uuid.NewString(), uuid.NewString()
	for id, data := range map[string]string{a: "first", b: "second"} {
		p, err := s.CreateAudio(id)
		if err != nil {
			t.Fatalf("CreateAudio: %v", err)
		}
		_, _ = p.Write([]byte(data))
		if _, err := p.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	gotA, _ := s.ReadAudio(a)
	gotB, _ := s.ReadAudio(b)
	if string(gotA) != "first" || string(gotB) != "second" {
		t.Fatalf("runs collided: %q %q", gotA, gotB)
	}
}

func TestRunIDValidation(t *testing.T) {
	s := NewFileStore(t.TempDir())
	for _, id := range []string{"", "../etc", "output", filepath.Join("a", "b")} {
		if _, err := s.CreateAudio(id); !errors.Is(err, ErrInvalidRunID) {
			t.Fatalf("CreateAudio(%q): expected ErrInvalidRunID, got %v", id, err)
		}
		if _, _, err := s.OpenAudio(id); !errors.Is(err, ErrInvalidRunID) {
			t.Fatalf("OpenAudio(%q): expected ErrInvalidRunID, got %v", id, err)
		}
	}
	if _, _, err := s.OpenAudio(uuid.NewString()); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	s := NewFileStore(t.TempDir())
	id := uuid.NewString()
	if err := s.WriteFile(id, "rewritten.txt", []byte("Greetings")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(s.Paths().RunRewritten(id))
	if err != nil || string(got) != "Greetings" {
		t.Fatalf("unexpected content %q err %v", got, err)
	}
}
