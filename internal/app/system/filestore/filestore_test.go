package filestore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/filestore"
)

func TestSave_PathShapeAndContent(t *testing.T) {
	s := filestore.NewMemory(1024)
	p, err := s.Save(context.Background(), ".PNG", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(p, "group_messages/msg_") || !strings.HasSuffix(p, ".png") {
		t.Errorf("unexpected path %q", p)
	}

	f, err := s.Open(p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	b, _ := io.ReadAll(f)
	if string(b) != "image-bytes" {
		t.Errorf("content: got %q", b)
	}
	if filestore.Category(p) != "image" {
		t.Errorf("Category: got %q", filestore.Category(p))
	}
}

func TestSave_RejectsUnsupportedType(t *testing.T) {
	s := filestore.NewMemory(0)
	if _, err := s.Save(context.Background(), "exe", strings.NewReader("x")); !errors.Is(err, filestore.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestSave_RejectsOversizeAndCleansUp(t *testing.T) {
	s := filestore.NewMemory(4)
	_, err := s.Save(context.Background(), "txt", bytes.NewReader([]byte("12345")))
	if !errors.Is(err, filestore.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	if _, err := s.Save(context.Background(), "txt", bytes.NewReader([]byte("1234"))); err != nil {
		t.Errorf("file exactly at the limit should be accepted: %v", err)
	}
}

func TestRemove_MissingIsNotError(t *testing.T) {
	s := filestore.NewMemory(0)
	p, err := s.Save(context.Background(), "pdf", strings.NewReader("doc"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Remove(p); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if s.Exists(p) {
		t.Error("file should be gone")
	}
	if err := s.Remove(p); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
	if err := s.Remove(""); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}

func TestOpen_RejectsTraversal(t *testing.T) {
	s := filestore.NewMemory(0)
	for _, p := range []string{"../etc/passwd", "group_messages/../secret", "other/msg.png", "/group_messages/x.png"} {
		if _, err := s.Open(p); !errors.Is(err, filestore.ErrBadPath) {
			t.Errorf("Open(%q): expected ErrBadPath, got %v", p, err)
		}
	}
}
