// Package filestore keeps message attachments on an afero filesystem.
// Messages record only the returned path; bytes never touch MongoDB.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Prefix is the directory every attachment lives under.
const Prefix = "group_messages"

var (
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrBadPath         = errors.New("invalid media path")
)

// Store saves and serves attachments.
type Store struct {
	fs       afero.Fs
	maxBytes int64
}

// New wraps fs. maxBytes <= 0 disables the size check.
func New(fs afero.Fs, maxBytes int64) *Store {
	return &Store{fs: fs, maxBytes: maxBytes}
}

// NewOS stores files under root on the local disk.
func NewOS(root string, maxBytes int64) (*Store, error) {
	base := afero.NewOsFs()
	if err := base.MkdirAll(path.Join(root, Prefix), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return New(afero.NewBasePathFs(base, root), maxBytes), nil
}

// NewMemory is an in-memory store for tests.
func NewMemory(maxBytes int64) *Store {
	return New(afero.NewMemMapFs(), maxBytes)
}

// MaxBytes returns the configured upload limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save writes r as a new attachment with the given extension and returns
// its path (group_messages/msg_<uuid>.<ext>). Nothing is left behind on
// failure.
func (s *Store) Save(ctx context.Context, ext string, r io.Reader) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if _, ok := models.MediaCategory(ext); !ok {
		return "", ErrUnsupportedType
	}
	if err := s.fs.MkdirAll(Prefix, 0o755); err != nil {
		return "", err
	}

	p := path.Join(Prefix, "msg_"+uuid.NewString()+"."+ext)
	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: src})
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = s.fs.Remove(p)
		return "", copyErr
	case closeErr != nil:
		_ = s.fs.Remove(p)
		return "", closeErr
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = s.fs.Remove(p)
		return "", ErrTooLarge
	}
	return p, nil
}

// Open returns the attachment at p for reading.
func (s *Store) Open(p string) (afero.File, error) {
	if err := checkPath(p); err != nil {
		return nil, err
	}
	return s.fs.Open(p)
}

// Remove deletes the attachment at p. A missing file is not an error.
func (s *Store) Remove(p string) error {
	if p == "" {
		return nil
	}
	if err := checkPath(p); err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether an attachment is present at p.
func (s *Store) Exists(p string) bool {
	if checkPath(p) != nil {
		return false
	}
	ok, _ := afero.Exists(s.fs, p)
	return ok
}

// Category returns the media category of a stored path.
func Category(p string) string {
	c, _ := models.MediaCategory(path.Ext(p))
	return c
}

func checkPath(p string) error {
	clean := path.Clean(p)
	if clean != p || !strings.HasPrefix(clean, Prefix+"/") || strings.Contains(clean, "..") {
		return ErrBadPath
	}
	return nil
}

// ctxReader stops a copy when the request is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
