// Package uploads stores the files the clinic attaches to records: patient
// photos, payment receipts and clinical attachments. Content lives on disk
// under one root directory and metadata lives in the record store.
package uploads

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/auth"
	"github.com/clinica/clinica/pkg/wallclock"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// MaxFileSize is the largest accepted upload (10 MB).
const MaxFileSize = 10 * 1024 * 1024

const (
	CategoryPhoto      = "foto"
	CategoryReceipt    = "comprovante"
	CategoryAttachment = "anexo"
)

var AllowedCategories = map[string]bool{
	CategoryPhoto:      true,
	CategoryReceipt:    true,
	CategoryAttachment: true,
}

var AllowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
}

// Metadata describes a stored file.
type Metadata struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"sha256"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// MetadataRepository persists upload metadata.
type MetadataRepository interface {
	Insert(ctx context.Context, m *Metadata) error
	Get(ctx context.Context, id string) (*Metadata, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, category string, limit, offset int) ([]*Metadata, int, error)
}

// Store keeps file content under root, one file per upload id.
type Store struct {
	root    string
	meta    MetadataRepository
	maxSize int64
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStore creates root if needed.
func NewStore(root string, meta MetadataRepository, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &Store{root: root, meta: meta, maxSize: MaxFileSize, logger: logger, now: wallclock.Now}, nil
}

// path maps an id to its file. Ids that are not UUIDs never reach the
// filesystem.
func (s *Store) path(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.NotFound("upload")
	}
	return filepath.Join(s.root, u.String()), nil
}

// sniff reads the head of content to detect its type when the client sent
// none, and returns a reader that still yields the whole content.
func sniff(declared string, content io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	ct := declared
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(head)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	return ct, io.MultiReader(bytes.NewReader(head), content), nil
}

// Upload validates meta, writes content to disk while hashing it and records
// the metadata. FileName, Category and ContentType come from meta.
func (s *Store) Upload(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	meta.FileName = filepath.Base(strings.TrimSpace(meta.FileName))
	if meta.FileName == "" || meta.FileName == "." || meta.FileName == string(filepath.Separator) {
		return nil, apperr.Validation("file name is required")
	}
	if !AllowedCategories[meta.Category] {
		return nil, apperr.Validation("invalid category %q", meta.Category)
	}

	ct, body, err := sniff(meta.ContentType, content)
	if err != nil {
		return nil, apperr.Storage("read upload", err)
	}
	if !AllowedContentTypes[ct] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, ct)
	}
	meta.ContentType = ct

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return nil, apperr.Storage("create upload file", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), io.LimitReader(body, s.maxSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, apperr.Storage("write upload file", err)
	}
	if n > s.maxSize {
		return nil, ErrFileTooLarge
	}

	meta.ID = uuid.New().String()
	meta.Size = n
	meta.Hash = hex.EncodeToString(h.Sum(nil))
	meta.UploadedBy = auth.UsernameFromContext(ctx)
	meta.CreatedAt = s.now()

	final, _ := s.path(meta.ID)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return nil, apperr.Storage("store upload file", err)
	}
	if err := s.meta.Insert(ctx, &meta); err != nil {
		os.Remove(final)
		return nil, err
	}

	s.logger.Info().Str("upload_id", meta.ID).Str("category", meta.Category).Int64("size", meta.Size).Msg("file uploaded")
	out := meta
	return &out, nil
}

// Open returns the content and metadata of an upload. The caller closes the
// reader.
func (s *Store) Open(ctx context.Context, id string) (io.ReadCloser, *Metadata, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, nil, err
	}
	meta, err := s.meta.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, apperr.NotFound("upload content")
	}
	if err != nil {
		return nil, nil, apperr.Storage("open upload file", err)
	}
	return f, meta, nil
}

func (s *Store) Metadata(ctx context.Context, id string) (*Metadata, error) {
	if _, err := s.path(id); err != nil {
		return nil, err
	}
	return s.meta.Get(ctx, id)
}

// Exists returns apperr.ErrNotFound when id names no upload.
func (s *Store) Exists(ctx context.Context, id string) error {
	_, err := s.Metadata(ctx, id)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := s.meta.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("upload_id", id).Msg("upload file not removed")
	}
	return nil
}

func (s *Store) List(ctx context.Context, category string, limit, offset int) ([]*Metadata, int, error) {
	if category != "" && !AllowedCategories[category] {
		return nil, 0, apperr.Validation("invalid category %q", category)
	}
	out, total, err := s.meta.List(ctx, category, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		out = []*Metadata{}
	}
	return out, total, nil
}
