package service

import (
	"archive/zip"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/gitrepo"
)

// expansionFactor bounds total uncompressed bytes relative to the upload limit.
const expansionFactor = 20

type archiveFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

// ArchiveUpload carries upload metadata and stream reader.
type ArchiveUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// ArchiveServiceConfig holds validation parameters.
type ArchiveServiceConfig struct {
	MaxFileSize int64
	TempRoot    string
}

// ArchiveService stores uploaded submission bundles and unpacks them into scoped workspaces.
type ArchiveService struct {
	storage archiveFileStorage
	logger  *zap.Logger
	cfg     ArchiveServiceConfig
}

// NewArchiveService constructs an ArchiveService.
func NewArchiveService(storage archiveFileStorage, logger *zap.Logger, cfg ArchiveServiceConfig) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	return &ArchiveService{storage: storage, logger: logger, cfg: cfg}
}

// Store validates an uploaded zip and persists it, returning its storage key.
func (s *ArchiveService) Store(upload ArchiveUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mtype, err := mimetype.DetectReader(upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if !mtype.Is("application/zip") {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("expected a zip archive, got %s", mtype.String()))
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	key, err := s.storage.SaveStream(s.generateFilename(upload.Filename), upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist archive")
	}
	return key, nil
}

// Extract unpacks the stored archive into a fresh workspace. Callers must Release it.
func (s *ArchiveService) Extract(key string) (*gitrepo.Workspace, error) {
	return s.ExtractFile(s.storage.Path(key))
}

// ExtractFile unpacks a zip on disk into a fresh workspace. Callers must Release it.
func (s *ArchiveService) ExtractFile(path string) (*gitrepo.Workspace, error) {
	reader, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid zip archive")
	}
	defer reader.Close()

	limit := s.cfg.MaxFileSize * expansionFactor
	var declared uint64
	for _, f := range reader.File {
		declared += f.UncompressedSize64
	}
	if declared > uint64(limit) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("archive expands beyond %d bytes", limit))
	}

	ws, err := gitrepo.Acquire(s.cfg.TempRoot, "submissions-")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create workspace")
	}

	remaining := limit
	for _, f := range reader.File {
		written, err := s.extractEntry(ws.Dir, f, remaining)
		if err != nil {
			_ = ws.Release()
			return nil, err
		}
		remaining -= written
	}
	s.logger.Sugar().Debugw("archive extracted", "archive", filepath.Base(path), "entries", len(reader.File), "dir", ws.Dir)
	return ws, nil
}

func (s *ArchiveService) extractEntry(root string, f *zip.File, remaining int64) (int64, error) {
	target, err := safeJoin(root, f.Name)
	if err != nil {
		return 0, err
	}
	if f.FileInfo().IsDir() {
		return 0, os.MkdirAll(target, 0o755)
	}
	if !f.Mode().IsRegular() {
		s.logger.Sugar().Warnw("skipping non-regular archive entry", "entry", f.Name)
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create directory")
	}

	src, err := f.Open()
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("corrupt archive entry %s", f.Name))
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write archive entry")
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(src, remaining+1))
	if err != nil {
		return written, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("corrupt archive entry %s", f.Name))
	}
	if written > remaining {
		return written, appErrors.Clone(appErrors.ErrValidation, "archive expands beyond size limit")
	}
	return written, nil
}

// Delete removes a stored archive.
func (s *ArchiveService) Delete(key string) error {
	return s.storage.Delete(key)
}

func (s *ArchiveService) generateFilename(original string) string {
	base := sanitize(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if base == "" {
		base = "submissions"
	}
	return fmt.Sprintf("uploads/%s_%d_%s.zip", base, time.Now().Unix(), randomSuffix())
}

func safeJoin(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("archive entry %q escapes extraction root", name))
	}
	return filepath.Join(root, cleaned), nil
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
