package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
	"github.com/yigit/studentinfo/internal/pkg/logger"
)

const (
	// sniffLen is how much of the content is inspected when the filename has no extension
	sniffLen = 3072
	// maxExtLen bounds the extension kept from the uploaded filename
	maxExtLen = 10
	// hiddenPrefix marks temp and probe files that are never artifacts
	hiddenPrefix = "."
)

// LocalStorage stores artifacts as flat files under a single root directory.
type LocalStorage struct {
	basePath string // Absolute root directory of the artifact store
	maxSize  int64  // Per-artifact size cap in bytes, 0 disables the check
}

var _ ArtifactStore = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage rooted at basePath.
// The root is created if needed and probed for writability once; an unusable root fails here
// rather than on the first upload.
func NewLocalStorage(basePath string, maxSize int64) (*LocalStorage, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("artifact root is required")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact root %s: %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", absPath).Msg("Failed to create artifact directory")
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", absPath, err)
	}

	probe, err := os.CreateTemp(absPath, hiddenPrefix+"probe-*")
	if err != nil {
		logger.Error().Err(err).Str("path", absPath).Msg("Artifact directory is not writable")
		return nil, fmt.Errorf("artifact directory %s is not writable: %w", absPath, err)
	}
	probeName := probe.Name()
	_ = probe.Close()
	if err := os.Remove(probeName); err != nil {
		return nil, fmt.Errorf("failed to remove probe file in %s: %w", absPath, err)
	}

	logger.Info().Str("path", absPath).Int64("max_size", maxSize).Msg("Artifact storage directory ready")

	return &LocalStorage{
		basePath: absPath,
		maxSize:  maxSize,
	}, nil
}

// Root returns the absolute artifact directory
func (ls *LocalStorage) Root() string {
	return ls.basePath
}

// Store writes content to a temp file in the root and renames it into place once it is
// fully written and synced, so a ref never names a partial artifact.
func (ls *LocalStorage) Store(ctx context.Context, content io.Reader, originalName string) (string, error) {
	if content == nil {
		return "", apperrors.NewValidationError("file", "artifact content is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("%w: failed to read uploaded content: %w", apperrors.ErrIOFailure, err)
	}
	head = head[:n]

	ref := uuid.NewString() + extensionFor(originalName, head)

	tmp, err := os.CreateTemp(ls.basePath, hiddenPrefix+"upload-*")
	if err != nil {
		logger.Error().Err(err).Str("path", ls.basePath).Msg("Failed to create temp artifact file")
		return "", fmt.Errorf("%w: failed to create artifact file: %w", apperrors.ErrIOFailure, err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	var body io.Reader = io.MultiReader(bytes.NewReader(head), content)
	if ls.maxSize > 0 {
		body = io.LimitReader(body, ls.maxSize+1)
	}

	written, err := io.Copy(tmp, body)
	if err != nil {
		discard()
		logger.Error().Err(err).Str("path", tmpPath).Msg("Failed to copy artifact content")
		return "", fmt.Errorf("%w: failed to write artifact content: %w", apperrors.ErrIOFailure, err)
	}
	if ls.maxSize > 0 && written > ls.maxSize {
		discard()
		return "", apperrors.ErrArtifactTooLarge
	}

	if err := tmp.Sync(); err != nil {
		discard()
		return "", fmt.Errorf("%w: failed to sync artifact: %w", apperrors.ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: failed to close artifact: %w", apperrors.ErrIOFailure, err)
	}

	if err := os.Rename(tmpPath, filepath.Join(ls.basePath, ref)); err != nil {
		_ = os.Remove(tmpPath)
		logger.Error().Err(err).Str("ref", ref).Msg("Failed to move artifact into place")
		return "", fmt.Errorf("%w: failed to publish artifact: %w", apperrors.ErrIOFailure, err)
	}

	logger.Info().Str("filename", originalName).Str("ref", ref).Int64("size", written).Msg("Artifact stored")
	return ref, nil
}

// Remove deletes the artifact named by ref.
// Returns nil if deletion is successful or if the artifact doesn't exist.
func (ls *LocalStorage) Remove(ctx context.Context, ref string) error {
	physicalPath, err := ls.Path(ref)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(physicalPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug().Str("ref", ref).Msg("Artifact to remove does not exist")
			return nil
		}
		logger.Error().Err(err).Str("ref", ref).Msg("Failed to remove artifact")
		return fmt.Errorf("%w: failed to remove artifact %s: %w", apperrors.ErrIOFailure, ref, err)
	}

	logger.Info().Str("ref", ref).Msg("Artifact removed")
	return nil
}

// Exists reports whether the artifact named by ref is present
func (ls *LocalStorage) Exists(ctx context.Context, ref string) (bool, error) {
	physicalPath, err := ls.Path(ref)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(physicalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to stat artifact %s: %w", apperrors.ErrIOFailure, ref, err)
	}
	return info.Mode().IsRegular(), nil
}

// List returns every artifact in the root. Temp and probe files are skipped.
func (ls *LocalStorage) List(ctx context.Context) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list artifacts: %w", apperrors.ErrIOFailure, err)
	}

	artifacts := make([]ArtifactInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), hiddenPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // removed while listing
			}
			return nil, fmt.Errorf("%w: failed to stat artifact %s: %w", apperrors.ErrIOFailure, entry.Name(), err)
		}
		artifacts = append(artifacts, ArtifactInfo{
			Ref:     entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return artifacts, nil
}

// Path returns the full filesystem path for a ref.
// Refs that could escape the root are rejected.
func (ls *LocalStorage) Path(ref string) (string, error) {
	if !validRef(ref) {
		return "", apperrors.ErrInvalidArtifactRef
	}
	return filepath.Join(ls.basePath, ref), nil
}

func validRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, hiddenPrefix) {
		return false
	}
	if strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "..") {
		return false
	}
	return filepath.Base(ref) == ref
}

// extensionFor keeps the uploaded file's extension when it is plain alphanumeric,
// otherwise infers one from the content.
func extensionFor(originalName string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if isPlainExt(ext) {
		return ext
	}
	if len(head) == 0 {
		return ""
	}
	return mimetype.Detect(head).Extension()
}

func isPlainExt(ext string) bool {
	if len(ext) < 2 || len(ext) > maxExtLen || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
