package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lanshare/lanshare/internal/models"
)

// ErrInvalidName is returned for client-supplied file names that are empty,
// contain path separators, or would otherwise resolve outside the upload
// directory.
var ErrInvalidName = errors.New("invalid file name")

// FileStore wraps a single flat directory of shareable files. All metadata is
// derived from filesystem attributes; no sidecar state is kept.
type FileStore struct {
	dir    string
	logger *logrus.Logger
	tracer trace.Tracer
}

// NewFileStore resolves dir to an absolute path and creates it if missing.
func NewFileStore(dir string, logger *logrus.Logger) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", abs, err)
	}

	return &FileStore{
		dir:    abs,
		logger: logger,
		tracer: otel.Tracer("lanshare"),
	}, nil
}

// Dir returns the absolute path of the upload directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// List enumerates the regular files in the upload directory, newest first.
func (s *FileStore) List(ctx context.Context) ([]models.FileEntry, error) {
	_, span := s.tracer.Start(ctx, "list_files")
	defer span.End()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	entries := make([]models.FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Entry disappeared between ReadDir and Stat
			s.logger.Warnf("Failed to stat %s: %v", de.Name(), err)
			continue
		}
		entries = append(entries, models.FileEntry{
			Name:    de.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})

	span.SetAttributes(attribute.Int("files.count", len(entries)))
	return entries, nil
}

// Save persists the byte stream under a collision-safe variant of name and
// returns the name actually used. If name is taken, base_1.ext, base_2.ext,
// ... are tried until a free slot is found, so existing files are never
// overwritten.
func (s *FileStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	_, span := s.tracer.Start(ctx, "save_file")
	defer span.End()

	if err := validateName(name); err != nil {
		span.RecordError(err)
		return "", err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		// A dotfile's leading dot is not an extension (".bashrc" suffixes
		// as ".bashrc_1", not "_1.bashrc")
		base, ext = name, ""
	}

	// Two concurrent uploads of the same name can both see a slot as free
	// here and the later writer wins. Known check-then-act window.
	final := name
	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(s.dir, final)); errors.Is(err, fs.ErrNotExist) {
			break
		}
		final = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}

	dst, err := os.Create(filepath.Join(s.dir, final))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to create %s: %w", final, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, r)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to write %s: %w", final, err)
	}

	s.logger.Infof("Saved %s (%d bytes)", final, written)
	span.SetAttributes(
		attribute.String("file.name", final),
		attribute.Int64("file.size", written),
	)
	return final, nil
}

// Delete removes the named file. A missing file reports fs.ErrNotExist.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	_, span := s.tracer.Start(ctx, "delete_file")
	defer span.End()

	path, err := s.resolve(name)
	if err != nil {
		span.RecordError(err)
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if info.IsDir() {
		return fs.ErrNotExist
	}

	if err := os.Remove(path); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	s.logger.Infof("Deleted %s", name)
	return nil
}

// Open returns a readable handle and metadata for the named file, for
// streaming downloads. Directories report fs.ErrNotExist.
func (s *FileStore) Open(ctx context.Context, name string) (*os.File, fs.FileInfo, error) {
	_, span := s.tracer.Start(ctx, "open_file")
	defer span.End()

	path, err := s.resolve(name)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		span.RecordError(err)
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fs.ErrNotExist
	}

	return f, info, nil
}

// resolve validates a client-supplied name and returns the absolute path it
// maps to inside the upload directory.
func (s *FileStore) resolve(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, s.dir+string(os.PathSeparator)) {
		return "", ErrInvalidName
	}
	return abs, nil
}

// validateName rejects names that are empty, carry path separators or NUL
// bytes, or are not a plain base name. Client input is never trusted to be a
// safe path component.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidName
	}
	if filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}
