package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lanshare/lanshare/internal/models"
)

// ErrEmptyContent is returned when an added snippet is empty after trimming.
var ErrEmptyContent = errors.New("content is empty")

// TextStore persists the shared text snippets as one JSON array in a single
// file. Every mutation is load-modify-save over the whole file with no
// locking, so concurrent writers race and the last one wins. That relaxed
// behavior is deliberate for a single-user LAN tool.
type TextStore struct {
	path   string
	logger *logrus.Logger
	tracer trace.Tracer
}

// NewTextStore creates a store backed by the given file. The file is created
// lazily on first save; a missing file reads as an empty list.
func NewTextStore(path string, logger *logrus.Logger) *TextStore {
	return &TextStore{
		path:   path,
		logger: logger,
		tracer: otel.Tracer("lanshare"),
	}
}

// Path returns the text store file location.
func (s *TextStore) Path() string {
	return s.path
}

// LoadAll reads the full snippet list, newest first. A malformed store file
// is a hard error; no repair is attempted.
func (s *TextStore) LoadAll(ctx context.Context) ([]models.TextSnippet, error) {
	_, span := s.tracer.Start(ctx, "load_texts")
	defer span.End()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.TextSnippet{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read text store: %w", err)
	}

	var snippets []models.TextSnippet
	if err := json.Unmarshal(data, &snippets); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse text store %s: %w", s.path, err)
	}

	span.SetAttributes(attribute.Int("texts.count", len(snippets)))
	return snippets, nil
}

// SaveAll replaces the store file with the serialized list. Non-ASCII content
// is written literally and the array is indented for operability. The write
// goes through a temp file in the same directory plus rename, so readers
// never observe a half-written file.
func (s *TextStore) SaveAll(ctx context.Context, snippets []models.TextSnippet) error {
	_, span := s.tracer.Start(ctx, "save_texts")
	defer span.End()

	if snippets == nil {
		snippets = []models.TextSnippet{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snippets); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to serialize texts: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".texts-*.json")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create temp text store: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		span.RecordError(err)
		return fmt.Errorf("failed to write text store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		span.RecordError(err)
		return fmt.Errorf("failed to close text store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		span.RecordError(err)
		return fmt.Errorf("failed to replace text store: %w", err)
	}

	span.SetAttributes(attribute.Int("texts.count", len(snippets)))
	return nil
}

// Add trims content, stamps it with a fresh id and the current time, and
// prepends it so the list stays newest first by construction.
func (s *TextStore) Add(ctx context.Context, content string) (models.TextSnippet, error) {
	ctx, span := s.tracer.Start(ctx, "add_text")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		span.RecordError(ErrEmptyContent)
		return models.TextSnippet{}, ErrEmptyContent
	}

	snippets, err := s.LoadAll(ctx)
	if err != nil {
		return models.TextSnippet{}, err
	}

	snippet := models.TextSnippet{
		ID:      uuid.NewString()[:8],
		Content: content,
		Time:    time.Now().Format(models.SnippetTimeLayout),
	}

	snippets = append([]models.TextSnippet{snippet}, snippets...)
	if err := s.SaveAll(ctx, snippets); err != nil {
		return models.TextSnippet{}, err
	}

	s.logger.Infof("Added text snippet %s (%d chars)", snippet.ID, len(content))
	span.SetAttributes(attribute.String("text.id", snippet.ID))
	return snippet, nil
}

// Remove deletes the snippet with the given id. A nonexistent id is a no-op.
func (s *TextStore) Remove(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "remove_text")
	defer span.End()

	snippets, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}

	kept := snippets[:0]
	for _, sn := range snippets {
		if sn.ID != id {
			kept = append(kept, sn)
		}
	}

	return s.SaveAll(ctx, kept)
}

// Clear unconditionally replaces the store with an empty list.
func (s *TextStore) Clear(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "clear_texts")
	defer span.End()

	s.logger.Info("Clearing all text snippets")
	return s.SaveAll(ctx, nil)
}
