// Package records reads conversation JSONL inputs and writes result JSONL
// outputs. Locations prefixed with blob:// resolve against blob storage;
// everything else is a local file path.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/pkg/storage"
)

// BlobScheme marks a location as a blob storage key.
const BlobScheme = "blob://"

const contentType = "application/x-ndjson"

// ErrEmptyLocation is returned for an empty input or output location.
var ErrEmptyLocation = errors.New("location must not be empty")

// Location is a parsed input or output path.
type Location struct {
	Path string
	Blob bool
}

// ParseLocation splits the blob:// scheme from raw.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, ErrEmptyLocation
	}
	if key, ok := strings.CutPrefix(raw, BlobScheme); ok {
		if err := storage.ValidateKey(key); err != nil {
			return Location{}, err
		}
		return Location{Path: key, Blob: true}, nil
	}
	return Location{Path: raw}, nil
}

func (l Location) String() string {
	if l.Blob {
		return BlobScheme + l.Path
	}
	return l.Path
}

// Store resolves locations to local files or blobs.
type Store struct {
	blobs  storage.System
	logger *slog.Logger
}

// New creates a Store. blobs may be nil, in which case blob locations fail
// with storage.ErrNotConfigured.
func New(blobs storage.System, logger *slog.Logger) *Store {
	return &Store{
		blobs:  blobs,
		logger: logger.With("system", "records"),
	}
}

// ReadConversations decodes one conversation per line from raw.
func (s *Store) ReadConversations(ctx context.Context, raw string) ([]conversation.Conversation, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}

	r, err := s.open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	convs, err := conversation.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}

	s.logger.InfoContext(ctx, "conversations loaded", "location", loc.String(), "count", len(convs))
	return convs, nil
}

// WriteResults encodes one JSON record per line to raw, in slice order.
func WriteResults[T any](ctx context.Context, s *Store, raw string, results []T) error {
	loc, err := ParseLocation(raw)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, results); err != nil {
		return err
	}

	if err := s.write(ctx, loc, &buf); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "results saved", "location", loc.String(), "count", len(results))
	return nil
}

// Encode writes each result as a single JSON line.
func Encode[T any](w io.Writer, results []T) error {
	enc := json.NewEncoder(w)
	for i, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode result %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if loc.Blob {
		if s.blobs == nil {
			return nil, storage.ErrNotConfigured
		}
		return s.blobs.Download(ctx, loc.Path)
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func (s *Store) write(ctx context.Context, loc Location, r io.Reader) error {
	if loc.Blob {
		if s.blobs == nil {
			return storage.ErrNotConfigured
		}
		return s.blobs.Upload(ctx, loc.Path, r, contentType)
	}

	if dir := filepath.Dir(loc.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(loc.Path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
