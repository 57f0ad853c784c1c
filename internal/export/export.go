// Package export writes persisted results to files in markdown, HTML or JSON
// and keeps an export history in the store.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/store"
)

// Supported export formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// ErrUnknownFormat indicates an unsupported export format name.
var ErrUnknownFormat = errors.New("unknown export format")

// Manager writes result documents into the output directory.
type Manager struct {
	store  *store.Store
	dir    string
	logger *zap.Logger
}

// New creates a manager writing under dir. The directory is created if
// missing.
func New(st *store.Store, dir string, logger *zap.Logger) (*Manager, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if dir == "" {
		return nil, errors.New("output dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Manager{store: st, dir: dir, logger: logger}, nil
}

var htmlPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} Clone Plan</title>
<style>body{font-family:sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem}pre{white-space:pre-wrap}</style>
</head>
<body>
<pre>{{.Plan}}</pre>
</body>
</html>
`))

// jsonDocument is the JSON export shape.
type jsonDocument struct {
	ResultID    string          `json:"result_id"`
	TaskID      string          `json:"task_id"`
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Plan        string          `json:"plan"`
	Design      json.RawMessage `json:"design,omitempty"`
	Components  json.RawMessage `json:"components,omitempty"`
	Pages       json.RawMessage `json:"pages,omitempty"`
	Structure   json.RawMessage `json:"structure,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Export writes the result in the requested format, records the export and
// flags the result as exported. Returns the written file path.
func (m *Manager) Export(ctx context.Context, resultID, format string) (string, error) {
	result, err := m.store.GetResult(ctx, resultID)
	if err != nil {
		return "", err
	}

	var (
		body []byte
		ext  string
	)
	switch format {
	case FormatMarkdown:
		body = []byte(result.PlanText)
		ext = "md"
	case FormatHTML:
		var sb strings.Builder
		err := htmlPage.Execute(&sb, struct {
			Title string
			Plan  string
		}{Title: result.Title, Plan: result.PlanText})
		if err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
		body = []byte(sb.String())
		ext = "html"
	case FormatJSON:
		doc := jsonDocument{
			ResultID:    result.ID,
			TaskID:      result.TaskID,
			URL:         result.URL,
			Title:       result.Title,
			Description: result.Description,
			Plan:        result.PlanText,
			Design:      rawOrNil(result.DesignJSON),
			Components:  rawOrNil(result.ComponentsJSON),
			Pages:       rawOrNil(result.PagesJSON),
			Structure:   rawOrNil(result.StructureJSON),
			CreatedAt:   result.CreatedAt,
		}
		body, err = json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		ext = "json"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	name := fmt.Sprintf("plan_%s_%s.%s", result.ID, time.Now().Format("20060102_150405"), ext)
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	if err := m.store.RecordExport(ctx, &store.ExportRecord{
		ResultID: result.ID,
		Format:   format,
		FilePath: path,
	}); err != nil {
		return "", err
	}
	if err := m.store.MarkExported(ctx, result.ID); err != nil {
		return "", err
	}

	m.logger.Info("result exported",
		zap.String("result_id", result.ID),
		zap.String("format", format),
		zap.String("path", path))

	return path, nil
}

// CleanupFiles removes exported files older than maxAge and returns how many
// were deleted. Missing directories are not an error.
func (m *Manager) CleanupFiles(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil {
			m.logger.Warn("failed to remove stale export", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
