package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactWriter saves exported text as standalone files.
type ArtifactWriter struct {
	baseDir string
	now     func() time.Time
}

func NewArtifactWriter(baseDir string) *ArtifactWriter {
	return &ArtifactWriter{baseDir: baseDir, now: time.Now}
}

// Write saves text to baseDir/<date>/artifacts/<segment>-<unix>.<ext> and
// returns the path. rawURL names the file after its first request.
func (w *ArtifactWriter) Write(format, rawURL, text string) (string, error) {
	now := w.now().UTC()
	dir := filepath.Join(w.baseDir, now.Format("2006-01-02"), "artifacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s-%s-%d%s", PathSegment(rawURL), format, now.UnixNano(), ExtensionFor(format))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	slog.Debug("export artifact written", "path", path, "size", len(text))
	return path, nil
}

// ExtensionFor returns the file extension for an export format name.
func ExtensionFor(format string) string {
	switch format {
	case "curl":
		return ".sh"
	case "postman", "responses-json", "har":
		return ".json"
	case "markdown", "markdown-table":
		return ".md"
	default:
		return ".txt"
	}
}

// PathSegment turns a URL path into a filesystem-safe name.
func PathSegment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "export"
	}
	p := strings.Trim(parsed.Path, "/")
	if p == "" {
		return "root"
	}
	p = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, p)
	if len(p) > 64 {
		p = p[:64]
	}
	return p
}

// ShortID returns the first 8 characters of id.
func ShortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
