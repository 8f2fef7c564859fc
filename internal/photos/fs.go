package photos

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FS stores photos in a local directory served under URLPrefix.
type FS struct {
	dir       string
	urlPrefix string
}

// NewFS creates dir if needed. urlPrefix is the path the router serves the
// directory under, for example "/photos/".
func NewFS(dir, urlPrefix string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating photo directory: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &FS{dir: dir, urlPrefix: urlPrefix}, nil
}

// Save writes data to a new file and returns its URL.
func (s *FS) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	file := objectName(name)
	if err := os.WriteFile(filepath.Join(s.dir, file), data, 0o644); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return s.urlPrefix + file, nil
}

// Delete removes the file behind url. Unknown URLs and missing files are ignored.
func (s *FS) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.urlPrefix) {
		return nil
	}
	file := path.Base(strings.TrimPrefix(url, s.urlPrefix))
	if file == "." || file == "/" {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, file))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}

// Prefix returns the URL prefix photos are served under.
func (s *FS) Prefix() string {
	return s.urlPrefix
}

// Handler serves stored photos. Mount it at Prefix.
func (s *FS) Handler() http.Handler {
	return http.StripPrefix(s.urlPrefix, http.FileServer(http.Dir(s.dir)))
}
