// Package photos stores processed item photos and maps them to public URLs.
package photos

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Store persists photos. Save returns the URL recorded on the item; Delete
// accepts a URL previously returned by Save.
type Store interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName builds a unique file name "<uuid>_<base>.jpg" from an upload name.
func objectName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-.")
	if len(base) > 64 {
		base = base[:64]
	}

	id := uuid.New().String()
	if base == "" {
		return id + ".jpg"
	}
	return id + "_" + base + ".jpg"
}
