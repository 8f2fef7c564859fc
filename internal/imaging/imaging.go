// Package imaging normalizes uploaded item photos.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/erazemk/auditit/internal/errs"
)

// Defaults used when a Processor field is zero.
const (
	DefaultMaxDimension = 1024
	DefaultJPEGQuality  = 85
	DefaultMaxBytes     = 10 << 20
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a processed image ready to be stored.
type Photo struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Processor validates, downscales and re-encodes photos as JPEG.
type Processor struct {
	MaxDimension int
	JPEGQuality  int
	MaxBytes     int64
}

// Process sniffs the format from the bytes (not the client's headers), only
// accepts JPEG and PNG, shrinks the image so neither side exceeds
// MaxDimension and re-encodes it. Rejected input yields a validation error.
func (p Processor) Process(r io.Reader) (*Photo, error) {
	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, errs.Validation("photo exceeds %d bytes", maxBytes)
	}

	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, errs.Validation("unsupported photo format %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Validation("decoding photo: %v", err)
	}

	img = downscale(img, p.maxDimension())

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality()}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	bounds := img.Bounds()
	return &Photo{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

func (p Processor) maxDimension() int {
	if p.MaxDimension <= 0 {
		return DefaultMaxDimension
	}
	return p.MaxDimension
}

func (p Processor) quality() int {
	if p.JPEGQuality < 1 || p.JPEGQuality > 100 {
		return DefaultJPEGQuality
	}
	return p.JPEGQuality
}

// downscale fits img into a maxDim square keeping its aspect ratio, using
// Catmull-Rom interpolation. Images already within bounds are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
