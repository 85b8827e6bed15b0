// Package imagefit prepares rich menu images: it scales a source image to fit
// the fixed menu canvas without cropping and pads the short edges.
package imagefit

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEGIF  = "image/gif"

	// DefaultQuality is the JPEG quality used for fitted output.
	DefaultQuality = 90
	// MaxUploadSize is the platform limit for rich menu images.
	MaxUploadSize = 1 << 20
)

// Black is the default padding colour.
var Black = color.RGBA{A: 0xFF}

// DetectType returns the MIME type of an image, preferring magic bytes and
// falling back to the file extension.
func DetectType(filename string, data []byte) string {
	if len(data) >= 12 {
		switch {
		case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
			return MIMEJPEG
		case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
			return MIMEPNG
		case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
			return MIMEWebP
		case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
			return MIMEGIF
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return MIMEJPEG
	case ".png":
		return MIMEPNG
	case ".webp":
		return MIMEWebP
	case ".gif":
		return MIMEGIF
	}
	return ""
}

// Decode decodes data according to its detected type.
func Decode(filename string, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mime := DetectType(filename, data); mime {
	case MIMEJPEG:
		return jpeg.Decode(r)
	case MIMEPNG:
		return png.Decode(r)
	case MIMEWebP:
		return webp.Decode(r)
	case MIMEGIF:
		return gif.Decode(r)
	default:
		return nil, fmt.Errorf("imagefit: unsupported image type for %q", filename)
	}
}

// ErrEmptyImage is returned when a source image has no pixels.
var ErrEmptyImage = errors.New("imagefit: image has zero width or height")

// ContainRect returns the destination rectangle that fits a srcW x srcH image
// inside a dstW x dstH canvas, preserving aspect ratio and centred. An empty
// source or canvas yields an empty rectangle.
func ContainRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}
	w, h := dstW, dstH
	// Integer cross-multiplication keeps the constrained edge exact.
	if srcW*dstH >= srcH*dstW {
		h = srcH * dstW / srcW
	} else {
		w = srcW * dstH / srcH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	left := (dstW - w) / 2
	top := (dstH - h) / 2
	return image.Rect(left, top, left+w, top+h)
}

// Contain scales src into a width x height canvas filled with bg. The whole
// source stays visible; only the short edges are padded.
func Contain(src image.Image, width, height int, bg color.Color) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	sb := src.Bounds()
	dr := ContainRect(sb.Dx(), sb.Dy(), width, height)
	if !dr.Empty() {
		draw.CatmullRom.Scale(canvas, dr, src, sb, draw.Over, nil)
	}
	return canvas
}

// EncodeJPEG encodes img as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imagefit: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeWithinLimit lowers the JPEG quality in steps until the output fits
// MaxUploadSize, stopping at minQuality.
func encodeWithinLimit(img image.Image) ([]byte, error) {
	const minQuality = 50
	for q := DefaultQuality; ; q -= 10 {
		out, err := EncodeJPEG(img, q)
		if err != nil {
			return nil, err
		}
		if len(out) <= MaxUploadSize || q <= minQuality {
			return out, nil
		}
	}
}

// Result is a prepared upload.
type Result struct {
	Data        []byte
	ContentType string
	Path        string // where the fitted image was written, if anywhere
}

// FitFile reads path, fits it to width x height on bg and returns JPEG bytes.
// When outDir is non-empty the result is also written to
// outDir/<base>_contain.jpg.
func FitFile(path string, width, height int, bg color.Color, outDir string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("imagefit: read %s: %w", path, err)
	}
	src, err := Decode(path, data)
	if err != nil {
		return Result{}, fmt.Errorf("imagefit: decode %s: %w", path, err)
	}
	if b := src.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptyImage, path)
	}
	out, err := encodeWithinLimit(Contain(src, width, height, bg))
	if err != nil {
		return Result{}, err
	}
	res := Result{Data: out, ContentType: MIMEJPEG}
	if outDir != "" {
		res.Path = filepath.Join(outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"_contain.jpg")
		if err := os.WriteFile(res.Path, out, 0o644); err != nil {
			return Result{}, fmt.Errorf("imagefit: write %s: %w", res.Path, err)
		}
	}
	return res, nil
}

// ErrDimensions is returned by LoadExact when the image is not the required size.
var ErrDimensions = errors.New("imagefit: unexpected image dimensions")

// LoadExact reads path and checks that it is a JPEG or PNG of exactly
// width x height, returning the original bytes unchanged.
func LoadExact(path string, width, height int) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("imagefit: read %s: %w", path, err)
	}
	if len(data) > MaxUploadSize {
		return Result{}, fmt.Errorf("imagefit: %s is %d bytes, limit is %d", path, len(data), MaxUploadSize)
	}
	mime := DetectType(path, data)
	if mime != MIMEJPEG && mime != MIMEPNG {
		return Result{}, fmt.Errorf("imagefit: %s must be JPEG or PNG, got %q", path, mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("imagefit: decode config %s: %w", path, err)
	}
	if cfg.Width != width || cfg.Height != height {
		return Result{}, fmt.Errorf("%w: %s must be %dx%d, is %dx%d", ErrDimensions, path, width, height, cfg.Width, cfg.Height)
	}
	return Result{Data: data, ContentType: mime}, nil
}
