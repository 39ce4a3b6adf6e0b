// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging stores article feature images and generates their
// thumbnails with pure Go codecs.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// thumbPrefix marks the thumbnail file derived from an original.
const thumbPrefix = "thumb_"

// Default thumbnail bounds.
const (
	ThumbWidth  = 320
	ThumbHeight = 240
)

// SaveResult describes a stored feature image.
type SaveResult struct {
	Path      string
	ThumbPath string
	Width     int
	Height    int
	Size      int64
}

// ThumbFromOriginal returns the thumbnail path that pairs with an
// original image path.
func ThumbFromOriginal(path string) string {
	dir, name := filepath.Split(path)
	return dir + thumbPrefix + name
}

// DiskStore keeps feature images on the local filesystem under a
// single uploads directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk-backed image store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Remove deletes the file at path. A missing file is not an error.
func (s *DiskStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// SaveFeatureImage decodes an uploaded image, applies EXIF rotation,
// stores it under a random name and writes a thumbnail next to it.
func (s *DiskStore) SaveFeatureImage(reader io.Reader, filename string) (*SaveResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	format := detectFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}

	// Random name keeps uploads collision-free; the original extension
	// is preserved for content-type sniffing by static file servers.
	name := uuid.NewString() + extensionFor(format, filename)
	path := filepath.Join(s.dir, name)

	encoded, err := encodeImage(img, format, 95)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	thumb := imaging.Fit(img, ThumbWidth, ThumbHeight, imaging.Lanczos)
	thumbBytes, err := encodeImage(thumb, format, 85)
	if err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	thumbPath := ThumbFromOriginal(path)
	if err := os.WriteFile(thumbPath, thumbBytes, 0644); err != nil {
		return nil, fmt.Errorf("saving thumbnail: %w", err)
	}

	bounds := img.Bounds()
	return &SaveResult{
		Path:      path,
		ThumbPath: thumbPath,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Size:      int64(len(encoded)),
	}, nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation applies the EXIF orientation transform.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage encodes an image with the specified format and quality.
// WebP input is re-encoded as JPEG; there is no pure Go WebP encoder.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// extensionFor picks the stored file extension. WebP falls back to
// .jpg to match the re-encoded payload.
func extensionFor(format, filename string) string {
	switch format {
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	case "webp":
		return ".jpg"
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".jpeg" {
		return ".jpeg"
	}
	return ".jpg"
}
