package raster

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnknownFormat = errors.New("raster: unknown image format")

const DefaultQuality = 75

var extFormats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// FormatFromPath returns the codec name for the extension of path.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extFormats[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	return f, nil
}

func Decode(r io.Reader) (*Raster, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}
	ras, err := FromImage(img)
	if err != nil {
		return nil, "", err
	}
	return ras, format, nil
}

// Encode writes r in the given format. quality is used by jpeg only.
func Encode(w io.Writer, r *Raster, format string, quality int) error {
	img, err := r.ToImage()
	if err != nil {
		return err
	}
	return EncodeImage(w, img, format, quality)
}

// CanEncode reports whether EncodeImage supports format. Some formats, webp
// among them, can only be decoded.
func CanEncode(format string) bool {
	switch format {
	case "png", "jpeg", "gif", "bmp", "tiff":
		return true
	}
	return false
}

func EncodeImage(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		if quality <= 0 {
			quality = DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: cannot encode %q", ErrUnknownFormat, format)
}

func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Dimensions reads only the header of the image file at path.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	c, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return c.Width, c.Height, nil
}

func Load(path string) (*Raster, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// SaveImage encodes img into path, choosing the codec from the extension.
// The file is written to a temporary name first and renamed into place.
func SaveImage(path string, img image.Image, quality int) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	err = EncodeImage(f, img, format, quality)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func Save(path string, r *Raster, quality int) error {
	img, err := r.ToImage()
	if err != nil {
		return err
	}
	return SaveImage(path, img, quality)
}
