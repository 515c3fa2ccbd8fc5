package rescale

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
)

const (
	// Maximum values of height and width given, aspect ratio preserved.
	ResizeModeFit = 0

	// Minimum values of width and height given, aspect ratio preserved.
	// The image will be cut to fit it exactly.
	ResizeModeFill = 1

	// 	Width and height emphatically given, original aspect ratio ignored.
	ResizeModeStretch = 2
)

const (
	// MaxDimension bounds every width and height Geometry and
	// ScaleDimensions produce.
	MaxDimension = 1 << 16

	// DefaultMaxDimension is the largest thumbnail box a Server accepts
	// unless configured otherwise.
	DefaultMaxDimension = 4096
)

var (
	ErrInvalidDimension = errors.New("rescale: invalid dimension")
	ErrInvalidMode      = errors.New("rescale: invalid resize mode")
	ErrInvalidScale     = errors.New("rescale: scale factor must be > 0")
)

type ImageResizer interface {
	Resize(dst, src string, width, height uint, mode int) error
}

func ParseResizeMode(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit":
		return ResizeModeFit, nil
	case "fill", "cover":
		return ResizeModeFill, nil
	case "stretch":
		return ResizeModeStretch, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Plan tells an ImageResizer how to turn a source into the requested box:
// resize to Width x Height, then keep only Crop of the result.
type Plan struct {
	Width  int
	Height int
	Crop   image.Rectangle
}

// Cropped reports whether the resized image has to be cut.
func (p Plan) Cropped() bool {
	return p.Crop != image.Rect(0, 0, p.Width, p.Height)
}

// Geometry computes the Plan for a srcW x srcH source. A zero width or
// height is derived from the other one, keeping the aspect ratio.
func Geometry(srcW, srcH int, width, height uint, mode int) (Plan, error) {
	if srcW < 1 || srcH < 1 {
		return Plan{}, fmt.Errorf("%w: source %dx%d", ErrInvalidDimension, srcW, srcH)
	}
	if width == 0 && height == 0 {
		return Plan{}, fmt.Errorf("%w: no width or height given", ErrInvalidDimension)
	}
	if width > MaxDimension || height > MaxDimension {
		return Plan{}, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDimension, width, height, MaxDimension)
	}
	if mode != ResizeModeFit && mode != ResizeModeFill && mode != ResizeModeStretch {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	w, h := int(width), int(height)
	switch {
	case w == 0:
		w = scaled(srcW, float64(h)/float64(srcH))
		return checked(plan(w, h))
	case h == 0:
		h = scaled(srcH, float64(w)/float64(srcW))
		return checked(plan(w, h))
	}

	sx := float64(w) / float64(srcW)
	sy := float64(h) / float64(srcH)
	switch mode {
	case ResizeModeFit:
		s := math.Min(sx, sy)
		return checked(plan(scaled(srcW, s), scaled(srcH, s)))
	case ResizeModeFill:
		s := math.Max(sx, sy)
		rw := max(w, scaled(srcW, s))
		rh := max(h, scaled(srcH, s))
		x0 := (rw - w) / 2
		y0 := (rh - h) / 2
		return checked(Plan{Width: rw, Height: rh, Crop: image.Rect(x0, y0, x0+w, y0+h)})
	}
	return plan(w, h), nil
}

func checked(p Plan) (Plan, error) {
	if p.Width > MaxDimension || p.Height > MaxDimension {
		return Plan{}, fmt.Errorf("%w: resized to %dx%d, exceeds %d",
			ErrInvalidDimension, p.Width, p.Height, MaxDimension)
	}
	return p, nil
}

func plan(w, h int) Plan {
	return Plan{Width: w, Height: h, Crop: image.Rect(0, 0, w, h)}
}

// ScaleDimensions multiplies both dimensions by factor, rounding to the
// nearest integer and never going below one pixel.
func ScaleDimensions(width, height int, factor float64) (int, int, error) {
	if width < 1 || height < 1 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	if !(factor > 0) || math.IsInf(factor, 0) {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidScale, factor)
	}
	w, h := scaled(width, factor), scaled(height, factor)
	if w > MaxDimension || h > MaxDimension {
		return 0, 0, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDimension, w, h, MaxDimension)
	}
	return w, h, nil
}

// scaled rounds dim*factor, saturating to [1, MaxDimension+1] so that
// oversized results stay representable and are caught by the callers.
func scaled(dim int, factor float64) int {
	v := math.Round(float64(dim) * factor)
	if v > MaxDimension {
		return MaxDimension + 1
	}
	return max(1, int(v))
}
