// Package resize scales rasters to arbitrary dimensions.
//
// Two interpolation strategies are provided, NearestNeighbour and Bilinear.
// Both map every destination sample back to real-valued source coordinates
// and estimate its value from a square neighborhood of source pixels whose
// side length is chosen by the caller.
//
// Resizers are stateless and safe for concurrent use: each call only reads
// the source raster and returns a newly allocated destination.
package resize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/szxp/rescale/raster"
)

var (
	// ErrInvalidDimension is returned when the requested or source width or
	// height is smaller than one.
	ErrInvalidDimension = errors.New("resize: width and height must be >= 1")

	// ErrInvalidNeighborhoodSize is returned when the neighborhood size is
	// smaller than one.
	ErrInvalidNeighborhoodSize = errors.New("resize: neighborhood size must be >= 1")

	ErrUnknownAlgorithm = errors.New("resize: unknown algorithm")
)

// Resizer scales a source raster to newWidth x newHeight.
type Resizer interface {
	// Resize returns a new raster of newWidth x newHeight pixels with the
	// channel count of src. neighborhood is the side length of the square
	// window of source pixels that contributes to each destination sample.
	Resize(src *raster.Raster, newWidth, newHeight, neighborhood int) (*raster.Raster, error)

	// DefaultNeighborhood is the neighborhood size used by ResizeDefault.
	DefaultNeighborhood() int
}

// ResizeDefault resizes with the resizer's default neighborhood size:
// plain rounding for NearestNeighbour and the 2x2 scheme for Bilinear.
func ResizeDefault(r Resizer, src *raster.Raster, newWidth, newHeight int) (*raster.Raster, error) {
	return r.Resize(src, newWidth, newHeight, r.DefaultNeighborhood())
}

// estimator returns the value of channel c at real-valued source position (x, y).
type estimator func(src *raster.Raster, x, y float64, c, n int) uint8

func run(logger hclog.Logger, src *raster.Raster, newWidth, newHeight, n int, estimate estimator) (*raster.Raster, error) {
	if src == nil || src.Width < 1 || src.Height < 1 {
		return nil, fmt.Errorf("%w: empty source", ErrInvalidDimension)
	}
	if newWidth < 1 || newHeight < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, newWidth, newHeight)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNeighborhoodSize, n)
	}

	dst, err := raster.New(newWidth, newHeight, src.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDimension, err)
	}

	xRatio := float64(src.Width) / float64(newWidth)
	yRatio := float64(src.Height) / float64(newHeight)

	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger.Debug("Resize",
		"src", fmt.Sprintf("%dx%d", src.Width, src.Height),
		"dst", fmt.Sprintf("%dx%d", newWidth, newHeight),
		"channels", src.Channels,
		"xRatio", xRatio, "yRatio", yRatio,
		"neighborhood", n)
	trace := logger.IsTrace()

	for y := 0; y < newHeight; y++ {
		sy := float64(y) * yRatio
		for x := 0; x < newWidth; x++ {
			sx := float64(x) * xRatio
			for c := 0; c < src.Channels; c++ {
				dst.Set(x, y, c, estimate(src, sx, sy, c, n))
			}
		}
		if trace {
			logger.Trace("Row done", "y", y, "srcY", sy)
		}
	}
	return dst, nil
}

// Clamp saturates v into [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// eachInWindow calls fn for the size x size window centered at (cx, cy) in
// row-major order with increasing offsets. Every coordinate is clamped into
// the raster, so samples past an edge repeat the edge pixel.
func eachInWindow(src *raster.Raster, cx, cy, size int, fn func(i, j, xi, yj int)) {
	half := size / 2
	for j := 0; j < size; j++ {
		yj := Clamp(cy+j-half, 0, src.Height-1)
		for i := 0; i < size; i++ {
			xi := Clamp(cx+i-half, 0, src.Width-1)
			fn(i, j, xi, yj)
		}
	}
}

// Neighborhood returns the size x size window of channel c centered at
// (x, y), indexed [row][column]. Coordinates past the raster edges are
// clamped, replicating edge pixels.
func Neighborhood(src *raster.Raster, x, y, size, c int) [][]uint8 {
	w := make([][]uint8, size)
	for j := range w {
		w[j] = make([]uint8, size)
	}
	eachInWindow(src, x, y, size, func(i, j, xi, yj int) {
		w[j][i] = src.At(xi, yj, c)
	})
	return w
}

// toUint8 truncates v toward zero after saturating it to [0, 255].
func toUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

type Algorithm string

const (
	AlgorithmNearest  Algorithm = "nearest"
	AlgorithmBilinear Algorithm = "bilinear"
)

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "nearest-neighbour", "nearest-neighbor", "nn":
		return AlgorithmNearest, nil
	case "bilinear", "linear":
		return AlgorithmBilinear, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// New returns the resizer implementing alg. A nil logger disables logging.
func New(alg Algorithm, logger hclog.Logger) (Resizer, error) {
	switch alg {
	case AlgorithmNearest:
		return &NearestNeighbour{Logger: logger}, nil
	case AlgorithmBilinear:
		return &Bilinear{Logger: logger}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}
