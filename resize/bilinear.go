package resize

import (
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/szxp/rescale/raster"
)

// Bilinear interpolates every destination sample from the source pixels
// around its mapped position.
//
// A neighborhood of 2 is classic bilinear interpolation over the four
// surrounding pixels. Any other size n averages the n x n window anchored
// n/2 pixels up and left of the mapped position, weighting each pixel by
// 1 / ((|dx|+1) * (|dy|+1)). Larger windows give smoother results.
type Bilinear struct {
	Logger hclog.Logger
}

var _ Resizer = (*Bilinear)(nil)

func (r *Bilinear) Resize(src *raster.Raster, newWidth, newHeight, neighborhood int) (*raster.Raster, error) {
	return run(r.Logger, src, newWidth, newHeight, neighborhood, r.estimateColor)
}

func (r *Bilinear) DefaultNeighborhood() int {
	return 2
}

func (r *Bilinear) estimateColor(src *raster.Raster, x, y float64, c, n int) uint8 {
	// Weighting would blend neighbors even on exact grid positions; the
	// classic 2x2 interpolation reproduces source pixels there.
	if n == 2 {
		return toUint8(bilinear(src, x, y, c))
	}
	return toUint8(inverseDistance(src, x, y, c, n))
}

func bilinear(src *raster.Raster, x, y float64, c int) float64 {
	x1 := Clamp(int(math.Floor(x)), 0, src.Width-1)
	y1 := Clamp(int(math.Floor(y)), 0, src.Height-1)
	x2 := min(x1+1, src.Width-1)
	y2 := min(y1+1, src.Height-1)
	tx := x - float64(x1)
	ty := y - float64(y1)

	top := interpolate(float64(src.At(x1, y1, c)), float64(src.At(x2, y1, c)), tx)
	bottom := interpolate(float64(src.At(x1, y2, c)), float64(src.At(x2, y2, c)), tx)
	return interpolate(top, bottom, ty)
}

func inverseDistance(src *raster.Raster, x, y float64, c, n int) float64 {
	half := n / 2
	x1 := max(0, int(math.Floor(x))-half)
	y1 := max(0, int(math.Floor(y))-half)

	var colorSum, weightSum float64
	for j := 0; j < n; j++ {
		yj := Clamp(y1+j, 0, src.Height-1)
		dy := math.Abs(y-float64(yj)) + 1
		for i := 0; i < n; i++ {
			xi := Clamp(x1+i, 0, src.Width-1)
			w := 1 / ((math.Abs(x-float64(xi)) + 1) * dy)
			colorSum += float64(src.At(xi, yj, c)) * w
			weightSum += w
		}
	}
	return colorSum / weightSum
}

func interpolate(start, end, t float64) float64 {
	return start + t*(end-start)
}
