package resize

import (
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/szxp/rescale/raster"
)

// NearestNeighbour picks, for every destination sample, the source pixel
// closest to its mapped position.
//
// With a neighborhood of one the mapped position is simply rounded. Larger
// neighborhoods scan the window around the rounded position and keep the
// first pixel with the strictly smallest Euclidean distance, which only
// changes the result where two pixels are equally close.
type NearestNeighbour struct {
	Logger hclog.Logger
}

var _ Resizer = (*NearestNeighbour)(nil)

func (r *NearestNeighbour) Resize(src *raster.Raster, newWidth, newHeight, neighborhood int) (*raster.Raster, error) {
	return run(r.Logger, src, newWidth, newHeight, neighborhood, r.estimateColor)
}

func (r *NearestNeighbour) DefaultNeighborhood() int {
	return 1
}

func (r *NearestNeighbour) estimateColor(src *raster.Raster, x, y float64, c, n int) uint8 {
	nx := Clamp(int(math.Round(x)), 0, src.Width-1)
	ny := Clamp(int(math.Round(y)), 0, src.Height-1)
	if n == 1 {
		return src.At(nx, ny, c)
	}

	bx, by := nx, ny
	minDist := math.Inf(1)
	eachInWindow(src, nx, ny, n, func(_, _, xi, yj int) {
		d := math.Hypot(float64(xi)-x, float64(yj)-y)
		if d < minDist {
			minDist = d
			bx, by = xi, yj
		}
	})
	return src.At(bx, by, c)
}
