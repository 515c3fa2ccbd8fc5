// Package native resizes image files in-process with the resize package.
package native

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/szxp/rescale"
	"github.com/szxp/rescale/raster"
	"github.com/szxp/rescale/resize"
)

type ImageResizer struct {
	Algorithm resize.Algorithm

	// Neighborhood is the sampling window size. Zero selects the
	// algorithm's default.
	Neighborhood int

	// Quality is the JPEG quality, zero means raster.DefaultQuality.
	Quality int

	Logger hclog.Logger
}

var _ rescale.ImageResizer = (*ImageResizer)(nil)

func (r *ImageResizer) Resize(dst, src string, width, height uint, mode int) error {
	logger := r.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	rsz, err := resize.New(r.Algorithm, logger.Named("resize"))
	if err != nil {
		return err
	}

	img, err := raster.Load(src)
	if err != nil {
		return err
	}

	plan, err := rescale.Geometry(img.Width, img.Height, width, height, mode)
	if err != nil {
		return err
	}

	n := r.Neighborhood
	if n == 0 {
		n = rsz.DefaultNeighborhood()
	}
	logger.Debug("Resize", "src", src, "dst", dst,
		"width", plan.Width, "height", plan.Height, "crop", plan.Crop,
		"algorithm", r.Algorithm, "neighborhood", n)

	out, err := rsz.Resize(img, plan.Width, plan.Height, n)
	if err != nil {
		return fmt.Errorf("resize %s: %w", src, err)
	}
	if plan.Cropped() {
		c := plan.Crop
		out, err = out.Crop(c.Min.X, c.Min.Y, c.Dx(), c.Dy())
		if err != nil {
			return err
		}
	}
	return raster.Save(dst, out, r.Quality)
}
