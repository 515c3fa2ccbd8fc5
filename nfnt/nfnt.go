// Package nfnt resizes image files with github.com/nfnt/resize. It is kept
// as a reference engine to compare the native resizers against.
package nfnt

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/szxp/rescale"
	"github.com/szxp/rescale/raster"
	rsz "github.com/szxp/rescale/resize"
)

type ImageResizer struct {
	Algorithm rsz.Algorithm
	Quality   int
}

var _ rescale.ImageResizer = (*ImageResizer)(nil)

var interpolations = map[rsz.Algorithm]resize.InterpolationFunction{
	rsz.AlgorithmNearest:  resize.NearestNeighbor,
	rsz.AlgorithmBilinear: resize.Bilinear,
}

func (r *ImageResizer) Resize(dst, src string, width, height uint, mode int) error {
	img, err := raster.LoadImage(src)
	if err != nil {
		return err
	}
	out, err := r.ResizeImage(img, width, height, mode)
	if err != nil {
		return err
	}
	return raster.SaveImage(dst, out, r.Quality)
}

func (r *ImageResizer) ResizeImage(img image.Image, width, height uint, mode int) (image.Image, error) {
	interp, ok := interpolations[r.Algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", rsz.ErrUnknownAlgorithm, r.Algorithm)
	}

	b := img.Bounds()
	plan, err := rescale.Geometry(b.Dx(), b.Dy(), width, height, mode)
	if err != nil {
		return nil, err
	}

	out := resize.Resize(uint(plan.Width), uint(plan.Height), img, interp)
	if !plan.Cropped() {
		return out, nil
	}

	c := plan.Crop
	cropped := image.NewNRGBA(image.Rect(0, 0, c.Dx(), c.Dy()))
	draw.Draw(cropped, cropped.Bounds(), out, out.Bounds().Min.Add(c.Min), draw.Src)
	return cropped, nil
}
