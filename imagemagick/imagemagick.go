package imagemagick

import (
	"fmt"
	"os/exec"
	"strconv"

	"github.com/szxp/rescale"
	"github.com/szxp/rescale/resize"
)

// ImageResizer runs ImageMagick's convert.
type ImageResizer struct {
	Algorithm resize.Algorithm
	Quality   int
}

var _ rescale.ImageResizer = (*ImageResizer)(nil)

// filters maps the algorithms onto the closest ImageMagick filter.
var filters = map[resize.Algorithm]string{
	resize.AlgorithmNearest:  "Point",
	resize.AlgorithmBilinear: "Triangle",
}

func (r *ImageResizer) Resize(dst, src string, width, height uint, mode int) error {
	args, err := r.args(dst, src, width, height, mode)
	if err != nil {
		return err
	}

	_, err = exec.Command("convert", args...).Output()
	if err != nil {
		return fmt.Errorf("Failed to create thumbnail: %w", err)
	}
	return nil
}

func (r *ImageResizer) args(dst, src string, width, height uint, mode int) ([]string, error) {
	var size string
	switch {
	case width > 0 && height > 0:
		size = fmt.Sprintf("%dx%d", width, height)
	case width > 0 && height == 0:
		size = fmt.Sprintf("%d", width)
	case width == 0 && height > 0:
		size = fmt.Sprintf("x%d", height)
	default:
		return nil, fmt.Errorf("%w: no width or height given", rescale.ErrInvalidDimension)
	}

	cover := false
	if width > 0 && height > 0 {
		switch mode {
		case rescale.ResizeModeFit:
		case rescale.ResizeModeFill:
			size += "^"
			cover = true
		case rescale.ResizeModeStretch:
			size += "!"
		default:
			return nil, fmt.Errorf("%w: %d", rescale.ErrInvalidMode, mode)
		}
	}

	filter, ok := filters[r.Algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", resize.ErrUnknownAlgorithm, r.Algorithm)
	}

	quality := r.Quality
	if quality <= 0 {
		quality = 75
	}

	args := []string{
		// use only the first frame
		src + "[0]",

		// reads and resets the EXIF image profile setting 'Orientation' and then performs the appropriate 90 degree rotation on the image to orient the image, for correct viewing
		"-auto-orient",

		"-filter", filter,
		"-resize", size,
	}

	if cover {
		crop := fmt.Sprintf("%dx%d+0+0", width, height)
		args = append(args,
			"-gravity", "center",
			"-crop", crop,
			"+repage", // completely remove/reset the virtual canvas meta-data from the images.
		)
	}

	args = append(args,
		"-quality", strconv.Itoa(quality),
		"-strip",
		dst,
	)
	return args, nil
}

func Version() (string, error) {
	ver, err := exec.Command("convert", "-version").Output()
	if err != nil {
		return "", err
	}
	return string(ver), nil
}
