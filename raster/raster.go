// Package raster holds the in-memory pixel buffer the resizers work on.
//
// A Raster is a grid of Width x Height pixels with Channels 8-bit samples per
// pixel, stored interleaved and row-major in Pix.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

var (
	ErrInvalidDimension    = errors.New("raster: width, height and channels must be > 0")
	ErrUnsupportedChannels = errors.New("raster: unsupported channel count")
)

// MaxSamples is the largest Width*Height*Channels New allocates.
const MaxSamples = min(1<<32, math.MaxInt)

type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

func New(width, height, channels int) (*Raster, error) {
	if width < 1 || height < 1 || channels < 1 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimension, width, height, channels)
	}
	// divide instead of multiplying so the check itself cannot overflow
	if width > MaxSamples/height/channels {
		return nil, fmt.Errorf("%w: %dx%dx%d exceeds %d samples",
			ErrInvalidDimension, width, height, channels, MaxSamples)
	}
	return &Raster{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

// Offset returns the index of sample (x, y, c) in Pix.
// It panics when the sample lies outside the raster.
func (r *Raster) Offset(x, y, c int) int {
	if x < 0 || x >= r.Width || y < 0 || y >= r.Height || c < 0 || c >= r.Channels {
		panic(fmt.Sprintf("raster: sample (%d, %d, %d) out of range %dx%dx%d",
			x, y, c, r.Width, r.Height, r.Channels))
	}
	return (y*r.Width+x)*r.Channels + c
}

func (r *Raster) At(x, y, c int) uint8 {
	return r.Pix[r.Offset(x, y, c)]
}

func (r *Raster) Set(x, y, c int, v uint8) {
	r.Pix[r.Offset(x, y, c)] = v
}

func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Channels: r.Channels, Pix: pix}
}

// Crop returns a copy of the width x height area whose top-left corner is (x, y).
func (r *Raster) Crop(x, y, width, height int) (*Raster, error) {
	if x < 0 || y < 0 || x+width > r.Width || y+height > r.Height {
		return nil, fmt.Errorf("%w: crop %dx%d+%d+%d of %dx%d",
			ErrInvalidDimension, width, height, x, y, r.Width, r.Height)
	}
	dst, err := New(width, height, r.Channels)
	if err != nil {
		return nil, err
	}
	rowLen := width * r.Channels
	for j := 0; j < height; j++ {
		src := ((y+j)*r.Width + x) * r.Channels
		copy(dst.Pix[j*rowLen:(j+1)*rowLen], r.Pix[src:src+rowLen])
	}
	return dst, nil
}

// FromImage copies img into a new Raster. Gray images get one channel,
// opaque images three (RGB) and all others four (non-premultiplied RGBA).
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		r, err := New(b.Dx(), b.Dy(), 1)
		if err != nil {
			return nil, err
		}
		for y := 0; y < r.Height; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(r.Pix[y*r.Width:(y+1)*r.Width], src.Pix[i:i+r.Width])
		}
		return r, nil
	}

	channels := 4
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		channels = 3
	}
	r, err := New(b.Dx(), b.Dy(), channels)
	if err != nil {
		return nil, err
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
		b = nrgba.Bounds()
	}
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			i := nrgba.PixOffset(b.Min.X+x, b.Min.Y+y)
			o := (y*r.Width + x) * channels
			copy(r.Pix[o:o+channels], nrgba.Pix[i:i+channels])
		}
	}
	return r, nil
}

// ToImage converts r to an image.Image: one channel becomes *image.Gray,
// two (gray, alpha), three (RGB) and four (RGBA) channels become *image.NRGBA.
func (r *Raster) ToImage() (image.Image, error) {
	rect := image.Rect(0, 0, r.Width, r.Height)
	switch r.Channels {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, r.Pix)
		return img, nil
	case 2, 3, 4:
		img := image.NewNRGBA(rect)
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				img.SetNRGBA(x, y, r.nrgbaAt(x, y))
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, r.Channels)
}

func (r *Raster) nrgbaAt(x, y int) color.NRGBA {
	o := (y*r.Width + x) * r.Channels
	p := r.Pix[o : o+r.Channels]
	switch r.Channels {
	case 2:
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: p[1]}
	case 3:
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 0xff}
	}
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}
