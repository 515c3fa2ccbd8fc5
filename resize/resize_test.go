package resize_test

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szxp/rescale/raster"
	"github.com/szxp/rescale/resize"
)

// newRaster builds a raster from row-major samples.
func newRaster(t testing.TB, w, h, c int, pix ...uint8) *raster.Raster {
	t.Helper()
	r, err := raster.New(w, h, c)
	require.NoError(t, err)
	if len(pix) > 0 {
		require.Len(t, pix, w*h*c)
		copy(r.Pix, pix)
	}
	return r
}

// noise fills a raster with a deterministic pseudo-random pattern.
func noise(t testing.TB, w, h, c int) *raster.Raster {
	t.Helper()
	r := newRaster(t, w, h, c)
	seed := uint32(2463534242)
	for i := range r.Pix {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		r.Pix[i] = uint8(seed)
	}
	return r
}

func resizers() map[string]resize.Resizer {
	return map[string]resize.Resizer{
		"nearest":  &resize.NearestNeighbour{},
		"bilinear": &resize.Bilinear{},
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{-1, 0, 5, 0},
		{0, 0, 5, 0},
		{3, 0, 5, 3},
		{5, 0, 5, 5},
		{9, 0, 5, 5},
		{4, 4, 4, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, resize.Clamp(tc.v, tc.lo, tc.hi), "Clamp(%d, %d, %d)", tc.v, tc.lo, tc.hi)
	}
}

func TestNeighborhood(t *testing.T) {
	src := newRaster(t, 3, 3, 1,
		1, 2, 3,
		4, 5, 6,
		7, 8, 9)

	assert.Equal(t, [][]uint8{{5}}, resize.Neighborhood(src, 1, 1, 1, 0))
	assert.Equal(t, [][]uint8{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, resize.Neighborhood(src, 1, 1, 3, 0))
	// corners replicate the edge pixels
	assert.Equal(t, [][]uint8{{1, 1, 2}, {1, 1, 2}, {4, 4, 5}}, resize.Neighborhood(src, 0, 0, 3, 0))
	assert.Equal(t, [][]uint8{{5, 6, 6}, {8, 9, 9}, {8, 9, 9}}, resize.Neighborhood(src, 2, 2, 3, 0))
	assert.Equal(t, [][]uint8{{5, 6}, {8, 9}}, resize.Neighborhood(src, 2, 2, 2, 0))
}

func TestResize_InvalidInput(t *testing.T) {
	src := newRaster(t, 4, 4, 1)
	for name, r := range resizers() {
		t.Run(name, func(t *testing.T) {
			dst, err := r.Resize(src, 0, 10, 1)
			assert.True(t, errors.Is(err, resize.ErrInvalidDimension))
			assert.Nil(t, dst)

			dst, err = r.Resize(src, 10, -1, 1)
			assert.True(t, errors.Is(err, resize.ErrInvalidDimension))
			assert.Nil(t, dst)

			dst, err = r.Resize(nil, 2, 2, 1)
			assert.True(t, errors.Is(err, resize.ErrInvalidDimension))
			assert.Nil(t, dst)

			dst, err = r.Resize(&raster.Raster{Channels: 1}, 2, 2, 1)
			assert.True(t, errors.Is(err, resize.ErrInvalidDimension))
			assert.Nil(t, dst)

			dst, err = r.Resize(src, 2, 2, 0)
			assert.True(t, errors.Is(err, resize.ErrInvalidNeighborhoodSize))
			assert.Nil(t, dst)
		})
	}
}

func TestResize_OversizedDestination(t *testing.T) {
	src := newRaster(t, 2, 2, 4)
	for name, r := range resizers() {
		t.Run(name, func(t *testing.T) {
			var dst *raster.Raster
			var err error
			require.NotPanics(t, func() {
				dst, err = r.Resize(src, 1<<20, 1<<20, r.DefaultNeighborhood())
			})
			assert.ErrorIs(t, err, resize.ErrInvalidDimension)
			assert.ErrorIs(t, err, raster.ErrInvalidDimension)
			assert.Nil(t, dst)
		})
	}
}

func TestResize_Dimensions(t *testing.T) {
	src := noise(t, 7, 5, 3)
	sizes := [][2]int{{1, 1}, {3, 2}, {7, 5}, {14, 10}, {20, 3}, {2, 17}}
	for name, r := range resizers() {
		for _, sz := range sizes {
			t.Run(fmt.Sprintf("%s/%dx%d", name, sz[0], sz[1]), func(t *testing.T) {
				dst, err := resize.ResizeDefault(r, src, sz[0], sz[1])
				require.NoError(t, err)
				assert.Equal(t, sz[0], dst.Width)
				assert.Equal(t, sz[1], dst.Height)
				assert.Equal(t, src.Channels, dst.Channels)
				assert.Len(t, dst.Pix, sz[0]*sz[1]*src.Channels)
			})
		}
	}
}

func TestResize_Deterministic(t *testing.T) {
	src := noise(t, 9, 6, 3)
	for name, r := range resizers() {
		for _, n := range []int{1, 2, 3, 4} {
			t.Run(fmt.Sprintf("%s/n=%d", name, n), func(t *testing.T) {
				a, err := r.Resize(src, 13, 4, n)
				require.NoError(t, err)
				b, err := r.Resize(src, 13, 4, n)
				require.NoError(t, err)
				assert.Equal(t, a.Pix, b.Pix)
			})
		}
	}
}

func TestResize_SourceUntouched(t *testing.T) {
	src := noise(t, 5, 5, 1)
	orig := src.Clone()
	for _, r := range resizers() {
		_, err := r.Resize(src, 11, 3, 3)
		require.NoError(t, err)
	}
	assert.Equal(t, orig.Pix, src.Pix)
}

func TestResize_BoundsSafety(t *testing.T) {
	sources := []*raster.Raster{
		noise(t, 1, 1, 1),
		noise(t, 3, 5, 3),
		noise(t, 7, 4, 4),
		noise(t, 2, 9, 1),
	}
	for name, r := range resizers() {
		for _, src := range sources {
			maxN := min(src.Width, src.Height) + 2
			for n := 1; n <= maxN; n++ {
				for _, sz := range [][2]int{{1, 1}, {src.Width*3 + 1, src.Height*2 + 1}, {max(1, src.Width/2), max(1, src.Height/3)}} {
					label := fmt.Sprintf("%s %dx%d->%dx%d n=%d", name, src.Width, src.Height, sz[0], sz[1], n)
					assert.NotPanics(t, func() {
						_, err := r.Resize(src, sz[0], sz[1], n)
						assert.NoError(t, err, label)
					}, label)
				}
			}
		}
	}
}

func TestResize_ConcurrentCalls(t *testing.T) {
	src := noise(t, 16, 12, 3)
	for name, r := range resizers() {
		want, err := r.Resize(src, 23, 9, 3)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]*raster.Raster, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = r.Resize(src, 23, 9, 3)
			}(i)
		}
		wg.Wait()

		for i, got := range results {
			require.NotNil(t, got, "%s #%d", name, i)
			assert.Equal(t, want.Pix, got.Pix, "%s #%d", name, i)
		}
	}
}

func TestResize_LoggingDoesNotChangeOutput(t *testing.T) {
	src := noise(t, 6, 6, 3)
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{
		Output: &buf,
		Level:  hclog.Trace,
	})

	quiet := []resize.Resizer{&resize.NearestNeighbour{}, &resize.Bilinear{}}
	loud := []resize.Resizer{&resize.NearestNeighbour{Logger: logger}, &resize.Bilinear{Logger: logger}}
	for i := range quiet {
		a, err := quiet[i].Resize(src, 10, 4, 3)
		require.NoError(t, err)
		b, err := loud[i].Resize(src, 10, 4, 3)
		require.NoError(t, err)
		assert.Equal(t, a.Pix, b.Pix)
	}
	assert.Contains(t, buf.String(), "Resize")
	assert.Contains(t, buf.String(), "Row done")
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]resize.Algorithm{
		"nearest":           resize.AlgorithmNearest,
		"Nearest-Neighbour": resize.AlgorithmNearest,
		" nn ":              resize.AlgorithmNearest,
		"bilinear":          resize.AlgorithmBilinear,
		"LINEAR":            resize.AlgorithmBilinear,
	}
	for in, want := range cases {
		got, err := resize.ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := resize.ParseAlgorithm("lanczos")
	assert.True(t, errors.Is(err, resize.ErrUnknownAlgorithm))
}

func TestNew(t *testing.T) {
	r, err := resize.New(resize.AlgorithmNearest, nil)
	require.NoError(t, err)
	assert.IsType(t, &resize.NearestNeighbour{}, r)
	assert.Equal(t, 1, r.DefaultNeighborhood())

	r, err = resize.New(resize.AlgorithmBilinear, hclog.NewNullLogger())
	require.NoError(t, err)
	assert.IsType(t, &resize.Bilinear{}, r)
	assert.Equal(t, 2, r.DefaultNeighborhood())

	_, err = resize.New("bicubic", nil)
	assert.True(t, errors.Is(err, resize.ErrUnknownAlgorithm))
}
