package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szxp/rescale"
	"github.com/szxp/rescale/imagemagick"
	"github.com/szxp/rescale/native"
	"github.com/szxp/rescale/nfnt"
	"github.com/szxp/rescale/raster"
	"github.com/szxp/rescale/resize"
)

func TestNewImageResizer(t *testing.T) {
	conf := rescale.DefaultConfig().Resize
	logger := hclog.NewNullLogger()

	r, err := newImageResizer(conf, logger)
	require.NoError(t, err)
	require.IsType(t, &native.ImageResizer{}, r)
	assert.Equal(t, resize.AlgorithmBilinear, r.(*native.ImageResizer).Algorithm)

	conf.Engine = "imagemagick"
	conf.Algorithm = "nearest"
	r, err = newImageResizer(conf, logger)
	require.NoError(t, err)
	assert.IsType(t, &imagemagick.ImageResizer{}, r)

	conf.Engine = "nfnt"
	r, err = newImageResizer(conf, logger)
	require.NoError(t, err)
	assert.IsType(t, &nfnt.ImageResizer{}, r)

	conf.Neighborhood = 3
	_, err = newImageResizer(conf, logger)
	assert.ErrorContains(t, err, "neighborhood")
	conf.Neighborhood = 0

	conf.Engine = "gpu"
	_, err = newImageResizer(conf, logger)
	assert.Error(t, err)

	conf.Engine = "native"
	conf.Algorithm = "bicubic"
	_, err = newImageResizer(conf, logger)
	assert.ErrorIs(t, err, resize.ErrUnknownAlgorithm)
}

func TestResizeCmd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	ras, err := raster.New(10, 6, 1)
	require.NoError(t, err)
	require.NoError(t, raster.Save(src, ras, 0))

	logger := func() hclog.Logger { return hclog.NewNullLogger() }
	cases := []struct {
		name         string
		args         []string
		wantW, wantH int
	}{
		{"scale", []string{"--scale", "1.5", "-a", "nearest"}, 15, 9},
		{"box", []string{"-W", "5", "-H", "5"}, 5, 3},
		{"fill", []string{"-W", "4", "-H", "4", "--mode", "fill", "-n", "3"}, 4, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dst := filepath.Join(dir, tc.name+".png")
			cmd := resizeCmd(logger)
			cmd.SetArgs(append([]string{src, dst}, tc.args...))
			require.NoError(t, cmd.Execute())

			w, h, err := raster.Dimensions(dst)
			require.NoError(t, err)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}

func TestResizeCmd_Errors(t *testing.T) {
	logger := func() hclog.Logger { return hclog.NewNullLogger() }
	for _, args := range [][]string{
		{"a.png"},
		{"a.png", "b.png"},
		{"a.png", "b.png", "--scale", "2", "-W", "3"},
		{"a.png", "b.png", "-W", "3", "--mode", "zoom"},
	} {
		cmd := resizeCmd(logger)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), "%v", args)
	}
}

func TestResizeCmd_NeighborhoodNeedsNativeEngine(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	ras, err := raster.New(4, 4, 3)
	require.NoError(t, err)
	require.NoError(t, raster.Save(src, ras, 0))

	logger := func() hclog.Logger { return hclog.NewNullLogger() }
	for _, engine := range []string{"nfnt", "imagemagick"} {
		dst := filepath.Join(dir, engine+".png")
		cmd := resizeCmd(logger)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		cmd.SetArgs([]string{src, dst, "-W", "2", "-e", engine, "-n", "3"})
		assert.ErrorContains(t, cmd.Execute(), "neighborhood", engine)

		_, err := os.Stat(dst)
		assert.True(t, os.IsNotExist(err), engine)
	}
}
