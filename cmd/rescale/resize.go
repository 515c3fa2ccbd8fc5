package main

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/szxp/rescale"
	"github.com/szxp/rescale/raster"
)

func resizeCmd(logger func() hclog.Logger) *cobra.Command {
	conf := rescale.DefaultConfig().Resize
	var (
		scale         float64
		width, height uint
	)

	cmd := &cobra.Command{
		Use:   "resize SRC DST",
		Short: "Resize an image file",
		Long: `Resize SRC into DST. The output format follows the extension of DST.

The target size is either --scale times the source size, or the box given by
--width and --height interpreted according to --mode. With only one of
--width and --height the other one keeps the aspect ratio.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			l := logger()

			mode, err := rescale.ParseResizeMode(conf.Mode)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("scale") {
				if cmd.Flags().Changed("width") || cmd.Flags().Changed("height") {
					return fmt.Errorf("--scale cannot be combined with --width or --height")
				}
				w, h, err := raster.Dimensions(src)
				if err != nil {
					return err
				}
				nw, nh, err := rescale.ScaleDimensions(w, h, scale)
				if err != nil {
					return err
				}
				width, height, mode = uint(nw), uint(nh), rescale.ResizeModeStretch
			}
			if width == 0 && height == 0 {
				return fmt.Errorf("one of --scale, --width or --height is required")
			}

			rsz, err := newImageResizer(conf, l)
			if err != nil {
				return err
			}

			start := time.Now()
			err = rsz.Resize(dst, src, width, height, mode)
			if err != nil {
				return err
			}
			l.Info("Resized", "src", src, "dst", dst, "width", width, "height", height,
				"engine", conf.Engine, "algorithm", conf.Algorithm, "duration", time.Since(start))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&conf.Algorithm, "algorithm", "a", conf.Algorithm, "nearest or bilinear")
	f.IntVarP(&conf.Neighborhood, "neighborhood", "n", 0, "sampling window size, 0 for the algorithm default")
	f.Float64VarP(&scale, "scale", "s", 1, "scale factor applied to both dimensions")
	f.UintVarP(&width, "width", "W", 0, "target width")
	f.UintVarP(&height, "height", "H", 0, "target height")
	f.StringVarP(&conf.Mode, "mode", "m", conf.Mode, "fit, fill or stretch")
	f.StringVarP(&conf.Engine, "engine", "e", conf.Engine, "native, imagemagick or nfnt")
	f.IntVarP(&conf.Quality, "quality", "q", conf.Quality, "JPEG quality")
	return cmd
}
