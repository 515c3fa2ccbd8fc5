package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/szxp/rescale"
	"github.com/szxp/rescale/imagemagick"
	"github.com/szxp/rescale/native"
	"github.com/szxp/rescale/nfnt"
	"github.com/szxp/rescale/resize"
)

// version will be set while building
var version string

// buildTime will be set while building
var buildTime string

const (
	envHTTPAddr = "RESCALE_HTTP_ADDR"
	envLogLevel = "RESCALE_LOG_LEVEL"
)

func main() {
	var logLevel string
	var logger hclog.Logger

	root := &cobra.Command{
		Use:           "rescale",
		Short:         "Resize images with nearest-neighbour or bilinear interpolation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", getenv(envLogLevel, "INFO"),
		"log level: TRACE, DEBUG, INFO, WARN, ERROR")

	root.AddCommand(
		resizeCmd(func() hclog.Logger { return logger }),
		serveCmd(func() hclog.Logger { return logger }),
		versionCmd(),
	)

	err := root.Execute()
	if err != nil {
		if logger == nil {
			logger = newLogger(logLevel)
		}
		logger.Error("Failed. Exit now", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:            "rescale",
		Output:          os.Stderr,
		Level:           hclog.LevelFromString(level),
		IncludeLocation: true,
	}).With("appVersion", version)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rescale %s (built %s)\n", version, buildTime)
			if ver, err := imagemagick.Version(); err == nil {
				fmt.Fprint(cmd.OutOrStdout(), ver)
			}
		},
	}
}

// newImageResizer builds the engine named in conf.
func newImageResizer(conf rescale.ResizeConfig, logger hclog.Logger) (rescale.ImageResizer, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	alg, err := resize.ParseAlgorithm(conf.Algorithm)
	if err != nil {
		return nil, err
	}

	switch conf.Engine {
	case "", "native":
		return &native.ImageResizer{
			Algorithm:    alg,
			Neighborhood: conf.Neighborhood,
			Quality:      conf.Quality,
			Logger:       logger.Named("native"),
		}, nil
	case "imagemagick":
		return &imagemagick.ImageResizer{Algorithm: alg, Quality: conf.Quality}, nil
	case "nfnt":
		return &nfnt.ImageResizer{Algorithm: alg, Quality: conf.Quality}, nil
	}
	return nil, fmt.Errorf("unknown engine: %q", conf.Engine)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}
