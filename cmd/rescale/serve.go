package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/szxp/rescale"
)

func serveCmd(logger func() hclog.Logger) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve source images and on-demand thumbnails over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := rescale.LoadConfig(configPath)
			if err != nil {
				return err
			}
			l := logger()
			if !cmd.Flags().Changed("log-level") && conf.LogLevel != "" {
				l.SetLevel(hclog.LevelFromString(conf.LogLevel))
			}
			l.Info("Build info", "time", buildTime)
			return initialize(conf, l)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	return cmd
}

func initialize(conf rescale.Config, logger hclog.Logger) error {
	httpAddr := getenv(envHTTPAddr, conf.HTTPAddr)

	rsz, err := newImageResizer(conf.Resize, logger)
	if err != nil {
		return err
	}
	mode, err := rescale.ParseResizeMode(conf.Resize.Mode)
	if err != nil {
		return err
	}

	handler, err := rescale.NewServer(rescale.ServerConfig{
		SourceDir:    conf.SourceDir,
		ThumbnailDir: conf.ThumbnailDir,
		AllowedExts:  conf.AllowedExts,
		Resizer:      rsz,
		Mode:         mode,
		MaxWidth:     conf.Resize.MaxWidth,
		MaxHeight:    conf.Resize.MaxHeight,
		Logger:       logger.Named("HTTP server"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    httpAddr,
		Handler: handler,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Signal received", "sig", sig)

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("HTTP server Shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	logger.Info("Listening", "addr", httpAddr, "engine", conf.Resize.Engine, "algorithm", conf.Resize.Algorithm)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	<-idleConnsClosed
	logger.Info("Exit normally")
	return nil
}
