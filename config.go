package rescale

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/szxp/rescale/raster"
)

// Config is the configuration file of the thumbnail server.
type Config struct {
	HTTPAddr     string   `toml:"http_addr"`
	LogLevel     string   `toml:"log_level"`
	SourceDir    string   `toml:"source_dir"`
	ThumbnailDir string   `toml:"thumbnail_dir"`
	AllowedExts  []string `toml:"allowed_exts"`

	Resize ResizeConfig `toml:"resize"`
}

type ResizeConfig struct {
	// Engine is one of "native", "imagemagick" or "nfnt".
	Engine       string `toml:"engine"`
	Algorithm    string `toml:"algorithm"`
	Neighborhood int    `toml:"neighborhood"`
	Mode         string `toml:"mode"`
	Quality      int    `toml:"quality"`
	MaxWidth     uint   `toml:"max_width"`
	MaxHeight    uint   `toml:"max_height"`
}

func DefaultConfig() Config {
	return Config{
		HTTPAddr:     ":7664",
		LogLevel:     "INFO",
		SourceDir:    "source",
		ThumbnailDir: "thumbnail",
		AllowedExts:  []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"},
		Resize: ResizeConfig{
			Engine:    "native",
			Algorithm: "bilinear",
			Mode:      "fit",
			Quality:   75,
			MaxWidth:  DefaultMaxDimension,
			MaxHeight: DefaultMaxDimension,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	md, err := toml.Decode(string(b), &conf)
	if err != nil {
		return conf, fmt.Errorf("Failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return conf, fmt.Errorf("Unknown config keys in %s: %v", path, undecoded)
	}
	return conf, conf.Validate()
}

func (c Config) Validate() error {
	if c.SourceDir == "" || c.ThumbnailDir == "" {
		return fmt.Errorf("source_dir and thumbnail_dir are required")
	}
	if len(c.AllowedExts) == 0 {
		return fmt.Errorf("allowed_exts is empty")
	}
	if err := c.Resize.Validate(); err != nil {
		return err
	}
	// imagemagick writes every format it reads, the Go codecs do not
	if c.Resize.Engine == "imagemagick" {
		return nil
	}
	for _, ext := range c.AllowedExts {
		format, err := raster.FormatFromPath("x" + ext)
		if err != nil {
			return fmt.Errorf("allowed_exts: %w", err)
		}
		if !raster.CanEncode(format) {
			return fmt.Errorf("allowed_exts: engine %q cannot write %s thumbnails", c.Resize.Engine, ext)
		}
	}
	return nil
}

// Validate checks the resize section on its own, for callers that do not
// load a whole Config.
func (c ResizeConfig) Validate() error {
	if _, err := ParseResizeMode(c.Mode); err != nil {
		return err
	}
	if c.Neighborhood < 0 {
		return fmt.Errorf("neighborhood must be >= 0, got %d", c.Neighborhood)
	}
	switch c.Engine {
	case "", "native":
	case "imagemagick", "nfnt":
		if c.Neighborhood != 0 {
			return fmt.Errorf("neighborhood is not supported by engine %q", c.Engine)
		}
	default:
		return fmt.Errorf("unknown engine: %q", c.Engine)
	}
	return nil
}
