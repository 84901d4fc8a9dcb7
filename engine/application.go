package engine

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/framegraph/engine/core"
)

const (
	// BackendDryRun allocates and records nothing on a GPU, it only counts.
	BackendDryRun = "dry_run"
	// BackendVulkan allocates on Game.VulkanContext and submits the barriers.
	BackendVulkan = "vulkan"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
	// Frame description file. When empty the game records the frame itself.
	Description string `toml:"description"`
	// Every frame is dumped to DumpDir/<frame id>/ when set.
	DumpDir string `toml:"dump_dir"`
	// Re-render whenever the description changes on disk.
	Watch bool `toml:"watch"`
	// Number of frames to render. Zero renders until the engine is stopped.
	Frames int `toml:"frames"`
	// Screen size used by screen sized textures.
	ScreenWidth  uint32 `toml:"screen_width"`
	ScreenHeight uint32 `toml:"screen_height"`
	// Workers planning barriers. Zero uses one per CPU.
	Workers int `toml:"workers"`
	// Backend receiving the frame: dry_run or vulkan.
	Backend string `toml:"backend"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:         "framegraph",
		LogLevel:     core.InfoLevel.String(),
		Frames:       1,
		ScreenWidth:  1280,
		ScreenHeight: 720,
		Backend:      BackendDryRun,
	}
}

// LoadApplicationConfig reads a TOML config on top of the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.ScreenWidth == 0 || c.ScreenHeight == 0 {
		return errors.Newf("invalid screen size %dx%d", c.ScreenWidth, c.ScreenHeight)
	}
	if c.Frames < 0 {
		return errors.Newf("invalid frame count %d", c.Frames)
	}
	if c.Workers < 0 {
		return errors.Newf("invalid worker count %d", c.Workers)
	}
	switch c.Backend {
	case BackendDryRun, BackendVulkan:
	default:
		return errors.Newf("unknown backend '%s'", c.Backend)
	}
	if c.Watch && c.Description == "" {
		return errors.New("watch needs a description file")
	}
	return nil
}
