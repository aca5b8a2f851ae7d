package defs

import (
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultCodec   = "mpeg4"
	DefaultWidth   = 640
	DefaultHeight  = 480
	DefaultBitrate = 2000000
	DefaultFPS     = 25

	MaxFPS = 1000
)

// ReplayConf is everything a single replay needs besides the input and output paths
type ReplayConf struct {
	Codec   string `yaml:"codec"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Bitrate int    `yaml:"bitrate"` // bits per second
	FPS     int    `yaml:"fps"`

	Status  string `yaml:"status,omitempty"` // address of the progress endpoint, empty to disable
	Verbose bool   `yaml:"verbose,omitempty"`
	Force   bool   `yaml:"force,omitempty"` // overwrite existing output files
}

func DefaultConf() *ReplayConf {
	return &ReplayConf{
		Codec:   DefaultCodec,
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		Bitrate: DefaultBitrate,
		FPS:     DefaultFPS,
	}
}

// LoadConf reads yaml over the defaults, so a partial file is fine
func LoadConf(path string) (c *ReplayConf, err error) {
	c = DefaultConf()

	var cont []byte
	if cont, err = ioutil.ReadFile(path); err != nil {
		return
	}
	if err = yaml.Unmarshal(cont, c); err != nil {
		err = fmt.Errorf("%s: %w", path, err)
		return
	}
	err = c.Validate()
	return
}

func (c *ReplayConf) Validate() error {
	if c.Codec == "" {
		return errors.New("codec is not set")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.Bitrate <= 0 {
		return fmt.Errorf("invalid bitrate %d", c.Bitrate)
	}
	if c.FPS <= 0 || c.FPS > MaxFPS {
		return fmt.Errorf("invalid frame rate %d, expected 1..%d", c.FPS, MaxFPS)
	}
	return nil
}

// Interval is the time between two output frames
func (c *ReplayConf) Interval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
