// Package encoder turns composited screens into a video file of fixed size and frame rate.
package encoder

import (
	"fmt"
	"image"
	"strings"

	"github.com/dmisol/recplay/defs"
)

// Backend owns the codec and the container, frames arrive in presentation order
type Backend interface {
	Encode(frame *image.RGBA, pts int64) error
	Close() error
}

// Params is the fixed configuration of one output
type Params struct {
	Path    string
	Codec   string // backend specific part of the codec id
	Width   int
	Height  int
	Bitrate int
	FPS     int
}

type factory func(p Params) (Backend, error)

var backends = map[string]factory{
	"ffmpeg": newFFMPEG,
	"x264":   newX264,
	"opencv": newOpenCV,
}

// ParseCodec splits a codec id such as "x264:high" or "opencv:mp4v";
// ids without a known backend prefix are ffmpeg codec names
func ParseCodec(id string) (backend, codec string) {
	if b, c, ok := strings.Cut(id, ":"); ok {
		if _, known := backends[b]; known {
			return b, c
		}
	}
	return "ffmpeg", id
}

// OpenBackend initializes the codec and the container, errors wrap defs.ErrEncoderInit
func OpenBackend(path string, conf *defs.ReplayConf) (b Backend, err error) {
	if err = conf.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", defs.ErrEncoderInit, err)
		return
	}
	name, codec := ParseCodec(conf.Codec)
	if codec == "" {
		err = fmt.Errorf("%w: empty codec in %q", defs.ErrEncoderInit, conf.Codec)
		return
	}
	p := Params{
		Path:    path,
		Codec:   codec,
		Width:   conf.Width,
		Height:  conf.Height,
		Bitrate: conf.Bitrate,
		FPS:     conf.FPS,
	}
	if b, err = backends[name](p); err != nil {
		err = fmt.Errorf("%w: %s: %v", defs.ErrEncoderInit, name, err)
	}
	return
}
