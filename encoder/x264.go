package encoder

import (
	"fmt"
	"image"
	"log"
	"os"

	"github.com/gen2brain/x264-go"
)

// x264enc writes a raw annex-b h.264 elementary stream
type x264enc struct {
	f   *os.File
	enc *x264.Encoder
}

var x264Profiles = map[string]bool{
	"baseline": true,
	"main":     true,
	"high":     true,
}

func newX264(p Params) (b Backend, err error) {
	if !x264Profiles[p.Codec] {
		err = fmt.Errorf("unknown h.264 profile %q", p.Codec)
		return
	}
	if p.Width%2 != 0 || p.Height%2 != 0 {
		err = fmt.Errorf("frame size %dx%d must be even", p.Width, p.Height)
		return
	}

	e := &x264enc{}
	if e.f, err = os.Create(p.Path); err != nil {
		return
	}
	opts := &x264.Options{
		Width:     p.Width,
		Height:    p.Height,
		FrameRate: p.FPS,
		Tune:      "stillimage",
		Preset:    "medium",
		Profile:   p.Codec,
		LogLevel:  x264.LogError,
	}
	if e.enc, err = x264.NewEncoder(e.f, opts); err != nil {
		e.f.Close()
		os.Remove(p.Path)
		return
	}
	// x264-go has no rate control knob, the bitrate only applies to the other backends
	e.Println("encoding", p.Path, "profile", p.Codec, "bitrate ignored:", p.Bitrate)
	b = e
	return
}

func (e *x264enc) Encode(frame *image.RGBA, pts int64) error {
	if err := e.enc.Encode(frame); err != nil {
		return fmt.Errorf("frame %d: %w", pts, err)
	}
	return nil
}

func (e *x264enc) Close() (err error) {
	if err = e.enc.Flush(); err != nil {
		e.enc.Close()
		e.f.Close()
		return
	}
	if err = e.enc.Close(); err != nil {
		e.f.Close()
		return
	}
	err = e.f.Close()
	return
}

func (e *x264enc) Println(i ...interface{}) {
	log.Println("x264", i)
}
