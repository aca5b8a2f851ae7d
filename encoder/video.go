package encoder

import (
	"fmt"
	"image"
	"sync"

	"github.com/dmisol/recplay/defs"
	"golang.org/x/image/draw"
)

const queueLen = 8

// Video letterboxes composites into a fixed canvas and submits them in order.
// Encoding happens on one background goroutine; a failure there is reported
// by the next Write or by Close.
type Video struct {
	backend Backend
	canvas  *image.RGBA
	pts     int64

	frames chan *image.RGBA
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// Open initializes the backend picked by the codec id
func Open(path string, conf *defs.ReplayConf) (v *Video, err error) {
	var b Backend
	if b, err = OpenBackend(path, conf); err != nil {
		return
	}
	v = NewVideo(b, conf.Width, conf.Height)
	return
}

func NewVideo(b Backend, width, height int) *Video {
	v := &Video{
		backend: b,
		canvas:  image.NewRGBA(image.Rect(0, 0, width, height)),
		frames:  make(chan *image.RGBA, queueLen),
		done:    make(chan struct{}),
	}
	draw.Draw(v.canvas, v.canvas.Rect, image.Black, image.Point{}, draw.Src)
	go v.run()
	return v
}

func (v *Video) run() {
	defer close(v.done)

	pts := int64(0)
	for f := range v.frames {
		if v.failed() != nil {
			continue
		}
		if err := v.backend.Encode(f, pts); err != nil {
			v.mu.Lock()
			v.err = err
			v.mu.Unlock()
		}
		pts++
	}
}

func (v *Video) failed() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Prepare fits src into the canvas, scaled with its aspect ratio kept and centered on black
func (v *Video) Prepare(src *image.RGBA) {
	Letterbox(v.canvas, src)
}

// Canvas is the frame the next Write submits
func (v *Video) Canvas() *image.RGBA {
	return v.canvas
}

// Write submits the current canvas as the next frame
func (v *Video) Write() error {
	v.mu.Lock()
	err, closed := v.err, v.closed
	v.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", defs.ErrOutput, err)
	}
	if closed {
		return fmt.Errorf("%w: video already closed", defs.ErrOutput)
	}
	f := image.NewRGBA(v.canvas.Rect)
	copy(f.Pix, v.canvas.Pix)
	v.frames <- f
	v.pts++
	return nil
}

// Frames is the number of frames submitted so far
func (v *Video) Frames() int64 {
	return v.pts
}

// Close drains the queue and releases the backend, only the first call does anything
func (v *Video) Close() error {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		v.mu.Unlock()

		close(v.frames)
		<-v.done
		err := v.failed()
		if cerr := v.backend.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			v.closeErr = fmt.Errorf("%w: %v", defs.ErrOutput, err)
		}
	})
	return v.closeErr
}

// Letterbox draws src into dst as large as fits without distorting it
func Letterbox(dst, src *image.RGBA) {
	draw.Draw(dst, dst.Rect, image.Black, image.Point{}, draw.Src)

	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	dw, dh := dst.Rect.Dx(), dst.Rect.Dy()
	if sw == 0 || sh == 0 || dw == 0 || dh == 0 {
		return
	}

	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x, y := (dw-w)/2, (dh-h)/2
	r := image.Rect(x, y, x+w, y+h).Add(dst.Rect.Min)

	if w == sw && h == sh {
		draw.Draw(dst, r, src, src.Rect.Min, draw.Over)
		return
	}
	draw.ApproxBiLinear.Scale(dst, r, src, src.Rect, draw.Over, nil)
}
