package encoder

import (
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"
)

// opencv muxes through gocv.VideoWriter, the codec is a fourcc and the container follows the file extension
type opencv struct {
	vw            *gocv.VideoWriter
	width, height int
}

func newOpenCV(p Params) (b Backend, err error) {
	if len(p.Codec) != 4 {
		err = fmt.Errorf("%q is not a fourcc", p.Codec)
		return
	}
	o := &opencv{width: p.Width, height: p.Height}
	if o.vw, err = gocv.VideoWriterFile(p.Path, p.Codec, float64(p.FPS), p.Width, p.Height, true); err != nil {
		return
	}
	if !o.vw.IsOpened() {
		o.vw.Close()
		err = fmt.Errorf("can't open %s with fourcc %s", p.Path, p.Codec)
		return
	}
	o.Println("encoding", p.Path, "fourcc", p.Codec)
	b = o
	return
}

func (o *opencv) Encode(frame *image.RGBA, pts int64) (err error) {
	rgba, err := gocv.NewMatFromBytes(o.height, o.width, gocv.MatTypeCV8UC4, frame.Pix)
	if err != nil {
		return fmt.Errorf("frame %d: %w", pts, err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	if err = o.vw.Write(bgr); err != nil {
		err = fmt.Errorf("frame %d: %w", pts, err)
	}
	return
}

func (o *opencv) Close() error {
	return o.vw.Close()
}

func (o *opencv) Println(i ...interface{}) {
	log.Println("opencv", i)
}
