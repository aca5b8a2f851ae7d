package streams

import (
	"bytes"
	"errors"
	"image"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3/pkg/media/h264reader"
	"gocv.io/x/gocv"
)

var (
	ErrNoSPS     = errors.New("h.264 payload carries no sequence parameter set")
	ErrNoFrames  = errors.New("no frames decoded")
	ErrNotOpened = errors.New("video decoder can't open payload")
)

// DecodeVideo runs the payload through the opencv decoder and hands every frame to fn.
// opencv only reads from files, so the payload goes through a temporary one.
func DecodeVideo(mimetype string, data []byte, fn func(image.Image) error) (n int, err error) {
	ext, ok := videoTypes[baseType(mimetype)]
	if !ok {
		ext = ".bin"
	}
	if ext == ".h264" {
		if err = checkH264(data); err != nil {
			return
		}
	}

	name := filepath.Join(os.TempDir(), "recplay-"+uuid.NewString()+ext)
	if err = ioutil.WriteFile(name, data, 0600); err != nil {
		return
	}
	defer os.Remove(name)

	var vc *gocv.VideoCapture
	if vc, err = gocv.VideoCaptureFile(name); err != nil {
		return
	}
	defer vc.Close()
	if !vc.IsOpened() {
		err = ErrNotOpened
		return
	}

	mat := gocv.NewMat()
	defer mat.Close()

	for vc.Read(&mat) {
		if mat.Empty() {
			break
		}
		var img image.Image
		if img, err = mat.ToImage(); err != nil {
			return
		}
		if err = fn(img); err != nil {
			return
		}
		n++
	}
	if n == 0 {
		err = ErrNoFrames
	}
	return
}

// checkH264 walks the annex-b NAL units, nothing is decodable without an SPS
func checkH264(data []byte) error {
	r, err := h264reader.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	for {
		nal, err := r.NextNAL()
		if err == io.EOF {
			return ErrNoSPS
		}
		if err != nil {
			return err
		}
		if nal.UnitType == h264reader.NalUnitTypeSPS {
			return nil
		}
	}
}
