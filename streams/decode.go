package streams

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	// raster formats an img stream may carry
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dmisol/recplay/defs"
	"golang.org/x/image/draw"
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// container extensions the video decoder is given, by mimetype
var videoTypes = map[string]string{
	"video/h264":       ".h264",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/x-matroska": ".mkv",
	"video/ogg":        ".ogv",
}

// ImageKind tells whether an img stream of that mimetype can be decoded
func ImageKind(mimetype string) Kind {
	if imageTypes[baseType(mimetype)] {
		return KindImage
	}
	return KindUnsupported
}

func VideoKind(mimetype string) Kind {
	if _, ok := videoTypes[baseType(mimetype)]; ok {
		return KindVideo
	}
	return KindUnsupported
}

// baseType drops parameters such as codecs="..."
func baseType(mimetype string) string {
	if i := strings.IndexByte(mimetype, ';'); i >= 0 {
		mimetype = mimetype[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimetype))
}

// Canvas receives decoded pixels
type Canvas interface {
	DrawImage(index int, at image.Point, img image.Image, op draw.Op) error
}

// Apply decodes a closed stream into the canvas. Payloads which can't be
// decoded come back wrapped in defs.ErrUnsupported, canvas errors as they are.
func Apply(s *Stream, c Canvas) error {
	switch s.Kind {
	case KindImage:
		img, err := DecodeImage(s.Bytes())
		if err != nil {
			return fmt.Errorf("%w: stream %d (%s): %v", defs.ErrUnsupported, s.Index, s.Mimetype, err)
		}
		return c.DrawImage(s.Layer, s.At, img, s.Op)

	case KindVideo:
		var drawErr error
		_, err := DecodeVideo(s.Mimetype, s.Bytes(), func(img image.Image) error {
			drawErr = c.DrawImage(s.Layer, s.At, img, s.Op)
			return drawErr
		})
		if drawErr != nil {
			return drawErr
		}
		if err != nil {
			return fmt.Errorf("%w: stream %d (%s): %v", defs.ErrUnsupported, s.Index, s.Mimetype, err)
		}
		return nil
	}
	return fmt.Errorf("%w: stream %d (%s), %d bytes dropped", defs.ErrUnsupported, s.Index, s.Mimetype, s.Len())
}

func DecodeImage(data []byte) (img image.Image, err error) {
	img, _, err = image.Decode(bytes.NewReader(data))
	return
}
