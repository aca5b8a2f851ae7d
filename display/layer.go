package display

import (
	"image"

	"golang.org/x/image/draw"
)

// Layer is a pixel surface; negative indices are off-screen buffers
type Layer struct {
	Index int
	Pix   *image.RGBA // premultiplied

	Parent    int
	hasParent bool

	X, Y, Z int
	Opacity uint8
	Visible bool

	// implicitly created layers and buffers grow to fit what is drawn into them
	autosize bool

	path []image.Rectangle
}

func newLayer(index int) *Layer {
	l := &Layer{
		Index:    index,
		Pix:      image.NewRGBA(image.Rect(0, 0, 0, 0)),
		Opacity:  0xff,
		Visible:  index >= 0,
		autosize: true,
	}
	if index > DefaultLayer {
		l.Parent = DefaultLayer
		l.hasParent = true
	}
	return l
}

func (l *Layer) Buffer() bool {
	return l.Index < 0
}

func (l *Layer) Width() int {
	return l.Pix.Rect.Dx()
}

func (l *Layer) Height() int {
	return l.Pix.Rect.Dy()
}

// Attached reports whether the layer hangs off some parent
func (l *Layer) Attached() bool {
	return l.hasParent
}

func (l *Layer) resize(w, h int) {
	if w == l.Width() && h == l.Height() {
		return
	}
	pix := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(pix, pix.Rect, l.Pix, image.Point{}, draw.Src)
	l.Pix = pix
}

// grow extends an autosized layer so that r fits, never beyond MaxSize
func (l *Layer) grow(r image.Rectangle) {
	if !l.autosize || r.Empty() {
		return
	}
	w, h := l.Width(), l.Height()
	if r.Max.X > w {
		w = min(r.Max.X, MaxSize)
	}
	if r.Max.Y > h {
		h = min(r.Max.Y, MaxSize)
	}
	l.resize(w, h)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
