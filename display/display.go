// Package display keeps the layered screen state of a replay and flattens it on demand.
package display

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/dmisol/recplay/defs"
	"golang.org/x/image/draw"
)

const (
	DefaultLayer = 0

	// MaxSize caps both dimensions of any layer
	MaxSize = 8192
	// MaxDepth bounds the ancestor walk when reparenting and when compositing
	MaxDepth = 64
)

// channel masks, as sent in cfill / copy / img
const (
	MaskSrc  = 0x0C
	MaskOver = 0x0E
)

// Operator maps a channel mask onto a compositing operator
func Operator(mask int) (op draw.Op, err error) {
	switch mask {
	case MaskSrc:
		op = draw.Src
	case MaskOver:
		op = draw.Over
	default:
		err = fmt.Errorf("%w: unsupported compositing mask 0x%02x", defs.ErrSemantic, mask)
	}
	return
}

type Display struct {
	layers    map[int]*Layer
	destroyed map[int]bool

	cursor cursor
}

type cursor struct {
	img     *image.RGBA
	hotspot image.Point
	at      image.Point
}

func New() *Display {
	d := &Display{
		layers:    make(map[int]*Layer),
		destroyed: make(map[int]bool),
	}
	d.layers[DefaultLayer] = newLayer(DefaultLayer)
	return d
}

// Layer returns an existing layer without creating it
func (d *Display) Layer(index int) (l *Layer, ok bool) {
	l, ok = d.layers[index]
	return
}

// layer returns the layer, creating it on first reference
func (d *Display) layer(index int) (*Layer, error) {
	if l, ok := d.layers[index]; ok {
		return l, nil
	}
	if d.destroyed[index] {
		return nil, fmt.Errorf("%w: layer %d was disposed", defs.ErrReference, index)
	}
	l := newLayer(index)
	d.layers[index] = l
	return l, nil
}

// Resize creates or resizes a layer. It's also the way a disposed index gets reused.
func (d *Display) Resize(index, w, h int) error {
	if w < 0 || h < 0 || w > MaxSize || h > MaxSize {
		return fmt.Errorf("%w: layer %d: invalid size %dx%d", defs.ErrSemantic, index, w, h)
	}
	delete(d.destroyed, index)

	l, err := d.layer(index)
	if err != nil {
		return err
	}
	l.resize(w, h)
	l.autosize = l.Buffer()
	return nil
}

func (d *Display) Dispose(index int) error {
	if index == DefaultLayer {
		return fmt.Errorf("%w: the default layer can't be disposed", defs.ErrSemantic)
	}
	if d.destroyed[index] {
		return fmt.Errorf("%w: layer %d disposed twice", defs.ErrReference, index)
	}
	if _, ok := d.layers[index]; !ok {
		// never referenced, there is nothing to release and the index stays usable
		return nil
	}
	delete(d.layers, index)
	d.destroyed[index] = true

	for _, l := range d.layers {
		if l.hasParent && l.Parent == index {
			l.hasParent = false
		}
	}
	return nil
}

// Move reparents a visible layer and sets its offset and stacking order
func (d *Display) Move(index, parent, x, y, z int) error {
	if index == DefaultLayer {
		return fmt.Errorf("%w: the default layer can't be moved", defs.ErrSemantic)
	}
	if index < 0 || parent < 0 {
		return fmt.Errorf("%w: buffers can't take part in the hierarchy (layer %d, parent %d)", defs.ErrSemantic, index, parent)
	}
	l, err := d.layer(index)
	if err != nil {
		return err
	}
	if _, err = d.layer(parent); err != nil {
		return err
	}

	cur := parent
	for depth := 0; ; depth++ {
		if cur == index {
			return fmt.Errorf("%w: moving layer %d under %d makes a cycle", defs.ErrSemantic, index, parent)
		}
		if depth >= MaxDepth {
			return fmt.Errorf("%w: layer %d would be nested deeper than %d", defs.ErrSemantic, index, MaxDepth)
		}
		a := d.layers[cur]
		if !a.hasParent {
			break
		}
		cur = a.Parent
	}

	l.Parent, l.hasParent = parent, true
	l.X, l.Y, l.Z = x, y, z
	return nil
}

func (d *Display) Shade(index int, opacity uint8) error {
	l, err := d.layer(index)
	if err != nil {
		return err
	}
	l.Opacity = opacity
	return nil
}

func (d *Display) SetVisible(index int, visible bool) error {
	l, err := d.layer(index)
	if err != nil {
		return err
	}
	if l.Buffer() && visible {
		return fmt.Errorf("%w: buffer %d can't be shown", defs.ErrSemantic, index)
	}
	l.Visible = visible
	return nil
}

// Rect appends a rectangle to the pending path of the layer
func (d *Display) Rect(index int, r image.Rectangle) error {
	l, err := d.layer(index)
	if err != nil {
		return err
	}
	l.path = append(l.path, r.Canon())
	return nil
}

// Fill floods the pending path with c and clears it
func (d *Display) Fill(index int, c color.Color, op draw.Op) error {
	l, err := d.layer(index)
	if err != nil {
		return err
	}
	src := image.NewUniform(c)
	for _, r := range l.path {
		l.grow(r)
		draw.Draw(l.Pix, r, src, image.Point{}, op)
	}
	l.path = l.path[:0]
	return nil
}

// Copy composites sr of layer src into layer dst at dp
func (d *Display) Copy(src int, sr image.Rectangle, op draw.Op, dst int, dp image.Point) error {
	s, err := d.layer(src)
	if err != nil {
		return err
	}
	t, err := d.layer(dst)
	if err != nil {
		return err
	}
	sr, dp = clipSource(s.Pix.Rect, sr, dp)
	dr := image.Rectangle{dp, dp.Add(sr.Size())}
	t.grow(dr)
	draw.Draw(t.Pix, dr, s.Pix, sr.Min, op)
	return nil
}

// DrawImage draws a decoded picture, the path of every pixel payload
func (d *Display) DrawImage(index int, at image.Point, img image.Image, op draw.Op) error {
	l, err := d.layer(index)
	if err != nil {
		return err
	}
	b := img.Bounds()
	dr := image.Rectangle{at, at.Add(b.Size())}
	l.grow(dr)
	draw.Draw(l.Pix, dr, img, b.Min, op)
	return nil
}

// SetCursor takes the cursor picture from a region of a layer
func (d *Display) SetCursor(hotspot image.Point, src int, sr image.Rectangle) error {
	s, err := d.layer(src)
	if err != nil {
		return err
	}
	sr = sr.Canon().Intersect(s.Pix.Rect)
	img := image.NewRGBA(image.Rect(0, 0, sr.Dx(), sr.Dy()))
	draw.Draw(img, img.Rect, s.Pix, sr.Min, draw.Src)
	d.cursor.img = img
	d.cursor.hotspot = hotspot
	return nil
}

func (d *Display) MoveCursor(at image.Point) {
	d.cursor.at = at
}

// clipSource shrinks sr to the source bounds and shifts dp by the same amount
func clipSource(bounds, sr image.Rectangle, dp image.Point) (image.Rectangle, image.Point) {
	sr = sr.Canon()
	c := sr.Intersect(bounds)
	if c.Empty() {
		return image.Rectangle{}, dp
	}
	return c, dp.Add(c.Min.Sub(sr.Min))
}

// Composite flattens the visible tree rooted at the default layer
func (d *Display) Composite() *image.RGBA {
	children := make(map[int][]*Layer)
	for _, l := range d.layers {
		if l.hasParent && !l.Buffer() {
			children[l.Parent] = append(children[l.Parent], l)
		}
	}
	for _, c := range children {
		sort.Slice(c, func(i, j int) bool {
			if c[i].Z != c[j].Z {
				return c[i].Z < c[j].Z
			}
			return c[i].Index < c[j].Index
		})
	}

	out := flatten(d.layers[DefaultLayer], children, 0)

	if cur := d.cursor; cur.img != nil {
		at := cur.at.Sub(cur.hotspot)
		draw.Draw(out, cur.img.Rect.Add(at), cur.img, image.Point{}, draw.Over)
	}
	return out
}

func flatten(l *Layer, children map[int][]*Layer, depth int) *image.RGBA {
	canvas := image.NewRGBA(l.Pix.Rect)
	copy(canvas.Pix, l.Pix.Pix)
	if depth >= MaxDepth {
		return canvas
	}

	for _, c := range children[l.Index] {
		if !c.Visible || c.Opacity == 0 {
			continue
		}
		sub := flatten(c, children, depth+1)
		r := sub.Rect.Add(image.Pt(c.X, c.Y))
		if c.Opacity == 0xff {
			draw.Draw(canvas, r, sub, image.Point{}, draw.Over)
		} else {
			draw.DrawMask(canvas, r, sub, image.Point{}, image.NewUniform(color.Alpha{A: c.Opacity}), image.Point{}, draw.Over)
		}
	}
	return canvas
}
