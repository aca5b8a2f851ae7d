package display

import (
	"fmt"
	"image"

	"github.com/dmisol/recplay/defs"
)

// binary raster functions of the transfer instruction, bit n of the
// function gives the result for (src, dst) = (1,1), (1,0), (0,1), (0,0)
const (
	TransferBlack = 0x0
	TransferAnd   = 0x1
	TransferSrc   = 0x3
	TransferDest  = 0x5
	TransferXor   = 0x6
	TransferOr    = 0x7
	TransferNSrc  = 0xC
	TransferWhite = 0xF
)

func applyTransfer(fn int, s, d byte) (r byte) {
	if fn&0x1 != 0 {
		r |= s & d
	}
	if fn&0x2 != 0 {
		r |= s &^ d
	}
	if fn&0x4 != 0 {
		r |= ^s & d
	}
	if fn&0x8 != 0 {
		r |= ^s &^ d
	}
	return
}

// Transfer combines sr of src with dst at dp bit by bit, color channels only
func (d *Display) Transfer(src int, sr image.Rectangle, fn int, dst int, dp image.Point) error {
	if fn < 0 || fn > 0xF {
		return fmt.Errorf("%w: unknown transfer function 0x%x", defs.ErrSemantic, fn)
	}
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

	// work on a copy of the source, src and dst may be the same layer
	clipped := dr.Intersect(t.Pix.Rect)
	if clipped.Empty() {
		return nil
	}
	sp := sr.Min.Add(clipped.Min.Sub(dr.Min))
	w, h := clipped.Dx(), clipped.Dy()

	rows := make([][]byte, h)
	for y := 0; y < h; y++ {
		off := s.Pix.PixOffset(sp.X, sp.Y+y)
		rows[y] = append([]byte(nil), s.Pix.Pix[off:off+4*w]...)
	}

	for y := 0; y < h; y++ {
		off := t.Pix.PixOffset(clipped.Min.X, clipped.Min.Y+y)
		px := t.Pix.Pix[off : off+4*w]
		for x := 0; x < w; x++ {
			i := 4 * x
			px[i+0] = applyTransfer(fn, rows[y][i+0], px[i+0])
			px[i+1] = applyTransfer(fn, rows[y][i+1], px[i+1])
			px[i+2] = applyTransfer(fn, rows[y][i+2], px[i+2])
			px[i+3] = 0xff
		}
	}
	return nil
}
