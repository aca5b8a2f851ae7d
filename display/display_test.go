package display

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/dmisol/recplay/defs"
	"golang.org/x/image/draw"
)

var (
	red   = color.RGBA{0xff, 0, 0, 0xff}
	green = color.RGBA{0, 0xff, 0, 0xff}
	blue  = color.RGBA{0, 0, 0xff, 0xff}
	black = color.RGBA{0, 0, 0, 0xff}
	none  = color.RGBA{}
)

func fill(t *testing.T, d *Display, index int, r image.Rectangle, c color.Color, op draw.Op) {
	t.Helper()
	if err := d.Rect(index, r); err != nil {
		t.Fatal(err)
	}
	if err := d.Fill(index, c, op); err != nil {
		t.Fatal(err)
	}
}

func expectPixel(t *testing.T, img *image.RGBA, x, y int, want color.RGBA) {
	t.Helper()
	if got := img.RGBAAt(x, y); got != want {
		t.Fatalf("pixel (%d,%d): got %v want %v", x, y, got, want)
	}
}

func TestImplicitLayerGrows(t *testing.T) {
	d := New()
	fill(t, d, 0, image.Rect(0, 0, 100, 100), red, draw.Src)

	out := d.Composite()
	if out.Rect.Dx() != 100 || out.Rect.Dy() != 100 {
		t.Fatalf("unexpected size %v", out.Rect)
	}
	expectPixel(t, out, 0, 0, red)
	expectPixel(t, out, 99, 99, red)
}

func TestSizedLayerClips(t *testing.T) {
	d := New()
	if err := d.Resize(0, 10, 10); err != nil {
		t.Fatal(err)
	}
	if err := d.Resize(1, 4, 4); err != nil {
		t.Fatal(err)
	}
	if err := d.Move(1, 0, 8, 8, 0); err != nil {
		t.Fatal(err)
	}
	fill(t, d, 1, image.Rect(2, 2, 50, 50), green, draw.Src)

	l, _ := d.Layer(1)
	if l.Width() != 4 || l.Height() != 4 {
		t.Fatalf("sized layer must not grow, got %dx%d", l.Width(), l.Height())
	}
	expectPixel(t, l.Pix, 1, 1, none)
	expectPixel(t, l.Pix, 3, 3, green)

	// the child hangs over the edge of the root, clipped there too
	out := d.Composite()
	if out.Rect.Dx() != 10 || out.Rect.Dy() != 10 {
		t.Fatalf("unexpected size %v", out.Rect)
	}
	expectPixel(t, out, 9, 9, none)
	expectPixel(t, out, 8, 8, none)
	if err := d.Move(1, 0, 6, 6, 0); err != nil {
		t.Fatal(err)
	}
	expectPixel(t, d.Composite(), 9, 9, green)
}

func TestNegativeRectIsClipped(t *testing.T) {
	d := New()
	if err := d.Resize(0, 4, 4); err != nil {
		t.Fatal(err)
	}
	fill(t, d, 0, image.Rect(-10, -10, 2, 2), red, draw.Src)
	out := d.Composite()
	expectPixel(t, out, 1, 1, red)
	expectPixel(t, out, 2, 2, none)
}

func TestStackingOrder(t *testing.T) {
	d := New()
	d.Resize(0, 4, 4)
	for _, i := range []int{1, 2} {
		d.Resize(i, 4, 4)
	}
	fill(t, d, 1, image.Rect(0, 0, 4, 4), red, draw.Src)
	fill(t, d, 2, image.Rect(0, 0, 4, 4), blue, draw.Src)

	d.Move(1, 0, 0, 0, 5)
	d.Move(2, 0, 0, 0, 1)
	expectPixel(t, d.Composite(), 0, 0, red)

	d.Move(2, 0, 0, 0, 5)
	// same z, higher index wins
	expectPixel(t, d.Composite(), 0, 0, blue)
}

func TestNestedOffsets(t *testing.T) {
	d := New()
	d.Resize(0, 10, 10)
	d.Resize(1, 5, 5)
	d.Resize(2, 2, 2)
	d.Move(1, 0, 2, 2, 0)
	d.Move(2, 1, 1, 1, 0)
	fill(t, d, 2, image.Rect(0, 0, 2, 2), green, draw.Src)

	out := d.Composite()
	expectPixel(t, out, 2, 2, none)
	expectPixel(t, out, 3, 3, green)
	expectPixel(t, out, 4, 4, green)
	expectPixel(t, out, 5, 5, none)
}

func TestOpacity(t *testing.T) {
	d := New()
	d.Resize(0, 1, 1)
	fill(t, d, 0, image.Rect(0, 0, 1, 1), black, draw.Src)
	d.Resize(1, 1, 1)
	fill(t, d, 1, image.Rect(0, 0, 1, 1), color.RGBA{0xff, 0xff, 0xff, 0xff}, draw.Src)

	d.Shade(1, 0)
	expectPixel(t, d.Composite(), 0, 0, black)

	d.Shade(1, 0x80)
	got := d.Composite().RGBAAt(0, 0)
	if got.R < 0x7e || got.R > 0x81 || got.A != 0xff {
		t.Fatalf("half opacity should give mid grey, got %v", got)
	}

	d.SetVisible(1, false)
	expectPixel(t, d.Composite(), 0, 0, black)
}

func TestBuffersAreNotComposited(t *testing.T) {
	d := New()
	d.Resize(0, 4, 4)
	fill(t, d, -1, image.Rect(0, 0, 4, 4), red, draw.Src)

	expectPixel(t, d.Composite(), 0, 0, none)

	if err := d.Copy(-1, image.Rect(0, 0, 2, 2), draw.Src, 0, image.Pt(2, 2)); err != nil {
		t.Fatal(err)
	}
	out := d.Composite()
	expectPixel(t, out, 1, 1, none)
	expectPixel(t, out, 3, 3, red)

	if err := d.SetVisible(-1, true); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}
	if err := d.Move(-1, 0, 0, 0, 0); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}
}

func TestCopyOver(t *testing.T) {
	d := New()
	d.Resize(0, 2, 1)
	fill(t, d, 0, image.Rect(0, 0, 2, 1), blue, draw.Src)
	fill(t, d, -1, image.Rect(0, 0, 1, 1), red, draw.Src)
	// buffer grew to 1x1, the rest of the source rectangle is clipped away

	if err := d.Copy(-1, image.Rect(0, 0, 2, 1), draw.Over, 0, image.Pt(0, 0)); err != nil {
		t.Fatal(err)
	}
	out := d.Composite()
	expectPixel(t, out, 0, 0, red)
	expectPixel(t, out, 1, 0, blue)

	// transparent source over keeps destination, src replaces it
	d.Resize(-2, 1, 1)
	d.Copy(-2, image.Rect(0, 0, 1, 1), draw.Over, 0, image.Pt(1, 0))
	expectPixel(t, d.Composite(), 1, 0, blue)
	d.Copy(-2, image.Rect(0, 0, 1, 1), draw.Src, 0, image.Pt(1, 0))
	expectPixel(t, d.Composite(), 1, 0, none)
}

func TestSelfCopyOverlap(t *testing.T) {
	d := New()
	d.Resize(0, 3, 1)
	fill(t, d, 0, image.Rect(0, 0, 1, 1), red, draw.Src)
	fill(t, d, 0, image.Rect(1, 0, 2, 1), green, draw.Src)
	fill(t, d, 0, image.Rect(2, 0, 3, 1), blue, draw.Src)

	d.Copy(0, image.Rect(0, 0, 2, 1), draw.Src, 0, image.Pt(1, 0))
	out := d.Composite()
	expectPixel(t, out, 0, 0, red)
	expectPixel(t, out, 1, 0, red)
	expectPixel(t, out, 2, 0, green)
}

func TestReparentCycle(t *testing.T) {
	d := New()
	if err := d.Move(1, 0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.Move(2, 1, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.Move(1, 2, 0, 0, 0); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if err := d.Move(1, 1, 0, 0, 0); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	l, _ := d.Layer(1)
	if l.Parent != 0 {
		t.Fatalf("failed move must not change the parent, got %d", l.Parent)
	}
	if err := d.Move(0, 1, 0, 0, 0); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("default layer can't be moved, got %v", err)
	}
}

func TestDispose(t *testing.T) {
	d := New()
	d.Resize(1, 2, 2)
	d.Move(2, 1, 0, 0, 0)

	if err := d.Dispose(1); err != nil {
		t.Fatal(err)
	}
	if l, _ := d.Layer(2); l.Attached() {
		t.Fatal("child of a disposed layer should be detached")
	}
	if err := d.Dispose(1); !errors.Is(err, defs.ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}
	if err := d.Rect(1, image.Rect(0, 0, 1, 1)); !errors.Is(err, defs.ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}
	if err := d.Dispose(0); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}

	// the server recycles indices through size
	if err := d.Resize(1, 3, 3); err != nil {
		t.Fatal(err)
	}
	if err := d.Rect(1, image.Rect(0, 0, 1, 1)); err != nil {
		t.Fatal(err)
	}
}

func TestDisposeUnknownIndex(t *testing.T) {
	d := New()
	if err := d.Dispose(7); err != nil {
		t.Fatal(err)
	}
	if err := d.Rect(7, image.Rect(0, 0, 2, 2)); err != nil {
		t.Fatalf("index 7 was never in use, got %v", err)
	}
	if err := d.Dispose(-3); err != nil {
		t.Fatal(err)
	}
	if err := d.Fill(-3, red, draw.Src); err != nil {
		t.Fatal(err)
	}
}

func TestResizeKeepsPixels(t *testing.T) {
	d := New()
	fill(t, d, 0, image.Rect(0, 0, 4, 4), red, draw.Src)
	if err := d.Resize(0, 8, 2); err != nil {
		t.Fatal(err)
	}
	l, _ := d.Layer(0)
	expectPixel(t, l.Pix, 3, 1, red)
	expectPixel(t, l.Pix, 4, 1, none)

	if err := d.Resize(0, -1, 2); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}
	if err := d.Resize(0, MaxSize+1, 2); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	d := New()
	d.Resize(0, 1, 1)
	fill(t, d, 0, image.Rect(0, 0, 1, 1), color.RGBA{0xf0, 0x0f, 0xff, 0xff}, draw.Src)
	fill(t, d, -1, image.Rect(0, 0, 1, 1), color.RGBA{0xff, 0xff, 0x0f, 0xff}, draw.Src)

	if err := d.Transfer(-1, image.Rect(0, 0, 1, 1), TransferXor, 0, image.Pt(0, 0)); err != nil {
		t.Fatal(err)
	}
	expectPixel(t, d.Composite(), 0, 0, color.RGBA{0x0f, 0xf0, 0xf0, 0xff})

	d.Transfer(-1, image.Rect(0, 0, 1, 1), TransferSrc, 0, image.Pt(0, 0))
	expectPixel(t, d.Composite(), 0, 0, color.RGBA{0xff, 0xff, 0x0f, 0xff})

	if err := d.Transfer(-1, image.Rect(0, 0, 1, 1), 0x10, 0, image.Pt(0, 0)); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}
}

func TestCursor(t *testing.T) {
	d := New()
	d.Resize(0, 10, 10)
	fill(t, d, -1, image.Rect(0, 0, 2, 2), red, draw.Src)
	if err := d.SetCursor(image.Pt(1, 1), -1, image.Rect(0, 0, 2, 2)); err != nil {
		t.Fatal(err)
	}
	d.MoveCursor(image.Pt(5, 5))

	out := d.Composite()
	expectPixel(t, out, 3, 3, none)
	expectPixel(t, out, 4, 4, red)
	expectPixel(t, out, 5, 5, red)
	expectPixel(t, out, 6, 6, none)
}

func TestOperator(t *testing.T) {
	if op, err := Operator(MaskSrc); err != nil || op != draw.Src {
		t.Fatalf("got %v %v", op, err)
	}
	if op, err := Operator(MaskOver); err != nil || op != draw.Over {
		t.Fatalf("got %v %v", op, err)
	}
	if _, err := Operator(0x6); !errors.Is(err, defs.ErrSemantic) {
		t.Fatalf("expected semantic error, got %v", err)
	}
}

func TestCompositeDeterministic(t *testing.T) {
	build := func() *image.RGBA {
		d := New()
		d.Resize(0, 16, 16)
		for i := 1; i < 8; i++ {
			d.Resize(i, 6, 6)
			d.Move(i, 0, i, i, i%3)
			d.Shade(i, uint8(40*i))
			fill(t, d, i, image.Rect(0, 0, 6, 6), color.RGBA{uint8(30 * i), uint8(255 - 30*i), uint8(i), 0xff}, draw.Src)
		}
		return d.Composite()
	}
	a, b := build(), build()
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("identical history must give identical pixels")
	}
}
