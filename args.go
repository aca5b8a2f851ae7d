package recplay

import (
	"encoding/base64"
	"fmt"
	"image"
	"strconv"

	"github.com/dmisol/recplay/defs"
	"github.com/dmisol/recplay/display"
	"github.com/dmisol/recplay/protocol"
	"golang.org/x/image/draw"
)

// args reads typed arguments, the first failure sticks and is returned by err
type args struct {
	ins *protocol.Instruction
	err error
}

func (a *args) fail(i int, format string, v ...interface{}) {
	if a.err == nil {
		a.err = fmt.Errorf("%w: %s argument %d: %s", defs.ErrSemantic, a.ins.Opcode, i, fmt.Sprintf(format, v...))
	}
}

func (a *args) str(i int) string {
	return a.ins.Arg(i)
}

func (a *args) int(i int) int {
	if a.err != nil {
		return 0
	}
	v, err := strconv.Atoi(a.ins.Arg(i))
	if err != nil {
		a.fail(i, "%q is not an integer", a.ins.Arg(i))
	}
	return v
}

func (a *args) int64(i int) int64 {
	if a.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(a.ins.Arg(i), 10, 64)
	if err != nil {
		a.fail(i, "%q is not an integer", a.ins.Arg(i))
	}
	return v
}

func (a *args) byte(i int) uint8 {
	v := a.int(i)
	if a.err == nil && (v < 0 || v > 0xff) {
		a.fail(i, "%d is out of 0..255", v)
	}
	return uint8(v)
}

func (a *args) point(i int) image.Point {
	return image.Pt(a.int(i), a.int(i+1))
}

// rect reads x, y, width, height
func (a *args) rect(i int) image.Rectangle {
	x, y, w, h := a.int(i), a.int(i+1), a.int(i+2), a.int(i+3)
	if a.err == nil && (w < 0 || h < 0) {
		a.fail(i+2, "negative size %dx%d", w, h)
	}
	return image.Rect(x, y, x+w, y+h)
}

func (a *args) op(i int) draw.Op {
	mask := a.int(i)
	if a.err != nil {
		return draw.Src
	}
	op, err := display.Operator(mask)
	if err != nil {
		a.err = fmt.Errorf("%s: %w", a.ins.Opcode, err)
	}
	return op
}

func (a *args) base64(i int) []byte {
	if a.err != nil {
		return nil
	}
	v, err := base64.StdEncoding.DecodeString(a.ins.Arg(i))
	if err != nil {
		a.fail(i, "bad base64: %v", err)
	}
	return v
}
