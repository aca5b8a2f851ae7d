package recplay

import (
	"errors"
	"image/color"

	"github.com/dmisol/recplay/defs"
	"github.com/dmisol/recplay/streams"
	"golang.org/x/image/draw"
)

type handler struct {
	minArgs int
	fn      func(r *Replay, a *args) error
}

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"size":     {3, (*Replay).size},
		"move":     {5, (*Replay).move},
		"shade":    {2, (*Replay).shade},
		"dispose":  {1, (*Replay).dispose},
		"rect":     {5, (*Replay).rect},
		"cfill":    {6, (*Replay).cfill},
		"copy":     {9, (*Replay).copy},
		"transfer": {9, (*Replay).transfer},

		"img":       {6, (*Replay).img},
		"video":     {3, (*Replay).openVideo},
		"audio":     {2, (*Replay).openOther},
		"file":      {2, (*Replay).openOther},
		"pipe":      {2, (*Replay).openOther},
		"clipboard": {2, (*Replay).openOther},
		"argv":      {2, (*Replay).openOther},
		"blob":      {2, (*Replay).blob},
		"end":       {1, (*Replay).end},

		"mouse":  {2, (*Replay).mouse},
		"cursor": {7, (*Replay).cursor},

		"sync":       {1, (*Replay).sync},
		"disconnect": {0, (*Replay).disconnect},
	}
}

// opcodes that carry nothing for the picture, skipped without a word
var ignored = map[string]bool{
	"nop":      true,
	"ack":      true,
	"name":     true,
	"args":     true,
	"ready":    true,
	"log":      true,
	"error":    true,
	"key":      true,
	"required": true,
	"body":     true,
}

func (r *Replay) size(a *args) error {
	index, w, h := a.int(0), a.int(1), a.int(2)
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.Resize(index, w, h)
}

func (r *Replay) move(a *args) error {
	index, parent := a.int(0), a.int(1)
	x, y, z := a.int(2), a.int(3), a.int(4)
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.Move(index, parent, x, y, z)
}

func (r *Replay) shade(a *args) error {
	index, opacity := a.int(0), a.byte(1)
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.Shade(index, opacity)
}

func (r *Replay) dispose(a *args) error {
	index := a.int(0)
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.Dispose(index)
}

func (r *Replay) rect(a *args) error {
	index, rc := a.int(0), a.rect(1)
	if a.err != nil {
		return a.err
	}
	return r.display.Rect(index, rc)
}

func (r *Replay) cfill(a *args) error {
	op, index := a.op(0), a.int(1)
	c := color.NRGBA{R: a.byte(2), G: a.byte(3), B: a.byte(4), A: a.byte(5)}
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.Fill(index, c, op)
}

func (r *Replay) copy(a *args) error {
	src, sr := a.int(0), a.rect(1)
	op, dst, dp := a.op(5), a.int(6), a.point(7)
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.Copy(src, sr, op, dst, dp)
}

func (r *Replay) transfer(a *args) error {
	src, sr := a.int(0), a.rect(1)
	fn, dst, dp := a.int(5), a.int(6), a.point(7)
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.Transfer(src, sr, fn, dst, dp)
}

func (r *Replay) img(a *args) error {
	index, op, layer := a.int(0), a.op(1), a.int(2)
	mimetype, at := a.str(3), a.point(4)
	if a.err != nil {
		return a.err
	}
	m := streams.Meta{
		Kind:     streams.ImageKind(mimetype),
		Mimetype: mimetype,
		Layer:    layer,
		At:       at,
		Op:       op,
	}
	if m.Kind == streams.KindUnsupported {
		r.Println("warning: img stream", index, "has unsupported type", mimetype, "and will be dropped")
	}
	return r.streams.Open(index, m)
}

func (r *Replay) openVideo(a *args) error {
	index, layer, mimetype := a.int(0), a.int(1), a.str(2)
	if a.err != nil {
		return a.err
	}
	m := streams.Meta{
		Kind:     streams.VideoKind(mimetype),
		Mimetype: mimetype,
		Layer:    layer,
		Op:       draw.Src,
	}
	if m.Kind == streams.KindUnsupported {
		r.Println("warning: video stream", index, "has unsupported type", mimetype, "and will be dropped")
	}
	return r.streams.Open(index, m)
}

// openOther opens streams which never reach the screen, their data is drained
func (r *Replay) openOther(a *args) error {
	index, mimetype := a.int(0), a.str(1)
	if a.err != nil {
		return a.err
	}
	r.Println("warning:", a.ins.Opcode, "stream", index, "of type", mimetype, "will be dropped")
	return r.streams.Open(index, streams.Meta{Kind: streams.KindUnsupported, Mimetype: mimetype})
}

func (r *Replay) blob(a *args) error {
	index, data := a.int(0), a.base64(1)
	if a.err != nil {
		return a.err
	}
	return r.streams.Append(index, data)
}

func (r *Replay) end(a *args) error {
	index := a.int(0)
	if a.err != nil {
		return a.err
	}
	s, err := r.streams.Close(index)
	if err != nil {
		return err
	}

	err = streams.Apply(s, r.display)
	if errors.Is(err, defs.ErrUnsupported) {
		// unsupported types were already reported when the stream was opened
		if s.Kind != streams.KindUnsupported {
			r.Println("warning:", err)
		} else {
			r.Debug(err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	r.clock.Damage()
	return nil
}

func (r *Replay) mouse(a *args) error {
	at := a.point(0)
	if a.err != nil {
		return a.err
	}
	r.display.MoveCursor(at)
	r.clock.Damage()
	return nil
}

func (r *Replay) cursor(a *args) error {
	hotspot, src, sr := a.point(0), a.int(2), a.rect(3)
	if a.err != nil {
		return a.err
	}
	r.clock.Damage()
	return r.display.SetCursor(hotspot, src, sr)
}

func (r *Replay) sync(a *args) error {
	ts := a.int64(0)
	if a.err != nil {
		return a.err
	}
	tick, err := r.clock.Sync(ts)
	if err != nil {
		return err
	}
	r.progress.Timestamp(ts)
	return r.emit(tick)
}

func (r *Replay) disconnect(a *args) error {
	r.Debug("disconnect at offset", a.ins.Offset)
	r.state = stateFinished
	return nil
}
