// Package streams accumulates chunked payloads by stream index until they can be decoded.
package streams

import (
	"bytes"
	"fmt"
	"image"

	"github.com/dmisol/recplay/defs"
	"golang.org/x/image/draw"
)

type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	}
	return "unsupported"
}

// Meta is what the opening instruction says about the payload
type Meta struct {
	Kind     Kind
	Mimetype string

	Layer int
	At    image.Point
	Op    draw.Op
}

type Stream struct {
	Index int
	Meta

	buf bytes.Buffer
}

func (s *Stream) Bytes() []byte {
	return s.buf.Bytes()
}

func (s *Stream) Len() int {
	return s.buf.Len()
}

// Table holds the open streams of one replay; indices are recycled after Close
type Table struct {
	open map[int]*Stream
}

func NewTable() *Table {
	return &Table{open: make(map[int]*Stream)}
}

func (t *Table) Open(index int, m Meta) error {
	if _, ok := t.open[index]; ok {
		return fmt.Errorf("%w: stream %d is already open", defs.ErrReference, index)
	}
	t.open[index] = &Stream{Index: index, Meta: m}
	return nil
}

func (t *Table) Append(index int, data []byte) error {
	s, ok := t.open[index]
	if !ok {
		return fmt.Errorf("%w: data for stream %d which is not open", defs.ErrReference, index)
	}
	s.buf.Write(data)
	return nil
}

// Close releases the index and hands back the accumulated payload
func (t *Table) Close(index int) (s *Stream, err error) {
	var ok bool
	if s, ok = t.open[index]; !ok {
		err = fmt.Errorf("%w: end of stream %d which is not open", defs.ErrReference, index)
		return
	}
	delete(t.open, index)
	return
}

// Pending is the number of streams still open
func (t *Table) Pending() int {
	return len(t.open)
}
