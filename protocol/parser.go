package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/dmisol/recplay/defs"
)

const (
	// MaxElementLength bounds a single element, anything longer is treated as corruption
	MaxElementLength = 16 << 20

	maxLengthDigits = 9
)

// Parser reads instructions one by one, it can't be rewound
type Parser struct {
	rd  *bufio.Reader
	off int64
}

func NewParser(r io.Reader) *Parser {
	return &Parser{rd: bufio.NewReaderSize(r, 64*1024)}
}

// Offset is the number of bytes consumed so far
func (p *Parser) Offset() int64 {
	return p.off
}

// Next returns io.EOF only when the source ends exactly between two instructions
func (p *Parser) Next() (ins *Instruction, err error) {
	start := p.off

	if _, err = p.rd.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.EOF
		}
		return
	}

	ins = &Instruction{Offset: start}
	first := true
	for {
		var v []byte
		var term byte
		if v, term, err = p.element(); err != nil {
			ins = nil
			return
		}
		if first {
			ins.Opcode = string(v)
			first = false
		} else {
			ins.Args = append(ins.Args, v)
		}
		if term == instrEnd {
			return
		}
	}
}

func (p *Parser) element() (v []byte, term byte, err error) {
	at := p.off

	n := 0
	digits := 0
	for {
		var c byte
		if c, err = p.readByte(); err != nil {
			return
		}
		if c == lengthDelim {
			break
		}
		if c < '0' || c > '9' {
			err = fmt.Errorf("%w: offset %d: unexpected byte %q in length prefix", defs.ErrMalformed, p.off-1, c)
			return
		}
		digits++
		if digits > maxLengthDigits {
			err = fmt.Errorf("%w: offset %d: length prefix too long", defs.ErrMalformed, at)
			return
		}
		n = n*10 + int(c-'0')
	}
	if digits == 0 {
		err = fmt.Errorf("%w: offset %d: missing length prefix", defs.ErrMalformed, at)
		return
	}
	if n > MaxElementLength {
		err = fmt.Errorf("%w: offset %d: element of %d bytes exceeds limit", defs.ErrMalformed, at, n)
		return
	}

	v = make([]byte, n)
	var got int
	got, err = io.ReadFull(p.rd, v)
	p.off += int64(got)
	if err != nil {
		err = fmt.Errorf("%w: offset %d: element declares %d bytes, %d available", defs.ErrIncomplete, at, n, got)
		return
	}

	if term, err = p.readByte(); err != nil {
		return
	}
	if term != elemSep && term != instrEnd {
		err = fmt.Errorf("%w: offset %d: unexpected byte %q after element", defs.ErrMalformed, p.off-1, term)
	}
	return
}

// readByte turns any end of input into an incomplete instruction, since it's only called mid-instruction
func (p *Parser) readByte() (c byte, err error) {
	if c, err = p.rd.ReadByte(); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: offset %d: unexpected end of input", defs.ErrIncomplete, p.off)
		}
		return
	}
	p.off++
	return
}
