package protocol

import (
	"bytes"
	"io"
	"strconv"
)

const (
	lengthDelim = '.'
	elemSep     = ','
	instrEnd    = ';'
)

// Instruction is one opcode with its ordered, binary-safe arguments
type Instruction struct {
	Opcode string
	Args   [][]byte

	Offset int64 // position of the first byte in the dump
}

func New(opcode string, args ...string) *Instruction {
	ins := &Instruction{Opcode: opcode}
	for _, a := range args {
		ins.Args = append(ins.Args, []byte(a))
	}
	return ins
}

// Arg returns argument i as a string, or "" when missing
func (ins *Instruction) Arg(i int) string {
	if i < 0 || i >= len(ins.Args) {
		return ""
	}
	return string(ins.Args[i])
}

// Encode writes the instruction framed as LEN.VALUE,...;
func (ins *Instruction) Encode(w io.Writer) (err error) {
	var b bytes.Buffer
	writeElem(&b, []byte(ins.Opcode))
	for _, a := range ins.Args {
		b.WriteByte(elemSep)
		writeElem(&b, a)
	}
	b.WriteByte(instrEnd)
	_, err = w.Write(b.Bytes())
	return
}

func (ins *Instruction) String() string {
	var b bytes.Buffer
	ins.Encode(&b)
	return b.String()
}

func writeElem(b *bytes.Buffer, v []byte) {
	b.WriteString(strconv.Itoa(len(v)))
	b.WriteByte(lengthDelim)
	b.Write(v)
}
